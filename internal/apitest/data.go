package apitest

import "golang.org/x/crypto/bcrypt"

// The JSON shapes below mirror what the real backend returns for each view.

type vehicle struct {
	ID            int64  `json:"id"`
	VehicleNo     string `json:"vehicleNo" binding:"required"`
	VehicleType   string `json:"vehicleType" binding:"required"`
	Capacity      int    `json:"capacity" binding:"gt=0"`
	VehicleStatus string `json:"vehicleStatus" binding:"required"`
}

type driver struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type route struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Source        string `json:"source"`
	Destination   string `json:"destination"`
	TransportMode string `json:"transportMode"`
	Active        bool   `json:"active"`
}

type schedule struct {
	ID            int64  `json:"id"`
	RouteName     string `json:"routeName"`
	DayOfWeek     string `json:"dayOfWeek"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
}

type trip struct {
	ID             int64  `json:"id"`
	RouteName      string `json:"routeName"`
	Source         string `json:"source"`
	Destination    string `json:"destination"`
	VehicleNo      string `json:"vehicleNo"`
	DriverName     string `json:"driverName"`
	TripDate       string `json:"tripDate"`
	ScheduledStart string `json:"scheduledStart"`
	ScheduledEnd   string `json:"scheduledEnd"`
	Status         string `json:"status"`

	driverID int64
	fare     float64
}

type ticket struct {
	ID            int64   `json:"id"`
	PassengerName string  `json:"passengerName"`
	Source        string  `json:"source"`
	Destination   string  `json:"destination"`
	VehicleNo     string  `json:"vehicleNo"`
	Date          string  `json:"date"`
	BookedAt      string  `json:"bookedAt"`
	FareAmount    float64 `json:"fareAmount"`
	Status        string  `json:"status"`

	userID int64
}

type dataset struct {
	vehicles  []vehicle
	routes    []route
	schedules map[int64][]schedule
	trips     []trip
	tickets   []ticket
}

// Seed IDs referenced by tests
const (
	SeedRouteID     = 10
	SeedTripID      = 30
	SeedSearchDate  = "2026-03-02"
	SeedSource      = "Central"
	SeedDestination = "Airport"
)

func seedData() *dataset {
	return &dataset{
		vehicles: []vehicle{
			{ID: 20, VehicleNo: "BUS-001", VehicleType: "BUS", Capacity: 40, VehicleStatus: "ACTIVE"},
			{ID: 21, VehicleNo: "VAN-002", VehicleType: "VAN", Capacity: 12, VehicleStatus: "MAINTENANCE"},
		},
		routes: []route{
			{ID: SeedRouteID, Name: "Airport Express", Source: SeedSource, Destination: SeedDestination, TransportMode: "BUS", Active: true},
			{ID: 11, Name: "Harbour Loop", Source: "Harbour", Destination: "Harbour", TransportMode: "VAN", Active: false},
		},
		schedules: map[int64][]schedule{
			SeedRouteID: {
				{ID: 40, RouteName: "Airport Express", DayOfWeek: "MONDAY", DepartureTime: "08:00", ArrivalTime: "08:45"},
				{ID: 41, RouteName: "Airport Express", DayOfWeek: "MONDAY", DepartureTime: "17:30", ArrivalTime: "18:15"},
			},
		},
		trips: []trip{
			{
				ID: SeedTripID, RouteName: "Airport Express", Source: SeedSource, Destination: SeedDestination,
				VehicleNo: "BUS-001", DriverName: "Dan Driver", TripDate: SeedSearchDate,
				ScheduledStart: "08:00", ScheduledEnd: "08:45", Status: "SCHEDULED",
				driverID: 2, fare: 4.5,
			},
			{
				ID: 31, RouteName: "Airport Express", Source: SeedSource, Destination: SeedDestination,
				VehicleNo: "BUS-001", DriverName: "Dan Driver", TripDate: "2026-03-03",
				ScheduledStart: "17:30", ScheduledEnd: "18:15", Status: "SCHEDULED",
				driverID: 2, fare: 4.5,
			},
		},
	}
}

func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
