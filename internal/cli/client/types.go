package client

// Vehicle represents a fleet vehicle
type Vehicle struct {
	ID            int64  `json:"id,omitempty"`
	VehicleNo     string `json:"vehicleNo" validate:"required"`
	VehicleType   string `json:"vehicleType" validate:"required"`
	Capacity      int    `json:"capacity" validate:"gt=0"`
	VehicleStatus string `json:"vehicleStatus" validate:"required"`
}

// Driver represents a driver account
type Driver struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// DriverRequest registers a new driver account
type DriverRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Route represents a transport route
type Route struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Source        string `json:"source"`
	Destination   string `json:"destination"`
	TransportMode string `json:"transportMode"`
	Active        bool   `json:"active"`
}

// Schedule represents a recurring departure on a route
type Schedule struct {
	ID            int64  `json:"id"`
	RouteName     string `json:"routeName"`
	DayOfWeek     string `json:"dayOfWeek"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
}

// Trip represents a scheduled run of a vehicle on a route
type Trip struct {
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
}

// TripRequest plans a trip. A scheduled trip takes its route and times from
// ScheduleID; an ad-hoc trip names RouteID and both times.
type TripRequest struct {
	IsScheduled    bool    `json:"isScheduled"`
	ScheduleID     *int64  `json:"scheduleId"`
	RouteID        *int64  `json:"routeId"`
	VehicleID      int64   `json:"vehicleId" validate:"gt=0"`
	DriverID       int64   `json:"driverId" validate:"gt=0"`
	TripDate       string  `json:"tripDate" validate:"required,datetime=2006-01-02"`
	ScheduledStart *string `json:"scheduledStart" validate:"omitempty,datetime=15:04"`
	ScheduledEnd   *string `json:"scheduledEnd" validate:"omitempty,datetime=15:04"`
}

// TripSearch holds passenger search criteria
type TripSearch struct {
	Source      string `validate:"required"`
	Destination string `validate:"required"`
	Date        string `validate:"required,datetime=2006-01-02"`
}

// BookingRequest represents a seat booking
type BookingRequest struct {
	TripID int64 `json:"tripId"`
	UserID int64 `json:"userId"`
}

// Ticket represents a booked seat
type Ticket struct {
	ID            int64   `json:"id"`
	PassengerName string  `json:"passengerName"`
	Source        string  `json:"source"`
	Destination   string  `json:"destination"`
	VehicleNo     string  `json:"vehicleNo"`
	Date          string  `json:"date"`
	BookedAt      string  `json:"bookedAt"`
	FareAmount    float64 `json:"fareAmount"`
	Status        string  `json:"status"`
}
