package apitest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/transitdesk/transitdesk/internal/session"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token        string              `json:"token"`
	RefreshToken string              `json:"refreshToken"`
	User         session.UserProfile `json:"user"`
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Phone    string `json:"phone"`
}

type driverRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// tripRequest either references a schedule, which supplies the route and
// times, or names a route with explicit times
type tripRequest struct {
	IsScheduled    bool    `json:"isScheduled"`
	ScheduleID     *int64  `json:"scheduleId"`
	RouteID        *int64  `json:"routeId"`
	VehicleID      int64   `json:"vehicleId" binding:"gt=0"`
	DriverID       int64   `json:"driverId" binding:"gt=0"`
	TripDate       string  `json:"tripDate" binding:"required"`
	ScheduledStart *string `json:"scheduledStart"`
	ScheduledEnd   *string `json:"scheduledEnd"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !verifyPassword(req.Password, acct.passwordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := s.signAccessToken(acct.profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Token:        token,
		RefreshToken: s.newRefreshToken(acct.profile.ID),
		User:         acct.profile,
	})
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, ok := session.ParseRole(req.Role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
		return
	}

	s.mu.Lock()
	_, exists := s.accounts[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	profile := s.AddUser(req.Email, req.Password, role)
	profile.Name = req.Name
	profile.Phone = req.Phone

	s.mu.Lock()
	s.accounts[strings.ToLower(req.Email)].profile = profile
	s.mu.Unlock()

	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": profile})
}

func (s *Server) refresh(c *gin.Context) {
	s.refreshCalls.Add(1)

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	userID, known := s.refreshTokens[req.RefreshToken]
	reject := s.rejectRefresh
	rotate := s.rotateRefresh
	if known && rotate {
		delete(s.refreshTokens, req.RefreshToken)
	}
	s.mu.Unlock()

	if reject || !known {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	acct, ok := s.findAccountByID(userID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	token, err := s.signAccessToken(acct.profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	resp := refreshResponse{Token: token}
	if rotate {
		resp.RefreshToken = s.newRefreshToken(userID)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) listVehicles(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.data.vehicles)
}

func (s *Server) createVehicle(c *gin.Context) {
	var v vehicle
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.data.vehicles {
		if strings.EqualFold(existing.VehicleNo, v.VehicleNo) {
			c.JSON(http.StatusConflict, gin.H{"error": "Vehicle number already exists"})
			return
		}
	}

	s.nextID++
	v.ID = s.nextID
	s.data.vehicles = append(s.data.vehicles, v)
	c.JSON(http.StatusCreated, v)
}

func (s *Server) deleteVehicle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range s.data.vehicles {
		if v.ID == id {
			s.data.vehicles = append(s.data.vehicles[:i], s.data.vehicles[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
}

func (s *Server) listDrivers(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drivers := []driver{}
	for _, acct := range s.accounts {
		if acct.profile.Role == session.RoleDriver {
			drivers = append(drivers, driver{
				ID:    acct.profile.ID,
				Name:  acct.profile.Name,
				Email: acct.profile.Email,
				Phone: acct.profile.Phone,
			})
		}
	}
	c.JSON(http.StatusOK, drivers)
}

func (s *Server) registerDriver(c *gin.Context) {
	var req driverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	_, exists := s.accounts[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	profile := s.AddUser(req.Email, req.Password, session.RoleDriver)
	profile.Name = req.Name
	profile.Phone = req.Phone

	s.mu.Lock()
	s.accounts[strings.ToLower(req.Email)].profile = profile
	s.mu.Unlock()

	c.JSON(http.StatusCreated, driver{ID: profile.ID, Name: profile.Name, Email: profile.Email, Phone: profile.Phone})
}

func (s *Server) listRoutes(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.data.routes)
}

func (s *Server) listSchedules(c *gin.Context) {
	routeID, ok := pathID(c, "routeId")
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.data.schedules[routeID])
}

func (s *Server) listTrips(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.data.trips)
}

func (s *Server) createTrip(c *gin.Context) {
	var req tripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct, ok := s.findAccountByID(req.DriverID)
	if !ok || acct.profile.Role != session.RoleDriver {
		c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := trip{
		DriverName: acct.profile.Name,
		TripDate:   req.TripDate,
		Status:     "SCHEDULED",
		driverID:   acct.profile.ID,
		fare:       4.5,
	}

	for _, v := range s.data.vehicles {
		if v.ID == req.VehicleID {
			t.VehicleNo = v.VehicleNo
		}
	}
	if t.VehicleNo == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}

	var routeID int64
	switch {
	case req.IsScheduled && req.ScheduleID != nil:
		for id, schedules := range s.data.schedules {
			for _, sch := range schedules {
				if sch.ID == *req.ScheduleID {
					routeID = id
					t.ScheduledStart = sch.DepartureTime
					t.ScheduledEnd = sch.ArrivalTime
				}
			}
		}
		if routeID == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
			return
		}
	case !req.IsScheduled && req.RouteID != nil && req.ScheduledStart != nil && req.ScheduledEnd != nil:
		routeID = *req.RouteID
		t.ScheduledStart = *req.ScheduledStart
		t.ScheduledEnd = *req.ScheduledEnd
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either a schedule or a route with times is required"})
		return
	}

	for _, r := range s.data.routes {
		if r.ID == routeID {
			t.RouteName = r.Name
			t.Source = r.Source
			t.Destination = r.Destination
		}
	}
	if t.RouteName == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}

	s.nextID++
	t.ID = s.nextID
	s.data.trips = append(s.data.trips, t)
	c.JSON(http.StatusCreated, t)
}

func (s *Server) searchTrips(c *gin.Context) {
	source := c.Query("source")
	destination := c.Query("destination")
	date := c.Query("date")
	if source == "" || destination == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source, destination and date are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matches := []trip{}
	for _, t := range s.data.trips {
		if strings.EqualFold(t.Source, source) && strings.EqualFold(t.Destination, destination) && t.TripDate == date {
			matches = append(matches, t)
		}
	}
	c.JSON(http.StatusOK, matches)
}

func (s *Server) driverTrips(c *gin.Context) {
	driverID, ok := pathID(c, "driverId")
	if !ok {
		return
	}

	tokenClaims, _ := claimsFrom(c)
	if tokenClaims.UserID != driverID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	assigned := []trip{}
	for _, t := range s.data.trips {
		if t.driverID == driverID {
			assigned = append(assigned, t)
		}
	}
	c.JSON(http.StatusOK, assigned)
}

func (s *Server) startTrip(c *gin.Context) {
	s.transitionTrip(c, "SCHEDULED", "IN_PROGRESS")
}

func (s *Server) endTrip(c *gin.Context) {
	s.transitionTrip(c, "IN_PROGRESS", "COMPLETED")
}

func (s *Server) transitionTrip(c *gin.Context, from, to string) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tokenClaims, _ := claimsFrom(c)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.trips {
		t := &s.data.trips[i]
		if t.ID != id {
			continue
		}
		if t.driverID != tokenClaims.UserID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Trip is not assigned to you"})
			return
		}
		if t.Status != from {
			c.JSON(http.StatusConflict, gin.H{"error": "Trip is " + t.Status})
			return
		}
		t.Status = to
		c.JSON(http.StatusOK, t)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
}

func (s *Server) bookTicket(c *gin.Context) {
	var req struct {
		TripID int64 `json:"tripId" binding:"required"`
		UserID int64 `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokenClaims, _ := claimsFrom(c)
	if tokenClaims.UserID != req.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	acct, ok := s.findAccountByID(req.UserID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.data.trips {
		if t.ID != req.TripID {
			continue
		}
		s.nextID++
		tk := ticket{
			ID:            s.nextID,
			PassengerName: acct.profile.Name,
			Source:        t.Source,
			Destination:   t.Destination,
			VehicleNo:     t.VehicleNo,
			Date:          t.TripDate,
			BookedAt:      time.Now().UTC().Format(time.RFC3339),
			FareAmount:    t.fare,
			Status:        "BOOKED",
			userID:        req.UserID,
		}
		s.data.tickets = append(s.data.tickets, tk)
		c.JSON(http.StatusCreated, tk)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
}

func (s *Server) ticketHistory(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	tokenClaims, _ := claimsFrom(c)
	if tokenClaims.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := []ticket{}
	for _, tk := range s.data.tickets {
		if tk.userID == userID {
			history = append(history, tk)
		}
	}
	c.JSON(http.StatusOK, history)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}
