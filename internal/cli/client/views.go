package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ListVehicles returns all vehicles
func (c *Client) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	var vehicles []Vehicle
	if err := c.gw.Do(ctx, http.MethodGet, "/vehicles", nil, &vehicles); err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	return vehicles, nil
}

// CreateVehicle adds a vehicle to the fleet
func (c *Client) CreateVehicle(ctx context.Context, v Vehicle) (*Vehicle, error) {
	if err := validate.Struct(v); err != nil {
		return nil, fmt.Errorf("invalid vehicle: %w", err)
	}

	var created Vehicle
	if err := c.gw.Do(ctx, http.MethodPost, "/vehicles", v, &created); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return &created, nil
}

// DeleteVehicle removes a vehicle by ID
func (c *Client) DeleteVehicle(ctx context.Context, id int64) error {
	if err := c.gw.Do(ctx, http.MethodDelete, fmt.Sprintf("/vehicles/%d", id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	return nil
}

// ListDrivers returns all driver accounts
func (c *Client) ListDrivers(ctx context.Context) ([]Driver, error) {
	var drivers []Driver
	if err := c.gw.Do(ctx, http.MethodGet, "/users/drivers", nil, &drivers); err != nil {
		return nil, fmt.Errorf("failed to list drivers: %w", err)
	}
	return drivers, nil
}

// CreateDriver registers a driver account
func (c *Client) CreateDriver(ctx context.Context, req DriverRequest) (*Driver, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid driver: %w", err)
	}

	var created Driver
	if err := c.gw.Do(ctx, http.MethodPost, "/users/register-driver", req, &created); err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}
	return &created, nil
}

// ListRoutes returns all routes
func (c *Client) ListRoutes(ctx context.Context) ([]Route, error) {
	var routes []Route
	if err := c.gw.Do(ctx, http.MethodGet, "/routes", nil, &routes); err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return routes, nil
}

// ListSchedules returns the schedules of one route
func (c *Client) ListSchedules(ctx context.Context, routeID int64) ([]Schedule, error) {
	var schedules []Schedule
	if err := c.gw.Do(ctx, http.MethodGet, fmt.Sprintf("/schedule/%d", routeID), nil, &schedules); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

// ListTrips returns every trip
func (c *Client) ListTrips(ctx context.Context) ([]Trip, error) {
	var trips []Trip
	if err := c.gw.Do(ctx, http.MethodGet, "/trip", nil, &trips); err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, nil
}

// CreateTrip plans a trip
func (c *Client) CreateTrip(ctx context.Context, req TripRequest) (*Trip, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid trip: %w", err)
	}
	if req.IsScheduled {
		if req.ScheduleID == nil || req.RouteID != nil {
			return nil, fmt.Errorf("invalid trip: a scheduled trip needs a schedule and no route")
		}
	} else if req.RouteID == nil || req.ScheduledStart == nil || req.ScheduledEnd == nil {
		return nil, fmt.Errorf("invalid trip: an unscheduled trip needs a route, start and end")
	}

	var created Trip
	if err := c.gw.Do(ctx, http.MethodPost, "/trip", req, &created); err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}
	return &created, nil
}

// MyTrips returns the trips assigned to the logged-in driver
func (c *Client) MyTrips(ctx context.Context) ([]Trip, error) {
	driverID, err := c.currentUserID()
	if err != nil {
		return nil, err
	}

	var trips []Trip
	if err := c.gw.Do(ctx, http.MethodGet, fmt.Sprintf("/trip/driver/%d", driverID), nil, &trips); err != nil {
		return nil, fmt.Errorf("failed to list driver trips: %w", err)
	}
	return trips, nil
}

// StartTrip marks a trip as started
func (c *Client) StartTrip(ctx context.Context, tripID int64) error {
	if err := c.gw.Do(ctx, http.MethodPut, fmt.Sprintf("/trip/%d/start", tripID), nil, nil); err != nil {
		return fmt.Errorf("failed to start trip: %w", err)
	}
	return nil
}

// EndTrip marks a trip as completed
func (c *Client) EndTrip(ctx context.Context, tripID int64) error {
	if err := c.gw.Do(ctx, http.MethodPut, fmt.Sprintf("/trip/%d/end", tripID), nil, nil); err != nil {
		return fmt.Errorf("failed to end trip: %w", err)
	}
	return nil
}

// SearchTrips finds trips between two stops on a date
func (c *Client) SearchTrips(ctx context.Context, search TripSearch) ([]Trip, error) {
	if err := validate.Struct(search); err != nil {
		return nil, fmt.Errorf("invalid search: %w", err)
	}

	query := url.Values{}
	query.Set("source", search.Source)
	query.Set("destination", search.Destination)
	query.Set("date", search.Date)

	var trips []Trip
	if err := c.gw.Do(ctx, http.MethodGet, "/trip/search?"+query.Encode(), nil, &trips); err != nil {
		return nil, fmt.Errorf("failed to search trips: %w", err)
	}
	return trips, nil
}

// BookTrip books a seat on a trip for the logged-in passenger
func (c *Client) BookTrip(ctx context.Context, tripID int64) (*Ticket, error) {
	userID, err := c.currentUserID()
	if err != nil {
		return nil, err
	}

	var ticket Ticket
	req := BookingRequest{TripID: tripID, UserID: userID}
	if err := c.gw.Do(ctx, http.MethodPost, "/ticket/book", req, &ticket); err != nil {
		return nil, fmt.Errorf("failed to book trip: %w", err)
	}
	return &ticket, nil
}

// MyBookings returns the logged-in passenger's ticket history
func (c *Client) MyBookings(ctx context.Context) ([]Ticket, error) {
	userID, err := c.currentUserID()
	if err != nil {
		return nil, err
	}

	var tickets []Ticket
	if err := c.gw.Do(ctx, http.MethodGet, fmt.Sprintf("/ticket/history/%d", userID), nil, &tickets); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return tickets, nil
}
