package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/transitdesk/transitdesk/internal/cli/client"
	"github.com/transitdesk/transitdesk/internal/guard"
)

// NewTripsCmd creates the trips command group. Each subcommand opens a
// different role's view.
func NewTripsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Show and operate trips",
	}

	cmd.AddCommand(guarded(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all trips",
		RunE: func(cmd *cobra.Command, args []string) error {
			trips, err := app.Client.ListTrips(cmd.Context())
			if err != nil {
				return err
			}
			return printTrips(app.Out, trips)
		},
	}, guard.AdminTripsPath))

	cmd.AddCommand(newTripsAddCmd(app))

	cmd.AddCommand(guarded(&cobra.Command{
		Use:   "mine",
		Short: "List the trips assigned to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			trips, err := app.Client.MyTrips(cmd.Context())
			if err != nil {
				return err
			}
			return printTrips(app.Out, trips)
		},
	}, guard.DriverTripsPath))

	cmd.AddCommand(guarded(&cobra.Command{
		Use:   "start <id>",
		Short: "Mark a trip as started",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Client.StartTrip(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "✓ Trip %d started\n", id)
			return nil
		},
	}, guard.DriverTripActionsPath))

	cmd.AddCommand(guarded(&cobra.Command{
		Use:   "end <id>",
		Short: "Mark a trip as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Client.EndTrip(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "✓ Trip %d completed\n", id)
			return nil
		},
	}, guard.DriverTripActionsPath))

	var search client.TripSearch
	searchCmd := guarded(&cobra.Command{
		Use:   "search",
		Short: "Find trips between two stops on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			trips, err := app.Client.SearchTrips(cmd.Context(), search)
			if err != nil {
				return err
			}
			if len(trips) == 0 {
				fmt.Fprintf(app.Out, "No trips from %s to %s on %s.\n", search.Source, search.Destination, search.Date)
				return nil
			}
			if err := printTrips(app.Out, trips); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "\nBook a seat with: transitdesk book <trip-id>")
			return nil
		},
	}, guard.PassengerSearchPath)
	searchCmd.Flags().StringVar(&search.Source, "from", "", "Departure stop")
	searchCmd.Flags().StringVar(&search.Destination, "to", "", "Arrival stop")
	searchCmd.Flags().StringVar(&search.Date, "date", "", "Travel date (YYYY-MM-DD)")
	cmd.AddCommand(searchCmd)

	return cmd
}

// NewBookCmd creates the book command
func NewBookCmd(app *App) *cobra.Command {
	return guarded(&cobra.Command{
		Use:   "book <trip-id>",
		Short: "Book a seat on a trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tripID, err := parseID(args[0])
			if err != nil {
				return err
			}

			ticket, err := app.Client.BookTrip(cmd.Context(), tripID)
			if err != nil {
				return err
			}

			fmt.Fprintln(app.Out, "✓ Seat booked!")
			fmt.Fprintf(app.Out, "  Ticket: %d\n", ticket.ID)
			fmt.Fprintf(app.Out, "  Trip:   %s -> %s on %s\n", ticket.Source, ticket.Destination, ticket.Date)
			fmt.Fprintf(app.Out, "  Fare:   %.2f\n", ticket.FareAmount)
			return nil
		},
	}, guard.PassengerSearchPath)
}

// NewBookingsCmd creates the bookings command
func NewBookingsCmd(app *App) *cobra.Command {
	return guarded(&cobra.Command{
		Use:   "bookings",
		Short: "List your booked tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			tickets, err := app.Client.MyBookings(cmd.Context())
			if err != nil {
				return err
			}

			if len(tickets) == 0 {
				fmt.Fprintln(app.Out, "No bookings yet.")
				fmt.Fprintln(app.Out, "\nFind a trip with: transitdesk trips search --from <stop> --to <stop> --date <YYYY-MM-DD>")
				return nil
			}

			w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TICKET\tFROM\tTO\tDATE\tVEHICLE\tFARE\tSTATUS")
			fmt.Fprintln(w, "──────\t────\t──\t────\t───────\t────\t──────")
			for _, t := range tickets {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
					t.ID, t.Source, t.Destination, t.Date, t.VehicleNo, t.FareAmount, t.Status)
			}
			return w.Flush()
		},
	}, guard.PassengerBookingsPath)
}

func newTripsAddCmd(app *App) *cobra.Command {
	var (
		req                 client.TripRequest
		scheduleID, routeID int64
		start, end          string
	)

	cmd := guarded(&cobra.Command{
		Use:   "add",
		Short: "Plan a trip",
		Long: `Plan a trip for a vehicle and driver on a date.

Either reference a schedule, which supplies the route and times:

  transitdesk trips add --vehicle 20 --driver 2 --date 2026-03-09 --schedule 41

or name a route with explicit times:

  transitdesk trips add --vehicle 20 --driver 2 --date 2026-03-09 --route 10 --start 10:00 --end 10:40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("schedule") {
				if flags.Changed("route") || flags.Changed("start") || flags.Changed("end") {
					return fmt.Errorf("--schedule cannot be combined with --route, --start or --end")
				}
				req.IsScheduled = true
				req.ScheduleID = &scheduleID
			} else {
				if !flags.Changed("route") || !flags.Changed("start") || !flags.Changed("end") {
					return fmt.Errorf("either --schedule or all of --route, --start and --end are required")
				}
				req.RouteID = &routeID
				req.ScheduledStart = &start
				req.ScheduledEnd = &end
			}

			created, err := app.Client.CreateTrip(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "✓ Trip %d planned: %s on %s %s-%s\n",
				created.ID, created.RouteName, created.TripDate, created.ScheduledStart, created.ScheduledEnd)
			return nil
		},
	}, guard.AdminTripsPath)

	cmd.Flags().Int64Var(&req.VehicleID, "vehicle", 0, "Vehicle ID")
	cmd.Flags().Int64Var(&req.DriverID, "driver", 0, "Driver ID")
	cmd.Flags().StringVar(&req.TripDate, "date", "", "Trip date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&scheduleID, "schedule", 0, "Schedule ID")
	cmd.Flags().Int64Var(&routeID, "route", 0, "Route ID")
	cmd.Flags().StringVar(&start, "start", "", "Departure time (HH:MM)")
	cmd.Flags().StringVar(&end, "end", "", "Arrival time (HH:MM)")

	return cmd
}

func printTrips(out io.Writer, trips []client.Trip) error {
	if len(trips) == 0 {
		fmt.Fprintln(out, "No trips found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROUTE\tDATE\tDEPARTS\tVEHICLE\tDRIVER\tSTATUS")
	fmt.Fprintln(w, "──\t─────\t────\t───────\t───────\t──────\t──────")
	for _, t := range trips {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.RouteName, t.TripDate, t.ScheduledStart, t.VehicleNo, t.DriverName, t.Status)
	}
	return w.Flush()
}
