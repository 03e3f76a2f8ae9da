package commands

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/transitdesk/transitdesk/internal/cli/client"
	"github.com/transitdesk/transitdesk/internal/cli/prompt"
	"github.com/transitdesk/transitdesk/internal/guard"
)

// NewVehiclesCmd creates the vehicles command group
func NewVehiclesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicles",
		Short: "Manage the vehicle fleet",
	}

	cmd.AddCommand(guarded(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all vehicles",
		RunE: func(cmd *cobra.Command, args []string) error {
			vehicles, err := app.Client.ListVehicles(cmd.Context())
			if err != nil {
				return err
			}

			if len(vehicles) == 0 {
				fmt.Fprintln(app.Out, "No vehicles found.")
				fmt.Fprintln(app.Out, "\nAdd one with: transitdesk vehicles add --number <no> --type <type> --capacity <n>")
				return nil
			}

			w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNUMBER\tTYPE\tCAPACITY\tSTATUS")
			fmt.Fprintln(w, "──\t──────\t────\t────────\t──────")
			for _, v := range vehicles {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", v.ID, v.VehicleNo, v.VehicleType, v.Capacity, v.VehicleStatus)
			}
			return w.Flush()
		},
	}, guard.AdminVehiclesPath))

	var vehicle client.Vehicle
	addCmd := guarded(&cobra.Command{
		Use:   "add",
		Short: "Add a vehicle",
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := app.Client.CreateVehicle(cmd.Context(), vehicle)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "✓ Vehicle %s added (id %d)\n", created.VehicleNo, created.ID)
			return nil
		},
	}, guard.AdminVehiclesPath)
	addCmd.Flags().StringVar(&vehicle.VehicleNo, "number", "", "Vehicle number")
	addCmd.Flags().StringVar(&vehicle.VehicleType, "type", "", "Vehicle type (e.g. BUS, VAN)")
	addCmd.Flags().IntVar(&vehicle.Capacity, "capacity", 0, "Seat capacity")
	addCmd.Flags().StringVar(&vehicle.VehicleStatus, "status", "ACTIVE", "Vehicle status")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(guarded(&cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Remove a vehicle",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Client.DeleteVehicle(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "✓ Vehicle %d removed\n", id)
			return nil
		},
	}, guard.AdminVehiclesPath))

	return cmd
}

// NewDriversCmd creates the drivers command group
func NewDriversCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "Manage driver accounts",
	}

	cmd.AddCommand(guarded(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all drivers",
		RunE: func(cmd *cobra.Command, args []string) error {
			drivers, err := app.Client.ListDrivers(cmd.Context())
			if err != nil {
				return err
			}

			if len(drivers) == 0 {
				fmt.Fprintln(app.Out, "No drivers found.")
				return nil
			}

			w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE")
			fmt.Fprintln(w, "──\t────\t─────\t─────")
			for _, d := range drivers {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.ID, d.Name, d.Email, d.Phone)
			}
			return w.Flush()
		},
	}, guard.AdminDriversPath))

	var req client.DriverRequest
	addCmd := guarded(&cobra.Command{
		Use:   "add",
		Short: "Register a driver account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				value, err := prompt.Password(app.Out, "Driver password")
				if errors.Is(err, prompt.ErrNonInteractive) {
					return fmt.Errorf("--password is required in non-interactive mode")
				}
				if err != nil {
					return err
				}
				req.Password = value
			}

			created, err := app.Client.CreateDriver(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "✓ Driver %s added (id %d)\n", created.Email, created.ID)
			return nil
		},
	}, guard.AdminDriversPath)
	addCmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	addCmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	addCmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number")
	addCmd.Flags().StringVar(&req.Password, "password", "", "Initial password (will prompt if not provided)")
	cmd.AddCommand(addCmd)

	return cmd
}

// NewRoutesCmd creates the routes command group
func NewRoutesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Show transport routes",
	}

	cmd.AddCommand(guarded(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List all routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			routes, err := app.Client.ListRoutes(cmd.Context())
			if err != nil {
				return err
			}

			if len(routes) == 0 {
				fmt.Fprintln(app.Out, "No routes found.")
				return nil
			}

			w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tFROM\tTO\tMODE\tACTIVE")
			fmt.Fprintln(w, "──\t────\t────\t──\t────\t──────")
			for _, r := range routes {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\n", r.ID, r.Name, r.Source, r.Destination, r.TransportMode, r.Active)
			}
			return w.Flush()
		},
	}, guard.AdminRoutesPath))

	return cmd
}

// NewSchedulesCmd creates the schedules command group
func NewSchedulesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedules",
		Short: "Show route schedules",
	}

	var routeID int64
	lsCmd := guarded(&cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List the schedules of a route",
		RunE: func(cmd *cobra.Command, args []string) error {
			if routeID <= 0 {
				return fmt.Errorf("--route is required")
			}

			schedules, err := app.Client.ListSchedules(cmd.Context(), routeID)
			if err != nil {
				return err
			}

			if len(schedules) == 0 {
				fmt.Fprintf(app.Out, "No schedules found for route %d.\n", routeID)
				return nil
			}

			w := tabwriter.NewWriter(app.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tROUTE\tDAY\tDEPARTS\tARRIVES")
			fmt.Fprintln(w, "──\t─────\t───\t───────\t───────")
			for _, s := range schedules {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.RouteName, s.DayOfWeek, s.DepartureTime, s.ArrivalTime)
			}
			return w.Flush()
		},
	}, guard.AdminSchedulesPath)
	lsCmd.Flags().Int64Var(&routeID, "route", 0, "Route ID")
	cmd.AddCommand(lsCmd)

	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id '%s'", raw)
	}
	return id, nil
}
