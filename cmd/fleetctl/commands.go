package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/client"
)

func sessionFor(cmd *cobra.Command, assumeYes bool) sessionIO {
	return sessionIO{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), in: cmd.InOrStdin(), assumeYes: assumeYes}
}

func newCalendarCmd(opts *rootOptions) *cobra.Command {
	var (
		vehicleID uint
		view      string
		date      string
		tab       string
		allHours  bool
	)
	c := &cobra.Command{
		Use:   "calendar",
		Short: "Show the merged maintenance and assignment calendar of a vehicle",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cat calendar.Category
			if tab != "" && tab != "all" {
				var err error
				if cat, err = calendar.ParseCategory(tab); err != nil {
					return err
				}
			}
			s, err := newSession(cmd.Context(), opts, vehicleID, sessionFor(cmd, false))
			if err != nil {
				return err
			}
			loc := s.cfg.Location
			day, err := parseDay(date, loc)
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
			}

			events := calendar.FilterByCategory(s.engine.Events(), cat)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", s.machine.Vehicle().Name, s.machine.Vehicle().PlateNumber)

			switch view {
			case "day":
				printDay(out, calendar.DayView(events, day, loc), allHours, loc)
			case "week":
				for _, col := range calendar.WeekView(events, day, s.cfg.WeekStart, loc) {
					fmt.Fprintln(out, col.Date)
					for _, ev := range col.Events {
						printEvent(out, "  ", ev, loc)
					}
				}
			case "all":
				for _, ev := range events {
					printEvent(out, "", ev, loc)
				}
			default:
				return fmt.Errorf("invalid --view %q", view)
			}
			return nil
		},
	}
	c.Flags().UintVar(&vehicleID, "vehicle", 0, "vehicle id")
	c.Flags().StringVar(&view, "view", "day", "day, week or all")
	c.Flags().StringVar(&date, "date", "", "day to show, YYYY-MM-DD (default today)")
	c.Flags().StringVar(&tab, "tab", "all", "all, maintenance, assignment or blackout")
	c.Flags().BoolVar(&allHours, "all-hours", false, "list empty hours in the day view")
	return c
}

func printDay(out io.Writer, slots []calendar.HourSlot, allHours bool, loc *time.Location) {
	for _, slot := range slots {
		if slot.Empty() {
			if allHours {
				fmt.Fprintln(out, slot.Label)
			}
			continue
		}
		for _, ev := range slot.Events {
			printEvent(out, slot.Label+"  ", ev, loc)
		}
	}
}

func printEvent(out io.Writer, prefix string, ev calendar.Event, loc *time.Location) {
	end := ev.End.In(loc).Format("2006-01-02 15:04")
	if ev.EndUnknown {
		end = "unknown end"
	}
	fmt.Fprintf(out, "%s%s  %s -> %s  [%s #%d]\n", prefix, ev.Title,
		ev.Start.In(loc).Format("2006-01-02 15:04"), end, ev.Category, ev.SourceID)
}

func newDriversCmd(opts *rootOptions) *cobra.Command {
	var (
		page     int
		pageSize int
		search   string
	)
	c := &cobra.Command{
		Use:   "drivers",
		Short: "List drivers",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, api, err := newAPI(opts)
			if err != nil {
				return err
			}
			res, err := api.ListDrivers(cmd.Context(), page, pageSize, search)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE")
			for _, d := range res.Data {
				fmt.Fprintf(tw, "%d\t%s %s\t%s\t%s\n", d.ID, d.FirstName, d.LastName, d.Email, d.Phone)
			}
			tw.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "page %d, %d drivers total\n", res.Page, res.Total)
			return nil
		},
	}
	c.Flags().IntVar(&page, "page", 1, "page number")
	c.Flags().IntVar(&pageSize, "page-size", 10, "rows per page")
	c.Flags().StringVar(&search, "search", "", "filter by name or email")
	return c
}

type slotFlags struct {
	start string
	end   string
	date  string
	hour  int
}

func (f *slotFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.start, "start", "", "slot start, e.g. 2025-06-02T09:00")
	c.Flags().StringVar(&f.end, "end", "", "slot end")
	c.Flags().StringVar(&f.date, "date", "", "day for --hour, YYYY-MM-DD (default today)")
	c.Flags().IntVar(&f.hour, "hour", -1, "pick a one-hour slot at this hour instead of --start/--end")
}

func (f *slotFlags) resolve(loc *time.Location) (calendar.Range, time.Time, error) {
	if f.hour >= 0 {
		day, err := parseDay(f.date, loc)
		if err != nil {
			return calendar.Range{}, day, fmt.Errorf("invalid --date (want YYYY-MM-DD)")
		}
		return calendar.Range{}, day, nil
	}
	start, err := parseLocal(f.start, loc)
	if err != nil {
		return calendar.Range{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := parseLocal(f.end, loc)
	if err != nil {
		return calendar.Range{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
	}
	return calendar.Range{Start: start, End: end}, start, nil
}

func newAssignCmd(opts *rootOptions) *cobra.Command {
	var (
		vehicleID uint
		driverID  uint
		slot      slotFlags
	)
	c := &cobra.Command{
		Use:   "assign",
		Short: "Assign a driver to a vehicle for a time slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, opts, vehicleID, sessionFor(cmd, false))
			if err != nil {
				return err
			}
			r, day, err := slot.resolve(s.cfg.Location)
			if err != nil {
				return err
			}
			if err := s.startSlot(r, day, slot.hour); err != nil {
				return err
			}
			if err := s.machine.ChooseType(ctx, calendar.CategoryAssignment); err != nil {
				return err
			}

			if driverID == 0 {
				p := s.machine.Pending().Range
				sugg, err := s.api.DriverSuggestions(ctx, vehicleID, p.Start, p.End)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Available drivers:")
				for _, d := range sugg.Drivers {
					fmt.Fprintf(out, "  %d  %s  (%.1fh this week)\n", d.DriverID, d.Name, d.AssignedHours)
				}
				for _, reason := range sugg.Reasons {
					fmt.Fprintln(out, "  "+reason)
				}
				return errors.New("choose a driver with --driver")
			}

			if err := s.machine.SelectDriver(driverID); err != nil {
				return err
			}
			if err := s.machine.Submit(ctx); err != nil {
				if client.IsConflict(err) {
					return errors.New("the driver or vehicle is already booked in this slot")
				}
				return err
			}
			return nil
		},
	}
	c.Flags().UintVar(&vehicleID, "vehicle", 0, "vehicle id")
	c.Flags().UintVar(&driverID, "driver", 0, "driver id (omit to list suggestions)")
	slot.register(c)
	return c
}

func newMaintenanceCmd(opts *rootOptions) *cobra.Command {
	var (
		vehicleID     uint
		serviceTypeID uint
		notes         string
		slot          slotFlags
	)
	c := &cobra.Command{
		Use:   "maintenance",
		Short: "Schedule a maintenance window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, opts, vehicleID, sessionFor(cmd, false))
			if err != nil {
				return err
			}
			if serviceTypeID == 0 {
				types, err := s.api.ListServiceTypes(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Service types:")
				for _, st := range types {
					fmt.Fprintf(cmd.OutOrStdout(), "  %d  %s\n", st.ID, st.Name)
				}
				return errors.New("choose a service type with --service-type")
			}

			r, day, err := slot.resolve(s.cfg.Location)
			if err != nil {
				return err
			}
			if err := s.startSlot(r, day, slot.hour); err != nil {
				return err
			}
			s.dialog.serviceTypeID = serviceTypeID
			s.dialog.notes = notes
			if err := s.machine.ChooseType(ctx, calendar.CategoryMaintenance); err != nil {
				return err
			}
			return s.dialog.err
		},
	}
	c.Flags().UintVar(&vehicleID, "vehicle", 0, "vehicle id")
	c.Flags().UintVar(&serviceTypeID, "service-type", 0, "service type id (omit to list them)")
	c.Flags().StringVar(&notes, "notes", "", "notes for the workshop")
	slot.register(c)
	return c
}

func newCancelCmd(opts *rootOptions) *cobra.Command {
	var (
		vehicleID    uint
		assignmentID uint
		yes          bool
	)
	c := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a driver assignment",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := newSession(ctx, opts, vehicleID, sessionFor(cmd, yes))
			if err != nil {
				return err
			}
			ev, ok := calendar.Find(s.engine.Events(), calendar.Key{Category: calendar.CategoryAssignment, SourceID: assignmentID})
			if !ok {
				return fmt.Errorf("assignment %d is not on the calendar of vehicle %d", assignmentID, vehicleID)
			}
			if err := s.machine.ClickEvent(ev); err != nil {
				return err
			}
			printEvent(cmd.OutOrStdout(), "", ev, s.cfg.Location)
			return s.machine.CancelAssignment(ctx)
		},
	}
	c.Flags().UintVar(&vehicleID, "vehicle", 0, "vehicle id")
	c.Flags().UintVar(&assignmentID, "assignment", 0, "assignment id")
	c.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return c
}

func newICSCmd(opts *rootOptions) *cobra.Command {
	var (
		vehicleID uint
		outPath   string
	)
	c := &cobra.Command{
		Use:   "ics",
		Short: "Export the calendar of a vehicle as iCalendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			if vehicleID == 0 {
				return errors.New("--vehicle is required")
			}
			_, api, err := newAPI(opts)
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				return api.DownloadICS(cmd.Context(), vehicleID, cmd.OutOrStdout())
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := api.DownloadICS(cmd.Context(), vehicleID, f); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "wrote "+outPath+" for vehicle "+strconv.FormatUint(uint64(vehicleID), 10))
			return nil
		},
	}
	c.Flags().UintVar(&vehicleID, "vehicle", 0, "vehicle id")
	c.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return c
}
