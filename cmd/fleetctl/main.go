package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/config"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/logging"
)

type rootOptions struct {
	apiURL   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Console for the fleet scheduling calendar",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetLevel(logging.ParseLevel(opts.logLevel))
		},
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api", "", "API base URL (default $FLEET_API_URL)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "error", "debug, info or error")

	root.AddCommand(newCalendarCmd(opts))
	root.AddCommand(newDriversCmd(opts))
	root.AddCommand(newAssignCmd(opts))
	root.AddCommand(newMaintenanceCmd(opts))
	root.AddCommand(newCancelCmd(opts))
	root.AddCommand(newICSCmd(opts))
	return root
}

func main() {
	config.LoadDotEnv()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}
