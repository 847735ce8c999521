package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/engine"
	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/runner"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Create or replace the stack's resources",
	Long: `Create the stack's volumes and networks, then start every service in
dependency order, replacing containers that already exist.

Examples:
  # Start the whole stack
  burrow up -f stack.yaml

  # Preview what up would do against the live runtime
  burrow up -f stack.yaml --dry-run --live-check

  # Start only db and api; services that are not named are not started
  burrow up --compose docker-compose.yml --service db --service api`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStack(cmd, runner.CommandUp)
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Remove the stack's containers",
	Long: `Remove the stack's containers in reverse dependency order.
Volumes and networks are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStack(cmd, runner.CommandDown)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Audit the stack and print its report",
	Long: `Audit the stack definition and print the standard report without
changing anything. With --live-check the report includes what exists in the
runtime right now.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStack(cmd, runner.CommandCheck)
	},
}

// serviceUsage describes --service for up and down. Dependencies of a named
// service are validated but never acted on.
const serviceUsage = "Only act on this service (repeatable); its dependencies must already be running"

func init() {
	for _, cmd := range []*cobra.Command{upCmd, downCmd} {
		cmd.Flags().StringSlice(config.KeyService, nil, serviceUsage)
		cmd.Flags().Bool(config.KeyDryRun, false, "Do not change anything, print the report instead")
		cmd.Flags().Bool(config.KeyLiveCheck, false, "With --dry-run, query the runtime for the current state")
	}
	checkCmd.Flags().StringSlice(config.KeyService, nil, "Only report this service (repeatable); its dependencies are checked but not reported")
	checkCmd.Flags().Bool(config.KeyLiveCheck, false, "Query the runtime for the current state")
}

func runStack(cmd *cobra.Command, command runner.Command) error {
	if command == runner.CommandCheck {
		cfg.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	stack, err := runner.LoadStack(cfg)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.DataDir, cfg.LockTimeout)
	if err != nil {
		if errors.Is(err, storage.ErrLocked) {
			return fmt.Errorf("another burrow run is in progress: %w", err)
		}
		return err
	}
	defer store.Close()

	broker := events.NewBroker()
	broker.Start()
	done := make(chan struct{})
	if !cfg.DryRun {
		go printProgress(os.Stderr, broker.Subscribe(), !cfg.NoColor, done)
	} else {
		close(done)
	}

	result, err := runner.Run(cmd.Context(), runner.Options{
		Command: command,
		Stack:   stack,
		Config:  cfg,
		Store:   store,
		Broker:  broker,
		Out:     cmd.OutOrStdout(),
	})
	broker.Stop()
	<-done

	if result != nil && len(result.Orphans) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d container(s) labeled with stack %s are not declared: %v\n",
			len(result.Orphans), stack.Name, result.Orphans)
	}
	if err != nil {
		var downErr *engine.DownError
		if errors.As(err, &downErr) {
			return fmt.Errorf("failed to remove %d container(s): %w", len(downErr.Failures), err)
		}
		return err
	}
	if result != nil && !cfg.DryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s %s completed (run %s)\n", stack.Name, command, shortID(result.RunID))
	}
	return nil
}

// printProgress writes one line per mutation until sub is closed
func printProgress(w io.Writer, sub events.Subscriber, useColor bool, done chan<- struct{}) {
	defer close(done)

	action := color.New(color.FgGreen)
	if useColor {
		action.EnableColor()
	} else {
		action.DisableColor()
	}

	for e := range sub {
		if e.Action == events.ActionExistsCheck {
			continue
		}
		fmt.Fprintf(w, "  %s %s %s\n", action.Sprint(string(e.Action)), e.Kind, e.Resource)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
