package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/cuemby/burrow/pkg/engine"
	"github.com/cuemby/burrow/pkg/runner"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long: `List the runs recorded in the data directory, newest first.
When a stack source is given only that stack's runs are listed.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN_ID",
	Short: "Show one recorded run and its events",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old run records",
	Long: `Keep the newest runs of each stack and delete the rest. The database is
backed up first unless --dry-run is set.

Examples:
  # See what would be deleted
  burrow history prune --keep 10 --dry-run

  # Keep the last 10 runs of one stack
  burrow history prune -f stack.yaml --keep 10`,
	Args: cobra.NoArgs,
	RunE: runHistoryPrune,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 for all)")
	historyShowCmd.Flags().StringP("output", "o", "text", "Output format (text or yaml)")
	historyPruneCmd.Flags().Int("keep", 20, "Runs to keep per stack")
	historyPruneCmd.Flags().Bool("dry-run", false, "Show what would be deleted without deleting")
	historyPruneCmd.Flags().String("backup", "", "Backup path (default: <data-dir>/burrow.db.backup)")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

// stackFilter returns the configured stack's name, or "" when no stack
// source is set
func stackFilter() (string, error) {
	if cfg.StackFile == "" && len(cfg.ComposeFiles) == 0 {
		return "", nil
	}
	stack, err := runner.LoadStack(cfg)
	if err != nil {
		return "", err
	}
	return stack.Name, nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	stackName, err := stackFilter()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.DataDir, cfg.LockTimeout)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(stackName, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTACK\tCOMMAND\tMODE\tSTARTED\tDURATION\tOUTCOME")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(run.ID),
			run.Stack,
			run.Command,
			runMode(run),
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration().Round(time.Millisecond),
			run.Outcome,
		)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	store, err := storage.Open(cfg.DataDir, cfg.LockTimeout)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch output {
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(run); err != nil {
			return err
		}
		return enc.Close()
	case "text":
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Stack:    %s\n", run.Stack)
	fmt.Fprintf(out, "Command:  %s (%s)\n", run.Command, runMode(run))
	if len(run.Services) > 0 {
		fmt.Fprintf(out, "Services: %v\n", run.Services)
	}
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "Duration: %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "Outcome:  %s\n", run.Outcome)
	if run.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.Error)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Events:")
	for _, e := range run.Events {
		fmt.Fprintf(out, "  %3d. %s\n", e.Seq, e)
	}
	return nil
}

func runMode(run *storage.Run) string {
	return engine.ModeFor(run.DryRun, run.LiveCheck).String()
}

func runHistoryPrune(cmd *cobra.Command, _ []string) error {
	keep, _ := cmd.Flags().GetInt("keep")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	backupPath, _ := cmd.Flags().GetString("backup")

	stackName, err := stackFilter()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.DataDir, cfg.LockTimeout)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if !dryRun {
		if backupPath == "" {
			backupPath = store.Path() + ".backup"
		}
		if err := store.Backup(backupPath); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		fmt.Fprintf(out, "✓ Backup created: %s\n", backupPath)
	}

	pruned, err := store.PruneRuns(stackName, keep, dryRun)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintf(out, "[DRY RUN] Would delete %d run(s)\n", len(pruned))
		for _, id := range pruned {
			fmt.Fprintf(out, "  %s\n", shortID(id))
		}
		return nil
	}
	fmt.Fprintf(out, "✓ Deleted %d run(s)\n", len(pruned))
	return nil
}
