package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/log"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	// v holds every configuration source once flags are parsed
	v = config.New()

	// cfg is decoded by setup before any command runs
	cfg *config.Config
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "burrow",
	Short: "Burrow - Declarative stacks for a single container host",
	Long: `Burrow reconciles a declared stack of services, volumes and networks
against a local container runtime (Docker or containerd).

Services start in dependency order, wait for their health checks, and every
run is recorded so it can be inspected later.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.SetVersionTemplate(versionText())

	flags := rootCmd.PersistentFlags()
	flags.StringP(config.KeyFile, "f", "", "Native stack file")
	flags.StringSlice(config.KeyCompose, nil, "Compose file (repeatable)")
	flags.String(config.KeyEnvFile, "", "Dotenv file used for ${VAR} interpolation")
	flags.String(config.KeyStackName, "", "Override the stack name")
	flags.String(config.KeyEngine, config.EngineDocker, "Container engine (docker or containerd)")
	flags.String(config.KeyContainerdSocket, "/run/containerd/containerd.sock", "containerd socket path")
	flags.String(config.KeyContainerdNamespace, "burrow", "containerd namespace")
	flags.String(config.KeyDataDir, config.DefaultDataDir(), "Directory for run history and engine state")
	flags.Duration(config.KeyLockTimeout, storage.DefaultLockTimeout, "How long to wait for another run to release the data directory")
	flags.String(config.KeyLogLevel, string(log.InfoLevel), "Log level (debug, info, warn, error)")
	flags.Bool(config.KeyLogJSON, false, "Log as JSON")
	flags.String(config.KeyMetricsFile, "", "Write Prometheus metrics to this textfile after each run")
	flags.Bool(config.KeyNoColor, false, "Disable colored report output")
	flags.String("config", "", "Config file (default $XDG_CONFIG_HOME/burrow/config.yaml)")

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup binds the parsed flags and initializes logging
func setup(cmd *cobra.Command, _ []string) error {
	if err := config.BindFlags(v, cmd.Flags(), cmd.InheritedFlags()); err != nil {
		return err
	}
	loaded, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}
	cfg = loaded
	log.Init(cfg.LogConfig())
	return nil
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	return config.Load(v, configFile)
}

func versionText() string {
	return fmt.Sprintf("Burrow version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fmt.Fprint(cmd.OutOrStdout(), versionText())
		return nil
	},
}
