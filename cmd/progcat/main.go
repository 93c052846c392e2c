package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pevans/progcat/config"
	"github.com/spf13/cobra"
)

// app carries state shared by all subcommands.
type app struct {
	settings *config.Settings
	logLevel string
}

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "progcat",
		Short: "progcat - Programme catalog crawler",
		Long: `progcat crawls category listing pages of an on-demand video site and
builds an indexed catalog of the programmes they list.

Environment Variables:
  PROGCAT_CONFIG        Path to the config file (default: ~/.progcat/config.yaml)
  PROGCAT_SNAPSHOT_DIR  Catalog snapshot directory (default: .catalogs)
  PROGCAT_RUNS_DB       Path to the run history database (default: runs.db)
  PROGCAT_WORKERS       Concurrent fetch workers
  PROGCAT_LOG_LEVEL     debug, info, warn or error (default: info)`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newInitCmd(a),
		newCrawlCmd(a),
		newShowCmd(a),
		newRunsCmd(a),
		newServeCmd(a),
	)

	return root
}

// setup resolves settings and installs the logger before any subcommand
// runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		settings.LogLevel = a.logLevel
	}

	level, err := config.ParseLogLevel(settings.LogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

	a.settings = settings
	return nil
}
