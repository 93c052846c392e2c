package main

import (
	"fmt"
	"os"

	"github.com/pevans/progcat/catalog"
	"github.com/pevans/progcat/config"
	"github.com/pevans/progcat/runs"
	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the config file and storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Initializing progcat storage...")
			fmt.Fprintln(out)

			initSucceeded := true

			created, err := config.WriteDefaultConfigFile(force)
			path, _ := config.Path()
			switch {
			case err != nil:
				fmt.Fprintf(out, "  ✗ Failed to create config file: %v\n", err)
				initSucceeded = false
			case created:
				fmt.Fprintf(out, "  ✓ Created config file: %s\n", path)
			default:
				fmt.Fprintf(out, "  - Config file already exists: %s\n", path)
			}

			if _, err := os.Stat(a.settings.SnapshotDir); err == nil {
				fmt.Fprintf(out, "  - Snapshot directory already exists: %s\n", a.settings.SnapshotDir)
			} else if _, err := catalog.NewStore(a.settings.SnapshotDir); err != nil {
				fmt.Fprintf(out, "  ✗ Failed to create snapshot directory: %v\n", err)
				initSucceeded = false
			} else {
				fmt.Fprintf(out, "  ✓ Created snapshot directory: %s\n", a.settings.SnapshotDir)
			}

			if history, err := runs.NewRunStore(a.settings.RunsDB); err != nil {
				fmt.Fprintf(out, "  ✗ Failed to initialize run history: %v\n", err)
				initSucceeded = false
			} else {
				history.Close()
				fmt.Fprintf(out, "  ✓ Run history ready: %s\n", a.settings.RunsDB)
			}

			fmt.Fprintln(out)
			if !initSucceeded {
				return fmt.Errorf("initialization failed")
			}
			fmt.Fprintln(out, "Initialization complete.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
