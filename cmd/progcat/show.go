package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pevans/progcat/catalog"
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	var format, category string

	cmd := &cobra.Command{
		Use:   "show [snapshot-id | file]",
		Short: "Print a catalog",
		Long: `Print a catalog snapshot. With no argument the latest snapshot is shown;
an argument is a snapshot ID or the path of a saved catalog file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ref string
			if len(args) > 0 {
				ref = args[0]
			}

			c, err := a.loadCatalog(ref)
			if err != nil {
				return err
			}

			if category != "" {
				cat := c.Category(category)
				if cat == nil {
					return fmt.Errorf("category not found: %s", category)
				}
				c = &catalog.Catalog{ID: c.ID, SavedAt: c.SavedAt, Categories: []catalog.Category{*cat}}
			}

			out := cmd.OutOrStdout()
			switch format {
			case "table":
				printCatalogTable(out, c)
			case "json":
				return printCatalogJSON(out, c)
			case "compact":
				printCatalogCompact(out, c)
			default:
				return fmt.Errorf("--format must be table, json, or compact")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json, compact")
	cmd.Flags().StringVar(&category, "category", "", "Only show this category")

	return cmd
}

// loadCatalog resolves ref to a catalog: "" is the latest snapshot, a UUID
// a stored snapshot, anything else a file path.
func (a *app) loadCatalog(ref string) (*catalog.Catalog, error) {
	if ref != "" {
		if _, err := uuid.Parse(ref); err != nil {
			return catalog.Load(ref)
		}
	}

	store, err := catalog.NewStore(a.settings.SnapshotDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	if ref == "" {
		return store.Latest()
	}

	c, err := store.Get(uuid.MustParse(ref))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("snapshot not found: %s", ref)
	}
	return c, nil
}
