package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuelradar/internal/geo"
)

func importCmd() *cobra.Command {
	var bounds geo.Bounds

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Run a one-time ghost station import",
		Long:  "Queries the map-data provider for fuel stations in a bounding box and prints the resulting ghost stations as JSON. Useful for testing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			if err := bounds.Validate(); err != nil {
				return fmt.Errorf("invalid bounds: %w", err)
			}

			logger.Info().
				Str("bounds", bounds.Key()).
				Str("overpassURL", cfg.Provider.URL).
				Msg("running one-time import")

			ctx := context.Background()
			cache, closeCache, err := newGhostCache(ctx, logger)
			if err != nil {
				return err
			}
			defer closeCache()

			ghosts, err := cache.Fetch(ctx, bounds)
			if err != nil {
				return fmt.Errorf("importing: %w", err)
			}

			logger.Info().Int("count", len(ghosts)).Msg("import completed")

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ghosts)
		},
	}

	cmd.Flags().Float64Var(&bounds.South, "south", 0, "Southern latitude of the bounding box")
	cmd.Flags().Float64Var(&bounds.West, "west", 0, "Western longitude of the bounding box")
	cmd.Flags().Float64Var(&bounds.North, "north", 0, "Northern latitude of the bounding box")
	cmd.Flags().Float64Var(&bounds.East, "east", 0, "Eastern longitude of the bounding box")
	for _, name := range []string{"south", "west", "north", "east"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
