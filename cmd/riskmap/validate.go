package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/landslide-riskmap/internal/config"
	"github.com/couchcryptid/landslide-riskmap/internal/domain"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and input files without raster work",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "factors:       %d\n", len(cfg.Factors))
			fmt.Fprintf(out, "forecast csv:  %s\n", cfg.ForecastCSV)
			fmt.Fprintf(out, "recorded csv:  %s\n", cfg.RecordedCSV)
			fmt.Fprintf(out, "boundary:      %s\n", cfg.BoundaryPath)
			fmt.Fprintf(out, "target srs:    %s @ %gm\n", cfg.TargetSRS, cfg.PixelSize)

			if err := cfg.Validate(); err != nil {
				var missing *domain.MissingInputError
				if errors.As(err, &missing) {
					fmt.Fprintln(out, "missing input files:")
					for _, p := range missing.Paths {
						fmt.Fprintf(out, "  %s\n", p)
					}
				}
				return err
			}

			fmt.Fprintln(out, "configuration OK")
			return nil
		},
	}
}
