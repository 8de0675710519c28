package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/go-phonepunct/internal/bench"
	"github.com/example/go-phonepunct/internal/pipeline"
)

func newBenchCmd() *cobra.Command {
	var (
		in        inputFlags
		runs      int
		format    string
		threshold time.Duration
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the preserve, phonemize and restore pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			p, err := pipeline.FromConfig(cfg, slog.Default())
			if err != nil {
				return err
			}

			units, err := readUnits(in.text, in.input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			results, err := bench.Run(cmd.Context(), runs, func(ctx context.Context) (int, int, error) {
				res, err := p.Run(ctx, units)
				if err != nil {
					return 0, 0, err
				}
				return len(res.Units), len(res.Missing), nil
			})
			if err != nil {
				return err
			}

			stats := bench.ComputeStats(bench.Durations(results))
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				if err := bench.FormatJSON(results, stats, out); err != nil {
					return err
				}
			default:
				bench.FormatTable(results, stats, out)
			}

			return bench.CheckPerUnitThreshold(bench.MeanPerUnit(results), threshold)
		},
	}

	in.register(cmd.Flags())
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of pipeline runs")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table|json")
	cmd.Flags().DurationVar(&threshold, "max-per-unit", 0, "Exit non-zero if the mean per-unit latency exceeds this value (0 = disabled)")

	return cmd
}
