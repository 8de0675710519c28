package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-phonepunct/internal/pipeline"
)

func newRunCmd() *cobra.Command {
	var in inputFlags
	var strict bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Phonemize input lines with the configured backend, keeping punctuation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			p, err := pipeline.FromConfig(cfg, slog.Default())
			if err != nil {
				return err
			}

			units, err := readUnits(in.text, in.input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			res, err := p.Run(cmd.Context(), units)
			if err != nil {
				return err
			}

			if err := writeLines(cmd.OutOrStdout(), res.Units); err != nil {
				return err
			}
			if strict {
				if err := res.Err(); err != nil {
					return fmt.Errorf("run: %w", err)
				}
			}
			return nil
		},
	}

	in.register(cmd.Flags())
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when the backend drops a placeholder")

	return cmd
}
