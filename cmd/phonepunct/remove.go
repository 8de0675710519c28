package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/go-phonepunct/internal/punctuation"
)

func newRemoveCmd() *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Strip punctuation marks from each input line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			marks, err := punctuation.Parse(cfg.Punctuation.Marks)
			if err != nil {
				return fmt.Errorf("marks: %w", err)
			}

			units, err := readUnits(in.text, in.input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			return writeLines(cmd.OutOrStdout(), marks.RemoveAll(units))
		},
	}

	in.register(cmd.Flags())

	return cmd
}
