package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/go-phonepunct/internal/punctuation"
)

func newMarksCmd() *cobra.Command {
	var showDefault bool

	cmd := &cobra.Command{
		Use:   "marks",
		Short: "Print the active punctuation mark policy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if showDefault {
				_, err := fmt.Fprintln(out, punctuation.DefaultMarks())
				return err
			}

			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			marks, err := punctuation.Parse(cfg.Punctuation.Marks)
			if err != nil {
				return fmt.Errorf("marks: %w", err)
			}

			if list, err := marks.List(); err == nil {
				_, err = fmt.Fprintf(out, "policy: %s\nmarks: %s\n", marks.Policy(), list)
				return err
			}
			pattern, err := marks.Pattern()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "policy: %s\npattern: %s\n", marks.Policy(), pattern)
			return err
		},
	}

	cmd.Flags().BoolVar(&showDefault, "default", false, "Print the default mark list and exit")

	return cmd
}
