package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-phonepunct/internal/ledgerfile"
	"github.com/example/go-phonepunct/internal/punctuation"
	"github.com/example/go-phonepunct/internal/text"
)

func newPreserveCmd() *cobra.Command {
	var in inputFlags
	var ledgerPath string

	cmd := &cobra.Command{
		Use:   "preserve",
		Short: "Replace punctuation with placeholders and write the ledger",
		Long: "Replace every run of punctuation with a placeholder word, print the\n" +
			"placeholder-bearing lines for the phonemizer and store the ledger\n" +
			"needed by `restore` in --ledger (.json for JSON, YAML otherwise).",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if ledgerPath == "" {
				return errors.New("--ledger is required")
			}

			marks, err := punctuation.Parse(cfg.Punctuation.Marks)
			if err != nil {
				return fmt.Errorf("marks: %w", err)
			}
			form, err := text.ParseForm(cfg.Punctuation.Normalize)
			if err != nil {
				return err
			}

			units, err := readUnits(in.text, in.input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			units = text.NormalizeUnicode(units, form)

			hidden, ledger, err := marks.Preserve(units)
			if err != nil {
				return err
			}

			if err := ledgerfile.Write(ledgerPath, ledgerfile.File{
				Marks:  cfg.Punctuation.Marks,
				Ledger: ledger,
			}); err != nil {
				return err
			}

			slog.Debug("ledger written",
				slog.String("path", ledgerPath),
				slog.Int("units", len(ledger)),
				slog.Int("marks", ledger.Count()),
			)

			return writeLines(cmd.OutOrStdout(), hidden)
		},
	}

	in.register(cmd.Flags())
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "Ledger file to write")

	return cmd
}
