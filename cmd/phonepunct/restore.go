package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-phonepunct/internal/ledgerfile"
	"github.com/example/go-phonepunct/internal/punctuation"
	"github.com/example/go-phonepunct/internal/separator"
)

func newRestoreCmd() *cobra.Command {
	var in inputFlags
	var ledgerPath string
	var strict bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Put punctuation back into phonemizer output using a ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if ledgerPath == "" {
				return errors.New("--ledger is required")
			}

			file, err := ledgerfile.Read(ledgerPath)
			if err != nil {
				return err
			}

			sep, err := separator.New(cfg.Separator.Phone, cfg.Separator.Syllable, cfg.Separator.Word)
			if err != nil {
				return err
			}
			leniency, err := punctuation.ParseLeniency(cfg.Punctuation.Leniency)
			if err != nil {
				return err
			}

			lines, err := readLines(in.text, in.input, cmd.InOrStdin())
			if err != nil {
				return err
			}

			res, err := punctuation.Restore(lines, file.Ledger, punctuation.RestoreOptions{
				Separator: sep,
				Strip:     cfg.Punctuation.Strip,
				Leniency:  leniency,
				Logger:    slog.Default(),
			})
			if err != nil {
				return err
			}

			if err := writeLines(cmd.OutOrStdout(), res.Units); err != nil {
				return err
			}
			if strict {
				if err := res.Err(); err != nil {
					return fmt.Errorf("restore: %w", err)
				}
			}
			return nil
		},
	}

	in.register(cmd.Flags())
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "Ledger file written by preserve")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when a placeholder is missing from the input")

	return cmd
}
