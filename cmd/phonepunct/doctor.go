package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/go-phonepunct/internal/backend"
	"github.com/example/go-phonepunct/internal/config"
	"github.com/example/go-phonepunct/internal/doctor"
	"github.com/example/go-phonepunct/internal/separator"
)

func newDoctorCmd() *cobra.Command {
	var probe bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the punctuation settings and the phonemizer backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			kind, err := config.NormalizeBackend(cfg.Backend.Kind)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "backend: %s\n", kind)

			dcfg := doctor.Config{
				Marks: cfg.Punctuation.Marks,
				Separator: separator.Separator{
					Phone:    cfg.Separator.Phone,
					Syllable: cfg.Separator.Syllable,
					Word:     cfg.Separator.Word,
				},
				Leniency:  cfg.Punctuation.Leniency,
				Normalize: cfg.Punctuation.Normalize,
			}
			if kind == config.BackendCommand {
				dcfg.BackendCommand = cfg.Backend.Command
			}

			var buildErr error
			if probe {
				dcfg.Backend, buildErr = backend.NewFromConfig(cfg.Backend)
			}

			result := doctor.Run(cmd.Context(), dcfg, out)
			if kind == config.BackendCommand && cfg.Backend.Command == "" {
				result.AddFailure("backend command: not configured")
				_, _ = fmt.Fprintf(out, "%s backend command: not configured (set --backend-command)\n", doctor.FailMark)
			} else if buildErr != nil {
				result.AddFailure(fmt.Sprintf("backend: %v", buildErr))
				_, _ = fmt.Fprintf(out, "%s backend: %v\n", doctor.FailMark, buildErr)
			}

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(os.Stderr, "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Send a probe line through the backend and check placeholders survive")

	return cmd
}
