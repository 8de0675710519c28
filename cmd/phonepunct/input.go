package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/example/go-phonepunct/internal/text"
)

var errNoInput = errors.New("either provide --text, --input or pipe text on stdin")

// readInput returns the text from the --text flag, the --input file ("-"
// means stdin) or stdin, in that order.
func readInput(flagText, inputPath string, stdin io.Reader) (string, error) {
	if flagText != "" {
		return flagText, nil
	}

	r := stdin
	if inputPath != "" && inputPath != "-" {
		f, err := os.Open(inputPath) // #nosec G304 -- path is an explicit user argument.
		if err != nil {
			return "", fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(b), nil
}

// readUnits reads text and splits it into one unit per line.
func readUnits(flagText, inputPath string, stdin io.Reader) ([]string, error) {
	raw, err := readInput(flagText, inputPath, stdin)
	if err != nil {
		return nil, err
	}
	if _, err := text.Normalize(raw); err != nil {
		if errors.Is(err, text.ErrEmptyText) {
			return nil, errNoInput
		}
		return nil, err
	}
	return text.SplitUnits(raw), nil
}

// readLines splits backend output into lines, keeping trailing empty lines
// so every unit keeps its slot. Only the final line terminator is dropped.
func readLines(flagText, inputPath string, stdin io.Reader) ([]string, error) {
	raw, err := readInput(flagText, inputPath, stdin)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return []string{}, nil
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.TrimSuffix(raw, "\n")
	return strings.Split(raw, "\n"), nil
}

func writeLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}

type inputFlags struct {
	text  string
	input string
}

func (f *inputFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.text, "text", "", "Input text, one unit per line (default: read --input or stdin)")
	fs.StringVar(&f.input, "input", "", `Input file, "-" for stdin`)
}
