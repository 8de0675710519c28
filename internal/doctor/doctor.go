// Package doctor provides environment preflight checks for phonepunct.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/example/go-phonepunct/internal/backend"
	"github.com/example/go-phonepunct/internal/punctuation"
	"github.com/example/go-phonepunct/internal/separator"
	"github.com/example/go-phonepunct/internal/text"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// probeUnit goes through the backend to check that placeholders survive.
const probeUnit = "hello, world!"

// LookPathFunc resolves an executable name to a path.
type LookPathFunc func(file string) (string, error)

// Config holds the settings to check and injectable dependencies.
type Config struct {
	Marks     string
	Separator separator.Separator
	Leniency  string
	Normalize string
	// BackendCommand is the executable of the command backend. Empty skips
	// the lookup (identity backend).
	BackendCommand string
	// LookPath defaults to exec.LookPath.
	LookPath LookPathFunc
	// Backend, when set, receives a probe unit to verify placeholders make
	// it through phonemization.
	Backend backend.Backend
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(ctx context.Context, cfg Config, w io.Writer) Result {
	var res Result

	// ---- mark policy ------------------------------------------------------
	marks, err := punctuation.Parse(cfg.Marks)
	if err != nil {
		res.fail(fmt.Sprintf("mark policy: %v", err))
		fmt.Fprintf(w, "%s mark policy: %v\n", FailMark, err)
	} else {
		fmt.Fprintf(w, "%s mark policy: %s\n", PassMark, describeMarks(marks))

		// ---- placeholder alphabet -----------------------------------------
		if prefix, err := marks.PlaceholderPrefix(); err != nil {
			res.fail(fmt.Sprintf("placeholder alphabet: %v", err))
			fmt.Fprintf(w, "%s placeholder alphabet: %v\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s placeholder alphabet: %s…\n", PassMark, prefix)
		}
	}

	// ---- separator --------------------------------------------------------
	if err := cfg.Separator.Validate(); err != nil {
		res.fail(fmt.Sprintf("separator: %v", err))
		fmt.Fprintf(w, "%s separator: %v\n", FailMark, err)
	} else {
		fmt.Fprintf(w, "%s separator: %s\n", PassMark, cfg.Separator)
	}

	// ---- restore leniency and normalization ---------------------------------
	if l, err := punctuation.ParseLeniency(cfg.Leniency); err != nil {
		res.fail(fmt.Sprintf("leniency: %v", err))
		fmt.Fprintf(w, "%s leniency: %v\n", FailMark, err)
	} else {
		fmt.Fprintf(w, "%s leniency: %s\n", PassMark, l)
	}
	if f, err := text.ParseForm(cfg.Normalize); err != nil {
		res.fail(fmt.Sprintf("normalize: %v", err))
		fmt.Fprintf(w, "%s normalize: %v\n", FailMark, err)
	} else {
		fmt.Fprintf(w, "%s normalize: %s\n", PassMark, f)
	}

	// ---- backend command --------------------------------------------------
	if cfg.BackendCommand == "" {
		fmt.Fprintf(w, "%s backend command: skipped\n", PassMark)
	} else {
		lookPath := cfg.LookPath
		if lookPath == nil {
			lookPath = exec.LookPath
		}
		if path, err := lookPath(cfg.BackendCommand); err != nil {
			res.fail(fmt.Sprintf("backend command %q: %v", cfg.BackendCommand, err))
			fmt.Fprintf(w, "%s backend command %s: not found (%v)\n", FailMark, cfg.BackendCommand, err)
		} else {
			fmt.Fprintf(w, "%s backend command: %s\n", PassMark, path)
		}
	}

	// ---- placeholder survival ---------------------------------------------
	if cfg.Backend != nil && marks != nil && !res.Failed() {
		if err := probeBackend(ctx, marks, cfg, w); err != nil {
			res.fail(fmt.Sprintf("backend probe: %v", err))
		}
	}

	return res
}

func describeMarks(m *punctuation.Marks) string {
	if list, err := m.List(); err == nil {
		return fmt.Sprintf("list %q (%d marks)", list, len([]rune(list)))
	}
	pattern, _ := m.Pattern()
	return fmt.Sprintf("pattern %q", pattern)
}

// probeBackend sends one preserved unit through the backend and checks every
// placeholder came back.
func probeBackend(ctx context.Context, marks *punctuation.Marks, cfg Config, w io.Writer) error {
	hidden, ledger, err := marks.Preserve([]string{probeUnit})
	if err != nil {
		fmt.Fprintf(w, "%s backend probe: %v\n", FailMark, err)
		return err
	}

	out, err := cfg.Backend.Phonemize(ctx, hidden, cfg.Separator, true)
	if err != nil {
		fmt.Fprintf(w, "%s backend probe: %v\n", FailMark, err)
		return err
	}
	if len(out) != 1 {
		err := fmt.Errorf("%w: sent 1, received %d", backend.ErrLineCount, len(out))
		fmt.Fprintf(w, "%s backend probe: %v\n", FailMark, err)
		return err
	}

	var lost []string
	for _, ph := range ledger[0].Placeholders {
		if !strings.Contains(out[0], ph.Token) {
			lost = append(lost, ph.Token)
		}
	}
	if len(lost) > 0 {
		err := fmt.Errorf("placeholders lost: %s", strings.Join(lost, ", "))
		fmt.Fprintf(w, "%s backend probe: %v (output %q)\n", FailMark, err, out[0])
		return err
	}

	fmt.Fprintf(w, "%s backend probe: %d placeholders kept\n", PassMark, len(ledger[0].Placeholders))
	return nil
}
