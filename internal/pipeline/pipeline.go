// Package pipeline chains punctuation handling around a phonemization
// backend: normalize, preserve (or remove) marks, phonemize, restore.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/go-phonepunct/internal/backend"
	"github.com/example/go-phonepunct/internal/config"
	"github.com/example/go-phonepunct/internal/punctuation"
	"github.com/example/go-phonepunct/internal/separator"
	"github.com/example/go-phonepunct/internal/text"
)

var errNoBackend = errors.New("pipeline requires a backend")

type Options struct {
	// Marks defaults to the default mark list.
	Marks   *punctuation.Marks
	Backend backend.Backend
	// Separator is what the backend emits. The zero value means
	// separator.Default().
	Separator separator.Separator
	Strip     bool
	// Preserve restores marks after phonemization. When false marks are
	// removed before the backend sees the text.
	Preserve  bool
	Leniency  punctuation.Leniency
	Normalize text.Form
	// Workers bounds concurrent backend calls. Zero uses GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

type Pipeline struct {
	opts Options
	log  *slog.Logger
}

// Result holds one output unit per input unit and the placeholders the
// backend failed to carry through.
type Result struct {
	Units   []string                          `json:"units"`
	Missing []punctuation.MissingPlaceholder `json:"missing,omitempty"`
}

// Err joins the missing placeholder diagnostics, or returns nil when every
// placeholder came back.
func (r Result) Err() error {
	return punctuation.Restored{Units: r.Units, Missing: r.Missing}.Err()
}

func New(opts Options) (*Pipeline, error) {
	if opts.Marks == nil {
		var err error
		if opts.Marks, err = punctuation.New(punctuation.DefaultMarks()); err != nil {
			return nil, err
		}
	}
	if opts.Backend == nil {
		return nil, errNoBackend
	}
	if opts.Separator == (separator.Separator{}) {
		opts.Separator = separator.Default()
	}
	if err := opts.Separator.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{opts: opts, log: opts.Logger}, nil
}

// FromConfig builds a pipeline and its backend from cfg.
func FromConfig(cfg config.Config, logger *slog.Logger) (*Pipeline, error) {
	marks, err := punctuation.Parse(cfg.Punctuation.Marks)
	if err != nil {
		return nil, fmt.Errorf("marks: %w", err)
	}
	leniency, err := punctuation.ParseLeniency(cfg.Punctuation.Leniency)
	if err != nil {
		return nil, err
	}
	form, err := text.ParseForm(cfg.Punctuation.Normalize)
	if err != nil {
		return nil, err
	}
	sep, err := separator.New(cfg.Separator.Phone, cfg.Separator.Syllable, cfg.Separator.Word)
	if err != nil {
		return nil, err
	}
	b, err := backend.NewFromConfig(cfg.Backend)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}

	return New(Options{
		Marks:     marks,
		Backend:   b,
		Separator: sep,
		Strip:     cfg.Punctuation.Strip,
		Preserve:  cfg.Punctuation.Preserve,
		Leniency:  leniency,
		Normalize: form,
		Workers:   cfg.Backend.Concurrency,
		Logger:    logger,
	})
}

func (p *Pipeline) Marks() *punctuation.Marks { return p.opts.Marks }

func (p *Pipeline) Separator() separator.Separator { return p.opts.Separator }

func (p *Pipeline) Run(ctx context.Context, units []string) (Result, error) {
	if len(units) == 0 {
		return Result{Units: []string{}}, nil
	}
	start := time.Now()

	units = text.NormalizeUnicode(units, p.opts.Normalize)

	if !p.opts.Preserve {
		out, err := p.phonemize(ctx, p.opts.Marks.RemoveAll(units))
		if err != nil {
			return Result{}, err
		}
		p.log.DebugContext(ctx, "pipeline run complete",
			slog.Int("units", len(units)),
			slog.Bool("preserve", false),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return Result{Units: out}, nil
	}

	hidden, ledger, err := p.opts.Marks.Preserve(units)
	if err != nil {
		return Result{}, err
	}

	out, err := p.phonemize(ctx, hidden)
	if err != nil {
		return Result{}, err
	}

	restored, err := punctuation.Restore(out, ledger, punctuation.RestoreOptions{
		Separator: p.opts.Separator,
		Strip:     p.opts.Strip,
		Leniency:  p.opts.Leniency,
		Logger:    p.log,
	})
	if err != nil {
		return Result{}, err
	}

	p.log.DebugContext(ctx, "pipeline run complete",
		slog.Int("units", len(units)),
		slog.Int("marks", ledger.Count()),
		slog.Int("missing", len(restored.Missing)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return Result{Units: restored.Units, Missing: restored.Missing}, nil
}

// phonemize splits units into contiguous batches, one per worker, and
// reassembles the output in input order.
func (p *Pipeline) phonemize(ctx context.Context, units []string) ([]string, error) {
	workers := min(p.opts.Workers, len(units))
	size := (len(units) + workers - 1) / workers
	out := make([]string, len(units))

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(units); lo += size {
		lo, hi := lo, min(lo+size, len(units))
		g.Go(func() error {
			batch, err := p.opts.Backend.Phonemize(gctx, units[lo:hi], p.opts.Separator, p.opts.Strip)
			if err != nil {
				return fmt.Errorf("phonemize units %d-%d: %w", lo, hi-1, err)
			}
			if len(batch) != hi-lo {
				return fmt.Errorf("phonemize units %d-%d: %w: sent %d, received %d",
					lo, hi-1, backend.ErrLineCount, hi-lo, len(batch))
			}
			copy(out[lo:hi], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
