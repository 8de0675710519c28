// Package backend adapts phonemizers to the line-oriented contract the
// punctuation pipeline relies on: one output unit per input unit, with
// placeholder words passed through verbatim.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/go-phonepunct/internal/config"
	"github.com/example/go-phonepunct/internal/separator"
)

var (
	// ErrLineCount is returned when a backend answers with a different number
	// of units than it was given.
	ErrLineCount = errors.New("backend returned a different number of units")
	// ErrNoCommand is returned when the command backend has no executable.
	ErrNoCommand = errors.New("command backend requires an executable")
)

// Backend phonemizes units. Implementations must return exactly one output
// unit per input unit and must be safe for concurrent use.
type Backend interface {
	Phonemize(ctx context.Context, units []string, sep separator.Separator, strip bool) ([]string, error)
}

// Func adapts an ordinary function to the Backend interface.
type Func func(ctx context.Context, units []string, sep separator.Separator, strip bool) ([]string, error)

func (f Func) Phonemize(ctx context.Context, units []string, sep separator.Separator, strip bool) ([]string, error) {
	return f(ctx, units, sep, strip)
}

// Identity returns its input unchanged.
type Identity struct{}

func (Identity) Phonemize(ctx context.Context, units []string, _ separator.Separator, _ bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]string(nil), units...), nil
}

// NewFromConfig builds the backend selected by cfg.Kind.
func NewFromConfig(cfg config.BackendConfig) (Backend, error) {
	kind, err := config.NormalizeBackend(cfg.Kind)
	if err != nil {
		return nil, err
	}

	switch kind {
	case config.BackendIdentity:
		return Identity{}, nil
	case config.BackendCommand:
		if cfg.Command == "" {
			return nil, ErrNoCommand
		}
		cmd := NewCommand(cfg.Command, cfg.Args...)
		cmd.Timeout = time.Duration(cfg.Timeout) * time.Second
		return cmd, nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", kind)
	}
}
