package punctuation

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/example/go-phonepunct/internal/separator"
)

// Leniency controls what Restore trims from backend output next to a
// placeholder.
type Leniency int

const (
	// TrimWhitespace trims word separators and any whitespace. Backends differ
	// in the spacing they emit around tokens at line edges.
	TrimWhitespace Leniency = iota
	// TrimSeparator trims word separators only.
	TrimSeparator
)

// ParseLeniency converts a config string to a Leniency.
func ParseLeniency(s string) (Leniency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "whitespace":
		return TrimWhitespace, nil
	case "separator":
		return TrimSeparator, nil
	default:
		return TrimWhitespace, fmt.Errorf("%w: unknown leniency %q (want whitespace|separator)", ErrInvalidConfig, s)
	}
}

func (l Leniency) String() string {
	if l == TrimSeparator {
		return "separator"
	}
	return "whitespace"
}

// RestoreOptions configures Restore.
type RestoreOptions struct {
	// Separator is the convention the backend used for its output.
	Separator separator.Separator
	// Strip drops the trailing word separator of each unit; otherwise one is
	// guaranteed.
	Strip    bool
	Leniency Leniency
	// Logger receives a warning per missing placeholder. Defaults to slog.Default().
	Logger *slog.Logger
}

// Placement tells where a mark with a missing placeholder was put.
type Placement int

const (
	// PlacementStart puts the mark at the start of the unit.
	PlacementStart Placement = iota
	// PlacementInline puts the mark right after the previous restored mark.
	PlacementInline
	// PlacementEnd puts the mark at the end of the unit.
	PlacementEnd
)

func (p Placement) String() string {
	switch p {
	case PlacementStart:
		return "start"
	case PlacementInline:
		return "inline"
	case PlacementEnd:
		return "end"
	default:
		return fmt.Sprintf("Placement(%d)", int(p))
	}
}

func (p Placement) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Placement) UnmarshalText(b []byte) error {
	switch string(b) {
	case "start":
		*p = PlacementStart
	case "inline":
		*p = PlacementInline
	case "end":
		*p = PlacementEnd
	default:
		return fmt.Errorf("%w: unknown placement %q", ErrInvalidState, b)
	}
	return nil
}

// MissingPlaceholder describes a mark whose placeholder was not found in the
// backend output, and where the mark was put instead.
type MissingPlaceholder struct {
	Unit      int       `json:"unit"`  // unit index
	Index     int       `json:"index"` // mark index within the unit
	Token     string    `json:"token"`
	Mark      string    `json:"mark"`
	Placement Placement `json:"placement"`
}

func (e MissingPlaceholder) Error() string {
	return fmt.Sprintf("unit %d: placeholder %s for mark %q missing, placed at %s",
		e.Unit, e.Token, e.Mark, e.Placement)
}

// Unwrap lets errors.Is match ErrPlaceholderMissing.
func (e MissingPlaceholder) Unwrap() error {
	return ErrPlaceholderMissing
}

// Restored is the outcome of Restore.
type Restored struct {
	Units   []string
	Missing []MissingPlaceholder
}

// Err joins the missing placeholder diagnostics, or returns nil when every
// placeholder was found.
func (r Restored) Err() error {
	if len(r.Missing) == 0 {
		return nil
	}
	errs := make([]error, len(r.Missing))
	for i, m := range r.Missing {
		errs[i] = m
	}
	return errors.Join(errs...)
}

// Restore splices the marks recorded in ledger back into the backend output.
// units must hold one backend output per ledger entry. Missing placeholders do
// not fail the call: the mark is placed on a best-effort basis and reported
// in Restored.Missing.
func Restore(units []string, ledger Ledger, opts RestoreOptions) (Restored, error) {
	if len(units) != len(ledger) {
		return Restored{}, fmt.Errorf("%w: %d units, %d ledger entries", ErrLedgerMismatch, len(units), len(ledger))
	}
	if err := ledger.Validate(); err != nil {
		return Restored{}, err
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := restorer{sep: opts.Separator.Word, strip: opts.Strip, lenient: opts.Leniency == TrimWhitespace}
	res := Restored{Units: make([]string, len(units))}
	for i, unit := range units {
		text, missing := r.unit(i, unit, ledger[i])
		res.Units[i] = text
		for _, m := range missing {
			log.Warn("placeholder missing from backend output",
				slog.Int("unit", m.Unit),
				slog.Int("mark", m.Index),
				slog.String("token", m.Token),
				slog.String("text", m.Mark),
				slog.String("placement", m.Placement.String()),
			)
		}
		res.Missing = append(res.Missing, missing...)
	}
	return res, nil
}

type restorer struct {
	sep     string
	strip   bool
	lenient bool
}

func (r restorer) unit(unitIdx int, out string, entry Entry) (string, []MissingPlaceholder) {
	if len(entry.Marks) == 0 {
		// Mark-free units are left as the backend produced them under strip.
		if r.strip {
			return out, nil
		}
		return r.finish(out, false), nil
	}

	locs := make([]int, len(entry.Placeholders))
	lastLocated := -1
	cursor := 0
	for i, ph := range entry.Placeholders {
		idx := strings.Index(out[cursor:], ph.Token)
		if idx < 0 {
			locs[i] = -1
			continue
		}
		locs[i] = cursor + idx
		cursor = locs[i] + len(ph.Token)
		lastLocated = i
	}

	// A punctuation-only unit commonly comes back empty.
	if len(entry.Marks) == 1 && entry.Marks[0].Position == PositionAlone && locs[0] < 0 &&
		r.trimLeft(out) == "" {
		return r.finish(r.markText(entry.Marks[0]), true), nil
	}

	var (
		b        strings.Builder
		missing  []MissingPlaceholder
		deferred []string
		wrote    bool
		gap      bool
	)
	cursor = 0
	for i, mark := range entry.Marks {
		text := r.markText(mark)
		if locs[i] >= 0 {
			piece := out[cursor:locs[i]]
			if wrote {
				piece = r.trimLeft(piece)
			}
			if gap {
				piece = r.collapse(piece)
				gap = false
			}
			b.WriteString(r.trimRight(piece))
			b.WriteString(text)
			cursor = locs[i] + len(entry.Placeholders[i].Token)
			wrote = true
			continue
		}

		var placement Placement
		switch {
		case len(deferred) > 0 || (i > lastLocated && !firstHalf(mark, entry.Length)):
			placement = PlacementEnd
			deferred = append(deferred, text)
		case !wrote && firstHalf(mark, entry.Length):
			placement = PlacementStart
			b.WriteString(text)
			wrote = true
		default:
			placement = PlacementInline
			b.WriteString(text)
			wrote = true
		}
		gap = true
		missing = append(missing, MissingPlaceholder{
			Unit:      unitIdx,
			Index:     i,
			Token:     entry.Placeholders[i].Token,
			Mark:      mark.Text,
			Placement: placement,
		})
	}

	tail := out[cursor:]
	if wrote {
		tail = r.trimLeft(tail)
	}
	if gap {
		tail = r.collapse(tail)
	}
	if len(deferred) > 0 {
		b.WriteString(r.trimRight(tail))
		for _, text := range deferred {
			b.WriteString(text)
		}
		return r.finish(b.String(), true), missing
	}
	b.WriteString(tail)
	return r.finish(b.String(), tail == "" && wrote), missing
}

// finish applies the strip rule to a restored unit. A trailing mark is never
// trimmed.
func (r restorer) finish(s string, endsWithMark bool) string {
	if s == "" || r.sep == "" {
		return s
	}
	if r.strip {
		if endsWithMark {
			return s
		}
		for strings.HasSuffix(s, r.sep) {
			s = strings.TrimSuffix(s, r.sep)
		}
		return s
	}
	if !strings.HasSuffix(s, r.sep) {
		s += r.sep
	}
	return s
}

// markText rewrites the spaces of a mark run with the word separator.
func (r restorer) markText(m Mark) string {
	return strings.ReplaceAll(m.Text, " ", r.sep)
}

func (r restorer) trimLeft(s string) string {
	for s != "" {
		if r.sep != "" && strings.HasPrefix(s, r.sep) {
			s = s[len(r.sep):]
			continue
		}
		c, size := utf8.DecodeRuneInString(s)
		if r.lenient && unicode.IsSpace(c) {
			s = s[size:]
			continue
		}
		break
	}
	return s
}

func (r restorer) trimRight(s string) string {
	for s != "" {
		if r.sep != "" && strings.HasSuffix(s, r.sep) {
			s = s[:len(s)-len(r.sep)]
			continue
		}
		c, size := utf8.DecodeLastRuneInString(s)
		if r.lenient && unicode.IsSpace(c) {
			s = s[:len(s)-size]
			continue
		}
		break
	}
	return s
}

// collapse squeezes the separators left behind by a dropped placeholder so a
// single one remains between words.
func (r restorer) collapse(s string) string {
	if r.sep != "" {
		for strings.Contains(s, r.sep+r.sep) {
			s = strings.ReplaceAll(s, r.sep+r.sep, r.sep)
		}
	}
	if !r.lenient {
		return s
	}

	var b strings.Builder
	prevSpace := false
	for _, c := range s {
		space := unicode.IsSpace(c)
		if space && prevSpace {
			continue
		}
		prevSpace = space
		b.WriteRune(c)
	}
	return b.String()
}

// firstHalf reports whether the centre of mark lies in the first half of its
// source unit.
func firstHalf(m Mark, length int) bool {
	return 2*m.Offset+len(m.Text) < length
}
