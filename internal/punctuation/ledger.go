package punctuation

import (
	"fmt"
)

// Position locates a run of marks within its unit.
type Position int

const (
	// PositionInner is a run with text on both sides.
	PositionInner Position = iota
	// PositionBegin is the first run, starting the unit.
	PositionBegin
	// PositionEnd is the last run, ending the unit.
	PositionEnd
	// PositionAlone is a run making up the whole unit.
	PositionAlone
)

var positionNames = map[Position]string{
	PositionInner: "inner",
	PositionBegin: "begin",
	PositionEnd:   "end",
	PositionAlone: "alone",
}

func (p Position) String() string {
	if name, ok := positionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Position) MarshalText() ([]byte, error) {
	name, ok := positionNames[p]
	if !ok {
		return nil, fmt.Errorf("%w: unknown position %d", ErrInvalidState, int(p))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Position) UnmarshalText(b []byte) error {
	for pos, name := range positionNames {
		if name == string(b) {
			*p = pos
			return nil
		}
	}
	return fmt.Errorf("%w: unknown position %q", ErrInvalidState, string(b))
}

// Mark is a run of punctuation found in a unit.
type Mark struct {
	Text     string   `json:"text" yaml:"text"`
	Offset   int      `json:"offset" yaml:"offset"` // byte offset in the source unit
	Position Position `json:"position" yaml:"position"`
}

// Placeholder is the token standing in for a Mark in backend input.
type Placeholder struct {
	Index int    `json:"index" yaml:"index"` // sequence number within one Preserve call
	Token string `json:"token" yaml:"token"`
}

// Entry is the ledger record of one unit. Marks[i] is hidden behind
// Placeholders[i].
type Entry struct {
	Length       int           `json:"length" yaml:"length"` // byte length of the source unit
	Marks        []Mark        `json:"marks" yaml:"marks"`
	Placeholders []Placeholder `json:"placeholders" yaml:"placeholders"`
}

// Validate checks the pairing invariant of the entry.
func (e Entry) Validate() error {
	if len(e.Marks) != len(e.Placeholders) {
		return fmt.Errorf("%w: %d marks but %d placeholders", ErrInvalidState, len(e.Marks), len(e.Placeholders))
	}
	prev := -1
	for i, ph := range e.Placeholders {
		if ph.Token == "" {
			return fmt.Errorf("%w: placeholder %d has no token", ErrInvalidState, i)
		}
		if ph.Index <= prev {
			return fmt.Errorf("%w: placeholder %d is out of order", ErrInvalidState, i)
		}
		prev = ph.Index
	}
	return nil
}

// Ledger maps every unit handed to Preserve to the marks it hid, in unit order.
type Ledger []Entry

// Validate checks every entry and the global ordering of placeholders.
func (l Ledger) Validate() error {
	prev := -1
	for i, e := range l {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		for _, ph := range e.Placeholders {
			if ph.Index <= prev {
				return fmt.Errorf("entry %d: %w: placeholder index %d reused", i, ErrInvalidState, ph.Index)
			}
			prev = ph.Index
		}
	}
	return nil
}

// Count returns the total number of hidden marks.
func (l Ledger) Count() int {
	n := 0
	for _, e := range l {
		n += len(e.Marks)
	}
	return n
}
