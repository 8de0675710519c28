// Package punctuation hides punctuation marks from a phonemization backend and
// splices them back into the backend output.
//
// A Marks value holds the active matching policy, either an explicit list of
// mark runes or a regular expression. Preserve replaces every run of marks by
// a placeholder token and records a Ledger; Restore consumes the backend
// output together with that Ledger:
//
//	m, _ := punctuation.New(punctuation.DefaultMarks())
//	hidden, ledger, err := m.Preserve(units)
//	// hand hidden to the backend, get phonemized back
//	restored, err := punctuation.Restore(phonemized, ledger, punctuation.RestoreOptions{
//	    Separator: separator.Default(),
//	    Strip:     true,
//	})
package punctuation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// defaultMarks is the canonical locale-agnostic mark set.
const defaultMarks = `;:,.!?¡—…"«»“”`

// PatternPrefix selects the pattern policy in Parse.
const PatternPrefix = "re:"

// DefaultMarks returns the canonical mark set.
func DefaultMarks() string {
	return defaultMarks
}

// Policy tells which matching strategy a Marks value uses.
type Policy int

const (
	// PolicyList matches runs of explicitly listed mark runes.
	PolicyList Policy = iota
	// PolicyPattern matches runs of regular expression matches.
	PolicyPattern
)

func (p Policy) String() string {
	switch p {
	case PolicyList:
		return "list"
	case PolicyPattern:
		return "pattern"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Marks is the active punctuation matching policy. The zero value is not
// usable; build one with New, NewFromSlice, NewPattern, NewRegexp or Parse.
//
// A Marks value may be shared by concurrent readers as long as no setter is
// called at the same time.
type Marks struct {
	policy Policy

	// list policy
	list []rune
	set  map[rune]struct{}

	// pattern policy
	pattern *regexp2.Regexp
	runs    *regexp2.Regexp
}

// New returns a list policy over the runes of marks. Duplicate runes are
// dropped, keeping the order of first occurrence.
func New(marks string) (*Marks, error) {
	m := &Marks{}
	if err := m.SetList(marks); err != nil {
		return nil, err
	}
	return m, nil
}

// NewFromSlice returns a list policy from single-rune strings.
func NewFromSlice(marks []string) (*Marks, error) {
	if len(marks) == 0 {
		return nil, fmt.Errorf("%w: mark list is empty", ErrInvalidConfig)
	}
	var b strings.Builder
	for i, mark := range marks {
		if utf8.RuneCountInString(mark) != 1 {
			return nil, fmt.Errorf("%w: mark %d (%q) must be exactly one character", ErrInvalidConfig, i, mark)
		}
		b.WriteString(mark)
	}
	return New(b.String())
}

// NewPattern returns a pattern policy compiled from expr. The expression uses
// Perl/.NET syntax, so lookarounds such as `[,.](?!\d)` are allowed.
func NewPattern(expr string) (*Marks, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: pattern is empty", ErrInvalidConfig)
	}
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("%w: compile pattern %q: %v", ErrInvalidConfig, expr, err)
	}
	return NewRegexp(re)
}

// NewRegexp returns a pattern policy from a compiled expression. Only inline
// flags of re survive; compile options passed to regexp2.Compile do not.
func NewRegexp(re *regexp2.Regexp) (*Marks, error) {
	m := &Marks{}
	if err := m.SetPattern(re); err != nil {
		return nil, err
	}
	return m, nil
}

// Parse builds a policy from its textual form: an empty string or "default"
// selects DefaultMarks, a "re:" prefix selects a pattern, anything else is a
// list of mark runes.
func Parse(spec string) (*Marks, error) {
	switch {
	case spec == "" || spec == "default":
		return New(defaultMarks)
	case strings.HasPrefix(spec, PatternPrefix):
		return NewPattern(strings.TrimPrefix(spec, PatternPrefix))
	default:
		return New(spec)
	}
}

// Policy returns the active policy kind.
func (m *Marks) Policy() Policy {
	return m.policy
}

// List returns the explicit mark runes as a string. It fails with
// ErrInvalidState when a pattern policy is active.
func (m *Marks) List() (string, error) {
	if m.policy != PolicyList {
		return "", fmt.Errorf("%w: marks are a pattern, not a list", ErrInvalidState)
	}
	return string(m.list), nil
}

// Pattern returns the user expression of a pattern policy. It fails with
// ErrInvalidState when a list policy is active.
func (m *Marks) Pattern() (string, error) {
	if m.policy != PolicyPattern {
		return "", fmt.Errorf("%w: marks are a list, not a pattern", ErrInvalidState)
	}
	return m.pattern.String(), nil
}

// SetList replaces the active policy with a list of mark runes. On error the
// previous policy is kept.
func (m *Marks) SetList(marks string) error {
	if marks == "" {
		return fmt.Errorf("%w: mark list is empty", ErrInvalidConfig)
	}
	if !utf8.ValidString(marks) {
		return fmt.Errorf("%w: mark list is not valid UTF-8", ErrInvalidConfig)
	}

	set := make(map[rune]struct{}, len(marks))
	list := make([]rune, 0, len(marks))
	for _, r := range marks {
		if _, dup := set[r]; dup {
			continue
		}
		set[r] = struct{}{}
		list = append(list, r)
	}

	m.policy = PolicyList
	m.list = list
	m.set = set
	m.pattern = nil
	m.runs = nil
	return nil
}

// SetPattern replaces the active policy with a regular expression. On error
// the previous policy is kept.
func (m *Marks) SetPattern(re *regexp2.Regexp) error {
	if re == nil || re.String() == "" {
		return fmt.Errorf("%w: pattern is empty", ErrInvalidConfig)
	}
	if empty, err := re.MatchString(""); err != nil || empty {
		return fmt.Errorf("%w: pattern %q matches the empty string", ErrInvalidConfig, re.String())
	}
	runs, err := regexp2.Compile(`(?:\s*(?:`+re.String()+`)\s*)+`, regexp2.None)
	if err != nil {
		return fmt.Errorf("%w: compile run pattern for %q: %v", ErrInvalidConfig, re.String(), err)
	}

	m.policy = PolicyPattern
	m.pattern = re
	m.runs = runs
	m.list = nil
	m.set = nil
	return nil
}

// Contains reports whether r alone is a mark under the active policy. Under
// a pattern only a non-empty match counts.
func (m *Marks) Contains(r rune) bool {
	if m.policy == PolicyList {
		_, ok := m.set[r]
		return ok
	}
	match, err := m.pattern.FindStringMatch(string(r))
	for err == nil && match != nil {
		if match.Length > 0 {
			return true
		}
		match, err = m.pattern.FindNextMatch(match)
	}
	return false
}

func (m *Marks) String() string {
	if m.policy == PolicyPattern {
		return PatternPrefix + m.pattern.String()
	}
	return string(m.list)
}

// Matches returns the maximal runs of marks in text, left to right. A run is
// one or more marks together with the whitespace around and between them.
func (m *Marks) Matches(text string) []Mark {
	var spans []span
	if m.policy == PolicyPattern {
		spans = m.patternSpans(text)
	} else {
		spans = m.listSpans(text)
	}
	return classify(text, spans)
}

// span is a byte range [start, end) of text.
type span struct {
	start, end int
}

func (m *Marks) listSpans(text string) []span {
	var spans []span
	start := -1
	hasMark := false

	flush := func(end int) {
		if start >= 0 && hasMark {
			spans = append(spans, span{start: start, end: end})
		}
		start = -1
		hasMark = false
	}

	for i, r := range text {
		_, isMark := m.set[r]
		if !isMark && !unicode.IsSpace(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
		if isMark {
			hasMark = true
		}
	}
	flush(len(text))
	return spans
}

func (m *Marks) patternSpans(text string) []span {
	// regexp2 reports rune indexes; map them back to byte offsets.
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))

	var spans []span
	match, err := m.runs.FindStringMatch(text)
	for err == nil && match != nil {
		if match.Length > 0 {
			spans = append(spans, span{
				start: offsets[match.Index],
				end:   offsets[match.Index+match.Length],
			})
		}
		match, err = m.runs.FindNextMatch(match)
	}
	return spans
}

// classify turns spans into Marks, assigning their position in the unit.
func classify(text string, spans []span) []Mark {
	if len(spans) == 0 {
		return nil
	}
	marks := make([]Mark, len(spans))
	last := len(spans) - 1
	for i, s := range spans {
		pos := PositionInner
		switch {
		case len(spans) == 1 && s.start == 0 && s.end == len(text):
			pos = PositionAlone
		case i == 0 && s.start == 0:
			pos = PositionBegin
		case i == last && s.end == len(text):
			pos = PositionEnd
		}
		marks[i] = Mark{
			Text:     text[s.start:s.end],
			Offset:   s.start,
			Position: pos,
		}
	}
	return marks
}
