package punctuation

import (
	"fmt"
	"strings"
)

// placeholderWidth is the number of index digits in every token.
const placeholderWidth = 6

// placeholderAlphabets are tried in order; the first one the active policy
// leaves untouched is used for the whole Preserve call.
var placeholderAlphabets = []struct {
	prefix string
	digits string
}{
	{prefix: "PUNCTQ", digits: "ABCDEFGHIJKLMNOPQRSTUVWXYZ"},
	{prefix: "punctq", digits: "abcdefghijklmnopqrstuvwxyz"},
	{prefix: "9090", digits: "0123456789"},
}

// tokenizer mints fixed-length placeholder tokens for one Preserve call.
type tokenizer struct {
	prefix string
	digits string
	limit  int
}

// newTokenizer picks an alphabet the policy cannot match and a prefix no unit
// contains, so a token can neither be split by the policy nor be confused
// with natural text.
func newTokenizer(m *Marks, units []string) (*tokenizer, error) {
	for _, a := range placeholderAlphabets {
		if !m.inert(a.prefix + a.digits) {
			continue
		}
		prefix := a.prefix
		for containsAny(units, prefix) {
			prefix += a.digits[len(a.digits)-1:]
		}
		limit := 1
		for i := 0; i < placeholderWidth; i++ {
			limit *= len(a.digits)
		}
		return &tokenizer{prefix: prefix, digits: a.digits, limit: limit}, nil
	}
	return nil, fmt.Errorf("%w: marks %s match every placeholder alphabet", ErrInvalidConfig, m)
}

// token returns the placeholder for sequence number i.
func (t *tokenizer) token(i int) (string, error) {
	if i < 0 || i >= t.limit {
		return "", fmt.Errorf("%w: placeholder index %d exceeds %d", ErrInvalidConfig, i, t.limit-1)
	}
	base := len(t.digits)
	buf := make([]byte, placeholderWidth)
	for pos := placeholderWidth - 1; pos >= 0; pos-- {
		buf[pos] = t.digits[i%base]
		i /= base
	}
	return t.prefix + string(buf), nil
}

// inert reports whether no rune of s, and no substring of s, is a mark.
func (m *Marks) inert(s string) bool {
	for _, r := range s {
		if m.Contains(r) {
			return false
		}
	}
	return len(m.Matches(s)) == 0
}

func containsAny(units []string, s string) bool {
	for _, u := range units {
		if strings.Contains(u, s) {
			return true
		}
	}
	return false
}

// PlaceholderPrefix returns the token prefix Preserve uses for units that do
// not already contain it. It fails with ErrInvalidConfig when the policy
// matches every placeholder alphabet.
func (m *Marks) PlaceholderPrefix() (string, error) {
	tok, err := newTokenizer(m, nil)
	if err != nil {
		return "", err
	}
	return tok.prefix, nil
}
