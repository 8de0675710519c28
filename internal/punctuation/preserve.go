package punctuation

import (
	"strings"
)

// Preserve hides every run of marks in units behind a placeholder token and
// returns the placeholder-bearing units with the ledger needed by Restore.
//
// Each run becomes a standalone word: the token is separated from its
// neighbours by single spaces, except at the unit edges. A unit made only of
// marks becomes the bare token. Text outside runs is left untouched.
func (m *Marks) Preserve(units []string) ([]string, Ledger, error) {
	tok, err := newTokenizer(m, units)
	if err != nil {
		return nil, nil, err
	}

	out := make([]string, len(units))
	ledger := make(Ledger, len(units))
	next := 0

	for i, unit := range units {
		marks := m.Matches(unit)
		entry := Entry{Length: len(unit)}
		if len(marks) == 0 {
			out[i] = unit
			ledger[i] = entry
			continue
		}

		var b strings.Builder
		b.Grow(len(unit) + len(marks)*(len(tok.prefix)+placeholderWidth+2))
		prev := 0
		for _, mark := range marks {
			token, err := tok.token(next)
			if err != nil {
				return nil, nil, err
			}
			end := mark.Offset + len(mark.Text)

			b.WriteString(unit[prev:mark.Offset])
			if mark.Offset > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(token)
			if end < len(unit) {
				b.WriteByte(' ')
			}

			entry.Marks = append(entry.Marks, mark)
			entry.Placeholders = append(entry.Placeholders, Placeholder{Index: next, Token: token})
			next++
			prev = end
		}
		b.WriteString(unit[prev:])

		out[i] = b.String()
		ledger[i] = entry
	}

	return out, ledger, nil
}
