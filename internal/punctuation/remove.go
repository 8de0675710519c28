package punctuation

import "strings"

// Remove deletes every run of marks from text. Each run, together with the
// whitespace it absorbed, becomes a single space, then the result is trimmed.
func (m *Marks) Remove(text string) string {
	marks := m.Matches(text)
	if len(marks) == 0 {
		return strings.TrimSpace(text)
	}

	var b strings.Builder
	b.Grow(len(text))
	prev := 0
	for _, mark := range marks {
		b.WriteString(text[prev:mark.Offset])
		b.WriteByte(' ')
		prev = mark.Offset + len(mark.Text)
	}
	b.WriteString(text[prev:])
	return strings.TrimSpace(b.String())
}

// RemoveAll applies Remove to every unit.
func (m *Marks) RemoveAll(units []string) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = m.Remove(u)
	}
	return out
}
