// Package separator describes the token delimiters a phonemization backend
// writes between phones, syllables and words.
package separator

import (
	"errors"
	"fmt"
)

// ErrInvalidSeparator is returned when two non-empty separators are equal.
var ErrInvalidSeparator = errors.New("invalid separator")

// Separator holds the phone, syllable and word delimiters of a backend output.
// An empty field means the backend does not emit that delimiter.
type Separator struct {
	Phone    string `json:"phone" yaml:"phone" mapstructure:"phone"`
	Syllable string `json:"syllable" yaml:"syllable" mapstructure:"syllable"`
	Word     string `json:"word" yaml:"word" mapstructure:"word"`
}

// Default returns the separator used when none is configured: words are
// delimited by a single space, phones and syllables are not delimited.
func Default() Separator {
	return Separator{Phone: "", Syllable: "", Word: " "}
}

// New builds a validated Separator.
func New(phone, syllable, word string) (Separator, error) {
	s := Separator{Phone: phone, Syllable: syllable, Word: word}
	if err := s.Validate(); err != nil {
		return Separator{}, err
	}
	return s, nil
}

// Validate rejects separators whose non-empty fields are not pairwise distinct.
func (s Separator) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"phone", s.Phone},
		{"syllable", s.Syllable},
		{"word", s.Word},
	}
	for i := range fields {
		if fields[i].value == "" {
			continue
		}
		for j := i + 1; j < len(fields); j++ {
			if fields[i].value == fields[j].value {
				return fmt.Errorf("%w: %s and %s separators are both %q",
					ErrInvalidSeparator, fields[i].name, fields[j].name, fields[i].value)
			}
		}
	}
	return nil
}

func (s Separator) String() string {
	return fmt.Sprintf("(phone: %q, syllable: %q, word: %q)", s.Phone, s.Syllable, s.Word)
}
