// Package text turns raw input into the text units handed to the
// punctuation pipeline.
package text

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// ErrUnknownForm is returned for an unsupported Unicode normalization form.
var ErrUnknownForm = errors.New("unknown normalization form")

// Normalize trims surrounding whitespace, normalizes line endings to \n and
// rejects empty or whitespace-only input.
func Normalize(s string) (string, error) {
	s = normalizeLineEndings(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyText
	}
	return s, nil
}

// SplitUnits splits s into one unit per line. Line endings are normalized
// first; blank lines are kept so unit indexes match input line numbers, but
// trailing blank lines are dropped.
func SplitUnits(s string) []string {
	s = normalizeLineEndings(s)
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Form names a Unicode normalization form. FormNone leaves text untouched.
type Form string

const (
	FormNone Form = "none"
	FormNFC  Form = "nfc"
	FormNFD  Form = "nfd"
	FormNFKC Form = "nfkc"
	FormNFKD Form = "nfkd"
)

// ParseForm converts a config string to a Form. An empty string is FormNone.
func ParseForm(s string) (Form, error) {
	f := Form(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return FormNone, nil
	case FormNone, FormNFC, FormNFD, FormNFKC, FormNFKD:
		return f, nil
	default:
		return FormNone, fmt.Errorf("%w %q (want none|nfc|nfd|nfkc|nfkd)", ErrUnknownForm, s)
	}
}

// NormalizeUnicode rewrites every unit into form. Compatibility forms fold
// marks as well ("…" becomes "..."), so the mark set must list folded marks.
func NormalizeUnicode(units []string, form Form) []string {
	var f norm.Form
	switch form {
	case FormNFC:
		f = norm.NFC
	case FormNFD:
		f = norm.NFD
	case FormNFKC:
		f = norm.NFKC
	case FormNFKD:
		f = norm.NFKD
	default:
		return units
	}

	out := make([]string, len(units))
	for i, u := range units {
		out[i] = f.String(u)
	}
	return out
}

// normalizeLineEndings rewrites CRLF and bare CR as LF.
func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
