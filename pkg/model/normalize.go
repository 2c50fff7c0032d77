package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Digits narrows full-width characters and drops everything that is not an
// ASCII digit, so "〒１２３-４５６７" becomes "1234567".
func Digits(value string) string {
	narrowed := width.Narrow.String(value)
	var b strings.Builder
	b.Grow(len(narrowed))
	for _, r := range narrowed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PlainText drops control characters other than newlines and tabs. Every
// other character the user typed is kept, markup included.
func PlainText(value string) string {
	if strings.IndexFunc(value, isStray) < 0 {
		return value
	}
	return strings.Map(func(r rune) rune {
		if isStray(r) {
			return -1
		}
		return r
	}, value)
}

func isStray(r rune) bool {
	return r != '\n' && r != '\t' && unicode.IsControl(r)
}

// Normalize applies the per-field input rules: postal codes keep digits only,
// phone numbers are narrowed and trimmed, free text loses control characters.
func Normalize(key FieldKey, value string) string {
	field, ok := Lookup(key)
	if !ok {
		return value
	}
	switch field.Kind {
	case KindPostal:
		return Digits(value)
	case KindSelect, KindDateTime:
		return strings.TrimSpace(value)
	}
	if key == FieldPhone {
		return strings.TrimFunc(width.Narrow.String(value), unicode.IsSpace)
	}
	return PlainText(value)
}
