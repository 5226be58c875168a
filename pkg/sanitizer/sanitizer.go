package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastWasSpace = false
	}
	return b.String()
}

// SanitizeName keeps the caller's casing; names are matched exactly on lookup.
func SanitizeName(input string) string {
	p := Pipeline{
		strings.TrimSpace,
		collapseSpaces,
	}
	return p.Apply(input)
}

func SanitizeStationCode(input string) string {
	p := Pipeline{
		strings.TrimSpace,
		strings.ToUpper,
	}
	return p.Apply(input)
}
