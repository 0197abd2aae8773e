package triage

import (
	"strings"
	"unicode"
)

// Category is the coarse label assigned to a message.
type Category string

const (
	CategoryUrgent   Category = "URGENT"
	CategoryWork     Category = "WORK"
	CategoryPersonal Category = "PERSONAL"
	CategorySpam     Category = "SPAM"
	CategoryUnknown  Category = "UNKNOWN"
)

// Categories lists the labels a classification can produce, excluding the
// UNKNOWN fallback.
var Categories = []Category{CategoryUrgent, CategoryWork, CategoryPersonal, CategorySpam}

// ParseCategory normalises a model response to a Category: the first known
// label appearing as a word wins, otherwise UNKNOWN.
func ParseCategory(s string) Category {
	words := strings.FieldsFunc(strings.ToUpper(strings.TrimSpace(s)), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		for _, c := range Categories {
			if w == string(c) {
				return c
			}
		}
	}
	return CategoryUnknown
}

// Valid reports whether c is one of the known labels.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }
