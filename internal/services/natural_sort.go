package services

import (
	"cmp"
	"regexp"
	"strings"
)

var firstNumberRegex = regexp.MustCompile(`[0-9]+`)

// NaturalKey orders filenames by the first run of digits they contain.
// Names without digits sort after every numbered name.
type NaturalKey struct {
	HasNumber bool
	digits    string // leading zeros stripped, "0" for an all-zero run
	Name      string
}

// NewNaturalKey derives the sort key for a filename.
// e.g. "IMG_4169.png" -> (4169, "IMG_4169.png"), "cover.png" -> (+inf, "cover.png")
func NewNaturalKey(name string) NaturalKey {
	run := firstNumberRegex.FindString(name)
	if run == "" {
		return NaturalKey{Name: name}
	}
	digits := strings.TrimLeft(run, "0")
	if digits == "" {
		digits = "0"
	}
	return NaturalKey{HasNumber: true, digits: digits, Name: name}
}

// Compare returns -1, 0 or +1. Numbers compare by value regardless of length,
// so "2" sorts before "10".
func (k NaturalKey) Compare(o NaturalKey) int {
	if k.HasNumber != o.HasNumber {
		if k.HasNumber {
			return -1
		}
		return 1
	}
	if k.HasNumber {
		if c := cmp.Compare(len(k.digits), len(o.digits)); c != 0 {
			return c
		}
		if c := strings.Compare(k.digits, o.digits); c != 0 {
			return c
		}
	}
	return strings.Compare(k.Name, o.Name)
}

// CompareNatural compares two filenames by their natural keys.
func CompareNatural(a, b string) int {
	return NewNaturalKey(a).Compare(NewNaturalKey(b))
}
