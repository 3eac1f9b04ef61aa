package search

import "strings"

// Filter narrows the candidate set before ranking. Both fields are
// exact-match, empty means no constraint.
type Filter struct {
	District string
	Category string
}

// Normalize trims the filter values.
func (f Filter) Normalize() Filter {
	return Filter{
		District: strings.TrimSpace(f.District),
		Category: strings.TrimSpace(f.Category),
	}
}

// Empty reports whether the filter constrains anything.
func (f Filter) Empty() bool {
	return f.District == "" && f.Category == ""
}
