package domain

import "slices"

// Selection is a submitted answer, addressed either by option index or by value.
type Selection struct {
	index   int
	value   string
	byValue bool
}

// SelectIndex picks the option at position i.
func SelectIndex(i int) Selection { return Selection{index: i} }

// SelectValue picks the option whose text equals v.
func SelectValue(v string) Selection { return Selection{value: v, byValue: true} }

// Resolve returns the option text the selection refers to.
func (s Selection) Resolve(q Question) (string, error) {
	if s.byValue {
		if !slices.Contains(q.Options, s.value) {
			return "", ErrInvalidOption
		}
		return s.value, nil
	}
	if s.index < 0 || s.index >= len(q.Options) {
		return "", ErrInvalidOption
	}
	return q.Options[s.index], nil
}
