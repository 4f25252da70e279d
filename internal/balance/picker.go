// Package balance picks one of several equivalent backends.
package balance

import (
	"errors"
	"math/rand/v2"
)

// ErrEmpty is returned when there is nothing to pick from
var ErrEmpty = errors.New("balance: no candidates")

// Picker chooses uniformly at random among a fixed set of candidates.
// The set is immutable after construction, so a Picker is safe for concurrent use.
type Picker[T any] struct {
	items []T
}

// NewPicker creates a picker over a copy of items
func NewPicker[T any](items []T) (*Picker[T], error) {
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	return &Picker[T]{items: append([]T(nil), items...)}, nil
}

// Pick returns one candidate chosen uniformly at random
func (p *Picker[T]) Pick() T {
	return p.items[rand.IntN(len(p.items))]
}

// Len returns the number of candidates
func (p *Picker[T]) Len() int {
	return len(p.items)
}

// All returns a copy of the candidates
func (p *Picker[T]) All() []T {
	return append([]T(nil), p.items...)
}
