// Package diff computes identity-keyed edit scripts between two ordered
// lists.
//
// Every operation index refers to the list as it stands after all earlier
// operations of the script have been applied.
package diff

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrAmbiguous is returned when an identity key occurs twice in one list.
var ErrAmbiguous = errors.New("diff: duplicate item identity")

// Kind is the type of an edit operation.
type Kind int

const (
	Add Kind = iota
	Remove
	Replace
	Move
)

func (k Kind) String() string {
	switch k {
	case Add:
		return "add"
	case Remove:
		return "remove"
	case Replace:
		return "replace"
	case Move:
		return "move"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Item is implemented by list elements. Two items share an identity when
// their keys intersect; Equal compares content.
type Item[T any] interface {
	Keys() []string
	Equal(T) bool
}

// Op is one edit operation. Move removes the item at OldIndex and inserts
// Item at Index of the shortened list. For Remove, Item is the removed
// element; for the other kinds it is the new content.
type Op[T any] struct {
	Kind     Kind
	Index    int
	OldIndex int
	Item     T
}

func (o Op[T]) String() string {
	if o.Kind == Move {
		return fmt.Sprintf("move(%d->%d)", o.OldIndex, o.Index)
	}
	return fmt.Sprintf("%s(%d)", o.Kind, o.Index)
}

// Calculate returns the operations turning prev into next. Items are matched
// by identity; the longest run of matched items that keeps its relative order
// stays in place, every other matched item is moved. Content changes of
// matched items are reported as Replace, or carried by their Move.
func Calculate[T Item[T]](prev, next []T) ([]Op[T], error) {
	prevByKey, err := index(prev)
	if err != nil {
		return nil, err
	}
	if _, err := index(next); err != nil {
		return nil, err
	}

	// match[j] is the prev index paired with next[j], or -1.
	match := make([]int, len(next))
	taken := make([]bool, len(prev))
	for j, it := range next {
		match[j] = -1
		best := -1
		for _, k := range it.Keys() {
			if i, ok := prevByKey[k]; ok && !taken[i] && (best < 0 || i < best) {
				best = i
			}
		}
		if best >= 0 {
			match[j] = best
			taken[best] = true
		}
	}

	paired := make([]int, len(prev)) // next index per prev index, or -1
	for i := range paired {
		paired[i] = -1
	}
	for j, i := range match {
		if i >= 0 {
			paired[i] = j
		}
	}

	var ops []Op[T]

	// Removals, highest index first so lower indices stay valid.
	for i := len(prev) - 1; i >= 0; i-- {
		if paired[i] < 0 {
			ops = append(ops, Op[T]{Kind: Remove, Index: i, Item: prev[i]})
		}
	}

	// cur holds the next index of every element of the evolving list.
	var cur []int
	for _, j := range paired {
		if j >= 0 {
			cur = append(cur, j)
		}
	}
	anchor := make([]bool, len(next))
	for _, j := range longestIncreasing(cur) {
		anchor[j] = true
	}

	for j, it := range next {
		target := 0
		if j > 0 {
			target = slices.Index(cur, j-1) + 1
		}

		if match[j] < 0 {
			cur = slices.Insert(cur, target, j)
			ops = append(ops, Op[T]{Kind: Add, Index: target, Item: it})
			continue
		}

		pos := slices.Index(cur, j)
		if anchor[j] || pos == target {
			if !prev[match[j]].Equal(it) {
				ops = append(ops, Op[T]{Kind: Replace, Index: pos, Item: it})
			}
			continue
		}

		if pos < target {
			target--
		}
		cur = slices.Delete(cur, pos, pos+1)
		cur = slices.Insert(cur, target, j)
		ops = append(ops, Op[T]{Kind: Move, OldIndex: pos, Index: target, Item: it})
	}

	return ops, nil
}

func index[T Item[T]](items []T) (map[string]int, error) {
	byKey := make(map[string]int)
	for i, it := range items {
		for _, k := range it.Keys() {
			if _, dup := byKey[k]; dup {
				return nil, fmt.Errorf("%w: %q", ErrAmbiguous, k)
			}
			byKey[k] = i
		}
	}
	return byKey, nil
}

// longestIncreasing returns the values of a longest strictly increasing
// subsequence of vals.
func longestIncreasing(vals []int) []int {
	var tails []int // indices into vals
	prev := make([]int, len(vals))
	for i, v := range vals {
		k := sort.Search(len(tails), func(n int) bool { return vals[tails[n]] >= v })
		prev[i] = -1
		if k > 0 {
			prev[i] = tails[k-1]
		}
		if k == len(tails) {
			tails = append(tails, i)
		} else {
			tails[k] = i
		}
	}
	if len(tails) == 0 {
		return nil
	}

	out := make([]int, len(tails))
	for n, i := len(tails)-1, tails[len(tails)-1]; n >= 0; n, i = n-1, prev[i] {
		out[n] = vals[i]
	}
	return out
}

// Apply replays ops on a copy of list.
func Apply[T any](list []T, ops []Op[T]) ([]T, error) {
	out := slices.Clone(list)
	for n, op := range ops {
		switch op.Kind {
		case Add:
			if op.Index < 0 || op.Index > len(out) {
				return nil, fmt.Errorf("op %d %s: index out of range [0,%d]", n, op, len(out))
			}
			out = slices.Insert(out, op.Index, op.Item)
		case Remove:
			if op.Index < 0 || op.Index >= len(out) {
				return nil, fmt.Errorf("op %d %s: index out of range [0,%d)", n, op, len(out))
			}
			out = slices.Delete(out, op.Index, op.Index+1)
		case Replace:
			if op.Index < 0 || op.Index >= len(out) {
				return nil, fmt.Errorf("op %d %s: index out of range [0,%d)", n, op, len(out))
			}
			out[op.Index] = op.Item
		case Move:
			if op.OldIndex < 0 || op.OldIndex >= len(out) || op.Index < 0 || op.Index >= len(out) {
				return nil, fmt.Errorf("op %d %s: index out of range [0,%d)", n, op, len(out))
			}
			out = slices.Delete(out, op.OldIndex, op.OldIndex+1)
			out = slices.Insert(out, op.Index, op.Item)
		default:
			return nil, fmt.Errorf("op %d: unknown kind %s", n, op.Kind)
		}
	}
	return out, nil
}
