// Package state holds the mutation transforms of the domain store. Every
// transform takes the current state and returns the next one without
// touching its input: slices that change are copied, the rest are shared.
package state

import (
	"slices"
	"time"

	"github.com/STARREPORTS/internal/types"
)

// IDFunc mints a new unique id.
type IDFunc func() string

// touch returns the next updated_at value. It is always strictly after prev,
// even when the wall clock stalls or steps back.
func touch(prev, now time.Time) time.Time {
	now = now.UTC().Round(0)
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Nanosecond)
}

// with returns a shallow copy of s for the caller to replace one collection on.
func with(s *types.State) *types.State {
	next := *s
	return &next
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}

// replaceAt copies items and applies fn to the copy of element i.
func replaceAt[T any](items []T, i int, fn func(*T)) []T {
	out := slices.Clone(items)
	fn(&out[i])
	return out
}

func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func appendTo[T any](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setSlice[T any](dst *[]T, src *[]T) {
	if src != nil {
		*dst = slices.Clone(*src)
	}
}
