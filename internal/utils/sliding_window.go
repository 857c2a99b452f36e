package utils

import (
	"slices"
	"time"
)

type windowEntry[T any] struct {
	value T
	at    time.Time
}

// Window keeps timestamped entries for one key. Entries at or before
// now-width are dropped on every access. It does no locking; the owner
// serializes access.
type Window[T any] struct {
	width   time.Duration
	entries []windowEntry[T]
}

func NewWindow[T any](width time.Duration) *Window[T] {
	return &Window[T]{width: width}
}

// SetWidth changes the width used by later prunes. Guild configuration may
// change between events.
func (w *Window[T]) SetWidth(width time.Duration) {
	if width > 0 {
		w.width = width
	}
}

// Add prunes, records value at now and returns the resulting size. Entries
// stay ordered by time even when now is earlier than the newest entry.
func (w *Window[T]) Add(value T, now time.Time) int {
	w.prune(now)
	i := len(w.entries)
	for i > 0 && w.entries[i-1].at.After(now) {
		i--
	}
	w.entries = slices.Insert(w.entries, i, windowEntry[T]{value: value, at: now})
	return len(w.entries)
}

// Prune drops expired entries and returns how many remain.
func (w *Window[T]) Prune(now time.Time) int {
	w.prune(now)
	return len(w.entries)
}

func (w *Window[T]) Len() int {
	return len(w.entries)
}

// CountFunc counts retained entries whose value satisfies match.
func (w *Window[T]) CountFunc(match func(T) bool) int {
	count := 0
	for _, entry := range w.entries {
		if match(entry.value) {
			count++
		}
	}
	return count
}

func (w *Window[T]) Clear() {
	w.entries = nil
}

func (w *Window[T]) prune(now time.Time) {
	cutoff := now.Add(-w.width)
	idx := 0
	for _, entry := range w.entries {
		if entry.at.After(cutoff) {
			break
		}
		idx++
	}
	if idx == 0 {
		return
	}
	if idx == len(w.entries) {
		w.entries = nil
		return
	}
	w.entries = append(w.entries[:0:0], w.entries[idx:]...)
}
