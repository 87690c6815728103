// Package history keeps a bounded, linear undo log of diagram snapshots.
// Entries share their elements with the live board state; only the container
// slices are copied, so taking a snapshot on every edit stays cheap.
package history

import (
	"github.com/draftboard-io/draftboard/pkg/board"
)

// DefaultCapacity bounds the log when no explicit capacity is configured.
const DefaultCapacity = 50

// Entry is one immutable snapshot of (shapes, connections).
type Entry struct {
	Shapes      []*board.Shape
	Connections []*board.Connection
}

// State converts the entry back to a board state for replay.
func (e Entry) State() board.State {
	return board.State{Shapes: e.Shapes, Connections: e.Connections}
}

// sameEntry compares two entries by reference-equality per element. This is
// intentional: the board replaces pointers on every real edit, so two entries
// with identical pointers describe the same state without a deep walk.
func sameEntry(a, b Entry) bool {
	if len(a.Shapes) != len(b.Shapes) || len(a.Connections) != len(b.Connections) {
		return false
	}
	for i := range a.Shapes {
		if a.Shapes[i] != b.Shapes[i] {
			return false
		}
	}
	for i := range a.Connections {
		if a.Connections[i] != b.Connections[i] {
			return false
		}
	}
	return true
}

// Log is an ordered, bounded sequence of entries plus a cursor. The cursor is
// always a valid index once the first entry is recorded.
type Log struct {
	entries  []Entry
	cursor   int
	capacity int
}

// NewLog returns an empty log. Non-positive capacities fall back to
// DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, cursor: -1}
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Cursor returns the current cursor index, or -1 before the first record.
func (l *Log) Cursor() int {
	if l == nil {
		return -1
	}
	return l.cursor
}

// Current returns the entry at the cursor.
func (l *Log) Current() (Entry, bool) {
	if l == nil || l.cursor < 0 || l.cursor >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[l.cursor], true
}

// Record snapshots the given state. A snapshot identical (per-element
// reference equality) to the entry under the cursor is dropped, so no-op
// mutations never grow the log. A real edit discards any redo branch, appends,
// and advances the cursor; when capacity is exceeded the oldest entry is
// evicted so retained indices stay stable relative to the cursor.
//
// Record reports whether a new entry was retained.
func (l *Log) Record(shapes []*board.Shape, connections []*board.Connection) bool {
	if l == nil {
		return false
	}
	entry := Entry{
		Shapes:      append([]*board.Shape(nil), shapes...),
		Connections: append([]*board.Connection(nil), connections...),
	}
	if current, ok := l.Current(); ok && sameEntry(current, entry) {
		return false
	}

	// Discard the redo branch: linear history, not a tree.
	l.entries = append(l.entries[:l.cursor+1], entry)
	l.cursor++
	if len(l.entries) > l.capacity {
		l.entries = l.entries[1:]
		l.cursor--
	}
	return true
}

// Undo moves the cursor back one entry. The second return is false when the
// log is already at the beginning (or empty).
func (l *Log) Undo() (Entry, bool) {
	if l == nil || l.cursor <= 0 {
		return Entry{}, false
	}
	l.cursor--
	return l.entries[l.cursor], true
}

// Redo moves the cursor forward one entry. The second return is false when
// the log is already at the end.
func (l *Log) Redo() (Entry, bool) {
	if l == nil || l.cursor < 0 || l.cursor >= len(l.entries)-1 {
		return Entry{}, false
	}
	l.cursor++
	return l.entries[l.cursor], true
}

// CanUndo reports whether Undo would move the cursor.
func (l *Log) CanUndo() bool { return l != nil && l.cursor > 0 }

// CanRedo reports whether Redo would move the cursor.
func (l *Log) CanRedo() bool { return l != nil && l.cursor >= 0 && l.cursor < len(l.entries)-1 }
