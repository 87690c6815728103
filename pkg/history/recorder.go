package history

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/draftboard-io/draftboard/pkg/board"
)

// Recorder ties a Log to a board store: it records every committed state
// except replay commits, and applies undo/redo entries back to the store under
// the replay origin so they are not re-recorded.
type Recorder struct {
	mu    sync.Mutex
	log   *Log
	store *board.Store
}

// NewRecorder attaches a recorder to the store and records the current state
// unconditionally as the initial entry, establishing cursor 0.
func NewRecorder(store *board.Store, capacity int) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("history recorder: store is nil")
	}
	r := &Recorder{log: NewLog(capacity), store: store}

	st := store.State()
	r.log.Record(st.Shapes, st.Connections)

	store.Subscribe(func(st board.State, origin board.Origin) {
		if origin == board.OriginReplay {
			return
		}
		r.mu.Lock()
		recorded := r.log.Record(st.Shapes, st.Connections)
		r.mu.Unlock()
		if recorded {
			log.Trace().Str("origin", string(origin)).Int("entries", r.Len()).Msg("history snapshot recorded")
		}
	})
	return r, nil
}

// Len returns the number of retained entries.
func (r *Recorder) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.Len()
}

// CanUndo reports whether an undo step is available.
func (r *Recorder) CanUndo() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.CanUndo()
}

// CanRedo reports whether a redo step is available.
func (r *Recorder) CanRedo() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.CanRedo()
}

// Undo steps the log back and replays the resulting entry onto the store.
// Returns false when already at the beginning.
func (r *Recorder) Undo() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	entry, ok := r.log.Undo()
	r.mu.Unlock()
	if !ok {
		return false
	}
	r.store.Replace(entry.State(), board.OriginReplay)
	return true
}

// Redo steps the log forward and replays the resulting entry onto the store.
// Returns false when already at the end.
func (r *Recorder) Redo() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	entry, ok := r.log.Redo()
	r.mu.Unlock()
	if !ok {
		return false
	}
	r.store.Replace(entry.State(), board.OriginReplay)
	return true
}
