// Package board owns the mutable diagram state. A single Store holds the
// current (shapes, connections) pair and publishes every committed state to
// subscribers, so history recording and persistence react to explicit
// notifications instead of reading ambient globals.
//
// Mutations copy the container slices and replace element pointers. Untouched
// elements keep their identity across states, which is what makes history
// snapshots cheap to take and cheap to compare.
package board

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/draftboard-io/draftboard/pkg/route"
)

// Origin says what kind of actor committed a mutation. History recording
// skips replay origins so undo/redo application is not itself re-recorded.
type Origin string

const (
	OriginUser   Origin = "user"
	OriginTool   Origin = "tool"
	OriginReplay Origin = "replay"
	OriginLoad   Origin = "load"
)

// State is an immutable snapshot of the diagram. The slices are never mutated
// after publication; elements are shared between consecutive states.
type State struct {
	Shapes      []*Shape
	Connections []*Connection
}

// Shape returns the shape with the given id, if present.
func (st State) Shape(id string) (*Shape, bool) {
	for _, s := range st.Shapes {
		if s != nil && s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Connection returns the connection with the given id, if present.
func (st State) Connection(id string) (*Connection, bool) {
	for _, c := range st.Connections {
		if c != nil && c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Subscriber receives every committed state together with its origin.
// Callbacks run synchronously on the mutating goroutine, in subscription
// order, after the store lock is released.
type Subscriber func(st State, origin Origin)

// Store is the single owner of diagram state.
type Store struct {
	mu    sync.RWMutex
	state State
	subs  []Subscriber
}

func NewStore() *Store {
	return &Store{}
}

// State returns the current snapshot. The result must be treated as
// read-only; it shares elements with the live state.
func (s *Store) State() State {
	if s == nil {
		return State{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers a subscriber for committed states. There is no
// unsubscribe; subscribers live as long as the store.
func (s *Store) Subscribe(fn Subscriber) {
	if s == nil || fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// PutShape inserts the shape or replaces the shape with the same id. The
// shape pointer is owned by the store afterwards; callers who want to keep
// editing must Clone first.
func (s *Store) PutShape(sh *Shape, origin Origin) error {
	if s == nil {
		return errors.New("board store: nil store")
	}
	if sh == nil {
		return errors.New("board store: shape is nil")
	}
	if strings.TrimSpace(sh.ID) == "" {
		return errors.New("board store: shape id is empty")
	}

	s.mu.Lock()
	next := State{
		Shapes:      make([]*Shape, 0, len(s.state.Shapes)+1),
		Connections: s.state.Connections,
	}
	replaced := false
	for _, existing := range s.state.Shapes {
		if existing != nil && existing.ID == sh.ID {
			next.Shapes = append(next.Shapes, sh)
			replaced = true
			continue
		}
		next.Shapes = append(next.Shapes, existing)
	}
	if !replaced {
		next.Shapes = append(next.Shapes, sh)
	}
	s.state = next
	subs := s.subs
	s.mu.Unlock()

	s.notify(subs, next, origin)
	return nil
}

// DeleteShapes removes the given shapes and cascade-filters every connection
// that references any of them. After the commit no connection references a
// removed shape.
func (s *Store) DeleteShapes(origin Origin, ids ...string) error {
	if s == nil {
		return errors.New("board store: nil store")
	}
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	s.mu.Lock()
	next := State{
		Shapes:      make([]*Shape, 0, len(s.state.Shapes)),
		Connections: make([]*Connection, 0, len(s.state.Connections)),
	}
	removedShapes := 0
	for _, sh := range s.state.Shapes {
		if sh != nil {
			if _, gone := drop[sh.ID]; gone {
				removedShapes++
				continue
			}
		}
		next.Shapes = append(next.Shapes, sh)
	}
	removedConns := 0
	for _, c := range s.state.Connections {
		if c != nil {
			if _, gone := drop[c.SourceID]; gone {
				removedConns++
				continue
			}
			if _, gone := drop[c.TargetID]; gone {
				removedConns++
				continue
			}
		}
		next.Connections = append(next.Connections, c)
	}
	s.state = next
	subs := s.subs
	s.mu.Unlock()

	if removedConns > 0 {
		log.Debug().Int("shapes", removedShapes).Int("connections", removedConns).Msg("cascade-deleted dependent connections")
	}
	s.notify(subs, next, origin)
	return nil
}

// PutConnection inserts or replaces a connection. Both endpoints must exist;
// dangling references are rejected at the mutation boundary rather than
// surfacing later. Any attachment side left unset is derived from the endpoint
// geometry by the router.
func (s *Store) PutConnection(c *Connection, origin Origin) error {
	if s == nil {
		return errors.New("board store: nil store")
	}
	if c == nil {
		return errors.New("board store: connection is nil")
	}
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("board store: connection id is empty")
	}

	s.mu.Lock()
	src, okSrc := s.state.Shape(c.SourceID)
	dst, okDst := s.state.Shape(c.TargetID)
	if !okSrc || !okDst {
		s.mu.Unlock()
		return errors.Errorf("board store: connection %s references missing shape", c.ID)
	}
	if !c.SourceSide.Valid() || !c.TargetSide.Valid() {
		h := route.ChooseHandles(src.Rect(), dst.Rect())
		if !c.SourceSide.Valid() {
			c.SourceSide = h.Source
		}
		if !c.TargetSide.Valid() {
			c.TargetSide = h.Target
		}
	}
	next := State{
		Shapes:      s.state.Shapes,
		Connections: make([]*Connection, 0, len(s.state.Connections)+1),
	}
	replaced := false
	for _, existing := range s.state.Connections {
		if existing != nil && existing.ID == c.ID {
			next.Connections = append(next.Connections, c)
			replaced = true
			continue
		}
		next.Connections = append(next.Connections, existing)
	}
	if !replaced {
		next.Connections = append(next.Connections, c)
	}
	s.state = next
	subs := s.subs
	s.mu.Unlock()

	s.notify(subs, next, origin)
	return nil
}

// DeleteConnection removes a connection by id. Deleting a connection that
// does not exist is a no-op.
func (s *Store) DeleteConnection(id string, origin Origin) error {
	if s == nil {
		return errors.New("board store: nil store")
	}

	s.mu.Lock()
	next := State{
		Shapes:      s.state.Shapes,
		Connections: make([]*Connection, 0, len(s.state.Connections)),
	}
	removed := false
	for _, c := range s.state.Connections {
		if c != nil && c.ID == id {
			removed = true
			continue
		}
		next.Connections = append(next.Connections, c)
	}
	if !removed {
		s.mu.Unlock()
		return nil
	}
	s.state = next
	subs := s.subs
	s.mu.Unlock()

	s.notify(subs, next, origin)
	return nil
}

// Clear empties the board.
func (s *Store) Clear(origin Origin) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.state = State{}
	next := s.state
	subs := s.subs
	s.mu.Unlock()
	s.notify(subs, next, origin)
}

// Replace swaps in a complete state. Used by undo/redo replay (OriginReplay)
// and by loads. The invariant check still applies: connections referencing
// missing shapes are dropped rather than installed.
func (s *Store) Replace(st State, origin Origin) {
	if s == nil {
		return
	}
	known := make(map[string]struct{}, len(st.Shapes))
	for _, sh := range st.Shapes {
		if sh != nil {
			known[sh.ID] = struct{}{}
		}
	}
	conns := make([]*Connection, 0, len(st.Connections))
	for _, c := range st.Connections {
		if c == nil {
			continue
		}
		if _, ok := known[c.SourceID]; !ok {
			continue
		}
		if _, ok := known[c.TargetID]; !ok {
			continue
		}
		conns = append(conns, c)
	}
	st.Connections = conns

	s.mu.Lock()
	s.state = st
	subs := s.subs
	s.mu.Unlock()
	s.notify(subs, st, origin)
}

func (s *Store) notify(subs []Subscriber, st State, origin Origin) {
	for _, fn := range subs {
		if fn != nil {
			fn(st, origin)
		}
	}
}
