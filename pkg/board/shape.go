package board

import (
	"strings"

	"github.com/google/uuid"

	"github.com/draftboard-io/draftboard/pkg/geo"
	"github.com/draftboard-io/draftboard/pkg/route"
)

// Shape is one diagram element. Shapes are owned by the board store; edits go
// through the store by replacing the whole pointer, never by mutating a shape
// that is already part of a published state (history snapshots alias them).
type Shape struct {
	ID    string         `json:"id"`
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	W     float64        `json:"w"`
	H     float64        `json:"h"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// NewShape returns a shape with a fresh id and its own attrs map.
func NewShape(x, y, w, h float64) *Shape {
	return &Shape{ID: uuid.NewString(), X: x, Y: y, W: w, H: h, Attrs: map[string]any{}}
}

// Rect returns the shape's rectangle for geometry/routing.
func (s *Shape) Rect() geo.Rect {
	if s == nil {
		return geo.Rect{}
	}
	return geo.Rect{X: s.X, Y: s.Y, W: s.W, H: s.H}
}

// Clone returns a deep copy suitable for edit-then-put mutation.
func (s *Shape) Clone() *Shape {
	if s == nil {
		return nil
	}
	out := *s
	if s.Attrs != nil {
		out.Attrs = make(map[string]any, len(s.Attrs))
		for k, v := range s.Attrs {
			out.Attrs[k] = v
		}
	}
	return &out
}

// Connection links two shapes by id. Endpoints are weak references; the store
// cascade-deletes connections whenever an endpoint shape is removed.
type Connection struct {
	ID         string     `json:"id"`
	SourceID   string     `json:"sourceId"`
	TargetID   string     `json:"targetId"`
	SourceSide route.Side `json:"sourceSide,omitempty"`
	TargetSide route.Side `json:"targetSide,omitempty"`
	Label      string     `json:"label,omitempty"`
	Path       []geo.Delta `json:"path,omitempty"`
}

// NewConnection returns a connection with a fresh id and no explicit sides;
// the store derives sides via the router when they are left empty.
func NewConnection(sourceID, targetID string) *Connection {
	return &Connection{
		ID:       uuid.NewString(),
		SourceID: strings.TrimSpace(sourceID),
		TargetID: strings.TrimSpace(targetID),
	}
}

// Clone returns a copy suitable for edit-then-put mutation.
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}
	out := *c
	if c.Path != nil {
		out.Path = append([]geo.Delta(nil), c.Path...)
	}
	return &out
}

// References reports whether the connection touches the given shape id at
// either endpoint.
func (c *Connection) References(shapeID string) bool {
	if c == nil {
		return false
	}
	return c.SourceID == shapeID || c.TargetID == shapeID
}
