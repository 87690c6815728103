// Package route picks connector attachment sides for pairs of shapes. The
// router is recomputed on every render instead of cached, so it must be pure
// and deterministic for identical inputs.
package route

import (
	"math"

	"github.com/draftboard-io/draftboard/pkg/geo"
)

// Side is a connector attachment side on a shape's bounding box.
type Side string

const (
	SideTop    Side = "top"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
	SideRight  Side = "right"
)

// Valid reports whether s is one of the four attachment sides.
func (s Side) Valid() bool {
	switch s {
	case SideTop, SideBottom, SideLeft, SideRight:
		return true
	}
	return false
}

// Opposite returns the geometrically opposite side.
func (s Side) Opposite() Side {
	switch s {
	case SideTop:
		return SideBottom
	case SideBottom:
		return SideTop
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	}
	return s
}

// Handles is the attachment side pair chosen for one connection.
type Handles struct {
	Source Side `json:"source"`
	Target Side `json:"target"`
}

// ChooseHandles derives the attachment sides for a connection from source to
// target. The dominant axis of the center-to-center delta wins; the vertical
// branch requires |dy| strictly greater than |dx|, so exact ties and coincident
// shapes fall through to the horizontal branch and still yield a fixed pair.
func ChooseHandles(source, target geo.Rect) Handles {
	d := geo.Direction(source, target)
	if math.Abs(d.DY) > math.Abs(d.DX) {
		if d.DY > 0 {
			return Handles{Source: SideBottom, Target: SideTop}
		}
		return Handles{Source: SideTop, Target: SideBottom}
	}
	if d.DX > 0 {
		return Handles{Source: SideRight, Target: SideLeft}
	}
	return Handles{Source: SideLeft, Target: SideRight}
}
