// Package geo holds the small amount of pure geometry the board and the
// connector router share. Everything here is side-effect free.
package geo

// Rect is an axis-aligned rectangle in board coordinates. Width and height may
// be zero or negative (shapes being dragged inside-out); Bounds normalizes.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Bounds is a normalized bounding box with MinX <= MaxX and MinY <= MaxY.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Delta is a center-to-center offset between two rectangles.
type Delta struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// BoundsOf normalizes a rect into a bounding box, per axis, so callers never
// see an inverted box even while a shape has negative extent.
func BoundsOf(r Rect) Bounds {
	b := Bounds{MinX: r.X, MinY: r.Y, MaxX: r.X + r.W, MaxY: r.Y + r.H}
	if b.MaxX < b.MinX {
		b.MinX, b.MaxX = b.MaxX, b.MinX
	}
	if b.MaxY < b.MinY {
		b.MinY, b.MaxY = b.MaxY, b.MinY
	}
	return b
}

// Center returns the midpoint of the normalized box.
func (b Bounds) Center() (float64, float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Width returns MaxX - MinX.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns MaxY - MinY.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Direction returns the center-to-center delta from a to b.
func Direction(a, b Rect) Delta {
	ax, ay := BoundsOf(a).Center()
	bx, by := BoundsOf(b).Center()
	return Delta{DX: bx - ax, DY: by - ay}
}
