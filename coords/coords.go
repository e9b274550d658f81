// Package coords converts between on-screen highlight rectangles and the
// scale-independent coordinates stored for them.
//
// Normalized x values are fractions of the page width in [0, 1].
// Normalized y values encode the page as well: the integer part is the
// 1-based page number, the fractional part is the fraction of the page
// height, clamped to [0, MaxFraction] so it can never roll over into the
// next page.
package coords

import (
	"math"

	"github.com/abiiranathan/pdfhighlight/layer"
)

// MaxFraction is the largest fractional y a coordinate may carry.
const MaxFraction = 0.999

// Normalized is a rectangle in page-normalized coordinates.
type Normalized struct {
	StartX float64 `json:"normalizedStartX"`
	StartY float64 `json:"normalizedStartY"`
	EndX   float64 `json:"normalizedEndX"`
	EndY   float64 `json:"normalizedEndY"`
}

// Forward normalizes rect, measured in the same space as the page box, for
// the given 1-based page number.
func Forward(rect, box layer.Rect, page int) Normalized {
	if box.Width <= 0 || box.Height <= 0 {
		return Normalized{StartY: float64(page), EndY: float64(page)}
	}

	startX := clampX((rect.Left - box.Left) / box.Width)
	endX := clampX((rect.Right() - box.Left) / box.Width)
	startY := clampY((rect.Top - box.Top) / box.Height)
	endY := clampY((rect.Bottom() - box.Top) / box.Height)

	return Normalized{
		StartX: startX,
		StartY: float64(page) + startY,
		EndX:   max(endX, startX),
		EndY:   float64(page) + max(endY, startY),
	}
}

// Inverse returns the page-relative pixel rectangle of n for a page
// currently rendered with the given box. Left and Top are offsets from the
// page's own top left corner.
func Inverse(n Normalized, box layer.Rect) layer.Rect {
	page := n.Page()
	startY := clampY(n.StartY - float64(page))
	endY := clampY(n.EndY - float64(page))
	startX := clampX(n.StartX)
	endX := clampX(n.EndX)

	return layer.Rect{
		Left:   startX * box.Width,
		Top:    startY * box.Height,
		Width:  max(endX-startX, 0) * box.Width,
		Height: max(endY-startY, 0) * box.Height,
	}
}

// Absolute moves a page-relative rectangle into the box's coordinate space.
func Absolute(rel, box layer.Rect) layer.Rect {
	rel.Left += box.Left
	rel.Top += box.Top
	return rel
}

// Page returns the 1-based page number encoded in n.
func (n Normalized) Page() int {
	return int(math.Floor(n.StartY))
}

// Fractions returns the fractional parts of StartY and EndY.
func (n Normalized) Fractions() (start, end float64) {
	page := float64(n.Page())
	return n.StartY - page, n.EndY - page
}

func clampX(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func clampY(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(MaxFraction, v))
}
