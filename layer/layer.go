package layer

import "math"

// Rect is an axis-aligned rectangle in pixels.
// All rectangles of a rendered document share one coordinate space: the
// scroll container of the viewer, with y growing downwards.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.Left + r.Width }
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// CenterY returns the vertical center of r.
func (r Rect) CenterY() float64 { return r.Top + r.Height/2 }

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rectangle containing r and o.
// Empty rectangles are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	left := math.Min(r.Left, o.Left)
	top := math.Min(r.Top, o.Top)
	right := math.Max(r.Right(), o.Right())
	bottom := math.Max(r.Bottom(), o.Bottom())
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// Scale multiplies every coordinate of r by s.
func (r Rect) Scale(s float64) Rect {
	return Rect{Left: r.Left * s, Top: r.Top * s, Width: r.Width * s, Height: r.Height * s}
}

// Node is one text-bearing element of a page's text layer.
type Node struct {
	Text string

	// Glyphs holds one box per rune of Text, in rune order.
	// Runes with no visible extent (line terminators, zero width spaces)
	// carry an empty Rect.
	Glyphs []Rect
}

// Page is a rendered page as handed over by the PDF renderer.
type Page struct {
	Number int     // 1-based page number.
	Scale  float64 // Viewport scale the page was laid out at.
	Box    Rect    // Page bounding box at Scale.

	// Nodes are the text layer's nodes in reading order.
	Nodes []Node
}

// Scaled returns a copy of p laid out at scale s.
// Glyph and page boxes are multiplied by s/p.Scale.
func (p Page) Scaled(s float64) Page {
	from := p.Scale
	if from <= 0 {
		from = 1
	}
	factor := s / from

	out := Page{Number: p.Number, Scale: s, Box: p.Box.Scale(factor)}
	out.Nodes = make([]Node, len(p.Nodes))
	for i, n := range p.Nodes {
		glyphs := make([]Rect, len(n.Glyphs))
		for j, g := range n.Glyphs {
			glyphs[j] = g.Scale(factor)
		}
		out.Nodes[i] = Node{Text: n.Text, Glyphs: glyphs}
	}
	return out
}
