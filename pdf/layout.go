package pdf

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/abiiranathan/pdfhighlight/layer"
)

// DefaultGap is the vertical space between stacked pages, in pixels.
const DefaultGap = 10.0

// isDecoration reports whether r is an arrow or control glyph that poppler
// extracts from bullet fonts.
func isDecoration(r rune) bool {
	return (r >= 0x25B6 && r <= 0x25FF) || r == 0x0080 || r == 0x0089
}

type size struct {
	width, height float64
}

type pageLayout struct {
	text  string
	rects []layer.Rect
}

// buildPage lays out a page whose top left corner sits at top in the
// viewer, splitting text into one node per line. rects are in points
// relative to the page, one per rune of text. Decoration runes become a
// space without a glyph box, keeping one rune per rect.
func buildPage(number int, scale, top float64, sz size, l pageLayout) layer.Page {
	box := layer.Rect{Left: 0, Top: top, Width: sz.width * scale, Height: sz.height * scale}
	page := layer.Page{Number: number, Scale: scale, Box: box}

	var (
		line   strings.Builder
		glyphs []layer.Rect
		i      int
	)
	flush := func() {
		if line.Len() == 0 {
			return
		}
		page.Nodes = append(page.Nodes, layer.Node{Text: line.String(), Glyphs: glyphs})
		line.Reset()
		glyphs = nil
	}

	for _, r := range l.text {
		var g layer.Rect
		if isDecoration(r) {
			r = ' '
		} else if i < len(l.rects) && r != '\n' {
			src := l.rects[i]
			if src.Width > 0 && src.Height > 0 {
				g = layer.Rect{
					Left:   box.Left + src.Left*scale,
					Top:    box.Top + src.Top*scale,
					Width:  src.Width * scale,
					Height: src.Height * scale,
				}
			}
		}
		line.WriteRune(r)
		glyphs = append(glyphs, g)
		i++
		if r == '\n' {
			flush()
		}
	}
	flush()
	return page
}

// pageTop returns the viewer y of the top of page number (1-based) when
// pages are stacked with gap pixels between them.
func pageTop(sizes []size, number int, scale, gap float64) float64 {
	top := 0.0
	for i := 0; i < number-1 && i < len(sizes); i++ {
		top += sizes[i].height*scale + gap
	}
	return top
}

// Renderer lays out the pages of a Document for a viewer, stacking them
// vertically. Page sizes and text layouts are read once and cached.
// Poppler documents are not safe for concurrent use, so calls are
// serialized.
type Renderer struct {
	mu      sync.Mutex
	doc     *Document
	gap     float64
	sizes   []size
	layouts map[int]pageLayout
}

// NewRenderer returns a Renderer over doc.
func NewRenderer(doc *Document, gap float64) *Renderer {
	return &Renderer{doc: doc, gap: gap, layouts: make(map[int]pageLayout)}
}

func (r *Renderer) NumPages() int {
	return r.doc.NumPages
}

// RenderPage returns page number (1-based) laid out at scale.
func (r *Renderer) RenderPage(ctx context.Context, number int, scale float64) (layer.Page, error) {
	if err := ctx.Err(); err != nil {
		return layer.Page{}, err
	}
	if number < 1 || number > r.doc.NumPages {
		return layer.Page{}, fmt.Errorf("%w: %d of %d", ErrPage, number, r.doc.NumPages)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.loadSizes(); err != nil {
		return layer.Page{}, err
	}

	l, ok := r.layouts[number]
	if !ok {
		page := r.doc.GetPage(number - 1)
		if page == nil {
			return layer.Page{}, fmt.Errorf("%w: %d", ErrPage, number)
		}
		l.text, l.rects = page.TextLayout()
		page.Close()
		r.layouts[number] = l
	}

	top := pageTop(r.sizes, number, scale, r.gap)
	return buildPage(number, scale, top, r.sizes[number-1], l), nil
}

func (r *Renderer) loadSizes() error {
	if r.sizes != nil {
		return nil
	}
	sizes := make([]size, r.doc.NumPages)
	for i := range sizes {
		page := r.doc.GetPage(i)
		if page == nil {
			return fmt.Errorf("%w: %d", ErrPage, i+1)
		}
		sizes[i] = size{width: page.Width, height: page.Height}
		page.Close()
	}
	r.sizes = sizes
	return nil
}
