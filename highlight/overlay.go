package highlight

import (
	"slices"
	"sync"

	"github.com/abiiranathan/pdfhighlight/layer"
)

// Overlay is the drawing surface highlights are painted on, usually one
// transparent layer per page stacked over the rendered page image.
// Rectangles passed to Draw are relative to the page's top left corner.
type Overlay interface {
	Clear(page int)
	Draw(id ID, page int, rect layer.Rect)
	Emphasize(id ID, on bool)

	// ScrollTo scrolls the viewer so that top is its first visible y.
	ScrollTo(top float64)
	ViewportHeight() float64
}

// Drawn describes a rectangle currently painted on an Overlay.
type Drawn struct {
	ID   ID
	Page int
	Rect layer.Rect // page-relative pixels
	Box  layer.Rect // page box the rectangle was drawn against
}

// Absolute returns the drawn rectangle in viewer coordinates.
func (d Drawn) Absolute() layer.Rect {
	r := d.Rect
	r.Left += d.Box.Left
	r.Top += d.Box.Top
	return r
}

// Registry keeps track of what has been drawn so highlights can be found
// again by id without holding on to the host's drawing objects.
type Registry struct {
	mu    sync.RWMutex
	drawn []Drawn
	byID  map[ID]int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ID]int)}
}

// Reset forgets every drawn rectangle.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.drawn = nil
	r.byID = make(map[ID]int)
	r.mu.Unlock()
}

// Add records d as drawn.
func (r *Registry) Add(d Drawn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.byID[d.ID]; ok {
		r.drawn[i] = d
		return
	}
	r.byID[d.ID] = len(r.drawn)
	r.drawn = append(r.drawn, d)
}

// ClearPage forgets the rectangles drawn on page.
func (r *Registry) ClearPage(page int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drawn = slices.DeleteFunc(r.drawn, func(d Drawn) bool { return d.Page == page })
	r.byID = make(map[ID]int, len(r.drawn))
	for i, d := range r.drawn {
		r.byID[d.ID] = i
	}
}

// Lookup returns the drawn rectangle of id.
func (r *Registry) Lookup(id ID) (Drawn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return Drawn{}, false
	}
	return r.drawn[i], true
}

// Page returns the rectangles drawn on page in draw order.
func (r *Registry) Page(page int) []Drawn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Drawn
	for _, d := range r.drawn {
		if d.Page == page {
			out = append(out, d)
		}
	}
	return out
}

// All returns every drawn rectangle in draw order.
func (r *Registry) All() []Drawn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.drawn)
}

// Len returns the number of drawn rectangles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.drawn)
}

// Element is a rectangle painted on a Canvas.
type Element struct {
	ID         ID         `json:"id"`
	Rect       layer.Rect `json:"rect"`
	Emphasized bool       `json:"emphasized"`
}

// Canvas is an in-memory Overlay. It backs headless sessions (the HTTP
// backend and the CLI) and tests.
type Canvas struct {
	mu        sync.Mutex
	pages     map[int][]Element
	scrollTop float64
	viewport  float64
}

// NewCanvas returns a Canvas whose viewport is viewportHeight pixels tall.
func NewCanvas(viewportHeight float64) *Canvas {
	return &Canvas{pages: make(map[int][]Element), viewport: viewportHeight}
}

func (c *Canvas) Clear(page int) {
	c.mu.Lock()
	delete(c.pages, page)
	c.mu.Unlock()
}

func (c *Canvas) Draw(id ID, page int, rect layer.Rect) {
	c.mu.Lock()
	c.pages[page] = append(c.pages[page], Element{ID: id, Rect: rect})
	c.mu.Unlock()
}

func (c *Canvas) Emphasize(id ID, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, elems := range c.pages {
		for i := range elems {
			if elems[i].ID == id {
				elems[i].Emphasized = on
			}
		}
	}
}

func (c *Canvas) ScrollTo(top float64) {
	c.mu.Lock()
	c.scrollTop = top
	c.mu.Unlock()
}

func (c *Canvas) ViewportHeight() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

// ScrollTop returns the last position passed to ScrollTo.
func (c *Canvas) ScrollTop() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scrollTop
}

// Elements returns a copy of the elements painted on page.
func (c *Canvas) Elements(page int) []Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.pages[page])
}

// Emphasized returns the ids of every emphasized element, ordered by page
// then draw order.
func (c *Canvas) Emphasized() []ID {
	c.mu.Lock()
	defer c.mu.Unlock()

	pages := make([]int, 0, len(c.pages))
	for p := range c.pages {
		pages = append(pages, p)
	}
	slices.Sort(pages)

	var ids []ID
	for _, p := range pages {
		for _, e := range c.pages[p] {
			if e.Emphasized {
				ids = append(ids, e.ID)
			}
		}
	}
	return ids
}
