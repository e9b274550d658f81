package highlight

import (
	"slices"
	"sync"
)

// Emphasis holds the single group of emphasized highlights of a viewer.
// It stores ids only; the Overlay owns the drawn objects.
type Emphasis struct {
	mu  sync.Mutex
	ids []ID
}

// Set clears the current emphasis on o, then emphasizes ids.
func (e *Emphasis) Set(o Overlay, ids []ID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range e.ids {
		o.Emphasize(id, false)
	}
	e.ids = slices.Clone(ids)
	for _, id := range e.ids {
		o.Emphasize(id, true)
	}
}

// Clear removes the emphasis from o.
func (e *Emphasis) Clear(o Overlay) {
	e.Set(o, nil)
}

// Forget drops the current ids without touching an overlay. Used after
// the overlay itself has been wiped.
func (e *Emphasis) Forget() {
	e.mu.Lock()
	e.ids = nil
	e.mu.Unlock()
}

// Current returns the emphasized ids.
func (e *Emphasis) Current() []ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.ids)
}

// ScrollTop returns the scroll position that puts the vertical center of
// d at the vertical center of a viewport of the given height.
func ScrollTop(d Drawn, viewportHeight float64) float64 {
	return max(0, d.Absolute().CenterY()-viewportHeight/2)
}
