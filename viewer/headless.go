package viewer

import (
	"context"

	"github.com/abiiranathan/pdfhighlight/coords"
	"github.com/abiiranathan/pdfhighlight/highlight"
	"github.com/abiiranathan/pdfhighlight/layer"
)

// DefaultViewportHeight is the viewport height of headless sessions.
const DefaultViewportHeight = 900

// Locate runs one highlighting pass over doc on an in-memory canvas and
// returns the records. Persistence configured in opts has finished when it
// returns.
func Locate(ctx context.Context, doc Document, fragments []string, opts Options) ([]highlight.Record, error) {
	s := New(highlight.NewCanvas(DefaultViewportHeight), opts)
	defer s.Close()

	s.Open(doc)
	return s.Highlight(ctx, fragments)
}

// PageOverlays lays out page number of doc at scale and returns its box and
// the elements records would draw on it. Invalid records are skipped.
func PageOverlays(ctx context.Context, doc Document, number int, scale float64, records []highlight.Record) (layer.Rect, []highlight.Element, error) {
	page, err := doc.RenderPage(ctx, number, scale)
	if err != nil {
		return layer.Rect{}, nil, err
	}

	set := highlight.NewSet(records)
	elements := []highlight.Element{}
	for _, id := range set.OnPage(number) {
		r, _ := set.At(id)
		if r.Validate() != nil {
			continue
		}
		elements = append(elements, highlight.Element{ID: id, Rect: coords.Inverse(r.Normalized, page.Box)})
	}
	return page.Box, elements, nil
}
