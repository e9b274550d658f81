package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/abiiranathan/pdfhighlight/layer"
)

// Span maps the rune range [Start, End) of a PageIndex's text back to
// the text-layer node it came from.
type Span struct {
	Node  int // Index into layer.Page.Nodes
	Start int // First rune offset, inclusive
	End   int // Last rune offset, exclusive
}

// PageIndex is the flattened text of one rendered page.
type PageIndex struct {
	Page  int    // 1-based page number.
	Text  string // Concatenated text of all nodes in reading order.
	Spans []Span // Ordered spans covering [0, Len()).

	// byteOffsets[i] is the byte offset of rune i in Text.
	// It has Len()+1 entries, the last one being len(Text).
	byteOffsets []int

	nodes []layer.Node
}

// BuildIndex flattens the text layer of page into a PageIndex.
// Nodes are taken in the order the renderer supplied them. Nodes without
// text get no span. An empty text layer yields an empty index.
func BuildIndex(page layer.Page) *PageIndex {
	idx := &PageIndex{
		Page:  page.Number,
		Spans: make([]Span, 0, len(page.Nodes)),
		nodes: page.Nodes,
	}

	var sb strings.Builder
	offset := 0
	for i, node := range page.Nodes {
		n := utf8.RuneCountInString(node.Text)
		if n == 0 {
			continue
		}
		sb.WriteString(node.Text)
		idx.Spans = append(idx.Spans, Span{Node: i, Start: offset, End: offset + n})
		offset += n
	}
	idx.Text = sb.String()

	idx.byteOffsets = make([]int, 0, offset+1)
	for i := range idx.Text {
		idx.byteOffsets = append(idx.byteOffsets, i)
	}
	idx.byteOffsets = append(idx.byteOffsets, len(idx.Text))
	return idx
}

// Len returns the number of runes in the index text.
func (idx *PageIndex) Len() int {
	return len(idx.byteOffsets) - 1
}

// Empty reports whether the page had no text.
func (idx *PageIndex) Empty() bool {
	return idx.Len() == 0
}

// Slice returns the text between rune offsets start and end.
func (idx *PageIndex) Slice(start, end int) string {
	start, end = idx.clamp(start, end)
	return idx.Text[idx.byteOffsets[start]:idx.byteOffsets[end]]
}

// Locate returns the index into Spans of the node owning rune offset.
func (idx *PageIndex) Locate(offset int) (int, bool) {
	if offset < 0 || offset >= idx.Len() {
		return 0, false
	}
	i := sort.Search(len(idx.Spans), func(i int) bool { return idx.Spans[i].End > offset })
	return i, i < len(idx.Spans)
}

// Rects returns one bounding rectangle per node touched by the rune
// range [start, end), in node order. Nodes whose glyphs in the range are
// all empty contribute nothing.
func (idx *PageIndex) Rects(start, end int) []layer.Rect {
	start, end = idx.clamp(start, end)
	if start >= end {
		return nil
	}

	first, ok := idx.Locate(start)
	if !ok {
		return nil
	}

	var rects []layer.Rect
	for i := first; i < len(idx.Spans) && idx.Spans[i].Start < end; i++ {
		sp := idx.Spans[i]
		glyphs := idx.nodes[sp.Node].Glyphs

		from := max(start, sp.Start) - sp.Start
		to := min(end, sp.End) - sp.Start

		var box layer.Rect
		for g := from; g < to && g < len(glyphs); g++ {
			box = box.Union(glyphs[g])
		}
		if !box.Empty() {
			rects = append(rects, box)
		}
	}
	return rects
}

// Bounds returns the bounding rectangle of the rune range [start, end).
// ok is false when nothing in the range has a visible extent.
func (idx *PageIndex) Bounds(start, end int) (layer.Rect, bool) {
	var box layer.Rect
	for _, r := range idx.Rects(start, end) {
		box = box.Union(r)
	}
	return box, !box.Empty()
}

// runeOffset converts a byte offset of Text into a rune offset.
func (idx *PageIndex) runeOffset(byteOffset int) int {
	return sort.SearchInts(idx.byteOffsets, byteOffset)
}

func (idx *PageIndex) clamp(start, end int) (int, int) {
	n := idx.Len()
	start = max(0, min(start, n))
	end = max(start, min(end, n))
	return start, end
}
