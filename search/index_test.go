package search

import (
	"reflect"
	"testing"
	"unicode/utf8"

	"github.com/abiiranathan/pdfhighlight/layer"
)

const (
	glyphWidth  = 6.0
	glyphHeight = 12.0
	lineHeight  = 20.0
)

// textPage lays out one node per line on a 600x800 page at the origin.
// Every rune gets a glyph box, except line breaks.
func textPage(number int, lines ...string) layer.Page {
	page := layer.Page{
		Number: number,
		Scale:  1,
		Box:    layer.Rect{Left: 0, Top: 0, Width: 600, Height: 800},
	}
	for i, line := range lines {
		node := layer.Node{Text: line}
		col := 0
		for _, r := range line {
			if r == '\n' {
				node.Glyphs = append(node.Glyphs, layer.Rect{})
				continue
			}
			node.Glyphs = append(node.Glyphs, layer.Rect{
				Left:   50 + float64(col)*glyphWidth,
				Top:    40 + float64(i)*lineHeight,
				Width:  glyphWidth,
				Height: glyphHeight,
			})
			col++
		}
		page.Nodes = append(page.Nodes, node)
	}
	return page
}

func TestBuildIndexCoverage(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{name: "single node", lines: []string{"A version control system"}},
		{name: "several nodes", lines: []string{"first line\n", "second ", "line"}},
		{name: "empty nodes skipped", lines: []string{"", "abc", "", "déjà vu", ""}},
		{name: "multibyte", lines: []string{"naïve ", "café ", "³⁷"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := BuildIndex(textPage(1, tt.lines...))

			want := 0
			for _, l := range tt.lines {
				want += utf8.RuneCountInString(l)
			}
			if idx.Len() != want {
				t.Fatalf("Len() = %d, want %d", idx.Len(), want)
			}

			next := 0
			for _, sp := range idx.Spans {
				if sp.Start != next {
					t.Fatalf("gap or overlap at %d: span %+v", next, sp)
				}
				if sp.End <= sp.Start {
					t.Fatalf("empty span %+v", sp)
				}
				got := idx.Slice(sp.Start, sp.End)
				if got != tt.lines[sp.Node] {
					t.Errorf("span %+v text = %q, want %q", sp, got, tt.lines[sp.Node])
				}
				next = sp.End
			}
			if next != idx.Len() {
				t.Fatalf("spans end at %d, want %d", next, idx.Len())
			}
		})
	}
}

func TestBuildIndexEmpty(t *testing.T) {
	for _, page := range []layer.Page{textPage(1), textPage(2, "", "")} {
		idx := BuildIndex(page)
		if !idx.Empty() || idx.Text != "" || len(idx.Spans) != 0 {
			t.Errorf("expected empty index, got %+v", idx)
		}
		if _, ok := idx.Bounds(0, 10); ok {
			t.Errorf("empty index reported bounds")
		}
	}
}

func TestBuildIndexIdempotent(t *testing.T) {
	page := textPage(3, "one ", "two\n", "three")
	a, b := BuildIndex(page), BuildIndex(page)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("indices differ:\n%+v\n%+v", a, b)
	}
}

func TestLocate(t *testing.T) {
	idx := BuildIndex(textPage(1, "abc", "", "de", "f"))

	tests := []struct {
		offset   int
		wantNode int
		wantOK   bool
	}{
		{0, 0, true},
		{2, 0, true},
		{3, 2, true},
		{4, 2, true},
		{5, 3, true},
		{6, 0, false},
		{-1, 0, false},
	}
	for _, tt := range tests {
		i, ok := idx.Locate(tt.offset)
		if ok != tt.wantOK {
			t.Errorf("Locate(%d) ok = %v, want %v", tt.offset, ok, tt.wantOK)
			continue
		}
		if ok && idx.Spans[i].Node != tt.wantNode {
			t.Errorf("Locate(%d) node = %d, want %d", tt.offset, idx.Spans[i].Node, tt.wantNode)
		}
	}
}

func TestRectsAndBounds(t *testing.T) {
	idx := BuildIndex(textPage(1, "abcd\n", "efgh"))

	// "cd\nef" touches both nodes; the line break has no box.
	rects := idx.Rects(2, 7)
	if len(rects) != 2 {
		t.Fatalf("Rects() = %v, want 2 rects", rects)
	}
	want0 := layer.Rect{Left: 50 + 2*glyphWidth, Top: 40, Width: 2 * glyphWidth, Height: glyphHeight}
	want1 := layer.Rect{Left: 50, Top: 40 + lineHeight, Width: 2 * glyphWidth, Height: glyphHeight}
	if rects[0] != want0 || rects[1] != want1 {
		t.Errorf("Rects() = %+v, want [%+v %+v]", rects, want0, want1)
	}

	box, ok := idx.Bounds(2, 7)
	if !ok {
		t.Fatal("Bounds() not ok")
	}
	if box != want0.Union(want1) {
		t.Errorf("Bounds() = %+v", box)
	}

	// Only the line break: nothing visible.
	if _, ok := idx.Bounds(4, 5); ok {
		t.Errorf("Bounds() over a line break should not be ok")
	}
}
