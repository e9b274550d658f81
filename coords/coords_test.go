package coords

import (
	"math"
	"testing"

	"github.com/abiiranathan/pdfhighlight/layer"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestForward(t *testing.T) {
	box := layer.Rect{Left: 20, Top: 1000, Width: 600, Height: 800}

	tests := []struct {
		name string
		rect layer.Rect
		page int
		want Normalized
	}{
		{
			name: "inside the page",
			rect: layer.Rect{Left: 80, Top: 1200, Width: 300, Height: 40},
			page: 2,
			want: Normalized{StartX: 0.1, StartY: 2.25, EndX: 0.6, EndY: 2.3},
		},
		{
			name: "clamped to the page",
			rect: layer.Rect{Left: 0, Top: 1700, Width: 1000, Height: 200},
			page: 2,
			want: Normalized{StartX: 0, StartY: 2.875, EndX: 1, EndY: 2 + MaxFraction},
		},
		{
			name: "above the page",
			rect: layer.Rect{Left: 20, Top: 900, Width: 60, Height: 50},
			page: 1,
			want: Normalized{StartX: 0, StartY: 1, EndX: 0.1, EndY: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Forward(tt.rect, box, tt.page)
			if !near(got.StartX, tt.want.StartX, 1e-9) || !near(got.StartY, tt.want.StartY, 1e-9) ||
				!near(got.EndX, tt.want.EndX, 1e-9) || !near(got.EndY, tt.want.EndY, 1e-9) {
				t.Errorf("Forward() = %+v, want %+v", got, tt.want)
			}
			if got.EndY < got.StartY {
				t.Errorf("EndY < StartY in %+v", got)
			}
			if got.Page() != tt.page {
				t.Errorf("Page() = %d, want %d", got.Page(), tt.page)
			}
			start, end := got.Fractions()
			if start < 0 || start > MaxFraction || end < 0 || end > MaxFraction {
				t.Errorf("fractions out of range: %v %v", start, end)
			}
		})
	}
}

func TestForwardDegenerateBox(t *testing.T) {
	got := Forward(layer.Rect{Left: 1, Top: 1, Width: 1, Height: 1}, layer.Rect{}, 3)
	if got != (Normalized{StartY: 3, EndY: 3}) {
		t.Errorf("Forward() = %+v", got)
	}
}

func TestRoundTrip(t *testing.T) {
	box := layer.Rect{Left: 12, Top: 2460, Width: 918, Height: 1188}
	rects := []layer.Rect{
		{Left: 100, Top: 2500, Width: 250.5, Height: 14.2},
		{Left: 12, Top: 2460, Width: 918, Height: 30},
		{Left: 500.25, Top: 3300.75, Width: 3, Height: 3},
	}

	for _, rect := range rects {
		n := Forward(rect, box, 3)
		got := Absolute(Inverse(n, box), box)

		if !near(got.Left, rect.Left, 1) || !near(got.Top, rect.Top, 1) ||
			!near(got.Width, rect.Width, 1) || !near(got.Height, rect.Height, 1) {
			t.Errorf("round trip of %+v gave %+v", rect, got)
		}
	}
}

func TestRescaleStability(t *testing.T) {
	box := layer.Rect{Left: 0, Top: 0, Width: 600, Height: 800}
	rect := layer.Rect{Left: 120, Top: 200, Width: 240, Height: 16}
	n := Forward(rect, box, 1)

	for _, scale := range []float64{0.5, 1.5, 2, 3.25} {
		scaled := box.Scale(scale)
		got := Inverse(n, scaled)

		if !near(got.Left/scaled.Width, rect.Left/box.Width, 1e-9) ||
			!near(got.Top/scaled.Height, rect.Top/box.Height, 1e-9) ||
			!near(got.Width/scaled.Width, rect.Width/box.Width, 1e-9) ||
			!near(got.Height/scaled.Height, rect.Height/box.Height, 1e-9) {
			t.Errorf("scale %v: relative position changed: %+v", scale, got)
		}
		if scale != 1 && near(got.Left, rect.Left, 1e-9) {
			t.Errorf("scale %v: absolute left did not change", scale)
		}
	}
}

func TestInverseReclamps(t *testing.T) {
	// A stored record whose end fraction was written past the clamp.
	n := Normalized{StartX: -0.5, StartY: 4.5, EndX: 1.5, EndY: 4.9999}
	got := Inverse(n, layer.Rect{Width: 100, Height: 1000})

	want := layer.Rect{Left: 0, Top: 500, Width: 100, Height: 499}
	if !near(got.Left, want.Left, 1e-9) || !near(got.Top, want.Top, 1e-9) ||
		!near(got.Width, want.Width, 1e-9) || !near(got.Height, want.Height, 1e-6) {
		t.Errorf("Inverse() = %+v, want %+v", got, want)
	}
}
