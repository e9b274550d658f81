package highlight

import (
	"log/slog"
	"math"

	"github.com/abiiranathan/pdfhighlight/coords"
	"github.com/abiiranathan/pdfhighlight/layer"
)

// Request asks for the highlight of a fragment to be emphasized.
type Request struct {
	Fragment string

	// Index is the scaffold index of the fragment, used when HasIndex is set.
	Index    int
	HasIndex bool
}

// ForFragment returns a Request for fragment without a scaffold index.
func ForFragment(fragment string) Request {
	return Request{Fragment: fragment}
}

// WithIndex returns a copy of req carrying scaffold index i.
func (req Request) WithIndex(i int) Request {
	req.Index = i
	req.HasIndex = true
	return req
}

// Thresholds tune the coordinate-proximity strategy, in pixels at scale 1.
type Thresholds struct {
	// NearDistance is the largest top and left distance between the
	// expected rectangle and a drawn one.
	NearDistance float64 `toml:"near_distance"`

	// OverlapDistance is the largest horizontal distance accepted for a
	// drawn rectangle that overlaps the expected one vertically.
	OverlapDistance float64 `toml:"overlap_distance"`
}

// DefaultThresholds are the proximity limits used when none are configured.
var DefaultThresholds = Thresholds{NearDistance: 150, OverlapDistance: 200}

// WithDefaults fills the unset fields of th from DefaultThresholds.
func (th Thresholds) WithDefaults() Thresholds {
	if th.NearDistance <= 0 {
		th.NearDistance = DefaultThresholds.NearDistance
	}
	if th.OverlapDistance <= 0 {
		th.OverlapDistance = DefaultThresholds.OverlapDistance
	}
	return th
}

// At returns th measured in pixels at the given viewport scale.
func (th Thresholds) At(scale float64) Thresholds {
	if scale <= 0 {
		return th
	}
	return Thresholds{NearDistance: th.NearDistance * scale, OverlapDistance: th.OverlapDistance * scale}
}

// View is what the resolver may look at: the current records, what is
// drawn for them and the current page boxes.
type View struct {
	Records *Set
	Drawn   *Registry
	Box     func(page int) (layer.Rect, bool)

	// Scale is the viewport scale Drawn was laid out at. Zero means 1.
	Scale float64
}

// Strategy is one way of turning a Request into candidate highlights.
// Resolve returns the ids of drawn highlights, or nothing.
type Strategy struct {
	Name    string
	Resolve func(req Request, v View) []ID
}

// Resolution is the outcome of Resolver.Resolve.
type Resolution struct {
	IDs      []ID
	Strategy string // Name of the strategy that produced IDs.
}

// Found reports whether any highlight was selected.
func (r Resolution) Found() bool {
	return len(r.IDs) > 0
}

// Resolver tries its strategies in order and keeps the first non-empty
// answer.
type Resolver struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewResolver returns a Resolver running strategies in the given order.
// With no strategies, DefaultStrategies(DefaultThresholds) is used.
func NewResolver(logger *slog.Logger, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies(DefaultThresholds)
	}
	return &Resolver{strategies: strategies, logger: logger}
}

// DefaultStrategies returns index, text and proximity strategies in that
// order.
func DefaultStrategies(th Thresholds) []Strategy {
	return []Strategy{IndexStrategy(), TextStrategy(), ProximityStrategy(th)}
}

// Resolve picks the highlights best matching req.
func (r *Resolver) Resolve(req Request, v View) Resolution {
	for _, s := range r.strategies {
		if ids := s.Resolve(req, v); len(ids) > 0 {
			r.logger.Debug("highlight resolved", "strategy", s.Name, "fragment", req.Fragment,
				"index", req.Index, "has_index", req.HasIndex, "count", len(ids))
			return Resolution{IDs: ids, Strategy: s.Name}
		}
	}
	r.logger.Info("no highlight found", "fragment", req.Fragment, "index", req.Index,
		"has_index", req.HasIndex, "records", v.Records.Len())
	return Resolution{}
}

// IndexStrategy selects by scaffold index. The index first addresses the
// distinct fragments in order of appearance and selects every record of
// that fragment; failing that it addresses the flat record list.
func IndexStrategy() Strategy {
	return Strategy{
		Name: "index",
		Resolve: func(req Request, v View) []ID {
			if !req.HasIndex || req.Index < 0 {
				return nil
			}
			if distinct := v.Records.Distinct(); req.Index < len(distinct) {
				return drawnOnly(v, v.Records.WithFragment(distinct[req.Index]))
			}
			if req.Index < v.Records.Len() {
				return drawnOnly(v, []ID{ID(req.Index)})
			}
			return nil
		},
	}
}

// TextStrategy selects every record whose fragment matches the request's
// after normalization.
func TextStrategy() Strategy {
	return Strategy{
		Name: "text",
		Resolve: func(req Request, v View) []ID {
			return drawnOnly(v, textMatches(req, v.Records))
		},
	}
}

// ProximityStrategy looks for drawn rectangles near where the target
// record should be on its page. The target is the record at the request
// index, else the first record matching the request text. When nothing is
// close enough it falls back to the drawn rectangle at the request index.
func ProximityStrategy(th Thresholds) Strategy {
	return Strategy{
		Name: "proximity",
		Resolve: func(req Request, v View) []ID {
			if ids := nearTarget(req, v, th); len(ids) > 0 {
				return ids
			}
			if req.HasIndex && req.Index >= 0 && v.Drawn != nil {
				if all := v.Drawn.All(); req.Index < len(all) {
					return []ID{all[req.Index].ID}
				}
			}
			return nil
		},
	}
}

func nearTarget(req Request, v View, th Thresholds) []ID {
	target, ok := targetRecord(req, v.Records)
	if !ok || v.Box == nil || v.Drawn == nil {
		return nil
	}
	box, ok := v.Box(target.Page)
	if !ok {
		return nil
	}
	want := coords.Inverse(target.Normalized, box)
	th = th.At(v.Scale)

	var ids []ID
	for _, d := range v.Drawn.Page(target.Page) {
		dx := math.Abs(d.Rect.Left - want.Left)
		dy := math.Abs(d.Rect.Top - want.Top)
		overlaps := d.Rect.Top <= want.Bottom() && want.Top <= d.Rect.Bottom()

		if (dx <= th.NearDistance && dy <= th.NearDistance) || (overlaps && dx <= th.OverlapDistance) {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

func targetRecord(req Request, set *Set) (Record, bool) {
	if req.HasIndex {
		if r, ok := set.At(ID(req.Index)); ok {
			return r, true
		}
	}
	if ids := textMatches(req, set); len(ids) > 0 {
		return set.At(ids[0])
	}
	return Record{}, false
}

func textMatches(req Request, set *Set) []ID {
	if req.Fragment == "" {
		return nil
	}
	var ids []ID
	for i, r := range set.Records() {
		if sameFragment(req.Fragment, r.Fragment) {
			ids = append(ids, ID(i))
		}
	}
	return ids
}

// drawnOnly keeps the ids that currently have a drawn rectangle.
func drawnOnly(v View, ids []ID) []ID {
	if v.Drawn == nil {
		return nil
	}
	var out []ID
	for _, id := range ids {
		if _, ok := v.Drawn.Lookup(id); ok {
			out = append(out, id)
		}
	}
	return out
}
