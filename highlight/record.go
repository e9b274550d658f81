package highlight

import (
	"errors"
	"fmt"

	"github.com/abiiranathan/pdfhighlight/coords"
)

// ErrInvalidRecord is wrapped by Record.Validate failures.
var ErrInvalidRecord = errors.New("highlight: invalid record")

// ID identifies a record within one Set. It is the record's position and
// is only meaningful together with the Set it came from.
type ID int

// Record is one located occurrence of a fragment.
type Record struct {
	Fragment  string `json:"fragmentQuery"`
	Page      int    `json:"pageNumber"` // 1-based
	CharStart int    `json:"charStart"`
	CharEnd   int    `json:"charEnd"`
	coords.Normalized
}

// Validate checks the coordinate invariants of r.
func (r Record) Validate() error {
	switch {
	case r.Page < 1:
		return fmt.Errorf("%w: page %d", ErrInvalidRecord, r.Page)
	case r.CharStart < 0 || r.CharEnd < r.CharStart:
		return fmt.Errorf("%w: char range [%d, %d)", ErrInvalidRecord, r.CharStart, r.CharEnd)
	case r.Normalized.Page() != r.Page || int(r.EndY) != r.Page:
		return fmt.Errorf("%w: y [%v, %v] outside page %d", ErrInvalidRecord, r.StartY, r.EndY, r.Page)
	case r.EndY < r.StartY:
		return fmt.Errorf("%w: end y %v above start y %v", ErrInvalidRecord, r.EndY, r.StartY)
	case r.StartX < 0 || r.StartX > 1 || r.EndX < 0 || r.EndX > 1:
		return fmt.Errorf("%w: x [%v, %v] outside [0, 1]", ErrInvalidRecord, r.StartX, r.EndX)
	}

	// Page plus fraction is not exact in floating point.
	const slack = 1e-9
	start, end := r.Fractions()
	if start > coords.MaxFraction+slack || end > coords.MaxFraction+slack {
		return fmt.Errorf("%w: y fraction above %v", ErrInvalidRecord, coords.MaxFraction)
	}
	return nil
}

// Set is an immutable, ordered collection of records for one document.
// A new highlighting run builds a new Set rather than editing the old one.
type Set struct {
	records []Record
}

// NewSet copies records into a Set.
func NewSet(records []Record) *Set {
	return &Set{records: append([]Record(nil), records...)}
}

// Len returns the number of records. A nil Set is empty.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// At returns the record with the given id.
func (s *Set) At(id ID) (Record, bool) {
	if s == nil || id < 0 || int(id) >= len(s.records) {
		return Record{}, false
	}
	return s.records[id], true
}

// Records returns a copy of all records in order.
func (s *Set) Records() []Record {
	if s == nil {
		return nil
	}
	return append([]Record(nil), s.records...)
}

// Distinct returns each fragment once, in the order its first record
// appears.
func (s *Set) Distinct() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(s.records))
	var out []string
	for _, r := range s.records {
		if _, ok := seen[r.Fragment]; ok {
			continue
		}
		seen[r.Fragment] = struct{}{}
		out = append(out, r.Fragment)
	}
	return out
}

// WithFragment returns the ids of every record located for fragment.
func (s *Set) WithFragment(fragment string) []ID {
	if s == nil {
		return nil
	}
	var ids []ID
	for i, r := range s.records {
		if r.Fragment == fragment {
			ids = append(ids, ID(i))
		}
	}
	return ids
}

// OnPage returns the ids of the records on page, in order.
func (s *Set) OnPage(page int) []ID {
	if s == nil {
		return nil
	}
	var ids []ID
	for i, r := range s.records {
		if r.Page == page {
			ids = append(ids, ID(i))
		}
	}
	return ids
}
