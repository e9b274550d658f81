// Package viewer runs the highlighting pipeline of one document view:
// pages are rendered, indexed and searched one after another, matches are
// drawn as overlays and stored, and scroll requests are answered from the
// finished record set.
package viewer

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abiiranathan/pdfhighlight/alg"
	"github.com/abiiranathan/pdfhighlight/coords"
	"github.com/abiiranathan/pdfhighlight/highlight"
	"github.com/abiiranathan/pdfhighlight/layer"
	"github.com/abiiranathan/pdfhighlight/search"
)

// ErrNoDocument is returned when highlighting is requested before a
// document was opened.
var ErrNoDocument = errors.New("viewer: no document")

// Document renders pages and their text layers.
type Document interface {
	NumPages() int

	// RenderPage lays out page number (1-based) at scale and returns its
	// box and text layer.
	RenderPage(ctx context.Context, number int, scale float64) (layer.Page, error)
}

// Persister stores the records of a reading. Session calls it in the
// background after every local highlighting run.
type Persister interface {
	SaveHighlights(ctx context.Context, readingID int, records []highlight.Record) error
}

// Options configure a Session.
type Options struct {
	Scale float64 // Initial viewport scale. Defaults to 1.

	// SettleDelay is waited before a scroll request is resolved, so
	// freshly drawn overlays are in place. Zero resolves immediately.
	SettleDelay time.Duration

	Thresholds highlight.Thresholds

	ReadingID      int
	Persister      Persister
	PersistTimeout time.Duration // Defaults to 10s.

	Logger *slog.Logger
}

// Result describes what a scroll request did.
type Result struct {
	highlight.Resolution

	// Pending is set when the request was parked until highlighting
	// finishes.
	Pending bool

	Scrolled  bool
	ScrollTop float64
}

type renderedPage struct {
	page  layer.Page
	index *search.PageIndex
}

// Session owns the highlight state of one document view.
type Session struct {
	opts     Options
	logger   *slog.Logger
	overlay  highlight.Overlay
	matcher  *search.Matcher
	resolver *highlight.Resolver
	registry *highlight.Registry
	emphasis highlight.Emphasis

	// generation is bumped by every change that invalidates running work.
	generation atomic.Uint64
	persisting sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	doc       Document
	scale     float64
	fragments []string
	stored    bool // records were supplied by UseStored
	pages     map[int]*renderedPage
	records   *highlight.Set
	complete  bool
	pending   *highlight.Request
}

// New returns a Session drawing on overlay.
func New(overlay highlight.Overlay, opts Options) *Session {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}
	opts.Thresholds = opts.Thresholds.WithDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		opts:     opts,
		logger:   logger,
		overlay:  overlay,
		matcher:  search.NewMatcher(logger),
		resolver: highlight.NewResolver(logger, highlight.DefaultStrategies(opts.Thresholds)...),
		registry: highlight.NewRegistry(),
		scale:    opts.Scale,
		pages:    make(map[int]*renderedPage),
	}
}

// Open swaps in doc. Work still running for the previous document is
// abandoned and every highlight is cleared.
func (s *Session) Open(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation.Add(1)
	s.doc = doc
	s.stored = false
	s.pending = nil
	s.resetLocked()
	s.matcher.Reset()
}

// Highlight searches the open document for fragments and replaces the
// current records with what it finds. It returns the new records.
func (s *Session) Highlight(ctx context.Context, fragments []string) ([]highlight.Record, error) {
	s.mu.Lock()
	s.fragments = dedupe(fragments)
	s.stored = false
	gen := s.generation.Add(1)
	s.mu.Unlock()

	if err := s.run(ctx, gen); err != nil {
		return nil, err
	}
	return s.Records(), nil
}

// UseStored replaces the current records with records computed earlier,
// skipping the local search. Records failing validation are dropped.
func (s *Session) UseStored(ctx context.Context, records []highlight.Record) error {
	valid := make([]highlight.Record, 0, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			s.logger.Warn("dropping stored highlight", "fragment", r.Fragment, "error", err)
			continue
		}
		valid = append(valid, r)
	}

	s.mu.Lock()
	s.stored = true
	s.records = highlight.NewSet(valid)
	gen := s.generation.Add(1)
	s.mu.Unlock()

	return s.run(ctx, gen)
}

// Rescale lays the document out again at scale and rebuilds every index
// and overlay.
func (s *Session) Rescale(ctx context.Context, scale float64) error {
	s.mu.Lock()
	s.scale = scale
	gen := s.generation.Add(1)
	s.mu.Unlock()

	return s.run(ctx, gen)
}

// ScrollTo emphasizes the highlight best matching req and scrolls it into
// the middle of the viewport. When highlighting has not finished, or found
// nothing yet, the request is parked and answered by the next run; only
// the latest parked request is kept.
func (s *Session) ScrollTo(ctx context.Context, req highlight.Request) (Result, error) {
	if s.parkUnlessReady(req) {
		return Result{Pending: true}, nil
	}
	return s.resolve(ctx, req)
}

// Records returns a copy of the current records.
func (s *Session) Records() []highlight.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Records()
}

// Complete reports whether the current record set covers every page.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// Emphasized returns the ids of the emphasized highlights.
func (s *Session) Emphasized() []highlight.ID {
	return s.emphasis.Current()
}

// Close abandons running work and waits for pending writes to the
// Persister. Runs started after Close are not persisted.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.generation.Add(1)
	s.mu.Unlock()

	s.persisting.Wait()
}

func (s *Session) stale(gen uint64) bool {
	return s.generation.Load() != gen
}

// parkUnlessReady stores req in the pending slot unless the record set is
// complete and non-empty. It reports whether req was parked.
func (s *Session) parkUnlessReady(req highlight.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete && s.records.Len() > 0 {
		return false
	}
	s.pending = &req
	s.logger.Debug("scroll request parked", "fragment", req.Fragment)
	return true
}

// resetLocked wipes overlays, indices and, for local runs, the records.
func (s *Session) resetLocked() {
	if s.overlay != nil {
		for number := range s.pages {
			s.overlay.Clear(number)
		}
	}
	s.registry.Reset()
	s.emphasis.Forget()
	s.pages = make(map[int]*renderedPage)
	s.complete = false
	if !s.stored {
		s.records = nil
	}
}

// run renders every page in order, finds or places its highlights and
// draws them. Between pages it yields and checks whether gen is still
// current; a stale run returns without touching state.
func (s *Session) run(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	if s.stale(gen) {
		s.mu.Unlock()
		return nil
	}
	doc, scale, stored := s.doc, s.scale, s.stored
	fragments := slices.Clone(s.fragments)
	s.resetLocked()
	s.mu.Unlock()

	if doc == nil {
		return ErrNoDocument
	}

	var found []highlight.Record
	for number := 1; number <= doc.NumPages(); number++ {
		if err := ctx.Err(); err != nil {
			s.abandon(gen)
			return err
		}
		if s.stale(gen) {
			return nil
		}

		page, err := doc.RenderPage(ctx, number, scale)
		if err != nil {
			s.logger.Warn("page render failed", "page", number, "error", err)
			continue
		}
		index := search.BuildIndex(page)

		s.mu.Lock()
		if s.stale(gen) {
			s.mu.Unlock()
			return nil
		}
		s.pages[number] = &renderedPage{page: page, index: index}
		if stored {
			s.drawLocked(page, s.records.OnPage(number))
		} else {
			first := len(found)
			found = append(found, s.locate(index, page, fragments)...)
			ids := make([]highlight.ID, 0, len(found)-first)
			for i := first; i < len(found); i++ {
				ids = append(ids, highlight.ID(i))
			}
			s.drawRecordsLocked(page, ids, found)
		}
		s.mu.Unlock()

		runtime.Gosched()
	}

	s.mu.Lock()
	if s.stale(gen) {
		s.mu.Unlock()
		return nil
	}
	if !stored {
		s.records = highlight.NewSet(found)
		s.persistLocked(found)
	}
	s.complete = true
	pending := s.pending
	s.pending = nil
	count := s.records.Len()
	s.mu.Unlock()

	s.logger.Debug("highlighting complete", "pages", doc.NumPages(), "records", count, "stored", stored)

	if !stored {
		s.reportMisses(ctx, fragments, found)
	}
	if pending != nil {
		if _, err := s.ScrollTo(ctx, *pending); err != nil {
			return err
		}
	}
	return nil
}

// abandon clears the partial results of a cancelled run.
func (s *Session) abandon(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stale(gen) {
		s.resetLocked()
	}
}

// locate runs every fragment against one page.
func (s *Session) locate(index *search.PageIndex, page layer.Page, fragments []string) []highlight.Record {
	var records []highlight.Record
	for _, fragment := range fragments {
		for _, m := range s.matcher.FindAll(fragment, index) {
			box, ok := index.Bounds(m.Start, m.End)
			if !ok {
				continue
			}
			records = append(records, highlight.Record{
				Fragment:   fragment,
				Page:       page.Number,
				CharStart:  m.Start,
				CharEnd:    m.End,
				Normalized: coords.Forward(box, page.Box, page.Number),
			})
		}
	}
	return records
}

func (s *Session) drawLocked(page layer.Page, ids []highlight.ID) {
	s.drawRecordsLocked(page, ids, s.records.Records())
}

func (s *Session) drawRecordsLocked(page layer.Page, ids []highlight.ID, records []highlight.Record) {
	for _, id := range ids {
		r := records[id]
		d := highlight.Drawn{
			ID:   id,
			Page: page.Number,
			Rect: coords.Inverse(r.Normalized, page.Box),
			Box:  page.Box,
		}
		s.registry.Add(d)
		if s.overlay != nil {
			s.overlay.Draw(d.ID, d.Page, d.Rect)
		}
	}
}

func (s *Session) resolve(ctx context.Context, req highlight.Request) (Result, error) {
	if s.opts.SettleDelay > 0 {
		timer := time.NewTimer(s.opts.SettleDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.complete || s.records.Len() == 0 {
		s.pending = &req
		return Result{Pending: true}, nil
	}

	view := highlight.View{Records: s.records, Drawn: s.registry, Box: s.boxLocked, Scale: s.scale}
	res := s.resolver.Resolve(req, view)
	if s.overlay == nil {
		return Result{Resolution: res}, nil
	}

	s.emphasis.Set(s.overlay, res.IDs)
	if !res.Found() {
		return Result{Resolution: res}, nil
	}

	d, ok := s.registry.Lookup(res.IDs[0])
	if !ok {
		return Result{Resolution: res}, nil
	}
	top := highlight.ScrollTop(d, s.overlay.ViewportHeight())
	s.overlay.ScrollTo(top)
	return Result{Resolution: res, Scrolled: true, ScrollTop: top}, nil
}

func (s *Session) boxLocked(page int) (layer.Rect, bool) {
	p, ok := s.pages[page]
	if !ok {
		return layer.Rect{}, false
	}
	return p.page.Box, true
}

// persistLocked hands records to the Persister without waiting for it.
// The caller holds s.mu and has checked that its run is current, so Close
// cannot be waiting yet.
func (s *Session) persistLocked(records []highlight.Record) {
	p := s.opts.Persister
	if p == nil || s.closed {
		return
	}

	s.persisting.Add(1)
	go func() {
		defer s.persisting.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.opts.PersistTimeout)
		defer cancel()

		if err := p.SaveHighlights(ctx, s.opts.ReadingID, records); err != nil {
			s.logger.Warn("saving highlights failed", "reading", s.opts.ReadingID,
				"records", len(records), "error", err)
		}
	}()
}

// reportMisses logs, at debug level, where each fragment that produced no
// record came closest.
func (s *Session) reportMisses(ctx context.Context, fragments []string, found []highlight.Record) {
	if !s.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	located := make(map[string]bool, len(found))
	for _, r := range found {
		located[r.Fragment] = true
	}

	var texts []alg.PageText
	for _, fragment := range fragments {
		if located[fragment] {
			continue
		}
		if texts == nil {
			texts = s.pageTexts()
		}
		if miss, ok := alg.Closest(fragment, texts); ok {
			s.logger.Debug("fragment not located", "fragment", fragment,
				"closest_page", miss.Page, "closest_line", miss.Line,
				"score", miss.Score, "distance", miss.Distance)
		} else {
			s.logger.Debug("fragment not located", "fragment", fragment)
		}
	}
}

func (s *Session) pageTexts() []alg.PageText {
	s.mu.Lock()
	defer s.mu.Unlock()

	texts := make([]alg.PageText, 0, len(s.pages))
	for number, p := range s.pages {
		texts = append(texts, alg.PageText{Number: number, Text: p.index.Text})
	}
	slices.SortFunc(texts, func(a, b alg.PageText) int { return a.Number - b.Number })
	return texts
}

func dedupe(fragments []string) []string {
	seen := make(map[string]struct{}, len(fragments))
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
