package search

import (
	"errors"
	"log/slog"
	"sync"
)

// Match is one occurrence of a fragment, in rune offsets of PageIndex.Text.
type Match struct {
	Start int
	End   int
}

// FindAll returns every non-overlapping occurrence of p in idx, in text
// order. Zero-length matches are skipped.
func (p *Pattern) FindAll(idx *PageIndex) []Match {
	if p == nil || idx == nil || idx.Empty() {
		return nil
	}

	locs := p.re.FindAllStringIndex(idx.Text, -1)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		if loc[1] <= loc[0] {
			continue
		}
		matches = append(matches, Match{
			Start: idx.runeOffset(loc[0]),
			End:   idx.runeOffset(loc[1]),
		})
	}
	return matches
}

// Matcher compiles fragments on first use and keeps the patterns for the
// lifetime of a highlighting session.
type Matcher struct {
	logger *slog.Logger

	mu       sync.Mutex
	patterns map[string]*Pattern
}

// NewMatcher returns an empty Matcher. A nil logger uses slog.Default().
func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{logger: logger, patterns: make(map[string]*Pattern)}
}

// Pattern returns the compiled pattern for fragment, or nil when the
// fragment has nothing to search for. Failures are cached too.
func (m *Matcher) Pattern(fragment string) *Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.patterns[fragment]; ok {
		return p
	}

	p, err := Compile(fragment)
	if err != nil && !errors.Is(err, ErrEmptyFragment) {
		m.logger.Debug("fragment pattern rejected", "fragment", fragment, "error", err)
	}
	m.patterns[fragment] = p
	return p
}

// FindAll runs fragment against idx. Empty fragments and fragments
// whose pattern could not be built yield no matches.
func (m *Matcher) FindAll(fragment string, idx *PageIndex) []Match {
	return m.Pattern(fragment).FindAll(idx)
}

// Reset drops every cached pattern.
func (m *Matcher) Reset() {
	m.mu.Lock()
	m.patterns = make(map[string]*Pattern)
	m.mu.Unlock()
}
