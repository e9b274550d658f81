package alg

import (
	"slices"
	"testing"

	"github.com/jdkato/prose/v2"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name  string
		a, b  string
		above float32
		below float32
	}{
		{name: "identical", a: "version control system", b: "version control system", above: 0.99, below: 1.01},
		{name: "disjoint", a: "version control system", b: "banana orchard", above: -0.01, below: 0.01},
		{name: "partial", a: "version control system", b: "control theory", above: 0.01, below: 0.99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Similarity(tt.a, tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if got <= tt.above || got >= tt.below {
				t.Errorf("Similarity() = %v, want in (%v, %v)", got, tt.above, tt.below)
			}
		})
	}
}

func TestKeywords(t *testing.T) {
	got, err := Keywords("The version control system of the team")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(got, "system") {
		t.Errorf("Keywords() = %q, want it to contain %q", got, "system")
	}
	if slices.Contains(got, "the") || slices.Contains(got, "of") {
		t.Errorf("Keywords() = %q kept stop words", got)
	}
}

func TestClosest(t *testing.T) {
	pages := []PageText{
		{Number: 1, Text: "Bananas grow in orchards.\nThey ripen in the sun."},
		{Number: 2, Text: "Introduction\nA version control system records changes.\nBranches help teams."},
	}

	got, ok := Closest("version control system records changes over time", pages)
	if !ok {
		t.Fatalf("Closest() found nothing")
	}
	if got.Page != 2 {
		t.Errorf("Closest().Page = %d, want 2", got.Page)
	}
	if got.Line != "A version control system records changes." {
		t.Errorf("Closest().Line = %q", got.Line)
	}

	if _, ok := Closest("quantum chromodynamics", pages); ok {
		t.Errorf("Closest() matched an unrelated fragment")
	}
	if _, ok := Closest("", pages); ok {
		t.Errorf("Closest() matched an empty fragment")
	}
}

func BenchmarkSimilarity(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Similarity("This is a test", "This is a test")
	}
}

func BenchmarkCosineSimilarity(b *testing.B) {
	tfidf1 := map[string]float64{
		"version": 1.0,
		"control": 1.0,
		"system":  1.0,
	}
	tfidf2 := map[string]float64{
		"version": 1.0,
		"control": 1.0,
		"branch":  1.0,
	}
	for i := 0; i < b.N; i++ {
		CalculateCosineSimilarity(tfidf1, tfidf2)
	}
}

func BenchmarkCalculateTFIDF(b *testing.B) {
	doc, _ := prose.NewDocument("A version control system records changes to files over time")

	for i := 0; i < b.N; i++ {
		CalculateTFIDF(doc)
	}
}
