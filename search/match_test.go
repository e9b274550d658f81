package search

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     []Token
	}{
		{
			name:     "words",
			fragment: "  version\tcontrol\n system ",
			want:     []Token{{Text: "version"}, {Text: "control"}, {Text: "system"}},
		},
		{
			name:     "citation with spaces",
			fragment: "results [3, 7] show",
			want:     []Token{{Text: "results"}, {Text: "[3, 7]", Citation: true}, {Text: "show"}},
		},
		{
			name:     "citation glued to word",
			fragment: "results[12]",
			want:     []Token{{Text: "results"}, {Text: "[12]", Citation: true}},
		},
		{
			name:     "superscript citation",
			fragment: "results ³,⁷",
			want:     []Token{{Text: "results"}, {Text: "³,⁷", Citation: true}},
		},
		{
			name:     "ellipses dropped",
			fragment: "... the middle part …",
			want:     []Token{{Text: "the"}, {Text: "middle"}, {Text: "part"}},
		},
		{
			name:     "brackets that are not citations",
			fragment: "[sic] text",
			want:     []Token{{Text: "[sic]"}, {Text: "text"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tokenize(tt.fragment); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %+v, want %+v", tt.fragment, got, tt.want)
			}
		})
	}
}

func TestCompileEmpty(t *testing.T) {
	for _, fragment := range []string{"", "   ", "\n\t", "…"} {
		p, err := Compile(fragment)
		if !errors.Is(err, ErrEmptyFragment) || p != nil {
			t.Errorf("Compile(%q) = %v, %v; want nil, ErrEmptyFragment", fragment, p, err)
		}
	}
}

func TestFindAll(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		fragment string
		want     []string // matched text, in order
	}{
		{
			name:     "hyphen broken across lines",
			lines:    []string{"successful colla-\n", "boration requires"},
			fragment: "collaboration",
			want:     []string{"colla-\nboration"},
		},
		{
			name:     "non breaking hyphen with spaces",
			lines:    []string{"long‑ term planning"},
			fragment: "long term planning",
			want:     []string{"long‑ term planning"},
		},
		{
			name:     "citation ascii",
			lines:    []string{"as the results [3,7] show"},
			fragment: "results [3, 7]",
			want:     []string{"results [3,7]"},
		},
		{
			name:     "citation full width",
			lines:    []string{"as the results［3，7］show"},
			fragment: "results [3, 7]",
			want:     []string{"results［3，7］"},
		},
		{
			name:     "citation superscript",
			lines:    []string{"as the results³,⁷ show"},
			fragment: "results [3, 7]",
			want:     []string{"results³,⁷"},
		},
		{
			name:     "citation lenticular",
			lines:    []string{"results【12】 were"},
			fragment: "results [3]",
			want:     []string{"results【12】"},
		},
		{
			name:     "whitespace variants",
			lines:    []string{"A version  control ", "system\nserves"},
			fragment: "version control system serves",
			want:     []string{"version  control system\nserves"},
		},
		{
			name:     "words joined across nodes",
			lines:    []string{"version", "control"},
			fragment: "version control",
			want:     []string{"versioncontrol"},
		},
		{
			name:     "case insensitive",
			lines:    []string{"VERSION Control"},
			fragment: "version control",
			want:     []string{"VERSION Control"},
		},
		{
			name:     "all occurrences in text order",
			lines:    []string{"git is a tool. ", "Git is also a verb."},
			fragment: "git is",
			want:     []string{"git is", "Git is"},
		},
		{
			name:     "metacharacters are literal",
			lines:    []string{"costs (a+b)*2 dollars"},
			fragment: "(a+b)*2",
			want:     []string{"(a+b)*2"},
		},
		{
			name:     "multibyte offsets",
			lines:    []string{"naïve café culture"},
			fragment: "café",
			want:     []string{"café"},
		},
		{
			name:     "no match",
			lines:    []string{"nothing to see here"},
			fragment: "version control",
			want:     nil,
		},
	}

	m := NewMatcher(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := BuildIndex(textPage(1, tt.lines...))
			matches := m.FindAll(tt.fragment, idx)

			var got []string
			for _, mt := range matches {
				got = append(got, idx.Slice(mt.Start, mt.End))
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindAll(%q) = %q, want %q", tt.fragment, got, tt.want)
			}
		})
	}
}

func TestFindAllEndToEnd(t *testing.T) {
	idx := BuildIndex(textPage(4, "A version control system serves the following purposes..."))
	matches := NewMatcher(nil).FindAll("version control system serves", idx)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if m := matches[0]; m.Start != 2 || m.End != 2+len("version control system serves") {
		t.Errorf("match = %+v", m)
	}
}

func TestMatcherEmptyInputs(t *testing.T) {
	m := NewMatcher(nil)
	idx := BuildIndex(textPage(1, "some text"))

	if got := m.FindAll("   ", idx); got != nil {
		t.Errorf("whitespace fragment matched: %v", got)
	}
	if got := m.FindAll("text", BuildIndex(textPage(1))); got != nil {
		t.Errorf("empty index matched: %v", got)
	}
	if got := m.FindAll("text", nil); got != nil {
		t.Errorf("nil index matched: %v", got)
	}
}

func TestMatcherCachesPatterns(t *testing.T) {
	m := NewMatcher(nil)
	a := m.Pattern("version control")
	b := m.Pattern("version control")
	if a == nil || a != b {
		t.Fatalf("expected the same cached pattern, got %p and %p", a, b)
	}

	m.Reset()
	if c := m.Pattern("version control"); c == a {
		t.Errorf("Reset() kept the old pattern")
	}
}

func BenchmarkFindAll(b *testing.B) {
	text := strings.Repeat("A version control system serves the following purposes. ", 200)
	idx := BuildIndex(textPage(1, text))
	p, err := Compile("following purposes [3, 7] version control")
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.FindAll(idx)
	}
}
