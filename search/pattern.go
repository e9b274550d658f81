package search

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// ErrEmptyFragment is returned by Compile for fragments without any token.
var ErrEmptyFragment = errors.New("search: empty fragment")

// Building blocks of the tolerant pattern.
const (
	// Whitespace as it appears in PDF text layers: ASCII space and line
	// breaks, NBSP and the other Unicode space separators, ZWSP.
	whitespace = `[\s\p{Zs}\x{200B}]`

	// ASCII hyphen, Unicode hyphen, non-breaking hyphen, figure dash,
	// en dash, em dash, horizontal bar, minus sign, soft hyphen,
	// small and full-width hyphen-minus.
	hyphen = `[\x{2D}\x{2010}\x{2011}\x{2012}\x{2013}\x{2014}\x{2015}\x{2212}\x{AD}\x{FE63}\x{FF0D}]`

	hyphenRun = whitespace + `*` + hyphen + whitespace + `*`

	// Gap between two fragment tokens: a hyphen with optional whitespace
	// around it, a run of whitespace, or nothing.
	gap = `(?:` + hyphenRun + `|` + whitespace + `*)`

	// Optional line-wrap break between two letters of one word.
	wordBreak = `(?:` + hyphenRun + `)?`

	openBracket  = `[\[\x{FF3B}\x{3010}\x{3014}\x{3016}\x{FE5D}]`
	closeBracket = `[\]\x{FF3D}\x{3011}\x{3015}\x{3017}\x{FE5E}]`
	superscripts = `\x{2070}\x{00B9}\x{00B2}\x{00B3}\x{2074}-\x{2079}`
	digit        = `[0-9\x{FF10}-\x{FF19}` + superscripts + `]`
	superDigit   = `[` + superscripts + `]`

	// Separators inside a citation list: ASCII, full-width and ideographic
	// comma, and range dashes.
	citationSep = `[,\x{FF0C}\x{3001}\x{2D}\x{2013}]`

	citationPattern = `(?:` +
		openBracket + whitespace + `*` + digit + `+` +
		`(?:` + whitespace + `*` + citationSep + whitespace + `*` + digit + `+)*` +
		whitespace + `*` + closeBracket +
		`|` +
		superDigit + `+(?:` + citationSep + `?` + superDigit + `+)*` +
		`)`
)

var (
	// citationInFragment finds bracketed citation lists inside a raw
	// fragment, so "[3, 7]" survives whitespace tokenization as one token.
	citationInFragment = regexp.MustCompile(openBracket + `\s*` + digit + `+(?:\s*` + citationSep + `\s*` + digit + `+)*\s*` + closeBracket)

	// bareCitation matches a token made only of superscript digits.
	bareCitation = regexp.MustCompile(`^` + superDigit + `+(?:` + citationSep + `?` + superDigit + `+)*$`)
)

// Token is one unit of a search fragment.
type Token struct {
	Text     string
	Citation bool // Bracketed or superscript citation list.
}

// Tokenize splits fragment on whitespace. Citation lists are kept whole
// even when they contain spaces or are glued to the preceding word.
// Leading and trailing ellipses are dropped since they only mark where a
// quotation was cut.
func Tokenize(fragment string) []Token {
	var tokens []Token
	last := 0
	for _, loc := range citationInFragment.FindAllStringIndex(fragment, -1) {
		tokens = appendWords(tokens, fragment[last:loc[0]])
		tokens = append(tokens, Token{Text: fragment[loc[0]:loc[1]], Citation: true})
		last = loc[1]
	}
	tokens = appendWords(tokens, fragment[last:])

	for len(tokens) > 0 && isEllipsis(tokens[0].Text) {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && isEllipsis(tokens[len(tokens)-1].Text) {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func appendWords(tokens []Token, s string) []Token {
	for _, word := range strings.Fields(s) {
		tokens = append(tokens, Token{Text: word, Citation: bareCitation.MatchString(word)})
	}
	return tokens
}

func isEllipsis(s string) bool {
	return strings.Trim(s, ".…") == ""
}

// Pattern is a compiled tolerant search pattern for one fragment.
type Pattern struct {
	Fragment string
	re       *regexp.Regexp
}

// Compile builds the tolerant pattern of fragment.
func Compile(fragment string) (*Pattern, error) {
	tokens := Tokenize(fragment)
	if len(tokens) == 0 {
		return nil, ErrEmptyFragment
	}

	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		if tok.Citation {
			parts[i] = citationPattern
		} else {
			parts[i] = literalPattern(tok.Text)
		}
	}

	re, err := regexp.Compile("(?i)" + strings.Join(parts, gap))
	if err != nil {
		return nil, fmt.Errorf("search: compile pattern for %q: %w", fragment, err)
	}
	return &Pattern{Fragment: fragment, re: re}, nil
}

// literalPattern escapes token and lets the source break it across lines.
func literalPattern(token string) string {
	var b strings.Builder
	var prev rune
	for i, r := range []rune(token) {
		if isHyphen(r) {
			b.WriteString(hyphenRun)
			prev = r
			continue
		}
		if i > 0 && unicode.IsLetter(prev) && unicode.IsLetter(r) {
			b.WriteString(wordBreak)
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
		prev = r
	}
	return b.String()
}

func isHyphen(r rune) bool {
	switch r {
	case '-', '\u2010', '\u2011', '\u2012', '\u2013', '\u2014', '\u2015', '\u2212', '\u00ad', '\ufe63', '\uff0d':
		return true
	}
	return false
}

// String returns the underlying regular expression.
func (p *Pattern) String() string {
	return p.re.String()
}
