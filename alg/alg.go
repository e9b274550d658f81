// Package alg scores how close a fragment that could not be located comes
// to the text of a document. The results only feed diagnostics; they never
// produce highlights.
package alg

import (
	"math"
	"strings"

	"github.com/bbalet/stopwords"
	"github.com/jdkato/prose/v2"
)

// POS tags kept as keywords.
const (
	nounSingular        = "NN"
	nounPlural          = "NNS"
	verb                = "VB"
	verbSingularPresent = "VBZ"
	adjective           = "JJ"
)

// PageText is the extracted text of one page.
type PageText struct {
	Number int
	Text   string
}

// NearMiss is the most similar place found for a fragment.
type NearMiss struct {
	Page     int     // 1-based page number
	Line     string  // closest line on Page
	Score    float32 // cosine similarity of fragment and page
	Distance int     // Levenshtein distance of fragment and Line, stop words removed
}

// CalculateTFIDF calculates the term frequencies of a document.
func CalculateTFIDF(doc *prose.Document) map[string]float64 {
	tokens := doc.Tokens()
	tf := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		tf[token.Text]++
	}
	for token := range tf {
		tf[token] /= float64(len(tokens))
	}
	return tf
}

// CalculateCosineSimilarity calculates the cosine similarity between two TF-IDF maps.
func CalculateCosineSimilarity(tfidf1, tfidf2 map[string]float64) float32 {
	dotProduct := 0.0
	magnitude1 := 0.0
	magnitude2 := 0.0

	for term, score1 := range tfidf1 {
		if score2, exists := tfidf2[term]; exists {
			dotProduct += score1 * score2
		}
		magnitude1 += score1 * score1
	}
	for _, score2 := range tfidf2 {
		magnitude2 += score2 * score2
	}

	magnitude1 = math.Sqrt(magnitude1)
	magnitude2 = math.Sqrt(magnitude2)

	if magnitude1 != 0 && magnitude2 != 0 {
		return float32(dotProduct / (magnitude1 * magnitude2))
	}
	return 0.0
}

// clean lowercases s and strips its stop words.
func clean(s string) string {
	return strings.TrimSpace(strings.ToLower(stopwords.CleanString(s, "en", false)))
}

func document(text string) (*prose.Document, error) {
	return prose.NewDocument(text, prose.WithExtraction(false), prose.WithSegmentation(false))
}

// Keywords returns the nouns, verbs and adjectives of text, lowercased and
// without stop words.
func Keywords(text string) ([]string, error) {
	doc, err := document(clean(text))
	if err != nil {
		return nil, err
	}

	var keywords []string
	for _, token := range doc.Tokens() {
		switch token.Tag {
		case nounSingular, nounPlural, verb, verbSingularPresent, adjective:
			keywords = append(keywords, token.Text)
		}
	}
	return keywords, nil
}

// Similarity returns the cosine similarity of the term frequencies of a and
// b after stop word removal.
func Similarity(a, b string) (float32, error) {
	docA, err := document(clean(a))
	if err != nil {
		return 0, err
	}
	docB, err := document(clean(b))
	if err != nil {
		return 0, err
	}
	return CalculateCosineSimilarity(CalculateTFIDF(docA), CalculateTFIDF(docB)), nil
}

// Closest finds the page most similar to the keywords of fragment and, on
// it, the line with the smallest edit distance. It reports false when no
// page shares a keyword with fragment.
func Closest(fragment string, pages []PageText) (NearMiss, bool) {
	keywords, err := Keywords(fragment)
	if err != nil || len(keywords) == 0 {
		return NearMiss{}, false
	}
	query, err := document(strings.Join(keywords, " "))
	if err != nil {
		return NearMiss{}, false
	}
	queryTF := CalculateTFIDF(query)
	if len(queryTF) == 0 {
		return NearMiss{}, false
	}

	var best NearMiss
	var bestText string
	for _, page := range pages {
		doc, err := document(clean(page.Text))
		if err != nil {
			continue
		}
		score := CalculateCosineSimilarity(queryTF, CalculateTFIDF(doc))
		if score > best.Score {
			best = NearMiss{Page: page.Number, Score: score}
			bestText = page.Text
		}
	}
	if best.Score == 0 {
		return NearMiss{}, false
	}

	best.Line, best.Distance = closestLine(fragment, bestText)
	return best, true
}

func closestLine(fragment, text string) (string, int) {
	target := []byte(clean(fragment))
	line, distance := "", math.MaxInt
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		d := stopwords.LevenshteinDistance([]byte(strings.ToLower(l)), target, "en", false)
		if d < distance {
			line, distance = l, d
		}
	}
	if line == "" {
		return "", 0
	}
	return line, distance
}
