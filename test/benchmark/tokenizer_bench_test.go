package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `Query expansion adds related terms to a user query before retrieval.
        A thesaurus or an external service proposes candidates, each with a weight
        below the original terms, and the expanded query is scored with BM25 against
        the same inverted index as the baseline so the two runs stay comparable.`,
	"long": strings.Repeat(`Test collections pair a document corpus with topics and graded
        relevance judgments. Judgments are usually gathered by pooling the top documents
        of several systems, so documents that no system retrieved stay unjudged and count
        as non-relevant. Precision, recall, nDCG and average precision are then computed
        per topic and averaged across the collection. `, 20),
	"unicode": strings.Repeat("Ｆｕｌｌｗｉｄｔｈ STRASSE straße don’t café ", 20),
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.Tokenize(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tokenizer.Terms(text)
		}
	})
}

func BenchmarkNormalize(b *testing.B) {
	words := []string{
		"Expansion", "AUTOMOBILE", "the", "Straße",
		"ｃａｔ", "don’t", "retrieval", "e-mail",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			_, _ = tokenizer.Normalize(w)
		}
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "query expansion evaluation retrieval judgments "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tokenizer.Tokenize(text)
			}
		})
	}
}
