// Package benchmark holds Go benchmarks for index construction, segment
// encoding, BM25 retrieval and metric computation.
package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/config"
)

var vocabulary = []string{
	"retrieval", "expansion", "thesaurus", "ranking", "relevance", "judgment",
	"corpus", "posting", "shard", "segment", "precision", "recall",
	"automobile", "vehicle", "engine", "feline", "canine", "network",
}

func syntheticCorpus(n int) []corpus.Document {
	docs := make([]corpus.Document, n)
	for i := range docs {
		var text bytes.Buffer
		for j := 0; j < 40; j++ {
			text.WriteString(vocabulary[(i*7+j*3)%len(vocabulary)])
			text.WriteByte(' ')
		}
		docs[i] = corpus.Document{
			ID:    fmt.Sprintf("doc-%06d", i),
			Title: vocabulary[i%len(vocabulary)],
			Text:  text.String(),
		}
	}
	return docs
}

func buildIndex(b *testing.B, n int) *index.InvertedIndex {
	b.Helper()
	idx, err := indexer.Build(context.Background(), syntheticCorpus(n))
	if err != nil {
		b.Fatal(err)
	}
	return idx
}

// BenchmarkPartialAdd measures per-document insert throughput into a
// single shard partial.
func BenchmarkPartialAdd(b *testing.B) {
	docs := syntheticCorpus(1000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := index.NewPartial()
		for _, d := range docs {
			if err := p.AddDocument(d.ID, d.Title, d.Text); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkBuild measures the full sharded build for different shard counts.
func BenchmarkBuild(b *testing.B) {
	docs := syntheticCorpus(5000)
	for _, shards := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("shards_%d", shards), func(b *testing.B) {
			cfg := config.Default().Index
			cfg.Shards = shards
			cfg.Workers = shards
			builder, err := indexer.NewBuilder(cfg, nil)
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := builder.Build(context.Background(), docs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSegmentRoundTrip measures encoding and decoding a persisted index.
func BenchmarkSegmentRoundTrip(b *testing.B) {
	idx := buildIndex(b, 5000)
	data, err := segment.Bytes(idx)
	if err != nil {
		b.Fatal(err)
	}
	b.Run("encode", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := segment.Bytes(idx); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("decode", func(b *testing.B) {
		b.ReportAllocs()
		b.SetBytes(int64(len(data)))
		for i := 0; i < b.N; i++ {
			if _, _, err := segment.Decode(bytes.NewReader(data)); err != nil {
				b.Fatal(err)
			}
		}
	})
}
