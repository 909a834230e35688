package expansion

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// Suggestion is one related term. In YAML it is either a bare string, which
// takes the thesaurus default weight, or a {term, weight} mapping.
type Suggestion struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

func (s *Suggestion) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Term = node.Value
		return nil
	}
	type plain Suggestion
	return node.Decode((*plain)(s))
}

type thesaurusFile struct {
	DefaultWeight float64                 `yaml:"defaultWeight"`
	Synonyms      map[string][]Suggestion `yaml:"synonyms"`
}

// Thesaurus expands each base term from a static synonym table. Keys and
// suggestions are normalized with the index tokenizer when loaded; a
// multi-word suggestion contributes each of its terms.
type Thesaurus struct {
	table map[string]map[string]float64
}

// LoadThesaurus reads a YAML table of the form
//
//	defaultWeight: 0.5
//	synonyms:
//	  car: [automobile, {term: vehicle, weight: 0.3}]
func LoadThesaurus(path string, defaultWeight float64) (*Thesaurus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading thesaurus: %w", err)
	}
	return ParseThesaurus(data, defaultWeight)
}

func ParseThesaurus(data []byte, defaultWeight float64) (*Thesaurus, error) {
	var f thesaurusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, apperrors.InvalidConfigf("parsing thesaurus: %v", err)
	}
	if f.DefaultWeight > 0 {
		defaultWeight = f.DefaultWeight
	}
	if !(defaultWeight > 0) {
		return nil, apperrors.InvalidConfigf("thesaurus default weight must be > 0")
	}
	table := make(map[string]map[string]float64, len(f.Synonyms))
	for key, suggestions := range f.Synonyms {
		base, ok := tokenizer.Normalize(key)
		if !ok {
			return nil, apperrors.InvalidConfigf("thesaurus key %q is not a single index term", key)
		}
		dst := table[base]
		if dst == nil {
			dst = make(map[string]float64)
			table[base] = dst
		}
		for _, s := range suggestions {
			w := s.Weight
			if w == 0 {
				w = defaultWeight
			}
			if !(w > 0) {
				return nil, apperrors.InvalidConfigf("thesaurus %q -> %q: weight must be > 0", key, s.Term)
			}
			for _, term := range tokenizer.Terms(s.Term) {
				if term != base && w > dst[term] {
					dst[term] = w
				}
			}
		}
	}
	return &Thesaurus{table: table}, nil
}

// Expand collects suggestions for every base term. When two base terms
// suggest the same term the larger weight is kept.
func (t *Thesaurus) Expand(_ context.Context, q parser.Query) (parser.ExpandedQuery, error) {
	out := make(map[string]float64)
	for _, term := range q.Terms {
		for s, w := range t.table[term] {
			if w > out[s] {
				out[s] = w
			}
		}
	}
	return parser.Expand(q, out), nil
}

func (t *Thesaurus) Len() int {
	return len(t.table)
}
