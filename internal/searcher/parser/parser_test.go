package parser

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

func TestParse(t *testing.T) {
	q, err := Parse("q1", "The Dog and the dog house")
	require.NoError(t, err)
	assert.Equal(t, "q1", q.QID)
	assert.Equal(t, []string{"dog", "dog", "house"}, q.Terms)
}

func TestParseEmptyQuery(t *testing.T) {
	for _, text := range []string{"", "   ", "the and of"} {
		_, err := Parse("q1", text)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "text %q", text)
	}
	_, err := Parse("", "dog")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestIdentityDedupesBaseTerms(t *testing.T) {
	q, err := Parse("q1", "dog house dog")
	require.NoError(t, err)
	eq := Identity(q)
	assert.Equal(t, []string{"dog", "house"}, eq.BaseTerms)
	assert.True(t, eq.IsIdentity())
	assert.NoError(t, eq.Validate())
}

func TestExpandDoesNotAliasInput(t *testing.T) {
	q, err := Parse("q1", "dog")
	require.NoError(t, err)
	in := map[string]float64{"puppy": 0.5, "dog": 0.3}
	eq := Expand(q, in)
	in["puppy"] = 9

	assert.Equal(t, map[string]float64{"puppy": 0.5}, eq.ExpansionTerms)
	assert.Equal(t, []string{"dog"}, q.Terms)
}

func TestWeightedTermsOrder(t *testing.T) {
	q, err := Parse("q1", "house dog")
	require.NoError(t, err)
	eq := Expand(q, map[string]float64{"puppy": 0.5, "canine": 0.25})
	assert.Equal(t, []WeightedTerm{
		{"dog", 1}, {"house", 1}, {"canine", 0.25}, {"puppy", 0.5},
	}, eq.WeightedTerms())
}

func TestValidateRejectsBadWeights(t *testing.T) {
	q, err := Parse("q1", "dog")
	require.NoError(t, err)
	for _, w := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		eq := Expand(q, map[string]float64{"puppy": w})
		assert.ErrorIs(t, eq.Validate(), apperrors.ErrValidation, "weight %v", w)
	}
}
