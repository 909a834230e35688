package shard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

func TestNewRouterRejectsZeroShards(t *testing.T) {
	_, err := NewRouter(0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestAssignIsStableAndInRange(t *testing.T) {
	r, err := NewRouter(7)
	require.NoError(t, err)
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("doc-%d", i)
		s := r.Assign(id)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 7)
		assert.Equal(t, s, r.Assign(id))
	}
}

func TestPartitionCoversEveryItemOnce(t *testing.T) {
	r, err := NewRouter(4)
	require.NoError(t, err)
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = fmt.Sprintf("d%03d", i)
	}
	shards := Partition(r, ids, func(s string) string { return s })
	require.Len(t, shards, 4)

	seen := make(map[string]int)
	for sid, shard := range shards {
		for _, id := range shard {
			seen[id]++
			assert.Equal(t, sid, r.Assign(id))
		}
	}
	assert.Len(t, seen, len(ids))
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
}
