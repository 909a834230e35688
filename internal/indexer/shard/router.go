// Package shard assigns documents to build shards by hashing their IDs.
// Assignment depends only on the doc ID and the shard count, so a corpus
// always partitions the same way.
package shard

import (
	"github.com/cespare/xxhash/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/Query-Expansion-Evaluation/pkg/errors"
)

// Router maps doc IDs onto a fixed number of shards.
type Router struct {
	numShards int
}

func NewRouter(numShards int) (*Router, error) {
	if numShards <= 0 {
		return nil, apperrors.InvalidConfigf("shard count must be > 0, got %d", numShards)
	}
	return &Router{numShards: numShards}, nil
}

// Assign returns the shard in [0, NumShards) that owns docID.
func (r *Router) Assign(docID string) int {
	return int(xxhash.Sum64String(docID) % uint64(r.numShards))
}

// Partition groups items by the shard of their key. Within a shard, items
// keep their input order.
func Partition[T any](r *Router, items []T, key func(T) string) [][]T {
	shards := make([][]T, r.numShards)
	for _, item := range items {
		id := r.Assign(key(item))
		shards[id] = append(shards[id], item)
	}
	return shards
}

func (r *Router) NumShards() int {
	return r.numShards
}
