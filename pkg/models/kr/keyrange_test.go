package kr_test

import (
	"testing"

	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/pkg/models/kr"
	"github.com/stretchr/testify/assert"
)

func TestKeyRangesFromBoundaries(t *testing.T) {
	assert := assert.New(t)

	ranges, err := kr.NewKeyRangesFromBoundaries([]any{int64(10), int64(20)})
	assert.NoError(err)
	assert.Len(ranges, 3)

	for _, tt := range []struct {
		v     int64
		shard string
	}{
		{-5, "0"},
		{9, "0"},
		{10, "1"},
		{19, "1"},
		{20, "2"},
		{1000, "2"},
	} {
		r, err := kr.MatchKeyRange(ranges, tt.v)
		assert.NoError(err)
		assert.NotNil(r)
		assert.Equal(tt.shard, r.ShardID, "value %d", tt.v)
	}

	_, err = kr.NewKeyRangesFromBoundaries([]any{int64(20), int64(10)})
	assert.Error(err)
}

func TestKeyRangeOverlaps(t *testing.T) {
	assert := assert.New(t)

	ranges, err := kr.NewKeyRangesFromBoundaries([]any{int64(10), int64(20)})
	assert.NoError(err)

	var shards []string
	for _, r := range ranges {
		ok, err := r.Overlaps(datum.ClosedRange(int64(5), int64(10)))
		assert.NoError(err)
		if ok {
			shards = append(shards, r.ShardID)
		}
	}
	assert.Equal([]string{"0", "1"}, shards)

	ok, err := ranges[1].Overlaps(datum.LessThan(int64(10)))
	assert.NoError(err)
	assert.False(ok)
}
