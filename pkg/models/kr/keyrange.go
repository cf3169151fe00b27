package kr

import (
	"fmt"
	"sort"

	"github.com/pg-sharding/shardcore/pkg/datum"
)

// KeyRange is a half-open interval [LowerBound, UpperBound) of sharding
// values owned by one shard. A nil bound is unbounded.
type KeyRange struct {
	LowerBound any
	UpperBound any
	ShardID    string
	ID         string
}

// NewKeyRangesFromBoundaries splits the value line at the given sorted
// boundaries. n boundaries give n+1 ranges, shard ids "0".."n".
func NewKeyRangesFromBoundaries(bounds []any) ([]*KeyRange, error) {
	for i := 1; i < len(bounds); i++ {
		c, err := datum.Compare(bounds[i-1], bounds[i])
		if err != nil {
			return nil, err
		}
		if c >= 0 {
			return nil, fmt.Errorf("key range boundaries must be strictly increasing, got %v before %v", bounds[i-1], bounds[i])
		}
	}

	res := make([]*KeyRange, 0, len(bounds)+1)
	var lower any
	for i := 0; i <= len(bounds); i++ {
		var upper any
		if i < len(bounds) {
			upper = bounds[i]
		}
		res = append(res, &KeyRange{
			LowerBound: lower,
			UpperBound: upper,
			ShardID:    fmt.Sprintf("%d", i),
			ID:         fmt.Sprintf("kr%d", i),
		})
		lower = upper
	}
	return res, nil
}

// Contains reports whether v falls into the key range.
func (kr *KeyRange) Contains(v any) (bool, error) {
	if kr.LowerBound != nil {
		c, err := datum.Compare(v, kr.LowerBound)
		if err != nil {
			return false, err
		}
		if c < 0 {
			return false, nil
		}
	}
	if kr.UpperBound != nil {
		c, err := datum.Compare(v, kr.UpperBound)
		if err != nil {
			return false, err
		}
		if c >= 0 {
			return false, nil
		}
	}
	return true, nil
}

// ToRange returns the key range as a datum.Range.
func (kr *KeyRange) ToRange() datum.Range {
	r := datum.All()
	if kr.LowerBound != nil {
		r.Lower = datum.Bound{Value: kr.LowerBound, Type: datum.Closed}
	}
	if kr.UpperBound != nil {
		r.Upper = datum.Bound{Value: kr.UpperBound, Type: datum.Open}
	}
	return r
}

// Overlaps reports whether any value of r belongs to the key range.
func (kr *KeyRange) Overlaps(r datum.Range) (bool, error) {
	_, ok, err := kr.ToRange().Intersect(r)
	return ok, err
}

func (kr *KeyRange) String() string {
	return fmt.Sprintf("%s[%v, %v) -> %s", kr.ID, kr.LowerBound, kr.UpperBound, kr.ShardID)
}

// MatchKeyRange returns the key range holding v using binary search over
// ranges sorted by lower bound.
func MatchKeyRange(ranges []*KeyRange, v any) (*KeyRange, error) {
	var cmpErr error
	idx := sort.Search(len(ranges), func(i int) bool {
		if ranges[i].UpperBound == nil {
			return true
		}
		c, err := datum.Compare(v, ranges[i].UpperBound)
		if err != nil {
			cmpErr = err
			return true
		}
		return c < 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	if idx == len(ranges) {
		return nil, nil
	}
	ok, err := ranges[idx].Contains(v)
	if err != nil || !ok {
		return nil, err
	}
	return ranges[idx], nil
}
