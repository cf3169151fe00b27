package algorithm

import (
	"strconv"
	"strings"

	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/pkg/models/kr"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

const (
	propRangeLower     = "range_lower"
	propRangeUpper     = "range_upper"
	propShardingVolume = "sharding_volume"
	propShardingRanges = "sharding_ranges"
)

// KeyRangeAlgorithm routes values by key ranges; the key range shard id is
// the target suffix. Range values below the first boundary go to suffix 0.
type KeyRangeAlgorithm struct {
	typ    string
	ranges []*kr.KeyRange
}

var _ PreciseAlgorithm = &KeyRangeAlgorithm{}
var _ RangeAlgorithm = &KeyRangeAlgorithm{}

func newKeyRangeAlgorithm(typ string, bounds []int64) (Algorithm, error) {
	vals := make([]any, 0, len(bounds))
	for _, b := range bounds {
		vals = append(vals, b)
	}
	ranges, err := kr.NewKeyRangesFromBoundaries(vals)
	if err != nil {
		return nil, sherror.New(sherror.SHARD_UNSUPPORTED_STRATEGY, err.Error())
	}
	return &KeyRangeAlgorithm{typ: typ, ranges: ranges}, nil
}

func newVolumeRange(props Props) (Algorithm, error) {
	lower, err := props.Int(propRangeLower)
	if err != nil {
		return nil, err
	}
	upper, err := props.Int(propRangeUpper)
	if err != nil {
		return nil, err
	}
	volume, err := props.Int(propShardingVolume)
	if err != nil {
		return nil, err
	}
	if volume <= 0 || upper <= lower {
		return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY,
			"volume range needs %s < %s and a positive %s", propRangeLower, propRangeUpper, propShardingVolume)
	}

	var bounds []int64
	for b := lower; b < upper; b += volume {
		bounds = append(bounds, b)
	}
	bounds = append(bounds, upper)
	return newKeyRangeAlgorithm(TypeVolumeRange, bounds)
}

func newBoundaryRange(props Props) (Algorithm, error) {
	raw := props.Get(propShardingRanges, "")
	if raw == "" {
		return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "algorithm property \"%s\" is required", propShardingRanges)
	}
	var bounds []int64
	for _, part := range strings.Split(strings.Trim(raw, "[]"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "invalid sharding range boundary %q", part)
		}
		bounds = append(bounds, b)
	}
	return newKeyRangeAlgorithm(TypeBoundaryRange, bounds)
}

func (a *KeyRangeAlgorithm) Type() string {
	return a.typ
}

func (a *KeyRangeAlgorithm) KeyRanges() []*kr.KeyRange {
	return a.ranges
}

func (a *KeyRangeAlgorithm) DoPreciseSharding(targets []string, v PreciseValue) (string, error) {
	val, err := datum.ToInt64(v.Value)
	if err != nil {
		return "", sherror.Newf(sherror.SHARD_ALGORITHM_FAILURE, "range sharding value %v: %s", v.Value, err.Error())
	}
	r, err := kr.MatchKeyRange(a.ranges, val)
	if err != nil {
		return "", sherror.New(sherror.SHARD_ALGORITHM_FAILURE, err.Error())
	}
	if r == nil {
		return "", nil
	}
	return targetBySuffix(targets, v.Info, r.ShardID), nil
}

func (a *KeyRangeAlgorithm) DoRangeSharding(targets []string, v RangeValue) ([]string, error) {
	var res []string
	for _, r := range a.ranges {
		ok, err := r.Overlaps(v.Range)
		if err != nil {
			return nil, sherror.New(sherror.SHARD_ALGORITHM_FAILURE, err.Error())
		}
		if !ok {
			continue
		}
		if t := targetBySuffix(targets, v.Info, r.ShardID); t != "" {
			res = append(res, t)
		}
	}
	return res, nil
}

