package algorithm

import (
	"strconv"

	jump "github.com/lithammer/go-jump-consistent-hash"

	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/pkg/models/hashfunction"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

const (
	propShardingCount = "sharding_count"
	propHashFunction  = "hash_function"
	propBuckets       = "buckets"
)

// ModAlgorithm picks the target whose suffix is value mod sharding_count.
type ModAlgorithm struct {
	count int64
}

var _ PreciseAlgorithm = &ModAlgorithm{}
var _ RangeAlgorithm = &ModAlgorithm{}

func newMod(props Props) (Algorithm, error) {
	count, err := props.Int(propShardingCount)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "%s must be positive, got %d", propShardingCount, count)
	}
	return &ModAlgorithm{count: count}, nil
}

func (a *ModAlgorithm) Type() string {
	return TypeMod
}

func (a *ModAlgorithm) suffix(v any) (string, error) {
	i, err := datum.ToInt64(v)
	if err != nil {
		return "", sherror.Newf(sherror.SHARD_ALGORITHM_FAILURE, "mod sharding value %v: %s", v, err.Error())
	}
	m := i % a.count
	if m < 0 {
		m = -m
	}
	return strconv.FormatInt(m, 10), nil
}

func (a *ModAlgorithm) DoPreciseSharding(targets []string, v PreciseValue) (string, error) {
	suffix, err := a.suffix(v.Value)
	if err != nil {
		return "", err
	}
	return targetBySuffix(targets, v.Info, suffix), nil
}

// DoRangeSharding enumerates a bounded integer range shorter than the
// modulus, anything wider touches every target.
func (a *ModAlgorithm) DoRangeSharding(targets []string, v RangeValue) ([]string, error) {
	lo, hi, ok := v.Range.IntBounds()
	if !ok {
		return targets, nil
	}
	if hi < lo {
		return nil, nil
	}
	if span := hi - lo; span < 0 || span >= a.count-1 {
		return targets, nil
	}
	seen := map[string]struct{}{}
	var res []string
	for i := lo; i <= hi; i++ {
		suffix, _ := a.suffix(i)
		t := targetBySuffix(targets, v.Info, suffix)
		if _, dup := seen[t]; t == "" || dup {
			continue
		}
		seen[t] = struct{}{}
		res = append(res, t)
	}
	return res, nil
}

// HashModAlgorithm hashes the value before taking the modulus.
type HashModAlgorithm struct {
	count int64
	hf    hashfunction.HashFunctionType
}

var _ PreciseAlgorithm = &HashModAlgorithm{}
var _ RangeAlgorithm = &HashModAlgorithm{}

func newHashMod(props Props) (Algorithm, error) {
	count, err := props.Int(propShardingCount)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "%s must be positive, got %d", propShardingCount, count)
	}
	hf, err := hashfunction.HashFunctionByName(props.Get(propHashFunction, "murmur"))
	if err != nil {
		return nil, sherror.New(sherror.SHARD_UNSUPPORTED_STRATEGY, err.Error())
	}
	return &HashModAlgorithm{count: count, hf: hf}, nil
}

func (a *HashModAlgorithm) Type() string {
	return TypeHashMod
}

func (a *HashModAlgorithm) DoPreciseSharding(targets []string, v PreciseValue) (string, error) {
	h, err := hashfunction.ApplyHashFunction(v.Value, a.hf)
	if err != nil {
		return "", sherror.New(sherror.SHARD_ALGORITHM_FAILURE, err.Error())
	}
	return targetBySuffix(targets, v.Info, strconv.FormatUint(h%uint64(a.count), 10)), nil
}

func (a *HashModAlgorithm) DoRangeSharding(targets []string, _ RangeValue) ([]string, error) {
	return targets, nil
}

// JumpHashAlgorithm spreads values over buckets with jump consistent hashing.
// Without the buckets property every target is a bucket.
type JumpHashAlgorithm struct {
	buckets int32
}

var _ PreciseAlgorithm = &JumpHashAlgorithm{}
var _ RangeAlgorithm = &JumpHashAlgorithm{}

func newJumpHash(props Props) (Algorithm, error) {
	a := &JumpHashAlgorithm{}
	if props.Get(propBuckets, "") != "" {
		b, err := props.Int(propBuckets)
		if err != nil {
			return nil, err
		}
		if b <= 0 {
			return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "%s must be positive, got %d", propBuckets, b)
		}
		a.buckets = int32(b)
	}
	return a, nil
}

func (a *JumpHashAlgorithm) Type() string {
	return TypeJumpHash
}

func (a *JumpHashAlgorithm) DoPreciseSharding(targets []string, v PreciseValue) (string, error) {
	buckets := a.buckets
	if buckets == 0 {
		buckets = int32(len(targets))
	}
	if buckets == 0 {
		return "", nil
	}

	var key uint64
	if i, err := datum.ToInt64(v.Value); err == nil && datum.IsNumeric(v.Value) {
		key = uint64(i)
	} else {
		h, err := hashfunction.ApplyHashFunction(v.Value, hashfunction.HashFunctionMurmur)
		if err != nil {
			return "", sherror.New(sherror.SHARD_ALGORITHM_FAILURE, err.Error())
		}
		key = h
	}
	bucket := jump.Hash(key, buckets)
	return targetBySuffix(targets, v.Info, strconv.FormatInt(int64(bucket), 10)), nil
}

func (a *JumpHashAlgorithm) DoRangeSharding(targets []string, _ RangeValue) ([]string, error) {
	return targets, nil
}
