package engine

import (
	"github.com/shopspring/decimal"

	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/router/rmeta"
)

// aggregationUnit folds the partial aggregates shards return for one group.
type aggregationUnit interface {
	merge(values []any) error
	result() any
}

func newAggregationUnit(p rmeta.Projection) (aggregationUnit, error) {
	if p.Distinct {
		switch p.Aggregation {
		case rmeta.AggregationCount, rmeta.AggregationSum, rmeta.AggregationAvg:
			return &distinctUnit{typ: p.Aggregation}, nil
		}
	}
	switch p.Aggregation {
	case rmeta.AggregationCount:
		return &countUnit{}, nil
	case rmeta.AggregationSum:
		return &sumUnit{}, nil
	case rmeta.AggregationMin:
		return &comparableUnit{min: true}, nil
	case rmeta.AggregationMax:
		return &comparableUnit{}, nil
	case rmeta.AggregationAvg:
		return &avgUnit{}, nil
	}
	return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_FEATURE, "aggregation %s of %s is not supported", p.Aggregation, p.Label)
}

// unitInput picks the cells of row an aggregation unit folds: the derived
// COUNT and SUM for an AVG, the aggregate cell otherwise.
func unitInput(p rmeta.Projection, row []any) []any {
	if p.Aggregation == rmeta.AggregationAvg && p.Avg != nil && !p.Distinct {
		return []any{cell(row, p.Avg.CountIndex), cell(row, p.Avg.SumIndex)}
	}
	return []any{cell(row, p.Index)}
}

func cell(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

func toDecimal(v any) (decimal.Decimal, error) {
	d, err := datum.ToDecimal(v)
	if err != nil {
		return decimal.Decimal{}, sherror.Newf(sherror.SHARD_DATA_INCONSISTENCY, "aggregate value %v of type %T is not summable", v, v)
	}
	return d, nil
}

// integral keeps whole sums as int64 so they look like the shard values.
func integral(d decimal.Decimal) any {
	if d.IsInteger() && d.BigInt().IsInt64() {
		return d.IntPart()
	}
	return d
}

type countUnit struct {
	count decimal.Decimal
}

func (u *countUnit) merge(values []any) error {
	if values[0] == nil {
		return nil
	}
	d, err := toDecimal(values[0])
	if err != nil {
		return err
	}
	u.count = u.count.Add(d)
	return nil
}

func (u *countUnit) result() any {
	return u.count.IntPart()
}

type sumUnit struct {
	sum   decimal.Decimal
	valid bool
}

func (u *sumUnit) merge(values []any) error {
	if values[0] == nil {
		return nil
	}
	d, err := toDecimal(values[0])
	if err != nil {
		return err
	}
	u.sum = u.sum.Add(d)
	u.valid = true
	return nil
}

func (u *sumUnit) result() any {
	if !u.valid {
		return nil
	}
	return integral(u.sum)
}

// comparableUnit keeps MIN or MAX.
type comparableUnit struct {
	min   bool
	value any
}

func (u *comparableUnit) merge(values []any) error {
	v := values[0]
	if v == nil {
		return nil
	}
	if u.value == nil {
		u.value = v
		return nil
	}
	c, err := datum.Compare(v, u.value)
	if err != nil {
		return sherror.Newf(sherror.SHARD_DATA_INCONSISTENCY, "aggregate values %v and %v are not comparable", v, u.value)
	}
	if (u.min && c < 0) || (!u.min && c > 0) {
		u.value = v
	}
	return nil
}

func (u *comparableUnit) result() any {
	return u.value
}

// avgUnit divides the summed SUM by the summed COUNT only at the end.
type avgUnit struct {
	count decimal.Decimal
	sum   decimal.Decimal
}

func (u *avgUnit) merge(values []any) error {
	if len(values) < 2 {
		return sherror.New(sherror.SHARD_DATA_INCONSISTENCY, "AVG needs derived COUNT and SUM columns")
	}
	if values[0] == nil || values[1] == nil {
		return nil
	}
	c, err := toDecimal(values[0])
	if err != nil {
		return err
	}
	s, err := toDecimal(values[1])
	if err != nil {
		return err
	}
	u.count = u.count.Add(c)
	u.sum = u.sum.Add(s)
	return nil
}

func (u *avgUnit) result() any {
	if u.count.IsZero() {
		return nil
	}
	return u.sum.Div(u.count)
}

// distinctUnit aggregates the distinct values shards return for COUNT,
// SUM or AVG over DISTINCT, one value per shard row.
type distinctUnit struct {
	typ    rmeta.AggregationType
	seen   map[string]struct{}
	values []decimal.Decimal
	count  int64
}

func (u *distinctUnit) merge(values []any) error {
	v := values[0]
	if v == nil {
		return nil
	}
	if u.seen == nil {
		u.seen = map[string]struct{}{}
	}
	k := datum.ToString(v)
	if _, ok := u.seen[k]; ok {
		return nil
	}
	u.seen[k] = struct{}{}
	u.count++
	if u.typ == rmeta.AggregationCount {
		return nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return err
	}
	u.values = append(u.values, d)
	return nil
}

func (u *distinctUnit) result() any {
	switch u.typ {
	case rmeta.AggregationCount:
		return u.count
	case rmeta.AggregationSum:
		if u.count == 0 {
			return nil
		}
		return integral(decimal.Sum(decimal.Zero, u.values...))
	}
	if u.count == 0 {
		return nil
	}
	return decimal.Sum(decimal.Zero, u.values...).Div(decimal.NewFromInt(u.count))
}
