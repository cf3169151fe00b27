package algorithm

import (
	"github.com/pg-sharding/shardcore/pkg/inline"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

const (
	propAlgorithmExpression = "algorithm-expression"
	propAllowRangeQuery     = "allow_range_query_with_inline_sharding"
)

// expressionProp accepts both spellings of the expression property.
func expressionProp(props Props, def string) string {
	if v := props.Get(propAlgorithmExpression, ""); v != "" {
		return v
	}
	return props.Get("algorithm_expression", def)
}

// InlineAlgorithm names the target with an inline expression over the
// sharding column, e.g. "t_order_${order_id % 2}".
type InlineAlgorithm struct {
	expr       *inline.Expression
	allowRange bool
}

var _ PreciseAlgorithm = &InlineAlgorithm{}
var _ RangeAlgorithm = &InlineAlgorithm{}

func newInline(props Props) (Algorithm, error) {
	src := expressionProp(props, "")
	if src == "" {
		return nil, sherror.New(sherror.SHARD_UNSUPPORTED_STRATEGY, "inline sharding algorithm expression cannot be empty")
	}
	expr, err := inline.Compile(src)
	if err != nil {
		return nil, sherror.New(sherror.SHARD_UNSUPPORTED_STRATEGY, err.Error())
	}
	return &InlineAlgorithm{expr: expr, allowRange: props.Bool(propAllowRangeQuery)}, nil
}

func (a *InlineAlgorithm) Type() string {
	return TypeInline
}

func (a *InlineAlgorithm) DoPreciseSharding(targets []string, v PreciseValue) (string, error) {
	name, err := a.expr.Evaluate(map[string]any{v.Column: v.Value})
	if err != nil {
		return "", sherror.New(sherror.SHARD_ALGORITHM_FAILURE, err.Error())
	}
	if t, ok := containsFold(targets, name); ok {
		return t, nil
	}
	return "", nil
}

func (a *InlineAlgorithm) DoRangeSharding(targets []string, v RangeValue) ([]string, error) {
	if !a.allowRange {
		return nil, sherror.Newf(sherror.SHARD_ALGORITHM_FAILURE,
			"range query on column %s of %s needs %s=true for inline sharding", v.Column, v.LogicTable, propAllowRangeQuery)
	}
	return targets, nil
}
