package algorithm

import (
	"github.com/pg-sharding/shardcore/pkg/inline"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

// HintInlineAlgorithm renders each hint value through an expression over
// the variable "value".
type HintInlineAlgorithm struct {
	expr *inline.Expression
}

var _ HintAlgorithm = &HintInlineAlgorithm{}

func newHintInline(props Props) (Algorithm, error) {
	expr, err := inline.Compile(expressionProp(props, "${value}"))
	if err != nil {
		return nil, sherror.New(sherror.SHARD_UNSUPPORTED_STRATEGY, err.Error())
	}
	return &HintInlineAlgorithm{expr: expr}, nil
}

func (a *HintInlineAlgorithm) Type() string {
	return TypeHintInline
}

func (a *HintInlineAlgorithm) DoHintSharding(targets []string, v HintValue) ([]string, error) {
	seen := map[string]struct{}{}
	var res []string
	for _, val := range v.Values {
		name, err := a.expr.Evaluate(map[string]any{"value": val})
		if err != nil {
			return nil, sherror.New(sherror.SHARD_ALGORITHM_FAILURE, err.Error())
		}
		t, ok := containsFold(targets, name)
		if _, dup := seen[t]; !ok || dup {
			continue
		}
		seen[t] = struct{}{}
		res = append(res, t)
	}
	return res, nil
}
