package algorithm

import (
	"sort"
	"strings"

	"github.com/pg-sharding/shardcore/pkg/inline"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

const propShardingColumns = "sharding_columns"

// ComplexInlineAlgorithm evaluates one inline expression over several
// sharding columns, once per combination of their values.
type ComplexInlineAlgorithm struct {
	columns    []string
	expr       *inline.Expression
	allowRange bool
}

var _ ComplexAlgorithm = &ComplexInlineAlgorithm{}

func newComplexInline(props Props) (Algorithm, error) {
	src := expressionProp(props, "")
	if src == "" {
		return nil, sherror.New(sherror.SHARD_UNSUPPORTED_STRATEGY, "complex inline sharding algorithm expression cannot be empty")
	}
	expr, err := inline.Compile(src)
	if err != nil {
		return nil, sherror.New(sherror.SHARD_UNSUPPORTED_STRATEGY, err.Error())
	}
	var cols []string
	for _, c := range strings.Split(props.Get(propShardingColumns, ""), ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		cols = expr.Variables()
		sort.Strings(cols)
	}
	return &ComplexInlineAlgorithm{columns: cols, expr: expr, allowRange: props.Bool(propAllowRangeQuery)}, nil
}

func (a *ComplexInlineAlgorithm) Type() string {
	return TypeComplexInline
}

func (a *ComplexInlineAlgorithm) DoComplexSharding(targets []string, v ComplexValue) ([]string, error) {
	if len(v.Ranges) > 0 {
		if !a.allowRange {
			return nil, sherror.Newf(sherror.SHARD_ALGORITHM_FAILURE,
				"range query on %s needs %s=true for complex inline sharding", v.LogicTable, propAllowRangeQuery)
		}
		return targets, nil
	}
	for _, c := range a.columns {
		if len(v.Values[c]) == 0 {
			// a missing column leaves the choice open
			return targets, nil
		}
	}

	combos := []map[string]any{{}}
	for _, c := range a.columns {
		next := make([]map[string]any, 0, len(combos)*len(v.Values[c]))
		for _, combo := range combos {
			for _, val := range v.Values[c] {
				m := make(map[string]any, len(combo)+1)
				for k, x := range combo {
					m[k] = x
				}
				m[c] = val
				next = append(next, m)
			}
		}
		combos = next
	}

	seen := map[string]struct{}{}
	var res []string
	for _, combo := range combos {
		name, err := a.expr.Evaluate(combo)
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
