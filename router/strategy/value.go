package strategy

import (
	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/router/rmeta"
)

// ColumnValue is the merged restriction of one OR branch on one column:
// either a value list or a range.
type ColumnValue struct {
	Column string
	List   []any
	Range  *datum.Range
}

func (cv ColumnValue) IsList() bool {
	return cv.Range == nil
}

// ResolveColumn intersects every predicate of the branch on table.column.
// ok is false when the branch does not restrict the column. An empty list
// means no value can satisfy the branch.
func ResolveColumn(cond rmeta.ShardingCondition, table, column string, params []any) (ColumnValue, bool, error) {
	preds := cond.ValuesFor(table, column)
	if len(preds) == 0 {
		return ColumnValue{}, false, nil
	}

	res := ColumnValue{Column: column}
	var list []any
	hasList := false
	var rng *datum.Range

	for _, p := range preds {
		if p.IsRange() {
			r, err := p.ResolveRange(params)
			if err != nil {
				return ColumnValue{}, false, err
			}
			if rng == nil {
				rng = &r
				continue
			}
			merged, nonEmpty, err := rng.Intersect(r)
			if err != nil {
				return ColumnValue{}, false, err
			}
			if !nonEmpty {
				return ColumnValue{Column: column, List: []any{}}, true, nil
			}
			rng = &merged
			continue
		}

		vals, err := p.ResolveList(params)
		if err != nil {
			return ColumnValue{}, false, err
		}
		if !hasList {
			list = dedupe(vals)
			hasList = true
			continue
		}
		list = intersect(list, vals)
	}

	if !hasList {
		res.Range = rng
		return res, true, nil
	}
	if rng != nil {
		filtered := make([]any, 0, len(list))
		for _, v := range list {
			in, err := rng.Contains(v)
			if err != nil {
				return ColumnValue{}, false, err
			}
			if in {
				filtered = append(filtered, v)
			}
		}
		list = filtered
	}
	res.List = list
	return res, true, nil
}

func contains(list []any, v any) bool {
	for _, x := range list {
		if datum.Equal(x, v) {
			return true
		}
	}
	return false
}

func dedupe(vals []any) []any {
	res := make([]any, 0, len(vals))
	for _, v := range vals {
		if !contains(res, v) {
			res = append(res, v)
		}
	}
	return res
}

func intersect(a, b []any) []any {
	res := make([]any, 0, len(a))
	for _, v := range a {
		if contains(b, v) {
			res = append(res, v)
		}
	}
	return res
}
