package rmeta

import (
	"strings"

	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

// ValueRef is either a literal or a reference to a positional statement
// parameter (0-based).
type ValueRef struct {
	Literal any  `json:"literal,omitempty" toml:"literal" yaml:"literal"`
	Param   *int `json:"param,omitempty" toml:"param" yaml:"param"`
}

func Lit(v any) ValueRef {
	return ValueRef{Literal: v}
}

func Param(ind int) ValueRef {
	return ValueRef{Param: &ind}
}

func (v ValueRef) Resolve(params []any) (any, error) {
	if v.Param == nil {
		return v.Literal, nil
	}
	if *v.Param < 0 || *v.Param >= len(params) {
		return nil, sherror.Newf(sherror.SHARD_PAGINATION_ERROR, "parameter $%d is not bound, %d parameters given", *v.Param+1, len(params))
	}
	return params[*v.Param], nil
}

// ResolveInt resolves the value as an integer, as pagination needs.
func (v ValueRef) ResolveInt(params []any) (int64, error) {
	raw, err := v.Resolve(params)
	if err != nil {
		return 0, err
	}
	i, err := datum.ToInt64(raw)
	if err != nil {
		return 0, sherror.Newf(sherror.SHARD_PAGINATION_ERROR, "pagination value %v is not an integer", raw)
	}
	return i, nil
}

type Operator string

const (
	OpEqual   = Operator("EQUAL")
	OpIn      = Operator("IN")
	OpBetween = Operator("BETWEEN")
	OpGT      = Operator("GT")
	OpGE      = Operator("GE")
	OpLT      = Operator("LT")
	OpLE      = Operator("LE")
)

// ShardingConditionValue is one predicate on a column of a table.
type ShardingConditionValue struct {
	Table    string     `json:"table" toml:"table" yaml:"table"`
	Column   string     `json:"column" toml:"column" yaml:"column"`
	Operator Operator   `json:"operator" toml:"operator" yaml:"operator"`
	Values   []ValueRef `json:"values" toml:"values" yaml:"values"`
}

func (v ShardingConditionValue) op() Operator {
	return Operator(strings.ToUpper(string(v.Operator)))
}

func (v ShardingConditionValue) IsRange() bool {
	switch v.op() {
	case OpBetween, OpGT, OpGE, OpLT, OpLE:
		return true
	}
	return false
}

// ResolveList returns the values of an EQUAL or IN predicate. NULL never
// matches a shard and is dropped.
func (v ShardingConditionValue) ResolveList(params []any) ([]any, error) {
	res := make([]any, 0, len(v.Values))
	for _, ref := range v.Values {
		val, err := ref.Resolve(params)
		if err != nil {
			return nil, err
		}
		if val != nil {
			res = append(res, val)
		}
	}
	return res, nil
}

func (v ShardingConditionValue) ResolveRange(params []any) (datum.Range, error) {
	vals := make([]any, len(v.Values))
	for i, ref := range v.Values {
		val, err := ref.Resolve(params)
		if err != nil {
			return datum.Range{}, err
		}
		vals[i] = val
	}

	need := 1
	if v.op() == OpBetween {
		need = 2
	}
	if len(vals) != need {
		return datum.Range{}, sherror.Newf(sherror.SHARD_UNEXPECTED, "%s condition on %s.%s expects %d values, got %d", v.Operator, v.Table, v.Column, need, len(vals))
	}

	switch v.op() {
	case OpBetween:
		return datum.ClosedRange(vals[0], vals[1]), nil
	case OpGT:
		return datum.GreaterThan(vals[0]), nil
	case OpGE:
		return datum.AtLeast(vals[0]), nil
	case OpLT:
		return datum.LessThan(vals[0]), nil
	case OpLE:
		return datum.AtMost(vals[0]), nil
	}
	return datum.Range{}, sherror.Newf(sherror.SHARD_UNEXPECTED, "operator %s is not a range", v.Operator)
}

// ShardingCondition is the AND-ed predicate set of one OR branch.
type ShardingCondition struct {
	Values []ShardingConditionValue `json:"values" toml:"values" yaml:"values"`
}

// ValuesFor returns the predicates of the branch on table.column.
func (c ShardingCondition) ValuesFor(table, column string) []ShardingConditionValue {
	var res []ShardingConditionValue
	for _, v := range c.Values {
		if strings.EqualFold(v.Table, table) && strings.EqualFold(v.Column, column) {
			res = append(res, v)
		}
	}
	return res
}

// ActualOffset is the number of merged rows to skip.
func (p *Pagination) ActualOffset(params []any) (int64, error) {
	if p == nil || p.Offset == nil {
		return 0, nil
	}
	off, err := p.Offset.Value.ResolveInt(params)
	if err != nil {
		return 0, err
	}
	if p.Offset.Inclusive {
		off--
	}
	if off < 0 {
		off = 0
	}
	return off, nil
}

// ActualRowCount returns the row count (or upper row number bound), ok is
// false when the result is not capped.
func (p *Pagination) ActualRowCount(params []any) (int64, bool, error) {
	if p == nil || p.RowCount == nil || p.MaxRowCount {
		return 0, false, nil
	}
	rc, err := p.RowCount.Value.ResolveInt(params)
	if err != nil {
		return 0, false, err
	}
	if rc < 0 {
		rc = 0
	}
	return rc, true, nil
}
