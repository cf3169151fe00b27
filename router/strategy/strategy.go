// Package strategy selects the targets of one sharding dimension
// (data sources or actual tables) of one logic table.
package strategy

import (
	"strings"

	"github.com/pg-sharding/shardcore/pkg/algorithm"
	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/pkg/models/datanode"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/router/rmeta"
	"github.com/pg-sharding/shardcore/router/routehint"
)

type Kind string

const (
	KindStandard = Kind("standard")
	KindComplex  = Kind("complex")
	KindHint     = Kind("hint")
	KindNone     = Kind("none")
)

type HintPolicy string

const (
	HintBroadcast = HintPolicy("broadcast")
	HintFail      = HintPolicy("fail")
)

// Dimension tells a hint strategy which hint values to read.
type Dimension int

const (
	DatabaseDimension = Dimension(iota)
	TableDimension
)

// Request is everything a strategy sees when routing one dimension of
// one table under one OR branch.
type Request struct {
	LogicTable string
	Targets    []string
	Info       datanode.DataNodeInfo
	Dimension  Dimension

	Condition rmeta.ShardingCondition
	Params    []any
	Hint      *routehint.Context
}

type Strategy interface {
	Kind() Kind
	ShardingColumns() []string
	// DoSharding returns the selected subset of req.Targets in candidate
	// order.
	DoSharding(req Request) ([]string, error)
}

// inCandidateOrder keeps the targets present in selected, ordered and
// cased as the candidates are.
func inCandidateOrder(targets []string, selected []string) []string {
	res := make([]string, 0, len(selected))
	for _, t := range targets {
		for _, s := range selected {
			if strings.EqualFold(t, s) {
				res = append(res, t)
				break
			}
		}
	}
	return res
}

func checkTargets(targets, selected []string, alg algorithm.Algorithm) error {
	for _, s := range selected {
		found := false
		for _, t := range targets {
			if strings.EqualFold(t, s) {
				found = true
				break
			}
		}
		if !found {
			return sherror.Newf(sherror.SHARD_ALGORITHM_FAILURE, "%s algorithm routed to \"%s\" which is not among %v", alg.Type(), s, targets)
		}
	}
	return nil
}

// StandardStrategy shards by a single column.
type StandardStrategy struct {
	column  string
	precise algorithm.PreciseAlgorithm
	rng     algorithm.RangeAlgorithm
}

var _ Strategy = &StandardStrategy{}

func NewStandard(column string, alg algorithm.Algorithm) (*StandardStrategy, error) {
	if column == "" {
		return nil, sherror.New(sherror.SHARD_UNSUPPORTED_STRATEGY, "standard strategy needs a sharding column")
	}
	precise, ok := alg.(algorithm.PreciseAlgorithm)
	if !ok || alg == nil {
		return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "standard strategy on %s needs a precise sharding algorithm", column)
	}
	rng, _ := alg.(algorithm.RangeAlgorithm)
	return &StandardStrategy{column: column, precise: precise, rng: rng}, nil
}

func (s *StandardStrategy) Kind() Kind {
	return KindStandard
}

func (s *StandardStrategy) ShardingColumns() []string {
	return []string{s.column}
}

func (s *StandardStrategy) DoSharding(req Request) ([]string, error) {
	cv, ok, err := ResolveColumn(req.Condition, req.LogicTable, s.column, req.Params)
	if err != nil {
		return nil, err
	}
	if !ok {
		return req.Targets, nil
	}

	if !cv.IsList() {
		if s.rng == nil {
			return req.Targets, nil
		}
		selected, err := s.rng.DoRangeSharding(req.Targets, algorithm.RangeValue{
			LogicTable: req.LogicTable,
			Column:     s.column,
			Range:      *cv.Range,
			Info:       req.Info,
		})
		if err != nil {
			return nil, err
		}
		if err := checkTargets(req.Targets, selected, s.rng); err != nil {
			return nil, err
		}
		return inCandidateOrder(req.Targets, selected), nil
	}

	selected := make([]string, 0, len(cv.List))
	for _, v := range cv.List {
		t, err := s.precise.DoPreciseSharding(req.Targets, algorithm.PreciseValue{
			LogicTable: req.LogicTable,
			Column:     s.column,
			Value:      v,
			Info:       req.Info,
		})
		if err != nil {
			return nil, err
		}
		if t != "" {
			selected = append(selected, t)
		}
	}
	if err := checkTargets(req.Targets, selected, s.precise); err != nil {
		return nil, err
	}
	return inCandidateOrder(req.Targets, selected), nil
}

// ComplexStrategy hands every sharding column to one algorithm call.
type ComplexStrategy struct {
	columns []string
	alg     algorithm.ComplexAlgorithm
}

var _ Strategy = &ComplexStrategy{}

func NewComplex(columns []string, alg algorithm.Algorithm) (*ComplexStrategy, error) {
	if len(columns) == 0 {
		return nil, sherror.New(sherror.SHARD_UNSUPPORTED_STRATEGY, "complex strategy needs sharding columns")
	}
	c, ok := alg.(algorithm.ComplexAlgorithm)
	if !ok || alg == nil {
		return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "complex strategy on %v needs a complex sharding algorithm", columns)
	}
	return &ComplexStrategy{columns: columns, alg: c}, nil
}

func (s *ComplexStrategy) Kind() Kind {
	return KindComplex
}

func (s *ComplexStrategy) ShardingColumns() []string {
	return s.columns
}

func (s *ComplexStrategy) DoSharding(req Request) ([]string, error) {
	v := algorithm.ComplexValue{
		LogicTable: req.LogicTable,
		Values:     map[string][]any{},
		Ranges:     map[string]datum.Range{},
		Info:       req.Info,
	}
	found := false
	for _, col := range s.columns {
		cv, ok, err := ResolveColumn(req.Condition, req.LogicTable, col, req.Params)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		found = true
		if cv.IsList() {
			if len(cv.List) == 0 {
				return nil, nil
			}
			v.Values[col] = cv.List
		} else {
			v.Ranges[col] = *cv.Range
		}
	}
	if !found {
		return req.Targets, nil
	}

	selected, err := s.alg.DoComplexSharding(req.Targets, v)
	if err != nil {
		return nil, err
	}
	if err := checkTargets(req.Targets, selected, s.alg); err != nil {
		return nil, err
	}
	return inCandidateOrder(req.Targets, selected), nil
}

// HintStrategy routes by hint values attached to the statement and never
// looks at its predicates. Without an algorithm a hint value names the
// target suffix.
type HintStrategy struct {
	alg    algorithm.HintAlgorithm
	policy HintPolicy
}

var _ Strategy = &HintStrategy{}

func NewHint(alg algorithm.Algorithm, policy HintPolicy) (*HintStrategy, error) {
	s := &HintStrategy{policy: policy}
	if alg != nil {
		h, ok := alg.(algorithm.HintAlgorithm)
		if !ok {
			return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "hint strategy needs a hint sharding algorithm, got %s", alg.Type())
		}
		s.alg = h
	}
	if s.policy == "" {
		s.policy = HintBroadcast
	}
	return s, nil
}

func (s *HintStrategy) Kind() Kind {
	return KindHint
}

func (s *HintStrategy) ShardingColumns() []string {
	return nil
}

func (s *HintStrategy) DoSharding(req Request) ([]string, error) {
	var values []any
	var ok bool
	if req.Dimension == DatabaseDimension {
		values, ok = req.Hint.DatabaseValuesFor(req.LogicTable)
	} else {
		values, ok = req.Hint.TableValuesFor(req.LogicTable)
	}
	if !ok {
		return req.Targets, nil
	}

	var selected []string
	if s.alg != nil {
		res, err := s.alg.DoHintSharding(req.Targets, algorithm.HintValue{
			LogicTable: req.LogicTable,
			Values:     values,
			Info:       req.Info,
		})
		if err != nil {
			return nil, err
		}
		if err := checkTargets(req.Targets, res, s.alg); err != nil {
			return nil, err
		}
		selected = res
	} else {
		info := req.Info
		if info.Prefix == "" && info.SuffixMinLength == 0 && len(req.Targets) > 0 {
			info = datanode.NewDataNodeInfo(req.Targets[0])
		}
		for _, v := range values {
			selected = append(selected, info.Target(datum.ToString(v)))
		}
	}

	res := inCandidateOrder(req.Targets, selected)
	if len(res) > 0 {
		return res, nil
	}
	if s.policy == HintFail {
		return nil, sherror.Newf(sherror.SHARD_HINT_UNMATCHED, "hint values %v match no target of %s among %v", values, req.LogicTable, req.Targets)
	}
	return req.Targets, nil
}

// NoneStrategy always broadcasts.
type NoneStrategy struct{}

var _ Strategy = NoneStrategy{}

func (NoneStrategy) Kind() Kind {
	return KindNone
}

func (NoneStrategy) ShardingColumns() []string {
	return nil
}

func (NoneStrategy) DoSharding(req Request) ([]string, error) {
	return req.Targets, nil
}
