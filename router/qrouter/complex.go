package qrouter

import (
	"strings"

	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/pkg/models/shrule"
	"github.com/pg-sharding/shardcore/router/rmeta"
	"github.com/pg-sharding/shardcore/router/route"
)

// ComplexRouteEngine routes each binding group, or each unbound table,
// of a multi-table statement on its own and combines the fragments.
type ComplexRouteEngine struct {
	rule   *shrule.ShardingRule
	stmt   *rmeta.StatementContext
	tables []string

	broadcastTables []string
}

var _ RouteEngine = &ComplexRouteEngine{}

func (e *ComplexRouteEngine) Type() EngineType {
	return ComplexEngine
}

func (e *ComplexRouteEngine) Route() (*route.Context, error) {
	var fragments []*route.Context
	covered := map[string]struct{}{}

	for _, t := range e.tables {
		if _, ok := covered[strings.ToLower(t)]; ok {
			continue
		}
		rc, err := (&StandardRouteEngine{rule: e.rule, stmt: e.stmt, logicTable: t}).Route()
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, rc)

		covered[strings.ToLower(t)] = struct{}{}
		if b, ok := e.rule.FindBindingTableRule(t); ok {
			for _, bt := range b.LogicTables() {
				covered[strings.ToLower(bt)] = struct{}{}
			}
		}
	}

	if len(fragments) == 1 {
		return withLogicTables(fragments[0], e.broadcastTables), nil
	}
	rc, err := (&CartesianRouteEngine{fragments: fragments}).Route()
	if err != nil {
		return nil, err
	}
	return withLogicTables(rc, e.broadcastTables), nil
}

// CartesianRouteEngine combines independently routed fragments. Units are
// combined only within a data source shared by every fragment.
type CartesianRouteEngine struct {
	fragments []*route.Context
}

var _ RouteEngine = &CartesianRouteEngine{}

func (e *CartesianRouteEngine) Type() EngineType {
	return CartesianEngine
}

func (e *CartesianRouteEngine) Route() (*route.Context, error) {
	rc := &route.Context{}
	if len(e.fragments) == 0 {
		return rc, nil
	}

	for _, f := range e.fragments {
		for _, n := range f.OriginalDataNodes {
			rc.AddOriginalDataNode(n)
		}
	}

	for _, ds := range e.commonDataSources() {
		groups := make([][]route.Unit, 0, len(e.fragments))
		for _, f := range e.fragments {
			groups = append(groups, unitsOn(f, ds))
		}
		for _, combination := range product(groups) {
			var tables []route.Mapper
			for _, u := range combination {
				tables = append(tables, u.Tables...)
			}
			rc.AddUnit(route.NewUnit(ds, tables...))
		}
	}

	if rc.IsEmpty() {
		return nil, sherror.New(sherror.SHARD_CARTESIAN_EMPTY,
			"cannot find a data source shared by every table of the join, cross data source joins are not supported")
	}
	return rc, nil
}

func (e *CartesianRouteEngine) commonDataSources() []string {
	var res []string
	for _, ds := range e.fragments[0].DataSourceNames() {
		shared := true
		for _, f := range e.fragments[1:] {
			if len(unitsOn(f, ds)) == 0 {
				shared = false
				break
			}
		}
		if shared {
			res = append(res, ds)
		}
	}
	return res
}

func unitsOn(rc *route.Context, ds string) []route.Unit {
	var res []route.Unit
	for _, u := range rc.Units {
		if strings.EqualFold(u.DataSource.ActualName, ds) {
			res = append(res, u)
		}
	}
	return res
}

// product enumerates one unit from each group, the last group varying
// fastest.
func product(groups [][]route.Unit) [][]route.Unit {
	res := [][]route.Unit{{}}
	for _, g := range groups {
		next := make([][]route.Unit, 0, len(res)*len(g))
		for _, prefix := range res {
			for _, u := range g {
				combination := make([]route.Unit, len(prefix), len(prefix)+1)
				copy(combination, prefix)
				next = append(next, append(combination, u))
			}
		}
		res = next
	}
	return res
}
