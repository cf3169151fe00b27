package qrouter

import (
	"strings"

	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/pkg/models/datanode"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/pkg/models/shrule"
	"github.com/pg-sharding/shardcore/router/rmeta"
	"github.com/pg-sharding/shardcore/router/route"
	"github.com/pg-sharding/shardcore/router/strategy"
)

// DatabaseBroadcastRouteEngine sends the statement to every data source.
// tables keep their logic names.
type DatabaseBroadcastRouteEngine struct {
	rule   *shrule.ShardingRule
	tables []string
}

var _ RouteEngine = &DatabaseBroadcastRouteEngine{}

func (e *DatabaseBroadcastRouteEngine) Type() EngineType {
	return DatabaseBroadcastEngine
}

func (e *DatabaseBroadcastRouteEngine) Route() (*route.Context, error) {
	rc := &route.Context{}
	for _, ds := range e.rule.DataSourceNames {
		rc.AddUnit(route.NewUnit(ds, logicMappers(e.tables)...))
	}
	return rc, nil
}

// TableBroadcastRouteEngine sends the statement to every data node of
// every table, one unit per data node.
type TableBroadcastRouteEngine struct {
	rule   *shrule.ShardingRule
	tables []string
}

var _ RouteEngine = &TableBroadcastRouteEngine{}

func (e *TableBroadcastRouteEngine) Type() EngineType {
	return TableBroadcastEngine
}

func (e *TableBroadcastRouteEngine) Route() (*route.Context, error) {
	rc := &route.Context{}
	for _, t := range e.tables {
		tr, err := e.rule.GetTableRule(t)
		if err != nil {
			return nil, err
		}
		for _, n := range tr.ActualDataNodes {
			rc.AddUnit(route.NewUnit(n.DataSource, route.Mapper{LogicName: tr.LogicTable, ActualName: n.Table}))
			rc.AddOriginalDataNode(n)
		}
	}
	return rc, nil
}

// UnicastRouteEngine picks exactly one data source. With dataSource unset
// it picks the default data source, or the first one holding every
// sharded table of the statement.
type UnicastRouteEngine struct {
	rule       *shrule.ShardingRule
	tables     []string
	dataSource string
}

var _ RouteEngine = &UnicastRouteEngine{}

func (e *UnicastRouteEngine) Type() EngineType {
	return UnicastEngine
}

func (e *UnicastRouteEngine) Route() (*route.Context, error) {
	rc := &route.Context{}
	if e.dataSource != "" {
		rc.AddUnit(route.NewUnit(e.dataSource, logicMappers(e.tables)...))
		return rc, nil
	}

	sharded := e.rule.ShardingTables(e.tables)
	if len(sharded) == 0 {
		ds := e.rule.DefaultDataSource
		if ds == "" || len(e.tables) > 0 {
			ds = e.rule.DataSourceNames[0]
		}
		rc.AddUnit(route.NewUnit(ds, logicMappers(e.tables)...))
		return rc, nil
	}

	var rules []*shrule.TableRule
	for _, t := range sharded {
		tr, err := e.rule.GetTableRule(t)
		if err != nil {
			return nil, err
		}
		rules = append(rules, tr)
	}

	for _, ds := range rules[0].ActualDataSourceNames() {
		unit := route.NewUnit(ds)
		found := true
		for _, tr := range rules {
			tables := tr.ActualTableNames(ds)
			if len(tables) == 0 {
				found = false
				break
			}
			unit.Tables = append(unit.Tables, route.Mapper{LogicName: tr.LogicTable, ActualName: tables[0]})
		}
		if !found {
			continue
		}
		for _, m := range unit.Tables {
			rc.AddOriginalDataNode(datanode.New(ds, m.ActualName))
		}
		unit.Tables = append(unit.Tables, logicMappers(broadcast(e.rule, e.tables))...)
		rc.AddUnit(unit)
		return rc, nil
	}
	return nil, sherror.Newf(sherror.SHARD_NO_ROUTE_TARGET, "tables %v share no data source", sharded)
}

// DatabaseHintRouteEngine routes every table, under its logic name, to the
// data sources named by a database-only hint.
type DatabaseHintRouteEngine struct {
	rule   *shrule.ShardingRule
	stmt   *rmeta.StatementContext
	tables []string
}

var _ RouteEngine = &DatabaseHintRouteEngine{}

func (e *DatabaseHintRouteEngine) Type() EngineType {
	return DatabaseHintEngine
}

func (e *DatabaseHintRouteEngine) Route() (*route.Context, error) {
	values := e.stmt.Hint.DatabaseOnlyValues
	info := datanode.NewDataNodeInfo(e.rule.DataSourceNames[0])

	var selected []string
	for _, ds := range e.rule.DataSourceNames {
		for _, v := range values {
			s := datum.ToString(v)
			if strings.EqualFold(ds, s) || strings.EqualFold(ds, info.Target(s)) {
				selected = append(selected, ds)
				break
			}
		}
	}
	if len(selected) == 0 {
		if e.rule.HintPolicy == strategy.HintFail {
			return nil, sherror.Newf(sherror.SHARD_HINT_UNMATCHED, "hint values %v match no data source among %v", values, e.rule.DataSourceNames)
		}
		selected = e.rule.DataSourceNames
	}

	rc := &route.Context{}
	for _, ds := range selected {
		rc.AddUnit(route.NewUnit(ds, logicMappers(e.tables)...))
	}
	return rc, nil
}
