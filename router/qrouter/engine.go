package qrouter

import (
	"strings"

	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/pkg/models/shrule"
	"github.com/pg-sharding/shardcore/router/rmeta"
	"github.com/pg-sharding/shardcore/router/route"
)

type EngineType string

const (
	StandardEngine          = EngineType("standard")
	ComplexEngine           = EngineType("complex")
	CartesianEngine         = EngineType("cartesian")
	DatabaseBroadcastEngine = EngineType("database_broadcast")
	TableBroadcastEngine    = EngineType("table_broadcast")
	UnicastEngine           = EngineType("unicast")
	IgnoreEngine            = EngineType("ignore")
	DatabaseHintEngine      = EngineType("database_hint")
)

// RouteEngine is one routing decision procedure, bound to the rule and
// statement it routes.
type RouteEngine interface {
	Type() EngineType
	Route() (*route.Context, error)
}

// NewRouteEngine picks the engine for the statement shape. Errors are
// configuration errors: a referenced table nobody can route.
func NewRouteEngine(rule *shrule.ShardingRule, stmt *rmeta.StatementContext) (RouteEngine, error) {
	tables := stmt.TableNames()

	if stmt.Hint.IsDatabaseOnly() {
		return &DatabaseHintRouteEngine{rule: rule, stmt: stmt, tables: tables}, nil
	}

	if stmt.Type == rmeta.TCLStatement {
		return &DatabaseBroadcastRouteEngine{rule: rule}, nil
	}

	sharded := rule.ShardingTables(tables)

	if stmt.Type == rmeta.DDLStatement {
		switch {
		case len(sharded) > 0:
			return &TableBroadcastRouteEngine{rule: rule, tables: sharded}, nil
		case rule.IsAllBroadcastTables(tables):
			return &DatabaseBroadcastRouteEngine{rule: rule, tables: tables}, nil
		case len(tables) > 0 && rule.DefaultDataSource != "":
			return &UnicastRouteEngine{rule: rule, tables: tables, dataSource: rule.DefaultDataSource}, nil
		}
		return IgnoreRouteEngine{}, nil
	}

	if len(tables) == 0 {
		return &UnicastRouteEngine{rule: rule}, nil
	}

	if rule.IsAllBroadcastTables(tables) {
		if stmt.Type == rmeta.SelectStatement {
			return &UnicastRouteEngine{rule: rule, tables: tables}, nil
		}
		return &DatabaseBroadcastRouteEngine{rule: rule, tables: tables}, nil
	}

	for _, t := range tables {
		if rule.IsShardingTable(t) || rule.IsBroadcastTable(t) {
			continue
		}
		if len(sharded) == 0 && rule.DefaultDataSource != "" {
			return &UnicastRouteEngine{rule: rule, tables: tables, dataSource: rule.DefaultDataSource}, nil
		}
		return nil, sherror.Newf(sherror.SHARD_TABLE_RULE_NOT_FOUND, "cannot find table rule with logic table \"%s\"", t)
	}

	if len(sharded) == 0 || stmt.AlwaysFalse {
		return &UnicastRouteEngine{rule: rule, tables: tables}, nil
	}

	if len(sharded) == 1 || (rule.IsAllBindingTables(sharded) && (stmt.Type.IsDML() || joinedOnShardingColumns(rule, stmt, sharded))) {
		return &StandardRouteEngine{rule: rule, stmt: stmt, logicTable: sharded[0], broadcastTables: broadcast(rule, tables)}, nil
	}
	return &ComplexRouteEngine{rule: rule, stmt: stmt, tables: sharded, broadcastTables: broadcast(rule, tables)}, nil
}

// joinedOnShardingColumns reports whether every table after the first is
// joined to another one on sharding columns of both.
func joinedOnShardingColumns(rule *shrule.ShardingRule, stmt *rmeta.StatementContext, tables []string) bool {
	for _, t := range tables[1:] {
		joined := false
		for _, jc := range stmt.JoinConditions {
			left, right := stmt.ResolveTable(jc.LeftTable), stmt.ResolveTable(jc.RightTable)
			if !strings.EqualFold(left, t) && !strings.EqualFold(right, t) {
				continue
			}
			if rule.IsShardingColumn(left, jc.LeftColumn) && rule.IsShardingColumn(right, jc.RightColumn) {
				joined = true
				break
			}
		}
		if !joined {
			return false
		}
	}
	return true
}

// IgnoreRouteEngine routes nowhere.
type IgnoreRouteEngine struct{}

func (IgnoreRouteEngine) Type() EngineType {
	return IgnoreEngine
}

func (IgnoreRouteEngine) Route() (*route.Context, error) {
	return &route.Context{}, nil
}

func broadcast(rule *shrule.ShardingRule, tables []string) []string {
	var res []string
	for _, t := range tables {
		if rule.IsBroadcastTable(t) {
			res = append(res, t)
		}
	}
	return res
}

// withLogicTables adds tables under their logic names to every unit.
func withLogicTables(rc *route.Context, tables []string) *route.Context {
	if len(tables) == 0 {
		return rc
	}
	for i := range rc.Units {
		rc.Units[i].Tables = append(rc.Units[i].Tables, logicMappers(tables)...)
	}
	return rc
}

func logicMappers(tables []string) []route.Mapper {
	var res []route.Mapper
	for _, t := range tables {
		res = append(res, route.Mapper{LogicName: t, ActualName: t})
	}
	return res
}
