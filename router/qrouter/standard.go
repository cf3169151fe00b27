package qrouter

import (
	"strings"

	"github.com/pg-sharding/shardcore/pkg/models/datanode"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/pkg/models/shrule"
	"github.com/pg-sharding/shardcore/router/rmeta"
	"github.com/pg-sharding/shardcore/router/route"
	"github.com/pg-sharding/shardcore/router/strategy"
)

// StandardRouteEngine routes one sharded table through its strategies.
// Tables of the statement bound to it are not routed on their own: their
// actual tables are deduced from the position of the chosen one.
type StandardRouteEngine struct {
	rule       *shrule.ShardingRule
	stmt       *rmeta.StatementContext
	logicTable string

	broadcastTables []string
}

var _ RouteEngine = &StandardRouteEngine{}

func (e *StandardRouteEngine) Type() EngineType {
	return StandardEngine
}

func (e *StandardRouteEngine) Route() (*route.Context, error) {
	tr, err := e.rule.GetTableRule(e.logicTable)
	if err != nil {
		return nil, err
	}

	nodes, err := routeDataNodes(e.rule, tr, e.stmt)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		if e.stmt.Type == rmeta.InsertStatement || len(tr.ActualDataNodes) == 0 {
			return nil, sherror.Newf(sherror.SHARD_NO_ROUTE_TARGET, "no data node of %s matches the sharding values", tr.LogicTable)
		}
		nodes = tr.ActualDataNodes[:1]
	}

	var binding *shrule.BindingTableRule
	var bound []string
	if b, ok := e.rule.FindBindingTableRule(tr.LogicTable); ok {
		binding = b
		for _, t := range e.stmt.TableNames() {
			if !strings.EqualFold(t, tr.LogicTable) && b.HasLogicTable(t) {
				bound = append(bound, t)
			}
		}
	}

	rc := &route.Context{}
	for _, n := range nodes {
		mappers := []route.Mapper{{LogicName: tr.LogicTable, ActualName: n.Table}}
		rc.AddOriginalDataNode(n)
		for _, t := range bound {
			actual, err := binding.GetBindingActualTable(n.DataSource, t, tr.LogicTable, n.Table)
			if err != nil {
				return nil, err
			}
			mappers = append(mappers, route.Mapper{LogicName: t, ActualName: actual})
			rc.AddOriginalDataNode(datanode.New(n.DataSource, actual))
		}
		rc.AddUnit(route.NewUnit(n.DataSource, mappers...))
	}
	return withLogicTables(rc, e.broadcastTables), nil
}

// routeDataNodes runs both strategies of the table under every OR branch
// and unions the selected data nodes in selection order.
func routeDataNodes(rule *shrule.ShardingRule, tr *shrule.TableRule, stmt *rmeta.StatementContext) ([]datanode.DataNode, error) {
	dbStrategy := rule.DatabaseStrategy(tr)
	tblStrategy := rule.TableStrategy(tr)

	var res []datanode.DataNode
	seen := map[datanode.DataNode]struct{}{}

	for _, cond := range shardingConditions(tr, stmt) {
		dataSources, err := dbStrategy.DoSharding(strategy.Request{
			LogicTable: tr.LogicTable,
			Targets:    tr.ActualDataSourceNames(),
			Info:       tr.DatabaseInfo(),
			Dimension:  strategy.DatabaseDimension,
			Condition:  cond,
			Params:     stmt.Params,
			Hint:       stmt.Hint,
		})
		if err != nil {
			return nil, err
		}

		for _, ds := range dataSources {
			tables, err := tblStrategy.DoSharding(strategy.Request{
				LogicTable: tr.LogicTable,
				Targets:    tr.ActualTableNames(ds),
				Info:       tr.TableInfo(),
				Dimension:  strategy.TableDimension,
				Condition:  cond,
				Params:     stmt.Params,
				Hint:       stmt.Hint,
			})
			if err != nil {
				return nil, err
			}
			for _, t := range tables {
				n := datanode.New(ds, t)
				if _, ok := seen[n]; ok {
					continue
				}
				seen[n] = struct{}{}
				res = append(res, n)
			}
		}
	}
	return res, nil
}

// shardingConditions returns the OR branches of the statement with table
// aliases resolved and generated keys applied. The statement is not
// modified.
func shardingConditions(tr *shrule.TableRule, stmt *rmeta.StatementContext) []rmeta.ShardingCondition {
	res := make([]rmeta.ShardingCondition, 0, len(stmt.Conditions))
	for _, c := range stmt.Conditions {
		values := make([]rmeta.ShardingConditionValue, 0, len(c.Values))
		for _, v := range c.Values {
			v.Table = stmt.ResolveTable(v.Table)
			values = append(values, v)
		}
		res = append(res, rmeta.ShardingCondition{Values: values})
	}

	var keys []any
	if stmt.Type == rmeta.InsertStatement && stmt.Insert != nil && tr.GenerateKeyColumn != "" {
		keys = stmt.Insert.GeneratedKeys
	}
	if len(keys) == 0 {
		if len(res) == 0 {
			res = append(res, rmeta.ShardingCondition{})
		}
		return res
	}

	keyValue := func(op rmeta.Operator, vals ...any) rmeta.ShardingConditionValue {
		refs := make([]rmeta.ValueRef, 0, len(vals))
		for _, v := range vals {
			refs = append(refs, rmeta.Lit(v))
		}
		return rmeta.ShardingConditionValue{
			Table:    tr.LogicTable,
			Column:   tr.GenerateKeyColumn,
			Operator: op,
			Values:   refs,
		}
	}

	switch len(res) {
	case 0:
		for _, k := range keys {
			res = append(res, rmeta.ShardingCondition{Values: []rmeta.ShardingConditionValue{keyValue(rmeta.OpEqual, k)}})
		}
	case len(keys):
		for i := range res {
			res[i].Values = append(res[i].Values, keyValue(rmeta.OpEqual, keys[i]))
		}
	default:
		for i := range res {
			res[i].Values = append(res[i].Values, keyValue(rmeta.OpIn, keys...))
		}
	}
	return res
}
