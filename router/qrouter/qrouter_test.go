package qrouter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"

	"github.com/pg-sharding/shardcore/pkg/algorithm"
	"github.com/pg-sharding/shardcore/pkg/config"
	"github.com/pg-sharding/shardcore/pkg/models/datanode"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/pkg/models/shrule"
	"github.com/pg-sharding/shardcore/router/qrouter"
	"github.com/pg-sharding/shardcore/router/rmeta"
	"github.com/pg-sharding/shardcore/router/route"
	"github.com/pg-sharding/shardcore/router/routehint"
	"github.com/pg-sharding/shardcore/router/statistics"
)

// countingAlgorithm routes t_order_item_N by order_id % 2 and counts calls.
type countingAlgorithm struct {
	calls *atomic.Int64
}

func (a countingAlgorithm) Type() string {
	return "COUNTING"
}

func (a countingAlgorithm) DoPreciseSharding(targets []string, v algorithm.PreciseValue) (string, error) {
	a.calls.Inc()
	i, _ := v.Value.(int)
	return targets[i%len(targets)], nil
}

func inline(expr string) config.AlgorithmCfg {
	return config.AlgorithmCfg{Type: "INLINE", Props: map[string]any{"algorithm_expression": expr}}
}

func standard(column, alg string) *config.StrategyCfg {
	return &config.StrategyCfg{Type: config.StrategyStandard, ShardingColumn: column, Algorithm: alg}
}

func testCfg() *config.ShardingCfg {
	return &config.ShardingCfg{
		DataSources: []string{"ds_0", "ds_1"},
		Tables: map[string]config.TableCfg{
			"t_order": {
				ActualDataNodes:  "ds_${0..1}.t_order_${0..1}",
				DatabaseStrategy: standard("user_id", "database_inline"),
				TableStrategy:    standard("order_id", "t_order_inline"),
				KeyGenerate:      &config.KeyGenerateCfg{Column: "order_id", Generator: "snowflake"},
			},
			"t_order_item": {
				ActualDataNodes:  "ds_${0..1}.t_order_item_${0..1}",
				DatabaseStrategy: standard("user_id", "database_inline"),
				TableStrategy:    standard("order_id", "t_order_item_counting"),
			},
			"t_user": {
				ActualDataNodes:  "ds_${0..1}.t_user",
				DatabaseStrategy: standard("user_id", "user_mod"),
			},
		},
		BindingTables:   []string{"t_order, t_order_item"},
		BroadcastTables: []string{"t_config"},
		Algorithms: map[string]config.AlgorithmCfg{
			"database_inline":       inline("ds_${user_id % 2}"),
			"t_order_inline":        inline("t_order_${order_id % 2}"),
			"t_order_item_counting": {Type: "COUNTING"},
			"user_mod":              {Type: "MOD", Props: map[string]any{"sharding_count": 2}},
		},
		KeyGenerators: map[string]config.AlgorithmCfg{
			"snowflake": {Type: "SNOWFLAKE", Props: map[string]any{"worker_id": 1}},
		},
	}
}

func newRule(t *testing.T, cfg *config.ShardingCfg) (*shrule.ShardingRule, *atomic.Int64) {
	calls := atomic.NewInt64(0)
	algs := algorithm.NewRegistry()
	err := algs.Register("COUNTING", func(algorithm.Props) (algorithm.Algorithm, error) {
		return countingAlgorithm{calls: calls}, nil
	})
	assert.NoError(t, err)

	rule, err := shrule.NewShardingRule(cfg, algs, nil)
	assert.NoError(t, err)
	return rule, calls
}

func eq(table, column string, vals ...any) rmeta.ShardingConditionValue {
	op := rmeta.OpEqual
	if len(vals) > 1 {
		op = rmeta.OpIn
	}
	refs := make([]rmeta.ValueRef, 0, len(vals))
	for _, v := range vals {
		refs = append(refs, rmeta.Lit(v))
	}
	return rmeta.ShardingConditionValue{Table: table, Column: column, Operator: op, Values: refs}
}

func where(values ...rmeta.ShardingConditionValue) []rmeta.ShardingCondition {
	return []rmeta.ShardingCondition{{Values: values}}
}

func tables(names ...string) []rmeta.TableRef {
	res := make([]rmeta.TableRef, 0, len(names))
	for _, n := range names {
		res = append(res, rmeta.TableRef{Name: n})
	}
	return res
}

func unit(ds string, pairs ...string) route.Unit {
	var mappers []route.Mapper
	for i := 0; i+1 < len(pairs); i += 2 {
		mappers = append(mappers, route.Mapper{LogicName: pairs[i], ActualName: pairs[i+1]})
	}
	return route.NewUnit(ds, mappers...)
}

func TestStandardRouting(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		name   string
		stmt   *rmeta.StatementContext
		engine qrouter.EngineType
		exp    []route.Unit
		err    string
	}

	rule, _ := newRule(t, testCfg())
	pr := qrouter.NewRouter(rule, nil)

	for _, tt := range []tcase{
		{
			name: "equal on both sharding columns",
			stmt: &rmeta.StatementContext{
				Type:       rmeta.SelectStatement,
				Tables:     tables("t_order"),
				Conditions: where(eq("t_order", "user_id", 1), eq("t_order", "order_id", 2)),
			},
			engine: qrouter.StandardEngine,
			exp:    []route.Unit{unit("ds_1", "t_order", "t_order_0")},
		},
		{
			name: "in list on database column",
			stmt: &rmeta.StatementContext{
				Type:       rmeta.SelectStatement,
				Tables:     tables("t_order"),
				Conditions: where(eq("t_order", "user_id", 2, 1), eq("t_order", "order_id", 3)),
			},
			engine: qrouter.StandardEngine,
			exp: []route.Unit{
				unit("ds_0", "t_order", "t_order_1"),
				unit("ds_1", "t_order", "t_order_1"),
			},
		},
		{
			name: "parameter marker",
			stmt: &rmeta.StatementContext{
				Type:   rmeta.UpdateStatement,
				Tables: tables("t_order"),
				Conditions: where(
					rmeta.ShardingConditionValue{Table: "t_order", Column: "user_id", Operator: rmeta.OpEqual, Values: []rmeta.ValueRef{rmeta.Param(0)}},
					rmeta.ShardingConditionValue{Table: "t_order", Column: "order_id", Operator: rmeta.OpEqual, Values: []rmeta.ValueRef{rmeta.Param(1)}},
				),
				Params: []any{10, 11},
			},
			engine: qrouter.StandardEngine,
			exp:    []route.Unit{unit("ds_0", "t_order", "t_order_1")},
		},
		{
			name: "no condition broadcasts to every data node",
			stmt: &rmeta.StatementContext{
				Type:   rmeta.SelectStatement,
				Tables: tables("t_order"),
			},
			engine: qrouter.StandardEngine,
			exp: []route.Unit{
				unit("ds_0", "t_order", "t_order_0"),
				unit("ds_0", "t_order", "t_order_1"),
				unit("ds_1", "t_order", "t_order_0"),
				unit("ds_1", "t_order", "t_order_1"),
			},
		},
		{
			name: "or branches are unioned",
			stmt: &rmeta.StatementContext{
				Type:   rmeta.DeleteStatement,
				Tables: tables("t_order"),
				Conditions: []rmeta.ShardingCondition{
					{Values: []rmeta.ShardingConditionValue{eq("t_order", "user_id", 1), eq("t_order", "order_id", 1)}},
					{Values: []rmeta.ShardingConditionValue{eq("t_order", "user_id", 0), eq("t_order", "order_id", 0)}},
					{Values: []rmeta.ShardingConditionValue{eq("t_order", "user_id", 1), eq("t_order", "order_id", 3)}},
				},
			},
			engine: qrouter.StandardEngine,
			exp: []route.Unit{
				unit("ds_1", "t_order", "t_order_1"),
				unit("ds_0", "t_order", "t_order_0"),
			},
		},
		{
			name: "broadcast table is carried by every unit",
			stmt: &rmeta.StatementContext{
				Type:       rmeta.SelectStatement,
				Tables:     tables("t_order", "t_config"),
				Conditions: where(eq("t_order", "user_id", 0), eq("t_order", "order_id", 0)),
			},
			engine: qrouter.StandardEngine,
			exp:    []route.Unit{unit("ds_0", "t_order", "t_order_0", "t_config", "t_config")},
		},
		{
			name: "contradicting values route nowhere and fall back to the first data node",
			stmt: &rmeta.StatementContext{
				Type:       rmeta.SelectStatement,
				Tables:     tables("t_order"),
				Conditions: where(eq("t_order", "user_id", 0), eq("t_order", "user_id", 1)),
			},
			engine: qrouter.StandardEngine,
			exp:    []route.Unit{unit("ds_0", "t_order", "t_order_0")},
		},
		{
			name: "always false",
			stmt: &rmeta.StatementContext{
				Type:        rmeta.SelectStatement,
				Tables:      tables("t_order"),
				AlwaysFalse: true,
			},
			engine: qrouter.UnicastEngine,
			exp:    []route.Unit{unit("ds_0", "t_order", "t_order_0")},
		},
		{
			name: "range on inline algorithm",
			stmt: &rmeta.StatementContext{
				Type:   rmeta.SelectStatement,
				Tables: tables("t_order"),
				Conditions: where(rmeta.ShardingConditionValue{
					Table: "t_order", Column: "order_id", Operator: rmeta.OpBetween,
					Values: []rmeta.ValueRef{rmeta.Lit(1), rmeta.Lit(5)},
				}),
			},
			engine: qrouter.StandardEngine,
			err:    sherror.SHARD_ALGORITHM_FAILURE,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := qrouter.NewRouteEngine(rule, tt.stmt)
			assert.NoError(err)
			assert.Equal(tt.engine, engine.Type())

			rc, err := pr.Route(context.TODO(), tt.stmt)
			if tt.err != "" {
				assert.Error(err)
				assert.True(sherror.HasCode(err, tt.err), "got %v", err)
				assert.Nil(rc)
				return
			}
			assert.NoError(err)
			assert.Equal(tt.exp, rc.Units)
		})
	}
}

func TestBroadcastRouting(t *testing.T) {
	assert := assert.New(t)

	type tcase struct {
		name   string
		stmt   *rmeta.StatementContext
		engine qrouter.EngineType
		exp    []route.Unit
	}

	rule, _ := newRule(t, testCfg())

	for _, tt := range []tcase{
		{
			name:   "tcl",
			stmt:   &rmeta.StatementContext{Type: rmeta.TCLStatement},
			engine: qrouter.DatabaseBroadcastEngine,
			exp:    []route.Unit{unit("ds_0"), unit("ds_1")},
		},
		{
			name:   "ddl on sharded table",
			stmt:   &rmeta.StatementContext{Type: rmeta.DDLStatement, Tables: tables("t_user")},
			engine: qrouter.TableBroadcastEngine,
			exp: []route.Unit{
				unit("ds_0", "t_user", "t_user"),
				unit("ds_1", "t_user", "t_user"),
			},
		},
		{
			name:   "ddl on broadcast table",
			stmt:   &rmeta.StatementContext{Type: rmeta.DDLStatement, Tables: tables("t_config")},
			engine: qrouter.DatabaseBroadcastEngine,
			exp: []route.Unit{
				unit("ds_0", "t_config", "t_config"),
				unit("ds_1", "t_config", "t_config"),
			},
		},
		{
			name:   "ddl on unknown table is ignored",
			stmt:   &rmeta.StatementContext{Type: rmeta.DDLStatement, Tables: tables("t_tmp")},
			engine: qrouter.IgnoreEngine,
		},
		{
			name:   "select from broadcast table reads one data source",
			stmt:   &rmeta.StatementContext{Type: rmeta.SelectStatement, Tables: tables("t_config")},
			engine: qrouter.UnicastEngine,
			exp:    []route.Unit{unit("ds_0", "t_config", "t_config")},
		},
		{
			name:   "update of broadcast table writes every data source",
			stmt:   &rmeta.StatementContext{Type: rmeta.UpdateStatement, Tables: tables("t_config")},
			engine: qrouter.DatabaseBroadcastEngine,
			exp: []route.Unit{
				unit("ds_0", "t_config", "t_config"),
				unit("ds_1", "t_config", "t_config"),
			},
		},
		{
			name:   "select without tables",
			stmt:   &rmeta.StatementContext{Type: rmeta.SelectStatement},
			engine: qrouter.UnicastEngine,
			exp:    []route.Unit{unit("ds_0")},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := qrouter.NewRouteEngine(rule, tt.stmt)
			assert.NoError(err)
			assert.Equal(tt.engine, engine.Type())

			rc, err := engine.Route()
			assert.NoError(err)
			assert.Equal(tt.exp, rc.Units)
		})
	}
}

func TestBindingShortCircuit(t *testing.T) {
	assert := assert.New(t)

	rule, calls := newRule(t, testCfg())

	stmt := &rmeta.StatementContext{
		Type:   rmeta.SelectStatement,
		Tables: []rmeta.TableRef{{Name: "t_order", Alias: "o"}, {Name: "t_order_item", Alias: "i"}},
		JoinConditions: []rmeta.JoinCondition{
			{LeftTable: "o", LeftColumn: "order_id", RightTable: "i", RightColumn: "order_id"},
		},
		Conditions: where(eq("o", "user_id", 0), eq("o", "order_id", 1)),
	}

	engine, err := qrouter.NewRouteEngine(rule, stmt)
	assert.NoError(err)
	assert.Equal(qrouter.StandardEngine, engine.Type())

	rc, err := engine.Route()
	assert.NoError(err)
	assert.Equal([]route.Unit{
		unit("ds_0", "t_order", "t_order_1", "t_order_item", "t_order_item_1"),
	}, rc.Units)
	assert.Equal(int64(0), calls.Load())

	// without a join on sharding columns the binding group is still routed once
	stmt.JoinConditions = nil
	engine, err = qrouter.NewRouteEngine(rule, stmt)
	assert.NoError(err)
	assert.Equal(qrouter.ComplexEngine, engine.Type())

	rc, err = engine.Route()
	assert.NoError(err)
	assert.Equal([]route.Unit{
		unit("ds_0", "t_order", "t_order_1", "t_order_item", "t_order_item_1"),
	}, rc.Units)
	assert.Equal(int64(0), calls.Load())
}

func TestCartesianRouting(t *testing.T) {
	assert := assert.New(t)

	rule, _ := newRule(t, testCfg())

	stmt := &rmeta.StatementContext{
		Type:       rmeta.SelectStatement,
		Tables:     tables("t_order", "t_user"),
		Conditions: where(eq("t_order", "user_id", 0), eq("t_user", "user_id", 0)),
	}
	rc, err := qrouter.NewRouter(rule, nil).Route(context.TODO(), stmt)
	assert.NoError(err)
	assert.Equal([]route.Unit{
		unit("ds_0", "t_order", "t_order_0", "t_user", "t_user"),
		unit("ds_0", "t_order", "t_order_1", "t_user", "t_user"),
	}, rc.Units)

	stmt.Conditions = nil
	rc, err = qrouter.NewRouter(rule, nil).Route(context.TODO(), stmt)
	assert.NoError(err)
	// 2 t_order tables x 1 t_user table per data source, never across
	assert.Len(rc.Units, 4)
	for _, u := range rc.Units {
		for _, m := range u.Tables {
			tr, ok := rule.FindTableRule(m.LogicName)
			assert.True(ok)
			assert.True(tr.HasDataNode(datanode.New(u.DataSource.ActualName, m.ActualName)))
		}
	}

	stmt.Conditions = where(eq("t_order", "user_id", 0), eq("t_user", "user_id", 1))
	rc, err = qrouter.NewRouter(rule, nil).Route(context.TODO(), stmt)
	assert.Error(err)
	assert.True(sherror.HasCode(err, sherror.SHARD_CARTESIAN_EMPTY))
	assert.Nil(rc)
}

func TestRoutingIsIdempotent(t *testing.T) {
	assert := assert.New(t)

	rule, _ := newRule(t, testCfg())
	pr := qrouter.NewRouter(rule, nil)

	stmt := &rmeta.StatementContext{
		Type:       rmeta.SelectStatement,
		Tables:     tables("t_order", "t_user", "t_config"),
		Conditions: where(eq("t_order", "user_id", 1, 3)),
	}
	first, err := pr.Route(context.TODO(), stmt)
	assert.NoError(err)
	second, err := pr.Route(context.TODO(), stmt)
	assert.NoError(err)
	assert.Equal(first, second)
}

func TestTableRuleNotFound(t *testing.T) {
	assert := assert.New(t)

	rule, _ := newRule(t, testCfg())
	pr := qrouter.NewRouter(rule, nil)

	for _, names := range [][]string{{"t_order", "t_unknown"}, {"t_unknown"}} {
		rc, err := pr.Route(context.TODO(), &rmeta.StatementContext{
			Type:   rmeta.SelectStatement,
			Tables: tables(names...),
		})
		assert.Error(err)
		assert.True(sherror.HasCode(err, sherror.SHARD_TABLE_RULE_NOT_FOUND))
		assert.Nil(rc)
	}

	cfg := testCfg()
	cfg.DefaultDataSource = "ds_1"
	rule, _ = newRule(t, cfg)
	rc, err := qrouter.NewRouter(rule, nil).Route(context.TODO(), &rmeta.StatementContext{
		Type:   rmeta.SelectStatement,
		Tables: tables("t_unknown"),
	})
	assert.NoError(err)
	assert.Equal([]route.Unit{unit("ds_1", "t_unknown", "t_unknown")}, rc.Units)
}

func TestInsertWithGeneratedKeys(t *testing.T) {
	assert := assert.New(t)

	rule, _ := newRule(t, testCfg())

	stmt := &rmeta.StatementContext{
		Type:   rmeta.InsertStatement,
		Tables: tables("t_order"),
		Insert: &rmeta.InsertContext{Columns: []string{"user_id"}, RowCount: 2},
		Conditions: []rmeta.ShardingCondition{
			{Values: []rmeta.ShardingConditionValue{eq("t_order", "user_id", 0)}},
			{Values: []rmeta.ShardingConditionValue{eq("t_order", "user_id", 0)}},
		},
	}
	assert.NoError(qrouter.GenerateKeys(rule, stmt))
	assert.Len(stmt.Insert.GeneratedKeys, 2)
	assert.NotEqual(stmt.Insert.GeneratedKeys[0], stmt.Insert.GeneratedKeys[1])

	stmt.Insert.GeneratedKeys = []any{int64(1), int64(2)}
	rc, err := qrouter.NewRouter(rule, nil).Route(context.TODO(), stmt)
	assert.NoError(err)
	assert.Equal([]route.Unit{
		unit("ds_0", "t_order", "t_order_1"),
		unit("ds_0", "t_order", "t_order_0"),
	}, rc.Units)

	supplied := &rmeta.StatementContext{
		Type:   rmeta.InsertStatement,
		Tables: tables("t_order"),
		Insert: &rmeta.InsertContext{Columns: []string{"user_id", "ORDER_ID"}, RowCount: 1},
	}
	assert.NoError(qrouter.GenerateKeys(rule, supplied))
	assert.Empty(supplied.Insert.GeneratedKeys)
}

func TestDatabaseHintRouting(t *testing.T) {
	assert := assert.New(t)

	rule, _ := newRule(t, testCfg())

	hint := routehint.New()
	hint.SetDatabaseOnly(1)
	stmt := &rmeta.StatementContext{
		Type:   rmeta.SelectStatement,
		Tables: tables("t_order"),
		Hint:   hint,
	}
	rc, err := qrouter.NewRouter(rule, nil).Route(context.TODO(), stmt)
	assert.NoError(err)
	assert.Equal([]route.Unit{unit("ds_1", "t_order", "t_order")}, rc.Units)

	hint.SetDatabaseOnly("ds_9")
	rc, err = qrouter.NewRouter(rule, nil).Route(context.TODO(), stmt)
	assert.NoError(err)
	assert.Len(rc.Units, 2)

	cfg := testCfg()
	cfg.Props.HintUnmatchedPolicy = config.HintUnmatchedFail
	rule, _ = newRule(t, cfg)
	_, err = qrouter.NewRouter(rule, nil).Route(context.TODO(), stmt)
	assert.True(sherror.HasCode(err, sherror.SHARD_HINT_UNMATCHED))
}

func TestRouterStatistics(t *testing.T) {
	assert := assert.New(t)

	rule, _ := newRule(t, testCfg())
	stats := statistics.NewRouteStatistics(nil)
	pr := qrouter.NewRouter(rule, stats)

	_, err := pr.Route(context.TODO(), &rmeta.StatementContext{Type: rmeta.SelectStatement, Tables: tables("t_order")})
	assert.NoError(err)
	_, err = pr.Route(context.TODO(), &rmeta.StatementContext{Type: rmeta.SelectStatement, Tables: tables("t_nope")})
	assert.Error(err)

	assert.Equal(uint64(1), stats.Statements())
	assert.Equal(uint64(4), stats.Units())
	assert.Equal(uint64(1), stats.Failures())
}
