package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pg-sharding/shardcore/pkg/config"
	"github.com/pg-sharding/shardcore/router/rmeta"
	"github.com/pg-sharding/shardcore/router/route"
)

func TestExplainText(t *testing.T) {
	assert := assert.New(t)

	cfg, err := config.LoadShardingCfg("../../pkg/config/testdata/sharding.yaml")
	assert.NoError(err)
	stmt, err := config.LoadStatementCfg("../../pkg/config/testdata/statement.yaml")
	assert.NoError(err)

	var buf bytes.Buffer
	assert.NoError(explain(context.Background(), cfg, stmt, "text", &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(lines, 4)
	assert.Contains(buf.String(), "ds_0[t_order->t_order_0]")
	assert.Contains(buf.String(), "ds_1[t_order->t_order_1]")
}

func TestExplainJSON(t *testing.T) {
	assert := assert.New(t)

	cfg, err := config.LoadShardingCfg("../../pkg/config/testdata/sharding.yaml")
	assert.NoError(err)

	stmt := &config.StatementCfg{
		Name: "by user",
		Statement: rmeta.StatementContext{
			Type:   rmeta.SelectStatement,
			Tables: []rmeta.TableRef{{Name: "t_order"}},
			Conditions: []rmeta.ShardingCondition{{Values: []rmeta.ShardingConditionValue{
				{Table: "t_order", Column: "user_id", Operator: rmeta.OpEqual, Values: []rmeta.ValueRef{rmeta.Lit(3)}},
				{Table: "t_order", Column: "order_id", Operator: rmeta.OpEqual, Values: []rmeta.ValueRef{rmeta.Lit(4)}},
			}}},
		},
	}

	var buf bytes.Buffer
	assert.NoError(explain(context.Background(), cfg, stmt, "json", &buf))

	var out struct {
		Name  string       `json:"name"`
		Units []route.Unit `json:"units"`
	}
	assert.NoError(json.Unmarshal(buf.Bytes(), &out))
	assert.Equal("by user", out.Name)
	assert.Equal([]route.Unit{
		route.NewUnit("ds_1", route.Mapper{LogicName: "t_order", ActualName: "t_order_0"}),
	}, out.Units)

	buf.Reset()
	assert.Error(explain(context.Background(), cfg, stmt, "xml", &buf))
}

func TestExplainUnknownTable(t *testing.T) {
	cfg, err := config.LoadShardingCfg("../../pkg/config/testdata/sharding.yaml")
	assert.NoError(t, err)
	cfg.DefaultDataSource = ""

	stmt := &config.StatementCfg{Statement: rmeta.StatementContext{
		Type:   rmeta.SelectStatement,
		Tables: []rmeta.TableRef{{Name: "t_missing"}},
	}}
	var buf bytes.Buffer
	assert.Error(t, explain(context.Background(), cfg, stmt, "text", &buf))
}
