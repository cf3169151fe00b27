package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/pg-sharding/shardcore/router/rmeta"
)

func TestLoadShardingCfgYAML(t *testing.T) {
	assert := assert.New(t)

	cfg, err := LoadShardingCfg("testdata/sharding.yaml")
	require.NoError(t, err)

	assert.Equal([]string{"ds_0", "ds_1"}, cfg.DataSources)
	assert.Equal("ds_0", cfg.DefaultDataSource)
	assert.Len(cfg.Tables, 2)

	order := cfg.Tables["t_order"]
	assert.Equal("ds_${0..1}.t_order_${0..1}", order.ActualDataNodes)
	assert.Equal("user_id", order.DatabaseStrategy.ShardingColumn)
	assert.Equal("t_order_inline", order.TableStrategy.Algorithm)
	assert.Equal("order_id", order.KeyGenerate.Column)

	assert.Equal([]string{"t_order, t_order_item"}, cfg.BindingTables)
	assert.Equal("t_order_${order_id % 2}", cfg.Algorithms["t_order_inline"].Props["algorithm_expression"])
	assert.Equal(HintUnmatchedFail, cfg.HintPolicy())
	assert.Equal(4, cfg.Props.MaxConnectionsPerQuery)
}

func TestLoadShardingCfgTOML(t *testing.T) {
	assert := assert.New(t)

	cfg, err := LoadShardingCfg("testdata/sharding.toml")
	require.NoError(t, err)

	assert.Equal([]string{"ds_0", "ds_1", "ds_2"}, cfg.DataSources)
	assert.Equal("mod3", cfg.Tables["t_user"].DatabaseStrategy.Algorithm)
	assert.Equal(int64(3), cfg.Algorithms["mod3"].Props["sharding_count"])
	assert.Equal(HintUnmatchedBroadcast, cfg.HintPolicy())
}

func TestLoadShardingCfgJSON(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "sharding.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data_sources": ["ds_0"], "broadcast_tables": ["t_dict"]}`), 0o600))

	cfg, err := LoadShardingCfg(path)
	assert.NoError(err)
	assert.Equal([]string{"t_dict"}, cfg.BroadcastTables)
}

func TestLoadShardingCfgErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := LoadShardingCfg("testdata/missing.yaml")
	assert.Error(err)

	path := filepath.Join(t.TempDir(), "sharding.ini")
	require.NoError(t, os.WriteFile(path, []byte("x=1"), 0o600))
	_, err = LoadShardingCfg(path)
	assert.ErrorContains(err, "unknown config format type")
}

type fakeKV struct {
	data map[string][]byte
}

func (f *fakeKV) Get(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	resp := &clientv3.GetResponse{}
	if v, ok := f.data[key]; ok {
		resp.Kvs = append(resp.Kvs, &mvccpb.KeyValue{Key: []byte(key), Value: v})
	}
	return resp, nil
}

func TestLoadShardingCfgFromKV(t *testing.T) {
	assert := assert.New(t)

	raw, err := os.ReadFile("testdata/sharding.yaml")
	require.NoError(t, err)
	kv := &fakeKV{data: map[string][]byte{"/shardcore/rules": raw}}

	cfg, err := LoadShardingCfgFromKV(context.Background(), kv, "/shardcore/rules")
	assert.NoError(err)
	assert.Equal([]string{"t_config"}, cfg.BroadcastTables)

	_, err = LoadShardingCfgFromKV(context.Background(), kv, "/shardcore/other")
	assert.ErrorContains(err, "not found")
}

func TestLoadStatementCfg(t *testing.T) {
	assert := assert.New(t)

	cfg, err := LoadStatementCfg("testdata/statement.yaml")
	require.NoError(t, err)

	stmt := cfg.Statement
	assert.Equal("select order", cfg.Name)
	assert.Equal(rmeta.SelectStatement, stmt.Type)
	assert.Equal(rmeta.MySQL, stmt.Dialect)
	assert.Equal("t_order", stmt.ResolveTable("o"))
	require.Len(t, stmt.Conditions, 1)

	vals, err := stmt.Conditions[0].Values[0].ResolveList(stmt.Params)
	assert.NoError(err)
	assert.Equal([]any{1, 2}, vals)
	assert.True(stmt.OrderBy[0].IsDesc())
}
