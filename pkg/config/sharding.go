package config

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/pg-sharding/shardcore/pkg/shardlog"
)

const (
	StrategyStandard = "standard"
	StrategyComplex  = "complex"
	StrategyHint     = "hint"
	StrategyNone     = "none"

	HintUnmatchedBroadcast = "broadcast"
	HintUnmatchedFail      = "fail"
)

// StrategyCfg configures one sharding dimension of a table.
type StrategyCfg struct {
	Type            string   `json:"type" toml:"type" yaml:"type"`
	ShardingColumn  string   `json:"sharding_column,omitempty" toml:"sharding_column" yaml:"sharding_column"`
	ShardingColumns []string `json:"sharding_columns,omitempty" toml:"sharding_columns" yaml:"sharding_columns"`
	Algorithm       string   `json:"algorithm,omitempty" toml:"algorithm" yaml:"algorithm"`
}

type KeyGenerateCfg struct {
	Column    string `json:"column" toml:"column" yaml:"column"`
	Generator string `json:"generator" toml:"generator" yaml:"generator"`
}

type TableCfg struct {
	ActualDataNodes  string          `json:"actual_data_nodes" toml:"actual_data_nodes" yaml:"actual_data_nodes"`
	DatabaseStrategy *StrategyCfg    `json:"database_strategy,omitempty" toml:"database_strategy" yaml:"database_strategy"`
	TableStrategy    *StrategyCfg    `json:"table_strategy,omitempty" toml:"table_strategy" yaml:"table_strategy"`
	KeyGenerate      *KeyGenerateCfg `json:"key_generate,omitempty" toml:"key_generate" yaml:"key_generate"`
}

type AlgorithmCfg struct {
	Type  string         `json:"type" toml:"type" yaml:"type"`
	Props map[string]any `json:"props,omitempty" toml:"props" yaml:"props"`
}

type PropsCfg struct {
	HintUnmatchedPolicy    string `json:"hint_unmatched_policy,omitempty" toml:"hint_unmatched_policy" yaml:"hint_unmatched_policy"`
	MaxConnectionsPerQuery int    `json:"max_connections_per_query,omitempty" toml:"max_connections_per_query" yaml:"max_connections_per_query"`
	LogLevel               string `json:"log_level,omitempty" toml:"log_level" yaml:"log_level"`
}

type ShardingCfg struct {
	DataSources       []string            `json:"data_sources" toml:"data_sources" yaml:"data_sources"`
	DefaultDataSource string              `json:"default_data_source,omitempty" toml:"default_data_source" yaml:"default_data_source"`
	Tables            map[string]TableCfg `json:"tables" toml:"tables" yaml:"tables"`
	// BindingTables lists groups as comma separated table names.
	BindingTables           []string                `json:"binding_tables,omitempty" toml:"binding_tables" yaml:"binding_tables"`
	BroadcastTables         []string                `json:"broadcast_tables,omitempty" toml:"broadcast_tables" yaml:"broadcast_tables"`
	DefaultDatabaseStrategy *StrategyCfg            `json:"default_database_strategy,omitempty" toml:"default_database_strategy" yaml:"default_database_strategy"`
	DefaultTableStrategy    *StrategyCfg            `json:"default_table_strategy,omitempty" toml:"default_table_strategy" yaml:"default_table_strategy"`
	Algorithms              map[string]AlgorithmCfg `json:"algorithms,omitempty" toml:"algorithms" yaml:"algorithms"`
	KeyGenerators           map[string]AlgorithmCfg `json:"key_generators,omitempty" toml:"key_generators" yaml:"key_generators"`
	Props                   PropsCfg                `json:"props" toml:"props" yaml:"props"`
}

// HintPolicy returns the normalized hint unmatched policy.
func (c *ShardingCfg) HintPolicy() string {
	if strings.EqualFold(c.Props.HintUnmatchedPolicy, HintUnmatchedFail) {
		return HintUnmatchedFail
	}
	return HintUnmatchedBroadcast
}

// LoadShardingCfg loads the sharding rule configuration from a .yaml,
// .toml or .json file.
func LoadShardingCfg(cfgPath string) (*ShardingCfg, error) {
	var cfg ShardingCfg
	if err := loadFile(cfgPath, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to load sharding config %s", cfgPath)
	}
	logLoaded(&cfg, cfgPath)
	return &cfg, nil
}

// KVGetter is the part of the etcd KV API the loader needs.
type KVGetter interface {
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
}

// LoadShardingCfgFromKV reads a YAML sharding configuration stored under key.
func LoadShardingCfgFromKV(ctx context.Context, kv KVGetter, key string) (*ShardingCfg, error) {
	resp, err := kv.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get sharding config key %s", key)
	}
	if len(resp.Kvs) == 0 {
		return nil, errors.Errorf("sharding config key %s not found", key)
	}

	var cfg ShardingCfg
	if err := decode(".yaml", bytes.NewReader(resp.Kvs[0].Value), &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode sharding config key %s", key)
	}
	logLoaded(&cfg, key)
	return &cfg, nil
}

// LoadShardingCfgFromEtcd connects to etcd and loads the configuration
// stored under key.
func LoadShardingCfgFromEtcd(ctx context.Context, endpoints []string, key string) (*ShardingCfg, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to etcd")
	}
	defer cli.Close()

	shardlog.Zero.Debug().
		Strs("endpoints", endpoints).
		Str("key", key).
		Msg("config: load sharding config from etcd")

	return LoadShardingCfgFromKV(ctx, cli, key)
}

func logLoaded(cfg *ShardingCfg, source string) {
	configBytes, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	shardlog.Zero.Debug().
		Str("source", source).
		RawJSON("config", configBytes).
		Msg("config: loaded sharding config")
}
