// Package shrule is the immutable sharding rule model. It is built once
// from configuration and shared read-only by concurrent routing calls.
package shrule

import (
	"sort"
	"strings"

	"github.com/pg-sharding/shardcore/pkg/algorithm"
	"github.com/pg-sharding/shardcore/pkg/config"
	"github.com/pg-sharding/shardcore/pkg/inline"
	"github.com/pg-sharding/shardcore/pkg/keygen"
	"github.com/pg-sharding/shardcore/pkg/models/datanode"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/router/strategy"
)

type ShardingRule struct {
	DataSourceNames   []string
	DefaultDataSource string

	TableRules        []*TableRule
	BindingTableRules []*BindingTableRule
	BroadcastTables   []string

	DefaultDatabaseStrategy strategy.Strategy
	DefaultTableStrategy    strategy.Strategy

	HintPolicy             strategy.HintPolicy
	MaxConnectionsPerQuery int

	tableRules map[string]*TableRule
	broadcast  map[string]struct{}
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewShardingRule validates the configuration and builds the rule model.
func NewShardingRule(cfg *config.ShardingCfg, algs *algorithm.Registry, keygens *keygen.Registry) (*ShardingRule, error) {
	if algs == nil {
		algs = algorithm.NewRegistry()
	}
	if keygens == nil {
		keygens = keygen.NewRegistry()
	}

	r := &ShardingRule{
		DataSourceNames:        cfg.DataSources,
		DefaultDataSource:      cfg.DefaultDataSource,
		HintPolicy:             strategy.HintPolicy(cfg.HintPolicy()),
		MaxConnectionsPerQuery: cfg.Props.MaxConnectionsPerQuery,
		tableRules:             map[string]*TableRule{},
		broadcast:              map[string]struct{}{},
	}
	if len(r.DataSourceNames) == 0 && r.DefaultDataSource != "" {
		r.DataSourceNames = []string{r.DefaultDataSource}
	}
	if len(r.DataSourceNames) == 0 {
		return nil, sherror.New(sherror.SHARD_INVALID_CONFIGURATION, "no data sources configured")
	}
	if r.DefaultDataSource != "" && !containsFold(r.DataSourceNames, r.DefaultDataSource) {
		return nil, sherror.Newf(sherror.SHARD_INVALID_CONFIGURATION, "default data source %s is not configured", r.DefaultDataSource)
	}

	algorithms := map[string]algorithm.Algorithm{}
	for name, acfg := range cfg.Algorithms {
		a, err := algs.New(acfg.Type, algorithm.PropsFrom(acfg.Props))
		if err != nil {
			return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "sharding algorithm %s: %s", name, err.Error())
		}
		algorithms[lower(name)] = a
	}

	var err error
	if r.DefaultDatabaseStrategy, err = r.newStrategy(cfg.DefaultDatabaseStrategy, algorithms); err != nil {
		return nil, err
	}
	if r.DefaultTableStrategy, err = r.newStrategy(cfg.DefaultTableStrategy, algorithms); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cfg.Tables))
	for name := range cfg.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tr, err := r.newTableRule(name, cfg.Tables[name], algorithms, cfg, keygens)
		if err != nil {
			return nil, err
		}
		r.TableRules = append(r.TableRules, tr)
		r.tableRules[lower(name)] = tr
	}

	for _, group := range cfg.BindingTables {
		b := &BindingTableRule{}
		for _, name := range strings.Split(group, ",") {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			tr, ok := r.tableRules[lower(name)]
			if !ok {
				return nil, sherror.Newf(sherror.SHARD_TABLE_RULE_NOT_FOUND, "binding table %s has no table rule", name)
			}
			b.TableRules = append(b.TableRules, tr)
		}
		if err := b.validate(); err != nil {
			return nil, err
		}
		r.BindingTableRules = append(r.BindingTableRules, b)
	}

	for _, name := range cfg.BroadcastTables {
		if _, ok := r.tableRules[lower(name)]; ok {
			return nil, sherror.Newf(sherror.SHARD_INVALID_CONFIGURATION, "table %s is both sharded and broadcast", name)
		}
		r.BroadcastTables = append(r.BroadcastTables, name)
		r.broadcast[lower(name)] = struct{}{}
	}
	return r, nil
}

func (r *ShardingRule) newStrategy(scfg *config.StrategyCfg, algorithms map[string]algorithm.Algorithm) (strategy.Strategy, error) {
	if scfg == nil {
		return nil, nil
	}

	var alg algorithm.Algorithm
	if scfg.Algorithm != "" {
		a, ok := algorithms[lower(scfg.Algorithm)]
		if !ok {
			return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "sharding algorithm %s is not configured", scfg.Algorithm)
		}
		alg = a
	}

	switch lower(scfg.Type) {
	case config.StrategyStandard, "":
		if alg == nil {
			return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "standard strategy on %s has no algorithm", scfg.ShardingColumn)
		}
		return strategy.NewStandard(scfg.ShardingColumn, alg)
	case config.StrategyComplex:
		if alg == nil {
			return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "complex strategy on %v has no algorithm", scfg.ShardingColumns)
		}
		return strategy.NewComplex(scfg.ShardingColumns, alg)
	case config.StrategyHint:
		return strategy.NewHint(alg, r.HintPolicy)
	case config.StrategyNone:
		return strategy.NoneStrategy{}, nil
	}
	return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "unknown sharding strategy type \"%s\"", scfg.Type)
}

func (r *ShardingRule) newTableRule(name string, tcfg config.TableCfg, algorithms map[string]algorithm.Algorithm, cfg *config.ShardingCfg, keygens *keygen.Registry) (*TableRule, error) {
	var nodes []datanode.DataNode
	if tcfg.ActualDataNodes == "" {
		for _, ds := range r.DataSourceNames {
			nodes = append(nodes, datanode.New(ds, name))
		}
	} else {
		expanded, err := inline.Expand(tcfg.ActualDataNodes)
		if err != nil {
			return nil, sherror.Newf(sherror.SHARD_INVALID_CONFIGURATION, "table %s: %s", name, err.Error())
		}
		for _, s := range expanded {
			n, err := datanode.ParseDataNode(s)
			if err != nil {
				return nil, sherror.Newf(sherror.SHARD_INVALID_CONFIGURATION, "table %s: %s", name, err.Error())
			}
			if !containsFold(r.DataSourceNames, n.DataSource) {
				return nil, sherror.Newf(sherror.SHARD_INVALID_CONFIGURATION, "table %s: data source %s is not configured", name, n.DataSource)
			}
			nodes = append(nodes, n)
		}
	}

	tr := NewTableRule(name, nodes)

	var err error
	if tr.DatabaseStrategy, err = r.newStrategy(tcfg.DatabaseStrategy, algorithms); err != nil {
		return nil, err
	}
	if tr.TableStrategy, err = r.newStrategy(tcfg.TableStrategy, algorithms); err != nil {
		return nil, err
	}

	if kg := tcfg.KeyGenerate; kg != nil {
		gcfg, ok := cfg.KeyGenerators[kg.Generator]
		if !ok {
			return nil, sherror.Newf(sherror.SHARD_KEY_GENERATION_FAILURE, "table %s: key generator %s is not configured", name, kg.Generator)
		}
		gen, err := keygens.New(gcfg.Type, algorithm.PropsFrom(gcfg.Props))
		if err != nil {
			return nil, err
		}
		tr.GenerateKeyColumn = kg.Column
		tr.KeyGenerator = gen
	}
	return tr, nil
}

func containsFold(list []string, s string) bool {
	for _, e := range list {
		if strings.EqualFold(e, s) {
			return true
		}
	}
	return false
}

func (r *ShardingRule) FindTableRule(logic string) (*TableRule, bool) {
	tr, ok := r.tableRules[lower(logic)]
	return tr, ok
}

// GetTableRule fails with a table-rule-not-found error for unsharded tables.
func (r *ShardingRule) GetTableRule(logic string) (*TableRule, error) {
	if tr, ok := r.FindTableRule(logic); ok {
		return tr, nil
	}
	return nil, sherror.Newf(sherror.SHARD_TABLE_RULE_NOT_FOUND, "cannot find table rule with logic table \"%s\"", logic)
}

func (r *ShardingRule) IsShardingTable(logic string) bool {
	_, ok := r.FindTableRule(logic)
	return ok
}

func (r *ShardingRule) IsBroadcastTable(logic string) bool {
	_, ok := r.broadcast[lower(logic)]
	return ok
}

func (r *ShardingRule) IsAllBroadcastTables(logics []string) bool {
	if len(logics) == 0 {
		return false
	}
	for _, l := range logics {
		if !r.IsBroadcastTable(l) {
			return false
		}
	}
	return true
}

// ShardingTables filters logics down to sharded tables, keeping order.
func (r *ShardingRule) ShardingTables(logics []string) []string {
	var res []string
	for _, l := range logics {
		if r.IsShardingTable(l) {
			res = append(res, l)
		}
	}
	return res
}

func (r *ShardingRule) FindBindingTableRule(logic string) (*BindingTableRule, bool) {
	for _, b := range r.BindingTableRules {
		if b.HasLogicTable(logic) {
			return b, true
		}
	}
	return nil, false
}

// IsAllBindingTables reports whether every table belongs to one binding group.
func (r *ShardingRule) IsAllBindingTables(logics []string) bool {
	if len(logics) == 0 {
		return false
	}
	b, ok := r.FindBindingTableRule(logics[0])
	if !ok {
		return false
	}
	for _, l := range logics[1:] {
		if !b.HasLogicTable(l) {
			return false
		}
	}
	return true
}

// DatabaseStrategy resolves the table's database strategy, falling back to
// the default and then to broadcast.
func (r *ShardingRule) DatabaseStrategy(tr *TableRule) strategy.Strategy {
	if tr.DatabaseStrategy != nil {
		return tr.DatabaseStrategy
	}
	if r.DefaultDatabaseStrategy != nil {
		return r.DefaultDatabaseStrategy
	}
	return strategy.NoneStrategy{}
}

func (r *ShardingRule) TableStrategy(tr *TableRule) strategy.Strategy {
	if tr.TableStrategy != nil {
		return tr.TableStrategy
	}
	if r.DefaultTableStrategy != nil {
		return r.DefaultTableStrategy
	}
	return strategy.NoneStrategy{}
}

// ShardingColumns lists the columns both strategies of the table use.
func (r *ShardingRule) ShardingColumns(tr *TableRule) []string {
	var res []string
	for _, s := range []strategy.Strategy{r.DatabaseStrategy(tr), r.TableStrategy(tr)} {
		for _, c := range s.ShardingColumns() {
			if !containsFold(res, c) {
				res = append(res, c)
			}
		}
	}
	return res
}

func (r *ShardingRule) IsShardingColumn(logic, column string) bool {
	tr, ok := r.FindTableRule(logic)
	return ok && containsFold(r.ShardingColumns(tr), column)
}
