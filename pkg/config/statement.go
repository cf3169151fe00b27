package config

import (
	"github.com/pkg/errors"

	"github.com/pg-sharding/shardcore/router/rmeta"
)

// StatementCfg is a bound statement stored in a file, used to explain
// routing without a SQL binder.
type StatementCfg struct {
	Name      string                 `json:"name,omitempty" toml:"name" yaml:"name"`
	Statement rmeta.StatementContext `json:"statement" toml:"statement" yaml:"statement"`
}

func LoadStatementCfg(path string) (*StatementCfg, error) {
	var cfg StatementCfg
	if err := loadFile(path, &cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to load statement %s", path)
	}
	if cfg.Statement.Type == "" {
		cfg.Statement.Type = rmeta.SelectStatement
	}
	return &cfg, nil
}
