package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/pg-sharding/shardcore/pkg/algorithm"
	"github.com/pg-sharding/shardcore/pkg/config"
	"github.com/pg-sharding/shardcore/pkg/keygen"
	"github.com/pg-sharding/shardcore/pkg/models/shrule"
	"github.com/pg-sharding/shardcore/pkg/shardlog"
	"github.com/pg-sharding/shardcore/router/qrouter"
	"github.com/pg-sharding/shardcore/router/route"
)

var (
	cfgPath       string
	stmtPath      string
	etcdEndpoints []string
	etcdKey       string
	format        string
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "shardexplain route --config `path-to-rules` --statement `path-to-statement`",
	Short: "shardexplain",
	Long:  "shardexplain shows where a bound statement is routed under a sharding rule",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "print the route units of a statement",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := shardlog.UpdateZeroLogLevel(logLevel); err != nil {
			return err
		}

		cfg, err := loadRules(cmd.Context())
		if err != nil {
			return err
		}
		if cfg.Props.LogLevel != "" && !cmd.Flags().Changed("log-level") {
			if err := shardlog.UpdateZeroLogLevel(cfg.Props.LogLevel); err != nil {
				return err
			}
		}

		stmt, err := config.LoadStatementCfg(stmtPath)
		if err != nil {
			return err
		}
		return explain(cmd.Context(), cfg, stmt, format, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "error", "log level")

	routeCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to sharding rule config (yaml, toml or json)")
	routeCmd.Flags().StringVarP(&stmtPath, "statement", "s", "", "path to bound statement")
	routeCmd.Flags().StringSliceVar(&etcdEndpoints, "etcd-endpoints", nil, "load the sharding rule from etcd")
	routeCmd.Flags().StringVar(&etcdKey, "etcd-key", "/shardcore/rules", "etcd key holding the sharding rule")
	routeCmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	_ = routeCmd.MarkFlagRequired("statement")

	rootCmd.AddCommand(routeCmd)
}

func loadRules(ctx context.Context) (*config.ShardingCfg, error) {
	if len(etcdEndpoints) > 0 {
		return config.LoadShardingCfgFromEtcd(ctx, etcdEndpoints, etcdKey)
	}
	if cfgPath == "" {
		return nil, errors.New("either --config or --etcd-endpoints is required")
	}
	return config.LoadShardingCfg(cfgPath)
}

type explainOutput struct {
	Name  string       `json:"name,omitempty" yaml:"name,omitempty"`
	Units []route.Unit `json:"units" yaml:"units"`
}

func explain(ctx context.Context, cfg *config.ShardingCfg, stmtCfg *config.StatementCfg, format string, w io.Writer) error {
	rule, err := shrule.NewShardingRule(cfg, algorithm.NewRegistry(), keygen.NewRegistry())
	if err != nil {
		return errors.Wrap(err, "failed to build sharding rule")
	}

	stmt := stmtCfg.Statement
	if err := qrouter.GenerateKeys(rule, &stmt); err != nil {
		return err
	}

	rc, err := qrouter.NewRouter(rule, nil).Route(ctx, &stmt)
	if err != nil {
		return errors.Wrapf(err, "failed to route statement %s", stmtCfg.Name)
	}

	out := explainOutput{Name: stmtCfg.Name, Units: rc.Units}
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "yaml":
		b, err := yaml.Marshal(out)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case "text", "":
		for i, u := range rc.Units {
			if _, err := fmt.Fprintf(w, "%d\t%s\n", i, u.String()); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.Errorf("unknown output format %s", format)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		shardlog.Zero.Error().Err(err).Msg("")
		os.Exit(1)
	}
}
