// Package qrouter turns a bound statement into the ordered set of route
// units it must be dispatched to.
package qrouter

import (
	"context"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/pkg/models/shrule"
	"github.com/pg-sharding/shardcore/pkg/shardlog"
	"github.com/pg-sharding/shardcore/router/rmeta"
	"github.com/pg-sharding/shardcore/router/route"
	"github.com/pg-sharding/shardcore/router/statistics"
)

type QueryRouter interface {
	Route(ctx context.Context, stmt *rmeta.StatementContext) (*route.Context, error)
	Rule() *shrule.ShardingRule
}

// Router is safe for concurrent use: the rule is read-only and every call
// builds its own route context.
type Router struct {
	rule  *shrule.ShardingRule
	stats *statistics.RouteStatistics
}

var _ QueryRouter = &Router{}

// NewRouter creates a router over rule. stats may be nil.
func NewRouter(rule *shrule.ShardingRule, stats *statistics.RouteStatistics) *Router {
	return &Router{rule: rule, stats: stats}
}

func (r *Router) Rule() *shrule.ShardingRule {
	return r.rule
}

// Route routes the statement. No partial context is returned on error.
func (r *Router) Route(ctx context.Context, stmt *rmeta.StatementContext) (*route.Context, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "route")
	defer span.Finish()

	start := time.Now()

	engine, err := NewRouteEngine(r.rule, stmt)
	if err != nil {
		span.SetTag("error", true)
		r.stats.RecordFailure()
		return nil, err
	}
	span.SetTag("engine", string(engine.Type()))

	rc, err := engine.Route()
	if err != nil {
		span.SetTag("error", true)
		r.stats.RecordFailure()
		return nil, err
	}

	r.stats.RecordRoute(string(engine.Type()), time.Since(start), len(rc.Units))

	shardlog.Zero.Debug().
		Str("engine", string(engine.Type())).
		Int("units", len(rc.Units)).
		Str("route", rc.String()).
		Msg("statement routed")

	return rc, nil
}

// GenerateKeys fills stmt.Insert.GeneratedKeys, one key per inserted row,
// when the statement inserts into a table with a generated key column the
// statement does not supply. Routing then treats the keys as values of
// that column.
func GenerateKeys(rule *shrule.ShardingRule, stmt *rmeta.StatementContext) error {
	if stmt.Type != rmeta.InsertStatement || stmt.Insert == nil || len(stmt.Tables) == 0 {
		return nil
	}
	tr, ok := rule.FindTableRule(stmt.Tables[0].Name)
	if !ok || tr.GenerateKeyColumn == "" || tr.KeyGenerator == nil {
		return nil
	}
	for _, c := range stmt.Insert.Columns {
		if strings.EqualFold(c, tr.GenerateKeyColumn) {
			return nil
		}
	}

	rows := stmt.Insert.RowCount
	if rows < 1 {
		rows = 1
	}
	keys := make([]any, 0, rows)
	for i := 0; i < rows; i++ {
		k, err := tr.KeyGenerator.Generate()
		if err != nil {
			return sherror.Newf(sherror.SHARD_KEY_GENERATION_FAILURE, "generate %s.%s: %s", tr.LogicTable, tr.GenerateKeyColumn, err.Error())
		}
		keys = append(keys, k)
	}
	stmt.Insert.GeneratedKeys = keys
	return nil
}
