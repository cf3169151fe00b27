package engine

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/pg-sharding/shardcore/pkg/shardlog"
	"github.com/pg-sharding/shardcore/router/rmeta"
)

// MergeEngine builds merged results. cursors may be nil when the session
// declares no cursors.
type MergeEngine struct {
	cursors *CursorRegistry
}

func NewMergeEngine(cursors *CursorRegistry) *MergeEngine {
	return &MergeEngine{cursors: cursors}
}

// Merge combines the shard results of one statement, given in route unit
// order. It never closes the results.
func (e *MergeEngine) Merge(ctx context.Context, results []QueryResult, stmt *rmeta.StatementContext) (MergedResult, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "merge")
	defer span.Finish()

	res, err := e.build(results, stmt)
	if err != nil {
		span.SetTag("error", true)
		return nil, err
	}
	span.SetTag("kind", string(res.Kind()))

	shardlog.Zero.Debug().
		Str("kind", string(res.Kind())).
		Int("results", len(results)).
		Msg("merged result built")

	return res, nil
}

func (e *MergeEngine) build(results []QueryResult, stmt *rmeta.StatementContext) (MergedResult, error) {
	if stmt.Type == rmeta.FetchStatement && stmt.Cursor != nil {
		return NewFetchStreamMergedResult(results, stmt, e.cursors)
	}
	if len(results) == 1 {
		return NewTransparentMergedResult(results[0]), nil
	}
	if stmt.Type != rmeta.SelectStatement {
		return NewIteratorStreamMergedResult(results), nil
	}

	var res MergedResult
	var err error
	switch {
	case len(stmt.GroupBy) > 0 || stmt.HasAggregation():
		if stmt.SameGroupByAndOrderBy() {
			res, err = NewGroupByStreamMergedResult(results, stmt)
		} else {
			res, err = NewGroupByMemoryMergedResult(results, stmt)
		}
	case stmt.Distinct:
		res, err = NewGroupByMemoryMergedResult(results, stmt)
	case len(stmt.OrderBy) > 0:
		res, err = NewOrderByStreamMergedResult(results, stmt.OrderBy, stmt.Dialect)
	default:
		res = NewIteratorStreamMergedResult(results)
	}
	if err != nil {
		return nil, err
	}

	if stmt.Pagination != nil {
		return NewPaginationMergedResult(res, stmt.Pagination, stmt.Dialect, stmt.Params)
	}
	return res, nil
}
