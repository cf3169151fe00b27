// Package executor fans a routed statement out to its route units and
// adapts driver row sets to the merge engine's QueryResult.
package executor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pg-sharding/shardcore/pkg/engine"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/pkg/shardlog"
	"github.com/pg-sharding/shardcore/router/route"
)

// UnitFunc runs the statement on one route unit.
type UnitFunc func(ctx context.Context, unit route.Unit) (engine.QueryResult, error)

// Dispatch calls fn for every unit of rc, at most limit at a time (no limit
// when limit <= 0). Results come back in route unit order so the merge
// engine sees shards in a stable order. On the first error every result
// already opened is closed.
func Dispatch(ctx context.Context, rc *route.Context, limit int, fn UnitFunc) ([]engine.QueryResult, error) {
	if rc == nil || rc.IsEmpty() {
		return nil, nil
	}

	res := make([]engine.QueryResult, len(rc.Units))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, unit := range rc.Units {
		g.Go(func() error {
			r, err := fn(gctx, unit)
			if err != nil {
				return err
			}
			if r == nil {
				return sherror.Newf(sherror.SHARD_UNEXPECTED, "no result from data source %s", unit.DataSource.ActualName)
			}
			res[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, r := range res {
			if r == nil {
				continue
			}
			if cerr := r.Close(); cerr != nil {
				shardlog.Zero.Debug().Err(cerr).Msg("failed to close shard result after dispatch error")
			}
		}
		return nil, err
	}
	return res, nil
}
