package engine

import (
	"container/heap"

	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/router/rmeta"
)

// orderByValue is a shard result positioned on its current row together
// with that row's order values.
type orderByValue struct {
	result QueryResult
	shard  int
	keys   []orderKey
	values []any
}

func (v *orderByValue) next() (bool, error) {
	ok, err := v.result.Next()
	if err != nil || !ok {
		return false, err
	}
	v.values = make([]any, len(v.keys))
	for i, k := range v.keys {
		val, err := v.result.Value(k.index)
		if err != nil {
			return false, err
		}
		v.values[i] = val
	}
	return true, nil
}

// orderByQueue is a min-heap of shard heads. Ties go to the lower shard so
// the merge is deterministic.
type orderByQueue struct {
	items []*orderByValue
	err   error
}

func (q *orderByQueue) Len() int { return len(q.items) }
func (q *orderByQueue) Less(i, j int) bool {
	c, err := compareRows(q.items[i].keys, q.items[i].values, q.items[j].values)
	if err != nil {
		if q.err == nil {
			q.err = err
		}
		return false
	}
	if c == 0 {
		return q.items[i].shard < q.items[j].shard
	}
	return c < 0
}
func (q *orderByQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *orderByQueue) Push(x any)    { q.items = append(q.items, x.(*orderByValue)) }
func (q *orderByQueue) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	q.items = old[:n-1]
	return it
}

// OrderByStreamMergedResult is a k-way merge of shard results that are
// each sorted by the same ORDER BY. It holds one row per shard.
type OrderByStreamMergedResult struct {
	columns []pgproto3.FieldDescription
	queue   *orderByQueue
	first   bool
	wasNull bool
}

var _ MergedResult = &OrderByStreamMergedResult{}

func NewOrderByStreamMergedResult(results []QueryResult, items []rmeta.OrderItem, dialect rmeta.Dialect) (*OrderByStreamMergedResult, error) {
	columns := columnsOf(results)
	keys := newOrderKeys(items, columns, dialect)

	q := &orderByQueue{}
	for i, r := range results {
		v := &orderByValue{result: r, shard: i, keys: keys}
		ok, err := v.next()
		if err != nil {
			return nil, err
		}
		if ok {
			q.items = append(q.items, v)
		}
	}
	heap.Init(q)
	if q.err != nil {
		return nil, q.err
	}
	return &OrderByStreamMergedResult{columns: columns, queue: q, first: true}, nil
}

func (o *OrderByStreamMergedResult) Kind() Kind {
	return KindOrderBy
}

func (o *OrderByStreamMergedResult) Columns() []pgproto3.FieldDescription {
	return o.columns
}

func (o *OrderByStreamMergedResult) Next() (bool, error) {
	if o.queue.Len() == 0 {
		return false, nil
	}
	if o.first {
		o.first = false
		return true, nil
	}

	top := o.queue.items[0]
	ok, err := top.next()
	if err != nil {
		return false, err
	}
	if ok {
		heap.Fix(o.queue, 0)
	} else {
		heap.Pop(o.queue)
	}
	if o.queue.err != nil {
		return false, o.queue.err
	}
	return o.queue.Len() > 0, nil
}

func (o *OrderByStreamMergedResult) current() (QueryResult, error) {
	if o.queue.Len() == 0 || o.first {
		return nil, sherror.New(sherror.SHARD_UNEXPECTED, "merged result is not positioned on a row")
	}
	return o.queue.items[0].result, nil
}

func (o *OrderByStreamMergedResult) Value(col int, typ ValueType) (any, error) {
	r, err := o.current()
	if err != nil {
		return nil, err
	}
	v, err := r.Value(col)
	if err != nil {
		return nil, err
	}
	res, err := convertValue(v, typ)
	if err != nil {
		return nil, err
	}
	o.wasNull = v == nil
	return res, nil
}

func (o *OrderByStreamMergedResult) WasNull() bool {
	return o.wasNull
}

// currentRow copies the row the merge is positioned on.
func (o *OrderByStreamMergedResult) currentRow(width int) ([]any, error) {
	r, err := o.current()
	if err != nil {
		return nil, err
	}
	return readRow(r, width)
}
