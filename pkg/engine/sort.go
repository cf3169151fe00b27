package engine

import (
	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/router/rmeta"
)

// orderKey is one resolved ORDER BY item: where the value is, how it
// compares and where NULL goes.
type orderKey struct {
	index      int
	desc       bool
	nullsFirst bool
	op         Operator
}

func newOrderKeys(items []rmeta.OrderItem, columns []pgproto3.FieldDescription, dialect rmeta.Dialect) []orderKey {
	keys := make([]orderKey, 0, len(items))
	for _, it := range items {
		var oid uint32
		if it.Index >= 0 && it.Index < len(columns) {
			oid = columns[it.Index].DataTypeOID
		}
		keys = append(keys, orderKey{
			index:      it.Index,
			desc:       it.IsDesc(),
			nullsFirst: it.NullsFirst(dialect),
			op:         lookupOperator(oid),
		})
	}
	return keys
}

// compareValues returns the output order of two cells of one key.
func (k orderKey) compareValues(l, r any) (int, error) {
	switch {
	case l == nil && r == nil:
		return 0, nil
	case l == nil:
		if k.nullsFirst {
			return -1, nil
		}
		return 1, nil
	case r == nil:
		if k.nullsFirst {
			return 1, nil
		}
		return -1, nil
	}
	c, err := k.op.Compare(l, r)
	if err != nil {
		return 0, sherror.Newf(sherror.SHARD_DATA_INCONSISTENCY, "cannot order column %d: %s", k.index, err.Error())
	}
	if k.desc {
		c = -c
	}
	return c, nil
}

// compareRows orders two rows, each given as the values of keys in key
// order.
func compareRows(keys []orderKey, l, r []any) (int, error) {
	for i, k := range keys {
		c, err := k.compareValues(l[i], r[i])
		if err != nil || c != 0 {
			return c, err
		}
	}
	return 0, nil
}

func keyValues(keys []orderKey, row []any) []any {
	res := make([]any, len(keys))
	for i, k := range keys {
		if k.index >= 0 && k.index < len(row) {
			res[i] = row[k.index]
		}
	}
	return res
}

// sortableRows sorts memory rows by ORDER BY keys. The first comparison
// error is kept in err and leaves the order unspecified.
type sortableRows struct {
	keys []orderKey
	rows [][]any
	err  error
}

func (a *sortableRows) Len() int      { return len(a.rows) }
func (a *sortableRows) Swap(i, j int) { a.rows[i], a.rows[j] = a.rows[j], a.rows[i] }
func (a *sortableRows) Less(i, j int) bool {
	c, err := compareRows(a.keys, keyValues(a.keys, a.rows[i]), keyValues(a.keys, a.rows[j]))
	if err != nil && a.err == nil {
		a.err = err
	}
	return c < 0
}
