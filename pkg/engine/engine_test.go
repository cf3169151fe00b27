package engine_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/pg-sharding/shardcore/pkg/engine"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/pkg/tupleslot"
	"github.com/pg-sharding/shardcore/router/rmeta"
)

func slot(desc []pgproto3.FieldDescription, rows ...[]any) *tupleslot.TupleTableSlot {
	s := &tupleslot.TupleTableSlot{Desc: desc}
	for _, r := range rows {
		s.WriteDataRow(r...)
	}
	return s
}

func ints(desc []pgproto3.FieldDescription, vals ...int64) *tupleslot.TupleTableSlot {
	s := &tupleslot.TupleTableSlot{Desc: desc}
	for _, v := range vals {
		s.WriteDataRow(v)
	}
	return s
}

func results(slots ...*tupleslot.TupleTableSlot) []engine.QueryResult {
	res := make([]engine.QueryResult, 0, len(slots))
	for _, s := range slots {
		res = append(res, s)
	}
	return res
}

// drain reads column col of every merged row.
func drain(t *testing.T, res engine.MergedResult, col int) []any {
	t.Helper()
	var out []any
	for {
		ok, err := res.Next()
		assert.NoError(t, err)
		if !ok {
			return out
		}
		v, err := res.Value(col, engine.TypeAny)
		assert.NoError(t, err)
		out = append(out, v)
	}
}

func seq(from, to int64) []any {
	var res []any
	for i := from; i <= to; i++ {
		res = append(res, i)
	}
	return res
}

var orderIDs = []pgproto3.FieldDescription{engine.IntOidFD("order_id")}

func TestOrderByMerge(t *testing.T) {
	assert := assert.New(t)

	stmt := &rmeta.StatementContext{
		Type:    rmeta.SelectStatement,
		OrderBy: []rmeta.OrderItem{{Column: "order_id", Index: 0}},
	}
	res, err := engine.NewMergeEngine(nil).Merge(context.Background(), results(
		ints(orderIDs, 1, 4, 7),
		ints(orderIDs, 2, 5, 8),
		ints(orderIDs, 3, 6, 9),
	), stmt)
	assert.NoError(err)
	assert.Equal(engine.KindOrderBy, res.Kind())
	assert.Equal(seq(1, 9), drain(t, res, 0))

	stmt.OrderBy[0].Direction = rmeta.Desc
	res, err = engine.NewMergeEngine(nil).Merge(context.Background(), results(
		ints(orderIDs, 7, 4, 1),
		ints(orderIDs),
		ints(orderIDs, 9, 6, 3),
	), stmt)
	assert.NoError(err)
	assert.Equal([]any{int64(9), int64(7), int64(6), int64(4), int64(3), int64(1)}, drain(t, res, 0))
}

func TestOrderByTiesKeepShardOrder(t *testing.T) {
	assert := assert.New(t)

	desc := []pgproto3.FieldDescription{engine.IntOidFD("k"), engine.TextOidFD("src")}
	res, err := engine.NewOrderByStreamMergedResult(results(
		slot(desc, []any{int64(1), "a"}, []any{int64(2), "a"}),
		slot(desc, []any{int64(1), "b"}, []any{int64(2), "b"}),
	), []rmeta.OrderItem{{Index: 0}}, rmeta.PostgreSQL)
	assert.NoError(err)
	assert.Equal([]any{"a", "b", "a", "b"}, drain(t, res, 1))
}

func TestNullOrdering(t *testing.T) {
	desc := []pgproto3.FieldDescription{engine.IntOidFD("v")}

	type tcase struct {
		name    string
		dialect rmeta.Dialect
		item    rmeta.OrderItem
		exp     []any
	}

	for _, tt := range []tcase{
		{
			name:    "postgresql asc puts nulls last",
			dialect: rmeta.PostgreSQL,
			item:    rmeta.OrderItem{Index: 0},
			exp:     []any{int64(1), int64(2), nil},
		},
		{
			name:    "mysql asc puts nulls first",
			dialect: rmeta.MySQL,
			item:    rmeta.OrderItem{Index: 0},
			exp:     []any{nil, int64(1), int64(2)},
		},
		{
			name:    "explicit nulls first",
			dialect: rmeta.PostgreSQL,
			item:    rmeta.OrderItem{Index: 0, NullOrder: rmeta.NullsFirst},
			exp:     []any{nil, int64(1), int64(2)},
		},
		{
			name:    "postgresql desc puts nulls first",
			dialect: rmeta.PostgreSQL,
			item:    rmeta.OrderItem{Index: 0, Direction: rmeta.Desc},
			exp:     []any{nil, int64(2), int64(1)},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			first, second := []any{int64(1)}, []any{int64(2)}
			if tt.item.IsDesc() {
				first, second = second, first
			}
			shard0 := slot(desc, first)
			shard1 := slot(desc, second)
			if tt.item.NullsFirst(tt.dialect) {
				shard1 = slot(desc, []any{nil}, second)
			} else {
				shard1.WriteDataRow(nil)
			}

			res, err := engine.NewOrderByStreamMergedResult(results(shard0, shard1), []rmeta.OrderItem{tt.item}, tt.dialect)
			assert.NoError(t, err)
			assert.Equal(t, tt.exp, drain(t, res, 0))
		})
	}
}

func TestPagination(t *testing.T) {
	type tcase struct {
		name       string
		dialect    rmeta.Dialect
		pagination *rmeta.Pagination
		params     []any
		kind       engine.Kind
		exp        []any
	}

	for _, tt := range []tcase{
		{
			name:    "limit offset",
			dialect: rmeta.PostgreSQL,
			pagination: &rmeta.Pagination{
				Offset:   &rmeta.PaginationValue{Value: rmeta.Lit(3)},
				RowCount: &rmeta.PaginationValue{Value: rmeta.Lit(5)},
			},
			kind: engine.KindLimit,
			exp:  seq(4, 8),
		},
		{
			name:    "limit from parameters",
			dialect: rmeta.MySQL,
			pagination: &rmeta.Pagination{
				Offset:   &rmeta.PaginationValue{Value: rmeta.Param(0)},
				RowCount: &rmeta.PaginationValue{Value: rmeta.Param(1)},
			},
			params: []any{int64(18), int64(10)},
			kind:   engine.KindLimit,
			exp:    seq(19, 20),
		},
		{
			name:    "offset past the end",
			dialect: rmeta.PostgreSQL,
			pagination: &rmeta.Pagination{
				Offset: &rmeta.PaginationValue{Value: rmeta.Lit(30)},
			},
			kind: engine.KindLimit,
		},
		{
			name:    "max row count drops the cap",
			dialect: rmeta.PostgreSQL,
			pagination: &rmeta.Pagination{
				Offset:      &rmeta.PaginationValue{Value: rmeta.Lit(15)},
				RowCount:    &rmeta.PaginationValue{Value: rmeta.Lit(2)},
				MaxRowCount: true,
			},
			kind: engine.KindLimit,
			exp:  seq(16, 20),
		},
		{
			name:    "rownum with inclusive upper bound",
			dialect: rmeta.Oracle,
			pagination: &rmeta.Pagination{
				Offset:   &rmeta.PaginationValue{Value: rmeta.Lit(2)},
				RowCount: &rmeta.PaginationValue{Value: rmeta.Lit(5), Inclusive: true},
			},
			kind: engine.KindRowNumber,
			exp:  seq(3, 5),
		},
		{
			name:    "rownum with exclusive upper bound",
			dialect: rmeta.Oracle,
			pagination: &rmeta.Pagination{
				Offset:   &rmeta.PaginationValue{Value: rmeta.Lit(2)},
				RowCount: &rmeta.PaginationValue{Value: rmeta.Lit(5)},
			},
			kind: engine.KindRowNumber,
			exp:  seq(3, 4),
		},
		{
			name:    "rownum with inclusive lower bound",
			dialect: rmeta.Oracle,
			pagination: &rmeta.Pagination{
				Offset:   &rmeta.PaginationValue{Value: rmeta.Lit(2), Inclusive: true},
				RowCount: &rmeta.PaginationValue{Value: rmeta.Lit(4), Inclusive: true},
			},
			kind: engine.KindRowNumber,
			exp:  seq(2, 4),
		},
		{
			name:    "top and row number",
			dialect: rmeta.SQLServer,
			pagination: &rmeta.Pagination{
				Offset:   &rmeta.PaginationValue{Value: rmeta.Lit(2)},
				RowCount: &rmeta.PaginationValue{Value: rmeta.Lit(5)},
			},
			kind: engine.KindTopAndRowNumber,
			exp:  seq(3, 5),
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			var a, b []int64
			for i := int64(1); i <= 20; i++ {
				if i%2 == 0 {
					a = append(a, i)
				} else {
					b = append(b, i)
				}
			}
			stmt := &rmeta.StatementContext{
				Type:       rmeta.SelectStatement,
				Dialect:    tt.dialect,
				OrderBy:    []rmeta.OrderItem{{Index: 0}},
				Pagination: tt.pagination,
				Params:     tt.params,
			}
			res, err := engine.NewMergeEngine(nil).Merge(context.Background(), results(ints(orderIDs, a...), ints(orderIDs, b...)), stmt)
			assert.NoError(err)
			assert.Equal(tt.kind, res.Kind())
			assert.Equal(tt.exp, drain(t, res, 0))
		})
	}
}

func TestPaginationUnboundParameter(t *testing.T) {
	stmt := &rmeta.StatementContext{
		Type:       rmeta.SelectStatement,
		Pagination: &rmeta.Pagination{RowCount: &rmeta.PaginationValue{Value: rmeta.Param(3)}},
	}
	_, err := engine.NewMergeEngine(nil).Merge(context.Background(), results(ints(orderIDs, 1), ints(orderIDs, 2)), stmt)
	assert.True(t, sherror.HasCode(err, sherror.SHARD_PAGINATION_ERROR))
}

func TestGroupByStream(t *testing.T) {
	assert := assert.New(t)

	desc := []pgproto3.FieldDescription{engine.IntOidFD("user_id"), engine.IntOidFD("cnt"), engine.IntOidFD("max_id")}
	stmt := &rmeta.StatementContext{
		Type: rmeta.SelectStatement,
		Projections: []rmeta.Projection{
			{Label: "user_id", Index: 0},
			{Label: "cnt", Index: 1, Aggregation: rmeta.AggregationCount},
			{Label: "max_id", Index: 2, Aggregation: rmeta.AggregationMax},
		},
		GroupBy: []rmeta.OrderItem{{Index: 0}},
		OrderBy: []rmeta.OrderItem{{Index: 0}},
	}
	res, err := engine.NewMergeEngine(nil).Merge(context.Background(), results(
		slot(desc, []any{int64(1), int64(2), int64(10)}, []any{int64(3), int64(1), int64(30)}),
		slot(desc, []any{int64(1), int64(4), int64(11)}, []any{int64(2), int64(5), int64(20)}),
	), stmt)
	assert.NoError(err)
	assert.Equal(engine.KindGroupByStream, res.Kind())

	var rows [][]any
	for {
		ok, err := res.Next()
		assert.NoError(err)
		if !ok {
			break
		}
		row := make([]any, 3)
		for i := range row {
			row[i], err = res.Value(i, engine.TypeInt64)
			assert.NoError(err)
		}
		rows = append(rows, row)
	}
	assert.Equal([][]any{
		{int64(1), int64(6), int64(11)},
		{int64(2), int64(5), int64(20)},
		{int64(3), int64(1), int64(30)},
	}, rows)
}

func TestGroupByMemory(t *testing.T) {
	assert := assert.New(t)

	desc := []pgproto3.FieldDescription{engine.IntOidFD("user_id"), engine.IntOidFD("total")}
	stmt := &rmeta.StatementContext{
		Type: rmeta.SelectStatement,
		Projections: []rmeta.Projection{
			{Label: "user_id", Index: 0},
			{Label: "total", Index: 1, Aggregation: rmeta.AggregationSum},
		},
		GroupBy: []rmeta.OrderItem{{Index: 0}},
		OrderBy: []rmeta.OrderItem{{Index: 1, Direction: rmeta.Desc}},
	}
	res, err := engine.NewMergeEngine(nil).Merge(context.Background(), results(
		slot(desc, []any{int64(1), int64(2)}, []any{int64(3), int64(7)}),
		slot(desc, []any{int64(1), int64(4)}, []any{int64(2), int64(5)}),
	), stmt)
	assert.NoError(err)
	assert.Equal(engine.KindGroupByMemory, res.Kind())
	assert.Equal([]any{int64(3), int64(1), int64(2)}, drain(t, res, 0))

	rw, ok := res.(engine.Rewinder)
	assert.True(ok)
	assert.NoError(rw.Rewind())

	ok, err = res.Next()
	assert.NoError(err)
	assert.True(ok)
	v, err := res.Value(1, engine.TypeInt64)
	assert.NoError(err)
	assert.Equal(int64(7), v)

	_, err = res.Value(2, engine.TypeAny)
	assert.True(sherror.HasCode(err, sherror.SHARD_COLUMN_INDEX_OUT_OF_RNG))

	assert.True(sherror.HasCode(rw.Rewind(), sherror.SHARD_UNSUPPORTED_FEATURE))
}

func TestAggregationWithoutRows(t *testing.T) {
	assert := assert.New(t)

	desc := []pgproto3.FieldDescription{engine.IntOidFD("cnt"), engine.IntOidFD("total")}
	stmt := &rmeta.StatementContext{
		Type: rmeta.SelectStatement,
		Projections: []rmeta.Projection{
			{Label: "cnt", Index: 0, Aggregation: rmeta.AggregationCount},
			{Label: "total", Index: 1, Aggregation: rmeta.AggregationSum},
		},
	}
	res, err := engine.NewMergeEngine(nil).Merge(context.Background(), results(slot(desc), slot(desc)), stmt)
	assert.NoError(err)

	ok, err := res.Next()
	assert.NoError(err)
	assert.True(ok)

	v, err := res.Value(0, engine.TypeInt64)
	assert.NoError(err)
	assert.Equal(int64(0), v)
	assert.False(res.WasNull())

	v, err = res.Value(1, engine.TypeInt64)
	assert.NoError(err)
	assert.Nil(v)
	assert.True(res.WasNull())

	ok, err = res.Next()
	assert.NoError(err)
	assert.False(ok)
}

func TestAvgAggregation(t *testing.T) {
	assert := assert.New(t)

	desc := []pgproto3.FieldDescription{
		engine.NumericOidFD("avg_amount"),
		engine.IntOidFD("AVG_DERIVED_COUNT_0"),
		engine.IntOidFD("AVG_DERIVED_SUM_0"),
	}
	stmt := &rmeta.StatementContext{
		Type: rmeta.SelectStatement,
		Projections: []rmeta.Projection{
			{
				Label: "avg_amount", Index: 0, Aggregation: rmeta.AggregationAvg,
				Avg: &rmeta.AvgDerived{CountIndex: 1, SumIndex: 2},
			},
		},
	}
	res, err := engine.NewMergeEngine(nil).Merge(context.Background(), results(
		slot(desc, []any{decimal.NewFromInt(5), int64(2), int64(10)}),
		slot(desc, []any{decimal.NewFromInt(7), int64(1), int64(7)}),
	), stmt)
	assert.NoError(err)

	ok, err := res.Next()
	assert.NoError(err)
	assert.True(ok)

	v, err := res.Value(0, engine.TypeDecimal)
	assert.NoError(err)
	avg, ok := v.(decimal.Decimal)
	assert.True(ok)
	assert.True(decimal.NewFromInt(17).Div(decimal.NewFromInt(3)).Equal(avg), avg.String())

	cnt, err := res.Value(1, engine.TypeInt64)
	assert.NoError(err)
	assert.Equal(int64(3), cnt)
	sum, err := res.Value(2, engine.TypeInt64)
	assert.NoError(err)
	assert.Equal(int64(17), sum)
}

func TestDistinct(t *testing.T) {
	assert := assert.New(t)

	desc := []pgproto3.FieldDescription{engine.IntOidFD("user_id")}
	stmt := &rmeta.StatementContext{
		Type:     rmeta.SelectStatement,
		Distinct: true,
	}
	res, err := engine.NewMergeEngine(nil).Merge(context.Background(), results(
		ints(desc, 1, 2),
		ints(desc, 2, 3),
	), stmt)
	assert.NoError(err)
	assert.Equal(engine.KindGroupByMemory, res.Kind())
	assert.Equal(seq(1, 3), drain(t, res, 0))

	stmt = &rmeta.StatementContext{
		Type: rmeta.SelectStatement,
		Projections: []rmeta.Projection{
			{Label: "cnt", Index: 0, Aggregation: rmeta.AggregationCount, Distinct: true},
		},
	}
	res, err = engine.NewMergeEngine(nil).Merge(context.Background(), results(
		ints(desc, 1, 2),
		ints(desc, 2, 3),
	), stmt)
	assert.NoError(err)
	assert.Equal([]any{int64(3)}, drain(t, res, 0))
}

func TestTransparentAndIterator(t *testing.T) {
	assert := assert.New(t)
	me := engine.NewMergeEngine(nil)

	stmt := &rmeta.StatementContext{
		Type:    rmeta.SelectStatement,
		OrderBy: []rmeta.OrderItem{{Index: 0}},
	}
	res, err := me.Merge(context.Background(), results(ints(orderIDs, 3, 1, 2)), stmt)
	assert.NoError(err)
	assert.Equal(engine.KindTransparent, res.Kind())
	assert.Equal([]any{int64(3), int64(1), int64(2)}, drain(t, res, 0))

	res, err = me.Merge(context.Background(), results(ints(orderIDs, 3, 1), ints(orderIDs), ints(orderIDs, 2)), &rmeta.StatementContext{Type: rmeta.SelectStatement})
	assert.NoError(err)
	assert.Equal(engine.KindIterator, res.Kind())
	assert.Equal(orderIDs, res.Columns())
	assert.Equal([]any{int64(3), int64(1), int64(2)}, drain(t, res, 0))

	res, err = me.Merge(context.Background(), results(ints(orderIDs, 1), ints(orderIDs, 2)), &rmeta.StatementContext{
		Type:    rmeta.UpdateStatement,
		OrderBy: []rmeta.OrderItem{{Index: 0, Direction: rmeta.Desc}},
	})
	assert.NoError(err)
	assert.Equal(engine.KindIterator, res.Kind())
}

func TestValueTypes(t *testing.T) {
	assert := assert.New(t)

	desc := []pgproto3.FieldDescription{engine.TextOidFD("amount")}
	res := engine.NewTransparentMergedResult(slot(desc, []any{"42"}))
	ok, err := res.Next()
	assert.NoError(err)
	assert.True(ok)

	for _, typ := range []engine.ValueType{
		engine.TypeBinaryStream,
		engine.TypeCharacterStream,
		engine.TypeBlob,
		engine.TypeClob,
		engine.TypeSQLXML,
	} {
		_, err := res.Value(0, typ)
		assert.True(sherror.HasCode(err, sherror.SHARD_UNSUPPORTED_FEATURE), typ.String())
	}

	v, err := res.Value(0, engine.TypeInt64)
	assert.NoError(err)
	assert.Equal(int64(42), v)

	v, err = res.Value(0, engine.TypeBytes)
	assert.NoError(err)
	assert.Equal([]byte("42"), v)

	_, err = res.Value(0, engine.TypeTime)
	assert.True(sherror.HasCode(err, sherror.SHARD_DATA_INCONSISTENCY))
}
