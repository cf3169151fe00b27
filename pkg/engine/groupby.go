package engine

import (
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/pkg/tupleslot"
	"github.com/pg-sharding/shardcore/router/rmeta"
)

// rowWidth is the number of cells a shard row has. Without column
// descriptions it is derived from the highest referenced index.
func rowWidth(columns []pgproto3.FieldDescription, stmt *rmeta.StatementContext) int {
	if len(columns) > 0 {
		return len(columns)
	}
	w := 0
	grow := func(i int) {
		if i+1 > w {
			w = i + 1
		}
	}
	for _, p := range stmt.Projections {
		grow(p.Index)
		if p.Avg != nil {
			grow(p.Avg.CountIndex)
			grow(p.Avg.SumIndex)
		}
	}
	for _, it := range stmt.GroupBy {
		grow(it.Index)
	}
	for _, it := range stmt.OrderBy {
		grow(it.Index)
	}
	return w
}

func groupKey(row []any, items []rmeta.OrderItem) string {
	var b strings.Builder
	for _, it := range items {
		v := cell(row, it.Index)
		if v == nil {
			b.WriteString("\x00N")
			continue
		}
		b.WriteString("\x00V")
		b.WriteString(datum.ToString(v))
	}
	return b.String()
}

// aggregator applies the aggregation projections of a statement to rows
// of one group.
type aggregator struct {
	projections []rmeta.Projection
}

func newAggregator(stmt *rmeta.StatementContext) (aggregator, error) {
	var a aggregator
	for _, p := range stmt.Projections {
		if !p.IsAggregation() {
			continue
		}
		if _, err := newAggregationUnit(p); err != nil {
			return aggregator{}, err
		}
		a.projections = append(a.projections, p)
	}
	return a, nil
}

func (a aggregator) newUnits() []aggregationUnit {
	units := make([]aggregationUnit, 0, len(a.projections))
	for _, p := range a.projections {
		u, _ := newAggregationUnit(p)
		units = append(units, u)
	}
	return units
}

func (a aggregator) fold(units []aggregationUnit, row []any) error {
	for i, p := range a.projections {
		if err := units[i].merge(unitInput(p, row)); err != nil {
			return err
		}
	}
	return nil
}

// finish writes the merged aggregates into row, the derived AVG parts
// included.
func (a aggregator) finish(units []aggregationUnit, row []any) {
	set := func(i int, v any) {
		if i >= 0 && i < len(row) {
			row[i] = v
		}
	}
	for i, p := range a.projections {
		set(p.Index, units[i].result())
		if avg, ok := units[i].(*avgUnit); ok && p.Avg != nil {
			set(p.Avg.CountIndex, integral(avg.count))
			set(p.Avg.SumIndex, integral(avg.sum))
		}
	}
}

// memoryMergedResult serves rows merged in memory from a tuple slot.
type memoryMergedResult struct {
	kind    Kind
	slot    *tupleslot.TupleTableSlot
	current []any
	rewound bool
	wasNull bool
}

func newMemoryMergedResult(kind Kind, columns []pgproto3.FieldDescription, rows [][]any) memoryMergedResult {
	return memoryMergedResult{kind: kind, slot: &tupleslot.TupleTableSlot{Desc: columns, Raw: rows}}
}

func (m *memoryMergedResult) Kind() Kind {
	return m.kind
}

func (m *memoryMergedResult) Columns() []pgproto3.FieldDescription {
	return m.slot.Columns()
}

func (m *memoryMergedResult) Next() (bool, error) {
	ok, err := m.slot.Next()
	if err != nil || !ok {
		m.current = nil
		return false, err
	}
	m.current = m.slot.Row()
	return true, nil
}

func (m *memoryMergedResult) Value(col int, typ ValueType) (any, error) {
	return rowValue(m.current, col, typ, &m.wasNull)
}

func (m *memoryMergedResult) WasNull() bool {
	return m.wasNull
}

// Rewind restarts iteration from the first row. It is allowed once.
func (m *memoryMergedResult) Rewind() error {
	if m.rewound {
		return sherror.New(sherror.SHARD_UNSUPPORTED_FEATURE, "merged result can be rewound only once")
	}
	m.rewound = true
	m.slot.Rewind()
	m.current = nil
	return nil
}

func rowValue(row []any, col int, typ ValueType, wasNull *bool) (any, error) {
	if row == nil {
		return nil, sherror.New(sherror.SHARD_UNEXPECTED, "merged result is not positioned on a row")
	}
	if err := checkColumn(col, len(row)); err != nil {
		return nil, err
	}
	res, err := convertValue(row[col], typ)
	if err != nil {
		return nil, err
	}
	*wasNull = row[col] == nil
	return res, nil
}

type group struct {
	row   []any
	units []aggregationUnit
}

// GroupByMemoryMergedResult reads every shard row, folds rows of equal
// group key and then serves the groups in ORDER BY order, or in the order
// groups were first seen. DISTINCT without GROUP BY groups by every
// column.
type GroupByMemoryMergedResult struct {
	memoryMergedResult
}

var _ MergedResult = &GroupByMemoryMergedResult{}
var _ Rewinder = &GroupByMemoryMergedResult{}

func NewGroupByMemoryMergedResult(results []QueryResult, stmt *rmeta.StatementContext) (*GroupByMemoryMergedResult, error) {
	columns := columnsOf(results)
	width := rowWidth(columns, stmt)

	items := stmt.GroupBy
	if len(items) == 0 && stmt.Distinct && !stmt.HasAggregation() {
		items = make([]rmeta.OrderItem, width)
		for i := range items {
			items[i] = rmeta.OrderItem{Index: i}
		}
	}

	agg, err := newAggregator(stmt)
	if err != nil {
		return nil, err
	}

	groups := map[string]*group{}
	var order []*group
	for _, r := range results {
		for {
			ok, err := r.Next()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			row, err := readRow(r, width)
			if err != nil {
				return nil, err
			}
			k := groupKey(row, items)
			g, ok := groups[k]
			if !ok {
				g = &group{row: row, units: agg.newUnits()}
				groups[k] = g
				order = append(order, g)
			}
			if err := agg.fold(g.units, row); err != nil {
				return nil, err
			}
		}
	}

	rows := make([][]any, 0, len(order))
	for _, g := range order {
		agg.finish(g.units, g.row)
		rows = append(rows, g.row)
	}

	if len(rows) == 0 && len(stmt.GroupBy) == 0 && stmt.HasAggregation() {
		row := make([]any, width)
		agg.finish(agg.newUnits(), row)
		rows = append(rows, row)
	}

	if len(stmt.OrderBy) > 0 {
		s := &sortableRows{keys: newOrderKeys(stmt.OrderBy, columns, stmt.Dialect), rows: rows}
		sort.Stable(s)
		if s.err != nil {
			return nil, s.err
		}
	}

	return &GroupByMemoryMergedResult{newMemoryMergedResult(KindGroupByMemory, columns, rows)}, nil
}

// GroupByStreamMergedResult aggregates shard results already sorted by
// the group key: a group ends where the merged stream changes key.
type GroupByStreamMergedResult struct {
	stream  *OrderByStreamMergedResult
	width   int
	items   []rmeta.OrderItem
	agg     aggregator
	started bool
	hasNext bool
	current []any
	wasNull bool
}

var _ MergedResult = &GroupByStreamMergedResult{}

func NewGroupByStreamMergedResult(results []QueryResult, stmt *rmeta.StatementContext) (*GroupByStreamMergedResult, error) {
	agg, err := newAggregator(stmt)
	if err != nil {
		return nil, err
	}
	stream, err := NewOrderByStreamMergedResult(results, stmt.OrderBy, stmt.Dialect)
	if err != nil {
		return nil, err
	}
	return &GroupByStreamMergedResult{
		stream: stream,
		width:  rowWidth(stream.Columns(), stmt),
		items:  stmt.GroupBy,
		agg:    agg,
	}, nil
}

func (g *GroupByStreamMergedResult) Kind() Kind {
	return KindGroupByStream
}

func (g *GroupByStreamMergedResult) Columns() []pgproto3.FieldDescription {
	return g.stream.Columns()
}

func (g *GroupByStreamMergedResult) Next() (bool, error) {
	if !g.started {
		g.started = true
		ok, err := g.stream.Next()
		if err != nil {
			return false, err
		}
		g.hasNext = ok
	}
	if !g.hasNext {
		g.current = nil
		return false, nil
	}

	row, err := g.stream.currentRow(g.width)
	if err != nil {
		return false, err
	}
	key := groupKey(row, g.items)
	units := g.agg.newUnits()
	if err := g.agg.fold(units, row); err != nil {
		return false, err
	}

	for {
		ok, err := g.stream.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			g.hasNext = false
			break
		}
		next, err := g.stream.currentRow(g.width)
		if err != nil {
			return false, err
		}
		if groupKey(next, g.items) != key {
			break
		}
		if err := g.agg.fold(units, next); err != nil {
			return false, err
		}
	}

	g.agg.finish(units, row)
	g.current = row
	return true, nil
}

func (g *GroupByStreamMergedResult) Value(col int, typ ValueType) (any, error) {
	return rowValue(g.current, col, typ, &g.wasNull)
}

func (g *GroupByStreamMergedResult) WasNull() bool {
	return g.wasNull
}
