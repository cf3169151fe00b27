package engine

import (
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/pg-sharding/shardcore/router/rmeta"
)

// cursorState is what one server side cursor keeps across FETCH
// statements: rows shards returned that were not emitted yet, how many
// rows each shard contributed, and the column labels fixed on first fetch.
type cursorState struct {
	buffers   [][][]any
	positions []int64
	columns   []pgproto3.FieldDescription
	labels    map[string]int
}

// CursorRegistry holds the cursors of one session. It is owned by the
// session and dropped with it.
type CursorRegistry struct {
	mu      sync.Mutex
	cursors map[string]*cursorState
}

func NewCursorRegistry() *CursorRegistry {
	return &CursorRegistry{cursors: map[string]*cursorState{}}
}

func cursorKey(name string) string {
	return strings.ToLower(name)
}

// Open registers a declared cursor. Reopening resets it.
func (r *CursorRegistry) Open(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursors[cursorKey(name)] = &cursorState{}
}

func (r *CursorRegistry) Close(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cursors, cursorKey(name))
}

func (r *CursorRegistry) get(name string) (*cursorState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cursors[cursorKey(name)]
	if !ok {
		return nil, sherror.Newf(sherror.SHARD_CURSOR_NOT_FOUND, "cursor \"%s\" does not exist", name)
	}
	return c, nil
}

// Positions returns how many rows of each shard the cursor has emitted.
func (r *CursorRegistry) Positions(name string) ([]int64, error) {
	c, err := r.get(name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), c.positions...), nil
}

// ColumnIndex resolves a column label of the cursor, case-insensitively.
func (r *CursorRegistry) ColumnIndex(name string, label string) (int, error) {
	c, err := r.get(name)
	if err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := c.labels[strings.ToLower(label)]
	if !ok {
		return 0, sherror.Newf(sherror.SHARD_COLUMN_INDEX_OUT_OF_RNG, "cursor \"%s\" has no column \"%s\"", name, label)
	}
	return i, nil
}

// FetchStreamMergedResult merges the answers shards gave to FETCH n on
// their side of a cursor. It emits at most n rows in cursor order; rows
// left over stay buffered in the cursor for the next FETCH.
type FetchStreamMergedResult struct {
	state   *cursorState
	sources [][][]any
	next    []int
	keys    []orderKey

	remaining int64
	all       bool
	finished  bool

	current []any
	wasNull bool
}

var _ MergedResult = &FetchStreamMergedResult{}

func NewFetchStreamMergedResult(results []QueryResult, stmt *rmeta.StatementContext, cursors *CursorRegistry) (*FetchStreamMergedResult, error) {
	if cursors == nil || stmt.Cursor == nil {
		return nil, sherror.New(sherror.SHARD_CURSOR_NOT_FOUND, "FETCH without a cursor")
	}
	state, err := cursors.get(stmt.Cursor.Name)
	if err != nil {
		return nil, err
	}

	cursors.mu.Lock()
	defer cursors.mu.Unlock()

	if state.labels == nil {
		state.columns = columnsOf(results)
		state.labels = map[string]int{}
		for i, c := range state.columns {
			l := strings.ToLower(string(c.Name))
			if _, ok := state.labels[l]; !ok {
				state.labels[l] = i
			}
		}
	}
	for len(state.buffers) < len(results) {
		state.buffers = append(state.buffers, nil)
		state.positions = append(state.positions, 0)
	}

	width := rowWidth(state.columns, stmt)
	sources := make([][][]any, len(results))
	for i, r := range results {
		sources[i] = state.buffers[i]
		state.buffers[i] = nil
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
			sources[i] = append(sources[i], row)
		}
	}

	return &FetchStreamMergedResult{
		state:     state,
		sources:   sources,
		next:      make([]int, len(sources)),
		keys:      newOrderKeys(stmt.OrderBy, state.columns, stmt.Dialect),
		remaining: stmt.Cursor.Count,
		all:       stmt.Cursor.All,
	}, nil
}

func (f *FetchStreamMergedResult) Kind() Kind {
	return KindFetch
}

func (f *FetchStreamMergedResult) Columns() []pgproto3.FieldDescription {
	return f.state.columns
}

// finish moves what was not emitted back into the cursor.
func (f *FetchStreamMergedResult) finish() {
	if f.finished {
		return
	}
	f.finished = true
	f.current = nil
	for i, rows := range f.sources {
		f.state.buffers[i] = append([][]any(nil), rows[f.next[i]:]...)
	}
}

func (f *FetchStreamMergedResult) Next() (bool, error) {
	if f.finished {
		return false, nil
	}
	if !f.all && f.remaining <= 0 {
		f.finish()
		return false, nil
	}

	pick := -1
	for i, rows := range f.sources {
		if f.next[i] >= len(rows) {
			continue
		}
		if pick < 0 {
			pick = i
			if len(f.keys) == 0 {
				break
			}
			continue
		}
		c, err := compareRows(f.keys, keyValues(f.keys, rows[f.next[i]]), keyValues(f.keys, f.sources[pick][f.next[pick]]))
		if err != nil {
			return false, err
		}
		if c < 0 {
			pick = i
		}
	}
	if pick < 0 {
		f.finish()
		return false, nil
	}

	f.current = f.sources[pick][f.next[pick]]
	f.next[pick]++
	f.state.positions[pick]++
	f.remaining--
	return true, nil
}

func (f *FetchStreamMergedResult) Value(col int, typ ValueType) (any, error) {
	return rowValue(f.current, col, typ, &f.wasNull)
}

// ValueByLabel reads a column by its label, case-insensitively.
func (f *FetchStreamMergedResult) ValueByLabel(label string, typ ValueType) (any, error) {
	i, ok := f.state.labels[strings.ToLower(label)]
	if !ok {
		return nil, sherror.Newf(sherror.SHARD_COLUMN_INDEX_OUT_OF_RNG, "no column \"%s\"", label)
	}
	return f.Value(i, typ)
}

func (f *FetchStreamMergedResult) WasNull() bool {
	return f.wasNull
}

// Close hands rows not emitted yet back to the cursor when the caller
// stops before the end.
func (f *FetchStreamMergedResult) Close() {
	f.finish()
}
