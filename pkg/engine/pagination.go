package engine

import (
	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/pg-sharding/shardcore/router/rmeta"
)

// PaginationMergedResult skips the offset of an already merged stream and
// caps what follows. Shards are asked for offset+count rows, so the skip
// happens here and only once.
//
// The cap is a row count for LIMIT. For ROWNUM and TOP it is an absolute
// upper row number, exclusive unless the bound is inclusive.
type PaginationMergedResult struct {
	inner MergedResult
	kind  Kind

	offset    int64
	rowCount  int64
	capped    bool
	inclusive bool

	skipped bool
	skipAll bool
	// rowNumber counts emitted rows for LIMIT and is the number of the
	// next row for ROWNUM and TOP.
	rowNumber int64
}

var _ MergedResult = &PaginationMergedResult{}

// NewPaginationMergedResult picks the decorator of the dialect: LIMIT for
// MySQL and PostgreSQL, ROWNUM for Oracle, TOP with ROW_NUMBER for
// SQL Server.
func NewPaginationMergedResult(inner MergedResult, p *rmeta.Pagination, dialect rmeta.Dialect, params []any) (*PaginationMergedResult, error) {
	offset, err := p.ActualOffset(params)
	if err != nil {
		return nil, err
	}
	rowCount, capped, err := p.ActualRowCount(params)
	if err != nil {
		return nil, err
	}

	res := &PaginationMergedResult{
		inner:    inner,
		kind:     KindLimit,
		offset:   offset,
		rowCount: rowCount,
		capped:   capped,
	}
	switch dialect {
	case rmeta.Oracle:
		res.kind = KindRowNumber
		res.inclusive = p.RowCount != nil && p.RowCount.Inclusive
	case rmeta.SQLServer:
		res.kind = KindTopAndRowNumber
		res.inclusive = true
	}
	return res, nil
}

func (l *PaginationMergedResult) Kind() Kind {
	return l.kind
}

func (l *PaginationMergedResult) Columns() []pgproto3.FieldDescription {
	return l.inner.Columns()
}

func (l *PaginationMergedResult) skip() error {
	l.skipped = true
	for i := int64(0); i < l.offset; i++ {
		ok, err := l.inner.Next()
		if err != nil {
			return err
		}
		if !ok {
			l.skipAll = true
			return nil
		}
	}
	if l.kind != KindLimit {
		l.rowNumber = l.offset + 1
	}
	return nil
}

func (l *PaginationMergedResult) Next() (bool, error) {
	if !l.skipped {
		if err := l.skip(); err != nil {
			return false, err
		}
	}
	if l.skipAll {
		return false, nil
	}
	if !l.capped {
		return l.inner.Next()
	}

	var within bool
	switch {
	case l.kind == KindLimit:
		within = l.rowNumber < l.rowCount
	case l.inclusive:
		within = l.rowNumber <= l.rowCount
	default:
		within = l.rowNumber < l.rowCount
	}
	if !within {
		return false, nil
	}
	l.rowNumber++
	return l.inner.Next()
}

func (l *PaginationMergedResult) Value(col int, typ ValueType) (any, error) {
	return l.inner.Value(col, typ)
}

func (l *PaginationMergedResult) WasNull() bool {
	return l.inner.WasNull()
}
