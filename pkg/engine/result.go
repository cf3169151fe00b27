// Package engine merges the row streams that shards return for one
// statement into a single result that looks as if one database produced
// it. Column indexes are 0-based everywhere.
package engine

import (
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/shopspring/decimal"

	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

// QueryResult is the forward-only row cursor one shard returned.
type QueryResult interface {
	Columns() []pgproto3.FieldDescription
	Next() (bool, error)
	Value(col int) (any, error)
	Close() error
}

type Kind string

const (
	KindTransparent     = Kind("transparent")
	KindIterator        = Kind("iterator")
	KindOrderBy         = Kind("order_by")
	KindGroupByStream   = Kind("group_by_stream")
	KindGroupByMemory   = Kind("group_by_memory")
	KindFetch           = Kind("fetch")
	KindLimit           = Kind("limit")
	KindRowNumber       = Kind("row_number")
	KindTopAndRowNumber = Kind("top_and_row_number")
)

// MergedResult is the single forward-only cursor handed to the client
// facing layer. Value sets the flag WasNull reports.
type MergedResult interface {
	Kind() Kind
	Columns() []pgproto3.FieldDescription
	Next() (bool, error)
	Value(col int, typ ValueType) (any, error)
	WasNull() bool
}

// Rewinder is implemented by memory merged results, which may be read a
// second time once.
type Rewinder interface {
	Rewind() error
}

type ValueType int

const (
	TypeAny = ValueType(iota)
	TypeString
	TypeInt64
	TypeFloat64
	TypeDecimal
	TypeBool
	TypeBytes
	TypeTime

	TypeBinaryStream
	TypeCharacterStream
	TypeBlob
	TypeClob
	TypeSQLXML
)

func (t ValueType) String() string {
	switch t {
	case TypeAny:
		return "any"
	case TypeString:
		return "string"
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeDecimal:
		return "decimal"
	case TypeBool:
		return "bool"
	case TypeBytes:
		return "bytes"
	case TypeTime:
		return "time"
	case TypeBinaryStream:
		return "binary stream"
	case TypeCharacterStream:
		return "character stream"
	case TypeBlob:
		return "blob"
	case TypeClob:
		return "clob"
	case TypeSQLXML:
		return "sqlxml"
	}
	return "unknown"
}

// IsStream reports large object and streaming types the scalar value path
// does not serve.
func (t ValueType) IsStream() bool {
	return t >= TypeBinaryStream
}

// convertValue reads a cell as typ. NULL stays nil for every type.
func convertValue(v any, typ ValueType) (any, error) {
	if typ.IsStream() {
		return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_FEATURE, "reading a %s value from a merged result is not supported", typ)
	}
	if v == nil {
		return nil, nil
	}

	var res any
	var err error
	switch typ {
	case TypeAny:
		return v, nil
	case TypeString:
		return datum.ToString(v), nil
	case TypeInt64:
		if d, ok := v.(decimal.Decimal); ok {
			return d.IntPart(), nil
		}
		res, err = datum.ToInt64(v)
	case TypeFloat64:
		if d, ok := v.(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f, nil
		}
		res, err = datum.ToFloat64(v)
	case TypeDecimal:
		res, err = datum.ToDecimal(v)
	case TypeBool:
		res, err = datum.ToBool(v)
	case TypeBytes:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
		return []byte(datum.ToString(v)), nil
	case TypeTime:
		res, err = datum.ToTime(v)
	default:
		return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_FEATURE, "unknown value type %d", typ)
	}
	if err != nil {
		return nil, sherror.Newf(sherror.SHARD_DATA_INCONSISTENCY, "cannot read %v as %s: %s", v, typ, err.Error())
	}
	return res, nil
}

func checkColumn(col int, width int) error {
	if col < 0 || (width > 0 && col >= width) {
		return sherror.Newf(sherror.SHARD_COLUMN_INDEX_OUT_OF_RNG, "column index %d out of range, result has %d columns", col, width)
	}
	return nil
}

// readRow copies the current row of r.
func readRow(r QueryResult, width int) ([]any, error) {
	row := make([]any, width)
	for i := range row {
		v, err := r.Value(i)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

func columnsOf(results []QueryResult) []pgproto3.FieldDescription {
	if len(results) == 0 {
		return nil
	}
	return results[0].Columns()
}

// TransparentMergedResult forwards to the only shard result.
type TransparentMergedResult struct {
	result  QueryResult
	wasNull bool
}

var _ MergedResult = &TransparentMergedResult{}

func NewTransparentMergedResult(result QueryResult) *TransparentMergedResult {
	return &TransparentMergedResult{result: result}
}

func (t *TransparentMergedResult) Kind() Kind {
	return KindTransparent
}

func (t *TransparentMergedResult) Columns() []pgproto3.FieldDescription {
	return t.result.Columns()
}

func (t *TransparentMergedResult) Next() (bool, error) {
	return t.result.Next()
}

func (t *TransparentMergedResult) Value(col int, typ ValueType) (any, error) {
	v, err := t.result.Value(col)
	if err != nil {
		return nil, err
	}
	res, err := convertValue(v, typ)
	if err != nil {
		return nil, err
	}
	t.wasNull = v == nil
	return res, nil
}

func (t *TransparentMergedResult) WasNull() bool {
	return t.wasNull
}

// IteratorStreamMergedResult drains the shard results one after another.
type IteratorStreamMergedResult struct {
	results []QueryResult
	current int
	wasNull bool
}

var _ MergedResult = &IteratorStreamMergedResult{}

func NewIteratorStreamMergedResult(results []QueryResult) *IteratorStreamMergedResult {
	return &IteratorStreamMergedResult{results: results}
}

func (it *IteratorStreamMergedResult) Kind() Kind {
	return KindIterator
}

func (it *IteratorStreamMergedResult) Columns() []pgproto3.FieldDescription {
	return columnsOf(it.results)
}

func (it *IteratorStreamMergedResult) Next() (bool, error) {
	for it.current < len(it.results) {
		ok, err := it.results[it.current].Next()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		it.current++
	}
	return false, nil
}

func (it *IteratorStreamMergedResult) Value(col int, typ ValueType) (any, error) {
	if it.current >= len(it.results) {
		return nil, sherror.New(sherror.SHARD_UNEXPECTED, "merged result is exhausted")
	}
	v, err := it.results[it.current].Value(col)
	if err != nil {
		return nil, err
	}
	res, err := convertValue(v, typ)
	if err != nil {
		return nil, err
	}
	it.wasNull = v == nil
	return res, nil
}

func (it *IteratorStreamMergedResult) WasNull() bool {
	return it.wasNull
}
