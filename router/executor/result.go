package executor

import (
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/pg-sharding/shardcore/pkg/catalog"
	"github.com/pg-sharding/shardcore/pkg/engine"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

// PgxQueryResult reads a pgx row set.
type PgxQueryResult struct {
	rows    pgx.Rows
	columns []pgproto3.FieldDescription
	current []any
}

var _ engine.QueryResult = &PgxQueryResult{}

func NewPgxQueryResult(rows pgx.Rows) *PgxQueryResult {
	fds := rows.FieldDescriptions()
	columns := make([]pgproto3.FieldDescription, 0, len(fds))
	for _, fd := range fds {
		columns = append(columns, pgproto3.FieldDescription{
			Name:                 []byte(fd.Name),
			TableOID:             fd.TableOID,
			TableAttributeNumber: fd.TableAttributeNumber,
			DataTypeOID:          fd.DataTypeOID,
			DataTypeSize:         fd.DataTypeSize,
			TypeModifier:         fd.TypeModifier,
			Format:               fd.Format,
		})
	}
	return &PgxQueryResult{rows: rows, columns: columns}
}

func (p *PgxQueryResult) Columns() []pgproto3.FieldDescription {
	return p.columns
}

func (p *PgxQueryResult) Next() (bool, error) {
	if !p.rows.Next() {
		p.current = nil
		return false, p.rows.Err()
	}
	vals, err := p.rows.Values()
	if err != nil {
		return false, err
	}
	for i, v := range vals {
		if vals[i], err = pgValue(v); err != nil {
			return false, err
		}
	}
	p.current = vals
	return true, nil
}

// pgValue converts pgx decoded values the merge engine cannot compare or
// aggregate. numeric arrives as pgtype.Numeric and becomes a decimal. NaN and
// infinities have no decimal form and become float64.
func pgValue(v any) (any, error) {
	var n pgtype.Numeric
	switch t := v.(type) {
	case pgtype.Numeric:
		n = t
	case *pgtype.Numeric:
		if t == nil {
			return nil, nil
		}
		n = *t
	default:
		return v, nil
	}

	if !n.Valid {
		return nil, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		f, err := n.Float64Value()
		if err != nil {
			return nil, err
		}
		return f.Float64, nil
	}
	if n.Int == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

func (p *PgxQueryResult) Value(col int) (any, error) {
	return valueAt(p.current, col)
}

func (p *PgxQueryResult) Close() error {
	p.rows.Close()
	return p.rows.Err()
}

// SQLXQueryResult reads a database/sql row set through sqlx.
type SQLXQueryResult struct {
	rows    *sqlx.Rows
	columns []pgproto3.FieldDescription
	current []any
}

var _ engine.QueryResult = &SQLXQueryResult{}

func NewSQLXQueryResult(rows *sqlx.Rows) (*SQLXQueryResult, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	columns := make([]pgproto3.FieldDescription, 0, len(types))
	for _, ct := range types {
		columns = append(columns, columnDescription(ct))
	}
	return &SQLXQueryResult{rows: rows, columns: columns}, nil
}

func (s *SQLXQueryResult) Columns() []pgproto3.FieldDescription {
	return s.columns
}

func (s *SQLXQueryResult) Next() (bool, error) {
	if !s.rows.Next() {
		s.current = nil
		return false, s.rows.Err()
	}
	vals, err := s.rows.SliceScan()
	if err != nil {
		return false, err
	}
	s.current = vals
	return true, nil
}

func (s *SQLXQueryResult) Value(col int) (any, error) {
	return valueAt(s.current, col)
}

func (s *SQLXQueryResult) Close() error {
	return s.rows.Close()
}

func valueAt(row []any, col int) (any, error) {
	if row == nil {
		return nil, sherror.New(sherror.SHARD_UNEXPECTED, "result is not positioned on a row")
	}
	if col < 0 || col >= len(row) {
		return nil, sherror.Newf(sherror.SHARD_COLUMN_INDEX_OUT_OF_RNG, "column index %d out of range, row has %d columns", col, len(row))
	}
	return row[col], nil
}

// typeOid maps a driver type name to the OID the merge engine picks an
// ordering operator by. Unknown names map to 0.
func typeOid(name string) uint32 {
	switch strings.ToUpper(name) {
	case "BOOL", "BOOLEAN":
		return catalog.BOOLOID
	case "BYTEA", "BLOB", "BINARY", "VARBINARY":
		return catalog.BYTEAOID
	case "INT2", "SMALLINT", "TINYINT":
		return catalog.INT2OID
	case "INT4", "INT", "INTEGER", "MEDIUMINT":
		return catalog.INT4OID
	case "INT8", "BIGINT":
		return catalog.INT8OID
	case "FLOAT4", "REAL", "FLOAT":
		return catalog.FLOAT4OID
	case "FLOAT8", "DOUBLE", "DOUBLE PRECISION":
		return catalog.DOUBLEOID
	case "NUMERIC", "DECIMAL":
		return catalog.NUMERICOID
	case "TEXT", "CHAR", "BPCHAR":
		return catalog.TEXTOID
	case "VARCHAR":
		return catalog.VARCHAROID
	case "DATE":
		return catalog.DATEOID
	case "TIMESTAMP", "DATETIME":
		return catalog.TIMESTAMPOID
	case "TIMESTAMPTZ":
		return catalog.TIMESTAMPTZOID
	case "XML":
		return catalog.XMLOID
	}
	return 0
}

func columnDescription(ct *sql.ColumnType) pgproto3.FieldDescription {
	fd := pgproto3.FieldDescription{
		Name:         []byte(ct.Name()),
		DataTypeOID:  typeOid(ct.DatabaseTypeName()),
		DataTypeSize: -1,
		TypeModifier: -1,
	}
	if l, ok := ct.Length(); ok && l > 0 && l < 1<<15 {
		fd.DataTypeSize = int16(l)
	}
	return fd
}
