package tupleslot

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgproto3"
)

// TupleTableSlot is a result held in memory. It serves as a shard result
// wherever rows are already materialized.
type TupleTableSlot struct {
	Desc []pgproto3.FieldDescription
	Raw  [][]any

	pos    int
	closed bool
}

func (tts *TupleTableSlot) WriteDataRow(vals ...any) {
	tts.Raw = append(tts.Raw, vals)
}

// ColNameOffset is the position of the column named name.
func (tts *TupleTableSlot) ColNameOffset(name string) (int, error) {
	for i, c := range tts.Desc {
		if strings.EqualFold(string(c.Name), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no such column %s", name)
}

func (tts *TupleTableSlot) Columns() []pgproto3.FieldDescription {
	return tts.Desc
}

func (tts *TupleTableSlot) Next() (bool, error) {
	if tts.closed {
		return false, fmt.Errorf("tuple slot is closed")
	}
	if tts.pos >= len(tts.Raw) {
		return false, nil
	}
	tts.pos++
	return true, nil
}

// Row is the row Next moved to, nil before the first and after the last.
func (tts *TupleTableSlot) Row() []any {
	if tts.pos == 0 || tts.pos > len(tts.Raw) {
		return nil
	}
	return tts.Raw[tts.pos-1]
}

// Rewind moves the slot back before its first row.
func (tts *TupleTableSlot) Rewind() {
	tts.pos = 0
}

func (tts *TupleTableSlot) Value(col int) (any, error) {
	if tts.pos == 0 || tts.pos > len(tts.Raw) {
		return nil, fmt.Errorf("tuple slot is not positioned on a row")
	}
	row := tts.Raw[tts.pos-1]
	if col < 0 || col >= len(row) {
		return nil, fmt.Errorf("column %d out of range, row has %d columns", col, len(row))
	}
	return row[col], nil
}

func (tts *TupleTableSlot) Close() error {
	tts.closed = true
	return nil
}
