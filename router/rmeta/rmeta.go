// Package rmeta describes a bound statement: the tables it touches, the
// sharding conditions extracted from its predicates, and everything the
// merge engine needs to know about its projections, ordering, grouping
// and pagination. It is produced by the SQL binder and read by routing
// and merging, never mutated by them.
package rmeta

import (
	"strings"

	"github.com/pg-sharding/shardcore/router/routehint"
)

type StatementType string

const (
	SelectStatement = StatementType("SELECT")
	InsertStatement = StatementType("INSERT")
	UpdateStatement = StatementType("UPDATE")
	DeleteStatement = StatementType("DELETE")
	DDLStatement    = StatementType("DDL")
	TCLStatement    = StatementType("TCL")
	FetchStatement  = StatementType("FETCH")
)

func (t StatementType) IsDQL() bool {
	return t == SelectStatement || t == FetchStatement
}

func (t StatementType) IsDML() bool {
	return t == InsertStatement || t == UpdateStatement || t == DeleteStatement
}

type Dialect string

const (
	MySQL      = Dialect("mysql")
	PostgreSQL = Dialect("postgresql")
	Oracle     = Dialect("oracle")
	SQLServer  = Dialect("sqlserver")
)

// NullsHigh reports whether the dialect sorts NULL above every value.
func (d Dialect) NullsHigh() bool {
	return d == PostgreSQL || d == Oracle || d == ""
}

type TableRef struct {
	Name  string `json:"name" toml:"name" yaml:"name"`
	Alias string `json:"alias,omitempty" toml:"alias" yaml:"alias"`
}

// JoinCondition is an equality between columns of two tables.
type JoinCondition struct {
	LeftTable   string `json:"left_table" toml:"left_table" yaml:"left_table"`
	LeftColumn  string `json:"left_column" toml:"left_column" yaml:"left_column"`
	RightTable  string `json:"right_table" toml:"right_table" yaml:"right_table"`
	RightColumn string `json:"right_column" toml:"right_column" yaml:"right_column"`
}

type Direction string

const (
	Asc  = Direction("ASC")
	Desc = Direction("DESC")
)

type NullOrder string

const (
	NullsDefault = NullOrder("")
	NullsFirst   = NullOrder("FIRST")
	NullsLast    = NullOrder("LAST")
)

// OrderItem is one ORDER BY or GROUP BY item. Index is the position of the
// item's column in the result row.
type OrderItem struct {
	Column    string    `json:"column,omitempty" toml:"column" yaml:"column"`
	Index     int       `json:"index" toml:"index" yaml:"index"`
	Direction Direction `json:"direction,omitempty" toml:"direction" yaml:"direction"`
	NullOrder NullOrder `json:"null_order,omitempty" toml:"null_order" yaml:"null_order"`
}

func (o OrderItem) IsDesc() bool {
	return strings.EqualFold(string(o.Direction), string(Desc))
}

// NullsFirst resolves the item's null placement under the dialect default.
func (o OrderItem) NullsFirst(d Dialect) bool {
	switch NullOrder(strings.ToUpper(string(o.NullOrder))) {
	case NullsFirst:
		return true
	case NullsLast:
		return false
	}
	if d.NullsHigh() {
		return o.IsDesc()
	}
	return !o.IsDesc()
}

type AggregationType string

const (
	AggregationNone  = AggregationType("")
	AggregationCount = AggregationType("COUNT")
	AggregationSum   = AggregationType("SUM")
	AggregationMin   = AggregationType("MIN")
	AggregationMax   = AggregationType("MAX")
	AggregationAvg   = AggregationType("AVG")
)

// AvgDerived points at the COUNT and SUM columns added next to an AVG
// projection so shards return the parts of the average.
type AvgDerived struct {
	CountIndex int `json:"count_index" toml:"count_index" yaml:"count_index"`
	SumIndex   int `json:"sum_index" toml:"sum_index" yaml:"sum_index"`
}

type Projection struct {
	Label       string          `json:"label" toml:"label" yaml:"label"`
	Index       int             `json:"index" toml:"index" yaml:"index"`
	Aggregation AggregationType `json:"aggregation,omitempty" toml:"aggregation" yaml:"aggregation"`
	Distinct    bool            `json:"distinct,omitempty" toml:"distinct" yaml:"distinct"`
	Avg         *AvgDerived     `json:"avg,omitempty" toml:"avg" yaml:"avg"`
}

func (p Projection) IsAggregation() bool {
	return p.Aggregation != AggregationNone
}

// PaginationValue is an OFFSET / LIMIT value or a ROWNUM / TOP bound.
// Inclusive marks ">=" and "<=" row number bounds.
type PaginationValue struct {
	Value     ValueRef `json:"value" toml:"value" yaml:"value"`
	Inclusive bool     `json:"inclusive,omitempty" toml:"inclusive" yaml:"inclusive"`
}

type Pagination struct {
	Offset   *PaginationValue `json:"offset,omitempty" toml:"offset" yaml:"offset"`
	RowCount *PaginationValue `json:"row_count,omitempty" toml:"row_count" yaml:"row_count"`
	// MaxRowCount drops the row count cap, set when the real row count
	// cannot be bounded.
	MaxRowCount bool `json:"max_row_count,omitempty" toml:"max_row_count" yaml:"max_row_count"`
}

type InsertContext struct {
	Columns  []string `json:"columns" toml:"columns" yaml:"columns"`
	RowCount int      `json:"row_count" toml:"row_count" yaml:"row_count"`
	// GeneratedKeys are filled by key generation, one per inserted row.
	GeneratedKeys []any `json:"generated_keys,omitempty" toml:"generated_keys" yaml:"generated_keys"`
}

// CursorContext describes FETCH n / FETCH ALL on a named cursor.
type CursorContext struct {
	Name  string `json:"name" toml:"name" yaml:"name"`
	Count int64  `json:"count,omitempty" toml:"count" yaml:"count"`
	All   bool   `json:"all,omitempty" toml:"all" yaml:"all"`
}

type StatementContext struct {
	Type    StatementType `json:"type" toml:"type" yaml:"type"`
	Dialect Dialect       `json:"dialect,omitempty" toml:"dialect" yaml:"dialect"`

	Tables         []TableRef      `json:"tables" toml:"tables" yaml:"tables"`
	JoinConditions []JoinCondition `json:"join_conditions,omitempty" toml:"join_conditions" yaml:"join_conditions"`

	// Conditions holds one entry per OR branch of the WHERE clause.
	Conditions  []ShardingCondition `json:"conditions,omitempty" toml:"conditions" yaml:"conditions"`
	AlwaysFalse bool                `json:"always_false,omitempty" toml:"always_false" yaml:"always_false"`

	Projections []Projection `json:"projections,omitempty" toml:"projections" yaml:"projections"`
	GroupBy     []OrderItem  `json:"group_by,omitempty" toml:"group_by" yaml:"group_by"`
	OrderBy     []OrderItem  `json:"order_by,omitempty" toml:"order_by" yaml:"order_by"`
	Distinct    bool         `json:"distinct,omitempty" toml:"distinct" yaml:"distinct"`
	Pagination  *Pagination  `json:"pagination,omitempty" toml:"pagination" yaml:"pagination"`

	Insert *InsertContext `json:"insert,omitempty" toml:"insert" yaml:"insert"`
	Cursor *CursorContext `json:"cursor,omitempty" toml:"cursor" yaml:"cursor"`

	Params []any              `json:"params,omitempty" toml:"params" yaml:"params"`
	Hint   *routehint.Context `json:"hint,omitempty" toml:"hint" yaml:"hint"`
}

// TableNames returns referenced logic tables in statement order without
// duplicates.
func (s *StatementContext) TableNames() []string {
	seen := map[string]struct{}{}
	res := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		k := strings.ToLower(t.Name)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		res = append(res, t.Name)
	}
	return res
}

// ResolveTable maps an alias or table name to the referenced table name.
func (s *StatementContext) ResolveTable(name string) string {
	for _, t := range s.Tables {
		if t.Alias != "" && strings.EqualFold(t.Alias, name) {
			return t.Name
		}
	}
	return name
}

func (s *StatementContext) HasAggregation() bool {
	for _, p := range s.Projections {
		if p.IsAggregation() {
			return true
		}
	}
	return false
}

// SameGroupByAndOrderBy reports whether shards return rows already grouped.
func (s *StatementContext) SameGroupByAndOrderBy() bool {
	if len(s.GroupBy) == 0 || len(s.GroupBy) != len(s.OrderBy) {
		return false
	}
	for i := range s.GroupBy {
		g, o := s.GroupBy[i], s.OrderBy[i]
		if g.Index != o.Index || g.IsDesc() != o.IsDesc() {
			return false
		}
	}
	return true
}
