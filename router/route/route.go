// Package route holds the result of routing a statement: the ordered
// physical targets it must be dispatched to.
package route

import (
	"fmt"
	"strings"

	"github.com/pg-sharding/shardcore/pkg/models/datanode"
)

// Mapper maps a logic name to the actual name used on one target.
type Mapper struct {
	LogicName  string `json:"logic_name" yaml:"logic_name"`
	ActualName string `json:"actual_name" yaml:"actual_name"`
}

// Unit is one dispatch target: a data source and the actual tables that
// replace the statement's logic tables there.
type Unit struct {
	DataSource Mapper   `json:"data_source" yaml:"data_source"`
	Tables     []Mapper `json:"tables" yaml:"tables"`
}

func NewUnit(ds string, tables ...Mapper) Unit {
	return Unit{DataSource: Mapper{LogicName: ds, ActualName: ds}, Tables: tables}
}

// ActualTableName returns the actual table of logicTable on this unit.
func (u Unit) ActualTableName(logicTable string) (string, bool) {
	for _, m := range u.Tables {
		if strings.EqualFold(m.LogicName, logicTable) {
			return m.ActualName, true
		}
	}
	return "", false
}

func (u Unit) LogicTableNames() []string {
	res := make([]string, 0, len(u.Tables))
	for _, m := range u.Tables {
		res = append(res, m.LogicName)
	}
	return res
}

func (u Unit) String() string {
	parts := make([]string, 0, len(u.Tables))
	for _, m := range u.Tables {
		parts = append(parts, fmt.Sprintf("%s->%s", m.LogicName, m.ActualName))
	}
	return fmt.Sprintf("%s[%s]", u.DataSource.ActualName, strings.Join(parts, ", "))
}

func (u Unit) equal(o Unit) bool {
	if !strings.EqualFold(u.DataSource.ActualName, o.DataSource.ActualName) || len(u.Tables) != len(o.Tables) {
		return false
	}
	for i := range u.Tables {
		if !strings.EqualFold(u.Tables[i].LogicName, o.Tables[i].LogicName) ||
			!strings.EqualFold(u.Tables[i].ActualName, o.Tables[i].ActualName) {
			return false
		}
	}
	return true
}

// Context is the complete routing decision for one statement. Units keep
// insertion order. OriginalDataNodes lists the data nodes each table was
// routed to before units were combined.
type Context struct {
	Units             []Unit              `json:"units" yaml:"units"`
	OriginalDataNodes []datanode.DataNode `json:"original_data_nodes,omitempty" yaml:"original_data_nodes"`
}

// AddUnit appends u unless an identical unit is present.
func (c *Context) AddUnit(u Unit) {
	for _, e := range c.Units {
		if e.equal(u) {
			return
		}
	}
	c.Units = append(c.Units, u)
}

func (c *Context) AddOriginalDataNode(n datanode.DataNode) {
	for _, e := range c.OriginalDataNodes {
		if e == n {
			return
		}
	}
	c.OriginalDataNodes = append(c.OriginalDataNodes, n)
}

func (c *Context) IsEmpty() bool {
	return len(c.Units) == 0
}

func (c *Context) IsSingle() bool {
	return len(c.Units) == 1
}

// DataSourceNames returns distinct data sources in unit order.
func (c *Context) DataSourceNames() []string {
	var res []string
	seen := map[string]struct{}{}
	for _, u := range c.Units {
		if _, ok := seen[u.DataSource.ActualName]; ok {
			continue
		}
		seen[u.DataSource.ActualName] = struct{}{}
		res = append(res, u.DataSource.ActualName)
	}
	return res
}

// DataNodes flattens the units into (data source, actual table) pairs.
func (c *Context) DataNodes() []datanode.DataNode {
	var res []datanode.DataNode
	for _, u := range c.Units {
		for _, m := range u.Tables {
			res = append(res, datanode.New(u.DataSource.ActualName, m.ActualName))
		}
	}
	return res
}

func (c *Context) String() string {
	parts := make([]string, 0, len(c.Units))
	for _, u := range c.Units {
		parts = append(parts, u.String())
	}
	return strings.Join(parts, "; ")
}
