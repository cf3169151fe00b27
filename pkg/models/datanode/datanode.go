package datanode

import (
	"fmt"
	"strings"
)

// DataNode is one physical shard: a table inside a data source.
type DataNode struct {
	DataSource string
	Table      string
}

func New(ds, table string) DataNode {
	return DataNode{DataSource: ds, Table: table}
}

func (n DataNode) String() string {
	return n.DataSource + "." + n.Table
}

// ParseDataNode reads the "ds.table" notation used in rule configuration.
func ParseDataNode(str string) (DataNode, error) {
	if len(strings.TrimSpace(str)) == 0 {
		return DataNode{}, fmt.Errorf("invalid data node='%v' (empty)", str)
	}
	parts := strings.Split(str, ".")
	if len(parts) != 2 {
		return DataNode{}, fmt.Errorf("invalid data node='%v', expected <data source>.<table>", str)
	}
	ds, table := parts[0], parts[1]
	if len(ds) == 0 || len(table) == 0 ||
		strings.TrimSpace(ds) != ds || strings.TrimSpace(table) != table {
		return DataNode{}, fmt.Errorf("invalid data node='%v'", str)
	}
	return DataNode{DataSource: ds, Table: table}, nil
}

// DataNodeInfo describes the naming convention of a set of targets:
// a common prefix followed by a numeric suffix padded to a minimal length.
type DataNodeInfo struct {
	Prefix          string
	SuffixMinLength int
	PaddingChar     byte
}

// NewDataNodeInfo derives the convention from a sample target name,
// e.g. "t_order_01" gives prefix "t_order_", suffix length 2, padding '0'.
func NewDataNodeInfo(sample string) DataNodeInfo {
	i := len(sample)
	for i > 0 && sample[i-1] >= '0' && sample[i-1] <= '9' {
		i--
	}
	return DataNodeInfo{
		Prefix:          sample[:i],
		SuffixMinLength: len(sample) - i,
		PaddingChar:     '0',
	}
}

// Target renders the target name for a suffix value.
func (i DataNodeInfo) Target(suffix string) string {
	if n := i.SuffixMinLength - len(suffix); n > 0 && isDigits(suffix) {
		suffix = strings.Repeat(string(i.PaddingChar), n) + suffix
	}
	return i.Prefix + suffix
}

func isDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	for j := 0; j < len(s); j++ {
		if s[j] < '0' || s[j] > '9' {
			return false
		}
	}
	return true
}
