package shrule

import (
	"strings"

	"github.com/pg-sharding/shardcore/pkg/keygen"
	"github.com/pg-sharding/shardcore/pkg/models/datanode"
	"github.com/pg-sharding/shardcore/router/strategy"
)

// TableRule maps a logic table to its data nodes and sharding strategies.
// A nil strategy means the rule's default applies.
type TableRule struct {
	LogicTable      string
	ActualDataNodes []datanode.DataNode

	DatabaseStrategy strategy.Strategy
	TableStrategy    strategy.Strategy

	GenerateKeyColumn string
	KeyGenerator      keygen.KeyGenerator

	dataSources []string
	tables      map[string][]string
}

func NewTableRule(logic string, nodes []datanode.DataNode) *TableRule {
	tr := &TableRule{
		LogicTable:      logic,
		ActualDataNodes: nodes,
		tables:          map[string][]string{},
	}
	for _, n := range nodes {
		ds := strings.ToLower(n.DataSource)
		if _, ok := tr.tables[ds]; !ok {
			tr.dataSources = append(tr.dataSources, n.DataSource)
		}
		tr.tables[ds] = append(tr.tables[ds], n.Table)
	}
	return tr
}

// ActualDataSourceNames lists the data sources in data node order.
func (tr *TableRule) ActualDataSourceNames() []string {
	return tr.dataSources
}

// ActualTableNames lists the actual tables of the table on ds.
func (tr *TableRule) ActualTableNames(ds string) []string {
	return tr.tables[strings.ToLower(ds)]
}

// ActualTableIndex is the position of table among the actual tables on
// ds, -1 when absent.
func (tr *TableRule) ActualTableIndex(ds, table string) int {
	for i, t := range tr.ActualTableNames(ds) {
		if strings.EqualFold(t, table) {
			return i
		}
	}
	return -1
}

func (tr *TableRule) HasDataNode(n datanode.DataNode) bool {
	return tr.ActualTableIndex(n.DataSource, n.Table) >= 0
}

// DatabaseInfo is the naming convention of the data sources.
func (tr *TableRule) DatabaseInfo() datanode.DataNodeInfo {
	if len(tr.ActualDataNodes) == 0 {
		return datanode.DataNodeInfo{}
	}
	return datanode.NewDataNodeInfo(tr.ActualDataNodes[0].DataSource)
}

// TableInfo is the naming convention of the actual tables.
func (tr *TableRule) TableInfo() datanode.DataNodeInfo {
	if len(tr.ActualDataNodes) == 0 {
		return datanode.DataNodeInfo{}
	}
	return datanode.NewDataNodeInfo(tr.ActualDataNodes[0].Table)
}
