package shrule

import (
	"strings"

	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

// BindingTableRule groups tables sharded identically: on every data source
// the i-th actual table of one corresponds to the i-th actual table of
// every other.
type BindingTableRule struct {
	TableRules []*TableRule
}

func (b *BindingTableRule) HasLogicTable(logic string) bool {
	return b.find(logic) != nil
}

func (b *BindingTableRule) find(logic string) *TableRule {
	for _, tr := range b.TableRules {
		if strings.EqualFold(tr.LogicTable, logic) {
			return tr
		}
	}
	return nil
}

func (b *BindingTableRule) LogicTables() []string {
	res := make([]string, 0, len(b.TableRules))
	for _, tr := range b.TableRules {
		res = append(res, tr.LogicTable)
	}
	return res
}

// GetBindingActualTable deduces the actual table of logic on ds from the
// actual table otherActual already chosen for otherLogic.
func (b *BindingTableRule) GetBindingActualTable(ds, logic, otherLogic, otherActual string) (string, error) {
	other := b.find(otherLogic)
	target := b.find(logic)
	if other == nil || target == nil {
		return "", sherror.Newf(sherror.SHARD_BINDING_TABLE_MISMATCH, "tables %s and %s are not bound", logic, otherLogic)
	}
	idx := other.ActualTableIndex(ds, otherActual)
	if idx < 0 {
		return "", sherror.Newf(sherror.SHARD_BINDING_TABLE_MISMATCH, "actual table %s.%s is not configured for %s", ds, otherActual, otherLogic)
	}
	tables := target.ActualTableNames(ds)
	if idx >= len(tables) {
		return "", sherror.Newf(sherror.SHARD_BINDING_TABLE_MISMATCH,
			"binding table %s has no actual table at position %d on %s to match %s.%s", logic, idx, ds, ds, otherActual)
	}
	return tables[idx], nil
}

func (b *BindingTableRule) validate() error {
	if len(b.TableRules) < 2 {
		return nil
	}
	first := b.TableRules[0]
	for _, tr := range b.TableRules[1:] {
		if len(tr.ActualDataSourceNames()) != len(first.ActualDataSourceNames()) {
			return sherror.Newf(sherror.SHARD_BINDING_TABLE_MISMATCH,
				"binding tables %s and %s have different data sources", first.LogicTable, tr.LogicTable)
		}
		for _, ds := range first.ActualDataSourceNames() {
			if len(tr.ActualTableNames(ds)) != len(first.ActualTableNames(ds)) {
				return sherror.Newf(sherror.SHARD_BINDING_TABLE_MISMATCH,
					"binding tables %s and %s have different actual tables on %s", first.LogicTable, tr.LogicTable, ds)
			}
		}
	}
	return nil
}
