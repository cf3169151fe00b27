package engine

import (
	"github.com/pg-sharding/shardcore/pkg/catalog"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

var s_operators = map[uint32]Operator{
	catalog.TEXTOID:        &TEXTOperator{},
	catalog.VARCHAROID:     &TEXTOperator{},
	catalog.INT2OID:        &NUMERICOperator{},
	catalog.INT4OID:        &NUMERICOperator{},
	catalog.INT8OID:        &NUMERICOperator{},
	catalog.FLOAT4OID:      &NUMERICOperator{},
	catalog.DOUBLEOID:      &NUMERICOperator{},
	catalog.NUMERICOID:     &NUMERICOperator{},
	catalog.DATEOID:        &TIMESTAMPOperator{},
	catalog.TIMESTAMPOID:   &TIMESTAMPOperator{},
	catalog.TIMESTAMPTZOID: &TIMESTAMPOperator{},
	catalog.BOOLOID:        &GenericOperator{},
}

func SearchSysCacheOperator(oid uint32) (Operator, error) {
	if op, ok := s_operators[oid]; ok {
		return op, nil
	}
	return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_FEATURE, "ordering operator for type oid %d not supported", oid)
}

// lookupOperator falls back to comparing by Go type when the column type
// is unknown or the column carries no description.
func lookupOperator(oid uint32) Operator {
	if op, err := SearchSysCacheOperator(oid); err == nil {
		return op
	}
	return &GenericOperator{}
}
