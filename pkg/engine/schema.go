package engine

import (
	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/pg-sharding/shardcore/pkg/catalog"
)

// TextOidFD generates a pgproto3.FieldDescription object with the provided statement text.
//
// Parameters:
// - stmt (string): The statement text to use in the FieldDescription.
//
// Returns:
// - A pgproto3.FieldDescription object initialized with the provided statement text and default values.
func TextOidFD(stmt string) pgproto3.FieldDescription {
	return pgproto3.FieldDescription{
		Name:                 []byte(stmt),
		TableOID:             0,
		TableAttributeNumber: 0,
		DataTypeOID:          catalog.TEXTOID,
		DataTypeSize:         -1,
		TypeModifier:         -1,
		Format:               0,
	}
}

// IntOidFD generates a pgproto3.FieldDescription object of INT8 type with the provided statement text.
func IntOidFD(stmt string) pgproto3.FieldDescription {
	return pgproto3.FieldDescription{
		Name:         []byte(stmt),
		DataTypeOID:  catalog.INT8OID,
		DataTypeSize: 8,
		TypeModifier: -1,
	}
}

func NumericOidFD(stmt string) pgproto3.FieldDescription {
	return pgproto3.FieldDescription{
		Name:         []byte(stmt),
		DataTypeOID:  catalog.NUMERICOID,
		DataTypeSize: -1,
		TypeModifier: -1,
	}
}

// GetVPHeader builds TEXT column descriptions for the given labels.
func GetVPHeader(labels ...string) []pgproto3.FieldDescription {
	desc := make([]pgproto3.FieldDescription, 0, len(labels))
	for _, l := range labels {
		desc = append(desc, TextOidFD(l))
	}
	return desc
}
