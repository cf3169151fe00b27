package sherror

import (
	"errors"
	"fmt"
)

const (
	SHARD_UNEXPECTED              = "SHRDX"
	SHARD_TABLE_RULE_NOT_FOUND    = "SHRDT"
	SHARD_BINDING_TABLE_MISMATCH  = "SHRDB"
	SHARD_UNSUPPORTED_STRATEGY    = "SHRDS"
	SHARD_ALGORITHM_FAILURE       = "SHRDA"
	SHARD_CARTESIAN_EMPTY         = "SHRDC"
	SHARD_NO_ROUTE_TARGET         = "SHRDN"
	SHARD_HINT_UNMATCHED          = "SHRDH"
	SHARD_UNSUPPORTED_FEATURE     = "SHRDU"
	SHARD_DATA_INCONSISTENCY      = "SHRDI"
	SHARD_PAGINATION_ERROR        = "SHRDP"
	SHARD_KEY_GENERATION_FAILURE  = "SHRDK"
	SHARD_INVALID_CONFIGURATION   = "SHRDV"
	SHARD_CURSOR_NOT_FOUND        = "SHRDR"
	SHARD_COLUMN_INDEX_OUT_OF_RNG = "SHRDO"
)

var existingErrorCodeMap = map[string]string{
	SHARD_UNEXPECTED:              "Unexpected error",
	SHARD_TABLE_RULE_NOT_FOUND:    "TableRuleNotFound",
	SHARD_BINDING_TABLE_MISMATCH:  "BindingTableMismatch",
	SHARD_UNSUPPORTED_STRATEGY:    "UnsupportedStrategy",
	SHARD_ALGORITHM_FAILURE:       "AlgorithmFailure",
	SHARD_CARTESIAN_EMPTY:         "CartesianProductEmpty",
	SHARD_NO_ROUTE_TARGET:         "NoRouteTarget",
	SHARD_HINT_UNMATCHED:          "HintValueUnmatched",
	SHARD_UNSUPPORTED_FEATURE:     "UnsupportedFeature",
	SHARD_DATA_INCONSISTENCY:      "DataInconsistency",
	SHARD_PAGINATION_ERROR:        "PaginationError",
	SHARD_KEY_GENERATION_FAILURE:  "KeyGenerationFailure",
	SHARD_INVALID_CONFIGURATION:   "InvalidConfiguration",
	SHARD_CURSOR_NOT_FOUND:        "CursorNotFound",
	SHARD_COLUMN_INDEX_OUT_OF_RNG: "ColumnIndexOutOfRange",
}

func GetMessageByCode(errorCode string) string {
	rep, ok := existingErrorCodeMap[errorCode]
	if ok {
		return rep
	}
	return "Unexpected error"
}

var _ error = &ShardError{}

// ShardError is a named error condition. The code lets the protocol-facing
// layer map it to its own error codes without parsing messages.
type ShardError struct {
	Err error

	ErrorCode string
}

// New returns a ShardError with the given code and description.
func New(errorCode string, desc string) *ShardError {
	return &ShardError{
		Err:       errors.New(desc),
		ErrorCode: errorCode,
	}
}

// Newf is like New but formats the description.
func Newf(errorCode string, format string, a ...any) *ShardError {
	return &ShardError{
		Err:       fmt.Errorf(format, a...),
		ErrorCode: errorCode,
	}
}

// NewByCode returns a ShardError whose description is the code name.
func NewByCode(errorCode string) *ShardError {
	return New(errorCode, GetMessageByCode(errorCode))
}

func (er *ShardError) Error() string {
	return er.Err.Error()
}

func (er *ShardError) Unwrap() error {
	return er.Err
}

// HasCode reports whether err, or anything it wraps, is a ShardError with code.
func HasCode(err error, code string) bool {
	var se *ShardError
	if errors.As(err, &se) {
		return se.ErrorCode == code
	}
	return false
}
