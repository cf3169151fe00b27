package hashfunction

import (
	"encoding/binary"
	"fmt"

	"github.com/go-faster/city"
	"github.com/spaolacci/murmur3"

	"github.com/pg-sharding/shardcore/pkg/datum"
)

type HashFunctionType int

/* Pre-defined hash functions */
const (
	HashFunctionIdent  = HashFunctionType(0)
	HashFunctionMurmur = HashFunctionType(1)
	HashFunctionCity   = HashFunctionType(2)
)

var errUnknownValueType = func(v any, hf HashFunctionType) error {
	return fmt.Errorf("unknown type of value that the hash will be calculated from: %T for %s hash type", v, ToString(hf))
}

// EncodeUInt64 is the byte form integers are hashed from.
func EncodeUInt64(input uint64) []byte {
	const ENCODING_BYTES_BIG = binary.MaxVarintLen64
	const ENCODING_BYTES = 8
	const BOUND = 1 << 56 /* 72057594037927936 */

	sz := ENCODING_BYTES
	if input >= BOUND {
		sz = ENCODING_BYTES_BIG
	}

	buf := make([]byte, sz)
	binary.PutUvarint(buf, input)
	return buf
}

func hashInput(input any, hf HashFunctionType) ([]byte, error) {
	switch v := input.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case uint64:
		return EncodeUInt64(v), nil
	}
	if datum.IsNumeric(input) {
		n, err := datum.ToInt64(input)
		if err != nil {
			return nil, err
		}
		return EncodeUInt64(uint64(n)), nil
	}
	return nil, errUnknownValueType(input, hf)
}

// ApplyHashFunction hashes a sharding value into an unsigned integer that
// modulo based algorithms pick a target from. The identity function only
// accepts integers.
func ApplyHashFunction(input any, hf HashFunctionType) (uint64, error) {
	switch hf {
	case HashFunctionIdent:
		if !datum.IsNumeric(input) {
			return 0, errUnknownValueType(input, hf)
		}
		n, err := datum.ToInt64(input)
		if err != nil {
			return 0, err
		}
		if n < 0 {
			n = -n
		}
		return uint64(n), nil
	case HashFunctionMurmur:
		buf, err := hashInput(input, hf)
		if err != nil {
			return 0, err
		}
		return uint64(murmur3.Sum32(buf)), nil
	case HashFunctionCity:
		buf, err := hashInput(input, hf)
		if err != nil {
			return 0, err
		}
		return uint64(city.Hash32(buf)), nil
	default:
		return 0, fmt.Errorf("unknown hash function type: %d", hf)
	}
}

// HashFunctionByName returns the HashFunctionType for a configured name.
func HashFunctionByName(hfn string) (HashFunctionType, error) {
	switch hfn {
	case "identity", "ident", "":
		return HashFunctionIdent, nil
	case "murmur":
		return HashFunctionMurmur, nil
	case "city":
		return HashFunctionCity, nil
	default:
		return 0, fmt.Errorf("unknown hash function type: %s", hfn)
	}
}

func ToString(hf HashFunctionType) string {
	switch hf {
	case HashFunctionIdent:
		return "identity"
	case HashFunctionMurmur:
		return "murmur"
	case HashFunctionCity:
		return "city"
	}
	return ""
}
