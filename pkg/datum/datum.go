package datum

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type class int

const (
	classUnknown = class(iota)
	classInt
	classUint
	classFloat
	classDecimal
	classString
	classBytes
	classTime
	classBool
)

func classify(v any) class {
	switch v.(type) {
	case int, int8, int16, int32, int64:
		return classInt
	case uint, uint8, uint16, uint32, uint64:
		return classUint
	case float32, float64:
		return classFloat
	case decimal.Decimal, *decimal.Decimal:
		return classDecimal
	case string:
		return classString
	case []byte:
		return classBytes
	case time.Time:
		return classTime
	case bool:
		return classBool
	}
	return classUnknown
}

func isNumeric(c class) bool {
	return c == classInt || c == classUint || c == classFloat || c == classDecimal
}

// Compare orders two non-nil values. Numeric values of different Go types
// are compared by value, strings and byte slices lexicographically. A
// numeric value compared to a string tries to read the string as a number.
func Compare(a, b any) (int, error) {
	ca, cb := classify(a), classify(b)

	switch {
	case ca == classInt && cb == classInt:
		x, _ := ToInt64(a)
		y, _ := ToInt64(b)
		return cmpOrdered(x, y), nil
	case ca == classFloat && cb == classFloat:
		x, _ := ToFloat64(a)
		y, _ := ToFloat64(b)
		return cmpOrdered(x, y), nil
	case (ca == classString || ca == classBytes) && (cb == classString || cb == classBytes):
		return strings.Compare(ToString(a), ToString(b)), nil
	case ca == classTime && cb == classTime:
		return a.(time.Time).Compare(b.(time.Time)), nil
	case ca == classBool && cb == classBool:
		x, y := a.(bool), b.(bool)
		if x == y {
			return 0, nil
		}
		if !x {
			return -1, nil
		}
		return 1, nil
	case isNumeric(ca) || isNumeric(cb):
		x, err := ToDecimal(a)
		if err != nil {
			return 0, err
		}
		y, err := ToDecimal(b)
		if err != nil {
			return 0, err
		}
		return x.Cmp(y), nil
	}
	return 0, fmt.Errorf("values of types %T and %T are not comparable", a, b)
}

func cmpOrdered[T int64 | uint64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// Equal reports whether a and b compare equal. Incomparable values are unequal.
func Equal(a, b any) bool {
	c, err := Compare(a, b)
	return err == nil && c == 0
}

func ToInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case decimal.Decimal:
		return x.IntPart(), nil
	case *decimal.Decimal:
		return x.IntPart(), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert %T to int64", v)
}

func ToFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case decimal.Decimal:
		f, _ := x.Float64()
		return f, nil
	case *decimal.Decimal:
		f, _ := x.Float64()
		return f, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
	}
	if c := classify(v); c == classInt || c == classUint || c == classBool {
		i, err := ToInt64(v)
		if err != nil {
			if u, ok := v.(uint64); ok {
				return float64(u), nil
			}
			return 0, err
		}
		return float64(i), nil
	}
	return 0, fmt.Errorf("cannot convert %T to float64", v)
}

func ToDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		return *x, nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	case []byte:
		return decimal.NewFromString(strings.TrimSpace(string(x)))
	}
	if c := classify(v); c == classInt || c == classUint || c == classBool {
		i, err := ToInt64(v)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromInt(i), nil
	}
	return decimal.Decimal{}, fmt.Errorf("cannot convert %T to decimal", v)
}

func ToString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func ToBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	case []byte:
		return strconv.ParseBool(string(x))
	}
	i, err := ToInt64(v)
	if err != nil {
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
	return i != 0, nil
}

func ToTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return time.Parse(time.RFC3339Nano, x)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(x))
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to time", v)
}

// IsNumeric reports whether v holds a Go numeric type.
func IsNumeric(v any) bool {
	return isNumeric(classify(v))
}
