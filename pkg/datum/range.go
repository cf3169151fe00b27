package datum

import "fmt"

type BoundType int

const (
	Unbounded = BoundType(iota)
	Closed
	Open
)

type Bound struct {
	Value any
	Type  BoundType
}

// Range is an interval over comparable values. A missing side is Unbounded.
type Range struct {
	Lower Bound
	Upper Bound
}

func AtLeast(v any) Range     { return Range{Lower: Bound{v, Closed}} }
func GreaterThan(v any) Range { return Range{Lower: Bound{v, Open}} }
func AtMost(v any) Range      { return Range{Upper: Bound{v, Closed}} }
func LessThan(v any) Range    { return Range{Upper: Bound{v, Open}} }
func All() Range              { return Range{} }

// ClosedRange is the BETWEEN range [lo, hi].
func ClosedRange(lo, hi any) Range {
	return Range{Lower: Bound{lo, Closed}, Upper: Bound{hi, Closed}}
}

func (r Range) String() string {
	lo, hi := "(-inf", "+inf)"
	switch r.Lower.Type {
	case Closed:
		lo = fmt.Sprintf("[%v", r.Lower.Value)
	case Open:
		lo = fmt.Sprintf("(%v", r.Lower.Value)
	}
	switch r.Upper.Type {
	case Closed:
		hi = fmt.Sprintf("%v]", r.Upper.Value)
	case Open:
		hi = fmt.Sprintf("%v)", r.Upper.Value)
	}
	return lo + ".." + hi
}

func (r Range) HasLowerBound() bool { return r.Lower.Type != Unbounded }
func (r Range) HasUpperBound() bool { return r.Upper.Type != Unbounded }

// Contains reports whether v lies within the range.
func (r Range) Contains(v any) (bool, error) {
	if r.HasLowerBound() {
		c, err := Compare(v, r.Lower.Value)
		if err != nil {
			return false, err
		}
		if c < 0 || (c == 0 && r.Lower.Type == Open) {
			return false, nil
		}
	}
	if r.HasUpperBound() {
		c, err := Compare(v, r.Upper.Value)
		if err != nil {
			return false, err
		}
		if c > 0 || (c == 0 && r.Upper.Type == Open) {
			return false, nil
		}
	}
	return true, nil
}

// Intersect returns the common part of r and o; ok is false when it is empty.
func (r Range) Intersect(o Range) (Range, bool, error) {
	res := r

	if o.HasLowerBound() {
		if !res.HasLowerBound() {
			res.Lower = o.Lower
		} else {
			c, err := Compare(o.Lower.Value, res.Lower.Value)
			if err != nil {
				return Range{}, false, err
			}
			if c > 0 || (c == 0 && o.Lower.Type == Open) {
				res.Lower = o.Lower
			}
		}
	}
	if o.HasUpperBound() {
		if !res.HasUpperBound() {
			res.Upper = o.Upper
		} else {
			c, err := Compare(o.Upper.Value, res.Upper.Value)
			if err != nil {
				return Range{}, false, err
			}
			if c < 0 || (c == 0 && o.Upper.Type == Open) {
				res.Upper = o.Upper
			}
		}
	}

	if res.HasLowerBound() && res.HasUpperBound() {
		c, err := Compare(res.Lower.Value, res.Upper.Value)
		if err != nil {
			return Range{}, false, err
		}
		if c > 0 || (c == 0 && (res.Lower.Type == Open || res.Upper.Type == Open)) {
			return Range{}, false, nil
		}
	}
	return res, true, nil
}

// IntBounds converts the range to closed integer bounds. ok is false when
// either side is unbounded or not an integer.
func (r Range) IntBounds() (lo, hi int64, ok bool) {
	if !r.HasLowerBound() || !r.HasUpperBound() {
		return 0, 0, false
	}
	var err error
	if lo, err = ToInt64(r.Lower.Value); err != nil {
		return 0, 0, false
	}
	if hi, err = ToInt64(r.Upper.Value); err != nil {
		return 0, 0, false
	}
	if r.Lower.Type == Open {
		lo++
	}
	if r.Upper.Type == Open {
		hi--
	}
	return lo, hi, true
}
