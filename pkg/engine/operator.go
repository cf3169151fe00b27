package engine

import (
	"strings"

	"github.com/pg-sharding/shardcore/pkg/datum"
)

// Operator orders two non-NULL cell values of one column type.
type Operator interface {
	Compare(l any, r any) (int, error)
}

type TEXTOperator struct {
}

func (t *TEXTOperator) Compare(l any, r any) (int, error) {
	return strings.Compare(datum.ToString(l), datum.ToString(r)), nil
}

var _ Operator = &TEXTOperator{}

// NUMERICOperator compares integers, floats and numerics by value, including
// their text forms.
type NUMERICOperator struct {
}

func (n *NUMERICOperator) Compare(l any, r any) (int, error) {
	if datum.IsNumeric(l) && datum.IsNumeric(r) {
		return datum.Compare(l, r)
	}
	x, err := datum.ToDecimal(l)
	if err != nil {
		return 0, err
	}
	y, err := datum.ToDecimal(r)
	if err != nil {
		return 0, err
	}
	return x.Cmp(y), nil
}

var _ Operator = &NUMERICOperator{}

type TIMESTAMPOperator struct {
}

func (t *TIMESTAMPOperator) Compare(l any, r any) (int, error) {
	x, err := datum.ToTime(l)
	if err != nil {
		return 0, err
	}
	y, err := datum.ToTime(r)
	if err != nil {
		return 0, err
	}
	return x.Compare(y), nil
}

var _ Operator = &TIMESTAMPOperator{}

// GenericOperator compares by the Go types of the values.
type GenericOperator struct {
}

func (g *GenericOperator) Compare(l any, r any) (int, error) {
	return datum.Compare(l, r)
}

var _ Operator = &GenericOperator{}
