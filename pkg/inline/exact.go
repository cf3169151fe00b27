package inline

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Knetic/govaluate"
	"github.com/shopspring/decimal"

	"github.com/pg-sharding/shardcore/pkg/datum"
)

// errInexact marks expressions the exact evaluator does not handle. They are
// evaluated by govaluate, which computes in float64.
var errInexact = errors.New("expression needs the float evaluator")

// exactEval evaluates arithmetic over the lexed tokens of an expression on
// decimals, so integer keys wider than 53 bits keep every digit. Integer
// operands divide and take remainders the way Go integers do.
type exactEval struct {
	tokens []govaluate.ExpressionToken
	pos    int
	vars   map[string]any
}

func evaluateExact(tokens []govaluate.ExpressionToken, vars map[string]any) (any, error) {
	p := &exactEval{tokens: tokens, vars: vars}
	v, err := p.sum()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, errInexact
	}
	return v, nil
}

func (p *exactEval) peek() (govaluate.ExpressionToken, bool) {
	if p.pos >= len(p.tokens) {
		return govaluate.ExpressionToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *exactEval) modifier(ops ...string) (string, bool) {
	t, ok := p.peek()
	if !ok || t.Kind != govaluate.MODIFIER {
		return "", false
	}
	s, _ := t.Value.(string)
	for _, op := range ops {
		if s == op {
			p.pos++
			return s, true
		}
	}
	return "", false
}

func (p *exactEval) sum() (any, error) {
	l, err := p.product()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.modifier("+", "-")
		if !ok {
			return l, nil
		}
		r, err := p.product()
		if err != nil {
			return nil, err
		}
		if l, err = arith(op, l, r); err != nil {
			return nil, err
		}
	}
}

func (p *exactEval) product() (any, error) {
	l, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.modifier("*", "/", "%")
		if !ok {
			return l, nil
		}
		r, err := p.unary()
		if err != nil {
			return nil, err
		}
		if l, err = arith(op, l, r); err != nil {
			return nil, err
		}
	}
}

func (p *exactEval) unary() (any, error) {
	t, ok := p.peek()
	if ok && t.Kind == govaluate.PREFIX {
		if s, _ := t.Value.(string); s == "-" {
			p.pos++
			v, err := p.unary()
			if err != nil {
				return nil, err
			}
			d, ok := toNumber(v)
			if !ok {
				return nil, errInexact
			}
			return d.Neg(), nil
		}
		return nil, errInexact
	}
	return p.primary()
}

func (p *exactEval) primary() (any, error) {
	t, ok := p.peek()
	if !ok {
		return nil, errInexact
	}
	p.pos++

	switch t.Kind {
	case govaluate.NUMERIC:
		f, ok := t.Value.(float64)
		if !ok {
			return nil, errInexact
		}
		return decimal.NewFromFloat(f), nil
	case govaluate.STRING:
		return t.Value, nil
	case govaluate.VARIABLE:
		name, _ := t.Value.(string)
		v, ok := p.vars[name]
		if !ok {
			return nil, errInexact
		}
		return variable(v)
	case govaluate.CLAUSE:
		v, err := p.sum()
		if err != nil {
			return nil, err
		}
		if c, ok := p.peek(); !ok || c.Kind != govaluate.CLAUSE_CLOSE {
			return nil, errInexact
		}
		p.pos++
		return v, nil
	case govaluate.FUNCTION:
		fn, ok := t.Value.(govaluate.ExpressionFunction)
		if !ok {
			return nil, errInexact
		}
		return p.call(fn)
	}
	return nil, errInexact
}

func (p *exactEval) call(fn govaluate.ExpressionFunction) (any, error) {
	if c, ok := p.peek(); !ok || c.Kind != govaluate.CLAUSE {
		return nil, errInexact
	}
	p.pos++

	var args []any
	for {
		if c, ok := p.peek(); ok && c.Kind == govaluate.CLAUSE_CLOSE {
			p.pos++
			break
		}
		if len(args) > 0 {
			if c, ok := p.peek(); !ok || c.Kind != govaluate.SEPARATOR {
				return nil, errInexact
			}
			p.pos++
		}
		v, err := p.sum()
		if err != nil {
			return nil, err
		}
		args = append(args, funcArg(v))
	}

	res, err := fn(args...)
	if err != nil {
		return nil, err
	}
	return variable(res)
}

// variable turns a column value into an operand: numbers become decimals,
// text stays text.
func variable(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case decimal.Decimal:
		return t, nil
	}
	if datum.IsNumeric(v) {
		d, err := datum.ToDecimal(v)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, errInexact
}

func toNumber(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case string:
		d, err := decimal.NewFromString(t)
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

// funcArg hands integral decimals that fit to functions as int64.
func funcArg(v any) any {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return v
	}
	if d.IsInteger() && d.BigInt().IsInt64() {
		return d.IntPart()
	}
	return d
}

func arith(op string, lv, rv any) (any, error) {
	l, ok := toNumber(lv)
	if !ok {
		return nil, errInexact
	}
	r, ok := toNumber(rv)
	if !ok {
		return nil, errInexact
	}
	integral := l.IsInteger() && r.IsInteger()

	switch op {
	case "+":
		return l.Add(r), nil
	case "-":
		return l.Sub(r), nil
	case "*":
		return l.Mul(r), nil
	case "/":
		if r.IsZero() {
			return nil, fmt.Errorf("division by zero")
		}
		if integral {
			q, _ := l.QuoRem(r, 0)
			return q, nil
		}
		return l.Div(r), nil
	case "%":
		if r.IsZero() {
			return nil, fmt.Errorf("modulo by zero")
		}
		if integral {
			_, rem := l.QuoRem(r, 0)
			return rem, nil
		}
		return l.Mod(r), nil
	}
	return nil, errInexact
}

func formatExact(v any) string {
	switch t := v.(type) {
	case decimal.Decimal:
		if t.IsInteger() {
			return t.BigInt().String()
		}
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return datum.ToString(v)
}
