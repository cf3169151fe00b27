// Package inline implements the compact expressions used in sharding
// configuration: "ds_${0..1}.t_order_${['a','b']}" enumerates data nodes and
// "t_order_${order_id % 2}" names the target for a sharding value.
package inline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"

	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/pkg/models/hashfunction"
)

type segment struct {
	literal string
	expr    string
	isExpr  bool
}

// split cuts expr into literal text and ${...} / $->{...} placeholders.
func split(expr string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder

	for i := 0; i < len(expr); {
		open := 0
		if strings.HasPrefix(expr[i:], "${") {
			open = 2
		} else if strings.HasPrefix(expr[i:], "$->{") {
			open = 4
		}
		if open == 0 {
			lit.WriteByte(expr[i])
			i++
			continue
		}

		depth := 1
		j := i + open
		for ; j < len(expr) && depth > 0; j++ {
			switch expr[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
		}
		if depth != 0 {
			return nil, fmt.Errorf("unterminated placeholder in inline expression %q", expr)
		}
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
		segs = append(segs, segment{expr: strings.TrimSpace(expr[i+open : j-1]), isExpr: true})
		i = j
	}
	if lit.Len() > 0 {
		segs = append(segs, segment{literal: lit.String()})
	}
	return segs, nil
}

// splitTopLevel splits on commas that are not inside a placeholder.
func splitTopLevel(expr string) []string {
	var res []string
	depth := 0
	start := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				res = append(res, strings.TrimSpace(expr[start:i]))
				start = i + 1
			}
		}
	}
	return append(res, strings.TrimSpace(expr[start:]))
}

// Expand enumerates every name an expression describes, in declaration
// order, the leftmost placeholder varying slowest.
func Expand(expr string) ([]string, error) {
	var res []string
	for _, part := range splitTopLevel(expr) {
		if part == "" {
			continue
		}
		segs, err := split(part)
		if err != nil {
			return nil, err
		}
		names := []string{""}
		for _, s := range segs {
			var choices []string
			if s.isExpr {
				if choices, err = expandPlaceholder(s.expr); err != nil {
					return nil, err
				}
			} else {
				choices = []string{s.literal}
			}
			next := make([]string, 0, len(names)*len(choices))
			for _, prefix := range names {
				for _, c := range choices {
					next = append(next, prefix+c)
				}
			}
			names = next
		}
		res = append(res, names...)
	}
	return res, nil
}

func expandPlaceholder(expr string) ([]string, error) {
	if lo, hi, ok := strings.Cut(expr, ".."); ok {
		from, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range placeholder ${%s}: %w", expr, err)
		}
		to, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid range placeholder ${%s}: %w", expr, err)
		}
		width := 0
		if t := strings.TrimSpace(lo); len(t) > 1 && t[0] == '0' {
			width = len(t)
		}
		step := int64(1)
		if to < from {
			step = -1
		}
		var res []string
		for v := from; ; v += step {
			res = append(res, fmt.Sprintf("%0*d", width, v))
			if v == to {
				break
			}
		}
		return res, nil
	}
	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		var res []string
		for _, item := range strings.Split(expr[1:len(expr)-1], ",") {
			item = strings.Trim(strings.TrimSpace(item), `'"`)
			if item != "" {
				res = append(res, item)
			}
		}
		return res, nil
	}
	return nil, fmt.Errorf("unsupported placeholder ${%s} in data node expression", expr)
}

// Expression is a compiled inline sharding expression.
type Expression struct {
	source   string
	segments []segment
	compiled []*govaluate.EvaluableExpression
	exact    []*govaluate.EvaluableExpression
}

// exactFunctions return decimals. functions wraps them for govaluate, which
// only computes on float64.
var (
	exactFunctions = map[string]govaluate.ExpressionFunction{
		"mod": func(args ...any) (any, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("mod expects 2 arguments, got %d", len(args))
			}
			a, err := datum.ToDecimal(args[0])
			if err != nil {
				return nil, err
			}
			b, err := datum.ToDecimal(args[1])
			if err != nil {
				return nil, err
			}
			if b.IsZero() {
				return nil, fmt.Errorf("mod by zero")
			}
			_, rem := a.Truncate(0).QuoRem(b.Truncate(0), 0)
			return rem, nil
		},
		"hash": func(args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("hash expects 1 argument, got %d", len(args))
			}
			h, err := hashfunction.ApplyHashFunction(args[0], hashfunction.HashFunctionMurmur)
			if err != nil {
				return nil, err
			}
			return datum.ToDecimal(h)
		},
	}
	functions = floatFunctions(exactFunctions)
)

func floatFunctions(fns map[string]govaluate.ExpressionFunction) map[string]govaluate.ExpressionFunction {
	res := make(map[string]govaluate.ExpressionFunction, len(fns))
	for name, fn := range fns {
		res[name] = func(args ...any) (any, error) {
			v, err := fn(args...)
			if err != nil {
				return nil, err
			}
			return datum.ToFloat64(v)
		}
	}
	return res
}

// Compile parses an inline sharding expression such as "t_order_${order_id % 2}".
func Compile(expr string) (*Expression, error) {
	segs, err := split(expr)
	if err != nil {
		return nil, err
	}
	e := &Expression{
		source:   expr,
		segments: segs,
		compiled: make([]*govaluate.EvaluableExpression, len(segs)),
		exact:    make([]*govaluate.EvaluableExpression, len(segs)),
	}
	for i, s := range segs {
		if !s.isExpr {
			continue
		}
		ee, err := govaluate.NewEvaluableExpressionWithFunctions(s.expr, functions)
		if err != nil {
			return nil, fmt.Errorf("invalid inline expression %q: %w", expr, err)
		}
		e.compiled[i] = ee
		if e.exact[i], err = govaluate.NewEvaluableExpressionWithFunctions(s.expr, exactFunctions); err != nil {
			return nil, fmt.Errorf("invalid inline expression %q: %w", expr, err)
		}
	}
	return e, nil
}

func (e *Expression) String() string {
	return e.source
}

// Variables lists parameter names referenced by the expression.
func (e *Expression) Variables() []string {
	var res []string
	for _, c := range e.compiled {
		if c != nil {
			res = append(res, c.Vars()...)
		}
	}
	return res
}

// Evaluate renders the expression for the given column values.
func (e *Expression) Evaluate(vars map[string]any) (string, error) {
	params := make(map[string]any, len(vars))
	for k, v := range vars {
		params[k] = toParam(v)
	}

	var sb strings.Builder
	for i, s := range e.segments {
		if !s.isExpr {
			sb.WriteString(s.literal)
			continue
		}
		v, err := evaluateExact(e.exact[i].Tokens(), vars)
		if err == nil {
			sb.WriteString(formatExact(v))
			continue
		}
		if !errors.Is(err, errInexact) {
			return "", fmt.Errorf("evaluate %q: %w", e.source, err)
		}
		v, err = e.compiled[i].Evaluate(params)
		if err != nil {
			return "", fmt.Errorf("evaluate %q: %w", e.source, err)
		}
		sb.WriteString(format(v))
	}
	return sb.String(), nil
}

// toParam converts numbers to float64, the only numeric type the evaluator
// does arithmetic on.
func toParam(v any) any {
	switch t := v.(type) {
	case string, bool, float64:
		return v
	case []byte:
		return string(t)
	}
	if datum.IsNumeric(v) {
		if f, err := datum.ToFloat64(v); err == nil {
			return f
		}
	}
	return datum.ToString(v)
}

func format(v any) string {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10)
	}
	return datum.ToString(v)
}
