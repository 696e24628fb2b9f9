// Package eval walks a pkg/ast expression tree and produces pkg/value
// Values, dispatching function calls to a built-in table (spec.md §4.5).
package eval

import (
	"math"

	"github.com/mkfoss/dbase3/pkg/ast"
	"github.com/mkfoss/dbase3/pkg/dbferr"
	"github.com/mkfoss/dbase3/pkg/parser"
	"github.com/mkfoss/dbase3/pkg/value"
)

// Value is the evaluator's result type; aliased so callers of this
// package don't need a second import for the common case.
type Value = value.Value

// Host supplies the current-table and variable-store access the
// evaluator needs to resolve IDENT, FIELD, and macro nodes. pkg/exec's
// interpreter context implements it.
type Host interface {
	FieldValue(name string) (Value, bool)
	FieldName(i int) (string, bool) // 1-based, for FIELD(n)
	FieldCount() int
	Vars() *VarStore

	RecNo() int64
	RecCount() int64
	EOF() bool
	BOF() bool
	Deleted() bool
	Today() value.Value
	Clock() string
	LastFound() bool
	NoteAlias(alias string)
}

// Eval walks expr against host, returning the resulting Value or an
// *dbferr.Error describing why evaluation failed (undefined function,
// wrong arity, division by zero). Division or modulo by zero returns a
// 0 value together with the division-by-zero error — see applyBinary.
func Eval(expr ast.Expr, host Host) (Value, error) {
	switch n := expr.(type) {
	case *ast.Number:
		return value.NumberValue(parseNum(n.Text)), nil
	case *ast.StringLit:
		return value.StringValue(n.Value), nil
	case *ast.DateLit:
		return evalDateLit(n.Text), nil
	case *ast.Logical:
		return value.LogicalValue(n.Value), nil
	case *ast.Macro:
		return evalMacro(n, host)
	case *ast.FieldRef:
		// spec.md §4.5: alias is evaluated as a name but currently
		// ignored; only the current table's fields are consulted. A
		// mismatched alias is surfaced via Host.NoteAlias instead of
		// being silently swallowed (spec.md §9 open question).
		host.NoteAlias(n.Alias)
		if v, ok := host.FieldValue(n.Field); ok {
			return v, nil
		}
		return value.NilValue(), nil
	case *ast.ArrayRef:
		return evalArrayRef(n, host)
	case *ast.Ident:
		if n.Args != nil {
			return evalCall(n, host)
		}
		return evalIdent(n.Name, host)
	case *ast.Unary:
		return evalUnary(n, host)
	case *ast.Binary:
		return evalBinary(n, host)
	}
	return value.NilValue(), dbferr.New(dbferr.Internal, "unknown expression node")
}

func evalIdent(name string, host Host) (Value, error) {
	if v, ok := host.FieldValue(name); ok {
		return v, nil
	}
	if v, ok := host.Vars().Get(name); ok {
		return v, nil
	}
	return value.StringValue(""), nil
}

func evalArrayRef(n *ast.ArrayRef, host Host) (Value, error) {
	base, ok := host.Vars().Get(n.Name)
	if !ok {
		return value.NilValue(), dbferr.New(dbferr.UndefinedVariable, n.Name)
	}
	idxVal, err := Eval(n.Index, host)
	if err != nil {
		return value.NilValue(), err
	}
	items := base.AsArray()
	idx := int(idxVal.AsNumber())
	if idx < 1 || idx > len(items) {
		return value.NilValue(), nil
	}
	return items[idx-1], nil
}

// evalMacro substitutes &name with the named variable's text, re-tokenizes
// and re-parses that text as a standalone expression, and evaluates the
// result (spec.md §9 open question, decided in DESIGN.md: re-parse scope
// is expression-only, not whole-command). A variable holding plain text
// that isn't a valid expression (e.g. a name with embedded spaces) falls
// back to its literal string value rather than failing the command.
func evalMacro(n *ast.Macro, host Host) (Value, error) {
	v, ok := host.Vars().Get(n.Name)
	if !ok {
		return value.StringValue(""), nil
	}
	text := v.AsString()
	expr, p := parser.ParseExpression(text)
	if p.Failed || expr == nil {
		return value.StringValue(text), nil
	}
	return Eval(expr, host)
}

func evalUnary(n *ast.Unary, host Host) (Value, error) {
	x, err := Eval(n.X, host)
	if err != nil {
		return value.NilValue(), err
	}
	switch n.Op {
	case "NOT":
		return value.LogicalValue(!x.AsLogical()), nil
	case "-":
		return value.NumberValue(-x.AsNumber()), nil
	case "+":
		return value.NumberValue(x.AsNumber()), nil
	}
	return value.NilValue(), dbferr.New(dbferr.Internal, "unknown unary operator "+n.Op)
}

func evalBinary(n *ast.Binary, host Host) (Value, error) {
	x, err := Eval(n.X, host)
	if err != nil {
		return value.NilValue(), err
	}
	y, err := Eval(n.Y, host)
	if err != nil {
		return value.NilValue(), err
	}
	return applyBinary(n.Op, x, y)
}

func applyBinary(op string, x, y Value) (Value, error) {
	switch op {
	case "AND":
		return value.LogicalValue(x.AsLogical() && y.AsLogical()), nil
	case "OR":
		return value.LogicalValue(x.AsLogical() || y.AsLogical()), nil
	case "$":
		return value.LogicalValue(containsString(y.AsString(), x.AsString())), nil
	case "=":
		return value.LogicalValue(valuesEqual(x, y)), nil
	case "<>":
		return value.LogicalValue(!valuesEqual(x, y)), nil
	case "<", "<=", ">", ">=":
		return compareOrdered(op, x, y)
	case "+":
		return addValues(x, y)
	case "-":
		return subValues(x, y)
	case "*":
		return value.NumberValue(x.AsNumber() * y.AsNumber()), nil
	case "/":
		if y.AsNumber() == 0 {
			return value.NumberValue(0), dbferr.New(dbferr.DivisionByZero, "division by zero")
		}
		return value.NumberValue(x.AsNumber() / y.AsNumber()), nil
	case "%":
		if y.AsNumber() == 0 {
			return value.NumberValue(0), dbferr.New(dbferr.DivisionByZero, "modulo by zero")
		}
		return value.NumberValue(mod(x.AsNumber(), y.AsNumber())), nil
	case "^":
		return value.NumberValue(math.Pow(x.AsNumber(), y.AsNumber())), nil
	}
	return value.NilValue(), dbferr.New(dbferr.Internal, "unknown binary operator "+op)
}

func containsString(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

func mod(a, b float64) float64 {
	r := a - b*float64(int64(a/b))
	return r
}

func addValues(x, y Value) (Value, error) {
	switch {
	case x.Kind() == value.String && y.Kind() == value.String:
		return value.StringValue(x.AsString() + y.AsString()), nil
	case x.Kind() == value.Date && y.Kind() == value.Number:
		return x.AddDays(int64(y.AsNumber())), nil
	case x.Kind() == value.Number && y.Kind() == value.Date:
		return y.AddDays(int64(x.AsNumber())), nil
	default:
		return value.NumberValue(x.AsNumber() + y.AsNumber()), nil
	}
}

func subValues(x, y Value) (Value, error) {
	switch {
	case x.Kind() == value.String && y.Kind() == value.String:
		// dBASE rule: RTRIM the left operand, then concatenate; the
		// left operand's trailing blanks are dropped, not moved after
		// the right operand.
		return value.StringValue(trimRight(x.AsString()) + y.AsString()), nil
	case x.Kind() == value.Date && y.Kind() == value.Date:
		return value.NumberValue(float64(x.DaysSince(y))), nil
	case x.Kind() == value.Date && y.Kind() == value.Number:
		return x.AddDays(-int64(y.AsNumber())), nil
	default:
		return value.NumberValue(x.AsNumber() - y.AsNumber()), nil
	}
}

func trimRight(s string) string {
	end := len(s)
	for end > 0 && s[end-1] == ' ' {
		end--
	}
	return s[:end]
}

func valuesEqual(x, y Value) bool {
	if x.Kind() == value.String && y.Kind() == value.String {
		return trimRight(x.AsString()) == trimRight(y.AsString())
	}
	if x.Kind() == value.Number && y.Kind() == value.Number {
		return x.AsNumber() == y.AsNumber()
	}
	if x.Kind() == value.Logical && y.Kind() == value.Logical {
		return x.AsLogical() == y.AsLogical()
	}
	return x.String() == y.String()
}

func compareOrdered(op string, x, y Value) (Value, error) {
	var less, greater bool
	switch {
	case x.Kind() == value.Number || y.Kind() == value.Number:
		less, greater = x.AsNumber() < y.AsNumber(), x.AsNumber() > y.AsNumber()
	default:
		xs, ys := x.AsString(), y.AsString()
		less, greater = xs < ys, xs > ys
	}
	switch op {
	case "<":
		return value.LogicalValue(less), nil
	case "<=":
		return value.LogicalValue(less || !greater), nil
	case ">":
		return value.LogicalValue(greater), nil
	case ">=":
		return value.LogicalValue(greater || !less), nil
	}
	return value.NilValue(), dbferr.New(dbferr.Internal, "unknown comparison "+op)
}

func parseNum(text string) float64 {
	v := value.StringValue(text)
	return v.AsNumber()
}

func evalDateLit(text string) Value {
	if text == "" {
		return value.NilValue()
	}
	return value.DateFromSlashed(text)
}
