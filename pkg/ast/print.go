package ast

import "strconv"

// ExprText renders e back to source text good enough to re-parse with
// pkg/parser.ParseExpression: used to persist an INDEX ON key expression
// in the XDX header (spec.md §4.6) so REINDEX can rebuild the same key
// without the executor separately remembering the original AST.
func ExprText(e Expr) string {
	switch n := e.(type) {
	case nil:
		return ""
	case *Number:
		return n.Text
	case *StringLit:
		return `"` + n.Value + `"`
	case *DateLit:
		return "{" + n.Text + "}"
	case *Logical:
		if n.Value {
			return ".T."
		}
		return ".F."
	case *Ident:
		if n.Args == nil {
			return n.Name
		}
		s := n.Name + "("
		for i, a := range n.Args {
			if i > 0 {
				s += ", "
			}
			s += ExprText(a)
		}
		return s + ")"
	case *FieldRef:
		return n.Alias + "->" + n.Field
	case *ArrayRef:
		return n.Name + "[" + ExprText(n.Index) + "]"
	case *Macro:
		return "&" + n.Name
	case *Unary:
		if n.Op == "NOT" {
			return ".NOT. " + ExprText(n.X)
		}
		return n.Op + ExprText(n.X)
	case *Binary:
		op := n.Op
		if op == "AND" {
			op = ".AND."
		} else if op == "OR" {
			op = ".OR."
		}
		return "(" + ExprText(n.X) + " " + op + " " + ExprText(n.Y) + ")"
	default:
		return strconv.Quote("unsupported expression")
	}
}
