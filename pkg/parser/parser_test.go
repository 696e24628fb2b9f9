package parser

import (
	"testing"

	"github.com/mkfoss/dbase3/pkg/ast"
	"github.com/stretchr/testify/require"
)

func TestParseExprPrecedence(t *testing.T) {
	expr, p := ParseExpression("1 + 2 * 3")
	require.False(t, p.Failed)
	bin, ok := expr.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, "+", bin.Op)
	rhs, ok := bin.Y.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, "*", rhs.Op)
}

func TestParsePowerIsRightAssociative(t *testing.T) {
	expr, p := ParseExpression("2 ^ 3 ^ 2")
	require.False(t, p.Failed)
	top := expr.(*ast.Binary)
	require.Equal(t, "^", top.Op)
	_, ok := top.Y.(*ast.Binary)
	require.True(t, ok, "right side should still be a power expression")
}

func TestParseFieldRef(t *testing.T) {
	expr, p := ParseExpression("CUSTOMER->NAME")
	require.False(t, p.Failed)
	ref, ok := expr.(*ast.FieldRef)
	require.True(t, ok)
	require.Equal(t, "CUSTOMER", ref.Alias)
	require.Equal(t, "NAME", ref.Field)
}

func TestParseFunctionCall(t *testing.T) {
	expr, p := ParseExpression(`UPPER(TRIM(NAME))`)
	require.False(t, p.Failed)
	call, ok := expr.(*ast.Ident)
	require.True(t, ok)
	require.Equal(t, "UPPER", call.Name)
	require.Len(t, call.Args, 1)
}

func TestParseReplaceCommand(t *testing.T) {
	cmd, p := ParseLine(`REPLACE NAME WITH "BOB", AGE WITH AGE + 1 ALL FOR AGE > 18`)
	require.False(t, p.Failed)
	rep, ok := cmd.(*ast.Replace)
	require.True(t, ok)
	require.Len(t, rep.Sets, 2)
	require.Equal(t, ast.ScopeAll, rep.Scope.Kind)
	require.NotNil(t, rep.Scope.For)
}

func TestParseIndexOnCommand(t *testing.T) {
	cmd, p := ParseLine(`INDEX ON NAME TO names UNIQUE`)
	require.False(t, p.Failed)
	idx, ok := cmd.(*ast.IndexOn)
	require.True(t, ok)
	require.Equal(t, "names", idx.To)
	require.True(t, idx.Unique)
}

func TestParseStoreCommand(t *testing.T) {
	cmd, p := ParseLine(`STORE 1 + 1 TO counter`)
	require.False(t, p.Failed)
	store, ok := cmd.(*ast.Store)
	require.True(t, ok)
	require.Equal(t, []string{"counter"}, store.To)
}

func TestParseStoreToMultipleNames(t *testing.T) {
	cmd, p := ParseLine(`STORE 0 TO total, count, high`)
	require.False(t, p.Failed)
	store := cmd.(*ast.Store)
	require.Equal(t, []string{"total", "count", "high"}, store.To)
}

func TestSyntaxErrorSetsFailed(t *testing.T) {
	_, p := ParseLine(`REPLACE NAME "BOB"`)
	require.True(t, p.Failed)
}

func TestParseLocateFor(t *testing.T) {
	cmd, p := ParseLine(`LOCATE FOR AGE > 30`)
	require.False(t, p.Failed)
	loc, ok := cmd.(*ast.LocateFor)
	require.True(t, ok)
	require.NotNil(t, loc.Scope.For)
}

func TestParseCreateWithFieldList(t *testing.T) {
	cmd, p := ParseLine(`CREATE people (NAME C(20), AGE N(3,0), ACTIVE L(1))`)
	require.False(t, p.Failed)
	create, ok := cmd.(*ast.CreateTable)
	require.True(t, ok)
	require.Equal(t, "people", create.Path)
	require.Len(t, create.Fields, 3)
	require.Equal(t, ast.FieldSpec{Name: "NAME", Type: 'C', Length: 20}, create.Fields[0])
	require.Equal(t, ast.FieldSpec{Name: "AGE", Type: 'N', Length: 3, Decimals: 0}, create.Fields[1])
	require.Equal(t, ast.FieldSpec{Name: "ACTIVE", Type: 'L', Length: 1}, create.Fields[2])
}

func TestParseCreateWithoutParens(t *testing.T) {
	cmd, p := ParseLine(`CREATE people NAME C(20), AGE N(3,0)`)
	require.False(t, p.Failed)
	create := cmd.(*ast.CreateTable)
	require.Len(t, create.Fields, 2)
}

func TestParsePrint(t *testing.T) {
	cmd, p := ParseLine(`? "hi", 1 + 2`)
	require.False(t, p.Failed)
	pr, ok := cmd.(*ast.Print)
	require.True(t, ok)
	require.True(t, pr.NewLine)
	require.Len(t, pr.Exprs, 2)
}

func TestParseNotEqualOperator(t *testing.T) {
	expr, p := ParseExpression(`AGE != 30`)
	require.False(t, p.Failed)
	bin, ok := expr.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, "<>", bin.Op)
}

func TestParseDottedYesNoLiterals(t *testing.T) {
	expr, p := ParseExpression(`.Y.`)
	require.False(t, p.Failed)
	require.Equal(t, &ast.Logical{Value: true}, expr)

	expr, p = ParseExpression(`.N.`)
	require.False(t, p.Failed)
	require.Equal(t, &ast.Logical{Value: false}, expr)
}

func TestParseLocalCommand(t *testing.T) {
	cmd, p := ParseLine(`LOCAL counter, total`)
	require.False(t, p.Failed)
	decl, ok := cmd.(*ast.Scoping)
	require.True(t, ok)
	require.Equal(t, ast.DeclLocal, decl.Kind)
	require.Equal(t, []string{"counter", "total"}, decl.Names)
}

func TestParseDoWhile(t *testing.T) {
	cmd, p := ParseLine(`DO WHILE I < 5
STORE I + 1 TO I
ENDDO`)
	require.False(t, p.Failed)
	loop, ok := cmd.(*ast.DoWhile)
	require.True(t, ok)
	require.NotNil(t, loop.Cond)
	require.Len(t, loop.Body, 1)
}

func TestParseSayGet(t *testing.T) {
	cmd, p := ParseLine(`@ 1,2 SAY "Name:" GET NAME`)
	require.False(t, p.Failed)
	sg, ok := cmd.(*ast.SayGet)
	require.True(t, ok)
	require.NotNil(t, sg.Say)
	require.Equal(t, "NAME", sg.Get)
}
