package eval

import (
	"testing"

	"github.com/mkfoss/dbase3/pkg/parser"
	"github.com/mkfoss/dbase3/pkg/value"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	fields     map[string]Value
	fieldOrder []string
	vars       *VarStore
	recno      int64
	eof        bool
	found      bool
	notedAlias string
}

func newFakeHost() *fakeHost {
	return &fakeHost{fields: map[string]Value{}, vars: NewVarStore(), recno: 1}
}

func (h *fakeHost) FieldValue(name string) (Value, bool) { v, ok := h.fields[name]; return v, ok }
func (h *fakeHost) FieldName(i int) (string, bool) {
	if i < 1 || i > len(h.fieldOrder) {
		return "", false
	}
	return h.fieldOrder[i-1], true
}
func (h *fakeHost) FieldCount() int                      { return len(h.fields) }
func (h *fakeHost) Vars() *VarStore                      { return h.vars }
func (h *fakeHost) RecNo() int64                         { return h.recno }
func (h *fakeHost) RecCount() int64                      { return 10 }
func (h *fakeHost) EOF() bool                            { return h.eof }
func (h *fakeHost) BOF() bool                             { return false }
func (h *fakeHost) Deleted() bool                        { return false }
func (h *fakeHost) Today() value.Value                   { return value.DateValue("20260731") }
func (h *fakeHost) Clock() string                        { return "00:00:00" }
func (h *fakeHost) LastFound() bool                      { return h.found }
func (h *fakeHost) NoteAlias(alias string)                { h.notedAlias = alias }

func evalSrc(t *testing.T, src string, host *fakeHost) Value {
	t.Helper()
	expr, p := parser.ParseExpression(src)
	require.False(t, p.Failed, "parse errors: %v", p.Errors)
	v, err := Eval(expr, host)
	require.NoError(t, err)
	return v
}

func TestArithmeticPrecedence(t *testing.T) {
	v := evalSrc(t, "2 + 3 * 4", newFakeHost())
	require.Equal(t, float64(14), v.AsNumber())
}

func TestStringConcatAndSubtract(t *testing.T) {
	host := newFakeHost()
	require.Equal(t, "AB", evalSrc(t, `"A" + "B"`, host).AsString())
	require.Equal(t, "AB  ", evalSrc(t, `"A " - "B  "`, host).AsString())
}

func TestDollarContainment(t *testing.T) {
	host := newFakeHost()
	require.True(t, evalSrc(t, `"OB" $ "BOB"`, host).AsLogical())
	require.False(t, evalSrc(t, `"XY" $ "BOB"`, host).AsLogical())
}

func TestDivisionByZeroYieldsZero(t *testing.T) {
	host := newFakeHost()
	v, p := parser.ParseExpression("1 / 0")
	require.False(t, p.Failed)
	result, err := Eval(v, host)
	require.Error(t, err)
	require.Equal(t, float64(0), result.AsNumber())
}

func TestDateArithmetic(t *testing.T) {
	host := newFakeHost()
	v := evalSrc(t, `{03/01/26} - {02/27/26}`, host)
	require.Equal(t, float64(2), v.AsNumber())
}

func TestPowerIsRightAssociative(t *testing.T) {
	host := newFakeHost()
	require.Equal(t, float64(512), evalSrc(t, `2 ^ 3 ^ 2`, host).AsNumber())
}

func TestPowerAcceptsFractionalExponent(t *testing.T) {
	host := newFakeHost()
	require.InDelta(t, 1.4142135, evalSrc(t, `2 ^ 0.5`, host).AsNumber(), 1e-6)
}

func TestFieldReturnsFieldName(t *testing.T) {
	host := newFakeHost()
	host.fieldOrder = []string{"NAME", "AGE"}
	host.fields["NAME"] = value.StringValue("John Doe")
	require.Equal(t, "NAME", evalSrc(t, `FIELD(1)`, host).AsString())
	require.Equal(t, "AGE", evalSrc(t, `FIELD(2)`, host).AsString())
	require.Equal(t, "", evalSrc(t, `FIELD(3)`, host).AsString())
}

func TestNestedCallsAndIif(t *testing.T) {
	host := newFakeHost()
	require.Equal(t, "HEL", evalSrc(t, `UPPER(SUBSTR("hello", 1, 3))`, host).AsString())
	require.Equal(t, float64(2), evalSrc(t, `LEN(TRIM("  hi  "))`, host).AsNumber())
	require.Equal(t, float64(10), evalSrc(t, `IIF(5>3, 10, 20)`, host).AsNumber())
}

func TestDatePlusDayAndLeapYearDifference(t *testing.T) {
	host := newFakeHost()
	require.Equal(t, "20240201", evalSrc(t, `{01/31/2024} + 1`, host).AsDate())
	require.Equal(t, float64(1), evalSrc(t, `{03/01/2024} - {02/29/2024}`, host).AsNumber())
}

func TestBuiltinStringFamily(t *testing.T) {
	host := newFakeHost()
	require.Equal(t, "BOB", evalSrc(t, `UPPER("bob")`, host).AsString())
	require.Equal(t, float64(3), evalSrc(t, `LEN("bob")`, host).AsNumber())
	require.Equal(t, "ob", evalSrc(t, `SUBSTR("bob", 2, 2)`, host).AsString())
}

func TestBuiltinArityError(t *testing.T) {
	host := newFakeHost()
	expr, p := parser.ParseExpression(`LEN("a", "b")`)
	require.False(t, p.Failed)
	_, err := Eval(expr, host)
	require.Error(t, err)
}

func TestUndefinedFunctionError(t *testing.T) {
	host := newFakeHost()
	expr, p := parser.ParseExpression(`NOSUCHFUNC(1)`)
	require.False(t, p.Failed)
	_, err := Eval(expr, host)
	require.Error(t, err)
}

func TestIdentResolvesFieldBeforeVariable(t *testing.T) {
	host := newFakeHost()
	host.fields["NAME"] = value.StringValue("from field")
	host.vars.Set("NAME", value.StringValue("from var"))
	v := evalSrc(t, "NAME", host)
	require.Equal(t, "from field", v.AsString())
}

func TestIifAndFound(t *testing.T) {
	host := newFakeHost()
	host.found = true
	require.Equal(t, "yes", evalSrc(t, `IIF(FOUND(), "yes", "no")`, host).AsString())
}

func TestMacroReparsesAsExpression(t *testing.T) {
	host := newFakeHost()
	host.vars.Set("CND", value.StringValue("1 + 2"))
	v := evalSrc(t, "&CND", host)
	require.Equal(t, float64(3), v.AsNumber())
}

func TestMacroFallsBackToLiteralWhenNotAnExpression(t *testing.T) {
	host := newFakeHost()
	host.vars.Set("NOTEXPR", value.StringValue("John Doe"))
	v := evalSrc(t, "&NOTEXPR", host)
	require.Equal(t, "John Doe", v.AsString())
}

func TestFieldRefNotesMismatchedAlias(t *testing.T) {
	host := newFakeHost()
	host.fields["NAME"] = value.StringValue("bob")
	v := evalSrc(t, "OTHER->NAME", host)
	require.Equal(t, "bob", v.AsString())
	require.Equal(t, "OTHER", host.notedAlias)
}

func TestVarStoreScoping(t *testing.T) {
	vs := NewVarStore()
	vs.DeclarePublic([]string{"GX"})
	vs.Set("GX", value.NumberValue(1))
	vs.PushFrame()
	vs.DeclarePrivate([]string{"PX"})
	vs.Set("PX", value.NumberValue(2))
	v, ok := vs.Get("GX")
	require.True(t, ok)
	require.Equal(t, float64(1), v.AsNumber())
	vs.PopFrame()
	_, ok = vs.Get("PX")
	require.False(t, ok, "private var must not survive its frame")
}
