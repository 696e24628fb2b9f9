package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mkfoss/dbase3/pkg/ast"
	"github.com/mkfoss/dbase3/pkg/dbferr"
	"github.com/mkfoss/dbase3/pkg/value"
)

type builtin struct {
	minArgs, maxArgs int
	fn               func(args []Value, host Host) (Value, error)
}

// builtins is the case-insensitive dispatch table described in spec.md
// §4.5: string, numeric, conversion, date, type, table, and misc
// families, matched by name and checked against min..max arity.
var builtins map[string]builtin

func init() {
	builtins = map[string]builtin{
		// string family
		"LEN":       {1, 1, fnLen},
		"TRIM":      {1, 1, fnTrim},
		"ALLTRIM":   {1, 1, fnTrim},
		"LTRIM":     {1, 1, fnLTrim},
		"RTRIM":     {1, 1, fnRTrim},
		"UPPER":     {1, 1, fnUpper},
		"LOWER":     {1, 1, fnLower},
		"SUBSTR":    {2, 3, fnSubstr},
		"LEFT":      {2, 2, fnLeft},
		"RIGHT":     {2, 2, fnRight},
		"AT":        {2, 2, fnAt},
		"SPACE":     {1, 1, fnSpace},
		"REPLICATE": {2, 2, fnReplicate},
		"STUFF":     {4, 4, fnStuff},
		"CHR":       {1, 1, fnChr},
		"ASC":       {1, 1, fnAsc},

		// numeric family
		"ABS":   {1, 1, fnAbs},
		"INT":   {1, 1, fnInt},
		"ROUND": {2, 2, fnRound},
		"SQRT":  {1, 1, fnSqrt},
		"MOD":   {2, 2, fnMod},
		"MAX":   {2, 2, fnMax},
		"MIN":   {2, 2, fnMin},
		"LOG":   {1, 1, fnLog},
		"EXP":   {1, 1, fnExp},

		// conversion family
		"STR": {1, 3, fnStr},
		"VAL": {1, 1, fnVal},

		// date family
		"DATE":  {0, 0, fnDate},
		"YEAR":  {1, 1, fnYear},
		"MONTH": {1, 1, fnMonth},
		"DAY":   {1, 1, fnDay},
		"DOW":   {1, 1, fnDow},
		"CDOW":  {1, 1, fnCDow},
		"CMONTH": {1, 1, fnCMonth},
		"DTOC":  {1, 1, fnDtoc},
		"CTOD":  {1, 1, fnCtod},

		// type family
		"TYPE":     {1, 1, fnType},
		"EMPTY":    {1, 1, fnEmpty},
		"ISALPHA":  {1, 1, fnIsAlpha},
		"ISDIGIT":  {1, 1, fnIsDigit},
		"ISUPPER":  {1, 1, fnIsUpper},
		"ISLOWER":  {1, 1, fnIsLower},

		// table family
		"RECNO":    {0, 0, fnRecno},
		"RECCOUNT": {0, 0, fnReccount},
		"LASTREC":  {0, 0, fnReccount},
		"EOF":      {0, 0, fnEof},
		"BOF":      {0, 0, fnBof},
		"DELETED":  {0, 0, fnDeleted},
		"FCOUNT":   {0, 0, fnFcount},
		"FIELD":    {1, 1, fnField},
		"FOUND":    {0, 0, fnFound},

		// misc family
		"IIF":  {3, 3, fnIif},
		"TIME": {0, 0, fnTime},
	}
}

func evalCall(n *ast.Ident, host Host) (Value, error) {
	b, ok := builtins[strings.ToUpper(n.Name)]
	if !ok {
		return value.NilValue(), dbferr.New(dbferr.UndefinedFunction, n.Name)
	}
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, host)
		if err != nil {
			return value.NilValue(), err
		}
		args[i] = v
	}
	if len(args) < b.minArgs || len(args) > b.maxArgs {
		return value.NilValue(), dbferr.New(dbferr.Syntax, n.Name+": wrong number of arguments")
	}
	return b.fn(args, host)
}

// --- string family -------------------------------------------------

func fnLen(a []Value, _ Host) (Value, error) { return value.NumberValue(float64(len(a[0].AsString()))), nil }
func fnTrim(a []Value, _ Host) (Value, error) {
	return value.StringValue(strings.TrimSpace(a[0].AsString())), nil
}
func fnLTrim(a []Value, _ Host) (Value, error) {
	return value.StringValue(strings.TrimLeft(a[0].AsString(), " ")), nil
}
func fnRTrim(a []Value, _ Host) (Value, error) {
	return value.StringValue(strings.TrimRight(a[0].AsString(), " ")), nil
}
func fnUpper(a []Value, _ Host) (Value, error) { return value.StringValue(strings.ToUpper(a[0].AsString())), nil }
func fnLower(a []Value, _ Host) (Value, error) { return value.StringValue(strings.ToLower(a[0].AsString())), nil }

func fnSubstr(a []Value, _ Host) (Value, error) {
	s := a[0].AsString()
	start := int(a[1].AsNumber())
	length := len(s)
	if len(a) == 3 {
		length = int(a[2].AsNumber())
	}
	return value.StringValue(substr(s, start, length)), nil
}

func substr(s string, start, length int) string {
	if start < 1 {
		start = 1
	}
	if start > len(s) || length <= 0 {
		return ""
	}
	end := start - 1 + length
	if end > len(s) {
		end = len(s)
	}
	return s[start-1 : end]
}

func fnLeft(a []Value, _ Host) (Value, error) {
	s := a[0].AsString()
	n := int(a[1].AsNumber())
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	return value.StringValue(s[:n]), nil
}

func fnRight(a []Value, _ Host) (Value, error) {
	s := a[0].AsString()
	n := int(a[1].AsNumber())
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	return value.StringValue(s[len(s)-n:]), nil
}

func fnAt(a []Value, _ Host) (Value, error) {
	needle, haystack := a[0].AsString(), a[1].AsString()
	return value.NumberValue(float64(indexOf(haystack, needle) + 1)), nil
}

func fnSpace(a []Value, _ Host) (Value, error) {
	n := int(a[0].AsNumber())
	if n < 0 {
		n = 0
	}
	return value.StringValue(strings.Repeat(" ", n)), nil
}

func fnReplicate(a []Value, _ Host) (Value, error) {
	n := int(a[1].AsNumber())
	if n < 0 {
		n = 0
	}
	return value.StringValue(strings.Repeat(a[0].AsString(), n)), nil
}

func fnStuff(a []Value, _ Host) (Value, error) {
	s := a[0].AsString()
	start := int(a[1].AsNumber())
	length := int(a[2].AsNumber())
	repl := a[3].AsString()
	if start < 1 {
		start = 1
	}
	if start > len(s)+1 {
		start = len(s) + 1
	}
	end := start - 1 + length
	if end > len(s) {
		end = len(s)
	}
	if end < start-1 {
		end = start - 1
	}
	return value.StringValue(s[:start-1] + repl + s[end:]), nil
}

func fnChr(a []Value, _ Host) (Value, error) {
	return value.StringValue(string(rune(int(a[0].AsNumber())))), nil
}

func fnAsc(a []Value, _ Host) (Value, error) {
	s := a[0].AsString()
	if s == "" {
		return value.NumberValue(0), nil
	}
	return value.NumberValue(float64(s[0])), nil
}

// --- numeric family --------------------------------------------------

func fnAbs(a []Value, _ Host) (Value, error) { return value.NumberValue(math.Abs(a[0].AsNumber())), nil }
func fnInt(a []Value, _ Host) (Value, error) { return value.NumberValue(math.Floor(a[0].AsNumber())), nil }

func fnRound(a []Value, _ Host) (Value, error) {
	n, places := a[0].AsNumber(), int(a[1].AsNumber())
	mult := math.Pow(10, float64(places))
	return value.NumberValue(math.Round(n*mult) / mult), nil
}

func fnSqrt(a []Value, _ Host) (Value, error) {
	n := a[0].AsNumber()
	if n < 0 {
		return value.NumberValue(0), nil
	}
	return value.NumberValue(math.Sqrt(n)), nil
}

func fnMod(a []Value, _ Host) (Value, error) {
	x, y := a[0].AsNumber(), a[1].AsNumber()
	if y == 0 {
		return value.NumberValue(0), dbferr.New(dbferr.DivisionByZero, "MOD by zero")
	}
	return value.NumberValue(mod(x, y)), nil
}

func fnMax(a []Value, _ Host) (Value, error) {
	if a[0].AsNumber() >= a[1].AsNumber() {
		return a[0], nil
	}
	return a[1], nil
}

func fnMin(a []Value, _ Host) (Value, error) {
	if a[0].AsNumber() <= a[1].AsNumber() {
		return a[0], nil
	}
	return a[1], nil
}

func fnLog(a []Value, _ Host) (Value, error) {
	n := a[0].AsNumber()
	if n <= 0 {
		return value.NumberValue(0), nil
	}
	return value.NumberValue(math.Log(n)), nil
}

func fnExp(a []Value, _ Host) (Value, error) { return value.NumberValue(math.Exp(a[0].AsNumber())), nil }

// --- conversion family -------------------------------------------------

func fnStr(a []Value, _ Host) (Value, error) {
	n := a[0].AsNumber()
	width := 10
	if len(a) >= 2 {
		width = int(a[1].AsNumber())
	}
	decimals := 0
	if len(a) == 3 {
		decimals = int(a[2].AsNumber())
	}
	s := strconv.FormatFloat(n, 'f', decimals, 64)
	if len(s) < width {
		s = strings.Repeat(" ", width-len(s)) + s
	}
	return value.StringValue(s), nil
}

func fnVal(a []Value, _ Host) (Value, error) { return value.NumberValue(a[0].AsNumber()), nil }

// --- date family -------------------------------------------------------

func fnDate(_ []Value, host Host) (Value, error) { return host.Today(), nil }

func dateParts(a Value) (y, m, d int) {
	s := a.AsDate()
	if len(s) != 8 {
		return 0, 0, 0
	}
	yy, _ := strconv.Atoi(s[0:4])
	mm, _ := strconv.Atoi(s[4:6])
	dd, _ := strconv.Atoi(s[6:8])
	return yy, mm, dd
}

func fnYear(a []Value, _ Host) (Value, error)  { y, _, _ := dateParts(a[0]); return value.NumberValue(float64(y)), nil }
func fnMonth(a []Value, _ Host) (Value, error) { _, m, _ := dateParts(a[0]); return value.NumberValue(float64(m)), nil }
func fnDay(a []Value, _ Host) (Value, error)   { _, _, d := dateParts(a[0]); return value.NumberValue(float64(d)), nil }

var dowNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
var monthNames = []string{"", "January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}

// zellerDOW implements Zeller's congruence, 1=Sunday (spec.md §4.5).
func zellerDOW(y, m, d int) int {
	if m < 3 {
		m += 12
		y--
	}
	k := y % 100
	j := y / 100
	h := (d + (13*(m+1))/5 + k + k/4 + j/4 + 5*j) % 7
	// h: 0=Saturday,1=Sunday,... convert to 1=Sunday
	return (h+6)%7 + 1
}

func fnDow(a []Value, _ Host) (Value, error) {
	y, m, d := dateParts(a[0])
	if y == 0 {
		return value.NumberValue(0), nil
	}
	return value.NumberValue(float64(zellerDOW(y, m, d))), nil
}

func fnCDow(a []Value, _ Host) (Value, error) {
	y, m, d := dateParts(a[0])
	if y == 0 {
		return value.StringValue(""), nil
	}
	return value.StringValue(dowNames[zellerDOW(y, m, d)-1]), nil
}

func fnCMonth(a []Value, _ Host) (Value, error) {
	_, m, _ := dateParts(a[0])
	if m < 1 || m > 12 {
		return value.StringValue(""), nil
	}
	return value.StringValue(monthNames[m]), nil
}

func fnDtoc(a []Value, _ Host) (Value, error) {
	y, m, d := dateParts(a[0])
	if y == 0 {
		return value.StringValue(""), nil
	}
	return value.StringValue(fmt.Sprintf("%02d/%02d/%02d", m, d, y%100)), nil
}

func fnCtod(a []Value, _ Host) (Value, error) { return value.DateFromSlashed(a[0].AsString()), nil }

// --- type family ---------------------------------------------------

func fnType(a []Value, _ Host) (Value, error) { return value.StringValue(a[0].TypeLetter()), nil }
func fnEmpty(a []Value, _ Host) (Value, error) { return value.LogicalValue(a[0].Empty()), nil }

func firstChar(v Value) byte {
	s := v.AsString()
	if s == "" {
		return 0
	}
	return s[0]
}

func fnIsAlpha(a []Value, _ Host) (Value, error) {
	c := firstChar(a[0])
	return value.LogicalValue((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')), nil
}

func fnIsDigit(a []Value, _ Host) (Value, error) {
	c := firstChar(a[0])
	return value.LogicalValue(c >= '0' && c <= '9'), nil
}

func fnIsUpper(a []Value, _ Host) (Value, error) {
	c := firstChar(a[0])
	return value.LogicalValue(c >= 'A' && c <= 'Z'), nil
}

func fnIsLower(a []Value, _ Host) (Value, error) {
	c := firstChar(a[0])
	return value.LogicalValue(c >= 'a' && c <= 'z'), nil
}

// --- table family ----------------------------------------------------

func fnRecno(_ []Value, host Host) (Value, error)     { return value.NumberValue(float64(host.RecNo())), nil }
func fnReccount(_ []Value, host Host) (Value, error)  { return value.NumberValue(float64(host.RecCount())), nil }
func fnEof(_ []Value, host Host) (Value, error)       { return value.LogicalValue(host.EOF()), nil }
func fnBof(_ []Value, host Host) (Value, error)       { return value.LogicalValue(host.BOF()), nil }
func fnDeleted(_ []Value, host Host) (Value, error)   { return value.LogicalValue(host.Deleted()), nil }
func fnFcount(_ []Value, host Host) (Value, error)    { return value.NumberValue(float64(host.FieldCount())), nil }

// fnField returns the NAME of the nth field (1-based), not its value —
// the dBASE III+ convention; an index past the field count yields "".
func fnField(a []Value, host Host) (Value, error) {
	idx := int(a[0].AsNumber())
	if name, ok := host.FieldName(idx); ok {
		return value.StringValue(name), nil
	}
	return value.StringValue(""), nil
}

// fnFound reports whether the most recent LOCATE/CONTINUE/SEEK/FIND
// matched a record.
func fnFound(_ []Value, host Host) (Value, error) {
	return value.LogicalValue(host.LastFound()), nil
}

// --- misc family -----------------------------------------------------

func fnIif(a []Value, _ Host) (Value, error) {
	if a[0].AsLogical() {
		return a[1], nil
	}
	return a[2], nil
}

func fnTime(_ []Value, host Host) (Value, error) {
	return value.StringValue(host.Clock()), nil
}
