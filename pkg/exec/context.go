// Package exec dispatches parsed commands (pkg/ast) against an open
// table and its indexes, implementing pkg/eval.Host so expressions can
// see the current record and variable store.
package exec

import (
	"strings"
	"time"

	"github.com/mkfoss/dbase3/pkg/ast"
	"github.com/mkfoss/dbase3/pkg/dbf"
	"github.com/mkfoss/dbase3/pkg/dbferr"
	"github.com/mkfoss/dbase3/pkg/eval"
	"github.com/mkfoss/dbase3/pkg/value"
	"github.com/mkfoss/dbase3/pkg/xdx"
)

// maxOpenIndexes bounds how many indexes a table can have open at once:
// up to 10, ordinal 0 meaning natural (unindexed) order.
const maxOpenIndexes = 10

// Context is one interpreter context: the current table, its open
// indexes, the controlling order, the process-wide variable store, and
// the state a REST-style host needs to serialize command execution.
type Context struct {
	table     *dbf.Table
	tablePath string
	alias     string

	indexes    [maxOpenIndexes + 1]*xdx.Tree
	indexPaths [maxOpenIndexes + 1]string
	order      int // 0 == natural order

	vars *eval.VarStore
	wd   string

	quit   bool
	cancel bool

	out func(string)

	lastFound       bool
	lastLocateFor   ast.Expr
	lastLocateScope ast.Scope

	lastErrKind dbferr.Kind
	lastErrMsg  string
	aliasNoted  bool

	pendingGets []string
}

// New returns a Context with no table open, printing to out (nil means
// discard).
func New(workDir string, out func(string)) *Context {
	if out == nil {
		out = func(string) {}
	}
	return &Context{vars: eval.NewVarStore(), wd: workDir, out: out}
}

func (c *Context) Print(s string) { c.out(s) }

func (c *Context) Quit() bool           { return c.quit }
func (c *Context) Cancel() bool         { return c.cancel }
func (c *Context) SetCancel(v bool)     { c.cancel = v }
func (c *Context) Vars() *eval.VarStore { return c.vars }

// --- eval.Host ---------------------------------------------------------

func (c *Context) FieldValue(name string) (value.Value, bool) {
	if c.table == nil {
		return value.Value{}, false
	}
	idx, ok := c.table.FieldIndex(name)
	if !ok {
		return value.Value{}, false
	}
	v, _ := c.fieldValueAt(idx)
	return v, true
}

func (c *Context) fieldValueAt(idx int) (value.Value, error) {
	def := c.table.Fields()[idx]
	switch def.Type {
	case dbf.Numeric:
		n, err := c.table.GetNumber(idx)
		return value.NumberValue(n), err
	case dbf.DateType:
		d, err := c.table.GetDate(idx)
		return value.DateValue(d), err
	case dbf.Logical:
		b, err := c.table.GetLogical(idx)
		return value.LogicalValue(b), err
	default:
		s, err := c.table.GetString(idx)
		return value.StringValue(s), err
	}
}

// FieldName returns the 1-based nth field's name, for FIELD(n).
func (c *Context) FieldName(i int) (string, bool) {
	if c.table == nil || i < 1 || i > c.table.FieldCount() {
		return "", false
	}
	return c.table.Fields()[i-1].Name, true
}

func (c *Context) FieldCount() int {
	if c.table == nil {
		return 0
	}
	return c.table.FieldCount()
}

func (c *Context) RecNo() int64 {
	if c.table == nil {
		return 0
	}
	return c.table.RecNo()
}

func (c *Context) RecCount() int64 {
	if c.table == nil {
		return 0
	}
	return c.table.RecCount()
}

func (c *Context) EOF() bool {
	if c.table == nil {
		return true
	}
	return c.table.EOF()
}

func (c *Context) BOF() bool {
	if c.table == nil {
		return true
	}
	return c.table.BOF()
}

func (c *Context) Deleted() bool {
	if c.table == nil {
		return false
	}
	return c.table.Deleted()
}

func (c *Context) Today() value.Value { return value.DateFromTime(time.Now()) }
func (c *Context) Clock() string      { return time.Now().Format("15:04:05") }
func (c *Context) LastFound() bool    { return c.lastFound }

func (c *Context) noDatabase() error {
	return dbferr.New(dbferr.NoDatabaseOpen, "no table is open")
}

// LastError returns the (kind, message) pair set by the most recently
// failed command, for hosts that inspect failures without reparsing the
// printed "Error: ..." line (spec.md §7 propagation policy).
func (c *Context) LastError() (dbferr.Kind, string) { return c.lastErrKind, c.lastErrMsg }

func (c *Context) setLastError(err error) {
	if err == nil {
		c.lastErrKind, c.lastErrMsg = dbferr.None, ""
		return
	}
	c.lastErrKind = dbferr.KindOf(err)
	c.lastErrMsg = err.Error()
}

// NoteAlias records, once per command, that an alias->field reference named a work
// area other than the current one. Evaluation still only consults the
// current table (spec.md §4.5, §9 open question); this makes the
// limitation observable via LastError instead of silently returning the
// wrong field.
func (c *Context) NoteAlias(alias string) {
	if alias == "" || c.aliasNoted {
		return
	}
	if c.alias != "" && strings.EqualFold(alias, c.alias) {
		return
	}
	c.aliasNoted = true
	c.lastErrKind = dbferr.NotImplemented
	c.lastErrMsg = "alias->field only consults the current work area; ignored alias " + alias
}
