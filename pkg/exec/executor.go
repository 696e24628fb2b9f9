package exec

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mkfoss/dbase3/pkg/ast"
	"github.com/mkfoss/dbase3/pkg/dbf"
	"github.com/mkfoss/dbase3/pkg/dbferr"
	"github.com/mkfoss/dbase3/pkg/eval"
	"github.com/mkfoss/dbase3/pkg/parser"
	"github.com/mkfoss/dbase3/pkg/value"
	"github.com/mkfoss/dbase3/pkg/xdx"
)

// Execute dispatches one parsed command. Most failures are non-fatal:
// the caller (a REPL loop) prints the error and continues with the next
// command; Execute itself never panics on a command-level error.
func (c *Context) Execute(cmd ast.Command) error {
	c.aliasNoted = false
	c.setLastError(nil)
	err := c.dispatch(cmd)
	if err != nil {
		c.setLastError(err)
	}
	return err
}

func (c *Context) dispatch(cmd ast.Command) error {
	switch n := cmd.(type) {
	case *ast.Use:
		return c.execUse(n)
	case *ast.Close:
		return c.execClose(n)
	case *ast.CreateTable:
		return c.execCreate(n)
	case *ast.Go:
		return c.execGo(n)
	case *ast.Skip:
		return c.execSkip(n)
	case *ast.List:
		return c.execIterate(n.Scope, n.Fields, false)
	case *ast.Display:
		return c.execIterate(n.Scope, n.Fields, true)
	case *ast.LocateFor:
		return c.execLocate(n)
	case *ast.Continue:
		return c.execContinue()
	case *ast.AppendBlank:
		return c.requireTable(c.table.AppendBlank)
	case *ast.AppendFrom:
		return dbferr.New(dbferr.NotImplemented, "APPEND FROM")
	case *ast.Delete:
		return c.execDelete(n)
	case *ast.Recall:
		return c.execRecall(n)
	case *ast.Pack:
		return c.requireTable(c.table.Pack)
	case *ast.Zap:
		return c.requireTable(c.table.Zap)
	case *ast.Replace:
		return c.execReplace(n)
	case *ast.Store:
		return c.execStore(n)
	case *ast.Set:
		return c.execSet(n)
	case *ast.SetIndexTo:
		return c.execSetIndexTo(n)
	case *ast.SetOrderTo:
		return c.execSetOrderTo(n)
	case *ast.Select:
		return c.execSelect(n)
	case *ast.Scoping:
		return c.execScoping(n)
	case *ast.Release:
		return c.execRelease(n)
	case *ast.Declare:
		return c.execDeclare(n)
	case *ast.Clear:
		c.vars.ReleaseAll()
		return nil
	case *ast.Quit:
		c.quit = true
		return nil
	case *ast.Cancel:
		c.cancel = true
		return nil
	case *ast.Return:
		return nil
	case *ast.IndexOn:
		return c.execIndexOn(n)
	case *ast.Reindex:
		return c.execReindex()
	case *ast.Seek:
		return c.execSeek(n)
	case *ast.Find:
		return c.execFind(n)
	case *ast.Count:
		return c.execCount(n)
	case *ast.Sum:
		return c.execSum(n)
	case *ast.Average:
		return c.execAverage(n)
	case *ast.Print:
		return c.execPrint(n)
	case *ast.Wait:
		c.out(n.Message)
		// no keypress to capture without a terminal; the target variable
		// still comes into existence, as an accepted empty WAIT does
		if n.To != "" {
			c.vars.Set(strings.ToUpper(n.To), value.StringValue(""))
		}
		return nil
	case *ast.Accept:
		c.out(n.Message)
		if n.To != "" {
			c.vars.Set(strings.ToUpper(n.To), value.StringValue(""))
		}
		return nil
	case *ast.Input:
		c.out(n.Message)
		if n.To != "" {
			c.vars.Set(strings.ToUpper(n.To), value.NilValue())
		}
		return nil
	case *ast.Help:
		c.out("dbase3: see the command summary in the project README")
		return nil
	case *ast.IfStmt:
		return c.execIf(n)
	case *ast.DoWhile:
		return c.execDoWhile(n)
	case *ast.SayGet:
		return c.execSayGet(n)
	case *ast.Read:
		return c.execRead()
	case nil:
		return nil
	}
	return dbferr.New(dbferr.Internal, "unhandled command")
}

func (c *Context) requireTable(fn func() error) error {
	if c.table == nil {
		return c.noDatabase()
	}
	return fn()
}

func (c *Context) resolvePath(name, defaultExt string) string {
	if filepath.Ext(name) == "" {
		name += defaultExt
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.wd, name)
}

func (c *Context) execUse(n *ast.Use) error {
	if c.table != nil {
		c.table.Close()
		c.closeAllIndexes()
	}
	path := c.resolvePath(n.Path, ".dbf")
	t, err := dbf.Open(path, false)
	if err != nil {
		return err
	}
	c.table = t
	c.tablePath = path
	c.alias = strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	c.order = 0
	c.aliasNoted = false
	return nil
}

func (c *Context) closeAllIndexes() {
	for i := range c.indexes {
		if c.indexes[i] != nil {
			c.indexes[i].Close()
			c.indexes[i] = nil
			c.indexPaths[i] = ""
		}
	}
}

func (c *Context) execClose(n *ast.Close) error {
	switch n.What {
	case "INDEXES":
		c.closeAllIndexes()
		c.order = 0
	case "DATABASES", "ALL", "":
		if c.table != nil {
			c.table.Close()
			c.table = nil
		}
		c.closeAllIndexes()
		c.order = 0
	}
	return nil
}

func (c *Context) execCreate(n *ast.CreateTable) error {
	path := c.resolvePath(n.Path, ".dbf")
	defs := make([]dbf.FieldDef, len(n.Fields))
	for i, f := range n.Fields {
		defs[i] = dbf.FieldDef{Name: f.Name, Type: dbf.FieldType(f.Type), Length: byte(f.Length), Decimals: byte(f.Decimals)}
	}
	t, err := dbf.Create(path, defs)
	if err != nil {
		return err
	}
	t.Close()
	return nil
}

func (c *Context) execGo(n *ast.Go) error {
	if c.table == nil {
		return c.noDatabase()
	}
	switch {
	case n.Top:
		return c.table.GoTop()
	case n.Bottom:
		return c.table.GoBottom()
	default:
		v, err := eval.Eval(n.Record, c)
		if err != nil {
			return err
		}
		return c.table.Goto(int64(v.AsNumber()))
	}
}

func (c *Context) execSkip(n *ast.Skip) error {
	if c.table == nil {
		return c.noDatabase()
	}
	delta := int64(1)
	if n.Count != nil {
		v, err := eval.Eval(n.Count, c)
		if err != nil {
			return err
		}
		delta = int64(v.AsNumber())
	}
	return c.table.Skip(delta)
}

// iterate walks the table per scope, invoking fn on each visited record;
// fn returning false stops the loop early without being an error (used
// by LOCATE). The iteration honors ALL/NEXT n/RECORD n/REST and the
// FOR/WHILE predicates.
func (c *Context) iterate(scope ast.Scope, fn func() (bool, error)) error {
	if c.table == nil {
		return c.noDatabase()
	}
	switch scope.Kind {
	case ast.ScopeRecord:
		if err := c.table.Goto(int64(scope.Count)); err != nil {
			return err
		}
		if scope.For != nil {
			v, err := eval.Eval(scope.For, c)
			if err != nil {
				return err
			}
			if !v.AsLogical() {
				return nil
			}
		}
		_, err := fn()
		return err
	case ast.ScopeAll:
		if err := c.table.GoTop(); err != nil {
			return err
		}
	case ast.ScopeRest:
		// start from current position
	case ast.ScopeNext:
		// start from current position
	default:
		// no scope clause defaults to the full table; commands whose
		// default is the current record only (DELETE, RECALL, REPLACE,
		// DISPLAY) special-case that before calling iterate.
		if err := c.table.GoTop(); err != nil {
			return err
		}
	}

	visited := 0
	for !c.table.EOF() {
		// cancellation is honored between records, never mid-record
		if c.cancel {
			break
		}
		if scope.Kind == ast.ScopeNext && visited >= scope.Count {
			break
		}
		if scope.While != nil {
			v, err := eval.Eval(scope.While, c)
			if err != nil {
				return err
			}
			if !v.AsLogical() {
				break
			}
		}
		match := true
		if scope.For != nil {
			v, err := eval.Eval(scope.For, c)
			if err != nil {
				return err
			}
			match = v.AsLogical()
		}
		if match {
			cont, err := fn()
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		visited++
		if err := c.table.Skip(1); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) execIterate(scope ast.Scope, fields []ast.Expr, singleRecordDefault bool) error {
	if c.table == nil {
		return c.noDatabase()
	}
	if scope.Kind == ast.ScopeNone && scope.For == nil && scope.While == nil && singleRecordDefault {
		return c.printRecord(fields)
	}
	return c.iterate(scope, func() (bool, error) {
		if err := c.printRecord(fields); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (c *Context) printRecord(fields []ast.Expr) error {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(c.table.RecNo(), 10))
	if len(fields) == 0 {
		for i := range c.table.Fields() {
			v, _ := c.fieldValueAt(i)
			sb.WriteString(" ")
			sb.WriteString(v.AsString())
		}
	} else {
		for _, f := range fields {
			v, err := eval.Eval(f, c)
			if err != nil {
				return err
			}
			sb.WriteString(" ")
			sb.WriteString(v.AsString())
		}
	}
	c.out(sb.String())
	return nil
}

func (c *Context) execLocate(n *ast.LocateFor) error {
	if c.table == nil {
		return c.noDatabase()
	}
	c.lastLocateFor = n.Scope.For
	c.lastLocateScope = n.Scope
	c.lastFound = false
	if err := c.table.GoTop(); err != nil {
		return err
	}
	return c.locateScan(n.Scope)
}

func (c *Context) execContinue() error {
	if c.lastLocateFor == nil {
		return dbferr.New(dbferr.Syntax, "CONTINUE without a prior LOCATE")
	}
	if c.table == nil {
		return c.noDatabase()
	}
	if err := c.table.Skip(1); err != nil {
		return err
	}
	return c.locateScan(c.lastLocateScope)
}

func (c *Context) locateScan(scope ast.Scope) error {
	for !c.table.EOF() {
		if scope.While != nil {
			v, err := eval.Eval(scope.While, c)
			if err != nil {
				return err
			}
			if !v.AsLogical() {
				break
			}
		}
		v, err := eval.Eval(scope.For, c)
		if err != nil {
			return err
		}
		if v.AsLogical() {
			c.lastFound = true
			return nil
		}
		if err := c.table.Skip(1); err != nil {
			return err
		}
	}
	c.lastFound = false
	return nil
}

func (c *Context) execDelete(n *ast.Delete) error {
	if c.table == nil {
		return c.noDatabase()
	}
	if n.Scope.Kind == ast.ScopeNone && n.Scope.For == nil && n.Scope.While == nil {
		return c.table.Delete()
	}
	return c.iterate(n.Scope, func() (bool, error) {
		return true, c.table.Delete()
	})
}

func (c *Context) execRecall(n *ast.Recall) error {
	if c.table == nil {
		return c.noDatabase()
	}
	if n.Scope.Kind == ast.ScopeNone && n.Scope.For == nil && n.Scope.While == nil {
		return c.table.Recall()
	}
	return c.iterate(n.Scope, func() (bool, error) {
		return true, c.table.Recall()
	})
}

func (c *Context) execReplace(n *ast.Replace) error {
	if c.table == nil {
		return c.noDatabase()
	}
	apply := func() (bool, error) {
		oldKeys, err := c.currentIndexKeys()
		if err != nil {
			return false, err
		}
		for _, set := range n.Sets {
			idx, ok := c.table.FieldIndex(set.Field)
			if !ok {
				return false, dbferr.New(dbferr.InvalidField, set.Field)
			}
			v, err := eval.Eval(set.With, c)
			if err != nil {
				return false, err
			}
			if err := c.setField(idx, v); err != nil {
				return false, err
			}
		}
		// REPLACE is transactional per record: flush immediately.
		if err := c.table.Flush(); err != nil {
			return false, err
		}
		return true, c.updateIndexKeys(oldKeys)
	}
	if n.Scope.Kind == ast.ScopeNone && n.Scope.For == nil && n.Scope.While == nil {
		_, err := apply()
		return err
	}
	return c.iterate(n.Scope, apply)
}

func (c *Context) setField(idx int, v value.Value) error {
	def := c.table.Fields()[idx]
	switch def.Type {
	case dbf.Numeric:
		return c.table.SetNumber(idx, v.AsNumber())
	case dbf.DateType:
		return c.table.SetDate(idx, v.AsDate())
	case dbf.Logical:
		return c.table.SetLogical(idx, v.AsLogical())
	default:
		return c.table.SetString(idx, v.AsString())
	}
}

func (c *Context) execStore(n *ast.Store) error {
	v, err := eval.Eval(n.Value, c)
	if err != nil {
		return err
	}
	for _, name := range n.To {
		c.vars.Set(strings.ToUpper(name), v)
	}
	return nil
}

func (c *Context) execSet(n *ast.Set) error {
	// Most SET options only affect presentation (SET TALK, SET DELETED,
	// ...); they are accepted and stored as private interpreter state
	// via the variable store under a reserved "SET$OPTION" key so SEEK
	// and other commands needing them can read it without the executor
	// growing a field per option.
	if n.HasOn {
		c.vars.Set("SET$"+n.Option, value.LogicalValue(n.On))
		return nil
	}
	if n.Value != nil {
		v, err := eval.Eval(n.Value, c)
		if err != nil {
			return err
		}
		c.vars.Set("SET$"+n.Option, v)
	}
	return nil
}

func (c *Context) execSetIndexTo(n *ast.SetIndexTo) error {
	c.closeAllIndexes()
	c.order = 0
	for i, path := range n.Paths {
		if i >= maxOpenIndexes {
			break
		}
		full := c.resolvePath(path, ".xdx")
		tree, err := xdx.OpenWriter(full)
		if err != nil {
			return err
		}
		c.indexes[i+1] = tree
		c.indexPaths[i+1] = full
	}
	if len(n.Paths) > 0 {
		c.order = 1
	}
	return nil
}

func (c *Context) execSetOrderTo(n *ast.SetOrderTo) error {
	v, err := eval.Eval(n.Order, c)
	if err != nil {
		return err
	}
	ord := int(v.AsNumber())
	if ord < 0 || ord > maxOpenIndexes {
		return dbferr.New(dbferr.InvalidIndex, "order out of range")
	}
	c.order = ord
	return nil
}

// execSelect accepts a re-selection of the single work area this engine
// holds (area 1/A, or the current table's alias); anything else would
// need a work-area table keyed by alias (spec.md §9 open question).
func (c *Context) execSelect(n *ast.Select) error {
	sel := strings.ToUpper(n.Alias)
	if sel == "1" || sel == "A" || (c.alias != "" && sel == c.alias) {
		return nil
	}
	return dbferr.New(dbferr.NotImplemented, "multiple work areas")
}

func (c *Context) execScoping(n *ast.Scoping) error {
	switch n.Kind {
	case ast.DeclPublic:
		c.vars.DeclarePublic(n.Names)
	case ast.DeclPrivate:
		c.vars.DeclarePrivate(n.Names)
	case ast.DeclLocal:
		c.vars.DeclareLocal(n.Names)
	}
	return nil
}

func (c *Context) execRelease(n *ast.Release) error {
	if n.All {
		c.vars.ReleaseAll()
		return nil
	}
	c.vars.Release(n.Names)
	return nil
}

func (c *Context) execDeclare(n *ast.Declare) error {
	size := 0
	if n.Size != nil {
		v, err := eval.Eval(n.Size, c)
		if err != nil {
			return err
		}
		size = int(v.AsNumber())
	}
	items := make([]value.Value, size)
	c.vars.Set(n.Name, value.ArrayValue(items))
	return nil
}

// inferKeySpec evaluates keyExpr against the current record to decide
// the index's key type/length: INDEX ON evaluates the key expression
// against the first active record.
func (c *Context) inferKeySpec(keyExpr ast.Expr) (xdx.KeyType, int, error) {
	v, err := eval.Eval(keyExpr, c)
	if err != nil {
		return 0, 0, err
	}
	switch v.Kind() {
	case value.Number:
		return xdx.KeyNumeric, 20, nil
	case value.Date:
		return xdx.KeyDate, 8, nil
	default:
		n := len(v.AsString())
		if n < 1 {
			n = 1
		}
		if n > 240 {
			n = 240
		}
		return xdx.KeyChar, n, nil
	}
}

func keyBytes(v value.Value, kt xdx.KeyType) []byte {
	switch kt {
	case xdx.KeyNumeric:
		return []byte(strconv.FormatFloat(v.AsNumber(), 'f', -1, 64))
	case xdx.KeyDate:
		return []byte(v.AsDate())
	default:
		return []byte(v.AsString())
	}
}

func (c *Context) execIndexOn(n *ast.IndexOn) error {
	if c.table == nil {
		return c.noDatabase()
	}
	if err := c.table.GoTop(); err != nil {
		return err
	}
	for c.table.Deleted() && !c.table.EOF() {
		if err := c.table.Skip(1); err != nil {
			return err
		}
	}
	if c.table.EOF() {
		return dbferr.New(dbferr.InvalidRecord, "table has no active records to infer a key type from")
	}
	kt, kl, err := c.inferKeySpec(n.KeyExpr)
	if err != nil {
		return err
	}
	path := c.resolvePath(n.To, ".xdx")
	os.Remove(path)
	tree, err := xdx.Create(path, kt, kl, n.Unique, n.Descending, ast.ExprText(n.KeyExpr))
	if err != nil {
		return err
	}
	if err := c.table.GoTop(); err != nil {
		return err
	}
	for !c.table.EOF() {
		if !c.table.Deleted() {
			v, err := eval.Eval(n.KeyExpr, c)
			if err != nil {
				return err
			}
			normalized := normalizeTo(keyBytes(v, kt), kl, kt)
			if err := tree.Insert(normalized, uint32(c.table.RecNo())); err != nil && dbferr.KindOf(err) != dbferr.DuplicateKey {
				return err
			}
		}
		if err := c.table.Skip(1); err != nil {
			return err
		}
	}
	for i := 1; i <= maxOpenIndexes; i++ {
		if c.indexes[i] == nil {
			c.indexes[i] = tree
			c.indexPaths[i] = path
			c.order = i
			break
		}
	}
	return c.table.GoTop()
}

func normalizeTo(raw []byte, width int, kt xdx.KeyType) []byte {
	out := make([]byte, width)
	if kt == xdx.KeyNumeric {
		if len(raw) >= width {
			copy(out, raw[len(raw)-width:])
		} else {
			for i := range out {
				out[i] = ' '
			}
			copy(out[width-len(raw):], raw)
		}
		return out
	}
	n := copy(out, raw)
	for i := n; i < width; i++ {
		out[i] = ' '
	}
	return out
}

// indexKey evaluates tree's stored key expression against the current
// record, normalized to the index's key width. Key text that doesn't
// re-parse as an expression (an older or foreign index) is tried as a
// bare field name.
func (c *Context) indexKey(tree *xdx.Tree) ([]byte, error) {
	hdr := tree.Header()
	expr, p := parseStoredKeyExpr(hdr.KeyExpr)
	var v value.Value
	if p != nil && !p.Failed {
		ev, err := eval.Eval(expr, c)
		if err != nil {
			return nil, err
		}
		v = ev
	} else if fv, ok := c.FieldValue(hdr.KeyExpr); ok {
		v = fv
	}
	return normalizeTo(keyBytes(v, hdr.KeyType), int(hdr.KeyLength), hdr.KeyType), nil
}

// currentIndexKeys snapshots every open index's key for the current
// record, so a REPLACE can tell which indexes the update invalidated.
func (c *Context) currentIndexKeys() (map[int][]byte, error) {
	keys := map[int][]byte{}
	for i := 1; i <= maxOpenIndexes; i++ {
		if c.indexes[i] == nil {
			continue
		}
		k, err := c.indexKey(c.indexes[i])
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	return keys, nil
}

// updateIndexKeys re-evaluates each open index's key after a record
// update: a changed key is moved — old entry removed (a miss is fine,
// e.g. a freshly appended record was never inserted), new entry
// inserted. A duplicate-key failure on a unique index leaves the table
// row in place (spec.md §8 scenario 5) and is reported to the caller.
func (c *Context) updateIndexKeys(oldKeys map[int][]byte) error {
	recno := uint32(c.table.RecNo())
	for i := 1; i <= maxOpenIndexes; i++ {
		tree := c.indexes[i]
		if tree == nil {
			continue
		}
		newKey, err := c.indexKey(tree)
		if err != nil {
			return err
		}
		if old, ok := oldKeys[i]; ok && bytes.Equal(old, newKey) {
			continue
		}
		if old, ok := oldKeys[i]; ok {
			if err := tree.Delete(old, recno); err != nil && dbferr.KindOf(err) != dbferr.InvalidRecord {
				return err
			}
		}
		if err := tree.Insert(newKey, recno); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) execReindex() error {
	if c.table == nil {
		return c.noDatabase()
	}
	if c.order == 0 || c.indexes[c.order] == nil {
		return dbferr.New(dbferr.NoDatabaseOpen, "no controlling index to reindex")
	}
	tree := c.indexes[c.order]
	var pairs []xdx.KeyRecno
	if err := c.table.GoTop(); err != nil {
		return err
	}
	for !c.table.EOF() {
		if !c.table.Deleted() {
			key, err := c.indexKey(tree)
			if err != nil {
				return err
			}
			pairs = append(pairs, xdx.KeyRecno{Key: key, Recno: uint32(c.table.RecNo())})
		}
		if err := c.table.Skip(1); err != nil {
			return err
		}
	}
	return tree.Reindex(pairs)
}

func (c *Context) execSeek(n *ast.Seek) error {
	if c.table == nil {
		return c.noDatabase()
	}
	if c.order == 0 || c.indexes[c.order] == nil {
		return dbferr.New(dbferr.NoDatabaseOpen, "SEEK requires a controlling index")
	}
	v, err := eval.Eval(n.Key, c)
	if err != nil {
		return err
	}
	tree := c.indexes[c.order]
	hdr := tree.Header()
	key := normalizeTo(keyBytes(v, hdr.KeyType), int(hdr.KeyLength), hdr.KeyType)
	found, recno, err := tree.Seek(key)
	if err != nil && dbferr.KindOf(err) != dbferr.EOF {
		return err
	}
	c.lastFound = found
	if found {
		return c.table.Goto(int64(recno))
	}
	// Not found: park on the in-order successor when SET NEAR is ON,
	// otherwise position past-last so EOF() reports true (spec.md §4.6).
	if near, ok := c.vars.Get("SET$NEAR"); ok && near.AsLogical() && err == nil {
		return c.table.Goto(int64(recno))
	}
	return c.table.Goto(c.table.RecCount() + 1)
}

func (c *Context) execFind(n *ast.Find) error {
	return c.execSeek(&ast.Seek{Key: &ast.StringLit{Value: n.Literal}})
}

func (c *Context) execCount(n *ast.Count) error {
	if c.table == nil {
		return c.noDatabase()
	}
	count := 0
	if err := c.iterate(n.Scope, func() (bool, error) { count++; return true, nil }); err != nil {
		return err
	}
	if n.To != "" {
		c.vars.Set(n.To, value.NumberValue(float64(count)))
	} else {
		c.out(strconv.Itoa(count))
	}
	return nil
}

func (c *Context) execSum(n *ast.Sum) error {
	return c.accumulate(n.Scope, n.Exprs, n.To, false)
}

func (c *Context) execAverage(n *ast.Average) error {
	return c.accumulate(n.Scope, n.Exprs, n.To, true)
}

func (c *Context) accumulate(scope ast.Scope, exprs []ast.Expr, to []string, average bool) error {
	if c.table == nil {
		return c.noDatabase()
	}
	totals := make([]float64, len(exprs))
	count := 0
	err := c.iterate(scope, func() (bool, error) {
		for i, e := range exprs {
			v, err := eval.Eval(e, c)
			if err != nil {
				return false, err
			}
			totals[i] += v.AsNumber()
		}
		count++
		return true, nil
	})
	if err != nil {
		return err
	}
	for i, t := range totals {
		result := t
		if average && count > 0 {
			result = t / float64(count)
		}
		if i < len(to) {
			c.vars.Set(to[i], value.NumberValue(result))
		} else {
			c.out(strconv.FormatFloat(result, 'f', -1, 64))
		}
	}
	return nil
}

func (c *Context) execPrint(n *ast.Print) error {
	var sb strings.Builder
	for i, e := range n.Exprs {
		if i > 0 {
			sb.WriteString(" ")
		}
		v, err := eval.Eval(e, c)
		if err != nil {
			return err
		}
		sb.WriteString(v.AsString())
	}
	c.out(sb.String())
	return nil
}

// execSayGet implements "@ row,col SAY expr [GET var]" (spec.md §6). Row
// and Col are evaluated only to surface syntax errors in them; without a
// terminal grid (out of scope per spec.md §1) this engine prints SAY text
// immediately and defers any GET variable to the next READ.
func (c *Context) execSayGet(n *ast.SayGet) error {
	if _, err := eval.Eval(n.Row, c); err != nil {
		return err
	}
	if _, err := eval.Eval(n.Col, c); err != nil {
		return err
	}
	if n.Say != nil {
		v, err := eval.Eval(n.Say, c)
		if err != nil {
			return err
		}
		c.out(v.AsString())
	}
	if n.Get != "" {
		c.pendingGets = append(c.pendingGets, n.Get)
	}
	return nil
}

// execRead resolves the GETs queued by @ SAY/GET since the last READ.
// Actual terminal input is a host concern this engine doesn't own (spec.md
// §1 excludes line editing); each pending GET variable is left holding its
// current value, matching a READ that the user accepted without changes.
func (c *Context) execRead() error {
	c.pendingGets = c.pendingGets[:0]
	return nil
}

func (c *Context) execIf(n *ast.IfStmt) error {
	v, err := eval.Eval(n.Cond, c)
	if err != nil {
		return err
	}
	branch := n.Then
	if !v.AsLogical() {
		branch = n.Else
	}
	return c.runBlock(branch)
}

func (c *Context) execDoWhile(n *ast.DoWhile) error {
	for {
		v, err := eval.Eval(n.Cond, c)
		if err != nil {
			return err
		}
		if !v.AsLogical() {
			return nil
		}
		if err := c.runBlock(n.Body); err != nil {
			return err
		}
		if c.quit || c.cancel {
			return nil
		}
	}
}

// errorLine renders err as spec.md §7's user-visible form:
// "Error: <kind text> — <message>".
func errorLine(err error) string {
	msg := err.Error()
	var e *dbferr.Error
	if dbferr.As(err, &e) {
		msg = e.Message
	}
	return "Error: " + dbferr.KindOf(err).String() + " — " + msg
}

func (c *Context) runBlock(stmts []ast.Command) error {
	for _, stmt := range stmts {
		if err := c.Execute(stmt); err != nil {
			c.out(errorLine(err))
		}
		if c.quit || c.cancel {
			break
		}
	}
	return nil
}

// parseStoredKeyExpr re-parses the key-expression text recorded in an
// index header at INDEX ON time, used by REINDEX. If the stored text is
// not a valid expression (an older/foreign index), the caller falls back
// to treating the text as a bare field name.
func parseStoredKeyExpr(text string) (ast.Expr, *parser.Parser) {
	return parser.ParseExpression(text)
}
