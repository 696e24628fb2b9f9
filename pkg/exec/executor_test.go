package exec

import (
	"testing"

	"github.com/mkfoss/dbase3/pkg/dbferr"
	"github.com/mkfoss/dbase3/pkg/parser"
	"github.com/stretchr/testify/require"
)

// testConsole runs commands against a Context rooted in a temp dir and
// captures printed output.
type testConsole struct {
	ctx   *Context
	lines []string
}

func newConsole(t *testing.T) *testConsole {
	t.Helper()
	tc := &testConsole{}
	tc.ctx = New(t.TempDir(), func(s string) { tc.lines = append(tc.lines, s) })
	t.Cleanup(func() {
		cmd, _ := parser.ParseLine("CLOSE ALL")
		_ = tc.ctx.Execute(cmd)
	})
	return tc
}

func (tc *testConsole) run(t *testing.T, src string) {
	t.Helper()
	cmd, p := parser.ParseLine(src)
	require.False(t, p.Failed, "parse %q: %v", src, p.Errors)
	require.NoError(t, tc.ctx.Execute(cmd), "execute %q", src)
}

func (tc *testConsole) runErr(t *testing.T, src string) error {
	t.Helper()
	cmd, p := parser.ParseLine(src)
	require.False(t, p.Failed, "parse %q: %v", src, p.Errors)
	return tc.ctx.Execute(cmd)
}

func (tc *testConsole) reset() { tc.lines = nil }

func seedPeople(t *testing.T, tc *testConsole) {
	t.Helper()
	tc.run(t, `CREATE people (NAME C(20), AGE N(3,0), ACTIVE L(1))`)
	tc.run(t, `USE people`)
	for _, row := range []string{
		`REPLACE NAME WITH "John Doe", AGE WITH 25, ACTIVE WITH .T.`,
		`REPLACE NAME WITH "Jane Smith", AGE WITH 30, ACTIVE WITH .F.`,
		`REPLACE NAME WITH "Bob", AGE WITH 35, ACTIVE WITH .T.`,
	} {
		tc.run(t, `APPEND BLANK`)
		tc.run(t, row)
	}
}

func TestCountForAndListFor(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)

	tc.reset()
	tc.run(t, `COUNT FOR ACTIVE`)
	require.Equal(t, []string{"2"}, tc.lines)

	tc.reset()
	tc.run(t, `LIST NAME FOR AGE > 25`)
	require.Equal(t, []string{"2 Jane Smith", "3 Bob"}, tc.lines)
}

func TestBareCountDefaultsToAllRecords(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)
	tc.run(t, `GO 2`)

	tc.reset()
	tc.run(t, `COUNT`)
	require.Equal(t, []string{"3"}, tc.lines)
}

func TestIndexAndSeek(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)
	tc.run(t, `INDEX ON NAME TO ti`)

	tc.run(t, `SEEK "Jane Smith"`)
	require.Equal(t, int64(2), tc.ctx.RecNo())
	require.True(t, tc.ctx.LastFound())

	tc.run(t, `SEEK "Zzz"`)
	require.False(t, tc.ctx.LastFound())
	require.True(t, tc.ctx.EOF())
}

func TestSeekWithSetNearParksOnSuccessor(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)
	tc.run(t, `INDEX ON NAME TO tn`)
	tc.run(t, `SET NEAR ON`)

	// "Bill" has no match; the next key in order is "Bob" (recno 3).
	tc.run(t, `SEEK "Bill"`)
	require.False(t, tc.ctx.LastFound())
	require.Equal(t, int64(3), tc.ctx.RecNo())
}

func TestDeleteRecordThenPack(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)

	tc.run(t, `DELETE RECORD 2`)
	tc.run(t, `PACK`)
	require.Equal(t, int64(2), tc.ctx.RecCount())

	tc.run(t, `GO 1`)
	v, ok := tc.ctx.FieldValue("NAME")
	require.True(t, ok)
	require.Equal(t, "John Doe", v.AsString())

	tc.run(t, `GO 2`)
	v, _ = tc.ctx.FieldValue("NAME")
	require.Equal(t, "Bob", v.AsString())
}

func TestUniqueIndexRejectsDuplicateOnReplace(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)
	tc.run(t, `INDEX ON NAME TO tu UNIQUE`)

	tc.run(t, `APPEND BLANK`)
	err := tc.runErr(t, `REPLACE NAME WITH "John Doe"`)
	require.Error(t, err)
	require.Equal(t, dbferr.DuplicateKey, dbferr.KindOf(err))

	// the table row itself keeps the replaced value
	require.Equal(t, int64(4), tc.ctx.RecCount())
	v, _ := tc.ctx.FieldValue("NAME")
	require.Equal(t, "John Doe", v.AsString())
}

func TestReplaceMovesKeyWithinIndex(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)
	tc.run(t, `INDEX ON NAME TO tm`)

	tc.run(t, `GO 3`)
	tc.run(t, `REPLACE NAME WITH "Zeke"`)

	tc.run(t, `SEEK "Zeke"`)
	require.True(t, tc.ctx.LastFound())
	require.Equal(t, int64(3), tc.ctx.RecNo())

	tc.run(t, `SEEK "Bob"`)
	require.False(t, tc.ctx.LastFound())
}

func TestLocateAndContinueReuseThePredicate(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)

	tc.run(t, `LOCATE FOR ACTIVE`)
	require.Equal(t, int64(1), tc.ctx.RecNo())
	require.True(t, tc.ctx.LastFound())

	tc.run(t, `CONTINUE`)
	require.Equal(t, int64(3), tc.ctx.RecNo())
	require.True(t, tc.ctx.LastFound())

	tc.run(t, `CONTINUE`)
	require.False(t, tc.ctx.LastFound())
	require.True(t, tc.ctx.EOF())
}

func TestLocateWithoutTableReportsNoDatabase(t *testing.T) {
	tc := newConsole(t)
	err := tc.runErr(t, `LOCATE FOR AGE > 1`)
	require.Equal(t, dbferr.NoDatabaseOpen, dbferr.KindOf(err))
}

func TestStoreToMultipleVariables(t *testing.T) {
	tc := newConsole(t)
	tc.run(t, `STORE 7 TO a, b`)
	va, ok := tc.ctx.Vars().Get("A")
	require.True(t, ok)
	require.Equal(t, float64(7), va.AsNumber())
	vb, _ := tc.ctx.Vars().Get("B")
	require.Equal(t, float64(7), vb.AsNumber())
}

func TestSumAverageAndCountToVariables(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)

	tc.run(t, `SUM AGE TO total`)
	v, _ := tc.ctx.Vars().Get("TOTAL")
	require.Equal(t, float64(90), v.AsNumber())

	tc.run(t, `AVERAGE AGE TO avgage`)
	v, _ = tc.ctx.Vars().Get("AVGAGE")
	require.Equal(t, float64(30), v.AsNumber())

	tc.run(t, `COUNT FOR AGE > 25 TO n`)
	v, _ = tc.ctx.Vars().Get("N")
	require.Equal(t, float64(2), v.AsNumber())
}

func TestReindexAfterManualRecordChanges(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)
	tc.run(t, `INDEX ON NAME TO tr`)

	tc.run(t, `DELETE RECORD 1`)
	tc.run(t, `REINDEX`)

	tc.run(t, `SEEK "John Doe"`)
	require.False(t, tc.ctx.LastFound())
	tc.run(t, `SEEK "Bob"`)
	require.True(t, tc.ctx.LastFound())
	require.Equal(t, int64(3), tc.ctx.RecNo())
}

func TestDisplayDefaultsToCurrentRecordOnly(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)
	tc.run(t, `GO 2`)

	tc.reset()
	tc.run(t, `DISPLAY NAME`)
	require.Equal(t, []string{"2 Jane Smith"}, tc.lines)
}

func TestZapThroughCommand(t *testing.T) {
	tc := newConsole(t)
	seedPeople(t, tc)
	tc.run(t, `ZAP`)
	require.Equal(t, int64(0), tc.ctx.RecCount())
	require.True(t, tc.ctx.EOF())
	require.True(t, tc.ctx.BOF())
}
