package dbf

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func createSampleTable(t *testing.T) (*Table, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.dbf")
	tbl, err := Create(path, []FieldDef{
		{Name: "NAME", Type: Character, Length: 20},
		{Name: "AGE", Type: Numeric, Length: 3, Decimals: 0},
		{Name: "ACTIVE", Type: Logical},
	})
	require.NoError(t, err)
	return tbl, path
}

func appendRow(t *testing.T, tbl *Table, name string, age float64, active bool) {
	t.Helper()
	require.NoError(t, tbl.AppendBlank())
	nameIdx, _ := tbl.FieldIndex("NAME")
	ageIdx, _ := tbl.FieldIndex("AGE")
	activeIdx, _ := tbl.FieldIndex("ACTIVE")
	require.NoError(t, tbl.SetString(nameIdx, name))
	require.NoError(t, tbl.SetNumber(ageIdx, age))
	require.NoError(t, tbl.SetLogical(activeIdx, active))
}

func TestCreateThenOpenRoundTrip(t *testing.T) {
	tbl, path := createSampleTable(t)
	require.Equal(t, 3, tbl.FieldCount())
	require.Equal(t, int64(0), tbl.RecCount())
	require.NoError(t, tbl.Close())

	reopened, err := Open(path, false)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, int64(0), reopened.RecCount())
	require.Len(t, reopened.Fields(), 3)
}

func TestAppendAndFieldRoundTrip(t *testing.T) {
	tbl, _ := createSampleTable(t)
	defer tbl.Close()

	appendRow(t, tbl, "John Doe", 25, true)
	appendRow(t, tbl, "Jane Smith", 30, false)
	appendRow(t, tbl, "Bob", 35, true)

	require.NoError(t, tbl.Goto(1))
	nameIdx, _ := tbl.FieldIndex("NAME")
	name, err := tbl.GetString(nameIdx)
	require.NoError(t, err)
	require.Equal(t, "John Doe", name)

	require.NoError(t, tbl.Flush())
	require.NoError(t, tbl.Goto(2))
	name, _ = tbl.GetString(nameIdx)
	require.Equal(t, "Jane Smith", name)
}

func TestDeleteRecallIsIdentity(t *testing.T) {
	tbl, _ := createSampleTable(t)
	defer tbl.Close()
	appendRow(t, tbl, "John Doe", 25, true)

	require.NoError(t, tbl.Goto(1))
	require.False(t, tbl.Deleted())
	require.NoError(t, tbl.Delete())
	require.True(t, tbl.Deleted())
	require.NoError(t, tbl.Recall())
	require.False(t, tbl.Deleted())
}

func TestPackRemovesDeletedRecordsPreservingOrder(t *testing.T) {
	tbl, _ := createSampleTable(t)
	defer tbl.Close()
	appendRow(t, tbl, "John Doe", 25, true)
	appendRow(t, tbl, "Jane Smith", 30, false)
	appendRow(t, tbl, "Bob", 35, true)

	require.NoError(t, tbl.Goto(2))
	require.NoError(t, tbl.Delete())
	require.NoError(t, tbl.Flush())
	require.NoError(t, tbl.Pack())

	require.Equal(t, int64(2), tbl.RecCount())
	nameIdx, _ := tbl.FieldIndex("NAME")

	require.NoError(t, tbl.Goto(1))
	name, _ := tbl.GetString(nameIdx)
	require.Equal(t, "John Doe", name)

	require.NoError(t, tbl.Goto(2))
	name, _ = tbl.GetString(nameIdx)
	require.Equal(t, "Bob", name)
}

func TestPackWithNoDeletedRecordsIsNoop(t *testing.T) {
	tbl, _ := createSampleTable(t)
	defer tbl.Close()
	appendRow(t, tbl, "John Doe", 25, true)
	appendRow(t, tbl, "Jane Smith", 30, false)

	require.NoError(t, tbl.Pack())
	require.Equal(t, int64(2), tbl.RecCount())
	nameIdx, _ := tbl.FieldIndex("NAME")
	require.NoError(t, tbl.Goto(1))
	name, _ := tbl.GetString(nameIdx)
	require.Equal(t, "John Doe", name)
}

func TestZapEmptiesTableButKeepsFields(t *testing.T) {
	tbl, _ := createSampleTable(t)
	defer tbl.Close()
	appendRow(t, tbl, "John Doe", 25, true)
	appendRow(t, tbl, "Jane Smith", 30, false)

	require.NoError(t, tbl.Zap())
	require.Equal(t, int64(0), tbl.RecCount())
	require.Len(t, tbl.Fields(), 3)
}

func TestSkipClampsAtBofAndEof(t *testing.T) {
	tbl, _ := createSampleTable(t)
	defer tbl.Close()
	appendRow(t, tbl, "A", 1, true)
	appendRow(t, tbl, "B", 2, true)

	require.NoError(t, tbl.GoTop())
	require.NoError(t, tbl.Skip(-5))
	require.True(t, tbl.BOF())

	require.NoError(t, tbl.GoTop())
	require.NoError(t, tbl.Skip(5))
	require.True(t, tbl.EOF())
}

func TestNumericOverflowTruncatesLeft(t *testing.T) {
	tbl, _ := createSampleTable(t)
	defer tbl.Close()
	appendRow(t, tbl, "X", 1, true)

	ageIdx, _ := tbl.FieldIndex("AGE")
	require.NoError(t, tbl.SetNumber(ageIdx, 12345))
	n, err := tbl.GetNumber(ageIdx)
	require.NoError(t, err)
	require.Equal(t, float64(345), n)
}
