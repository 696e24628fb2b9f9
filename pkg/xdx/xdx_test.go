package xdx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T, unique, descending bool) (*Tree, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.xdx")
	tree, err := Create(path, KeyChar, 8, unique, descending, "NAME")
	require.NoError(t, err)
	return tree, path
}

func padKey(s string) []byte {
	out := make([]byte, 8)
	copy(out, s)
	for i := len(s); i < 8; i++ {
		out[i] = ' '
	}
	return out
}

func TestInsertManyKeepsSortedOrder(t *testing.T) {
	tree, _ := newTree(t, false, false)
	defer tree.Close()

	names := []string{"mallory", "alice", "heidi", "carol", "bob", "dave", "erin", "frank", "grace", "ivan"}
	for i, n := range names {
		require.NoError(t, tree.Insert(padKey(n), uint32(i+1)))
	}

	_, ok, err := tree.GoTop()
	require.NoError(t, err)
	require.True(t, ok)

	var seen []string
	for {
		n, err := tree.getNode(tree.curNode)
		require.NoError(t, err)
		seen = append(seen, string(n.entries[tree.curPos].key))
		_, ok, err := tree.Skip(1)
		require.NoError(t, err)
		if !ok {
			break
		}
	}

	require.Len(t, seen, len(names))
	for i := 1; i < len(seen); i++ {
		require.LessOrEqual(t, seen[i-1], seen[i])
	}
}

func TestUniqueIndexRejectsDuplicateKey(t *testing.T) {
	tree, _ := newTree(t, true, false)
	defer tree.Close()

	require.NoError(t, tree.Insert(padKey("alice"), 1))
	err := tree.Insert(padKey("alice"), 2)
	require.Error(t, err)
}

func TestNonUniqueIndexKeepsDuplicateKeysByRecno(t *testing.T) {
	tree, _ := newTree(t, false, false)
	defer tree.Close()

	require.NoError(t, tree.Insert(padKey("alice"), 5))
	require.NoError(t, tree.Insert(padKey("alice"), 2))
	require.NoError(t, tree.Insert(padKey("alice"), 9))

	found, recno, err := tree.Seek(padKey("alice"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(2), recno)
}

func TestSeekFindsFirstMatchAmongDuplicates(t *testing.T) {
	tree, _ := newTree(t, false, false)
	defer tree.Close()

	for i, n := range []string{"bob", "alice", "carol", "alice", "dave"} {
		require.NoError(t, tree.Insert(padKey(n), uint32(i+1)))
	}

	found, recno, err := tree.Seek(padKey("alice"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(2), recno)
}

func TestSeekNoExactMatchReturnsSuccessor(t *testing.T) {
	tree, _ := newTree(t, false, false)
	defer tree.Close()

	require.NoError(t, tree.Insert(padKey("bob"), 1))
	require.NoError(t, tree.Insert(padKey("dave"), 2))

	found, recno, err := tree.Seek(padKey("carol"))
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, uint32(2), recno)
}

func TestSeekPastLastKeyReturnsEOF(t *testing.T) {
	tree, _ := newTree(t, false, false)
	defer tree.Close()

	require.NoError(t, tree.Insert(padKey("bob"), 1))
	_, _, err := tree.Seek(padKey("zzz"))
	require.Error(t, err)
}

func TestDeleteRemovesExactRecord(t *testing.T) {
	tree, _ := newTree(t, false, false)
	defer tree.Close()

	require.NoError(t, tree.Insert(padKey("alice"), 1))
	require.NoError(t, tree.Insert(padKey("alice"), 2))

	require.NoError(t, tree.Delete(padKey("alice"), 1))

	found, recno, err := tree.Seek(padKey("alice"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(2), recno)
}

func TestDescendingIndexReversesOrder(t *testing.T) {
	tree, _ := newTree(t, false, true)
	defer tree.Close()

	for i, n := range []string{"alice", "bob", "carol"} {
		require.NoError(t, tree.Insert(padKey(n), uint32(i+1)))
	}

	recno, ok, err := tree.GoTop()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(3), recno) // carol sorts first when descending
}

func TestReindexRebuildsFromScratch(t *testing.T) {
	tree, path := newTree(t, false, false)
	require.NoError(t, tree.Insert(padKey("stale"), 1))

	pairs := []KeyRecno{
		{Key: padKey("bob"), Recno: 2},
		{Key: padKey("alice"), Recno: 1},
		{Key: padKey("carol"), Recno: 3},
	}
	require.NoError(t, tree.Reindex(pairs))
	require.NoError(t, tree.Close())

	reopened, err := OpenWriter(path)
	require.NoError(t, err)
	defer reopened.Close()

	found, recno, err := reopened.Seek(padKey("alice"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(1), recno)
}

func TestSeekFindsKeyPromotedToInternalNode(t *testing.T) {
	tree, _ := newTree(t, false, false)
	defer tree.Close()

	// order 4: the fourth insert splits the root leaf, moving the median
	// key up into a new internal root.
	names := []string{"alice", "bob", "carol", "dave", "erin", "frank"}
	for i, n := range names {
		require.NoError(t, tree.Insert(padKey(n), uint32(i+1)))
	}
	for i, n := range names {
		found, recno, err := tree.Seek(padKey(n))
		require.NoError(t, err, n)
		require.True(t, found, n)
		require.Equal(t, uint32(i+1), recno, n)
	}
}

func TestUniqueIndexRejectsDuplicateOfPromotedKey(t *testing.T) {
	tree, _ := newTree(t, true, false)
	defer tree.Close()

	for i, n := range []string{"alice", "bob", "carol", "dave", "erin"} {
		require.NoError(t, tree.Insert(padKey(n), uint32(i+1)))
	}
	for _, n := range []string{"alice", "carol", "erin"} {
		err := tree.Insert(padKey(n), 99)
		require.Error(t, err, n)
	}
}

func TestDeleteKeyResidentInInternalNode(t *testing.T) {
	tree, _ := newTree(t, false, false)
	defer tree.Close()

	names := []string{"alice", "bob", "carol", "dave", "erin", "frank"}
	for i, n := range names {
		require.NoError(t, tree.Insert(padKey(n), uint32(i+1)))
	}

	// delete every key in turn, checking the survivors stay reachable
	for i, n := range names {
		require.NoError(t, tree.Delete(padKey(n), uint32(i+1)), n)
		_, _, err := tree.Seek(padKey(n))
		if err == nil {
			found, _, _ := tree.Seek(padKey(n))
			require.False(t, found, "%s should be gone", n)
		}
		for j := i + 1; j < len(names); j++ {
			found, recno, err := tree.Seek(padKey(names[j]))
			require.NoError(t, err, names[j])
			require.True(t, found, names[j])
			require.Equal(t, uint32(j+1), recno, names[j])
		}
	}
}

func TestOpenRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xdx")
	require.NoError(t, os.WriteFile(path, make([]byte, headerSize), 0644))
	_, err := Open(path)
	require.Error(t, err)
}
