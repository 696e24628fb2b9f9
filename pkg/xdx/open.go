package xdx

import (
	"os"

	"github.com/mkfoss/dbase3/pkg/dbferr"
)

// defaultOrder bounds node fan-out; chosen small enough that unit tests
// exercise splits without huge fixtures, matching the teacher's
// CDXMaxKeysPerBlock-style constant (pkg/gocore/index4.go).
const defaultOrder = 4

// Create writes a fresh XDX file: a 512-byte header plus a single empty
// leaf root node (spec.md §3 "a fresh index has a single empty leaf
// root").
func Create(path string, keyType KeyType, keyLength int, unique, descending bool, keyExpr string) (*Tree, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, ierr(dbferr.FileCreate, err.Error())
	}
	t := &Tree{
		file: f,
		path: path,
		hdr: Header{
			KeyType:    keyType,
			KeyLength:  uint16(keyLength),
			Order:      defaultOrder,
			Unique:     unique,
			Descending: descending,
			KeyExpr:    keyExpr,
		},
	}
	t.computeLayout()

	root := t.allocateNode(true)
	t.hdr.RootOffset = root.offset
	t.root = root

	if err := t.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	if err := t.writeNode(root); err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

// Open reads the header and root node of an existing XDX file, rejecting
// files whose magic or version don't match (spec.md §6).
func Open(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ierr(dbferr.FileNotFound, err.Error())
	}
	buf := make([]byte, headerSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		f.Close()
		return nil, ierr(dbferr.InvalidIndex, "short header")
	}
	hdr, err := decodeHeader(buf)
	if err != nil {
		f.Close()
		return nil, err
	}
	t := &Tree{file: f, path: path, hdr: hdr}
	t.computeLayout()
	root, err := t.readNode(hdr.RootOffset)
	if err != nil {
		f.Close()
		return nil, err
	}
	t.root = root
	return t, nil
}

// OpenWriter reopens path for read/write, used when a table's controlling
// index must accept inserts/deletes rather than only seeks.
func OpenWriter(path string) (*Tree, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, ierr(dbferr.FileNotFound, err.Error())
	}
	buf := make([]byte, headerSize)
	if _, err := f.ReadAt(buf, 0); err != nil {
		f.Close()
		return nil, ierr(dbferr.InvalidIndex, "short header")
	}
	hdr, err := decodeHeader(buf)
	if err != nil {
		f.Close()
		return nil, err
	}
	t := &Tree{file: f, path: path, hdr: hdr}
	t.computeLayout()
	root, err := t.readNode(hdr.RootOffset)
	if err != nil {
		f.Close()
		return nil, err
	}
	t.root = root
	return t, nil
}

// Close flushes the header (root offset/node count may have changed) and
// closes the file.
func (t *Tree) Close() error {
	if t.file == nil {
		return nil
	}
	if t.root != nil && t.root.dirty {
		if err := t.writeNode(t.root); err != nil {
			t.file.Close()
			return err
		}
	}
	if err := t.writeHeader(); err != nil {
		t.file.Close()
		return err
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// Header returns a copy of the index header.
func (t *Tree) Header() Header { return t.hdr }

// Path returns the filesystem path of the open index.
func (t *Tree) Path() string { return t.path }
