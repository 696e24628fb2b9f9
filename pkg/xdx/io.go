package xdx

import (
	"encoding/binary"
	"strings"

	"github.com/mkfoss/dbase3/pkg/dbferr"
)

func (t *Tree) computeLayout() {
	// node stride: header + order entries (key+recno+child) + one trailing
	// right-child pointer. Leaves leave the per-entry child and the
	// trailing pointer as zero bytes, but every node gets the same size so
	// offsets are a simple multiple of nodeSize.
	t.entrySize = int64(t.hdr.KeyLength) + 4 + 4
	t.nodeSize = nodeHeadSize + int64(t.hdr.Order)*t.entrySize + 4
}

func (t *Tree) encodeHeader() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic)
	buf[4] = formatVersion
	buf[5] = byte(t.hdr.KeyType)
	binary.LittleEndian.PutUint16(buf[6:8], t.hdr.KeyLength)
	binary.LittleEndian.PutUint32(buf[8:12], t.hdr.RootOffset)
	binary.LittleEndian.PutUint32(buf[12:16], t.hdr.NodeCount)
	binary.LittleEndian.PutUint16(buf[16:18], t.hdr.Order)
	var flags uint16
	if t.hdr.Unique {
		flags |= flagUnique
	}
	if t.hdr.Descending {
		flags |= flagDescending
	}
	binary.LittleEndian.PutUint16(buf[18:20], flags)
	expr := t.hdr.KeyExpr
	if len(expr) > keyExprSize {
		expr = expr[:keyExprSize]
	}
	copy(buf[20:20+keyExprSize], expr)
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize || string(buf[0:4]) != magic {
		return Header{}, ierr(dbferr.InvalidIndex, "bad magic")
	}
	if buf[4] != formatVersion {
		return Header{}, ierr(dbferr.InvalidIndex, "bad version")
	}
	var h Header
	h.KeyType = KeyType(buf[5])
	h.KeyLength = binary.LittleEndian.Uint16(buf[6:8])
	h.RootOffset = binary.LittleEndian.Uint32(buf[8:12])
	h.NodeCount = binary.LittleEndian.Uint32(buf[12:16])
	h.Order = binary.LittleEndian.Uint16(buf[16:18])
	flags := binary.LittleEndian.Uint16(buf[18:20])
	h.Unique = flags&flagUnique != 0
	h.Descending = flags&flagDescending != 0
	h.KeyExpr = strings.TrimRight(string(buf[20:20+keyExprSize]), "\x00")
	return h, nil
}

func (t *Tree) writeHeader() error {
	_, err := t.file.WriteAt(t.encodeHeader(), 0)
	return err
}

// nodeFileOffset converts a logical node offset (stored in header/entries
// as a byte offset from the start of the file, per spec.md §3) into the
// same value — nodes live at headerSize + index*nodeSize, and the value
// we persist IS that absolute byte offset, so this is the identity; kept
// as a named seam in case a future revision switches to node indices.
func nodeFileOffset(off uint32) int64 { return int64(off) }

func (t *Tree) readNode(off uint32) (*node, error) {
	buf := make([]byte, t.nodeSize)
	if _, err := t.file.ReadAt(buf, nodeFileOffset(off)); err != nil {
		return nil, ierr(dbferr.InvalidIndex, "short node read")
	}
	n := &node{offset: off}
	keyCount := binary.LittleEndian.Uint16(buf[0:2])
	n.leaf = buf[2] != 0
	n.parent = binary.LittleEndian.Uint32(buf[4:8])

	pos := int64(nodeHeadSize)
	kl := int64(t.hdr.KeyLength)
	n.entries = make([]entry, keyCount)
	for i := 0; i < int(keyCount); i++ {
		e := entry{key: append([]byte(nil), buf[pos:pos+kl]...)}
		pos += kl
		e.recno = binary.LittleEndian.Uint32(buf[pos : pos+4])
		pos += 4
		e.child = binary.LittleEndian.Uint32(buf[pos : pos+4])
		pos += 4
		n.entries[i] = e
	}
	rightOff := nodeHeadSize + int64(t.hdr.Order)*t.entrySize
	n.right = binary.LittleEndian.Uint32(buf[rightOff : rightOff+4])
	return n, nil
}

func (t *Tree) encodeNode(n *node) []byte {
	buf := make([]byte, t.nodeSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(n.entries)))
	if n.leaf {
		buf[2] = 1
	}
	binary.LittleEndian.PutUint32(buf[4:8], n.parent)

	pos := int64(nodeHeadSize)
	kl := int64(t.hdr.KeyLength)
	for _, e := range n.entries {
		copy(buf[pos:pos+kl], e.key)
		pos += kl
		binary.LittleEndian.PutUint32(buf[pos:pos+4], e.recno)
		pos += 4
		binary.LittleEndian.PutUint32(buf[pos:pos+4], e.child)
		pos += 4
	}
	rightOff := nodeHeadSize + int64(t.hdr.Order)*t.entrySize
	binary.LittleEndian.PutUint32(buf[rightOff:rightOff+4], n.right)
	return buf
}

func (t *Tree) writeNode(n *node) error {
	_, err := t.file.WriteAt(t.encodeNode(n), nodeFileOffset(n.offset))
	n.dirty = false
	return err
}

// allocateNode appends a new, empty node at the end of the file and
// returns it (not yet written to disk).
func (t *Tree) allocateNode(leaf bool) *node {
	off := headerSize + t.hdr.NodeCount*uint32(t.nodeSize)
	t.hdr.NodeCount++
	return &node{offset: off, leaf: leaf, dirty: true}
}

func (t *Tree) getNode(off uint32) (*node, error) {
	if t.root != nil && t.root.offset == off {
		return t.root, nil
	}
	return t.readNode(off)
}
