// Package xdx implements the paged on-disk B-tree index engine described
// in spec.md §3 "Index file (XDX)" and §4.2.
//
// Grounded in the teacher's pkg/gocore/index4.go (I4Open/I4Create, the
// b4*/t4* block read/write/split/search helpers, key_compare dispatch):
// the same "read node on demand, cache only the root, split on overflow"
// shape, rebuilt against the XDX header/node layout spec.md defines
// (a single flat B-tree per file, not CDX's multi-tag compound index).
package xdx

import (
	"os"

	"github.com/mkfoss/dbase3/pkg/dbferr"
)

const (
	magic         = "XDX\000"
	formatVersion = 1

	headerSize   = 512
	keyExprSize  = 256
	nodeHeadSize = 8 // keyCount(2) + leafFlag(1) + reserved(1) + parentOffset(4)

	flagUnique     = 1 << 0
	flagDescending = 1 << 1
)

// KeyType identifies how key bytes compare (spec.md §4.2).
type KeyType byte

const (
	KeyChar    KeyType = 'C'
	KeyNumeric KeyType = 'N'
	KeyDate    KeyType = 'D'
)

// Header mirrors the 512-byte on-disk XDX header.
type Header struct {
	KeyType    KeyType
	KeyLength  uint16
	RootOffset uint32
	NodeCount  uint32
	Order      uint16 // max keys per node (branching order)
	Unique     bool
	Descending bool
	KeyExpr    string
}

// entry is one (key, recno[, child]) slot within a node.
type entry struct {
	key   []byte
	recno uint32
	child uint32 // left child for this entry, internal nodes only
}

// node is the in-memory mirror of one on-disk node.
type node struct {
	offset  uint32
	leaf    bool
	parent  uint32
	entries []entry
	right   uint32 // rightmost child, internal nodes only
	dirty   bool
}

func (n *node) keyCount() int { return len(n.entries) }

// Tree is an open handle on an .xdx file: header, cached root node, and a
// leaf+position cursor for ordered traversal (spec.md §9 "skip(count)").
type Tree struct {
	file *os.File
	path string

	hdr Header

	nodeSize  int64 // fixed on-disk size of every node, derived from Order+KeyLength
	entrySize int64 // keyLength + 4 (recno) + 4 (child, zero in leaves)

	root *node

	// traversal cursor for Skip(): the node currently positioned on (a
	// leaf, or an internal node when the key in order lives in one) and
	// the entry index within it.
	curNode  uint32
	curPos   int
	curValid bool
}

func ierr(kind dbferr.Kind, msg string) error { return dbferr.New(kind, msg) }
