// Package dbf implements the dBASE III+ compatible table file engine
// described in spec.md §3 "Table file (DBF)" and §4.1.
//
// Grounded in the teacher's pkg/gocore (data4.go, field4.go, write4.go,
// create4.go): a single in-memory handle owns the file descriptor, the
// field table, and one full-record buffer, exactly as Data4/Data4File did
// for the CodeBase/Visual FoxPro format — generalized here to the plain
// dBASE III+ header (version 0x03/0x83, no CDX production-index probing)
// and restricted to the five field types the format defines: C, N, D, L, M.
package dbf

import (
	"os"

	"github.com/mkfoss/dbase3/pkg/dbferr"
	"golang.org/x/text/encoding/charmap"
)

// FieldType is the single-character dBASE field type tag.
type FieldType byte

const (
	Character FieldType = 'C'
	Numeric   FieldType = 'N'
	DateType  FieldType = 'D'
	Logical   FieldType = 'L'
	Memo      FieldType = 'M'
)

func (t FieldType) Valid() bool {
	switch t {
	case Character, Numeric, DateType, Logical, Memo:
		return true
	default:
		return false
	}
}

// FieldDef describes one field descriptor, on disk and in memory. Offset
// is computed at open/create time by accumulating lengths starting at
// record offset 1 (offset 0 is the delete-flag byte).
type FieldDef struct {
	Name     string
	Type     FieldType
	Length   byte
	Decimals byte
	Offset   int
}

const (
	headerBaseSize  = 32
	fieldDescSize   = 32
	fieldTerminator = 0x0D
	eofMarker       = 0x1A
	deletedFlag     = '*'
	activeFlag      = ' '
)

// Table is an open handle on a .dbf file: one file descriptor, one field
// table, one record buffer, and cursor state. Not safe for concurrent use
// — spec.md §1 assumes exclusive writer access; a host serializes access
// with its own mutex (spec.md §5).
type Table struct {
	file     *os.File
	path     string
	readOnly bool

	version byte
	year    byte
	month   byte
	day     byte

	recordCount uint32
	headerSize  uint16
	recordSize  uint16

	fields []FieldDef
	byName map[string]int

	codePage     byte
	charEncoding *charmap.Charmap

	record []byte // recordSize bytes, record[0] is the delete flag
	recNo  uint32 // 0 == BOF
	atEOF  bool
	atBOF  bool
	dirty  bool
}

// Fields returns the field descriptor table, in declaration order.
func (t *Table) Fields() []FieldDef { return append([]FieldDef(nil), t.fields...) }

// FieldCount returns the number of fields.
func (t *Table) FieldCount() int { return len(t.fields) }

// FieldIndex resolves a field name to its zero-based index,
// case-insensitively (spec.md §4.1 "Field names compare case-insensitively").
func (t *Table) FieldIndex(name string) (int, bool) {
	idx, ok := t.byName[upper(name)]
	return idx, ok
}

// RecNo returns the current 1-based record number, 0 at BOF.
func (t *Table) RecNo() int64 { return int64(t.recNo) }

// RecCount returns the total number of records in the table.
func (t *Table) RecCount() int64 { return int64(t.recordCount) }

// EOF reports whether the cursor is positioned past the last record.
func (t *Table) EOF() bool { return t.atEOF }

// BOF reports whether the cursor is positioned before the first record.
func (t *Table) BOF() bool { return t.atBOF }

// Deleted reports whether the current record is marked for deletion.
func (t *Table) Deleted() bool {
	if len(t.record) == 0 {
		return false
	}
	return t.record[0] == deletedFlag
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func errf(kind dbferr.Kind, msg string) error { return dbferr.New(kind, msg) }
