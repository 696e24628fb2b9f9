package dbf

import "github.com/mkfoss/dbase3/pkg/dbferr"

// Goto seeks to record n, loading it into the buffer. n == 0 positions at
// BOF with a blank buffer; n beyond the last record positions one past
// last with EOF set (spec.md §4.1).
func (t *Table) Goto(n int64) error {
	if err := t.flushIfDirty(); err != nil {
		return err
	}
	switch {
	case n <= 0:
		t.recNo = 0
		t.atBOF = true
		t.atEOF = t.recordCount == 0
		clearRecord(t.record)
		return nil
	case n > int64(t.recordCount):
		t.recNo = t.recordCount + 1
		t.atBOF = false
		t.atEOF = true
		clearRecord(t.record)
		return nil
	default:
		t.recNo = uint32(n)
		t.atBOF = false
		t.atEOF = false
		return t.readRecord(t.recNo)
	}
}

// Skip moves the cursor by delta records (signed), clamping to BOF at 0
// and EOF at recordCount+1.
func (t *Table) Skip(delta int64) error {
	cur := int64(t.recNo)
	if t.atBOF {
		cur = 0
	}
	return t.Goto(cur + delta)
}

// GoTop positions at record 1, or BOF+EOF simultaneously if the table is
// empty.
func (t *Table) GoTop() error {
	if t.recordCount == 0 {
		return t.Goto(0)
	}
	return t.Goto(1)
}

// GoBottom positions at the last record, or BOF+EOF simultaneously if the
// table is empty.
func (t *Table) GoBottom() error {
	if t.recordCount == 0 {
		return t.Goto(0)
	}
	return t.Goto(int64(t.recordCount))
}

func (t *Table) readRecord(n uint32) error {
	off := int64(t.headerSize) + int64(n-1)*int64(t.recordSize)
	nRead, err := t.file.ReadAt(t.record, off)
	if err != nil || nRead != len(t.record) {
		return errf(dbferr.FileRead, "short record read")
	}
	t.dirty = false
	return nil
}

func (t *Table) flushIfDirty() error {
	if t.dirty {
		return t.Flush()
	}
	return nil
}

func clearRecord(buf []byte) {
	for i := range buf {
		buf[i] = ' '
	}
	if len(buf) > 0 {
		buf[0] = activeFlag
	}
}
