package dbf

import (
	"time"

	"github.com/mkfoss/dbase3/pkg/dbferr"
)

// AppendBlank flushes any pending modification, appends a space-filled
// active record at the end of the table, rewrites the EOF marker and
// header, and positions the cursor on the new last record.
func (t *Table) AppendBlank() error {
	if t.readOnly {
		return errf(dbferr.FileWrite, "table opened read-only")
	}
	if err := t.flushIfDirty(); err != nil {
		return err
	}

	blank := make([]byte, t.recordSize)
	clearRecord(blank)

	newNo := t.recordCount + 1
	off := int64(t.headerSize) + int64(newNo-1)*int64(t.recordSize)
	if _, err := t.file.WriteAt(blank, off); err != nil {
		return errf(dbferr.FileWrite, err.Error())
	}
	if _, err := t.file.WriteAt([]byte{eofMarker}, off+int64(t.recordSize)); err != nil {
		return errf(dbferr.FileWrite, err.Error())
	}

	t.recordCount = newNo
	if err := t.writeHeader(); err != nil {
		return err
	}

	t.recNo = newNo
	t.atBOF, t.atEOF = false, false
	copy(t.record, blank)
	t.dirty = false
	return nil
}

// Delete marks the current record deleted (byte 0 -> '*') and sets the
// dirty flag; the mutation is flushed on navigation away from the record.
func (t *Table) Delete() error {
	if len(t.record) == 0 {
		return errf(dbferr.InvalidRecord, "no current record")
	}
	t.record[0] = deletedFlag
	t.dirty = true
	return nil
}

// Recall clears the delete flag on the current record.
func (t *Table) Recall() error {
	if len(t.record) == 0 {
		return errf(dbferr.InvalidRecord, "no current record")
	}
	t.record[0] = activeFlag
	t.dirty = true
	return nil
}

// Flush writes the current record buffer back to disk if dirty, and
// updates the header's last-modified date.
func (t *Table) Flush() error {
	if !t.dirty {
		return nil
	}
	if t.readOnly {
		t.dirty = false
		return nil
	}
	if t.recNo == 0 || t.recNo > t.recordCount {
		t.dirty = false
		return nil
	}
	off := int64(t.headerSize) + int64(t.recNo-1)*int64(t.recordSize)
	if _, err := t.file.WriteAt(t.record, off); err != nil {
		return errf(dbferr.FileWrite, err.Error())
	}
	now := time.Now()
	t.year, t.month, t.day = byte(now.Year()-1900), byte(now.Month()), byte(now.Day())
	if err := t.writeHeader(); err != nil {
		return err
	}
	t.dirty = false
	return t.file.Sync()
}

// markDirty flags the current record buffer as modified; field setters
// call this. The buffer's dirty bit is the single source of truth for
// whether a flush-on-navigate is needed (spec.md §9).
func (t *Table) markDirty() { t.dirty = true }

// Pack performs an in-order compaction: active records are copied to a
// write cursor that trails the read cursor, preserving their relative
// order; the file is
// truncated to the new size (spec.md §9 recommends truncating, unlike
// the historical behavior of only rewriting the header).
func (t *Table) Pack() error {
	if t.readOnly {
		return errf(dbferr.FileWrite, "table opened read-only")
	}
	if err := t.flushIfDirty(); err != nil {
		return err
	}

	buf := make([]byte, t.recordSize)
	var writeIdx uint32
	for i := uint32(1); i <= t.recordCount; i++ {
		readOff := int64(t.headerSize) + int64(i-1)*int64(t.recordSize)
		if _, err := t.file.ReadAt(buf, readOff); err != nil {
			return errf(dbferr.FileRead, err.Error())
		}
		if buf[0] == deletedFlag {
			continue
		}
		if writeIdx != i-1 {
			writeOff := int64(t.headerSize) + int64(writeIdx)*int64(t.recordSize)
			if _, err := t.file.WriteAt(buf, writeOff); err != nil {
				return errf(dbferr.FileWrite, err.Error())
			}
		}
		writeIdx++
	}

	t.recordCount = writeIdx
	newSize := int64(t.headerSize) + int64(t.recordCount)*int64(t.recordSize) + 1
	eofOff := newSize - 1
	if _, err := t.file.WriteAt([]byte{eofMarker}, eofOff); err != nil {
		return errf(dbferr.FileWrite, err.Error())
	}
	if err := t.file.Truncate(newSize); err != nil {
		return errf(dbferr.FileWrite, err.Error())
	}
	if err := t.writeHeader(); err != nil {
		return err
	}

	return t.GoTop()
}

// Zap empties the table: record count becomes 0, field descriptors are
// preserved, and the file is truncated to header+1 bytes.
func (t *Table) Zap() error {
	if t.readOnly {
		return errf(dbferr.FileWrite, "table opened read-only")
	}
	t.recordCount = 0
	t.dirty = false
	if err := t.file.Truncate(int64(t.headerSize)); err != nil {
		return errf(dbferr.FileWrite, err.Error())
	}
	if _, err := t.file.WriteAt([]byte{eofMarker}, int64(t.headerSize)); err != nil {
		return errf(dbferr.FileWrite, err.Error())
	}
	if err := t.writeHeader(); err != nil {
		return err
	}
	return t.Goto(0)
}
