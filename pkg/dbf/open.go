package dbf

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mkfoss/dbase3/pkg/dbferr"
)

// Open reads an existing table's header and field descriptors, validates
// record-size consistency, and positions the cursor at record 1 (or BOF
// if the table is empty). Mirrors D4Open (pkg/gocore/data4.go) narrowed
// to the plain dBASE III+ layout (spec.md §3).
func Open(path string, readOnly bool) (*Table, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errf(dbferr.FileNotFound, path)
		}
		return nil, errf(dbferr.FileRead, err.Error())
	}

	t := &Table{file: f, path: path, readOnly: readOnly}
	if err := t.readHeader(); err != nil {
		f.Close()
		return nil, err
	}
	if err := t.readFieldDescriptors(); err != nil {
		f.Close()
		return nil, err
	}

	want := 1
	for _, fd := range t.fields {
		want += int(fd.Length)
	}
	if want != int(t.recordSize) {
		f.Close()
		return nil, errf(dbferr.InvalidDBF, fmt.Sprintf("record_size %d != computed %d", t.recordSize, want))
	}

	t.record = make([]byte, t.recordSize)
	if t.recordCount == 0 {
		t.atBOF = true
		t.atEOF = true
		t.recNo = 0
	} else {
		if err := t.Goto(1); err != nil {
			f.Close()
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) readHeader() error {
	buf := make([]byte, headerBaseSize)
	n, err := t.file.ReadAt(buf, 0)
	if err != nil || n != headerBaseSize {
		return errf(dbferr.InvalidDBF, "short header")
	}
	t.version = buf[0]
	if t.version != 0x03 && t.version != 0x83 {
		return errf(dbferr.InvalidDBF, fmt.Sprintf("unsupported version byte 0x%02x", t.version))
	}
	t.year, t.month, t.day = buf[1], buf[2], buf[3]
	t.recordCount = binary.LittleEndian.Uint32(buf[4:8])
	t.headerSize = binary.LittleEndian.Uint16(buf[8:10])
	t.recordSize = binary.LittleEndian.Uint16(buf[10:12])
	t.codePage = buf[codePageOffset]
	t.resolveEncoding()
	return nil
}

func (t *Table) readFieldDescriptors() error {
	n := (int(t.headerSize) - headerBaseSize - 1) / fieldDescSize
	if n <= 0 {
		return errf(dbferr.InvalidDBF, "no field descriptors")
	}
	buf := make([]byte, n*fieldDescSize)
	if _, err := t.file.ReadAt(buf, headerBaseSize); err != nil {
		return errf(dbferr.FileRead, err.Error())
	}

	fields := make([]FieldDef, 0, n)
	byName := make(map[string]int, n)
	offset := 1
	for i := 0; i < n; i++ {
		rec := buf[i*fieldDescSize : (i+1)*fieldDescSize]
		name := strings.TrimRight(string(rec[0:11]), "\x00")
		typ := FieldType(rec[11])
		if !typ.Valid() {
			return errf(dbferr.InvalidField, fmt.Sprintf("unknown field type %q", string(rec[11])))
		}
		length := rec[16]
		dec := rec[17]
		fd := FieldDef{
			Name:     upper(name),
			Type:     typ,
			Length:   length,
			Decimals: dec,
			Offset:   offset,
		}
		offset += int(length)
		fields = append(fields, fd)
		byName[fd.Name] = i
	}
	t.fields = fields
	t.byName = byName
	return nil
}

// Create validates field definitions, computes header/record sizes, and
// writes header + descriptors + terminator + EOF marker for a new, empty
// table. Mirrors D4Create (pkg/gocore/create4.go) narrowed to C/N/D/L/M.
func Create(path string, fields []FieldDef, opts ...Option) (*Table, error) {
	if len(fields) == 0 {
		return nil, errf(dbferr.InvalidField, "no fields given")
	}
	norm := make([]FieldDef, len(fields))
	copy(norm, fields)
	for i := range norm {
		fd := &norm[i]
		fd.Name = upper(fd.Name)
		if fd.Name == "" || len(fd.Name) > 10 {
			return nil, errf(dbferr.InvalidField, "field name must be 1-10 chars: "+fd.Name)
		}
		switch fd.Type {
		case Character:
			if fd.Length < 1 || fd.Length > 254 {
				return nil, errf(dbferr.InvalidField, fd.Name+": C length must be 1-254")
			}
		case Numeric:
			if fd.Length < 1 || fd.Length > 20 {
				return nil, errf(dbferr.InvalidField, fd.Name+": N length must be 1-20")
			}
		case DateType:
			fd.Length, fd.Decimals = 8, 0
		case Logical:
			fd.Length, fd.Decimals = 1, 0
		case Memo:
			fd.Length, fd.Decimals = 10, 0
		default:
			return nil, errf(dbferr.InvalidField, fd.Name+": unsupported type "+string(fd.Type))
		}
	}

	recordSize := 1
	offset := 1
	for i := range norm {
		norm[i].Offset = offset
		offset += int(norm[i].Length)
		recordSize += int(norm[i].Length)
	}
	headerSize := headerBaseSize + len(norm)*fieldDescSize + 1

	f, err := os.Create(path)
	if err != nil {
		return nil, errf(dbferr.FileCreate, err.Error())
	}

	t := &Table{
		file:        f,
		path:        path,
		headerSize:  uint16(headerSize),
		recordSize:  uint16(recordSize),
		recordCount: 0,
		version:     0x03,
		fields:      norm,
		byName:      map[string]int{},
	}
	now := time.Now()
	t.year, t.month, t.day = byte(now.Year()-1900), byte(now.Month()), byte(now.Day())
	for i, fd := range norm {
		t.byName[fd.Name] = i
	}
	t.record = make([]byte, recordSize)
	for _, opt := range opts {
		opt(t)
	}

	if err := t.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	if err := t.writeFieldDescriptors(); err != nil {
		f.Close()
		return nil, err
	}
	trailer := []byte{fieldTerminator, eofMarker}
	if _, err := f.WriteAt(trailer, int64(headerSize-1)); err != nil {
		f.Close()
		return nil, errf(dbferr.FileWrite, err.Error())
	}

	t.atBOF, t.atEOF = true, true
	return t, nil
}

func (t *Table) writeHeader() error {
	buf := make([]byte, headerBaseSize)
	buf[0] = t.version
	buf[1], buf[2], buf[3] = t.year, t.month, t.day
	binary.LittleEndian.PutUint32(buf[4:8], t.recordCount)
	binary.LittleEndian.PutUint16(buf[8:10], t.headerSize)
	binary.LittleEndian.PutUint16(buf[10:12], t.recordSize)
	buf[codePageOffset] = t.codePage
	if _, err := t.file.WriteAt(buf, 0); err != nil {
		return errf(dbferr.FileWrite, err.Error())
	}
	return nil
}

func (t *Table) writeFieldDescriptors() error {
	buf := make([]byte, len(t.fields)*fieldDescSize)
	for i, fd := range t.fields {
		rec := buf[i*fieldDescSize : (i+1)*fieldDescSize]
		copy(rec[0:11], fd.Name)
		rec[11] = byte(fd.Type)
		rec[16] = fd.Length
		rec[17] = fd.Decimals
	}
	if _, err := t.file.WriteAt(buf, headerBaseSize); err != nil {
		return errf(dbferr.FileWrite, err.Error())
	}
	return nil
}

// Close flushes a pending modification, if any, and closes the file.
func (t *Table) Close() error {
	if t.file == nil {
		return nil
	}
	if err := t.Flush(); err != nil {
		t.file.Close()
		t.file = nil
		return err
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// Path returns the filesystem path of the open table.
func (t *Table) Path() string { return t.path }
