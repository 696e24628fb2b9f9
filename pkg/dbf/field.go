package dbf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mkfoss/dbase3/pkg/dbferr"
)

func (t *Table) fieldSlice(idx int) ([]byte, *FieldDef, error) {
	if idx < 0 || idx >= len(t.fields) {
		return nil, nil, errf(dbferr.InvalidField, fmt.Sprintf("field index %d out of range", idx))
	}
	fd := &t.fields[idx]
	start, end := fd.Offset, fd.Offset+int(fd.Length)
	if end > len(t.record) {
		return nil, nil, errf(dbferr.InvalidRecord, "field offset beyond record buffer")
	}
	return t.record[start:end], fd, nil
}

// GetString decodes field idx as a Character field: trimmed of trailing
// spaces. When the table declares a non-default code page (offset 29 of
// the header), the bytes are decoded through it first; the dBASE III+
// default (code page 0) is returned byte-for-byte. For non-character
// types, the field text is still returned, trimmed of trailing spaces the
// same way (callers distinguish by FieldDef.Type; GetRaw keeps padding).
func (t *Table) GetString(idx int) (string, error) {
	raw, _, err := t.fieldSlice(idx)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(decodeChar(t.charEncoding, raw), " "), nil
}

// GetRaw returns the untrimmed, space-padded field bytes as text.
func (t *Table) GetRaw(idx int) (string, error) {
	raw, _, err := t.fieldSlice(idx)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// GetNumber parses field idx as ASCII decimal; a field of all spaces
// parses as 0.
func (t *Table) GetNumber(idx int) (float64, error) {
	raw, fd, err := t.fieldSlice(idx)
	if err != nil {
		return 0, err
	}
	if fd.Type != Numeric {
		return 0, errf(dbferr.TypeMismatch, fd.Name+" is not numeric")
	}
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// GetLogical accepts T/t/Y/y as true, anything else as false.
func (t *Table) GetLogical(idx int) (bool, error) {
	raw, fd, err := t.fieldSlice(idx)
	if err != nil {
		return false, err
	}
	if fd.Type != Logical {
		return false, errf(dbferr.TypeMismatch, fd.Name+" is not logical")
	}
	switch raw[0] {
	case 'T', 't', 'Y', 'y':
		return true, nil
	default:
		return false, nil
	}
}

// GetDate returns the raw 8-byte date text (or 8 spaces when empty).
func (t *Table) GetDate(idx int) (string, error) {
	raw, fd, err := t.fieldSlice(idx)
	if err != nil {
		return "", err
	}
	if fd.Type != DateType {
		return "", errf(dbferr.TypeMismatch, fd.Name+" is not a date")
	}
	return string(raw), nil
}

// SetString writes a Character field, space-padded on the right and
// truncated to field width if the value is too long.
func (t *Table) SetString(idx int, s string) error {
	raw, fd, err := t.fieldSlice(idx)
	if err != nil {
		return err
	}
	if fd.Type != Character && fd.Type != Memo {
		return errf(dbferr.TypeMismatch, fd.Name+" is not a character field")
	}
	writePadded(raw, string(encodeChar(t.charEncoding, s)))
	t.markDirty()
	return nil
}

// SetNumber right-aligns a formatted numeric value within the field
// width. Overflow silently truncates from the left (documented lossy
// behavior, spec.md §4.1).
func (t *Table) SetNumber(idx int, n float64) error {
	raw, fd, err := t.fieldSlice(idx)
	if err != nil {
		return err
	}
	if fd.Type != Numeric {
		return errf(dbferr.TypeMismatch, fd.Name+" is not numeric")
	}
	text := strconv.FormatFloat(n, 'f', int(fd.Decimals), 64)
	writeRightAligned(raw, text)
	t.markDirty()
	return nil
}

// SetLogical writes 'T' or 'F'.
func (t *Table) SetLogical(idx int, b bool) error {
	raw, fd, err := t.fieldSlice(idx)
	if err != nil {
		return err
	}
	if fd.Type != Logical {
		return errf(dbferr.TypeMismatch, fd.Name+" is not logical")
	}
	if b {
		raw[0] = 'T'
	} else {
		raw[0] = 'F'
	}
	t.markDirty()
	return nil
}

// SetDate writes an 8-digit YYYYMMDD date, or blanks the field when s is
// empty.
func (t *Table) SetDate(idx int, s string) error {
	raw, fd, err := t.fieldSlice(idx)
	if err != nil {
		return err
	}
	if fd.Type != DateType {
		return errf(dbferr.TypeMismatch, fd.Name+" is not a date")
	}
	if s == "" {
		for i := range raw {
			raw[i] = ' '
		}
	} else if len(s) == 8 {
		copy(raw, s)
	} else {
		return errf(dbferr.InvalidField, "date must be 8 digits")
	}
	t.markDirty()
	return nil
}

func writePadded(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = ' '
	}
}

func writeRightAligned(dst []byte, s string) {
	if len(s) >= len(dst) {
		copy(dst, s[len(s)-len(dst):])
		return
	}
	pad := len(dst) - len(s)
	for i := 0; i < pad; i++ {
		dst[i] = ' '
	}
	copy(dst[pad:], s)
}
