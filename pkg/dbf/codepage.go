package dbf

import (
	"golang.org/x/text/encoding/charmap"
)

// codePageOffset is the Visual FoxPro/dBASE "language driver ID" byte in
// the 32-byte header (spec.md §3 notes this byte as reserved in the plain
// dBASE III+ layout; this engine reads and validates it as an extension
// point rather than ignoring it). A value of 0 means "unset" and the
// field stays on raw byte pass-through, matching dBASE III+'s own
// behavior of never interpreting it.
const codePageOffset = 29

// codePages maps the on-disk language-driver byte to a code page table.
// Only the handful the pack's example tables actually exercise are
// listed; an unrecognized non-zero byte is kept verbatim (Table.codePage)
// but falls back to raw pass-through rather than failing Open.
var codePages = map[byte]*charmap.Charmap{
	0x01: charmap.CodePage437,   // DOS USA
	0x02: charmap.CodePage850,   // DOS Multilingual
	0x03: charmap.Windows1252,   // Windows ANSI
	0x64: charmap.CodePage852,   // DOS Eastern European
	0x65: charmap.CodePage866,   // DOS Russian
	0xC8: charmap.Windows1250,   // Windows Eastern European
	0xC9: charmap.Windows1251,   // Windows Russian
	0xCA: charmap.Windows1254,   // Windows Turkish
	0xCB: charmap.Windows1253,   // Windows Greek
}

// Option configures a Table at Create time.
type Option func(*Table)

// WithCodePage sets the language-driver byte stored at header offset 29
// and the character encoding used to decode/encode C fields. Passing 0
// (the default when no Option is given) keeps dBASE III+'s raw
// byte-for-byte behavior.
func WithCodePage(cp byte) Option {
	return func(t *Table) {
		t.codePage = cp
		t.charEncoding = codePages[cp]
	}
}

func (t *Table) resolveEncoding() {
	t.charEncoding = codePages[t.codePage]
}

// decodeChar converts raw C-field bytes to a Go string, passing through a
// code page table when one is set, or treating the bytes as already
// ASCII/UTF-8 compatible otherwise.
func decodeChar(enc *charmap.Charmap, raw []byte) string {
	if enc == nil {
		return string(raw)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// encodeChar converts a Go string to on-disk bytes through the table's
// code page, falling back to raw bytes when the string contains
// characters the code page cannot represent.
func encodeChar(enc *charmap.Charmap, s string) []byte {
	if enc == nil {
		return []byte(s)
	}
	out, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}
