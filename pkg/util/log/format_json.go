// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"bytes"
	"path/filepath"
	"strconv"
	"unicode/utf8"
)

// formatJSON writes one JSON object per entry. The compact variant uses
// single-letter keys.
type formatJSON struct {
	compact bool
}

func (f formatJSON) formatterName() string {
	if f.compact {
		return "json-compact"
	}
	return "json"
}

// jsonKey holds the full and compact spelling of a field name.
type jsonKey struct {
	full, compact string
}

var (
	jsonKeyTimestamp  = jsonKey{"timestamp", "t"}
	jsonKeySeverity   = jsonKey{"severity", "s"}
	jsonKeyGoroutine  = jsonKey{"goroutine", "g"}
	jsonKeyFile       = jsonKey{"file", "f"}
	jsonKeyLine       = jsonKey{"line", "l"}
	jsonKeyRedactable = jsonKey{"redactable", "r"}
	jsonKeyTags       = jsonKey{"tags", "T"}
	jsonKeyMessage    = jsonKey{"message", "m"}
)

func (f formatJSON) key(buf *bytes.Buffer, k jsonKey, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	buf.WriteByte('"')
	if f.compact {
		buf.WriteString(k.compact)
	} else {
		buf.WriteString(k.full)
	}
	buf.WriteString(`":`)
}

func (f formatJSON) formatEntry(buf *bytes.Buffer, entry logEntry, _ *colorProfile) {
	buf.WriteByte('{')
	// The timestamp is quoted since its precision exceeds that of a JSON
	// number.
	f.key(buf, jsonKeyTimestamp, true)
	ts := entry.ts.UnixNano()
	buf.WriteByte('"')
	buf.WriteString(strconv.FormatInt(ts/1e9, 10))
	buf.WriteByte('.')
	frac := strconv.FormatInt(ts%1e9, 10)
	for i := len(frac); i < 9; i++ {
		buf.WriteByte('0')
	}
	buf.WriteString(frac)
	buf.WriteByte('"')

	f.key(buf, jsonKeySeverity, false)
	buf.WriteByte('"')
	if f.compact {
		buf.WriteByte(entry.sev.char())
	} else {
		buf.WriteString(entry.sev.String())
	}
	buf.WriteByte('"')

	f.key(buf, jsonKeyGoroutine, false)
	buf.WriteString(strconv.FormatInt(entry.gid, 10))

	f.key(buf, jsonKeyFile, false)
	buf.WriteByte('"')
	escapeString(buf, filepath.Base(entry.file))
	buf.WriteByte('"')
	f.key(buf, jsonKeyLine, false)
	buf.WriteString(strconv.Itoa(entry.line))

	// 0/1 rather than a boolean leaves room for more redaction formats.
	f.key(buf, jsonKeyRedactable, false)
	if entry.redactable {
		buf.WriteByte('1')
	} else {
		buf.WriteByte('0')
	}

	if entry.tags != nil && len(entry.tags.Get()) > 0 {
		f.key(buf, jsonKeyTags, false)
		buf.WriteByte('{')
		for i, t := range entry.tags.Get() {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			escapeString(buf, t.Key())
			buf.WriteString(`":"`)
			escapeString(buf, t.ValueStr())
			buf.WriteByte('"')
		}
		buf.WriteByte('}')
	}

	f.key(buf, jsonKeyMessage, false)
	buf.WriteByte('"')
	escapeString(buf, entry.message)
	buf.WriteString("\"}\n")
}

const hexDigits = "0123456789abcdef"

// escapeString writes s to buf as the contents of a JSON string literal.
// Invalid UTF-8 is replaced with U+FFFD.
func escapeString(buf *bytes.Buffer, s string) {
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				buf.WriteByte('\\')
				buf.WriteByte(c)
			case c == '\n':
				buf.WriteString(`\n`)
			case c == '\r':
				buf.WriteString(`\r`)
			case c == '\t':
				buf.WriteString(`\t`)
			case c < 0x20:
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[c>>4])
				buf.WriteByte(hexDigits[c&0xf])
			default:
				buf.WriteByte(c)
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteString("\ufffd")
		} else {
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
}
