// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
)

// logEntry is a log event before formatting.
type logEntry struct {
	sev  Severity
	ts   time.Time
	gid  int64
	file string
	line int
	tags *logtags.Buffer
	// message has its redaction markers already stripped unless redactable
	// is set.
	message    string
	redactable bool
}

type logFormatter interface {
	formatterName() string
	// formatEntry appends the formatted entry, including its trailing
	// newline, to buf. cp is nil when the output has no color support.
	formatEntry(buf *bytes.Buffer, entry logEntry, cp *colorProfile)
}

var formatters = func() map[string]logFormatter {
	m := make(map[string]logFormatter)
	r := func(f logFormatter) {
		m[f.formatterName()] = f
	}
	r(formatText{})
	r(formatJSON{})
	r(formatJSON{compact: true})
	return m
}()

// DefaultFormat is the name of the format used until SetFormat is called.
const DefaultFormat = "text"

// FormatNames returns the names accepted by SetFormat, sorted.
func FormatNames() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetFormat selects the format of subsequent log entries.
func SetFormat(name string) error {
	f, ok := formatters[name]
	if !ok {
		return errors.Newf("unknown log format %q, expected one of: %s",
			name, strings.Join(FormatNames(), ", "))
	}
	mainLog.Lock()
	defer mainLog.Unlock()
	mainLog.formatter = f
	return nil
}

// formatText writes entries as single lines of the form:
//
//	I060102 15:04:05.000000 7 file.go:123 [tag1=x,tag2] message
//
// where 7 is the id of the logging goroutine.
type formatText struct{}

func (formatText) formatterName() string { return DefaultFormat }

func (formatText) formatEntry(buf *bytes.Buffer, entry logEntry, cp *colorProfile) {
	if cp != nil {
		buf.Write(cp.prefix(entry.sev))
	}
	buf.WriteByte(entry.sev.char())
	buf.WriteString(entry.ts.Format("060102 15:04:05.000000"))
	if cp != nil {
		buf.Write(colorReset)
	}
	fmt.Fprintf(buf, " %d %s:%d ", entry.gid, filepath.Base(entry.file), entry.line)
	if entry.tags != nil && len(entry.tags.Get()) > 0 {
		buf.WriteByte('[')
		buf.WriteString(entry.tags.String())
		buf.WriteString("] ")
	}
	buf.WriteString(entry.message)
	if !strings.HasSuffix(entry.message, "\n") {
		buf.WriteByte('\n')
	}
}
