// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"bytes"
	"context"
	"io"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/hashjoin/pkg/util/syncutil"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/petermattis/goid"
)

// Severity identifies the importance of a log entry.
type Severity int32

const (
	// SeverityInfo is used for informational messages.
	SeverityInfo Severity = iota
	// SeverityWarning is used for situations which may require attention.
	SeverityWarning
	// SeverityError is used for errors that were handled.
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (s Severity) char() byte {
	switch s {
	case SeverityWarning:
		return 'W'
	case SeverityError:
		return 'E'
	default:
		return 'I'
	}
}

var mainLog struct {
	syncutil.Mutex
	w          io.Writer
	colors     *colorProfile
	formatter  logFormatter
	redactable bool
}

// verbosity is the global V level. It is read on hot paths, so it lives
// outside of mainLog.
var verbosity atomic.Int32

func init() {
	mainLog.w = os.Stderr
	mainLog.colors = colorProfileFor(os.Stderr)
	mainLog.formatter = formatText{}
}

// SetOutput redirects all log output to w and returns a function restoring
// the previous destination. Colors are disabled for non-terminal writers.
func SetOutput(w io.Writer) (restore func()) {
	mainLog.Lock()
	defer mainLog.Unlock()
	prevW, prevColors := mainLog.w, mainLog.colors
	mainLog.w = w
	mainLog.colors = nil
	if f, ok := w.(*os.File); ok {
		mainLog.colors = colorProfileFor(f)
	}
	return func() {
		mainLog.Lock()
		defer mainLog.Unlock()
		mainLog.w, mainLog.colors = prevW, prevColors
	}
}

// SetRedactable configures whether log entries keep redaction markers around
// unsafe values.
func SetRedactable(redactable bool) {
	mainLog.Lock()
	defer mainLog.Unlock()
	mainLog.redactable = redactable
}

// SetVModule sets the global verbosity level and returns the previous one.
func SetVModule(level int32) (prev int32) {
	return verbosity.Swap(level)
}

// V returns true if the logging verbosity is set to the specified level or
// higher.
func V(level int32) bool {
	return verbosity.Load() >= level
}

// Infof logs to the INFO severity.
func Infof(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, SeverityInfo, 1, format, args)
}

// Warningf logs to the WARNING severity.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, SeverityWarning, 1, format, args)
}

// Errorf logs to the ERROR severity.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	addStructured(ctx, SeverityError, 1, format, args)
}

// VEventf logs an INFO entry if the verbosity is at least level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(level) {
		addStructured(ctx, SeverityInfo, 1, format, args)
	}
}

// FormatWithContextTags formats the string and prepends the context
// tags.
//
// Redaction markers are *not* inserted. The resulting
// string is generally unsafe for reporting.
func FormatWithContextTags(ctx context.Context, format string, args ...interface{}) string {
	var buf strings.Builder
	formatTags(ctx, &buf)
	buf.WriteString(redact.Sprintf(format, args...).StripMarkers())
	return buf.String()
}

func formatTags(ctx context.Context, buf *strings.Builder) {
	tags := logtags.FromContext(ctx)
	if tags == nil || len(tags.Get()) == 0 {
		return
	}
	buf.WriteByte('[')
	buf.WriteString(tags.String())
	buf.WriteString("] ")
}

// addStructured creates a structured log entry and writes it to the
// configured output.
func addStructured(
	ctx context.Context, sev Severity, depth int, format string, args []interface{},
) {
	entry := logEntry{
		sev:  sev,
		ts:   time.Now().UTC(),
		gid:  goid.Get(),
		file: "???",
		tags: logtags.FromContext(ctx),
	}
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		entry.file, entry.line = file, line
	}
	msg := redact.Sprintf(format, args...)

	mainLog.Lock()
	defer mainLog.Unlock()
	entry.redactable = mainLog.redactable
	if entry.redactable {
		entry.message = string(msg)
	} else {
		entry.message = msg.StripMarkers()
	}
	var buf bytes.Buffer
	mainLog.formatter.formatEntry(&buf, entry, mainLog.colors)
	// Logging must never fail the caller.
	_, _ = mainLog.w.Write(buf.Bytes())
}
