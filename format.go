//  Copyright 2025 The toplog Authors
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package toplog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	// staticBufferSize is the initial render buffer size; longer messages
	// grow the buffer on demand up to maxMessageSize.
	staticBufferSize = 2048

	// maxMessageSize is the hard cap for a single rendered message. Messages
	// beyond it are replaced by an error describing the message size.
	maxMessageSize = 100 * 1024

	// timeFormatUTC is the timestamp layout used when logging in UTC.
	timeFormatUTC = "2006-01-02T15:04:05Z "

	// timeFormatLocal is the timestamp layout used when logging in local
	// time. No trailing Z, the rendered time is not UTC.
	timeFormatLocal = "2006-01-02T15:04:05 "
)

// processID is captured once, it is the same for every message.
var processID = os.Getpid()

// goroutineID returns the id of the calling goroutine as the thread
// identifier shown by the show-thread-identifier setting. Parsed out of the
// runtime stack header; only evaluated when the setting is on.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	// header shape: "goroutine 123 [running]:"
	header := strings.Fields(string(buf[:n]))
	if len(header) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(header[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// disarmFormatString neutralizes all format directive characters of a
// corrupt format string so it can be safely routed through a subsequent
// formatting pass.
func disarmFormatString(format string) string {
	return strings.ReplaceAll(format, "%", "^")
}

// hasFormatError reports whether an expanded fmt result carries one of
// fmt's failure markers. fmt renders every failure as "%!" followed by
// either "(" ("%!(EXTRA ...)", "%!(NOVERB)", "%!(BADWIDTH)", ...) or a
// verb letter and "(" ("%!d(MISSING)", "%!d(string=...)",
// "%!v(PANIC=...)"). Requiring the full shape keeps argument content that
// merely contains "%!" from being mistaken for a failure.
func hasFormatError(payload string) bool {
	for {
		idx := strings.Index(payload, "%!")
		if idx < 0 {
			return false
		}
		rest := payload[idx+2:]
		if strings.HasPrefix(rest, "(") {
			return true
		}
		if len(rest) >= 2 && rest[1] == '(' &&
			(rest[0] >= 'a' && rest[0] <= 'z' || rest[0] >= 'A' && rest[0] <= 'Z') {
			return true
		}
		payload = rest
	}
}

// formatPayload expands a printf style format string. A corrupt format
// string (bad verb, argument count or type mismatch) is converted into a
// defused diagnostic instead of letting the broken expansion through; ok
// reports whether the original expansion was used.
func formatPayload(format string, args []any) (payload string, ok bool) {
	payload = fmt.Sprintf(format, args...)
	if hasFormatError(payload) {
		return "format string is corrupt: [" + disarmFormatString(format) + "]", false
	}
	return payload, true
}

// renderLine produces the full text line for one log event and the offset
// at which the user payload begins. Layout, each segment optional per
// configuration:
//
//	timestamp [outputPrefix ] [pid or pid-threadid] LEVELNAME [[file:line] ] payload
//
// The line number segment is forced on for DEBUG and TRACE. The returned
// offset excludes every prefix segment, so the ring buffer can store just
// the interesting tail. renderLine is self-contained and safe for
// concurrent use.
func (lg *Logger) renderLine(now time.Time, file string, line int, level Level, topic *Topic, payload string) (string, int) {
	var b strings.Builder
	b.Grow(staticBufferSize)

	if lg.useLocalTime.Load() {
		b.WriteString(now.Format(timeFormatLocal))
	} else {
		b.WriteString(now.UTC().Format(timeFormatUTC))
	}

	if prefix := lg.prefix.Load(); prefix != nil && *prefix != "" {
		b.WriteString(*prefix)
		b.WriteByte(' ')
	}

	if lg.showThreadID.Load() {
		fmt.Fprintf(&b, "[%d-%d] ", processID, goroutineID())
	} else {
		fmt.Fprintf(&b, "[%d] ", processID)
	}

	b.WriteString(level.tag)
	b.WriteByte(' ')

	showLine := lg.showLineNumbers.Load()
	if level == DebugLevel || level == TraceLevel {
		showLine = true
	}
	if showLine {
		fmt.Fprintf(&b, "[%s:%d] ", filepath.Base(file), line)
	}

	offset := b.Len()

	if topic != nil {
		b.WriteString("{")
		b.WriteString(topic.name)
		b.WriteString("} ")
	}
	b.WriteString(payload)

	return b.String(), offset
}
