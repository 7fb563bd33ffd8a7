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
	"strings"
	"sync"
)

const logFileMode = 0o640

// FileAppender writes rendered lines to a file or to one of the standard
// streams. FATAL messages are additionally echoed to stderr together with
// the details hints of all configured sinks, unless the appender's own
// target already is a standard stream.
type FileAppender struct {
	appenderBase

	// mu protects file against reopen/close interleaving with a write.
	mu sync.Mutex
	// filename is the backing file path; empty for the standard streams.
	filename string
	// file is the open target; nil once the appender went inert.
	file *os.File
	// fatalToStderr echoes FATAL messages to stderr.
	fatalToStderr bool
}

// newFileAppender opens a file appender for the given target: "+" for
// stdout, "-" for stderr, anything else is a file path opened in append
// mode.
func newFileAppender(target string, fatalToStderr bool, opts AppenderOptions) (*FileAppender, error) {
	fa := &FileAppender{
		appenderBase:  newAppenderBase(opts),
		fatalToStderr: fatalToStderr,
	}

	switch target {
	case "+":
		fa.file = os.Stdout
	case "-":
		fa.file = os.Stderr
	default:
		file, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFileMode)
		if err != nil {
			return nil, fmt.Errorf("failed to create/open log file %q: %w", target, err)
		}
		fa.filename = target
		fa.file = file
	}

	return fa, nil
}

// Name returns the sink kind name.
func (fa *FileAppender) Name() string {
	return "file"
}

// Details returns a hint pointing at the appender's logfile, or "" when the
// target is a standard stream.
func (fa *FileAppender) Details() string {
	if fa.filename == "" {
		return ""
	}
	return fmt.Sprintf("More error details may be provided in the logfile '%s'", fa.filename)
}

// LogMessage writes one rendered line to the target. The message bytes are
// escaped before the write; partial writes are retried until all bytes are
// flushed or an unrecoverable write error occurs.
func (fa *FileAppender) LogMessage(level Level, severity Severity, message string) {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file == nil {
		return
	}

	if level == FatalLevel && fa.fatalToStderr {
		writeStderrLine(message)

		// fan-out already holds the appenders lock, the chain is stable here
		for _, appender := range fa.owner.appenders {
			if details := appender.Details(); details != "" {
				writeStderrLine(details)
			}
		}

		if fa.filename == "" {
			// the target is stdout or stderr already, no need to print the
			// message again
			return
		}
	}

	writeFull(fa.file, []byte(escapeControls(message)))
}

// Reopen rotates the backing file: the current file is renamed to a ".old"
// backup and a fresh file is created under the original name. If the new
// file cannot be created the backup is restored and the previous file stays
// open. No-op for the standard streams.
func (fa *FileAppender) Reopen() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.filename == "" || fa.file == nil {
		return nil
	}

	backup := fa.filename + ".old"
	os.Remove(backup)
	renamed := os.Rename(fa.filename, backup) == nil

	file, err := os.OpenFile(fa.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFileMode)
	if err != nil {
		if renamed {
			os.Rename(backup, fa.filename)
		}
		return fmt.Errorf("failed to reopen log file %q: %w", fa.filename, err)
	}

	old := fa.file
	fa.file = file
	old.Close()

	return nil
}

// Close releases the backing file and marks the appender inert. Idempotent;
// the standard streams are left open.
func (fa *FileAppender) Close() {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file == nil {
		return
	}
	if fa.filename != "" {
		fa.file.Close()
	}
	fa.file = nil
}

// escapeControls makes control characters in a message printable and
// terminates it with a newline.
func escapeControls(message string) string {
	var b strings.Builder
	b.Grow(len(message) + 1)

	for i := 0; i < len(message); i++ {
		c := message[i]
		switch {
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20:
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\n')

	return b.String()
}

// writeFull writes buffer retrying on partial writes. An unrecoverable
// write error is reported to stderr once and the message is dropped; a
// write is never retried indefinitely.
func writeFull(file *os.File, buffer []byte) {
	gaveUp := false

	for len(buffer) > 0 {
		n, err := file.Write(buffer)
		if err != nil {
			fmt.Fprintf(stderrWriter, "cannot log data: %v\n", err)
			return
		}
		if n == 0 {
			if gaveUp {
				return
			}
			gaveUp = true
			continue
		}
		buffer = buffer[n:]
	}
}
