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
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// rotateMaxSizeMB is the size threshold after which the backing file is
	// rotated.
	rotateMaxSizeMB = 100
	// rotateMaxBackups is the number of rotated files kept around.
	rotateMaxBackups = 10
)

// RotatingFileAppender writes rendered lines to a size rotated file.
// Reopen forces a rotation instead of the plain file appender's
// rename-then-create cycle.
type RotatingFileAppender struct {
	appenderBase

	// mu protects writer against rotate/close interleaving with a write.
	mu sync.Mutex
	// filename is the backing file path.
	filename string
	// writer is the rotating file writer; nil once the appender went inert.
	writer *lumberjack.Logger
}

func newRotatingFileAppender(path string, opts AppenderOptions) *RotatingFileAppender {
	return &RotatingFileAppender{
		appenderBase: newAppenderBase(opts),
		filename:     path,
		writer: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rotateMaxSizeMB,
			MaxBackups: rotateMaxBackups,
		},
	}
}

// Name returns the sink kind name.
func (ra *RotatingFileAppender) Name() string {
	return "rotating-file"
}

// Details returns a hint pointing at the appender's logfile.
func (ra *RotatingFileAppender) Details() string {
	return fmt.Sprintf("More error details may be provided in the logfile '%s'", ra.filename)
}

// LogMessage writes one rendered line to the rotated file. The message
// bytes are escaped before the write; write errors are reported to stderr
// and the message is dropped.
func (ra *RotatingFileAppender) LogMessage(level Level, severity Severity, message string) {
	ra.mu.Lock()
	defer ra.mu.Unlock()

	if ra.writer == nil {
		return
	}
	if _, err := ra.writer.Write([]byte(escapeControls(message))); err != nil {
		fmt.Fprintf(stderrWriter, "cannot log data: %v\n", err)
	}
}

// Reopen forces a rotation of the backing file.
func (ra *RotatingFileAppender) Reopen() error {
	ra.mu.Lock()
	defer ra.mu.Unlock()

	if ra.writer == nil {
		return nil
	}
	if err := ra.writer.Rotate(); err != nil {
		return fmt.Errorf("failed to rotate log file %q: %w", ra.filename, err)
	}
	return nil
}

// Close releases the backing file and marks the appender inert. Idempotent.
func (ra *RotatingFileAppender) Close() {
	ra.mu.Lock()
	defer ra.mu.Unlock()

	if ra.writer == nil {
		return
	}
	ra.writer.Close()
	ra.writer = nil
}
