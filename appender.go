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
	"io"
	"os"
	"strings"
)

// Appender is a destination for rendered log lines. Implementations must
// tolerate concurrent LogMessage calls and must keep Reopen and Close from
// interleaving within a single write (a sink scoped lock).
type Appender interface {
	// LogMessage delivers one rendered line to the sink. Write failures are
	// reported to stderr and the message is dropped; they never propagate to
	// the log caller.
	LogMessage(level Level, severity Severity, message string)
	// Reopen re-establishes the sink's underlying resource, e.g. on a log
	// rotation signal. An error during reopen must not lose the previously
	// open resource.
	Reopen() error
	// Close releases the sink's resource and marks the sink inert.
	// Idempotent; subsequent LogMessage calls become no-ops.
	Close()
	// Details returns a one line hint where further error details can be
	// found, or "".
	Details() string
	// Name returns the sink kind name, e.g. "file" or "syslog".
	Name() string
	// base exposes the common filter settings to the chain.
	base() *appenderBase
}

// AppenderOptions carries the per-appender filter settings.
type AppenderOptions struct {
	// ContentFilter, when non empty, restricts the appender to messages
	// containing it as a literal substring.
	ContentFilter string
	// SeverityFilter, when not SeverityUnknown, restricts the appender to
	// messages of exactly that severity.
	SeverityFilter Severity
	// Consume halts fan-out to later appenders in the chain once this
	// appender accepted a message.
	Consume bool
}

// appenderBase is the common state embedded by every appender
// implementation.
type appenderBase struct {
	// contentFilter is an optional literal substring filter.
	contentFilter string
	// severityFilter restricts to one severity; SeverityUnknown catches all.
	severityFilter Severity
	// consume halts the chain once this appender accepted a message.
	consume bool
	// owner is the logger the appender is registered on.
	owner *Logger
}

func newAppenderBase(opts AppenderOptions) appenderBase {
	severityFilter := opts.SeverityFilter
	if severityFilter.tag == "" {
		// the zero value filter catches all
		severityFilter = SeverityUnknown
	}
	return appenderBase{
		contentFilter:  opts.ContentFilter,
		severityFilter: severityFilter,
		consume:        opts.Consume,
	}
}

func (ab *appenderBase) base() *appenderBase {
	return ab
}

// accepts applies the appender's severity and content filters.
func (ab *appenderBase) accepts(severity Severity, message string) bool {
	if ab.severityFilter != SeverityUnknown && ab.severityFilter != severity {
		return false
	}
	if ab.contentFilter != "" && !strings.Contains(message, ab.contentFilter) {
		return false
	}
	return true
}

// stripBracketPrefix drops a leading bracketed prefix ("[...] ") from a
// message; forwarding sinks like syslog add their own timestamp and
// identity.
func stripBracketPrefix(message string) string {
	idx := strings.IndexByte(message, ']')
	if idx < 0 {
		return message
	}
	if idx+2 <= len(message) {
		return message[idx+2:]
	}
	return message
}

// stderrWriter is where fallback and failure reporting output goes. Tests
// may override it with a local writer.
var stderrWriter io.Writer = os.Stderr

// writeStderrLine writes one line to the process' stderr. Used for every
// message that must stay visible without a working appender chain.
func writeStderrLine(message string) {
	fmt.Fprintln(stderrWriter, message)
}

// fanOut delivers one message through the appender chain in order,
// honoring each appender's filters and stopping at the first consuming
// match. Callers must hold the appenders lock.
func (lg *Logger) fanOut(level Level, severity Severity, message string) {
	for _, appender := range lg.appenders {
		ab := appender.base()
		if !ab.accepts(severity, message) {
			continue
		}
		appender.LogMessage(level, severity, message)
		if ab.consume {
			break
		}
	}
}

// RegisterAppender appends a sink to the chain. Chain order is fan-out
// order and also consume order.
func (lg *Logger) RegisterAppender(appender Appender) {
	lg.appendersMu.Lock()
	defer lg.appendersMu.Unlock()
	appender.base().owner = lg
	lg.appenders = append(lg.appenders, appender)
}

// AddAppender creates a sink from a definition string and appends it to
// the chain. Supported definitions:
//
//	+                          stdout
//	-                          stderr
//	file:<path>                plain file
//	rotate:<path>              size rotated file
//	syslog:<name>:<facility>   system log
//
// An unknown definition fails with ErrInvalidSinkTarget; a sink that cannot
// be opened fails with the underlying resource error. In both cases the
// chain is left unchanged.
func (lg *Logger) AddAppender(definition string, opts AppenderOptions) error {
	if definition == "" {
		return fmt.Errorf("%w: empty definition", ErrInvalidSinkTarget)
	}

	var appender Appender

	switch {
	case definition == "+" || definition == "-":
		fa, err := newFileAppender(definition, true, opts)
		if err != nil {
			return err
		}
		appender = fa

	case strings.HasPrefix(definition, "file:"):
		path := strings.TrimPrefix(definition, "file:")
		if path == "" {
			return fmt.Errorf("%w: %q", ErrInvalidSinkTarget, definition)
		}
		fa, err := newFileAppender(path, true, opts)
		if err != nil {
			return err
		}
		lg.rememberLogFile(path)
		appender = fa

	case strings.HasPrefix(definition, "rotate:"):
		path := strings.TrimPrefix(definition, "rotate:")
		if path == "" {
			return fmt.Errorf("%w: %q", ErrInvalidSinkTarget, definition)
		}
		lg.rememberLogFile(path)
		appender = newRotatingFileAppender(path, opts)

	case strings.HasPrefix(definition, "syslog:"):
		spec := strings.TrimPrefix(definition, "syslog:")
		name, facility, _ := strings.Cut(spec, ":")
		sa, err := newSyslogAppender(name, facility, opts)
		if err != nil {
			return err
		}
		appender = sa

	default:
		return fmt.Errorf("%w: %q", ErrInvalidSinkTarget, definition)
	}

	lg.RegisterAppender(appender)
	return nil
}

// rememberLogFile records the first file backed appender target, queryable
// via LogFileName.
func (lg *Logger) rememberLogFile(path string) {
	lg.appendersMu.Lock()
	defer lg.appendersMu.Unlock()
	if lg.logFileName == "" {
		lg.logFileName = path
	}
}

// LogFileName returns the path of the first file backed appender added to
// the chain, or "".
func (lg *Logger) LogFileName() string {
	lg.appendersMu.Lock()
	defer lg.appendersMu.Unlock()
	return lg.logFileName
}

// Reopen re-establishes the underlying resource of every appender in the
// chain, e.g. after a log rotation signal. Failures are reported to stderr;
// the affected appender keeps its previous resource.
func (lg *Logger) Reopen() {
	lg.appendersMu.Lock()
	defer lg.appendersMu.Unlock()

	for _, appender := range lg.appenders {
		if err := appender.Reopen(); err != nil {
			fmt.Fprintf(stderrWriter, "failed to reopen %s log appender: %v\n", appender.Name(), err)
		}
	}
}
