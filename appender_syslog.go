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

//go:build !windows

package toplog

import (
	"fmt"
	"log/syslog"
	"strconv"
	"strings"
	"sync"
)

// SyslogAppender forwards rendered lines to the OS syslog facility.
type SyslogAppender struct {
	appenderBase

	// mu protects writer against close interleaving with a write.
	mu sync.Mutex
	// writer is the open syslog connection; nil once the appender went
	// inert.
	writer *syslog.Writer
}

// syslogFacilities maps facility names to syslog priorities.
var syslogFacilities = map[string]syslog.Priority{
	"kern":     syslog.LOG_KERN,
	"user":     syslog.LOG_USER,
	"mail":     syslog.LOG_MAIL,
	"daemon":   syslog.LOG_DAEMON,
	"auth":     syslog.LOG_AUTH,
	"syslog":   syslog.LOG_SYSLOG,
	"lpr":      syslog.LOG_LPR,
	"news":     syslog.LOG_NEWS,
	"uucp":     syslog.LOG_UUCP,
	"cron":     syslog.LOG_CRON,
	"authpriv": syslog.LOG_AUTHPRIV,
	"ftp":      syslog.LOG_FTP,
	"local0":   syslog.LOG_LOCAL0,
	"local1":   syslog.LOG_LOCAL1,
	"local2":   syslog.LOG_LOCAL2,
	"local3":   syslog.LOG_LOCAL3,
	"local4":   syslog.LOG_LOCAL4,
	"local5":   syslog.LOG_LOCAL5,
	"local6":   syslog.LOG_LOCAL6,
	"local7":   syslog.LOG_LOCAL7,
}

// parseSyslogFacility resolves a facility given by name or by number,
// defaulting to local0.
func parseSyslogFacility(facility string) syslog.Priority {
	if facility == "" {
		return syslog.LOG_LOCAL0
	}
	if value, err := strconv.Atoi(facility); err == nil {
		return syslog.Priority(value << 3)
	}
	if value, found := syslogFacilities[strings.ToLower(facility)]; found {
		return value
	}
	return syslog.LOG_LOCAL0
}

// newSyslogAppender opens a syslog appender with the given ident and
// facility. The connection is established once and kept for the appender's
// lifetime.
func newSyslogAppender(name, facility string, opts AppenderOptions) (*SyslogAppender, error) {
	if name == "" {
		name = "toplog"
	}

	writer, err := syslog.New(parseSyslogFacility(facility)|syslog.LOG_INFO, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open syslog: %w", err)
	}

	return &SyslogAppender{
		appenderBase: newAppenderBase(opts),
		writer:       writer,
	}, nil
}

// Name returns the sink kind name.
func (sa *SyslogAppender) Name() string {
	return "syslog"
}

// Details returns the syslog hint line.
func (sa *SyslogAppender) Details() string {
	return "More error details may be provided in the syslog"
}

// LogMessage forwards one rendered line to syslog at a priority derived
// from the message severity; HUMAN messages map their level to a priority
// instead.
func (sa *SyslogAppender) LogMessage(level Level, severity Severity, message string) {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if sa.writer == nil {
		return
	}

	message = stripBracketPrefix(message)

	var err error
	if severity == SeverityHuman {
		switch level {
		case FatalLevel:
			err = sa.writer.Crit(message)
		case ErrorLevel:
			err = sa.writer.Err(message)
		case WarningLevel:
			err = sa.writer.Warning(message)
		case InfoLevel:
			err = sa.writer.Notice(message)
		case DebugLevel:
			err = sa.writer.Info(message)
		default:
			err = sa.writer.Debug(message)
		}
	} else {
		switch severity {
		case SeverityException:
			err = sa.writer.Crit(message)
		case SeverityFunctional:
			err = sa.writer.Notice(message)
		case SeverityUsage, SeverityTechnical:
			err = sa.writer.Info(message)
		default:
			err = sa.writer.Debug(message)
		}
	}

	if err != nil {
		fmt.Fprintf(stderrWriter, "cannot log data: %v\n", err)
	}
}

// Reopen is a no-op; the syslog connection does not rotate.
func (sa *SyslogAppender) Reopen() error {
	return nil
}

// Close closes the syslog connection and marks the appender inert.
// Idempotent.
func (sa *SyslogAppender) Close() {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if sa.writer == nil {
		return
	}
	sa.writer.Close()
	sa.writer = nil
}
