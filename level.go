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
	"strings"
)

// Level wraps id and tag of a log level. Levels are ordered by urgency,
// lower id means higher priority: a message is emitted if its level id is
// smaller or equal to the effective threshold.
type Level struct {
	// level is the log level numeric id.
	level int
	// tag is the tag to be displayed when writing the log.
	tag string
}

var (
	// DefaultLevel is the sentinel level meaning "inherit the global level".
	// It is only meaningful as a topic override value and is never used on a
	// log message itself.
	DefaultLevel = Level{0, "DEFAULT"}

	// FatalLevel is the log level definition for Fatal priority.
	FatalLevel = Level{1, "FATAL"}

	// ErrorLevel is the log level definition for Error priority.
	ErrorLevel = Level{2, "ERROR"}

	// WarningLevel is the log level definition for Warning priority.
	WarningLevel = Level{3, "WARNING"}

	// InfoLevel is the log level definition for Info priority.
	InfoLevel = Level{4, "INFO"}

	// DebugLevel is the log level definition for Debug priority.
	DebugLevel = Level{5, "DEBUG"}

	// TraceLevel is the log level definition for Trace priority.
	TraceLevel = Level{6, "TRACE"}

	// allLevels is the list of all supported log levels, indexed by level id.
	allLevels = []Level{DefaultLevel, FatalLevel, ErrorLevel, WarningLevel,
		InfoLevel, DebugLevel, TraceLevel}
)

// String returns the string representation of a log level.
func (level Level) String() string {
	return level.tag
}

// IsDefault reports whether level is the DEFAULT sentinel.
func (level Level) IsDefault() bool {
	return level.level == DefaultLevel.level
}

// levelFromID returns the level definition for a numeric id. Out of range
// ids map to the DEFAULT sentinel.
func levelFromID(id int32) Level {
	if id < 0 || int(id) >= len(allLevels) {
		return DefaultLevel
	}
	return allLevels[id]
}

// ParseLevel returns the log level object for a given level name. The match
// is case insensitive. In case of an invalid level name an error is
// returned.
func ParseLevel(name string) (Level, error) {
	for _, lvl := range allLevels {
		if strings.EqualFold(lvl.tag, name) {
			return lvl, nil
		}
	}
	return DefaultLevel, fmt.Errorf("invalid log level: %q", name)
}

// ValidLevels returns a string representation of all the valid log levels.
// The DEFAULT sentinel is skipped as it's not a level messages can carry.
func ValidLevels() string {
	var levels []string
	for _, lvl := range allLevels[1:] {
		levels = append(levels, fmt.Sprintf("%s(%d)", lvl.tag, lvl.level))
	}
	return strings.Join(levels, ", ")
}

// Severity is the classification of a message's kind, orthogonal to its
// level. It is used for appender-side filtering and for deciding ring
// buffer eligibility - only HUMAN messages are buffered.
type Severity struct {
	// id is the severity numeric id.
	id int
	// tag is the severity display tag.
	tag string
}

var (
	// SeverityHuman marks human readable messages.
	SeverityHuman = Severity{0, "HUMAN"}

	// SeverityException marks messages reporting exceptional failures.
	SeverityException = Severity{1, "EXCEPTION"}

	// SeverityFunctional marks functional, feature scoped messages.
	SeverityFunctional = Severity{2, "FUNCTIONAL"}

	// SeverityUsage marks usage/request accounting messages.
	SeverityUsage = Severity{3, "USAGE"}

	// SeverityTechnical marks technical diagnostics.
	SeverityTechnical = Severity{4, "TECHNICAL"}

	// SeverityDevelopment marks development-only messages.
	SeverityDevelopment = Severity{5, "DEVELOPMENT"}

	// SeverityUnknown is the catch-all severity. As an appender filter it
	// matches every message.
	SeverityUnknown = Severity{6, "UNKNOWN"}

	// allSeverities is the list of all supported severities.
	allSeverities = []Severity{SeverityHuman, SeverityException,
		SeverityFunctional, SeverityUsage, SeverityTechnical,
		SeverityDevelopment, SeverityUnknown}
)

// String returns the string representation of a severity.
func (severity Severity) String() string {
	return severity.tag
}

// ParseSeverity returns the severity object for a given name. The match is
// case insensitive; "any" is accepted as an alias for the catch-all
// severity. In case of an invalid name an error is returned.
func ParseSeverity(name string) (Severity, error) {
	if strings.EqualFold(name, "any") {
		return SeverityUnknown, nil
	}
	for _, sev := range allSeverities {
		if strings.EqualFold(sev.tag, name) {
			return sev, nil
		}
	}
	return SeverityUnknown, fmt.Errorf("invalid log severity: %q", name)
}
