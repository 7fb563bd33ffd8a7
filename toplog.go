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
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Lifecycle states.
const (
	stateUninitialized = int32(iota)
	stateInitialized
	stateShuttingDown
)

const (
	// workerMinIdle is the initial and minimum idle backoff of the delivery
	// worker. It's reset whenever the worker found work.
	workerMinIdle = 100 * time.Microsecond

	// workerIdleStep is added to the idle backoff after every empty drain.
	workerIdleStep = time.Millisecond

	// workerMaxIdle caps the idle backoff.
	workerMaxIdle = time.Second

	// flushMaxTries bounds the number of queue-empty polls of Flush.
	flushMaxTries = 500

	// flushPollInterval is the wait between two queue-empty polls of Flush.
	flushPollInterval = 10 * time.Millisecond
)

// queuedMessage is one rendered message awaiting asynchronous fan-out.
type queuedMessage struct {
	level    Level
	severity Severity
	text     string
}

// Logger is a process scoped logging pipeline: enablement checks against a
// global threshold and per-topic overrides, line rendering, a ring buffer
// of recent messages, and fan-out to an ordered appender chain, either
// inline or through a dedicated delivery goroutine.
//
// The appender chain, the ring buffer, the delivery queue and the topic
// table are each protected by their own lock so unrelated operations never
// serialize on each other; level checks in particular never block on sink
// I/O.
type Logger struct {
	// state is the lifecycle state machine; transitions are CAS guarded.
	state atomic.Int32

	// active gates the pipeline: while false every submitted message goes
	// solely to stderr.
	active atomic.Bool

	// threaded selects asynchronous delivery. Fixed at Initialize time.
	threaded bool

	// level is the global level threshold id.
	level atomic.Int32

	// prefix is the optional output prefix rendered before the pid segment.
	prefix atomic.Pointer[string]

	// showLineNumbers forces the [file:line] segment for all levels; DEBUG
	// and TRACE always render it.
	showLineNumbers atomic.Bool

	// showThreadID renders [pid-threadid] instead of [pid].
	showThreadID atomic.Bool

	// useLocalTime renders timestamps in local time instead of UTC.
	useLocalTime atomic.Bool

	// topicsMu protects the topic table during registration and lookup.
	topicsMu sync.Mutex
	topics   map[string]*Topic

	// appendersMu protects the chain; held for the duration of a fan-out
	// but never during formatting.
	appendersMu sync.Mutex
	appenders   []Appender
	logFileName string

	// buffer is the ring buffer of recent HUMAN messages.
	buffer *ringBuffer

	// queueMu protects the asynchronous delivery queue.
	queueMu sync.Mutex
	queue   []queuedMessage

	// draining is set while the delivery worker processes a swapped-out
	// batch; Flush waits for it in addition to the queue itself.
	draining atomic.Bool

	// wake signals the delivery worker that new work or a flush request
	// arrived.
	wake chan struct{}

	// workerDone is closed when the delivery worker exited.
	workerDone chan struct{}
}

// NewLogger allocates an isolated, uninitialized logger instance. Most
// applications use the package level functions operating on the default
// logger instead; isolated instances exist so tests and embedders can run
// independent pipelines.
func NewLogger() *Logger {
	lg := &Logger{
		topics: make(map[string]*Topic),
		buffer: newRingBuffer(),
	}
	lg.level.Store(int32(InfoLevel.level))
	return lg
}

// defaultLogger is the process wide logger used by the package level
// functions.
var defaultLogger = NewLogger()

// Default returns the process wide logger instance.
func Default() *Logger {
	return defaultLogger
}

// Initialize establishes the delivery mode and activates the pipeline.
// With threaded set, a dedicated delivery goroutine drains the message
// queue; otherwise callers fan out inline. Idempotent: later calls are
// no-ops, the delivery mode is fixed for the logger's active lifetime.
func (lg *Logger) Initialize(threaded bool) {
	if !lg.state.CompareAndSwap(stateUninitialized, stateInitialized) {
		return
	}

	lg.threaded = threaded
	lg.active.Store(true)

	if threaded {
		lg.wake = make(chan struct{}, 1)
		lg.workerDone = make(chan struct{})
		go lg.deliveryWorker()
	}
}

// Shutdown deactivates the pipeline: the delivery worker drains the queue
// one final time and exits, all appenders are closed and the chain is
// cleared, and optionally the ring buffer contents are dropped. Safe to
// call from an exit handler and idempotent; a concurrent shutdown attempt
// is flagged on stderr instead of corrupting state. Returns whether the
// logger had been running threaded.
func (lg *Logger) Shutdown(clearBuffers bool) bool {
	if !lg.state.CompareAndSwap(stateInitialized, stateShuttingDown) {
		if lg.state.Load() == stateShuttingDown {
			writeStderrLine("race condition detected in logger")
		}
		return false
	}

	lg.active.Store(false)

	if lg.threaded {
		select {
		case lg.wake <- struct{}{}:
		default:
		}
		<-lg.workerDone
	}

	lg.appendersMu.Lock()
	for _, appender := range lg.appenders {
		appender.Close()
	}
	lg.appenders = nil
	lg.logFileName = ""
	lg.appendersMu.Unlock()

	lg.prefix.Store(nil)

	if clearBuffers {
		lg.buffer.clear()
	}

	// threaded is left as is, the next Initialize overwrites it; resetting
	// here would race a straggling Flush that already observed the pipeline
	// active
	threaded := lg.threaded
	lg.state.Store(stateUninitialized)

	return threaded
}

// SetLevel sets the global level threshold. Atomic; concurrent enablement
// checks see either the old or the new value.
func (lg *Logger) SetLevel(level Level) {
	lg.level.Store(int32(level.level))
}

// CurrentLevel returns the global level threshold.
func (lg *Logger) CurrentLevel() Level {
	return levelFromID(lg.level.Load())
}

// SetPrefix sets the output prefix rendered at the head of every message.
// Useful when multiple processes share one backing storage.
func (lg *Logger) SetPrefix(prefix string) {
	lg.prefix.Store(&prefix)
}

// SetShowLineNumbers forces the [file:line] segment for all levels. DEBUG
// and TRACE render it regardless.
func (lg *Logger) SetShowLineNumbers(show bool) {
	lg.showLineNumbers.Store(show)
}

// SetShowThreadIdentifier renders [pid-threadid] instead of [pid].
func (lg *Logger) SetShowThreadIdentifier(show bool) {
	lg.showThreadID.Store(show)
}

// SetUseLocalTime renders timestamps in local time, without the trailing
// 'Z', instead of UTC.
func (lg *Logger) SetUseLocalTime(local bool) {
	lg.useLocalTime.Store(local)
}

// BufferedEntries returns copies of the retained recent messages with
// id >= start, sorted ascending by id. With upTo set the result merges all
// levels more severe than or equal to level, otherwise only that level's
// ring is read.
func (lg *Logger) BufferedEntries(level Level, start uint64, upTo bool) []BufferEntry {
	return lg.buffer.query(level, start, upTo)
}

// Flush requests that all currently queued messages are drained and polls,
// a bounded number of short waits, until the queue was observed empty.
// Best effort: concurrently submitted new messages may keep the queue
// non-empty. No-op in synchronous mode, delivery is inline there.
func (lg *Logger) Flush() {
	// active is stored last by Initialize, observing it guarantees threaded
	// and the wake channel are visible
	if !lg.active.Load() || !lg.threaded {
		return
	}

	select {
	case lg.wake <- struct{}{}:
	default:
	}

	for tries := 0; tries < flushMaxTries; tries++ {
		lg.queueMu.Lock()
		empty := len(lg.queue) == 0
		lg.queueMu.Unlock()
		if empty && !lg.draining.Load() {
			break
		}
		time.Sleep(flushPollInterval)
	}
}

// Log logs a message at the given level, scoped to an optional topic and
// classified by severity. Arguments are handled in the manner of
// fmt.Printf. Disabled calls cost only the enablement check.
func (lg *Logger) Log(level Level, topic *Topic, severity Severity, format string, args ...any) {
	if lg.TopicEnabled(level, topic) {
		lg.logf(2, level, topic, severity, format, args)
	}
}

// Fatalf logs to the FATAL log. Arguments are handled in the manner of
// fmt.Printf.
func (lg *Logger) Fatalf(format string, args ...any) {
	if lg.Enabled(FatalLevel) {
		lg.logf(2, FatalLevel, nil, SeverityHuman, format, args)
	}
}

// Errorf logs to the ERROR log. Arguments are handled in the manner of
// fmt.Printf.
func (lg *Logger) Errorf(format string, args ...any) {
	if lg.Enabled(ErrorLevel) {
		lg.logf(2, ErrorLevel, nil, SeverityHuman, format, args)
	}
}

// Warnf logs to the WARNING log. Arguments are handled in the manner of
// fmt.Printf.
func (lg *Logger) Warnf(format string, args ...any) {
	if lg.Enabled(WarningLevel) {
		lg.logf(2, WarningLevel, nil, SeverityHuman, format, args)
	}
}

// Infof logs to the INFO log. Arguments are handled in the manner of
// fmt.Printf.
func (lg *Logger) Infof(format string, args ...any) {
	if lg.Enabled(InfoLevel) {
		lg.logf(2, InfoLevel, nil, SeverityHuman, format, args)
	}
}

// Debugf logs to the DEBUG log. Arguments are handled in the manner of
// fmt.Printf.
func (lg *Logger) Debugf(format string, args ...any) {
	if lg.Enabled(DebugLevel) {
		lg.logf(2, DebugLevel, nil, SeverityHuman, format, args)
	}
}

// Tracef logs to the TRACE log. Arguments are handled in the manner of
// fmt.Printf.
func (lg *Logger) Tracef(format string, args ...any) {
	if lg.Enabled(TraceLevel) {
		lg.logf(2, TraceLevel, nil, SeverityHuman, format, args)
	}
}

// logf renders one log event and hands it to the delivery path. callDepth
// is the number of stack frames between logf and the log call site. A
// corrupt format string is converted into a defused warning diagnostic; a
// message beyond the size cap is replaced by an error describing the size.
// Neither case propagates a fault to the caller.
func (lg *Logger) logf(callDepth int, level Level, topic *Topic, severity Severity, format string, args []any) {
	_, file, line, ok := runtime.Caller(callDepth)
	if !ok {
		file, line = "???", 0
	}
	now := time.Now()

	payload, formatOK := formatPayload(format, args)
	if !formatOK {
		level, severity, topic = WarningLevel, SeverityHuman, nil
	}

	text, offset := lg.renderLine(now, file, line, level, topic, payload)

	if len(text) > maxMessageSize {
		payload = fmt.Sprintf("log message is too large (%d bytes)", len(text))
		level, severity = ErrorLevel, SeverityHuman
		text, offset = lg.renderLine(now, file, line, level, topic, payload)
	}

	lg.dispatch(level, severity, text, offset, now)
}

// dispatch runs the delivery path for one rendered message: ring buffer
// copy for HUMAN messages, stderr fallback while the pipeline is inactive
// or the chain is empty, and fan-out - inline or enqueued depending on the
// delivery mode.
func (lg *Logger) dispatch(level Level, severity Severity, text string, offset int, when time.Time) {
	if !lg.active.Load() {
		writeStderrLine(text)
		return
	}

	if severity == SeverityHuman {
		// store only the interesting tail, the ring would otherwise retain
		// redundant timestamp/prefix segments
		lg.buffer.store(level, when, text[offset:])
	}

	lg.appendersMu.Lock()
	empty := len(lg.appenders) == 0
	lg.appendersMu.Unlock()

	if empty {
		writeStderrLine(text)
		return
	}

	if lg.threaded {
		lg.queueMu.Lock()
		lg.queue = append(lg.queue, queuedMessage{level: level, severity: severity, text: text})
		lg.queueMu.Unlock()

		select {
		case lg.wake <- struct{}{}:
		default:
		}
		return
	}

	lg.appendersMu.Lock()
	lg.fanOut(level, severity, text)
	lg.appendersMu.Unlock()
}

// deliveryWorker is the single background delivery goroutine. It drains
// the queue in whole-buffer swaps so the queue lock is never held during
// fan-out, backs off with an increasing idle delay when the queue stays
// empty, and exits after one final drain once the pipeline went inactive.
//
// Ordering note: per-swap-batch ordering is preserved; across batches
// ordering follows the batch boundary, not a strict global FIFO under
// contention.
func (lg *Logger) deliveryWorker() {
	defer close(lg.workerDone)

	idle := workerMinIdle

	for {
		lg.draining.Store(true)
		lg.queueMu.Lock()
		batch := lg.queue
		lg.queue = nil
		lg.queueMu.Unlock()

		if len(batch) == 0 {
			idle += workerIdleStep
			if idle > workerMaxIdle {
				idle = workerMaxIdle
			}
		} else {
			for _, msg := range batch {
				lg.appendersMu.Lock()
				lg.fanOut(msg.level, msg.severity, msg.text)
				lg.appendersMu.Unlock()
			}
			idle = workerMinIdle
		}
		lg.draining.Store(false)

		if !lg.active.Load() {
			lg.queueMu.Lock()
			empty := len(lg.queue) == 0
			lg.queueMu.Unlock()
			if empty {
				return
			}
			continue
		}

		select {
		case <-lg.wake:
			idle = workerMinIdle
		case <-time.After(idle):
		}
	}
}

// Initialize establishes the delivery mode of the default logger and
// activates it. See [Logger.Initialize].
func Initialize(threaded bool) {
	defaultLogger.Initialize(threaded)
}

// Shutdown shuts down the default logger. See [Logger.Shutdown].
func Shutdown(clearBuffers bool) bool {
	return defaultLogger.Shutdown(clearBuffers)
}

// SetLevel sets the default logger's global level threshold.
func SetLevel(level Level) {
	defaultLogger.SetLevel(level)
}

// CurrentLevel returns the default logger's global level threshold.
func CurrentLevel() Level {
	return defaultLogger.CurrentLevel()
}

// SetLevelSpec applies a level configuration string ("info" or
// "topic=debug") to the default logger.
func SetLevelSpec(spec string) error {
	return defaultLogger.SetLevelSpec(spec)
}

// SetPrefix sets the default logger's output prefix.
func SetPrefix(prefix string) {
	defaultLogger.SetPrefix(prefix)
}

// SetShowLineNumbers forces the [file:line] segment for all levels on the
// default logger.
func SetShowLineNumbers(show bool) {
	defaultLogger.SetShowLineNumbers(show)
}

// SetShowThreadIdentifier renders [pid-threadid] instead of [pid] on the
// default logger.
func SetShowThreadIdentifier(show bool) {
	defaultLogger.SetShowThreadIdentifier(show)
}

// SetUseLocalTime renders the default logger's timestamps in local time.
func SetUseLocalTime(local bool) {
	defaultLogger.SetUseLocalTime(local)
}

// RegisterTopic registers a named topic on the default logger. See
// [Logger.RegisterTopic].
func RegisterTopic(name string, initial Level) (*Topic, error) {
	return defaultLogger.RegisterTopic(name, initial)
}

// IsEnabled reports whether a message at the given level would be emitted
// by the default logger.
func IsEnabled(level Level) bool {
	return defaultLogger.Enabled(level)
}

// IsTopicEnabled reports whether a message at the given level, scoped to
// the given topic, would be emitted by the default logger.
func IsTopicEnabled(level Level, topic *Topic) bool {
	return defaultLogger.TopicEnabled(level, topic)
}

// AddAppender creates a sink from a definition string and appends it to
// the default logger's chain. See [Logger.AddAppender].
func AddAppender(definition string, opts AppenderOptions) error {
	return defaultLogger.AddAppender(definition, opts)
}

// RegisterAppender appends a sink to the default logger's chain.
func RegisterAppender(appender Appender) {
	defaultLogger.RegisterAppender(appender)
}

// Reopen re-establishes every appender's underlying resource on the
// default logger, e.g. on a log rotation signal.
func Reopen() {
	defaultLogger.Reopen()
}

// Flush drains the default logger's queued messages. See [Logger.Flush].
func Flush() {
	defaultLogger.Flush()
}

// BufferedEntries returns the default logger's retained recent messages.
// See [Logger.BufferedEntries].
func BufferedEntries(level Level, start uint64, upTo bool) []BufferEntry {
	return defaultLogger.BufferedEntries(level, start, upTo)
}

// LogFileName returns the path of the first file backed appender added to
// the default logger's chain, or "".
func LogFileName() string {
	return defaultLogger.LogFileName()
}

// Log logs a message on the default logger at the given level, scoped to
// an optional topic and classified by severity. Arguments are handled in
// the manner of fmt.Printf.
func Log(level Level, topic *Topic, severity Severity, format string, args ...any) {
	if defaultLogger.TopicEnabled(level, topic) {
		defaultLogger.logf(2, level, topic, severity, format, args)
	}
}

// Fatalf logs to the FATAL log of the default logger. Arguments are
// handled in the manner of fmt.Printf.
func Fatalf(format string, args ...any) {
	if defaultLogger.Enabled(FatalLevel) {
		defaultLogger.logf(2, FatalLevel, nil, SeverityHuman, format, args)
	}
}

// Errorf logs to the ERROR log of the default logger. Arguments are
// handled in the manner of fmt.Printf.
func Errorf(format string, args ...any) {
	if defaultLogger.Enabled(ErrorLevel) {
		defaultLogger.logf(2, ErrorLevel, nil, SeverityHuman, format, args)
	}
}

// Warnf logs to the WARNING log of the default logger. Arguments are
// handled in the manner of fmt.Printf.
func Warnf(format string, args ...any) {
	if defaultLogger.Enabled(WarningLevel) {
		defaultLogger.logf(2, WarningLevel, nil, SeverityHuman, format, args)
	}
}

// Infof logs to the INFO log of the default logger. Arguments are handled
// in the manner of fmt.Printf.
func Infof(format string, args ...any) {
	if defaultLogger.Enabled(InfoLevel) {
		defaultLogger.logf(2, InfoLevel, nil, SeverityHuman, format, args)
	}
}

// Debugf logs to the DEBUG log of the default logger. Arguments are
// handled in the manner of fmt.Printf.
func Debugf(format string, args ...any) {
	if defaultLogger.Enabled(DebugLevel) {
		defaultLogger.logf(2, DebugLevel, nil, SeverityHuman, format, args)
	}
}

// Tracef logs to the TRACE log of the default logger. Arguments are
// handled in the manner of fmt.Printf.
func Tracef(format string, args ...any) {
	if defaultLogger.Enabled(TraceLevel) {
		defaultLogger.logf(2, TraceLevel, nil, SeverityHuman, format, args)
	}
}
