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

// Package toplog implements an in-process, topic scoped, line oriented
// logging pipeline with pluggable output sinks. By default toplog provides
// a set of predefined appenders: [FileAppender], [RotatingFileAppender],
// [SyslogAppender] and [CloudAppender].
//
// # Initialization & Configuration
//
// An application using toplog follows the pattern of configuring levels and
// appenders and then activating the pipeline:
//
//	toplog.SetLevel(toplog.InfoLevel)
//	toplog.AddAppender("file:/var/log/app.log", toplog.AppenderOptions{
//		SeverityFilter: toplog.SeverityUnknown,
//	})
//	toplog.Initialize(true)
//	toplog.Infof("logger initialized")
//	...
//	toplog.Shutdown(false)
//
// Initialize selects the delivery mode for the process lifetime: with
// threaded set, log calls only enqueue the rendered message and a single
// background goroutine drains the queue; otherwise the calling goroutine
// runs the full appender fan-out inline.
//
// # Topics
//
// In addition to the global level threshold, topics provide named channels
// with independently adjustable thresholds:
//
//	requests, err := toplog.RegisterTopic("requests", toplog.DefaultLevel)
//	...
//	requests.SetLevel(toplog.TraceLevel)
//	requests.Tracef("GET %s -> %d", path, status)
//
// A topic whose level is DefaultLevel inherits the global threshold.
// Enablement checks are two atomic loads and are cheap enough for disabled
// call sites.
//
// # Appender Chain
//
// Appenders form an ordered chain. Each appender may carry a content
// filter (literal substring), a severity filter and a consume flag; a
// consuming appender halts fan-out of an accepted message to the rest of
// the chain. While the chain is empty - and before Initialize or after
// Shutdown - every message is written to stderr instead, the pipeline
// never goes silent.
//
// # Recent Message Buffer
//
// Independently of the configured appenders, the most recent human
// readable messages are retained per level in a fixed capacity ring,
// queryable by monotonically increasing message id via [BufferedEntries]
// for runtime introspection.
package toplog
