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

//go:build windows

package toplog

import "fmt"

// newSyslogAppender is not supported on windows; a syslog sink definition
// fails as an invalid target.
func newSyslogAppender(name, facility string, opts AppenderOptions) (Appender, error) {
	return nil, fmt.Errorf("%w: syslog is not supported on windows", ErrInvalidSinkTarget)
}
