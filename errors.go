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

import "errors"

// Configuration errors. They are returned by the configuration surface
// (topic registration, appender setup) and always leave the logger state
// untouched - a failed configuration step never mutates the chain or the
// topic table partially.
var (
	// ErrInvalidSinkTarget is returned when an appender definition does not
	// name a supported sink.
	ErrInvalidSinkTarget = errors.New("invalid sink target")

	// ErrTopicCapacity is returned when registering a topic beyond the fixed
	// topic table capacity.
	ErrTopicCapacity = errors.New("log topic capacity exceeded")

	// ErrDuplicateTopic is returned when registering a topic whose name is
	// already taken.
	ErrDuplicateTopic = errors.New("duplicate log topic name")
)
