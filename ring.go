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
	"sort"
	"sync"
	"time"
)

const (
	// ringCapacity is the number of entries retained per level. Once more
	// than ringCapacity messages arrive at a level the oldest entries are
	// silently overwritten; that is expected steady state, not a fault.
	ringCapacity = 1024

	// ringMaxLength is the maximum stored text length. Longer messages are
	// truncated with a trailing ellipsis marker before storing.
	ringMaxLength = 256

	// ringEllipsis marks a truncated entry.
	ringEllipsis = " ..."

	// ringLevels is the number of buffered levels (FATAL through TRACE).
	ringLevels = 6
)

// BufferEntry is one retained log line. Entries returned by queries are
// independent copies; mutating the ring afterwards does not affect them.
type BufferEntry struct {
	// ID is the entry's monotonically increasing id. Ids are global across
	// all levels and never reset.
	ID uint64
	// Level is the entry's log level.
	Level Level
	// Timestamp is the time the entry was stored.
	Timestamp time.Time
	// Text is the retained message tail (user payload without the
	// timestamp/prefix segments), possibly truncated.
	Text string
}

// ringBuffer keeps the most recent rendered lines per level for later
// retrieval, independent of whether any appender is configured. A single
// lock protects all levels; the ring is off the hot broadcast path and
// copies are cheap.
type ringBuffer struct {
	mu sync.Mutex
	// nextID is the id handed to the next stored entry, starting at 1.
	nextID uint64
	// current points at the most recently written slot per level.
	current [ringLevels]int
	// entries holds the per-level rings.
	entries [ringLevels][ringCapacity]BufferEntry
}

func newRingBuffer() *ringBuffer {
	return &ringBuffer{nextID: 1}
}

// store retains a copy of text under the given level. Text beyond
// ringMaxLength is truncated with the ellipsis marker. Levels outside the
// buffered range are ignored.
func (rb *ringBuffer) store(level Level, when time.Time, text string) {
	pos := level.level - 1
	if pos < 0 || pos >= ringLevels {
		return
	}

	if len(text) > ringMaxLength {
		text = text[:ringMaxLength-len(ringEllipsis)] + ringEllipsis
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.current[pos] = (rb.current[pos] + 1) % ringCapacity
	rb.entries[pos][rb.current[pos]] = BufferEntry{
		ID:        rb.nextID,
		Level:     level,
		Timestamp: when,
		Text:      text,
	}
	rb.nextID++
}

// query returns the retained entries with id >= start, in ascending id
// order. If upTo is true the result merges every ring for levels more
// severe than or equal to the given level, otherwise only the given level's
// ring is read.
func (rb *ringBuffer) query(level Level, start uint64, upTo bool) []BufferEntry {
	pos := level.level - 1
	if pos < 0 {
		pos = 0
	}
	if pos >= ringLevels {
		pos = ringLevels - 1
	}

	begin := pos
	if upTo {
		begin = 0
	}

	var result []BufferEntry

	rb.mu.Lock()
	for i := begin; i <= pos; i++ {
		for j := 0; j < ringCapacity; j++ {
			cur := (rb.current[i] + j) % ringCapacity
			entry := rb.entries[i][cur]
			if entry.ID >= start && entry.Text != "" {
				result = append(result, entry)
			}
		}
	}
	rb.mu.Unlock()

	sort.Slice(result, func(a, b int) bool {
		return result[a].ID < result[b].ID
	})

	return result
}

// clear drops all retained entries. The id counter is not reset.
func (rb *ringBuffer) clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for i := range rb.entries {
		for j := range rb.entries[i] {
			rb.entries[i][j] = BufferEntry{}
		}
	}
}
