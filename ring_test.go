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
	"testing"
	"time"
)

func TestRingStoreAndQuery(t *testing.T) {
	rb := newRingBuffer()
	when := time.Now()

	rb.store(InfoLevel, when, "first")
	rb.store(InfoLevel, when, "second")
	rb.store(ErrorLevel, when, "third")

	got := rb.query(InfoLevel, 0, false)
	if len(got) != 2 {
		t.Fatalf("query(InfoLevel) returned %d entries, want: 2", len(got))
	}
	if got[0].Text != "first" || got[1].Text != "second" {
		t.Errorf("query(InfoLevel) = [%q, %q], want: [%q, %q]", got[0].Text, got[1].Text, "first", "second")
	}
	if got[0].ID >= got[1].ID {
		t.Errorf("entry ids not ascending: %d then %d", got[0].ID, got[1].ID)
	}
	if got[0].Level != InfoLevel {
		t.Errorf("entry level = %v, want: %v", got[0].Level, InfoLevel)
	}
	if !got[0].Timestamp.Equal(when) {
		t.Errorf("entry timestamp = %v, want: %v", got[0].Timestamp, when)
	}
}

func TestRingQueryUpTo(t *testing.T) {
	rb := newRingBuffer()
	when := time.Now()

	rb.store(FatalLevel, when, "fatal entry")
	rb.store(ErrorLevel, when, "error entry")
	rb.store(WarningLevel, when, "warning entry")
	rb.store(InfoLevel, when, "info entry")
	rb.store(DebugLevel, when, "debug entry")

	// level only
	if got := rb.query(WarningLevel, 0, false); len(got) != 1 || got[0].Text != "warning entry" {
		t.Errorf("query(WarningLevel, false) = %v, want only the warning entry", got)
	}

	// merged across all levels at least as severe
	got := rb.query(WarningLevel, 0, true)
	if len(got) != 3 {
		t.Fatalf("query(WarningLevel, true) returned %d entries, want: 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].ID >= got[i].ID {
			t.Errorf("merged result not ascending by id: %d then %d", got[i-1].ID, got[i].ID)
		}
	}
	if got[0].Text != "fatal entry" || got[2].Text != "warning entry" {
		t.Errorf("merged result = %v, want fatal..warning in store order", got)
	}
}

func TestRingQueryStartID(t *testing.T) {
	rb := newRingBuffer()
	when := time.Now()

	for i := 0; i < 5; i++ {
		rb.store(InfoLevel, when, fmt.Sprintf("entry %d", i))
	}

	all := rb.query(InfoLevel, 0, false)
	if len(all) != 5 {
		t.Fatalf("query() returned %d entries, want: 5", len(all))
	}

	cutoff := all[2].ID
	got := rb.query(InfoLevel, cutoff, false)
	if len(got) != 3 {
		t.Fatalf("query(start=%d) returned %d entries, want: 3", cutoff, len(got))
	}
	if got[0].ID != cutoff {
		t.Errorf("first returned id = %d, want: %d", got[0].ID, cutoff)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	rb := newRingBuffer()
	when := time.Now()

	const stored = ringCapacity + 100
	for i := 0; i < stored; i++ {
		rb.store(DebugLevel, when, fmt.Sprintf("entry %d", i))
	}

	got := rb.query(DebugLevel, 0, false)
	if len(got) != ringCapacity {
		t.Fatalf("query() returned %d entries, want: %d", len(got), ringCapacity)
	}
	if got[0].Text != fmt.Sprintf("entry %d", stored-ringCapacity) {
		t.Errorf("oldest retained entry = %q, want: %q", got[0].Text, fmt.Sprintf("entry %d", stored-ringCapacity))
	}
	if got[len(got)-1].Text != fmt.Sprintf("entry %d", stored-1) {
		t.Errorf("newest retained entry = %q, want: %q", got[len(got)-1].Text, fmt.Sprintf("entry %d", stored-1))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].ID >= got[i].ID {
			t.Fatalf("result not ascending by id at index %d", i)
		}
	}
}

func TestRingTruncatesLongText(t *testing.T) {
	rb := newRingBuffer()

	long := strings.Repeat("x", ringMaxLength*2)
	rb.store(InfoLevel, time.Now(), long)

	got := rb.query(InfoLevel, 0, false)
	if len(got) != 1 {
		t.Fatalf("query() returned %d entries, want: 1", len(got))
	}
	if len(got[0].Text) != ringMaxLength {
		t.Errorf("stored text is %d bytes, want: %d", len(got[0].Text), ringMaxLength)
	}
	if !strings.HasSuffix(got[0].Text, ringEllipsis) {
		t.Errorf("stored text = %q, want the %q truncation marker", got[0].Text, ringEllipsis)
	}

	// exactly at the limit nothing is cut
	rb.store(ErrorLevel, time.Now(), strings.Repeat("y", ringMaxLength))
	got = rb.query(ErrorLevel, 0, false)
	if len(got) != 1 || strings.HasSuffix(got[0].Text, ringEllipsis) {
		t.Errorf("text at the exact limit was truncated: %v", got)
	}
}

func TestRingIgnoresDefaultLevel(t *testing.T) {
	rb := newRingBuffer()
	rb.store(DefaultLevel, time.Now(), "not storable")

	for _, level := range allLevels[1:] {
		if got := rb.query(level, 0, false); len(got) != 0 {
			t.Errorf("query(%v) returned %d entries after a DEFAULT store, want: 0", level, len(got))
		}
	}
}

func TestRingClear(t *testing.T) {
	rb := newRingBuffer()
	when := time.Now()

	rb.store(InfoLevel, when, "entry one")
	rb.store(ErrorLevel, when, "entry two")
	rb.clear()

	if got := rb.query(TraceLevel, 0, true); len(got) != 0 {
		t.Fatalf("query() returned %d entries after clear(), want: 0", len(got))
	}

	// ids keep increasing across a clear
	rb.store(InfoLevel, when, "entry three")
	got := rb.query(InfoLevel, 0, false)
	if len(got) != 1 || got[0].ID != 3 {
		t.Errorf("entry after clear() = %v, want id 3", got)
	}
}
