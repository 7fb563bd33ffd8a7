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
	"context"
	"errors"
	"testing"
	"time"
)

func cloudTestOptions() *CloudOptions {
	return &CloudOptions{
		Ident:                 "toplog-test",
		ProgramName:           "toplog_test",
		ProgramVersion:        "1.0.0",
		Project:               "test-project",
		Instance:              "test-instance",
		FlushCadence:          time.Second,
		WithoutAuthentication: true,
	}
}

func TestNewCloudAppenderLazy(t *testing.T) {
	ca, err := NewCloudAppender(context.Background(), CloudInitModeLazy, nil, AppenderOptions{})
	if err != nil {
		t.Fatalf("NewCloudAppender() failed: %v", err)
	}
	defer ca.Close()

	if ca.client != nil || ca.logger != nil {
		t.Errorf("lazy mode connected the client, want it unconnected until InitClient()")
	}

	// messages are dropped, not a fault
	ca.LogMessage(InfoLevel, SeverityHuman, "dropped")

	if err := ca.Flush(context.Background()); !errors.Is(err, errCloudNotInitialized) {
		t.Errorf("Flush() before InitClient() = %v, want: %v", err, errCloudNotInitialized)
	}
}

func TestNewCloudAppenderActive(t *testing.T) {
	ctx := context.Background()
	ca, err := NewCloudAppender(ctx, CloudInitModeActive, cloudTestOptions(), AppenderOptions{})
	if err != nil {
		t.Fatalf("NewCloudAppender() failed: %v", err)
	}
	defer ca.Close()

	if ca.client == nil || ca.logger == nil {
		t.Fatalf("active mode left the client unconnected")
	}

	if err := ca.InitClient(ctx, cloudTestOptions()); !errors.Is(err, errCloudAlreadyInitialized) {
		t.Errorf("second InitClient() = %v, want: %v", err, errCloudAlreadyInitialized)
	}
}

func TestCloudAppenderClose(t *testing.T) {
	ca, err := NewCloudAppender(context.Background(), CloudInitModeActive, cloudTestOptions(), AppenderOptions{})
	if err != nil {
		t.Fatalf("NewCloudAppender() failed: %v", err)
	}

	ca.Close()
	ca.Close() // idempotent

	if ca.client != nil || ca.logger != nil {
		t.Errorf("Close() left the client connected")
	}

	// inert appender drops messages instead of panicking
	ca.LogMessage(InfoLevel, SeverityHuman, "dropped")
}

func TestCloudAppenderSurface(t *testing.T) {
	ca, err := NewCloudAppender(context.Background(), CloudInitModeLazy, nil, AppenderOptions{})
	if err != nil {
		t.Fatalf("NewCloudAppender() failed: %v", err)
	}
	defer ca.Close()

	if ca.Name() != "cloudlogging" {
		t.Errorf("Name() = %q, want: %q", ca.Name(), "cloudlogging")
	}
	if ca.Details() != "" {
		t.Errorf("Details() = %q, want: %q", ca.Details(), "")
	}
	if err := ca.Reopen(); err != nil {
		t.Errorf("Reopen() = %v, want: nil", err)
	}
}
