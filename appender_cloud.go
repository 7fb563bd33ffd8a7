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
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/logging"
	"google.golang.org/api/option"
)

var (
	// errCloudNotInitialized is the error returned when the cloud appender
	// is used before InitClient completed.
	errCloudNotInitialized = errors.New("cloud logging client is not yet fully initialized")

	// errCloudAlreadyInitialized is the error returned when InitClient is
	// called on an already initialized cloud appender.
	errCloudAlreadyInitialized = errors.New("cloud logging client is already initialized")
)

// CloudInitMode is the cloud appender initialization mode.
type CloudInitMode int

const (
	// CloudInitModeLazy creates the appender without connecting the cloud
	// logging client; messages are dropped until InitClient is called.
	CloudInitModeLazy CloudInitMode = iota
	// CloudInitModeActive connects the cloud logging client immediately.
	CloudInitModeActive
)

// CloudOptions defines the cloud logging behavior and setup options.
type CloudOptions struct {
	// Ident is the cloud logger's name.
	Ident string
	// ProgramName is carried on the logging payload.
	ProgramName string
	// ProgramVersion is carried on the logging payload.
	ProgramVersion string
	// Project is the gcp project name.
	Project string
	// Instance is the running instance name, attached as a common label.
	Instance string
	// UserAgent is the logging client's user agent option.
	UserAgent string
	// FlushCadence is how frequently entries are pushed to the server.
	FlushCadence time.Duration
	// WithoutAuthentication disables authentication for cloud logging
	// operations.
	WithoutAuthentication bool
}

// CloudEntryPayload is the data sent to cloud logging as the entry payload.
type CloudEntryPayload struct {
	// Message is the rendered message.
	Message string `json:"message"`
	// Level is the message's level tag.
	Level string `json:"level"`
	// ProgName is the program name.
	ProgName string `json:"progName,omitempty"`
	// ProgVersion is the program version.
	ProgVersion string `json:"progVersion,omitempty"`
}

// CloudAppender forwards rendered lines to google cloud logging. It has no
// sink definition string; register it programmatically via
// RegisterAppender.
type CloudAppender struct {
	appenderBase

	// mu protects client/logger against close interleaving with a write.
	mu sync.Mutex
	// client is the cloud logging client.
	client *logging.Client
	// logger is the cloud logging logger.
	logger *logging.Logger
	// opts is the cloud logging options.
	opts *CloudOptions
}

// NewCloudAppender returns an appender forwarding to google cloud logging.
//
// If mode is CloudInitModeLazy only the appender object is allocated and
// log entries are dropped until InitClient is called. Lazy initialization
// matters when the metadata needed to connect (project, instance) is not
// available at the time the chain is configured.
func NewCloudAppender(ctx context.Context, mode CloudInitMode, copts *CloudOptions, opts AppenderOptions) (*CloudAppender, error) {
	ca := &CloudAppender{
		appenderBase: newAppenderBase(opts),
	}

	if mode == CloudInitModeActive {
		if err := ca.InitClient(ctx, copts); err != nil {
			return nil, fmt.Errorf("failed to initialize cloud logging client: %w", err)
		}
	}

	return ca, nil
}

// InitClient connects the cloud logging client and logger. It fails with
// errCloudAlreadyInitialized when called twice.
func (ca *CloudAppender) InitClient(ctx context.Context, copts *CloudOptions) error {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.client != nil {
		return errCloudAlreadyInitialized
	}

	var clientOptions []option.ClientOption
	if copts.UserAgent != "" {
		clientOptions = append(clientOptions, option.WithUserAgent(copts.UserAgent))
	}
	if copts.WithoutAuthentication {
		clientOptions = append(clientOptions, option.WithoutAuthentication())
	}

	client, err := logging.NewClient(ctx, copts.Project, clientOptions...)
	if err != nil {
		return fmt.Errorf("failed to create cloud logging client: %w", err)
	}
	client.OnError = func(error) {}

	var loggerOptions []logging.LoggerOption
	if copts.Instance != "" {
		loggerOptions = append(loggerOptions,
			logging.CommonLabels(map[string]string{"instance_name": copts.Instance}))
	}
	loggerOptions = append(loggerOptions, logging.DelayThreshold(copts.FlushCadence))

	ca.client = client
	ca.logger = client.Logger(copts.Ident, loggerOptions...)
	ca.opts = copts

	return nil
}

// Name returns the sink kind name.
func (ca *CloudAppender) Name() string {
	return "cloudlogging"
}

// Details returns "".
func (ca *CloudAppender) Details() string {
	return ""
}

// LogMessage forwards one rendered line to cloud logging. Entries are
// buffered by the client and pushed on its flush cadence.
func (ca *CloudAppender) LogMessage(level Level, severity Severity, message string) {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.logger == nil {
		return
	}

	severityMap := map[Level]logging.Severity{
		FatalLevel:   logging.Critical,
		ErrorLevel:   logging.Error,
		WarningLevel: logging.Warning,
		InfoLevel:    logging.Info,
		DebugLevel:   logging.Debug,
		TraceLevel:   logging.Debug,
	}

	ca.logger.Log(logging.Entry{
		Severity: severityMap[level],
		Payload: &CloudEntryPayload{
			Message:     stripBracketPrefix(message),
			Level:       level.String(),
			ProgName:    ca.opts.ProgramName,
			ProgVersion: ca.opts.ProgramVersion,
		},
	})
}

// Flush forces the cloud logging client to push buffered entries.
func (ca *CloudAppender) Flush(ctx context.Context) error {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.logger == nil {
		return errCloudNotInitialized
	}
	if err := ca.client.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach cloud logging, skipping flush: %w", err)
	}
	if err := ca.logger.Flush(); err != nil {
		return fmt.Errorf("failed to flush cloud logging: %w", err)
	}
	return nil
}

// Reopen is a no-op; the cloud logging client manages its own connection.
func (ca *CloudAppender) Reopen() error {
	return nil
}

// Close flushes and releases the cloud logging client, marking the
// appender inert. Idempotent.
func (ca *CloudAppender) Close() {
	ca.mu.Lock()
	defer ca.mu.Unlock()

	if ca.client == nil {
		return
	}
	ca.client.Close()
	ca.client = nil
	ca.logger = nil
}
