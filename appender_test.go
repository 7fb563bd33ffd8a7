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
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAppender(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name       string
		definition string
		wantErr    error
	}{
		{name: "stdout", definition: "+"},
		{name: "stderr", definition: "-"},
		{name: "file", definition: "file:" + path.Join(dir, "plain.log")},
		{name: "rotate", definition: "rotate:" + path.Join(dir, "rotated.log")},
		{name: "empty", definition: "", wantErr: ErrInvalidSinkTarget},
		{name: "file_without_path", definition: "file:", wantErr: ErrInvalidSinkTarget},
		{name: "rotate_without_path", definition: "rotate:", wantErr: ErrInvalidSinkTarget},
		{name: "unknown_scheme", definition: "kafka:topic", wantErr: ErrInvalidSinkTarget},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lg := NewLogger()
			err := lg.AddAppender(tc.definition, AppenderOptions{})
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, lg.appenders, "chain must stay unchanged after a rejected definition")
				return
			}
			require.NoError(t, err)
			assert.Len(t, lg.appenders, 1)
		})
	}
}

func TestAddAppenderUnopenableFile(t *testing.T) {
	lg := NewLogger()

	err := lg.AddAppender("file:"+path.Join(t.TempDir(), "missing", "dir", "app.log"), AppenderOptions{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidSinkTarget, "a resource failure is not a definition failure")
	assert.Empty(t, lg.appenders)
	assert.Empty(t, lg.LogFileName(), "a failed appender must not be remembered as the log file")
}

func TestLogFileName(t *testing.T) {
	dir := t.TempDir()
	lg := NewLogger()

	require.NoError(t, lg.AddAppender("-", AppenderOptions{}))
	assert.Empty(t, lg.LogFileName(), "standard streams are not file targets")

	first := path.Join(dir, "first.log")
	require.NoError(t, lg.AddAppender("file:"+first, AppenderOptions{}))
	require.NoError(t, lg.AddAppender("file:"+path.Join(dir, "second.log"), AppenderOptions{}))

	assert.Equal(t, first, lg.LogFileName(), "the first file target wins")
}

func TestAppenderSeverityFilter(t *testing.T) {
	lg := newSyncLogger(t)
	human := newCaptureAppender(AppenderOptions{SeverityFilter: SeverityHuman})
	usage := newCaptureAppender(AppenderOptions{SeverityFilter: SeverityUsage})
	all := newCaptureAppender(AppenderOptions{})
	lg.RegisterAppender(human)
	lg.RegisterAppender(usage)
	lg.RegisterAppender(all)

	lg.Log(InfoLevel, nil, SeverityHuman, "for humans")
	lg.Log(InfoLevel, nil, SeverityUsage, "for accounting")
	lg.Log(InfoLevel, nil, SeverityTechnical, "for machines")

	assert.Len(t, human.fetch(), 1)
	assert.Len(t, usage.fetch(), 1)
	assert.Len(t, all.fetch(), 3, "the catch-all appender sees every severity")
	assert.Contains(t, human.fetch()[0], "for humans")
	assert.Contains(t, usage.fetch()[0], "for accounting")
}

func TestAppenderContentFilter(t *testing.T) {
	lg := newSyncLogger(t)
	filtered := newCaptureAppender(AppenderOptions{ContentFilter: "replication"})
	lg.RegisterAppender(filtered)

	lg.Infof("replication lag is 3s")
	lg.Infof("compaction finished")

	got := filtered.fetch()
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "replication lag")
}

func TestAppenderConsume(t *testing.T) {
	lg := newSyncLogger(t)
	eater := newCaptureAppender(AppenderOptions{ContentFilter: "secret", Consume: true})
	rest := newCaptureAppender(AppenderOptions{})
	lg.RegisterAppender(eater)
	lg.RegisterAppender(rest)

	lg.Infof("a secret message")
	lg.Infof("a public message")

	assert.Len(t, eater.fetch(), 1, "the consuming appender accepts its match")
	got := rest.fetch()
	require.Len(t, got, 1, "a consumed message must not reach later appenders")
	assert.Contains(t, got[0], "a public message")
}

func TestAppenderConsumeOnlyOnMatch(t *testing.T) {
	lg := newSyncLogger(t)
	eater := newCaptureAppender(AppenderOptions{SeverityFilter: SeverityUsage, Consume: true})
	rest := newCaptureAppender(AppenderOptions{})
	lg.RegisterAppender(eater)
	lg.RegisterAppender(rest)

	lg.Infof("human message")

	assert.Empty(t, eater.fetch(), "a non-matching consumer must not accept")
	assert.Len(t, rest.fetch(), 1, "a non-matching consumer must not halt the chain")
}

func TestStripBracketPrefix(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "pid_prefix",
			input: "[12345] INFO ready",
			want:  "INFO ready",
		},
		{
			name:  "no_bracket",
			input: "plain message",
			want:  "plain message",
		},
		{
			name:  "bracket_at_end",
			input: "trailing ]",
			want:  "trailing ]",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripBracketPrefix(tc.input))
		})
	}
}

func TestEscapeControls(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain",
			input: "no controls",
			want:  "no controls\n",
		},
		{
			name:  "newline_and_tab",
			input: "line one\nline two\tindented",
			want:  `line one\nline two\tindented` + "\n",
		},
		{
			name:  "carriage_return",
			input: "dos\r\nline",
			want:  `dos\r\nline` + "\n",
		},
		{
			name:  "other_control",
			input: "bell\x07char",
			want:  "bell char\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, escapeControls(tc.input))
		})
	}
}

func TestReopenReportsFailures(t *testing.T) {
	stderr := swapStderr(t)

	lg := NewLogger()
	lg.RegisterAppender(&failingReopenAppender{})
	lg.Reopen()

	assert.Contains(t, stderr.String(), "failed to reopen broken log appender")
}

type failingReopenAppender struct {
	appenderBase
}

func (*failingReopenAppender) LogMessage(Level, Severity, string) {}
func (*failingReopenAppender) Reopen() error                     { return assert.AnError }
func (*failingReopenAppender) Close()                            {}
func (*failingReopenAppender) Details() string                   { return "" }
func (*failingReopenAppender) Name() string                      { return "broken" }
