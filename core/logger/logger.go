// Package logger records shell activity as newline-delimited JSON:
// executed pipelines, spawn failures, and job state transitions.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Entry is one logged event. Exactly one of the event fields is set.
type Entry struct {
	TimestampMicros int64 `json:"timestamp_micros"`

	RunCommand *RunCommandEvent `json:"run_command,omitempty"`
	SpawnError *SpawnErrorEvent `json:"spawn_error,omitempty"`
	Job        *JobEvent        `json:"job,omitempty"`
}

// RunCommandEvent is recorded once per executed pipeline.
type RunCommandEvent struct {
	Raw        string `json:"raw"`
	Segments   int    `json:"segments"`
	Background bool   `json:"background"`
}

// SpawnErrorEvent is recorded when a segment cannot be spawned.
type SpawnErrorEvent struct {
	Program string `json:"program"`
	Error   string `json:"error"`
}

// JobEvent is recorded on job state transitions.
type JobEvent struct {
	ID      int    `json:"id"`
	PGID    int    `json:"pgid"`
	Status  string `json:"status"`
	Command string `json:"command"`
}

// LogRecorder is a callback that stores entries in an external datastore.
type LogRecorder func(e *Entry) error

// Logger captures shell events. Recording failures are deliberately
// swallowed: logging must never break command execution.
type Logger struct {
	Record LogRecorder
}

// NewJsonLinesLogRecorder creates a Logger that exports entries in
// newline-delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) *Logger {
	return &Logger{
		Record: func(e *Entry) error {
			line, err := json.Marshal(e)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(w, string(line))
			return err
		},
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{Record: func(*Entry) error { return nil }}
}

func (l *Logger) record(e *Entry) {
	if l == nil || l.Record == nil {
		return
	}
	e.TimestampMicros = time.Now().UnixMicro()
	_ = l.Record(e)
}

// RunCommand logs the start of a pipeline execution.
func (l *Logger) RunCommand(raw string, segments int, background bool) {
	l.record(&Entry{RunCommand: &RunCommandEvent{
		Raw:        raw,
		Segments:   segments,
		Background: background,
	}})
}

// SpawnError logs a segment that could not be spawned.
func (l *Logger) SpawnError(program, msg string) {
	l.record(&Entry{SpawnError: &SpawnErrorEvent{Program: program, Error: msg}})
}

// JobTransition logs a job changing state.
func (l *Logger) JobTransition(id, pgid int, status, command string) {
	l.record(&Entry{Job: &JobEvent{ID: id, PGID: pgid, Status: status, Command: command}})
}
