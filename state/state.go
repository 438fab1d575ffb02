// Package state persists the autopilot's enabled flag and activity log so both
// survive a restart of the service.
package state

import (
	"context"
	"time"
)

// Keys shared by every backend.
const (
	EnabledKey = "pamong_autopilot_enabled"
	LogsKey    = "pamong_ai_logs"
)

// LogType is the informal severity of an activity log entry.
type LogType string

const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogWarning LogType = "warning"
	LogError   LogType = "error"
)

// LogEntry is one autopilot activity line. Timestamp is display-only.
type LogEntry struct {
	Timestamp string  `json:"timestamp"`
	Message   string  `json:"message"`
	Type      LogType `json:"type"`
}

// TimestampFormat renders LogEntry.Timestamp in local time.
const TimestampFormat = "15:04:05"

// NewLogEntry stamps message with t.
func NewLogEntry(t time.Time, message string, typ LogType) LogEntry {
	return LogEntry{Timestamp: t.Local().Format(TimestampFormat), Message: message, Type: typ}
}

// Store is the durable key-value contract. Logs are kept newest first and
// AppendLog truncates the list to limit entries.
type Store interface {
	Enabled(ctx context.Context) (bool, error)
	SetEnabled(ctx context.Context, enabled bool) error
	Logs(ctx context.Context, limit int) ([]LogEntry, error)
	AppendLog(ctx context.Context, entry LogEntry, limit int) error
	Close() error
}

// Prepend returns entry followed by logs, truncated to limit.
func Prepend(logs []LogEntry, entry LogEntry, limit int) []LogEntry {
	n := len(logs) + 1
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]LogEntry, 0, n)
	out = append(out, entry)
	for _, l := range logs {
		if len(out) == n {
			break
		}
		out = append(out, l)
	}
	return out
}
