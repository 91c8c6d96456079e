package models

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool { return r == RoleUser || r == RoleAssistant }

// TimestampLayout is naive UTC ISO-8601 with microseconds, no offset suffix.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Turn is one line of a user's conversation log. Field set and names are the
// on-disk format; do not add fields without a migration for existing logs.
type Turn struct {
	UserID    string  `json:"user_id"`
	Role      Role    `json:"role"`
	Content   string  `json:"content"`
	Timestamp string  `json:"timestamp"`
	SessionID *string `json:"session_id"`
}

func FormatTimestamp(t time.Time) string { return t.UTC().Format(TimestampLayout) }

func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

// ExportResult is where an exported conversation ended up.
type ExportResult struct {
	Path      string `json:"path"`
	RemoteURI string `json:"remote_uri,omitempty"`
	Turns     int    `json:"turns"`
}
