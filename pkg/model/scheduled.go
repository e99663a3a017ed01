package model

import "time"

// ScheduledMessage is a deferred publish request. ScheduledTime is kept in
// epoch milliseconds, which is the unit used on the wire and on disk.
type ScheduledMessage struct {
	ID            string `json:"id"`
	Topic         string `json:"topic"`
	Content       string `json:"content"`
	Sender        string `json:"sender"`
	ScheduledTime int64  `json:"scheduledTime"`
	ClientIP      string `json:"clientIP"`
}

// DueAt returns the instant the entry is due.
func (m ScheduledMessage) DueAt() time.Time {
	return time.UnixMilli(m.ScheduledTime)
}

// DueAfter reports whether the entry is still due after now.
func (m ScheduledMessage) DueAfter(now time.Time) bool {
	return m.DueAt().After(now)
}

// ScheduledSnapshot is the persisted record of all pending scheduled messages.
type ScheduledSnapshot struct {
	ScheduledMessages []ScheduledMessage `json:"scheduledMessages"`
	SavedAt           time.Time          `json:"savedAt"`
}
