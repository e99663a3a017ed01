package model

import "time"

// Message is an entry of the broker's append-only message log. Entries are
// never modified after they were appended.
type Message struct {
	ID        int64     `json:"id"`
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	SenderIP  string    `json:"senderIP"`
	Timestamp time.Time `json:"timestamp"`
	Scheduled bool      `json:"scheduled,omitempty"`
}

// MessageSnapshot is the persisted record of the message log together with
// the topic directory.
type MessageSnapshot struct {
	Messages []Message `json:"messages"`
	Topics   []string  `json:"topics"`
	SavedAt  time.Time `json:"savedAt"`
}
