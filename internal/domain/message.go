package domain

import "time"

// HistoryMessage is one entry of a channel's message history.
type HistoryMessage struct {
	ID         string
	AuthorName string
	Content    string
	CreatedAt  time.Time
}
