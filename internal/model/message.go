package model

import "time"

// Message is a single chat message within a team. Messages are
// append-only; ordering is by CreatedAt with ties broken by ID.
type Message struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	TeamID    string      `json:"teamId"`
	SenderID  string      `json:"senderId"`
	Sender    UserSummary `json:"sender"`
	CreatedAt time.Time   `json:"createdAt"`
}

// MessageBefore reports whether a sorts strictly before b in the
// canonical message order.
func MessageBefore(a, b Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// LatestMessage returns the last message in canonical order, or false
// when the list is empty. The list is not assumed to be sorted.
func LatestMessage(messages []Message) (Message, bool) {
	if len(messages) == 0 {
		return Message{}, false
	}
	latest := messages[0]
	for _, m := range messages[1:] {
		if MessageBefore(latest, m) {
			latest = m
		}
	}
	return latest, true
}
