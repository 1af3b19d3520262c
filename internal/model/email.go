package model

import "time"

// Email is an incoming message as seen by the rule engine. It is owned by the
// mail provider and only read during matching.
type Email struct {
	ID        int               `json:"id"`
	UserID    int               `json:"user_id"`
	ThreadID  string            `json:"thread_id"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Subject   string            `json:"subject"`
	Body      string            `json:"body"`
	Date      *time.Time        `json:"date,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	// IsThreadFollowUp is true when the email is not the first message of its thread.
	IsThreadFollowUp bool `json:"is_thread_follow_up"`
}

// ThreadMessage is one prior message of a thread used as drafting context.
type ThreadMessage struct {
	From    string     `json:"from"`
	To      string     `json:"to"`
	Subject string     `json:"subject"`
	Body    string     `json:"body"`
	Date    *time.Time `json:"date,omitempty"`
}

// UserProfile is the drafting user's identity and optional self description.
type UserProfile struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	About string `json:"about"`
}

// KnowledgeEntry is one user-authored knowledge base item.
type KnowledgeEntry struct {
	ID        string    `json:"id"`
	UserID    int       `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
