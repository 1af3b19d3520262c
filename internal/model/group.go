package model

// GroupItemType is the email field a group item tests.
type GroupItemType string

const (
	GroupItemFrom    GroupItemType = "FROM"
	GroupItemSubject GroupItemType = "SUBJECT"
	GroupItemBody    GroupItemType = "BODY"
)

// GroupItem is one membership criterion of a group.
type GroupItem struct {
	ID    string        `json:"id"`
	Type  GroupItemType `json:"type"`
	Value string        `json:"value"`
}

// Group is a named semantic category of emails, e.g. "Newsletters" or "Receipts".
type Group struct {
	ID     string      `json:"id"`
	UserID int         `json:"user_id"`
	Name   string      `json:"name"`
	Items  []GroupItem `json:"items"`
}
