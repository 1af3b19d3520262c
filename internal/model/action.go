package model

// ActionType is the kind of side effect an action performs.
type ActionType string

const (
	ActionArchive     ActionType = "ARCHIVE"
	ActionLabel       ActionType = "LABEL"
	ActionReply       ActionType = "REPLY"
	ActionSendEmail   ActionType = "SEND_EMAIL"
	ActionForward     ActionType = "FORWARD"
	ActionDraftEmail  ActionType = "DRAFT_EMAIL"
	ActionMarkSpam    ActionType = "MARK_SPAM"
	ActionCallWebhook ActionType = "CALL_WEBHOOK"
	ActionMarkRead    ActionType = "MARK_READ"
)

// Param keys understood by the executors.
const (
	ParamLabel   = "label"
	ParamTo      = "to"
	ParamCC      = "cc"
	ParamBCC     = "bcc"
	ParamSubject = "subject"
	ParamContent = "content"
	ParamURL     = "url"
)

// Action is one step of a rule, executed in order on a match.
type Action struct {
	ID     string            `json:"id"`
	Type   ActionType        `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// Param returns the named parameter or "".
func (a Action) Param(key string) string {
	return a.Params[key]
}
