package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RuleType selects the matching strategy of a rule. The set is closed.
type RuleType string

const (
	RuleTypeAI     RuleType = "AI"
	RuleTypeStatic RuleType = "STATIC"
	RuleTypeGroup  RuleType = "GROUP"
)

// Valid reports whether t is one of the known rule types.
func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeAI, RuleTypeStatic, RuleTypeGroup:
		return true
	}
	return false
}

// String renders the type for display.
func (t RuleType) String() string {
	switch t {
	case RuleTypeAI:
		return "AI"
	case RuleTypeStatic:
		return "Static"
	case RuleTypeGroup:
		return "Group"
	default:
		return string(t)
	}
}

// Rule classifies incoming email and carries the actions to run on a match.
//
// Only the condition fields of the rule's own type are populated:
// Instructions for AI, From/Subject/Body for STATIC, GroupID for GROUP.
type Rule struct {
	ID           string   `json:"id"`
	UserID       int      `json:"user_id"`
	Name         string   `json:"name"`
	Type         RuleType `json:"type"`
	Enabled      bool     `json:"enabled"`
	Automate     bool     `json:"automate"`
	RunOnThreads bool     `json:"run_on_threads"`

	Instructions string `json:"instructions,omitempty"`

	From    string `json:"from,omitempty"`
	Subject string `json:"subject,omitempty"`
	// Body is stored for STATIC rules but not used for matching.
	Body string `json:"body,omitempty"`

	GroupID string `json:"group_id,omitempty"`
	// GroupName is filled by the repository when the referenced group exists.
	GroupName string `json:"group_name,omitempty"`

	Actions   []Action  `json:"actions"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks that the populated condition fields agree with the type.
// It returns a description of the first inconsistency, or "" when valid.
func (r *Rule) Validate() string {
	switch r.Type {
	case RuleTypeAI:
		if strings.TrimSpace(r.Instructions) == "" {
			return "AI rule has no instructions"
		}
		if r.From != "" || r.Subject != "" || r.Body != "" || r.GroupID != "" {
			return "AI rule has static or group conditions"
		}
	case RuleTypeStatic:
		if r.Instructions != "" || r.GroupID != "" {
			return "STATIC rule has instructions or group conditions"
		}
	case RuleTypeGroup:
		if r.GroupID == "" {
			return "GROUP rule has no group reference"
		}
		if r.Instructions != "" || r.From != "" || r.Subject != "" || r.Body != "" {
			return "GROUP rule has instructions or static conditions"
		}
	default:
		return fmt.Sprintf("unknown rule type %q", r.Type)
	}
	return ""
}

// Condition renders the rule's matching condition for display.
func (r *Rule) Condition() string {
	switch r.Type {
	case RuleTypeAI:
		return r.Instructions
	case RuleTypeStatic:
		var parts []string
		if r.From != "" {
			parts = append(parts, "From: "+r.From)
		}
		if r.Subject != "" {
			parts = append(parts, "Subject: "+r.Subject)
		}
		return strings.Join(parts, " ")
	case RuleTypeGroup:
		name := r.GroupName
		if name == "" {
			name = "MISSING"
		}
		return "Group: " + name
	default:
		return ""
	}
}

// SortForDisplay orders enabled rules before disabled ones, keeping the
// relative order within each partition.
func SortForDisplay(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Enabled && !rules[j].Enabled
	})
}
