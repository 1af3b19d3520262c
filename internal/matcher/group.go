package matcher

import (
	"context"
	"fmt"
	"strings"

	"mailpilot/internal/apperr"
	"mailpilot/internal/model"
)

func (m *Matcher) matchGroup(ctx context.Context, rule *model.Rule, email model.Email) outcome {
	if m.groups == nil {
		return outcome{warning: apperr.NewMatchEvaluation(rule.ID, fmt.Errorf("no group resolver configured"))}
	}

	group, err := m.groups.ResolveGroup(ctx, rule.GroupID)
	if err != nil {
		return outcome{warning: apperr.NewMatchEvaluation(rule.ID, fmt.Errorf("resolve group %s: %w", rule.GroupID, err))}
	}
	// A group owned by another user is treated as missing.
	if group == nil || group.UserID != rule.UserID {
		return outcome{warning: apperr.NewDataIntegrity(rule.ID, fmt.Sprintf("referenced group %s not found", rule.GroupID))}
	}

	for _, item := range group.Items {
		if groupItemMatches(item, email) {
			return outcome{
				matched: true,
				reason:  fmt.Sprintf("group %s: %s %s", group.Name, item.Type, item.Value),
			}
		}
	}
	return outcome{}
}

func groupItemMatches(item model.GroupItem, email model.Email) bool {
	value := strings.TrimSpace(item.Value)
	if value == "" {
		return false
	}
	switch item.Type {
	case model.GroupItemFrom:
		return matchPattern(value, email.From)
	case model.GroupItemSubject:
		return matchPattern(value, email.Subject)
	case model.GroupItemBody:
		return matchPattern(value, email.Body)
	default:
		return false
	}
}
