package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailpilot/internal/apperr"
	"mailpilot/internal/gate"
	"mailpilot/internal/matcher"
	"mailpilot/internal/model"
)

func TestNewCLIApp_Commands(t *testing.T) {
	a := newCLIApp()

	var names []string
	for _, c := range a.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"serve-api", "worker", "rules", "match", "draft"}, names)

	rules := a.Command("rules")
	require.NotNil(t, rules)
	var subs []string
	for _, c := range rules.Subcommands {
		subs = append(subs, c.Name)
	}
	assert.Equal(t, []string{"list", "automate", "run-on-threads", "delete"}, subs)
}

func TestRulesToggle_RejectsBadArgsBeforeConnecting(t *testing.T) {
	a := newCLIApp()
	a.Writer = &bytes.Buffer{}
	a.ErrWriter = &bytes.Buffer{}

	err := a.Run([]string{"mailpilot", "rules", "automate", "--user", "1", "r1", "maybe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid value "maybe"`)
}

func TestParseToggleArgs(t *testing.T) {
	id, v, err := parseToggleArgs([]string{"r1", "true"})
	require.NoError(t, err)
	assert.Equal(t, "r1", id)
	assert.True(t, v)

	_, _, err = parseToggleArgs([]string{"r1"})
	assert.Error(t, err)
}

func TestReadEmail(t *testing.T) {
	stdin := strings.NewReader(`{"id": 3, "from": "boss@co.com", "subject": "Q3"}`)
	email, err := readEmail("-", stdin, 9)
	require.NoError(t, err)
	assert.Equal(t, 3, email.ID)
	assert.Equal(t, 9, email.UserID)
	assert.Equal(t, "Q3", email.Subject)

	path := filepath.Join(t.TempDir(), "email.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"from": "a@b.com", "user_id": 1}`), 0o600))
	email, err = readEmail(path, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, email.UserID, "user flag wins over the file")

	_, err = readEmail("-", strings.NewReader(`{"subject": "no sender"}`), 1)
	assert.Error(t, err)

	_, err = readEmail("-", strings.NewReader(`not json`), 1)
	assert.Error(t, err)
}

func TestNewMatchReport(t *testing.T) {
	warn := apperr.NewDataIntegrity("r0", "referenced group g1 not found")

	report := newMatchReport(matcher.Result{Warnings: []*apperr.Error{warn}})
	assert.False(t, report.Matched)
	assert.Empty(t, report.Decision)
	assert.Equal(t, []string{warn.Error()}, report.Warnings)

	rule := &model.Rule{
		ID:       "r1",
		Name:     "Boss",
		Type:     model.RuleTypeStatic,
		From:     "boss@co.com",
		Automate: false,
		Actions:  []model.Action{{Type: model.ActionLabel}, {Type: model.ActionArchive}},
	}
	report = newMatchReport(matcher.Result{Rule: rule, Reason: "static: From: boss@co.com"})
	assert.True(t, report.Matched)
	assert.Equal(t, gate.QueueForApproval, report.Decision)
	assert.Equal(t, []string{"LABEL", "ARCHIVE"}, report.Actions)
}

func TestRuleRowsAndOutput(t *testing.T) {
	rows := ruleRows([]model.Rule{{ID: "r1", Name: "AI", Type: model.RuleTypeAI, Instructions: "newsletters", Enabled: true}})

	var buf bytes.Buffer
	require.NoError(t, outputJSON(&buf, rows))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "newsletters", decoded[0]["condition"])
	assert.Equal(t, "AI", decoded[0]["type"])
}
