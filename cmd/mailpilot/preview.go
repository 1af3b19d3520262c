package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"mailpilot/internal/app"
	"mailpilot/internal/gate"
	"mailpilot/internal/llm"
	"mailpilot/internal/matcher"
	"mailpilot/internal/model"
	"mailpilot/pkg/db"
)

type ruleRow struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Condition    string `json:"condition"`
	Enabled      bool   `json:"enabled"`
	Automate     bool   `json:"automate"`
	RunOnThreads bool   `json:"run_on_threads"`
	Actions      int    `json:"actions"`
}

func ruleRows(rules []model.Rule) []ruleRow {
	rows := make([]ruleRow, len(rules))
	for i := range rules {
		r := &rules[i]
		rows[i] = ruleRow{
			ID:           r.ID,
			Name:         r.Name,
			Type:         r.Type.String(),
			Condition:    r.Condition(),
			Enabled:      r.Enabled,
			Automate:     r.Automate,
			RunOnThreads: r.RunOnThreads,
			Actions:      len(r.Actions),
		}
	}
	return rows
}

// matchReport is the dry-run outcome of matching one email.
type matchReport struct {
	Matched  bool          `json:"matched"`
	RuleID   string        `json:"rule_id,omitempty"`
	RuleName string        `json:"rule_name,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Decision gate.Decision `json:"decision,omitempty"`
	Actions  []string      `json:"actions,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
}

func newMatchReport(res matcher.Result) matchReport {
	report := matchReport{}
	for _, w := range res.Warnings {
		report.Warnings = append(report.Warnings, w.Error())
	}
	if res.Rule == nil {
		return report
	}

	report.Matched = true
	report.RuleID = res.Rule.ID
	report.RuleName = res.Rule.Name
	report.Reason = res.Reason
	report.Decision = gate.Decide(*res.Rule)
	for _, a := range res.Rule.Actions {
		report.Actions = append(report.Actions, string(a.Type))
	}
	return report
}

func emailFileFlag() cli.Flag {
	return &cli.StringFlag{Name: "file", Aliases: []string{"f"}, Value: "-", Usage: "Email JSON file, - for stdin"}
}

// readEmail decodes an email from path, or from stdin when path is "-".
func readEmail(path string, stdin io.Reader, userID int) (model.Email, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return model.Email{}, err
		}
		defer f.Close()
		r = f
	}

	var email model.Email
	if err := json.NewDecoder(r).Decode(&email); err != nil {
		return model.Email{}, fmt.Errorf("decode email: %w", err)
	}
	if email.From == "" {
		return model.Email{}, fmt.Errorf("email has no from address")
	}
	email.UserID = userID
	return email, nil
}

func matchCmd() *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Show which rule an email would match and the gate decision, without executing anything",
		Flags: []cli.Flag{userFlag(), emailFileFlag()},
		Action: func(c *cli.Context) error {
			userID := c.Int("user")
			email, err := readEmail(c.String("file"), c.App.Reader, userID)
			if err != nil {
				return err
			}

			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			defer log.Sync()

			pool, err := db.NewConnection(cfg.DB, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			m, rules := app.NewMatcher(pool, llm.NewClient(cfg.Agent, log), log)
			enabled, err := rules.ListEnabledRules(c.Context, userID)
			if err != nil {
				return err
			}
			res, err := m.Match(c.Context, email, enabled)
			if err != nil {
				return err
			}
			return outputJSON(c.App.Writer, newMatchReport(res))
		},
	}
}

func draftCmd() *cli.Command {
	return &cli.Command{
		Name:  "draft",
		Usage: "Preview a knowledge-grounded reply to an email",
		Flags: []cli.Flag{
			userFlag(),
			emailFileFlag(),
			&cli.StringFlag{Name: "instructions", Aliases: []string{"i"}, Usage: "Extra drafting instructions"},
		},
		Action: func(c *cli.Context) error {
			email, err := readEmail(c.String("file"), c.App.Reader, c.Int("user"))
			if err != nil {
				return err
			}

			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			defer log.Sync()

			infra, err := app.OpenInfra(cfg, log)
			if err != nil {
				return err
			}
			defer infra.Close()

			engine := app.NewEngine(cfg, infra, log)
			out := engine.Drafter.Draft(c.Context, email, model.Action{
				Type:   model.ActionDraftEmail,
				Params: map[string]string{model.ParamContent: c.String("instructions")},
			})
			switch {
			case !out.Grounded:
				return fmt.Errorf("user %d has no knowledge base entries", email.UserID)
			case out.Err != nil:
				return out.Err
			}
			_, err = fmt.Fprintln(c.App.Writer, out.Reply)
			return err
		},
	}
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
