package service

import (
	"context"

	"go.uber.org/zap"

	"mailpilot/internal/draft"
	"mailpilot/internal/model"
	"mailpilot/internal/repository"
	"mailpilot/pkg/logger"
)

// DraftOutcome is the result of a knowledge-grounded draft attempt.
// Grounded is false when the user has no knowledge base, in which case the
// draft action runs as a plain action. When Grounded is true exactly one of
// Reply and Err is set.
type DraftOutcome struct {
	Grounded bool
	Reply    string
	Err      error
}

// KnowledgeDrafter gathers drafting context for an email and hands it to the
// composer.
type KnowledgeDrafter struct {
	knowledge KnowledgeSource
	threads   ThreadSource
	profiles  ProfileSource
	history   HistorySource
	composer  DraftComposer
	logger    *zap.Logger
}

func NewKnowledgeDrafter(
	knowledge KnowledgeSource,
	threads ThreadSource,
	profiles ProfileSource,
	history HistorySource,
	composer DraftComposer,
	logger *zap.Logger,
) *KnowledgeDrafter {
	return &KnowledgeDrafter{
		knowledge: knowledge,
		threads:   threads,
		profiles:  profiles,
		history:   history,
		composer:  composer,
		logger:    logger,
	}
}

// Draft writes a reply to email. The action's content parameter is passed
// as additional instructions.
func (d *KnowledgeDrafter) Draft(ctx context.Context, email model.Email, action model.Action) DraftOutcome {
	log := logger.WithTrace(ctx, d.logger).With(
		zap.Int("email_id", email.ID),
		zap.Int("user_id", email.UserID),
	)

	entries, err := d.knowledge.ListByUser(ctx, email.UserID)
	if err != nil {
		return DraftOutcome{Grounded: true, Err: err}
	}
	knowledge := repository.JoinKnowledge(entries)
	if knowledge == "" {
		return DraftOutcome{}
	}

	req, err := d.buildRequest(ctx, email, log)
	if err != nil {
		return DraftOutcome{Grounded: true, Err: err}
	}
	req.KnowledgeBaseContent = knowledge
	req.Instructions = action.Param(model.ParamContent)

	res := d.composer.Compose(ctx, req)
	if !res.OK() {
		return DraftOutcome{Grounded: true, Err: res.Err}
	}
	return DraftOutcome{Grounded: true, Reply: res.Reply}
}

func (d *KnowledgeDrafter) buildRequest(ctx context.Context, email model.Email, log *zap.Logger) (draft.Request, error) {
	profile, err := d.profiles.GetProfile(ctx, email.UserID)
	if err != nil {
		return draft.Request{}, err
	}

	var messages []model.ThreadMessage
	if email.ThreadID != "" {
		messages, err = d.threads.ListThread(ctx, email.UserID, email.ThreadID)
		if err != nil {
			return draft.Request{}, err
		}
	}
	if len(messages) == 0 {
		messages = []model.ThreadMessage{{
			From:    email.From,
			To:      email.To,
			Subject: email.Subject,
			Body:    email.Body,
			Date:    email.Date,
		}}
	}

	// The summary is a cache; drafting goes ahead without it.
	var summary string
	if d.history != nil {
		summary, err = d.history.Summary(ctx, email)
		if err != nil {
			log.Warn("Failed to load history summary", zap.Error(err))
			summary = ""
		}
	}

	return draft.Request{
		Messages:            messages,
		User:                profile,
		EmailHistorySummary: summary,
	}, nil
}
