package app

import (
	"context"

	"go.uber.org/zap"

	"mailpilot/internal/config"
	"mailpilot/internal/handler"
	"mailpilot/internal/httpserver"
	"mailpilot/pkg/outbox"
)

// RunAPI serves the admin HTTP API until ctx is done.
func RunAPI(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	infra, err := OpenInfra(cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	engine := NewEngine(cfg, infra, logger)
	replay := outbox.NewReplayService(engine.Outbox, infra.Publisher, logger.Named("replay"))

	router := httpserver.NewRouter(httpserver.Handlers{
		Rules:     handler.NewRuleHandler(engine.Rules, logger),
		Approvals: handler.NewApprovalHandler(engine.Approvals, logger),
		Drafts:    handler.NewDraftHandler(engine.Drafter),
		Emails:    handler.NewEmailHandler(engine.Ingest, logger),
		Admin:     handler.NewAdminHandler(replay, logger),
	}, cfg.JWT.Secret, infra)

	return httpserver.Serve(ctx, cfg.Server.Port, router.Engine, logger)
}
