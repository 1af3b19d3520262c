// Package app wires configuration, infrastructure and services into the
// processes started by the binaries in cmd/.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mailpilot/internal/config"
	"mailpilot/internal/draft"
	"mailpilot/internal/llm"
	"mailpilot/internal/matcher"
	"mailpilot/internal/repository"
	"mailpilot/internal/service"
	"mailpilot/pkg/db"
	"mailpilot/pkg/mq"
	"mailpilot/pkg/outbox"
	redisclient "mailpilot/pkg/redis"
	"mailpilot/pkg/util"
)

// Infra holds the connections shared by every component.
type Infra struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Publisher *mq.Publisher
}

// OpenInfra connects to postgres, redis and rabbitmq. On error everything
// opened so far is closed again.
func OpenInfra(cfg *config.Config, logger *zap.Logger) (*Infra, error) {
	pool, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		_ = rdb.Close()
		pool.Close()
		return nil, fmt.Errorf("mq: %w", err)
	}

	logger.Info("Infrastructure ready")
	return &Infra{DB: pool, Redis: rdb, Publisher: publisher}, nil
}

// Ping reports whether postgres and the broker connection are usable.
func (i *Infra) Ping(ctx context.Context) error {
	if err := i.DB.Ping(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if !i.Publisher.IsConnected() {
		return errors.New("mq: connection closed")
	}
	return nil
}

func (i *Infra) Close() {
	i.Publisher.Close()
	_ = i.Redis.Close()
	i.DB.Close()
}

// NewMatcher builds the rule matcher and the repository its rules come from.
func NewMatcher(pool *pgxpool.Pool, generator llm.Generator, logger *zap.Logger) (*matcher.Matcher, *repository.RuleRepository) {
	m := matcher.New(repository.NewGroupRepository(pool), generator, logger.Named("matcher"))
	return m, repository.NewRuleRepository(pool, logger.Named("rules"))
}

// Engine is the assembled rule engine with its persistence.
type Engine struct {
	Rules      *repository.RuleRepository
	Emails     *repository.EmailRepository
	Outbox     *outbox.Repository
	Matcher    *matcher.Matcher
	Composer   *draft.Composer
	Drafter    *service.KnowledgeDrafter
	Executor   *service.Executor
	Queue      *service.ApprovalQueue
	Approvals  *service.ApprovalService
	Processor  *service.Processor
	Ingest     *service.IngestService
	RetryCount *util.RetryCounter
}

// NewEngine builds every service on top of infra.
func NewEngine(cfg *config.Config, infra *Infra, logger *zap.Logger) *Engine {
	tx := repository.NewTxManager(infra.DB)
	emails := repository.NewEmailRepository(infra.DB)
	users := repository.NewUserRepository(infra.DB)
	knowledge := repository.NewKnowledgeRepository(infra.DB)
	approvalRepo := repository.NewApprovalRepository(infra.DB)
	executions := repository.NewExecutionRepository()
	outboxRepo := outbox.NewRepository(infra.DB)

	generator := llm.NewClient(cfg.Agent, logger.Named("llm"))
	m, rules := NewMatcher(infra.DB, generator, logger)
	composer := draft.NewComposer(generator, logger.Named("draft"),
		draft.WithMaxMessageChars(cfg.Draft.MaxMessageChars),
	)

	history := service.NewHistoryResolver(
		repository.NewHistoryStore(infra.Redis, cfg.History.TTL),
		emails,
		draft.NewHistorySummarizer(generator, logger.Named("history"), cfg.Draft.MaxMessageChars),
		cfg.History.MaxEmails,
		logger.Named("history"),
	)
	drafter := service.NewKnowledgeDrafter(knowledge, emails, users, history, composer, logger.Named("drafter"))
	queue := service.NewApprovalQueue(tx, approvalRepo, executions, outboxRepo, logger.Named("approvals"))
	executor := service.NewExecutor(tx, executions, outboxRepo, queue, drafter, logger.Named("executor"))
	deduper := util.NewDeduperWithLogger(infra.Redis, cfg.Dedup.TTL, logger)

	return &Engine{
		Rules:      rules,
		Emails:     emails,
		Outbox:     outboxRepo,
		Matcher:    m,
		Composer:   composer,
		Drafter:    drafter,
		Executor:   executor,
		Queue:      queue,
		Approvals:  service.NewApprovalService(tx, approvalRepo, executions, executor, logger.Named("approvals")),
		Processor:  service.NewProcessor(rules, m, executor, queue, deduper, logger.Named("processor")),
		Ingest:     service.NewIngestService(emails, infra.Publisher),
		RetryCount: util.NewRetryCounter(infra.Redis, cfg.Worker.RetryTTL),
	}
}
