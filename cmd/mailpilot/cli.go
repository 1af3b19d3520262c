package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"mailpilot/internal/app"
	"mailpilot/internal/config"
	"mailpilot/internal/model"
	"mailpilot/internal/repository"
	"mailpilot/pkg/db"
	"mailpilot/pkg/logger"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	a := &cli.App{
		Name:  "mailpilot",
		Usage: "Email rule engine",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", EnvVars: []string{"CONFIG_ENV"}, Usage: "Config environment (base.yaml + <env>.yaml)"},
			&cli.StringFlag{Name: "config-dir", Value: "config", Usage: "Directory holding the YAML config"},
		},
		Commands: []*cli.Command{
			serveAPICmd(),
			workerCmd(),
			rulesCmd(),
			matchCmd(),
			draftCmd(),
		},
	}
	// Disable the default exit handler so errors are returned to main and tests
	a.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return a
}

// setup loads the config and builds the logger for a command.
func setup(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.String("env"), c.String("config-dir"))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger.NewLoggerWithLevel(cfg.Log.Level), nil
}

func serveAPICmd() *cli.Command {
	return &cli.Command{
		Name:  "serve-api",
		Usage: "Serve the admin HTTP API",
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			defer log.Sync()
			return app.RunAPI(c.Context, cfg, log)
		},
	}
}

func workerCmd() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Consume incoming emails and run them through the rules",
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c)
			if err != nil {
				return err
			}
			defer log.Sync()
			return app.RunWorker(c.Context, cfg, log)
		},
	}
}

func userFlag() cli.Flag {
	return &cli.IntFlag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "User id"}
}

// withRules opens a database pool for the duration of fn.
func withRules(c *cli.Context, fn func(*repository.RuleRepository) error) error {
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

	return fn(repository.NewRuleRepository(pool, log))
}

type toggleFunc func(ctx context.Context, userID int, ruleID string, value bool) error

func rulesCmd() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "Inspect and change a user's rules",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List rules, enabled first",
				Flags: []cli.Flag{userFlag()},
				Action: func(c *cli.Context) error {
					return withRules(c, func(rules *repository.RuleRepository) error {
						list, err := rules.ListRules(c.Context, c.Int("user"))
						if err != nil {
							return err
						}
						model.SortForDisplay(list)
						return outputJSON(c.App.Writer, ruleRows(list))
					})
				},
			},
			toggleCmd("automate", "Set whether matched actions run without approval",
				func(r *repository.RuleRepository) toggleFunc { return r.SetAutomate }),
			toggleCmd("run-on-threads", "Set whether the rule applies to thread follow-ups",
				func(r *repository.RuleRepository) toggleFunc { return r.SetRunOnThreads }),
			{
				Name:      "delete",
				Usage:     "Delete a rule",
				ArgsUsage: "<rule-id>",
				Flags:     []cli.Flag{userFlag()},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected <rule-id>")
					}
					return withRules(c, func(rules *repository.RuleRepository) error {
						return rules.Delete(c.Context, c.Int("user"), c.Args().First())
					})
				},
			},
		},
	}
}

func toggleCmd(name, usage string, pick func(*repository.RuleRepository) toggleFunc) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<rule-id> <true|false>",
		Flags:     []cli.Flag{userFlag()},
		Action: func(c *cli.Context) error {
			ruleID, value, err := parseToggleArgs(c.Args().Slice())
			if err != nil {
				return err
			}
			return withRules(c, func(rules *repository.RuleRepository) error {
				if err := pick(rules)(c.Context, c.Int("user"), ruleID, value); err != nil {
					return err
				}
				return outputJSON(c.App.Writer, map[string]any{"id": ruleID, name: value})
			})
		},
	}
}

func parseToggleArgs(args []string) (string, bool, error) {
	if len(args) != 2 {
		return "", false, fmt.Errorf("expected <rule-id> <true|false>")
	}
	value, err := strconv.ParseBool(args[1])
	if err != nil {
		return "", false, fmt.Errorf("invalid value %q: %w", args[1], err)
	}
	return args[0], value, nil
}
