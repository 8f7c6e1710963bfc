package main

import (
	"context"
	"net/http"
	"os"

	"github.com/dealdesk/dealdesk/pkg/cmd"
	"github.com/dealdesk/dealdesk/pkg/crm"
	"github.com/dealdesk/dealdesk/pkg/engine"
	"github.com/dealdesk/dealdesk/pkg/log"
	"github.com/dealdesk/dealdesk/pkg/notify"
	"github.com/dealdesk/dealdesk/pkg/protocol"
	"github.com/dealdesk/dealdesk/pkg/tasks"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "dealdesk-worker",
		EnableShellCompletion: true,
		Usage:                 "Start the worker that executes automation runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "crm-url",
				Usage:    "Base URL of the CRM API (directory, entitlements, tasks)",
				Required: true,
				Sources:  cli.EnvVars("CRM_URL"),
			},
			&cli.StringFlag{
				Name:    "gateway-url",
				Usage:   "Base URL of the delivery gateway (empty logs deliveries instead)",
				Value:   "",
				Sources: cli.EnvVars("GATEWAY_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the task dedupe window (empty uses in-process dedupe)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("dealdesk-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Dealdesk worker")

			eventBus := cmd.NewEventBus(command.String("event-bus"), "worker", logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			crmClient := crm.NewClient(command.String("crm-url"), http.DefaultClient)

			var (
				sms   protocol.SMSSender
				email protocol.EmailSender
			)

			if gatewayURL := command.String("gateway-url"); gatewayURL != "" {
				sender := notify.NewWebhookSender(gatewayURL, http.DefaultClient)
				sms, email = sender, sender
			} else {
				sms = notify.NewLogSMSSender(logger)
				email = notify.NewLogEmailSender(logger)
			}

			var dedupe tasks.DedupeIndex

			if redisAddr := command.String("redis-addr"); redisAddr != "" {
				redisDedupe, err := tasks.NewRedisDedupeIndex(ctx, redisAddr, "", 0)
				if err != nil {
					return err
				}

				defer func() {
					if err := redisDedupe.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close Redis dedupe index", "error", err)
					}
				}()

				dedupe = redisDedupe
			} else {
				dedupe = tasks.NewMemoryDedupeIndex()
			}

			taskService := tasks.NewService(dedupe, crmClient, logger)

			executor := engine.NewExecutor(persistence, crmClient, crmClient, sms, email, taskService, logger)
			dispatcher := engine.NewDispatcher(persistence, crmClient, crmClient, executor, logger)

			worker := NewWorkerManager(workerID, dispatcher, eventBus, logger)

			err := worker.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
