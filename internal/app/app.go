package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/audit"
	"github.com/ternarybob/printflow/internal/common"
	"github.com/ternarybob/printflow/internal/handlers"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
	"github.com/ternarybob/printflow/internal/notify"
	"github.com/ternarybob/printflow/internal/queue"
	storage "github.com/ternarybob/printflow/internal/storage/badger"
	"github.com/ternarybob/printflow/internal/worker"
	"github.com/ternarybob/printflow/internal/workflow"
)

// App holds all application components and dependencies. Everything is wired
// here, in dependency order, and nowhere else; no component reaches for
// module-level state.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager *storage.Manager
	QueueManager   interfaces.QueueManager
	Hub            *handlers.WebSocketHub
	Mailer         *notify.Mailer
	Dispatcher     *notify.Dispatcher
	AuditService   *audit.Service
	Factory        *workflow.Factory
	Orchestrator   *workflow.Orchestrator
	Processor      *worker.Processor

	cron *cron.Cron
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Storage layer (Badger)
	storageManager, err := storage.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager
	logger.Debug().
		Str("storage", "badger").
		Str("path", cfg.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// Queue manager shares the storage manager's Badger instance
	queueMgr, err := queue.NewBadgerManager(
		storageManager.DB().Badger(),
		cfg.Queue.QueueName,
		cfg.Queue.ParseVisibilityTimeout(),
		cfg.Queue.MaxAttempts,
		cfg.Queue.ParseRetryBaseDelay(),
	)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize queue manager: %w", err)
	}
	app.QueueManager = queueMgr
	logger.Debug().Str("queue_name", cfg.Queue.QueueName).Msg("Queue manager initialized")

	// WebSocket hub is optional; the dispatcher degrades to email-only
	// notifications when it is disabled.
	if cfg.WebSocket.Enabled {
		app.Hub = handlers.NewWebSocketHub(&cfg.WebSocket, logger)
	}

	// Notification dispatch (SMTP + realtime)
	app.Mailer = notify.NewMailer(cfg.Notifications, logger)
	if !app.Mailer.IsConfigured() {
		logger.Warn().Msg("SMTP not configured - email notifications will be skipped")
	}
	var realtime interfaces.RealtimePublisher
	if app.Hub != nil {
		realtime = app.Hub
	}
	app.Dispatcher = notify.NewDispatcher(app.Mailer, realtime, cfg.Notifications, logger)

	// Workflow services
	app.AuditService = audit.NewService(storageManager.AuditStorage(), logger)
	app.Factory = workflow.NewFactory(
		storageManager.OrderStorage(),
		storageManager.JobStorage(),
		app.AuditService,
		cfg.Workflow.JobDueOffset(),
		logger,
	)
	app.Orchestrator = workflow.NewOrchestrator(storageManager, app.Factory, app.AuditService, app.Dispatcher, logger)

	// Queue processor with one worker per message type
	app.Processor = worker.NewProcessor(queueMgr, cfg.Queue.ParsePollInterval(), cfg.Queue.Concurrency, logger)
	app.Processor.RegisterWorker(worker.NewQuoteApprovalWorker(app.Orchestrator, logger))
	app.Processor.RegisterWorker(worker.NewCreateOrderWorker(storageManager.QuoteStorage(), app.Factory, logger))
	app.Processor.RegisterWorker(worker.NewCreateJobWorker(storageManager.OrderStorage(), storageManager.QuoteStorage(), app.Factory, logger))
	app.Processor.RegisterWorker(worker.NewNotificationWorker(app.Dispatcher, logger))

	if app.Hub != nil {
		app.Processor.AddObserver(app.broadcastQueueStats)
	}

	// Maintenance sweep for stalled and failed messages
	app.cron = cron.New()
	if _, err := app.cron.AddFunc(cfg.Queue.SweepSchedule, app.sweepQueue); err != nil {
		logger.Warn().
			Err(err).
			Str("schedule", cfg.Queue.SweepSchedule).
			Msg("Invalid sweep schedule - maintenance sweep disabled")
	}

	logger.Info().
		Int("concurrency", cfg.Queue.Concurrency).
		Bool("websocket_enabled", cfg.WebSocket.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// Start launches the queue processor and the maintenance sweep. The HTTP
// surface hosting the WebSocket endpoint is started separately by the server
// package.
func (a *App) Start() error {
	a.cron.Start()
	a.Processor.Start()
	return nil
}

// Stop shuts the application down in reverse dependency order. In-flight
// messages finish or lapse back onto the queue via the visibility timeout.
func (a *App) Stop() error {
	a.Processor.Stop()

	cronCtx := a.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(5 * time.Second):
		a.Logger.Warn().Msg("Maintenance sweep did not finish within shutdown window")
	}

	if a.Hub != nil {
		a.Hub.Close()
	}

	if err := a.QueueManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close queue manager")
	}
	if err := a.StorageManager.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}

	a.Logger.Info().Msg("Application stopped")
	return nil
}

// ApproveQuote enqueues the approval workflow for a quote. This is the
// external trigger surface; processing happens asynchronously on the queue.
func (a *App) ApproveQuote(ctx context.Context, quoteID, approvalToken string) (string, error) {
	msg, err := models.NewQueueMessage(models.MessageTypeQuoteApproved, models.QuoteApprovedPayload{
		QuoteID:       quoteID,
		ApprovalToken: approvalToken,
	})
	if err != nil {
		return "", err
	}

	if err := a.QueueManager.Enqueue(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to enqueue quote approval: %w", err)
	}

	a.Logger.Info().
		Str("quote_id", quoteID).
		Str("message_id", msg.ID).
		Msg("Quote approval enqueued")

	return msg.ID, nil
}

// Enqueue submits a prebuilt message, for embedding callers that drive the
// create_order / create_job / send_notification types directly.
func (a *App) Enqueue(ctx context.Context, msg *models.QueueMessage) error {
	return a.QueueManager.Enqueue(ctx, msg)
}

// QueueStats reports current queue counts
func (a *App) QueueStats(ctx context.Context) (*models.QueueStats, error) {
	return a.QueueManager.Stats(ctx)
}

// WorkflowStatus reports the quote -> order -> job progression for a quote
func (a *App) WorkflowStatus(ctx context.Context, quoteID string) (*models.WorkflowStatus, error) {
	return a.Orchestrator.GetWorkflowStatus(ctx, quoteID)
}

// broadcastQueueStats pushes fresh queue counts to dashboard subscribers after
// every processed message. Broadcast runs off the worker goroutine; the hub
// throttles the queue_stats event itself.
func (a *App) broadcastQueueStats(event worker.Event) {
	common.SafeGo(a.Logger, "queue-stats-broadcast", func() {
		stats, err := a.QueueManager.Stats(context.Background())
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to read queue stats for broadcast")
			return
		}
		if err := a.Hub.Publish(notify.ProductionTeamRoom, "queue_stats", stats); err != nil {
			a.Logger.Debug().Err(err).Msg("Queue stats broadcast failed")
		}
	})
}

// sweepQueue surfaces stalled messages and the failed backlog. Redelivery of
// lapsed messages is the queue's own behavior; the sweep is observability.
func (a *App) sweepQueue() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stalled, err := a.QueueManager.Stalled(ctx, a.Config.Queue.ParseVisibilityTimeout())
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Stalled message sweep failed")
	} else if len(stalled) > 0 {
		a.Processor.ReportStalled(stalled)
	}

	stats, err := a.QueueManager.Stats(ctx)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to read queue stats during sweep")
		return
	}
	if stats.Failed > 0 {
		a.Logger.Warn().
			Int("failed", stats.Failed).
			Msg("Failed messages retained in queue - manual inspection needed")
	}
}
