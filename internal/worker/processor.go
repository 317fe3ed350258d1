package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/interfaces"
	"github.com/ternarybob/printflow/internal/models"
)

// Worker handles one message type
type Worker interface {
	Type() models.MessageType
	Handle(ctx context.Context, msg *models.QueueMessage) (*models.Result, error)
}

// EventKind classifies processor lifecycle events
type EventKind string

const (
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
	EventStalled   EventKind = "stalled"
)

// Event is delivered to lifecycle observers. Observers are for logging and
// monitoring only; they cannot alter queue behavior.
type Event struct {
	Kind      EventKind
	MessageID string
	Type      models.MessageType
	Attempts  int
	Result    *models.Result
	Err       string
}

// Observer receives processor lifecycle events
type Observer func(Event)

// Processor pulls messages off the queue and routes each to the worker
// registered for its type, normalizing error handling and result logging
// across all message types.
type Processor struct {
	queueMgr     interfaces.QueueManager
	workers      map[models.MessageType]Worker
	observers    []Observer
	logger       arbor.ILogger
	pollInterval time.Duration
	concurrency  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	running      bool
	mu           sync.Mutex
}

// NewProcessor creates a processor with the given worker pool size
func NewProcessor(queueMgr interfaces.QueueManager, pollInterval time.Duration, concurrency int, logger arbor.ILogger) *Processor {
	if pollInterval <= 0 {
		pollInterval = 1 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		queueMgr:     queueMgr,
		workers:      make(map[models.MessageType]Worker),
		logger:       logger,
		pollInterval: pollInterval,
		concurrency:  concurrency,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// RegisterWorker registers a worker for its message type
func (p *Processor) RegisterWorker(worker Worker) {
	p.workers[worker.Type()] = worker
	p.logger.Info().
		Str("message_type", string(worker.Type())).
		Msg("Worker registered")
}

// AddObserver registers a lifecycle observer for completed/failed/stalled
// events. Must be called before Start.
func (p *Processor) AddObserver(observer Observer) {
	p.observers = append(p.observers, observer)
}

// Start launches the worker goroutines.
// This should be called AFTER all services are fully initialized.
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		p.logger.Warn().Msg("Processor already running")
		return
	}
	p.running = true

	p.logger.Info().Int("concurrency", p.concurrency).Msg("Starting queue processor")

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.loop()
	}
}

// Stop stops the processor gracefully
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info().Msg("Stopping queue processor...")
	p.cancel()
	p.wg.Wait()
	p.logger.Info().Msg("Queue processor stopped")
}

func (p *Processor) loop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
			if !p.ProcessNext(p.ctx) {
				select {
				case <-p.ctx.Done():
					return
				case <-time.After(p.pollInterval):
				}
			}
		}
	}
}

// ProcessNext claims and processes one message. Returns false when the queue
// had nothing ready. Exposed for deterministic draining in tests and tools.
func (p *Processor) ProcessNext(ctx context.Context) bool {
	msg, err := p.queueMgr.Receive(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrNoMessage) && !errors.Is(err, context.Canceled) {
			p.logger.Error().Err(err).Msg("Failed to receive from queue")
		}
		return false
	}

	p.logger.Info().
		Str("message_id", msg.ID).
		Str("message_type", string(msg.Type)).
		Int("attempt", msg.Attempts).
		Msg("Processing message from queue")

	worker, ok := p.workers[msg.Type]
	if !ok {
		// An unrecognized business event is a processing error, never a
		// silent no-op: fail it into the retry/exhaustion path.
		p.fail(ctx, msg, fmt.Sprintf("no worker registered for message type: %s", msg.Type))
		return true
	}

	result, err := worker.Handle(ctx, msg)
	if err != nil {
		p.fail(ctx, msg, err.Error())
		return true
	}

	if err := p.queueMgr.Ack(ctx, msg.ID); err != nil {
		p.logger.Error().
			Err(err).
			Str("message_id", msg.ID).
			Msg("Failed to ack completed message")
		return true
	}

	p.logger.Info().
		Str("message_id", msg.ID).
		Str("message_type", string(msg.Type)).
		Msg("Message processed successfully")

	p.notify(Event{
		Kind:      EventCompleted,
		MessageID: msg.ID,
		Type:      msg.Type,
		Attempts:  msg.Attempts,
		Result:    result,
	})
	return true
}

// fail logs the failure with message context, hands the message back to the
// queue's retry mechanism and emits a failed event once retries exhaust.
func (p *Processor) fail(ctx context.Context, msg *models.QueueMessage, reason string) {
	p.logger.Error().
		Str("message_id", msg.ID).
		Str("message_type", string(msg.Type)).
		Int("attempt", msg.Attempts).
		Str("reason", reason).
		Msg("Message processing failed")

	if err := p.queueMgr.Nack(ctx, msg.ID, reason); err != nil {
		p.logger.Error().
			Err(err).
			Str("message_id", msg.ID).
			Msg("Failed to nack message")
		return
	}

	if msg.Attempts >= msg.MaxAttempts {
		p.notify(Event{
			Kind:      EventFailed,
			MessageID: msg.ID,
			Type:      msg.Type,
			Attempts:  msg.Attempts,
			Err:       reason,
		})
	}
}

// ReportStalled emits stalled events for messages found by the maintenance
// sweep. Observability only; redelivery is the queue's own concern.
func (p *Processor) ReportStalled(msgs []models.QueueMessage) {
	for _, msg := range msgs {
		p.logger.Warn().
			Str("message_id", msg.ID).
			Str("message_type", string(msg.Type)).
			Int("attempt", msg.Attempts).
			Msg("Stalled message detected")

		p.notify(Event{
			Kind:      EventStalled,
			MessageID: msg.ID,
			Type:      msg.Type,
			Attempts:  msg.Attempts,
		})
	}
}

func (p *Processor) notify(event Event) {
	for _, observer := range p.observers {
		observer(event)
	}
}
