package dialog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/medprev-labs/medy-bot/internal/observability/metrics"
	"github.com/medprev-labs/medy-bot/pkg/logging"
)

// ChannelAdapter delivers one outbound activity to the messaging channel and
// returns the provider message id when the channel reports one.
type ChannelAdapter interface {
	Send(ctx context.Context, ref ConversationRef, activity OutboundActivity) (string, error)
}

// TranscriptRecorder persists conversation history for the admin portal. All
// methods are best effort from the worker's point of view.
type TranscriptRecorder interface {
	RecordInbound(ctx context.Context, input TurnInput) error
	RecordOutbound(ctx context.Context, conversationID string, activity OutboundActivity) error
}

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	transcript       TranscriptRecorder
	metrics          *metrics.DialogMetrics
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the SQS long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithTranscriptRecorder wires persistent conversation history.
func WithTranscriptRecorder(recorder TranscriptRecorder) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.transcript = recorder
	}
}

// WithWorkerMetrics attaches dialog metrics to the worker.
func WithWorkerMetrics(m *metrics.DialogMetrics) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.metrics = m
	}
}

// Worker consumes turns from the queue, runs them through the engine, and
// delivers the resulting activities over the channel adapter.
type Worker struct {
	engine     *Engine
	queue      turnQueue
	adapter    ChannelAdapter
	transcript TranscriptRecorder
	metrics    *metrics.DialogMetrics
	logger     *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

// NewWorker constructs a queue consumer around the provided engine.
func NewWorker(engine *Engine, queue turnQueue, adapter ChannelAdapter, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if engine == nil {
		panic("dialog: engine cannot be nil")
	}
	if queue == nil {
		panic("dialog: queue cannot be nil")
	}
	if adapter == nil {
		panic("dialog: channel adapter cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		engine:     engine,
		queue:      queue,
		adapter:    adapter,
		transcript: cfg.transcript,
		metrics:    cfg.metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("dialog worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("dialog worker stopping", "worker_id", workerID)
			return
		default:
		}

		turns, err := w.queue.ReceiveTurns(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive turns", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, qt := range turns {
			w.handleTurn(ctx, qt)
		}
	}
}

func (w *Worker) handleTurn(ctx context.Context, qt queuedTurn) {
	w.recordInbound(ctx, qt.Payload.Input)

	activities, err := w.engine.HandleTurn(ctx, qt.Payload.Input)
	if err != nil {
		w.logger.Error("turn failed",
			"error", err,
			"job_id", qt.Payload.ID,
			"conversation_id", qt.Payload.Input.ConversationID,
		)
		// Leave store failures on the queue: the turn left no trace, so a
		// redelivery replays it cleanly once storage recovers.
		if errors.Is(err, ErrStoreUnavailable) {
			return
		}
		w.notifyFailure(ctx, qt.Payload.Input)
		w.deleteMessage(context.Background(), qt.ReceiptHandle)
		return
	}

	ref := qt.Payload.Input.Ref()
	for _, activity := range activities {
		if _, err := w.adapter.Send(ctx, ref, activity); err != nil {
			w.metrics.ObserveExternalFailure("channel")
			w.logger.Error("failed to deliver activity",
				"error", err,
				"conversation_id", ref.ConversationID,
				"kind", activity.Kind,
			)
			continue
		}
		w.recordOutbound(ctx, ref.ConversationID, activity)
	}

	w.deleteMessage(context.Background(), qt.ReceiptHandle)
}

// notifyFailure sends the single user-facing error message for a turn that
// died before emitting any activities. The engine covers failures inside a
// dialog step; this covers the fatal paths around it.
func (w *Worker) notifyFailure(ctx context.Context, input TurnInput) {
	if input.ConversationID == "" {
		return
	}

	activity := Text(w.engine.errText)
	if _, err := w.adapter.Send(ctx, input.Ref(), activity); err != nil {
		w.metrics.ObserveExternalFailure("channel")
		w.logger.Error("failed to deliver error notice",
			"error", err,
			"conversation_id", input.ConversationID,
		)
		return
	}
	w.recordOutbound(ctx, input.ConversationID, activity)
}

func (w *Worker) recordInbound(ctx context.Context, input TurnInput) {
	if w.transcript == nil {
		return
	}
	if err := w.transcript.RecordInbound(ctx, input); err != nil {
		w.logger.Warn("failed to record inbound message", "error", err, "conversation_id", input.ConversationID)
	}
}

func (w *Worker) recordOutbound(ctx context.Context, conversationID string, activity OutboundActivity) {
	if w.transcript == nil {
		return
	}
	if err := w.transcript.RecordOutbound(ctx, conversationID, activity); err != nil {
		w.logger.Warn("failed to record outbound message", "error", err, "conversation_id", conversationID)
	}
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete turn message", "error", err)
	}
}
