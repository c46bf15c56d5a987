package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vibedev/vira/internal/domain/entity"
	domainerrors "github.com/vibedev/vira/internal/domain/errors"
	"github.com/vibedev/vira/internal/domain/repository"
	"github.com/vibedev/vira/internal/infrastructure/observability"
	"github.com/vibedev/vira/internal/usecase/event"
)

const (
	// laneBuffer is the capacity of a single lane channel.
	laneBuffer = 100

	// recoveryBatch caps how many pending items are re-dispatched at startup.
	recoveryBatch = 500
)

// Processor handles one dequeued event.
type Processor func(ctx context.Context, ev *entity.InboundEvent) error

// Options tunes dispatcher behavior. Metrics may be nil.
type Options struct {
	MaxConcurrent  int64
	MaxAttempts    int
	RetryBaseDelay time.Duration
	Metrics        *observability.Metrics
}

// Dispatcher is the asynchronous work queue between webhook
// acknowledgement and event processing. Events sharing a lane (one
// lane per thread) are processed strictly in acceptance order; a
// global semaphore caps parallelism across lanes. Every item is
// persisted before dispatch so pending work survives a restart.
type Dispatcher struct {
	store     repository.QueueRepository
	process   Processor
	logger    event.Logger
	metrics   *observability.Metrics
	semaphore *semaphore.Weighted

	maxAttempts int
	baseDelay   time.Duration

	lanes  map[string]chan *entity.QueueItem
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewDispatcher creates a dispatcher. Start must be called before Enqueue.
func NewDispatcher(store repository.QueueRepository, process Processor, logger event.Logger, opts Options) *Dispatcher {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 2 * time.Second
	}

	return &Dispatcher{
		store:       store,
		process:     process,
		logger:      logger,
		metrics:     opts.Metrics,
		semaphore:   semaphore.NewWeighted(opts.MaxConcurrent),
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.RetryBaseDelay,
		lanes:       make(map[string]chan *entity.QueueItem),
	}
}

// Start initialises the dispatcher and re-dispatches events that were
// accepted but not finished before the last shutdown.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	pending, err := d.store.ListPending(d.ctx, recoveryBatch)
	if err != nil {
		return fmt.Errorf("listing pending queue items: %w", err)
	}
	for _, item := range pending {
		if err := d.dispatch(item); err != nil {
			d.logger.Error("failed to re-dispatch pending item",
				"itemID", item.ID,
				"lane", item.LaneKey,
				"error", err,
			)
		}
	}
	if len(pending) > 0 {
		d.logger.Info("recovered pending queue items", "count", len(pending))
	}
	return nil
}

// Stop cancels in-flight work, closes all lanes, and waits for lane
// goroutines to exit.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Lock()
	for _, lane := range d.lanes {
		close(lane)
	}
	d.lanes = make(map[string]chan *entity.QueueItem)
	d.mu.Unlock()
	d.wg.Wait()
}

// Enqueue persists the event and hands it to its lane. The returned
// error reflects only submission; processing outcomes are handled
// asynchronously.
func (d *Dispatcher) Enqueue(ctx context.Context, ev *entity.InboundEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serializing event: %w", err)
	}

	item := entity.NewQueueItem(ev.LaneKey(), payload)
	if err := d.store.Save(ctx, item); err != nil {
		return fmt.Errorf("persisting queue item: %w", err)
	}

	return d.dispatch(item)
}

// dispatch places an item on its lane, creating the lane and its
// goroutine on first use.
func (d *Dispatcher) dispatch(item *entity.QueueItem) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx == nil {
		return fmt.Errorf("dispatcher not started")
	}

	lane, exists := d.lanes[item.LaneKey]
	if !exists {
		lane = make(chan *entity.QueueItem, laneBuffer)
		d.lanes[item.LaneKey] = lane
		d.wg.Add(1)
		go d.processLane(item.LaneKey, lane)
	}

	select {
	case lane <- item:
		d.addDepth(1)
		return nil
	default:
		return fmt.Errorf("lane %s is full", item.LaneKey)
	}
}

func (d *Dispatcher) addDepth(delta int64) {
	if d.metrics == nil {
		return
	}
	d.metrics.QueueDepth.Add(context.Background(), delta)
}

func (d *Dispatcher) recordResult(retries int, failed bool) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordQueueResult(context.Background(), retries, failed)
}

// processLane drains one lane, acquiring a semaphore slot per item so
// ordering within the lane is strict while cross-lane parallelism is
// bounded globally.
func (d *Dispatcher) processLane(laneKey string, lane chan *entity.QueueItem) {
	defer d.wg.Done()
	for {
		select {
		case item, ok := <-lane:
			if !ok {
				return
			}
			if err := d.semaphore.Acquire(d.ctx, 1); err != nil {
				return
			}
			d.processItem(item)
			d.semaphore.Release(1)
		case <-d.ctx.Done():
			return
		}
	}
}

// processItem runs one item through the processor with bounded retries
// on transient failures. Terminal outcomes are recorded in the store.
func (d *Dispatcher) processItem(item *entity.QueueItem) {
	defer d.addDepth(-1)

	var ev entity.InboundEvent
	if err := json.Unmarshal(item.Payload, &ev); err != nil {
		d.logger.Error("dropping undecodable queue item", "itemID", item.ID, "error", err)
		d.markFailed(item.ID, "undecodable payload: "+err.Error(), 0)
		d.recordResult(0, true)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		item.Attempts = attempt

		lastErr = d.process(d.ctx, &ev)
		if lastErr == nil {
			if err := d.store.MarkDone(d.ctx, item.ID, item.Attempts); err != nil {
				d.logger.Warn("failed to mark item done", "itemID", item.ID, "error", err)
			}
			d.recordResult(attempt-1, false)
			return
		}

		if !domainerrors.IsTransientError(lastErr) {
			d.logger.Error("event processing failed permanently",
				"itemID", item.ID,
				"lane", item.LaneKey,
				"attempt", attempt,
				"error", lastErr,
			)
			d.markFailed(item.ID, lastErr.Error(), item.Attempts)
			d.recordResult(attempt-1, true)
			return
		}

		if attempt < d.maxAttempts {
			delay := d.baseDelay * time.Duration(1<<(attempt-1))
			d.logger.Warn("event processing failed, retrying",
				"itemID", item.ID,
				"lane", item.LaneKey,
				"attempt", attempt,
				"delay", delay.String(),
				"error", lastErr,
			)
			select {
			case <-time.After(delay):
			case <-d.ctx.Done():
				// Leave the item pending; recovery picks it up next start.
				return
			}
		}
	}

	d.logger.Error("event processing exhausted retries",
		"itemID", item.ID,
		"lane", item.LaneKey,
		"attempts", d.maxAttempts,
		"error", lastErr,
	)
	d.markFailed(item.ID, lastErr.Error(), item.Attempts)
	d.recordResult(d.maxAttempts-1, true)
}

func (d *Dispatcher) markFailed(id, reason string, attempts int) {
	if err := d.store.MarkFailed(d.ctx, id, reason, attempts); err != nil && err != repository.ErrNotFound {
		d.logger.Warn("failed to mark item failed", "itemID", id, "error", err)
	}
}
