package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/metrics"
)

const defaultDeliverTimeout = 5 * time.Second

// Deliverer hands a message to durable storage or transport.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

// DispatcherConfig sizes the async dispatcher.
type DispatcherConfig struct {
	QueueSize      int
	Workers        int
	DeliverTimeout time.Duration
}

type job struct {
	ctx context.Context
	msg Message
}

// AsyncDispatcher is a Sink backed by a bounded queue drained by worker
// goroutines. A full queue drops the message.
type AsyncDispatcher struct {
	deliverer Deliverer
	logg      *logger.Logger
	metrics   *metrics.FulfillmentMetrics
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

// NewAsyncDispatcher starts the worker pool.
func NewAsyncDispatcher(cfg DispatcherConfig, deliverer Deliverer, logg *logger.Logger, m *metrics.FulfillmentMetrics) (*AsyncDispatcher, error) {
	if deliverer == nil {
		return nil, errors.New("notification deliverer required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = defaultDeliverTimeout
	}

	d := &AsyncDispatcher{
		deliverer: deliverer,
		logg:      logg,
		metrics:   m,
		timeout:   cfg.DeliverTimeout,
		queue:     make(chan job, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d, nil
}

// Notify enqueues msg without blocking. The request context is detached from
// cancellation so delivery outlives the HTTP response.
func (d *AsyncDispatcher) Notify(ctx context.Context, msg Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	logCtx := d.logg.WithFields(ctx, map[string]any{
		"notification_type": msg.Type,
		"recipient_id":      msg.UserID.String(),
	})
	if d.closed {
		d.logg.Warn(logCtx, "notification dropped: dispatcher closed")
		d.metrics.NotificationDropped()
		return
	}

	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), msg: msg}:
		d.metrics.NotificationEnqueued()
	default:
		d.logg.Warn(logCtx, "notification dropped: queue full")
		d.metrics.NotificationDropped()
	}
}

func (d *AsyncDispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *AsyncDispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()
	if err := d.deliverer.Deliver(ctx, j.msg); err != nil {
		logCtx := d.logg.WithField(ctx, "notification_type", j.msg.Type)
		d.logg.Error(logCtx, "notification delivery failed", err)
		d.metrics.NotificationFailed()
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
