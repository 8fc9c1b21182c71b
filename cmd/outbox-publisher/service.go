package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/harvestlink-backend/pkg/config"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/metrics"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type pinger interface {
	Ping(context.Context) error
}

type topicPublisherSource interface {
	pinger
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublished(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, err error) error
	MoveToDLQ(ctx context.Context, dlq *outbox.DLQRepository, entry models.OutboxDLQ) error
	MarkDeadLettered(ctx context.Context, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               pinger
	PubSub           topicPublisherSource
	Repository       outboxRepository
	DLQRepository    *outbox.DLQRepository
	Registry         registryResolver
	Metrics          *metrics.PublisherMetrics
	PublisherFactory publisherFactory
}

// Service drains outbox_events onto Pub/Sub. Rows are marked published only
// after the broker acknowledges them, so delivery is at least once and
// consumers dedupe on the envelope event id.
type Service struct {
	logg             *logger.Logger
	db               pinger
	pubsub           topicPublisherSource
	repo             outboxRepository
	dlq              *outbox.DLQRepository
	registry         registryResolver
	metrics          *metrics.PublisherMetrics
	publisherFactory publisherFactory
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration

	mu         sync.Mutex
	publishers map[string]*gcppubsub.Publisher
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	s := &Service{
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		repo:         params.Repository,
		dlq:          params.DLQRepository,
		registry:     params.Registry,
		metrics:      params.Metrics,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
		publishers:   map[string]*gcppubsub.Publisher{},
	}
	s.publisherFactory = params.PublisherFactory
	if s.publisherFactory == nil {
		s.publisherFactory = s.cachedPublisher
	}
	return s, nil
}

func (s *Service) cachedPublisher(topic string) publisher {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.publishers[topic]
	if !ok {
		p = s.pubsub.Publisher(topic)
		if p == nil {
			return nil
		}
		s.publishers[topic] = p
	}
	return &gcpPublisher{Publisher: p}
}

// Stop flushes and releases every topic publisher created so far.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topic, p := range s.publishers {
		p.Stop()
		delete(s.publishers, topic)
	}
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	return nil
}

// Run polls until ctx is canceled, backing off while batches fail.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	backoff := s.pollInterval
	for {
		if ctx.Err() != nil {
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox.batch.failed", err)
			backoff = nextBackoff(backoff, s.pollInterval, maxBackoff)
			if err := sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}
		backoff = s.pollInterval

		if processed > 0 {
			continue
		}
		if err := sleep(ctx, withJitter(s.pollInterval)); err != nil {
			return err
		}
	}
}

// processBatch publishes one batch. A failed event never stops the rest of
// the batch; only repository errors abort it.
func (s *Service) processBatch(ctx context.Context) (int, error) {
	events, err := s.repo.FetchUnpublished(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("fetch unpublished: %w", err)
	}

	for _, event := range events {
		resolved, err := s.registry.Resolve(event)
		if err != nil {
			if dlqErr := s.deadLetter(ctx, event, enums.OutboxDLQReasonNonRetryable, err, nil); dlqErr != nil {
				return len(events), dlqErr
			}
			continue
		}

		fields := s.eventFields(event, resolved.Envelope, resolved.Descriptor.Topic)
		start := time.Now()
		pubErr := s.publishResolved(ctx, event, resolved)
		s.metrics.ObserveDuration(string(event.EventType), time.Since(start))
		if pubErr == nil {
			if err := s.repo.MarkPublished(ctx, event.ID); err != nil {
				return len(events), fmt.Errorf("mark published %s: %w", event.ID, err)
			}
			s.metrics.IncSuccess(string(event.EventType))
			s.logg.Debug(s.logg.WithFields(ctx, fields), "outbox.event.published")
			continue
		}

		s.metrics.IncFailure(string(event.EventType))
		var nonRetry registry.NonRetryableError
		if errors.As(pubErr, &nonRetry) {
			if err := s.deadLetter(ctx, event, enums.OutboxDLQReasonNonRetryable, pubErr, fields); err != nil {
				return len(events), err
			}
			continue
		}

		nextAttempt := event.AttemptCount + 1
		fields["attempt_count"] = nextAttempt
		if nextAttempt >= s.maxAttempts {
			event.AttemptCount = nextAttempt
			terminal := fmt.Errorf("max publish attempts reached: %w", pubErr)
			if err := s.deadLetter(ctx, event, enums.OutboxDLQReasonMaxAttempts, terminal, fields); err != nil {
				return len(events), err
			}
			continue
		}

		warnCtx := s.logg.WithFields(ctx, fields)
		warnCtx = s.logg.WithField(warnCtx, "error", pubErr.Error())
		s.logg.Warn(warnCtx, "outbox.publish.retry")
		if err := s.repo.MarkFailed(ctx, event.ID, pubErr); err != nil {
			return len(events), fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
	}
	return len(events), nil
}

func (s *Service) deadLetter(ctx context.Context, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	if fields == nil {
		fields = s.eventFields(event, outbox.PayloadEnvelope{}, "")
	}
	fields["error_reason"] = reason
	warnCtx := s.logg.WithFields(ctx, fields)
	warnCtx = s.logg.WithField(warnCtx, "error", cause.Error())
	s.logg.Warn(warnCtx, "outbox.event.dead_lettered")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	// A requeued row that failed again keeps its first dead letter entry.
	existing, err := s.dlq.FindByEventID(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("lookup dead letter %s: %w", event.ID, err)
	}
	if existing != nil {
		if err := s.repo.MarkDeadLettered(ctx, entry); err != nil {
			return fmt.Errorf("mark dead lettered %s: %w", event.ID, err)
		}
		s.logg.Info(s.logg.WithField(ctx, "dlq_id", existing.ID.String()), "outbox.event.dlq_exists")
		return nil
	}
	if err := s.repo.MoveToDLQ(ctx, s.dlq, entry); err != nil {
		return fmt.Errorf("dead letter %s: %w", event.ID, err)
	}
	s.metrics.IncDLQ(string(event.EventType))
	return nil
}

func (s *Service) publishResolved(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
