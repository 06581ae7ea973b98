package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/domain/repository"
	"github.com/clinicpos/diagnostics-api/internal/observability/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Publisher delivers a batch of messages
type Publisher interface {
	Publish(ctx context.Context, msgs []Message) error
}

// RelayConfig holds configuration for the event relay
type RelayConfig struct {
	Topic        string
	BatchSize    int
	PollInterval time.Duration
}

// Envelope is the JSON value of a published event
type Envelope struct {
	ID            uuid.UUID              `json:"id"`
	TransactionID uuid.UUID              `json:"transaction_id"`
	ActorID       uuid.UUID              `json:"actor_id"`
	EventType     string                 `json:"event_type"`
	Description   string                 `json:"description"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// Relay moves unpublished transaction events to the message bus. Each batch
// is claimed with SKIP LOCKED inside a storage transaction, so several relays
// can run side by side without publishing the same row twice. Delivery is
// at-least-once: a crash after publishing but before commit republishes the
// batch.
type Relay struct {
	txm       repository.TxManager
	events    repository.TransactionEventRepository
	publisher Publisher
	cfg       RelayConfig
	metrics   *metrics.Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewRelay creates a new event relay
func NewRelay(
	txm repository.TxManager,
	events repository.TransactionEventRepository,
	publisher Publisher,
	cfg RelayConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if m == nil {
		m = metrics.NewNop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		txm:       txm,
		events:    events,
		publisher: publisher,
		cfg:       cfg,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("transaction-event-relay"),
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("event relay started",
		zap.String("topic", r.cfg.Topic),
		zap.Int("batch_size", r.cfg.BatchSize),
		zap.Duration("poll_interval", r.cfg.PollInterval),
	)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("event relay stopped")
			return
		case <-ticker.C:
			// drain the backlog before waiting for the next tick
			for {
				n, err := r.RelayBatch(ctx)
				if err != nil {
					r.logger.Error("event relay batch failed", zap.Error(err))
					break
				}
				if n < r.cfg.BatchSize {
					break
				}
			}
		}
	}
}

// RelayBatch publishes one batch and returns how many events it delivered
func (r *Relay) RelayBatch(ctx context.Context) (int, error) {
	ctx, span := r.tracer.Start(ctx, "relay_batch")
	defer span.End()

	var delivered int
	err := r.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		batch, err := r.events.ClaimUnpublished(ctx, r.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		msgs := make([]Message, 0, len(batch))
		ids := make([]uuid.UUID, 0, len(batch))
		for i := range batch {
			msg, err := r.message(&batch[i])
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
			ids = append(ids, batch[i].ID)
		}

		if err := r.publisher.Publish(ctx, msgs); err != nil {
			return err
		}
		if err := r.events.MarkPublished(ctx, ids, r.now()); err != nil {
			return err
		}
		delivered = len(batch)
		return nil
	})
	if err != nil {
		r.metrics.EventsPublishFailures.Inc()
		span.RecordError(err)
		return 0, err
	}

	span.SetAttributes(attribute.Int("batch_size", delivered))
	r.metrics.EventsPublished.Add(float64(delivered))
	return delivered, nil
}

func (r *Relay) message(e *entity.TransactionEvent) (Message, error) {
	value, err := json.Marshal(Envelope{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		ActorID:       e.ActorID,
		EventType:     e.EventType.String(),
		Description:   e.Description,
		Metadata:      e.Metadata,
		OccurredAt:    e.CreatedAt,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Topic: r.cfg.Topic,
		Key:   e.TransactionID.String(),
		Value: value,
		Headers: map[string]string{
			"event_type": e.EventType.String(),
			"event_id":   e.ID.String(),
		},
	}, nil
}
