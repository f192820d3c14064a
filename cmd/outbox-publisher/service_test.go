package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/mealflow-backend/pkg/config"
	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	"github.com/angelmondragon/mealflow-backend/pkg/enums"
	"github.com/angelmondragon/mealflow-backend/pkg/logger"
	"github.com/angelmondragon/mealflow-backend/pkg/outbox"
	"github.com/angelmondragon/mealflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/mealflow-backend/pkg/outbox/registry"
)

func orderEvent(t *testing.T, eventType enums.OutboxEventType, label string, attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, label),
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

func resolvedFor(topic string) *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         topic,
			AggregateType: enums.AggregateOrder,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.OrderCreatedEvent{},
	}
}

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			orderEvent(t, enums.EventOrderCreated, "event-one", 0),
			orderEvent(t, enums.EventOrderPaid, "event-two", 0),
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	rec := &fakeMetrics{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedFor("orders-topic")}, rec, nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)

	require.Equal(t, []uuid.UUID{repo.events[0].ID}, repo.failed)
	require.Equal(t, []uuid.UUID{repo.events[1].ID}, repo.published)
	require.Empty(t, repo.terminal)
	require.Equal(t, []string{string(enums.EventOrderPaid)}, rec.published)
	require.Equal(t, 1, rec.retryable)
	require.Equal(t, 1, rec.batches)
}

func TestServiceHoldsLaterEventsOfAFailedOrder(t *testing.T) {
	created := orderEvent(t, enums.EventOrderCreated, "created", 0)
	paid := orderEvent(t, enums.EventOrderPaid, "paid", 0)
	paid.AggregateID = created.AggregateID
	other := orderEvent(t, enums.EventOrderCreated, "other-order", 0)

	repo := &fakeRepo{events: []models.OutboxEvent{created, paid, other}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("transient")},
		fakePublishResult{},
	}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedFor("orders-topic")}, nil, nil)

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{created.ID}, repo.failed)
	require.Equal(t, []uuid.UUID{other.ID}, repo.published)
	require.Len(t, pub.sent, 2)
	require.Equal(t, other.AggregateID.String(), pub.sent[1].OrderingKey)
}

func TestPublishCarriesOrderingKeyAndAttributes(t *testing.T) {
	event := orderEvent(t, enums.EventPaymentFailed, "failed", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedFor("orders-topic")}, nil, nil)

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.sent, 1)

	msg := pub.sent[0]
	require.Equal(t, event.AggregateID.String(), msg.OrderingKey)
	require.Equal(t, event.ID.String(), msg.Attributes["event_id"])
	require.Equal(t, string(enums.EventPaymentFailed), msg.Attributes["event_type"])
	require.Equal(t, string(enums.AggregateOrder), msg.Attributes["aggregate_type"])
	require.JSONEq(t, string(event.Payload), string(msg.Data))
}

func TestServiceParksNonRetryableRows(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, "nonretryable", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	rec := &fakeMetrics{}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	service := newTestService(t, repo, &fakePublisher{}, reg, rec, nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	require.Empty(t, repo.published)
	require.Equal(t, 1, rec.terminal)
}

func TestServiceParksRowsAtMaxAttempts(t *testing.T) {
	event := orderEvent(t, enums.EventCashCollected, "max-attempts", 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedFor("orders-topic")}, nil, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
	require.Equal(t, 2, repo.terminalAttempts)
	require.Empty(t, repo.failed)
}

func TestServiceMissingPublisherIsTerminal(t *testing.T) {
	event := orderEvent(t, enums.EventOrderDelivered, "no-publisher", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	service := newTestService(t, repo, nil, &fakeRegistry{resolved: resolvedFor("orders-topic")}, nil, nil)
	service.publisherFactory = func(string) publisher { return nil }

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
}

func TestServiceBookkeepingFailureAbortsBatch(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, "bookkeeping", 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}, publishErr: errors.New("db down")}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedFor("orders-topic")}, nil, nil)

	_, err := service.processBatch(context.Background())
	require.ErrorContains(t, err, "mark published")
}

func TestEnsureReadinessCombinesFailures(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, nil, &fakeRegistry{}, nil, nil)
	service.db = &fakeDB{pingErr: errors.New("db unreachable")}
	service.pubsub = &fakePubSubClient{pingErr: errors.New("topic missing")}

	err := service.ensureReadiness(context.Background())
	require.ErrorContains(t, err, "database ping failed")
	require.ErrorContains(t, err, "pubsub ping failed")
}

func TestNextBackoffCaps(t *testing.T) {
	require.Equal(t, time.Second, nextBackoff(500*time.Millisecond, 500*time.Millisecond, maxBackoff))
	require.Equal(t, maxBackoff, nextBackoff(8*time.Second, time.Second, maxBackoff))
	require.Equal(t, 2*time.Second, nextBackoff(0, time.Second, maxBackoff))
}

func TestNewServiceValidatesParams(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, rec relayMetrics, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logg,
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		Metrics:          rec,
		PublisherFactory: func(_ string) publisher { return pub },
	})
	require.NoError(t, err)
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	require.NoError(tb, err)
	return payload
}

type fakeRepo struct {
	events           []models.OutboxEvent
	published        []uuid.UUID
	failed           []uuid.UUID
	terminal         []uuid.UUID
	terminalAttempts int
	publishErr       error
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	f.terminalAttempts = terminalAttempts
	return nil
}

type fakeDB struct {
	pingErr error
}

func (f *fakeDB) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct {
	pingErr error
}

func (f *fakePubSubClient) Ping(context.Context) error {
	return f.pingErr
}

func (f *fakePubSubClient) Publisher(name string) *gcppubsub.Publisher {
	return nil
}

type fakePublisher struct {
	results []publishResult
	sent    []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, f.err
}

type fakeMetrics struct {
	batches   int
	published []string
	retryable int
	terminal  int
}

func (f *fakeMetrics) ObserveBatch(time.Duration) { f.batches++ }

func (f *fakeMetrics) IncPublished(eventType string) {
	f.published = append(f.published, eventType)
}

func (f *fakeMetrics) IncFailed(_ string, terminal bool) {
	if terminal {
		f.terminal++
		return
	}
	f.retryable++
}
