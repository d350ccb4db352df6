package backplane

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PublisherConfig configures a Publisher backed by a Transport.
type PublisherConfig struct {
	Transport Transport
	Channel   string

	// InstanceID identifies this process on the wire. A fresh UUID is
	// generated when empty.
	InstanceID string

	// Batched enables FIFO batching instead of one message per Publish
	// call.
	Batched     bool
	BatchSize   int
	BatchWindow time.Duration

	Logger zerolog.Logger
}

// BatchingPublisher implements Publisher in either immediate or batched mode.
type BatchingPublisher struct {
	transport  Transport
	channel    string
	instanceID string
	logger     zerolog.Logger

	batched     bool
	batchSize   int
	batchWindow time.Duration

	mu      sync.Mutex
	queue   []Event
	timer   *time.Timer
	flushCh chan struct{} // non-reentrant flush gate
}

// NewPublisher constructs a BatchingPublisher from cfg.
func NewPublisher(cfg PublisherConfig) *BatchingPublisher {
	instanceID := cfg.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	batchWindow := cfg.BatchWindow
	if batchWindow <= 0 {
		batchWindow = 50 * time.Millisecond
	}

	return &BatchingPublisher{
		transport:   cfg.Transport,
		channel:     cfg.Channel,
		instanceID:  instanceID,
		logger:      cfg.Logger,
		batched:     cfg.Batched,
		batchSize:   batchSize,
		batchWindow: batchWindow,
		flushCh:     make(chan struct{}, 1),
	}
}

// Publish enqueues or immediately sends evt depending on the configured
// mode.
func (p *BatchingPublisher) Publish(ctx context.Context, evt Event) error {
	if !p.batched {
		return p.send(ctx, []Event{evt})
	}
	return p.enqueue(ctx, evt)
}

func (p *BatchingPublisher) send(ctx context.Context, events []Event) error {
	payload, err := encodeEnvelope(p.instanceID, events)
	if err != nil {
		publishFailuresTotal.Inc()
		return err
	}
	if err := p.transport.Publish(ctx, p.channel, string(payload)); err != nil {
		publishFailuresTotal.Inc()
		return err
	}
	publishTotal.Inc()
	return nil
}

func (p *BatchingPublisher) enqueue(ctx context.Context, evt Event) error {
	p.mu.Lock()
	p.queue = append(p.queue, evt)
	shouldFlush := len(p.queue) >= p.batchSize
	if p.timer == nil {
		p.timer = time.AfterFunc(p.batchWindow, func() { p.timerFlush() })
	}
	p.mu.Unlock()

	if shouldFlush {
		p.flush(ctx)
	}
	return nil
}

func (p *BatchingPublisher) timerFlush() {
	p.flush(context.Background())
}

// flush drains the queue and sends it as one batched message. The flushCh
// buffered-1 channel acts as a non-reentrant gate: a flush already in
// progress causes this call to return immediately rather than double-send.
func (p *BatchingPublisher) flush(ctx context.Context) {
	select {
	case p.flushCh <- struct{}{}:
	default:
		return
	}
	defer func() { <-p.flushCh }()

	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if len(p.queue) == 0 {
		p.mu.Unlock()
		return
	}
	batch := p.queue
	p.queue = nil
	p.mu.Unlock()

	if err := p.send(ctx, batch); err != nil {
		p.logger.Warn().Err(err).Int("count", len(batch)).Msg("backplane batch flush failed")
	}
}

// Close drains any pending queued events and flushes them once. Safe to
// call on an immediate-mode publisher (a no-op).
func (p *BatchingPublisher) Close() {
	if !p.batched {
		return
	}
	p.flush(context.Background())
}
