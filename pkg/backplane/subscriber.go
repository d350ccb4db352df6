package backplane

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// SubscriberConfig configures a Subscriber backed by a Transport.
type SubscriberConfig struct {
	Transport  Transport
	Channel    string
	InstanceID string
	Logger     zerolog.Logger
}

// RedisSubscriber is a Subscriber that lazily opens its Transport
// subscription on first handler attachment.
type RedisSubscriber struct {
	transport  Transport
	channel    string
	instanceID string
	logger     zerolog.Logger

	mu           sync.Mutex
	handlers     []HandlerFunc
	unsubscribe  func() error
	subscribeErr error
}

// NewSubscriber constructs a Subscriber from cfg.
func NewSubscriber(cfg SubscriberConfig) *RedisSubscriber {
	return &RedisSubscriber{
		transport:  cfg.Transport,
		channel:    cfg.Channel,
		instanceID: cfg.InstanceID,
		logger:     cfg.Logger,
	}
}

// Subscribe registers handler for delivered events, lazily opening the
// underlying transport subscription on the first call. The returned
// unsubscribe function removes only this handler; the transport
// subscription is closed once no handlers remain.
func (s *RedisSubscriber) Subscribe(handler HandlerFunc) (func() error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe == nil {
		unsub, err := s.transport.Subscribe(context.Background(), s.channel, s.onMessage)
		if err != nil {
			return nil, err
		}
		s.unsubscribe = unsub
	}

	s.handlers = append(s.handlers, handler)
	idx := len(s.handlers) - 1

	return func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx >= len(s.handlers) {
			return nil
		}
		s.handlers[idx] = nil
		for _, h := range s.handlers {
			if h != nil {
				return nil
			}
		}
		if s.unsubscribe == nil {
			return nil
		}
		err := s.unsubscribe()
		s.unsubscribe = nil
		return err
	}, nil
}

// Close removes the channel subscription and drops every registered
// handler.
func (s *RedisSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe == nil {
		return nil
	}
	err := s.unsubscribe()
	s.unsubscribe = nil
	s.handlers = nil
	return err
}

func (s *RedisSubscriber) onMessage(payload string) {
	src, events, err := decodeEnvelope([]byte(payload))
	if err != nil {
		if errors.Is(err, ErrWireVersionMismatch) {
			droppedTotal.Inc()
			return
		}
		droppedTotal.Inc()
		s.logger.Warn().Err(err).Msg("dropping malformed backplane message")
		return
	}

	if src == s.instanceID {
		echoSuppressedTotal.Inc()
		return
	}

	s.mu.Lock()
	handlers := make([]HandlerFunc, 0, len(s.handlers))
	for _, h := range s.handlers {
		if h != nil {
			handlers = append(handlers, h)
		}
	}
	s.mu.Unlock()

	for _, evt := range events {
		deliveredTotal.Inc()
		for _, h := range handlers {
			s.dispatch(h, evt)
		}
	}
}

// dispatch invokes handler with evt, recovering a panic so one bad handler
// never halts delivery to the rest.
func (s *RedisSubscriber) dispatch(handler HandlerFunc, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("backplane handler panicked")
		}
	}()
	handler(evt)
}
