// Package ipc is an in-process transport for ipcwire applications.
//
// A Bus carries two kinds of channels. Invoke channels answer every request
// with the handler's reply. Send channels are fire-and-forget: messages are
// encoded as JSON and delivered asynchronously through a Watermill gochannel
// pub/sub.
//
// Payloads cross the bus as JSON, so handlers never share memory with the
// sender. Trace context travels with sent messages in their metadata.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/bjaus/ipcwire"
	"github.com/bjaus/ipcwire/internal/jsoncodec"
)

var (
	// ErrNoHandler is returned by Invoke when no handler serves the channel.
	ErrNoHandler = errors.New("no handler registered for channel")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("bus closed")
)

// DuplicateHandlerError is returned when an invoke channel already has a
// handler.
type DuplicateHandlerError struct {
	Channel string
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("channel %q already has a handler", e.Channel)
}

const senderKey = "sender"

// Event is passed to handlers as the raw transport event.
type Event struct {
	// ID is a UUID for invoke requests and a ULID for sent messages.
	ID      string
	Channel string
	Sender  string
}

// Bus is an in-process IPC transport. It implements ipcwire.Transport.
//
// Bus is safe for concurrent use.
type Bus struct {
	logger     *zap.Logger
	sender     string
	propagator propagation.TextMapPropagator
	pubsub     *gochannel.GoChannel

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	handlers map[string]ipcwire.HandlerFunc
	subs     map[string][]context.CancelFunc
	closed   bool
}

// Option configures a Bus.
type Option func(*busOptions)

type busOptions struct {
	logger     *zap.Logger
	sender     string
	buffer     int64
	propagator propagation.TextMapPropagator
}

// WithLogger sets the logger for the bus and its pub/sub.
func WithLogger(l *zap.Logger) Option {
	return func(o *busOptions) {
		o.logger = l
	}
}

// WithSender sets the sender name stamped on outgoing events.
func WithSender(name string) Option {
	return func(o *busOptions) {
		o.sender = name
	}
}

// WithBuffer sets the buffer of each send-channel subscription.
func WithBuffer(n int64) Option {
	return func(o *busOptions) {
		o.buffer = n
	}
}

// WithPropagator sets how trace context is carried on sent messages.
// The default is the global otel propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(o *busOptions) {
		o.propagator = p
	}
}

// New creates a Bus.
func New(opts ...Option) *Bus {
	o := busOptions{logger: zap.NewNop(), sender: "main"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.propagator == nil {
		o.propagator = otel.GetTextMapPropagator()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		logger:     o.logger,
		sender:     o.sender,
		propagator: o.propagator,
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: o.buffer},
			NewLoggerAdapter(o.logger),
		),
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[string]ipcwire.HandlerFunc),
		subs:     make(map[string][]context.CancelFunc),
	}
}

// Handle registers the reply handler of an invoke channel.
func (b *Bus) Handle(channel string, h ipcwire.HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if _, ok := b.handlers[channel]; ok {
		return &DuplicateHandlerError{Channel: channel}
	}
	b.handlers[channel] = h
	return nil
}

// On subscribes h to a send channel. Messages are delivered one at a time in
// publish order.
func (b *Bus) On(channel string, h ipcwire.HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}

	ctx, cancel := context.WithCancel(b.ctx)
	msgs, err := b.pubsub.Subscribe(ctx, channel)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	b.subs[channel] = append(b.subs[channel], cancel)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range msgs {
			b.deliver(channel, msg, h)
		}
	}()
	return nil
}

func (b *Bus) deliver(channel string, msg *message.Message, h ipcwire.HandlerFunc) {
	defer msg.Ack()

	var payload any
	if len(msg.Payload) > 0 {
		if err := jsoncodec.Unmarshal(msg.Payload, &payload); err != nil {
			b.logger.Error("undecodable message dropped",
				zap.String("channel", channel),
				zap.String("message_id", msg.UUID),
				zap.Error(err),
			)
			return
		}
	}

	ev := Event{ID: msg.UUID, Channel: channel, Sender: msg.Metadata.Get(senderKey)}
	ctx := b.propagator.Extract(msg.Context(), propagation.MapCarrier(msg.Metadata))
	h(ctx, ev, payload)
}

// Invoke sends payload to an invoke channel and returns the handler's reply.
// The payload is copied through JSON first.
func (b *Bus) Invoke(ctx context.Context, channel string, payload any) (any, error) {
	b.mu.RLock()
	h, ok := b.handlers[channel]
	closed := b.closed
	b.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, channel)
	}

	cloned, err := jsoncodec.Clone(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload for %s: %w", channel, err)
	}

	ev := Event{ID: uuid.NewString(), Channel: channel, Sender: b.sender}
	return h(ctx, ev, cloned), nil
}

// Send publishes payload on a send channel. Messages sent while nobody
// listens are dropped.
func (b *Bus) Send(ctx context.Context, channel string, payload any) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	raw, err := jsoncodec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", channel, err)
	}

	msg := message.NewMessage(ulid.Make().String(), raw)
	msg.Metadata.Set(senderKey, b.sender)
	b.propagator.Inject(ctx, propagation.MapCarrier(msg.Metadata))

	if err := b.pubsub.Publish(channel, msg); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Remove drops the invoke handler and the send subscriptions of channel.
// Messages already delivered to a subscription may still be handled.
func (b *Bus) Remove(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.handlers, channel)
	for _, cancel := range b.subs[channel] {
		cancel()
	}
	delete(b.subs, channel)
}

// Channels lists the registered invoke channels.
func (b *Bus) Channels() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.handlers))
	for ch := range b.handlers {
		out = append(out, ch)
	}
	return out
}

// Close stops all subscriptions and waits for in-flight deliveries.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()
	return err
}

var (
	_ ipcwire.Transport = (*Bus)(nil)
	_ ipcwire.Remover   = (*Bus)(nil)
)
