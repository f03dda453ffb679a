package ipc_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zaptest"

	"github.com/bjaus/ipcwire"
	"github.com/bjaus/ipcwire/ipc"
)

type BusSuite struct {
	suite.Suite
	bus *ipc.Bus
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusSuite))
}

func (s *BusSuite) SetupTest() {
	s.bus = ipc.New(ipc.WithLogger(zaptest.NewLogger(s.T())), ipc.WithSender("renderer"))
}

func (s *BusSuite) TearDownTest() {
	s.Require().NoError(s.bus.Close())
}

func (s *BusSuite) TestInvokeReturnsReply() {
	var got ipc.Event
	err := s.bus.Handle("math:double", func(_ context.Context, event, payload any) any {
		got = event.(ipc.Event)
		m := payload.(map[string]any)
		return m["n"].(float64) * 2
	})
	s.Require().NoError(err)

	res, err := s.bus.Invoke(context.Background(), "math:double", map[string]int{"n": 21})

	s.Require().NoError(err)
	s.Equal(float64(42), res)
	s.Equal("math:double", got.Channel)
	s.Equal("renderer", got.Sender)
	s.NotEmpty(got.ID)
}

func (s *BusSuite) TestInvokeCopiesPayload() {
	type note struct {
		Text string `json:"text"`
	}
	in := &note{Text: "hello"}

	s.Require().NoError(s.bus.Handle("notes:echo", func(_ context.Context, _, payload any) any {
		return payload
	}))

	res, err := s.bus.Invoke(context.Background(), "notes:echo", in)

	s.Require().NoError(err)
	s.Equal(map[string]any{"text": "hello"}, res)
}

func (s *BusSuite) TestInvokeUnknownChannel() {
	_, err := s.bus.Invoke(context.Background(), "nope", nil)
	s.ErrorIs(err, ipc.ErrNoHandler)
}

func (s *BusSuite) TestHandleTwice() {
	h := func(context.Context, any, any) any { return nil }
	s.Require().NoError(s.bus.Handle("a", h))

	err := s.bus.Handle("a", h)

	var dup *ipc.DuplicateHandlerError
	s.Require().ErrorAs(err, &dup)
	s.Equal("a", dup.Channel)
}

func (s *BusSuite) TestSendDeliversInOrder() {
	var (
		mu  sync.Mutex
		got []any
	)
	s.Require().NoError(s.bus.On("log:write", func(_ context.Context, _, payload any) any {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, payload)
		return nil
	}))

	for _, line := range []string{"one", "two", "three"} {
		s.Require().NoError(s.bus.Send(context.Background(), "log:write", line))
	}

	s.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]any{"one", "two", "three"}, got)
}

func (s *BusSuite) TestSendStampsEvent() {
	events := make(chan ipc.Event, 1)
	s.Require().NoError(s.bus.On("ping", func(_ context.Context, event, _ any) any {
		events <- event.(ipc.Event)
		return nil
	}))

	s.Require().NoError(s.bus.Send(context.Background(), "ping", nil))

	select {
	case ev := <-events:
		s.Equal("ping", ev.Channel)
		s.Equal("renderer", ev.Sender)
		s.Len(ev.ID, 26)
	case <-time.After(time.Second):
		s.Fail("message not delivered")
	}
}

func (s *BusSuite) TestRemove() {
	var calls atomic.Int32
	h := func(context.Context, any, any) any {
		calls.Add(1)
		return nil
	}
	s.Require().NoError(s.bus.Handle("jobs", h))
	s.Require().NoError(s.bus.On("jobs", h))

	s.bus.Remove("jobs")

	_, err := s.bus.Invoke(context.Background(), "jobs", nil)
	s.ErrorIs(err, ipc.ErrNoHandler)
	s.Empty(s.bus.Channels())

	s.Require().NoError(s.bus.Send(context.Background(), "jobs", nil))
	s.Never(func() bool { return calls.Load() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	s.Require().NoError(s.bus.Handle("jobs", h))
}

func TestSendCarriesTraceContext(t *testing.T) {
	bus := ipc.New(
		ipc.WithLogger(zaptest.NewLogger(t)),
		ipc.WithPropagator(propagation.TraceContext{}),
	)
	t.Cleanup(func() { _ = bus.Close() })

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b, 0x0c, 0x01},
		SpanID:     trace.SpanID{0x01, 0x02, 0x03},
		TraceFlags: trace.FlagsSampled,
	})

	received := make(chan trace.SpanContext, 1)
	require.NoError(t, bus.On("audit", func(ctx context.Context, _, _ any) any {
		received <- trace.SpanContextFromContext(ctx)
		return nil
	}))

	ctx := trace.ContextWithSpanContext(context.Background(), parent)
	require.NoError(t, bus.Send(ctx, "audit", map[string]string{"action": "login"}))

	select {
	case sc := <-received:
		assert.Equal(t, parent.TraceID(), sc.TraceID())
		assert.Equal(t, parent.SpanID(), sc.SpanID())
		assert.True(t, sc.IsRemote())
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestBusClosed(t *testing.T) {
	bus := ipc.New()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	h := func(context.Context, any, any) any { return nil }
	assert.ErrorIs(t, bus.Handle("a", h), ipc.ErrClosed)
	assert.ErrorIs(t, bus.On("a", h), ipc.ErrClosed)
	assert.ErrorIs(t, bus.Send(context.Background(), "a", nil), ipc.ErrClosed)

	_, err := bus.Invoke(context.Background(), "a", nil)
	assert.ErrorIs(t, err, ipc.ErrClosed)
}

type greeter struct{}

func (greeter) Greet(name string) (string, error) {
	if name == "" {
		return "", errors.New("name required")
	}
	return "hello " + name, nil
}

func (greeter) Record(string) (any, error) { return nil, nil }

func TestApplicationOnBus(t *testing.T) {
	meta := ipcwire.NewMetadata()
	greet := ipcwire.NewMethod("Greet", ipcwire.Bind1(greeter.Greet))
	record := ipcwire.NewMethod("Record", ipcwire.Bind1(greeter.Record))
	controller := ipcwire.NewClass("GreeterController", ipcwire.Ctor0(func() greeter { return greeter{} }))

	meta.Controller(controller, "greeter", greet, record)
	meta.OnInvoke(greet, "greet")
	meta.OnSend(record, "record")
	meta.Params(greet, ipcwire.Field("name"))
	meta.Params(record, ipcwire.Field("name"))

	app := ipcwire.New(ipcwire.Config{
		Controllers: []*ipcwire.Class{controller},
		Metadata:    meta,
	}, ipcwire.WithLogger(zaptest.NewLogger(t)))

	bus := ipc.New(ipc.WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(func() { _ = bus.Close() })

	require.NoError(t, app.Bootstrap(bus))
	assert.ElementsMatch(t, []string{"greeter:greet"}, bus.Channels())

	res, err := bus.Invoke(context.Background(), "greeter:greet", map[string]string{"name": "ada"})
	require.NoError(t, err)
	assert.Equal(t, "hello ada", res)

	res, err = bus.Invoke(context.Background(), "greeter:greet", map[string]string{})
	require.NoError(t, err)
	failure, ok := ipcwire.IsFailure(res)
	require.True(t, ok)
	assert.EqualError(t, failure.Error, "name required")
}
