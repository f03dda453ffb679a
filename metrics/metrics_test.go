package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bjaus/ipcwire"
)

type service struct{}

func (service) Ok() (string, error)   { return "ok", nil }
func (service) Fail() (string, error) { return "", errors.New("boom") }
func (service) Open() (string, error) { return "open", nil }

func newApp(t *testing.T, opts ...ipcwire.Option) *ipcwire.Application {
	t.Helper()

	meta := ipcwire.NewMetadata()
	ok := ipcwire.NewMethod("Ok", ipcwire.Bind0(service.Ok))
	fail := ipcwire.NewMethod("Fail", ipcwire.Bind0(service.Fail))
	open := ipcwire.NewMethod("Open", ipcwire.Bind0(service.Open))
	deny := ipcwire.NewClass("DenyGuard", ipcwire.Ctor0(func() ipcwire.Guard {
		return ipcwire.GuardFunc(func(*ipcwire.ExecutionContext) (any, error) { return false, nil })
	}))
	ctrl := ipcwire.NewClass("ServiceController", ipcwire.Ctor0(func() service { return service{} }))

	meta.Injectable(deny)
	meta.Controller(ctrl, "svc", ok, fail, open)
	meta.OnInvoke(ok, "ok")
	meta.OnInvoke(fail, "fail")
	meta.OnInvoke(open, "open")
	meta.UseGuards(open, deny)

	app := ipcwire.New(ipcwire.Config{
		Providers:   []ipcwire.Provider{ipcwire.Provide(deny)},
		Controllers: []*ipcwire.Class{ctrl},
		Metadata:    meta,
	}, append(opts, ipcwire.WithLogger(zaptest.NewLogger(t)))...)
	require.NoError(t, app.Bootstrap(nil))
	return app
}

func TestCollectorCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	col, err := NewCollector(reg)
	require.NoError(t, err)

	app := newApp(t, col.Options()...)
	ctx := context.Background()

	for _, path := range []string{"svc:ok", "svc:ok", "svc:fail", "svc:open"} {
		_, err := app.Dispatch(ctx, path, nil, nil)
		require.NoError(t, err)
	}

	tests := []struct {
		channel string
		outcome string
		want    float64
	}{
		{"svc:ok", OutcomeSuccess, 2},
		{"svc:fail", OutcomeFailure, 1},
		{"svc:open", OutcomeDenied, 1},
		{"svc:ok", OutcomeFailure, 0},
	}
	assert.Equal(t, float64(0), testutil.ToFloat64(col.inFlight.WithLabelValues("svc:ok")))
	for _, tt := range tests {
		t.Run(tt.channel+"/"+tt.outcome, func(t *testing.T) {
			assert.Equal(t, tt.want, testutil.ToFloat64(col.dispatches.WithLabelValues(tt.channel, tt.outcome)))
		})
	}
}

func TestCollectorRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)

	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}
