package ipcwire

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPath(t *testing.T) {
	tests := []struct {
		prefix, path, want string
	}{
		{"users", "get", "users:get"},
		{" users ", " get ", "users:get"},
		{"", "ping", "ping"},
		{"users", "", "users"},
		{"", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, buildPath(tt.prefix, tt.path))
		})
	}
}

func TestMetadataRegistrations(t *testing.T) {
	m := NewMetadata()
	cls := NewClass("Svc", nil)
	get := NewMethod("Get", nil)

	_, ok := m.LifetimeOf(cls)
	assert.False(t, ok)

	m.Injectable(cls)
	lt, ok := m.LifetimeOf(cls)
	require.True(t, ok)
	assert.Equal(t, Singleton, lt)

	m.Injectable(cls, Transient)
	lt, _ = m.LifetimeOf(cls)
	assert.Equal(t, Transient, lt)

	_, ok = m.HandlerOf(get)
	assert.False(t, ok)
	m.OnInvoke(get, "get")
	h, ok := m.HandlerOf(get)
	require.True(t, ok)
	assert.Equal(t, HandlerMetadata{Path: "get", Mode: ModeInvoke}, h)

	m.OnSend(get, "fire")
	h, _ = m.HandlerOf(get)
	assert.Equal(t, HandlerMetadata{Path: "fire", Mode: ModeSend}, h)

	roles := []Param{Ctx(), nil, Payload()}
	m.Params(get, roles...)
	assert.Len(t, m.ParamsOf(get), 3)
	assert.Nil(t, m.ParamsOf(get)[1])
}

func TestUseGuardsPrependsAndDeduplicates(t *testing.T) {
	m := NewMetadata()
	subject := NewClass("Ctrl", nil)
	a, b, c := NewClass("A", nil), NewClass("B", nil), NewClass("C", nil)

	m.UseGuards(subject, a, b)
	m.UseGuards(subject, c, a)

	assert.Equal(t, []*Class{c, a, b}, m.GuardsOf(subject))
	assert.Empty(t, m.GuardsOf(NewClass("Other", nil)))
}

func TestCustomMetadataBySubject(t *testing.T) {
	m := NewMetadata()
	one, two := NewClass("One", nil), NewClass("Two", nil)

	m.Set("roles", []string{"admin"}, one)

	v, ok := m.Get("roles", one)
	require.True(t, ok)
	assert.Equal(t, []string{"admin"}, v)

	_, ok = m.Get("roles", two)
	assert.False(t, ok)
}

func TestReflector(t *testing.T) {
	m := NewMetadata()
	ctrl := NewClass("Ctrl", nil)
	method := NewMethod("Get", nil)
	bare := NewMethod("List", nil)

	m.Set("roles", []string{"user"}, ctrl)
	m.Set("roles", []string{"admin"}, method)
	m.Set("public", true, ctrl)

	r := NewReflector(m)

	t.Run("get", func(t *testing.T) {
		assert.Equal(t, []string{"admin"}, r.Get("roles", method))
		assert.Nil(t, r.Get("roles", bare))
	})

	t.Run("get all", func(t *testing.T) {
		assert.Equal(t, []any{[]string{"admin"}, nil}, r.GetAll("roles", method, bare))
	})

	t.Run("override takes last present", func(t *testing.T) {
		assert.Equal(t, []string{"user"}, r.GetAllAndOverride("roles", method, ctrl))
		assert.Equal(t, []string{"admin"}, r.GetAllAndOverride("roles", ctrl, method, bare))
		assert.Nil(t, r.GetAllAndOverride("roles", bare))
	})

	t.Run("merge concatenates", func(t *testing.T) {
		assert.Equal(t, []any{"admin", "user"}, r.GetAllAndMerge("roles", method, bare, ctrl))
		assert.Equal(t, []any{true}, r.GetAllAndMerge("public", method, ctrl))
	})

	t.Run("typed value", func(t *testing.T) {
		roles, ok := ReflectValue[[]string](r, "roles", ctrl, method)
		require.True(t, ok)
		assert.Equal(t, []string{"admin"}, roles)

		_, ok = ReflectValue[int](r, "roles", ctrl)
		assert.False(t, ok)
	})
}

func TestGuardReadsMetadataThroughReflector(t *testing.T) {
	fx := newUsersFixture()
	fx.meta.Set("roles", []string{"admin"}, fx.get)

	roles := NewClass("RolesGuard", Ctor1(func(r *Reflector) Guard {
		return GuardFunc(func(ec *ExecutionContext) (any, error) {
			required, ok := ReflectValue[[]string](r, "roles", ec.Class(), ec.Method())
			if !ok {
				return true, nil
			}
			have, _ := ec.Event().(string)
			for _, role := range required {
				if role == have {
					return true, nil
				}
			}
			return false, nil
		})
	}), ReflectorClass)
	fx.meta.Injectable(roles)
	fx.meta.UseGuards(fx.controller, roles)

	cfg := fx.config()
	cfg.Providers = append(cfg.Providers, Provide(roles))
	app := New(cfg, WithLogger(testLogger(t)))
	require.NoError(t, app.Bootstrap(nil))

	res, err := app.Dispatch(context.Background(), "users:get", "admin", map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, user{ID: 1, Name: "ada"}, res)

	res, err = app.Dispatch(context.Background(), "users:get", "guest", map[string]any{"id": 1})
	require.NoError(t, err)
	_, denied := IsFailure(res)
	assert.True(t, denied)

	res, err = app.Dispatch(context.Background(), "users:get-async", "guest", map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, user{ID: 1, Name: "ada"}, res)
}
