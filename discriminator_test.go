package ipcwire

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inspect(t *testing.T, payload any) View {
	t.Helper()
	view, err := JSONInspector().Inspect(payload)
	require.NoError(t, err)
	return view
}

func TestDiscriminators(t *testing.T) {
	view := inspect(t, map[string]any{
		"kind":   "order",
		"status": "paid",
		"total":  12,
		"items":  []any{map[string]any{"sku": "A1"}},
	})

	tests := []struct {
		name string
		d    Discriminator
		want bool
	}{
		{"has fields", HasFields("kind", "items.0.sku"), true},
		{"has fields missing one", HasFields("kind", "customer"), false},
		{"has no fields", HasFields(), true},
		{"field equals", FieldEquals("kind", "order"), true},
		{"field equals other value", FieldEquals("kind", "refund"), false},
		{"field equals non string", FieldEquals("total", "12"), false},
		{"field in", FieldIn("status", "pending", "paid"), true},
		{"field in none", FieldIn("status", "void"), false},
		{"field in missing", FieldIn("missing", "paid"), false},
		{"and", And(FieldEquals("kind", "order"), HasFields("total")), true},
		{"and one fails", And(FieldEquals("kind", "order"), HasFields("customer")), false},
		{"empty and", And(), true},
		{"or", Or(FieldEquals("kind", "refund"), FieldEquals("status", "paid")), true},
		{"or none", Or(FieldEquals("kind", "refund"), HasFields("customer")), false},
		{"empty or", Or(), false},
		{"not", Not(HasFields("customer")), true},
		{"not of a match", Not(FieldIn("kind", "order")), false},
		{
			"nested",
			Or(
				And(FieldEquals("kind", "refund"), HasFields("reason")),
				And(FieldEquals("kind", "order"), Not(FieldEquals("status", "void"))),
			),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Match(view))
		})
	}
}

func TestMatchGuardVerdict(t *testing.T) {
	g := MatchGuard(FieldIn("kind", "order", "refund"))

	tests := []struct {
		name    string
		payload any
		want    bool
	}{
		{"match", map[string]any{"kind": "order"}, true},
		{"no match", map[string]any{"kind": "invoice"}, false},
		{"not json", "plain text", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := NewExecutionContext(context.Background(), nil, nil, "orders:create", tt.payload, nil)
			got, err := g.CanActivate(ec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
