package jsoncodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int    `json:"x"`
	Y int    `json:"y"`
	L string `json:"label,omitempty"`
}

func TestConvert(t *testing.T) {
	t.Run("map into struct", func(t *testing.T) {
		var p point
		err := Convert(map[string]any{"x": 1, "y": 2, "label": "a"}, &p)

		require.NoError(t, err)
		assert.Equal(t, point{X: 1, Y: 2, L: "a"}, p)
	})

	t.Run("bytes are JSON text", func(t *testing.T) {
		var p point
		err := Convert([]byte(`{"x":5,"y":6}`), &p)

		require.NoError(t, err)
		assert.Equal(t, point{X: 5, Y: 6}, p)
	})

	t.Run("type mismatch fails", func(t *testing.T) {
		var p point
		err := Convert(map[string]any{"x": "not a number"}, &p)

		assert.Error(t, err)
	})
}

func TestClone(t *testing.T) {
	t.Run("struct becomes map", func(t *testing.T) {
		out, err := Clone(point{X: 3, Y: 4})

		require.NoError(t, err)
		assert.Equal(t, map[string]any{"x": float64(3), "y": float64(4)}, out)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		out, err := Clone(nil)

		require.NoError(t, err)
		assert.Nil(t, out)
	})
}
