package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarifscope/tarifscope/pkg/types"
)

func TestParseOffpeakWindows(t *testing.T) {
	t.Run("Single String", func(t *testing.T) {
		w := ParseOffpeakWindows("22H30-6H30")
		require.Len(t, w, 1)
		assert.Equal(t, types.OffpeakWindow{StartHour: 22, EndHour: 6}, w[0])
	})

	t.Run("Colon Separator", func(t *testing.T) {
		w := ParseOffpeakWindows("22:00-06:00")
		require.Len(t, w, 1)
		assert.Equal(t, types.OffpeakWindow{StartHour: 22, EndHour: 6}, w[0])
	})

	t.Run("Free Text Around Range", func(t *testing.T) {
		w := ParseOffpeakWindows("Heures Creuses : 23h12-7h12 (legacy meter)")
		require.Len(t, w, 1)
		assert.Equal(t, types.OffpeakWindow{StartHour: 23, EndHour: 7}, w[0])
	})

	t.Run("List Of Strings", func(t *testing.T) {
		w := ParseOffpeakWindows([]string{"02h00-07h00", "12h30-14h30"})
		require.Len(t, w, 2)
		assert.Equal(t, types.OffpeakWindow{StartHour: 2, EndHour: 7}, w[0])
		assert.Equal(t, types.OffpeakWindow{StartHour: 12, EndHour: 14}, w[1])
	})

	t.Run("Decoded JSON List", func(t *testing.T) {
		// encoding/json decodes arrays into []any
		w := ParseOffpeakWindows([]any{"02h00-07h00", "12h30-14h30"})
		require.Len(t, w, 2)
	})

	t.Run("Labeled Map Is Deterministic", func(t *testing.T) {
		raw := map[string]any{
			"winter": "01h00-07h00",
			"summer": []any{"02h00-07h00"},
		}
		w1 := ParseOffpeakWindows(raw)
		require.Len(t, w1, 2)
		// sorted key order: summer before winter
		assert.Equal(t, types.OffpeakWindow{StartHour: 2, EndHour: 7}, w1[0])
		assert.Equal(t, types.OffpeakWindow{StartHour: 1, EndHour: 7}, w1[1])
		for i := 0; i < 10; i++ {
			assert.Equal(t, w1, ParseOffpeakWindows(raw))
		}
	})

	t.Run("Malformed Entries Skipped", func(t *testing.T) {
		w := ParseOffpeakWindows([]string{"whenever", "25h00-26h00", "22h00-06h00"})
		require.Len(t, w, 1)
		assert.Equal(t, types.OffpeakWindow{StartHour: 22, EndHour: 6}, w[0])
	})

	t.Run("Nothing Usable", func(t *testing.T) {
		assert.Nil(t, ParseOffpeakWindows(nil))
		assert.Nil(t, ParseOffpeakWindows("n/a"))
		assert.Nil(t, ParseOffpeakWindows(42))
	})
}

func TestOffpeakWindowsOrDefault(t *testing.T) {
	diag := &Diagnostics{}
	w := OffpeakWindowsOrDefault("garbage", diag)
	require.Len(t, w, 1)
	assert.Equal(t, types.DefaultOffpeakWindow(), w[0])
	assert.True(t, diag.OffpeakFallback)

	diag = &Diagnostics{}
	w = OffpeakWindowsOrDefault("09h00-17h00", diag)
	require.Len(t, w, 1)
	assert.False(t, diag.OffpeakFallback)
}

func TestOffpeakWindowContains(t *testing.T) {
	t.Run("Wrapping Window", func(t *testing.T) {
		w := types.OffpeakWindow{StartHour: 22, EndHour: 6}
		offpeak := map[int]bool{22: true, 23: true, 0: true, 1: true, 2: true, 3: true, 4: true, 5: true}
		for h := 0; h < 24; h++ {
			assert.Equal(t, offpeak[h], w.Contains(h), "hour %d", h)
		}
	})

	t.Run("Non Wrapping Window", func(t *testing.T) {
		w := types.OffpeakWindow{StartHour: 9, EndHour: 17}
		for h := 0; h < 24; h++ {
			assert.Equal(t, h >= 9 && h < 17, w.Contains(h), "hour %d", h)
		}
	})

	t.Run("Degenerate Window", func(t *testing.T) {
		w := types.OffpeakWindow{StartHour: 3, EndHour: 3}
		for h := 0; h < 24; h++ {
			assert.False(t, w.Contains(h), "hour %d", h)
		}
	})
}
