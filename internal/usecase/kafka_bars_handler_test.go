package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSignal/pkg/metrics"
)

func TestKafkaBarsHandler(t *testing.T) {
	ctx := context.Background()
	b := rampBars("SPY", 1, 100)[0]
	payload, err := json.Marshal(b)
	require.NoError(t, err)

	t.Run("stores decoded bars once", func(t *testing.T) {
		store := newMemLiveStore()
		h := NewKafkaBarsHandler("bars", store, metrics.Nop{})
		assert.Equal(t, "bars", h.Topic())

		require.NoError(t, h.Handle(ctx, payload))
		require.NoError(t, h.Handle(ctx, payload))
		got := store.stored()
		require.Len(t, got, 1)
		assert.Equal(t, b, got[0])
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		h := NewKafkaBarsHandler("bars", newMemLiveStore(), metrics.Nop{})
		assert.ErrorContains(t, h.Handle(ctx, []byte("{")), "decode bar")
		assert.ErrorContains(t, h.Handle(ctx, []byte(`{"ticker":"SPY"}`)), "invalid bar")
	})

	t.Run("surfaces store failures for retry", func(t *testing.T) {
		store := newMemLiveStore()
		store.err = errors.New("disk full")
		h := NewKafkaBarsHandler("bars", store, metrics.Nop{})
		assert.ErrorContains(t, h.Handle(ctx, payload), "disk full")
	})
}
