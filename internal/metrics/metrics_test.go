package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckout(reg)

	m.Observe("ok", 12*time.Millisecond)
	m.Observe("ok", 3*time.Millisecond)
	m.Observe("invalid_signature", time.Millisecond)
	m.Degraded()
	m.Replayed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.outcomes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("invalid_signature")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.degraded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replays))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestNilCheckoutIsNoop(t *testing.T) {
	var m *Checkout
	m.Observe("ok", time.Millisecond)
	m.Degraded()
	m.Replayed()
}
