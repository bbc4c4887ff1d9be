package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshmcarthur/cap-alerts/internal/domain"
	"github.com/joshmcarthur/cap-alerts/internal/observability"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func newCached(t *testing.T, inner domain.ReverseGeocoder, size int) *CachedGeocoder {
	t.Helper()
	cached, err := NewCachedGeocoder(inner, size, observability.NewMetricsForTesting())
	require.NoError(t, err)
	return cached
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_CacheHit(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Wellington, New Zealand"}}
	cached := newCached(t, inner, 10)

	r1, err := cached.ReverseGeocode(context.Background(), -41.2865, 174.7762)
	require.NoError(t, err)
	r2, err := cached.ReverseGeocode(context.Background(), -41.2865, 174.7762)
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(cached.metrics.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(cached.metrics.GeocodeCache.WithLabelValues("miss")), 0)
}

func TestCachedGeocoder_NearbyCoordinatesShareEntry(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Wellington, New Zealand"}}
	cached := newCached(t, inner, 10)

	_, _ = cached.ReverseGeocode(context.Background(), -41.28651, 174.77621)
	_, _ = cached.ReverseGeocode(context.Background(), -41.28649, 174.77619)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Somewhere"}}
	cached := newCached(t, inner, 10)

	_, _ = cached.ReverseGeocode(context.Background(), -41.28, 174.77)
	_, _ = cached.ReverseGeocode(context.Background(), -43.53, 172.63)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_EmptyAndErrorsNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := newCached(t, inner, 10)

	_, _ = cached.ReverseGeocode(context.Background(), -41.28, 174.77)
	_, _ = cached.ReverseGeocode(context.Background(), -41.28, 174.77)
	assert.Equal(t, 2, inner.calls, "empty results are retried")

	inner.err = errors.New("timeout")
	_, err := cached.ReverseGeocode(context.Background(), -41.28, 174.77)
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestCachedGeocoder_Eviction(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "Somewhere"}}
	cached := newCached(t, inner, 2)

	_, _ = cached.ReverseGeocode(context.Background(), 1, 1)
	_, _ = cached.ReverseGeocode(context.Background(), 2, 2)
	_, _ = cached.ReverseGeocode(context.Background(), 3, 3) // evicts 1,1
	_, _ = cached.ReverseGeocode(context.Background(), 1, 1)

	assert.Equal(t, 4, inner.calls)
}

func TestNewCachedGeocoder_InvalidSize(t *testing.T) {
	_, err := NewCachedGeocoder(&countingGeocoder{}, 0, observability.NewMetricsForTesting())
	assert.Error(t, err)
}
