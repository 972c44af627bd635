package observability

import (
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAPIRequestMetrics(t *testing.T) {
	t.Run("duration_accepts_labelled_observations", func(t *testing.T) {
		assert.NotPanics(t, func() {
			APIRequestDuration.WithLabelValues("GET", "listings", "200").Observe(0.05)
			APIRequestDuration.WithLabelValues("POST", "auth/login", "401").Observe(0.1)
		})
	})

	t.Run("requests_total_counts_per_label_set", func(t *testing.T) {
		counter := APIRequestsTotal.WithLabelValues("GET", "users/me", "200")
		before := promtestutil.ToFloat64(counter)

		counter.Inc()
		counter.Inc()

		assert.Equal(t, before+2, promtestutil.ToFloat64(counter))
	})

	t.Run("retries_counter_increments", func(t *testing.T) {
		before := promtestutil.ToFloat64(APIRequestRetriesTotal)
		APIRequestRetriesTotal.Inc()
		assert.Equal(t, before+1, promtestutil.ToFloat64(APIRequestRetriesTotal))
	})
}

func TestTokenRefreshMetrics(t *testing.T) {
	outcomes := []string{
		RefreshOutcomeSuccess,
		RefreshOutcomeFailure,
		RefreshOutcomeShortCircuit,
	}

	for _, outcome := range outcomes {
		counter := TokenRefreshTotal.WithLabelValues(outcome)
		before := promtestutil.ToFloat64(counter)
		counter.Inc()
		assert.Equal(t, before+1, promtestutil.ToFloat64(counter), outcome)
	}

	before := promtestutil.ToFloat64(TokenRefreshWaiters)
	TokenRefreshWaiters.Inc()
	assert.Equal(t, before+1, promtestutil.ToFloat64(TokenRefreshWaiters))
}

func TestCacheMetrics(t *testing.T) {
	hit := CacheOperationsTotal.WithLabelValues("hit")
	before := promtestutil.ToFloat64(hit)
	hit.Inc()
	assert.Equal(t, before+1, promtestutil.ToFloat64(hit))

	CacheEntries.Set(7)
	assert.Equal(t, 7.0, promtestutil.ToFloat64(CacheEntries))
	CacheEntries.Set(0)
	assert.Equal(t, 0.0, promtestutil.ToFloat64(CacheEntries))
}

func TestUploadMetrics(t *testing.T) {
	before := promtestutil.ToFloat64(UploadBytesTotal)
	UploadBytesTotal.Add(2048)
	assert.Equal(t, before+2048, promtestutil.ToFloat64(UploadBytesTotal))
}
