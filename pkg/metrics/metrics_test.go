package metrics_test

import (
	"testing"

	"internify-backend/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	t.Run("Should count exhausted token waits per path", func(t *testing.T) {
		c.RecordTokenWait("sign_in", 3, true)
		c.RecordTokenWait("sign_in", 8, false)
		c.RecordTokenWait("sign_up", 20, false)

		n, err := testutil.GatherAndCount(reg, "internify_token_wait_exhausted_total")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = testutil.GatherAndCount(reg, "internify_token_wait_polls")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("Should label persist attempts by outcome", func(t *testing.T) {
		c.RecordPersistAttempt("unauthorized")
		c.RecordPersistAttempt("unauthorized")
		c.RecordPersistAttempt("ok")

		n, err := testutil.GatherAndCount(reg, "internify_profile_persist_attempts_total")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r metrics.Recorder = metrics.Nop{}
	r.RecordRoleGuard("match")
}
