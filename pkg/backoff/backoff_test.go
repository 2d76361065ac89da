package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/distributedcloud/identity-sync-engine/pkg/config"
)

func testPolicy() Policy {
	return New(config.BackoffConfig{
		Initial: 30 * time.Second,
		Cap:     15 * time.Minute,
		Factor:  2,
	})
}

func TestNextDelay_FirstAttemptIsInitial(t *testing.T) {
	p := testPolicy()
	assert.Equal(t, 30*time.Second, p.NextDelay(0))
}

func TestNextDelay_GrowsByFactor(t *testing.T) {
	p := testPolicy()
	assert.Equal(t, 60*time.Second, p.NextDelay(1))
	assert.Equal(t, 120*time.Second, p.NextDelay(2))
}

func TestNextDelay_CapsAtConfiguredMax(t *testing.T) {
	p := testPolicy()
	// 30s * 2^n grows past 15min well before attempt 10.
	assert.Equal(t, 15*time.Minute, p.NextDelay(10))
}

func TestNextAttemptAt_AddsDelayToNow(t *testing.T) {
	p := testPolicy()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := p.NextAttemptAt(now, 0)
	assert.Equal(t, now.Add(30*time.Second), got)
}
