package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T, clock *time.Time) *MemoryBackend {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b := NewMemoryBackend(ctx)
	b.now = func() time.Time { return *clock }
	return b
}

func TestMemoryBackend_BurstThenDeny(t *testing.T) {
	clock := time.Unix(1_765_000_000, 0)
	b := newTestBackend(t, &clock)
	key := OTP.Key("1.2.3.4")

	for i := 0; i < OTP.Limit; i++ {
		ok, err := b.Allow(context.Background(), key, OTP.Limit, OTP.Window)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}
	ok, err := b.Allow(context.Background(), key, OTP.Limit, OTP.Window)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other addresses keep their own bucket.
	ok, _ = b.Allow(context.Background(), OTP.Key("5.6.7.8"), OTP.Limit, OTP.Window)
	assert.True(t, ok)
}

func TestMemoryBackend_Refills(t *testing.T) {
	clock := time.Unix(1_765_000_000, 0)
	b := newTestBackend(t, &clock)
	key := OTP.Key("1.2.3.4")

	for i := 0; i < OTP.Limit; i++ {
		_, _ = b.Allow(context.Background(), key, OTP.Limit, OTP.Window)
	}
	clock = clock.Add(OTP.Window)
	ok, _ := b.Allow(context.Background(), key, OTP.Limit, OTP.Window)
	assert.True(t, ok)
	ok, _ = b.Allow(context.Background(), key, OTP.Limit, OTP.Window)
	assert.False(t, ok)
}

func TestMemoryBackend_SpacedRequestsStayWithinRollingWindow(t *testing.T) {
	start := time.Unix(1_765_000_000, 0)
	clock := start
	b := newTestBackend(t, &clock)
	key := OTP.Key("1.2.3.4")

	allowed := 0
	for i := 0; i < OTP.Limit; i++ {
		if ok, _ := b.Allow(context.Background(), key, OTP.Limit, OTP.Window); ok {
			allowed++
		}
	}
	for _, sec := range []int{13, 25, 37, 49, 59} {
		clock = start.Add(time.Duration(sec) * time.Second)
		if ok, _ := b.Allow(context.Background(), key, OTP.Limit, OTP.Window); ok {
			allowed++
		}
	}
	assert.Equal(t, OTP.Limit, allowed)

	// One token is back once the first requests leave the window.
	clock = start.Add(OTP.Window)
	ok, _ := b.Allow(context.Background(), key, OTP.Limit, OTP.Window)
	assert.True(t, ok)
}

func TestMemoryBackend_SweepDropsStaleKeys(t *testing.T) {
	clock := time.Unix(1_765_000_000, 0)
	b := newTestBackend(t, &clock)
	_, _ = b.Allow(context.Background(), "a", 1, time.Minute)

	clock = clock.Add(staleAfter + time.Second)
	_, _ = b.Allow(context.Background(), "b", 1, time.Minute)
	b.sweep()

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.NotContains(t, b.limiters, "a")
	assert.Contains(t, b.limiters, "b")
}

func TestPolicies(t *testing.T) {
	assert.Equal(t, "rate_limit:otp-verify:9.9.9.9", OTPVerify.Key("9.9.9.9"))
	assert.Equal(t, 60, Policies["api"].Limit)
	assert.Equal(t, 5, Policies["otp"].Limit)
	assert.Equal(t, 10, Policies["otp-verify"].Limit)
	assert.Equal(t, 30, Policies["chat"].Limit)
	assert.Equal(t, 30, Policies["search"].Limit)
}
