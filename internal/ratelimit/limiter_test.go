package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

func fixedStart() time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestCheckRateLimitDailyScenario(t *testing.T) {
	clock := clockwork.NewFakeClockAt(fixedStart())
	limiter := NewLimiter(clock)
	store := NewStore("email")
	rule := Rule{Limit: 5, Window: day}

	for i, want := range []int{4, 3, 2, 1, 0} {
		d, err := limiter.Check(store, "a@example.com", rule)
		require.NoError(t, err)
		require.True(t, d.Allowed, "call %d should be allowed", i+1)
		require.Equal(t, want, d.Remaining, "call %d remaining", i+1)
		require.Zero(t, d.ResetIn)
	}

	d, err := limiter.Check(store, "a@example.com", rule)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 0, d.Remaining)
	require.Equal(t, 1440, d.ResetIn)

	clock.Advance(86400001 * time.Millisecond)

	d, err = limiter.Check(store, "a@example.com", rule)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, 4, d.Remaining)

	rec, ok := store.Get("a@example.com")
	require.True(t, ok)
	require.Equal(t, 1, rec.Count)
}

func TestCheckRateLimitBoundary(t *testing.T) {
	for _, limit := range []int{1, 2, 7} {
		store := NewStore("ip")
		now := fixedStart()

		for i := 1; i <= limit; i++ {
			d := CheckRateLimit(now, store, "10.0.0.1", limit, time.Hour)
			require.True(t, d.Allowed)
			require.Equal(t, limit-i, d.Remaining)
		}

		d := CheckRateLimit(now, store, "10.0.0.1", limit, time.Hour)
		assert.False(t, d.Allowed, "limit %d: call %d must be denied", limit, limit+1)
		assert.Equal(t, 0, d.Remaining)
		assert.GreaterOrEqual(t, d.ResetIn, 1)
	}
}

func TestCheckRateLimitResetInRoundsUp(t *testing.T) {
	clock := clockwork.NewFakeClockAt(fixedStart())
	limiter := NewLimiter(clock)
	store := NewStore("email")
	rule := Rule{Limit: 1, Window: 10 * time.Minute}

	_, err := limiter.Check(store, "x@example.com", rule)
	require.NoError(t, err)

	clock.Advance(9*time.Minute + 59*time.Second)

	d, err := limiter.Check(store, "x@example.com", rule)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, 1, d.ResetIn)
}

func TestCheckRateLimitWindowEdgeIsInclusive(t *testing.T) {
	store := NewStore("email")
	start := fixedStart()

	CheckRateLimit(start, store, "a", 1, time.Minute)

	// At exactly ResetTime the window is still active.
	d := CheckRateLimit(start.Add(time.Minute), store, "a", 1, time.Minute)
	require.False(t, d.Allowed)

	d = CheckRateLimit(start.Add(time.Minute+time.Nanosecond), store, "a", 1, time.Minute)
	require.True(t, d.Allowed)
}

func TestCheckRateLimitIdentifiersAreIndependent(t *testing.T) {
	store := NewStore("email")
	now := fixedStart()

	for i := 0; i < 3; i++ {
		CheckRateLimit(now, store, "a@example.com", 3, day)
	}
	denied := CheckRateLimit(now, store, "a@example.com", 3, day)
	require.False(t, denied.Allowed)

	other := CheckRateLimit(now, store, "b@example.com", 3, day)
	require.True(t, other.Allowed)
	require.Equal(t, 2, other.Remaining)

	rec, ok := store.Get("a@example.com")
	require.True(t, ok)
	require.Equal(t, 3, rec.Count)
}

func TestCheckRateLimitSweepsOnlyExpiredEntries(t *testing.T) {
	store := NewStore("ip")
	start := fixedStart()

	CheckRateLimit(start, store, "short", 5, time.Minute)
	CheckRateLimit(start, store, "long", 5, time.Hour)
	require.Equal(t, 2, store.Len())

	CheckRateLimit(start.Add(2*time.Minute), store, "other", 5, time.Hour)

	_, shortOK := store.Get("short")
	_, longOK := store.Get("long")
	_, otherOK := store.Get("other")
	assert.False(t, shortOK, "expired entry should be swept")
	assert.True(t, longOK, "active entry must survive the sweep")
	assert.True(t, otherOK)
	assert.Equal(t, 2, store.Len())
}

func TestStaleEntriesRemainUntilNextCheck(t *testing.T) {
	store := NewStore("ip")
	start := fixedStart()

	CheckRateLimit(start, store, "idle", 5, time.Minute)
	require.Equal(t, 1, store.Len())

	// Nothing sweeps without a check.
	_, ok := store.Get("idle")
	require.True(t, ok)
}

func TestLimiterCheckRequiresStore(t *testing.T) {
	limiter := NewLimiter(nil)
	_, err := limiter.Check(nil, "a", Rule{Limit: 1, Window: time.Minute})
	require.ErrorIs(t, err, ErrNilStore)
}

func TestRuleValidate(t *testing.T) {
	require.NoError(t, Rule{Limit: 1, Window: time.Second}.Validate())
	require.Error(t, Rule{Limit: 0, Window: time.Second}.Validate())
	require.Error(t, Rule{Limit: -1, Window: time.Second}.Validate())
	require.Error(t, Rule{Limit: 1, Window: 0}.Validate())
}
