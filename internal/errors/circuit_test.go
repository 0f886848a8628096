package errors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	b := NewBreaker("nomic-embed-text", threshold, cooldown)
	b.now = clock.now
	return b, clock
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	// Given: a breaker tripping after 3 failures
	b, _ := newTestBreaker(3, time.Minute)

	// When: two failures, then a third
	b.Failure()
	b.Failure()
	require.NoError(t, b.Allow())
	b.Failure()

	// Then: calls are rejected with a fatal provider error
	assert.Equal(t, StateOpen, b.State())
	err := b.Allow()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, ErrCodeProviderCircuitOpen, GetCode(err))
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "nomic-embed-text")
	assert.Contains(t, err.Error(), "3 consecutive failures")
}

func TestBreaker_TrialAfterCooldown(t *testing.T) {
	// Given: an open breaker
	b, clock := newTestBreaker(2, time.Minute)
	b.Failure()
	b.Failure()

	// When: the cooldown passes
	clock.advance(time.Minute)

	// Then: exactly one trial is admitted and its success closes the breaker
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Allow())
	assert.Error(t, b.Allow())

	b.Success()
	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Allow())
}

func TestBreaker_FailedTrialReopens(t *testing.T) {
	b, clock := newTestBreaker(5, time.Minute)
	for range 5 {
		b.Failure()
	}
	clock.advance(2 * time.Minute)
	require.NoError(t, b.Allow())

	b.Failure()

	assert.Equal(t, StateOpen, b.State())
	assert.Error(t, b.Allow())

	// The new cooldown counts from the failed trial.
	clock.advance(59 * time.Second)
	assert.Equal(t, StateOpen, b.State())
	clock.advance(time.Second)
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_ReleasedTrialAdmitsAnother(t *testing.T) {
	// Given: a half-open breaker whose trial was admitted
	b, clock := newTestBreaker(1, time.Minute)
	b.Failure()
	clock.advance(time.Minute)
	require.NoError(t, b.Allow())
	require.Error(t, b.Allow())

	// When: the trial ends without an outcome
	b.Release()

	// Then: the next call becomes the trial and the state is unchanged
	assert.Equal(t, StateHalfOpen, b.State())
	assert.NoError(t, b.Allow())
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	b, _ := newTestBreaker(2, time.Minute)

	b.Failure()
	b.Success()
	b.Failure()

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker("x", 0, 0)

	assert.Equal(t, 5, b.threshold)
	assert.Equal(t, 30*time.Second, b.cooldown)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}
