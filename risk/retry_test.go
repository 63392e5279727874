package risk

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrio/traderd/broker"
	"github.com/quantrio/traderd/market"
)

func TestRetryExhaustsBudget(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), 3, func(context.Context) error {
		calls++
		return broker.Retriable(errors.New("connection reset"))
	})

	assert.Equal(t, 4, calls, "1 + max_retry attempts total")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
}

func TestRetryNonRetriableFailsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	terminal := errors.New("insufficient funds")
	err := Retry(context.Background(), 3, func(context.Context) error {
		calls++
		return terminal
	})

	assert.Equal(t, 1, calls, "non-retriable errors are attempted exactly once")
	assert.ErrorIs(t, err, terminal)
}

func TestRetryRecoversWithinBudget(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return broker.Retriable(errors.New("timeout"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryZeroBudgetSingleAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), 0, func(context.Context) error {
		calls++
		return broker.Retriable(errors.New("timeout"))
	})

	assert.Equal(t, 1, calls)
	assert.Error(t, err)
}

func TestRetryStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, func(context.Context) error {
		calls++
		cancel()
		return broker.Retriable(errors.New("timeout"))
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

// placeVenue is a Broker stub that counts PlaceOrder calls.
type placeVenue struct {
	mu     sync.Mutex
	calls  int
	result error
}

func (v *placeVenue) GetBalance(context.Context, string) (market.Balance, error) {
	return market.Balance{}, nil
}

func (v *placeVenue) GetPrice(context.Context, string) (market.Quote, error) {
	return market.Quote{}, nil
}

func (v *placeVenue) PlaceOrder(_ context.Context, intent broker.OrderIntent) (broker.OrderResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if v.result != nil {
		return broker.OrderResult{}, v.result
	}
	return broker.OrderResult{OrderID: "ord-1", AssetID: intent.AssetID}, nil
}

func (v *placeVenue) CancelOrder(context.Context, string) error { return nil }

func TestSubmitRejectedIntentNeverReachesVenue(t *testing.T) {
	t.Parallel()

	venue := &placeVenue{}
	s := NewSubmitter(testLimits(), venue, zerolog.Nop())

	// 100 * 70000 = 7,000,000 KRW, over the cap.
	_, err := s.Submit(context.Background(), intent("100", "70000", "70000"))

	assert.True(t, broker.IsRejected(err))
	assert.Equal(t, 0, venue.calls, "rejected intent must never hit the venue")
}

func TestSubmitRetriesRetriableVenueFailures(t *testing.T) {
	t.Parallel()

	venue := &placeVenue{result: broker.Retriable(errors.New("gateway timeout"))}
	limits := testLimits()
	limits.MaxRetry = 2
	s := NewSubmitter(limits, venue, zerolog.Nop())

	_, err := s.Submit(context.Background(), intent("10", "70000", "70000"))

	require.Error(t, err)
	assert.False(t, broker.IsRejected(err))
	assert.Equal(t, 3, venue.calls, "1 + max_retry attempts")
}

func TestSubmitVenueRejectionNotRetried(t *testing.T) {
	t.Parallel()

	venue := &placeVenue{result: broker.Rejected("insufficient funds")}
	s := NewSubmitter(testLimits(), venue, zerolog.Nop())

	_, err := s.Submit(context.Background(), intent("10", "70000", "70000"))

	assert.True(t, broker.IsRejected(err))
	assert.Equal(t, 1, venue.calls)
}

func TestSubmitSuccess(t *testing.T) {
	t.Parallel()

	venue := &placeVenue{}
	s := NewSubmitter(testLimits(), venue, zerolog.Nop())

	res, err := s.Submit(context.Background(), intent("10", "70000", "70000"))
	require.NoError(t, err)
	assert.Equal(t, "ord-1", res.OrderID)
	assert.Equal(t, 1, venue.calls)
}
