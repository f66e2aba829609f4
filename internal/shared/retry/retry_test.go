package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleepPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Sleep:       func(time.Duration) {},
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := noSleepPolicy(4).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &smithy.GenericAPIError{Code: "Throttling", Message: "slow down"}
		}
		return nil
	}, Throttling)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	denied := &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"}
	err := noSleepPolicy(5).Do(context.Background(), func() error {
		calls++
		return denied
	}, Throttling)

	assert.ErrorIs(t, err, error(denied))
	assert.Equal(t, 1, calls, "non-retryable errors must not consume the retry budget")
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := noSleepPolicy(3).Do(context.Background(), func() error {
		calls++
		return &smithy.GenericAPIError{Code: "SlowDown"}
	}, Throttling)

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{
		MaxAttempts: 10,
		BaseDelay:   time.Millisecond,
		Sleep:       func(time.Duration) { cancel() },
	}

	err := p.Do(ctx, func() error {
		calls++
		return &smithy.GenericAPIError{Code: "Throttling"}
	}, Throttling)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestThrottlingClassification(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"Throttling", true},
		{"ThrottlingException", true},
		{"TooManyRequestsException", true},
		{"SlowDown", true},
		{"ProvisionedThroughputExceededException", true},
		{"AccessDenied", false},
		{"NoSuchEntity", false},
	}

	for _, tc := range cases {
		got := Throttling(&smithy.GenericAPIError{Code: tc.code})
		assert.Equal(t, tc.want, got, tc.code)
	}
}

func TestRetryableIncludesTimeoutsAndServerErrors(t *testing.T) {
	assert.True(t, Retryable(context.DeadlineExceeded))
	assert.True(t, Retryable(&smithy.GenericAPIError{Code: "ServiceUnavailable"}))
	assert.False(t, Retryable(errors.New("parse error")))
	assert.False(t, Retryable(nil))
}
