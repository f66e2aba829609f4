package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Policy is a reusable retry policy with exponential backoff and full
// jitter, shared by every remote-call boundary in the scanner (discovery
// pagination, credential exchange, report upload, findings writes).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Sleep permite injetar o relógio nos testes; nil usa time.Sleep.
	Sleep func(time.Duration)
}

// DefaultPolicy retorna a política usada quando o chamador não configura uma.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts
// MaxAttempts or the context is done. retryable decides which errors are
// worth another attempt; errors outside that class surface immediately
// without consuming the retry budget.
func (p Policy) Do(ctx context.Context, op func() error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if waitErr := p.wait(ctx, attempt); waitErr != nil {
				return waitErr
			}
		}

		if err = op(); err == nil {
			return nil
		}
		if retryable == nil || !retryable(err) {
			return err
		}
	}
	return err
}

func (p Policy) wait(ctx context.Context, attempt int) error {
	base := p.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	// Backoff exponencial limitado por MaxDelay.
	backoff := base << uint(attempt-1)
	if p.MaxDelay > 0 && backoff > p.MaxDelay {
		backoff = p.MaxDelay
	}

	// Full jitter: dorme um valor aleatório em [0, backoff].
	delay := time.Duration(rand.Int63n(int64(backoff) + 1))

	if p.Sleep != nil {
		p.Sleep(delay)
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// throttleCodes são os códigos de erro que os serviços AWS usam para
// sinalizar rate limiting.
var throttleCodes = map[string]struct{}{
	"Throttling":                             {},
	"ThrottlingException":                    {},
	"ThrottledException":                     {},
	"TooManyRequestsException":               {},
	"RequestLimitExceeded":                   {},
	"RequestThrottled":                       {},
	"RequestThrottledException":              {},
	"SlowDown":                               {},
	"ProvisionedThroughputExceededException": {},
	"LimitExceededException":                 {},
}

// Throttling reports whether err is a provider rate-limit signal.
func Throttling(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := throttleCodes[apiErr.ErrorCode()]; ok {
			return true
		}
	}
	return false
}

// Retryable reports whether err belongs to the transient class: throttling,
// HTTP 5xx responses and timeouts. Permission and configuration errors are
// deliberately excluded.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if Throttling(err) {
		return true
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 500 {
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ServiceUnavailable", "ServiceUnavailableException", "InternalError", "InternalFailure":
			return true
		}
	}
	return false
}
