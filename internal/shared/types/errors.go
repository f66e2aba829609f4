package types

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAccountID = errors.New("account id must be a 12-digit AWS account identifier")
	ErrNoActiveAccounts = errors.New("discovery returned no active accounts")
	ErrMissingBucket    = errors.New("no report bucket configured")
	ErrMissingTable     = errors.New("no findings table configured")
)

// AuthError is the typed, terminal outcome of a failed role assumption.
// Unless Throttled reports true, the caller must not retry: a missing role,
// denied access or rejected external id will not heal on its own.
type AuthError struct {
	AccountID string
	Code      string
	Err       error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("assume role failed for account %s (%s): %v", e.AccountID, e.Code, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Throttled reporta se a falha veio de rate limiting do STS, o único caso
// em que uma nova tentativa faz sentido.
func (e *AuthError) Throttled() bool {
	switch e.Code {
	case "Throttling", "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded":
		return true
	}
	return false
}
