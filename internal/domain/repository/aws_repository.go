package repository

import (
	"context"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

// CredentialRepository defines the interface for cross-account credential
// exchange. Assume returns account-scoped, time-boxed credentials or a typed
// *types.AuthError when the role is absent, access is denied or the trust
// policy rejects the external id.
type CredentialRepository interface {
	Assume(ctx context.Context, accountID string) (entity.Credentials, error)
}

// RegionRepository defines the interface for resolving the enabled regions
// of an authenticated account.
type RegionRepository interface {
	ResolveRegions(ctx context.Context, creds entity.Credentials, allowList []string) ([]string, error)
}

// AccountRepository defines the interface for organization account discovery.
type AccountRepository interface {
	Discover(ctx context.Context) ([]entity.AccountMetadata, error)
}

// Dispatcher defines the interface for fire-and-forget scan dispatch. The
// returned error reflects acceptance by the dispatch mechanism itself, never
// the dispatched scan's eventual outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, account entity.AccountMetadata, runID string) error
}

// Notifier defines the interface for best-effort error escalation. Notify
// must never fail the caller: a publish error is logged and swallowed.
type Notifier interface {
	Notify(ctx context.Context, severity, scope, message string)
}

// Notification severities accepted by Notifier implementations.
const (
	SeverityError    = "ERROR"
	SeverityCritical = "CRITICAL"
)
