package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
	"github.com/diillson/aws-pillar-scanner-go/pkg/console"
)

type fakeAccounts struct {
	accounts []entity.AccountMetadata
	err      error
}

func (f *fakeAccounts) Discover(context.Context) ([]entity.AccountMetadata, error) {
	return f.accounts, f.err
}

type fakeDispatcher struct {
	mu     sync.Mutex
	sent   []entity.AccountMetadata
	runIDs []string
	errFor map[string]error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, account entity.AccountMetadata, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errFor[account.ID]; ok {
		return err
	}
	f.sent = append(f.sent, account)
	f.runIDs = append(f.runIDs, runID)
	return nil
}

func orgAccounts() []entity.AccountMetadata {
	return []entity.AccountMetadata{
		{ID: "111111111111", Name: "workload-a", Status: "ACTIVE"},
		{ID: "222222222222", Name: "suspended", Status: "SUSPENDED"},
		{ID: "333333333333", Name: "workload-b", Status: "ACTIVE"},
	}
}

func newTestDiscoveryUseCase(accounts *fakeAccounts, dispatcher *fakeDispatcher, notifier *fakeNotifier) *DiscoveryUseCase {
	return &DiscoveryUseCase{
		accounts:   accounts,
		dispatcher: dispatcher,
		notifier:   notifier,
		console:    console.NewConsole(),
		newRunID:   func() string { return "run-fixed" },
	}
}

func TestRunDispatchesOnlyActiveAccounts(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	uc := newTestDiscoveryUseCase(&fakeAccounts{accounts: orgAccounts()}, dispatcher, &fakeNotifier{})

	summary, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-fixed", summary.RunID)
	assert.Equal(t, 3, summary.Discovered)
	assert.Equal(t, 2, summary.Active)
	assert.Equal(t, 2, summary.Dispatched)
	assert.Zero(t, summary.DispatchFailed)

	require.Len(t, dispatcher.sent, 2)
	assert.Equal(t, "111111111111", dispatcher.sent[0].ID)
	assert.Equal(t, "333333333333", dispatcher.sent[1].ID)
	for _, runID := range dispatcher.runIDs {
		assert.Equal(t, "run-fixed", runID, "every dispatch must share the discovery run id")
	}
}

func TestRunDiscoveryFailureIsFatalAndEscalated(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	notifier := &fakeNotifier{}
	uc := newTestDiscoveryUseCase(&fakeAccounts{err: errors.New("organizations unavailable")}, dispatcher, notifier)

	summary, err := uc.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, summary.Dispatched)
	assert.Empty(t, dispatcher.sent)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "CRITICAL", notifier.sent[0].Severity)
	assert.Equal(t, "organization", notifier.sent[0].Scope)
}

func TestRunNoActiveAccountsReturnsSentinel(t *testing.T) {
	uc := newTestDiscoveryUseCase(&fakeAccounts{accounts: []entity.AccountMetadata{
		{ID: "222222222222", Status: "SUSPENDED"},
	}}, &fakeDispatcher{}, &fakeNotifier{})

	summary, err := uc.Run(context.Background())
	assert.ErrorIs(t, err, types.ErrNoActiveAccounts)
	assert.Equal(t, 1, summary.Discovered)
	assert.Zero(t, summary.Active)
}

func TestRunDispatchFailureDoesNotStopOthers(t *testing.T) {
	dispatcher := &fakeDispatcher{errFor: map[string]error{
		"111111111111": errors.New("lambda rejected"),
	}}
	notifier := &fakeNotifier{}
	uc := newTestDiscoveryUseCase(&fakeAccounts{accounts: orgAccounts()}, dispatcher, notifier)

	summary, err := uc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Dispatched)
	assert.Equal(t, 1, summary.DispatchFailed)
	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, "333333333333", dispatcher.sent[0].ID)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "ERROR", notifier.sent[0].Severity)
}
