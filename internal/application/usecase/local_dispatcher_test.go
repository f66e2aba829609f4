package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/aws-pillar-scanner-go/internal/checks"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
	"github.com/diillson/aws-pillar-scanner-go/pkg/console"
)

type fakeScanner struct {
	delay     time.Duration
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	scanned   sync.Map
	resultFor func(entity.ScanRequest) entity.ScanUnitResult
}

func (f *fakeScanner) ScanAccount(_ context.Context, request entity.ScanRequest) entity.ScanUnitResult {
	current := f.inFlight.Add(1)
	for {
		observed := f.maxFlight.Load()
		if current <= observed || f.maxFlight.CompareAndSwap(observed, current) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.inFlight.Add(-1)

	f.scanned.Store(request.AccountID, true)
	if f.resultFor != nil {
		return f.resultFor(request)
	}
	return entity.ScanUnitResult{AccountID: request.AccountID, Status: entity.ScanCompleted}
}

func TestLocalDispatcherCollectsAllResultsSorted(t *testing.T) {
	scanner := &fakeScanner{}
	dispatcher := NewLocalDispatcher(scanner, console.NewConsole(), 4)

	ids := []string{"555555555555", "111111111111", "333333333333"}
	for _, id := range ids {
		require.NoError(t, dispatcher.Dispatch(context.Background(), entity.AccountMetadata{ID: id, Status: "ACTIVE"}, "run-1"))
	}

	results := dispatcher.Wait()
	require.Len(t, results, 3)
	assert.Equal(t, "111111111111", results[0].AccountID)
	assert.Equal(t, "333333333333", results[1].AccountID)
	assert.Equal(t, "555555555555", results[2].AccountID)
}

func TestLocalDispatcherHonorsConcurrencyLimit(t *testing.T) {
	scanner := &fakeScanner{delay: 20 * time.Millisecond}
	dispatcher := NewLocalDispatcher(scanner, console.NewConsole(), 2)

	for _, id := range []string{"1", "2", "3", "4", "5", "6"} {
		require.NoError(t, dispatcher.Dispatch(context.Background(), entity.AccountMetadata{ID: id}, "run-1"))
	}
	dispatcher.Wait()

	assert.LessOrEqual(t, scanner.maxFlight.Load(), int32(2))
}

// Fluxo completo: descoberta organizacional alimentando o dispatcher local,
// com uma conta suspensa e uma conta inacessível no meio.
func TestDiscoveryFanOutEndToEnd(t *testing.T) {
	findings := &fakeFindings{}
	notifier := &fakeNotifier{}

	catalog := []checks.Check{
		staticCheck("Security#RootAccessKeys", entity.PillarSecurity, checks.ScopeGlobal,
			entity.Finding{IsHighRisk: true, Evidence: "root has keys"}),
	}
	scanUC := newTestScanUseCase(catalog, findings, &fakeReports{}, notifier, testConfig())
	scanUC.credentials = &selectiveCredentials{denied: "333333333333"}

	dispatcher := NewLocalDispatcher(scanUC, console.NewConsole(), 2)
	discoveryUC := newTestDiscoveryUseCase(&fakeAccounts{accounts: orgAccounts()}, nil, notifier)
	discoveryUC.dispatcher = dispatcher

	summary, err := discoveryUC.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Dispatched)

	results := dispatcher.Wait()
	require.Len(t, results, 2)

	byAccount := map[string]entity.ScanUnitResult{}
	for _, result := range results {
		byAccount[result.AccountID] = result
	}

	assert.Equal(t, entity.ScanCompleted, byAccount["111111111111"].Status)
	assert.Equal(t, 1, byAccount["111111111111"].FindingsCount)

	assert.Equal(t, entity.ScanUnscannable, byAccount["333333333333"].Status)

	// A conta suspensa nunca chega ao dispatcher; a inacessível grava o
	// finding sintético de acesso.
	systemFindings := 0
	for _, finding := range findings.upserted {
		if finding.CheckID == roleAssumptionCheckID {
			systemFindings++
			assert.Equal(t, "333333333333", finding.AccountID)
		}
	}
	assert.Equal(t, 1, systemFindings)
}

type selectiveCredentials struct {
	denied string
}

func (s *selectiveCredentials) Assume(_ context.Context, accountID string) (entity.Credentials, error) {
	if accountID == s.denied {
		return entity.Credentials{}, &types.AuthError{
			AccountID: accountID, Code: "AccessDenied", Err: errors.New("assume role denied"),
		}
	}
	return entity.Credentials{AccountID: accountID, Expiry: time.Now().Add(time.Hour)}, nil
}
