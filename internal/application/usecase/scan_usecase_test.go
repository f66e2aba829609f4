package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/aws-pillar-scanner-go/internal/checks"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
	"github.com/diillson/aws-pillar-scanner-go/pkg/console"
)

type fakeCredentials struct {
	err   error
	calls int
}

func (f *fakeCredentials) Assume(_ context.Context, accountID string) (entity.Credentials, error) {
	f.calls++
	if f.err != nil {
		return entity.Credentials{}, f.err
	}
	return entity.Credentials{
		AccountID:   accountID,
		AccessKeyID: "AKIAFAKE",
		Expiry:      time.Now().Add(time.Hour),
	}, nil
}

type fakeRegions struct {
	regions []string
	err     error
}

func (f *fakeRegions) ResolveRegions(_ context.Context, _ entity.Credentials, _ []string) ([]string, error) {
	return f.regions, f.err
}

type fakeFindings struct {
	mu       sync.Mutex
	upserted []entity.Finding
	err      error
}

func (f *fakeFindings) Upsert(_ context.Context, finding entity.Finding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, finding)
	return nil
}

func (f *fakeFindings) QueryByPillarAndTime(context.Context, entity.Pillar, time.Time, time.Time) ([]entity.Finding, error) {
	return nil, nil
}

func (f *fakeFindings) QueryByRunAndTime(context.Context, string, time.Time, time.Time) ([]entity.Finding, error) {
	return nil, nil
}

type fakeReports struct {
	mu      sync.Mutex
	exports int
	err     error
}

func (f *fakeReports) ExportReport(_ context.Context, accountID, _ string, _ []entity.Finding, runID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.exports++
	return "reports/" + runID + "/" + accountID + "/fixed.json", nil
}

type notification struct {
	Severity string
	Scope    string
	Message  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (f *fakeNotifier) Notify(_ context.Context, severity, scope, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{severity, scope, message})
}

func testConfig() types.ScannerConfig {
	cfg := types.DefaultScannerConfig()
	cfg.ReportBucket = "scan-reports"
	cfg.AccountTimeout = time.Minute
	cfg.CheckTimeout = time.Second
	return cfg
}

func staticCheck(id string, pillar entity.Pillar, scope checks.Scope, findings ...entity.Finding) checks.Check {
	return checks.Check{
		ID:     id,
		Name:   "test " + id,
		Pillar: pillar,
		Scope:  scope,
		Run: func(context.Context, *checks.Clients, string) ([]entity.Finding, error) {
			out := make([]entity.Finding, len(findings))
			copy(out, findings)
			return out, nil
		},
	}
}

func newTestScanUseCase(catalog []checks.Check, findings *fakeFindings, reports *fakeReports, notifier *fakeNotifier, cfg types.ScannerConfig) *ScanUseCase {
	return &ScanUseCase{
		credentials: &fakeCredentials{},
		regions:     &fakeRegions{regions: []string{"us-east-1"}},
		findings:    findings,
		reports:     reports,
		notifier:    notifier,
		console:     console.NewConsole(),
		config:      cfg,
		catalog:     catalog,
		newClients:  checks.NewClients,
		now:         time.Now,
	}
}

func TestScanAccountStampsAndPersistsFindings(t *testing.T) {
	findings := &fakeFindings{}
	reports := &fakeReports{}
	notifier := &fakeNotifier{}

	catalog := []checks.Check{
		staticCheck("Security#RootAccessKeys", entity.PillarSecurity, checks.ScopeGlobal,
			entity.Finding{IsHighRisk: true, Evidence: "root has keys"}),
		staticCheck("Cost#UnassociatedEIPs", entity.PillarCost, checks.ScopeRegional,
			entity.Finding{Evidence: "1.2.3.4"}),
	}
	uc := newTestScanUseCase(catalog, findings, reports, notifier, testConfig())
	fixed := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return fixed }

	result := uc.ScanAccount(context.Background(), entity.ScanRequest{
		AccountID: "111111111111", AccountName: "workload-a", RunID: "run-1",
	})

	assert.Equal(t, entity.ScanCompleted, result.Status)
	assert.Equal(t, 2, result.FindingsCount)
	assert.Equal(t, 1, result.HighRiskCount)
	assert.NotEmpty(t, result.ReportKey)
	require.Len(t, findings.upserted, 2)

	global := findings.upserted[0]
	assert.Equal(t, "111111111111", global.AccountID)
	assert.Equal(t, "Security#RootAccessKeys", global.CheckID)
	assert.Equal(t, entity.PillarSecurity, global.Pillar)
	assert.Equal(t, entity.GlobalRegion, global.Region)
	assert.Equal(t, "run-1", global.RunID)
	assert.True(t, fixed.Equal(global.Timestamp))

	regional := findings.upserted[1]
	assert.Equal(t, "us-east-1", regional.Region)
	assert.Equal(t, "Cost#UnassociatedEIPs", regional.CheckID)
}

func TestScanAccountRunsGlobalChecksExactlyOnce(t *testing.T) {
	var mu sync.Mutex
	globalRuns := 0
	regionalRuns := map[string]int{}

	catalog := []checks.Check{
		{ID: "Security#RootAccessKeys", Name: "g", Pillar: entity.PillarSecurity, Scope: checks.ScopeGlobal,
			Run: func(_ context.Context, _ *checks.Clients, region string) ([]entity.Finding, error) {
				mu.Lock()
				defer mu.Unlock()
				globalRuns++
				assert.Equal(t, entity.GlobalRegion, region)
				return nil, nil
			}},
		{ID: "Cost#StoppedEC2Instances", Name: "r", Pillar: entity.PillarCost, Scope: checks.ScopeRegional,
			Run: func(_ context.Context, _ *checks.Clients, region string) ([]entity.Finding, error) {
				mu.Lock()
				defer mu.Unlock()
				regionalRuns[region]++
				return nil, nil
			}},
	}

	uc := newTestScanUseCase(catalog, &fakeFindings{}, &fakeReports{}, &fakeNotifier{}, testConfig())
	uc.regions = &fakeRegions{regions: []string{"us-east-1", "eu-west-1", "sa-east-1"}}

	result := uc.ScanAccount(context.Background(), entity.ScanRequest{AccountID: "111111111111", RunID: "run-1"})

	assert.Equal(t, entity.ScanCompleted, result.Status)
	assert.Equal(t, 1, globalRuns, "global checks must not repeat per region")
	assert.Equal(t, map[string]int{"us-east-1": 1, "eu-west-1": 1, "sa-east-1": 1}, regionalRuns)
}

func TestScanAccountIsolatesFailingAndPanickingChecks(t *testing.T) {
	findings := &fakeFindings{}

	catalog := []checks.Check{
		{ID: "Security#IAMAccessKeyAge", Name: "fails", Pillar: entity.PillarSecurity, Scope: checks.ScopeGlobal,
			Run: func(context.Context, *checks.Clients, string) ([]entity.Finding, error) {
				return nil, errors.New("api exploded")
			}},
		{ID: "Security#IAMUsersWithoutMFA", Name: "panics", Pillar: entity.PillarSecurity, Scope: checks.ScopeGlobal,
			Run: func(context.Context, *checks.Clients, string) ([]entity.Finding, error) {
				panic("nil dereference")
			}},
		staticCheck("Security#RootAccessKeys", entity.PillarSecurity, checks.ScopeGlobal,
			entity.Finding{Evidence: "still collected"}),
	}

	uc := newTestScanUseCase(catalog, findings, &fakeReports{}, &fakeNotifier{}, testConfig())
	result := uc.ScanAccount(context.Background(), entity.ScanRequest{AccountID: "111111111111", RunID: "run-1"})

	assert.Equal(t, entity.ScanCompleted, result.Status, "check failures must not fail the unit")
	assert.Equal(t, 1, result.FindingsCount)
	assert.Len(t, result.Diagnostics, 2)
	require.Len(t, findings.upserted, 1)
	assert.Equal(t, "still collected", findings.upserted[0].Evidence)
}

func TestScanAccountUnscannableRecordsSystemFinding(t *testing.T) {
	findings := &fakeFindings{}
	reports := &fakeReports{}
	notifier := &fakeNotifier{}

	catalogRuns := 0
	catalog := []checks.Check{
		{ID: "Security#RootAccessKeys", Name: "g", Pillar: entity.PillarSecurity, Scope: checks.ScopeGlobal,
			Run: func(context.Context, *checks.Clients, string) ([]entity.Finding, error) {
				catalogRuns++
				return nil, nil
			}},
	}

	uc := newTestScanUseCase(catalog, findings, reports, notifier, testConfig())
	uc.credentials = &fakeCredentials{err: &types.AuthError{
		AccountID: "222222222222", Code: "AccessDenied", Err: errors.New("not authorized"),
	}}

	result := uc.ScanAccount(context.Background(), entity.ScanRequest{AccountID: "222222222222", RunID: "run-1"})

	assert.Equal(t, entity.ScanUnscannable, result.Status)
	assert.NotEmpty(t, result.Error)
	assert.Zero(t, catalogRuns, "catalog must not run without credentials")
	assert.Zero(t, reports.exports)

	require.Len(t, findings.upserted, 1)
	system := findings.upserted[0]
	assert.Equal(t, roleAssumptionCheckID, system.CheckID)
	assert.Equal(t, entity.PillarSystem, system.Pillar)
	assert.True(t, system.IsHighRisk)
	assert.Equal(t, entity.GlobalRegion, system.Region)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "ERROR", notifier.sent[0].Severity)
	assert.Equal(t, "222222222222", notifier.sent[0].Scope)
}

func TestScanAccountDryRunPersistsNothing(t *testing.T) {
	findings := &fakeFindings{}
	reports := &fakeReports{}

	cfg := testConfig()
	cfg.DryRun = true
	catalog := []checks.Check{
		staticCheck("Cost#UnattachedEBSVolumes", entity.PillarCost, checks.ScopeRegional,
			entity.Finding{Evidence: "vol-1"}),
	}

	uc := newTestScanUseCase(catalog, findings, reports, &fakeNotifier{}, cfg)
	result := uc.ScanAccount(context.Background(), entity.ScanRequest{AccountID: "111111111111", RunID: "run-1"})

	assert.Equal(t, entity.ScanCompleted, result.Status)
	assert.Equal(t, 1, result.FindingsCount)
	assert.Empty(t, findings.upserted)
	assert.Zero(t, reports.exports)
}

func TestScanAccountAllUpsertsFailingFailsTheUnit(t *testing.T) {
	findings := &fakeFindings{err: errors.New("table gone")}
	notifier := &fakeNotifier{}

	catalog := []checks.Check{
		staticCheck("Cost#UnattachedEBSVolumes", entity.PillarCost, checks.ScopeRegional,
			entity.Finding{Evidence: "vol-1"}),
	}

	uc := newTestScanUseCase(catalog, findings, &fakeReports{}, notifier, testConfig())
	result := uc.ScanAccount(context.Background(), entity.ScanRequest{AccountID: "111111111111", RunID: "run-1"})

	assert.Equal(t, entity.ScanFailed, result.Status, "a unit whose output was fully lost must not report success")
	assert.NotEmpty(t, result.Diagnostics)
	require.NotEmpty(t, notifier.sent)
	assert.Equal(t, "ERROR", notifier.sent[0].Severity)
}

func TestScanAccountExportFailureDoesNotFailUnit(t *testing.T) {
	findings := &fakeFindings{}
	reports := &fakeReports{err: errors.New("bucket denied")}
	notifier := &fakeNotifier{}

	catalog := []checks.Check{
		staticCheck("Cost#UnattachedEBSVolumes", entity.PillarCost, checks.ScopeRegional,
			entity.Finding{Evidence: "vol-1"}),
	}

	uc := newTestScanUseCase(catalog, findings, reports, notifier, testConfig())
	result := uc.ScanAccount(context.Background(), entity.ScanRequest{AccountID: "111111111111", RunID: "run-1"})

	assert.Equal(t, entity.ScanCompleted, result.Status, "findings are already persisted; export is best effort")
	assert.Empty(t, result.ReportKey)
	assert.Len(t, findings.upserted, 1)
	assert.NotEmpty(t, result.Diagnostics)
	require.NotEmpty(t, notifier.sent)
}
