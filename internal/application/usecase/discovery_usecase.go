package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
)

// DiscoveryUseCase enumera as contas da organização e despacha uma unidade
// de scan por conta ativa, todas sob o mesmo run id.
type DiscoveryUseCase struct {
	accounts   repository.AccountRepository
	dispatcher repository.Dispatcher
	notifier   repository.Notifier
	console    types.ConsoleInterface

	newRunID func() string
}

// NewDiscoveryUseCase cria um novo caso de uso de descoberta.
func NewDiscoveryUseCase(
	accounts repository.AccountRepository,
	dispatcher repository.Dispatcher,
	notifier repository.Notifier,
	console types.ConsoleInterface,
) *DiscoveryUseCase {
	return &DiscoveryUseCase{
		accounts:   accounts,
		dispatcher: dispatcher,
		notifier:   notifier,
		console:    console,
		newRunID:   uuid.NewString,
	}
}

// Run executa um ciclo de descoberta e fan-out. Falha de descoberta é fatal
// e escalada; falha de dispatch de uma conta não impede as demais.
func (uc *DiscoveryUseCase) Run(ctx context.Context) (entity.DiscoverySummary, error) {
	runID := uc.newRunID()
	summary := entity.DiscoverySummary{RunID: runID}

	uc.console.LogInfo("iniciando descoberta de contas (run %s)", runID)

	accounts, err := uc.accounts.Discover(ctx)
	if err != nil {
		uc.notifier.Notify(ctx, repository.SeverityCritical, "organization",
			fmt.Sprintf("account discovery failed, no scans dispatched: %v", err))
		return summary, fmt.Errorf("failed to discover accounts: %w", err)
	}
	summary.Discovered = len(accounts)

	for _, account := range accounts {
		if !account.Active() {
			uc.console.LogWarning("conta %s (%s) ignorada: status %s", account.ID, account.Name, account.Status)
			continue
		}
		summary.Active++

		if err := uc.dispatcher.Dispatch(ctx, account, runID); err != nil {
			summary.DispatchFailed++
			uc.console.LogError("dispatch da conta %s falhou: %v", account.ID, err)
			continue
		}
		summary.Dispatched++
	}

	if summary.Active == 0 {
		uc.console.LogWarning("nenhuma conta ativa entre as %d descobertas", summary.Discovered)
		return summary, types.ErrNoActiveAccounts
	}

	if summary.DispatchFailed > 0 {
		uc.notifier.Notify(ctx, repository.SeverityError, "organization",
			fmt.Sprintf("run %s: %d of %d active accounts failed to dispatch", runID, summary.DispatchFailed, summary.Active))
	}

	uc.console.LogSuccess("run %s: %d contas despachadas de %d ativas", runID, summary.Dispatched, summary.Active)
	return summary, nil
}
