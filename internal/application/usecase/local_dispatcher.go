package usecase

import (
	"context"
	"sort"
	"sync"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
)

// AccountScanner é o que o dispatcher local precisa do engine de scan.
type AccountScanner interface {
	ScanAccount(ctx context.Context, request entity.ScanRequest) entity.ScanUnitResult
}

// LocalDispatcher executa as unidades de scan em goroutines no próprio
// processo, limitadas por um semáforo. É o substituto do fan-out Lambda
// quando o scanner roda pela CLI.
type LocalDispatcher struct {
	scanner     AccountScanner
	console     types.ConsoleInterface
	concurrency chan struct{}

	wg      sync.WaitGroup
	mu      sync.Mutex
	results []entity.ScanUnitResult
}

// NewLocalDispatcher cria um dispatcher local com o limite de concorrência
// informado (mínimo 1).
func NewLocalDispatcher(scanner AccountScanner, console types.ConsoleInterface, concurrency int) *LocalDispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &LocalDispatcher{
		scanner:     scanner,
		console:     console,
		concurrency: make(chan struct{}, concurrency),
	}
}

// Dispatch agenda o scan da conta e retorna imediatamente; o resultado sai
// por Wait. O erro de aceitação é sempre nil: em processo não há fila que
// recuse.
func (d *LocalDispatcher) Dispatch(ctx context.Context, account entity.AccountMetadata, runID string) error {
	request := entity.ScanRequest{AccountID: account.ID, AccountName: account.Name, RunID: runID}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		d.concurrency <- struct{}{}
		defer func() { <-d.concurrency }()

		result := d.scanner.ScanAccount(ctx, request)

		d.mu.Lock()
		d.results = append(d.results, result)
		d.mu.Unlock()
	}()
	return nil
}

// Wait bloqueia até todas as unidades despachadas terminarem e retorna os
// resultados ordenados por conta.
func (d *LocalDispatcher) Wait() []entity.ScanUnitResult {
	d.wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	results := make([]entity.ScanUnitResult, len(d.results))
	copy(results, d.results)
	sort.Slice(results, func(i, j int) bool { return results[i].AccountID < results[j].AccountID })
	return results
}

var _ repository.Dispatcher = (*LocalDispatcher)(nil)
