package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/diillson/aws-pillar-scanner-go/internal/checks"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
)

// Finding sintético gravado quando a conta não pôde ser escaneada.
const roleAssumptionCheckID = "System#RoleAssumptionFailure"

// ScanUseCase executa o scan completo de uma conta: assume o role, resolve
// as regiões, roda o catálogo de checks, persiste os findings e exporta o
// relatório. Um check que falha nunca derruba a unidade; o erro vira
// diagnóstico e o restante do catálogo continua.
type ScanUseCase struct {
	credentials repository.CredentialRepository
	regions     repository.RegionRepository
	findings    repository.FindingsRepository
	reports     repository.ReportRepository
	notifier    repository.Notifier
	console     types.ConsoleInterface
	config      types.ScannerConfig

	catalog    []checks.Check
	newClients func(entity.Credentials) *checks.Clients
	now        func() time.Time
}

// NewScanUseCase cria um novo caso de uso de scan com o catálogo padrão.
func NewScanUseCase(
	credentials repository.CredentialRepository,
	regions repository.RegionRepository,
	findings repository.FindingsRepository,
	reports repository.ReportRepository,
	notifier repository.Notifier,
	console types.ConsoleInterface,
	config types.ScannerConfig,
) *ScanUseCase {
	return &ScanUseCase{
		credentials: credentials,
		regions:     regions,
		findings:    findings,
		reports:     reports,
		notifier:    notifier,
		console:     console,
		config:      config,
		catalog:     checks.Catalog(),
		newClients:  checks.NewClients,
		now:         time.Now,
	}
}

// ScanAccount executa a unidade de scan de uma conta, dentro do orçamento
// de tempo configurado. Sempre retorna um resultado, nunca entra em pânico.
func (uc *ScanUseCase) ScanAccount(ctx context.Context, request entity.ScanRequest) entity.ScanUnitResult {
	start := uc.now()
	result := entity.ScanUnitResult{
		AccountID:   request.AccountID,
		AccountName: request.AccountName,
		Status:      entity.ScanCompleted,
	}

	ctx, cancel := context.WithTimeout(ctx, uc.config.AccountTimeout)
	defer cancel()

	creds, err := uc.credentials.Assume(ctx, request.AccountID)
	if err != nil {
		return uc.markUnscannable(ctx, request, start, err)
	}

	regions, err := uc.regions.ResolveRegions(ctx, creds, uc.config.RegionAllowList)
	if err != nil {
		result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("region resolution: %v", err))
	}
	if len(regions) == 0 {
		result.Diagnostics = append(result.Diagnostics, "no scannable regions, only global checks ran")
	}

	clients := uc.newClients(creds)
	timestamp := uc.now().UTC()

	var collected []entity.Finding
	runUnit := func(check checks.Check, region string) {
		findings, err := uc.runCheck(ctx, check, clients, region)
		if err != nil {
			uc.console.LogWarning("conta %s: check %s em %s falhou: %v", request.AccountID, check.ID, region, err)
			result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("%s@%s: %v", check.ID, region, err))
			return
		}
		for _, finding := range findings {
			finding.AccountID = request.AccountID
			finding.CheckID = check.ID
			finding.Pillar = check.Pillar
			finding.CheckName = check.Name
			finding.Region = region
			finding.RunID = request.RunID
			finding.Timestamp = timestamp
			collected = append(collected, finding)
		}
	}

	// Checks globais rodam exatamente uma vez por conta.
	for _, check := range uc.catalog {
		if check.Scope == checks.ScopeGlobal {
			runUnit(check, entity.GlobalRegion)
		}
	}

	// Checks regionais rodam por região habilitada. O orçamento da conta é
	// verificado entre regiões: o que já coletou permanece válido.
	for _, region := range regions {
		if ctx.Err() != nil {
			result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("account budget exhausted before region %s", region))
			break
		}
		for _, check := range uc.catalog {
			if check.Scope == checks.ScopeRegional {
				runUnit(check, region)
			}
		}
	}

	result.FindingsCount = len(collected)
	for _, finding := range collected {
		if finding.IsHighRisk {
			result.HighRiskCount++
		}
	}

	if uc.config.DryRun {
		uc.console.LogInfo("dry-run: conta %s produziu %d findings (%d de alto risco), nada persistido",
			request.AccountID, result.FindingsCount, result.HighRiskCount)
		result.Duration = uc.now().Sub(start)
		return result
	}

	if failed := uc.persistFindings(ctx, collected, &result); failed > 0 && failed == len(collected) {
		// Nada foi persistido: a unidade rodou mas o resultado se perdeu.
		result.Status = entity.ScanFailed
		result.Error = "no findings could be persisted"
	}
	uc.exportReport(ctx, request, collected, &result)

	result.Duration = uc.now().Sub(start)
	return result
}

// runCheck isola um check: timeout próprio e recuperação de pânico, para
// que um check com bug nunca derrube a unidade.
func (uc *ScanUseCase) runCheck(ctx context.Context, check checks.Check, clients *checks.Clients, region string) (findings []entity.Finding, err error) {
	checkCtx, cancel := context.WithTimeout(ctx, uc.config.CheckTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = fmt.Errorf("check panicked: %v", r)
		}
	}()
	return check.Run(checkCtx, clients, region)
}

// markUnscannable registra o finding sintético de falha de acesso, escala a
// falha e encerra a unidade sem tocar no catálogo.
func (uc *ScanUseCase) markUnscannable(ctx context.Context, request entity.ScanRequest, start time.Time, cause error) entity.ScanUnitResult {
	uc.console.LogError("conta %s inacessível: %v", request.AccountID, cause)

	result := entity.ScanUnitResult{
		AccountID:   request.AccountID,
		AccountName: request.AccountName,
		Status:      entity.ScanUnscannable,
		Error:       cause.Error(),
	}

	finding := entity.Finding{
		AccountID:  request.AccountID,
		CheckID:    roleAssumptionCheckID,
		Pillar:     entity.PillarSystem,
		CheckName:  "Scanner could not assume the audit role",
		IsHighRisk: true,
		Evidence:   cause.Error(),
		Region:     entity.GlobalRegion,
		Timestamp:  uc.now().UTC(),
		RunID:      request.RunID,
	}
	if !uc.config.DryRun {
		if err := uc.findings.Upsert(ctx, finding); err != nil {
			result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("system finding upsert: %v", err))
		}
	}

	uc.notifier.Notify(ctx, repository.SeverityError, request.AccountID,
		fmt.Sprintf("account %s is unscannable: %v", request.AccountID, cause))

	result.Duration = uc.now().Sub(start)
	return result
}

// persistFindings grava cada finding individualmente: uma escrita falha
// vira diagnóstico e as demais continuam. Retorna quantas falharam.
func (uc *ScanUseCase) persistFindings(ctx context.Context, findings []entity.Finding, result *entity.ScanUnitResult) int {
	failed := 0
	for _, finding := range findings {
		if err := uc.findings.Upsert(ctx, finding); err != nil {
			failed++
			result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("upsert %s: %v", finding.CheckID, err))
		}
	}
	if failed > 0 {
		uc.notifier.Notify(ctx, repository.SeverityError, result.AccountID,
			fmt.Sprintf("account %s: %d of %d findings failed to persist", result.AccountID, failed, len(findings)))
	}
	return failed
}

// exportReport envia o relatório agregado por último, depois de os findings
// estarem persistidos. Sem bucket configurado o export é silenciosamente
// pulado (modo local).
func (uc *ScanUseCase) exportReport(ctx context.Context, request entity.ScanRequest, findings []entity.Finding, result *entity.ScanUnitResult) {
	if uc.config.ReportBucket == "" {
		return
	}

	key, err := uc.reports.ExportReport(ctx, request.AccountID, request.AccountName, findings, request.RunID)
	if err != nil {
		uc.console.LogWarning("conta %s: export do relatório falhou: %v", request.AccountID, err)
		result.Diagnostics = append(result.Diagnostics, fmt.Sprintf("report export: %v", err))
		uc.notifier.Notify(ctx, repository.SeverityError, request.AccountID,
			fmt.Sprintf("account %s: report export failed: %v", request.AccountID, err))
		return
	}
	result.ReportKey = key
}
