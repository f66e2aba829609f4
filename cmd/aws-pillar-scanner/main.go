package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	ddbclient "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	s3client "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"

	awsadapter "github.com/diillson/aws-pillar-scanner-go/internal/adapter/driven/aws"
	"github.com/diillson/aws-pillar-scanner-go/internal/adapter/driven/config"
	ddbadapter "github.com/diillson/aws-pillar-scanner-go/internal/adapter/driven/dynamodb"
	"github.com/diillson/aws-pillar-scanner-go/internal/adapter/driven/export"
	s3adapter "github.com/diillson/aws-pillar-scanner-go/internal/adapter/driven/s3"
	"github.com/diillson/aws-pillar-scanner-go/internal/adapter/driving/cli"
	"github.com/diillson/aws-pillar-scanner-go/internal/application/usecase"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
	"github.com/diillson/aws-pillar-scanner-go/pkg/console"
	"github.com/diillson/aws-pillar-scanner-go/pkg/version"
)

func main() {
	// Inicializa o aplicativo CLI
	app := cli.NewCLIApp(version.Version)
	app.SetConfigRepository(config.NewConfigRepository())
	app.SetRunner(runScanner)

	// Executa o aplicativo
	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runScanner compõe os adaptadores AWS a partir da configuração resolvida e
// executa o modo pedido na linha de comando.
func runScanner(ctx context.Context, fileConfig *types.Config, args *types.CLIArgs) error {
	consoleImpl := console.NewConsole()

	cfg := config.Resolve(fileConfig)
	if args.DryRun {
		cfg.DryRun = true
	}
	if len(args.Regions) > 0 {
		cfg.RegionAllowList = args.Regions
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	findingsRepo := ddbadapter.NewFindingsRepository(ddbclient.NewFromConfig(awsCfg), cfg.FindingsTable, cfg.MaxRetries)
	notifier := awsadapter.NewSNSNotifier(sns.NewFromConfig(awsCfg), cfg.AlertTopicARN, consoleImpl)

	// Modo de consulta: só lê a tabela de findings.
	if args.Pillar != "" || (args.RunID != "" && args.AccountID == "") {
		return runQuery(ctx, consoleImpl, findingsRepo, args)
	}

	// Modo fan-out por Lambda: descobre e despacha, sem escanear aqui.
	if args.Discover {
		if cfg.ScanFunctionName == "" {
			return errors.New("--discover requires scan_function_name in the configuration")
		}
		accountRepo := awsadapter.NewAccountRepository(organizations.NewFromConfig(awsCfg), cfg.MaxRetries)
		dispatcher := awsadapter.NewLambdaDispatcher(lambda.NewFromConfig(awsCfg), cfg.ScanFunctionName, cfg.DryRun, consoleImpl)

		summary, err := usecase.NewDiscoveryUseCase(accountRepo, dispatcher, notifier, consoleImpl).Run(ctx)
		renderSummary(consoleImpl, summary)
		return err
	}

	// Modos que escaneiam no próprio processo.
	credRepo := awsadapter.NewCredentialRepository(sts.NewFromConfig(awsCfg), cfg)
	regionRepo := awsadapter.NewRegionRepository(cfg.DefaultRegions)
	reportRepo := s3adapter.NewReportRepository(s3client.NewFromConfig(awsCfg), cfg.ReportBucket, cfg.MaxRetries)
	scanUC := usecase.NewScanUseCase(credRepo, regionRepo, findingsRepo, reportRepo, notifier, consoleImpl, cfg)

	var results []entity.ScanUnitResult
	runID := uuid.NewString()

	switch {
	case args.AccountID != "":
		results = append(results, scanUC.ScanAccount(ctx, entity.ScanRequest{
			AccountID: args.AccountID,
			RunID:     runID,
		}))

	case args.All:
		accountRepo := awsadapter.NewAccountRepository(organizations.NewFromConfig(awsCfg), cfg.MaxRetries)
		dispatcher := usecase.NewLocalDispatcher(scanUC, consoleImpl, args.Concurrent)
		discovery := usecase.NewDiscoveryUseCase(accountRepo, dispatcher, notifier, consoleImpl)

		summary, err := discovery.Run(ctx)
		if err != nil {
			return err
		}
		runID = summary.RunID
		results = dispatcher.Wait()
		renderSummary(consoleImpl, summary)
	}

	renderResults(consoleImpl, results)

	if len(args.ReportType) > 0 && !cfg.DryRun {
		findings, err := findingsRepo.QueryByRunAndTime(ctx, runID, time.Now().Add(-cfg.AccountTimeout-time.Hour), time.Now().Add(time.Minute))
		if err != nil {
			return fmt.Errorf("failed to read findings back for local export: %w", err)
		}
		exportLocal(consoleImpl, findings, args)
	}

	for _, result := range results {
		if result.Status == entity.ScanFailed || result.Status == entity.ScanUnscannable {
			return fmt.Errorf("account %s finished with status %s", result.AccountID, result.Status)
		}
	}
	return nil
}

// runQuery consulta a tabela de findings por pilar ou por run.
func runQuery(ctx context.Context, consoleImpl types.ConsoleInterface, findingsRepo repository.FindingsRepository, args *types.CLIArgs) error {
	to := time.Now()
	from := to.AddDate(0, 0, -args.SinceDays)

	var findings []entity.Finding
	var err error
	switch {
	case args.Pillar != "":
		pillar, ok := parsePillar(args.Pillar)
		if !ok {
			return fmt.Errorf("unknown pillar %q", args.Pillar)
		}
		findings, err = findingsRepo.QueryByPillarAndTime(ctx, pillar, from, to)
	default:
		findings, err = findingsRepo.QueryByRunAndTime(ctx, args.RunID, from, to)
	}
	if err != nil {
		return err
	}

	if len(findings) == 0 {
		consoleImpl.LogInfo("nenhum finding na janela de %d dias", args.SinceDays)
		return nil
	}

	renderFindings(consoleImpl, findings)
	if len(args.ReportType) > 0 {
		exportLocal(consoleImpl, findings, args)
	}
	return nil
}

func parsePillar(name string) (entity.Pillar, bool) {
	for _, pillar := range []entity.Pillar{
		entity.PillarSecurity,
		entity.PillarReliability,
		entity.PillarPerformance,
		entity.PillarCost,
		entity.PillarSustainability,
		entity.PillarSystem,
	} {
		if string(pillar) == name {
			return pillar, true
		}
	}
	return "", false
}

func renderSummary(consoleImpl types.ConsoleInterface, summary entity.DiscoverySummary) {
	table := consoleImpl.CreateTable()
	table.AddColumn("Run ID")
	table.AddColumn("Discovered")
	table.AddColumn("Active")
	table.AddColumn("Dispatched")
	table.AddColumn("Failed")
	table.AddRow(summary.RunID, summary.Discovered, summary.Active, summary.Dispatched, summary.DispatchFailed)
	consoleImpl.Println(table.Render())
}

func renderResults(consoleImpl types.ConsoleInterface, results []entity.ScanUnitResult) {
	if len(results) == 0 {
		return
	}

	table := consoleImpl.CreateTable()
	table.AddColumn("Account")
	table.AddColumn("Status")
	table.AddColumn("Findings")
	table.AddColumn("High Risk")
	table.AddColumn("Duration")
	table.AddColumn("Report")

	for _, result := range results {
		table.AddRow(
			result.AccountID,
			string(result.Status),
			result.FindingsCount,
			result.HighRiskCount,
			result.Duration.Round(time.Second).String(),
			result.ReportKey,
		)
	}
	consoleImpl.Println(table.Render())

	for _, result := range results {
		for _, diagnostic := range result.Diagnostics {
			consoleImpl.LogWarning("%s: %s", result.AccountID, diagnostic)
		}
	}
}

func renderFindings(consoleImpl types.ConsoleInterface, findings []entity.Finding) {
	table := consoleImpl.CreateTable()
	table.AddColumn("Account")
	table.AddColumn("Pillar")
	table.AddColumn("Check")
	table.AddColumn("Risk")
	table.AddColumn("Region")
	table.AddColumn("Evidence")

	for _, finding := range findings {
		risk := ""
		if finding.IsHighRisk {
			risk = console.BrightRed("HIGH")
		}
		table.AddRow(
			finding.AccountID,
			string(finding.Pillar),
			finding.CheckName,
			risk,
			finding.Region,
			finding.Evidence,
		)
	}
	consoleImpl.Println(table.Render())
}

// exportLocal grava os relatórios locais pedidos em --report-type.
func exportLocal(consoleImpl types.ConsoleInterface, findings []entity.Finding, args *types.CLIArgs) {
	exportRepo := export.NewExportRepository()

	for _, reportType := range args.ReportType {
		var path string
		var err error
		switch reportType {
		case "csv":
			path, err = exportRepo.ExportFindingsToCSV(findings, args.ReportName, args.Dir)
		case "json":
			path, err = exportRepo.ExportFindingsToJSON(findings, args.ReportName, args.Dir)
		case "pdf":
			path, err = exportRepo.ExportFindingsToPDF(findings, args.ReportName, args.Dir)
		default:
			consoleImpl.LogWarning("tipo de relatório desconhecido: %s", reportType)
			continue
		}
		if err != nil {
			consoleImpl.LogError("falha ao exportar %s: %v", reportType, err)
			continue
		}
		consoleImpl.LogSuccess("relatório %s gravado em %s", reportType, path)
	}
}
