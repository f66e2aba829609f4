package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
	"github.com/diillson/aws-pillar-scanner-go/pkg/version"
)

// ScanRunner executa o scanner com a configuração de arquivo (pode ser nil)
// e os argumentos de linha de comando já analisados. A composição dos
// adaptadores AWS acontece em quem fornece o runner, não aqui.
type ScanRunner func(ctx context.Context, fileConfig *types.Config, args *types.CLIArgs) error

// CLIApp represents the command-line interface application.
type CLIApp struct {
	rootCmd    *cobra.Command
	configRepo repository.ConfigRepository
	runner     ScanRunner
	version    string
}

// NewCLIApp cria uma nova aplicação CLI.
func NewCLIApp(versionStr string) *CLIApp {
	app := &CLIApp{
		version: versionStr,
	}

	// Obtem a versão formatada
	formattedVersion := version.FormatVersion()

	rootCmd := &cobra.Command{
		Use:     "aws-pillar-scanner",
		Short:   "Multi-account AWS Well-Architected pillar scanner",
		Version: formattedVersion,
		RunE:    app.runCommand,
	}

	// Personaliza a template para incluir mais informações de versão
	rootCmd.SetVersionTemplate(`{{printf "AWS Pillar Scanner version: %s\n" .Version}}`)

	// Adiciona flags de linha de comando
	rootCmd.PersistentFlags().StringP("config-file", "C", "", "Path to a TOML, YAML, or JSON configuration file")
	rootCmd.PersistentFlags().StringP("account", "a", "", "Scan a single AWS account id")
	rootCmd.PersistentFlags().Bool("all", false, "Discover the organization and scan every active account in-process")
	rootCmd.PersistentFlags().Bool("discover", false, "Discover the organization and fan out through the scan Lambda")
	rootCmd.PersistentFlags().StringSliceP("regions", "r", nil, "Restrict regional checks to these regions (comma-separated)")
	rootCmd.PersistentFlags().String("pillar", "", "Query stored findings for a pillar: Security, Reliability, Performance, Cost, Sustainability")
	rootCmd.PersistentFlags().Int("since-days", 7, "Look-back window in days for findings queries")
	rootCmd.PersistentFlags().String("run-id", "", "Query stored findings produced by a specific run")
	rootCmd.PersistentFlags().StringP("report-name", "n", "pillar-scan", "Specify the base name for local report files (without extension)")
	rootCmd.PersistentFlags().StringSliceP("report-type", "y", nil, "Write local report files: csv, json, pdf")
	rootCmd.PersistentFlags().StringP("dir", "d", "", "Directory to save local report files (default: current directory)")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Run checks without persisting findings or dispatching scans")
	rootCmd.PersistentFlags().IntP("concurrent", "j", 4, "Accounts scanned concurrently in --all mode")

	app.rootCmd = rootCmd
	return app
}

// Execute runs the CLI application.
func (app *CLIApp) Execute() error {
	return app.rootCmd.Execute()
}

// SetConfigRepository sets the configuration loader for the CLI app.
func (app *CLIApp) SetConfigRepository(repo repository.ConfigRepository) {
	app.configRepo = repo
}

// SetRunner sets the scan runner invoked after argument parsing.
func (app *CLIApp) SetRunner(runner ScanRunner) {
	app.runner = runner
}

// parseArgs parses command-line arguments into a CLIArgs struct.
func (app *CLIApp) parseArgs() (*types.CLIArgs, error) {
	configFile, _ := app.rootCmd.Flags().GetString("config-file")
	accountID, _ := app.rootCmd.Flags().GetString("account")
	all, _ := app.rootCmd.Flags().GetBool("all")
	discover, _ := app.rootCmd.Flags().GetBool("discover")
	regions, _ := app.rootCmd.Flags().GetStringSlice("regions")
	pillar, _ := app.rootCmd.Flags().GetString("pillar")
	sinceDays, _ := app.rootCmd.Flags().GetInt("since-days")
	runID, _ := app.rootCmd.Flags().GetString("run-id")
	reportName, _ := app.rootCmd.Flags().GetString("report-name")
	reportType, _ := app.rootCmd.Flags().GetStringSlice("report-type")
	dir, _ := app.rootCmd.Flags().GetString("dir")
	dryRun, _ := app.rootCmd.Flags().GetBool("dry-run")
	concurrent, _ := app.rootCmd.Flags().GetInt("concurrent")

	// Set default directory to current working directory if not specified
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = cwd
	} else {
		// Convert to absolute path
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		dir = absDir
	}

	args := &types.CLIArgs{
		ConfigFile: configFile,
		AccountID:  accountID,
		All:        all,
		Discover:   discover,
		Regions:    regions,
		Pillar:     pillar,
		SinceDays:  sinceDays,
		RunID:      runID,
		ReportName: reportName,
		ReportType: reportType,
		Dir:        dir,
		DryRun:     dryRun,
		Concurrent: concurrent,
	}

	return args, app.validateMode(args)
}

// validateMode garante que exatamente um modo de operação foi pedido.
func (app *CLIApp) validateMode(args *types.CLIArgs) error {
	modes := 0
	if args.AccountID != "" {
		modes++
	}
	if args.All {
		modes++
	}
	if args.Discover {
		modes++
	}
	if args.Pillar != "" || args.RunID != "" {
		modes++
	}

	switch modes {
	case 0:
		return errors.New("choose a mode: --account, --all, --discover, or a findings query with --pillar/--run-id")
	case 1:
		return nil
	default:
		return errors.New("--account, --all, --discover and findings queries are mutually exclusive")
	}
}

// runCommand é o ponto de entrada principal para o comando CLI.
func (app *CLIApp) runCommand(cmd *cobra.Command, args []string) error {
	// Exibe o banner de boas-vindas
	displayWelcomeBanner(app.version)

	// Verifica a versão mais recente disponível
	go version.CheckLatestVersion(app.version)

	// Analisa os argumentos da linha de comando
	cliArgs, err := app.parseArgs()
	if err != nil {
		return err
	}

	// Lida com o arquivo de configuração, se especificado
	var fileConfig *types.Config
	if cliArgs.ConfigFile != "" {
		fileConfig, err = app.configRepo.LoadConfigFile(cliArgs.ConfigFile)
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	return app.runner(ctx, fileConfig, cliArgs)
}
