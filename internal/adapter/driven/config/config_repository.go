package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
)

// ConfigRepositoryImpl implementa o ConfigRepository.
type ConfigRepositoryImpl struct{}

// NewConfigRepository cria uma nova implementação do ConfigRepository.
func NewConfigRepository() repository.ConfigRepository {
	return &ConfigRepositoryImpl{}
}

// LoadConfigFile carrega um arquivo de configuração TOML, YAML ou JSON.
func (r *ConfigRepositoryImpl) LoadConfigFile(filePath string) (*types.Config, error) {
	fileExtension := filepath.Ext(filePath)
	fileExtension = strings.ToLower(fileExtension)

	// Verifica se o arquivo existe
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("error accessing config file: %w", err)
	}

	if fileInfo.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", filePath)
	}

	// Lê o arquivo
	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config types.Config

	switch fileExtension {
	case ".toml":
		if err := toml.Unmarshal(fileData, &config); err != nil {
			return nil, fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(fileData, &config); err != nil {
			return nil, fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(fileData, &config); err != nil {
			return nil, fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", fileExtension)
	}

	return &config, nil
}

// Variáveis de ambiente reconhecidas. Elas vencem o arquivo, e o arquivo
// vence os defaults.
const (
	envRoleName      = "PILLAR_SCANNER_ROLE_NAME"
	envExternalID    = "PILLAR_SCANNER_EXTERNAL_ID"
	envFindingsTable = "PILLAR_SCANNER_FINDINGS_TABLE"
	envReportBucket  = "PILLAR_SCANNER_REPORT_BUCKET"
	envAlertTopicARN = "PILLAR_SCANNER_ALERT_TOPIC_ARN"
	envScanFunction  = "PILLAR_SCANNER_SCAN_FUNCTION"
	envMaxRetries    = "PILLAR_SCANNER_MAX_RETRIES"
)

// Resolve funde defaults, arquivo (opcional) e ambiente na configuração de
// runtime do scanner.
func Resolve(file *types.Config) types.ScannerConfig {
	cfg := types.DefaultScannerConfig()

	if file != nil {
		if file.RoleName != "" {
			cfg.RoleName = file.RoleName
		}
		if file.ExternalID != "" {
			cfg.ExternalID = file.ExternalID
		}
		if file.SessionDuration > 0 {
			cfg.SessionDuration = time.Duration(file.SessionDuration) * time.Second
		}
		if len(file.DefaultRegions) > 0 {
			cfg.DefaultRegions = file.DefaultRegions
		}
		if len(file.RegionAllowList) > 0 {
			cfg.RegionAllowList = file.RegionAllowList
		}
		if file.FindingsTable != "" {
			cfg.FindingsTable = file.FindingsTable
		}
		if file.ReportBucket != "" {
			cfg.ReportBucket = file.ReportBucket
		}
		if file.AlertTopicARN != "" {
			cfg.AlertTopicARN = file.AlertTopicARN
		}
		if file.ScanFunctionName != "" {
			cfg.ScanFunctionName = file.ScanFunctionName
		}
		if file.AccountTimeout > 0 {
			cfg.AccountTimeout = time.Duration(file.AccountTimeout) * time.Second
		}
		if file.CheckTimeout > 0 {
			cfg.CheckTimeout = time.Duration(file.CheckTimeout) * time.Second
		}
		if file.MaxRetries > 0 {
			cfg.MaxRetries = file.MaxRetries
		}
		cfg.DryRun = cfg.DryRun || file.DryRun
	}

	if v := os.Getenv(envRoleName); v != "" {
		cfg.RoleName = v
	}
	if v := os.Getenv(envExternalID); v != "" {
		cfg.ExternalID = v
	}
	if v := os.Getenv(envFindingsTable); v != "" {
		cfg.FindingsTable = v
	}
	if v := os.Getenv(envReportBucket); v != "" {
		cfg.ReportBucket = v
	}
	if v := os.Getenv(envAlertTopicARN); v != "" {
		cfg.AlertTopicARN = v
	}
	if v := os.Getenv(envScanFunction); v != "" {
		cfg.ScanFunctionName = v
	}
	if v := os.Getenv(envMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRetries = n
		}
	}

	return cfg
}
