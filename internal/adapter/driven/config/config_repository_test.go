package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigFileTOML(t *testing.T) {
	path := writeFile(t, "scanner.toml", `
role_name = "AuditRole"
external_id = "org-secret"
findings_table = "findings"
region_allowlist = ["us-east-1", "eu-west-1"]
`)

	repo := NewConfigRepository()
	cfg, err := repo.LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "AuditRole", cfg.RoleName)
	assert.Equal(t, "org-secret", cfg.ExternalID)
	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, cfg.RegionAllowList)
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := writeFile(t, "scanner.yaml", `
role_name: AuditRole
report_bucket: scan-reports
session_duration: 1800
dry_run: true
`)

	repo := NewConfigRepository()
	cfg, err := repo.LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "scan-reports", cfg.ReportBucket)
	assert.Equal(t, 1800, cfg.SessionDuration)
	assert.True(t, cfg.DryRun)
}

func TestLoadConfigFileJSON(t *testing.T) {
	path := writeFile(t, "scanner.json", `{"role_name": "AuditRole", "max_retries": 7}`)

	repo := NewConfigRepository()
	cfg, err := repo.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxRetries)
}

func TestLoadConfigFileUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "scanner.ini", "role_name=AuditRole")

	repo := NewConfigRepository()
	_, err := repo.LoadConfigFile(path)
	assert.Error(t, err)
}

func TestResolvePrecedenceEnvOverFileOverDefaults(t *testing.T) {
	t.Setenv(envRoleName, "EnvRole")
	t.Setenv(envReportBucket, "env-bucket")

	file := &types.Config{
		RoleName:        "FileRole",
		FindingsTable:   "file-table",
		CheckTimeout:    30,
		SessionDuration: 1800,
	}

	cfg := Resolve(file)

	assert.Equal(t, "EnvRole", cfg.RoleName, "environment wins over file")
	assert.Equal(t, "env-bucket", cfg.ReportBucket)
	assert.Equal(t, "file-table", cfg.FindingsTable, "file wins over defaults")
	assert.Equal(t, 30*time.Second, cfg.CheckTimeout)
	assert.Equal(t, 30*time.Minute, cfg.SessionDuration)
	assert.Equal(t, types.DefaultScannerConfig().AccountTimeout, cfg.AccountTimeout, "untouched values keep defaults")
}

func TestResolveWithoutFileUsesDefaults(t *testing.T) {
	cfg := Resolve(nil)
	defaults := types.DefaultScannerConfig()

	assert.Equal(t, defaults.RoleName, cfg.RoleName)
	assert.Equal(t, defaults.DefaultRegions, cfg.DefaultRegions)
	assert.Equal(t, defaults.MaxRetries, cfg.MaxRetries)
}
