package types

import "time"

// Config represents the scanner configuration that can be loaded from a file.
type Config struct {
	RoleName         string   `json:"role_name" yaml:"role_name" toml:"role_name"`
	ExternalID       string   `json:"external_id" yaml:"external_id" toml:"external_id"`
	SessionDuration  int      `json:"session_duration" yaml:"session_duration" toml:"session_duration"`
	DefaultRegions   []string `json:"default_regions" yaml:"default_regions" toml:"default_regions"`
	RegionAllowList  []string `json:"region_allowlist" yaml:"region_allowlist" toml:"region_allowlist"`
	FindingsTable    string   `json:"findings_table" yaml:"findings_table" toml:"findings_table"`
	ReportBucket     string   `json:"report_bucket" yaml:"report_bucket" toml:"report_bucket"`
	AlertTopicARN    string   `json:"alert_topic_arn" yaml:"alert_topic_arn" toml:"alert_topic_arn"`
	ScanFunctionName string   `json:"scan_function_name" yaml:"scan_function_name" toml:"scan_function_name"`
	AccountTimeout   int      `json:"account_timeout_seconds" yaml:"account_timeout_seconds" toml:"account_timeout_seconds"`
	CheckTimeout     int      `json:"check_timeout_seconds" yaml:"check_timeout_seconds" toml:"check_timeout_seconds"`
	MaxRetries       int      `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
	DryRun           bool     `json:"dry_run" yaml:"dry_run" toml:"dry_run"`
	ReportName       string   `json:"report_name" yaml:"report_name" toml:"report_name"`
	ReportType       []string `json:"report_type" yaml:"report_type" toml:"report_type"`
	Dir              string   `json:"dir" yaml:"dir" toml:"dir"`
}

// ScannerConfig is the resolved runtime configuration after merging file,
// environment and defaults.
type ScannerConfig struct {
	RoleName         string
	ExternalID       string
	SessionDuration  time.Duration
	DefaultRegions   []string
	RegionAllowList  []string
	FindingsTable    string
	ReportBucket     string
	AlertTopicARN    string
	ScanFunctionName string
	AccountTimeout   time.Duration
	CheckTimeout     time.Duration
	MaxRetries       int
	DryRun           bool
}

// DefaultScannerConfig retorna a configuração base usada quando nem arquivo
// nem ambiente definem um valor.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		RoleName:        "PillarScannerRole",
		SessionDuration: 1 * time.Hour,
		DefaultRegions:  []string{"us-east-1", "us-east-2", "us-west-1", "us-west-2", "eu-west-1", "eu-central-1"},
		FindingsTable:   "pillar-scanner-findings",
		AccountTimeout:  12 * time.Minute,
		CheckTimeout:    60 * time.Second,
		MaxRetries:      4,
	}
}
