package entity

import "time"

// ScanStatus is the terminal state of a scan unit.
type ScanStatus string

const (
	ScanCompleted   ScanStatus = "completed"
	ScanUnscannable ScanStatus = "unscannable"
	ScanFailed      ScanStatus = "failed"
)

// ScanUnitResult is the per-account outcome returned by the execution engine.
// It is ephemeral: returned to the dispatcher/caller, never persisted here.
type ScanUnitResult struct {
	AccountID     string        `json:"account_id"`
	AccountName   string        `json:"account_name"`
	FindingsCount int           `json:"findings_count"`
	HighRiskCount int           `json:"high_risk_count"`
	Duration      time.Duration `json:"duration"`
	Status        ScanStatus    `json:"status"`
	Error         string        `json:"error,omitempty"`
	ReportKey     string        `json:"report_key,omitempty"`
	// Diagnostics acumula erros não-fatais (checks isolados, upserts
	// falhos) sem interromper a unidade.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// ScanRequest is the payload handed to the dispatch mechanism, one per
// active account, all sharing the discovery run id.
type ScanRequest struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	RunID       string `json:"run_id"`
}
