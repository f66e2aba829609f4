package entity

import "time"

// PillarSummary counts the findings one pillar contributed to a report.
type PillarSummary struct {
	Pillar   Pillar `json:"pillar"`
	Findings int    `json:"findings"`
	HighRisk int    `json:"high_risk"`
}

// Report is the immutable per-account, per-run export artifact. New runs
// produce new object keys; a report is never mutated after upload.
type Report struct {
	AccountID     string          `json:"account_id"`
	AccountName   string          `json:"account_name"`
	RunID         string          `json:"run_id"`
	GeneratedAt   time.Time       `json:"generated_at"`
	TotalFindings int             `json:"total_findings"`
	TotalHighRisk int             `json:"total_high_risk"`
	Summary       []PillarSummary `json:"summary"`
	Findings      []Finding       `json:"findings"`
}

// pillarOrder fixa a ordem das seções do sumário.
var pillarOrder = []Pillar{
	PillarSecurity,
	PillarReliability,
	PillarPerformance,
	PillarCost,
	PillarSustainability,
	PillarSystem,
}

// NewReport aggregates one account's findings into a summary-plus-detail
// document, stamped with the generation instant.
func NewReport(accountID, accountName, runID string, findings []Finding, now time.Time) Report {
	counts := make(map[Pillar]*PillarSummary)
	report := Report{
		AccountID:   accountID,
		AccountName: accountName,
		RunID:       runID,
		GeneratedAt: now.UTC(),
		Findings:    findings,
	}

	for _, f := range findings {
		s, ok := counts[f.Pillar]
		if !ok {
			s = &PillarSummary{Pillar: f.Pillar}
			counts[f.Pillar] = s
		}
		s.Findings++
		report.TotalFindings++
		if f.IsHighRisk {
			s.HighRisk++
			report.TotalHighRisk++
		}
	}

	for _, p := range pillarOrder {
		if s, ok := counts[p]; ok {
			report.Summary = append(report.Summary, *s)
		}
	}

	return report
}
