package entity

import "time"

// Pillar is the fixed category a check belongs to.
type Pillar string

const (
	PillarSecurity       Pillar = "Security"
	PillarReliability    Pillar = "Reliability"
	PillarPerformance    Pillar = "Performance"
	PillarCost           Pillar = "Cost"
	PillarSustainability Pillar = "Sustainability"
	// PillarSystem marca findings sintéticos do próprio scanner
	// (ex.: falha de assume-role), não de um check do catálogo.
	PillarSystem Pillar = "System"
)

// Finding is the atomic unit of scanner output.
//
// The store key is (AccountID, CheckID) only: the latest run overwrites the
// previous row for the same check on the same account. Region and RunID are
// attributes, not part of the key.
type Finding struct {
	AccountID    string            `json:"account_id" dynamodbav:"account_id"`
	CheckID      string            `json:"check_id" dynamodbav:"check_id"`
	Pillar       Pillar            `json:"pillar" dynamodbav:"pillar"`
	CheckName    string            `json:"check_name" dynamodbav:"check_name"`
	IsHighRisk   bool              `json:"is_high_risk" dynamodbav:"is_high_risk"`
	Evidence     string            `json:"evidence" dynamodbav:"evidence"`
	Region       string            `json:"region" dynamodbav:"region"`
	Timestamp    time.Time         `json:"timestamp" dynamodbav:"timestamp,unixtime"`
	RunID        string            `json:"run_id" dynamodbav:"run_id"`
	CostImpact   *float64          `json:"cost_impact,omitempty" dynamodbav:"cost_impact,omitempty"`
	ResourceTags map[string]string `json:"resource_tags,omitempty" dynamodbav:"resource_tags,omitempty"`
}

// GlobalRegion is recorded on findings produced by account-wide checks.
const GlobalRegion = "global"
