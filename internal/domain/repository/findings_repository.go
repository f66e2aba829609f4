package repository

import (
	"context"
	"time"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

// FindingsRepository defines the interface for the keyed findings store.
//
// Upsert is idempotent last-writer-wins on (account_id, check_id): the most
// recent run replaces the stored row entirely. Because the key omits run_id,
// QueryByRunAndTime only returns findings that are still the latest write
// for their key.
type FindingsRepository interface {
	Upsert(ctx context.Context, finding entity.Finding) error
	QueryByPillarAndTime(ctx context.Context, pillar entity.Pillar, from, to time.Time) ([]entity.Finding, error)
	QueryByRunAndTime(ctx context.Context, runID string, from, to time.Time) ([]entity.Finding, error)
}

// ReportRepository defines the interface for the encrypted report export
// pipeline. ExportReport returns the object key written on success.
type ReportRepository interface {
	ExportReport(ctx context.Context, accountID, accountName string, findings []entity.Finding, runID string) (string, error)
}
