package repository

import (
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

// ExportRepository renders findings into local report files for operators.
type ExportRepository interface {
	ExportFindingsToCSV(findings []entity.Finding, filename, outputDir string) (string, error)
	ExportFindingsToJSON(findings []entity.Finding, filename, outputDir string) (string, error)
	ExportFindingsToPDF(findings []entity.Finding, filename, outputDir string) (string, error)
}
