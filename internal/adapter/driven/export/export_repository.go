package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
)

// ExportRepositoryImpl implementa o ExportRepository.
type ExportRepositoryImpl struct{}

// NewExportRepository cria uma nova implementação do ExportRepository.
func NewExportRepository() repository.ExportRepository {
	return &ExportRepositoryImpl{}
}

// Ordem fixa dos pilares nos relatórios locais.
var pillarOrder = []entity.Pillar{
	entity.PillarSecurity,
	entity.PillarReliability,
	entity.PillarPerformance,
	entity.PillarCost,
	entity.PillarSustainability,
	entity.PillarSystem,
}

// ExportFindingsToCSV grava os findings num CSV plano, um por linha.
func (r *ExportRepositoryImpl) ExportFindingsToCSV(findings []entity.Finding, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "csv")
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	headers := []string{
		"Account ID", "Pillar", "Check", "High Risk",
		"Region", "Evidence", "Monthly Impact (USD)", "Run ID", "Timestamp",
	}
	if err := writer.Write(headers); err != nil {
		return "", fmt.Errorf("error writing CSV header: %w", err)
	}

	for _, finding := range sortedByPillar(findings) {
		impact := ""
		if finding.CostImpact != nil {
			impact = fmt.Sprintf("%.2f", *finding.CostImpact)
		}
		highRisk := "no"
		if finding.IsHighRisk {
			highRisk = "yes"
		}
		record := []string{
			finding.AccountID,
			string(finding.Pillar),
			finding.CheckName,
			highRisk,
			finding.Region,
			finding.Evidence,
			impact,
			finding.RunID,
			finding.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("error writing CSV record: %w", err)
		}
	}

	return filepath.Abs(outputFilename)
}

// ExportFindingsToJSON grava os findings como um array JSON indentado.
func (r *ExportRepositoryImpl) ExportFindingsToJSON(findings []entity.Finding, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "json")
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(sortedByPillar(findings)); err != nil {
		return "", fmt.Errorf("error encoding JSON data: %w", err)
	}

	return filepath.Abs(outputFilename)
}

// ExportFindingsToPDF gera um relatório em PDF, uma página por conta, com
// os findings agrupados por pilar.
func (r *ExportRepositoryImpl) ExportFindingsToPDF(findings []entity.Finding, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "pdf")
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	headerColor := [3]int{192, 0, 0}
	headerTextColor := [3]int{255, 255, 255}
	sectionTitleColor := [3]int{0, 0, 0}
	bodyTextColor := [3]int{50, 50, 50}
	lineColor := [3]int{200, 200, 200}

	drawSection := func(title string, content string) {
		if content == "" {
			return
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(sectionTitleColor[0], sectionTitleColor[1], sectionTitleColor[2])
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(7)

		pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
		pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+190, pdf.GetY())
		pdf.Ln(4)

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.MultiCell(190, 5, tr(content), "", "L", false)
		pdf.Ln(8)
	}

	page := 0
	for _, accountID := range accountOrder(findings) {
		page++
		accountFindings := byAccount(findings, accountID)

		pdf.AddPage()

		// Cabeçalho
		pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
		pdf.SetTextColor(headerTextColor[0], headerTextColor[1], headerTextColor[2])
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 12, tr(fmt.Sprintf("  Pillar Scan Report: %s", accountID)), "", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.SetFillColor(240, 240, 240)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		highRisk := 0
		for _, finding := range accountFindings {
			if finding.IsHighRisk {
				highRisk++
			}
		}
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("  Findings: %d (%d high risk)", len(accountFindings), highRisk)), "", 1, "L", true, 0, "")
		pdf.Ln(10)

		// Seções por pilar — ordem consistente com o terminal
		for _, pillar := range pillarOrder {
			var lines []string
			for _, finding := range accountFindings {
				if finding.Pillar != pillar {
					continue
				}
				line := fmt.Sprintf("[%s] %s: %s", finding.Region, finding.CheckName, finding.Evidence)
				if finding.IsHighRisk {
					line = "(!) " + line
				}
				if finding.CostImpact != nil {
					line += fmt.Sprintf(" (~$%.2f/month)", *finding.CostImpact)
				}
				lines = append(lines, line)
			}
			drawSection(string(pillar), strings.Join(lines, "\n"))
		}

		// Rodapé
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		footerText := fmt.Sprintf("Pillar Scan Report | %s", time.Now().Format("2006-01-02"))
		pdf.CellFormat(0, 10, tr(footerText), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Page %d", page)), "", 0, "R", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(outputFilename); err != nil {
		return "", fmt.Errorf("error writing PDF file: %w", err)
	}

	return filepath.Abs(outputFilename)
}

// --- Funções Auxiliares ---

// generateFilename cria um nome de arquivo único com timestamp e garante que o diretório exista.
func generateFilename(base, dir, ext string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory '%s': %w", dir, err)
	}
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.%s", base, timestamp, ext)
	return filepath.Join(dir, filename), nil
}

// sortedByPillar ordena por conta, pilar (ordem fixa) e check, sem mutar a
// entrada.
func sortedByPillar(findings []entity.Finding) []entity.Finding {
	rank := make(map[entity.Pillar]int, len(pillarOrder))
	for i, pillar := range pillarOrder {
		rank[pillar] = i
	}

	sorted := make([]entity.Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].AccountID != sorted[j].AccountID {
			return sorted[i].AccountID < sorted[j].AccountID
		}
		if rank[sorted[i].Pillar] != rank[sorted[j].Pillar] {
			return rank[sorted[i].Pillar] < rank[sorted[j].Pillar]
		}
		return sorted[i].CheckID < sorted[j].CheckID
	})
	return sorted
}

func accountOrder(findings []entity.Finding) []string {
	seen := make(map[string]bool)
	var accounts []string
	for _, finding := range findings {
		if !seen[finding.AccountID] {
			seen[finding.AccountID] = true
			accounts = append(accounts, finding.AccountID)
		}
	}
	sort.Strings(accounts)
	return accounts
}

func byAccount(findings []entity.Finding, accountID string) []entity.Finding {
	var out []entity.Finding
	for _, finding := range sortedByPillar(findings) {
		if finding.AccountID == accountID {
			out = append(out, finding)
		}
	}
	return out
}
