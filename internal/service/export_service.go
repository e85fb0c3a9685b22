package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pointwatch/swtd-api/internal/models"
	"github.com/pointwatch/swtd-api/pkg/export"
	"github.com/pointwatch/swtd-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds compliance report datasets and persists rendered files.
type ExportService struct {
	dashboards  *DashboardService
	submissions dashboardSubmissionRepository
	users       clearanceUserRepository
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(dashboards *DashboardService, submissions dashboardSubmissionRepository, users clearanceUserRepository, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		dashboards:  dashboards,
		submissions: submissions,
		users:       users,
		storage:     store,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/reports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	termPart := sanitizeFilename(job.Params.TermID)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), termPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeDepartmentCompliance:
		return s.buildDepartmentDataset(ctx, job.Params)
	case models.ReportTypeHRCompliance:
		return s.buildHRDataset(ctx, job.Params)
	case models.ReportTypeEmployeeHistory:
		return s.buildEmployeeHistoryDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

var clearanceHeaders = []string{"Employee", "Department", "Valid Points", "Pending Points", "Required Points", "Cleared", "Overridden"}

func clearanceRowsToDataset(rows []models.ClearanceRow) []map[string]string {
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]string{
			"Employee":        row.EmployeeName,
			"Department":      row.DepartmentName,
			"Valid Points":    fmt.Sprintf("%.2f", row.ValidPoints),
			"Pending Points":  fmt.Sprintf("%.2f", row.PendingPoints),
			"Required Points": fmt.Sprintf("%.2f", row.RequiredPoints),
			"Cleared":         fmt.Sprintf("%t", row.IsCleared),
			"Overridden":      fmt.Sprintf("%t", row.Overridden),
		})
	}
	return out
}

func (s *ExportService) buildDepartmentDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	if params.DepartmentID == nil || *params.DepartmentID == "" {
		return export.Dataset{}, "", fmt.Errorf("departmentId is required for department reports")
	}
	board, _, err := s.dashboards.Department(ctx, *params.DepartmentID, params.TermID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataset := export.Dataset{
		Headers: clearanceHeaders,
		Rows:    clearanceRowsToDataset(board.Rows),
	}
	title := fmt.Sprintf("Department Compliance Report %s", board.DepartmentName)
	return dataset, title, nil
}

func (s *ExportService) buildHRDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	board, _, err := s.dashboards.HR(ctx, params.TermID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataset := export.Dataset{
		Headers: clearanceHeaders,
		Rows:    clearanceRowsToDataset(board.Rows),
	}
	title := fmt.Sprintf("Institution Compliance Report %s", params.TermID)
	return dataset, title, nil
}

func (s *ExportService) buildEmployeeHistoryDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	if params.EmployeeID == nil || *params.EmployeeID == "" {
		return export.Dataset{}, "", fmt.Errorf("employeeId is required for history reports")
	}
	employee, err := s.users.FindByID(ctx, *params.EmployeeID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	submissions, err := s.submissions.ListByAuthorAndTerm(ctx, *params.EmployeeID, params.TermID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	rows := make([]map[string]string, 0, len(submissions))
	for _, sub := range submissions {
		rows = append(rows, map[string]string{
			"Title":     sub.Title,
			"Category":  sub.CategoryName,
			"Venue":     sub.Venue,
			"Role":      sub.Role,
			"Days":      fmt.Sprintf("%d", len(sub.Dates)),
			"Points":    fmt.Sprintf("%.2f", sub.Points),
			"Status":    string(sub.ValidationStatus),
			"Logged At": sub.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Title", "Category", "Venue", "Role", "Days", "Points", "Status", "Logged At"},
		Rows:    rows,
	}
	title := fmt.Sprintf("SWTD History %s", employee.FullName)
	return dataset, title, nil
}
