package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gradtrack/mentor-api/internal/models"
	appErrors "github.com/gradtrack/mentor-api/pkg/errors"
	"github.com/gradtrack/mentor-api/pkg/export"
	"github.com/gradtrack/mentor-api/pkg/storage"
)

// ExportFormat enumerates supported export file formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportType enumerates the datasets that can be exported.
type ExportType string

const (
	ExportTypeTasks       ExportType = "tasks"
	ExportTypeMentorStats ExportType = "mentor-stats"
)

// ExportRequest describes one export invocation.
type ExportRequest struct {
	Type     ExportType
	Format   ExportFormat
	MentorID string
	// Filter narrows the task dataset; ignored for mentor stats.
	Filter models.TaskFilter
}

type exportTaskReader interface {
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error)
}

type exportStatsReader interface {
	GetStoredStats(ctx context.Context, mentorID string) (*models.MentorTasksStats, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       ExportFormat
	ExpiresAt    time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService builds mentoring datasets and persists rendered files behind
// signed download URLs.
type ExportService struct {
	tasks  exportTaskReader
	stats  exportStatsReader
	store  fileStorage
	csv    csvRenderer
	pdf    pdfRenderer
	signer *storage.SignedURLSigner
	logger *zap.Logger
	cfg    ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(tasks exportTaskReader, stats exportStatsReader, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		tasks:  tasks,
		stats:  stats,
		store:  store,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		signer: signer,
		logger: logger,
		cfg:    cfg,
	}
}

// Generate builds the requested dataset and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	dataset, title, err := s.buildDataset(ctx, req)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch req.Format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", req.Format))
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(req)
	relPath, err := s.store.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	// The token format is dot-delimited, so the id must not carry the file
	// extension. The filename stays embedded in the stored path.
	token, expiresAt, err := s.signer.Generate(uuid.NewString(), relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       req.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (id, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.store.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.store.Delete(relPath)
}

func (s *ExportService) buildDataset(ctx context.Context, req ExportRequest) (export.Dataset, string, error) {
	switch req.Type {
	case ExportTypeTasks:
		return s.buildTaskDataset(ctx, req)
	case ExportTypeMentorStats:
		return s.buildMentorStatsDataset(ctx, req)
	default:
		return export.Dataset{}, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export type %s", req.Type))
	}
}

func (s *ExportService) buildTaskDataset(ctx context.Context, req ExportRequest) (export.Dataset, string, error) {
	filter := req.Filter
	if req.MentorID != "" {
		filter.MentorID = req.MentorID
	}
	filter.Page = 1
	filter.PageSize = 10000

	tasks, _, err := s.tasks.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}

	rows := make([]map[string]string, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, map[string]string{
			"Title":        task.Title,
			"Week":         fmt.Sprintf("%d", task.Week),
			"Status":       string(task.Status),
			"Topics Total": fmt.Sprintf("%d", task.Total),
			"Completed":    fmt.Sprintf("%d", task.Completed),
			"Overdue":      fmt.Sprintf("%d", task.Overdue),
			"Grade":        task.Grade,
			"Due Date":     formatExportTime(task.DueDate),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Title", "Week", "Status", "Topics Total", "Completed", "Overdue", "Grade", "Due Date"},
		Rows:    rows,
	}
	return dataset, "Task Report", nil
}

func (s *ExportService) buildMentorStatsDataset(ctx context.Context, req ExportRequest) (export.Dataset, string, error) {
	stats, err := s.stats.GetStoredStats(ctx, req.MentorID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	rows := []map[string]string{
		{"Metric": "Tasks Not Started", "Value": fmt.Sprintf("%d", stats.TaskStats.NotStarted)},
		{"Metric": "Tasks In Progress", "Value": fmt.Sprintf("%d", stats.TaskStats.InProgress)},
		{"Metric": "Tasks Completed", "Value": fmt.Sprintf("%d", stats.TaskStats.Completed)},
		{"Metric": "Tasks Total", "Value": fmt.Sprintf("%d", stats.TaskStats.Total)},
		{"Metric": "Topics Not Started", "Value": fmt.Sprintf("%d", stats.TopicStats.NotStarted)},
		{"Metric": "Topics In Progress", "Value": fmt.Sprintf("%d", stats.TopicStats.InProgress)},
		{"Metric": "Topics Completed", "Value": fmt.Sprintf("%d", stats.TopicStats.Completed)},
		{"Metric": "Topics Total", "Value": fmt.Sprintf("%d", stats.TopicStats.Total)},
		{"Metric": "Topics Overdue", "Value": fmt.Sprintf("%d", stats.TopicStats.Overdue)},
		{"Metric": "Topics Closed Today", "Value": fmt.Sprintf("%d", stats.TopicStats.ClosedToday)},
	}
	dataset := export.Dataset{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}
	return dataset, "Mentor Statistics", nil
}

func (s *ExportService) buildFilename(req ExportRequest) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	mentorPart := sanitizeFilename(req.MentorID)
	return fmt.Sprintf("%s_%s_%s.%s", req.Type, mentorPart, timestamp, req.Format)
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

func formatExportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
