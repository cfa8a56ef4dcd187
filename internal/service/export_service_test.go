package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gradtrack/mentor-api/internal/models"
	"github.com/gradtrack/mentor-api/pkg/storage"
)

type exportTaskStub struct{}

func (exportTaskStub) List(_ context.Context, _ models.TaskFilter) ([]models.Task, int, error) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return []models.Task{
		{
			Title:  "Algorithms - Week 3",
			Week:   3,
			Status: models.TaskStatusInProgress,
			TaskStats: models.TaskStats{
				Completed: 2,
				Overdue:   1,
				Total:     5,
			},
			Grade:   "B+",
			DueDate: &due,
		},
	}, 1, nil
}

type exportStatsStub struct{}

func (exportStatsStub) GetStoredStats(_ context.Context, _ string) (*models.MentorTasksStats, error) {
	return &models.MentorTasksStats{
		MentorID:   "mentor-1",
		TaskStats:  models.MentorTaskCounts{Completed: 1, Total: 2},
		TopicStats: models.MentorTopicCounts{Completed: 3, Total: 4},
	}, nil
}

func newExportServiceForTest(t *testing.T) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir(), 0, nil)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Minute)
	return NewExportService(exportTaskStub{}, exportStatsStub{}, store, signer, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop())
}

func TestExportServiceGenerateTasksCSV(t *testing.T) {
	svc := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), ExportRequest{
		Type:     ExportTypeTasks,
		Format:   ExportFormatCSV,
		MentorID: "mentor-1",
	})
	require.NoError(t, err)
	require.Equal(t, ExportFormatCSV, result.Format)
	require.Contains(t, result.URL, "/api/v1/export/")

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(content), "Algorithms - Week 3"))
}

func TestExportServiceGenerateMentorStatsPDF(t *testing.T) {
	svc := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), ExportRequest{
		Type:     ExportTypeMentorStats,
		Format:   ExportFormatPDF,
		MentorID: "mentor-1",
	})
	require.NoError(t, err)
	require.Equal(t, ExportFormatPDF, result.Format)

	id, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	require.Equal(t, result.RelativePath, relPath)
	require.NotEmpty(t, id)
}

func TestExportServiceTokenSurvivesFilenameExtension(t *testing.T) {
	svc := newExportServiceForTest(t)

	// Export filenames always end in .csv/.pdf; the extension dot must not
	// leak into the dot-delimited token.
	result, err := svc.Generate(context.Background(), ExportRequest{
		Type:     ExportTypeTasks,
		Format:   ExportFormatCSV,
		MentorID: "mentor-1",
	})
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(result.Token, "."))

	id, relPath, expiresAt, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	require.NotContains(t, id, ".")
	require.Equal(t, result.RelativePath, relPath)
	require.WithinDuration(t, result.ExpiresAt, expiresAt, time.Second)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := newExportServiceForTest(t)

	_, err := svc.Generate(context.Background(), ExportRequest{
		Type:   ExportTypeTasks,
		Format: ExportFormat("xlsx"),
	})
	require.Error(t, err)
}
