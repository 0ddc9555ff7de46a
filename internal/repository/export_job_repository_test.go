package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
)

func TestExportJobCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	mock.ExpectExec("INSERT INTO export_jobs").WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ExportJob{
		Format:    models.ExportFormatCSV,
		Params:    models.ExportJobParams{Config: models.ExportConfig{Format: models.ExportFormatCSV}},
		CreatedBy: "u1",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.ExportJobQueued, job.Status)

	now := time.Now()
	mock.ExpectQuery(`SELECT .* FROM export_jobs WHERE id = \$1`).WithArgs(job.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "format", "params", "result_path", "error_message", "row_count", "created_by", "created_at", "finished_at"}).
			AddRow(job.ID, "FINISHED", "csv", []byte(`{"filters":{"statuses":["ACTIVE"]},"config":{"format":"csv","fields":{"basic":true}}}`), "users.csv", nil, 3, "u1", now, now))

	got, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobFinished, got.Status)
	assert.Equal(t, []models.UserStatus{models.UserStatusActive}, got.Params.Filters.Statuses)
	assert.True(t, got.Params.Config.Fields.Basic)
	assert.Equal(t, 3, got.RowCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobUpdateBuildsSetClause(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	status := models.ExportJobFinished
	path := "users.csv"
	rows := 10
	mock.ExpectExec(`UPDATE export_jobs SET status = \$1, result_path = \$2, row_count = \$3 WHERE id = \$4`).
		WithArgs(status, path, rows, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateExportJobParams{Status: &status, ResultPath: &path, RowCount: &rows})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportJobUpdateNoop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewExportJobRepository(db)

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateExportJobParams{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
