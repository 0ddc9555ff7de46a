package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/internal/repository"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/jobs"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/storage"
)

type exportFixture struct {
	db       *memoryDB
	exporter *ExportService
	jobs     *mockExportJobRepo
	queue    *recordingQueue
	svc      *ExportJobService
	worker   *ExportWorker
	admin    *models.User
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	db := newMemoryDB()
	read := db.seedPermission("users.read")
	export := db.seedPermission("users.export")
	role := db.seedRole("Admin", read, export)
	admin := db.seedUser("ada@example.com", role.ID, models.UserStatusActive)
	db.seedUser("bob@example.com", role.ID, models.UserStatusInactive)

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	exporter := NewExportService(&userStore{db: db}, roleStore{db}, store, signer, nil, db, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop())
	exporter.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	repo := newMockExportJobRepo()
	queue := &recordingQueue{}
	svc := NewExportJobService(repo, queue, exporter, db, zap.NewNop(), ExportJobServiceConfig{ResultTTL: time.Hour})
	worker := NewExportWorker(repo, exporter, 2, zap.NewNop())
	return &exportFixture{db: db, exporter: exporter, jobs: repo, queue: queue, svc: svc, worker: worker, admin: admin}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportDefaultsToBasicColumns(t *testing.T) {
	f := newExportFixture(t)

	file, err := f.exporter.Export(context.Background(), models.UserFilter{}, models.ExportConfig{Format: "CSV"}, models.RequestMeta{ActorID: f.admin.ID})
	require.NoError(t, err)
	assert.Equal(t, "users-export-2026-03-14.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.Equal(t, 2, file.RowCount)

	rows := readCSV(t, file.Data)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "First Name", "Last Name", "Email"}, rows[0])
	assert.Contains(t, f.db.auditActions(), models.AuditActionUserExport)
}

func TestExportFieldGroupsSelectColumnsNotRows(t *testing.T) {
	f := newExportFixture(t)
	active := []models.UserStatus{models.UserStatusActive}

	file, err := f.exporter.Export(context.Background(), models.UserFilter{Statuses: active}, models.ExportConfig{
		Format: models.ExportFormatCSV,
		Fields: models.ExportFields{Status: true, Permissions: true},
	}, models.RequestMeta{})
	require.NoError(t, err)

	rows := readCSV(t, file.Data)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Status", "Permissions"}, rows[0])
	assert.Equal(t, "ACTIVE", rows[1][0])
	assert.Equal(t, "users.export; users.read", rows[1][1])
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.exporter.Export(context.Background(), models.UserFilter{}, models.ExportConfig{Format: "docx"}, models.RequestMeta{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Contains(t, appErrors.FromError(err).Fields, "format")
}

func TestExportFormatsRender(t *testing.T) {
	f := newExportFixture(t)
	for _, format := range []models.ExportFormat{models.ExportFormatExcel, models.ExportFormatJSON, models.ExportFormatPDF} {
		file, err := f.exporter.Export(context.Background(), models.UserFilter{}, models.ExportConfig{Format: format}, models.RequestMeta{})
		require.NoError(t, err, format)
		assert.NotEmpty(t, file.Data, format)
		assert.True(t, strings.HasSuffix(file.Filename, "."+format.Extension()), format)
	}
}

func TestExportJobLifecycle(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	meta := models.RequestMeta{ActorID: f.admin.ID}

	job, err := f.svc.CreateJob(ctx, models.UserFilter{}, models.ExportConfig{Format: models.ExportFormatCSV}, meta)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobQueued, job.Status)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, exportJobType, f.queue.jobs[0].Type)

	pending, err := f.svc.GetJob(ctx, job.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Empty(t, pending.DownloadURL)

	require.NoError(t, f.worker.Handle(ctx, f.queue.jobs[0]))

	done, err := f.svc.GetJob(ctx, job.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobFinished, done.Status)
	assert.Equal(t, 2, done.RowCount)
	require.True(t, strings.HasPrefix(done.DownloadURL, "/api/v1/users/export/download/"))

	token := strings.TrimPrefix(done.DownloadURL, "/api/v1/users/export/download/")
	download, err := f.svc.ResolveDownload(ctx, token)
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck
	assert.Equal(t, "users-export-2026-03-14.csv", download.Filename)
	data, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 3)

	_, err = f.svc.GetJob(ctx, job.ID, uuid.NewString())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestExportDownloadRejectsForeignPath(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	job, err := f.svc.CreateJob(ctx, models.UserFilter{}, models.ExportConfig{Format: models.ExportFormatJSON}, models.RequestMeta{ActorID: f.admin.ID})
	require.NoError(t, err)
	require.NoError(t, f.worker.Handle(ctx, f.queue.jobs[0]))

	_, token, _, err := f.exporter.Sign(job.ID, job.ID+"/../../etc/passwd")
	require.NoError(t, err)
	_, err = f.svc.ResolveDownload(ctx, token)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))

	_, err = f.svc.ResolveDownload(ctx, "garbage")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}

func TestExportJobEnqueueFailureMarksJobFailed(t *testing.T) {
	f := newExportFixture(t)
	f.queue.err = errors.New("queue full")

	_, err := f.svc.CreateJob(context.Background(), models.UserFilter{}, models.ExportConfig{Format: models.ExportFormatCSV}, models.RequestMeta{ActorID: f.admin.ID})
	require.Error(t, err)
	for _, job := range f.jobs.jobs {
		assert.Equal(t, models.ExportJobFailed, job.Status)
	}
}

func TestExportWorkerRetriesThenFails(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	job, err := f.svc.CreateJob(ctx, models.UserFilter{}, models.ExportConfig{Format: models.ExportFormatCSV}, models.RequestMeta{ActorID: f.admin.ID})
	require.NoError(t, err)
	worker := NewExportWorker(f.jobs, failingGenerator{}, 2, zap.NewNop())

	require.Error(t, worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 0}))
	assert.Equal(t, models.ExportJobQueued, f.jobs.jobs[job.ID].Status)

	require.Error(t, worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 2}))
	stored := f.jobs.jobs[job.ID]
	assert.Equal(t, models.ExportJobFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "render failed", *stored.ErrorMessage)
}

func TestExportRejectsResultsOverRowCap(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	meta := models.RequestMeta{ActorID: f.admin.ID}

	f.exporter.cfg.MaxRows = 2
	file, err := f.exporter.Export(ctx, models.UserFilter{}, models.ExportConfig{Format: models.ExportFormatCSV}, meta)
	require.NoError(t, err)
	assert.Equal(t, 2, file.RowCount)

	f.exporter.cfg.MaxRows = 1
	_, err = f.exporter.Export(ctx, models.UserFilter{}, models.ExportConfig{Format: models.ExportFormatCSV}, meta)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	job, err := f.svc.CreateJob(ctx, models.UserFilter{}, models.ExportConfig{Format: models.ExportFormatCSV}, meta)
	require.NoError(t, err)
	require.NoError(t, f.worker.Handle(ctx, jobs.Job{ID: job.ID, Attempt: 0}))
	stored := f.jobs.jobs[job.ID]
	assert.Equal(t, models.ExportJobFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "more than 1 users")
}

func TestExportAcceptsLowerCaseStatusFilter(t *testing.T) {
	f := newExportFixture(t)

	file, err := f.exporter.Export(context.Background(), models.UserFilter{Statuses: []models.UserStatus{"inactive"}},
		models.ExportConfig{Format: models.ExportFormatCSV}, models.RequestMeta{ActorID: f.admin.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, file.RowCount)
	rows := readCSV(t, file.Data)
	require.Len(t, rows, 2)
	assert.Equal(t, "bob@example.com", rows[1][3])
}

func TestExportCleanupDetachesExpiredResults(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	job, err := f.svc.CreateJob(ctx, models.UserFilter{}, models.ExportConfig{Format: models.ExportFormatCSV}, models.RequestMeta{ActorID: f.admin.ID})
	require.NoError(t, err)
	require.NoError(t, f.worker.Handle(ctx, f.queue.jobs[0]))

	old := time.Now().Add(-2 * time.Hour)
	f.jobs.jobs[job.ID].FinishedAt = &old
	f.svc.CleanupExpired(ctx)

	assert.Nil(t, f.jobs.jobs[job.ID].ResultPath)
	done, err := f.svc.GetJob(ctx, job.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Empty(t, done.DownloadURL)
}

func TestRecoverPendingJobsRequeues(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateJob(ctx, models.UserFilter{}, models.ExportConfig{Format: models.ExportFormatCSV}, models.RequestMeta{ActorID: f.admin.ID})
	require.NoError(t, err)

	f.svc.RecoverPendingJobs(ctx)
	assert.Len(t, f.queue.jobs, 2)
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	return nil, errors.New("render failed")
}

type mockExportJobRepo struct {
	jobs map[string]*models.ExportJob
}

func newMockExportJobRepo() *mockExportJobRepo {
	return &mockExportJobRepo{jobs: make(map[string]*models.ExportJob)}
}

func (m *mockExportJobRepo) Create(ctx context.Context, job *models.ExportJob) error {
	job.ID = uuid.NewString()
	job.CreatedAt = time.Now().UTC()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *mockExportJobRepo) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *job
	return &cp, nil
}

func (m *mockExportJobRepo) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultPath != nil {
		path := *params.ResultPath
		job.ResultPath = &path
	}
	if params.ErrorMessage != nil {
		msg := *params.ErrorMessage
		job.ErrorMessage = &msg
	}
	if params.RowCount != nil {
		job.RowCount = *params.RowCount
	}
	if params.FinishedAt != nil {
		at := *params.FinishedAt
		job.FinishedAt = &at
	}
	return nil
}

func (m *mockExportJobRepo) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range m.jobs {
		if job.Status == models.ExportJobQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockExportJobRepo) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range m.jobs {
		if job.Status == models.ExportJobFinished && job.ResultPath != nil && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockExportJobRepo) ClearResult(ctx context.Context, id string) error {
	if job, ok := m.jobs[id]; ok {
		job.ResultPath = nil
	}
	return nil
}
