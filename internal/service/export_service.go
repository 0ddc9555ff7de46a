package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JoshuaMusyokar/real-estate-sub004/internal/models"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/contract"
	appErrors "github.com/JoshuaMusyokar/real-estate-sub004/pkg/errors"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/export"
	"github.com/JoshuaMusyokar/real-estate-sub004/pkg/storage"
)

type userExportSource interface {
	ListAll(ctx context.Context, filter models.UserFilter, max int) ([]models.User, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	MaxRows   int
}

// ExportFile is a rendered export ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	RowCount    int
}

// ExportResult captures a stored export and its signed link.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	RowCount     int
	ExpiresAt    time.Time
}

// ExportService builds user datasets and renders them in the requested format.
type ExportService struct {
	users     userExportSource
	roles     roleLookup
	storage   fileStorage
	renderers map[models.ExportFormat]export.Renderer
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with the default renderers.
func NewExportService(users userExportSource, roles roleLookup, store fileStorage, signer *storage.SignedURLSigner, metrics *MetricsService, audit auditRecorder, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 50000
	}
	return &ExportService{
		users:   users,
		roles:   roles,
		storage: store,
		renderers: map[models.ExportFormat]export.Renderer{
			models.ExportFormatCSV:   export.NewCSVExporter(),
			models.ExportFormatExcel: export.NewXLSXExporter(),
			models.ExportFormatJSON:  export.NewJSONExporter(),
			models.ExportFormatPDF:   export.NewPDFExporter(),
		},
		signer:    signer,
		metrics:   metrics,
		audit:     audit,
		validator: contract.NewValidator(),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Export renders matching users synchronously.
func (s *ExportService) Export(ctx context.Context, filter models.UserFilter, cfg models.ExportConfig, meta models.RequestMeta) (*ExportFile, error) {
	if err := s.ValidateRequest(&filter, &cfg); err != nil {
		return nil, err
	}
	file, err := s.render(ctx, filter, cfg)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordExport(string(cfg.Format), "sync")
	recordAudit(ctx, s.audit, s.logger, meta, models.AuditActionUserExport, ResourceUsers, "", models.ExportJobParams{Filters: filter, Config: cfg}, map[string]int{"rows": file.RowCount})
	return file, nil
}

// ValidateRequest normalises an export request. Without any field group only basic columns are exported.
func (s *ExportService) ValidateRequest(filter *models.UserFilter, cfg *models.ExportConfig) error {
	cfg.Format = models.ExportFormat(strings.ToLower(strings.TrimSpace(string(cfg.Format))))
	if err := s.validator.Struct(cfg); err != nil {
		return contract.ValidationError(err, "invalid export configuration")
	}
	if !cfg.Fields.Any() {
		cfg.Fields.Basic = true
	}
	return validateUserFilter(filter)
}

// Generate renders a job's export and stores it on disk behind a signed link.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	file, err := s.render(ctx, job.Params.Filters, job.Params.Config)
	if err != nil {
		return nil, err
	}
	relPath, err := s.storage.Save(job.ID+"/"+file.Filename, file.Data)
	if err != nil {
		return nil, err
	}
	url, token, expiresAt, err := s.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordExport(string(job.Params.Config.Format), "async")
	return &ExportResult{RelativePath: relPath, Token: token, URL: url, RowCount: file.RowCount, ExpiresAt: expiresAt}, nil
}

// Sign issues a fresh download link for a stored export.
func (s *ExportService) Sign(jobID, relPath string) (url, token string, expiresAt time.Time, err error) {
	token, expiresAt, err = s.signer.Generate(jobID, relPath)
	if err != nil {
		return "", "", time.Time{}, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/users/export/download/%s", prefix, token), token, expiresAt, nil
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

// Filename is users-export-{YYYY-MM-DD}.{ext} in UTC.
func (s *ExportService) Filename(format models.ExportFormat) string {
	return fmt.Sprintf("users-export-%s.%s", s.now().UTC().Format("2006-01-02"), format.Extension())
}

func (s *ExportService) render(ctx context.Context, filter models.UserFilter, cfg models.ExportConfig) (*ExportFile, error) {
	renderer, ok := s.renderers[cfg.Format]
	if !ok {
		return nil, appErrors.Validation("format", fmt.Sprintf("unsupported export format %q", cfg.Format))
	}
	// One extra row tells an oversized result apart from one that fills the cap exactly.
	users, err := s.users.ListAll(ctx, filter, s.cfg.MaxRows+1)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load users for export")
	}
	if len(users) > s.cfg.MaxRows {
		return nil, appErrors.Validation("filters", fmt.Sprintf("export matches more than %d users; narrow the filters", s.cfg.MaxRows))
	}
	dataset, err := s.buildUserDataset(ctx, users, cfg.Fields)
	if err != nil {
		return nil, err
	}
	data, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportFile{
		Filename:    s.Filename(cfg.Format),
		ContentType: cfg.Format.ContentType(),
		Data:        data,
		RowCount:    len(users),
	}, nil
}
