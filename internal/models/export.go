package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportFormat is the file format of a user export.
type ExportFormat string

const (
	ExportFormatCSV   ExportFormat = "csv"
	ExportFormatExcel ExportFormat = "excel"
	ExportFormatJSON  ExportFormat = "json"
	ExportFormatPDF   ExportFormat = "pdf"
)

// Extension returns the file extension used for the format.
func (f ExportFormat) Extension() string {
	if f == ExportFormatExcel {
		return "xlsx"
	}
	return string(f)
}

// ContentType returns the MIME type served for the format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportFormatCSV:
		return "text/csv"
	case ExportFormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportFormatJSON:
		return "application/json"
	case ExportFormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// ExportFields toggles column groups; they never filter rows.
type ExportFields struct {
	Basic       bool `json:"basic"`
	Contact     bool `json:"contact"`
	Role        bool `json:"role"`
	Status      bool `json:"status"`
	Dates       bool `json:"dates"`
	Permissions bool `json:"permissions"`
}

// Any reports whether at least one group is selected.
func (f ExportFields) Any() bool {
	return f.Basic || f.Contact || f.Role || f.Status || f.Dates || f.Permissions
}

// ExportConfig is the format and column selection of an export.
type ExportConfig struct {
	Format ExportFormat `json:"format" validate:"required,oneof=csv excel json pdf"`
	Fields ExportFields `json:"fields"`
}

// ExportJobStatus tracks asynchronous export progress.
type ExportJobStatus string

const (
	ExportJobQueued     ExportJobStatus = "QUEUED"
	ExportJobProcessing ExportJobStatus = "PROCESSING"
	ExportJobFinished   ExportJobStatus = "FINISHED"
	ExportJobFailed     ExportJobStatus = "FAILED"
)

// ExportJob is an asynchronous user export persisted in export_jobs.
type ExportJob struct {
	ID           string          `db:"id" json:"id"`
	Status       ExportJobStatus `db:"status" json:"status"`
	Format       ExportFormat    `db:"format" json:"format"`
	Params       ExportJobParams `db:"params" json:"params"`
	ResultPath   *string         `db:"result_path" json:"-"`
	ErrorMessage *string         `db:"error_message" json:"error,omitempty"`
	RowCount     int             `db:"row_count" json:"rowCount"`
	CreatedBy    string          `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finishedAt,omitempty"`
	DownloadURL  string          `db:"-" json:"downloadUrl,omitempty"`
}

// ExportJobParams stores the export request persisted as JSONB.
type ExportJobParams struct {
	Filters UserFilter   `json:"filters"`
	Config  ExportConfig `json:"config"`
}

// Value marshals params to JSON for persistence.
func (p ExportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ExportJobParams) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*p = ExportJobParams{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ExportJobParams", value)
	}
	if len(data) == 0 {
		*p = ExportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal export job params: %w", err)
	}
	return nil
}
