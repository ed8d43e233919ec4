package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/tutordesk/tutordesk-api/pkg/errors"
	"github.com/tutordesk/tutordesk-api/pkg/export"

	"github.com/tutordesk/tutordesk-api/internal/models"
)

type sheetBuilder interface {
	BuildSheet(ctx context.Context, tutorID, classID, monthLabel string, override []string) (*models.AttendanceSheet, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(exportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportResult points at a rendered export file via a signed download token.
type ExportResult struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	Format    string    `json:"format"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService renders attendance sheets into downloadable CSV or PDF files.
// Files land on local disk and are fetched back with HMAC-signed tokens, so
// the download endpoint needs no session.
type ExportService struct {
	sheets    sheetBuilder
	classes   classFinder
	storage   exportStorage
	signer    downloadSigner
	renderers map[string]renderer
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewExportService constructs the service with CSV and PDF renderers.
func NewExportService(sheets sheetBuilder, classes classFinder, storage exportStorage, signer downloadSigner, validate *validator.Validate, logger *zap.Logger) *ExportService {
	return &ExportService{
		sheets:  sheets,
		classes: classes,
		storage: storage,
		signer:  signer,
		renderers: map[string]renderer{
			"csv": export.NewCSVExporter(),
			"pdf": export.NewPDFExporter(),
		},
		validate: validate,
		logger:   logger,
	}
}

// ExportSheetRequest asks for a rendered attendance sheet.
type ExportSheetRequest struct {
	ClassID string   `json:"class_id" validate:"required"`
	Month   string   `json:"month" validate:"required"`
	Format  string   `json:"format" validate:"required,oneof=csv pdf"`
	Dates   []string `json:"dates" validate:"omitempty,dive,required"`
}

// ExportSheet renders the sheet for a class and month and returns a signed
// download token for the stored file.
func (s *ExportService) ExportSheet(ctx context.Context, tutorID string, req ExportSheetRequest) (*ExportResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}

	class, err := s.classes.FindByID(ctx, tutorID, req.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	sheet, err := s.sheets.BuildSheet(ctx, tutorID, req.ClassID, req.Month, req.Dates)
	if err != nil {
		return nil, err
	}

	data, err := s.renderers[req.Format].Render(sheetDataset(class.Name, sheet))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	exportID := uuid.NewString()
	fileName := fmt.Sprintf("attendance/%s/%s-%s-%s.%s",
		tutorID, req.ClassID, monthSlug(req.Month), exportID[:8], req.Format)
	relPath, err := s.storage.Save(fileName, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	s.logger.Info("attendance sheet exported",
		zap.String("class_id", req.ClassID),
		zap.String("month", req.Month),
		zap.String("format", req.Format),
		zap.String("file", relPath))
	return &ExportResult{
		ID:        exportID,
		FileName:  relPath,
		Format:    req.Format,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Download resolves a signed token to the stored file and its content type.
func (s *ExportService) Download(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
	}
	return file, contentTypeFor(relPath), nil
}

// CleanupExpired drops export files older than the TTL.
func (s *ExportService) CleanupExpired(ttl time.Duration) (int, error) {
	deleted, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return 0, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return len(deleted), nil
}

// sheetDataset flattens a sheet into tabular form. Present marks render as X
// so the absence default stays visually empty.
func sheetDataset(className string, sheet *models.AttendanceSheet) export.Dataset {
	headers := append([]string{"Student"}, sheet.Dates...)
	rows := make([]map[string]string, 0, len(sheet.Students))
	for _, student := range sheet.Students {
		row := make(map[string]string, len(headers))
		row["Student"] = student.StudentName
		for _, date := range sheet.Dates {
			if student.Days[date] {
				row[date] = "X"
			} else {
				row[date] = ""
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{
		Title:    className,
		Subtitle: fmt.Sprintf("Attendance %s", sheet.Month),
		Headers:  headers,
		Rows:     rows,
	}
}

func monthSlug(monthLabel string) string {
	return strings.ToLower(strings.ReplaceAll(monthLabel, " ", "-"))
}

func contentTypeFor(path string) string {
	if strings.HasSuffix(path, ".pdf") {
		return "application/pdf"
	}
	return "text/csv"
}
