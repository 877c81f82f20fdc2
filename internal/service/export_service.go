package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"doctrack/internal/config"
	"doctrack/internal/domain"
	"doctrack/internal/export"
	"doctrack/internal/port"
)

// ExportFile is a rendered history export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Entries     int
}

// ArchiveResult describes a history export uploaded to object storage.
type ArchiveResult struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Location string `json:"location"`
	URL      string `json:"url,omitempty"`
	Entries  int    `json:"entries"`
}

// ExportService defines the history export contract.
type ExportService interface {
	Export(ctx context.Context, docType string, id uuid.UUID, format string) (*ExportFile, error)
	Archive(ctx context.Context, docType string, id uuid.UUID, format string) (*ArchiveResult, error)
}

type exportService struct {
	docs    DocumentService
	storage port.ObjectStorage
	cfg     config.ArchiveConfig
	now     func() time.Time
}

// NewExportService creates a new ExportService. A nil storage disables
// Archive.
func NewExportService(docs DocumentService, storage port.ObjectStorage, cfg config.ArchiveConfig) ExportService {
	return &exportService{
		docs:    docs,
		storage: storage,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *exportService) Export(ctx context.Context, docType string, id uuid.UUID, format string) (*ExportFile, error) {
	format, err := normalizeFormat(format)
	if err != nil {
		return nil, err
	}
	history, err := s.docs.History(ctx, docType, id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, history); err != nil {
		return nil, fmt.Errorf("exportService.Export: %w", err)
	}
	return &ExportFile{
		Filename:    export.BuildFilename(docType, id.String(), format, s.now()),
		ContentType: export.ContentType(format),
		Data:        buf.Bytes(),
		Entries:     len(history),
	}, nil
}

func (s *exportService) Archive(ctx context.Context, docType string, id uuid.UUID, format string) (*ArchiveResult, error) {
	if s.storage == nil {
		return nil, domain.ErrArchiveDisabled
	}
	file, err := s.Export(ctx, docType, id, format)
	if err != nil {
		return nil, err
	}

	key := s.archiveKey(docType, id, file.Filename)
	out, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(file.Data),
		ContentType: file.ContentType,
		Size:        int64(len(file.Data)),
	})
	if err != nil {
		log.Printf("exportService.Archive: upload of %s document %s failed: %v", docType, id, err)
		return nil, fmt.Errorf("exportService.Archive: %w", err)
	}

	result := &ArchiveResult{
		Bucket:   s.cfg.Bucket,
		Key:      key,
		Location: out.Location,
		Entries:  file.Entries,
	}
	if s.cfg.PresignExpiry > 0 {
		url, err := s.storage.GetPresignedURL(ctx, s.cfg.Bucket, key, s.cfg.PresignExpiry)
		if err != nil {
			log.Printf("exportService.Archive: presign %s failed: %v", key, err)
		} else {
			result.URL = url
		}
	}
	log.Printf("exportService.Archive: archived %d entries of %s document %s to %s", file.Entries, docType, id, key)
	return result, nil
}

// archiveKey is {prefix}/{doc_type}/{id}/{unix_nanos}_{filename}.
func (s *exportService) archiveKey(docType string, id uuid.UUID, filename string) string {
	name := fmt.Sprintf("%d_%s", s.now().UnixNano(), filename)
	return path.Join(s.cfg.Prefix, export.SanitizeFilename(docType), id.String(), name)
}

func normalizeFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "":
		return export.FormatCSV, nil
	case export.FormatCSV, export.FormatXLSX:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
}
