package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/observability"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates validation of the file failed.
	ErrUploadScanFailed = errors.New("file scanning failed")
	// ErrUploadsDisabled indicates no storage backend is configured.
	ErrUploadsDisabled = errors.New("file uploads are not configured")
)

// FileUploader abstracts uploading binary data and returning a URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, contentType string, reader io.Reader) (string, error)
}

// AttachmentStore validates an uploaded file, forwards it to storage and
// returns the opaque descriptor kept on assignments and submissions.
type AttachmentStore struct {
	uploader FileUploader
	logger   zerolog.Logger
	maxSize  int64
	tracer   trace.Tracer
}

// NewAttachmentStore constructs the store. uploader may be nil, in which case
// every upload fails with ErrUploadsDisabled.
func NewAttachmentStore(uploader FileUploader, maxSizeMB int, logger zerolog.Logger) *AttachmentStore {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &AttachmentStore{
		uploader: uploader,
		logger:   logger.With().Str("component", "attachment_store").Logger(),
		maxSize:  int64(maxSizeMB) * 1024 * 1024,
		tracer:   otel.Tracer("github.com/noah-isme/gema-assessment-api/internal/service/attachments"),
	}
}

// Store uploads file and describes the stored object.
func (s *AttachmentStore) Store(ctx context.Context, file *multipart.FileHeader) (models.FileDescriptor, error) {
	ctx, span := s.tracer.Start(ctx, "attachment.store")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize))

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if s.uploader == nil {
		span.SetStatus(codes.Error, "uploads disabled")
		return models.FileDescriptor{}, ErrUploadsDisabled
	}

	if file == nil {
		err := fmt.Errorf("%w: file is required", ErrInvalidPayload)
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return models.FileDescriptor{}, err
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return models.FileDescriptor{}, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return models.FileDescriptor{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return models.FileDescriptor{}, err
	}

	return s.storeBytes(ctx, span, file.Filename, buf.Bytes())
}

func (s *AttachmentStore) storeBytes(ctx context.Context, span trace.Span, name string, payload []byte) (models.FileDescriptor, error) {
	if int64(len(payload)) > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return models.FileDescriptor{}, ErrUploadTooLarge
	}

	detected := mimetype.Detect(payload)
	fileType := normalizeMime(detected.String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isAllowedType(fileType) {
		observability.UploadRejected().WithLabelValues("type").Inc()
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return models.FileDescriptor{}, ErrUploadTypeNotAllowed
	}

	if err := s.scan(payload, fileType); err != nil {
		observability.UploadRejected().WithLabelValues("scan").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		return models.FileDescriptor{}, err
	}

	sanitizedName := sanitizeFileName(name, detected.Extension())
	url, err := s.uploader.Upload(ctx, sanitizedName, detected.String(), bytes.NewReader(payload))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return models.FileDescriptor{}, err
	}

	observability.UploadRequests().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().Str("filename", sanitizedName).Str("type", fileType).Int("size", len(payload)).Msg("attachment stored")

	return models.FileDescriptor{
		Filename: sanitizedName,
		Path:     url,
		Size:     int64(len(payload)),
	}, nil
}

func (s *AttachmentStore) scan(payload []byte, mime string) error {
	if strings.Contains(mime, "zip") {
		reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
		if err != nil {
			return ErrUploadScanFailed
		}
		var totalUncompressed uint64
		for _, f := range reader.File {
			totalUncompressed += f.UncompressedSize64
			if totalUncompressed > uint64(s.maxSize*20) {
				return fmt.Errorf("zip archive uncompressed size too large: %w", ErrUploadScanFailed)
			}
		}
	}
	return nil
}

func sanitizeFileName(name, detectedExt string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("attachment-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = detectedExt
	}
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	if strings.HasPrefix(lower, "image/") {
		return "image"
	}
	switch lower {
	case "application/zip", "application/x-zip-compressed":
		return "application/zip"
	default:
		return lower
	}
}

func isAllowedType(m string) bool {
	switch m {
	case "image", "application/pdf", "application/zip", "text/plain":
		return true
	default:
		return false
	}
}
