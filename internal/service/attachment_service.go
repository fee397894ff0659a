package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/storage"
)

type attachmentStorage interface {
	SaveStream(reference string, r io.Reader) (string, error)
	Open(reference string) (*os.File, error)
	Exists(reference string) bool
}

type attachmentSigner interface {
	Generate(reference string) (string, time.Time, error)
	Parse(token string) (string, time.Time, error)
}

// AttachmentUpload carries upload metadata and stream reader.
type AttachmentUpload struct {
	Filename string
	Size     int64
	Content  io.ReadSeeker
}

// AttachmentLink is a signed, expiring download location.
type AttachmentLink struct {
	Reference string    `json:"reference"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AttachmentDownload bundles file reader metadata for streaming.
type AttachmentDownload struct {
	File      *os.File
	Filename  string
	MimeType  string
	SizeBytes int64
}

// AttachmentServiceConfig holds validation parameters.
type AttachmentServiceConfig struct {
	APIPrefix    string
	MaxFileSize  int64
	AllowedMIMEs []string
}

// AttachmentService stores supporting documents referenced from applications and timeline entries.
type AttachmentService struct {
	storage attachmentStorage
	signer  attachmentSigner
	audit   auditRecorder
	logger  *zap.Logger
	cfg     AttachmentServiceConfig
	mimeSet map[string]struct{}
	now     func() time.Time
}

// NewAttachmentService constructs an AttachmentService.
func NewAttachmentService(store attachmentStorage, signer attachmentSigner, audit auditRecorder, logger *zap.Logger, cfg AttachmentServiceConfig) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf", "image/jpeg", "image/png"}
	}
	mimeSet := make(map[string]struct{}, len(cfg.AllowedMIMEs))
	for _, mt := range cfg.AllowedMIMEs {
		mimeSet[strings.ToLower(mt)] = struct{}{}
	}
	return &AttachmentService{
		storage: store,
		signer:  signer,
		audit:   audit,
		logger:  logger,
		cfg:     cfg,
		mimeSet: mimeSet,
		now:     time.Now,
	}
}

// Upload validates and stores a document, returning the reference to put on an application.
func (s *AttachmentService) Upload(ctx context.Context, actor models.Actor, upload AttachmentUpload) (string, error) {
	if upload.Content == nil || upload.Size <= 0 {
		return "", appErrors.Validation("invalid attachment", appErrors.FieldError{Field: "file", Message: "is required"})
	}
	if upload.Size > s.cfg.MaxFileSize {
		return "", appErrors.Validation("invalid attachment", appErrors.FieldError{Field: "file", Message: fmt.Sprintf("must be at most %d bytes", s.cfg.MaxFileSize)})
	}
	mimeType, err := sniffMime(upload.Content)
	if err != nil {
		return "", err
	}
	if _, allowed := s.mimeSet[mimeType]; !allowed {
		return "", appErrors.Clone(appErrors.ErrUnsupportedMediaType, fmt.Sprintf("%s attachments are not accepted", mimeType))
	}

	now := s.now().UTC()
	reference := path.Join(now.Format("2006"), now.Format("01"), uuid.NewString()+mimeExtension(mimeType))
	saved, err := s.storage.SaveStream(reference, io.LimitReader(upload.Content, s.cfg.MaxFileSize))
	if err != nil {
		return "", appErrors.Storage(err, "failed to store attachment")
	}

	if s.audit != nil {
		payload, _ := json.Marshal(map[string]interface{}{"reference": saved, "filename": upload.Filename, "mime": mimeType, "size": upload.Size})
		s.audit.Record(ctx, models.AuditLog{
			OfficialID: optional(actor.OfficialID),
			Action:     models.AuditActionAttachmentUpload,
			Resource:   "attachments",
			ResourceID: &saved,
			NewValues:  payload,
			IPAddress:  actor.IP,
			UserAgent:  actor.UserAgent,
			RequestID:  actor.RequestID,
		})
	}
	s.logger.Info("attachment stored", zap.String("reference", saved), zap.String("mime", mimeType), zap.Int64("size", upload.Size))
	return saved, nil
}

// Link returns a signed download URL for a stored reference.
func (s *AttachmentService) Link(ctx context.Context, reference string) (*AttachmentLink, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" || reference == models.NotAvailable {
		return nil, appErrors.Validation("invalid attachment reference", appErrors.FieldError{Field: "reference", Message: "is required"})
	}
	if !s.storage.Exists(reference) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
	}
	token, expiresAt, err := s.signer.Generate(reference)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to generate download token")
	}
	base := strings.TrimRight(s.cfg.APIPrefix, "/")
	return &AttachmentLink{
		Reference: reference,
		URL:       fmt.Sprintf("%s/attachments/download?token=%s", base, token),
		ExpiresAt: expiresAt,
	}, nil
}

// Download validates the token and opens the referenced file.
func (s *AttachmentService) Download(ctx context.Context, token string) (*AttachmentDownload, error) {
	reference, _, err := s.signer.Parse(token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
		}
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
	}
	file, err := s.storage.Open(reference)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, appErrors.Storage(err, "failed to open attachment")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Storage(err, "failed to read attachment metadata")
	}
	return &AttachmentDownload{
		File:      file,
		Filename:  path.Base(reference),
		MimeType:  mimeFromExtension(path.Ext(reference)),
		SizeBytes: info.Size(),
	}, nil
}

func sniffMime(content io.ReadSeeker) (string, error) {
	header := make([]byte, 512)
	n, err := content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Internal(err, "failed to inspect file")
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Internal(err, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Validation("invalid attachment", appErrors.FieldError{Field: "file", Message: "must not be empty"})
	}
	mimeType := http.DetectContentType(header[:n])
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType)), nil
}

func mimeExtension(mime string) string {
	switch mime {
	case "application/pdf":
		return ".pdf"
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	default:
		return ".bin"
	}
}

func mimeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
