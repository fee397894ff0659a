package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/jobs"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/middleware/requestid"
)

const auditJobType = "audit_log"

type auditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// AuditService persists audit entries off the request path. Losing an entry is
// logged and counted but never surfaces to the caller.
type AuditService struct {
	repo    auditRepository
	queue   jobQueue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs an AuditService. Attach a queue with UseQueue to go asynchronous.
func NewAuditService(repo auditRepository, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, metrics: metrics, logger: logger}
}

// UseQueue routes future entries through q.
func (s *AuditService) UseQueue(q jobQueue) {
	s.queue = q
}

// Record stores entry, through the queue when one is attached.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLog) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.RequestID == "" {
		entry.RequestID = requestid.FromContext(ctx)
	}

	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: auditJobType, Payload: entry})
		if err == nil {
			return
		}
		if !errors.Is(err, jobs.ErrQueueNotStarted) {
			s.drop(entry, err)
			return
		}
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.repo.Create(writeCtx, &entry); err != nil {
		s.drop(entry, err)
	}
}

// Handle is the queue handler that persists one audit entry.
func (s *AuditService) Handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		s.logger.Error("unexpected audit payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, &entry)
}

// Dropped is the queue's OnDrop hook for entries that exhausted their retries.
func (s *AuditService) Dropped(job jobs.Job, err error) {
	entry, _ := job.Payload.(models.AuditLog)
	s.drop(entry, err)
}

func (s *AuditService) drop(entry models.AuditLog, err error) {
	s.metrics.RecordAuditDropped()
	s.logger.Warn("audit entry dropped",
		zap.String("action", entry.Action),
		zap.String("resource", entry.Resource),
		zap.Error(err),
	)
}
