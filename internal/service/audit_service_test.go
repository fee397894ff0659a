package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/jobs"
	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/middleware/requestid"
)

type memoryAuditRepo struct {
	mu      sync.Mutex
	entries []models.AuditLog
	fails   int
}

func (m *memoryAuditRepo) Create(_ context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails > 0 {
		m.fails--
		return errors.New("db unavailable")
	}
	m.entries = append(m.entries, *log)
	return nil
}

func (m *memoryAuditRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestAuditServiceWritesSynchronouslyWithoutQueue(t *testing.T) {
	repo := &memoryAuditRepo{}
	svc := NewAuditService(repo, nil, zap.NewNop())

	ctx := requestid.WithValue(context.Background(), "req-42")
	svc.Record(ctx, models.AuditLog{Action: models.AuditActionLogin, Resource: "auth"})
	require.Equal(t, 1, repo.count())
	assert.NotEmpty(t, repo.entries[0].ID)
	assert.False(t, repo.entries[0].CreatedAt.IsZero())
	assert.Equal(t, "req-42", repo.entries[0].RequestID)
}

func TestAuditServiceQueueRetries(t *testing.T) {
	repo := &memoryAuditRepo{fails: 2}
	svc := NewAuditService(repo, nil, zap.NewNop())
	q := jobs.NewQueue("audit", svc.Handle, jobs.QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()
	svc.UseQueue(q)

	svc.Record(context.Background(), models.AuditLog{Action: models.AuditActionApplicationDispose, Resource: "application"})
	assert.Eventually(t, func() bool { return repo.count() == 1 }, time.Second, 5*time.Millisecond)
}

type fullQueue struct{}

func (fullQueue) Enqueue(jobs.Job) error { return jobs.ErrQueueFull }

func TestAuditServiceCountsDroppedEntries(t *testing.T) {
	repo := &memoryAuditRepo{}
	metrics := NewMetricsService()
	svc := NewAuditService(repo, metrics, zap.NewNop())
	svc.UseQueue(fullQueue{})

	svc.Record(context.Background(), models.AuditLog{Action: models.AuditActionApplicationAssign})
	assert.Equal(t, 0, repo.count())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.auditDropped))
}

func TestAuditServiceCountsEntriesExhaustingRetries(t *testing.T) {
	repo := &memoryAuditRepo{fails: 10}
	metrics := NewMetricsService()
	svc := NewAuditService(repo, metrics, zap.NewNop())
	q := jobs.NewQueue("audit", svc.Handle, jobs.QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond, OnDrop: svc.Dropped})
	q.Start(context.Background())
	defer q.Stop()
	svc.UseQueue(q)

	svc.Record(context.Background(), models.AuditLog{Action: models.AuditActionApplicationCreate})
	assert.Eventually(t, func() bool { return testutil.ToFloat64(metrics.auditDropped) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, repo.count())
}
