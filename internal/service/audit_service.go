package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gigboard/internal/models"
	"github.com/noah-isme/gigboard/pkg/jobs"
)

const auditJobType = "audit_log"

type auditWriter interface {
	Create(ctx context.Context, log *models.AuditLog) error
}

type auditMetrics interface {
	ObserveAuditWrite(duration time.Duration)
}

// AuditEntry describes one admin action before it is persisted.
type AuditEntry struct {
	UserID     string
	Action     string
	Resource   string
	ResourceID string
	Values     interface{}
	IPAddress  string
	UserAgent  string
}

// AuditService records admin actions. A nil service, or one without a
// writer, records nothing. Write failures are logged and never returned.
type AuditService struct {
	repo    auditWriter
	metrics auditMetrics
	logger  *zap.Logger
	queue   *jobs.Queue
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditWriter, metrics auditMetrics, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, metrics: metrics, logger: logger}
}

// Record persists entry.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	if s == nil || s.repo == nil {
		return
	}

	log := &models.AuditLog{
		Action:    entry.Action,
		Resource:  entry.Resource,
		IPAddress: entry.IPAddress,
		UserAgent: entry.UserAgent,
	}
	if entry.UserID != "" {
		id := entry.UserID
		log.UserID = &id
	}
	if entry.ResourceID != "" {
		id := entry.ResourceID
		log.ResourceID = &id
	}
	if entry.Values != nil {
		raw, err := json.Marshal(entry.Values)
		if err != nil {
			s.logger.Warn("failed to encode audit values", zap.String("action", entry.Action), zap.Error(err))
		} else {
			log.NewValues = raw
		}
	}

	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{Type: auditJobType, Payload: log})
		if err == nil {
			return
		}
		s.logger.Warn("audit queue unavailable, writing inline", zap.Error(err))
	}
	if err := s.write(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *AuditService) write(ctx context.Context, log *models.AuditLog) error {
	start := time.Now()
	err := s.repo.Create(ctx, log)
	if s.metrics != nil {
		s.metrics.ObserveAuditWrite(time.Since(start))
	}
	return err
}

// StartAsync moves writes onto a background queue so requests do not wait
// for the database. Call Stop before exit to flush pending entries.
func (s *AuditService) StartAsync(ctx context.Context, cfg jobs.QueueConfig) {
	if s == nil || s.repo == nil || s.queue != nil {
		return
	}
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	s.queue = jobs.NewQueue("audit", func(ctx context.Context, job jobs.Job) error {
		log, ok := job.Payload.(*models.AuditLog)
		if !ok {
			return nil
		}
		return s.write(ctx, log)
	}, cfg)
	s.queue.Start(ctx)
}

// Stop flushes queued entries. It is a no-op without StartAsync.
func (s *AuditService) Stop() {
	if s == nil || s.queue == nil {
		return
	}
	s.queue.Stop()
}
