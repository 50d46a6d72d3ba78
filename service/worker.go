package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"

	"github.com/fido1hn/agentic-autonomous-wallets/config"
	"github.com/fido1hn/agentic-autonomous-wallets/contexthelper"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/tasks"
	"github.com/fido1hn/agentic-autonomous-wallets/storage"
)

// WorkerService consumes background tasks: archiving execution logs to block
// storage so the hot database keeps only recent history.
type WorkerService struct {
	cfg          config.Config
	logger       *logrus.Logger
	db           storage.DatabaseStorage
	queueClient  *asynq.Client
	sdClient     *statsd.Client
	blockStorage *storage.BlockStorage
}

// NewWorker creates a new worker service
func NewWorker(cfg config.Config, db storage.DatabaseStorage, queueClient *asynq.Client, sdClient *statsd.Client, blockStorage *storage.BlockStorage) (*WorkerService, error) {
	if db == nil {
		return nil, fmt.Errorf("database storage cannot be nil")
	}
	if blockStorage == nil {
		return nil, fmt.Errorf("block storage cannot be nil")
	}

	return &WorkerService{
		cfg:          cfg,
		logger:       logrus.WithField("service", "worker").Logger,
		db:           db,
		queueClient:  queueClient,
		sdClient:     sdClient,
		blockStorage: blockStorage,
	}, nil
}

func (s *WorkerService) incCounter(name string, tags []string) {
	if err := s.sdClient.Count(name, 1, tags, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}
}

func (s *WorkerService) measureTime(name string, start time.Time, tags []string) {
	if err := s.sdClient.Timing(name, time.Since(start), tags, 1); err != nil {
		s.logger.Errorf("fail to measure time metric, err: %v", err)
	}
}

// HandleAuditArchive compresses one execution log and ships it to block
// storage under audit/<agent>/<log id>.json.xz.
func (s *WorkerService) HandleAuditArchive(ctx context.Context, t *asynq.Task) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	defer s.measureTime("worker.audit.archive.latency", time.Now(), []string{})

	var payload tasks.AuditArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logID, err := uuid.Parse(payload.ExecutionLogID)
	if err != nil {
		return fmt.Errorf("invalid execution log id %s: %w", payload.ExecutionLogID, asynq.SkipRetry)
	}

	s.logger.WithFields(logrus.Fields{
		"execution_log_id": payload.ExecutionLogID,
		"agent_id":         payload.AgentID,
	}).Info("archiving execution log")
	s.incCounter("worker.audit.archive", []string{})

	record, err := s.db.GetExecutionLog(ctx, logID)
	if err != nil {
		return fmt.Errorf("fail to get execution log, err: %w", err)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %v: %w", err, asynq.SkipRetry)
	}

	var compressed bytes.Buffer
	xzWriter, err := xz.NewWriter(&compressed)
	if err != nil {
		return fmt.Errorf("fail to create xz writer, err: %w", err)
	}
	if _, err := xzWriter.Write(raw); err != nil {
		return fmt.Errorf("fail to compress execution log, err: %w", err)
	}
	if err := xzWriter.Close(); err != nil {
		return fmt.Errorf("fail to close xz writer, err: %w", err)
	}

	fileName := fmt.Sprintf("audit/%s/%s.json.xz", record.AgentID, record.ID)
	if err := s.blockStorage.UploadFileWithRetry(compressed.Bytes(), fileName, 3); err != nil {
		s.incCounter("worker.audit.archive.error", []string{})
		return fmt.Errorf("fail to upload audit archive, err: %w", err)
	}

	if _, err := t.ResultWriter().Write([]byte(fileName)); err != nil {
		return fmt.Errorf("t.ResultWriter.Write failed: %v", err)
	}
	return nil
}
