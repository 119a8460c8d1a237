package job

import (
	"context"
	"time"

	"lottoinsight/internal/config"
	"lottoinsight/internal/infrastructure/mq"
	"lottoinsight/internal/model"
	"lottoinsight/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OutboxSender relays pending outbox rows to Kafka. A row that fails
// max_retry_count times is parked as FAILED for an admin requeue.
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	publisher  mq.Publisher
	cfg        *config.Config
	log        *logrus.Logger
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(db *gorm.DB, publisher mq.Publisher, cfg *config.Config, log *logrus.Logger) *OutboxSender {
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		publisher:  publisher,
		cfg:        cfg,
		log:        log,
		stopCh:     make(chan struct{}),
		interval:   500 * time.Millisecond,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("[OutboxSender] started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("[OutboxSender] context done, exiting")
			return
		case <-s.stopCh:
			s.log.Info("[OutboxSender] stopped")
			return
		case <-ticker.C:
			s.ProcessPending(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

// ProcessPending sends one batch.
func (s *OutboxSender) ProcessPending(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.WithError(err).Error("[OutboxSender] load pending messages")
		return
	}
	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	fields := logrus.Fields{"outbox_id": msg.ID, "topic": msg.Topic, "key": msg.MessageKey}

	err := s.publisher.Publish(ctx, msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outboxRepo.MarkAsSent(ctx, msg.ID); updateErr != nil {
			s.log.WithFields(fields).WithError(updateErr).Error("[OutboxSender] mark sent")
			return
		}
		s.log.WithFields(fields).Debug("[OutboxSender] message sent")
		return
	}

	s.log.WithFields(fields).WithError(err).Warn("[OutboxSender] publish failed")

	if msg.RetryCount+1 >= s.cfg.Business.MaxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			s.log.WithFields(fields).WithError(err).Error("[OutboxSender] mark failed")
			return
		}
		s.log.WithFields(fields).Error("[OutboxSender] retries exhausted, message parked")
		return
	}
	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		s.log.WithFields(fields).WithError(err).Error("[OutboxSender] increment retry count")
	}
}
