package service

import (
	"context"
	"encoding/json"
	"fmt"

	"lottoinsight/internal/model"
	"lottoinsight/internal/repository"

	"gorm.io/gorm"
)

// enqueueNotification writes the event to the outbox inside tx; the outbox
// sender relays it to Kafka after commit.
func enqueueNotification(ctx context.Context, tx *gorm.DB, repo *repository.OutboxRepository, topic string, ev model.NotificationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	msg := &model.OutboxMessage{
		EventType:   ev.EventType,
		LotteryCode: ev.LotteryCode,
		MessageKey:  fmt.Sprintf("%s:%d", ev.EventType, ev.RefID),
		Topic:       topic,
		Payload:     string(payload),
		Status:      model.OutboxStatusPending,
	}
	if err := repo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("write outbox: %w", err)
	}
	return nil
}

// OutboxService admin view of the notification outbox.
type OutboxService struct {
	repo *repository.OutboxRepository
}

func NewOutboxService(db *gorm.DB) *OutboxService {
	return &OutboxService{repo: repository.NewOutboxRepository(db)}
}

type OutboxStats struct {
	Pending int64 `json:"pending"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
}

func (s *OutboxService) Stats(ctx context.Context) (*OutboxStats, error) {
	var st OutboxStats
	for status, dst := range map[string]*int64{
		model.OutboxStatusPending: &st.Pending,
		model.OutboxStatusSent:    &st.Sent,
		model.OutboxStatusFailed:  &st.Failed,
	} {
		n, err := s.repo.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		*dst = n
	}
	return &st, nil
}

// Requeue returns parked messages to the sender.
func (s *OutboxService) Requeue(ctx context.Context) (int64, error) {
	return s.repo.Requeue(ctx)
}
