package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

const (
	EventPredictionPublished = "prediction_published"
	EventResultPublished     = "result_published"
)

// OutboxMessage notification event written in the same DB transaction as
// the business change and relayed to Kafka by the outbox sender.
type OutboxMessage struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventType   string    `gorm:"type:varchar(32);not null" json:"event_type"`
	LotteryCode string    `gorm:"type:varchar(32);not null" json:"lottery_code"`
	MessageKey  string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic       string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload     string    `gorm:"type:text;not null" json:"payload"`
	Status      string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount  int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// NotificationEvent Kafka payload of an OutboxMessage.
type NotificationEvent struct {
	EventType   string    `json:"event_type"`
	LotteryCode string    `json:"lottery_code"`
	RefID       int64     `json:"ref_id"`
	DrawDate    string    `json:"draw_date"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
}
