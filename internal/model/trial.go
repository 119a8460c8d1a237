package model

import "time"

// TrialGrant one row per user per business day on which a free trial view
// was granted. The unique (user_id, day) index makes concurrent grants for
// the same day fail instead of racing.
type TrialGrant struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64     `gorm:"uniqueIndex:idx_trial_user_day;not null" json:"user_id"`
	Day          string    `gorm:"type:varchar(10);uniqueIndex:idx_trial_user_day;not null" json:"day"` // YYYY-MM-DD in business timezone
	PredictionID int64     `gorm:"not null" json:"prediction_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (TrialGrant) TableName() string {
	return "trial_grant"
}
