package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User registered customer or back-office admin.
// The wallet balance is not stored here: it is read from the Wallet row,
// which the ledger keeps in step with its entries.
type User struct {
	ID                    int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                  string     `gorm:"type:varchar(128);not null" json:"name"`
	Email                 string     `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`
	Phone                 string     `gorm:"type:varchar(32)" json:"phone"`
	PasswordHash          string     `gorm:"type:varchar(128);not null" json:"-"`
	Role                  string     `gorm:"type:varchar(16);index;not null;default:user" json:"role"`
	SelectedLottery       string     `gorm:"type:varchar(32);index" json:"selected_lottery"` // the one game the trial applies to
	SMSOptIn              bool       `gorm:"not null;default:false" json:"sms_opt_in"`
	TrialStartAt          *time.Time `json:"trial_start_at"`
	TrialEndAt            *time.Time `json:"trial_end_at"`
	LastTrialPredictionAt *time.Time `json:"last_trial_prediction_at"`
	CreatedAt             time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "app_user"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
