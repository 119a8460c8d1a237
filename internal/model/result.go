package model

import (
	"time"

	"lottoinsight/internal/lottery"

	"gorm.io/datatypes"
)

// DrawResult official winning numbers for one drawing, entered by an admin.
type DrawResult struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	LotteryCode      string         `gorm:"type:varchar(32);uniqueIndex:idx_result_lottery_draw;not null" json:"lottery_code"`
	DrawDate         time.Time      `gorm:"type:date;uniqueIndex:idx_result_lottery_draw;not null" json:"draw_date"`
	WinningPrimary   datatypes.JSON `json:"-"`
	WinningSecondary datatypes.JSON `json:"-"`
	JackpotCents     int64          `gorm:"not null;default:0" json:"jackpot_cents"`
	RecordedBy       int64          `gorm:"not null" json:"recorded_by"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

func (DrawResult) TableName() string {
	return "draw_result"
}

func (r *DrawResult) Winning() lottery.NumberSet {
	return lottery.NumberSet{Primary: decodeInts(r.WinningPrimary), Secondary: decodeInts(r.WinningSecondary)}
}

func (r *DrawResult) SetWinning(set lottery.NumberSet) error {
	primary, secondary, err := encodeSet(set)
	if err != nil {
		return err
	}
	r.WinningPrimary, r.WinningSecondary = primary, secondary
	return nil
}
