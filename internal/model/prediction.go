package model

import (
	"time"

	"lottoinsight/internal/lottery"

	"gorm.io/datatypes"
)

// Prediction one drawing's admin-entered non-viable numbers.
//
// Viable numbers are never stored: they are derived on every read.
// ViablePrimary/ViableSecondary are legacy columns kept only until the
// one-time migration rewrites them into the non-viable columns.
type Prediction struct {
	ID                 int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	LotteryCode        string         `gorm:"type:varchar(32);index:idx_prediction_lottery_draw;not null" json:"lottery_code"`
	DrawDate           time.Time      `gorm:"type:date;index:idx_prediction_lottery_draw;not null" json:"draw_date"`
	DrawTime           string         `gorm:"type:varchar(5);not null" json:"draw_time"` // HH:MM
	NonViablePrimary   datatypes.JSON `json:"-"`
	NonViableSecondary datatypes.JSON `json:"-"`
	ViablePrimary      datatypes.JSON `json:"-"`
	ViableSecondary    datatypes.JSON `json:"-"`
	PriceCents         int64          `gorm:"not null;default:0" json:"price_cents"`
	IsActive           bool           `gorm:"index;not null" json:"is_active"`
	UploadedBy         int64          `gorm:"not null" json:"uploaded_by"`
	DownloadCount      int64          `gorm:"not null;default:0" json:"download_count"`
	PurchaseCount      int64          `gorm:"not null;default:0" json:"purchase_count"`
	Accuracy           *float64       `json:"accuracy,omitempty"` // 0-100, set after the real draw
	Notes              string         `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Prediction) TableName() string {
	return "prediction"
}

func (p *Prediction) NonViable() lottery.NumberSet {
	return lottery.NumberSet{Primary: decodeInts(p.NonViablePrimary), Secondary: decodeInts(p.NonViableSecondary)}
}

func (p *Prediction) SetNonViable(set lottery.NumberSet) error {
	primary, secondary, err := encodeSet(set)
	if err != nil {
		return err
	}
	p.NonViablePrimary, p.NonViableSecondary = primary, secondary
	return nil
}

func (p *Prediction) LegacyViable() lottery.NumberSet {
	return lottery.NumberSet{Primary: decodeInts(p.ViablePrimary), Secondary: decodeInts(p.ViableSecondary)}
}

func (p *Prediction) ClearLegacyViable() {
	p.ViablePrimary = nil
	p.ViableSecondary = nil
}
