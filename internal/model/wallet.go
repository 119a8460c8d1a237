package model

import (
	"time"
)

// Wallet one per user, created lazily on first access.
//
// Balance is the settled amount in cents: credits, bonuses and refunds less
// debits, payments and completed withdrawals. HeldAmount is the part of it
// reserved by pending withdrawals, so only Balance - HeldAmount can be spent.
// Both are only ever changed in the same DB transaction that appends the
// matching ledger entry, and Available never goes negative.
type Wallet struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance        int64     `gorm:"not null;default:0" json:"balance"`
	HeldAmount     int64     `gorm:"not null;default:0" json:"held_amount"`
	TotalDeposited int64     `gorm:"not null;default:0" json:"total_deposited"`
	TotalWithdrawn int64     `gorm:"not null;default:0" json:"total_withdrawn"`
	Version        int       `gorm:"not null;default:0" json:"version"` // optimistic lock
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet"
}

// Available is what pay, debit and withdraw may still take.
func (w *Wallet) Available() int64 {
	return w.Balance - w.HeldAmount
}
