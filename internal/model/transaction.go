package model

import (
	"time"

	"gorm.io/datatypes"
)

// ============================================================================
// Ledger entry types
// ============================================================================

const (
	TxTypeCredit     = "credit"     // deposit / top-up
	TxTypeDebit      = "debit"      // prediction purchase paid from wallet
	TxTypeRefund     = "refund"     // offsetting entry for a refunded purchase
	TxTypePayment    = "payment"    // other immediate wallet payments
	TxTypeBonus      = "bonus"      // promotional credit
	TxTypeWithdrawal = "withdrawal" // cash-out, held until approved
)

const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusCancelled = "cancelled"
)

// IsCreditType reports whether entries of this type add to the balance.
func IsCreditType(txType string) bool {
	switch txType {
	case TxTypeCredit, TxTypeRefund, TxTypeBonus:
		return true
	}
	return false
}

// IsDepositType reports whether entries of this type count toward TotalDeposited.
func IsDepositType(txType string) bool {
	return txType == TxTypeCredit || txType == TxTypeBonus
}

// ============================================================================
// Wallet ledger entry
// ============================================================================

// WalletTransaction append-only ledger row.
//
// Amount is always positive; the type decides the direction. Rows are never
// updated or deleted, with one exception: a pending withdrawal's Status
// settles to completed or cancelled when an admin decides on it.
type WalletTransaction struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EntryNo       string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"entry_no"`
	WalletID      int64          `gorm:"index;not null" json:"wallet_id"`
	UserID        int64          `gorm:"index;not null" json:"user_id"`
	Type          string         `gorm:"type:varchar(16);not null" json:"type"`
	Amount        int64          `gorm:"not null" json:"amount"`
	Status        string         `gorm:"type:varchar(16);index;not null" json:"status"`
	Description   string         `gorm:"type:varchar(256)" json:"description"`
	Reference     string         `gorm:"type:varchar(64);index" json:"reference,omitempty"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
	BalanceBefore int64          `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64          `gorm:"not null" json:"balance_after"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transaction"
}
