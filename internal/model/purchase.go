package model

import (
	"fmt"
	"time"
)

const (
	PaymentMethodWallet   = "wallet"
	PaymentMethodGatewayA = "gateway-a"
	PaymentMethodGatewayB = "gateway-b"
	PaymentMethodTrial    = "trial"
)

const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusCompleted = "completed"
	PurchaseStatusFailed    = "failed"
	PurchaseStatusRefunded  = "refunded"
	PurchaseStatusTrial     = "trial"
)

// ValidStatusTransitions purchase state machine. trial is terminal and only
// ever created directly by a trial grant.
var ValidStatusTransitions = map[string][]string{
	PurchaseStatusPending:   {PurchaseStatusCompleted, PurchaseStatusFailed},
	PurchaseStatusCompleted: {PurchaseStatusRefunded},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowed, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == targetStatus {
			return true
		}
	}
	return false
}

func IsGatewayMethod(method string) bool {
	return method == PaymentMethodGatewayA || method == PaymentMethodGatewayB
}

// Purchase receipt binding a user to a prediction. A trial-status purchase
// is also the audit record of a free trial view.
//
// EntitlementKey is unique while set: "paid:<user>:<prediction>" for a
// completed purchase, "trial:<user>:<prediction>" for a trial view. It is
// cleared when a completed purchase is refunded.
type Purchase struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionID    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_id"`
	UserID           int64      `gorm:"index:idx_purchase_lookup;not null" json:"user_id"`
	PredictionID     int64      `gorm:"index:idx_purchase_lookup;not null" json:"prediction_id"`
	PaymentStatus    string     `gorm:"type:varchar(16);index:idx_purchase_lookup;not null" json:"payment_status"`
	AmountCents      int64      `gorm:"not null" json:"amount_cents"`
	PaymentMethod    string     `gorm:"type:varchar(16);not null" json:"payment_method"`
	IsTrialView      bool       `gorm:"not null;default:false" json:"is_trial_view"`
	EntitlementKey   *string    `gorm:"type:varchar(96);uniqueIndex" json:"-"`
	DownloadCount    int64      `gorm:"not null;default:0" json:"download_count"`
	LastDownloadedAt *time.Time `json:"last_downloaded_at"`
	RefundReason     string     `gorm:"type:varchar(256)" json:"refund_reason,omitempty"`
	PaidAt           *time.Time `json:"paid_at"`
	RefundedAt       *time.Time `json:"refunded_at"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Purchase) TableName() string {
	return "purchase"
}

func PaidEntitlementKey(userID, predictionID int64) *string {
	k := fmt.Sprintf("paid:%d:%d", userID, predictionID)
	return &k
}

func TrialEntitlementKey(userID, predictionID int64) *string {
	k := fmt.Sprintf("trial:%d:%d", userID, predictionID)
	return &k
}
