package service

import (
	"lottoinsight/internal/auth"
	"lottoinsight/internal/config"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container wires every service over one DB and Redis client.
type Container struct {
	User       *UserService
	Wallet     *WalletService
	Access     *AccessService
	Purchase   *PurchaseService
	Refund     *RefundService
	Prediction *PredictionService
	Result     *ResultService
	Outbox     *OutboxService
}

func NewContainer(db *gorm.DB, rdb *redis.Client, tokens *auth.TokenManager, cfg *config.Config, log *logrus.Logger) *Container {
	wallet := NewWalletService(db, rdb, cfg, log)
	return &Container{
		User:       NewUserService(db, tokens, wallet, cfg, log),
		Wallet:     wallet,
		Access:     NewAccessService(db, rdb, cfg, log),
		Purchase:   NewPurchaseService(db, wallet, cfg, log),
		Refund:     NewRefundService(db, wallet, cfg, log),
		Prediction: NewPredictionService(db, cfg, log),
		Result:     NewResultService(db, cfg, log),
		Outbox:     NewOutboxService(db),
	}
}
