package service

import (
	"context"
	"testing"
	"time"

	"lottoinsight/internal/auth"
	"lottoinsight/internal/config"
	"lottoinsight/internal/lottery"
	"lottoinsight/internal/model"
	"lottoinsight/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	cfg *config.Config
	c   *Container
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Kafka: config.KafkaConfig{Topic: config.KafkaTopicConfig{Notification: "lotto.notification"}},
		Auth:  config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, SetupSecret: "setup"},
		Business: config.BusinessConfig{
			TrialDays:                     7,
			Timezone:                      "UTC",
			GatewayPurchaseTimeoutMinutes: 30,
			MaxRetryCount:                 3,
			MaxDepositCents:               100000,
		},
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	require.NoError(t, err)

	db := testutil.NewDB(t)
	return &testEnv{
		t:   t,
		ctx: context.Background(),
		db:  db,
		cfg: cfg,
		c:   NewContainer(db, testutil.NewRedis(t), tokens, cfg, testutil.NewLogger()),
	}
}

// setNow pins the clock of every time-aware service.
func (e *testEnv) setNow(now time.Time) {
	clock := func() time.Time { return now }
	e.c.User.now = clock
	e.c.Access.now = clock
	e.c.Purchase.now = clock
	e.c.Prediction.now = clock
	e.c.Result.now = clock
}

func (e *testEnv) user(email, lotteryCode string) *model.User {
	e.t.Helper()
	u, err := e.c.User.Register(e.ctx, &RegisterInput{
		Name:            "Player",
		Email:           email,
		Password:        "password123",
		SelectedLottery: lotteryCode,
	})
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) admin() *model.User {
	e.t.Helper()
	u, err := e.c.User.BootstrapAdmin(e.ctx, "setup", &RegisterInput{
		Name: "Admin", Email: "admin@example.com", Password: "password123",
	})
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) prediction(code string, nonViable []int, priceCents int64) *model.Prediction {
	e.t.Helper()
	p, err := e.c.Prediction.Create(e.ctx, 1, &PredictionInput{
		LotteryCode: code,
		DrawDate:    "2026-03-10",
		DrawTime:    "22:59",
		NonViable:   lotterySet(nonViable),
		PriceCents:  &priceCents,
	})
	require.NoError(e.t, err)
	return p.Prediction
}

func (e *testEnv) deposit(userID, cents int64) *model.Wallet {
	e.t.Helper()
	w, err := e.c.Wallet.Deposit(e.ctx, EntryRequest{UserID: userID, Amount: cents})
	require.NoError(e.t, err)
	return w
}

func (e *testEnv) reloadPrediction(id int64) *model.Prediction {
	e.t.Helper()
	var p model.Prediction
	require.NoError(e.t, e.db.First(&p, id).Error)
	return &p
}

func (e *testEnv) count(m interface{}, query string, args ...interface{}) int64 {
	e.t.Helper()
	var n int64
	require.NoError(e.t, e.db.Model(m).Where(query, args...).Count(&n).Error)
	return n
}

func (e *testEnv) entries(userID int64) []*model.WalletTransaction {
	e.t.Helper()
	var out []*model.WalletTransaction
	require.NoError(e.t, e.db.Where("user_id = ?", userID).Order("id").Find(&out).Error)
	return out
}

func lotterySet(primary []int) lottery.NumberSet {
	return lottery.NumberSet{Primary: primary}
}
