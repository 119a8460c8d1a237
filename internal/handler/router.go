package handler

import (
	"lottoinsight/internal/auth"
	"lottoinsight/internal/config"
	"lottoinsight/internal/metrics"
	"lottoinsight/internal/service"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRouter wires middleware and every route.
func SetupRouter(svc *service.Container, tokens *auth.TokenManager, cfg *config.Config, log *logrus.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	useJSONFieldNames()

	r := gin.New()
	r.Use(RecoveryMiddleware(log))
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware())

	if gin.Mode() == gin.DebugMode {
		pprof.Register(r)
	}

	h := NewHandler(svc, log)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api/v1")
	{
		api.GET("/lotteries", h.ListLotteries)
		api.GET("/lotteries/:code/results", h.ListResults)
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.POST("/setup/admin", h.SetupAdmin)
	}

	user := api.Group("", AuthMiddleware(tokens))
	{
		user.GET("/me", h.Me)
		user.PUT("/me/lottery", h.SelectLottery)

		user.GET("/lotteries/:code/predictions", h.ListPredictions)
		user.GET("/lotteries/:code/predictions/:id", h.GetPredictionDetails)
		user.POST("/lotteries/:code/predictions/:id/purchase", h.PurchasePrediction)

		user.GET("/purchases", h.MyPurchases)
		user.GET("/purchases/:txid", h.GetPurchase)

		wallet := user.Group("/wallet")
		{
			wallet.GET("", h.GetWallet)
			wallet.GET("/transactions", h.WalletHistory)
			wallet.POST("/deposit", h.Deposit)
			wallet.POST("/withdraw", h.Withdraw)
			wallet.POST("/pay", h.Pay)
		}
	}

	admin := api.Group("/admin", AuthMiddleware(tokens), AdminMiddleware())
	{
		admin.GET("/predictions", h.AdminListPredictions)
		admin.POST("/predictions", h.CreatePrediction)
		admin.GET("/predictions/:id", h.AdminGetPrediction)
		admin.PUT("/predictions/:id", h.UpdatePrediction)
		admin.PATCH("/predictions/:id/active", h.SetPredictionActive)
		admin.PATCH("/predictions/:id/accuracy", h.SetPredictionAccuracy)
		admin.DELETE("/predictions/:id", h.DeletePrediction)

		admin.POST("/results", h.RecordResult)
		admin.POST("/users/:id/bonus", h.GrantBonus)

		admin.GET("/withdrawals", h.PendingWithdrawals)
		admin.POST("/withdrawals/:entry_no/approve", h.ApproveWithdrawal)
		admin.POST("/withdrawals/:entry_no/reject", h.RejectWithdrawal)
		admin.POST("/wallets/reconcile", h.Reconcile)

		admin.POST("/purchases/:txid/refund", h.RefundPurchase)
		admin.POST("/purchases/:txid/confirm", h.ConfirmGatewayPayment)
		admin.POST("/purchases/:txid/fail", h.FailGatewayPayment)
		admin.POST("/purchases/delete", h.DeletePurchases)

		admin.GET("/stats/revenue", h.RevenueStats)
		admin.GET("/outbox", h.OutboxStats)
		admin.POST("/outbox/requeue", h.RequeueOutbox)
	}

	return r
}
