package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lottoinsight/internal/auth"
	"lottoinsight/internal/config"
	"lottoinsight/internal/handler"
	"lottoinsight/internal/infrastructure/cache"
	"lottoinsight/internal/infrastructure/database"
	"lottoinsight/internal/infrastructure/mq"
	"lottoinsight/internal/job"
	"lottoinsight/internal/notify"
	"lottoinsight/internal/repository"
	"lottoinsight/internal/service"
	"lottoinsight/pkg/idgen"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func newLogger(mode string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if mode == gin.DebugMode {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return log
	}
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	workerID := flag.Int64("worker-id", 1, "snowflake worker id, unique per instance")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := newLogger(cfg.Server.Mode)

	if err := idgen.Init(*workerID); err != nil {
		log.WithError(err).Fatal("init id generator")
	}

	db, err := database.InitMySQL(&cfg.MySQL, cfg.Server.Mode == gin.DebugMode, log)
	if err != nil {
		log.WithError(err).Fatal("init mysql")
	}
	redisClient, err := cache.InitRedis(&cfg.Redis, log)
	if err != nil {
		log.WithError(err).Fatal("init redis")
	}
	defer redisClient.Close()

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.WithError(err).Fatal("init token manager")
	}
	if cfg.Auth.SetupSecret == "" {
		log.Warn("auth.setup_secret is empty: admin bootstrap is disabled")
	}

	producer, err := mq.NewKafkaProducer(&cfg.Kafka)
	if err != nil {
		log.WithError(err).Fatal("init kafka producer")
	}
	defer producer.Close()

	consumerGroup, err := mq.NewConsumerGroup(&cfg.Kafka)
	if err != nil {
		log.WithError(err).Fatal("init kafka consumer group")
	}
	defer consumerGroup.Close()

	svc := service.NewContainer(db, redisClient, tokens, cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// background jobs
	outboxSender := job.NewOutboxSender(db, producer, cfg, log)
	go outboxSender.Start(ctx)

	purchaseTimeout := job.NewPurchaseTimeoutJob(svc.Purchase, cfg, log)
	go purchaseTimeout.Start(ctx)

	reconcile := job.NewReconcileJob(svc.Wallet, log)
	if err := reconcile.Start(ctx, cfg.Business.ReconcileCron); err != nil {
		log.WithError(err).Fatal("start reconcile job")
	}

	// notification fan-out
	dispatcher := notify.NewDispatcher(repository.NewUserRepository(db), notify.NewHTTPSMSSender(&cfg.SMS), log)
	consumer := notify.NewConsumer(dispatcher, log)
	go consumer.Run(ctx, consumerGroup, []string{cfg.Kafka.Topic.Notification})

	router := handler.SetupRouter(svc, tokens, cfg, log)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()
	outboxSender.Stop()
	purchaseTimeout.Stop()
	reconcile.Stop()

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	log.Info("server stopped")
}
