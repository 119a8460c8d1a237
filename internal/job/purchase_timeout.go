package job

import (
	"context"
	"time"

	"lottoinsight/internal/config"
	"lottoinsight/internal/service"

	"github.com/sirupsen/logrus"
)

// PurchaseTimeoutJob fails gateway purchases whose callback never came.
type PurchaseTimeoutJob struct {
	purchases *service.PurchaseService
	cfg       *config.Config
	log       *logrus.Logger
	stopCh    chan struct{}
	interval  time.Duration
	batchSize int
}

func NewPurchaseTimeoutJob(purchases *service.PurchaseService, cfg *config.Config, log *logrus.Logger) *PurchaseTimeoutJob {
	return &PurchaseTimeoutJob{
		purchases: purchases,
		cfg:       cfg,
		log:       log,
		stopCh:    make(chan struct{}),
		interval:  30 * time.Second,
		batchSize: 100,
	}
}

func (j *PurchaseTimeoutJob) Start(ctx context.Context) {
	j.log.Info("[PurchaseTimeoutJob] started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("[PurchaseTimeoutJob] context done, exiting")
			return
		case <-j.stopCh:
			j.log.Info("[PurchaseTimeoutJob] stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx, time.Now())
		}
	}
}

func (j *PurchaseTimeoutJob) Stop() {
	close(j.stopCh)
}

// RunOnce fails purchases created more than the configured timeout before now.
func (j *PurchaseTimeoutJob) RunOnce(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-time.Duration(j.cfg.Business.GatewayPurchaseTimeoutMinutes) * time.Minute)
	n, err := j.purchases.FailStalePending(ctx, cutoff, j.batchSize)
	if err != nil {
		j.log.WithError(err).Error("[PurchaseTimeoutJob] load stale purchases")
		return 0
	}
	if n > 0 {
		j.log.WithField("count", n).Info("[PurchaseTimeoutJob] stale gateway purchases failed")
	}
	return n
}
