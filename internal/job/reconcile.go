package job

import (
	"context"

	"lottoinsight/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReconcileJob runs wallet reconciliation on a cron schedule.
type ReconcileJob struct {
	wallet *service.WalletService
	log    *logrus.Logger
	cron   *cron.Cron
}

func NewReconcileJob(wallet *service.WalletService, log *logrus.Logger) *ReconcileJob {
	return &ReconcileJob{
		wallet: wallet,
		log:    log,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules the job with a standard 5-field spec and returns at once.
func (j *ReconcileJob) Start(ctx context.Context, spec string) error {
	_, err := j.cron.AddFunc(spec, func() { j.RunOnce(ctx) })
	if err != nil {
		return err
	}
	j.cron.Start()
	j.log.WithField("schedule", spec).Info("[ReconcileJob] scheduled")
	return nil
}

// Stop waits for a running pass to finish.
func (j *ReconcileJob) Stop() {
	<-j.cron.Stop().Done()
}

func (j *ReconcileJob) RunOnce(ctx context.Context) {
	report, err := j.wallet.Reconcile(ctx)
	if err != nil {
		j.log.WithError(err).Error("[ReconcileJob] reconcile")
		return
	}
	j.log.WithFields(logrus.Fields{
		"checked":  report.Checked,
		"repaired": report.Repaired,
		"failed":   report.Failed,
	}).Info("[ReconcileJob] pass finished")
}
