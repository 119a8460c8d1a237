// Package notify fans published events out to SMS subscribers. Delivery is
// best-effort: failures are logged and counted, never retried here.
package notify

import (
	"context"

	"lottoinsight/internal/metrics"
	"lottoinsight/internal/model"

	"github.com/sirupsen/logrus"
)

// SubscriberLister returns the SMS audience of a lottery.
type SubscriberLister interface {
	ListSMSSubscribers(ctx context.Context, lotteryCode string) ([]model.User, error)
}

type Dispatcher struct {
	users  SubscriberLister
	sender SMSSender
	log    *logrus.Logger
}

func NewDispatcher(users SubscriberLister, sender SMSSender, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{users: users, sender: sender, log: log}
}

// DispatchResult counts of one fan-out.
type DispatchResult struct {
	Sent   int
	Failed int
}

// Dispatch sends ev.Message to every subscriber of ev.LotteryCode.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *model.NotificationEvent) (DispatchResult, error) {
	var res DispatchResult
	users, err := d.users.ListSMSSubscribers(ctx, ev.LotteryCode)
	if err != nil {
		return res, err
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := d.sender.Send(ctx, u.Phone, ev.Message); err != nil {
			res.Failed++
			metrics.RecordSMS(false)
			d.log.WithFields(logrus.Fields{"user_id": u.ID, "event": ev.EventType}).WithError(err).Warn("sms delivery failed")
			continue
		}
		res.Sent++
		metrics.RecordSMS(true)
	}

	d.log.WithFields(logrus.Fields{
		"event":   ev.EventType,
		"lottery": ev.LotteryCode,
		"ref_id":  ev.RefID,
		"sent":    res.Sent,
		"failed":  res.Failed,
	}).Info("notification dispatched")
	return res, nil
}
