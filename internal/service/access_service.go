package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lottoinsight/internal/config"
	"lottoinsight/internal/infrastructure/lock"
	"lottoinsight/internal/lottery"
	"lottoinsight/internal/metrics"
	"lottoinsight/internal/model"
	"lottoinsight/internal/repository"
	"lottoinsight/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ============================================================================
// Entitlement engine
// ============================================================================
//
// Evaluated on every detail request, in order:
//
//   1. completed purchase exists          -> granted (paid)
//   2. trial purchase exists              -> granted (trial), even after the
//                                            trial window has closed
//   3. trial checks, first failure wins:
//        no trial window                  -> must_purchase
//        now outside [start, end]         -> trial_expired
//        no selected lottery              -> no_lottery_selected
//        selected != prediction lottery   -> lottery_mismatch
//        trial already used today         -> already_viewed_today
//      all passed                         -> grant: TrialGrant(user, day) +
//                                            trial Purchase + user update in
//                                            one DB transaction
//
// The (user_id, day) unique index on TrialGrant makes two concurrent grants
// for the same day collide; the loser re-evaluates.
// ============================================================================

// Reason why access was denied.
type Reason string

const (
	ReasonLotteryMismatch    Reason = "lottery_mismatch"
	ReasonNoLotterySelected  Reason = "no_lottery_selected"
	ReasonTrialExpired       Reason = "trial_expired"
	ReasonAlreadyViewedToday Reason = "already_viewed_today"
	ReasonMustPurchase       Reason = "must_purchase"
)

var reasonMessages = map[Reason]string{
	ReasonLotteryMismatch:    "Your free trial covers a different lottery. Purchase this prediction to view it.",
	ReasonNoLotterySelected:  "Select a lottery in your profile to use your free trial.",
	ReasonTrialExpired:       "Your free trial has ended. Purchase this prediction to view it.",
	ReasonAlreadyViewedToday: "You have already used today's free prediction. Come back tomorrow.",
	ReasonMustPurchase:       "Purchase this prediction to view it.",
}

func (r Reason) Message() string {
	return reasonMessages[r]
}

// Access how a granted decision was reached.
type Access string

const (
	AccessPaid         Access = "paid"
	AccessTrial        Access = "trial"
	AccessTrialGranted Access = "trial_granted"
	AccessAdmin        Access = "admin"
)

// Decision outcome of an entitlement evaluation. Denials are values, not errors.
type Decision struct {
	Granted  bool            `json:"granted"`
	Access   Access          `json:"access,omitempty"`
	Reason   Reason          `json:"reason,omitempty"`
	Message  string          `json:"message,omitempty"`
	Purchase *model.Purchase `json:"-"`
}

func grant(access Access, p *model.Purchase) Decision {
	return Decision{Granted: true, Access: access, Purchase: p}
}

func deny(r Reason) Decision {
	return Decision{Reason: r, Message: r.Message()}
}

func (d Decision) outcome() string {
	if d.Granted {
		return string(d.Access)
	}
	return string(d.Reason)
}

// TrialStatus the user's trial state at one instant. The entitlement engine
// and the profile endpoint both read it from TrialStatusAt.
type TrialStatus struct {
	Active        bool       `json:"active"`
	StartAt       *time.Time `json:"start_at"`
	EndAt         *time.Time `json:"end_at"`
	UsedToday     bool       `json:"used_today"`
	Lottery       string     `json:"lottery"`
	DaysRemaining int        `json:"days_remaining"`
}

// TrialStatusAt evaluates the trial window and the one-per-day rule.
// Days are calendar days in loc.
func TrialStatusAt(u *model.User, now time.Time, loc *time.Location) TrialStatus {
	st := TrialStatus{StartAt: u.TrialStartAt, EndAt: u.TrialEndAt, Lottery: u.SelectedLottery}
	if u.TrialStartAt == nil || u.TrialEndAt == nil {
		return st
	}
	st.Active = !now.Before(*u.TrialStartAt) && !now.After(*u.TrialEndAt)
	if st.Active {
		st.DaysRemaining = int(u.TrialEndAt.Sub(now).Hours() / 24)
	}
	st.UsedToday = u.LastTrialPredictionAt != nil && sameDay(*u.LastTrialPredictionAt, now, loc)
	return st
}

// trialReason returns "" when a new trial grant is allowed.
func trialReason(u *model.User, lotteryCode string, now time.Time, loc *time.Location) Reason {
	st := TrialStatusAt(u, now, loc)
	switch {
	case st.StartAt == nil || st.EndAt == nil:
		return ReasonMustPurchase
	case !st.Active:
		return ReasonTrialExpired
	case u.SelectedLottery == "":
		return ReasonNoLotterySelected
	case lottery.NormalizeCode(u.SelectedLottery) != lottery.NormalizeCode(lotteryCode):
		return ReasonLotteryMismatch
	case st.UsedToday:
		return ReasonAlreadyViewedToday
	}
	return ""
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	return dayKey(a, loc) == dayKey(b, loc)
}

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// ============================================================================
// Service
// ============================================================================

const trialLockScope = "trial"

var errTrialRace = errors.New("trial grant collided")

type AccessService struct {
	db             *gorm.DB
	locker         *lock.Locker
	cfg            *config.Config
	log            *logrus.Logger
	loc            *time.Location
	now            func() time.Time
	userRepo       *repository.UserRepository
	predictionRepo *repository.PredictionRepository
	purchaseRepo   *repository.PurchaseRepository
	trialRepo      *repository.TrialGrantRepository
}

func NewAccessService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config, log *logrus.Logger) *AccessService {
	return &AccessService{
		db:             db,
		locker:         lock.NewLocker(redisClient),
		cfg:            cfg,
		log:            log,
		loc:            cfg.Business.Location(),
		now:            time.Now,
		userRepo:       repository.NewUserRepository(db),
		predictionRepo: repository.NewPredictionRepository(db),
		purchaseRepo:   repository.NewPurchaseRepository(db),
		trialRepo:      repository.NewTrialGrantRepository(db),
	}
}

// PredictionDetails response of a detail request. Viable is only set when
// access was granted.
type PredictionDetails struct {
	Prediction *model.Prediction `json:"prediction"`
	Decision   Decision          `json:"decision"`
	Viable     *lottery.Viable   `json:"viable,omitempty"`
}

// Decide evaluates access without writing anything. A grantable trial is
// reported as AccessTrialGranted.
func (s *AccessService) Decide(ctx context.Context, user *model.User, prediction *model.Prediction) (Decision, error) {
	return s.evaluate(ctx, nil, user, prediction, s.now())
}

func (s *AccessService) evaluate(ctx context.Context, tx *gorm.DB, user *model.User, prediction *model.Prediction, now time.Time) (Decision, error) {
	existing, err := s.purchaseRepo.FindEntitling(ctx, tx, user.ID, prediction.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("find purchase: %w", err)
	}
	if existing != nil {
		if existing.PaymentStatus == model.PurchaseStatusCompleted {
			return grant(AccessPaid, existing), nil
		}
		return grant(AccessTrial, existing), nil
	}
	if user.IsAdmin() {
		return grant(AccessAdmin, nil), nil
	}
	if r := trialReason(user, prediction.LotteryCode, now, s.loc); r != "" {
		return deny(r), nil
	}
	return grant(AccessTrialGranted, nil), nil
}

// GetPredictionDetails runs the entitlement engine for (user, prediction),
// records the view and derives the viable numbers when access is granted.
func (s *AccessService) GetPredictionDetails(ctx context.Context, userID int64, lotteryCode string, predictionID int64) (*PredictionDetails, error) {
	prediction, err := s.predictionRepo.GetByID(ctx, nil, predictionID)
	if err != nil {
		if errors.Is(err, repository.ErrPredictionNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	if lotteryCode != "" && lottery.NormalizeCode(lotteryCode) != lottery.NormalizeCode(prediction.LotteryCode) {
		return nil, ErrPredictionNotFound
	}

	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now := s.now()
	decision, err := s.evaluate(ctx, nil, user, prediction, now)
	if err != nil {
		return nil, err
	}

	// inactive predictions stay visible only to users who already hold them
	if !prediction.IsActive && (decision.Access != AccessPaid && decision.Access != AccessTrial && decision.Access != AccessAdmin) {
		return nil, ErrPredictionNotFound
	}

	if decision.Access == AccessTrialGranted {
		decision, err = s.grantTrial(ctx, user, prediction, now)
		if err != nil {
			return nil, err
		}
	}

	metrics.RecordDecision(decision.outcome())
	fields := logrus.Fields{"user_id": userID, "prediction_id": predictionID, "outcome": decision.outcome()}
	if !decision.Granted {
		s.log.WithFields(fields).Info("prediction access denied")
		return &PredictionDetails{Prediction: prediction, Decision: decision}, nil
	}

	if decision.Purchase != nil && decision.Access != AccessTrialGranted {
		if err := s.RecordView(ctx, decision.Purchase, now); err != nil {
			return nil, err
		}
	}

	viable, err := lottery.DeriveViable(prediction.LotteryCode, prediction.NonViable(), prediction.LegacyViable())
	if err != nil {
		return nil, fmt.Errorf("derive viable numbers: %w", err)
	}
	s.log.WithFields(fields).Debug("prediction access granted")
	return &PredictionDetails{Prediction: prediction, Decision: decision, Viable: &viable}, nil
}

// RecordView touches the purchase's download tracking; the first-ever view
// also bumps the prediction's download counter.
func (s *AccessService) RecordView(ctx context.Context, purchase *model.Purchase, at time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.recordViewTx(ctx, tx, purchase, at)
	})
}

func (s *AccessService) recordViewTx(ctx context.Context, tx *gorm.DB, purchase *model.Purchase, at time.Time) error {
	first, err := s.purchaseRepo.MarkViewed(ctx, tx, purchase.ID, at)
	if err != nil {
		return fmt.Errorf("mark viewed: %w", err)
	}
	if !first {
		return nil
	}
	if err := s.predictionRepo.IncrementDownloadCount(ctx, tx, purchase.PredictionID); err != nil {
		return fmt.Errorf("increment download count: %w", err)
	}
	return nil
}

func (s *AccessService) grantTrial(ctx context.Context, user *model.User, prediction *model.Prediction, now time.Time) (Decision, error) {
	var decision Decision
	err := s.locker.WithUser(ctx, trialLockScope, user.ID, uuid.NewString(), func() error {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			fresh, err := s.userRepo.GetByID(ctx, tx, user.ID)
			if err != nil {
				return err
			}
			decision, err = s.evaluate(ctx, tx, fresh, prediction, now)
			if err != nil {
				return err
			}
			if decision.Access != AccessTrialGranted {
				return nil
			}

			grantRow := &model.TrialGrant{UserID: user.ID, Day: dayKey(now, s.loc), PredictionID: prediction.ID}
			if err := s.trialRepo.Create(ctx, tx, grantRow); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return errTrialRace
				}
				return fmt.Errorf("create trial grant: %w", err)
			}

			purchase := &model.Purchase{
				TransactionID:  idgen.GenerateTrialNo(),
				UserID:         user.ID,
				PredictionID:   prediction.ID,
				PaymentStatus:  model.PurchaseStatusTrial,
				AmountCents:    0,
				PaymentMethod:  model.PaymentMethodTrial,
				IsTrialView:    true,
				EntitlementKey: model.TrialEntitlementKey(user.ID, prediction.ID),
			}
			if err := s.purchaseRepo.Create(ctx, tx, purchase); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return errTrialRace
				}
				return fmt.Errorf("create trial purchase: %w", err)
			}

			if err := s.userRepo.SetLastTrialPrediction(ctx, tx, user.ID, now); err != nil {
				return fmt.Errorf("update last trial prediction: %w", err)
			}
			if err := s.recordViewTx(ctx, tx, purchase, now); err != nil {
				return err
			}
			decision.Purchase = purchase
			return nil
		})
		if !errors.Is(err, errTrialRace) {
			return err
		}

		// another grant won; whatever it wrote is now committed
		fresh, err := s.userRepo.GetByID(ctx, nil, user.ID)
		if err != nil {
			return err
		}
		decision, err = s.evaluate(ctx, nil, fresh, prediction, now)
		if err != nil {
			return err
		}
		if decision.Access == AccessTrialGranted {
			decision = deny(ReasonAlreadyViewedToday)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockFailed) {
			return Decision{}, ErrBusy
		}
		return Decision{}, err
	}

	if decision.Access == AccessTrialGranted {
		s.log.WithFields(logrus.Fields{
			"user_id":        user.ID,
			"prediction_id":  prediction.ID,
			"transaction_id": decision.Purchase.TransactionID,
		}).Info("trial view granted")
	}
	return decision, nil
}
