package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"lottoinsight/internal/config"
	"lottoinsight/internal/lottery"
	"lottoinsight/internal/model"
	"lottoinsight/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var drawTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type PredictionService struct {
	db             *gorm.DB
	cfg            *config.Config
	log            *logrus.Logger
	now            func() time.Time
	predictionRepo *repository.PredictionRepository
	outboxRepo     *repository.OutboxRepository
}

func NewPredictionService(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *PredictionService {
	return &PredictionService{
		db:             db,
		cfg:            cfg,
		log:            log,
		now:            time.Now,
		predictionRepo: repository.NewPredictionRepository(db),
		outboxRepo:     repository.NewOutboxRepository(db),
	}
}

// PredictionInput admin payload. Viable numbers are never accepted; they are
// derived on read.
type PredictionInput struct {
	LotteryCode string
	DrawDate    string // YYYY-MM-DD
	DrawTime    string // HH:MM
	NonViable   lottery.NumberSet
	PriceCents  *int64
	IsActive    *bool
	Notes       string
}

// AdminPrediction prediction with its stored non-viable numbers.
type AdminPrediction struct {
	*model.Prediction
	NonViable lottery.NumberSet `json:"non_viable"`
}

func adminView(p *model.Prediction) *AdminPrediction {
	return &AdminPrediction{Prediction: p, NonViable: p.NonViable()}
}

type validInput struct {
	def       lottery.Definition
	drawDate  time.Time
	nonViable lottery.NumberSet
}

func (s *PredictionService) validate(in *PredictionInput) (*validInput, error) {
	fields := map[string]string{}
	out := &validInput{}

	def, err := lottery.Lookup(in.LotteryCode)
	if err != nil {
		fields["lottery_code"] = "unknown lottery"
	}
	out.def = def

	drawDate, err := time.ParseInLocation("2006-01-02", in.DrawDate, time.UTC)
	if err != nil {
		fields["draw_date"] = "must be YYYY-MM-DD"
	}
	out.drawDate = drawDate

	if !drawTimePattern.MatchString(in.DrawTime) {
		fields["draw_time"] = "must be HH:MM"
	}
	if in.PriceCents != nil && *in.PriceCents < 0 {
		fields["price"] = "must not be negative"
	}

	if _, unknown := fields["lottery_code"]; !unknown {
		set, err := def.Validate(in.NonViable)
		var rangeErr *lottery.OutOfRangeError
		switch {
		case errors.As(err, &rangeErr):
			fields["non_viable."+rangeErr.Field] = rangeErr.Error()
		case err != nil:
			fields["non_viable"] = err.Error()
		case set.Empty():
			fields["non_viable"] = "at least one number is required"
		}
		out.nonViable = set
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return out, nil
}

func (s *PredictionService) Create(ctx context.Context, adminID int64, in *PredictionInput) (*AdminPrediction, error) {
	v, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	p := &model.Prediction{
		LotteryCode: v.def.Code,
		DrawDate:    v.drawDate,
		DrawTime:    in.DrawTime,
		PriceCents:  v.def.PriceCents,
		IsActive:    true,
		UploadedBy:  adminID,
		Notes:       in.Notes,
	}
	if in.PriceCents != nil {
		p.PriceCents = *in.PriceCents
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := p.SetNonViable(v.nonViable); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.predictionRepo.Create(ctx, tx, p); err != nil {
			return fmt.Errorf("create prediction: %w", err)
		}
		if !p.IsActive {
			return nil
		}
		return s.announce(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"prediction_id": p.ID, "lottery": p.LotteryCode, "admin_id": adminID}).Info("prediction created")
	return adminView(p), nil
}

// Update rewrites a prediction. Activating an inactive prediction announces it.
func (s *PredictionService) Update(ctx context.Context, id int64, in *PredictionInput) (*AdminPrediction, error) {
	v, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	var p *model.Prediction
	err = s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.predictionRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		wasActive := current.IsActive

		current.LotteryCode = v.def.Code
		current.DrawDate = v.drawDate
		current.DrawTime = in.DrawTime
		current.Notes = in.Notes
		if in.PriceCents != nil {
			current.PriceCents = *in.PriceCents
		}
		if in.IsActive != nil {
			current.IsActive = *in.IsActive
		}
		if err := current.SetNonViable(v.nonViable); err != nil {
			return err
		}
		current.ClearLegacyViable()

		if err := s.predictionRepo.Save(ctx, tx, current); err != nil {
			return fmt.Errorf("save prediction: %w", err)
		}
		p = current
		if !wasActive && current.IsActive {
			return s.announce(ctx, tx, current)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrPredictionNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	return adminView(p), nil
}

func (s *PredictionService) SetActive(ctx context.Context, id int64, active bool) (*AdminPrediction, error) {
	var p *model.Prediction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.predictionRepo.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.IsActive == active {
			p = current
			return nil
		}
		current.IsActive = active
		if err := s.predictionRepo.Save(ctx, tx, current); err != nil {
			return err
		}
		p = current
		if active {
			return s.announce(ctx, tx, current)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrPredictionNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	return adminView(p), nil
}

// SetAccuracy records how the prediction did once the real draw is known.
func (s *PredictionService) SetAccuracy(ctx context.Context, id int64, accuracy float64) (*AdminPrediction, error) {
	if accuracy < 0 || accuracy > 100 {
		return nil, invalid("accuracy", "must be between 0 and 100")
	}
	p, err := s.predictionRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repository.ErrPredictionNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	p.Accuracy = &accuracy
	if err := s.predictionRepo.Save(ctx, nil, p); err != nil {
		return nil, err
	}
	return adminView(p), nil
}

func (s *PredictionService) Delete(ctx context.Context, id int64) error {
	err := s.predictionRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrPredictionNotFound) {
		return ErrPredictionNotFound
	}
	if err == nil {
		s.log.WithField("prediction_id", id).Warn("prediction deleted")
	}
	return err
}

func (s *PredictionService) Get(ctx context.Context, id int64) (*AdminPrediction, error) {
	p, err := s.predictionRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repository.ErrPredictionNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	return adminView(p), nil
}

// List predictions of a lottery. Users only see active ones; numbers are
// never part of the listing.
func (s *PredictionService) List(ctx context.Context, lotteryCode string, includeInactive bool, page, pageSize int) ([]*model.Prediction, int64, error) {
	code := ""
	if lotteryCode != "" {
		def, err := lottery.Lookup(lotteryCode)
		if err != nil {
			return nil, 0, invalid("lottery_code", "unknown lottery")
		}
		code = def.Code
	}
	return s.predictionRepo.List(ctx, repository.PredictionFilter{
		LotteryCode: code,
		ActiveOnly:  !includeInactive,
		Page:        page,
		PageSize:    pageSize,
	})
}

func (s *PredictionService) announce(ctx context.Context, tx *gorm.DB, p *model.Prediction) error {
	name := p.LotteryCode
	if def, err := lottery.Lookup(p.LotteryCode); err == nil {
		name = def.Name
	}
	date := p.DrawDate.Format("2006-01-02")
	return enqueueNotification(ctx, tx, s.outboxRepo, s.cfg.Kafka.Topic.Notification, model.NotificationEvent{
		EventType:   model.EventPredictionPublished,
		LotteryCode: p.LotteryCode,
		RefID:       p.ID,
		DrawDate:    date,
		Message:     fmt.Sprintf("New %s prediction for the %s %s draw is available.", name, date, p.DrawTime),
		OccurredAt:  s.now(),
	})
}
