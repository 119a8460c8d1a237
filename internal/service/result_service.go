package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lottoinsight/internal/config"
	"lottoinsight/internal/lottery"
	"lottoinsight/internal/model"
	"lottoinsight/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type ResultService struct {
	db         *gorm.DB
	cfg        *config.Config
	log        *logrus.Logger
	now        func() time.Time
	resultRepo *repository.ResultRepository
	outboxRepo *repository.OutboxRepository
}

func NewResultService(db *gorm.DB, cfg *config.Config, log *logrus.Logger) *ResultService {
	return &ResultService{
		db:         db,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		resultRepo: repository.NewResultRepository(db),
		outboxRepo: repository.NewOutboxRepository(db),
	}
}

type ResultInput struct {
	LotteryCode  string
	DrawDate     string // YYYY-MM-DD
	Winning      lottery.NumberSet
	JackpotCents int64
}

// ResultView result with decoded winning numbers.
type ResultView struct {
	*model.DrawResult
	Winning lottery.NumberSet `json:"winning"`
}

// Record stores the official numbers of one drawing and announces them.
// Each side must hold exactly the game's pick count.
func (s *ResultService) Record(ctx context.Context, adminID int64, in *ResultInput) (*ResultView, error) {
	def, err := lottery.Lookup(in.LotteryCode)
	if err != nil {
		return nil, invalid("lottery_code", "unknown lottery")
	}
	drawDate, err := time.ParseInLocation("2006-01-02", in.DrawDate, time.UTC)
	if err != nil {
		return nil, invalid("draw_date", "must be YYYY-MM-DD")
	}
	if in.JackpotCents < 0 {
		return nil, invalid("jackpot", "must not be negative")
	}

	winning, err := def.Validate(in.Winning)
	if err != nil {
		var rangeErr *lottery.OutOfRangeError
		if errors.As(err, &rangeErr) {
			return nil, invalid("winning."+rangeErr.Field, rangeErr.Error())
		}
		return nil, invalid("winning", err.Error())
	}
	// digit games may repeat a digit, so only the raw count is checked there
	primaryCount := len(winning.Primary)
	if def.DigitGame {
		primaryCount = len(in.Winning.Primary)
	}
	if primaryCount != def.Primary.Picks {
		return nil, invalid("winning.primary", fmt.Sprintf("must hold %d numbers", def.Primary.Picks))
	}
	if def.Secondary != nil && len(winning.Secondary) != def.Secondary.Picks {
		return nil, invalid("winning.secondary", fmt.Sprintf("must hold %d numbers", def.Secondary.Picks))
	}
	if def.DigitGame {
		winning.Primary = append([]int(nil), in.Winning.Primary...)
	}

	result := &model.DrawResult{
		LotteryCode:  def.Code,
		DrawDate:     drawDate,
		JackpotCents: in.JackpotCents,
		RecordedBy:   adminID,
	}
	if err := result.SetWinning(winning); err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.resultRepo.Create(ctx, tx, result); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrResultExists
			}
			return fmt.Errorf("create result: %w", err)
		}
		return enqueueNotification(ctx, tx, s.outboxRepo, s.cfg.Kafka.Topic.Notification, model.NotificationEvent{
			EventType:   model.EventResultPublished,
			LotteryCode: def.Code,
			RefID:       result.ID,
			DrawDate:    in.DrawDate,
			Message:     fmt.Sprintf("%s results for %s: %s", def.Name, in.DrawDate, formatNumbers(winning)),
			OccurredAt:  s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"lottery": def.Code, "draw_date": in.DrawDate, "admin_id": adminID}).Info("draw result recorded")
	return &ResultView{DrawResult: result, Winning: winning}, nil
}

func (s *ResultService) List(ctx context.Context, lotteryCode string, page, pageSize int) ([]ResultView, int64, error) {
	def, err := lottery.Lookup(lotteryCode)
	if err != nil {
		return nil, 0, invalid("lottery_code", "unknown lottery")
	}
	results, total, err := s.resultRepo.ListByLottery(ctx, def.Code, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	views := make([]ResultView, 0, len(results))
	for _, r := range results {
		views = append(views, ResultView{DrawResult: r, Winning: r.Winning()})
	}
	return views, total, nil
}

func formatNumbers(set lottery.NumberSet) string {
	out := fmt.Sprint(set.Primary)
	if len(set.Secondary) > 0 {
		out += fmt.Sprintf(" + %v", set.Secondary)
	}
	return out
}
