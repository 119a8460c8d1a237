package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"lottoinsight/internal/auth"
	"lottoinsight/internal/config"
	"lottoinsight/internal/infrastructure/lock"
	"lottoinsight/internal/lottery"
	"lottoinsight/internal/model"
	"lottoinsight/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	minPasswordLen     = 8
	adminBootstrapLock = "admin-bootstrap"
)

type UserService struct {
	db         *gorm.DB
	cfg        *config.Config
	log        *logrus.Logger
	tokens     *auth.TokenManager
	wallet     *WalletService
	locker     *lock.Locker
	now        func() time.Time
	userRepo   *repository.UserRepository
	walletRepo *repository.WalletRepository
}

func NewUserService(db *gorm.DB, tokens *auth.TokenManager, wallet *WalletService, cfg *config.Config, log *logrus.Logger) *UserService {
	return &UserService{
		db:         db,
		cfg:        cfg,
		log:        log,
		tokens:     tokens,
		wallet:     wallet,
		locker:     wallet.locker,
		now:        time.Now,
		userRepo:   repository.NewUserRepository(db),
		walletRepo: repository.NewWalletRepository(db),
	}
}

type RegisterInput struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	SelectedLottery string
	SMSOptIn        bool
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Profile user with the balance read from the wallet and the trial state.
type Profile struct {
	*model.User
	BalanceCents   int64       `json:"balance_cents"`
	HeldCents      int64       `json:"held_cents"`
	AvailableCents int64       `json:"available_cents"`
	Trial          TrialStatus `json:"trial"`
}

func validateRegistration(in *RegisterInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "is required"
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if len(in.Password) < minPasswordLen {
		fields["password"] = fmt.Sprintf("must be at least %d characters", minPasswordLen)
	}
	if in.SelectedLottery != "" && !lottery.IsValidCode(in.SelectedLottery) {
		fields["selected_lottery"] = "unknown lottery"
	}
	if in.SMSOptIn && strings.TrimSpace(in.Phone) == "" {
		fields["phone"] = "is required for SMS notifications"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Register creates a user with a trial window of trial_days starting now,
// and the user's wallet.
func (s *UserService) Register(ctx context.Context, in *RegisterInput) (*model.User, error) {
	return s.createUser(ctx, in, model.RoleUser)
}

func (s *UserService) createUser(ctx context.Context, in *RegisterInput, role string) (*model.User, error) {
	if err := validateRegistration(in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	end := now.AddDate(0, 0, s.cfg.Business.TrialDays)
	user := &model.User{
		Name:            strings.TrimSpace(in.Name),
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:           strings.TrimSpace(in.Phone),
		PasswordHash:    hash,
		Role:            role,
		SelectedLottery: lottery.NormalizeCode(in.SelectedLottery),
		SMSOptIn:        in.SMSOptIn,
		TrialStartAt:    &now,
		TrialEndAt:      &end,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if role == model.RoleAdmin {
			n, err := s.userRepo.CountByRole(ctx, tx, model.RoleAdmin)
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrSetupForbidden
			}
		}
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		_, err := s.walletRepo.GetOrCreate(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": role}).Info("user registered")
	return user, nil
}

// BootstrapAdmin creates the first admin. It requires the configured setup
// secret and is refused once any admin exists. Concurrent calls are
// serialised so the admin count check and the insert cannot interleave.
func (s *UserService) BootstrapAdmin(ctx context.Context, secret string, in *RegisterInput) (*model.User, error) {
	want := s.cfg.Auth.SetupSecret
	if want == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(want)) != 1 {
		s.log.Warn("admin bootstrap rejected: bad setup secret")
		return nil, ErrSetupForbidden
	}

	var admin *model.User
	err := s.locker.With(ctx, adminBootstrapLock, uuid.NewString(), func() error {
		var err error
		admin, err = s.createUser(ctx, in, model.RoleAdmin)
		return err
	})
	if errors.Is(err, lock.ErrLockFailed) {
		return nil, ErrBusy
	}
	return admin, err
}

func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	token, exp, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *UserService) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.wallet.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:           user,
		BalanceCents:   wallet.Balance,
		HeldCents:      wallet.HeldAmount,
		AvailableCents: wallet.Available(),
		Trial:          TrialStatusAt(user, s.now(), s.cfg.Business.Location()),
	}, nil
}

// SelectLottery changes the lottery the trial applies to. The trial window
// and today's usage are unaffected.
func (s *UserService) SelectLottery(ctx context.Context, userID int64, code string) (*model.User, error) {
	def, err := lottery.Lookup(code)
	if err != nil {
		return nil, invalid("lottery_code", "unknown lottery")
	}
	if err := s.userRepo.UpdateSelectedLottery(ctx, userID, def.Code); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userID)
}
