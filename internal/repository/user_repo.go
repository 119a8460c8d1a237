package repository

import (
	"context"
	"errors"
	"time"

	"lottoinsight/internal/model"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create returns ErrDuplicate for a taken email.
func (r *UserRepository) Create(ctx context.Context, tx *gorm.DB, user *model.User) error {
	err := orDB(tx, r.db).WithContext(ctx).Create(user).Error
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

func (r *UserRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.User, error) {
	var user model.User
	err := orDB(tx, r.db).WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UpdateSelectedLottery does not report a missing user; callers re-read.
func (r *UserRepository) UpdateSelectedLottery(ctx context.Context, id int64, code string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("selected_lottery", code).Error
}

func (r *UserRepository) SetLastTrialPrediction(ctx context.Context, tx *gorm.DB, id int64, at time.Time) error {
	return orDB(tx, r.db).WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("last_trial_prediction_at", at).Error
}

func (r *UserRepository) CountByRole(ctx context.Context, tx *gorm.DB, role string) (int64, error) {
	var n int64
	err := orDB(tx, r.db).WithContext(ctx).Model(&model.User{}).Where("role = ?", role).Count(&n).Error
	return n, err
}

// ListSMSSubscribers users enrolled in the lottery who opted in to SMS.
func (r *UserRepository) ListSMSSubscribers(ctx context.Context, lotteryCode string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("selected_lottery = ? AND sms_opt_in = ? AND phone <> ''", lotteryCode, true).
		Order("id ASC").
		Find(&users).Error
	return users, err
}
