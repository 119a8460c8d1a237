package repository

import (
	"context"

	"lottoinsight/internal/model"

	"gorm.io/gorm"
)

type TrialGrantRepository struct {
	db *gorm.DB
}

func NewTrialGrantRepository(db *gorm.DB) *TrialGrantRepository {
	return &TrialGrantRepository{db: db}
}

// Create returns ErrDuplicate when the user already has a grant for that day.
func (r *TrialGrantRepository) Create(ctx context.Context, tx *gorm.DB, grant *model.TrialGrant) error {
	err := orDB(tx, r.db).WithContext(ctx).Create(grant).Error
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

func (r *TrialGrantRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.TrialGrant{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
