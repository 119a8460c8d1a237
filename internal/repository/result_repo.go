package repository

import (
	"context"

	"lottoinsight/internal/model"

	"gorm.io/gorm"
)

type ResultRepository struct {
	db *gorm.DB
}

func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Create returns ErrDuplicate when the drawing already has a result.
func (r *ResultRepository) Create(ctx context.Context, tx *gorm.DB, result *model.DrawResult) error {
	err := orDB(tx, r.db).WithContext(ctx).Create(result).Error
	if isDuplicateKey(err) {
		return ErrDuplicate
	}
	return err
}

func (r *ResultRepository) ListByLottery(ctx context.Context, lotteryCode string, page, pageSize int) ([]*model.DrawResult, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	var results []*model.DrawResult
	var total int64

	query := r.db.WithContext(ctx).Model(&model.DrawResult{}).Where("lottery_code = ?", lotteryCode)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("draw_date DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&results).Error
	return results, total, err
}
