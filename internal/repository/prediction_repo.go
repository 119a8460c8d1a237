package repository

import (
	"context"
	"errors"

	"lottoinsight/internal/model"

	"gorm.io/gorm"
)

var (
	ErrPredictionNotFound = errors.New("prediction not found")
)

type PredictionRepository struct {
	db *gorm.DB
}

func NewPredictionRepository(db *gorm.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// PredictionFilter list criteria; zero values mean "any".
type PredictionFilter struct {
	LotteryCode string
	ActiveOnly  bool
	Page        int
	PageSize    int
}

func (r *PredictionRepository) Create(ctx context.Context, tx *gorm.DB, p *model.Prediction) error {
	return orDB(tx, r.db).WithContext(ctx).Create(p).Error
}

func (r *PredictionRepository) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*model.Prediction, error) {
	var p model.Prediction
	err := orDB(tx, r.db).WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Save writes every column of an existing prediction.
func (r *PredictionRepository) Save(ctx context.Context, tx *gorm.DB, p *model.Prediction) error {
	return orDB(tx, r.db).WithContext(ctx).Save(p).Error
}

func (r *PredictionRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Prediction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPredictionNotFound
	}
	return nil
}

func (r *PredictionRepository) List(ctx context.Context, f PredictionFilter) ([]*model.Prediction, int64, error) {
	page, pageSize := normalizePage(f.Page, f.PageSize)
	var predictions []*model.Prediction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Prediction{})
	if f.LotteryCode != "" {
		query = query.Where("lottery_code = ?", f.LotteryCode)
	}
	if f.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("draw_date DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&predictions).Error

	return predictions, total, err
}

func (r *PredictionRepository) IncrementDownloadCount(ctx context.Context, tx *gorm.DB, id int64) error {
	return orDB(tx, r.db).WithContext(ctx).
		Model(&model.Prediction{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}

func (r *PredictionRepository) IncrementPurchaseCount(ctx context.Context, tx *gorm.DB, id int64) error {
	return orDB(tx, r.db).WithContext(ctx).
		Model(&model.Prediction{}).
		Where("id = ?", id).
		UpdateColumn("purchase_count", gorm.Expr("purchase_count + 1")).Error
}

// ExistingIDs returns the subset of ids that still exist.
func (r *PredictionRepository) ExistingIDs(ctx context.Context, ids []int64) (map[int64]*model.Prediction, error) {
	out := make(map[int64]*model.Prediction, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var predictions []*model.Prediction
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&predictions).Error; err != nil {
		return nil, err
	}
	for _, p := range predictions {
		out[p.ID] = p
	}
	return out, nil
}

// ListLegacyAfter predictions that still carry legacy viable columns.
func (r *PredictionRepository) ListLegacyAfter(ctx context.Context, afterID int64, limit int) ([]*model.Prediction, error) {
	var predictions []*model.Prediction
	err := r.db.WithContext(ctx).
		Where("id > ? AND (viable_primary IS NOT NULL OR viable_secondary IS NOT NULL)", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&predictions).Error
	return predictions, err
}
