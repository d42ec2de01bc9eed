package repository

import (
	"context"

	"market/internal/domain/model"
	repo "market/internal/repository"

	"gorm.io/gorm"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// カートの行を追加順（id昇順）で返す
func (r *CartGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.CartLine, error) {
	var lines []model.CartLine

	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&lines).Error; err != nil {
		return []model.CartLine{}, err
	}

	return lines, nil
}

// カートに1行追加。(user, item) 重複はErrAlreadyInCart。
func (r *CartGormRepository) Create(ctx context.Context, line model.CartLine) (model.CartLine, error) {
	if err := r.db.WithContext(ctx).Create(&line).Error; err != nil {
		if isUniqueViolation(err) {
			return model.CartLine{}, repo.ErrAlreadyInCart
		}
		return model.CartLine{}, err
	}
	return line, nil
}

// カートから1商品を外す
func (r *CartGormRepository) DeleteByUserAndItem(ctx context.Context, userID int64, itemID int64) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Delete(&model.CartLine{})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// チェックアウト確定後のまとめ削除
func (r *CartGormRepository) DeleteByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&model.CartLine{}).Error
}
