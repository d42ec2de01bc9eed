package repository

import (
	"context"

	"market/internal/domain/model"

	"gorm.io/gorm"
)

type PurchaseGormRepository struct {
	db *gorm.DB
}

// DI
func NewPurchaseGormRepository(db *gorm.DB) *PurchaseGormRepository {
	return &PurchaseGormRepository{db: db}
}

// 購入レコード作成（item_idユニークで二重販売はDBでも弾く）
func (r *PurchaseGormRepository) Create(ctx context.Context, p model.Purchase) (model.Purchase, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Purchase{}, err
	}
	return p, nil
}

// 購入履歴（新しい順）
func (r *PurchaseGormRepository) ListByBuyerID(ctx context.Context, buyerID int64) ([]model.Purchase, error) {
	var purchases []model.Purchase

	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at desc").Order("id desc").
		Find(&purchases).Error; err != nil {
		return []model.Purchase{}, err
	}

	return purchases, nil
}

// 同じpayment intentで確定済みの購入（冪等リプレイ用、id昇順）
func (r *PurchaseGormRepository) ListByPaymentIntentID(ctx context.Context, intentID string) ([]model.Purchase, error) {
	var purchases []model.Purchase

	if err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", intentID).
		Order("id asc").
		Find(&purchases).Error; err != nil {
		return []model.Purchase{}, err
	}

	return purchases, nil
}
