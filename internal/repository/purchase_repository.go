package repository

import (
	"context"

	"market/internal/domain/model"
)

type PurchaseRepository interface {
	Create(ctx context.Context, p model.Purchase) (model.Purchase, error)
	ListByBuyerID(ctx context.Context, buyerID int64) ([]model.Purchase, error)

	// 冪等性チェック用（同じintentで作られた購入を全部返す）
	ListByPaymentIntentID(ctx context.Context, intentID string) ([]model.Purchase, error)
}
