package repository

import (
	"context"
	"errors"

	"market/internal/domain/model"
)

// (user, item) のユニーク制約に当たった
var ErrAlreadyInCart = errors.New("already in cart")

type CartRepository interface {
	// 追加順（id昇順）で返す
	ListByUserID(ctx context.Context, userID int64) ([]model.CartLine, error)
	Create(ctx context.Context, line model.CartLine) (model.CartLine, error)
	DeleteByUserAndItem(ctx context.Context, userID int64, itemID int64) error
	DeleteByIDs(ctx context.Context, ids []int64) error
}
