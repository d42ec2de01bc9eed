package repository

import (
	"context"
	"errors"

	"market/internal/domain/model"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// ロック待ちが lock_timeout を超えた（リトライ可能）
var ErrLockTimeout = errors.New("lock timeout")

// 出品一覧の検索条件
type ItemListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

// 商品の永続化だけを約束。業務ロジックは持たない。
type ItemRepository interface {
	ListOnSale(ctx context.Context, q ItemListQuery) ([]model.Item, int64, error)
	FindByID(ctx context.Context, id int64) (model.Item, error)

	// id昇順で行ロックを取って返す（デッドロック回避の固定順序）
	LockByIDs(ctx context.Context, ids []int64) ([]model.Item, error)

	ListBySellerID(ctx context.Context, sellerID int64) ([]model.Item, error)
	ListByBuyerID(ctx context.Context, buyerID int64) ([]model.Item, error)

	Create(ctx context.Context, item model.Item) (model.Item, error)
	Update(ctx context.Context, item model.Item) error
}
