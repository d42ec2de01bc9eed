package repository

import (
	"context"
	"fmt"
	"time"

	repo "market/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	items     repo.ItemRepository
	cartLines repo.CartRepository
	purchases repo.PurchaseRepository
}

func (r *txReposGorm) Items() repo.ItemRepository         { return r.items }
func (r *txReposGorm) CartLines() repo.CartRepository     { return r.cartLines }
func (r *txReposGorm) Purchases() repo.PurchaseRepository { return r.purchases }

type TxManagerGorm struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewTxManagerGorm(db *gorm.DB, lockTimeout time.Duration) *TxManagerGorm {
	return &TxManagerGorm{db: db, lockTimeout: lockTimeout}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// ロック待ちの上限。超過は55P03になり、ErrLockTimeoutへ変換される。
		if tm.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", tm.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}

		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			items:     NewItemGormRepository(tx),
			cartLines: NewCartGormRepository(tx),
			purchases: NewPurchaseGormRepository(tx),
		}
		return fn(r)
	})
}
