package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カートの1行。
// PriceSnapshot は追加時点の価格。出品者が値段を変えてもここは変わらず、
// ずれはチェックアウト時の競合検出で拾う。
type CartLine struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64           `gorm:"not null;uniqueIndex:uniq_cart_user_item" json:"user_id"`
	ItemID        int64           `gorm:"not null;uniqueIndex:uniq_cart_user_item" json:"item_id"`
	PriceSnapshot decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price_snapshot"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
