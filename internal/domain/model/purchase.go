package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 購入レコード（不変）。商品1つにつき1件。
// PurchasePrice は確定時点の商品価格（カートのスナップショットではない）。
type Purchase struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID         int64           `gorm:"not null;index" json:"buyer_id"`
	ItemID          int64           `gorm:"not null;uniqueIndex" json:"item_id"`
	PurchasePrice   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"purchase_price"`
	PaymentIntentID string          `gorm:"type:varchar(255);not null;index" json:"payment_intent_id"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
