package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type ItemStatus string

const (
	ItemStatusListed ItemStatus = "LISTED"
	ItemStatusSold   ItemStatus = "SOLD"
)

type Category string

const (
	CategoryClothing    Category = "clothing"
	CategoryAccessories Category = "accessories"
	CategoryBags        Category = "bags"
	CategoryShoes       Category = "shoes"
	CategorySunglasses  Category = "sunglasses"
)

var validCategories = map[Category]struct{}{
	CategoryClothing:    {},
	CategoryAccessories: {},
	CategoryBags:        {},
	CategoryShoes:       {},
	CategorySunglasses:  {},
}

// 文字列をCategoryに変換（未知のカテゴリはエラー）
func ToCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := validCategories[c]; ok {
		return c, nil
	}
	return "", errors.New("invalid category")
}

// 出品1件。SOLDへの遷移はチェックアウト経由のみ。
// BuyerID / SoldAt は status=SOLD のときだけ入る。
type Item struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string          `gorm:"type:varchar(200);not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Category    Category        `gorm:"type:varchar(20);not null;index" json:"category"`
	ImageURL    string          `gorm:"type:varchar(500)" json:"image_url,omitempty"`
	SellerID    int64           `gorm:"not null;index" json:"seller_id"`
	BuyerID     *int64          `gorm:"index" json:"buyer_id,omitempty"`
	Status      ItemStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	SoldAt      *time.Time      `json:"sold_at,omitempty"`
}

func (i *Item) IsListed() bool {
	return i.Status == ItemStatusListed
}

// SOLDへ遷移させる（buyerとsold_atを同時に入れて不変条件を守る）
func (i *Item) MarkSold(buyerID int64, now time.Time) {
	i.Status = ItemStatusSold
	i.BuyerID = &buyerID
	i.SoldAt = &now
}
