package repository

import (
	"context"
	"errors"
	"strings"

	"market/internal/domain/model"
	repo "market/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewItemGormRepository(db *gorm.DB) *ItemGormRepository {
	return &ItemGormRepository{db: db}
}

// 出品中の商品のみを、検索/カテゴリ/価格帯/ソート/ページング付きで返す。
func (r *ItemGormRepository) ListOnSale(ctx context.Context, q repo.ItemListQuery) ([]model.Item, int64, error) {
	var items []model.Item
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Item{})

	tx = tx.Where("status = ?", model.ItemStatusListed)

	// title / description を対象
	if strings.TrimSpace(q.Q) != "" {
		like := "%" + strings.TrimSpace(q.Q) + "%"
		tx = tx.Where("title ILIKE ? OR description ILIKE ?", like, like)
	}

	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}

	//価格帯
	if q.MinPrice != nil {
		tx = tx.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("price <= ?", *q.MaxPrice)
	}

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.Item{}, 0, err
	}

	//sort
	switch q.Sort {
	case "price_asc":
		tx = tx.Order("price asc").Order("id asc")
	case "price_desc":
		tx = tx.Order("price desc").Order("id desc")
	default:
		tx = tx.Order("created_at desc").Order("id desc")
	}

	offset := (q.Page - 1) * q.Limit
	if err := tx.Offset(offset).Limit(q.Limit).Find(&items).Error; err != nil {
		return []model.Item{}, 0, err
	}

	return items, total, nil
}

// IDで商品を取得
func (r *ItemGormRepository) FindByID(ctx context.Context, id int64) (model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Item{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Item{}, err
	}
	return item, nil
}

// id昇順でFOR UPDATEロックを取る。
// 同時チェックアウト同士はこの固定順序でデッドロックしない。
func (r *ItemGormRepository) LockByIDs(ctx context.Context, ids []int64) ([]model.Item, error) {
	items := []model.Item{}
	if len(ids) == 0 {
		return items, nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&items).Error

	if err != nil {
		if isLockTimeout(err) {
			return nil, repo.ErrLockTimeout
		}
		return nil, err
	}
	return items, nil
}

// 出品者の商品一覧
func (r *ItemGormRepository) ListBySellerID(ctx context.Context, sellerID int64) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at desc").
		Find(&items).Error
	if err != nil {
		return []model.Item{}, err
	}
	return items, nil
}

// 購入した商品一覧
func (r *ItemGormRepository) ListByBuyerID(ctx context.Context, buyerID int64) ([]model.Item, error) {
	var items []model.Item
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("sold_at desc").
		Find(&items).Error
	if err != nil {
		return []model.Item{}, err
	}
	return items, nil
}

// 商品の作成
func (r *ItemGormRepository) Create(ctx context.Context, item model.Item) (model.Item, error) {
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		return model.Item{}, err
	}
	return item, nil
}

// 商品の更新（status/buyer/sold_atもまとめて保存する）
func (r *ItemGormRepository) Update(ctx context.Context, item model.Item) error {
	res := r.db.WithContext(ctx).Model(&model.Item{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"title":       item.Title,
		"description": item.Description,
		"price":       item.Price,
		"category":    item.Category,
		"image_url":   item.ImageURL,
		"status":      item.Status,
		"buyer_id":    item.BuyerID,
		"sold_at":     item.SoldAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 55P03 = lock_not_available（lock_timeout超過）
func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55P03"
}

// 23505 = unique_violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
