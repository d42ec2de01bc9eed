package repository

import (
	"context"
	"time"

	"market/internal/domain/model"
	repo "market/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AnalyticsGormRepository struct {
	db *gorm.DB
}

// DI
func NewAnalyticsGormRepository(db *gorm.DB) *AnalyticsGormRepository {
	return &AnalyticsGormRepository{db: db}
}

// ダッシュボードの全体サマリ。sinceは「最近」の境界（直近30日など）。
func (r *AnalyticsGormRepository) Overview(ctx context.Context, since time.Time) (repo.OverviewStats, error) {
	var out repo.OverviewStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Item{}).Count(&out.TotalItems).Error; err != nil {
		return repo.OverviewStats{}, err
	}
	if err := db.Model(&model.User{}).Count(&out.TotalUsers).Error; err != nil {
		return repo.OverviewStats{}, err
	}
	if err := db.Model(&model.Purchase{}).Count(&out.TotalPurchases).Error; err != nil {
		return repo.OverviewStats{}, err
	}
	if err := db.Model(&model.Item{}).
		Where("status = ?", model.ItemStatusListed).
		Count(&out.ActiveListings).Error; err != nil {
		return repo.OverviewStats{}, err
	}

	var revenue decimal.NullDecimal
	if err := db.Model(&model.Purchase{}).
		Select("sum(purchase_price)").
		Scan(&revenue).Error; err != nil {
		return repo.OverviewStats{}, err
	}
	if revenue.Valid {
		out.TotalRevenue = revenue.Decimal
	} else {
		out.TotalRevenue = decimal.Zero
	}

	if err := db.Model(&model.User{}).
		Where("created_at >= ?", since).
		Count(&out.RecentUsers).Error; err != nil {
		return repo.OverviewStats{}, err
	}
	if err := db.Model(&model.Purchase{}).
		Where("created_at >= ?", since).
		Count(&out.RecentPurchases).Error; err != nil {
		return repo.OverviewStats{}, err
	}
	if err := db.Model(&model.Item{}).
		Where("created_at >= ?", since).
		Count(&out.RecentListings).Error; err != nil {
		return repo.OverviewStats{}, err
	}

	return out, nil
}

// カテゴリ別の出品数と売却数
func (r *AnalyticsGormRepository) CategoryStats(ctx context.Context) ([]repo.CategoryStat, error) {
	var stats []repo.CategoryStat

	err := r.db.WithContext(ctx).Raw(`
		SELECT category,
		       count(*) AS count,
		       count(*) FILTER (WHERE status = ?) AS sold
		FROM items
		GROUP BY category
		ORDER BY count DESC`, model.ItemStatusSold).
		Scan(&stats).Error
	if err != nil {
		return []repo.CategoryStat{}, err
	}

	return stats, nil
}

// 売上上位の出品者
func (r *AnalyticsGormRepository) TopSellers(ctx context.Context, limit int) ([]repo.SellerStat, error) {
	var stats []repo.SellerStat

	err := r.db.WithContext(ctx).Raw(`
		SELECT u.username,
		       count(p.id) AS items_sold,
		       coalesce(sum(p.purchase_price), 0) AS revenue
		FROM purchases p
		JOIN items i ON i.id = p.item_id
		JOIN users u ON u.id = i.seller_id
		GROUP BY u.username
		ORDER BY revenue DESC
		LIMIT ?`, limit).
		Scan(&stats).Error
	if err != nil {
		return []repo.SellerStat{}, err
	}

	return stats, nil
}

// 価格帯ごとの出品数。maxがnilなら下限のみ。
func (r *AnalyticsGormRepository) CountItemsPriceBetween(ctx context.Context, min decimal.Decimal, max *decimal.Decimal) (int64, error) {
	var count int64

	tx := r.db.WithContext(ctx).Model(&model.Item{}).Where("price >= ?", min)
	if max != nil {
		tx = tx.Where("price < ?", *max)
	}
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// 日別の新規登録数（登録が無い日は行が無い。穴埋めはusecase側で行う）
func (r *AnalyticsGormRepository) DailyRegistrations(ctx context.Context, from time.Time, days int) ([]repo.DailyRegistration, error) {
	var rows []repo.DailyRegistration

	err := r.db.WithContext(ctx).Raw(`
		SELECT to_char(created_at::date, 'YYYY-MM-DD') AS date,
		       count(*) AS registrations
		FROM users
		WHERE created_at >= ? AND created_at < ?
		GROUP BY 1
		ORDER BY 1`, from, from.AddDate(0, 0, days)).
		Scan(&rows).Error
	if err != nil {
		return []repo.DailyRegistration{}, err
	}

	return rows, nil
}

// 出品者/購入者の人数内訳
func (r *AnalyticsGormRepository) UserActivity(ctx context.Context) (repo.UserActivityStats, error) {
	var out repo.UserActivityStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.User{}).Count(&out.TotalUsers).Error; err != nil {
		return repo.UserActivityStats{}, err
	}
	if err := db.Model(&model.Item{}).
		Distinct("seller_id").
		Count(&out.UsersWithItems).Error; err != nil {
		return repo.UserActivityStats{}, err
	}
	if err := db.Model(&model.Purchase{}).
		Distinct("buyer_id").
		Count(&out.UsersWithPurchases).Error; err != nil {
		return repo.UserActivityStats{}, err
	}

	return out, nil
}

// 出品数+購入数の合計が多いユーザー
func (r *AnalyticsGormRepository) MostActiveUsers(ctx context.Context, limit int) ([]repo.ActiveUser, error) {
	var users []repo.ActiveUser

	err := r.db.WithContext(ctx).Raw(`
		SELECT username, activity_score, joined_at
		FROM (
			SELECT u.username,
			       (SELECT count(*) FROM items i WHERE i.seller_id = u.id)
			     + (SELECT count(*) FROM purchases p WHERE p.buyer_id = u.id) AS activity_score,
			       to_char(u.created_at, 'YYYY-MM-DD') AS joined_at
			FROM users u
		) t
		WHERE activity_score > 0
		ORDER BY activity_score DESC
		LIMIT ?`, limit).
		Scan(&users).Error
	if err != nil {
		return []repo.ActiveUser{}, err
	}

	return users, nil
}

// 日別の売上（購入が無い日は行が無い。穴埋めはusecase側で行う）
func (r *AnalyticsGormRepository) DailySales(ctx context.Context, from time.Time, days int) ([]repo.DailySale, error) {
	var sales []repo.DailySale

	err := r.db.WithContext(ctx).Raw(`
		SELECT to_char(created_at::date, 'YYYY-MM-DD') AS date,
		       count(*) AS sales,
		       coalesce(sum(purchase_price), 0) AS revenue
		FROM purchases
		WHERE created_at >= ? AND created_at < ?
		GROUP BY 1
		ORDER BY 1`, from, from.AddDate(0, 0, days)).
		Scan(&sales).Error
	if err != nil {
		return []repo.DailySale{}, err
	}

	return sales, nil
}
