package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OverviewStats struct {
	TotalItems      int64
	TotalUsers      int64
	TotalPurchases  int64
	ActiveListings  int64
	TotalRevenue    decimal.Decimal
	RecentUsers     int64
	RecentPurchases int64
	RecentListings  int64
}

type CategoryStat struct {
	Category string
	Count    int64
	Sold     int64
}

type SellerStat struct {
	Username  string
	ItemsSold int64
	Revenue   decimal.Decimal
}

type DailySale struct {
	Date    string
	Sales   int64
	Revenue decimal.Decimal
}

type DailyRegistration struct {
	Date          string
	Registrations int64
}

type UserActivityStats struct {
	TotalUsers         int64
	UsersWithItems     int64
	UsersWithPurchases int64
}

type ActiveUser struct {
	Username      string
	ActivityScore int64
	JoinedAt      string
}

// ダッシュボード用の読み取り専用集計
type AnalyticsRepository interface {
	Overview(ctx context.Context, since time.Time) (OverviewStats, error)
	CategoryStats(ctx context.Context) ([]CategoryStat, error)
	TopSellers(ctx context.Context, limit int) ([]SellerStat, error)
	DailySales(ctx context.Context, from time.Time, days int) ([]DailySale, error)

	// maxがnilなら上限なし（$500+のような開区間）
	CountItemsPriceBetween(ctx context.Context, min decimal.Decimal, max *decimal.Decimal) (int64, error)

	DailyRegistrations(ctx context.Context, from time.Time, days int) ([]DailyRegistration, error)
	UserActivity(ctx context.Context) (UserActivityStats, error)
	MostActiveUsers(ctx context.Context, limit int) ([]ActiveUser, error)
}
