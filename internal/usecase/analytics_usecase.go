package usecase

import (
	"context"
	"net/http"
	"time"

	repo "market/internal/repository"

	"github.com/shopspring/decimal"
)

type AnalyticsUsecase struct {
	analyticsRepo repo.AnalyticsRepository
	now           func() time.Time
}

// DI
func NewAnalyticsUsecase(analyticsRepo repo.AnalyticsRepository) *AnalyticsUsecase {
	return &AnalyticsUsecase{analyticsRepo: analyticsRepo, now: time.Now}
}

type OverviewOutput struct {
	TotalItems      int64           `json:"total_items"`
	TotalUsers      int64           `json:"total_users"`
	TotalPurchases  int64           `json:"total_purchases"`
	ActiveListings  int64           `json:"active_listings"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	RecentUsers     int64           `json:"recent_users"`
	RecentPurchases int64           `json:"recent_purchases"`
	RecentListings  int64           `json:"recent_listings"`
}

type CategoryStatOutput struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
	Sold     int64  `json:"sold"`
}

type TopSellerOutput struct {
	Username  string          `json:"username"`
	ItemsSold int64           `json:"items_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type AnalyticsOverviewOutput struct {
	Overview   OverviewOutput       `json:"overview"`
	Categories []CategoryStatOutput `json:"categories"`
	TopSellers []TopSellerOutput    `json:"top_sellers"`
}

// Overview はダッシュボードのサマリ（直近=30日）
func (u *AnalyticsUsecase) Overview(ctx context.Context) (AnalyticsOverviewOutput, error) {
	since := u.now().AddDate(0, 0, -30)

	stats, err := u.analyticsRepo.Overview(ctx, since)
	if err != nil {
		return AnalyticsOverviewOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	categories, err := u.analyticsRepo.CategoryStats(ctx)
	if err != nil {
		return AnalyticsOverviewOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	sellers, err := u.analyticsRepo.TopSellers(ctx, 5)
	if err != nil {
		return AnalyticsOverviewOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := AnalyticsOverviewOutput{
		Overview: OverviewOutput{
			TotalItems:      stats.TotalItems,
			TotalUsers:      stats.TotalUsers,
			TotalPurchases:  stats.TotalPurchases,
			ActiveListings:  stats.ActiveListings,
			TotalRevenue:    stats.TotalRevenue,
			RecentUsers:     stats.RecentUsers,
			RecentPurchases: stats.RecentPurchases,
			RecentListings:  stats.RecentListings,
		},
		Categories: []CategoryStatOutput{},
		TopSellers: []TopSellerOutput{},
	}
	for _, c := range categories {
		out.Categories = append(out.Categories, CategoryStatOutput{
			Category: c.Category, Count: c.Count, Sold: c.Sold,
		})
	}
	for _, s := range sellers {
		out.TopSellers = append(out.TopSellers, TopSellerOutput{
			Username: s.Username, ItemsSold: s.ItemsSold, Revenue: s.Revenue,
		})
	}
	return out, nil
}

type DailySaleOutput struct {
	Date    string          `json:"date"`
	Sales   int64           `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

type PriceBucketOutput struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type SalesOutput struct {
	DailySales        []DailySaleOutput   `json:"daily_sales"`
	PriceDistribution []PriceBucketOutput `json:"price_distribution"`
}

type priceRange struct {
	label string
	min   int64
	max   int64 // 0 = 上限なし
}

// グラフ用の固定の価格帯
var priceRanges = []priceRange{
	{label: "$0-$50", min: 0, max: 50},
	{label: "$50-$100", min: 50, max: 100},
	{label: "$100-$250", min: 100, max: 250},
	{label: "$250-$500", min: 250, max: 500},
	{label: "$500+", min: 500, max: 0},
}

// Sales は直近30日の日別売上と価格帯分布。購入が無い日もゼロ埋めで返す。
func (u *AnalyticsUsecase) Sales(ctx context.Context) (SalesOutput, error) {
	const days = 30
	from := u.now().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	rows, err := u.analyticsRepo.DailySales(ctx, from, days)
	if err != nil {
		return SalesOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	byDate := make(map[string]repo.DailySale, len(rows))
	for _, row := range rows {
		byDate[row.Date] = row
	}

	out := SalesOutput{
		DailySales:        make([]DailySaleOutput, 0, days),
		PriceDistribution: make([]PriceBucketOutput, 0, len(priceRanges)),
	}
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i).Format("2006-01-02")
		if row, ok := byDate[date]; ok {
			out.DailySales = append(out.DailySales, DailySaleOutput{
				Date: date, Sales: row.Sales, Revenue: row.Revenue,
			})
			continue
		}
		out.DailySales = append(out.DailySales, DailySaleOutput{
			Date: date, Sales: 0, Revenue: decimal.Zero,
		})
	}

	for _, pr := range priceRanges {
		var max *decimal.Decimal
		if pr.max > 0 {
			m := decimal.NewFromInt(pr.max)
			max = &m
		}
		count, err := u.analyticsRepo.CountItemsPriceBetween(ctx, decimal.NewFromInt(pr.min), max)
		if err != nil {
			return SalesOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out.PriceDistribution = append(out.PriceDistribution, PriceBucketOutput{
			Label: pr.label, Count: count,
		})
	}

	return out, nil
}

type DailyRegistrationOutput struct {
	Date          string `json:"date"`
	Registrations int64  `json:"registrations"`
}

type UserStatsOutput struct {
	TotalUsers         int64 `json:"total_users"`
	UsersWithItems     int64 `json:"users_with_items"`
	UsersWithPurchases int64 `json:"users_with_purchases"`
	InactiveUsers      int64 `json:"inactive_users"`
}

type ActiveUserOutput struct {
	Username      string `json:"username"`
	ActivityScore int64  `json:"activity_score"`
	DateJoined    string `json:"date_joined"`
}

type UserAnalyticsOutput struct {
	DailyRegistrations []DailyRegistrationOutput `json:"daily_registrations"`
	UserStats          UserStatsOutput           `json:"user_stats"`
	ActiveUsers        []ActiveUserOutput        `json:"active_users"`
}

// Users は直近30日の登録推移とユーザー活動の内訳。登録が無い日もゼロ埋めで返す。
func (u *AnalyticsUsecase) Users(ctx context.Context) (UserAnalyticsOutput, error) {
	const days = 30
	from := u.now().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	rows, err := u.analyticsRepo.DailyRegistrations(ctx, from, days)
	if err != nil {
		return UserAnalyticsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	byDate := make(map[string]repo.DailyRegistration, len(rows))
	for _, row := range rows {
		byDate[row.Date] = row
	}

	out := UserAnalyticsOutput{
		DailyRegistrations: make([]DailyRegistrationOutput, 0, days),
		ActiveUsers:        []ActiveUserOutput{},
	}
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i).Format("2006-01-02")
		var count int64
		if row, ok := byDate[date]; ok {
			count = row.Registrations
		}
		out.DailyRegistrations = append(out.DailyRegistrations, DailyRegistrationOutput{
			Date: date, Registrations: count,
		})
	}

	stats, err := u.analyticsRepo.UserActivity(ctx)
	if err != nil {
		return UserAnalyticsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	out.UserStats = UserStatsOutput{
		TotalUsers:         stats.TotalUsers,
		UsersWithItems:     stats.UsersWithItems,
		UsersWithPurchases: stats.UsersWithPurchases,
		InactiveUsers:      stats.TotalUsers - stats.UsersWithItems - stats.UsersWithPurchases,
	}

	active, err := u.analyticsRepo.MostActiveUsers(ctx, 10)
	if err != nil {
		return UserAnalyticsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	for _, a := range active {
		out.ActiveUsers = append(out.ActiveUsers, ActiveUserOutput{
			Username: a.Username, ActivityScore: a.ActivityScore, DateJoined: a.JoinedAt,
		})
	}

	return out, nil
}
