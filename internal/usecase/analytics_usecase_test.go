package usecase_test

import (
	"context"
	"testing"
	"time"

	repo "market/internal/repository"
	"market/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// 集計は読み取り専用なので関数フィールドのスタブで十分
type analyticsRepoStub struct {
	overview      func(ctx context.Context, since time.Time) (repo.OverviewStats, error)
	categories    func(ctx context.Context) ([]repo.CategoryStat, error)
	topSellers    func(ctx context.Context, limit int) ([]repo.SellerStat, error)
	dailySales    func(ctx context.Context, from time.Time, days int) ([]repo.DailySale, error)
	countInRange  func(ctx context.Context, min decimal.Decimal, max *decimal.Decimal) (int64, error)
	registrations func(ctx context.Context, from time.Time, days int) ([]repo.DailyRegistration, error)
	activity      func(ctx context.Context) (repo.UserActivityStats, error)
	mostActive    func(ctx context.Context, limit int) ([]repo.ActiveUser, error)
}

func (s *analyticsRepoStub) Overview(ctx context.Context, since time.Time) (repo.OverviewStats, error) {
	return s.overview(ctx, since)
}

func (s *analyticsRepoStub) CategoryStats(ctx context.Context) ([]repo.CategoryStat, error) {
	return s.categories(ctx)
}

func (s *analyticsRepoStub) TopSellers(ctx context.Context, limit int) ([]repo.SellerStat, error) {
	return s.topSellers(ctx, limit)
}

func (s *analyticsRepoStub) DailySales(ctx context.Context, from time.Time, days int) ([]repo.DailySale, error) {
	return s.dailySales(ctx, from, days)
}

func (s *analyticsRepoStub) CountItemsPriceBetween(ctx context.Context, min decimal.Decimal, max *decimal.Decimal) (int64, error) {
	return s.countInRange(ctx, min, max)
}

func (s *analyticsRepoStub) DailyRegistrations(ctx context.Context, from time.Time, days int) ([]repo.DailyRegistration, error) {
	return s.registrations(ctx, from, days)
}

func (s *analyticsRepoStub) UserActivity(ctx context.Context) (repo.UserActivityStats, error) {
	return s.activity(ctx)
}

func (s *analyticsRepoStub) MostActiveUsers(ctx context.Context, limit int) ([]repo.ActiveUser, error) {
	return s.mostActive(ctx, limit)
}

func TestAnalyticsSales_ZeroFillsMissingDays(t *testing.T) {
	ctx := context.Background()

	stub := &analyticsRepoStub{
		dailySales: func(ctx context.Context, from time.Time, days int) ([]repo.DailySale, error) {
			//売上があったのは2日だけ
			return []repo.DailySale{
				{Date: from.Format("2006-01-02"), Sales: 2, Revenue: decimal.NewFromInt(75)},
				{Date: from.AddDate(0, 0, 3).Format("2006-01-02"), Sales: 1, Revenue: decimal.NewFromInt(30)},
			}, nil
		},
		countInRange: func(ctx context.Context, min decimal.Decimal, max *decimal.Decimal) (int64, error) {
			return 0, nil
		},
	}
	uc := usecase.NewAnalyticsUsecase(stub)

	out, err := uc.Sales(ctx)

	assert.NoError(t, err)
	assert.Len(t, out.DailySales, 30)

	assert.Equal(t, int64(2), out.DailySales[0].Sales)
	assert.True(t, out.DailySales[0].Revenue.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, int64(1), out.DailySales[3].Sales)

	//売上ゼロの日も埋まっている
	assert.Equal(t, int64(0), out.DailySales[1].Sales)
	assert.True(t, out.DailySales[1].Revenue.Equal(decimal.Zero))

	//日付は連続した昇順
	prev, _ := time.Parse("2006-01-02", out.DailySales[0].Date)
	for _, d := range out.DailySales[1:] {
		cur, err := time.Parse("2006-01-02", d.Date)
		assert.NoError(t, err)
		assert.Equal(t, prev.AddDate(0, 0, 1), cur)
		prev = cur
	}
}

func TestAnalyticsSales_PriceDistribution(t *testing.T) {
	ctx := context.Background()

	//min→countの対応で固定の価格帯が順に問い合わされることを見る
	counts := map[string]int64{"0": 4, "50": 3, "100": 2, "250": 1, "500": 5}
	var openEnded int

	stub := &analyticsRepoStub{
		dailySales: func(ctx context.Context, from time.Time, days int) ([]repo.DailySale, error) {
			return []repo.DailySale{}, nil
		},
		countInRange: func(ctx context.Context, min decimal.Decimal, max *decimal.Decimal) (int64, error) {
			if max == nil {
				openEnded++
			}
			return counts[min.String()], nil
		},
	}
	uc := usecase.NewAnalyticsUsecase(stub)

	out, err := uc.Sales(ctx)

	assert.NoError(t, err)
	assert.Len(t, out.PriceDistribution, 5)
	assert.Equal(t, "$0-$50", out.PriceDistribution[0].Label)
	assert.Equal(t, int64(4), out.PriceDistribution[0].Count)
	assert.Equal(t, "$500+", out.PriceDistribution[4].Label)
	assert.Equal(t, int64(5), out.PriceDistribution[4].Count)
	//上限なしは$500+の1回だけ
	assert.Equal(t, 1, openEnded)
}

func TestAnalyticsUsers_ZeroFillsAndBreakdown(t *testing.T) {
	ctx := context.Background()

	stub := &analyticsRepoStub{
		registrations: func(ctx context.Context, from time.Time, days int) ([]repo.DailyRegistration, error) {
			return []repo.DailyRegistration{
				{Date: from.AddDate(0, 0, 2).Format("2006-01-02"), Registrations: 3},
			}, nil
		},
		activity: func(ctx context.Context) (repo.UserActivityStats, error) {
			return repo.UserActivityStats{
				TotalUsers:         10,
				UsersWithItems:     4,
				UsersWithPurchases: 3,
			}, nil
		},
		mostActive: func(ctx context.Context, limit int) ([]repo.ActiveUser, error) {
			assert.Equal(t, 10, limit)
			return []repo.ActiveUser{
				{Username: "alice", ActivityScore: 7, JoinedAt: "2026-07-01"},
			}, nil
		},
	}
	uc := usecase.NewAnalyticsUsecase(stub)

	out, err := uc.Users(ctx)

	assert.NoError(t, err)
	assert.Len(t, out.DailyRegistrations, 30)
	assert.Equal(t, int64(0), out.DailyRegistrations[0].Registrations)
	assert.Equal(t, int64(3), out.DailyRegistrations[2].Registrations)

	assert.Equal(t, int64(10), out.UserStats.TotalUsers)
	assert.Equal(t, int64(3), out.UserStats.InactiveUsers)

	assert.Len(t, out.ActiveUsers, 1)
	assert.Equal(t, "alice", out.ActiveUsers[0].Username)
	assert.Equal(t, int64(7), out.ActiveUsers[0].ActivityScore)
	assert.Equal(t, "2026-07-01", out.ActiveUsers[0].DateJoined)
}

func TestAnalyticsOverview(t *testing.T) {
	ctx := context.Background()

	var gotSince time.Time
	stub := &analyticsRepoStub{
		overview: func(ctx context.Context, since time.Time) (repo.OverviewStats, error) {
			gotSince = since
			return repo.OverviewStats{
				TotalItems:     10,
				TotalUsers:     4,
				TotalPurchases: 3,
				ActiveListings: 7,
				TotalRevenue:   decimal.NewFromInt(240),
			}, nil
		},
		categories: func(ctx context.Context) ([]repo.CategoryStat, error) {
			return []repo.CategoryStat{{Category: "bags", Count: 5, Sold: 2}}, nil
		},
		topSellers: func(ctx context.Context, limit int) ([]repo.SellerStat, error) {
			assert.Equal(t, 5, limit)
			return []repo.SellerStat{{Username: "alice", ItemsSold: 2, Revenue: decimal.NewFromInt(100)}}, nil
		},
	}
	uc := usecase.NewAnalyticsUsecase(stub)

	out, err := uc.Overview(ctx)

	assert.NoError(t, err)
	assert.Equal(t, int64(10), out.Overview.TotalItems)
	assert.Equal(t, int64(7), out.Overview.ActiveListings)
	assert.True(t, out.Overview.TotalRevenue.Equal(decimal.NewFromInt(240)))
	assert.Len(t, out.Categories, 1)
	assert.Equal(t, "bags", out.Categories[0].Category)
	assert.Len(t, out.TopSellers, 1)
	assert.Equal(t, "alice", out.TopSellers[0].Username)

	//直近=30日
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -30), gotSince, time.Minute)
}
