package usecase

import (
	"context"
	"net/http"
	"strings"

	"market/internal/domain/model"
	repo "market/internal/repository"

	"github.com/shopspring/decimal"
)

type ItemUsecase struct {
	itemRepo repo.ItemRepository
}

// DI
func NewItemUsecase(itemRepo repo.ItemRepository) *ItemUsecase {
	return &ItemUsecase{itemRepo: itemRepo}
}

type ListItemsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

type ItemListOutput struct {
	Items []model.Item `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

type CreateItemInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
}

type UpdateItemInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
}

// 出品中の商品一覧（公開）
func (u *ItemUsecase) ListItems(ctx context.Context, in ListItemsInput) (ItemListOutput, error) {
	if in.Page < 1 {
		return ItemListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ItemListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if in.Category != "" {
		if _, err := model.ToCategory(in.Category); err != nil {
			return ItemListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid category")
		}
	}

	items, total, err := u.itemRepo.ListOnSale(ctx, repo.ItemListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        in.Q,
		Category: in.Category,
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	})
	if err != nil {
		return ItemListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return ItemListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// 商品詳細（公開。SOLDでも見られる）
func (u *ItemUsecase) GetItem(ctx context.Context, itemID int64) (model.Item, error) {
	if itemID <= 0 {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	item, err := u.itemRepo.FindByID(ctx, itemID)
	if err == repo.ErrNotFound {
		return model.Item{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Item{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return item, nil
}

// 出品の作成
func (u *ItemUsecase) CreateItem(ctx context.Context, sellerID int64, in CreateItemInput) (model.Item, error) {
	if sellerID <= 0 {
		return model.Item{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > 200 {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "invalid title")
	}
	if in.Price.IsNegative() || in.Price.IsZero() {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "invalid price")
	}
	category, err := model.ToCategory(in.Category)
	if err != nil {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "invalid category")
	}

	item, err := u.itemRepo.Create(ctx, model.Item{
		Title:       title,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Category:    category,
		ImageURL:    in.ImageURL,
		SellerID:    sellerID,
		Status:      model.ItemStatusListed,
	})
	if err != nil {
		return model.Item{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return item, nil
}

// 出品の編集。出品中のみ、本人のみ。
// 価格変更がカートのスナップショットとずれる原因だが、ここでは触らない
// （ずれはチェックアウトの競合検出が拾う）。
func (u *ItemUsecase) UpdateItem(ctx context.Context, sellerID int64, itemID int64, in UpdateItemInput) (model.Item, error) {
	if sellerID <= 0 {
		return model.Item{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	item, err := u.itemRepo.FindByID(ctx, itemID)
	if err == repo.ErrNotFound {
		return model.Item{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Item{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if item.SellerID != sellerID {
		//他人の出品は「存在しない扱い」にする
		return model.Item{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if !item.IsListed() {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "item already sold")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > 200 {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "invalid title")
	}
	if in.Price.IsNegative() || in.Price.IsZero() {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "invalid price")
	}
	category, err := model.ToCategory(in.Category)
	if err != nil {
		return model.Item{}, NewHTTPError(http.StatusBadRequest, "invalid category")
	}

	item.Title = title
	item.Description = in.Description
	item.Price = in.Price.Round(2)
	item.Category = category
	item.ImageURL = in.ImageURL

	if err := u.itemRepo.Update(ctx, item); err != nil {
		return model.Item{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return item, nil
}

type MyItemsOutput struct {
	OnSale    []model.Item `json:"on_sale"`
	Sold      []model.Item `json:"sold"`
	Purchased []model.Item `json:"purchased"`
}

// 自分の出品と購入品をまとめて返す
func (u *ItemUsecase) MyItems(ctx context.Context, userID int64) (MyItemsOutput, error) {
	if userID <= 0 {
		return MyItemsOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	listed, err := u.itemRepo.ListBySellerID(ctx, userID)
	if err != nil {
		return MyItemsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := MyItemsOutput{
		OnSale:    []model.Item{},
		Sold:      []model.Item{},
		Purchased: []model.Item{},
	}
	for _, item := range listed {
		if item.IsListed() {
			out.OnSale = append(out.OnSale, item)
		} else {
			out.Sold = append(out.Sold, item)
		}
	}

	purchased, err := u.itemRepo.ListByBuyerID(ctx, userID)
	if err != nil {
		return MyItemsOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	out.Purchased = purchased

	return out, nil
}
