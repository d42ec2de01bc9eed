package usecase

import (
	"context"
	"net/http"
	"time"

	"market/internal/domain/model"
	repo "market/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジックです。
// カートは予約ではない：同じ商品が複数人のカートに入り得るので、
// 最終的な検証はチェックアウト側で行う。
type CartUsecase struct {
	cartRepo repo.CartRepository
	itemRepo repo.ItemRepository
	now      func() time.Time
}

func NewCartUsecase(cartRepo repo.CartRepository, itemRepo repo.ItemRepository) *CartUsecase {
	return &CartUsecase{
		cartRepo: cartRepo,
		itemRepo: itemRepo,
		now:      time.Now,
	}
}

type CartLineResponse struct {
	ID             int64           `json:"id"`
	ItemID         int64           `json:"item_id"`
	Title          string          `json:"title"`
	Price          decimal.Decimal `json:"price"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	StillAvailable bool            `json:"still_available"`
}

type CartResponse struct {
	Items []CartLineResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

// GetCart はカート取得。
// priceはスナップショット、current_priceは現在値（UIで差分を見せるため）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	lines, err := u.cartRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	respItems := make([]CartLineResponse, 0, len(lines))
	total := decimal.Zero

	for _, line := range lines {
		item, err := u.itemRepo.FindByID(ctx, line.ItemID)
		if err != nil {
			continue
		}

		respItems = append(respItems, CartLineResponse{
			ID:             line.ID,
			ItemID:         line.ItemID,
			Title:          item.Title,
			Price:          line.PriceSnapshot,
			CurrentPrice:   item.Price,
			StillAvailable: item.IsListed(),
		})

		total = total.Add(line.PriceSnapshot)
	}

	return CartResponse{Items: respItems, Total: total}, nil
}

// AddToCart はカートに商品を追加。追加時点の価格をスナップショットとして保存する。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, itemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid item_id")
	}

	item, err := u.itemRepo.FindByID(ctx, itemID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "item not found or no longer available")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !item.IsListed() {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "item not found or no longer available")
	}

	//自分の出品は買えない
	if item.SellerID == userID {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "cannot add your own item to cart")
	}

	line := model.CartLine{
		UserID:        userID,
		ItemID:        item.ID,
		PriceSnapshot: item.Price,
		CreatedAt:     u.now(),
	}
	if _, err := u.cartRepo.Create(ctx, line); err != nil {
		if err == repo.ErrAlreadyInCart {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "item already in cart")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.GetCart(ctx, userID)
}

// RemoveFromCart はカートから商品を外す
func (u *CartUsecase) RemoveFromCart(ctx context.Context, userID int64, itemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid item_id")
	}

	if err := u.cartRepo.DeleteByUserAndItem(ctx, userID, itemID); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, "item not in cart")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.GetCart(ctx, userID)
}
