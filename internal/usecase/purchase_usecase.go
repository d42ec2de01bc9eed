package usecase

import (
	"context"
	"net/http"

	repo "market/internal/repository"
)

type PurchaseUsecase struct {
	purchaseRepo repo.PurchaseRepository
	itemRepo     repo.ItemRepository
}

// DI
func NewPurchaseUsecase(purchaseRepo repo.PurchaseRepository, itemRepo repo.ItemRepository) *PurchaseUsecase {
	return &PurchaseUsecase{purchaseRepo: purchaseRepo, itemRepo: itemRepo}
}

// 購入履歴（新しい順）
func (u *PurchaseUsecase) History(ctx context.Context, userID int64) ([]PurchaseOutput, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	purchases, err := u.purchaseRepo.ListByBuyerID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]PurchaseOutput, 0, len(purchases))
	for _, p := range purchases {
		title := ""
		if item, err := u.itemRepo.FindByID(ctx, p.ItemID); err == nil {
			title = item.Title
		}
		outs = append(outs, PurchaseOutput{
			ID:          p.ID,
			ItemID:      p.ItemID,
			Title:       title,
			Price:       p.PurchasePrice,
			PurchasedAt: p.CreatedAt,
		})
	}
	return outs, nil
}
