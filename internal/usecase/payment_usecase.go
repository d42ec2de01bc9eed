package usecase

import (
	"context"
	"net/http"
	"strconv"

	"market/internal/payment"
	repo "market/internal/repository"

	"github.com/shopspring/decimal"
)

// PaymentUsecase は「支払い開始」側。
// カートのスナップショット合計でintentを作るだけで、在庫には触れない。
type PaymentUsecase struct {
	cartRepo repo.CartRepository
	gateway  payment.Gateway
	currency string
}

func NewPaymentUsecase(cartRepo repo.CartRepository, gateway payment.Gateway) *PaymentUsecase {
	return &PaymentUsecase{
		cartRepo: cartRepo,
		gateway:  gateway,
		currency: "usd",
	}
}

type CreateIntentOutput struct {
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	Amount          decimal.Decimal `json:"amount"`
}

// CreateIntent は現在のカート合計でPaymentIntentを作成する
func (u *PaymentUsecase) CreateIntent(ctx context.Context, userID int64) (CreateIntentOutput, error) {
	if userID <= 0 {
		return CreateIntentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	lines, err := u.cartRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CreateIntentOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if len(lines) == 0 {
		return CreateIntentOutput{}, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.PriceSnapshot)
	}

	intent, err := u.gateway.CreateIntent(ctx, total, u.currency, map[string]string{
		"user_id": strconv.FormatInt(userID, 10),
	})
	if err != nil {
		return CreateIntentOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway error")
	}

	return CreateIntentOutput{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          total,
	}, nil
}
