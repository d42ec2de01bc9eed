package usecase_test

import (
	"context"
	"errors"
	"testing"

	"market/internal/domain/model"
	"market/internal/payment"
	"market/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestCreateIntent_UsesSnapshotTotal(t *testing.T) {
	ctx := context.Background()
	cartRepo := new(CoCartRepoMock)
	gateway := new(CoGatewayMock)
	uc := usecase.NewPaymentUsecase(cartRepo, gateway)

	lines := []model.CartLine{cartLine(1, 10, 50), cartLine(2, 11, 30)}
	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return(lines, nil)
	gateway.On("CreateIntent", mock.Anything, mock.MatchedBy(func(amount decimal.Decimal) bool {
		return amount.Equal(decimal.NewFromInt(80))
	}), "usd", map[string]string{"user_id": "1"}).
		Return(payment.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}, nil)

	out, err := uc.CreateIntent(ctx, 1)

	assert.NoError(t, err)
	assert.Equal(t, "pi_1", out.PaymentIntentID)
	assert.Equal(t, "pi_1_secret", out.ClientSecret)
	assert.True(t, out.Amount.Equal(decimal.NewFromInt(80)))
	gateway.AssertExpectations(t)
}

func TestCreateIntent_EmptyCart(t *testing.T) {
	ctx := context.Background()
	cartRepo := new(CoCartRepoMock)
	gateway := new(CoGatewayMock)
	uc := usecase.NewPaymentUsecase(cartRepo, gateway)

	cartRepo.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartLine{}, nil)

	_, err := uc.CreateIntent(ctx, 1)

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
	gateway.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateIntent_GatewayDown(t *testing.T) {
	ctx := context.Background()
	cartRepo := new(CoCartRepoMock)
	gateway := new(CoGatewayMock)
	uc := usecase.NewPaymentUsecase(cartRepo, gateway)

	cartRepo.On("ListByUserID", mock.Anything, int64(1)).
		Return([]model.CartLine{cartLine(1, 10, 50)}, nil)
	gateway.On("CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(payment.Intent{}, errors.New("stripe unreachable"))

	_, err := uc.CreateIntent(ctx, 1)

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 502, he.Status)
}
