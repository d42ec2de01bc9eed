package payment

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
)

// 本番キー未設定のときのデモモード用
const (
	demoSecretKey    = "sk_test_demo_key"
	mockIntentPrefix = "pi_mock_"
)

type StripeGateway struct {
	secretKey string
}

func NewStripeGateway(secretKey string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{secretKey: secretKey}
}

func (g *StripeGateway) mockMode() bool {
	return g.secretKey == demoSecretKey
}

// PaymentIntentを作成する。amountはセント変換してStripeへ渡す。
func (g *StripeGateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error) {
	if g.mockMode() {
		//デモ用のintentを返す（GetStatusは常にsucceeded扱い）
		id := mockIntentPrefix + uuid.NewString()
		return Intent{ID: id, ClientSecret: id + "_secret"}, nil
	}

	params := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(toCents(amount)),
		Currency: stripe.String(currency),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return Intent{}, err
	}

	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// intentの現在の状態を問い合わせる
func (g *StripeGateway) GetStatus(ctx context.Context, intentID string) (IntentStatus, error) {
	if strings.HasPrefix(intentID, mockIntentPrefix) {
		return StatusSucceeded, nil
	}

	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	}
	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return "", err
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return StatusSucceeded, nil
	case stripe.PaymentIntentStatusCanceled:
		return StatusFailed, nil
	default:
		// requires_payment_method / processing などは未確定扱い
		return StatusPending, nil
	}
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
