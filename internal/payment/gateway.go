package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type IntentStatus string

const (
	StatusSucceeded IntentStatus = "succeeded"
	StatusPending   IntentStatus = "pending"
	StatusFailed    IntentStatus = "failed"
)

type Intent struct {
	ID           string
	ClientSecret string
}

// 決済ゲートウェイの約束。
// チェックアウト本体はGetStatusの結果（succeededかどうか）だけを消費する。
type Gateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (Intent, error)
	GetStatus(ctx context.Context, intentID string) (IntentStatus, error)
}
