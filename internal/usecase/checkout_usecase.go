package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"market/internal/domain/model"
	"market/internal/payment"
	repo "market/internal/repository"

	"github.com/shopspring/decimal"
)

// チェックアウトのエラー分類。
// 呼び出し側のリトライ判断に使うため、握りつぶさず必ず値で返す。
var (
	ErrCartEmpty           = errors.New("cart is empty")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
)

// 1行以上が検証に落ちた（在庫は一切変更されていない）
type ConflictError struct {
	Issues []ConflictIssue
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("checkout conflict: %d line(s) failed validation", len(e.Issues))
}

type PurchaseOutput struct {
	ID          int64           `json:"id"`
	ItemID      int64           `json:"item_id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	PurchasedAt time.Time       `json:"purchased_at"`
}

type CheckoutResult struct {
	Success   bool             `json:"success"`
	Purchases []PurchaseOutput `json:"purchases,omitempty"`
	Issues    []ConflictIssue  `json:"issues,omitempty"`
}

// CheckoutUsecase はカートを確定済みの売買に変える唯一の入口。
type CheckoutUsecase struct {
	tx        repo.TransactionManager
	purchases repo.PurchaseRepository
	items     repo.ItemRepository
	gateway   payment.Gateway
	now       func() time.Time
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	purchases repo.PurchaseRepository,
	items repo.ItemRepository,
	gateway payment.Gateway,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:        tx,
		purchases: purchases,
		items:     items,
		gateway:   gateway,
		now:       time.Now,
	}
}

// Checkout は支払い済みカートの確定処理。
//
//  1. 同じintentで確定済みなら前回の結果をそのまま返す（リトライ安全）
//  2. ゲートウェイで支払いがsucceededか確認（ロックを持つ前に行う）
//  3. トランザクション内で、カートの商品をid昇順にロック→競合検出→
//     全行Validなら SOLD遷移 + Purchase作成 + カート行削除を一括commit
//
// 1行でも競合があれば何も変更せずConflictErrorを返す（部分確定はしない）。
func (u *CheckoutUsecase) Checkout(ctx context.Context, buyerID int64, intentID string) (CheckoutResult, error) {
	if buyerID <= 0 {
		return CheckoutResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	intentID = strings.TrimSpace(intentID)
	if intentID == "" || len(intentID) > 255 {
		return CheckoutResult{}, NewHTTPError(http.StatusBadRequest, "invalid payment_intent_id")
	}

	// 冪等性チェック（レスポンス欠落後のリトライで二重販売しない）
	existing, err := u.purchases.ListByPaymentIntentID(ctx, intentID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("find purchases by intent: %w", err)
	}
	if len(existing) > 0 {
		return u.replayResult(ctx, existing)
	}

	// 支払い確認。外部呼び出しなのでDBロックより前に行う。
	status, err := u.gateway.GetStatus(ctx, intentID)
	if err != nil {
		return CheckoutResult{}, NewHTTPError(http.StatusBadGateway, "payment verification failed")
	}
	if status != payment.StatusSucceeded {
		return CheckoutResult{}, ErrPaymentNotConfirmed
	}

	var out CheckoutResult

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同時リトライ対策に、tx内でもう一度だけ確認する
		existing, err := r.Purchases().ListByPaymentIntentID(ctx, intentID)
		if err != nil {
			return fmt.Errorf("find purchases by intent: %w", err)
		}
		if len(existing) > 0 {
			replayed, err := u.replayResultTx(ctx, r, existing)
			if err != nil {
				return err
			}
			out = replayed
			return nil
		}

		lines, err := r.CartLines().ListByUserID(ctx, buyerID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		if len(lines) == 0 {
			return ErrCartEmpty
		}

		// id昇順の固定順序でロック（逆順の同時チェックアウトとデッドロックしない）
		ids := make([]int64, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ItemID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		locked, err := r.Items().LockByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("lock items: %w", err)
		}

		// ロック待ちの間に同じintentの並行リクエストがcommitしていることがある。
		// その場合ここで初めて確定済みの購入が見えるので、競合ではなくリプレイを返す。
		existing, err = r.Purchases().ListByPaymentIntentID(ctx, intentID)
		if err != nil {
			return fmt.Errorf("find purchases by intent: %w", err)
		}
		if len(existing) > 0 {
			replayed, err := u.replayResultTx(ctx, r, existing)
			if err != nil {
				return err
			}
			out = replayed
			return nil
		}

		itemsByID := make(map[int64]model.Item, len(locked))
		for _, item := range locked {
			itemsByID[item.ID] = item
		}

		// ロック済みの一貫した状態に対して競合検出
		report := DetectConflicts(lines, itemsByID)
		if len(report.Issues) > 0 {
			return &ConflictError{Issues: report.Issues}
		}

		now := u.now()
		purchases := make([]PurchaseOutput, 0, len(report.Valid))
		lineIDs := make([]int64, 0, len(report.Valid))

		for _, line := range report.Valid {
			item := itemsByID[line.ItemID]

			item.MarkSold(buyerID, now)
			if err := r.Items().Update(ctx, item); err != nil {
				return fmt.Errorf("mark item sold: %w", err)
			}

			// 確定価格はロック済みの現在値（スナップショットではない）
			p, err := r.Purchases().Create(ctx, model.Purchase{
				BuyerID:         buyerID,
				ItemID:          item.ID,
				PurchasePrice:   item.Price,
				PaymentIntentID: intentID,
				CreatedAt:       now,
			})
			if err != nil {
				return fmt.Errorf("create purchase: %w", err)
			}

			purchases = append(purchases, PurchaseOutput{
				ID:          p.ID,
				ItemID:      item.ID,
				Title:       item.Title,
				Price:       p.PurchasePrice,
				PurchasedAt: now,
			})
			lineIDs = append(lineIDs, line.ID)
		}

		if err := r.CartLines().DeleteByIDs(ctx, lineIDs); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		out = CheckoutResult{Success: true, Purchases: purchases}
		return nil
	})

	if err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) {
			return CheckoutResult{Success: false, Issues: ce.Issues}, err
		}
		return CheckoutResult{}, err
	}

	return out, nil
}

// 確定済みの購入レコードから前回の成功レスポンスを復元する
func (u *CheckoutUsecase) replayResult(ctx context.Context, purchases []model.Purchase) (CheckoutResult, error) {
	return buildReplay(ctx, u.items, purchases)
}

func (u *CheckoutUsecase) replayResultTx(ctx context.Context, r repo.TxRepos, purchases []model.Purchase) (CheckoutResult, error) {
	return buildReplay(ctx, r.Items(), purchases)
}

func buildReplay(ctx context.Context, items repo.ItemRepository, purchases []model.Purchase) (CheckoutResult, error) {
	outs := make([]PurchaseOutput, 0, len(purchases))

	for _, p := range purchases {
		title := ""
		if item, err := items.FindByID(ctx, p.ItemID); err == nil {
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

	return CheckoutResult{Success: true, Purchases: outs}, nil
}
