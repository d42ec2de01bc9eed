package usecase_test

import (
	"context"
	"errors"
	"testing"

	"market/internal/domain/model"
	"market/internal/payment"
	repo "market/internal/repository"
	"market/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks（usecase_test内で共用）
// =====================

type CoItemRepoMock struct{ mock.Mock }

func (m *CoItemRepoMock) ListOnSale(ctx context.Context, q repo.ItemListQuery) ([]model.Item, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Item)
	total, _ := args.Get(1).(int64)
	return items, total, args.Error(2)
}

func (m *CoItemRepoMock) FindByID(ctx context.Context, id int64) (model.Item, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(model.Item)
	return item, args.Error(1)
}

func (m *CoItemRepoMock) LockByIDs(ctx context.Context, ids []int64) ([]model.Item, error) {
	args := m.Called(ctx, ids)
	items, _ := args.Get(0).([]model.Item)
	return items, args.Error(1)
}

func (m *CoItemRepoMock) ListBySellerID(ctx context.Context, sellerID int64) ([]model.Item, error) {
	args := m.Called(ctx, sellerID)
	items, _ := args.Get(0).([]model.Item)
	return items, args.Error(1)
}

func (m *CoItemRepoMock) ListByBuyerID(ctx context.Context, buyerID int64) ([]model.Item, error) {
	args := m.Called(ctx, buyerID)
	items, _ := args.Get(0).([]model.Item)
	return items, args.Error(1)
}

func (m *CoItemRepoMock) Create(ctx context.Context, item model.Item) (model.Item, error) {
	args := m.Called(ctx, item)
	created, _ := args.Get(0).(model.Item)
	return created, args.Error(1)
}

func (m *CoItemRepoMock) Update(ctx context.Context, item model.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

type CoCartRepoMock struct{ mock.Mock }

func (m *CoCartRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.CartLine, error) {
	args := m.Called(ctx, userID)
	lines, _ := args.Get(0).([]model.CartLine)
	return lines, args.Error(1)
}

func (m *CoCartRepoMock) Create(ctx context.Context, line model.CartLine) (model.CartLine, error) {
	args := m.Called(ctx, line)
	created, _ := args.Get(0).(model.CartLine)
	return created, args.Error(1)
}

func (m *CoCartRepoMock) DeleteByUserAndItem(ctx context.Context, userID int64, itemID int64) error {
	args := m.Called(ctx, userID, itemID)
	return args.Error(0)
}

func (m *CoCartRepoMock) DeleteByIDs(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

type CoPurchaseRepoMock struct{ mock.Mock }

func (m *CoPurchaseRepoMock) Create(ctx context.Context, p model.Purchase) (model.Purchase, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Purchase)
	return created, args.Error(1)
}

func (m *CoPurchaseRepoMock) ListByBuyerID(ctx context.Context, buyerID int64) ([]model.Purchase, error) {
	args := m.Called(ctx, buyerID)
	purchases, _ := args.Get(0).([]model.Purchase)
	return purchases, args.Error(1)
}

func (m *CoPurchaseRepoMock) ListByPaymentIntentID(ctx context.Context, intentID string) ([]model.Purchase, error) {
	args := m.Called(ctx, intentID)
	purchases, _ := args.Get(0).([]model.Purchase)
	return purchases, args.Error(1)
}

type CoGatewayMock struct{ mock.Mock }

func (m *CoGatewayMock) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (payment.Intent, error) {
	args := m.Called(ctx, amount, currency, metadata)
	intent, _ := args.Get(0).(payment.Intent)
	return intent, args.Error(1)
}

func (m *CoGatewayMock) GetStatus(ctx context.Context, intentID string) (payment.IntentStatus, error) {
	args := m.Called(ctx, intentID)
	status, _ := args.Get(0).(payment.IntentStatus)
	return status, args.Error(1)
}

// トランザクション境界の代役。fnにそのままrepoを渡す。
type fakeTxRepos struct {
	items     repo.ItemRepository
	cartLines repo.CartRepository
	purchases repo.PurchaseRepository
}

func (r *fakeTxRepos) Items() repo.ItemRepository         { return r.items }
func (r *fakeTxRepos) CartLines() repo.CartRepository     { return r.cartLines }
func (r *fakeTxRepos) Purchases() repo.PurchaseRepository { return r.purchases }

type fakeTxManager struct {
	repos   *fakeTxRepos
	entered bool
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.entered = true
	return fn(m.repos)
}

type checkoutFixture struct {
	items     *CoItemRepoMock
	cartLines *CoCartRepoMock
	purchases *CoPurchaseRepoMock
	outer     *CoPurchaseRepoMock
	gateway   *CoGatewayMock
	tx        *fakeTxManager
	uc        *usecase.CheckoutUsecase
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		items:     new(CoItemRepoMock),
		cartLines: new(CoCartRepoMock),
		purchases: new(CoPurchaseRepoMock),
		outer:     new(CoPurchaseRepoMock),
		gateway:   new(CoGatewayMock),
	}
	f.tx = &fakeTxManager{repos: &fakeTxRepos{
		items:     f.items,
		cartLines: f.cartLines,
		purchases: f.purchases,
	}}
	f.uc = usecase.NewCheckoutUsecase(f.tx, f.outer, f.items, f.gateway)
	return f
}

// =====================
// Tests
// =====================

func TestCheckout_PaymentNotConfirmed(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.gateway.On("GetStatus", mock.Anything, "pi_1").Return(payment.StatusPending, nil)

	_, err := f.uc.Checkout(ctx, 1, "pi_1")

	assert.ErrorIs(t, err, usecase.ErrPaymentNotConfirmed)
	//未確認の支払いでは在庫に一切触れない
	assert.False(t, f.tx.entered)
}

func TestCheckout_CartEmpty(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.gateway.On("GetStatus", mock.Anything, "pi_1").Return(payment.StatusSucceeded, nil)
	f.purchases.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.cartLines.On("ListByUserID", mock.Anything, int64(1)).Return([]model.CartLine{}, nil)

	_, err := f.uc.Checkout(ctx, 1, "pi_1")

	assert.ErrorIs(t, err, usecase.ErrCartEmpty)
	f.items.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCheckout_Success(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	lines := []model.CartLine{cartLine(100, 10, 50), cartLine(101, 11, 30)}
	locked := []model.Item{listedItem(10, 50), listedItem(11, 30)}

	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.gateway.On("GetStatus", mock.Anything, "pi_1").Return(payment.StatusSucceeded, nil)
	f.purchases.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.cartLines.On("ListByUserID", mock.Anything, int64(1)).Return(lines, nil)
	f.items.On("LockByIDs", mock.Anything, []int64{10, 11}).Return(locked, nil)

	f.items.On("Update", mock.Anything, mock.MatchedBy(func(item model.Item) bool {
		return item.Status == model.ItemStatusSold &&
			item.BuyerID != nil && *item.BuyerID == int64(1) &&
			item.SoldAt != nil
	})).Return(nil).Twice()

	f.purchases.On("Create", mock.Anything, mock.MatchedBy(func(p model.Purchase) bool {
		return p.BuyerID == int64(1) && p.PaymentIntentID == "pi_1"
	})).Return(model.Purchase{ID: 900}, nil).Twice()

	f.cartLines.On("DeleteByIDs", mock.Anything, []int64{100, 101}).Return(nil)

	out, err := f.uc.Checkout(ctx, 1, "pi_1")

	assert.NoError(t, err)
	assert.True(t, out.Success)
	assert.Len(t, out.Purchases, 2)
	assert.Empty(t, out.Issues)
	f.items.AssertExpectations(t)
	f.purchases.AssertExpectations(t)
	f.cartLines.AssertExpectations(t)
}

func TestCheckout_PriceChangedAbortsEverything(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	//A($50, snapshot $50)は有効、B($30, snapshot $25)は値上がり
	lines := []model.CartLine{cartLine(100, 10, 50), cartLine(101, 11, 25)}
	locked := []model.Item{listedItem(10, 50), listedItem(11, 30)}

	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.gateway.On("GetStatus", mock.Anything, "pi_1").Return(payment.StatusSucceeded, nil)
	f.purchases.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.cartLines.On("ListByUserID", mock.Anything, int64(1)).Return(lines, nil)
	f.items.On("LockByIDs", mock.Anything, []int64{10, 11}).Return(locked, nil)

	out, err := f.uc.Checkout(ctx, 1, "pi_1")

	var ce *usecase.ConflictError
	assert.ErrorAs(t, err, &ce)
	assert.False(t, out.Success)
	assert.Len(t, out.Issues, 1)
	assert.Equal(t, int64(11), out.Issues[0].ItemID)
	assert.Equal(t, usecase.ConflictPriceChanged, out.Issues[0].Kind)
	assert.True(t, out.Issues[0].OldPrice.Equal(decimal.NewFromInt(25)))
	assert.True(t, out.Issues[0].NewPrice.Equal(decimal.NewFromInt(30)))

	//Aも含めて一切確定しない（部分確定なし）
	f.items.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.purchases.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.cartLines.AssertNotCalled(t, "DeleteByIDs", mock.Anything, mock.Anything)
}

func TestCheckout_SoldElsewhereIsUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	lines := []model.CartLine{cartLine(100, 10, 20)}
	locked := []model.Item{soldItem(10, 20)}

	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.gateway.On("GetStatus", mock.Anything, "pi_1").Return(payment.StatusSucceeded, nil)
	f.purchases.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.cartLines.On("ListByUserID", mock.Anything, int64(1)).Return(lines, nil)
	f.items.On("LockByIDs", mock.Anything, []int64{10}).Return(locked, nil)

	out, err := f.uc.Checkout(ctx, 1, "pi_1")

	var ce *usecase.ConflictError
	assert.ErrorAs(t, err, &ce)
	assert.Len(t, out.Issues, 1)
	assert.Equal(t, usecase.ConflictUnavailable, out.Issues[0].Kind)
	f.items.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCheckout_LocksInAscendingIDOrder(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	//カートの追加順はバラバラでも、ロックはid昇順
	lines := []model.CartLine{
		cartLine(100, 9, 10),
		cartLine(101, 2, 10),
		cartLine(102, 5, 10),
	}
	locked := []model.Item{listedItem(2, 10), listedItem(5, 10), listedItem(9, 10)}

	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.gateway.On("GetStatus", mock.Anything, "pi_1").Return(payment.StatusSucceeded, nil)
	f.purchases.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.cartLines.On("ListByUserID", mock.Anything, int64(1)).Return(lines, nil)
	f.items.On("LockByIDs", mock.Anything, []int64{2, 5, 9}).Return(locked, nil)
	f.items.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.purchases.On("Create", mock.Anything, mock.Anything).Return(model.Purchase{ID: 1}, nil)
	f.cartLines.On("DeleteByIDs", mock.Anything, mock.Anything).Return(nil)

	out, err := f.uc.Checkout(ctx, 1, "pi_1")

	assert.NoError(t, err)
	assert.True(t, out.Success)
	f.items.AssertCalled(t, "LockByIDs", mock.Anything, []int64{2, 5, 9})
}

func TestCheckout_PurchasePriceIsCurrentLockedPrice(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	//スナップショットと現在値が一致（=有効）。確定価格はロック済み現在値から取る。
	lines := []model.CartLine{cartLine(100, 10, 50)}
	locked := []model.Item{listedItem(10, 50)}

	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.gateway.On("GetStatus", mock.Anything, "pi_1").Return(payment.StatusSucceeded, nil)
	f.purchases.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.cartLines.On("ListByUserID", mock.Anything, int64(1)).Return(lines, nil)
	f.items.On("LockByIDs", mock.Anything, []int64{10}).Return(locked, nil)
	f.items.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.purchases.On("Create", mock.Anything, mock.MatchedBy(func(p model.Purchase) bool {
		return p.PurchasePrice.Equal(decimal.NewFromInt(50))
	})).Return(model.Purchase{ID: 1}, nil)
	f.cartLines.On("DeleteByIDs", mock.Anything, []int64{100}).Return(nil)

	out, err := f.uc.Checkout(ctx, 1, "pi_1")

	assert.NoError(t, err)
	assert.True(t, out.Success)
	f.purchases.AssertExpectations(t)
}

func TestCheckout_IdempotentReplay(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	prior := []model.Purchase{
		{ID: 900, BuyerID: 1, ItemID: 10, PurchasePrice: decimal.NewFromInt(50), PaymentIntentID: "pi_1"},
	}
	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return(prior, nil)
	f.items.On("FindByID", mock.Anything, int64(10)).Return(listedItem(10, 50), nil)

	out, err := f.uc.Checkout(ctx, 1, "pi_1")

	assert.NoError(t, err)
	assert.True(t, out.Success)
	assert.Len(t, out.Purchases, 1)
	assert.Equal(t, int64(900), out.Purchases[0].ID)

	//在庫にもゲートウェイにも触れない
	assert.False(t, f.tx.entered)
	f.gateway.AssertNotCalled(t, "GetStatus", mock.Anything, mock.Anything)
}

func TestCheckout_ReplayRaceInsideTx(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	//外の事前チェックでは未確定、tx内の再チェックで確定済みが見える
	prior := []model.Purchase{
		{ID: 901, BuyerID: 1, ItemID: 10, PurchasePrice: decimal.NewFromInt(50), PaymentIntentID: "pi_1"},
	}
	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.gateway.On("GetStatus", mock.Anything, "pi_1").Return(payment.StatusSucceeded, nil)
	f.purchases.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return(prior, nil)
	f.items.On("FindByID", mock.Anything, int64(10)).Return(listedItem(10, 50), nil)

	out, err := f.uc.Checkout(ctx, 1, "pi_1")

	assert.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, int64(901), out.Purchases[0].ID)
	f.cartLines.AssertNotCalled(t, "ListByUserID", mock.Anything, mock.Anything)
}

func TestCheckout_ConcurrentSameIntentReplaysAfterLockWait(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	//並行する同一intentの負け側：ロック待ちの間に勝ち側がcommit済み
	lines := []model.CartLine{cartLine(100, 10, 50)}
	prior := []model.Purchase{
		{ID: 902, BuyerID: 1, ItemID: 10, PurchasePrice: decimal.NewFromInt(50), PaymentIntentID: "pi_1"},
	}

	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.gateway.On("GetStatus", mock.Anything, "pi_1").Return(payment.StatusSucceeded, nil)
	//ロック前の確認では未確定、ロック獲得後の再確認で確定済みが見える
	f.purchases.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil).Once()
	f.purchases.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return(prior, nil).Once()
	f.cartLines.On("ListByUserID", mock.Anything, int64(1)).Return(lines, nil)
	f.items.On("LockByIDs", mock.Anything, []int64{10}).Return([]model.Item{soldItem(10, 50)}, nil)
	f.items.On("FindByID", mock.Anything, int64(10)).Return(soldItem(10, 50), nil)

	out, err := f.uc.Checkout(ctx, 1, "pi_1")

	//SOLDになった行をConflictにせず、前回の結果をそのまま返す
	assert.NoError(t, err)
	assert.True(t, out.Success)
	assert.Len(t, out.Purchases, 1)
	assert.Equal(t, int64(902), out.Purchases[0].ID)
	f.items.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	f.purchases.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckout_LockTimeoutIsRetryable(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	lines := []model.CartLine{cartLine(100, 10, 50)}

	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.gateway.On("GetStatus", mock.Anything, "pi_1").Return(payment.StatusSucceeded, nil)
	f.purchases.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.cartLines.On("ListByUserID", mock.Anything, int64(1)).Return(lines, nil)
	f.items.On("LockByIDs", mock.Anything, []int64{10}).Return(nil, repo.ErrLockTimeout)

	_, err := f.uc.Checkout(ctx, 1, "pi_1")

	assert.ErrorIs(t, err, repo.ErrLockTimeout)
	f.items.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCheckout_StorageFailureAbortsTx(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	lines := []model.CartLine{cartLine(100, 10, 50)}
	locked := []model.Item{listedItem(10, 50)}
	boom := errors.New("connection reset")

	f.outer.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.gateway.On("GetStatus", mock.Anything, "pi_1").Return(payment.StatusSucceeded, nil)
	f.purchases.On("ListByPaymentIntentID", mock.Anything, "pi_1").Return([]model.Purchase{}, nil)
	f.cartLines.On("ListByUserID", mock.Anything, int64(1)).Return(lines, nil)
	f.items.On("LockByIDs", mock.Anything, []int64{10}).Return(locked, nil)
	f.items.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.purchases.On("Create", mock.Anything, mock.Anything).Return(model.Purchase{}, boom)

	_, err := f.uc.Checkout(ctx, 1, "pi_1")

	assert.ErrorIs(t, err, boom)
	//txごとロールバックされるのでカートは消えない
	f.cartLines.AssertNotCalled(t, "DeleteByIDs", mock.Anything, mock.Anything)
}

func TestCheckout_InvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture()

	_, err := f.uc.Checkout(ctx, 0, "pi_1")
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 401, he.Status)

	_, err = f.uc.Checkout(ctx, 1, "  ")
	he, ok = usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
}
