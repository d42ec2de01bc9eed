package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Items() ItemRepository
	CartLines() CartRepository
	Purchases() PurchaseRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
// fnがエラーを返せば全部ロールバックされる。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
