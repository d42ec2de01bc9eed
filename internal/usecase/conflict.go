package usecase

import (
	"market/internal/domain/model"

	"github.com/shopspring/decimal"
)

type ConflictKind string

const (
	// すでに他の買い手に売れている（またはカート追加後に消えた）
	ConflictUnavailable ConflictKind = "unavailable"
	// カート追加後に価格が変わった
	ConflictPriceChanged ConflictKind = "price_changed"
)

type ConflictIssue struct {
	ItemID   int64            `json:"item_id"`
	Title    string           `json:"title"`
	Kind     ConflictKind     `json:"kind"`
	OldPrice *decimal.Decimal `json:"old_price,omitempty"`
	NewPrice *decimal.Decimal `json:"new_price,omitempty"`
}

type ConflictReport struct {
	Issues []ConflictIssue
	Valid  []model.CartLine
}

// カートの各行を、ロック済みの現在の商品状態と突き合わせて分類する。
// 副作用なし。行の順序はカート追加順を保つ。
// ロック取得後に呼ぶこと（ロック前の読みで判定すると、その後のcommitと競合する）。
func DetectConflicts(lines []model.CartLine, items map[int64]model.Item) ConflictReport {
	var report ConflictReport

	for _, line := range lines {
		item, ok := items[line.ItemID]
		if !ok || !item.IsListed() {
			report.Issues = append(report.Issues, ConflictIssue{
				ItemID: line.ItemID,
				Title:  item.Title,
				Kind:   ConflictUnavailable,
			})
			continue
		}

		if !item.Price.Equal(line.PriceSnapshot) {
			oldPrice := line.PriceSnapshot
			newPrice := item.Price
			report.Issues = append(report.Issues, ConflictIssue{
				ItemID:   line.ItemID,
				Title:    item.Title,
				Kind:     ConflictPriceChanged,
				OldPrice: &oldPrice,
				NewPrice: &newPrice,
			})
			continue
		}

		report.Valid = append(report.Valid, line)
	}

	return report
}
