package domain

import (
	"iter"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is one item entry of a user's cart. Lines with a snapshot tag
// belong to an archived cart and are never modified again.
type CartLine struct {
	ID          int64
	UserID      int64
	ItemID      int64
	Quantity    int
	CreatedAt   time.Time
	SnapshotTag *string
}

// IsActive reports whether the line is part of the user's current cart.
func (l CartLine) IsActive() bool {
	return l.SnapshotTag == nil || *l.SnapshotTag == ""
}

// LineView is a cart line joined with the item's current catalog price.
type LineView struct {
	UserID   int64           `json:"userId"`
	ItemID   int64           `json:"itemId"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type CartView struct {
	Name  string
	lines []LineView
}

func NewCartView(name string, lines []LineView) *CartView {
	return &CartView{Name: name, lines: lines}
}

// Lines iterates over the materialized lines; it can be ranged over any number of times.
func (c *CartView) Lines() iter.Seq[LineView] {
	return slices.Values(c.lines)
}

func (c *CartView) Len() int {
	return len(c.lines)
}

// CountQuantities groups a flat list of item ids into per-item quantities,
// keeping the order in which each id first appears.
func CountQuantities(itemIDs []int64) ([]int64, map[int64]int) {
	quantities := make(map[int64]int, len(itemIDs))
	order := make([]int64, 0, len(itemIDs))
	for _, id := range itemIDs {
		if _, seen := quantities[id]; !seen {
			order = append(order, id)
		}
		quantities[id]++
	}
	return order, quantities
}
