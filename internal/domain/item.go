package domain

import "github.com/shopspring/decimal"

type Item struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}
