package models

import "github.com/shopspring/decimal"

// Article представляет товар каталога, доступный для добавления в корзину.
type Article struct {
	ID       int64
	Name     string
	SKU      string
	Price    decimal.Decimal
	IsActive bool
}
