package models

import "github.com/shopspring/decimal"

// PaymentMethod — способ оплаты. Читается при оформлении заказа, не изменяется.
// Type определяет, требуется ли переход на внешнюю платёжную страницу
// (см. конфигурацию payments.redirect_types).
type PaymentMethod struct {
	ID       int64
	Name     string
	Type     string // например: "card", "wallet", "prepayment", "cash_on_delivery", "in_store"
	Fee      decimal.Decimal
	IsActive bool
}

// ShippingMethod — способ доставки.
type ShippingMethod struct {
	ID                     int64
	Name                   string
	Price                  decimal.Decimal
	RequiresStoreSelection bool // самовывоз: нужен выбор магазина
	IsActive               bool
}
