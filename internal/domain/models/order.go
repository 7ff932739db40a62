package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы заказа.
const (
	OrderStatusPending         = "pending"
	OrderStatusPaymentReceived = "payment_received"
	OrderStatusProcessing      = "processing"
	OrderStatusShipped         = "shipped"
	OrderStatusDelivered       = "delivered"
	OrderStatusCancelled       = "cancelled"
	OrderStatusRefunded        = "refunded"
)

// Статусы оплаты (заполняются диспетчером оплаты и колбэком провайдера).
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusCancelled = "cancelled"
)

// Order представляет оформленный заказ. Адресные поля дублируются,
// чтобы зафиксировать адрес на момент оформления независимо от правок профиля.
type Order struct {
	ID            int64
	OrderNumber   string
	Status        string
	PaymentStatus string // пустая строка, пока диспетчер оплаты не выставил статус

	UserID    *int64 // nil для гостевого заказа
	Title     string
	FirstName string
	LastName  string
	Email     string
	Phone     string

	BillingAddress  string
	BillingCity     string
	BillingPostal   string
	BillingCountry  string
	ShippingAddress string
	ShippingCity    string
	ShippingPostal  string
	ShippingCountry string

	PaymentMethodID  int64
	ShippingMethodID int64
	PickupStoreID    *int64

	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	PaymentFee   decimal.Decimal
	Total        decimal.Decimal

	Notes         string
	TransactionID string
	PaidAt        *time.Time
	CreatedAt     time.Time

	Items []*OrderItem
}

// OrderItem — позиция заказа. Значения копируются из позиции корзины в момент
// оформления и после этого не меняются (история заказов не зависит от каталога).
type OrderItem struct {
	ID        int64
	OrderID   int64
	ArticleID int64
	Name      string
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}
