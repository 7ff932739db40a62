package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart представляет корзину покупателя до оформления заказа.
// Корзина привязана либо к пользователю, либо к идентификатору сессии (гость).
type Cart struct {
	ID        int64
	UserID    *int64 // nil для гостевой корзины
	SessionID string
	Items     []*CartItem
	CreatedAt time.Time
}

// CartItem — позиция корзины. Цена фиксируется в момент добавления товара.
type CartItem struct {
	ID        int64
	CartID    int64
	ArticleID int64
	Name      string
	SKU       string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// IsEmpty сообщает, пуста ли корзина.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}
