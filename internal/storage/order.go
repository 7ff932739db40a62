package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/linemk/shop-checkout/internal/domain/models"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderNumberTaken возвращается при нарушении уникального индекса по номеру
	// заказа; оформление повторяет попытку с новым номером.
	ErrOrderNumberTaken = errors.New("order number already taken")
)

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx вставляет заказ и его позиции в рамках транзакции оформления.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	// SetPaymentStatus выставляет статус оплаты (и при необходимости статус заказа,
	// идентификатор транзакции провайдера и время оплаты).
	SetPaymentStatus(ctx context.Context, orderNumber, paymentStatus, status, transactionID string, paidAt *time.Time) error
}

// orderRepository — конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	query := `INSERT INTO orders (
			order_number, status, payment_status, user_id,
			title, first_name, last_name, email, phone,
			billing_address, billing_city, billing_postal, billing_country,
			shipping_address, shipping_city, shipping_postal, shipping_country,
			payment_method_id, shipping_method_id, pickup_store_id,
			subtotal, shipping_cost, payment_fee, total, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, NOW())
		RETURNING id`
	err := tx.QueryRowContext(ctx, query,
		order.OrderNumber, order.Status, order.PaymentStatus, order.UserID,
		order.Title, order.FirstName, order.LastName, order.Email, order.Phone,
		order.BillingAddress, order.BillingCity, order.BillingPostal, order.BillingCountry,
		order.ShippingAddress, order.ShippingCity, order.ShippingPostal, order.ShippingCountry,
		order.PaymentMethodID, order.ShippingMethodID, order.PickupStoreID,
		order.Subtotal.StringFixed(2), order.ShippingCost.StringFixed(2),
		order.PaymentFee.StringFixed(2), order.Total.StringFixed(2), order.Notes,
	).Scan(&order.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return ErrOrderNumberTaken
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range order.Items {
		item.OrderID = order.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, article_id, name, sku, quantity, unit_price, subtotal)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			item.OrderID, item.ArticleID, item.Name, item.SKU, item.Quantity,
			item.UnitPrice.StringFixed(2), item.Subtotal.StringFixed(2),
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}
	return nil
}

func (r *orderRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	query := `SELECT id, order_number, status, payment_status, user_id,
			title, first_name, last_name, email, phone,
			billing_address, billing_city, billing_postal, billing_country,
			shipping_address, shipping_city, shipping_postal, shipping_country,
			payment_method_id, shipping_method_id, pickup_store_id,
			subtotal, shipping_cost, payment_fee, total, notes,
			transaction_id, paid_at, created_at
		FROM orders WHERE order_number = $1`

	order := &models.Order{}
	row := r.db.QueryRowContext(ctx, query, orderNumber)
	if err := row.Scan(
		&order.ID, &order.OrderNumber, &order.Status, &order.PaymentStatus, &order.UserID,
		&order.Title, &order.FirstName, &order.LastName, &order.Email, &order.Phone,
		&order.BillingAddress, &order.BillingCity, &order.BillingPostal, &order.BillingCountry,
		&order.ShippingAddress, &order.ShippingCity, &order.ShippingPostal, &order.ShippingCountry,
		&order.PaymentMethodID, &order.ShippingMethodID, &order.PickupStoreID,
		&order.Subtotal, &order.ShippingCost, &order.PaymentFee, &order.Total, &order.Notes,
		&order.TransactionID, &order.PaidAt, &order.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	items, err := r.getItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *orderRepository) getItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, article_id, name, sku, quantity, unit_price, subtotal
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ArticleID, &item.Name, &item.SKU,
			&item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) SetPaymentStatus(ctx context.Context, orderNumber, paymentStatus, status, transactionID string, paidAt *time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = $1, status = $2, transaction_id = $3, paid_at = $4
		 WHERE order_number = $5`,
		paymentStatus, status, transactionID, paidAt, orderNumber)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
