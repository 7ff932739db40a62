package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/linemk/shop-checkout/internal/domain/models"
)

var (
	ErrPaymentMethodNotFound  = errors.New("payment method not found")
	ErrShippingMethodNotFound = errors.New("shipping method not found")
)

// MethodStorage описывает чтение способов оплаты и доставки.
// Оформление заказа только читает эти сущности.
type MethodStorage interface {
	GetPaymentMethodByID(ctx context.Context, id int64) (*models.PaymentMethod, error)
	GetShippingMethodByID(ctx context.Context, id int64) (*models.ShippingMethod, error)
	ListActivePaymentMethods(ctx context.Context) ([]*models.PaymentMethod, error)
	ListActiveShippingMethods(ctx context.Context) ([]*models.ShippingMethod, error)
}

type methodRepository struct {
	db *sql.DB
}

func NewMethodRepository(db *sql.DB) MethodStorage {
	return &methodRepository{db: db}
}

func (r *methodRepository) GetPaymentMethodByID(ctx context.Context, id int64) (*models.PaymentMethod, error) {
	m := &models.PaymentMethod{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, type, fee, is_active FROM payment_methods WHERE id = $1", id)
	if err := row.Scan(&m.ID, &m.Name, &m.Type, &m.Fee, &m.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *methodRepository) GetShippingMethodByID(ctx context.Context, id int64) (*models.ShippingMethod, error) {
	m := &models.ShippingMethod{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, price, requires_store_selection, is_active FROM shipping_methods WHERE id = $1", id)
	if err := row.Scan(&m.ID, &m.Name, &m.Price, &m.RequiresStoreSelection, &m.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShippingMethodNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *methodRepository) ListActivePaymentMethods(ctx context.Context) ([]*models.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, type, fee, is_active FROM payment_methods WHERE is_active = TRUE ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []*models.PaymentMethod
	for rows.Next() {
		m := &models.PaymentMethod{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Type, &m.Fee, &m.IsActive); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *methodRepository) ListActiveShippingMethods(ctx context.Context) ([]*models.ShippingMethod, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, price, requires_store_selection, is_active FROM shipping_methods WHERE is_active = TRUE ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []*models.ShippingMethod
	for rows.Next() {
		m := &models.ShippingMethod{}
		if err := rows.Scan(&m.ID, &m.Name, &m.Price, &m.RequiresStoreSelection, &m.IsActive); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return methods, nil
}
