package storage

import (
	"context"
	"database/sql"

	"github.com/linemk/shop-checkout/internal/domain/models"
)

// AddressStorage описывает методы для работы с адресами пользователей.
type AddressStorage interface {
	// CreateAddressTx вставляет адрес в рамках транзакции оформления заказа.
	CreateAddressTx(ctx context.Context, tx *sql.Tx, addr *models.Address) (*models.Address, error)
	GetAddressesByUserID(ctx context.Context, userID int64) ([]*models.Address, error)
}

type addressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) AddressStorage {
	return &addressRepository{db: db}
}

func (r *addressRepository) CreateAddressTx(ctx context.Context, tx *sql.Tx, addr *models.Address) (*models.Address, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO addresses (user_id, type, street, city, postal, country, is_default)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		addr.UserID, addr.Type, addr.Street, addr.City, addr.Postal, addr.Country, addr.IsDefault,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	addr.ID = id
	return addr, nil
}

func (r *addressRepository) GetAddressesByUserID(ctx context.Context, userID int64) ([]*models.Address, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, street, city, postal, country, is_default
		 FROM addresses WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var addresses []*models.Address
	for rows.Next() {
		addr := &models.Address{}
		if err := rows.Scan(&addr.ID, &addr.UserID, &addr.Type, &addr.Street, &addr.City, &addr.Postal, &addr.Country, &addr.IsDefault); err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return addresses, nil
}
