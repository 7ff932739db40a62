package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/linemk/shop-checkout/internal/domain/models"
)

var ErrStoreNotFound = errors.New("store not found")

// StoreStorage описывает чтение магазинов самовывоза.
type StoreStorage interface {
	GetActiveStoreByID(ctx context.Context, id int64) (*models.Store, error)
	ListActiveStores(ctx context.Context) ([]*models.Store, error)
}

type storeRepository struct {
	db *sql.DB
}

func NewStoreRepository(db *sql.DB) StoreStorage {
	return &storeRepository{db: db}
}

func (r *storeRepository) GetActiveStoreByID(ctx context.Context, id int64) (*models.Store, error) {
	s := &models.Store{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, address, city, is_active FROM stores WHERE id = $1 AND is_active = TRUE", id)
	if err := row.Scan(&s.ID, &s.Name, &s.Address, &s.City, &s.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *storeRepository) ListActiveStores(ctx context.Context) ([]*models.Store, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, address, city, is_active FROM stores WHERE is_active = TRUE ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stores []*models.Store
	for rows.Next() {
		s := &models.Store{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.City, &s.IsActive); err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stores, nil
}
