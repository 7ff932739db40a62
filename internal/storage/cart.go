package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/shop-checkout/internal/domain/models"
)

var ErrCartNotFound = errors.New("cart not found")

// CartStorage описывает методы для работы с корзинами.
type CartStorage interface {
	GetCartByID(ctx context.Context, id int64) (*models.Cart, error)
	// GetLatestCartByUserID возвращает последнюю созданную корзину пользователя.
	GetLatestCartByUserID(ctx context.Context, userID int64) (*models.Cart, error)
	GetCartBySessionID(ctx context.Context, sessionID string) (*models.Cart, error)
	CreateCart(ctx context.Context, userID *int64, sessionID string) (*models.Cart, error)
	AddItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	// DeleteCartTx удаляет корзину вместе с позициями в рамках транзакции оформления заказа.
	DeleteCartTx(ctx context.Context, tx *sql.Tx, cartID int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetCartByID(ctx context.Context, id int64) (*models.Cart, error) {
	return r.getCart(ctx, "SELECT id, user_id, session_id, created_at FROM carts WHERE id = $1", id)
}

func (r *cartRepository) GetLatestCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	return r.getCart(ctx,
		"SELECT id, user_id, session_id, created_at FROM carts WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1",
		userID)
}

func (r *cartRepository) GetCartBySessionID(ctx context.Context, sessionID string) (*models.Cart, error) {
	return r.getCart(ctx, "SELECT id, user_id, session_id, created_at FROM carts WHERE session_id = $1", sessionID)
}

func (r *cartRepository) getCart(ctx context.Context, query string, arg interface{}) (*models.Cart, error) {
	cart := &models.Cart{}
	row := r.db.QueryRowContext(ctx, query, arg)
	if err := row.Scan(&cart.ID, &cart.UserID, &cart.SessionID, &cart.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}

	items, err := r.getItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

func (r *cartRepository) getItems(ctx context.Context, cartID int64) ([]*models.CartItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, cart_id, article_id, name, sku, quantity, unit_price, subtotal
		 FROM cart_items WHERE cart_id = $1 ORDER BY id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	var items []*models.CartItem
	for rows.Next() {
		item := &models.CartItem{}
		if err := rows.Scan(&item.ID, &item.CartID, &item.ArticleID, &item.Name, &item.SKU,
			&item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) CreateCart(ctx context.Context, userID *int64, sessionID string) (*models.Cart, error) {
	cart := &models.Cart{UserID: userID, SessionID: sessionID}
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO carts (user_id, session_id, created_at) VALUES ($1, $2, NOW()) RETURNING id, created_at",
		userID, sessionID,
	).Scan(&cart.ID, &cart.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

func (r *cartRepository) AddItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO cart_items (cart_id, article_id, name, sku, quantity, unit_price, subtotal)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		item.CartID, item.ArticleID, item.Name, item.SKU, item.Quantity,
		item.UnitPrice.StringFixed(2), item.Subtotal.StringFixed(2),
	).Scan(&item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return item, nil
}

// DeleteCartTx удаляет сначала позиции, затем саму корзину.
func (r *cartRepository) DeleteCartTx(ctx context.Context, tx *sql.Tx, cartID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID); err != nil {
		return fmt.Errorf("failed to delete cart items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM carts WHERE id = $1", cartID); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
