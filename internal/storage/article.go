package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/linemk/shop-checkout/internal/domain/models"
)

var ErrArticleNotFound = errors.New("article not found")

// ArticleStorage описывает чтение товаров каталога.
type ArticleStorage interface {
	GetActiveArticleByID(ctx context.Context, id int64) (*models.Article, error)
}

type articleRepository struct {
	db *sql.DB
}

func NewArticleRepository(db *sql.DB) ArticleStorage {
	return &articleRepository{db: db}
}

func (r *articleRepository) GetActiveArticleByID(ctx context.Context, id int64) (*models.Article, error) {
	a := &models.Article{}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, sku, price, is_active FROM articles WHERE id = $1 AND is_active = TRUE", id)
	if err := row.Scan(&a.ID, &a.Name, &a.SKU, &a.Price, &a.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return a, nil
}
