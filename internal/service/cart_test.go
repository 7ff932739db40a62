package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/linemk/shop-checkout/internal/domain/models"
	"github.com/linemk/shop-checkout/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCartService_ResolveCart_SessionCartIDWins(t *testing.T) {
	cartRepo := newFakeCartRepo()
	userID := int64(1)

	// У пользователя есть и корзина из сессии, и более свежая «своя» корзина.
	sessionCart := cartRepo.addCart(&models.Cart{SessionID: "sess-1", CreatedAt: time.Now().Add(-time.Hour)})
	cartRepo.addCart(&models.Cart{UserID: &userID, SessionID: "other", CreatedAt: time.Now()})

	cartSvc := service.NewCartService(testLogger(), cartRepo, newFakeArticleRepo())
	cart, err := cartSvc.ResolveCart(context.Background(), sessionCart.ID, &userID, "sess-1")
	assert.NoError(t, err)
	// Идентификатор корзины из сессии имеет высший приоритет.
	assert.Equal(t, sessionCart.ID, cart.ID)
}

func TestCartService_ResolveCart_UserFallback(t *testing.T) {
	cartRepo := newFakeCartRepo()
	userID := int64(1)

	older := cartRepo.addCart(&models.Cart{UserID: &userID, SessionID: "old", CreatedAt: time.Now().Add(-2 * time.Hour)})
	newer := cartRepo.addCart(&models.Cart{UserID: &userID, SessionID: "new", CreatedAt: time.Now()})

	cartSvc := service.NewCartService(testLogger(), cartRepo, newFakeArticleRepo())
	cart, err := cartSvc.ResolveCart(context.Background(), 0, &userID, "unknown-session")
	assert.NoError(t, err)
	// Без корзины в сессии берётся последняя корзина пользователя.
	assert.Equal(t, newer.ID, cart.ID)
	assert.NotEqual(t, older.ID, cart.ID)
}

func TestCartService_ResolveCart_SessionIDFallback(t *testing.T) {
	cartRepo := newFakeCartRepo()
	guestCart := cartRepo.addCart(&models.Cart{SessionID: "sess-guest", CreatedAt: time.Now()})

	cartSvc := service.NewCartService(testLogger(), cartRepo, newFakeArticleRepo())
	cart, err := cartSvc.ResolveCart(context.Background(), 0, nil, "sess-guest")
	assert.NoError(t, err)
	assert.Equal(t, guestCart.ID, cart.ID)
}

func TestCartService_ResolveCart_NothingFound(t *testing.T) {
	cartSvc := service.NewCartService(testLogger(), newFakeCartRepo(), newFakeArticleRepo())

	cart, err := cartSvc.ResolveCart(context.Background(), 0, nil, "sess-empty")
	assert.NoError(t, err)
	assert.Nil(t, cart)
}

func TestCartService_AddItem_CreatesCartAndSnapshotsPrice(t *testing.T) {
	cartRepo := newFakeCartRepo()
	articleRepo := newFakeArticleRepo()
	articleRepo.articles[10] = &models.Article{
		ID:       10,
		Name:     "Mug",
		SKU:      "MUG-01",
		Price:    decimal.RequireFromString("24.99"),
		IsActive: true,
	}

	cartSvc := service.NewCartService(testLogger(), cartRepo, articleRepo)
	cart, err := cartSvc.AddItem(context.Background(), nil, "sess-1", 10, 2)
	assert.NoError(t, err)
	assert.NotNil(t, cart)
	assert.Len(t, cart.Items, 1)

	// Цена и название зафиксированы на момент добавления.
	item := cart.Items[0]
	assert.Equal(t, "Mug", item.Name)
	assert.Equal(t, "24.99", item.UnitPrice.StringFixed(2))
	assert.Equal(t, "49.98", item.Subtotal.StringFixed(2))
}

func TestCartService_AddItem_ReusesExistingCart(t *testing.T) {
	cartRepo := newFakeCartRepo()
	articleRepo := newFakeArticleRepo()
	articleRepo.articles[10] = &models.Article{ID: 10, Name: "Mug", SKU: "MUG-01", Price: decimal.RequireFromString("24.99"), IsActive: true}
	articleRepo.articles[11] = &models.Article{ID: 11, Name: "Shirt", SKU: "SHIRT-01", Price: decimal.RequireFromString("19.99"), IsActive: true}

	cartSvc := service.NewCartService(testLogger(), cartRepo, articleRepo)
	ctx := context.Background()

	first, err := cartSvc.AddItem(ctx, nil, "sess-1", 10, 1)
	assert.NoError(t, err)
	second, err := cartSvc.AddItem(ctx, nil, "sess-1", 11, 1)
	assert.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "second add should reuse the same cart")
	assert.Len(t, second.Items, 2)
}

func TestCartService_AddItem_InvalidQuantity(t *testing.T) {
	cartSvc := service.NewCartService(testLogger(), newFakeCartRepo(), newFakeArticleRepo())

	var valErr *service.ValidationError
	_, err := cartSvc.AddItem(context.Background(), nil, "sess-1", 10, 0)
	assert.ErrorAs(t, err, &valErr)
}

func TestCartService_AddItem_ArticleNotFound(t *testing.T) {
	articleRepo := newFakeArticleRepo()
	// Неактивный товар недоступен для добавления наравне с отсутствующим.
	articleRepo.articles[10] = &models.Article{ID: 10, Name: "Mug", SKU: "MUG-01", Price: decimal.RequireFromString("24.99"), IsActive: false}

	cartSvc := service.NewCartService(testLogger(), newFakeCartRepo(), articleRepo)

	var nfErr *service.NotFoundError
	_, err := cartSvc.AddItem(context.Background(), nil, "sess-1", 10, 1)
	assert.ErrorAs(t, err, &nfErr)
	_, err = cartSvc.AddItem(context.Background(), nil, "sess-1", 99, 1)
	assert.ErrorAs(t, err, &nfErr)
}
