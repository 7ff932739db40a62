package storage_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/linemk/shop-checkout/internal/domain/models"
	"github.com/linemk/shop-checkout/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGetUserByEmail_Success(t *testing.T) {
	// Создаем sqlmock для эмуляции базы данных.
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()
	email := "john@example.com"

	// Подготавливаем ожидаемые строки результата.
	rows := sqlmock.NewRows([]string{"id", "username", "email", "pass_hash", "role"}).
		AddRow(1, "john", email, []byte("hashed-password"), "USER")

	query := regexp.QuoteMeta("SELECT id, username, email, pass_hash, role FROM users WHERE email = $1")
	mock.ExpectQuery(query).WithArgs(email).WillReturnRows(rows)

	user, err := repo.GetUserByEmail(ctx, email)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "john", user.Username)
	assert.Equal(t, email, user.Email)
	assert.Equal(t, []byte("hashed-password"), user.PassHash)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()
	email := "nonexistent@example.com"

	// Эмулируем ситуацию, когда запрос возвращает 0 строк.
	rows := sqlmock.NewRows([]string{"id", "username", "email", "pass_hash", "role"})
	query := regexp.QuoteMeta("SELECT id, username, email, pass_hash, role FROM users WHERE email = $1")
	mock.ExpectQuery(query).WithArgs(email).WillReturnRows(rows)

	user, err := repo.GetUserByEmail(ctx, email)
	assert.Error(t, err)
	assert.Nil(t, user)
	assert.True(t, errors.Is(err, storage.ErrUserNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewUserRepository(db)
	ctx := context.Background()

	// Ожидаем вызов Begin перед тем, как вызвать db.Begin().
	mock.ExpectBegin()
	tx, err := db.Begin()
	assert.NoError(t, err)

	query := regexp.QuoteMeta("INSERT INTO users (username, email, pass_hash, role) VALUES ($1, $2, $3, $4) RETURNING id")
	mock.ExpectQuery(query).WithArgs("john", "john@example.com", []byte("hashed"), "USER").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	user := &models.User{
		Username: "john",
		Email:    "john@example.com",
		PassHash: []byte("hashed"),
		Role:     models.RoleUser,
	}
	created, err := repo.CreateUserTx(ctx, tx, user)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), created.ID)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCartBySessionID_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()
	sessionID := "sess-abc"
	now := time.Now()

	// Корзина и затем её позиции — два отдельных запроса.
	cartRows := sqlmock.NewRows([]string{"id", "user_id", "session_id", "created_at"}).
		AddRow(3, nil, sessionID, now)
	query := regexp.QuoteMeta("SELECT id, user_id, session_id, created_at FROM carts WHERE session_id = $1")
	mock.ExpectQuery(query).WithArgs(sessionID).WillReturnRows(cartRows)

	itemRows := sqlmock.NewRows([]string{"id", "cart_id", "article_id", "name", "sku", "quantity", "unit_price", "subtotal"}).
		AddRow(1, 3, 10, "Mug", "MUG-01", 2, "24.99", "49.98")
	mock.ExpectQuery("SELECT id, cart_id, article_id, name, sku, quantity, unit_price, subtotal").
		WithArgs(int64(3)).WillReturnRows(itemRows)

	cart, err := repo.GetCartBySessionID(ctx, sessionID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), cart.ID)
	assert.Nil(t, cart.UserID)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, "49.98", cart.Items[0].Subtotal.StringFixed(2))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCartBySessionID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "user_id", "session_id", "created_at"})
	query := regexp.QuoteMeta("SELECT id, user_id, session_id, created_at FROM carts WHERE session_id = $1")
	mock.ExpectQuery(query).WithArgs("unknown").WillReturnRows(rows)

	cart, err := repo.GetCartBySessionID(ctx, "unknown")
	assert.Error(t, err)
	assert.Nil(t, cart)
	assert.True(t, errors.Is(err, storage.ErrCartNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCart_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()
	now := time.Now()

	query := regexp.QuoteMeta("INSERT INTO carts (user_id, session_id, created_at) VALUES ($1, $2, NOW()) RETURNING id, created_at")
	mock.ExpectQuery(query).WithArgs(nil, "sess-abc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, now))

	cart, err := repo.CreateCart(ctx, nil, "sess-abc")
	assert.NoError(t, err)
	assert.Equal(t, int64(5), cart.ID)
	assert.Equal(t, "sess-abc", cart.SessionID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCartTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewCartRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	tx, err := db.Begin()
	assert.NoError(t, err)

	// Сначала удаляются позиции, затем сама корзина.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE cart_id = $1")).
		WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM carts WHERE id = $1")).
		WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.DeleteCartTx(ctx, tx, 3)
	assert.NoError(t, err)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func testOrder() *models.Order {
	return &models.Order{
		OrderNumber: "ORD-2025-ABCDEF12",
		Status:      models.OrderStatusPending,

		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@example.com",

		BillingAddress:  "Main St 1",
		BillingCity:     "Berlin",
		BillingPostal:   "10115",
		BillingCountry:  "DE",
		ShippingAddress: "Main St 1",
		ShippingCity:    "Berlin",
		ShippingPostal:  "10115",
		ShippingCountry: "DE",

		PaymentMethodID:  1,
		ShippingMethodID: 1,

		Subtotal:     decimal.RequireFromString("49.98"),
		ShippingCost: decimal.RequireFromString("4.99"),
		PaymentFee:   decimal.Zero,
		Total:        decimal.RequireFromString("54.97"),

		Items: []*models.OrderItem{
			{
				ArticleID: 10,
				Name:      "Mug",
				SKU:       "MUG-01",
				Quantity:  2,
				UnitPrice: decimal.RequireFromString("24.99"),
				Subtotal:  decimal.RequireFromString("49.98"),
			},
		},
	}
}

func TestCreateOrderTx_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	tx, err := db.Begin()
	assert.NoError(t, err)

	// Заказ и его позиции вставляются в рамках одной транзакции.
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	order := testOrder()
	err = repo.CreateOrderTx(ctx, tx, order)
	assert.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, int64(42), order.Items[0].OrderID)

	mock.ExpectCommit()
	assert.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderTx_DuplicateOrderNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	tx, err := db.Begin()
	assert.NoError(t, err)

	// Нарушение уникального индекса по номеру заказа (unique_violation).
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnError(&pq.Error{Code: "23505"})

	err = repo.CreateOrderTx(ctx, tx, testOrder())
	assert.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrOrderNumberTaken))

	mock.ExpectRollback()
	assert.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByNumber_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id"})
	mock.ExpectQuery("SELECT id, order_number, status").
		WithArgs("ORD-2025-UNKNOWN1").WillReturnRows(rows)

	order, err := repo.GetOrderByNumber(ctx, "ORD-2025-UNKNOWN1")
	assert.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, errors.Is(err, storage.ErrOrderNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPaymentStatus_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()
	paidAt := time.Now()

	query := regexp.QuoteMeta("UPDATE orders SET payment_status = $1, status = $2, transaction_id = $3, paid_at = $4")
	mock.ExpectExec(query).
		WithArgs("paid", "payment_received", "tx-123", &paidAt, "ORD-2025-ABCDEF12").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SetPaymentStatus(ctx, "ORD-2025-ABCDEF12", "paid", "payment_received", "tx-123", &paidAt)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPaymentStatus_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewOrderRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("UPDATE orders SET payment_status = $1, status = $2, transaction_id = $3, paid_at = $4")
	mock.ExpectExec(query).
		WithArgs("paid", "payment_received", "tx-123", nil, "ORD-2025-UNKNOWN1").
		WillReturnResult(sqlmock.NewResult(0, 0)) // 0 строк затронуто

	err = repo.SetPaymentStatus(ctx, "ORD-2025-UNKNOWN1", "paid", "payment_received", "tx-123", nil)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrOrderNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveArticleByID_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewArticleRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "name", "sku", "price", "is_active"}).
		AddRow(10, "Mug", "MUG-01", "24.99", true)
	query := regexp.QuoteMeta("SELECT id, name, sku, price, is_active FROM articles WHERE id = $1 AND is_active = TRUE")
	mock.ExpectQuery(query).WithArgs(int64(10)).WillReturnRows(rows)

	article, err := repo.GetActiveArticleByID(ctx, 10)
	assert.NoError(t, err)
	assert.Equal(t, "MUG-01", article.SKU)
	assert.Equal(t, "24.99", article.Price.StringFixed(2))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveArticleByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewArticleRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "name", "sku", "price", "is_active"})
	query := regexp.QuoteMeta("SELECT id, name, sku, price, is_active FROM articles WHERE id = $1 AND is_active = TRUE")
	mock.ExpectQuery(query).WithArgs(int64(99)).WillReturnRows(rows)

	article, err := repo.GetActiveArticleByID(ctx, 99)
	assert.Error(t, err)
	assert.Nil(t, article)
	assert.True(t, errors.Is(err, storage.ErrArticleNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPaymentMethodByID_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewMethodRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "name", "type", "fee", "is_active"}).
		AddRow(1, "Invoice", "invoice", "0.00", true)
	query := regexp.QuoteMeta("SELECT id, name, type, fee, is_active FROM payment_methods WHERE id = $1")
	mock.ExpectQuery(query).WithArgs(int64(1)).WillReturnRows(rows)

	method, err := repo.GetPaymentMethodByID(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, "invoice", method.Type)
	assert.True(t, method.IsActive)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetShippingMethodByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := storage.NewMethodRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "name", "price", "requires_store_selection", "is_active"})
	query := regexp.QuoteMeta("SELECT id, name, price, requires_store_selection, is_active FROM shipping_methods WHERE id = $1")
	mock.ExpectQuery(query).WithArgs(int64(99)).WillReturnRows(rows)

	method, err := repo.GetShippingMethodByID(ctx, 99)
	assert.Error(t, err)
	assert.Nil(t, method)
	assert.True(t, errors.Is(err, storage.ErrShippingMethodNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}
