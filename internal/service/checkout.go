package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/shop-checkout/internal/domain/models"
	"github.com/linemk/shop-checkout/internal/lib/money"
	"github.com/linemk/shop-checkout/internal/storage"
)

// Номер заказа уникален; при конфликте индекса оформление повторяется
// с новым номером.
const maxOrderNumberAttempts = 5

// RequestMeta — данные запроса, нужные проверкам: сессия, IP,
// идентификатор корзины из сессии и пользователь (nil для гостя).
type RequestMeta struct {
	SessionID     string
	ClientIP      string
	SessionCartID int64
	UserID        *int64
}

// CheckoutResult — результат успешного оформления.
type CheckoutResult struct {
	OrderNumber string
	// RedirectURL — платёжная страница провайдера или страница подтверждения.
	RedirectURL string
}

// CheckoutService выполняет весь процесс оформления заказа: проверка формы,
// разрешение корзины и способов, при необходимости создание аккаунта,
// сборка и сохранение заказа одной транзакцией, диспетчеризация оплаты.
type CheckoutService interface {
	ProcessCheckout(ctx context.Context, req CheckoutRequest, meta RequestMeta) (*CheckoutResult, error)
}

type checkoutService struct {
	log       *slog.Logger
	db        *sql.DB
	validator *CheckoutValidator
	carts     CartService
	methods   MethodService
	accounts  AccountService
	payments  PaymentService
	cartRepo  storage.CartStorage
	orderRepo storage.OrderStorage
}

func NewCheckoutService(
	log *slog.Logger,
	db *sql.DB,
	validator *CheckoutValidator,
	carts CartService,
	methods MethodService,
	accounts AccountService,
	payments PaymentService,
	cartRepo storage.CartStorage,
	orderRepo storage.OrderStorage,
) CheckoutService {
	return &checkoutService{
		log:       log,
		db:        db,
		validator: validator,
		carts:     carts,
		methods:   methods,
		accounts:  accounts,
		payments:  payments,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
	}
}

func (s *checkoutService) ProcessCheckout(ctx context.Context, req CheckoutRequest, meta RequestMeta) (*CheckoutResult, error) {
	const op = "service.CheckoutService.ProcessCheckout"
	logger := s.log.With(slog.String("op", op), slog.String("ip", meta.ClientIP))
	logger.Info("processing checkout")

	clean, err := s.validator.Validate(ctx, req, meta.SessionID, meta.ClientIP)
	if err != nil {
		return nil, err
	}

	cart, err := s.carts.ResolveCart(ctx, meta.SessionCartID, meta.UserID, meta.SessionID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		logger.Warn("no active cart for checkout")
		return nil, ErrCartEmpty
	}

	resolved, err := s.methods.Resolve(ctx, clean.PaymentMethodID, clean.ShippingMethodID, clean.PickupStoreID)
	if err != nil {
		return nil, err
	}

	// Все проверки аккаунта — до начала какой-либо персистенции.
	if clean.CreateAccount {
		if err := s.accounts.ValidateNewAccount(ctx, clean); err != nil {
			return nil, err
		}
	}

	order, err := s.persistOrder(ctx, clean, meta, cart, resolved)
	if err != nil {
		return nil, err
	}
	logger.Info("order persisted",
		slog.String("orderNumber", order.OrderNumber),
		slog.String("total", order.Total.StringFixed(2)),
	)

	dispatch, err := s.payments.Dispatch(ctx, order, resolved.Payment)
	if err != nil {
		// Заказ уже сохранён; сбой провайдера не откатывает его.
		var extErr *ExternalServiceError
		if errors.As(err, &extErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &CheckoutResult{
		OrderNumber: order.OrderNumber,
		RedirectURL: dispatch.RedirectURL,
	}, nil
}

// persistOrder выполняет персистентную часть оформления одной транзакцией:
// создание аккаунта (если запрошено), заказ с позициями, удаление корзины.
// Конфликт номера заказа откатывает транзакцию и повторяет её с новым номером.
func (s *checkoutService) persistOrder(ctx context.Context, req *CheckoutRequest, meta RequestMeta, cart *models.Cart, resolved *ResolvedMethods) (*models.Order, error) {
	const op = "service.CheckoutService.persistOrder"
	logger := s.log.With(slog.String("op", op))

	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			logger.Error("failed to begin transaction", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
		}

		var newUser *models.User
		if req.CreateAccount {
			newUser, err = s.accounts.ProvisionTx(ctx, tx, req)
			if err != nil {
				if rbErr := tx.Rollback(); rbErr != nil {
					logger.Error("transaction rollback failed", slog.Any("error", rbErr))
				}
				return nil, err
			}
		}

		order := s.assembleOrder(req, meta, cart, resolved, newUser)

		if err := s.orderRepo.CreateOrderTx(ctx, tx, order); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			if errors.Is(err, storage.ErrOrderNumberTaken) {
				logger.Warn("order number collision, retrying", slog.Int("attempt", attempt))
				continue
			}
			logger.Error("failed to create order", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
		}

		if err := s.cartRepo.DeleteCartTx(ctx, tx, cart.ID); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to delete cart", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to delete cart: %w", op, err)
		}

		if err := tx.Commit(); err != nil {
			logger.Error("failed to commit transaction", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
		}
		return order, nil
	}

	return nil, fmt.Errorf("%s: could not allocate unique order number after %d attempts", op, maxOrderNumberAttempts)
}

// assembleOrder детерминированно собирает заказ из корзины, проверенных полей
// и способов. Позиции копируются из корзины и далее не изменяются.
func (s *checkoutService) assembleOrder(req *CheckoutRequest, meta RequestMeta, cart *models.Cart, resolved *ResolvedMethods, newUser *models.User) *models.Order {
	order := &models.Order{
		OrderNumber: newOrderNumber(),
		Status:      models.OrderStatusPending,

		Title:     req.Title,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,

		BillingAddress: req.BillingAddress,
		BillingCity:    req.BillingCity,
		BillingPostal:  req.BillingPostal,
		BillingCountry: req.BillingCountry,

		PaymentMethodID:  resolved.Payment.ID,
		ShippingMethodID: resolved.Shipping.ID,

		Notes: req.Notes,
	}

	// Без отдельного адреса доставки блок доставки копирует платёжный блок.
	if req.DifferentShipping {
		order.ShippingAddress = req.ShippingAddress
		order.ShippingCity = req.ShippingCity
		order.ShippingPostal = req.ShippingPostal
		order.ShippingCountry = req.ShippingCountry
	} else {
		order.ShippingAddress = req.BillingAddress
		order.ShippingCity = req.BillingCity
		order.ShippingPostal = req.BillingPostal
		order.ShippingCountry = req.BillingCountry
	}

	if resolved.Store != nil {
		order.PickupStoreID = &resolved.Store.ID
	}

	// Заказ привязывается к только что созданному пользователю,
	// иначе к аутентифицированному, иначе остаётся гостевым.
	switch {
	case newUser != nil:
		order.UserID = &newUser.ID
	case meta.UserID != nil:
		order.UserID = meta.UserID
	}

	for _, ci := range cart.Items {
		order.Items = append(order.Items, &models.OrderItem{
			ArticleID: ci.ArticleID,
			Name:      ci.Name,
			SKU:       ci.SKU,
			Quantity:  ci.Quantity,
			UnitPrice: ci.UnitPrice,
			Subtotal:  ci.Subtotal,
		})
		order.Subtotal = money.Sum(order.Subtotal, ci.Subtotal)
	}

	order.ShippingCost = resolved.Shipping.Price
	order.PaymentFee = resolved.Payment.Fee
	order.Total = money.Sum(order.Subtotal, order.ShippingCost, order.PaymentFee)

	return order
}

// newOrderNumber: "ORD-<год>-<8 символов uuid в верхнем регистре>".
func newOrderNumber() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("ORD-%d-%s", time.Now().Year(), strings.ToUpper(id[len(id)-8:]))
}
