package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/shop-checkout/internal/domain/models"
	security "github.com/linemk/shop-checkout/internal/jwt-new"
	"github.com/linemk/shop-checkout/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	tokenTTL time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:      log,
		userRepo: userRepo,
		tokenTTL: tokenTTL,
	}
}

type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Login осуществляет аутентификацию покупателя, созданного при оформлении заказа.
// Регистрации здесь нет: аккаунты создаются только провижинингом в checkout.
// После успешной проверки пароля генерируется JWT-токен.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	const op = "auth.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("email", email),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	// Сравниваем введённый пароль с хэшированным значением
	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	// Генерация JWT-токена. Секрет для подписи берётся из переменной окружения JWT_SECRET.
	token, err := security.NewToken(ctx, user, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return token, nil
}

var _ AuthServiceInterface = (*AuthService)(nil)

// OrderService отдаёт заказ странице подтверждения с контролем доступа.
type OrderService interface {
	// GetOrderByNumber возвращает заказ. Заказ пользователя виден только этому
	// пользователю; гостевой заказ требует совпадения email гостя.
	GetOrderByNumber(ctx context.Context, orderNumber string, userID *int64, guestEmail string) (*models.Order, error)
}

var ErrAccessDenied = errors.New("access denied")

type orderService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
}

func NewOrderService(log *slog.Logger, orderRepo storage.OrderStorage) OrderService {
	return &orderService{log: log, orderRepo: orderRepo}
}

func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string, userID *int64, guestEmail string) (*models.Order, error) {
	const op = "service.OrderService.GetOrderByNumber"
	logger := s.log.With(slog.String("op", op), slog.String("orderNumber", orderNumber))

	order, err := s.orderRepo.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, &NotFoundError{Msg: "order not found"}
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	if order.UserID != nil {
		// Детали чужого заказа не раскрываются даже аутентифицированным пользователям.
		if userID == nil || *userID != *order.UserID {
			logger.Warn("access to foreign order denied")
			return nil, ErrAccessDenied
		}
		return order, nil
	}

	// Гостевой заказ: подтверждение доступно по номеру заказа и email гостя.
	if guestEmail == "" || guestEmail != order.Email {
		logger.Warn("guest email mismatch for order access")
		return nil, ErrAccessDenied
	}
	return order, nil
}
