package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/linemk/shop-checkout/internal/domain/models"
	"github.com/linemk/shop-checkout/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// AccountService создаёт аккаунт покупателя прямо при оформлении заказа.
// Валидация выполняется до любой записи; сама запись идёт в транзакции оформления.
type AccountService interface {
	// ValidateNewAccount проверяет пароль и занятость email до начала персистенции.
	ValidateNewAccount(ctx context.Context, req *CheckoutRequest) error
	// ProvisionTx создаёт пользователя и его адреса в рамках переданной транзакции.
	ProvisionTx(ctx context.Context, tx *sql.Tx, req *CheckoutRequest) (*models.User, error)
}

type accountService struct {
	log      *slog.Logger
	userRepo storage.UserStorage
	addrRepo storage.AddressStorage
}

func NewAccountService(log *slog.Logger, userRepo storage.UserStorage, addrRepo storage.AddressStorage) AccountService {
	return &accountService{
		log:      log,
		userRepo: userRepo,
		addrRepo: addrRepo,
	}
}

func (s *accountService) ValidateNewAccount(ctx context.Context, req *CheckoutRequest) error {
	const op = "service.AccountService.ValidateNewAccount"
	logger := s.log.With(slog.String("op", op), slog.String("email", req.Email))

	if req.Password == "" {
		return &ValidationError{Msg: "password is required to create an account"}
	}
	if req.Password != req.PasswordConfirm {
		return &ValidationError{Msg: "passwords do not match"}
	}
	if len(req.Password) < minPasswordLength {
		return &ValidationError{Msg: "password must be at least 8 characters long"}
	}

	_, err := s.userRepo.GetUserByEmail(ctx, req.Email)
	if err == nil {
		logger.Info("email already registered")
		return &ConflictError{Msg: "this email is already registered, please log in"}
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		logger.Error("failed to check email", slog.Any("error", err))
		return fmt.Errorf("%s: failed to check email: %w", op, err)
	}
	return nil
}

// ProvisionTx создаёт пользователя с ролью USER, платёжный адрес по умолчанию
// и, если адрес доставки отличается, второй адрес с типом shipping.
func (s *accountService) ProvisionTx(ctx context.Context, tx *sql.Tx, req *CheckoutRequest) (*models.User, error) {
	const op = "service.AccountService.ProvisionTx"
	logger := s.log.With(slog.String("op", op), slog.String("email", req.Email))

	username, err := s.deriveUsername(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to derive username: %w", op, err)
	}

	// Хеширование пароля с помощью bcrypt (автоматически добавляет соль)
	passHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user := &models.User{
		Username: username,
		Email:    req.Email,
		PassHash: passHash,
		Role:     models.RoleUser,
	}
	user, err = s.userRepo.CreateUserTx(ctx, tx, user)
	if err != nil {
		logger.Error("failed to create user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	billing := &models.Address{
		UserID:    user.ID,
		Type:      models.AddressTypeBilling,
		Street:    req.BillingAddress,
		City:      req.BillingCity,
		Postal:    req.BillingPostal,
		Country:   req.BillingCountry,
		IsDefault: true,
	}
	if _, err := s.addrRepo.CreateAddressTx(ctx, tx, billing); err != nil {
		logger.Error("failed to create billing address", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create billing address: %w", op, err)
	}

	// Адрес доставки сохраняется отдельно, только если отличается от платёжного.
	if shippingDiffers(req) {
		shipping := &models.Address{
			UserID:    user.ID,
			Type:      models.AddressTypeShipping,
			Street:    req.ShippingAddress,
			City:      req.ShippingCity,
			Postal:    req.ShippingPostal,
			Country:   req.ShippingCountry,
			IsDefault: true,
		}
		if _, err := s.addrRepo.CreateAddressTx(ctx, tx, shipping); err != nil {
			logger.Error("failed to create shipping address", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create shipping address: %w", op, err)
		}
	}

	logger.Info("account provisioned", slog.Int64("userID", user.ID), slog.String("username", username))
	return user, nil
}

// deriveUsername строит имя пользователя из локальной части email;
// при коллизии добавляется числовой суффикс до первого свободного.
func (s *accountService) deriveUsername(ctx context.Context, email string) (string, error) {
	base := strings.ToLower(strings.SplitN(email, "@", 2)[0])

	candidate := base
	for suffix := 1; ; suffix++ {
		_, err := s.userRepo.GetUserByUsername(ctx, candidate)
		if errors.Is(err, storage.ErrUserNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = base + strconv.Itoa(suffix)
	}
}

// shippingDiffers сравнивает адресные блоки по полям.
func shippingDiffers(req *CheckoutRequest) bool {
	if !req.DifferentShipping {
		return false
	}
	return req.ShippingAddress != req.BillingAddress ||
		req.ShippingCity != req.BillingCity ||
		req.ShippingPostal != req.BillingPostal ||
		req.ShippingCountry != req.BillingCountry
}
