package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/shop-checkout/internal/domain/models"
	"github.com/linemk/shop-checkout/internal/storage"
)

// ResolvedMethods — проверенные способы оплаты и доставки для заказа.
type ResolvedMethods struct {
	Payment  *models.PaymentMethod
	Shipping *models.ShippingMethod
	Store    *models.Store // nil, если доставка не требует выбора магазина
}

// CheckoutOptions — активные способы и магазины для формы оформления заказа.
type CheckoutOptions struct {
	PaymentMethods  []*models.PaymentMethod
	ShippingMethods []*models.ShippingMethod
	Stores          []*models.Store
}

// MethodService загружает и проверяет выбранные способы оплаты и доставки.
type MethodService interface {
	Resolve(ctx context.Context, paymentMethodID, shippingMethodID int64, pickupStoreID *int64) (*ResolvedMethods, error)
	// ListOptions возвращает данные для отображения формы оформления.
	ListOptions(ctx context.Context) (*CheckoutOptions, error)
}

type methodService struct {
	log        *slog.Logger
	methodRepo storage.MethodStorage
	storeRepo  storage.StoreStorage
}

func NewMethodService(log *slog.Logger, methodRepo storage.MethodStorage, storeRepo storage.StoreStorage) MethodService {
	return &methodService{
		log:        log,
		methodRepo: methodRepo,
		storeRepo:  storeRepo,
	}
}

// Resolve проверяет существование и активность обоих способов; для доставки
// с самовывозом дополнительно требуется активный магазин.
// Ценовые ограничения способов (мин/макс сумма, страны) здесь не проверяются.
func (s *methodService) Resolve(ctx context.Context, paymentMethodID, shippingMethodID int64, pickupStoreID *int64) (*ResolvedMethods, error) {
	const op = "service.MethodService.Resolve"
	logger := s.log.With(slog.String("op", op),
		slog.Int64("paymentMethodID", paymentMethodID),
		slog.Int64("shippingMethodID", shippingMethodID),
	)

	payment, err := s.methodRepo.GetPaymentMethodByID(ctx, paymentMethodID)
	if err != nil {
		if errors.Is(err, storage.ErrPaymentMethodNotFound) {
			return nil, &NotFoundError{Msg: "invalid payment or shipping method"}
		}
		logger.Error("failed to get payment method", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get payment method: %w", op, err)
	}

	shipping, err := s.methodRepo.GetShippingMethodByID(ctx, shippingMethodID)
	if err != nil {
		if errors.Is(err, storage.ErrShippingMethodNotFound) {
			return nil, &NotFoundError{Msg: "invalid payment or shipping method"}
		}
		logger.Error("failed to get shipping method", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get shipping method: %w", op, err)
	}

	if !payment.IsActive || !shipping.IsActive {
		return nil, &NotFoundError{Msg: "invalid payment or shipping method"}
	}

	resolved := &ResolvedMethods{Payment: payment, Shipping: shipping}

	if shipping.RequiresStoreSelection {
		if pickupStoreID == nil {
			return nil, &ValidationError{Msg: "please select a pickup store"}
		}
		store, err := s.storeRepo.GetActiveStoreByID(ctx, *pickupStoreID)
		if err != nil {
			if errors.Is(err, storage.ErrStoreNotFound) {
				return nil, &ValidationError{Msg: "please select a valid pickup store"}
			}
			logger.Error("failed to get pickup store", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get pickup store: %w", op, err)
		}
		resolved.Store = store
	}

	return resolved, nil
}

func (s *methodService) ListOptions(ctx context.Context) (*CheckoutOptions, error) {
	const op = "service.MethodService.ListOptions"

	payments, err := s.methodRepo.ListActivePaymentMethods(ctx)
	if err != nil {
		s.log.Error("failed to list payment methods", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list payment methods: %w", op, err)
	}
	shippings, err := s.methodRepo.ListActiveShippingMethods(ctx)
	if err != nil {
		s.log.Error("failed to list shipping methods", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list shipping methods: %w", op, err)
	}
	stores, err := s.storeRepo.ListActiveStores(ctx)
	if err != nil {
		s.log.Error("failed to list stores", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list stores: %w", op, err)
	}

	return &CheckoutOptions{
		PaymentMethods:  payments,
		ShippingMethods: shippings,
		Stores:          stores,
	}, nil
}
