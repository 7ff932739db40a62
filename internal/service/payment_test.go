package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/linemk/shop-checkout/internal/config"
	"github.com/linemk/shop-checkout/internal/domain/models"
	"github.com/linemk/shop-checkout/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func paymentFixtures(initiator *fakePaymentInitiator) (service.PaymentService, *fakeOrderRepo) {
	cfg := config.PaymentsConfig{
		RedirectTypes: []string{"card", "wallet"},
		ProviderURL:   "http://localhost:9090/initiate",
		Timeout:       10 * time.Second,
	}
	orderRepo := newFakeOrderRepo()
	orderRepo.orders["ORD-2025-ABCDEF12"] = &models.Order{
		OrderNumber: "ORD-2025-ABCDEF12",
		Status:      models.OrderStatusPending,
		Email:       "john@example.com",
		Total:       decimal.RequireFromString("54.97"),
	}
	return service.NewPaymentService(testLogger(), cfg, orderRepo, initiator), orderRepo
}

func TestPaymentService_Dispatch_RedirectType(t *testing.T) {
	initiator := &fakePaymentInitiator{redirectURL: "https://pay.example/session-1"}
	paymentSvc, orderRepo := paymentFixtures(initiator)

	order := orderRepo.orders["ORD-2025-ABCDEF12"]
	method := &models.PaymentMethod{ID: 2, Name: "Card", Type: "card", IsActive: true}

	result, err := paymentSvc.Dispatch(context.Background(), order, method)
	assert.NoError(t, err)
	assert.Equal(t, "https://pay.example/session-1", result.RedirectURL)
	assert.False(t, result.Pending)
	assert.Equal(t, 1, initiator.calls)

	// Статус оплаты не трогается до колбэка провайдера.
	assert.Empty(t, order.PaymentStatus)
}

func TestPaymentService_Dispatch_NonRedirectType(t *testing.T) {
	initiator := &fakePaymentInitiator{}
	paymentSvc, orderRepo := paymentFixtures(initiator)

	order := orderRepo.orders["ORD-2025-ABCDEF12"]
	method := &models.PaymentMethod{ID: 1, Name: "Invoice", Type: "invoice", IsActive: true}

	result, err := paymentSvc.Dispatch(context.Background(), order, method)
	assert.NoError(t, err)
	assert.True(t, result.Pending)
	assert.Equal(t, "/api/orders/ORD-2025-ABCDEF12", result.RedirectURL)
	assert.Equal(t, 0, initiator.calls, "provider should not be called for non-redirect types")
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
}

func TestPaymentService_Dispatch_InitiationFailure(t *testing.T) {
	initiator := &fakePaymentInitiator{err: errors.New("provider unavailable")}
	paymentSvc, orderRepo := paymentFixtures(initiator)

	order := orderRepo.orders["ORD-2025-ABCDEF12"]
	method := &models.PaymentMethod{ID: 2, Name: "Card", Type: "card", IsActive: true}

	var extErr *service.ExternalServiceError
	result, err := paymentSvc.Dispatch(context.Background(), order, method)
	assert.Nil(t, result)
	assert.ErrorAs(t, err, &extErr)
}

func TestPaymentService_HandleCallback_Paid(t *testing.T) {
	paymentSvc, orderRepo := paymentFixtures(&fakePaymentInitiator{})

	err := paymentSvc.HandleCallback(context.Background(), "ORD-2025-ABCDEF12", "paid", "tx-123")
	assert.NoError(t, err)

	order := orderRepo.orders["ORD-2025-ABCDEF12"]
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPaymentReceived, order.Status)
	assert.Equal(t, "tx-123", order.TransactionID)
	assert.NotNil(t, order.PaidAt)
}

func TestPaymentService_HandleCallback_Cancelled(t *testing.T) {
	paymentSvc, orderRepo := paymentFixtures(&fakePaymentInitiator{})

	err := paymentSvc.HandleCallback(context.Background(), "ORD-2025-ABCDEF12", "cancelled", "tx-123")
	assert.NoError(t, err)

	order := orderRepo.orders["ORD-2025-ABCDEF12"]
	assert.Equal(t, models.PaymentStatusCancelled, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Nil(t, order.PaidAt)
}

func TestPaymentService_HandleCallback_UnknownStatus(t *testing.T) {
	paymentSvc, _ := paymentFixtures(&fakePaymentInitiator{})

	var valErr *service.ValidationError
	err := paymentSvc.HandleCallback(context.Background(), "ORD-2025-ABCDEF12", "refunded", "tx-123")
	assert.ErrorAs(t, err, &valErr)
}

func TestPaymentService_HandleCallback_OrderNotFound(t *testing.T) {
	paymentSvc, _ := paymentFixtures(&fakePaymentInitiator{})

	var nfErr *service.NotFoundError
	err := paymentSvc.HandleCallback(context.Background(), "ORD-2025-UNKNOWN1", "paid", "tx-123")
	assert.ErrorAs(t, err, &nfErr)
}
