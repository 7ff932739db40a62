package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/linemk/shop-checkout/internal/config"
	"github.com/linemk/shop-checkout/internal/domain/models"
	"github.com/linemk/shop-checkout/internal/storage"
)

// PaymentInitiator запрашивает у внешнего провайдера URL платёжной страницы
// для заказа. Провайдер позже подтверждает или отменяет оплату колбэком.
type PaymentInitiator interface {
	Initiate(ctx context.Context, order *models.Order, method *models.PaymentMethod) (string, error)
}

// httpPaymentInitiator — реализация поверх HTTP API провайдера.
type httpPaymentInitiator struct {
	providerURL string
	client      *http.Client
}

func NewHTTPPaymentInitiator(cfg config.PaymentsConfig) PaymentInitiator {
	return &httpPaymentInitiator{
		providerURL: cfg.ProviderURL,
		client:      &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *httpPaymentInitiator) Initiate(ctx context.Context, order *models.Order, method *models.PaymentMethod) (string, error) {
	payload := map[string]string{
		"order_number": order.OrderNumber,
		"amount":       order.Total.StringFixed(2),
		"method_type":  method.Type,
		"email":        order.Email,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.providerURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var out struct {
		RedirectURL string `json:"redirect_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.RedirectURL == "" {
		return "", errors.New("payment provider returned empty redirect url")
	}
	return out.RedirectURL, nil
}

// DispatchResult — результат диспетчеризации оплаты только что созданного заказа.
type DispatchResult struct {
	// RedirectURL — платёжная страница провайдера либо страница подтверждения.
	RedirectURL string
	// Pending: true, если заказ считается размещённым без участия провайдера.
	Pending bool
}

// PaymentService решает после сохранения заказа, нужен ли переход к внешнему
// провайдеру, и обрабатывает его колбэки.
type PaymentService interface {
	Dispatch(ctx context.Context, order *models.Order, method *models.PaymentMethod) (*DispatchResult, error)
	// HandleCallback переводит статус оплаты заказа в paid или cancelled.
	HandleCallback(ctx context.Context, orderNumber, status, transactionID string) error
}

type paymentService struct {
	log       *slog.Logger
	cfg       config.PaymentsConfig
	orderRepo storage.OrderStorage
	initiator PaymentInitiator
}

func NewPaymentService(log *slog.Logger, cfg config.PaymentsConfig, orderRepo storage.OrderStorage, initiator PaymentInitiator) PaymentService {
	return &paymentService{
		log:       log,
		cfg:       cfg,
		orderRepo: orderRepo,
		initiator: initiator,
	}
}

// Dispatch: redirect-типы уходят к провайдеру, статус оплаты остаётся пустым
// до колбэка; остальные типы сразу получают статус pending и считаются
// размещёнными. Сбой инициализации не откатывает заказ — пользователь может
// повторить оплату позже.
func (s *paymentService) Dispatch(ctx context.Context, order *models.Order, method *models.PaymentMethod) (*DispatchResult, error) {
	const op = "service.PaymentService.Dispatch"
	logger := s.log.With(slog.String("op", op), slog.String("orderNumber", order.OrderNumber), slog.String("methodType", method.Type))

	if s.cfg.IsRedirectType(method.Type) {
		redirectURL, err := s.initiator.Initiate(ctx, order, method)
		if err != nil {
			logger.Error("payment initiation failed", slog.Any("error", err))
			return nil, &ExternalServiceError{
				Msg: "payment could not be initiated, please try again",
				Err: err,
			}
		}
		logger.Info("payment initiated, redirecting to provider")
		return &DispatchResult{RedirectURL: redirectURL}, nil
	}

	if err := s.orderRepo.SetPaymentStatus(ctx, order.OrderNumber,
		models.PaymentStatusPending, models.OrderStatusPending, "", nil); err != nil {
		logger.Error("failed to set payment status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to set payment status: %w", op, err)
	}
	order.PaymentStatus = models.PaymentStatusPending

	logger.Info("order placed without provider redirect")
	return &DispatchResult{
		RedirectURL: "/api/orders/" + order.OrderNumber,
		Pending:     true,
	}, nil
}

func (s *paymentService) HandleCallback(ctx context.Context, orderNumber, status, transactionID string) error {
	const op = "service.PaymentService.HandleCallback"
	logger := s.log.With(slog.String("op", op), slog.String("orderNumber", orderNumber), slog.String("status", status))

	switch status {
	case models.PaymentStatusPaid:
		now := time.Now()
		if err := s.orderRepo.SetPaymentStatus(ctx, orderNumber,
			models.PaymentStatusPaid, models.OrderStatusPaymentReceived, transactionID, &now); err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				return &NotFoundError{Msg: "order not found"}
			}
			logger.Error("failed to mark order paid", slog.Any("error", err))
			return fmt.Errorf("%s: failed to mark order paid: %w", op, err)
		}
	case models.PaymentStatusCancelled:
		if err := s.orderRepo.SetPaymentStatus(ctx, orderNumber,
			models.PaymentStatusCancelled, models.OrderStatusCancelled, transactionID, nil); err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				return &NotFoundError{Msg: "order not found"}
			}
			logger.Error("failed to mark order cancelled", slog.Any("error", err))
			return fmt.Errorf("%s: failed to mark order cancelled: %w", op, err)
		}
	default:
		return &ValidationError{Msg: "unknown payment status"}
	}

	logger.Info("payment callback processed")
	return nil
}
