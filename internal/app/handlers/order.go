package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/shop-checkout/internal/domain/models"
	"github.com/linemk/shop-checkout/internal/service"
)

// OrderResponse — представление заказа для страницы подтверждения.
type OrderResponse struct {
	OrderNumber   string              `json:"order_number"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"payment_status,omitempty"`
	FirstName     string              `json:"first_name"`
	LastName      string              `json:"last_name"`
	Email         string              `json:"email"`
	Subtotal      string              `json:"subtotal"`
	ShippingCost  string              `json:"shipping_cost"`
	PaymentFee    string              `json:"payment_fee"`
	Total         string              `json:"total"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
}

type OrderItemResponse struct {
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// OrderConfirmationHandler обрабатывает запрос GET /api/orders/{orderNumber}.
// Заказ пользователя доступен только ему; гостевой заказ — по email гостя
// в query-параметре.
func OrderConfirmationHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderConfirmationHandler"
		logger := log.With(slog.String("op", op))

		orderNumber := chi.URLParam(r, "orderNumber")
		if orderNumber == "" {
			logger.Error("orderNumber parameter is missing")
			http.Error(w, "orderNumber parameter is required", http.StatusBadRequest)
			return
		}

		order, err := orderService.GetOrderByNumber(r.Context(), orderNumber, currentUserID(r), r.URL.Query().Get("email"))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, orderToResponse(order))
	}
}

func orderToResponse(order *models.Order) OrderResponse {
	resp := OrderResponse{
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		FirstName:     order.FirstName,
		LastName:      order.LastName,
		Email:         order.Email,
		Subtotal:      order.Subtotal.StringFixed(2),
		ShippingCost:  order.ShippingCost.StringFixed(2),
		PaymentFee:    order.PaymentFee.StringFixed(2),
		Total:         order.Total.StringFixed(2),
		Items:         []OrderItemResponse{},
		CreatedAt:     order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			Name:      item.Name,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  item.Subtotal.StringFixed(2),
		})
	}
	return resp
}
