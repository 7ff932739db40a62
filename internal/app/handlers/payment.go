package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/shop-checkout/internal/service"
)

// PaymentCallbackRequest — уведомление платёжного провайдера об итоге оплаты.
type PaymentCallbackRequest struct {
	Status        string `json:"status" validate:"required,oneof=paid cancelled"`
	TransactionID string `json:"transaction_id"`
}

type PaymentCallbackResponse struct {
	Message string `json:"message"`
}

// PaymentCallbackHandler обрабатывает запрос POST /api/payments/{orderNumber}/callback.
func PaymentCallbackHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PaymentCallbackHandler"
		logger := log.With(slog.String("op", op))

		orderNumber := chi.URLParam(r, "orderNumber")
		if orderNumber == "" {
			logger.Error("orderNumber parameter is missing")
			http.Error(w, "orderNumber parameter is required", http.StatusBadRequest)
			return
		}

		var req PaymentCallbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		if err := paymentService.HandleCallback(r.Context(), orderNumber, req.Status, req.TransactionID); err != nil {
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, PaymentCallbackResponse{Message: "payment status updated"})
	}
}
