package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/linemk/shop-checkout/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shop-checkout/internal/service"
)

const (
	sessionCookie = "session_id"
	cartCookie    = "cart_id"
)

// ErrorResponse — единый формат ошибки; детали внутренних ошибок наружу не уходят.
type ErrorResponse struct {
	Error string `json:"error"`
	// RedirectURL подсказывает клиенту, куда уйти после ошибки (например,
	// к списку товаров при пустой корзине).
	RedirectURL string `json:"redirect_url,omitempty"`
}

// writeJSON сериализует ответ; ошибка кодирования превращается в 500.
func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeServiceError переводит таксономию ошибок оформления в HTTP-статусы:
// SecurityError→403, ValidationError→400, NotFoundError→404, ConflictError→409,
// RateLimitError→429, ExternalServiceError→502; остальное — 500 без деталей.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		secErr *service.SecurityError
		valErr *service.ValidationError
		nfErr  *service.NotFoundError
		cfErr  *service.ConflictError
		rlErr  *service.RateLimitError
		extErr *service.ExternalServiceError
	)

	switch {
	case errors.As(err, &secErr):
		writeJSON(w, log, http.StatusForbidden, ErrorResponse{Error: secErr.Msg})
	case errors.As(err, &valErr):
		writeJSON(w, log, http.StatusBadRequest, ErrorResponse{Error: valErr.Msg})
	case errors.As(err, &nfErr):
		writeJSON(w, log, http.StatusNotFound, ErrorResponse{Error: nfErr.Msg})
	case errors.As(err, &cfErr):
		writeJSON(w, log, http.StatusConflict, ErrorResponse{Error: cfErr.Msg})
	case errors.As(err, &rlErr):
		writeJSON(w, log, http.StatusTooManyRequests, ErrorResponse{Error: rlErr.Msg})
	case errors.As(err, &extErr):
		writeJSON(w, log, http.StatusBadGateway, ErrorResponse{Error: extErr.Msg})
	case errors.Is(err, service.ErrCartEmpty):
		writeJSON(w, log, http.StatusBadRequest, ErrorResponse{
			Error:       "your cart is empty",
			RedirectURL: "/products",
		})
	case errors.Is(err, service.ErrAccessDenied):
		writeJSON(w, log, http.StatusForbidden, ErrorResponse{Error: "access denied"})
	default:
		log.Error("unexpected error", slog.Any("error", err))
		writeJSON(w, log, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// sessionID возвращает идентификатор сессии из cookie; при отсутствии
// выдаёт новый и устанавливает cookie.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
	})
	return id
}

// clientIP отдаёт предпочтение заголовкам прокси, затем RemoteAddr.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// currentUserID извлекает пользователя из контекста; nil для гостя.
func currentUserID(r *http.Request) *int64 {
	if id, ok := jwtmiddleware.FromContext(r.Context()); ok {
		return &id
	}
	return nil
}
