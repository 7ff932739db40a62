package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linemk/shop-checkout/internal/domain/models"
	"github.com/linemk/shop-checkout/internal/service"
	"github.com/shopspring/decimal"
)

// AddItemRequest — входной JSON для добавления товара в корзину.
type AddItemRequest struct {
	ArticleID int64 `json:"article_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// CartResponse — представление корзины для клиента.
type CartResponse struct {
	CartID int64              `json:"cart_id"`
	Items  []CartItemResponse `json:"items"`
	Total  string             `json:"total"`
}

type CartItemResponse struct {
	ArticleID int64  `json:"article_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

// AddToCartHandler обрабатывает запрос POST /api/cart/items.
// Корзина создаётся при первом добавлении; её id возвращается в cookie.
func AddToCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		var req AddItemRequest
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

		sid := sessionID(w, r)
		cart, err := cartService.AddItem(r.Context(), currentUserID(r), sid, req.ArticleID, req.Quantity)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		// Запоминаем id корзины в сессии: он имеет приоритет при разрешении корзины.
		http.SetCookie(w, &http.Cookie{
			Name:     cartCookie,
			Value:    strconv.FormatInt(cart.ID, 10),
			Path:     "/",
			HttpOnly: true,
		})

		writeJSON(w, logger, http.StatusOK, cartToResponse(cart))
	}
}

// GetCartHandler обрабатывает запрос GET /api/cart.
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		sid := sessionID(w, r)
		cart, err := cartService.GetCart(r.Context(), sessionCartID(r), currentUserID(r), sid)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		if cart == nil {
			writeJSON(w, logger, http.StatusOK, CartResponse{Items: []CartItemResponse{}, Total: "0.00"})
			return
		}

		writeJSON(w, logger, http.StatusOK, cartToResponse(cart))
	}
}

// sessionCartID извлекает id корзины из cookie; 0, если cookie нет.
func sessionCartID(r *http.Request) int64 {
	c, err := r.Cookie(cartCookie)
	if err != nil {
		return 0
	}
	id, err := strconv.ParseInt(c.Value, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func cartToResponse(cart *models.Cart) CartResponse {
	resp := CartResponse{CartID: cart.ID, Items: []CartItemResponse{}}
	total := decimal.Zero
	for _, item := range cart.Items {
		resp.Items = append(resp.Items, CartItemResponse{
			ArticleID: item.ArticleID,
			Name:      item.Name,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  item.Subtotal.StringFixed(2),
		})
		total = total.Add(item.Subtotal)
	}
	resp.Total = total.StringFixed(2)
	return resp
}
