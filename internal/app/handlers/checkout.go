package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linemk/shop-checkout/internal/lib/csrf"
	"github.com/linemk/shop-checkout/internal/service"
)

// CheckoutFormResponse — данные формы оформления: CSRF-токен и доступные
// способы оплаты/доставки с магазинами самовывоза.
type CheckoutFormResponse struct {
	CSRFToken       string                   `json:"csrf_token"`
	PaymentMethods  []PaymentMethodResponse  `json:"payment_methods"`
	ShippingMethods []ShippingMethodResponse `json:"shipping_methods"`
	Stores          []StoreResponse          `json:"stores"`
}

type PaymentMethodResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Fee  string `json:"fee"`
}

type ShippingMethodResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	RequiresStore bool   `json:"requires_store"`
}

type StoreResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// CheckoutResponse — ответ на успешное оформление заказа.
type CheckoutResponse struct {
	OrderNumber string `json:"order_number"`
	RedirectURL string `json:"redirect_url"`
}

// CheckoutFormHandler обрабатывает запрос GET /api/checkout: выдаёт CSRF-токен,
// привязанный к сессии, и списки активных способов.
func CheckoutFormHandler(log *slog.Logger, signer *csrf.Signer, methodService service.MethodService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutFormHandler"
		logger := log.With(slog.String("op", op))

		sid := sessionID(w, r)

		options, err := methodService.ListOptions(r.Context())
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		resp := CheckoutFormResponse{
			CSRFToken:       signer.Issue(sid),
			PaymentMethods:  []PaymentMethodResponse{},
			ShippingMethods: []ShippingMethodResponse{},
			Stores:          []StoreResponse{},
		}
		for _, m := range options.PaymentMethods {
			resp.PaymentMethods = append(resp.PaymentMethods, PaymentMethodResponse{
				ID: m.ID, Name: m.Name, Type: m.Type, Fee: m.Fee.StringFixed(2),
			})
		}
		for _, m := range options.ShippingMethods {
			resp.ShippingMethods = append(resp.ShippingMethods, ShippingMethodResponse{
				ID: m.ID, Name: m.Name, Price: m.Price.StringFixed(2), RequiresStore: m.RequiresStoreSelection,
			})
		}
		for _, s := range options.Stores {
			resp.Stores = append(resp.Stores, StoreResponse{
				ID: s.ID, Name: s.Name, Address: s.Address, City: s.City,
			})
		}

		writeJSON(w, logger, http.StatusOK, resp)
	}
}

// ProcessCheckoutHandler обрабатывает запрос POST /api/checkout
// (форма application/x-www-form-urlencoded).
func ProcessCheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProcessCheckoutHandler"
		logger := log.With(slog.String("op", op))

		if err := r.ParseForm(); err != nil {
			logger.Error("invalid request: form parsing error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		req, err := checkoutRequestFromForm(r)
		if err != nil {
			logger.Error("invalid request: malformed form fields", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		meta := service.RequestMeta{
			SessionID:     sessionID(w, r),
			ClientIP:      clientIP(r),
			SessionCartID: sessionCartID(r),
			UserID:        currentUserID(r),
		}

		result, err := checkoutService.ProcessCheckout(r.Context(), req, meta)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}

		// Корзина удалена вместе с заказом, cookie больше не нужна.
		http.SetCookie(w, &http.Cookie{Name: cartCookie, Value: "", Path: "/", MaxAge: -1})

		writeJSON(w, logger, http.StatusOK, CheckoutResponse{
			OrderNumber: result.OrderNumber,
			RedirectURL: result.RedirectURL,
		})
	}
}

// checkoutRequestFromForm собирает поля формы в запрос оформления.
func checkoutRequestFromForm(r *http.Request) (service.CheckoutRequest, error) {
	req := service.CheckoutRequest{
		Title:     r.PostFormValue("title"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
		Phone:     r.PostFormValue("phone"),

		BillingAddress: r.PostFormValue("billing_address"),
		BillingCity:    r.PostFormValue("billing_city"),
		BillingPostal:  r.PostFormValue("billing_postal"),
		BillingCountry: r.PostFormValue("billing_country"),

		DifferentShipping: r.PostFormValue("different_shipping") == "1",
		ShippingAddress:   r.PostFormValue("shipping_address"),
		ShippingCity:      r.PostFormValue("shipping_city"),
		ShippingPostal:    r.PostFormValue("shipping_postal"),
		ShippingCountry:   r.PostFormValue("shipping_country"),

		Notes: r.PostFormValue("notes"),

		CreateAccount:   r.PostFormValue("create_account") == "1",
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),

		CSRFToken:    r.PostFormValue("csrf_token"),
		Honeypot:     r.PostFormValue("website"),
		CaptchaToken: r.PostFormValue("captcha_token"),
	}

	paymentMethodID, err := strconv.ParseInt(r.PostFormValue("payment_method_id"), 10, 64)
	if err != nil {
		return req, err
	}
	req.PaymentMethodID = paymentMethodID

	shippingMethodID, err := strconv.ParseInt(r.PostFormValue("shipping_method_id"), 10, 64)
	if err != nil {
		return req, err
	}
	req.ShippingMethodID = shippingMethodID

	if v := r.PostFormValue("pickup_store_id"); v != "" {
		storeID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, err
		}
		req.PickupStoreID = &storeID
	}

	return req, nil
}
