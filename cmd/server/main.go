package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/shop-checkout/internal/app"
	"github.com/linemk/shop-checkout/internal/app/handlers"
	"github.com/linemk/shop-checkout/internal/config"
	"github.com/linemk/shop-checkout/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/shop-checkout/internal/lib/csrf"
	"github.com/linemk/shop-checkout/internal/lib/logger"
	"github.com/linemk/shop-checkout/internal/lib/logger/handlers/urllog"
	"github.com/linemk/shop-checkout/internal/lib/ratelimit"
	"github.com/linemk/shop-checkout/internal/service"
	"github.com/linemk/shop-checkout/internal/storage"
	"github.com/pkg/errors"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	userRepo := storage.NewUserRepository(application.DB)
	addrRepo := storage.NewAddressRepository(application.DB)
	cartRepo := storage.NewCartRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	methodRepo := storage.NewMethodRepository(application.DB)
	storeRepo := storage.NewStoreRepository(application.DB)
	articleRepo := storage.NewArticleRepository(application.DB)

	// вспомогательные компоненты оформления заказа
	csrfSigner := csrf.NewSigner(cfg.Checkout.CSRFSecret)
	limiter := ratelimit.New(cfg.Checkout.RateLimit, cfg.Checkout.RateWindow)
	captcha := service.NewHTTPCaptchaVerifier(cfg.Checkout)
	initiator := service.NewHTTPPaymentInitiator(cfg.Payments)

	// сервисы
	validator := service.NewCheckoutValidator(log, cfg.Checkout, csrfSigner, limiter, captcha)
	authService := service.NewAuthService(log, userRepo, time.Duration(cfg.JWT.TokenTTL)*time.Minute)
	cartService := service.NewCartService(log, cartRepo, articleRepo)
	methodService := service.NewMethodService(log, methodRepo, storeRepo)
	accountService := service.NewAccountService(log, userRepo, addrRepo)
	paymentService := service.NewPaymentService(log, cfg.Payments, orderRepo, initiator)
	orderService := service.NewOrderService(log, orderRepo)
	checkoutService := service.NewCheckoutService(
		log, application.DB, validator,
		cartService, methodService, accountService, paymentService,
		cartRepo, orderRepo,
	)

	// эндпоинт для аутентификации
	router.Post("/api/auth", handlers.AuthHandler(log, authService))

	// колбэк платёжного провайдера (без пользовательской аутентификации)
	router.Post("/api/payments/{orderNumber}/callback", handlers.PaymentCallbackHandler(log, paymentService))

	router.Group(func(r chi.Router) {
		// оформление доступно и гостям: токен опционален
		optionalJWT := jwtmiddleware.NewOptionalJWTMiddleware()
		r.Use(optionalJWT)
		// эндпоинты корзины
		r.Post("/api/cart/items", handlers.AddToCartHandler(log, cartService))
		r.Get("/api/cart", handlers.GetCartHandler(log, cartService))
		// эндпоинты оформления заказа
		r.Get("/api/checkout", handlers.CheckoutFormHandler(log, csrfSigner, methodService))
		r.Post("/api/checkout", handlers.ProcessCheckoutHandler(log, checkoutService))
		// страница подтверждения заказа
		r.Get("/api/orders/{orderNumber}", handlers.OrderConfirmationHandler(log, orderService))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
