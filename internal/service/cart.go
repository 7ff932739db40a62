package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/shop-checkout/internal/domain/models"
	"github.com/linemk/shop-checkout/internal/storage"
	"github.com/shopspring/decimal"
)

// CartService определяет операции с корзиной: разрешение активной корзины
// при оформлении заказа и добавление товаров.
type CartService interface {
	// ResolveCart находит активную корзину. Приоритет источников:
	// идентификатор корзины из сессии → последняя корзина пользователя →
	// корзина по идентификатору сессии. Возвращает nil, если корзина
	// не найдена или пуста.
	ResolveCart(ctx context.Context, sessionCartID int64, userID *int64, sessionID string) (*models.Cart, error)
	AddItem(ctx context.Context, userID *int64, sessionID string, articleID int64, quantity int) (*models.Cart, error)
	GetCart(ctx context.Context, sessionCartID int64, userID *int64, sessionID string) (*models.Cart, error)
}

type cartService struct {
	log         *slog.Logger
	cartRepo    storage.CartStorage
	articleRepo storage.ArticleStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage, articleRepo storage.ArticleStorage) CartService {
	return &cartService{
		log:         log,
		cartRepo:    cartRepo,
		articleRepo: articleRepo,
	}
}

// resolverFunc — одна стратегия поиска корзины. Возвращает (nil, nil),
// если стратегия неприменима или ничего не нашла.
type resolverFunc func(ctx context.Context) (*models.Cart, error)

// ResolveCart перебирает стратегии в фиксированном порядке; явный список
// делает приоритет источников проверяемым по отдельности.
func (s *cartService) ResolveCart(ctx context.Context, sessionCartID int64, userID *int64, sessionID string) (*models.Cart, error) {
	const op = "service.CartService.ResolveCart"

	strategies := []resolverFunc{
		// 1) идентификатор корзины, сохранённый в сессии
		func(ctx context.Context) (*models.Cart, error) {
			if sessionCartID == 0 {
				return nil, nil
			}
			return s.lookup(ctx, func() (*models.Cart, error) {
				return s.cartRepo.GetCartByID(ctx, sessionCartID)
			})
		},
		// 2) последняя корзина аутентифицированного пользователя
		func(ctx context.Context) (*models.Cart, error) {
			if userID == nil {
				return nil, nil
			}
			return s.lookup(ctx, func() (*models.Cart, error) {
				return s.cartRepo.GetLatestCartByUserID(ctx, *userID)
			})
		},
		// 3) корзина, привязанная к идентификатору сессии
		func(ctx context.Context) (*models.Cart, error) {
			if sessionID == "" {
				return nil, nil
			}
			return s.lookup(ctx, func() (*models.Cart, error) {
				return s.cartRepo.GetCartBySessionID(ctx, sessionID)
			})
		},
	}

	for _, resolve := range strategies {
		cart, err := resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if cart != nil {
			return cart, nil
		}
	}
	return nil, nil
}

// lookup переводит ErrCartNotFound в «стратегия ничего не нашла».
func (s *cartService) lookup(ctx context.Context, get func() (*models.Cart, error)) (*models.Cart, error) {
	cart, err := get()
	if err != nil {
		if errors.Is(err, storage.ErrCartNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return cart, nil
}

// AddItem добавляет товар в корзину; корзина создаётся при первом добавлении.
// Цена товара фиксируется на момент добавления.
func (s *cartService) AddItem(ctx context.Context, userID *int64, sessionID string, articleID int64, quantity int) (*models.Cart, error) {
	const op = "service.CartService.AddItem"
	logger := s.log.With(slog.String("op", op), slog.Int64("articleID", articleID))

	if quantity <= 0 {
		return nil, &ValidationError{Msg: "quantity must be positive"}
	}

	article, err := s.articleRepo.GetActiveArticleByID(ctx, articleID)
	if err != nil {
		if errors.Is(err, storage.ErrArticleNotFound) {
			return nil, &NotFoundError{Msg: "article not found"}
		}
		logger.Error("failed to get article", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get article: %w", op, err)
	}

	cart, err := s.ResolveCart(ctx, 0, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart, err = s.cartRepo.CreateCart(ctx, userID, sessionID)
		if err != nil {
			logger.Error("failed to create cart", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create cart: %w", op, err)
		}
	}

	item := &models.CartItem{
		CartID:    cart.ID,
		ArticleID: article.ID,
		Name:      article.Name,
		SKU:       article.SKU,
		Quantity:  quantity,
		UnitPrice: article.Price,
		Subtotal:  article.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}
	if _, err := s.cartRepo.AddItem(ctx, item); err != nil {
		logger.Error("failed to add cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to add cart item: %w", op, err)
	}

	cart.Items = append(cart.Items, item)
	logger.Info("item added to cart", slog.Int64("cartID", cart.ID))
	return cart, nil
}

func (s *cartService) GetCart(ctx context.Context, sessionCartID int64, userID *int64, sessionID string) (*models.Cart, error) {
	return s.ResolveCart(ctx, sessionCartID, userID, sessionID)
}
