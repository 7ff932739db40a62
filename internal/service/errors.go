package service

import "errors"

// Таксономия ошибок оформления заказа. Обработчики преобразуют тип ошибки
// в HTTP-статус и одно сообщение пользователю; детали наружу не уходят.

// ErrCartEmpty — корзина пуста или не найдена; заказ оформить нельзя.
var ErrCartEmpty = errors.New("cart is empty")

// SecurityError — CSRF, honeypot, SQLi-эвристика или спам-эвристика.
type SecurityError struct {
	Msg string
}

func (e *SecurityError) Error() string { return e.Msg }

// ValidationError — отсутствующие или некорректные поля формы.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError — не найден способ оплаты/доставки или магазин самовывоза.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// ConflictError — email уже зарегистрирован при создании аккаунта.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// RateLimitError — превышен лимит отправок формы с одного IP.
type RateLimitError struct {
	Msg string
}

func (e *RateLimitError) Error() string { return e.Msg }

// ExternalServiceError — сбой инициализации оплаты у внешнего провайдера.
// Заказ при этом уже сохранён и остаётся в статусе pending.
type ExternalServiceError struct {
	Msg string
	Err error
}

func (e *ExternalServiceError) Error() string { return e.Msg }

func (e *ExternalServiceError) Unwrap() error { return e.Err }
