package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/shop-checkout/internal/config"
	"github.com/linemk/shop-checkout/internal/lib/csrf"
	"github.com/linemk/shop-checkout/internal/lib/ratelimit"
)

// CheckoutRequest — сырые поля формы оформления заказа.
type CheckoutRequest struct {
	Title     string
	FirstName string
	LastName  string
	Email     string
	Phone     string

	BillingAddress string
	BillingCity    string
	BillingPostal  string
	BillingCountry string

	DifferentShipping bool
	ShippingAddress   string
	ShippingCity      string
	ShippingPostal    string
	ShippingCountry   string

	PaymentMethodID  int64
	ShippingMethodID int64
	PickupStoreID    *int64

	Notes string

	CreateAccount   bool
	Password        string
	PasswordConfirm string

	CSRFToken    string
	Honeypot     string // скрытое поле формы; заполняют только боты
	CaptchaToken string
}

// requiredFields — структура для проверки обязательных полей через validator.
type requiredFields struct {
	FirstName      string `validate:"required"`
	LastName       string `validate:"required"`
	Email          string `validate:"required,email"`
	BillingAddress string `validate:"required"`
	BillingCity    string `validate:"required"`
	BillingPostal  string `validate:"required"`
	BillingCountry string `validate:"required"`
}

var validate = validator.New()

// Допустимый международный формат телефона (необязательное поле).
var phoneRegexp = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{4,19}$`)

// Форматы почтовых индексов по странам; для остальных — общий шаблон.
var postalRegexps = map[string]*regexp.Regexp{
	"DE": regexp.MustCompile(`^[0-9]{5}$`),
	"AT": regexp.MustCompile(`^[0-9]{4}$`),
	"CH": regexp.MustCompile(`^[0-9]{4}$`),
	"US": regexp.MustCompile(`^[0-9]{5}(-[0-9]{4})?$`),
	"GB": regexp.MustCompile(`^[A-Za-z0-9 ]{5,8}$`),
}

var postalGenericRegexp = regexp.MustCompile(`^[A-Za-z0-9 \-]{3,10}$`)

// Эвристика SQL-инъекций: характерные токены в любом текстовом поле.
var sqlInjectionRegexp = regexp.MustCompile(`(?i)(union\s+select|select\s+.+\s+from|insert\s+into|drop\s+table|delete\s+from|--|/\*|\bor\b\s+1\s*=\s*1|'\s*;)`)

// Спам-эвристика для примечаний к заказу.
var (
	spamURLRegexp     = regexp.MustCompile(`https?://`)
	spamKeywordRegexp = regexp.MustCompile(`(?i)(viagra|casino|lottery|bitcoin doubler|click here)`)
)

var controlCharsRegexp = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// CaptchaVerifier проверяет токен капчи у внешнего сервиса.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// httpCaptchaVerifier отправляет токен на настроенный verify-эндпоинт.
type httpCaptchaVerifier struct {
	verifyURL string
	secret    string
	client    *http.Client
}

func NewHTTPCaptchaVerifier(cfg config.CheckoutConfig) CaptchaVerifier {
	return &httpCaptchaVerifier{
		verifyURL: cfg.CaptchaVerifyURL,
		secret:    cfg.CaptchaSecret,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *httpCaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	form.Set("remoteip", remoteIP)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("captcha verification returned status %d", resp.StatusCode)
	}
	return nil
}

// CheckoutValidator выполняет все проверки формы оформления заказа
// в фиксированном порядке с остановкой на первой ошибке:
// CSRF → honeypot → лимит отправок → санитизация → обязательные поля и
// форматы → эвристики SQLi/спама → капча (если включена).
type CheckoutValidator struct {
	log     *slog.Logger
	cfg     config.CheckoutConfig
	csrf    *csrf.Signer
	limiter *ratelimit.Limiter
	captcha CaptchaVerifier
}

func NewCheckoutValidator(log *slog.Logger, cfg config.CheckoutConfig, signer *csrf.Signer, limiter *ratelimit.Limiter, captcha CaptchaVerifier) *CheckoutValidator {
	return &CheckoutValidator{
		log:     log,
		cfg:     cfg,
		csrf:    signer,
		limiter: limiter,
		captcha: captcha,
	}
}

// Validate проверяет и санитизирует форму. Возвращает очищенную копию запроса
// либо ошибку таксономии; состояние при ошибке не изменяется.
func (v *CheckoutValidator) Validate(ctx context.Context, req CheckoutRequest, sessionID, clientIP string) (*CheckoutRequest, error) {
	const op = "service.CheckoutValidator.Validate"
	logger := v.log.With(slog.String("op", op), slog.String("ip", clientIP))

	if !v.csrf.Verify(sessionID, req.CSRFToken) {
		logger.Warn("invalid csrf token")
		return nil, &SecurityError{Msg: "invalid or expired form token"}
	}

	if req.Honeypot != "" {
		logger.Warn("honeypot field filled, rejecting as bot")
		return nil, &SecurityError{Msg: "invalid input"}
	}

	if !v.limiter.Allow("checkout_" + clientIP) {
		logger.Warn("checkout rate limit exceeded")
		return nil, &RateLimitError{Msg: "too many checkout attempts, please try again later"}
	}

	clean := req
	clean.Title = sanitize(req.Title)
	clean.FirstName = sanitize(req.FirstName)
	clean.LastName = sanitize(req.LastName)
	clean.Email = sanitize(req.Email)
	clean.Phone = sanitize(req.Phone)
	clean.BillingAddress = sanitize(req.BillingAddress)
	clean.BillingCity = sanitize(req.BillingCity)
	clean.BillingPostal = sanitize(req.BillingPostal)
	clean.BillingCountry = strings.ToUpper(sanitize(req.BillingCountry))
	clean.ShippingAddress = sanitize(req.ShippingAddress)
	clean.ShippingCity = sanitize(req.ShippingCity)
	clean.ShippingPostal = sanitize(req.ShippingPostal)
	clean.ShippingCountry = strings.ToUpper(sanitize(req.ShippingCountry))
	// примечания сохраняют переводы строк
	clean.Notes = sanitizeNotes(req.Notes)

	required := requiredFields{
		FirstName:      clean.FirstName,
		LastName:       clean.LastName,
		Email:          clean.Email,
		BillingAddress: clean.BillingAddress,
		BillingCity:    clean.BillingCity,
		BillingPostal:  clean.BillingPostal,
		BillingCountry: clean.BillingCountry,
	}
	if err := validate.Struct(required); err != nil {
		logger.Info("required field validation failed", slog.Any("error", err))
		return nil, &ValidationError{Msg: "please fill in all required fields correctly"}
	}

	if clean.Phone != "" && !phoneRegexp.MatchString(clean.Phone) {
		return nil, &ValidationError{Msg: "invalid phone number"}
	}

	if !postalValid(clean.BillingCountry, clean.BillingPostal) {
		return nil, &ValidationError{Msg: "invalid postal code"}
	}
	if clean.DifferentShipping && !postalValid(clean.ShippingCountry, clean.ShippingPostal) {
		return nil, &ValidationError{Msg: "invalid postal code"}
	}

	// Эвристики отвечают одинаково обобщённо, чтобы не раскрывать, что именно сработало.
	for _, field := range []string{
		clean.Title, clean.FirstName, clean.LastName, clean.Email, clean.Phone,
		clean.BillingAddress, clean.BillingCity, clean.BillingPostal, clean.BillingCountry,
		clean.ShippingAddress, clean.ShippingCity, clean.ShippingPostal, clean.ShippingCountry,
		clean.Notes,
	} {
		if sqlInjectionRegexp.MatchString(field) {
			logger.Warn("sql injection heuristic triggered")
			return nil, &SecurityError{Msg: "invalid input"}
		}
	}
	if isSpam(clean.Notes) {
		logger.Warn("spam heuristic triggered on notes")
		return nil, &SecurityError{Msg: "invalid input"}
	}

	if v.cfg.CaptchaEnabled {
		if err := v.captcha.Verify(ctx, clean.CaptchaToken, clientIP); err != nil {
			logger.Warn("captcha verification failed", slog.Any("error", err))
			return nil, &SecurityError{Msg: "captcha verification failed"}
		}
	}

	return &clean, nil
}

var tagRegexp = regexp.MustCompile(`<[^>]*>`)

// sanitize убирает разметку и управляющие символы, схлопывает пробелы.
func sanitize(s string) string {
	s = tagRegexp.ReplaceAllString(s, "")
	s = controlCharsRegexp.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// sanitizeNotes — как sanitize, но переводы строк сохраняются.
func sanitizeNotes(s string) string {
	s = tagRegexp.ReplaceAllString(s, "")
	s = controlCharsRegexp.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func postalValid(country, postal string) bool {
	if re, ok := postalRegexps[country]; ok {
		return re.MatchString(postal)
	}
	return postalGenericRegexp.MatchString(postal)
}

// isSpam: несколько ссылок или характерные ключевые слова в примечаниях.
func isSpam(notes string) bool {
	if len(spamURLRegexp.FindAllString(notes, -1)) >= 3 {
		return true
	}
	return spamKeywordRegexp.MatchString(notes)
}
