package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	JWT        JWTConfig        `yaml:"jwt"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Payments   PaymentsConfig   `yaml:"payments"`
	Migrations MigrationsConfig `yaml:"migrations"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД
type DatabaseConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"-" env:"DB_PASSWORD" env-required:"true"`
	Name     string `yaml:"name" env-required:"true"`
}

// JWTConfig настройка jwt
type JWTConfig struct {
	Secret   string `yaml:"-" env:"JWT_SECRET" env-required:"true"`
	TokenTTL int    `yaml:"token_ttl" env-default:"60"`
}

// CheckoutConfig — настройки оформления заказа: лимит отправок формы,
// секрет CSRF-токенов и необязательная проверка капчи.
type CheckoutConfig struct {
	RateLimit        int           `yaml:"rate_limit" env-default:"5"`
	RateWindow       time.Duration `yaml:"rate_window" env-default:"300s"`
	CSRFSecret       string        `yaml:"-" env:"CSRF_SECRET" env-required:"true"`
	CaptchaEnabled   bool          `yaml:"captcha_enabled" env-default:"false"`
	CaptchaVerifyURL string        `yaml:"captcha_verify_url"`
	CaptchaSecret    string        `yaml:"-" env:"CAPTCHA_SECRET"`
}

// PaymentsConfig — настройки платежей: какие типы способов оплаты требуют
// перехода на внешнюю платёжную страницу и куда ходить за инициализацией.
type PaymentsConfig struct {
	RedirectTypes []string      `yaml:"redirect_types" env-default:"card,wallet"`
	ProviderURL   string        `yaml:"provider_url"`
	Timeout       time.Duration `yaml:"timeout" env-default:"10s"`
}

type MigrationsConfig struct {
	Path string `yaml:"path" env-default:"./migrations"`
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s", configPath)
	}

	return &cfg
}

// IsRedirectType сообщает, требует ли данный тип способа оплаты
// перенаправления на внешнего провайдера.
func (p PaymentsConfig) IsRedirectType(methodType string) bool {
	for _, t := range p.RedirectTypes {
		if t == methodType {
			return true
		}
	}
	return false
}
