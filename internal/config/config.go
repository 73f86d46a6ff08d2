package config

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"simulation-server/shared/utils"

	"github.com/kelseyhightower/envconfig"
)

// Источники сценариев
const (
	ScenarioSourceFile     = "file"
	ScenarioSourcePostgres = "postgres"
)

// Хранилища сессий
const (
	SessionStoreMemory   = "memory"
	SessionStoreRedis    = "redis"
	SessionStorePostgres = "postgres"
)

// Config содержит конфигурацию сервера симуляций
type Config struct {
	// Настройки сервера
	Port               string        `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding        string        `envconfig:"LOG_ENCODING" default:"json"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Сценарии и сессии
	ScenarioSource string        `envconfig:"SCENARIO_SOURCE" default:"file"`
	ScenariosDir   string        `envconfig:"SCENARIOS_DIR" default:"./scenarios"`
	SessionStore   string        `envconfig:"SESSION_STORE" default:"memory"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// Настройки PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	RunMigrations bool          `envconfig:"RUN_MIGRATIONS" default:"true"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string `ignored:"true"`

	// Настройки Redis
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPassword string `ignored:"true"`

	// Настройки RabbitMQ
	RabbitMQURL        string `envconfig:"RABBITMQ_URL" required:"true"`
	EmailTaskQueue     string `envconfig:"EMAIL_TASK_QUEUE" default:"email_tasks"`
	EmailWorkerEnabled bool   `envconfig:"EMAIL_WORKER_ENABLED" default:"true"`
	EmailWorkers       int    `envconfig:"EMAIL_WORKERS" default:"4"`

	// Paystack
	PaystackBaseURL     string        `envconfig:"PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	PaystackTimeout     time.Duration `envconfig:"PAYSTACK_TIMEOUT" default:"30s"`
	PaystackCallbackURL string        `envconfig:"PAYSTACK_CALLBACK_URL" default:"https://turnve.com/payment/callback"`
	PaystackCurrency    string        `envconfig:"PAYSTACK_CURRENCY" default:"NGN"`
	SubscriptionDays    int           `envconfig:"SUBSCRIPTION_DAYS" default:"30"`
	PaystackSecretKey   string        `ignored:"true"`
	PaystackWebhookKey  string        `ignored:"true"`

	// MailerSend и письма
	MailerSendURL         string        `envconfig:"MAILERSEND_URL" default:"https://api.mailersend.com/v1/email"`
	MailerSendSenderEmail string        `envconfig:"MAILERSEND_SENDER_EMAIL" default:"noreply@turnve.com"`
	MailerSendSenderName  string        `envconfig:"MAILERSEND_SENDER_NAME" default:"TURNVE"`
	MailerSendAPIKey      string        `ignored:"true"`
	PlatformURL           string        `envconfig:"PLATFORM_URL" default:"https://turnve.com"`
	OTPTTL                time.Duration `envconfig:"OTP_TTL" default:"10m"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *Config) GetDSN() string {
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return dsn.String()
}

// RedactedDSN возвращает DSN без пароля для логов
func (c *Config) RedactedDSN() string {
	return fmt.Sprintf("postgres://%s:***@%s:%s/%s?sslmode=%s", c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load simulation-server config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var err error
	if cfg.DBPassword, err = utils.ReadSecret("db_password"); err != nil {
		return nil, err
	}

	// Необязательные секреты: файл или переменная окружения
	optional := []struct {
		dst    *string
		secret string
		env    string
	}{
		{&cfg.RedisPassword, "redis_password", "REDIS_PASSWORD"},
		{&cfg.PaystackSecretKey, "paystack_secret_key", "PAYSTACK_SECRET_KEY"},
		{&cfg.PaystackWebhookKey, "paystack_webhook_secret", "PAYSTACK_WEBHOOK_SECRET"},
		{&cfg.MailerSendAPIKey, "mailersend_api_key", "MAILERSEND_API_KEY"},
	}
	for _, o := range optional {
		if *o.dst, err = utils.ReadOptionalSecret(o.secret, o.env); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.ScenarioSource {
	case ScenarioSourceFile, ScenarioSourcePostgres:
	default:
		return fmt.Errorf("unsupported SCENARIO_SOURCE '%s'", c.ScenarioSource)
	}
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreRedis, SessionStorePostgres:
	default:
		return fmt.Errorf("unsupported SESSION_STORE '%s'", c.SessionStore)
	}
	if c.EmailWorkers <= 0 {
		return fmt.Errorf("EMAIL_WORKERS must be positive, got %d", c.EmailWorkers)
	}
	return nil
}
