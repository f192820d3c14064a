package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Gateway      GatewayConfig
	Delivery     DeliveryConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Gateway.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MEALFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"MEALFLOW_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEALFLOW_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"MEALFLOW_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"MEALFLOW_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"MEALFLOW_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MEALFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"MEALFLOW_DB_DSN"`

	LegacyHost     string `envconfig:"MEALFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"MEALFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEALFLOW_DB_USER"`
	LegacyPassword string `envconfig:"MEALFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEALFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEALFLOW_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"MEALFLOW_SQLITE_PATH" default:"file:mealflow.db?cache=shared&_foreign_keys=on"`

	MaxOpenConns    int           `envconfig:"MEALFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEALFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEALFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEALFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements slower than this at warn level.
	SlowQueryThreshold time.Duration `envconfig:"MEALFLOW_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEALFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MEALFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"MEALFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEALFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEALFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEALFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEALFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEALFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEALFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MEALFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MEALFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MEALFLOW_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MEALFLOW_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MEALFLOW_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	CallbackIdempotencyTTL time.Duration `envconfig:"MEALFLOW_EVENTING_CALLBACK_IDEMPOTENCY_TTL" default:"168h"`
}

// GatewayConfig carries the merchant credentials and protocol constants for
// the online payment gateway.
type GatewayConfig struct {
	BaseURL      string `envconfig:"MEALFLOW_GATEWAY_BASE_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	MerchantCode string `envconfig:"MEALFLOW_GATEWAY_MERCHANT_CODE" required:"true"`
	HashSecret   string `envconfig:"MEALFLOW_GATEWAY_HASH_SECRET" required:"true"`
	ReturnURL    string `envconfig:"MEALFLOW_GATEWAY_RETURN_URL" required:"true"`
	Version      string `envconfig:"MEALFLOW_GATEWAY_VERSION" default:"2.1.0"`
	Command      string `envconfig:"MEALFLOW_GATEWAY_COMMAND" default:"pay"`
	CurrencyCode string `envconfig:"MEALFLOW_GATEWAY_CURRENCY" default:"VND"`
	Locale       string `envconfig:"MEALFLOW_GATEWAY_LOCALE" default:"vn"`
	OrderType    string `envconfig:"MEALFLOW_GATEWAY_ORDER_TYPE" default:"other"`
	Timezone     string `envconfig:"MEALFLOW_GATEWAY_TIMEZONE" default:"Asia/Ho_Chi_Minh"`
}

func (g GatewayConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(g.MerchantCode) == "" {
		missing = append(missing, EnvGatewayMerchantCode)
	}
	if strings.TrimSpace(g.HashSecret) == "" {
		missing = append(missing, EnvGatewayHashSecret)
	}
	if strings.TrimSpace(g.BaseURL) == "" {
		missing = append(missing, EnvGatewayBaseURL)
	}
	if len(missing) > 0 {
		return fmt.Errorf("gateway config incomplete: %s", strings.Join(missing, ", "))
	}
	if _, err := url.ParseRequestURI(g.BaseURL); err != nil {
		return fmt.Errorf("invalid %s: %w", EnvGatewayBaseURL, err)
	}
	return nil
}

type DeliveryConfig struct {
	LeadTime time.Duration `envconfig:"MEALFLOW_DELIVERY_LEAD_TIME" default:"2h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"MEALFLOW_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"MEALFLOW_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"MEALFLOW_PUBSUB_ORDERS_TOPIC" default:"mealflow-order-events"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"MEALFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"MEALFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"MEALFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr    string `envconfig:"MEALFLOW_OUTBOX_METRICS_ADDR" default:":9091"`
}

func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		if db.SQLitePath == "" {
			return errors.New("sqlite path is required when sqlite is enabled")
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}
	db.DSN = u.String()
	return nil
}
