package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "cakemarket"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Gateway      GatewayConfig
	Shipping     ShippingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CAKEMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"CAKEMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CAKEMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CAKEMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"CAKEMARKET_DB_DSN"`

	Host     string `envconfig:"CAKEMARKET_DB_HOST"`
	Port     int    `envconfig:"CAKEMARKET_DB_PORT" default:"5432"`
	User     string `envconfig:"CAKEMARKET_DB_USER"`
	Password string `envconfig:"CAKEMARKET_DB_PASSWORD"`
	Name     string `envconfig:"CAKEMARKET_DB_NAME"`
	SSLMode  string `envconfig:"CAKEMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CAKEMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CAKEMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CAKEMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CAKEMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, val := range map[string]string{
		"CAKEMARKET_DB_HOST": db.Host,
		"CAKEMARKET_DB_USER": db.User,
		"CAKEMARKET_DB_NAME": db.Name,
	} {
		if val == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either CAKEMARKET_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	db.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.User, db.Password, db.Name, db.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"CAKEMARKET_REDIS_URL"`
	Address      string        `envconfig:"CAKEMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"CAKEMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"CAKEMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CAKEMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CAKEMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CAKEMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CAKEMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CAKEMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// GatewayConfig holds the VNPay-compatible payment gateway settings.
type GatewayConfig struct {
	TmnCode    string        `envconfig:"CAKEMARKET_GATEWAY_TMN_CODE" required:"true"`
	HashSecret string        `envconfig:"CAKEMARKET_GATEWAY_HASH_SECRET" required:"true"`
	PaymentURL string        `envconfig:"CAKEMARKET_GATEWAY_PAYMENT_URL" required:"true"`
	ReturnURL  string        `envconfig:"CAKEMARKET_GATEWAY_RETURN_URL" required:"true"`
	Expiry     time.Duration `envconfig:"CAKEMARKET_GATEWAY_EXPIRY" default:"15m"`
}

// ShippingConfig holds the external rate-quote provider settings plus the
// fixed fallback used when the provider cannot be reached.
type ShippingConfig struct {
	BaseURL        string        `envconfig:"CAKEMARKET_SHIPPING_BASE_URL"`
	Token          string        `envconfig:"CAKEMARKET_SHIPPING_TOKEN"`
	Timeout        time.Duration `envconfig:"CAKEMARKET_SHIPPING_TIMEOUT" default:"5s"`
	FallbackFee    int64         `envconfig:"CAKEMARKET_SHIPPING_FALLBACK_FEE" default:"30000"`
	ItemWeightGram int           `envconfig:"CAKEMARKET_SHIPPING_ITEM_WEIGHT_GRAM" default:"500"`
	LocationTTL    time.Duration `envconfig:"CAKEMARKET_SHIPPING_LOCATION_TTL" default:"24h"`
}

// FallbackFeeAmount returns the fixed fallback fee as a decimal amount.
func (s ShippingConfig) FallbackFeeAmount() decimal.Decimal {
	return decimal.NewFromInt(s.FallbackFee)
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CAKEMARKET_AUTO_MIGRATE" default:"false"`
}
