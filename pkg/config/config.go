package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Cart          CartConfig
	Offers        OffersConfig
	Checkout      CheckoutConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Seed          SeedConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every cross-field problem at once so a broken deploy
// can be fixed in one pass.
func (c *Config) validate() error {
	err := c.Checkout.validate()
	if c.JWT.RefreshTokenTTL() <= c.JWT.AccessTTL() {
		err = multierr.Append(err, fmt.Errorf("%s must exceed %s", EnvRefreshTokenTTL, EnvJWTExpiration))
	}
	if c.Checkout.UsesPubSub() && strings.TrimSpace(c.GCP.ProjectID) == "" {
		err = multierr.Append(err, fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvCheckoutSubmitter, CheckoutSubmitterPubSub))
	}
	if c.Redis.URL == "" && c.Redis.Address == "" {
		err = multierr.Append(err, fmt.Errorf("either %s or %s is required", EnvRedisURL, EnvRedisAddr))
	}
	if c.Cart.SessionTTL <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCartSessionTTL))
	}
	return err
}

type AppConfig struct {
	Env          string `envconfig:"SWEETSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"SWEETSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWEETSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWEETSHOP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SWEETSHOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SWEETSHOP_DB_DSN"`
	Driver string `envconfig:"SWEETSHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SWEETSHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"SWEETSHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SWEETSHOP_DB_USER"`
	LegacyPassword string `envconfig:"SWEETSHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"SWEETSHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"SWEETSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SWEETSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWEETSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWEETSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWEETSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the local file-backed driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"SWEETSHOP_REDIS_URL"`
	Address      string        `envconfig:"SWEETSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"SWEETSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"SWEETSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SWEETSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWEETSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWEETSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWEETSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWEETSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"SWEETSHOP_REDIS_KEY_PREFIX" default:"ss"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SWEETSHOP_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SWEETSHOP_JWT_ISSUER" default:"sweetshop"`
	ExpirationMinutes      int    `envconfig:"SWEETSHOP_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"SWEETSHOP_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

func (j JWTConfig) AccessTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SWEETSHOP_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SWEETSHOP_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SWEETSHOP_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SWEETSHOP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SWEETSHOP_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SWEETSHOP_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit int           `envconfig:"SWEETSHOP_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SWEETSHOP_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	PromoWindow        time.Duration `envconfig:"SWEETSHOP_RATE_LIMIT_PROMO_WINDOW" default:"1m"`
	PromoSessionLimit  int           `envconfig:"SWEETSHOP_RATE_LIMIT_PROMO_SESSION_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SWEETSHOP_AUTO_MIGRATE" default:"false"`
	SeedOnBoot  bool `envconfig:"SWEETSHOP_SEED_ON_BOOT" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SWEETSHOP_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// CartConfig controls how long an idle shopping session survives.
type CartConfig struct {
	SessionTTL    time.Duration `envconfig:"SWEETSHOP_CART_SESSION_TTL" default:"24h"`
	SessionCookie string        `envconfig:"SWEETSHOP_CART_SESSION_COOKIE" default:"ss_session"`
}

type OffersConfig struct {
	CacheTTL      time.Duration `envconfig:"SWEETSHOP_OFFERS_CACHE_TTL" default:"30s"`
	FetchAttempts int           `envconfig:"SWEETSHOP_OFFERS_FETCH_ATTEMPTS" default:"3"`
	FetchBackoff  time.Duration `envconfig:"SWEETSHOP_OFFERS_FETCH_BACKOFF" default:"100ms"`
}

type CheckoutConfig struct {
	DeliveryFee    int64         `envconfig:"SWEETSHOP_CHECKOUT_DELIVERY_FEE" default:"50"`
	Submitter      string        `envconfig:"SWEETSHOP_CHECKOUT_SUBMITTER" default:"log"`
	IdempotencyTTL time.Duration `envconfig:"SWEETSHOP_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
}

func (c CheckoutConfig) validate() error {
	if c.DeliveryFee < 0 {
		return fmt.Errorf("%s must not be negative", EnvCheckoutDeliveryFee)
	}
	switch strings.ToLower(strings.TrimSpace(c.Submitter)) {
	case "", CheckoutSubmitterLog, CheckoutSubmitterPubSub:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s|%s", EnvCheckoutSubmitter, CheckoutSubmitterLog, CheckoutSubmitterPubSub)
	}
}

// UsesPubSub reports whether checkout submissions are published to Pub/Sub.
func (c CheckoutConfig) UsesPubSub() bool {
	return strings.EqualFold(strings.TrimSpace(c.Submitter), CheckoutSubmitterPubSub)
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SWEETSHOP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SWEETSHOP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SWEETSHOP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CheckoutTopic  string        `envconfig:"SWEETSHOP_PUBSUB_CHECKOUT_TOPIC" default:"ss-checkout-submissions"`
	PublishDelay   time.Duration `envconfig:"SWEETSHOP_PUBSUB_PUBLISH_DELAY" default:"10ms"`
	PublishTimeout time.Duration `envconfig:"SWEETSHOP_PUBSUB_PUBLISH_TIMEOUT" default:"30s"`
	// VerifyTopic checks the topic exists at boot. Emulators without
	// the admin API should turn it off.
	VerifyTopic bool `envconfig:"SWEETSHOP_PUBSUB_VERIFY_TOPIC" default:"true"`
}

type SeedConfig struct {
	AdminUsername string `envconfig:"SWEETSHOP_SEED_ADMIN_USERNAME" default:"admin"`
	AdminPassword string `envconfig:"SWEETSHOP_SEED_ADMIN_PASSWORD"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
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
