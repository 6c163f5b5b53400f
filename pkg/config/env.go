package config

const (
	EnvPrefix = "SWEETSHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:sweetshop.db?_foreign_keys=on"

	CheckoutSubmitterLog    = "log"
	CheckoutSubmitterPubSub = "pubsub"
)

const (
	EnvAppEnv              = "SWEETSHOP_APP_ENV"
	EnvPort                = "SWEETSHOP_APP_PORT"
	EnvDBDSN               = "SWEETSHOP_DB_DSN"
	EnvDBDriver            = "SWEETSHOP_DB_DRIVER"
	EnvDBHost              = "SWEETSHOP_DB_HOST"
	EnvDBUser              = "SWEETSHOP_DB_USER"
	EnvDBName              = "SWEETSHOP_DB_NAME"
	EnvDBPassword          = "SWEETSHOP_DB_PASSWORD"
	EnvRedisURL            = "SWEETSHOP_REDIS_URL"
	EnvRedisAddr           = "SWEETSHOP_REDIS_ADDR"
	EnvJWTExpiration       = "SWEETSHOP_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTL     = "SWEETSHOP_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID        = "SWEETSHOP_GCP_PROJECT_ID"
	EnvJWTSecret           = "SWEETSHOP_JWT_SECRET"
	EnvJWTIssuer           = "SWEETSHOP_JWT_ISSUER"
	EnvCartSessionTTL      = "SWEETSHOP_CART_SESSION_TTL"
	EnvOffersCacheTTL      = "SWEETSHOP_OFFERS_CACHE_TTL"
	EnvCheckoutDeliveryFee = "SWEETSHOP_CHECKOUT_DELIVERY_FEE"
	EnvCheckoutSubmitter   = "SWEETSHOP_CHECKOUT_SUBMITTER"
	EnvCORSAllowedOrigins  = "SWEETSHOP_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
