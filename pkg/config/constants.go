package config

const (
	// EnvPrefix is the envconfig prefix shared by every variable.
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv = "STOREFRONT_APP_ENV"
	EnvPort   = "STOREFRONT_APP_PORT"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvGCPProjectID = "STOREFRONT_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "STOREFRONT_PUBSUB_ORDERS_SUBSCRIPTION"

	EnvMercadoPagoAccessToken   = "STOREFRONT_MERCADOPAGO_ACCESS_TOKEN"
	EnvMercadoPagoWebhookSecret = "STOREFRONT_MERCADOPAGO_WEBHOOK_SECRET"
)

// legacyDBEnvVars are the discrete connection variables honored when
// STOREFRONT_DB_DSN is unset.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
