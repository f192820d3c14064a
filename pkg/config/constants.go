package config

const (
	EnvPrefix = "MEALFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "MEALFLOW_APP_ENV"
	EnvPort     = "MEALFLOW_APP_PORT"
	EnvLogLevel = "MEALFLOW_LOG_LEVEL"

	EnvDBDSN  = "MEALFLOW_DB_DSN"
	EnvDBHost = "MEALFLOW_DB_HOST"
	EnvDBUser = "MEALFLOW_DB_USER"
	EnvDBName = "MEALFLOW_DB_NAME"

	EnvRedisURL = "MEALFLOW_REDIS_URL"

	EnvJWTSecret  = "MEALFLOW_JWT_SECRET"
	EnvJWTIssuer  = "MEALFLOW_JWT_ISSUER"
	EnvJWTExpMins = "MEALFLOW_JWT_EXPIRATION_MINUTES"

	EnvGatewayBaseURL      = "MEALFLOW_GATEWAY_BASE_URL"
	EnvGatewayMerchantCode = "MEALFLOW_GATEWAY_MERCHANT_CODE"
	EnvGatewayHashSecret   = "MEALFLOW_GATEWAY_HASH_SECRET"
	EnvGatewayReturnURL    = "MEALFLOW_GATEWAY_RETURN_URL"
	EnvGatewayTimezone     = "MEALFLOW_GATEWAY_TIMEZONE"

	EnvDeliveryLeadTime = "MEALFLOW_DELIVERY_LEAD_TIME"

	EnvGCPProjectID      = "MEALFLOW_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "MEALFLOW_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
