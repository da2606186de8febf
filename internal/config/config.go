package config

import (
	"encoding/json"

	"github.com/catalystcommunity/app-utils-go/env"
)

// ResolveSecret implements the JSON-password-dereference convention: if the
// variable named by secretEnvVar is unset or empty, direct is returned; if its
// value parses as JSON with a non-empty "password" field, that field's value
// is used; otherwise the raw value is used as-is. This lets managed-secret injectors
// (which hand a JSON blob to the pod) coexist with operators who just export
// a plain string.
func ResolveSecret(direct, secretEnvVar string) string {
	raw := env.GetEnvOrDefault(secretEnvVar, "")
	if raw == "" {
		return direct
	}
	var parsed struct {
		Password string `json:"password"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil && parsed.Password != "" {
		return parsed.Password
	}
	return raw
}

var (
	// CommitOnSuccess controls whether the per-request transaction wrapper
	// commits on 2xx responses; disabled in test harnesses that manage their
	// own transaction.
	CommitOnSuccess = env.GetEnvAsBoolOrDefault("COMMIT_ON_SUCCESS", "true")

	// Port is the HTTP listen port, overridable per CLI command via flags.
	Port = env.GetEnvAsIntOrDefault("PORT", "8080")

	// ObjectStoreType selects the FileBroker backend ("FILESYSTEM" in the
	// spec's configuration table is the backend selector itself, one of
	// "local" or "s3").
	ObjectStoreType  = env.GetEnvOrDefault("FILESYSTEM", "local")
	UserDataRootPath = env.GetEnvOrDefault("USER_DATA_ROOT_PATH", "./data")
	S3Bucket         = env.GetEnvOrDefault("S3_BUCKET", "")
	S3Region         = env.GetEnvOrDefault("S3_REGION", "us-east-1")
	S3Endpoint       = env.GetEnvOrDefault("S3_ENDPOINT", "")

	// QueueDBURL is the DSN for the JobQueue's backing database; may be
	// overridden through QUEUE_DB_SECRET per the JSON-password convention.
	QueueDBURL = ResolveSecret(env.GetEnvOrDefault("QUEUE_DB_URL", "file::memory:?cache=shared"), "QUEUE_DB_SECRET")

	MaxRetries      = env.GetEnvAsIntOrDefault("MAX_RETRIES", "2")
	TimeoutFailure  = env.GetEnvAsIntOrDefault("TIMEOUT_FAILURE", "300")
	RetryDifferent  = env.GetEnvAsBoolOrDefault("RETRY_DIFFERENT", "true")

	// UserfacingAPIURL is the Submit API base URL the JobTracker posts
	// status callbacks to.
	UserfacingAPIURL = env.GetEnvOrDefault("USERFACING_API_URL", "http://submit-api:8080")

	// WorkerAPIURL is the Worker API base URL the Submit API posts newly
	// materialized jobs to via POST /_jobs.
	WorkerAPIURL = env.GetEnvOrDefault("WORKER_API_URL", "http://worker-api:8080")

	// InternalAPIKey authenticates service-to-service calls (Submit API ->
	// Worker API's "/_jobs", Worker API -> Submit API's "_job_status").
	InternalAPIKey = ResolveSecret(env.GetEnvOrDefault("INTERNAL_API_KEY", ""), "INTERNAL_API_KEY_SECRET")

	// Cognito-style identity provider configuration for worker bearer
	// tokens.
	CognitoUserPoolID = env.GetEnvOrDefault("COGNITO_USER_POOL_ID", "")
	CognitoClientID   = env.GetEnvOrDefault("COGNITO_CLIENT_ID", "")
	CognitoRegion     = env.GetEnvOrDefault("COGNITO_REGION", "us-east-1")

	// DB_CONNECT_* retry tuning reused from the teacher's Postgres bring-up.
	DBConnectMaxRetries          = env.GetEnvAsIntOrDefault("DB_CONNECT_MAX_RETRIES", "30")
	DBConnectRetryIntervalSecond = env.GetEnvAsIntOrDefault("DB_CONNECT_RETRY_INTERVAL_SECONDS", "2")

	// SQL_LOGGER_* configure GORM's logger exactly as the teacher's
	// postgres_store.getLogger does.
	SQLLoggerSlowSQLSeconds        = env.GetEnvAsIntOrDefault("SQL_LOGGER_SLOW_SQL_SECONDS", "1")
	SQLLoggerLevel                 = env.GetEnvOrDefault("SQL_LOGGER_LEVEL", "error")
	SQLLoggerIgnoreRecordNotFound  = env.GetEnvAsBoolOrDefault("SQL_LOGGER_IGNORE_RECORD_NOT_FOUND", "true")
	SQLLoggerColorfulLogs          = env.GetEnvAsBoolOrDefault("SQL_LOGGER_COLORFUL_LOGS", "false")

	// TimeoutSupervisorTick is how often the supervisor sweeps for expired
	// leases.
	TimeoutSupervisorTickSeconds = env.GetEnvAsIntOrDefault("TIMEOUT_SUPERVISOR_TICK_SECONDS", "60")

	// CatalogPath points at the YAML/JSON application/version/entrypoint
	// catalog the Submit API validates submissions against.
	CatalogPath = env.GetEnvOrDefault("CATALOG_PATH", "./catalog.yaml")
)
