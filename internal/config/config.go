package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort   string
	AppEnv    string
	LogLevel  string
	LogFormat string

	AuthURL         string // base URL of the GoTrue-compatible provider, e.g. https://xyz.supabase.co
	AuthAnonKey     string
	AuthJWTSecret   string // empty disables local access-token verification
	AuthHTTPTimeout time.Duration

	LoginPath         string
	DestinationPath   string
	OTPFormLayout     string // "card" | "compact"
	OTPClearOnFailure bool

	SessionCookieName   string
	SessionCookieSecure bool

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SNSRegion         string
	SNSSignInTopicARN string // empty disables sign-in events

	AllowedOrigins    []string // CORS allowed origins
	TrustProxyHeaders bool     // take the client IP from X-Forwarded-For / X-Real-IP; only behind a proxy that sets them
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Sessions string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:   getEnv("APP_PORT", "3000"),
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		AuthURL:         strings.TrimRight(getEnv("AUTH_URL", "http://localhost:9999"), "/"),
		AuthAnonKey:     getEnv("AUTH_ANON_KEY", ""),
		AuthJWTSecret:   getEnv("AUTH_JWT_SECRET", ""),
		AuthHTTPTimeout: time.Duration(getEnvInt("AUTH_HTTP_TIMEOUT_SECONDS", 0)) * time.Second,

		LoginPath:         getEnv("LOGIN_PATH", "/login"),
		DestinationPath:   getEnv("DESTINATION_PATH", "/dashboard"),
		OTPFormLayout:     getEnv("OTP_FORM_LAYOUT", "card"),
		OTPClearOnFailure: getEnvBool("OTP_CLEAR_ON_FAILURE", false),

		SessionCookieName:   getEnv("SESSION_COOKIE_NAME", "otp_session"),
		SessionCookieSecure: getEnvBool("SESSION_COOKIE_SECURE", true),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Sessions: getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
		},

		SNSRegion:         getEnv("SNS_REGION", "us-east-1"),
		SNSSignInTopicARN: getEnv("SNS_SIGNIN_TOPIC_ARN", ""),

		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
