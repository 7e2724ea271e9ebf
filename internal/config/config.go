package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageDynamo = "dynamo"
	StorageMemory = "memory"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	StorageDriver  string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	WS          WebSocket
	Attachments Attachments

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Messages      string
	Notifications string
	Attachments   string
	Counters      string
}

// WebSocket tunes the live connection endpoint.
type WebSocket struct {
	SendBuffer     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	OriginPatterns []string
}

// Attachments configures chat attachment uploads.
type Attachments struct {
	MaxBytes      int64
	URLTTL        time.Duration
	PublicBaseURL string // when set, URLs are built from it instead of presigned
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		StorageDriver:  getEnv("STORAGE_DRIVER", StorageDynamo),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Messages:      getEnv("DYNAMO_TABLE_MESSAGES", "messages"),
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			Attachments:   getEnv("DYNAMO_TABLE_ATTACHMENTS", "attachments"),
			Counters:      getEnv("DYNAMO_TABLE_COUNTERS", "counters"),
		},
		S3BucketName:      getEnv("S3_BUCKET_NAME", "marketplace-chat"),
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		WS: WebSocket{
			SendBuffer:     getEnvInt("WS_SEND_BUFFER", 64),
			WriteTimeout:   getEnvDuration("WS_WRITE_TIMEOUT", 10*time.Second),
			PingInterval:   getEnvDuration("WS_PING_INTERVAL", 30*time.Second),
			OriginPatterns: splitList(getEnv("WS_ORIGIN_PATTERNS", "*")),
		},
		Attachments: Attachments{
			MaxBytes:      int64(getEnvInt("ATTACHMENT_MAX_BYTES", 20<<20)),
			URLTTL:        getEnvDuration("ATTACHMENT_URL_TTL", 7*24*time.Hour),
			PublicBaseURL: strings.TrimRight(getEnv("ATTACHMENT_PUBLIC_BASE_URL", ""), "/"),
		},
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
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

// getEnvDuration accepts Go duration strings ("15s", "2m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
