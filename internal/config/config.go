package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// RepositoryDriverEnv selects the product repository backend.
	RepositoryDriverEnv = "REPOSITORY_DRIVER"

	// DatabaseURLEnv is the environment variable for a full PostgreSQL connection string.
	DatabaseURLEnv = "DATABASE_URL"

	// DBHostEnv is the environment variable for database host.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// MongoURIEnv is the environment variable for the MongoDB connection string.
	MongoURIEnv = "MONGO_URI"

	// MongoDatabaseEnv is the environment variable for the MongoDB database name.
	MongoDatabaseEnv = "MONGO_DATABASE"

	// HTTPServerPortEnv is the environment variable for HTTP server port.
	HTTPServerPortEnv = "HTTP_SERVER_PORT"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// BlobBackendEnv selects the image storage backend.
	BlobBackendEnv = "BLOB_BACKEND"

	// UploadDirEnv is the directory used by the local image storage backend.
	UploadDirEnv = "UPLOAD_DIR"

	// UploadPublicPathEnv is the URL path the local upload directory is served under.
	UploadPublicPathEnv = "UPLOAD_PUBLIC_PATH"

	// MaxUploadBytesEnv is the maximum accepted image size in bytes.
	MaxUploadBytesEnv = "MAX_UPLOAD_BYTES"

	// UploadTimeoutEnv bounds a single image upload, e.g. "30s".
	UploadTimeoutEnv = "UPLOAD_TIMEOUT"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// S3BucketEnv is the bucket used by the s3 image storage backend.
	S3BucketEnv = "S3_BUCKET"

	// S3FolderEnv is the key prefix images are uploaded under.
	S3FolderEnv = "S3_FOLDER"

	// S3PublicBaseURLEnv is an optional public base URL (CDN) for stored images.
	S3PublicBaseURLEnv = "S3_PUBLIC_BASE_URL"

	// SQSQueueURLEnv is the environment variable for SQS queue URL.
	SQSQueueURLEnv = "SQS_QUEUE_URL"

	// AdminUsernameEnv is the admin console username.
	AdminUsernameEnv = "ADMIN_USERNAME"

	// AdminPasswordHashEnv is the bcrypt hash of the admin console password.
	AdminPasswordHashEnv = "ADMIN_PASSWORD_HASH"

	// AuthTokenSecretEnv is the HMAC secret used to sign admin session tokens.
	AuthTokenSecretEnv = "AUTH_TOKEN_SECRET"

	// AuthTokenTTLEnv is the lifetime of an admin session token, e.g. "12h".
	AuthTokenTTLEnv = "AUTH_TOKEN_TTL"

	// OrderPhoneNumberEnv is the WhatsApp number buyers are sent to.
	OrderPhoneNumberEnv = "ORDER_PHONE_NUMBER"

	// OrderCurrencySymbolEnv is the currency symbol used in order messages.
	OrderCurrencySymbolEnv = "ORDER_CURRENCY_SYMBOL"
)

const (
	// DriverPostgres stores products in PostgreSQL.
	DriverPostgres = "postgres"
	// DriverMongo stores products in MongoDB.
	DriverMongo = "mongo"
	// DriverMemory keeps products in process memory. Data is lost on restart.
	DriverMemory = "memory"

	// BlobBackendLocal stores images on the local filesystem.
	BlobBackendLocal = "local"
	// BlobBackendS3 stores images in an S3 bucket.
	BlobBackendS3 = "s3"

	defaultHTTPPort       = "3000"
	defaultMetricsPort    = "9090"
	defaultDBPort         = "5432"
	defaultMongoDatabase  = "catalog"
	defaultUploadDir      = "uploads"
	defaultUploadPath     = "/uploads"
	defaultMaxUploadBytes = 5 << 20
	defaultUploadTimeout  = 30 * time.Second
	defaultAWSRegion      = "us-east-1"
	defaultS3Folder       = "products"
	defaultTokenTTL       = 12 * time.Hour
	defaultCurrency       = "₦"
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")

	// ErrInvalidConfig is returned when a configuration value is not one of the allowed options.
	ErrInvalidConfig = errors.New("invalid config value")
)

// Config represents the application configuration.
type Config struct {
	DebugMode        bool
	RepositoryDriver string
	Database         DB
	Mongo            Mongo
	HTTPServer       Server
	MetricsServer    Server
	Blob             Blob
	AWS              AWSConfig
	Admin            Admin
	Order            Order
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region          string
	Endpoint        string
	S3Bucket        string
	S3Folder        string
	S3PublicBaseURL string
	SQSQueueURL     string
}

// DB represents database configuration settings.
type DB struct {
	URL      string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
}

// DSN returns the PostgreSQL connection string.
func (d DB) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		d.Host, d.User, d.Password, d.Name, d.Port)
}

// Mongo represents MongoDB configuration settings.
type Mongo struct {
	URI      string
	Database string
}

// Server represents server configuration settings.
type Server struct {
	Port string
}

// Blob represents image storage settings.
type Blob struct {
	Backend        string
	Dir            string
	PublicPath     string
	MaxUploadBytes int64
	UploadTimeout  time.Duration
}

// Admin represents the shared admin credential and session token settings.
type Admin struct {
	Username     string
	PasswordHash string
	TokenSecret  string
	TokenTTL     time.Duration
}

// Order represents the external messaging link settings used for purchases.
type Order struct {
	PhoneNumber    string
	CurrencySymbol string
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.Any("allowed", allowed))
	return fmt.Errorf("%w for key %s: %q", ErrInvalidConfig, key, value)
}

func (c *Config) validate() error {
	if err := oneOf(RepositoryDriverEnv, c.RepositoryDriver, DriverPostgres, DriverMongo, DriverMemory); err != nil {
		return err
	}

	// Validate database configuration
	switch c.RepositoryDriver {
	case DriverPostgres:
		if c.Database.URL == "" {
			if err := allNonEmpty(map[string]string{
				DBHostEnv: c.Database.Host,
				DBUserEnv: c.Database.User,
				DBNameEnv: c.Database.Name,
			}); err != nil {
				return fmt.Errorf("database configuration incomplete: %w", err)
			}
			if err := allNumbers(map[string]string{DBPortEnv: c.Database.Port}); err != nil {
				return fmt.Errorf("invalid port number: %w", err)
			}
		}
	case DriverMongo:
		if err := allNonEmpty(map[string]string{
			MongoURIEnv:      c.Mongo.URI,
			MongoDatabaseEnv: c.Mongo.Database,
		}); err != nil {
			return fmt.Errorf("mongo configuration incomplete: %w", err)
		}
	}

	// Validate server ports
	if err := allNumbers(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	// Validate image storage
	if err := oneOf(BlobBackendEnv, c.Blob.Backend, BlobBackendLocal, BlobBackendS3); err != nil {
		return err
	}
	if c.Blob.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w for key %s: must be positive", ErrInvalidConfig, MaxUploadBytesEnv)
	}
	if c.Blob.UploadTimeout <= 0 {
		return fmt.Errorf("%w for key %s: must be positive", ErrInvalidConfig, UploadTimeoutEnv)
	}
	switch c.Blob.Backend {
	case BlobBackendLocal:
		if err := allNonEmpty(map[string]string{
			UploadDirEnv:        c.Blob.Dir,
			UploadPublicPathEnv: c.Blob.PublicPath,
		}); err != nil {
			return fmt.Errorf("upload configuration incomplete: %w", err)
		}
	case BlobBackendS3:
		if err := allNonEmpty(map[string]string{
			AWSRegionEnv: c.AWS.Region,
			S3BucketEnv:  c.AWS.S3Bucket,
		}); err != nil {
			return fmt.Errorf("AWS configuration incomplete: %w", err)
		}
	}

	// Validate admin credential
	if err := allNonEmpty(map[string]string{
		AdminUsernameEnv:     c.Admin.Username,
		AdminPasswordHashEnv: c.Admin.PasswordHash,
		AuthTokenSecretEnv:   c.Admin.TokenSecret,
	}); err != nil {
		return fmt.Errorf("admin configuration incomplete: %w", err)
	}

	return nil
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsInt64(name string, defaultValue int64) int64 {
	if val, err := strconv.ParseInt(os.Getenv(name), 10, 64); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if val, err := time.ParseDuration(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func applyDefaultEnvFile() {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	err := ApplyEnvFile(envPath)
	if err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}
}

func fromEnv() *Config {
	return &Config{
		DebugMode:        getEnvAsBool(DebugModeEnv, false),
		RepositoryDriver: getEnv(RepositoryDriverEnv, DriverPostgres),
		Database: DB{
			URL:      os.Getenv(DatabaseURLEnv),
			Host:     os.Getenv(DBHostEnv),
			User:     os.Getenv(DBUserEnv),
			Password: os.Getenv(DBPassEnv),
			Name:     os.Getenv(DBNameEnv),
			Port:     getEnv(DBPortEnv, defaultDBPort),
		},
		Mongo: Mongo{
			URI:      os.Getenv(MongoURIEnv),
			Database: getEnv(MongoDatabaseEnv, defaultMongoDatabase),
		},
		HTTPServer: Server{
			Port: getEnv(HTTPServerPortEnv, defaultHTTPPort),
		},
		MetricsServer: Server{
			Port: getEnv(MetricsServerPortEnv, defaultMetricsPort),
		},
		Blob: Blob{
			Backend:        getEnv(BlobBackendEnv, BlobBackendLocal),
			Dir:            getEnv(UploadDirEnv, defaultUploadDir),
			PublicPath:     getEnv(UploadPublicPathEnv, defaultUploadPath),
			MaxUploadBytes: getEnvAsInt64(MaxUploadBytesEnv, defaultMaxUploadBytes),
			UploadTimeout:  getEnvAsDuration(UploadTimeoutEnv, defaultUploadTimeout),
		},
		AWS: AWSConfig{
			Region:          getEnv(AWSRegionEnv, defaultAWSRegion),
			Endpoint:        os.Getenv(AWSEndpointEnv),
			S3Bucket:        os.Getenv(S3BucketEnv),
			S3Folder:        getEnv(S3FolderEnv, defaultS3Folder),
			S3PublicBaseURL: os.Getenv(S3PublicBaseURLEnv),
			SQSQueueURL:     os.Getenv(SQSQueueURLEnv),
		},
		Admin: Admin{
			Username:     os.Getenv(AdminUsernameEnv),
			PasswordHash: os.Getenv(AdminPasswordHashEnv),
			TokenSecret:  os.Getenv(AuthTokenSecretEnv),
			TokenTTL:     getEnvAsDuration(AuthTokenTTLEnv, defaultTokenTTL),
		},
		Order: Order{
			PhoneNumber:    os.Getenv(OrderPhoneNumberEnv),
			CurrencySymbol: getEnv(OrderCurrencySymbolEnv, defaultCurrency),
		},
	}
}

// LoadFromEnv loads the catalog service configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	applyDefaultEnvFile()

	conf := fromEnv()
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}

// LoadEventsConsumerFromEnv loads the configuration of the catalog events consumer,
// which only needs the AWS settings and the queue URL.
func LoadEventsConsumerFromEnv() (*Config, error) {
	applyDefaultEnvFile()

	conf := fromEnv()
	if err := allNonEmpty(map[string]string{
		AWSRegionEnv:   conf.AWS.Region,
		SQSQueueURLEnv: conf.AWS.SQSQueueURL,
	}); err != nil {
		return nil, fmt.Errorf("configuration validation failed: AWS configuration incomplete: %w", err)
	}
	return conf, nil
}
