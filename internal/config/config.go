package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"doctrack/internal/domain"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	DB       DBConfig
	Mongo    MongoConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Archive  ArchiveConfig
	Tracking TrackingConfig
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Environment     string        `mapstructure:"environment"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
}

// JWTConfig holds bearer token verification settings. An empty secret
// disables authentication.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// Enabled reports whether API requests must carry a token.
func (j *JWTConfig) Enabled() bool {
	return j.Secret != ""
}

// ArchiveConfig holds the S3 settings for history archives. An empty bucket
// disables archiving.
type ArchiveConfig struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// Enabled reports whether history archives can be uploaded.
func (a *ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// TrackingConfig lists the document types whose changes are recorded.
type TrackingConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Types       []TrackedType `mapstructure:"types"`
}

// TrackedType configures history recording for one document type. A nil
// Limit keeps the default cap.
type TrackedType struct {
	Type          string   `mapstructure:"type"`
	Name          string   `mapstructure:"name"`
	FieldsToTrack []string `mapstructure:"fields_to_track"`
	Limit         *int     `mapstructure:"limit"`
}

// HistoryName returns the configured history attribute, or the default
// when the name is omitted.
func (t TrackedType) HistoryName() string {
	if t.Name == "" {
		return domain.DefaultHistoryName
	}
	return t.Name
}

// Load reads configuration from an optional file and from environment
// variables with the DOCTRACK_ prefix. Environment variables win.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// Store defaults
	v.SetDefault("store.driver", DriverMemory)

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "doctrack")
	v.SetDefault("db.password", "doctrack_secret")
	v.SetDefault("db.name", "doctrack_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Mongo defaults
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "doctrack")
	v.SetDefault("mongo.max_pool_size", 0)

	// JWT defaults (auth disabled)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "doctrack")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Archive defaults (disabled)
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "history")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.presign_expiry", 3600)

	// Tracking defaults
	v.SetDefault("tracking.max_attempts", 3)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":             "DOCTRACK_SERVER_PORT",
		"server.read_timeout":     "DOCTRACK_SERVER_READ_TIMEOUT",
		"server.write_timeout":    "DOCTRACK_SERVER_WRITE_TIMEOUT",
		"server.shutdown_timeout": "DOCTRACK_SERVER_SHUTDOWN_TIMEOUT",
		"server.environment":      "DOCTRACK_SERVER_ENVIRONMENT",
		"store.driver":            "DOCTRACK_STORE_DRIVER",
		"db.host":                 "DOCTRACK_DB_HOST",
		"db.port":                 "DOCTRACK_DB_PORT",
		"db.user":                 "DOCTRACK_DB_USER",
		"db.password":             "DOCTRACK_DB_PASSWORD",
		"db.name":                 "DOCTRACK_DB_NAME",
		"db.sslmode":              "DOCTRACK_DB_SSLMODE",
		"db.max_open":             "DOCTRACK_DB_MAX_OPEN",
		"db.max_idle":             "DOCTRACK_DB_MAX_IDLE",
		"mongo.uri":               "DOCTRACK_MONGO_URI",
		"mongo.database":          "DOCTRACK_MONGO_DATABASE",
		"mongo.max_pool_size":     "DOCTRACK_MONGO_MAX_POOL_SIZE",
		"jwt.secret":              "DOCTRACK_JWT_SECRET",
		"jwt.issuer":              "DOCTRACK_JWT_ISSUER",
		"cors.allowed_origins":    "DOCTRACK_CORS_ALLOWED_ORIGINS",
		"archive.region":          "DOCTRACK_ARCHIVE_REGION",
		"archive.bucket":          "DOCTRACK_ARCHIVE_BUCKET",
		"archive.prefix":          "DOCTRACK_ARCHIVE_PREFIX",
		"archive.endpoint":        "DOCTRACK_ARCHIVE_ENDPOINT",
		"archive.access_key":      "DOCTRACK_ARCHIVE_ACCESS_KEY",
		"archive.secret_key":      "DOCTRACK_ARCHIVE_SECRET_KEY",
		"archive.presign_expiry":  "DOCTRACK_ARCHIVE_PRESIGN_EXPIRY",
		"tracking.max_attempts":   "DOCTRACK_TRACKING_MAX_ATTEMPTS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if DOCTRACK_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DOCTRACK_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:            serverPort,
		ReadTimeout:     v.GetDuration("server.read_timeout"),
		WriteTimeout:    v.GetDuration("server.write_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		Environment:     v.GetString("server.environment"),
	}
	cfg.Store = StoreConfig{
		Driver: strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Mongo = MongoConfig{
		URI:         v.GetString("mongo.uri"),
		Database:    v.GetString("mongo.database"),
		MaxPoolSize: v.GetUint64("mongo.max_pool_size"),
	}
	cfg.JWT = JWTConfig{
		Secret: v.GetString("jwt.secret"),
		Issuer: v.GetString("jwt.issuer"),
	}
	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	cfg.Archive = ArchiveConfig{
		Region:        v.GetString("archive.region"),
		Bucket:        v.GetString("archive.bucket"),
		Prefix:        strings.Trim(v.GetString("archive.prefix"), "/"),
		Endpoint:      v.GetString("archive.endpoint"),
		AccessKey:     v.GetString("archive.access_key"),
		SecretKey:     v.GetString("archive.secret_key"),
		PresignExpiry: v.GetInt64("archive.presign_expiry"),
	}

	cfg.Tracking = TrackingConfig{
		MaxAttempts: v.GetInt("tracking.max_attempts"),
	}
	if err := v.UnmarshalKey("tracking.types", &cfg.Tracking.Types); err != nil {
		return nil, fmt.Errorf("decoding tracking.types: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres, DriverMongo:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	seen := make(map[string]struct{}, len(c.Tracking.Types))
	for i, t := range c.Tracking.Types {
		if strings.TrimSpace(t.Type) == "" {
			return fmt.Errorf("tracking.types[%d]: type is required", i)
		}
		if _, dup := seen[t.Type]; dup {
			return fmt.Errorf("tracking.types[%d]: type %q listed twice", i, t.Type)
		}
		seen[t.Type] = struct{}{}
	}
	return nil
}
