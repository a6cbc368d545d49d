package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// the defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		BaseURL:            "https://www.indrealty.org",
		DBSchema:           "realty",
		DBConnectTimeout:   30 * time.Second,
		StorageURL:         "memory://",
		PublicURLPrefix:    "/public",
		MaxImageBytes:      1 << 20,
		SitemapCacheTTL:    time.Hour,
		RedisKeyPrefix:     "realtycms:",
		LogLevel:           "info",
		LogFormat:          "text",
		RequestTimeout:     60 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		EnableEventLogging: true,
	}
}

// ServerConfig is the runtime configuration of the CMS.
type ServerConfig struct {
	Port        string `yaml:"port" env:"PORT" env-default:"8080" env-description:"HTTP listen port"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"development" env-description:"development, production or testing"`
	BaseURL     string `yaml:"base_url" env:"SITE_BASE_URL" env-default:"https://www.indrealty.org" env-description:"public site URL used for canonical links and sitemaps"`

	DatabaseURL      string        `yaml:"database_url" env:"DATABASE_URL" env-description:"postgres connection string, empty or memory for in-memory storage"`
	DBSchema         string        `yaml:"db_schema" env:"DB_SCHEMA" env-default:"realty" env-description:"postgres search_path"`
	DBConnectTimeout time.Duration `yaml:"db_connect_timeout" env:"DB_CONNECT_TIMEOUT" env-default:"30s" env-description:"how long to retry the initial database connection"`

	StorageURL      string `yaml:"storage_url" env:"STORAGE_URL" env-default:"memory://" env-description:"image store: memory://, file:///path or s3://bucket?region=&endpoint=&path_style=true"`
	PublicURLPrefix string `yaml:"public_url_prefix" env:"PUBLIC_URL_PREFIX" env-default:"/public" env-description:"URL prefix of images kept in memory or on disk"`
	CDNBaseURL      string `yaml:"cdn_base_url" env:"CDN_BASE_URL" env-description:"serve image URLs from this base instead of the store"`
	MaxImageBytes   int64  `yaml:"max_image_bytes" env:"MAX_IMAGE_BYTES" env-default:"1048576" env-description:"upload size limit"`

	AWSRegion          string `yaml:"aws_region" env:"AWS_REGION" env-description:"S3 region, overrides the storage URL"`
	AWSAccessKeyID     string `yaml:"aws_access_key_id" env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `yaml:"aws_secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	S3PublicBaseURL    string `yaml:"s3_public_base_url" env:"S3_PUBLIC_BASE_URL" env-description:"base URL objects are publicly served from"`
	S3CreateBucket     bool   `yaml:"s3_create_bucket" env:"S3_CREATE_BUCKET" env-description:"create the bucket on startup"`

	JWTSecret          string   `yaml:"jwt_secret" env:"JWT_SECRET" env-description:"HS256 secret used to verify bearer tokens"`
	AllowBodyPrincipal bool     `yaml:"allow_body_principal" env:"AUTH_ALLOW_BODY_PRINCIPAL" env-default:"false" env-description:"accept the legacy username body field when no token is sent"`
	AllowedOrigins     []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-description:"CORS origins, empty allows any"`
	BootstrapAdmin     string   `yaml:"bootstrap_admin" env:"BOOTSTRAP_ADMIN" env-description:"username:email of an admin ensured at startup"`

	RedisURL        string        `yaml:"redis_url" env:"REDIS_URL" env-description:"enables the sitemap cache, e.g. redis://localhost:6379/0"`
	RedisKeyPrefix  string        `yaml:"redis_key_prefix" env:"REDIS_KEY_PREFIX" env-default:"realtycms:"`
	SitemapCacheTTL time.Duration `yaml:"sitemap_cache_ttl" env:"SITEMAP_CACHE_TTL" env-default:"1h"`

	LogLevel           string        `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`
	LogFormat          string        `yaml:"log_format" env:"LOG_FORMAT" env-default:"text" env-description:"text or json"`
	RequestTimeout     time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"60s"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
	EnableEventLogging bool          `yaml:"enable_event_logging" env:"ENABLE_EVENT_LOGGING" env-default:"true"`
}

// DatabaseType reports "postgres" or "memory".
func (c *ServerConfig) DatabaseType() string {
	if c.DatabaseURL == "" || c.DatabaseURL == "memory" {
		return "memory"
	}
	return "postgres"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.BaseURL == "" {
		return errors.New("base url is required")
	}
	if c.DatabaseType() == "postgres" &&
		!strings.HasPrefix(c.DatabaseURL, "postgres://") && !strings.HasPrefix(c.DatabaseURL, "postgresql://") {
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", c.DatabaseURL)
	}
	if _, err := c.Storage(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", c.LogFormat)
	}
	if c.BootstrapAdmin != "" {
		if _, _, ok := c.bootstrapAdmin(); !ok {
			return fmt.Errorf("bootstrap admin must be username:email, got: %s", c.BootstrapAdmin)
		}
	}
	if c.MaxImageBytes <= 0 {
		return errors.New("max image bytes must be positive")
	}
	return nil
}

func (c *ServerConfig) bootstrapAdmin() (username, email string, ok bool) {
	username, email, ok = strings.Cut(c.BootstrapAdmin, ":")
	return username, email, ok && username != "" && email != ""
}

// StorageConfig is the parsed form of StorageURL.
type StorageConfig struct {
	Type      string // "memory", "fs" or "s3"
	BaseDir   string
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// Storage parses StorageURL.
func (c *ServerConfig) Storage() (StorageConfig, error) {
	raw := c.StorageURL
	if raw == "" || raw == "memory" || raw == "memory://" {
		return StorageConfig{Type: "memory"}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	switch u.Scheme {
	case "file":
		if u.Path == "" {
			return StorageConfig{}, errors.New("filesystem path cannot be empty in STORAGE_URL")
		}
		return StorageConfig{Type: "fs", BaseDir: u.Path}, nil
	case "s3":
		if u.Host == "" {
			return StorageConfig{}, errors.New("S3 bucket name cannot be empty in STORAGE_URL")
		}
		q := u.Query()
		sc := StorageConfig{
			Type:      "s3",
			Bucket:    u.Host,
			Region:    q.Get("region"),
			Endpoint:  q.Get("endpoint"),
			PathStyle: q.Get("path_style") == "true",
		}
		if c.AWSRegion != "" {
			sc.Region = c.AWSRegion
		}
		if sc.Region == "" {
			sc.Region = "us-east-1"
		}
		return sc, nil
	}
	return StorageConfig{}, fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', or 's3://...')", raw)
}

// WithEnv reads the configuration from the environment. When CONFIG_FILE is
// set the file is read first and the environment overrides it.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if path, ok := os.LookupEnv("CONFIG_FILE"); ok && path != "" {
			if err := cleanenv.ReadConfig(path, c); err != nil {
				return fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			return nil
		}
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}
}

// Usage describes every environment variable.
func Usage() string {
	var cfg ServerConfig
	header := "Environment variables:"
	text, err := cleanenv.GetDescription(&cfg, &header)
	if err != nil {
		return header
	}
	return text
}
