package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithBaseURL sets the public site URL.
func WithBaseURL(baseURL string) Option {
	return func(c *ServerConfig) error {
		c.BaseURL = baseURL
		return nil
	}
}

// WithDatabase selects postgres at url. An empty url selects memory.
func WithDatabase(url, schema string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseURL = url
		if schema != "" {
			c.DBSchema = schema
		}
		return nil
	}
}

// WithStorageURL sets the image store.
func WithStorageURL(url string) Option {
	return func(c *ServerConfig) error {
		c.StorageURL = url
		return nil
	}
}

// WithCDN serves image URLs from baseURL.
func WithCDN(baseURL string) Option {
	return func(c *ServerConfig) error {
		c.CDNBaseURL = baseURL
		return nil
	}
}

// WithJWTSecret sets the token signing secret.
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		if secret == "" {
			return fmt.Errorf("jwt secret cannot be empty")
		}
		c.JWTSecret = secret
		return nil
	}
}

// WithBodyPrincipal toggles the legacy body username mode.
func WithBodyPrincipal(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.AllowBodyPrincipal = enabled
		return nil
	}
}

// WithRedis enables the sitemap cache.
func WithRedis(url string, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		c.RedisURL = url
		if ttl > 0 {
			c.SitemapCacheTTL = ttl
		}
		return nil
	}
}

// WithLogging sets the log level and format.
func WithLogging(level, format string) Option {
	return func(c *ServerConfig) error {
		if level != "" {
			c.LogLevel = level
		}
		if format != "" {
			c.LogFormat = format
		}
		return nil
	}
}
