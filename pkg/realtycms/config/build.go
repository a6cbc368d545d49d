package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/jwtauth"
	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/indrealty/realty-cms/pkg/realtycms/api"
	"github.com/indrealty/realty-cms/pkg/realtycms/cache"
	"github.com/indrealty/realty-cms/pkg/realtycms/objectkey"
	repomemory "github.com/indrealty/realty-cms/pkg/realtycms/repo/memory"
	repopg "github.com/indrealty/realty-cms/pkg/realtycms/repo/postgres"
	fsstorage "github.com/indrealty/realty-cms/pkg/realtycms/storage/fs"
	memorystorage "github.com/indrealty/realty-cms/pkg/realtycms/storage/memory"
	s3storage "github.com/indrealty/realty-cms/pkg/realtycms/storage/s3"
	"github.com/indrealty/realty-cms/pkg/realtycms/urlstrategy"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Runtime holds everything built from a ServerConfig.
type Runtime struct {
	Services *realtycms.Services
	Registry *prometheus.Registry
	Auth     *jwtauth.JWTAuth // nil without a JWT secret
	Cache    cache.Cache
	Pool     *pgxpool.Pool // nil in memory mode

	redis *redis.Client
}

// Build connects to the configured backends and wires the services.
func (c *ServerConfig) Build(ctx context.Context) (*Runtime, error) {
	rt := &Runtime{
		Registry: prometheus.NewRegistry(),
		Cache:    cache.Noop{},
	}
	if c.JWTSecret != "" {
		rt.Auth = api.NewJWTAuth(c.JWTSecret)
	}
	rt.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	repos, err := c.buildRepositories(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build repositories: %w", err)
	}

	images, err := c.buildImageService()
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build image store: %w", err)
	}

	if c.RedisURL != "" {
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
		}
		rt.redis = redis.NewClient(opts)
		rt.Cache = cache.NewRedis(rt.redis, c.RedisKeyPrefix)
	}

	sinks := realtycms.MultiEventSink{
		api.NewMetricsSink(rt.Registry),
		cache.NewInvalidatingSink(rt.Cache, api.SitemapCacheKey, api.NewsSitemapCacheKey),
	}
	if c.EnableEventLogging {
		sinks = append(sinks, realtycms.NewLoggingEventSink(slog.Default()))
	}

	rt.Services, err = realtycms.NewServices(repos, images,
		realtycms.WithBaseURL(c.BaseURL),
		realtycms.WithEventSink(sinks),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}

	if c.BootstrapAdmin != "" {
		if err := c.ensureAdmin(ctx, rt.Services.Users); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
		}
	}
	return rt, nil
}

// ServerOptions returns the api options matching the configuration.
func (c *ServerConfig) ServerOptions(rt *Runtime) []api.Option {
	opts := []api.Option{
		api.WithJWTAuth(rt.Auth),
		api.WithBodyPrincipal(c.AllowBodyPrincipal),
		api.WithRegistry(rt.Registry),
		api.WithSitemapCache(rt.Cache, c.SitemapCacheTTL),
		api.WithAllowedOrigins(c.AllowedOrigins),
		api.WithRequestTimeout(c.RequestTimeout),
		api.WithReadinessCheck(rt.Ready),
	}
	if sc, err := c.Storage(); err == nil && sc.Type != "s3" && c.CDNBaseURL == "" {
		opts = append(opts, api.WithStoredImages(c.PublicURLPrefix))
	}
	return opts
}

// Ready reports whether the database and cache are reachable.
func (rt *Runtime) Ready(ctx context.Context) error {
	if rt.Pool != nil {
		if err := rt.Pool.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
	}
	if rt.redis != nil {
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}
	return nil
}

// Close releases connections.
func (rt *Runtime) Close() {
	if rt.Pool != nil {
		rt.Pool.Close()
	}
	if rt.redis != nil {
		if err := rt.redis.Close(); err != nil {
			slog.Warn("Failed to close redis client", "error", err)
		}
	}
}

func (c *ServerConfig) buildRepositories(ctx context.Context, rt *Runtime) (realtycms.Repositories, error) {
	if c.DatabaseType() == "memory" {
		return repomemory.NewRepositories(), nil
	}
	pool, err := Connect(ctx, c.DatabaseURL, c.DBSchema, c.DBConnectTimeout)
	if err != nil {
		return realtycms.Repositories{}, err
	}
	rt.Pool = pool
	return repopg.NewRepositories(pool), nil
}

// Connect opens a pgx pool with search_path set to schema, retrying until the
// database answers a ping or timeout elapses.
func Connect(ctx context.Context, databaseURL, schema string, timeout time.Duration) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = timeout
	var pool *pgxpool.Pool
	connect := func() error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create pgx pool: %w", err))
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			p.Close()
			return fmt.Errorf("database ping failed: %w", err)
		}
		pool = p
		return nil
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("Database not ready, retrying", "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return pool, nil
}

func (c *ServerConfig) buildImageService() (*realtycms.ImageService, error) {
	sc, err := c.Storage()
	if err != nil {
		return nil, err
	}

	var store realtycms.BlobStore
	switch sc.Type {
	case "memory":
		store = memorystorage.NewWithURLPrefix(c.PublicURLPrefix)
	case "fs":
		store, err = fsstorage.New(fsstorage.Config{BaseDir: sc.BaseDir, URLPrefix: c.PublicURLPrefix})
	case "s3":
		store, err = s3storage.New(s3storage.Config{
			Region:                 sc.Region,
			Bucket:                 sc.Bucket,
			AccessKeyID:            c.AWSAccessKeyID,
			SecretAccessKey:        c.AWSSecretAccessKey,
			Endpoint:               sc.Endpoint,
			UsePathStyle:           sc.PathStyle,
			PublicBaseURL:          c.S3PublicBaseURL,
			CreateBucketIfNotExist: c.S3CreateBucket,
		})
	default:
		err = fmt.Errorf("unsupported storage backend type: %s", sc.Type)
	}
	if err != nil {
		return nil, err
	}

	strategy := urlstrategy.Config{Type: urlstrategy.StrategyTypeStorageDelegated, Store: store}
	if c.CDNBaseURL != "" {
		strategy = urlstrategy.Config{Type: urlstrategy.StrategyTypeCDN, CDNBaseURL: c.CDNBaseURL}
	}
	urls, err := urlstrategy.NewURLStrategy(strategy)
	if err != nil {
		return nil, err
	}
	return realtycms.NewImageService(store,
		realtycms.WithURLStrategy(urls),
		realtycms.WithKeyGenerator(objectkey.NewRecommendedGenerator()),
		realtycms.WithMaxImageBytes(c.MaxImageBytes),
	)
}

func (c *ServerConfig) ensureAdmin(ctx context.Context, users *realtycms.UserService) error {
	username, email, _ := c.bootstrapAdmin()
	_, err := users.SetAdmin(ctx, username, true)
	if err == nil || !errors.Is(err, realtycms.ErrNotFound) {
		return err
	}
	_, err = users.CreateUser(ctx, realtycms.CreateUserRequest{
		RegisterUserRequest: realtycms.RegisterUserRequest{UID: "bootstrap-" + username, Email: email, Username: username},
		IsAdmin:             true,
	})
	return err
}
