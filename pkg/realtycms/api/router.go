package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/indrealty/realty-cms/pkg/realtycms/cache"
	"github.com/indrealty/realty-cms/pkg/realtycms/sitemap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	metricsprom "github.com/slok/go-http-metrics/metrics/prometheus"
	metricsmw "github.com/slok/go-http-metrics/middleware"
	metricsstd "github.com/slok/go-http-metrics/middleware/std"
	"github.com/tendant/chi-demo/app"
)

// Server assembles the HTTP surface of the CMS.
type Server struct {
	services       *realtycms.Services
	auth           *jwtauth.JWTAuth
	bodyPrincipal  bool
	sitemaps       *sitemap.Builder
	cache          cache.Cache
	cacheTTL       time.Duration
	imagePrefix    string
	allowedOrigins []string
	requestLogger  *httplog.Logger
	registry       *prometheus.Registry
	timeout        time.Duration
	ready          func(context.Context) error
}

// Option configures a Server.
type Option func(*Server)

// WithJWTAuth sets the token authority used to verify bearer tokens.
func WithJWTAuth(ja *jwtauth.JWTAuth) Option {
	return func(s *Server) { s.auth = ja }
}

// WithBodyPrincipal accepts the legacy body username when no token is sent.
func WithBodyPrincipal(enabled bool) Option {
	return func(s *Server) { s.bodyPrincipal = enabled }
}

// WithSitemaps serves the sitemaps rendered by b.
func WithSitemaps(b *sitemap.Builder) Option {
	return func(s *Server) { s.sitemaps = b }
}

// WithSitemapCache caches rendered sitemaps in c for ttl.
func WithSitemapCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Server) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithStoredImages serves uploaded images from the blob store under the path
// of prefix, which may be a bare path or an absolute URL.
func WithStoredImages(prefix string) Option {
	return func(s *Server) {
		if u, err := url.Parse(prefix); err == nil {
			s.imagePrefix = strings.TrimSuffix(u.Path, "/")
		}
	}
}

// WithAllowedOrigins sets the CORS origins. Empty allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.allowedOrigins = origins }
}

// WithRequestLogger sets the access logger.
func WithRequestLogger(l *httplog.Logger) Option {
	return func(s *Server) { s.requestLogger = l }
}

// WithRegistry sets the registry exposed at /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithRequestTimeout bounds request processing time.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithReadinessCheck makes /healthz/ready report the result of check.
func WithReadinessCheck(check func(context.Context) error) Option {
	return func(s *Server) { s.ready = check }
}

// NewServer creates a server for the given services.
func NewServer(services *realtycms.Services, opts ...Option) (*Server, error) {
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}
	s := &Server{
		services: services,
		timeout:  60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.auth == nil {
		return nil, fmt.Errorf("jwt auth is required")
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if s.requestLogger == nil {
		s.requestLogger = httplog.NewLogger("realty-api", httplog.Options{
			LogLevel:        slog.LevelInfo,
			Concise:         true,
			QuietDownRoutes: []string{"/healthz", "/healthz/ready", "/metrics"},
			QuietDownPeriod: 10 * time.Second,
		})
	}
	if s.sitemaps == nil {
		s.sitemaps = sitemap.New(services.Properties.BaseURL(), services.Catalogs())
	}
	return s, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	metrics := metricsmw.New(metricsmw.Config{
		Recorder: metricsprom.NewRecorder(metricsprom.Config{Registry: s.registry}),
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(s.requestLogger))
	r.Use(Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(s.timeout))

	app.RoutesHealthz(r)
	if s.ready != nil {
		r.Get("/healthz/ready", s.readiness)
	} else {
		app.RoutesHealthzReady(r)
	}
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	sitemaps := NewSitemapHandler(s.sitemaps, s.cache, s.cacheTTL)
	r.Group(func(r chi.Router) {
		r.Use(metricsstd.HandlerProvider("", metrics))
		r.Get("/sitemap.xml", sitemaps.Sitemap)
		r.Get("/news-sitemap.xml", sitemaps.NewsSitemap)
		r.Get("/robots.txt", sitemaps.Robots)
		if s.imagePrefix != "" {
			images := NewImageHandler(s.services.Images)
			r.Get(s.imagePrefix+"/*", images.Serve)
			r.Head(s.imagePrefix+"/*", images.Serve)
		}
	})

	users := NewUserHandler(s.services.Users)
	r.Group(func(r chi.Router) {
		r.Use(metricsstd.HandlerProvider("", metrics))
		r.Mount("/auth", users.Routes())
		r.Route("/api", s.apiRoutes)
	})

	return r
}

func (s *Server) apiRoutes(r chi.Router) {
	svc := s.services
	r.Use(jwtauth.Verifier(s.auth))
	r.Use(Principal)
	maxMemory := 2 * realtycms.DefaultMaxImageBytes
	if svc.Images != nil {
		maxMemory = 2 * svc.Images.MaxBytes()
	}
	if s.bodyPrincipal {
		r.Use(BodyPrincipal(maxMemory))
	}
	admin := RequireAdmin(svc.Users)

	properties := NewContentHandler[realtycms.PropertyExtra](svc.Properties, nil, admin,
		Paginated(), AdminListing(), WithMaxMemory(maxMemory))
	interest := NewInterestHandler(svc.Investments)
	investments := NewContentHandler[realtycms.InvestmentExtra](svc.Investments, nil, admin, WithMaxMemory(maxMemory),
		ExtraRoutes(func(r chi.Router) {
			r.Post("/{id}/interest", interest.ExpressInterest)
		}))
	whatsNew := NewContentHandler[realtycms.WhatsNewExtra](svc.WhatsNew, nil, admin, WithMaxMemory(maxMemory))
	reviews := NewContentHandler[realtycms.BuilderReviewExtra](svc.BuilderReviews, BuilderReviewFields{}, admin, WithMaxMemory(maxMemory))
	search := NewSearchHandler(svc.Search)
	upload := NewUploadHandler(svc.Images)

	r.Mount("/"+realtycms.SpecFor(realtycms.KindProperty).Segment, properties.Routes())
	r.Mount("/"+realtycms.SpecFor(realtycms.KindInvestment).Segment, investments.Routes())
	r.Mount("/"+realtycms.SpecFor(realtycms.KindWhatsNew).Segment, whatsNew.Routes())
	r.Mount("/"+realtycms.SpecFor(realtycms.KindBuilderReview).Segment, reviews.Routes())

	r.Mount("/search", search.Routes())
	r.Get("/top-posts", search.TopPosts)
	r.With(admin).Post("/upload", upload.Upload)
	r.Mount("/auth", NewUserHandler(svc.Users).Routes())
}

func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	if err := s.ready(r.Context()); err != nil {
		slog.Warn("Readiness check failed", "error", err)
		render.Status(r, http.StatusServiceUnavailable)
		render.PlainText(w, r, http.StatusText(http.StatusServiceUnavailable))
		return
	}
	render.PlainText(w, r, http.StatusText(http.StatusOK))
}
