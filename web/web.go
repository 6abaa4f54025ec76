// Package web assembles the HTTP engine and runs the API server.
package web

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/steams-social/steams-api/config"
	"github.com/steams-social/steams-api/database"
	"github.com/steams-social/steams-api/logger"
	"github.com/steams-social/steams-api/util/common"
	"github.com/steams-social/steams-api/util/metrics"
	"github.com/steams-social/steams-api/web/cache"
	"github.com/steams-social/steams-api/web/controller"
	"github.com/steams-social/steams-api/web/job"
	"github.com/steams-social/steams-api/web/middleware"
	"github.com/steams-social/steams-api/web/oidc"
	"github.com/steams-social/steams-api/web/service"
	"github.com/steams-social/steams-api/web/session"
)

// EngineConfig carries everything the router needs. Zero limiter values
// fall back to 100 requests per 15 minutes. A nil Counter keeps the limiter
// counters in process memory.
type EngineConfig struct {
	DB           *gorm.DB
	SessionStore sessions.Store
	Counter      httprate.LimitCounter

	RateLimitMax    int
	RateLimitWindow time.Duration

	Provider   *oidc.Provider
	MapService *service.MapService

	AllowedOrigins   []string
	AllowCredentials bool
	TrustedProxies   []string
	BaseURL          string
}

// NewEngine builds the router. Middleware order is fixed: CORS, session,
// rate limiter, then the route's own checks.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	if cfg.DB == nil || cfg.SessionStore == nil {
		return nil, errors.New("engine needs a database and a session store")
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	users := service.NewUserService(cfg.DB)
	complaints := service.NewComplaintService(cfg.DB)

	limit := middleware.DefaultRateLimitConfig(cfg.Counter, users)
	if cfg.RateLimitMax > 0 {
		limit.Max = cfg.RateLimitMax
	}
	if cfg.RateLimitWindow > 0 {
		limit.Window = cfg.RateLimitWindow
	}

	engine.Use(middleware.Recovery())
	engine.Use(middleware.AccessLog())
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins, cfg.AllowCredentials)))
	engine.Use(session.Middleware(cfg.SessionStore))
	engine.Use(middleware.AdminExemptRateLimit(limit))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": config.GetVersion()})
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	g := &engine.RouterGroup
	controller.NewAuthController(g, cfg.Provider, cfg.BaseURL)
	controller.NewProfileController(g, users, cfg.MapService)
	controller.NewComplaintController(g, users, complaints)
	controller.NewAdminController(g, users, complaints)

	return engine, nil
}

// Server is the API server with its background jobs.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	redis *cache.Redis
	cron  *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{ctx: ctx, cancel: cancel}
}

// openCounter picks the limiter backend from RATE_LIMIT_STORE. Memory
// counters come back as nil.
func (s *Server) openCounter() (httprate.LimitCounter, error) {
	if config.GetRateLimitStore() != config.RateLimitStoreRedis {
		return nil, nil
	}
	r, err := cache.OpenRedis(s.ctx, config.GetRedisAddr(), config.GetRedisPassword(), config.GetRedisDB())
	if err != nil {
		return nil, err
	}
	s.redis = r
	if r.Embedded() {
		logger.Warning("REDIS_ADDR is empty, rate limit counters use an embedded redis")
	}
	return cache.NewRedisCounter(r.Client), nil
}

// Start initializes and starts the web server.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	if !config.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	secret := config.GetAuthSecret()
	if secret == "" {
		return common.NewError("AUTH_SECRET is required")
	}
	baseURL := config.GetBaseURL()
	sessionStore, err := session.NewStore(secret, config.GetSessionMaxAge(), strings.HasPrefix(baseURL, "https://"))
	if err != nil {
		return err
	}

	counter, err := s.openCounter()
	if err != nil {
		return err
	}

	s.cron = cron.New()
	s.cron.Start()
	healthJob := job.NewCheckStoreHealthJob(database.GetDB(), s.redisClient())
	if _, err := s.cron.AddJob("@every 30s", healthJob); err != nil {
		return err
	}
	healthJob.Run()

	provider := oidc.NewProvider(oidc.Config{
		IssuerURL:    config.GetIssuerBaseURL(),
		ClientID:     config.GetClientID(),
		ClientSecret: config.GetClientSecret(),
		RedirectURL:  strings.TrimRight(baseURL, "/") + "/callback",
	}, nil)
	if !provider.Configured() {
		logger.Warning("ISSUER_BASE_URL or CLIENT_ID missing, /login is disabled")
	}

	engine, err := NewEngine(EngineConfig{
		DB:               database.GetDB(),
		SessionStore:     sessionStore,
		Counter:          counter,
		RateLimitMax:     config.GetRateLimitMax(),
		RateLimitWindow:  config.GetRateLimitWindow(),
		Provider:         provider,
		MapService:       service.NewMapService(config.GetMapServiceURL(), config.GetMapTimeout(), nil),
		AllowedOrigins:   config.GetCORSAllowedOrigins(),
		AllowCredentials: config.GetCORSAllowCredentials(),
		TrustedProxies:   config.GetTrustedProxies(),
		BaseURL:          baseURL,
	})
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	logger.Info("Web server running HTTP on", listener.Addr())

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("web server stopped:", err)
		}
	}()

	return nil
}

// Stop shuts down the HTTP server, the cron jobs and the redis client.
func (s *Server) Stop() error {
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	var err1, err2, err3 error
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err1 = s.httpServer.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			err2 = err
		}
	}
	if s.redis != nil {
		err3 = s.redis.Close()
	}
	return common.Combine(err1, err2, err3)
}

func (s *Server) redisClient() redis.UniversalClient {
	if s.redis == nil {
		return nil
	}
	return s.redis.Client
}

func (s *Server) GetCtx() context.Context { return s.ctx }

func (s *Server) GetCron() *cron.Cron { return s.cron }
