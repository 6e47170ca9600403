package main

import (
	"context"
	"drawit/auth"
	"drawit/config"
	"drawit/crypto"
	"drawit/logger"
	"drawit/migrations"
	"drawit/notifier"
	"drawit/session"
	"drawit/storage"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	tokenAge        = time.Hour * 24 * 7 // 7 days
	tamperDelay     = time.Second * 2
	shutdownTimeout = time.Second * 10
	pingTimeout     = time.Second * 5
)

type sessionRoutes interface {
	WebsocketHandler(ctx *gin.Context)
	HealthHandler(ctx *gin.Context)
	RoomHandler(ctx *gin.Context)
	RoomQRHandler(ctx *gin.Context)
	GameHandler(ctx *gin.Context)
}

type authRoutes interface {
	SignupHandler(ctx *gin.Context)
	LoginHandler(ctx *gin.Context)
	LogoutHandler(ctx *gin.Context)
	MeHandler(ctx *gin.Context)
	RefreshSessionHandler(ctx *gin.Context)
	RequireAuthMiddleware(tamperDelay time.Duration) gin.HandlerFunc
}

// CreateServer rejects any request carrying an unlisted Origin. Requests without an Origin
// are only let through for GET and HEAD, so shared join links and QR images still load.
func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	r.Use(gin.Recovery(), logger.Middleware(log.Logger))

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		if origin == "" && (ctx.Request.Method == http.MethodGet || ctx.Request.Method == http.MethodHead) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

// registerRoutes mounts the session surface and the auth group. A nil ah answers every auth
// route with 503.
func registerRoutes(r *gin.Engine, sh sessionRoutes, ah authRoutes) {
	r.GET("/ws", sh.WebsocketHandler)

	api := r.Group("/api")
	api.GET("/health", sh.HealthHandler)
	api.GET("/rooms/:code", sh.RoomHandler)
	api.GET("/rooms/:code/qr", sh.RoomQRHandler)
	api.GET("/games/:code", sh.GameHandler)

	authGroup := api.Group("/auth")
	if ah == nil {
		authGroup.Any("/*route", auth.UnavailableHandler)
		return
	}
	authGroup.POST("/signup", ah.SignupHandler)
	authGroup.POST("/login", ah.LoginHandler)
	authGroup.POST("/logout", ah.LogoutHandler)

	private := authGroup.Group("", ah.RequireAuthMiddleware(tamperDelay))
	private.GET("/me", ah.MeHandler)
	private.GET("/refresh", ah.RefreshSessionHandler)
}

// persistence holds the database backed collaborators. Every field is nil when the
// database is not configured or could not be reached.
type persistence struct {
	repo   *storage.PostgresRepo
	rooms  session.RoomStore
	users  session.UserStore
	tokens session.TokenVerifier
	auth   authRoutes
}

// connectPersistence never fails the process. A database outage disables identity
// features once, anonymous rooms and games keep running.
func connectPersistence(ctx context.Context, cfg config.Config) persistence {
	if !cfg.PersistenceEnabled() {
		return persistence{}
	}
	repo, err := openRepo(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed, running without database, auth features disabled")
		return persistence{}
	}

	passwordHasher := crypto.NewArgon2idHasher(crypto.DefaultParams)
	tokenManager := crypto.NewJWTManager(cfg.JWTKey, tokenAge)
	authService := auth.NewService(repo, passwordHasher, tokenManager)

	return persistence{
		repo:   repo,
		rooms:  repo,
		users:  repo,
		tokens: tokenManager,
		auth:   auth.NewAuthHandler(authService, tokenManager.MaxAge()),
	}
}

func openRepo(ctx context.Context, pgurl string) (*storage.PostgresRepo, error) {
	if err := migrations.Migrate(pgurl); err != nil {
		return nil, err
	}
	repo, err := storage.NewPostgresRepo(ctx, pgurl)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := repo.Ping(pingCtx); err != nil {
		repo.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return repo, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Setup(cfg.Debug, cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Dependencies. Interfaces stay nil when a backend is not configured.
	var (
		notify  session.Notifier
		natsPub *notifier.NatsNotifier
	)
	store := connectPersistence(ctx, cfg)

	if cfg.NatsURL != "" {
		natsPub, err = notifier.Connect(cfg.NatsURL)
		if err != nil {
			log.Error().Err(err).Msg("nats unavailable, lifecycle notifications disabled")
		} else {
			notify = natsPub
		}
	}

	tickers := session.NewTickerGen()
	engine := session.NewEngine(session.NewCodeGen(), tickers, store.rooms, store.users, notify)
	engineStarted := make(chan struct{})
	go engine.Run(ctx, engineStarted)
	<-engineStarted

	sh := session.NewSessionHandler(engine, tickers, store.tokens, store.users, store.rooms, cfg.AllowedOrigins, cfg.PublicURL)

	r := CreateServer(cfg.AllowedOrigins)
	registerRoutes(r, sh, store.auth)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()
	log.Info().Str("addr", cfg.Addr()).Bool("persistence", store.repo != nil).Msg("server started")

	<-ctx.Done()
	log.Info().Msg("SIGTERM or SIGINT received, stopping sessions")
	<-engine.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	natsPub.Close()
	if store.repo != nil {
		store.repo.Close()
	}
	log.Info().Msg("shut down")
}
