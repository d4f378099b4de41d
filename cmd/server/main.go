package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	docs "github.com/tazhibayda/todo-service/docs"
	"github.com/tazhibayda/todo-service/internal/config"
	api "github.com/tazhibayda/todo-service/internal/http"
	"github.com/tazhibayda/todo-service/internal/log"
	"github.com/tazhibayda/todo-service/internal/mail"
	"github.com/tazhibayda/todo-service/internal/metrics"
	"github.com/tazhibayda/todo-service/internal/oauth"
	"github.com/tazhibayda/todo-service/internal/queue"
	"github.com/tazhibayda/todo-service/internal/repo"
	"github.com/tazhibayda/todo-service/internal/repo/memory"
	"github.com/tazhibayda/todo-service/internal/security"
	"github.com/tazhibayda/todo-service/internal/service"
	"github.com/tazhibayda/todo-service/internal/storage"
)

const serviceName = "todo-service"

// stores bundles whichever backend STORE_DRIVER selected.
type stores interface {
	service.UserStore
	service.ResetCodeStore
	service.TodoStore
	Ping(ctx context.Context) error
}

// @title Todo API
// @version 1.0.0
// @description Multi-user todo list backend: local and social sign-in, OTP password reset, profiles and todos.
// @schemes http https
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := pflag.StringP("config", "c", "", "path to a TOML config file (env vars override it)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger, err := log.Init(cfg.IsProduction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config) error {
	lg := log.L()
	if cfg.DDEnabled {
		tracer.Start(tracer.WithService(serviceName), tracer.WithEnv(cfg.Env))
		defer tracer.Stop()
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	checks := map[string]api.Pinger{}
	var (
		st     stores
		grants service.GrantStore
	)
	switch cfg.StoreDriver {
	case "memory":
		mem := memory.New()
		st, grants = mem, mem
		lg.Warn("using in-memory store; data is lost on restart")
	default:
		mongo, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
		defer mongo.Close(context.Background())
		if err := mongo.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		rds := repo.NewRedis(cfg.RedisAddr)
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		st, grants = mongo, rds
		checks["redis"] = rds
	}
	checks["store"] = st

	pub := newPublisher(cfg)
	defer pub.Close()
	events := service.Events{Pub: pub, Exchange: cfg.RabbitExchange}

	sender, err := newSender(cfg, pub)
	if err != nil {
		return err
	}

	pictures, uploadDir, err := newStorage(ctx, cfg)
	if err != nil {
		return err
	}

	var keys *security.KeyManager
	if cfg.JWTPrivateKeyPath != "" {
		keys, err = security.NewKeyManager(cfg.JWTKeyID, cfg.JWTPrivateKeyPath, cfg.JWTNextKeyID, cfg.JWTNextKeyPath)
		if err != nil {
			return fmt.Errorf("jwt keys: %w", err)
		}
	}
	tokens := security.NewTokens(cfg.JWTSecret, keys, cfg.TokenTTL())

	recovery := service.NewRecoveryService(st, st, grants, sender, events)
	recovery.OTPTTL, recovery.GrantTTL = cfg.OTPTTL(), cfg.ResetGrantTTL()

	h := &api.Handler{
		Auth:     service.NewAuthService(st, tokens, events, providers(cfg)...),
		Recovery: recovery,
		Todos:    service.NewTodoService(st),
		Profile:  service.NewProfileService(st, pictures, cfg.UploadMaxBytes),
		Tokens:   tokens,
		Checks:   checks,
	}

	metrics.MustRegister()
	docs.SwaggerInfo.BasePath = "/"
	rc := api.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		UploadDir:   uploadDir,
		Metrics:     true,
		Docs:        !cfg.IsProduction(),
	}
	if cfg.DDEnabled {
		rc.Service = serviceName
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(h, rc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()
	lg.Info("listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver), zap.String("mail", cfg.MailDriver))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		lg.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	return srv.Shutdown(shutdownCtx)
}

// newPublisher connects to RabbitMQ. Events are optional, so a broker that is
// down only disables them, unless mail is routed through the queue.
func newPublisher(cfg config.Config) queue.Publisher {
	if cfg.RabbitURL == "" {
		return queue.NewNoop()
	}
	p, err := queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange)
	if err != nil {
		if cfg.MailDriver == "queue" {
			log.L().Fatal("rabbit is required for MAIL_DRIVER=queue", zap.Error(err))
		}
		log.L().Warn("rabbit unavailable, events disabled", zap.Error(err))
		return queue.NewNoop()
	}
	return p
}

func newSender(cfg config.Config, pub queue.Publisher) (mail.Sender, error) {
	switch cfg.MailDriver {
	case "smtp":
		s, err := mail.NewSMTP(mail.SMTPConfig{
			Host: cfg.SMTPHost, Port: cfg.SMTPPort,
			Username: cfg.SMTPUser, Password: cfg.SMTPPass,
			From: cfg.MailFrom,
		})
		if err != nil {
			return nil, fmt.Errorf("smtp: %w", err)
		}
		return s, nil
	case "queue":
		return mail.QueueSender{Pub: pub, Exchange: cfg.RabbitExchange}, nil
	default:
		return mail.LogSender{}, nil
	}
}

// newStorage returns the picture storage and, for disk, the directory to
// serve at /uploads.
func newStorage(ctx context.Context, cfg config.Config) (storage.Storage, string, error) {
	if cfg.UploadDriver == "s3" {
		s, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("s3: %w", err)
		}
		return s, "", nil
	}
	d, err := storage.NewDisk(cfg.UploadDir)
	if err != nil {
		return nil, "", err
	}
	return d, cfg.UploadDir, nil
}

// providers returns the identity providers that have credentials configured.
func providers(cfg config.Config) []oauth.IdentityProvider {
	var out []oauth.IdentityProvider
	if cfg.GoogleClientID != "" {
		out = append(out, oauth.NewGoogle(oauth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURI:  cfg.GoogleRedirectURI,
		}))
	}
	if cfg.GitHubClientID != "" {
		out = append(out, oauth.NewGitHub(oauth.GitHubConfig{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
		}))
	}
	if cfg.FacebookAppID != "" {
		out = append(out, oauth.NewFacebook(oauth.FacebookConfig{
			AppID:       cfg.FacebookAppID,
			AppSecret:   cfg.FacebookAppSecret,
			RedirectURI: cfg.FacebookRedirectURI,
		}))
	}
	for _, p := range out {
		log.L().Info("identity provider enabled", zap.String("provider", string(p.Name())))
	}
	return out
}
