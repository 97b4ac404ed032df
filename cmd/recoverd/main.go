// Command recoverd serves the password recovery and login pages.
//
// Engine settings come from GORECOVER_* variables; server wiring comes from
// RECOVERD_* variables. A .env file in the working directory is loaded first.
//
// Run a self-contained demo backed by miniredis and an in-memory store:
//
//	go run ./cmd/recoverd -demo
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goRecover "github.com/MrEthical07/goRecover"
	"github.com/MrEthical07/goRecover/mail"
	"github.com/MrEthical07/goRecover/metrics/export/prometheus"
	"github.com/MrEthical07/goRecover/repository/memory"
	"github.com/MrEthical07/goRecover/repository/mongostore"
	"github.com/MrEthical07/goRecover/repository/sqlstore"
	"github.com/MrEthical07/goRecover/web"
	"github.com/alicebob/miniredis/v2"
	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

type serverConfig struct {
	Addr      string   `env:"ADDR"`
	RedisAddr string   `env:"REDIS_ADDR"`
	Store     string   `env:"STORE"`
	StoreDSN  string   `env:"STORE_DSN"`
	MongoDB   string   `env:"MONGO_DB"`
	Origins   []string `env:"CORS_ORIGINS" envSeparator:","`

	SMTPAddr     string `env:"SMTP_ADDR"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

// demoAccounts are created on start in -demo mode.
var demoAccounts = []goRecover.Account{
	{Name: "fakeuser", Email: "fakeuser@example.com"},
	{Name: "forrest", Email: "forrest@example.com"},
	{Name: "forrest2", Email: "forrest@example.com"},
}

func main() {
	demo := flag.Bool("demo", false, "use miniredis and seed demo accounts (password: <name>-password)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("recoverd: load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *demo); err != nil {
		log.Fatalf("recoverd: %v", err)
	}
}

func run(ctx context.Context, demo bool) error {
	srv := serverConfig{Addr: ":8080", Store: "memory", MongoDB: "recover"}
	if err := env.ParseWithOptions(&srv, env.Options{Prefix: "RECOVERD_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	cfg, err := goRecover.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	if demo && cfg.Cookie.Secret == "" {
		cfg.Cookie.Secret = "demo-secret-demo-secret-demo-secret"
	}

	mailer, err := newMailer(srv, demo)
	if err != nil {
		return err
	}

	rdb, closeRedis, err := openRedis(srv.RedisAddr, demo)
	if err != nil {
		return err
	}
	defer closeRedis()

	repo, closeRepo, err := openRepository(ctx, srv)
	if err != nil {
		return err
	}
	defer closeRepo()

	engine, err := goRecover.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserRepository(repo).
		WithMailer(mailer).
		WithAuditSink(auditSink(os.Stdout)).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	if demo {
		if err := seed(ctx, engine, repo); err != nil {
			return err
		}
	}

	opts := web.OptionsFromConfig(cfg, engine)
	opts.Metrics = prometheus.NewExporter(engine).Handler()

	root := chi.NewRouter()
	if len(srv.Origins) > 0 {
		root.Use(cors.Handler(cors.Options{
			AllowedOrigins:   srv.Origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	root.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := engine.Ping(r.Context()); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ok")
	})
	root.Mount("/", web.NewRouter(opts))

	server := &http.Server{
		Addr:              srv.Addr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("recoverd: listening on %s (store=%s)", srv.Addr, srv.Store)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openRedis(addr string, demo bool) (redis.UniversalClient, func(), error) {
	if addr == "" {
		if !demo {
			return nil, nil, errors.New("RECOVERD_REDIS_ADDR is required outside -demo")
		}
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		log.Printf("recoverd: using miniredis at %s", addr)
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	return client, func() { _ = client.Close() }, nil
}

type repository interface {
	goRecover.UserRepository
	Create(ctx context.Context, account goRecover.Account) error
}

func openRepository(ctx context.Context, srv serverConfig) (repository, func(), error) {
	switch srv.Store {
	case "memory":
		return memory.New(), func() {}, nil
	case "sqlite", "postgres":
		store, err := sqlstore.Open(ctx, sqlstore.Dialect(srv.Store), srv.StoreDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "mongo":
		store, client, err := mongostore.Connect(ctx, srv.StoreDSN, srv.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown RECOVERD_STORE %q", srv.Store)
	}
}

// newMailer requires SMTP outside -demo. The demo prints recovery links to
// the log so they can be followed locally.
// auditSink writes every event to w as JSON and repeats backend failures on
// the process log so they surface next to request errors.
func auditSink(w io.Writer) goRecover.AuditSink {
	return goRecover.AuditTee(
		goRecover.NewAuditJSONLines(w),
		goRecover.AuditByOutcome{
			goRecover.OutcomeFailed: goRecover.AuditSinkFunc(func(_ context.Context, ev goRecover.AuditEvent) {
				log.Printf("recoverd: %s failed for %q: %s", ev.Action, ev.Name, ev.Code)
			}),
		},
	)
}

func newMailer(srv serverConfig, demo bool) (mail.Mailer, error) {
	if srv.SMTPAddr == "" {
		if !demo {
			return nil, errors.New("RECOVERD_SMTP_ADDR is required outside -demo")
		}
		log.Printf("recoverd: demo mode prints recovery links to the log")
		return mail.LogMailer{RevealSecrets: true}, nil
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Addr:     srv.SMTPAddr,
		From:     srv.SMTPFrom,
		Username: srv.SMTPUser,
		Password: srv.SMTPPassword,
	})
}

func seed(ctx context.Context, engine *goRecover.Engine, repo repository) error {
	for _, account := range demoAccounts {
		hash, err := engine.HashPassword(account.Name + "-password")
		if err != nil {
			return err
		}
		account.PasswordHash = hash
		if err := repo.Create(ctx, account); err != nil && !errors.Is(err, goRecover.ErrAccountExists) {
			return fmt.Errorf("seed %s: %w", account.Name, err)
		}
	}
	return nil
}
