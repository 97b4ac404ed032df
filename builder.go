package goRecover

import (
	"errors"
	"log"

	internalaudit "github.com/MrEthical07/goRecover/internal/audit"
	"github.com/MrEthical07/goRecover/internal/delivery"
	"github.com/MrEthical07/goRecover/internal/limiters"
	"github.com/MrEthical07/goRecover/internal/rate"
	"github.com/MrEthical07/goRecover/internal/stores"
	"github.com/MrEthical07/goRecover/jwt"
	"github.com/MrEthical07/goRecover/mail"
	"github.com/MrEthical07/goRecover/password"
	"github.com/MrEthical07/goRecover/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	repository UserRepository
	mailer     mail.Mailer
	auditSink  AuditSink

	built bool
}

// New returns a Builder holding [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the client backing sessions, recovery tokens, and the
// recovery throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserRepository(repo UserRepository) *Builder {
	b.repository = repo
	return b
}

// WithMailer sets the transport for recovery mail. Without one, messages are
// written to the standard logger with the recovery link masked, so recovery
// cannot be completed.
func (b *Builder) WithMailer(m mail.Mailer) *Builder {
	b.mailer = m
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and starts the audit and mail
// dispatchers. Call [Engine.Close] to drain them.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.repository == nil {
		return nil, errors.New("user repository required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		MinLength:   cfg.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(cfg.Cookie.Secret),
		Issuer:        cfg.Cookie.Issuer,
		Leeway:        cfg.Cookie.Leeway,
	})
	if err != nil {
		return nil, err
	}

	mailer := b.mailer
	if mailer == nil {
		mailer = mail.LogMailer{Logger: log.Default()}
	}

	engine := &Engine{
		config:     cfg,
		redis:      b.redis,
		repository: b.repository,
		hasher:     hasher,
		jwtManager: jm,
		metrics:    NewMetrics(cfg.Metrics),
		sessionStore: session.NewStore(
			b.redis,
			cfg.Session.RedisPrefix,
			cfg.Session.IdleTimeout,
			cfg.Session.SlidingExpiration,
		),
		tokenStore: stores.NewRecoveryTokenStore(b.redis, cfg.Recovery.RedisPrefix),
		limiter: limiters.NewRecoveryLimiter(b.redis, limiters.RecoveryConfig{
			EnableIdentifierThrottle: cfg.Recovery.EnableIdentifierThrottle,
			EnableIPThrottle:         cfg.Recovery.EnableIPThrottle,
			Window:                   cfg.Recovery.Window,
			MaxRequests:              cfg.Recovery.MaxRequests,
			Prefix:                   cfg.Recovery.RateLimitPrefix,
		}),
		loginLimiter: rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.Login.EnableIPThrottle,
			MaxAttempts:      cfg.Login.MaxAttempts,
			Cooldown:         cfg.Login.Cooldown,
			Prefix:           cfg.Login.RedisPrefix,
		}),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}

	engine.delivery = delivery.NewDispatcher(delivery.Config{
		BufferSize:  cfg.Mail.BufferSize,
		DropIfFull:  cfg.Mail.DropIfFull,
		SendTimeout: cfg.Mail.SendTimeout,
	}, mailer, engine.onMailResult)

	engine.flows = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}
