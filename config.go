package goRecover

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every environment variable read by [LoadConfigFromEnv].
const EnvPrefix = "GORECOVER_"

// Config is the complete engine configuration. Start from [DefaultConfig]
// and override what differs.
type Config struct {
	Recovery RecoveryConfig `envPrefix:"RECOVERY_"`
	Session  SessionConfig  `envPrefix:"SESSION_"`
	Login    LoginConfig    `envPrefix:"LOGIN_"`
	Password PasswordConfig `envPrefix:"PASSWORD_"`
	Cookie   CookieConfig   `envPrefix:"COOKIE_"`
	Audit    AuditConfig    `envPrefix:"AUDIT_"`
	Metrics  MetricsConfig  `envPrefix:"METRICS_"`
	Mail     MailConfig     `envPrefix:"MAIL_"`
}

/*
====================================
RECOVERY CONFIG
====================================
*/

// RecoveryConfig controls token issuance and the request throttle.
type RecoveryConfig struct {
	// BaseURL is the public origin recovery links are built on.
	BaseURL           string        `env:"BASE_URL"`
	TokenTTL          time.Duration `env:"TOKEN_TTL"`
	GeneratedPassword int           `env:"GENERATED_PASSWORD_LENGTH"`
	RedisPrefix       string        `env:"REDIS_PREFIX"`

	EnableIdentifierThrottle bool          `env:"IDENTIFIER_THROTTLE"`
	EnableIPThrottle         bool          `env:"IP_THROTTLE"`
	MaxRequests              int           `env:"MAX_REQUESTS"`
	Window                   time.Duration `env:"WINDOW"`
	RateLimitPrefix          string        `env:"RATE_LIMIT_PREFIX"`
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	RedisPrefix       string        `env:"REDIS_PREFIX"`
	Lifetime          time.Duration `env:"LIFETIME"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT"`
	SlidingExpiration bool          `env:"SLIDING"`
}

// LoginConfig throttles failed logins. MaxAttempts 0 disables it.
type LoginConfig struct {
	MaxAttempts      int           `env:"MAX_ATTEMPTS"`
	Cooldown         time.Duration `env:"COOLDOWN"`
	EnableIPThrottle bool          `env:"IP_THROTTLE"`
	RedisPrefix      string        `env:"REDIS_PREFIX"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id costs and the new-password policy.
type PasswordConfig struct {
	Memory         uint32 `env:"MEMORY_KB"`
	Time           uint32 `env:"TIME"`
	Parallelism    uint8  `env:"PARALLELISM"`
	SaltLength     uint32 `env:"SALT_LENGTH"`
	KeyLength      uint32 `env:"KEY_LENGTH"`
	MinLength      int    `env:"MIN_LENGTH"`
	UpgradeOnLogin bool   `env:"UPGRADE_ON_LOGIN"`
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig names the session and crumb cookies and keys the session
// token signature. Secret must be at least 32 bytes.
type CookieConfig struct {
	SessionName string        `env:"SESSION_NAME"`
	CrumbName   string        `env:"CRUMB_NAME"`
	Secret      string        `env:"SECRET"`
	Issuer      string        `env:"ISSUER"`
	Leeway      time.Duration `env:"LEEWAY"`
	Secure      bool          `env:"SECURE"`
}

type AuditConfig struct {
	Enabled    bool `env:"ENABLED"`
	BufferSize int  `env:"BUFFER_SIZE"`
	DropIfFull bool `env:"DROP_IF_FULL"`
}

type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED"`
	EnableLatencyHistograms bool `env:"LATENCY_HISTOGRAMS"`
}

// MailConfig controls the asynchronous delivery queue. The transport itself
// is supplied through [Builder.WithMailer].
type MailConfig struct {
	BufferSize  int           `env:"BUFFER_SIZE"`
	DropIfFull  bool          `env:"DROP_IF_FULL"`
	SendTimeout time.Duration `env:"SEND_TIMEOUT"`
}

// DefaultConfig returns the production defaults. Cookie.Secret is empty and
// must be set before Build.
func DefaultConfig() Config {
	return Config{
		Recovery: RecoveryConfig{
			BaseURL:                  "http://localhost:8080",
			TokenTTL:                 time.Hour,
			GeneratedPassword:        16,
			RedisPrefix:              "rtok",
			EnableIdentifierThrottle: true,
			EnableIPThrottle:         true,
			MaxRequests:              5,
			Window:                   time.Hour,
			RateLimitPrefix:          "rrl",
		},
		Session: SessionConfig{
			RedisPrefix:       "sess",
			Lifetime:          24 * time.Hour,
			IdleTimeout:       2 * time.Hour,
			SlidingExpiration: true,
		},
		Login: LoginConfig{
			MaxAttempts:      10,
			Cooldown:         15 * time.Minute,
			EnableIPThrottle: true,
			RedisPrefix:      "lrl",
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      10,
			UpgradeOnLogin: true,
		},
		Cookie: CookieConfig{
			SessionName: "session",
			CrumbName:   "crumb",
			Issuer:      "goRecover",
			Secure:      true,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Mail: MailConfig{
			BufferSize:  256,
			DropIfFull:  true,
			SendTimeout: 30 * time.Second,
		},
	}
}

// LoadConfigFromEnv overlays GORECOVER_* environment variables on
// [DefaultConfig]. Unset variables keep their default.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Recovery
	u, err := url.Parse(c.Recovery.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("Recovery BaseURL must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("Recovery BaseURL must use http or https")
	}
	if c.Recovery.TokenTTL <= 0 {
		return errors.New("Recovery TokenTTL must be > 0")
	}
	if c.Recovery.TokenTTL > 7*24*time.Hour {
		return errors.New("Recovery TokenTTL must be <= 168h")
	}
	if c.Recovery.GeneratedPassword < c.Password.MinLength || c.Recovery.GeneratedPassword > 128 {
		return errors.New("Recovery GeneratedPassword length must be between Password MinLength and 128")
	}
	if c.Recovery.MaxRequests < 0 {
		return errors.New("Recovery MaxRequests must be >= 0")
	}
	if c.Recovery.MaxRequests > 0 && c.Recovery.Window <= 0 {
		return errors.New("Recovery Window must be > 0 when MaxRequests is set")
	}
	if strings.TrimSpace(c.Recovery.RedisPrefix) == "" || strings.TrimSpace(c.Recovery.RateLimitPrefix) == "" {
		return errors.New("Recovery redis prefixes must not be empty")
	}
	if !distinct(c.Recovery.RedisPrefix, c.Recovery.RateLimitPrefix, c.Session.RedisPrefix, c.Login.RedisPrefix) {
		return errors.New("redis prefixes must be distinct")
	}

	// Session
	if strings.TrimSpace(c.Session.RedisPrefix) == "" {
		return errors.New("Session RedisPrefix must not be empty")
	}
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}
	if c.Session.IdleTimeout <= 0 {
		return errors.New("Session IdleTimeout must be > 0")
	}
	if c.Session.IdleTimeout > c.Session.Lifetime {
		return errors.New("Session IdleTimeout must be <= Lifetime")
	}

	// Login
	if c.Login.MaxAttempts < 0 {
		return errors.New("Login MaxAttempts must be >= 0")
	}
	if c.Login.MaxAttempts > 0 && c.Login.Cooldown <= 0 {
		return errors.New("Login Cooldown must be > 0 when MaxAttempts is set")
	}
	if strings.TrimSpace(c.Login.RedisPrefix) == "" {
		return errors.New("Login RedisPrefix must not be empty")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}

	// Cookie
	if c.Cookie.SessionName == "" || c.Cookie.CrumbName == "" {
		return errors.New("Cookie names must not be empty")
	}
	if c.Cookie.SessionName == c.Cookie.CrumbName {
		return errors.New("Cookie SessionName and CrumbName must differ")
	}
	if len(c.Cookie.Secret) < 32 {
		return errors.New("Cookie Secret must be at least 32 bytes")
	}
	if c.Cookie.Leeway < 0 || c.Cookie.Leeway > 2*time.Minute {
		return errors.New("Cookie Leeway must be between 0 and 2m")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Mail
	if c.Mail.BufferSize <= 0 {
		return errors.New("Mail BufferSize must be > 0")
	}
	if c.Mail.SendTimeout <= 0 {
		return errors.New("Mail SendTimeout must be > 0")
	}

	return nil
}

func distinct(values ...string) bool {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return false
		}
		seen[v] = struct{}{}
	}
	return true
}
