package goRecover

import (
	"context"
	"errors"
	"log"
	"time"

	internalaudit "github.com/MrEthical07/goRecover/internal/audit"
	"github.com/MrEthical07/goRecover/internal/delivery"
	internalflows "github.com/MrEthical07/goRecover/internal/flows"
	"github.com/MrEthical07/goRecover/internal/limiters"
	"github.com/MrEthical07/goRecover/internal/rate"
	"github.com/MrEthical07/goRecover/internal/stores"
	"github.com/MrEthical07/goRecover/jwt"
	"github.com/MrEthical07/goRecover/password"
	"github.com/MrEthical07/goRecover/session"
	"github.com/redis/go-redis/v9"
)

// Engine runs recovery, password change, and session operations. Create one
// with [Builder.Build]; methods are safe for concurrent use.
type Engine struct {
	config       Config
	redis        redis.UniversalClient
	repository   UserRepository
	sessionStore *session.Store
	tokenStore   *stores.RecoveryTokenStore
	limiter      *limiters.RecoveryLimiter
	loginLimiter *rate.Limiter
	audit        *internalaudit.Dispatcher
	delivery     *delivery.Dispatcher
	metrics      *Metrics
	hasher       *password.Hasher
	jwtManager   *jwt.Manager

	flows internalflows.Deps
}

// Close drains queued mail and audit events. The engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.delivery != nil {
		e.delivery.Close()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MailDropped returns the number of recovery messages discarded because the
// delivery queue was full.
func (e *Engine) MailDropped() uint64 {
	if e == nil || e.delivery == nil {
		return 0
	}
	return e.delivery.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

// Ping checks Redis and returns its round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	d, err := e.sessionStore.Ping(ctx)
	if err != nil {
		return d, newDependencyError("ping", err)
	}
	return d, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) onMailResult(res delivery.Result) {
	if res.Err == nil {
		e.metricInc(MetricRecoveryMailSent)
		e.emitAudit(context.Background(), auditEventRecoveryMail, true, "", "", nil, nil)
		return
	}

	e.metricInc(MetricRecoveryMailFailed)
	log.Printf("goRecover: recovery mail delivery failed: %v", res.Err)
	e.emitAudit(context.Background(), auditEventRecoveryMail, false, "", "", newDependencyError("send_mail", res.Err), nil)
}

func (e *Engine) buildFlowDeps() internalflows.Deps {
	return internalflows.Deps{
		Recovery:       e.recoveryFlowDeps(),
		Redeem:         e.redeemFlowDeps(),
		PasswordChange: e.passwordChangeFlowDeps(),
		Login:          e.loginFlowDeps(),
		Logout:         e.logoutFlowDeps(),
	}
}

func (e *Engine) findByName(ctx context.Context, name string) (internalflows.RecoveryAccount, error) {
	account, err := e.repository.FindByName(ctx, name)
	if err != nil {
		return internalflows.RecoveryAccount{}, err
	}
	return toFlowAccount(account), nil
}

func (e *Engine) findByEmail(ctx context.Context, email string) ([]internalflows.RecoveryAccount, error) {
	accounts, err := e.repository.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]internalflows.RecoveryAccount, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, toFlowAccount(account))
	}
	return out, nil
}

// dropSessions removes every session of name and counts them.
func (e *Engine) dropSessions(ctx context.Context, name string) (int, error) {
	n, err := e.sessionStore.DropUser(ctx, name)
	if n > 0 {
		e.metrics.Add(MetricSessionInvalidated, uint64(n))
	}
	return n, err
}

func toFlowAccount(account Account) internalflows.RecoveryAccount {
	return internalflows.RecoveryAccount{
		Name:         account.Name,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
	}
}

func isAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
