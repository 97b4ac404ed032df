package goRecover

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goRecover/internal"
	internalflows "github.com/MrEthical07/goRecover/internal/flows"
	"github.com/MrEthical07/goRecover/internal/limiters"
	"github.com/MrEthical07/goRecover/internal/stores"
	"github.com/MrEthical07/goRecover/mail"
	"github.com/MrEthical07/goRecover/password"
)

// RequestRecovery handles a POST /forgot submission. It either issues a
// recovery token and queues mail to the account, or returns the names of
// every account sharing the submitted email so the caller can pick one.
//
// Errors are classified by [KindOf]: validation and not-found failures
// never issue a token.
func (e *Engine) RequestRecovery(ctx context.Context, req RecoveryRequest) (RecoveryResult, error) {
	if e == nil {
		return RecoveryResult{}, ErrEngineNotReady
	}

	start := time.Now()
	res, err := internalflows.RunRequestRecovery(ctx, internalflows.RecoveryRequest{
		NameEmail:    req.NameEmail,
		SelectedName: req.SelectedName,
	}, e.flows.Recovery)
	e.metrics.Observe(MetricRecoveryLatency, time.Since(start))
	if err != nil {
		return RecoveryResult{}, err
	}

	return RecoveryResult{
		Users:  res.Users,
		Issued: res.Issued,
		Name:   res.Name,
		Email:  res.Email,
	}, nil
}

// RedeemRecoveryToken consumes token and replaces the account's password with
// a generated one, returned once in the result. Every session of the account
// is dropped first. Unknown, expired, or reused tokens return
// [ErrRecoveryTokenInvalid].
func (e *Engine) RedeemRecoveryToken(ctx context.Context, token string) (RedeemResult, error) {
	if e == nil {
		return RedeemResult{}, ErrEngineNotReady
	}

	res, err := internalflows.RunRedeemRecoveryToken(ctx, token, e.flows.Redeem)
	if err != nil {
		return RedeemResult{}, err
	}
	return RedeemResult{Name: res.Name, Password: res.Password}, nil
}

func (e *Engine) recoveryFlowDeps() internalflows.RecoveryDeps {
	cfg := e.config

	return internalflows.RecoveryDeps{
		TokenTTL:            cfg.Recovery.TokenTTL,
		BaseURL:             cfg.Recovery.BaseURL,
		ClientIPFromContext: clientIPFromContext,
		Now:                 time.Now,
		FindByName:          e.findByName,
		FindByEmail:         e.findByEmail,
		IsAccountNotFound:   isAccountNotFound,
		CheckLimiter:        e.limiter.Check,
		MapLimiterError:     mapRecoveryLimiterError,
		GenerateToken: func() (string, [32]byte, string, error) {
			id, secret, token, err := internal.NewRecoveryToken()
			if err != nil {
				return "", [32]byte{}, "", err
			}
			return id.String(), internal.HashTokenSecret(secret), token, nil
		},
		SaveToken: func(ctx context.Context, tokenID string, record internalflows.RecoveryTokenRecord, ttl time.Duration) error {
			return e.tokenStore.Save(ctx, tokenID, &stores.RecoveryTokenRecord{
				Name:       record.Name,
				SecretHash: record.SecretHash,
				ExpiresAt:  record.ExpiresAt,
			}, ttl)
		},
		EnqueueMail: func(ctx context.Context, to, name, link string) bool {
			return e.delivery.Enqueue(ctx, mail.RecoveryMessage(to, name, link, cfg.Recovery.TokenTTL))
		},
		NotFound:      newNotFoundError,
		Dependency:    newDependencyError,
		MetricInc:     func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,
		Metrics: internalflows.RecoveryMetrics{
			RecoveryRequest:        int(MetricRecoveryRequest),
			RecoveryIssued:         int(MetricRecoveryIssued),
			RecoveryDisambiguation: int(MetricRecoveryDisambiguation),
			RecoveryRejected:       int(MetricRecoveryRejected),
			RecoveryRateLimited:    int(MetricRecoveryRateLimited),
			RecoveryFailure:        int(MetricRecoveryFailure),
			RecoveryMailDropped:    int(MetricRecoveryMailDropped),
		},
		Events: internalflows.RecoveryEvents{
			RecoveryRequest: auditEventRecoveryRequest,
			RecoveryIssued:  auditEventRecoveryIssued,
		},
		Errors: internalflows.RecoveryErrors{
			EngineNotReady:    ErrEngineNotReady,
			FieldsRequired:    ErrFieldsRequired,
			InvalidIdentifier: ErrInvalidIdentifier,
			NoEmail:           ErrNoEmail,
			InvalidEmail:      ErrInvalidEmail,
			RateLimited:       ErrRecoveryRateLimited,
		},
	}
}

func (e *Engine) redeemFlowDeps() internalflows.RedeemDeps {
	return internalflows.RedeemDeps{
		PasswordLength: e.config.Recovery.GeneratedPassword,
		ParseToken: func(token string) (string, [32]byte, error) {
			id, secret, err := internal.DecodeRecoveryToken(token)
			if err != nil {
				return "", [32]byte{}, err
			}
			return id.String(), internal.HashTokenSecret(secret), nil
		},
		ConsumeToken: func(ctx context.Context, tokenID string, hash [32]byte) (internalflows.RecoveryTokenRecord, error) {
			record, err := e.tokenStore.Consume(ctx, tokenID, hash)
			if err != nil {
				return internalflows.RecoveryTokenRecord{}, err
			}
			return internalflows.RecoveryTokenRecord{
				Name:       record.Name,
				SecretHash: record.SecretHash,
				ExpiresAt:  record.ExpiresAt,
			}, nil
		},
		IsTokenInvalid: func(err error) bool {
			return errors.Is(err, stores.ErrTokenNotFound) || errors.Is(err, stores.ErrTokenSecretMismatch)
		},
		FindByName:         e.findByName,
		IsAccountNotFound:  isAccountNotFound,
		GeneratePassword:   password.Generate,
		HashPassword:       e.hasher.Hash,
		DropSessions:       e.dropSessions,
		UpdatePasswordHash: e.repository.UpdatePasswordHash,
		ResetLimiter:       e.limiter.Reset,
		Dependency:         newDependencyError,
		MetricInc:          func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:          e.emitAudit,
		Metrics: internalflows.RedeemMetrics{
			RecoveryRedeemSuccess: int(MetricRecoveryRedeemSuccess),
			RecoveryRedeemInvalid: int(MetricRecoveryRedeemInvalid),
			RecoveryRedeemFailure: int(MetricRecoveryRedeemFailure),
		},
		Events: internalflows.RedeemEvents{
			RecoveryRedeem: auditEventRecoveryRedeem,
		},
		Errors: internalflows.RedeemErrors{
			EngineNotReady:            ErrEngineNotReady,
			TokenInvalid:              ErrRecoveryTokenInvalid,
			SessionInvalidationFailed: ErrSessionInvalidationFailed,
		},
	}
}

func mapRecoveryLimiterError(err error) error {
	if errors.Is(err, limiters.ErrRecoveryRateLimited) {
		return ErrRecoveryRateLimited
	}
	return newDependencyError("rate_limit", err)
}
