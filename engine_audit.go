package goRecover

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRecoveryRequest          = "recovery_request"
	auditEventRecoveryIssued           = "recovery_issued"
	auditEventRecoveryRedeem           = "recovery_redeem"
	auditEventRecoveryMail             = "recovery_mail"
	auditEventPasswordChangeSuccess    = "password_change_success"
	auditEventPasswordChangeInvalidOld = "password_change_invalid_old"
	auditEventPasswordChangeFailure    = "password_change_failure"
	auditEventLoginSuccess             = "login_success"
	auditEventLoginFailure             = "login_failure"
	auditEventLogoutSession            = "logout_session"
	auditEventRateLimitTriggered       = "rate_limit_triggered"
)

// AuditErrorCode is the stable error label written to [AuditEvent.Code].
type AuditErrorCode string

const (
	auditErrUnauthorized        AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrUserNotFound        AuditErrorCode = "user_not_found"
	auditErrInvalidInput        AuditErrorCode = "invalid_input"
	auditErrNoEmail             AuditErrorCode = "no_email"
	auditErrInvalidEmail        AuditErrorCode = "invalid_email"
	auditErrCurrentPassword     AuditErrorCode = "current_password"
	auditErrPasswordPolicy      AuditErrorCode = "password_policy"
	auditErrSessionInvalidation AuditErrorCode = "session_invalidation_failed"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	name string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	code := auditErrorCode(err)
	e.audit.Emit(ctx, AuditEvent{
		Time:      time.Now().UTC(),
		Action:    eventType,
		Outcome:   auditOutcome(success, code),
		Name:      name,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Code:      string(code),
		Details:   metadata,
	})
}

// auditOutcome buckets an error code. Backend trouble is failed, limiter
// refusals are throttled, every other refusal is rejected.
func auditOutcome(success bool, code AuditErrorCode) AuditOutcome {
	switch {
	case success:
		return OutcomeSucceeded
	case code == auditErrRateLimited:
		return OutcomeThrottled
	case code == auditErrUnavailable, code == auditErrInternal, code == auditErrSessionInvalidation:
		return OutcomeFailed
	default:
		return OutcomeRejected
	}
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	cause error,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", cause, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrSessionInvalidationFailed):
		return auditErrSessionInvalidation
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRecoveryRateLimited), errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrRecoveryTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrAccountNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrNoEmail):
		return auditErrNoEmail
	case errors.Is(err, ErrInvalidEmail):
		return auditErrInvalidEmail
	case errors.Is(err, ErrCurrentPassword):
		return auditErrCurrentPassword
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrFieldsRequired),
		errors.Is(err, ErrInvalidIdentifier),
		errors.Is(err, ErrPasswordMismatch):
		return auditErrInvalidInput
	}

	var dep *DependencyError
	if errors.As(err, &dep) {
		return auditErrUnavailable
	}
	return auditErrInternal
}
