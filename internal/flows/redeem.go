package flows

import (
	"context"
	"errors"
)

type RedeemResult struct {
	Name     string
	Password string
}

type RedeemMetrics struct {
	RecoveryRedeemSuccess int
	RecoveryRedeemInvalid int
	RecoveryRedeemFailure int
}

type RedeemEvents struct {
	RecoveryRedeem string
}

type RedeemErrors struct {
	EngineNotReady            error
	TokenInvalid              error
	SessionInvalidationFailed error
}

type RedeemDeps struct {
	PasswordLength int

	ParseToken     func(string) (string, [32]byte, error)
	ConsumeToken   func(context.Context, string, [32]byte) (RecoveryTokenRecord, error)
	IsTokenInvalid func(error) bool

	FindByName        func(context.Context, string) (RecoveryAccount, error)
	IsAccountNotFound func(error) bool

	GeneratePassword   func(int) (string, error)
	HashPassword       func(string) (string, error)
	DropSessions       func(context.Context, string) (int, error)
	UpdatePasswordHash func(context.Context, string, string) error
	ResetLimiter       func(context.Context, string) error

	Dependency func(op string, err error) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, string, error, func() map[string]string)

	Metrics RedeemMetrics
	Events  RedeemEvents
	Errors  RedeemErrors
}

// RunRedeemRecoveryToken consumes a recovery token and replaces the account's
// password with a generated one. Every session of the account is dropped
// before the new hash is written; if that fails the password is unchanged and
// the token stays consumed.
func RunRedeemRecoveryToken(ctx context.Context, token string, deps RedeemDeps) (RedeemResult, error) {
	normalizeRedeemDeps(&deps)

	if deps.ParseToken == nil || deps.ConsumeToken == nil || deps.FindByName == nil ||
		deps.HashPassword == nil || deps.DropSessions == nil || deps.UpdatePasswordHash == nil {
		return RedeemResult{}, deps.Errors.EngineNotReady
	}

	tokenID, providedHash, err := deps.ParseToken(token)
	if err != nil {
		return RedeemResult{}, invalidRedeem(ctx, deps, "", "parse_failed")
	}

	record, err := deps.ConsumeToken(ctx, tokenID, providedHash)
	if err != nil {
		if deps.IsTokenInvalid(err) {
			return RedeemResult{}, invalidRedeem(ctx, deps, "", "token_not_found")
		}
		return RedeemResult{}, failRedeem(ctx, deps, "", deps.Dependency("consume_token", err), "consume_failed")
	}

	account, err := deps.FindByName(ctx, record.Name)
	if err != nil {
		if deps.IsAccountNotFound(err) {
			return RedeemResult{}, invalidRedeem(ctx, deps, record.Name, "user_not_found")
		}
		return RedeemResult{}, failRedeem(ctx, deps, record.Name, deps.Dependency("find_by_name", err), "lookup_failed")
	}

	generated, err := deps.GeneratePassword(deps.PasswordLength)
	if err != nil {
		return RedeemResult{}, failRedeem(ctx, deps, account.Name, deps.Dependency("generate_password", err), "generate_failed")
	}
	newHash, err := deps.HashPassword(generated)
	if err != nil {
		return RedeemResult{}, failRedeem(ctx, deps, account.Name, deps.Dependency("hash_password", err), "hash_failed")
	}

	if _, err := deps.DropSessions(ctx, account.Name); err != nil {
		joined := errors.Join(deps.Errors.SessionInvalidationFailed, err)
		return RedeemResult{}, failRedeem(ctx, deps, account.Name, deps.Dependency("drop_sessions", joined), "session_invalidation_failed")
	}

	if err := deps.UpdatePasswordHash(ctx, account.Name, newHash); err != nil {
		return RedeemResult{}, failRedeem(ctx, deps, account.Name, deps.Dependency("update_password_hash", err), "update_hash_failed")
	}

	if deps.ResetLimiter != nil {
		_ = deps.ResetLimiter(ctx, account.Name)
	}

	deps.MetricInc(deps.Metrics.RecoveryRedeemSuccess)
	deps.EmitAudit(ctx, deps.Events.RecoveryRedeem, true, account.Name, "", nil, nil)
	return RedeemResult{Name: account.Name, Password: generated}, nil
}

func invalidRedeem(ctx context.Context, deps RedeemDeps, name, reason string) error {
	deps.MetricInc(deps.Metrics.RecoveryRedeemInvalid)
	deps.EmitAudit(ctx, deps.Events.RecoveryRedeem, false, name, "", deps.Errors.TokenInvalid, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return deps.Errors.TokenInvalid
}

func failRedeem(ctx context.Context, deps RedeemDeps, name string, err error, reason string) error {
	deps.MetricInc(deps.Metrics.RecoveryRedeemFailure)
	deps.EmitAudit(ctx, deps.Events.RecoveryRedeem, false, name, "", err, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return err
}

func normalizeRedeemDeps(deps *RedeemDeps) {
	if deps.PasswordLength <= 0 {
		deps.PasswordLength = 16
	}
	if deps.IsTokenInvalid == nil {
		deps.IsTokenInvalid = func(error) bool { return false }
	}
	if deps.IsAccountNotFound == nil {
		deps.IsAccountNotFound = func(error) bool { return false }
	}
	if deps.GeneratePassword == nil {
		deps.GeneratePassword = func(int) (string, error) { return "", errors.New("password generator not configured") }
	}
	if deps.Dependency == nil {
		deps.Dependency = func(_ string, err error) error { return err }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
}
