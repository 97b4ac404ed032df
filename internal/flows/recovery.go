package flows

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/MrEthical07/goRecover/identifier"
)

var errMailNotEnqueued = errors.New("recovery mail not enqueued")

// RecoveryAccount is the slice of an account the recovery flows need.
type RecoveryAccount struct {
	Name         string
	Email        string
	PasswordHash string
}

type RecoveryRequest struct {
	NameEmail    string
	SelectedName string
}

// RecoveryResult is either a disambiguation list (Users non-empty) or an
// issued token (Issued true). Both are successful outcomes.
type RecoveryResult struct {
	Users  []string
	Issued bool
	Name   string
	Email  string
}

// RecoveryTokenRecord is what the token store persists for one token.
type RecoveryTokenRecord struct {
	Name       string
	SecretHash [32]byte
	ExpiresAt  int64
}

type RecoveryMetrics struct {
	RecoveryRequest        int
	RecoveryIssued         int
	RecoveryDisambiguation int
	RecoveryRejected       int
	RecoveryRateLimited    int
	RecoveryFailure        int
	RecoveryMailDropped    int
}

type RecoveryEvents struct {
	RecoveryRequest string
	RecoveryIssued  string
}

type RecoveryErrors struct {
	EngineNotReady    error
	FieldsRequired    error
	InvalidIdentifier error
	NoEmail           error
	InvalidEmail      error
	RateLimited       error
}

type RecoveryDeps struct {
	TokenTTL time.Duration
	BaseURL  string

	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time

	FindByName        func(context.Context, string) (RecoveryAccount, error)
	FindByEmail       func(context.Context, string) ([]RecoveryAccount, error)
	IsAccountNotFound func(error) bool

	CheckLimiter    func(context.Context, string, string) error
	MapLimiterError func(error) error

	GenerateToken func() (string, [32]byte, string, error)
	SaveToken     func(context.Context, string, RecoveryTokenRecord, time.Duration) error
	EnqueueMail   func(ctx context.Context, to, name, link string) bool

	NotFound   func(message string, status int) error
	Dependency func(op string, err error) error

	MetricInc     func(int)
	EmitAudit     func(context.Context, string, bool, string, string, error, func() map[string]string)
	EmitRateLimit func(context.Context, string, error, func() map[string]string)

	Metrics RecoveryMetrics
	Events  RecoveryEvents
	Errors  RecoveryErrors
}

// RunRequestRecovery resolves the submitted identifier to exactly one account
// and issues a recovery token for it, or returns the candidate names when an
// email matches several accounts. Failures before the issue step have no side
// effects.
func RunRequestRecovery(ctx context.Context, req RecoveryRequest, deps RecoveryDeps) (RecoveryResult, error) {
	normalizeRecoveryDeps(&deps)

	if deps.FindByName == nil || deps.FindByEmail == nil || deps.GenerateToken == nil || deps.SaveToken == nil {
		return RecoveryResult{}, deps.Errors.EngineNotReady
	}
	deps.MetricInc(deps.Metrics.RecoveryRequest)

	if selected := strings.TrimSpace(req.SelectedName); selected != "" {
		return recoverByName(ctx, selected, deps)
	}

	classified := identifier.Classify(req.NameEmail)
	switch classified.Kind {
	case identifier.KindUsername:
		return recoverByName(ctx, classified.Value, deps)
	case identifier.KindEmail:
		return recoverByEmail(ctx, classified.Value, deps)
	}

	err := deps.Errors.InvalidIdentifier
	if classified.Reason == identifier.ReasonEmpty {
		err = deps.Errors.FieldsRequired
	}
	return RecoveryResult{}, rejectRecovery(ctx, deps, "", err, classified.Reason.String())
}

func recoverByName(ctx context.Context, name string, deps RecoveryDeps) (RecoveryResult, error) {
	account, err := deps.FindByName(ctx, name)
	if err != nil {
		if deps.IsAccountNotFound(err) {
			return RecoveryResult{}, rejectRecovery(ctx, deps, name, deps.NotFound("user "+name+" not found", 404), "user_not_found")
		}
		return RecoveryResult{}, failRecovery(ctx, deps, name, deps.Dependency("find_by_name", err))
	}

	return issueRecovery(ctx, account, deps)
}

func recoverByEmail(ctx context.Context, email string, deps RecoveryDeps) (RecoveryResult, error) {
	accounts, err := deps.FindByEmail(ctx, email)
	if err != nil && !deps.IsAccountNotFound(err) {
		return RecoveryResult{}, failRecovery(ctx, deps, "", deps.Dependency("find_by_email", err))
	}

	switch len(accounts) {
	case 0:
		return RecoveryResult{}, rejectRecovery(ctx, deps, "", deps.NotFound("No user found with email address "+email, 400), "email_not_found")
	case 1:
		return issueRecovery(ctx, accounts[0], deps)
	}

	seen := make(map[string]struct{}, len(accounts))
	names := make([]string, 0, len(accounts))
	for _, account := range accounts {
		if _, ok := seen[account.Name]; ok {
			continue
		}
		seen[account.Name] = struct{}{}
		names = append(names, account.Name)
	}
	sort.Strings(names)

	deps.MetricInc(deps.Metrics.RecoveryDisambiguation)
	deps.EmitAudit(ctx, deps.Events.RecoveryRequest, true, "", "", nil, func() map[string]string {
		return map[string]string{
			"result": "disambiguation",
		}
	})
	return RecoveryResult{Users: names}, nil
}

func issueRecovery(ctx context.Context, account RecoveryAccount, deps RecoveryDeps) (RecoveryResult, error) {
	switch {
	case strings.TrimSpace(account.Email) == "":
		return RecoveryResult{}, rejectRecovery(ctx, deps, account.Name, deps.Errors.NoEmail, "no_email")
	case !identifier.ValidEmail(account.Email):
		return RecoveryResult{}, rejectRecovery(ctx, deps, account.Name, deps.Errors.InvalidEmail, "invalid_email")
	}

	if deps.CheckLimiter != nil {
		if err := deps.CheckLimiter(ctx, account.Name, deps.ClientIPFromContext(ctx)); err != nil {
			mapped := deps.MapLimiterError(err)
			if errors.Is(mapped, deps.Errors.RateLimited) {
				deps.MetricInc(deps.Metrics.RecoveryRateLimited)
				deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, account.Name, "", mapped, nil)
				deps.EmitRateLimit(ctx, "recovery_request", mapped, func() map[string]string {
					return map[string]string{
						"name": account.Name,
					}
				})
				return RecoveryResult{}, mapped
			}
			return RecoveryResult{}, failRecovery(ctx, deps, account.Name, mapped)
		}
	}

	tokenID, secretHash, token, err := deps.GenerateToken()
	if err != nil {
		return RecoveryResult{}, failRecovery(ctx, deps, account.Name, deps.Dependency("generate_token", err))
	}

	record := RecoveryTokenRecord{
		Name:       account.Name,
		SecretHash: secretHash,
		ExpiresAt:  deps.Now().Add(deps.TokenTTL).Unix(),
	}
	if err := deps.SaveToken(ctx, tokenID, record, deps.TokenTTL); err != nil {
		return RecoveryResult{}, failRecovery(ctx, deps, account.Name, deps.Dependency("save_token", err))
	}

	link := strings.TrimRight(deps.BaseURL, "/") + "/forgot/" + token
	if !deps.EnqueueMail(ctx, account.Email, account.Name, link) {
		deps.MetricInc(deps.Metrics.RecoveryMailDropped)
		deps.EmitAudit(ctx, deps.Events.RecoveryIssued, false, account.Name, "", deps.Dependency("enqueue_mail", errMailNotEnqueued), func() map[string]string {
			return map[string]string{
				"reason": "mail_not_enqueued",
			}
		})
	}

	deps.MetricInc(deps.Metrics.RecoveryIssued)
	deps.EmitAudit(ctx, deps.Events.RecoveryIssued, true, account.Name, "", nil, nil)
	return RecoveryResult{Issued: true, Name: account.Name, Email: account.Email}, nil
}

func rejectRecovery(ctx context.Context, deps RecoveryDeps, name string, err error, reason string) error {
	deps.MetricInc(deps.Metrics.RecoveryRejected)
	deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, name, "", err, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return err
}

func failRecovery(ctx context.Context, deps RecoveryDeps, name string, err error) error {
	deps.MetricInc(deps.Metrics.RecoveryFailure)
	deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, name, "", err, nil)
	return err
}

func normalizeRecoveryDeps(deps *RecoveryDeps) {
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = time.Hour
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.IsAccountNotFound == nil {
		deps.IsAccountNotFound = func(error) bool { return false }
	}
	if deps.MapLimiterError == nil {
		deps.MapLimiterError = func(err error) error { return deps.Dependency("rate_limit", err) }
	}
	if deps.EnqueueMail == nil {
		deps.EnqueueMail = func(context.Context, string, string, string) bool { return false }
	}
	if deps.NotFound == nil {
		deps.NotFound = func(message string, _ int) error { return errors.New(message) }
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
	if deps.EmitRateLimit == nil {
		deps.EmitRateLimit = func(context.Context, string, error, func() map[string]string) {}
	}
}
