package internaldefs

import (
	goRecover "github.com/MrEthical07/goRecover"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goRecover.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   goRecover.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goRecover.MetricRecoveryRequest, Name: "gorecover_recovery_request_total", Help: "Recovery form submissions."},
	{ID: goRecover.MetricRecoveryIssued, Name: "gorecover_recovery_issued_total", Help: "Recovery tokens issued."},
	{ID: goRecover.MetricRecoveryDisambiguation, Name: "gorecover_recovery_disambiguation_total", Help: "Email submissions matching several accounts."},
	{ID: goRecover.MetricRecoveryRejected, Name: "gorecover_recovery_rejected_total", Help: "Recovery requests rejected for invalid input or unknown users."},
	{ID: goRecover.MetricRecoveryRateLimited, Name: "gorecover_recovery_rate_limited_total", Help: "Recovery requests denied by the throttle."},
	{ID: goRecover.MetricRecoveryFailure, Name: "gorecover_recovery_failure_total", Help: "Recovery requests failed by a backend."},
	{ID: goRecover.MetricRecoveryMailDropped, Name: "gorecover_recovery_mail_dropped_total", Help: "Recovery mail not queued."},
	{ID: goRecover.MetricRecoveryMailSent, Name: "gorecover_recovery_mail_sent_total", Help: "Recovery mail delivered to the transport."},
	{ID: goRecover.MetricRecoveryMailFailed, Name: "gorecover_recovery_mail_failed_total", Help: "Recovery mail the transport refused."},
	{ID: goRecover.MetricRecoveryRedeemSuccess, Name: "gorecover_recovery_redeem_success_total", Help: "Recovery tokens redeemed."},
	{ID: goRecover.MetricRecoveryRedeemInvalid, Name: "gorecover_recovery_redeem_invalid_total", Help: "Unknown, expired, or reused recovery tokens."},
	{ID: goRecover.MetricRecoveryRedeemFailure, Name: "gorecover_recovery_redeem_failure_total", Help: "Redemptions failed by a backend."},
	{ID: goRecover.MetricPasswordChangeSuccess, Name: "gorecover_password_change_success_total", Help: "Successful password changes."},
	{ID: goRecover.MetricPasswordChangeInvalidOld, Name: "gorecover_password_change_invalid_old_total", Help: "Password changes with a wrong current password."},
	{ID: goRecover.MetricPasswordChangeRejected, Name: "gorecover_password_change_rejected_total", Help: "Password changes rejected for invalid input."},
	{ID: goRecover.MetricPasswordChangeFailure, Name: "gorecover_password_change_failure_total", Help: "Password changes failed by a backend."},
	{ID: goRecover.MetricLoginSuccess, Name: "gorecover_login_success_total", Help: "Successful logins."},
	{ID: goRecover.MetricLoginFailure, Name: "gorecover_login_failure_total", Help: "Failed logins."},
	{ID: goRecover.MetricPasswordRehashed, Name: "gorecover_password_rehashed_total", Help: "Hashes upgraded on login."},
	{ID: goRecover.MetricSessionValidation, Name: "gorecover_session_validation_total", Help: "Session cookies accepted."},
	{ID: goRecover.MetricSessionRejected, Name: "gorecover_session_rejected_total", Help: "Session cookies rejected."},
	{ID: goRecover.MetricSessionInvalidated, Name: "gorecover_session_invalidated_total", Help: "Sessions removed by credential changes."},
	{ID: goRecover.MetricLogout, Name: "gorecover_logout_total", Help: "Logouts."},
	{ID: goRecover.MetricRateLimitHit, Name: "gorecover_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
}

var HistogramDefs = []HistogramDef{
	{ID: goRecover.MetricRecoveryLatency, Name: "gorecover_recovery_latency_seconds", Help: "Recovery request latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's eight
// latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds in a form usable inside names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
