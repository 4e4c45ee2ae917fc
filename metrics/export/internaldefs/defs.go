package internaldefs

import (
	"github.com/saraha-app/sessionkit"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   sessionkit.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: sessionkit.MetricRegisterSuccess, Name: "sessionkit_register_success_total", Help: "Accounts registered."},
	{ID: sessionkit.MetricRegisterDuplicate, Name: "sessionkit_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: sessionkit.MetricVerificationSuccess, Name: "sessionkit_verification_success_total", Help: "Accounts verified."},
	{ID: sessionkit.MetricVerificationFailure, Name: "sessionkit_verification_failure_total", Help: "Failed verification attempts."},
	{ID: sessionkit.MetricOTPIssued, Name: "sessionkit_otp_issued_total", Help: "One-time codes issued."},
	{ID: sessionkit.MetricOTPDeliveryFailure, Name: "sessionkit_otp_delivery_failure_total", Help: "One-time codes the notifier failed to deliver."},
	{ID: sessionkit.MetricLoginSuccess, Name: "sessionkit_login_success_total", Help: "Successful logins."},
	{ID: sessionkit.MetricLoginFailure, Name: "sessionkit_login_failure_total", Help: "Failed logins."},
	{ID: sessionkit.MetricLoginRateLimited, Name: "sessionkit_login_rate_limited_total", Help: "Logins rejected by the rate limiter."},
	{ID: sessionkit.MetricRefreshSuccess, Name: "sessionkit_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: sessionkit.MetricRefreshFailure, Name: "sessionkit_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: sessionkit.MetricRefreshReuseDetected, Name: "sessionkit_refresh_reuse_detected_total", Help: "Refresh tokens presented after use; the account ledger was revoked."},
	{ID: sessionkit.MetricLogout, Name: "sessionkit_logout_total", Help: "Logout calls."},
	{ID: sessionkit.MetricLogoutAll, Name: "sessionkit_logout_all_total", Help: "Logout-all calls."},
	{ID: sessionkit.MetricPasswordResetRequest, Name: "sessionkit_password_reset_request_total", Help: "Password reset requests."},
	{ID: sessionkit.MetricPasswordResetSuccess, Name: "sessionkit_password_reset_success_total", Help: "Completed password resets."},
	{ID: sessionkit.MetricPasswordResetFailure, Name: "sessionkit_password_reset_failure_total", Help: "Failed password resets."},
	{ID: sessionkit.MetricPasswordChangeSuccess, Name: "sessionkit_password_change_success_total", Help: "Completed password changes."},
	{ID: sessionkit.MetricPasswordChangeFailure, Name: "sessionkit_password_change_failure_total", Help: "Failed password changes."},
	{ID: sessionkit.MetricAuthenticateSuccess, Name: "sessionkit_authenticate_success_total", Help: "Accepted access tokens."},
	{ID: sessionkit.MetricAuthenticateFailure, Name: "sessionkit_authenticate_failure_total", Help: "Rejected access tokens."},
	{ID: sessionkit.MetricLedgerEviction, Name: "sessionkit_ledger_eviction_total", Help: "Refresh records evicted by the ledger bound."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sessionkit.MetricAuthenticateLatency, Name: "sessionkit_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for exporters that
// need one instrument per bucket.
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

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
