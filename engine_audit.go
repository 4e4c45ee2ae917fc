package sessionkit

import (
	"context"
	"strconv"
)

const (
	auditEventRegister             = "register"
	auditEventVerify               = "verify_account"
	auditEventOTPIssued            = "otp_issued"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshReuse         = "refresh_reuse_detected"
	auditEventLogout               = "logout"
	auditEventLogoutAll            = "logout_all"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordReset        = "password_reset"
	auditEventPasswordChange       = "password_change"
	auditEventFederatedLogin       = "federated_login"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	recordID string,
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

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		RecordID:  recordID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if pub := Classify(err); pub != nil {
		event.Error = string(pub.Code)
	}

	e.audit.Emit(ctx, event)
}

func boolString(b bool) string { return strconv.FormatBool(b) }

func itoa(n int) string { return strconv.Itoa(n) }
