package sessionkit

import (
	"context"
	"fmt"
)

var challengeSubjects = map[Purpose]string{
	PurposeVerifyAccount:  "Email Verification OTP",
	PurposeResetPassword:  "Password Reset OTP",
	PurposeChangePassword: "Password Change Verification OTP",
}

// deliver hands code to the Notifier. Failures are reported in the returned
// Delivery and never propagate.
func (e *Engine) deliver(ctx context.Context, accountID, to string, purpose Purpose, code string) Delivery {
	ctx, cancel := context.WithTimeout(ctx, e.config.Notify.Timeout)
	defer cancel()

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(e.otp.TTL().Minutes()))

	if err := e.notifier.Deliver(ctx, to, challengeSubjects[purpose], body); err != nil {
		e.metricInc(MetricOTPDeliveryFailure)
		e.logger.WarnContext(ctx, "sessionkit: otp delivery failed",
			"account_id", accountID, "purpose", string(purpose), "err", err)
		return Delivery{
			Sent:    false,
			Warning: "verification code could not be delivered; request a new one",
		}
	}
	return Delivery{Sent: true}
}
