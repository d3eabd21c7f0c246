package mail

import (
	"context"

	"github.com/ripplefeed/backend/internal/logger"
	"go.uber.org/zap"
)

// Mailer dispatches transactional mail. Callers treat delivery as
// fire-and-throw-on-failure: an error aborts the calling operation, but no
// retries happen inside this core.
type Mailer interface {
	SendResetCode(ctx context.Context, toEmail, name, code string) error
	SendVerifyEmail(ctx context.Context, toEmail, name, link string) error
}

// LogMailer is the development fallback: it records that a mail would have
// been sent without the plaintext code ever reaching the logs.
type LogMailer struct{}

func (LogMailer) SendResetCode(ctx context.Context, toEmail, name, code string) error {
	logger.Log.Info("mail: password reset code dispatched",
		zap.String("to", toEmail),
	)
	return nil
}

func (LogMailer) SendVerifyEmail(ctx context.Context, toEmail, name, link string) error {
	logger.Log.Info("mail: verification link dispatched",
		zap.String("to", toEmail),
	)
	return nil
}
