package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESMailer sends transactional mail via AWS SES
type SESMailer struct {
	client    *ses.Client
	fromEmail string
	fromName  string
}

// NewSESMailer creates a mailer backed by AWS SES
func NewSESMailer(region, fromEmail, fromName string) (*SESMailer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESMailer{
		client:    ses.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendResetCode mails the short-lived numeric reset code
func (m *SESMailer) SendResetCode(ctx context.Context, toEmail, name, code string) error {
	subject := "Your Ripple password reset code"
	htmlBody := fmt.Sprintf(`
		<div style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2>Password reset</h2>
			<p>Hi %s,</p>
			<p>Enter this code to continue resetting your password. It expires in 15 minutes
			and stops working after three wrong attempts.</p>
			<p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">%s</p>
			<p>If you didn't ask for this, you can ignore this email.</p>
		</div>`, name, code)
	textBody := fmt.Sprintf("Hi %s,\n\nYour Ripple password reset code is: %s\n\nIt expires in 15 minutes.", name, code)

	return m.send(ctx, toEmail, subject, htmlBody, textBody)
}

// SendVerifyEmail mails the address-confirmation link
func (m *SESMailer) SendVerifyEmail(ctx context.Context, toEmail, name, link string) error {
	subject := "Confirm your email"
	htmlBody := fmt.Sprintf(`
		<div style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto;">
			<h2>Confirm your email</h2>
			<p>Hi %s,</p>
			<p><a href="%s">Click here to attach this address to your Ripple account.</a></p>
			<p>The link expires in 15 minutes.</p>
		</div>`, name, link)
	textBody := fmt.Sprintf("Hi %s,\n\nConfirm your email: %s\n\nThe link expires in 15 minutes.", name, link)

	return m.send(ctx, toEmail, subject, htmlBody, textBody)
}

func (m *SESMailer) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	from := fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)

	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
