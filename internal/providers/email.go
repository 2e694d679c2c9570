package providers

import (
	"context"
	"fmt"

	"hr-reminder-service/internal/config"
	"hr-reminder-service/internal/models"
	"hr-reminder-service/pkg/email"
)

// SendEmail delivers a dispatch task over SMTP using the recipient's address.
func SendEmail(ctx context.Context, task models.DispatchTask, cfg config.Config) error {
	to := task.Recipient.Address(models.ChannelEmail)
	if to == "" {
		return fmt.Errorf("recipient %s has no email address", task.Recipient.ID)
	}

	smtpServer := cfg.Email.SMTPServer
	smtpPort := cfg.Email.SMTPPort
	username := cfg.Email.Username
	password := cfg.Email.Password
	if smtpServer == "" || smtpPort == 0 || username == "" || password == "" {
		return fmt.Errorf("missing Email configuration: SMTPServer, SMTPPort, Username, or Password is empty")
	}

	if err := email.Send(smtpServer, smtpPort, username, password, cfg.Email.FromName, to, task.Subject, task.Body); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
