package providers

import (
	"context"
	"fmt"
	"time"

	"hr-reminder-service/internal/config"
	"hr-reminder-service/internal/logging"
	"hr-reminder-service/internal/models"
	"hr-reminder-service/internal/utils"
	"hr-reminder-service/pkg/whatsapp"
)

// SendWhatsApp delivers a dispatch task through the WhatsApp Cloud API to the
// recipient's phone number.
func SendWhatsApp(ctx context.Context, task models.DispatchTask, logger *logging.Logger, cfg config.Config) error {
	if cfg.WhatsApp.Token == "" || cfg.WhatsApp.PhoneNumberID == "" {
		return fmt.Errorf("missing WhatsApp configuration: WHATSAPP_TOKEN or WHATSAPP_PHONE_NUMBER_ID is empty")
	}
	to := task.Recipient.Address(models.ChannelWhatsApp)
	if to == "" {
		return fmt.Errorf("recipient %s has no phone number", task.Recipient.ID)
	}

	text := task.Body
	if task.Subject != "" {
		text = fmt.Sprintf("%s\n\n%s", task.Subject, task.Body)
	}

	return utils.Retry(logger, 3, 2*time.Second, func() error {
		return whatsapp.Send(ctx, cfg.WhatsApp.APIBaseURL, cfg.WhatsApp.Token, cfg.WhatsApp.PhoneNumberID, to, text)
	})
}
