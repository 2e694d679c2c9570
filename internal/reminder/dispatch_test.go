package reminder

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-reminder-service/internal/models"
)

var dispatchRule = models.ReminderRule{
	DaysBefore: []int{30, 14, 7, 3, 1, 0},
	Channels:   []models.Channel{models.ChannelWhatsApp, models.ChannelEmail},
}

func expiringItem(daysFromNow int, today time.Time) models.Item {
	return models.Item{
		ID:         uuid.New(),
		Title:      "Trade License",
		RefNumber:  "TL-2209",
		ExpiryDate: today.AddDate(0, 0, daysFromNow),
	}
}

func activeRecipient(name string, sortOrder int, channels ...models.Channel) models.Recipient {
	return models.Recipient{
		ID:        uuid.New(),
		Name:      name,
		Channels:  channels,
		SortOrder: sortOrder,
		Status:    "active",
	}
}

func plainTemplates(channels ...models.Channel) map[models.Channel]models.MessageTemplate {
	templates := make(map[models.Channel]models.MessageTemplate, len(channels))
	for _, ch := range channels {
		templates[ch] = models.MessageTemplate{Channel: ch, Body: "{{title}} expires in {{days_left}} day(s)"}
	}
	return templates
}

func TestDueThreshold(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)

	t.Run("exact threshold match", func(t *testing.T) {
		threshold, due := DueThreshold(expiringItem(7, today), dispatchRule, today)
		require.True(t, due)
		assert.Equal(t, 7, threshold)
	})

	t.Run("expiry day itself", func(t *testing.T) {
		threshold, due := DueThreshold(expiringItem(0, today), dispatchRule, today)
		require.True(t, due)
		assert.Equal(t, 0, threshold)
	})

	t.Run("between thresholds is silent", func(t *testing.T) {
		_, due := DueThreshold(expiringItem(5, today), dispatchRule, today)
		assert.False(t, due)
	})

	t.Run("missed threshold is not backfilled", func(t *testing.T) {
		// 6 days out: the 7-day sweep was skipped, nothing fires until day 3
		_, due := DueThreshold(expiringItem(6, today), dispatchRule, today)
		assert.False(t, due)
	})

	t.Run("already expired", func(t *testing.T) {
		_, due := DueThreshold(expiringItem(-2, today), dispatchRule, today)
		assert.False(t, due)
	})
}

func TestDueRemindersChannelIntersection(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	item := expiringItem(7, today)

	// rule allows whatsapp+email; recipient enabled telegram+email -> email only
	rec := activeRecipient("Amira", 1, models.ChannelTelegram, models.ChannelEmail)
	fields := map[string]string{"title": item.Title, "days_left": "7"}

	dispatches, errs := DueReminders(item, dispatchRule, []models.Recipient{rec},
		plainTemplates(models.AllChannels...), fields, today)
	require.Empty(t, errs)
	require.Len(t, dispatches, 1)
	assert.Equal(t, models.ChannelEmail, dispatches[0].Channel)
	assert.Equal(t, "Trade License expires in 7 day(s)", dispatches[0].Message)
	assert.Equal(t, 7, dispatches[0].Threshold)
}

func TestDueRemindersStableRecipientOrder(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	item := expiringItem(3, today)
	fields := map[string]string{"title": item.Title, "days_left": "3"}

	recipients := []models.Recipient{
		activeRecipient("Zara", 2, models.ChannelEmail),
		activeRecipient("Amira", 1, models.ChannelEmail),
		activeRecipient("Bilal", 1, models.ChannelEmail),
	}

	dispatches, errs := DueReminders(item, dispatchRule, recipients,
		plainTemplates(models.ChannelEmail), fields, today)
	require.Empty(t, errs)
	require.Len(t, dispatches, 3)

	var names []string
	for _, d := range dispatches {
		names = append(names, d.Recipient.Name)
	}
	assert.Equal(t, []string{"Amira", "Bilal", "Zara"}, names)
}

func TestDueRemindersSkipsInactiveRecipients(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	item := expiringItem(1, today)
	fields := map[string]string{"title": item.Title, "days_left": "1"}

	inactive := activeRecipient("Left Company", 0, models.ChannelEmail)
	inactive.Status = "deleted"
	active := activeRecipient("Amira", 1, models.ChannelEmail)

	dispatches, errs := DueReminders(item, dispatchRule, []models.Recipient{inactive, active},
		plainTemplates(models.ChannelEmail), fields, today)
	require.Empty(t, errs)
	require.Len(t, dispatches, 1)
	assert.Equal(t, "Amira", dispatches[0].Recipient.Name)
}

func TestDueRemindersRenderFailureIsolated(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	item := expiringItem(7, today)

	templates := map[models.Channel]models.MessageTemplate{
		models.ChannelEmail: {
			Channel:        models.ChannelEmail,
			Body:           "{{title}} / {{license_no}}",
			RequiredFields: []string{"license_no"},
		},
		models.ChannelWhatsApp: {
			Channel: models.ChannelWhatsApp,
			Body:    "{{title}} expires soon",
		},
	}
	rec := activeRecipient("Amira", 1, models.ChannelEmail, models.ChannelWhatsApp)
	fields := map[string]string{"title": item.Title} // license_no missing

	dispatches, errs := DueReminders(item, dispatchRule, []models.Recipient{rec}, templates, fields, today)
	require.Len(t, errs, 1, "email render fails")
	require.Len(t, dispatches, 1, "whatsapp still goes out")
	assert.Equal(t, models.ChannelWhatsApp, dispatches[0].Channel)
}

func TestDueRemindersMissingTemplateReported(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	item := expiringItem(7, today)
	rec := activeRecipient("Amira", 1, models.ChannelEmail)
	fields := map[string]string{"title": item.Title}

	dispatches, errs := DueReminders(item, dispatchRule, []models.Recipient{rec},
		map[models.Channel]models.MessageTemplate{}, fields, today)
	assert.Empty(t, dispatches)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no active email template")
}

func TestDueRemindersNotDueProducesNothing(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	item := expiringItem(10, today)
	rec := activeRecipient("Amira", 1, models.ChannelEmail)

	dispatches, errs := DueReminders(item, dispatchRule, []models.Recipient{rec},
		plainTemplates(models.ChannelEmail), map[string]string{}, today)
	assert.Empty(t, dispatches)
	assert.Empty(t, errs)
}
