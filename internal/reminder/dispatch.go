package reminder

import (
	"fmt"
	"sort"
	"time"

	"hr-reminder-service/internal/models"
	"hr-reminder-service/internal/template"
)

// Dispatch is one (recipient, channel, message) tuple produced for delivery.
// The core only produces these; the notification service hands them to
// providers.
type Dispatch struct {
	Recipient models.Recipient
	Channel   models.Channel
	Message   string
	Threshold int
}

// DueThreshold reports whether the item is due today under the rule, and at
// which days-before threshold. Due means days_left equals a threshold exactly;
// a day missed by a skipped sweep is not resent retroactively.
func DueThreshold(item models.Item, rule models.ReminderRule, today time.Time) (int, bool) {
	left := template.DaysLeft(item.ExpiryDate, today)
	for _, d := range rule.DaysBefore {
		if d == left {
			return d, true
		}
	}
	return 0, false
}

// DueReminders produces the dispatch list for one item on one day: one entry
// per active recipient per channel in the intersection of the rule's channels
// and the recipient's enabled channels. Recipients render in stable order
// (sort_order, then name); channels in fixed channel order.
//
// A recipient whose template fails to render contributes an error instead of a
// partial message; other recipients still render. The dispatch list and the
// error list are both returned so a batch pass never stops at the first bad
// template.
func DueReminders(item models.Item, rule models.ReminderRule, recipients []models.Recipient,
	templates map[models.Channel]models.MessageTemplate, fields map[string]string, today time.Time) ([]Dispatch, []error) {

	threshold, due := DueThreshold(item, rule, today)
	if !due {
		return nil, nil
	}

	ordered := make([]models.Recipient, 0, len(recipients))
	for _, r := range recipients {
		if r.Status == "active" {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].Name < ordered[j].Name
	})

	var dispatches []Dispatch
	var errs []error
	for _, rec := range ordered {
		for _, ch := range models.AllChannels {
			if !channelEnabled(rule.Channels, ch) || !rec.HasChannel(ch) {
				continue
			}
			tmpl, ok := templates[ch]
			if !ok {
				errs = append(errs, fmt.Errorf("no active %s template for item %s", ch, item.ID))
				continue
			}
			msg, err := template.Render(tmpl, fields)
			if err != nil {
				errs = append(errs, fmt.Errorf("render for recipient %s via %s: %w", rec.ID, ch, err))
				continue
			}
			dispatches = append(dispatches, Dispatch{
				Recipient: rec,
				Channel:   ch,
				Message:   msg,
				Threshold: threshold,
			})
		}
	}
	return dispatches, errs
}

func channelEnabled(channels []models.Channel, c models.Channel) bool {
	for _, have := range channels {
		if have == c {
			return true
		}
	}
	return false
}
