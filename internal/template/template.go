// Package template renders message templates for reminders and escalations.
// Substitution is a plain {{token}} replacement over admin-authored bodies;
// a required field with no value fails the whole render so no partial
// message ever leaves the system.
package template

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"hr-reminder-service/internal/models"
)

// FieldMissingError reports a render failure for a specific placeholder. The
// kind is fixed so batch sweeps can log it without string matching.
type FieldMissingError struct {
	Field string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("template_field_missing: no value for required placeholder %q", e.Field)
}

// Fields builds the substitution map for an item: the fixed field set plus the
// item's dynamic fields. Dynamic fields cannot shadow fixed ones.
func Fields(item models.Item, category, responsible string, daysLeft int) map[string]string {
	fields := make(map[string]string, len(item.DynamicFields)+7)
	for k, v := range item.DynamicFields {
		fields[k] = v
	}
	fields["title"] = item.Title
	fields["ref_number"] = item.RefNumber
	fields["expiry_date"] = item.ExpiryDate.Format("2006-01-02")
	fields["days_left"] = strconv.Itoa(daysLeft)
	fields["category"] = category
	fields["responsible_person"] = responsible
	fields["notes"] = item.Notes
	return fields
}

// Render substitutes every {{placeholder}} token in the template body.
// Unknown optional tokens render as empty strings.
func Render(tmpl models.MessageTemplate, fields map[string]string) (string, error) {
	for _, req := range tmpl.RequiredFields {
		if fields[req] == "" {
			return "", &FieldMissingError{Field: req}
		}
	}

	var b strings.Builder
	body := tmpl.Body
	for {
		start := strings.Index(body, "{{")
		if start < 0 {
			b.WriteString(body)
			break
		}
		end := strings.Index(body[start:], "}}")
		if end < 0 {
			b.WriteString(body)
			break
		}
		b.WriteString(body[:start])
		token := strings.TrimSpace(body[start+2 : start+end])
		b.WriteString(fields[token])
		body = body[start+end+2:]
	}
	return b.String(), nil
}

// DaysLeft is the whole-day distance from today to the expiry date, negative
// once expired. Both instants are truncated to their calendar date.
func DaysLeft(expiry, today time.Time) int {
	e := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(t).Hours() / 24)
}
