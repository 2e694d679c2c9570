package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hr-reminder-service/internal/models"
)

func scanReminderRule(row pgx.Row) (models.ReminderRule, error) {
	var r models.ReminderRule
	var days []int32
	var channels []string
	err := row.Scan(
		&r.ID, &r.OrgID, &r.TargetEntityType, &days, &channels, &r.Status,
		&r.CreatedAt, &r.UpdatedAt,
	)
	r.DaysBefore = make([]int, 0, len(days))
	for _, d := range days {
		r.DaysBefore = append(r.DaysBefore, int(d))
	}
	r.Channels = models.ToChannels(channels)
	return r, err
}

func daysToInt32(days []int) []int32 {
	out := make([]int32, 0, len(days))
	for _, d := range days {
		out = append(out, int32(d))
	}
	return out
}

func (d *DB) CreateReminderRule(ctx context.Context, r models.ReminderRule) (models.ReminderRule, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	query := `
        INSERT INTO reminder_rules (id, org_id, target_entity_type, days_before, channels, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, 'active', NOW(), NOW())
        RETURNING id, org_id, target_entity_type, days_before, channels, status, created_at, updated_at`
	created, err := scanReminderRule(d.Pool.QueryRow(ctx, query,
		r.ID, r.OrgID, r.TargetEntityType, daysToInt32(r.DaysBefore),
		models.ChannelStrings(r.Channels)))
	if err != nil {
		return models.ReminderRule{}, fmt.Errorf("failed to create reminder rule: %w", err)
	}
	return created, nil
}

// GetReminderRuleForOrg returns the active reminder rule an org applies to the
// given entity type.
func (d *DB) GetReminderRuleForOrg(ctx context.Context, orgID uuid.UUID, entityType string) (models.ReminderRule, error) {
	query := `
        SELECT id, org_id, target_entity_type, days_before, channels, status, created_at, updated_at
        FROM reminder_rules
        WHERE org_id = $1 AND target_entity_type = $2 AND status = 'active'
        ORDER BY updated_at DESC
        LIMIT 1`
	r, err := scanReminderRule(d.Pool.QueryRow(ctx, query, orgID, entityType))
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.ReminderRule{}, ErrNotFound
		}
		return models.ReminderRule{}, fmt.Errorf("failed to get reminder rule for org %s: %w", orgID, err)
	}
	return r, nil
}

func (d *DB) ListReminderRules(ctx context.Context, orgID uuid.UUID) ([]models.ReminderRule, error) {
	query := `
        SELECT id, org_id, target_entity_type, days_before, channels, status, created_at, updated_at
        FROM reminder_rules
        WHERE org_id = $1 AND status = 'active'
        ORDER BY target_entity_type`
	rows, err := d.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder rules for org %s: %w", orgID, err)
	}
	defer rows.Close()

	var rules []models.ReminderRule
	for rows.Next() {
		r, err := scanReminderRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeleteReminderRule marks a rule inactive (soft delete).
func (d *DB) DeleteReminderRule(ctx context.Context, idStr string) error {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid reminder rule ID: %w", err)
	}
	tag, err := d.Pool.Exec(ctx, `
        UPDATE reminder_rules SET status = 'inactive', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reminder rule %s: %w", idStr, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEscalationRule(row pgx.Row) (models.EscalationRule, error) {
	var r models.EscalationRule
	var channels []string
	err := row.Scan(
		&r.ID, &r.OrgID, &r.Level, &r.DelayHours, &r.RecipientID, &channels,
		&r.SortOrder, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	r.Channels = models.ToChannels(channels)
	return r, err
}

func (d *DB) CreateEscalationRule(ctx context.Context, r models.EscalationRule) (models.EscalationRule, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	query := `
        INSERT INTO escalation_rules (id, org_id, level, delay_hours, recipient_id, channels, sort_order, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 'active', NOW(), NOW())
        RETURNING id, org_id, level, delay_hours, recipient_id, channels, sort_order, status, created_at, updated_at`
	created, err := scanEscalationRule(d.Pool.QueryRow(ctx, query,
		r.ID, r.OrgID, r.Level, r.DelayHours, r.RecipientID,
		models.ChannelStrings(r.Channels), r.SortOrder))
	if err != nil {
		return models.EscalationRule{}, fmt.Errorf("failed to create escalation rule: %w", err)
	}
	return created, nil
}

// ListEscalationRules returns the org's active ladder, ordered by level then
// sort_order so the first rule per level wins ties.
func (d *DB) ListEscalationRules(ctx context.Context, orgID uuid.UUID) ([]models.EscalationRule, error) {
	query := `
        SELECT id, org_id, level, delay_hours, recipient_id, channels, sort_order, status, created_at, updated_at
        FROM escalation_rules
        WHERE org_id = $1 AND status = 'active'
        ORDER BY level, sort_order`
	rows, err := d.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalation rules for org %s: %w", orgID, err)
	}
	defer rows.Close()

	var rules []models.EscalationRule
	for rows.Next() {
		r, err := scanEscalationRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// DeleteEscalationRule marks a rule inactive (soft delete).
func (d *DB) DeleteEscalationRule(ctx context.Context, idStr string) error {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return fmt.Errorf("invalid escalation rule ID: %w", err)
	}
	tag, err := d.Pool.Exec(ctx, `
        UPDATE escalation_rules SET status = 'inactive', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete escalation rule %s: %w", idStr, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
