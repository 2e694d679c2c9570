package escalation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-reminder-service/internal/models"
)

func ladderRules(orgID uuid.UUID, recipients map[int]uuid.UUID, delays map[int]int) []models.EscalationRule {
	var rules []models.EscalationRule
	for level, rec := range recipients {
		rules = append(rules, models.EscalationRule{
			ID:          uuid.New(),
			OrgID:       orgID,
			Level:       level,
			DelayHours:  delays[level],
			RecipientID: rec,
			Status:      "active",
		})
	}
	return rules
}

func TestComputeLevelAdvancesOverdueLog(t *testing.T) {
	orgID := uuid.New()
	supervisor := uuid.New()
	recipients := map[int]uuid.UUID{0: uuid.New(), 1: supervisor}
	rules := ladderRules(orgID, recipients, map[int]int{0: 24, 1: 4})

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	log := models.EscalationLog{
		ID:                 uuid.New(),
		OrgID:              orgID,
		Level:              0,
		Status:             models.EscalationPending,
		CurrentRecipientID: recipients[0],
		NextEscalationAt:   now.Add(-time.Hour),
	}

	res := ComputeLevel(log, rules, now)
	require.True(t, res.Advanced)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, supervisor, res.RecipientID)
	assert.Equal(t, now.Add(4*time.Hour), res.NextAt)
	assert.Equal(t, models.EscalationEscalated, res.Status)
}

func TestComputeLevelWaitsUntilDeadline(t *testing.T) {
	orgID := uuid.New()
	rules := ladderRules(orgID, map[int]uuid.UUID{0: uuid.New(), 1: uuid.New()}, map[int]int{0: 24, 1: 4})

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	log := models.EscalationLog{
		Level:            0,
		Status:           models.EscalationPending,
		NextEscalationAt: now.Add(90 * time.Minute),
	}

	res := ComputeLevel(log, rules, now)
	assert.False(t, res.Advanced)
	assert.Equal(t, 0, res.Level)
	assert.Equal(t, 90*time.Minute, res.TimeRemaining)
	assert.Equal(t, models.EscalationPending, res.Status)
}

func TestComputeLevelExpiresOnLadderGap(t *testing.T) {
	orgID := uuid.New()
	// ladder stops at level 0: nothing above to escalate to
	rules := ladderRules(orgID, map[int]uuid.UUID{0: uuid.New()}, map[int]int{0: 24})

	now := time.Now()
	log := models.EscalationLog{
		Level:            0,
		Status:           models.EscalationPending,
		NextEscalationAt: now.Add(-time.Minute),
	}

	res := ComputeLevel(log, rules, now)
	assert.False(t, res.Advanced)
	assert.Equal(t, models.EscalationExpired, res.Status)
	assert.Equal(t, 0, res.Level, "level stays where it was")
	assert.True(t, res.NextAt.IsZero())
}

func TestComputeLevelSkipsUndefinedLevels(t *testing.T) {
	orgID := uuid.New()
	hr := uuid.New()
	// levels 1-3 undefined; the ladder jumps straight from 0 to 4
	rules := ladderRules(orgID, map[int]uuid.UUID{0: uuid.New(), 4: hr}, map[int]int{0: 24, 4: 8})

	now := time.Now()
	log := models.EscalationLog{
		Level:            0,
		Status:           models.EscalationEscalated,
		NextEscalationAt: now.Add(-time.Minute),
	}

	res := ComputeLevel(log, rules, now)
	require.True(t, res.Advanced)
	assert.Equal(t, 4, res.Level)
	assert.Equal(t, hr, res.RecipientID)
}

func TestComputeLevelAcknowledgedFreezes(t *testing.T) {
	orgID := uuid.New()
	rules := ladderRules(orgID, map[int]uuid.UUID{0: uuid.New(), 1: uuid.New()}, map[int]int{0: 24, 1: 4})

	now := time.Now()
	log := models.EscalationLog{
		Level:              1,
		Status:             models.EscalationAcknowledged,
		CurrentRecipientID: rules[0].RecipientID,
		NextEscalationAt:   now.Add(-48 * time.Hour),
	}

	res := ComputeLevel(log, rules, now)
	assert.False(t, res.Advanced)
	assert.Equal(t, 1, res.Level)
	assert.Equal(t, models.EscalationAcknowledged, res.Status)
}

func TestComputeLevelTerminalStatuses(t *testing.T) {
	rules := ladderRules(uuid.New(), map[int]uuid.UUID{0: uuid.New(), 1: uuid.New()}, map[int]int{0: 1, 1: 1})
	now := time.Now()

	for _, status := range []models.EscalationStatus{models.EscalationResolved, models.EscalationExpired} {
		log := models.EscalationLog{Level: 1, Status: status, NextEscalationAt: now.Add(-time.Hour)}
		res := ComputeLevel(log, rules, now)
		assert.False(t, res.Advanced, "status %s", status)
		assert.Equal(t, status, res.Status)
	}
}

func TestComputeLevelIsIdempotent(t *testing.T) {
	orgID := uuid.New()
	rules := ladderRules(orgID, map[int]uuid.UUID{0: uuid.New(), 1: uuid.New(), 2: uuid.New()},
		map[int]int{0: 24, 1: 4, 2: 4})

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	log := models.EscalationLog{
		Level:            0,
		Status:           models.EscalationPending,
		NextEscalationAt: now.Add(-time.Hour),
	}

	first := ComputeLevel(log, rules, now)
	second := ComputeLevel(log, rules, now)
	assert.Equal(t, first, second)
}

func TestComputeLevelEmptyRules(t *testing.T) {
	now := time.Now()
	log := models.EscalationLog{
		Level:            0,
		Status:           models.EscalationPending,
		NextEscalationAt: now.Add(-time.Hour),
	}

	res := ComputeLevel(log, nil, now)
	assert.False(t, res.Advanced)
	assert.Equal(t, models.EscalationExpired, res.Status)
}

func TestRuleForLevelTieBreaksOnSortOrder(t *testing.T) {
	first := uuid.New()
	rules := []models.EscalationRule{
		{Level: 1, RecipientID: uuid.New(), SortOrder: 5},
		{Level: 1, RecipientID: first, SortOrder: 1},
		{Level: 1, RecipientID: uuid.New(), SortOrder: 3},
	}

	rule, ok := ruleForLevel(rules, 1)
	require.True(t, ok)
	assert.Equal(t, first, rule.RecipientID)
}

func TestStartLevel(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		rules := []models.EscalationRule{{Level: 0, DelayHours: 24}, {Level: 1, DelayHours: 4}}
		rule, ok := StartLevel(rules)
		require.True(t, ok)
		assert.Equal(t, 24, rule.DelayHours)
	})

	t.Run("no level zero means the ladder never starts", func(t *testing.T) {
		rules := []models.EscalationRule{{Level: 1, DelayHours: 4}}
		_, ok := StartLevel(rules)
		assert.False(t, ok)
	})
}
