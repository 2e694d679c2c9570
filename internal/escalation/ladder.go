package escalation

import (
	"sort"
	"time"

	"hr-reminder-service/internal/models"

	"github.com/google/uuid"
)

// Result is the outcome of evaluating one escalation log against the ladder.
// It describes what the log should become; persisting it is the caller's job.
type Result struct {
	Level         int
	RecipientID   uuid.UUID
	NextAt        time.Time
	TimeRemaining time.Duration
	Status        models.EscalationStatus
	Advanced      bool // level moved up this evaluation
}

// ComputeLevel evaluates an escalation log against the per-level rules at the
// given instant. Pure: same (log, rules, now) always yields the same Result.
//
// A pending log past its deadline advances to the next defined rule level,
// with next_escalation_at pushed out by that level's delay. A missing next
// level expires the log instead of failing. Acknowledged logs keep their
// level until resolved or restarted by a new reminder cycle.
func ComputeLevel(log models.EscalationLog, rules []models.EscalationRule, now time.Time) Result {
	res := Result{
		Level:       log.Level,
		RecipientID: log.CurrentRecipientID,
		NextAt:      log.NextEscalationAt,
		Status:      log.Status,
	}

	if log.Status.Terminal() || log.Status == models.EscalationAcknowledged {
		return res
	}
	if now.Before(log.NextEscalationAt) {
		res.TimeRemaining = log.NextEscalationAt.Sub(now)
		return res
	}

	next, ok := ruleForLevel(rules, nextLevelAbove(rules, log.Level))
	if !ok {
		// Ladder exhausted. Not a hard failure: the log freezes as expired.
		res.Status = models.EscalationExpired
		res.NextAt = time.Time{}
		return res
	}

	res.Level = next.Level
	res.RecipientID = next.RecipientID
	res.NextAt = now.Add(time.Duration(next.DelayHours) * time.Hour)
	res.TimeRemaining = res.NextAt.Sub(now)
	res.Status = models.EscalationEscalated
	res.Advanced = true
	return res
}

// StartLevel returns the level-0 rule a fresh log should start from. A rule
// set with no level-0 entry means no escalation ever starts.
func StartLevel(rules []models.EscalationRule) (models.EscalationRule, bool) {
	return ruleForLevel(rules, 0)
}

// nextLevelAbove finds the smallest defined rule level greater than current,
// or -1 when the ladder has nothing above it.
func nextLevelAbove(rules []models.EscalationRule, current int) int {
	next := -1
	for _, r := range rules {
		if r.Level > current && (next == -1 || r.Level < next) {
			next = r.Level
		}
	}
	return next
}

// ruleForLevel picks the rule for a level; duplicates tie-break on the lowest
// sort_order.
func ruleForLevel(rules []models.EscalationRule, level int) (models.EscalationRule, bool) {
	if level < 0 {
		return models.EscalationRule{}, false
	}
	var matches []models.EscalationRule
	for _, r := range rules {
		if r.Level == level {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return models.EscalationRule{}, false
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SortOrder < matches[j].SortOrder
	})
	return matches[0], true
}
