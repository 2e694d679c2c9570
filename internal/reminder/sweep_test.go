package reminder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-reminder-service/internal/db"
	"hr-reminder-service/internal/logging"
	"hr-reminder-service/internal/models"
)

type fakeReminderStore struct {
	items      []models.Item
	rules      map[string]models.ReminderRule // keyed by entity type
	recipients map[uuid.UUID][]models.Recipient
	templates  map[models.Channel]models.MessageTemplate
	escRules   []models.EscalationRule
	openLog    *models.EscalationLog

	claims        map[string]bool
	created       []models.Notification
	createdLogs   []models.EscalationLog
	touched       []uuid.UUID
	statusChanges map[uuid.UUID]models.EscalationStatus
}

func newFakeReminderStore() *fakeReminderStore {
	return &fakeReminderStore{
		rules:         make(map[string]models.ReminderRule),
		recipients:    make(map[uuid.UUID][]models.Recipient),
		templates:     make(map[models.Channel]models.MessageTemplate),
		claims:        make(map[string]bool),
		statusChanges: make(map[uuid.UUID]models.EscalationStatus),
	}
}

func (f *fakeReminderStore) ListOpenItems(ctx context.Context) ([]models.Item, error) {
	return f.items, nil
}

func (f *fakeReminderStore) GetReminderRuleForOrg(ctx context.Context, orgID uuid.UUID, entityType string) (models.ReminderRule, error) {
	rule, ok := f.rules[entityType]
	if !ok {
		return models.ReminderRule{}, db.ErrNotFound
	}
	return rule, nil
}

func (f *fakeReminderStore) ListItemRecipients(ctx context.Context, itemID uuid.UUID) ([]models.Recipient, error) {
	return f.recipients[itemID], nil
}

func (f *fakeReminderStore) GetActiveTemplates(ctx context.Context, orgID uuid.UUID, msgType string, level *int) (map[models.Channel]models.MessageTemplate, error) {
	return f.templates, nil
}

func (f *fakeReminderStore) GetRecipient(ctx context.Context, id string) (models.Recipient, error) {
	return models.Recipient{}, db.ErrNotFound
}

func (f *fakeReminderStore) GetCategoryName(ctx context.Context, id uuid.UUID) (string, error) {
	return "Licenses", nil
}

func (f *fakeReminderStore) RecordReminderSend(ctx context.Context, itemID, recipientID uuid.UUID,
	channel models.Channel, threshold int, day time.Time) (bool, error) {

	key := fmt.Sprintf("%s|%s|%s|%d|%s", itemID, recipientID, channel, threshold, day.Format("2006-01-02"))
	if f.claims[key] {
		return false, nil
	}
	f.claims[key] = true
	return true, nil
}

func (f *fakeReminderStore) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.ID = uuid.New()
	f.created = append(f.created, n)
	return n, nil
}

func (f *fakeReminderStore) ListEscalationRules(ctx context.Context, orgID uuid.UUID) ([]models.EscalationRule, error) {
	return f.escRules, nil
}

func (f *fakeReminderStore) GetOpenLogByItem(ctx context.Context, itemID uuid.UUID) (models.EscalationLog, error) {
	if f.openLog == nil || f.openLog.ItemID != itemID {
		return models.EscalationLog{}, db.ErrNotFound
	}
	return *f.openLog, nil
}

func (f *fakeReminderStore) CreateEscalationLog(ctx context.Context, l models.EscalationLog) (models.EscalationLog, error) {
	l.ID = uuid.New()
	f.createdLogs = append(f.createdLogs, l)
	return l, nil
}

func (f *fakeReminderStore) SetEscalationStatus(ctx context.Context, id uuid.UUID, status models.EscalationStatus) error {
	f.statusChanges[id] = status
	return nil
}

func (f *fakeReminderStore) TouchEscalationReminder(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.touched = append(f.touched, id)
	return nil
}

type fakeDispatcher struct {
	tasks []models.DispatchTask
}

func (f *fakeDispatcher) QueueTask(task models.DispatchTask) {
	f.tasks = append(f.tasks, task)
}

func reminderFixture(today time.Time, daysOut int) (*fakeReminderStore, models.Item) {
	store := newFakeReminderStore()
	orgID := uuid.New()

	recipient := models.Recipient{
		ID: uuid.New(), OrgID: orgID, Name: "Amira", Status: "active",
		Channels: []models.Channel{models.ChannelEmail}, Email: "amira@example.com",
	}
	item := models.Item{
		ID:                uuid.New(),
		OrgID:             orgID,
		Title:             "Trade License",
		RefNumber:         "TL-2209",
		EntityType:        "license",
		WorkflowStatus:    models.StatusNew,
		ResponsiblePerson: recipient.ID,
		ExpiryDate:        today.AddDate(0, 0, daysOut),
		Version:           1,
	}
	store.items = []models.Item{item}
	store.recipients[item.ID] = []models.Recipient{recipient}
	store.rules["license"] = models.ReminderRule{
		OrgID:      orgID,
		DaysBefore: []int{30, 14, 7, 3, 1, 0},
		Channels:   []models.Channel{models.ChannelEmail},
	}
	store.templates[models.ChannelEmail] = models.MessageTemplate{
		Channel: models.ChannelEmail,
		Type:    models.TemplateTypeReminder,
		Body:    "{{title}} ({{ref_number}}) expires in {{days_left}} day(s)",
	}
	store.escRules = []models.EscalationRule{
		{OrgID: orgID, Level: 0, DelayHours: 24, RecipientID: recipient.ID, Status: "active"},
		{OrgID: orgID, Level: 1, DelayHours: 4, RecipientID: uuid.New(), Status: "active"},
	}
	return store, item
}

func TestReminderSweepDispatchesDueItem(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	store, item := reminderFixture(today, 7)
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return today }

	res := sweeper.Run(context.Background())
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Due)
	assert.Equal(t, 1, res.Dispatched)
	assert.Empty(t, res.Errors)

	require.Len(t, dispatcher.tasks, 1)
	assert.Equal(t, "Trade License (TL-2209) expires in 7 day(s)", dispatcher.tasks[0].Body)
	require.Len(t, store.created, 1)
	assert.Equal(t, models.TemplateTypeReminder, store.created[0].Type)

	// first reminder opens the level-0 escalation log
	require.Len(t, store.createdLogs, 1)
	log := store.createdLogs[0]
	assert.Equal(t, 0, log.Level)
	assert.Equal(t, item.ResponsiblePerson, log.CurrentRecipientID)
	assert.Equal(t, today.Add(24*time.Hour), log.NextEscalationAt)
	assert.Equal(t, models.EscalationPending, log.Status)
}

func TestReminderSweepRetryStaysSilent(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	store, _ := reminderFixture(today, 7)
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return today }

	sweeper.Run(context.Background())
	res := sweeper.Run(context.Background())

	assert.Equal(t, 0, res.Dispatched, "the claim table absorbs the retry")
	assert.Len(t, dispatcher.tasks, 1)
	assert.Len(t, store.created, 1)
}

func TestReminderSweepNotDueItemSkipped(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	store, _ := reminderFixture(today, 10)
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return today }

	res := sweeper.Run(context.Background())
	assert.Equal(t, 0, res.Due)
	assert.Empty(t, dispatcher.tasks)
	assert.Empty(t, store.createdLogs)
}

func TestReminderSweepNoRuleIsSilent(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	store, _ := reminderFixture(today, 7)
	delete(store.rules, "license")
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return today }

	res := sweeper.Run(context.Background())
	assert.Empty(t, res.Errors, "a missing rule is configuration, not failure")
	assert.Empty(t, dispatcher.tasks)
}

func TestReminderSweepNoLevelZeroNeverEscalates(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	store, _ := reminderFixture(today, 7)
	store.escRules = store.escRules[1:] // level 1 only, no level 0
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return today }

	res := sweeper.Run(context.Background())
	assert.Equal(t, 1, res.Dispatched, "reminders still go out")
	assert.Empty(t, store.createdLogs, "ladder never starts without a level-0 rule")
}

func TestReminderSweepTouchesExistingOpenLog(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	store, item := reminderFixture(today, 7)
	existing := models.EscalationLog{
		ID:     uuid.New(),
		ItemID: item.ID,
		Level:  1,
		Status: models.EscalationEscalated,
	}
	store.openLog = &existing
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return today }

	sweeper.Run(context.Background())
	assert.Empty(t, store.createdLogs, "open log is reused, not duplicated")
	assert.Equal(t, []uuid.UUID{existing.ID}, store.touched)
}

func TestReminderSweepRestartsAcknowledgedLadder(t *testing.T) {
	today := time.Date(2026, 3, 25, 8, 0, 0, 0, time.UTC)
	store, item := reminderFixture(today, 7)
	frozen := models.EscalationLog{
		ID:     uuid.New(),
		ItemID: item.ID,
		Level:  1,
		Status: models.EscalationAcknowledged,
	}
	store.openLog = &frozen
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return today }

	sweeper.Run(context.Background())
	assert.Equal(t, models.EscalationResolved, store.statusChanges[frozen.ID])
	require.Len(t, store.createdLogs, 1)
	assert.Equal(t, 0, store.createdLogs[0].Level, "new cycle starts back at level 0")
}
