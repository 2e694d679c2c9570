package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-reminder-service/internal/db"
	"hr-reminder-service/internal/logging"
	"hr-reminder-service/internal/models"
)

type fakeEscalationStore struct {
	logs       []models.EscalationLog
	rules      []models.EscalationRule
	items      map[uuid.UUID]models.Item
	recipients map[uuid.UUID]models.Recipient
	templates  map[models.Channel]models.MessageTemplate

	advances      []advanceCall
	advanceErr    error
	statusChanges map[uuid.UUID]models.EscalationStatus
	transitions   []models.WorkflowStatus
	created       []models.Notification
}

type advanceCall struct {
	logID       uuid.UUID
	level       int
	recipientID uuid.UUID
}

func newFakeEscalationStore() *fakeEscalationStore {
	return &fakeEscalationStore{
		items:         make(map[uuid.UUID]models.Item),
		recipients:    make(map[uuid.UUID]models.Recipient),
		templates:     make(map[models.Channel]models.MessageTemplate),
		statusChanges: make(map[uuid.UUID]models.EscalationStatus),
	}
}

func (f *fakeEscalationStore) ListOpenLogs(ctx context.Context) ([]models.EscalationLog, error) {
	return f.logs, nil
}

func (f *fakeEscalationStore) ListEscalationRules(ctx context.Context, orgID uuid.UUID) ([]models.EscalationRule, error) {
	return f.rules, nil
}

func (f *fakeEscalationStore) AdvanceEscalationLog(ctx context.Context, id uuid.UUID, level int, recipientID uuid.UUID, nextAt time.Time) error {
	if f.advanceErr != nil {
		return f.advanceErr
	}
	f.advances = append(f.advances, advanceCall{logID: id, level: level, recipientID: recipientID})
	return nil
}

func (f *fakeEscalationStore) SetEscalationStatus(ctx context.Context, id uuid.UUID, status models.EscalationStatus) error {
	f.statusChanges[id] = status
	return nil
}

func (f *fakeEscalationStore) GetItem(ctx context.Context, id string) (models.Item, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return models.Item{}, err
	}
	item, ok := f.items[parsed]
	if !ok {
		return models.Item{}, db.ErrNotFound
	}
	return item, nil
}

func (f *fakeEscalationStore) CommitTransition(ctx context.Context, itemID uuid.UUID, version int64, from, to models.WorkflowStatus, actorID, note string) error {
	f.transitions = append(f.transitions, to)
	item := f.items[itemID]
	item.WorkflowStatus = to
	item.Version++
	f.items[itemID] = item
	return nil
}

func (f *fakeEscalationStore) GetRecipient(ctx context.Context, id string) (models.Recipient, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return models.Recipient{}, err
	}
	rec, ok := f.recipients[parsed]
	if !ok {
		return models.Recipient{}, db.ErrNotFound
	}
	return rec, nil
}

func (f *fakeEscalationStore) GetCategoryName(ctx context.Context, id uuid.UUID) (string, error) {
	return "Licenses", nil
}

func (f *fakeEscalationStore) GetActiveTemplates(ctx context.Context, orgID uuid.UUID, msgType string, level *int) (map[models.Channel]models.MessageTemplate, error) {
	return f.templates, nil
}

func (f *fakeEscalationStore) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	n.ID = uuid.New()
	f.created = append(f.created, n)
	return n, nil
}

type fakeDispatcher struct {
	tasks []models.DispatchTask
}

func (f *fakeDispatcher) QueueTask(task models.DispatchTask) {
	f.tasks = append(f.tasks, task)
}

func escalationFixture(now time.Time) (*fakeEscalationStore, models.EscalationLog) {
	store := newFakeEscalationStore()
	orgID := uuid.New()

	employee := models.Recipient{ID: uuid.New(), Name: "Amira", Status: "active",
		Channels: []models.Channel{models.ChannelEmail}, Email: "amira@example.com"}
	supervisor := models.Recipient{ID: uuid.New(), Name: "Bilal", Status: "active",
		Channels: []models.Channel{models.ChannelEmail, models.ChannelTelegram}, Email: "bilal@example.com"}
	store.recipients[employee.ID] = employee
	store.recipients[supervisor.ID] = supervisor

	item := models.Item{
		ID:                uuid.New(),
		OrgID:             orgID,
		Title:             "Trade License",
		EntityType:        "license",
		WorkflowStatus:    models.StatusInProgress,
		ResponsiblePerson: employee.ID,
		ExpiryDate:        now.AddDate(0, 0, 2),
		Version:           1,
	}
	store.items[item.ID] = item

	store.rules = []models.EscalationRule{
		{OrgID: orgID, Level: 0, DelayHours: 24, RecipientID: employee.ID,
			Channels: []models.Channel{models.ChannelEmail}, Status: "active"},
		{OrgID: orgID, Level: 1, DelayHours: 4, RecipientID: supervisor.ID,
			Channels: []models.Channel{models.ChannelEmail}, Status: "active"},
	}
	store.templates[models.ChannelEmail] = models.MessageTemplate{
		Channel: models.ChannelEmail,
		Type:    models.TemplateTypeEscalation,
		Body:    "{{title}} is overdue, now with you.",
	}

	log := models.EscalationLog{
		ID:                 uuid.New(),
		OrgID:              orgID,
		ItemID:             item.ID,
		Level:              0,
		Status:             models.EscalationPending,
		CurrentRecipientID: employee.ID,
		NextEscalationAt:   now.Add(-time.Hour),
	}
	store.logs = []models.EscalationLog{log}
	return store, log
}

func TestSweepAdvancesAndNotifies(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store, log := escalationFixture(now)
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return now }

	res := sweeper.Run(context.Background())
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Advanced)
	assert.Empty(t, res.Errors)

	require.Len(t, store.advances, 1)
	assert.Equal(t, log.ID, store.advances[0].logID)
	assert.Equal(t, 1, store.advances[0].level)

	// item is parked in escalated_to_manager
	item := store.items[log.ItemID]
	assert.Equal(t, models.StatusEscalatedToManager, item.WorkflowStatus)

	// the level-1 recipient got the message on their enabled channel
	require.Len(t, dispatcher.tasks, 1)
	assert.Equal(t, "Bilal", dispatcher.tasks[0].Recipient.Name)
	assert.Equal(t, models.ChannelEmail, dispatcher.tasks[0].Channel)
	assert.Equal(t, "Trade License is overdue, now with you.", dispatcher.tasks[0].Body)
	require.Len(t, store.created, 1)
	assert.Equal(t, models.TemplateTypeEscalation, store.created[0].Type)
}

func TestSweepExpiresLadderGap(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store, log := escalationFixture(now)
	store.rules = store.rules[:1] // only level 0 left
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return now }

	res := sweeper.Run(context.Background())
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 0, res.Advanced)
	assert.Equal(t, models.EscalationExpired, store.statusChanges[log.ID])
	assert.Empty(t, dispatcher.tasks)
}

func TestSweepSkipsConcurrentAdvance(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store, _ := escalationFixture(now)
	store.advanceErr = db.ErrVersionConflict
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return now }

	res := sweeper.Run(context.Background())
	assert.Equal(t, 0, res.Advanced)
	assert.Empty(t, res.Errors, "losing the race is not an error")
	assert.Empty(t, dispatcher.tasks)
}

func TestSweepLeavesNotDueLogsAlone(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store, _ := escalationFixture(now)
	store.logs[0].NextEscalationAt = now.Add(2 * time.Hour)
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return now }

	res := sweeper.Run(context.Background())
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 0, res.Advanced)
	assert.Equal(t, 0, res.Expired)
	assert.Empty(t, store.advances)
}

func TestSweepFinishedItemNotReEscalated(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store, log := escalationFixture(now)
	item := store.items[log.ItemID]
	item.WorkflowStatus = models.StatusFinished
	store.items[log.ItemID] = item
	dispatcher := &fakeDispatcher{}

	sweeper := NewSweeper(store, dispatcher, logging.Discard())
	sweeper.Now = func() time.Time { return now }

	sweeper.Run(context.Background())
	assert.Empty(t, store.transitions, "finished items keep their status")
	// the ladder itself still advances and notifies the supervisor
	assert.Len(t, store.advances, 1)
	assert.Len(t, dispatcher.tasks, 1)
}
