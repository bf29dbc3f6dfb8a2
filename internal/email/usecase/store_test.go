package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	assignmentdomain "triagedesk-backend/internal/assignment/domain"
	assignmentusecase "triagedesk-backend/internal/assignment/usecase"
	emaildomain "triagedesk-backend/internal/email/domain"
	emailrepo "triagedesk-backend/internal/email/repository"
	kanbandomain "triagedesk-backend/internal/kanban/domain"
	"triagedesk-backend/pkg/heuristic"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDeepClassifier struct {
	cls *emaildomain.Classification
}

func (s *stubDeepClassifier) ClassifyEmail(_ context.Context, _ *emaildomain.EmailMessage) (*emaildomain.Classification, error) {
	c := *s.cls
	return &c, nil
}

type memSenderRuleRepo struct {
	mu    sync.Mutex
	rules []emaildomain.SenderRule
}

func (r *memSenderRuleRepo) Create(rule *emaildomain.SenderRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule.ID = uuid.New().String()
	r.rules = append(r.rules, *rule)
	return nil
}

func (r *memSenderRuleRepo) FindByID(id string) (*emaildomain.SenderRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rules {
		if r.rules[i].ID == id {
			rule := r.rules[i]
			return &rule, nil
		}
	}
	return nil, nil
}

func (r *memSenderRuleRepo) ListByUser(_ string) ([]emaildomain.SenderRule, error) {
	return r.ListAll()
}

func (r *memSenderRuleRepo) ListAll() ([]emaildomain.SenderRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emaildomain.SenderRule{}, r.rules...), nil
}

func (r *memSenderRuleRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.rules[:0]
	for _, rule := range r.rules {
		if rule.ID != id {
			out = append(out, rule)
		}
	}
	r.rules = out
	return nil
}

type memActionRepo struct {
	mu      sync.Mutex
	actions []emaildomain.UserAction
}

func (r *memActionRepo) Append(action *emaildomain.UserAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	action.ID = uuid.New().String()
	r.actions = append(r.actions, *action)
	return nil
}

func (r *memActionRepo) ListByUser(_ string, _ int) ([]emaildomain.UserAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emaildomain.UserAction{}, r.actions...), nil
}

func (r *memActionRepo) ListBySender(_ string) ([]emaildomain.UserAction, error) {
	return nil, nil
}

func (r *memActionRepo) ListByDomain(_ string) ([]emaildomain.UserAction, error) {
	return nil, nil
}

func (r *memActionRepo) ListByCategory(_ emaildomain.Category) ([]emaildomain.UserAction, error) {
	return nil, nil
}

func (r *memActionRepo) MineTrainingSets() (*emailrepo.TrainingSets, error) {
	return &emailrepo.TrainingSets{
		WhitelistedSenders: map[string]bool{},
		BlacklistedSenders: map[string]bool{},
		WhitelistedDomains: map[string]bool{},
		BlacklistedDomains: map[string]bool{},
	}, nil
}

type memTaskBackend struct {
	mu      sync.Mutex
	created []*kanbandomain.PersistedTask
	deleted []string
}

func (b *memTaskBackend) Create(task *kanbandomain.PersistedTask) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, task)
	return nil
}

func (b *memTaskBackend) DeleteByEmailID(emailID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, emailID)
	return nil
}

func (b *memTaskBackend) deletedIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.deleted...)
}

type memIndexer struct {
	mu      sync.Mutex
	indexed []string
	removed []string
}

func (i *memIndexer) IndexEmail(_ context.Context, emailID, _, _, _ string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.indexed = append(i.indexed, emailID)
	return nil
}

func (i *memIndexer) RemoveEmail(_ context.Context, emailID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.removed = append(i.removed, emailID)
	return nil
}

func (i *memIndexer) indexedIDs() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string{}, i.indexed...)
}

func (i *memIndexer) removedIDs() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string{}, i.removed...)
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

type noRuleRepo struct{}

func (noRuleRepo) Create(*assignmentdomain.AssignmentRule) error { return nil }
func (noRuleRepo) FindByID(string) (*assignmentdomain.AssignmentRule, error) {
	return nil, nil
}
func (noRuleRepo) ListActive() ([]assignmentdomain.AssignmentRule, error) { return nil, nil }
func (noRuleRepo) ListAll() ([]assignmentdomain.AssignmentRule, error)    { return nil, nil }
func (noRuleRepo) Update(*assignmentdomain.AssignmentRule) error          { return nil }
func (noRuleRepo) Deactivate(string) error                                { return nil }
func (noRuleRepo) RecordMatch(string) error                               { return nil }
func (noRuleRepo) RecordOverride(string) error                            { return nil }

type noClientRepo struct{}

func (noClientRepo) FindBySender(string, string) (*assignmentdomain.Client, error) {
	return nil, nil
}

func testClassification() *emaildomain.Classification {
	return &emaildomain.Classification{
		Category:           emaildomain.CategoryQuestion,
		Priority:           emaildomain.PriorityMedium,
		PriorityScore:      55,
		IsBusinessRelevant: true,
		RequiresResponse:   true,
		ResponseUrgency:    emaildomain.UrgencyToday,
		Summary:            "Client asking about VAT filing",
	}
}

func newTestStore(t *testing.T) (*Store, *memActionRepo, *memTaskBackend) {
	t.Helper()
	actions := &memActionRepo{}
	backend := &memTaskBackend{}
	engine := assignmentusecase.NewEngine(noRuleRepo{}, noClientRepo{}, actions)
	store := NewStore(
		heuristic.New([]string{"ourfirm.com"}),
		&stubDeepClassifier{cls: testClassification()},
		engine,
		&memSenderRuleRepo{},
		actions,
		backend,
		nil,
	)
	require.NoError(t, store.LoadCaches())
	return store, actions, backend
}

func clientEmail(id, from, subject string) *emaildomain.EmailMessage {
	return &emaildomain.EmailMessage{
		ID:         id,
		AccountID:  "acc1",
		From:       from,
		Subject:    subject,
		Body:       "Could you review the attached invoice and confirm the payment deadline for our tax filing?",
		ReceivedAt: time.Now(),
	}
}

func TestClassifyAndFile_RelevantEmailGetsTask(t *testing.T) {
	store, _, _ := newTestStore(t)

	email := clientEmail("e1", "jane@acme.com", "Question about invoice 1042")
	store.ClassifyAndFile(context.Background(), email)

	require.Len(t, store.Relevant(), 1)
	assert.Empty(t, store.Rejected())

	tasks := store.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "e1", tasks[0].EmailID)
	assert.Equal(t, "Question about invoice 1042", tasks[0].Title)
	assert.Equal(t, kanbandomain.StatusPending, tasks[0].Status)
	require.NotNil(t, tasks[0].DueDate, "urgency today must set a due date")
}

func TestClassifyAndFile_SpamIsRejectedWithoutTask(t *testing.T) {
	store, _, _ := newTestStore(t)

	email := clientEmail("e1", "noreply@deals.example.com", "WIN a FREE prize - 50% off!!!")
	email.Body = "Limited time offer, click here to unsubscribe from this marketing blast"
	store.ClassifyAndFile(context.Background(), email)

	assert.Empty(t, store.Relevant())
	require.Len(t, store.Rejected(), 1)
	assert.Empty(t, store.Tasks())
}

func TestMarkAsRejected_ThenUndoRestoresEmailAndTask(t *testing.T) {
	store, _, _ := newTestStore(t)

	email := clientEmail("e1", "jane@acme.com", "Question about invoice 1042")
	store.ClassifyAndFile(context.Background(), email)
	require.Len(t, store.Tasks(), 1)

	require.NoError(t, store.MarkAsRejected("u1", "e1"))
	assert.Empty(t, store.Relevant())
	assert.Len(t, store.Rejected(), 1)
	assert.Empty(t, store.Tasks(), "rejecting an email drops its task")

	assert.True(t, store.UndoLastAction())
	require.Len(t, store.Relevant(), 1)
	assert.Empty(t, store.Rejected())
	tasks := store.Tasks()
	require.Len(t, tasks, 1, "undo restores an equivalent task")
	assert.Equal(t, "e1", tasks[0].EmailID)

	assert.False(t, store.UndoLastAction(), "second undo in a row is a no-op")
}

func TestMark_SingleActionOverwritesUndoSlot(t *testing.T) {
	store, _, _ := newTestStore(t)

	store.ClassifyAndFile(context.Background(), clientEmail("e1", "jane@acme.com", "Question one"))
	store.ClassifyAndFile(context.Background(), clientEmail("e2", "bob@acme.com", "Question two"))

	require.NoError(t, store.MarkAsRejected("u1", "e1"))
	require.NoError(t, store.MarkAsRejected("u1", "e2"))

	// Undo reverses only the most recent action.
	assert.True(t, store.UndoLastAction())
	assert.NotNil(t, findByID(store.Relevant(), "e2"))
	assert.NotNil(t, findByID(store.Rejected(), "e1"))
}

func TestMarkMultiple_DoesNotPopulateUndoSlot(t *testing.T) {
	store, _, _ := newTestStore(t)

	store.ClassifyAndFile(context.Background(), clientEmail("e1", "jane@acme.com", "Question one"))
	store.ClassifyAndFile(context.Background(), clientEmail("e2", "bob@acme.com", "Question two"))

	errs := store.MarkMultipleAsRejected("u1", []string{"e1", "e2", "missing"})
	require.Len(t, errs, 1, "unknown ids fail individually")
	assert.Len(t, store.Rejected(), 2)

	assert.False(t, store.UndoLastAction())
}

func TestMark_UnknownEmailReturnsNotFound(t *testing.T) {
	store, _, _ := newTestStore(t)
	assert.ErrorIs(t, store.MarkAsRelevant("u1", "nope"), ErrEmailNotFound)
}

func TestTaskDerivation_ReadEmailWithoutResponseNeedHasNoTask(t *testing.T) {
	store, _, _ := newTestStore(t)
	store.deep = &stubDeepClassifier{cls: &emaildomain.Classification{
		Category:           emaildomain.CategoryInformation,
		Priority:           emaildomain.PriorityLow,
		IsBusinessRelevant: true,
		RequiresResponse:   false,
	}}

	email := clientEmail("e1", "jane@acme.com", "FYI: ledger uploaded, please find the details attached")
	email.IsRead = true
	store.ClassifyAndFile(context.Background(), email)

	require.Len(t, store.Relevant(), 1)
	assert.Empty(t, store.Tasks(), "read emails that need no response carry no task")
}

func TestRecompute_PreservesSurvivingTaskStatus(t *testing.T) {
	store, _, _ := newTestStore(t)

	store.ClassifyAndFile(context.Background(), clientEmail("e1", "jane@acme.com", "Question one"))
	store.MutateTasks(func(tasks []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask {
		tasks[0].Status = kanbandomain.StatusInProgress
		tasks[0].Selected = true
		return tasks
	})

	// Any partition change triggers a recompute.
	store.ClassifyAndFile(context.Background(), clientEmail("e2", "bob@acme.com", "Question two"))

	var survivor *kanbandomain.KanbanTask
	for _, task := range store.Tasks() {
		if task.EmailID == "e1" {
			survivor = task
		}
	}
	require.NotNil(t, survivor)
	assert.Equal(t, kanbandomain.StatusInProgress, survivor.Status)
	assert.True(t, survivor.Selected)
}

func TestReplaceAccount_ReplacesNotMerges(t *testing.T) {
	store, _, _ := newTestStore(t)

	store.ClassifyAndFile(context.Background(), clientEmail("e1", "jane@acme.com", "Question one"))
	store.ClassifyAndFile(context.Background(), clientEmail("e2", "bob@acme.com", "Question two"))

	other := clientEmail("e9", "sue@acme.com", "Question nine")
	other.AccountID = "acc2"
	other.Relevance = emaildomain.RelevanceRelevant
	store.ClassifyAndFile(context.Background(), other)

	fresh := clientEmail("e3", "amy@acme.com", "Question three")
	fresh.Relevance = emaildomain.RelevanceRelevant
	store.ReplaceAccount("acc1", []*emaildomain.EmailMessage{fresh}, nil)

	relevant := store.Relevant()
	require.Len(t, relevant, 2)
	assert.Nil(t, findByID(relevant, "e1"))
	assert.Nil(t, findByID(relevant, "e2"))
	assert.NotNil(t, findByID(relevant, "e3"))
	assert.NotNil(t, findByID(relevant, "e9"), "other accounts untouched")
}

func TestAddSenderRule_DenyRefilesExistingEmails(t *testing.T) {
	store, _, _ := newTestStore(t)

	store.ClassifyAndFile(context.Background(), clientEmail("e1", "jane@acme.com", "Question one"))
	require.Len(t, store.Relevant(), 1)

	_, err := store.AddSenderRule("u1", "jane@acme.com", false, emaildomain.SenderDeny)
	require.NoError(t, err)

	assert.Empty(t, store.Relevant())
	assert.Len(t, store.Rejected(), 1)

	// New mail from the sender is rejected before the deep stage.
	store.ClassifyAndFile(context.Background(), clientEmail("e2", "jane@acme.com", "Question two"))
	assert.Len(t, store.Rejected(), 2)
}

func TestClassifyAndFile_RelevantEmailIsIndexed(t *testing.T) {
	store, _, _ := newTestStore(t)
	idx := &memIndexer{}
	store.SetIndexer(idx)

	store.ClassifyAndFile(context.Background(), clientEmail("e1", "jane@acme.com", "Question about invoice 1042"))

	assert.Eventually(t, func() bool {
		return containsID(idx.indexedIDs(), "e1")
	}, time.Second, 10*time.Millisecond, "relevant mail is upserted into the search collection")
}

func TestMarkAsRejected_RemovesIndexEntryAndPersistedTask(t *testing.T) {
	store, _, backend := newTestStore(t)
	idx := &memIndexer{}
	store.SetIndexer(idx)

	store.ClassifyAndFile(context.Background(), clientEmail("e1", "jane@acme.com", "Question about invoice 1042"))
	require.NoError(t, store.MarkAsRejected("u1", "e1"))

	assert.Eventually(t, func() bool {
		return containsID(idx.removedIDs(), "e1") && containsID(backend.deletedIDs(), "e1")
	}, time.Second, 10*time.Millisecond, "rejection clears the index entry and the persisted task row")
}

func TestDropAccount_ClearsIndexAndPersistedTasks(t *testing.T) {
	store, _, backend := newTestStore(t)
	idx := &memIndexer{}
	store.SetIndexer(idx)

	store.ClassifyAndFile(context.Background(), clientEmail("e1", "jane@acme.com", "Question one"))
	other := clientEmail("e9", "sue@acme.com", "Question nine")
	other.AccountID = "acc2"
	store.ClassifyAndFile(context.Background(), other)

	store.DropAccount("acc1")

	assert.Eventually(t, func() bool {
		return containsID(idx.removedIDs(), "e1") && containsID(backend.deletedIDs(), "e1")
	}, time.Second, 10*time.Millisecond)
	assert.False(t, containsID(idx.removedIDs(), "e9"), "other accounts keep their index entries")
	require.Len(t, store.Relevant(), 1)
}

func TestSetRead_ShedsTaskWhenNoResponseNeeded(t *testing.T) {
	store, _, _ := newTestStore(t)
	store.deep = &stubDeepClassifier{cls: &emaildomain.Classification{
		Category:           emaildomain.CategoryInformation,
		Priority:           emaildomain.PriorityLow,
		IsBusinessRelevant: true,
		RequiresResponse:   false,
	}}

	email := clientEmail("e1", "jane@acme.com", "FYI: ledger uploaded, please find the details attached")
	store.ClassifyAndFile(context.Background(), email)
	require.Len(t, store.Tasks(), 1, "unread mail carries a task")

	require.NoError(t, store.SetRead("e1"))
	assert.Empty(t, store.Tasks(), "a read email that needs no response sheds its task")
	assert.True(t, store.FindEmail("e1").IsRead)

	assert.ErrorIs(t, store.SetRead("nope"), ErrEmailNotFound)
}

func TestAddSenderRule_AllowBeatsHeuristicSpamVerdict(t *testing.T) {
	store, _, _ := newTestStore(t)

	_, err := store.AddSenderRule("u1", "deals.example.com", true, emaildomain.SenderAllow)
	require.NoError(t, err)

	email := clientEmail("e1", "noreply@deals.example.com", "WIN a FREE prize - 50% off!!!")
	email.Body = "Limited time offer, click here to unsubscribe from this marketing blast"
	store.ClassifyAndFile(context.Background(), email)

	require.Len(t, store.Relevant(), 1)
	assert.Empty(t, store.Rejected())
}
