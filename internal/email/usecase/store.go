package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	emaildomain "triagedesk-backend/internal/email/domain"
	emailrepo "triagedesk-backend/internal/email/repository"
	kanbandomain "triagedesk-backend/internal/kanban/domain"
	"triagedesk-backend/pkg/ai"
	"triagedesk-backend/pkg/heuristic"

	assignmentdomain "triagedesk-backend/internal/assignment/domain"
	assignmentusecase "triagedesk-backend/internal/assignment/usecase"

	"github.com/google/uuid"
)

var ErrEmailNotFound = errors.New("email not found")

// Notifier receives fire-and-forget triage events (SSE broadcast, urgent
// push). Failures are the notifier's problem, never the store's.
type Notifier interface {
	EmailFiled(email *emaildomain.EmailMessage)
	UrgentEmail(email *emaildomain.EmailMessage)
	TaskCreated(task *kanbandomain.KanbanTask)
}

// EmailIndexer keeps the semantic-search collection in step with the relevant
// partition. Indexing is best-effort: related-email lookups degrade, triage
// does not.
type EmailIndexer interface {
	IndexEmail(ctx context.Context, emailID, sender, subject, body string) error
	RemoveEmail(ctx context.Context, emailID string) error
}

// Store is the single shared mutable resource of the triage pipeline: the
// relevant/rejected partitions, the derived task list, sender overrides, the
// mined training cache, and the single-slot undo buffer. Every mutation
// replaces whole slices rather than editing in place.
type Store struct {
	mu sync.RWMutex

	relevant []*emaildomain.EmailMessage
	rejected []*emaildomain.EmailMessage
	tasks    []*kanbandomain.KanbanTask

	senderRules []emaildomain.SenderRule
	training    *emailrepo.TrainingSets
	lastAction  *emaildomain.UndoAction

	heuristic *heuristic.Classifier
	deep      ai.ClassifierService
	engine    *assignmentusecase.Engine

	senderRepo  emailrepo.SenderRuleRepository
	actionRepo  emailrepo.UserActionRepository
	taskBackend TaskBackend
	notifier    Notifier
	indexer     EmailIndexer
}

// TaskBackend is the slice of the kanban persistence port the store needs.
type TaskBackend interface {
	Create(task *kanbandomain.PersistedTask) error
	DeleteByEmailID(emailID string) error
}

// NewStore wires the triage store. deep must already be failure-wrapped; the
// store never handles classifier errors.
func NewStore(
	h *heuristic.Classifier,
	deep ai.ClassifierService,
	engine *assignmentusecase.Engine,
	senderRepo emailrepo.SenderRuleRepository,
	actionRepo emailrepo.UserActionRepository,
	taskBackend TaskBackend,
	notifier Notifier,
) *Store {
	return &Store{
		heuristic:   h,
		deep:        deep,
		engine:      engine,
		senderRepo:  senderRepo,
		actionRepo:  actionRepo,
		taskBackend: taskBackend,
		notifier:    notifier,
		training:    &emailrepo.TrainingSets{},
	}
}

// SetNotifier installs the event sink after construction. The notification
// service needs the syncer, which needs the store, so the notifier is wired
// last.
func (s *Store) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// SetIndexer installs the optional semantic-search sink. Without one the store
// simply skips index maintenance.
func (s *Store) SetIndexer(idx EmailIndexer) {
	s.mu.Lock()
	s.indexer = idx
	s.mu.Unlock()
}

// LoadCaches refreshes the sender-rule list and the mined whitelist/blacklist
// sets. Called at startup and after training-relevant writes.
func (s *Store) LoadCaches() error {
	rules, err := s.senderRepo.ListAll()
	if err != nil {
		return err
	}

	sets, err := s.actionRepo.MineTrainingSets()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.senderRules = rules
	s.training = sets
	s.mu.Unlock()
	return nil
}

// ClassifyAndFile runs the full pipeline over one fetched message and files
// it into a partition. Sender rules override everything; the mined training
// sets override the heuristic; rejected mail never reaches the deep stage.
func (s *Store) ClassifyAndFile(ctx context.Context, email *emaildomain.EmailMessage) {
	relevance := s.resolveRelevance(email)
	email.Relevance = relevance

	if relevance == emaildomain.RelevanceRejected {
		s.mu.Lock()
		s.rejected = appendReplacing(s.rejected, email)
		s.relevant = removeByID(s.relevant, email.ID)
		s.recomputeTasksLocked()
		s.mu.Unlock()
		s.removeFromIndex(email.ID)
		s.dropPersistedTask(email.ID)
		s.notifyFiled(email)
		return
	}

	// Relevant mail is enriched by the deep classifier and routed. The deep
	// service is failure-wrapped, so err is always nil.
	cls, _ := s.deep.ClassifyEmail(ctx, email)
	email.Classification = cls

	result := s.engine.DetermineAssignment(email, cls)

	s.mu.Lock()
	s.relevant = appendReplacing(s.relevant, email)
	s.rejected = removeByID(s.rejected, email.ID)
	s.recomputeTasksLocked()
	task := s.findTaskLocked(email.ID)
	if task != nil {
		applyAssignment(task, result)
	}
	s.mu.Unlock()

	if task != nil && result.ShouldCreateTask {
		s.persistTask(task)
	}

	s.indexEmail(email)
	s.notifyFiled(email)
	if cls != nil && cls.Priority == emaildomain.PriorityUrgent && s.notifier != nil {
		s.notifier.UrgentEmail(email)
	}
}

// resolveRelevance applies sender rules, then the training cache, then the
// heuristic classifier. The heuristic attaches its coarse classification as a
// side effect.
func (s *Store) resolveRelevance(email *emaildomain.EmailMessage) emaildomain.RelevanceState {
	sender := strings.ToLower(email.From)
	domain := email.Domain()

	s.mu.RLock()
	rules := s.senderRules
	training := s.training
	s.mu.RUnlock()

	for i := range rules {
		if !rules[i].Matches(sender) {
			continue
		}
		if rules[i].Action == emaildomain.SenderAllow {
			return emaildomain.RelevanceRelevant
		}
		return emaildomain.RelevanceRejected
	}

	if training != nil {
		switch {
		case training.BlacklistedSenders[sender] || training.BlacklistedDomains[domain]:
			return emaildomain.RelevanceRejected
		case training.WhitelistedSenders[sender] || training.WhitelistedDomains[domain]:
			return emaildomain.RelevanceRelevant
		}
	}

	res := s.heuristic.Classify(email)
	email.Classification = res.Classification
	if res.Relevance == heuristic.RelevanceRelevant {
		return emaildomain.RelevanceRelevant
	}
	return emaildomain.RelevanceRejected
}

// MarkAsRelevant moves an email out of the rejected partition, regenerates its
// task, and records the inverse in the undo slot.
func (s *Store) MarkAsRelevant(userID, emailID string) error {
	return s.mark(userID, emailID, emaildomain.RelevanceRelevant, true)
}

// MarkAsRejected moves an email into the rejected partition, drops its task,
// and records the inverse in the undo slot.
func (s *Store) MarkAsRejected(userID, emailID string) error {
	return s.mark(userID, emailID, emaildomain.RelevanceRejected, true)
}

// MarkMultipleAsRelevant applies the single-item operation to each id
// independently. Bulk actions never populate the undo slot.
func (s *Store) MarkMultipleAsRelevant(userID string, emailIDs []string) []error {
	return s.markMultiple(userID, emailIDs, emaildomain.RelevanceRelevant)
}

func (s *Store) MarkMultipleAsRejected(userID string, emailIDs []string) []error {
	return s.markMultiple(userID, emailIDs, emaildomain.RelevanceRejected)
}

func (s *Store) markMultiple(userID string, emailIDs []string, target emaildomain.RelevanceState) []error {
	var errs []error
	for _, id := range emailIDs {
		if err := s.mark(userID, id, target, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (s *Store) mark(userID, emailID string, target emaildomain.RelevanceState, recordUndo bool) error {
	s.mu.Lock()

	email := findByID(s.relevant, emailID)
	if email == nil {
		email = findByID(s.rejected, emailID)
	}
	if email == nil {
		s.mu.Unlock()
		return ErrEmailNotFound
	}

	original := email.Relevance
	if original == target {
		s.mu.Unlock()
		return nil
	}

	s.moveLocked(email, target)

	if recordUndo {
		actionType := emaildomain.UndoMarkRelevant
		if target == emaildomain.RelevanceRejected {
			actionType = emaildomain.UndoMarkRejected
		}
		s.lastAction = &emaildomain.UndoAction{
			EmailID:    emailID,
			ActionType: actionType,
			Timestamp:  time.Now(),
		}
	}
	s.mu.Unlock()

	s.syncIndex(email, target)
	s.recordTraining(userID, email, original, target)
	return nil
}

// syncIndex mirrors a relevance change into the search collection and clears
// the persisted task row when an email leaves the board.
func (s *Store) syncIndex(email *emaildomain.EmailMessage, target emaildomain.RelevanceState) {
	if target == emaildomain.RelevanceRelevant {
		s.indexEmail(email)
		return
	}
	s.removeFromIndex(email.ID)
	s.dropPersistedTask(email.ID)
}

// moveLocked atomically swaps the email between partitions and recomputes
// the derived task list. Caller holds the write lock.
func (s *Store) moveLocked(email *emaildomain.EmailMessage, target emaildomain.RelevanceState) {
	email.Relevance = target
	if target == emaildomain.RelevanceRelevant {
		s.relevant = appendReplacing(s.relevant, email)
		s.rejected = removeByID(s.rejected, email.ID)
	} else {
		s.rejected = appendReplacing(s.rejected, email)
		s.relevant = removeByID(s.relevant, email.ID)
	}
	s.recomputeTasksLocked()
}

// UndoLastAction reverses exactly the last recorded relevance action and
// clears the slot. A second call in a row is a no-op.
func (s *Store) UndoLastAction() bool {
	s.mu.Lock()

	if s.lastAction == nil {
		s.mu.Unlock()
		return false
	}
	action := s.lastAction
	s.lastAction = nil

	email := findByID(s.relevant, action.EmailID)
	if email == nil {
		email = findByID(s.rejected, action.EmailID)
	}
	if email == nil {
		s.mu.Unlock()
		return false
	}

	target := emaildomain.RelevanceRejected
	if action.ActionType == emaildomain.UndoMarkRejected {
		target = emaildomain.RelevanceRelevant
	}
	s.moveLocked(email, target)
	s.mu.Unlock()

	s.syncIndex(email, target)
	return true
}

// ReplaceAccount swaps the partitions for one account wholesale. Emails from
// other accounts are untouched. Used by sync: replace, not merge.
func (s *Store) ReplaceAccount(accountID string, relevant, rejected []*emaildomain.EmailMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keepRelevant := filterOutAccount(s.relevant, accountID)
	keepRejected := filterOutAccount(s.rejected, accountID)

	s.relevant = append(keepRelevant, relevant...)
	s.rejected = append(keepRejected, rejected...)
	s.recomputeTasksLocked()
}

// DropAccount removes every email and task belonging to a disconnected
// account, including its search-index entries and persisted task rows.
func (s *Store) DropAccount(accountID string) {
	s.mu.RLock()
	var ids []string
	for _, e := range s.relevant {
		if e.AccountID == accountID {
			ids = append(ids, e.ID)
		}
	}
	s.mu.RUnlock()

	s.ReplaceAccount(accountID, nil, nil)

	for _, id := range ids {
		s.removeFromIndex(id)
		s.dropPersistedTask(id)
	}
}

// SetRead flips the read flag and recomputes the task list, since a read email
// with no pending response sheds its task.
func (s *Store) SetRead(emailID string) error {
	s.mu.Lock()
	email := findByID(s.relevant, emailID)
	if email == nil {
		email = findByID(s.rejected, emailID)
	}
	if email == nil {
		s.mu.Unlock()
		return ErrEmailNotFound
	}
	email.IsRead = true
	s.recomputeTasksLocked()
	s.mu.Unlock()
	return nil
}

// AddSenderRule persists an allow/deny override, refreshes the cache, and
// immediately re-files every loaded email the rule matches. Sender rules are
// the highest-priority override, so the re-file bypasses the undo slot.
func (s *Store) AddSenderRule(userID, pattern string, isDomain bool, action emaildomain.SenderRuleAction) (*emaildomain.SenderRule, error) {
	rule := &emaildomain.SenderRule{
		UserID:   userID,
		Pattern:  pattern,
		IsDomain: isDomain,
		Action:   action,
	}
	if err := s.senderRepo.Create(rule); err != nil {
		return nil, err
	}

	target := emaildomain.RelevanceRelevant
	if action == emaildomain.SenderDeny {
		target = emaildomain.RelevanceRejected
	}

	s.mu.Lock()
	s.senderRules = append(append([]emaildomain.SenderRule{}, s.senderRules...), *rule)
	for _, email := range append(append([]*emaildomain.EmailMessage{}, s.relevant...), s.rejected...) {
		if rule.Matches(email.From) && email.Relevance != target {
			s.moveLocked(email, target)
		}
	}
	s.mu.Unlock()

	return rule, nil
}

// RemoveSenderRule deletes an override and refreshes the cache.
func (s *Store) RemoveSenderRule(ruleID string) error {
	if err := s.senderRepo.Delete(ruleID); err != nil {
		return err
	}
	return s.LoadCaches()
}

// Relevant returns a snapshot of the relevant partition.
func (s *Store) Relevant() []*emaildomain.EmailMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*emaildomain.EmailMessage{}, s.relevant...)
}

// Rejected returns a snapshot of the rejected partition.
func (s *Store) Rejected() []*emaildomain.EmailMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*emaildomain.EmailMessage{}, s.rejected...)
}

// Tasks returns a snapshot of the derived task list.
func (s *Store) Tasks() []*kanbandomain.KanbanTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*kanbandomain.KanbanTask{}, s.tasks...)
}

// FindEmail looks an email up in either partition.
func (s *Store) FindEmail(emailID string) *emaildomain.EmailMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if email := findByID(s.relevant, emailID); email != nil {
		return email
	}
	return findByID(s.rejected, emailID)
}

// FindTask returns the board task for an email, or nil.
func (s *Store) FindTask(taskID string) *kanbandomain.KanbanTask {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == taskID {
			return t
		}
	}
	return nil
}

// MutateTasks runs fn under the write lock against the live task slice and
// returns the resulting snapshot. The kanban board uses this for drag,
// reorder, and bulk transitions.
func (s *Store) MutateTasks(fn func(tasks []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = fn(s.tasks)
	return append([]*kanbandomain.KanbanTask{}, s.tasks...)
}

// recomputeTasksLocked rebuilds the task list from the relevant partition: a
// message carries a task iff it is unread or requires a response. Existing
// tasks keep their status, selection, and assignment when their email
// survives the recompute.
func (s *Store) recomputeTasksLocked() {
	existing := make(map[string]*kanbandomain.KanbanTask, len(s.tasks))
	for _, t := range s.tasks {
		existing[t.EmailID] = t
	}

	var tasks []*kanbandomain.KanbanTask
	for _, email := range s.relevant {
		if !taskWorthy(email) {
			continue
		}
		if t, ok := existing[email.ID]; ok {
			tasks = append(tasks, t)
			continue
		}
		tasks = append(tasks, newTaskFromEmail(email))
	}
	s.tasks = tasks
}

func taskWorthy(email *emaildomain.EmailMessage) bool {
	if !email.IsRead {
		return true
	}
	return email.Classification != nil && email.Classification.RequiresResponse
}

func newTaskFromEmail(email *emaildomain.EmailMessage) *kanbandomain.KanbanTask {
	now := time.Now()
	task := &kanbandomain.KanbanTask{
		ID:        uuid.New().String(),
		EmailID:   email.ID,
		Title:     email.Subject,
		Status:    kanbandomain.StatusPending,
		Priority:  emaildomain.PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if task.Title == "" {
		task.Title = "(no subject)"
	}

	cls := email.Classification
	if cls == nil {
		return task
	}

	task.Priority = cls.Priority
	if cls.Summary != "" {
		task.Description = cls.Summary
	}
	task.DueDate = ai.DueDateForUrgency(cls.ResponseUrgency, cls.DeadlineDetected, now)
	if task.DueDate != nil {
		reminder := task.DueDate.Add(-30 * time.Minute)
		task.ReminderAt = &reminder
	}
	return task
}

func applyAssignment(task *kanbandomain.KanbanTask, result *assignmentdomain.AssignmentResult) {
	task.Status = result.AssignedColumn
	task.AssigneeID = result.AssignedUserID
	task.AssigneeName = result.AssignedUserName
	task.Tags = result.Tags
	if result.Priority != "" {
		task.Priority = emaildomain.Priority(result.Priority)
	}
}

// persistTask POSTs a created task to the backend, fire-and-forget.
func (s *Store) persistTask(task *kanbandomain.KanbanTask) {
	if s.taskBackend == nil {
		return
	}
	row := &kanbandomain.PersistedTask{
		ID:          task.ID,
		UserID:      task.AssigneeID,
		EmailID:     task.EmailID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    string(task.Priority),
		Status:      kanbandomain.BackendStatus(task.Status),
		AssigneeID:  task.AssigneeID,
		Tags:        task.Tags,
		DueDate:     task.DueDate,
		ReminderAt:  task.ReminderAt,
	}
	if row.Status == "" {
		row.Status = kanbandomain.StatusPending
	}
	go func() {
		if err := s.taskBackend.Create(row); err != nil {
			log.Printf("[Store] Failed to persist task %s: %v", row.ID, err)
		}
	}()
	if s.notifier != nil {
		s.notifier.TaskCreated(task)
	}
}

// dropPersistedTask deletes the backend task row tied to an email that left
// the relevant partition, fire-and-forget.
func (s *Store) dropPersistedTask(emailID string) {
	if s.taskBackend == nil {
		return
	}
	go func() {
		if err := s.taskBackend.DeleteByEmailID(emailID); err != nil {
			log.Printf("[Store] Failed to delete persisted task for email %s: %v", emailID, err)
		}
	}()
}

// indexEmail upserts a relevant email into the search collection,
// fire-and-forget.
func (s *Store) indexEmail(email *emaildomain.EmailMessage) {
	if s.indexer == nil {
		return
	}
	go func() {
		if err := s.indexer.IndexEmail(context.Background(), email.ID, email.From, email.Subject, email.Body); err != nil {
			log.Printf("[Store] Failed to index email %s: %v", email.ID, err)
		}
	}()
}

func (s *Store) removeFromIndex(emailID string) {
	if s.indexer == nil {
		return
	}
	go func() {
		if err := s.indexer.RemoveEmail(context.Background(), emailID); err != nil {
			log.Printf("[Store] Failed to remove email %s from index: %v", emailID, err)
		}
	}()
}

// recordTraining appends one feedback event, fire-and-forget. Failures are
// logged and never retried.
func (s *Store) recordTraining(userID string, email *emaildomain.EmailMessage, original, chosen emaildomain.RelevanceState) {
	action := &emaildomain.UserAction{
		UserID:            userID,
		EmailID:           email.ID,
		Sender:            strings.ToLower(email.From),
		SenderDomain:      email.Domain(),
		Subject:           email.Subject,
		OriginalRelevance: original,
		UserRelevance:     chosen,
	}
	if email.Classification != nil {
		action.Category = email.Classification.Category
		action.OriginalCategory = email.Classification.Category
	}

	go func() {
		if err := s.actionRepo.Append(action); err != nil {
			log.Printf("[Store] Failed to record training feedback for %s: %v", email.ID, err)
		}
	}()
}

func (s *Store) notifyFiled(email *emaildomain.EmailMessage) {
	if s.notifier != nil {
		s.notifier.EmailFiled(email)
	}
}

func (s *Store) findTaskLocked(emailID string) *kanbandomain.KanbanTask {
	for _, t := range s.tasks {
		if t.EmailID == emailID {
			return t
		}
	}
	return nil
}

func findByID(emails []*emaildomain.EmailMessage, id string) *emaildomain.EmailMessage {
	for _, e := range emails {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func appendReplacing(emails []*emaildomain.EmailMessage, email *emaildomain.EmailMessage) []*emaildomain.EmailMessage {
	out := removeByID(emails, email.ID)
	return append(out, email)
}

func removeByID(emails []*emaildomain.EmailMessage, id string) []*emaildomain.EmailMessage {
	out := make([]*emaildomain.EmailMessage, 0, len(emails))
	for _, e := range emails {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func filterOutAccount(emails []*emaildomain.EmailMessage, accountID string) []*emaildomain.EmailMessage {
	out := make([]*emaildomain.EmailMessage, 0, len(emails))
	for _, e := range emails {
		if e.AccountID != accountID {
			out = append(out, e)
		}
	}
	return out
}
