package usecase

import (
	"errors"
	"sync"
	"testing"
	"time"

	emailusecase "triagedesk-backend/internal/email/usecase"
	kanbandomain "triagedesk-backend/internal/kanban/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusCall struct {
	id     string
	status string
}

type fakeTaskBackend struct {
	mu          sync.Mutex
	statusCalls []statusCall
	deleted     []string
	failNext    error
}

func (f *fakeTaskBackend) Create(*kanbandomain.PersistedTask) error { return nil }
func (f *fakeTaskBackend) FindByID(string) (*kanbandomain.PersistedTask, error) {
	return nil, nil
}
func (f *fakeTaskBackend) FindByEmailID(string) (*kanbandomain.PersistedTask, error) {
	return nil, nil
}

func (f *fakeTaskBackend) UpdateStatus(id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.statusCalls = append(f.statusCalls, statusCall{id, status})
	return nil
}

func (f *fakeTaskBackend) Update(*kanbandomain.PersistedTask) error { return nil }

func (f *fakeTaskBackend) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTaskBackend) DeleteByEmailID(string) error { return nil }
func (f *fakeTaskBackend) FindPendingReminders(_ time.Time) ([]*kanbandomain.PersistedTask, error) {
	return nil, nil
}
func (f *fakeTaskBackend) MarkReminderSent(string) error { return nil }

type fakeColumnRepo struct {
	mu      sync.Mutex
	columns map[string][]kanbandomain.KanbanColumn
}

func newFakeColumnRepo() *fakeColumnRepo {
	return &fakeColumnRepo{columns: make(map[string][]kanbandomain.KanbanColumn)}
}

func (f *fakeColumnRepo) ListByUser(userID string) ([]kanbandomain.KanbanColumn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kanbandomain.KanbanColumn{}, f.columns[userID]...), nil
}

func (f *fakeColumnRepo) ReplaceForUser(userID string, columns []kanbandomain.KanbanColumn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.columns[userID] = append([]kanbandomain.KanbanColumn{}, columns...)
	return nil
}

func (f *fakeColumnRepo) EnsureDefaults(userID string) ([]kanbandomain.KanbanColumn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.columns[userID]) == 0 {
		f.columns[userID] = kanbandomain.DefaultColumns(userID)
	}
	return append([]kanbandomain.KanbanColumn{}, f.columns[userID]...), nil
}

func newTestBoard(t *testing.T, seed ...*kanbandomain.KanbanTask) (*Board, *fakeTaskBackend, *fakeColumnRepo) {
	t.Helper()
	store := emailusecase.NewStore(nil, nil, nil, nil, nil, nil, nil)
	store.MutateTasks(func(tasks []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask {
		return append(tasks, seed...)
	})

	backend := &fakeTaskBackend{}
	columns := newFakeColumnRepo()
	return NewBoard(store, backend, columns), backend, columns
}

func task(id, status string) *kanbandomain.KanbanTask {
	return &kanbandomain.KanbanTask{
		ID:      id,
		EmailID: "email-" + id,
		Title:   "Task " + id,
		Status:  status,
	}
}

func TestMoveTask_PersistsBackendStatus(t *testing.T) {
	board, backend, _ := newTestBoard(t, task("t1", kanbandomain.StatusPending))

	moved, err := board.MoveTask("t1", kanbandomain.StatusWaiting)
	require.NoError(t, err)
	assert.Equal(t, kanbandomain.StatusWaiting, moved.Status)

	require.Len(t, backend.statusCalls, 1)
	assert.Equal(t, statusCall{"t1", kanbandomain.StatusSnoozed}, backend.statusCalls[0],
		"waiting is persisted as snoozed")
}

func TestMoveTask_CustomColumnStaysLocal(t *testing.T) {
	board, backend, _ := newTestBoard(t, task("t1", kanbandomain.StatusPending))

	moved, err := board.MoveTask("t1", "blocked-on-client")
	require.NoError(t, err)
	assert.Equal(t, "blocked-on-client", moved.Status)
	assert.Empty(t, backend.statusCalls, "custom columns never reach the backend")
}

func TestMoveTask_RollbackOnBackendFailure(t *testing.T) {
	board, backend, _ := newTestBoard(t, task("t1", kanbandomain.StatusPending))
	backend.failNext = errors.New("backend down")

	_, err := board.MoveTask("t1", kanbandomain.StatusCompleted)
	require.Error(t, err)

	assert.Equal(t, kanbandomain.StatusPending, board.Tasks()[0].Status,
		"failed persist restores the previous status")
}

func TestMoveTask_UnknownTask(t *testing.T) {
	board, _, _ := newTestBoard(t)
	_, err := board.MoveTask("missing", kanbandomain.StatusCompleted)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDropOnTask_SameColumnReorderSkipsBackend(t *testing.T) {
	board, backend, _ := newTestBoard(t,
		task("t1", kanbandomain.StatusPending),
		task("t2", kanbandomain.StatusPending),
		task("t3", kanbandomain.StatusPending),
	)

	_, err := board.DropOnTask("t3", "t1")
	require.NoError(t, err)

	tasks := board.Tasks()
	assert.Equal(t, "t3", tasks[0].ID)
	assert.Equal(t, "t1", tasks[1].ID)
	assert.Empty(t, backend.statusCalls, "pure reorder is a local operation")
}

func TestDropOnTask_CrossColumnAdoptsTargetColumn(t *testing.T) {
	board, backend, _ := newTestBoard(t,
		task("t1", kanbandomain.StatusPending),
		task("t2", kanbandomain.StatusInProgress),
	)

	moved, err := board.DropOnTask("t1", "t2")
	require.NoError(t, err)
	assert.Equal(t, kanbandomain.StatusInProgress, moved.Status)

	require.Len(t, backend.statusCalls, 1)
	assert.Equal(t, statusCall{"t1", kanbandomain.StatusInProgress}, backend.statusCalls[0])
}

func TestBulkArchive_RequiresConfirmation(t *testing.T) {
	board, _, _ := newTestBoard(t, task("t1", kanbandomain.StatusPending))
	_, err := board.BulkArchive(false)
	assert.ErrorIs(t, err, ErrConfirmRequired)
}

func TestBulkArchive_OneBackendCallPerTask(t *testing.T) {
	t1 := task("t1", kanbandomain.StatusPending)
	t2 := task("t2", kanbandomain.StatusInProgress)
	t3 := task("t3", kanbandomain.StatusWaiting)
	t1.Selected = true
	t2.Selected = true
	t3.Selected = true
	board, backend, _ := newTestBoard(t, t1, t2, t3, task("t4", kanbandomain.StatusPending))

	archived, err := board.BulkArchive(true)
	require.NoError(t, err)
	assert.Equal(t, 3, archived)

	require.Len(t, backend.statusCalls, 3)
	for _, call := range backend.statusCalls {
		assert.Equal(t, kanbandomain.StatusCompleted, call.status)
	}

	for _, tk := range board.Tasks() {
		if tk.ID != "t4" {
			assert.Equal(t, kanbandomain.StatusCompleted, tk.Status)
			assert.False(t, tk.Selected, "archive clears the selection")
		}
	}
}

func TestBulkMove_NoConfirmationNeeded(t *testing.T) {
	t1 := task("t1", kanbandomain.StatusPending)
	t2 := task("t2", kanbandomain.StatusPending)
	t1.Selected = true
	t2.Selected = true
	board, backend, _ := newTestBoard(t, t1, t2, task("t3", kanbandomain.StatusPending))

	moved, err := board.BulkMove(kanbandomain.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	require.Len(t, backend.statusCalls, 2)
	for _, call := range backend.statusCalls {
		assert.Equal(t, kanbandomain.StatusInProgress, call.status)
	}

	for _, tk := range board.Tasks() {
		if tk.ID == "t3" {
			assert.Equal(t, kanbandomain.StatusPending, tk.Status)
			continue
		}
		assert.Equal(t, kanbandomain.StatusInProgress, tk.Status)
		assert.False(t, tk.Selected)
	}
}

func TestBulkDelete_RemovesSelectedTasks(t *testing.T) {
	t1 := task("t1", kanbandomain.StatusPending)
	t1.Selected = true
	board, backend, _ := newTestBoard(t, t1, task("t2", kanbandomain.StatusPending))

	deleted, err := board.BulkDelete(true)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	require.Len(t, board.Tasks(), 1)
	assert.Equal(t, "t2", board.Tasks()[0].ID)
	assert.Equal(t, []string{"t1"}, backend.deleted)
}

func TestDeleteColumn_ReassignsTasksToLowestRemaining(t *testing.T) {
	board, _, _ := newTestBoard(t, task("t1", kanbandomain.StatusWaiting))

	kept, err := board.DeleteColumn("u1", kanbandomain.StatusWaiting)
	require.NoError(t, err)
	assert.Len(t, kept, 3)

	assert.Equal(t, kanbandomain.StatusPending, board.Tasks()[0].Status,
		"orphaned tasks land in the lowest remaining column")
}

func TestUpdateColumn_RenamesAndRecolors(t *testing.T) {
	board, _, columns := newTestBoard(t)

	updated, err := board.UpdateColumn("u1", kanbandomain.StatusWaiting, "On Hold", "#8b5cf6")
	require.NoError(t, err)

	var waiting *kanbandomain.KanbanColumn
	for i := range updated {
		if updated[i].ID == kanbandomain.StatusWaiting {
			waiting = &updated[i]
		}
	}
	require.NotNil(t, waiting)
	assert.Equal(t, "On Hold", waiting.Title)
	assert.Equal(t, "#8b5cf6", waiting.Color)

	// Empty fields keep their current value.
	updated, err = board.UpdateColumn("u1", kanbandomain.StatusWaiting, "", "#f59e0b")
	require.NoError(t, err)
	for i := range updated {
		if updated[i].ID == kanbandomain.StatusWaiting {
			assert.Equal(t, "On Hold", updated[i].Title)
			assert.Equal(t, "#f59e0b", updated[i].Color)
		}
	}

	persisted, err := columns.ListByUser("u1")
	require.NoError(t, err)
	assert.Len(t, persisted, 4, "update keeps the full layout")

	_, err = board.UpdateColumn("u1", "missing", "X", "")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestReorderColumns_MatchesGivenOrder(t *testing.T) {
	board, _, _ := newTestBoard(t)

	reordered, err := board.ReorderColumns("u1", []string{
		kanbandomain.StatusCompleted,
		kanbandomain.StatusPending,
	})
	require.NoError(t, err)
	require.Len(t, reordered, 4)

	// Listed columns come first in the given order; the rest keep their
	// relative order after them.
	assert.Equal(t, kanbandomain.StatusCompleted, reordered[0].ID)
	assert.Equal(t, kanbandomain.StatusPending, reordered[1].ID)
	assert.Equal(t, kanbandomain.StatusInProgress, reordered[2].ID)
	assert.Equal(t, kanbandomain.StatusWaiting, reordered[3].ID)
	for i, col := range reordered {
		assert.Equal(t, i, col.SortOrder)
	}

	_, err = board.ReorderColumns("u1", []string{"missing"})
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestDeleteColumn_NeverLeavesBoardEmpty(t *testing.T) {
	board, _, columns := newTestBoard(t)
	require.NoError(t, columns.ReplaceForUser("u1", []kanbandomain.KanbanColumn{
		{ID: "only", UserID: "u1", Title: "Only", SortOrder: 0},
	}))

	_, err := board.DeleteColumn("u1", "only")
	assert.ErrorIs(t, err, ErrLastColumn)
}

func TestResetColumns_RestoresDefaults(t *testing.T) {
	board, _, _ := newTestBoard(t)
	_, err := board.AddColumn("u1", "Blocked", "#ef4444")
	require.NoError(t, err)

	columns, err := board.ResetColumns("u1")
	require.NoError(t, err)
	require.Len(t, columns, 4)
	assert.Equal(t, kanbandomain.StatusPending, columns[0].ID)
	assert.Equal(t, kanbandomain.StatusCompleted, columns[3].ID)
}
