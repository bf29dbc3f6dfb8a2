package usecase

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	emailusecase "triagedesk-backend/internal/email/usecase"
	kanbandomain "triagedesk-backend/internal/kanban/domain"
	kanbanrepo "triagedesk-backend/internal/kanban/repository"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrLastColumn      = errors.New("cannot delete the last column")
	ErrConfirmRequired = errors.New("destructive bulk action requires confirmation")
)

// Board mediates between the in-memory task list and the task backend. Every
// board mutation applies locally first; the backend is only consulted for
// statuses it knows about, and a failed persist rolls the local change back.
type Board struct {
	store   *emailusecase.Store
	tasks   kanbanrepo.TaskBackend
	columns kanbanrepo.ColumnRepository
}

func NewBoard(store *emailusecase.Store, tasks kanbanrepo.TaskBackend, columns kanbanrepo.ColumnRepository) *Board {
	return &Board{
		store:   store,
		tasks:   tasks,
		columns: columns,
	}
}

// Columns returns the user's board layout, seeding defaults on first use.
func (b *Board) Columns(userID string) ([]kanbandomain.KanbanColumn, error) {
	return b.columns.EnsureDefaults(userID)
}

// Tasks returns the live task list grouped by nothing; grouping is a client
// concern.
func (b *Board) Tasks() []*kanbandomain.KanbanTask {
	return b.store.Tasks()
}

// TasksByColumn partitions the task list for board rendering.
func (b *Board) TasksByColumn(userID string) (map[string][]*kanbandomain.KanbanTask, error) {
	columns, err := b.Columns(userID)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*kanbandomain.KanbanTask, len(columns))
	for _, col := range columns {
		grouped[col.ID] = []*kanbandomain.KanbanTask{}
	}
	fallback := lowestColumn(columns)

	for _, task := range b.store.Tasks() {
		column := task.Status
		if _, ok := grouped[column]; !ok {
			column = fallback
		}
		grouped[column] = append(grouped[column], task)
	}
	return grouped, nil
}

// MoveTask drags a task onto a column. The local move always succeeds
// immediately; a backend persist happens only for statuses the backend
// knows, and a persist failure restores the previous status.
func (b *Board) MoveTask(taskID, targetColumn string) (*kanbandomain.KanbanTask, error) {
	var moved *kanbandomain.KanbanTask
	var previous string

	b.store.MutateTasks(func(tasks []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask {
		for _, task := range tasks {
			if task.ID == taskID {
				previous = task.Status
				task.Status = targetColumn
				task.UpdatedAt = time.Now()
				moved = task
				break
			}
		}
		return tasks
	})
	if moved == nil {
		return nil, ErrTaskNotFound
	}

	backendStatus := kanbandomain.BackendStatus(targetColumn)
	if backendStatus == "" {
		// Custom column: the placement lives only in board state.
		return moved, nil
	}

	if err := b.tasks.UpdateStatus(taskID, backendStatus); err != nil {
		b.restoreStatus(taskID, previous)
		return nil, fmt.Errorf("failed to persist move: %w", err)
	}
	return moved, nil
}

// DropOnTask reorders a dragged task next to a target task. When both live
// in the same column this is a pure reorder; across columns the task adopts
// the target's column first. Reordering alone never calls the backend.
func (b *Board) DropOnTask(draggedID, targetID string) (*kanbandomain.KanbanTask, error) {
	var dragged, target *kanbandomain.KanbanTask
	var previous string
	crossColumn := false

	b.store.MutateTasks(func(tasks []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask {
		var draggedIdx, targetIdx int
		for i, task := range tasks {
			switch task.ID {
			case draggedID:
				dragged = task
				draggedIdx = i
			case targetID:
				target = task
				targetIdx = i
			}
		}
		if dragged == nil || target == nil {
			return tasks
		}

		previous = dragged.Status
		if dragged.Status != target.Status {
			crossColumn = true
			dragged.Status = target.Status
		}
		dragged.UpdatedAt = time.Now()

		// Reinsert the dragged task at the target's position.
		out := make([]*kanbandomain.KanbanTask, 0, len(tasks))
		for i, task := range tasks {
			if i == draggedIdx {
				continue
			}
			out = append(out, task)
		}
		insertAt := targetIdx
		if draggedIdx < targetIdx {
			insertAt--
		}
		if insertAt < 0 {
			insertAt = 0
		}
		if insertAt > len(out) {
			insertAt = len(out)
		}
		out = append(out[:insertAt], append([]*kanbandomain.KanbanTask{dragged}, out[insertAt:]...)...)
		return out
	})

	if dragged == nil || target == nil {
		return nil, ErrTaskNotFound
	}
	if !crossColumn {
		return dragged, nil
	}

	backendStatus := kanbandomain.BackendStatus(dragged.Status)
	if backendStatus == "" {
		return dragged, nil
	}
	if err := b.tasks.UpdateStatus(draggedID, backendStatus); err != nil {
		b.restoreStatus(draggedID, previous)
		return nil, fmt.Errorf("failed to persist move: %w", err)
	}
	return dragged, nil
}

// SetSelected toggles a task's bulk-selection flag.
func (b *Board) SetSelected(taskID string, selected bool) error {
	found := false
	b.store.MutateTasks(func(tasks []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask {
		for _, task := range tasks {
			if task.ID == taskID {
				task.Selected = selected
				found = true
				break
			}
		}
		return tasks
	})
	if !found {
		return ErrTaskNotFound
	}
	return nil
}

// BulkArchive completes every selected task, one backend call per task.
// Destructive, so the caller must pass confirm=true.
func (b *Board) BulkArchive(confirm bool) (int, error) {
	if !confirm {
		return 0, ErrConfirmRequired
	}

	var selected []*kanbandomain.KanbanTask
	b.store.MutateTasks(func(tasks []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask {
		for _, task := range tasks {
			if task.Selected {
				selected = append(selected, task)
			}
		}
		return tasks
	})

	archived := 0
	for _, task := range selected {
		if _, err := b.MoveTask(task.ID, kanbandomain.StatusCompleted); err != nil {
			log.Printf("[Board] Failed to archive task %s: %v", task.ID, err)
			continue
		}
		_ = b.SetSelected(task.ID, false)
		archived++
	}
	return archived, nil
}

// BulkMove moves every selected task to the target column. Non-destructive,
// so no confirmation gate.
func (b *Board) BulkMove(targetColumn string) (int, error) {
	var selected []*kanbandomain.KanbanTask
	b.store.MutateTasks(func(tasks []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask {
		for _, task := range tasks {
			if task.Selected {
				selected = append(selected, task)
			}
		}
		return tasks
	})

	moved := 0
	for _, task := range selected {
		if _, err := b.MoveTask(task.ID, targetColumn); err != nil {
			log.Printf("[Board] Failed to move task %s: %v", task.ID, err)
			continue
		}
		_ = b.SetSelected(task.ID, false)
		moved++
	}
	return moved, nil
}

// BulkDelete removes every selected task from the board and the backend.
// Destructive, so the caller must pass confirm=true.
func (b *Board) BulkDelete(confirm bool) (int, error) {
	if !confirm {
		return 0, ErrConfirmRequired
	}

	var removed []*kanbandomain.KanbanTask
	b.store.MutateTasks(func(tasks []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask {
		out := make([]*kanbandomain.KanbanTask, 0, len(tasks))
		for _, task := range tasks {
			if task.Selected {
				removed = append(removed, task)
				continue
			}
			out = append(out, task)
		}
		return out
	})

	for _, task := range removed {
		if err := b.tasks.Delete(task.ID); err != nil {
			log.Printf("[Board] Failed to delete task %s from backend: %v", task.ID, err)
		}
	}
	return len(removed), nil
}

// AddColumn appends a custom column to the board layout.
func (b *Board) AddColumn(userID, title, color string) ([]kanbandomain.KanbanColumn, error) {
	columns, err := b.Columns(userID)
	if err != nil {
		return nil, err
	}

	column := kanbandomain.KanbanColumn{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Color:     color,
		SortOrder: len(columns),
	}
	columns = append(columns, column)

	if err := b.columns.ReplaceForUser(userID, columns); err != nil {
		return nil, err
	}
	return columns, nil
}

// UpdateColumn renames or recolors a column. Empty fields keep their current
// value.
func (b *Board) UpdateColumn(userID, columnID, title, color string) ([]kanbandomain.KanbanColumn, error) {
	columns, err := b.Columns(userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range columns {
		if columns[i].ID != columnID {
			continue
		}
		found = true
		if title != "" {
			columns[i].Title = title
		}
		if color != "" {
			columns[i].Color = color
		}
		break
	}
	if !found {
		return nil, ErrColumnNotFound
	}

	if err := b.columns.ReplaceForUser(userID, columns); err != nil {
		return nil, err
	}
	return columns, nil
}

// ReorderColumns rearranges the layout to match the given id order. Columns
// missing from the list keep their relative order after the listed ones.
func (b *Board) ReorderColumns(userID string, orderedIDs []string) ([]kanbandomain.KanbanColumn, error) {
	columns, err := b.Columns(userID)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(columns))
	for i := range columns {
		known[columns[i].ID] = true
	}
	position := make(map[string]int, len(orderedIDs))
	for i, id := range orderedIDs {
		if !known[id] {
			return nil, ErrColumnNotFound
		}
		position[id] = i
	}

	sort.SliceStable(columns, func(i, j int) bool {
		pi, iListed := position[columns[i].ID]
		pj, jListed := position[columns[j].ID]
		switch {
		case iListed && jListed:
			return pi < pj
		case iListed:
			return true
		case jListed:
			return false
		default:
			return false
		}
	})
	for i := range columns {
		columns[i].SortOrder = i
	}

	if err := b.columns.ReplaceForUser(userID, columns); err != nil {
		return nil, err
	}
	return columns, nil
}

// DeleteColumn removes a column and reassigns its tasks to the remaining
// column with the lowest sort order. The board never becomes empty.
func (b *Board) DeleteColumn(userID, columnID string) ([]kanbandomain.KanbanColumn, error) {
	columns, err := b.Columns(userID)
	if err != nil {
		return nil, err
	}
	if len(columns) <= 1 {
		return nil, ErrLastColumn
	}

	kept := make([]kanbandomain.KanbanColumn, 0, len(columns)-1)
	found := false
	for _, col := range columns {
		if col.ID == columnID {
			found = true
			continue
		}
		kept = append(kept, col)
	}
	if !found {
		return nil, ErrColumnNotFound
	}

	fallback := lowestColumn(kept)
	b.store.MutateTasks(func(tasks []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask {
		for _, task := range tasks {
			if task.Status == columnID {
				task.Status = fallback
			}
		}
		return tasks
	})

	if err := b.columns.ReplaceForUser(userID, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// ResetColumns restores the default four-column layout.
func (b *Board) ResetColumns(userID string) ([]kanbandomain.KanbanColumn, error) {
	defaults := kanbandomain.DefaultColumns(userID)
	if err := b.columns.ReplaceForUser(userID, defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}

func (b *Board) restoreStatus(taskID, status string) {
	b.store.MutateTasks(func(tasks []*kanbandomain.KanbanTask) []*kanbandomain.KanbanTask {
		for _, task := range tasks {
			if task.ID == taskID {
				task.Status = status
				break
			}
		}
		return tasks
	})
}

func lowestColumn(columns []kanbandomain.KanbanColumn) string {
	if len(columns) == 0 {
		return kanbandomain.StatusPending
	}
	sorted := append([]kanbandomain.KanbanColumn{}, columns...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SortOrder < sorted[j].SortOrder
	})
	return sorted[0].ID
}
