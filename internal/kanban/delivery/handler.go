package delivery

import (
	"errors"
	"net/http"

	authdelivery "triagedesk-backend/internal/auth/delivery"
	"triagedesk-backend/internal/kanban/usecase"

	"github.com/gin-gonic/gin"
)

type BoardHandler struct {
	board *usecase.Board
}

func NewBoardHandler(board *usecase.Board) *BoardHandler {
	return &BoardHandler{board: board}
}

// GetBoard returns the column layout plus tasks grouped per column.
func (h *BoardHandler) GetBoard(c *gin.Context) {
	user := authdelivery.CurrentUser(c)

	columns, err := h.board.Columns(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	grouped, err := h.board.TasksByColumn(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"columns": columns,
		"tasks":   grouped,
	})
}

type moveTaskRequest struct {
	Column string `json:"column"`
	TaskID string `json:"task_id"`
}

// MoveTask handles a drag: onto a column when "column" is set, onto another
// task when "task_id" is set.
func (h *BoardHandler) MoveTask(c *gin.Context) {
	var req moveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID := c.Param("id")
	switch {
	case req.Column != "":
		task, err := h.board.MoveTask(taskID, req.Column)
		if err != nil {
			h.boardError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	case req.TaskID != "":
		task, err := h.board.DropOnTask(taskID, req.TaskID)
		if err != nil {
			h.boardError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "either column or task_id is required"})
	}
}

type selectRequest struct {
	Selected bool `json:"selected"`
}

func (h *BoardHandler) SelectTask(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.board.SetSelected(c.Param("id"), req.Selected); err != nil {
		h.boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "selection updated"})
}

type bulkRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *BoardHandler) BulkArchive(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	archived, err := h.board.BulkArchive(req.Confirm)
	if err != nil {
		h.boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": archived})
}

type bulkMoveRequest struct {
	Column string `json:"column" binding:"required"`
}

func (h *BoardHandler) BulkMove(c *gin.Context) {
	var req bulkMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	moved, err := h.board.BulkMove(req.Column)
	if err != nil {
		h.boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": moved})
}

func (h *BoardHandler) BulkDelete(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := h.board.BulkDelete(req.Confirm)
	if err != nil {
		h.boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

type columnRequest struct {
	Title string `json:"title" binding:"required"`
	Color string `json:"color"`
}

func (h *BoardHandler) AddColumn(c *gin.Context) {
	var req columnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := authdelivery.CurrentUser(c)
	columns, err := h.board.AddColumn(user.ID, req.Title, req.Color)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"columns": columns})
}

type columnUpdateRequest struct {
	Title string `json:"title"`
	Color string `json:"color"`
}

func (h *BoardHandler) UpdateColumn(c *gin.Context) {
	var req columnUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := authdelivery.CurrentUser(c)
	columns, err := h.board.UpdateColumn(user.ID, c.Param("id"), req.Title, req.Color)
	if err != nil {
		h.boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

type reorderRequest struct {
	ColumnIDs []string `json:"column_ids" binding:"required,min=1"`
}

func (h *BoardHandler) ReorderColumns(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := authdelivery.CurrentUser(c)
	columns, err := h.board.ReorderColumns(user.ID, req.ColumnIDs)
	if err != nil {
		h.boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

func (h *BoardHandler) DeleteColumn(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	columns, err := h.board.DeleteColumn(user.ID, c.Param("id"))
	if err != nil {
		h.boardError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

func (h *BoardHandler) ResetColumns(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	columns, err := h.board.ResetColumns(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

func (h *BoardHandler) boardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrTaskNotFound), errors.Is(err, usecase.ErrColumnNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrConfirmRequired):
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrLastColumn):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
