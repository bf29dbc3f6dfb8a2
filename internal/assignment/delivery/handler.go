package delivery

import (
	"net/http"

	assignmentdomain "triagedesk-backend/internal/assignment/domain"
	"triagedesk-backend/internal/assignment/repository"
	"triagedesk-backend/internal/assignment/usecase"
	authdelivery "triagedesk-backend/internal/auth/delivery"

	"github.com/gin-gonic/gin"
)

// RuleHandler handles assignment-rule HTTP requests
type RuleHandler struct {
	engine *usecase.Engine
	rules  repository.RuleRepository
}

// NewRuleHandler creates a new RuleHandler
func NewRuleHandler(engine *usecase.Engine, rules repository.RuleRepository) *RuleHandler {
	return &RuleHandler{
		engine: engine,
		rules:  rules,
	}
}

// RuleRequest is the create/update body for a rule
type RuleRequest struct {
	Name              string                           `json:"name" binding:"required"`
	Description       string                           `json:"description"`
	Priority          int                              `json:"priority"`
	Conditions        []assignmentdomain.RuleCondition `json:"conditions" binding:"required"`
	ConditionOperator string                           `json:"condition_operator"`
	AssignUserID      string                           `json:"assign_user_id"`
	AssignColumn      string                           `json:"assign_column"`
	SetPriority       string                           `json:"set_priority"`
	AddTags           []string                         `json:"add_tags"`
	AutoCreateTask    bool                             `json:"auto_create_task"`
}

// GetRules returns all rules, active first by descending priority
// GET /api/rules
func (h *RuleHandler) GetRules(c *gin.Context) {
	rules, err := h.engine.RankedRules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// CreateRule creates a new assignment rule
// POST /api/rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := &assignmentdomain.AssignmentRule{
		Name:              req.Name,
		Description:       req.Description,
		Priority:          req.Priority,
		Conditions:        req.Conditions,
		ConditionOperator: req.ConditionOperator,
		AssignUserID:      req.AssignUserID,
		AssignColumn:      req.AssignColumn,
		SetPriority:       req.SetPriority,
		AddTags:           req.AddTags,
		AutoCreateTask:    req.AutoCreateTask,
	}
	if user := authdelivery.CurrentUser(c); user != nil {
		rule.CreatedBy = user.ID
	}

	if err := h.rules.Create(rule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// UpdateRule edits an existing rule, preserving its counters
// PUT /api/rules/:id
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	ruleID := c.Param("id")

	rule, err := h.rules.FindByID(ruleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rule == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}

	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule.Name = req.Name
	rule.Description = req.Description
	rule.Priority = req.Priority
	rule.Conditions = req.Conditions
	rule.ConditionOperator = req.ConditionOperator
	rule.AssignUserID = req.AssignUserID
	rule.AssignColumn = req.AssignColumn
	rule.SetPriority = req.SetPriority
	rule.AddTags = req.AddTags
	rule.AutoCreateTask = req.AutoCreateTask

	if err := h.rules.Update(rule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeactivateRule soft-disables a rule; counters survive
// DELETE /api/rules/:id
func (h *RuleHandler) DeactivateRule(c *gin.Context) {
	ruleID := c.Param("id")

	rule, err := h.rules.FindByID(ruleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rule == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}

	if err := h.rules.Deactivate(ruleID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "rule deactivated"})
}

// RecordOverride notes the user rerouted an email a rule had placed
// POST /api/rules/:id/override
func (h *RuleHandler) RecordOverride(c *gin.Context) {
	h.engine.RecordOverride(c.Param("id"))
	c.JSON(http.StatusAccepted, gin.H{"message": "override recorded"})
}
