package delivery

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	authdelivery "triagedesk-backend/internal/auth/delivery"
	emaildomain "triagedesk-backend/internal/email/domain"
	emaildto "triagedesk-backend/internal/email/dto"
	emailrepo "triagedesk-backend/internal/email/repository"
	"triagedesk-backend/internal/email/usecase"
	"triagedesk-backend/pkg/chroma"
	"triagedesk-backend/pkg/crypto"
	"triagedesk-backend/pkg/fuzzy"

	"github.com/gin-gonic/gin"
)

// EmailHandler exposes the triage partitions, relevance actions, sender
// rules, training feedback, and account management.
type EmailHandler struct {
	store    *usecase.Store
	syncer   *usecase.Syncer
	accounts emailrepo.AccountRepository
	actions  emailrepo.UserActionRepository
	cipher   *crypto.Cipher
	chroma   *chroma.Client
}

func NewEmailHandler(
	store *usecase.Store,
	syncer *usecase.Syncer,
	accounts emailrepo.AccountRepository,
	actions emailrepo.UserActionRepository,
	cipher *crypto.Cipher,
	chromaClient *chroma.Client,
) *EmailHandler {
	return &EmailHandler{
		store:    store,
		syncer:   syncer,
		accounts: accounts,
		actions:  actions,
		cipher:   cipher,
		chroma:   chromaClient,
	}
}

// GetRelevant lists the relevant partition, optionally filtered by a fuzzy
// search query.
func (h *EmailHandler) GetRelevant(c *gin.Context) {
	h.listPartition(c, h.store.Relevant())
}

// GetRejected lists the rejected partition.
func (h *EmailHandler) GetRejected(c *gin.Context) {
	h.listPartition(c, h.store.Rejected())
}

func (h *EmailHandler) listPartition(c *gin.Context, emails []*emaildomain.EmailMessage) {
	if query := c.Query("q"); query != "" {
		matched := make([]*emaildomain.EmailMessage, 0, len(emails))
		for _, email := range emails {
			if fuzzy.MatchEmail(query, email.Subject, email.From, email.FromName, email.Body) {
				matched = append(matched, email)
			}
		}
		sort.SliceStable(matched, func(i, j int) bool {
			return fuzzy.Score(query, matched[i].Subject, matched[i].From, matched[i].FromName) >
				fuzzy.Score(query, matched[j].Subject, matched[j].From, matched[j].FromName)
		})
		emails = matched
	} else {
		sort.SliceStable(emails, func(i, j int) bool {
			return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
		})
	}

	limit := 50
	offset := 0
	if parsed, err := strconv.Atoi(c.Query("limit")); err == nil && parsed > 0 {
		limit = parsed
	}
	if parsed, err := strconv.Atoi(c.Query("offset")); err == nil && parsed >= 0 {
		offset = parsed
	}

	total := len(emails)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, emaildto.EmailsResponse{
		Emails: emails[offset:end],
		Limit:  limit,
		Offset: offset,
		Total:  total,
	})
}

func (h *EmailHandler) GetEmailByID(c *gin.Context) {
	email := h.store.FindEmail(c.Param("id"))
	if email == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	c.JSON(http.StatusOK, email)
}

func (h *EmailHandler) MarkAsRelevant(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if err := h.store.MarkAsRelevant(user.ID, c.Param("id")); err != nil {
		h.markError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email marked as relevant"})
}

func (h *EmailHandler) MarkAsRejected(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	if err := h.store.MarkAsRejected(user.ID, c.Param("id")); err != nil {
		h.markError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email marked as rejected"})
}

// MarkAsRead flips the read flag on the provider and in the store.
func (h *EmailHandler) MarkAsRead(c *gin.Context) {
	if err := h.syncer.MarkAsRead(c.Request.Context(), c.Param("id")); err != nil {
		h.markError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email marked as read"})
}

func (h *EmailHandler) markError(c *gin.Context, err error) {
	if errors.Is(err, usecase.ErrEmailNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (h *EmailHandler) BulkMarkAsRelevant(c *gin.Context) {
	h.bulkMark(c, h.store.MarkMultipleAsRelevant)
}

func (h *EmailHandler) BulkMarkAsRejected(c *gin.Context) {
	h.bulkMark(c, h.store.MarkMultipleAsRejected)
}

func (h *EmailHandler) bulkMark(c *gin.Context, apply func(string, []string) []error) {
	var req emaildto.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := authdelivery.CurrentUser(c)
	errs := apply(user.ID, req.EmailIDs)

	failed := make([]string, 0, len(errs))
	for _, err := range errs {
		failed = append(failed, err.Error())
	}
	c.JSON(http.StatusOK, gin.H{
		"processed": len(req.EmailIDs) - len(errs),
		"failed":    failed,
	})
}

// Undo reverses the most recent single-item relevance action.
func (h *EmailHandler) Undo(c *gin.Context) {
	if !h.store.UndoLastAction() {
		c.JSON(http.StatusOK, gin.H{"undone": false, "message": "nothing to undo"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"undone": true})
}

// GetRelated surfaces prior correspondence semantically close to an email.
func (h *EmailHandler) GetRelated(c *gin.Context) {
	if h.chroma == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "semantic search is not configured"})
		return
	}

	email := h.store.FindEmail(c.Param("id"))
	if email == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}

	ids, distances, err := h.chroma.RelatedEmails(c.Request.Context(), email.Subject+"\n"+email.Body, 6)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	related := make([]*emaildomain.EmailMessage, 0, len(ids))
	for _, id := range ids {
		if id == email.ID {
			continue
		}
		if found := h.store.FindEmail(id); found != nil {
			related = append(related, found)
		}
	}
	c.JSON(http.StatusOK, emaildto.RelatedEmailsResponse{Emails: related, Distances: distances})
}

// CreateSenderRule adds an allow/deny override and re-files matching mail.
func (h *EmailHandler) CreateSenderRule(c *gin.Context) {
	var req emaildto.SenderRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := authdelivery.CurrentUser(c)
	rule, err := h.store.AddSenderRule(user.ID, req.Pattern, req.IsDomain, emaildomain.SenderRuleAction(req.Action))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *EmailHandler) DeleteSenderRule(c *gin.Context) {
	if err := h.store.RemoveSenderRule(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sender rule removed"})
}

// GetTrainingSets returns the whitelist/blacklist sets mined from the action
// log.
func (h *EmailHandler) GetTrainingSets(c *gin.Context) {
	sets, err := h.actions.MineTrainingSets()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sets)
}

// GetTrainingActions returns the recent raw feedback events.
func (h *EmailHandler) GetTrainingActions(c *gin.Context) {
	user := authdelivery.CurrentUser(c)

	limit := 100
	if parsed, err := strconv.Atoi(c.Query("limit")); err == nil && parsed > 0 {
		limit = parsed
	}

	actions, err := h.actions.ListByUser(user.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// TriggerSync starts a sync of all accounts in the background.
func (h *EmailHandler) TriggerSync(c *gin.Context) {
	go h.syncer.SyncAll(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"message": "sync started"})
}

// TriggerAccountSync syncs one account in the background.
func (h *EmailHandler) TriggerAccountSync(c *gin.Context) {
	accountID := c.Param("id")
	go func() {
		_ = h.syncer.SyncAccount(context.Background(), accountID)
	}()
	c.JSON(http.StatusAccepted, gin.H{"message": "sync started"})
}

// GetAccounts lists the caller's connected accounts.
func (h *EmailHandler) GetAccounts(c *gin.Context) {
	user := authdelivery.CurrentUser(c)
	accounts, err := h.accounts.ListByUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// ConnectImapAccount stores a plain IMAP account with the password encrypted
// at rest, then syncs it in the background.
func (h *EmailHandler) ConnectImapAccount(c *gin.Context) {
	var req emaildto.ImapAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	encrypted, err := h.cipher.Encrypt(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to secure credentials"})
		return
	}

	user := authdelivery.CurrentUser(c)
	account := &emaildomain.EmailAccount{
		UserID:       user.ID,
		Email:        req.Email,
		Provider:     "imap",
		ImapServer:   req.ImapServer,
		ImapPort:     req.ImapPort,
		ImapPassword: encrypted,
	}
	if err := h.accounts.Create(account); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go func() {
		_ = h.syncer.SyncAccount(context.Background(), account.ID)
	}()
	c.JSON(http.StatusCreated, account)
}

// DisconnectAccount removes an account and drops its loaded mail.
func (h *EmailHandler) DisconnectAccount(c *gin.Context) {
	accountID := c.Param("id")

	account, err := h.accounts.FindByID(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	user := authdelivery.CurrentUser(c)
	if account.UserID != user.ID && !user.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your account"})
		return
	}

	if err := h.accounts.Delete(accountID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.store.DropAccount(accountID)
	c.JSON(http.StatusOK, gin.H{"message": "account disconnected"})
}
