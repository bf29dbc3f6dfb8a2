package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	emaildomain "triagedesk-backend/internal/email/domain"
	emailrepo "triagedesk-backend/internal/email/repository"

	"golang.org/x/oauth2"
)

// ProviderFactory resolves the MailProvider implementation for a connected
// account ("gmail" or "imap").
type ProviderFactory interface {
	ProviderFor(account *emaildomain.EmailAccount) (emaildomain.MailProvider, error)
}

// Syncer pulls mail for connected accounts, runs each message through the
// triage pipeline, and swaps the account's partitions in the store. A failed
// sync flags the account and leaves the previous in-memory state untouched.
type Syncer struct {
	store    *Store
	accounts emailrepo.AccountRepository
	factory  ProviderFactory

	fetchLimit int
	workers    int

	mu      sync.Mutex
	syncing map[string]bool
}

func NewSyncer(store *Store, accounts emailrepo.AccountRepository, factory ProviderFactory, workers int) *Syncer {
	if workers < 1 {
		workers = 1
	}
	return &Syncer{
		store:      store,
		accounts:   accounts,
		factory:    factory,
		fetchLimit: 100,
		workers:    workers,
		syncing:    make(map[string]bool),
	}
}

// SyncAll fans sync jobs out over the worker pool and waits for all of them.
func (s *Syncer) SyncAll(ctx context.Context) {
	accounts, err := s.accounts.ListAll()
	if err != nil {
		log.Printf("[Sync] Failed to list accounts: %v", err)
		return
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := s.SyncAccount(ctx, id); err != nil {
					log.Printf("[Sync] Account %s: %v", id, err)
				}
			}
		}()
	}
	for i := range accounts {
		jobs <- accounts[i].ID
	}
	close(jobs)
	wg.Wait()
}

// SyncAccount fetches and re-triages one account. Concurrent syncs of the
// same account are coalesced into a no-op for the second caller.
func (s *Syncer) SyncAccount(ctx context.Context, accountID string) error {
	s.mu.Lock()
	if s.syncing[accountID] {
		s.mu.Unlock()
		return nil
	}
	s.syncing[accountID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.syncing, accountID)
		s.mu.Unlock()
	}()

	account, err := s.accounts.FindByID(accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("account %s not found", accountID)
	}

	provider, err := s.factory.ProviderFor(account)
	if err != nil {
		s.failAccount(account, err)
		return err
	}

	if err := s.accounts.SetStatus(account.ID, emaildomain.AccountSyncing, ""); err != nil {
		log.Printf("[Sync] Failed to flag %s syncing: %v", account.Email, err)
	}

	emails, _, err := provider.GetEmails(ctx, account, "INBOX", s.fetchLimit, 0, s.tokenSaver(account))
	if err != nil {
		s.failAccount(account, err)
		return err
	}

	start := time.Now()
	for _, email := range emails {
		email.AccountID = account.ID
		email.AccountEmail = account.Email
		s.store.ClassifyAndFile(ctx, email)
	}

	// ClassifyAndFile already filed every fetched message; drop the ones
	// that disappeared server-side since the previous sync.
	s.pruneStale(account.ID, emails)

	if err := s.accounts.MarkSynced(account.ID); err != nil {
		log.Printf("[Sync] Failed to mark %s synced: %v", account.Email, err)
	}
	log.Printf("[Sync] %s: %d emails in %s", account.Email, len(emails), time.Since(start).Round(time.Millisecond))
	return nil
}

// pruneStale rebuilds the account's partitions from the just-fetched set so
// a sync replaces rather than merges.
func (s *Syncer) pruneStale(accountID string, fetched []*emaildomain.EmailMessage) {
	seen := make(map[string]bool, len(fetched))
	for _, e := range fetched {
		seen[e.ID] = true
	}

	var relevant, rejected []*emaildomain.EmailMessage
	for _, e := range s.store.Relevant() {
		if e.AccountID == accountID && seen[e.ID] {
			relevant = append(relevant, e)
		}
	}
	for _, e := range s.store.Rejected() {
		if e.AccountID == accountID && seen[e.ID] {
			rejected = append(rejected, e)
		}
	}
	s.store.ReplaceAccount(accountID, relevant, rejected)
}

// MarkAsRead flips the read flag on the provider side and in the store. A
// read email with no pending response drops off the board.
func (s *Syncer) MarkAsRead(ctx context.Context, emailID string) error {
	email := s.store.FindEmail(emailID)
	if email == nil {
		return ErrEmailNotFound
	}

	account, err := s.accounts.FindByID(email.AccountID)
	if err != nil {
		return err
	}
	if account == nil {
		return fmt.Errorf("account %s not found", email.AccountID)
	}

	provider, err := s.factory.ProviderFor(account)
	if err != nil {
		return err
	}
	if err := provider.MarkAsRead(ctx, account, emailID, s.tokenSaver(account)); err != nil {
		return err
	}

	return s.store.SetRead(emailID)
}

// tokenSaver persists refreshed OAuth tokens back onto the account row.
func (s *Syncer) tokenSaver(account *emaildomain.EmailAccount) emaildomain.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		account.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			account.RefreshToken = token.RefreshToken
		}
		account.TokenExpiry = token.Expiry
		return s.accounts.Update(account)
	}
}

func (s *Syncer) failAccount(account *emaildomain.EmailAccount, cause error) {
	if err := s.accounts.SetStatus(account.ID, emaildomain.AccountError, cause.Error()); err != nil {
		log.Printf("[Sync] Failed to flag %s: %v", account.Email, err)
	}
}
