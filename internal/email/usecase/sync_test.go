package usecase

import (
	"context"
	"sync"
	"testing"

	emaildomain "triagedesk-backend/internal/email/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*emaildomain.EmailAccount
}

func newMemAccountRepo(accounts ...*emaildomain.EmailAccount) *memAccountRepo {
	r := &memAccountRepo{accounts: make(map[string]*emaildomain.EmailAccount)}
	for _, a := range accounts {
		r.accounts[a.ID] = a
	}
	return r
}

func (r *memAccountRepo) Create(account *emaildomain.EmailAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ID] = account
	return nil
}

func (r *memAccountRepo) FindByID(id string) (*emaildomain.EmailAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[id], nil
}

func (r *memAccountRepo) FindByEmail(_ string) (*emaildomain.EmailAccount, error) { return nil, nil }

func (r *memAccountRepo) ListByUser(_ string) ([]emaildomain.EmailAccount, error) { return nil, nil }

func (r *memAccountRepo) ListAll() ([]emaildomain.EmailAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []emaildomain.EmailAccount
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (r *memAccountRepo) Update(*emaildomain.EmailAccount) error { return nil }

func (r *memAccountRepo) SetStatus(string, emaildomain.AccountStatus, string) error { return nil }

func (r *memAccountRepo) MarkSynced(string) error { return nil }

func (r *memAccountRepo) Delete(string) error { return nil }

type fakeProvider struct {
	mu      sync.Mutex
	emails  []*emaildomain.EmailMessage
	readIDs []string
}

func (p *fakeProvider) GetEmails(_ context.Context, _ *emaildomain.EmailAccount, _ string, _, _ int, _ emaildomain.TokenUpdateFunc) ([]*emaildomain.EmailMessage, int, error) {
	return p.emails, len(p.emails), nil
}

func (p *fakeProvider) MarkAsRead(_ context.Context, _ *emaildomain.EmailAccount, id string, _ emaildomain.TokenUpdateFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readIDs = append(p.readIDs, id)
	return nil
}

func (p *fakeProvider) Watch(context.Context, *emaildomain.EmailAccount, string, emaildomain.TokenUpdateFunc) error {
	return nil
}

type fakeFactory struct {
	provider *fakeProvider
}

func (f *fakeFactory) ProviderFor(_ *emaildomain.EmailAccount) (emaildomain.MailProvider, error) {
	return f.provider, nil
}

func TestSyncAccount_FilesFetchedMail(t *testing.T) {
	store, _, _ := newTestStore(t)
	provider := &fakeProvider{emails: []*emaildomain.EmailMessage{
		clientEmail("e1", "jane@acme.com", "Question about invoice 1042"),
	}}
	account := &emaildomain.EmailAccount{ID: "acc1", Email: "desk@ourfirm.com", Provider: "imap"}
	syncer := NewSyncer(store, newMemAccountRepo(account), &fakeFactory{provider: provider}, 1)

	require.NoError(t, syncer.SyncAccount(context.Background(), "acc1"))

	relevant := store.Relevant()
	require.Len(t, relevant, 1)
	assert.Equal(t, "acc1", relevant[0].AccountID)
	assert.Equal(t, "desk@ourfirm.com", relevant[0].AccountEmail)
}

func TestMarkAsRead_UpdatesProviderAndStore(t *testing.T) {
	store, _, _ := newTestStore(t)
	store.deep = &stubDeepClassifier{cls: &emaildomain.Classification{
		Category:           emaildomain.CategoryInformation,
		Priority:           emaildomain.PriorityLow,
		IsBusinessRelevant: true,
		RequiresResponse:   false,
	}}
	provider := &fakeProvider{}
	account := &emaildomain.EmailAccount{ID: "acc1", Email: "desk@ourfirm.com", Provider: "imap"}
	syncer := NewSyncer(store, newMemAccountRepo(account), &fakeFactory{provider: provider}, 1)

	store.ClassifyAndFile(context.Background(), clientEmail("e1", "jane@acme.com", "FYI: ledger uploaded, please find the details attached"))
	require.Len(t, store.Tasks(), 1)

	require.NoError(t, syncer.MarkAsRead(context.Background(), "e1"))

	assert.Equal(t, []string{"e1"}, provider.readIDs)
	assert.True(t, store.FindEmail("e1").IsRead)
	assert.Empty(t, store.Tasks(), "read FYI mail drops off the board")

	assert.ErrorIs(t, syncer.MarkAsRead(context.Background(), "missing"), ErrEmailNotFound)
}
