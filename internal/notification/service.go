package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	authrepo "triagedesk-backend/internal/auth/repository"
	emaildomain "triagedesk-backend/internal/email/domain"
	emailrepo "triagedesk-backend/internal/email/repository"
	emailusecase "triagedesk-backend/internal/email/usecase"
	kanbandomain "triagedesk-backend/internal/kanban/domain"
	"triagedesk-backend/pkg/fcm"
	"triagedesk-backend/pkg/sse"

	"cloud.google.com/go/pubsub"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// GmailNotification is the payload Gmail publishes to the watch topic.
type GmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// Service listens for Gmail push notifications and fans triage events out to
// dashboards (SSE) and devices (FCM). It also implements the store's
// Notifier port.
type Service struct {
	pubsubClient *pubsub.Client
	sseManager   *sse.Manager
	accounts     emailrepo.AccountRepository
	fcmRepo      authrepo.FCMTokenRepository
	fcmClient    *fcm.Client
	syncer       *emailusecase.Syncer
	provider     emaildomain.MailProvider

	topicName string
	subName   string

	mu            sync.Mutex
	lastHistoryID map[string]uint64
}

func NewService(
	projectID, topicName, credentialsFile string,
	sseManager *sse.Manager,
	accounts emailrepo.AccountRepository,
	fcmRepo authrepo.FCMTokenRepository,
	fcmClient *fcm.Client,
	syncer *emailusecase.Syncer,
	provider emaildomain.MailProvider,
) (*Service, error) {
	// Without a project ID the service still fans out SSE/FCM events, it
	// just cannot receive Gmail push notifications.
	var client *pubsub.Client
	if projectID != "" {
		var opts []option.ClientOption
		if credentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(credentialsFile))
		}

		var err error
		client, err = pubsub.NewClient(context.Background(), projectID, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create pubsub client: %v", err)
		}
	}

	return &Service{
		pubsubClient:  client,
		sseManager:    sseManager,
		accounts:      accounts,
		fcmRepo:       fcmRepo,
		fcmClient:     fcmClient,
		syncer:        syncer,
		provider:      provider,
		topicName:     topicName,
		subName:       topicName + "-sub",
		lastHistoryID: make(map[string]uint64),
	}, nil
}

// Start subscribes to the watch topic and blocks receiving messages.
func (s *Service) Start(ctx context.Context) {
	if s.pubsubClient == nil {
		log.Println("[PubSub] No project configured, Gmail push notifications disabled")
		return
	}
	log.Printf("[PubSub] Starting notification service, topic: %s, subscription: %s", s.topicName, s.subName)

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		log.Printf("[PubSub] Error checking subscription existence: %v", err)
		return
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			log.Printf("[PubSub] Error checking topic existence: %v", err)
			return
		}
		if !topicExists {
			log.Printf("[PubSub] Topic %s does not exist, cannot create subscription", s.topicName)
			return
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 10 * time.Second,
		})
		if err != nil {
			log.Printf("[PubSub] Failed to create subscription: %v", err)
			return
		}
		log.Printf("[PubSub] Created subscription: %s", s.subName)
	}

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
		msg.Ack()
	})
	if err != nil {
		log.Printf("[PubSub] Error receiving messages: %v", err)
	}
}

// RegisterWatches sets up Gmail push notifications for every connected
// Google account.
func (s *Service) RegisterWatches(ctx context.Context) {
	if s.provider == nil || s.pubsubClient == nil {
		return
	}

	accounts, err := s.accounts.ListAll()
	if err != nil {
		log.Printf("[PubSub] Failed to list accounts for watch registration: %v", err)
		return
	}

	topic := fmt.Sprintf("projects/%s/topics/%s", s.pubsubClient.Project(), s.topicName)
	for i := range accounts {
		account := accounts[i]
		if account.Provider != "google" {
			continue
		}
		if err := s.provider.Watch(ctx, &account, topic, s.tokenSaver(&account)); err != nil {
			log.Printf("[PubSub] Failed to register watch for %s: %v", account.Email, err)
		}
	}
}

func (s *Service) tokenSaver(account *emaildomain.EmailAccount) emaildomain.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		account.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			account.RefreshToken = token.RefreshToken
		}
		account.TokenExpiry = token.Expiry
		return s.accounts.Update(account)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *pubsub.Message) {
	var notification GmailNotification
	if err := json.Unmarshal(msg.Data, &notification); err != nil {
		log.Printf("[PubSub] Failed to unmarshal notification: %v", err)
		return
	}

	account, err := s.accounts.FindByEmail(notification.EmailAddress)
	if err != nil {
		log.Printf("[PubSub] Error finding account %s: %v", notification.EmailAddress, err)
		return
	}
	if account == nil {
		log.Printf("[PubSub] No account for %s", notification.EmailAddress)
		return
	}

	// Gmail re-delivers aggressively; skip history ids we already handled.
	s.mu.Lock()
	lastHID, seen := s.lastHistoryID[account.ID]
	if seen && notification.HistoryID <= lastHID {
		s.mu.Unlock()
		return
	}
	s.lastHistoryID[account.ID] = notification.HistoryID
	s.mu.Unlock()

	log.Printf("[PubSub] Mailbox update for %s (historyId: %d)", notification.EmailAddress, notification.HistoryID)

	s.sseManager.Broadcast("mailbox_update", map[string]interface{}{
		"account_id": account.ID,
		"email":      notification.EmailAddress,
		"timestamp":  time.Now(),
	})

	// Fresh mail triggers a re-triage of the account.
	go func() {
		if err := s.syncer.SyncAccount(context.Background(), account.ID); err != nil {
			log.Printf("[PubSub] Sync after notification failed for %s: %v", account.Email, err)
		}
	}()
}

// EmailFiled broadcasts a partition change to connected dashboards.
func (s *Service) EmailFiled(email *emaildomain.EmailMessage) {
	s.sseManager.Broadcast("email_filed", map[string]interface{}{
		"email_id":  email.ID,
		"relevance": email.Relevance,
		"subject":   email.Subject,
		"from":      email.From,
	})
}

// TaskCreated broadcasts a new board task.
func (s *Service) TaskCreated(task *kanbandomain.KanbanTask) {
	s.sseManager.Broadcast("task_created", task)
}

// UrgentEmail pushes an immediate alert for urgent mail to the account
// owner's devices, plus an SSE event for dashboards.
func (s *Service) UrgentEmail(email *emaildomain.EmailMessage) {
	s.sseManager.Broadcast("urgent_email", map[string]interface{}{
		"email_id": email.ID,
		"subject":  email.Subject,
		"from":     email.From,
	})

	if s.fcmClient == nil {
		return
	}

	go func() {
		account, err := s.accounts.FindByID(email.AccountID)
		if err != nil || account == nil {
			return
		}

		tokens, err := s.fcmRepo.GetTokensByUserID(account.UserID)
		if err != nil || len(tokens) == 0 {
			return
		}

		tokenStrings := make([]string, 0, len(tokens))
		for _, t := range tokens {
			tokenStrings = append(tokenStrings, t.Token)
		}

		sender := email.FromName
		if sender == "" {
			sender = email.From
		}
		subject := email.Subject
		if len(subject) > 100 {
			subject = subject[:97] + "..."
		}

		failedTokens, err := s.fcmClient.SendToDevices(context.Background(), tokenStrings, fcm.NotificationData{
			Title: "Urgent email from " + sender,
			Body:  subject,
			Data: map[string]string{
				"type":         "urgent_email",
				"email_id":     email.ID,
				"click_action": "/inbox/" + email.ID,
			},
		})
		if err != nil {
			log.Printf("[FCM] Error sending urgent alert: %v", err)
			return
		}
		for _, token := range failedTokens {
			s.fcmRepo.DeleteToken(token)
		}
	}()
}
