package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	api "triagedesk-backend/cmd/api"
	assignmentDelivery "triagedesk-backend/internal/assignment/delivery"
	assignmentdomain "triagedesk-backend/internal/assignment/domain"
	assignmentRepo "triagedesk-backend/internal/assignment/repository"
	assignmentUsecase "triagedesk-backend/internal/assignment/usecase"
	authDelivery "triagedesk-backend/internal/auth/delivery"
	authdomain "triagedesk-backend/internal/auth/domain"
	authRepo "triagedesk-backend/internal/auth/repository"
	authUsecase "triagedesk-backend/internal/auth/usecase"
	emailDelivery "triagedesk-backend/internal/email/delivery"
	emaildomain "triagedesk-backend/internal/email/domain"
	emailRepo "triagedesk-backend/internal/email/repository"
	emailUsecase "triagedesk-backend/internal/email/usecase"
	kanbanDelivery "triagedesk-backend/internal/kanban/delivery"
	kanbandomain "triagedesk-backend/internal/kanban/domain"
	kanbanRepo "triagedesk-backend/internal/kanban/repository"
	kanbanUsecase "triagedesk-backend/internal/kanban/usecase"
	"triagedesk-backend/internal/kanban/scheduler"
	"triagedesk-backend/internal/notification"
	notifDelivery "triagedesk-backend/internal/notification/delivery"
	"triagedesk-backend/pkg/ai"
	"triagedesk-backend/pkg/chroma"
	"triagedesk-backend/pkg/config"
	"triagedesk-backend/pkg/crypto"
	"triagedesk-backend/pkg/database"
	"triagedesk-backend/pkg/fcm"
	"triagedesk-backend/pkg/gmail"
	"triagedesk-backend/pkg/heuristic"
	"triagedesk-backend/pkg/imap"
	"triagedesk-backend/pkg/sse"
)

// providerFactory selects the mail provider for an account.
type providerFactory struct {
	gmail *gmail.Service
	imap  *imap.Service
}

func (f *providerFactory) ProviderFor(account *emaildomain.EmailAccount) (emaildomain.MailProvider, error) {
	switch account.Provider {
	case "google":
		return f.gmail, nil
	case "imap":
		return f.imap, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", account.Provider)
	}
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{}, &authdomain.RefreshToken{}, &authdomain.FCMToken{},
		&emaildomain.EmailAccount{}, &emaildomain.SenderRule{}, &emaildomain.UserAction{},
		&assignmentdomain.AssignmentRule{}, &assignmentdomain.Client{},
		&kanbandomain.KanbanColumn{}, &kanbandomain.PersistedTask{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	accountRepo := emailRepo.NewAccountRepository(db)
	senderRuleRepo := emailRepo.NewSenderRuleRepository(db)
	userActionRepo := emailRepo.NewUserActionRepository(db)
	ruleRepo := assignmentRepo.NewRuleRepository(db)
	clientRepo := assignmentRepo.NewClientRepository(db)
	columnRepo := kanbanRepo.NewColumnRepository(db)
	taskBackend := kanbanRepo.NewTaskBackend(db)

	// Initialize SSE Manager
	sseManager := sse.NewManager()

	// IMAP passwords are stored encrypted at rest
	cipher := crypto.NewCipher(cfg.EncryptionKey)

	// Initialize mail providers
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	imapService := imap.NewService(cipher)
	factory := &providerFactory{gmail: gmailService, imap: imapService}

	// Classification pipeline: heuristic filter, then the deep classifier.
	// The deep stage is wrapped so a model outage degrades to manual-review
	// classifications instead of failing the sync.
	heuristicClassifier := heuristic.New(cfg.OwnedDomains)
	deepService, err := ai.NewClassifierService(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiApiKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Fatal("Failed to initialize AI classifier:", err)
	}
	log.Printf("AI classifier initialized with provider: %s", cfg.AIProvider)

	engine := assignmentUsecase.NewEngine(ruleRepo, clientRepo, userActionRepo)

	store := emailUsecase.NewStore(
		heuristicClassifier,
		ai.NewDegraded(deepService),
		engine,
		senderRuleRepo,
		userActionRepo,
		taskBackend,
		nil,
	)
	if err := store.LoadCaches(); err != nil {
		log.Printf("[WARN] Failed to load triage caches: %v", err)
	}

	syncer := emailUsecase.NewSyncer(store, accountRepo, factory, cfg.SyncWorkerCount)

	// Initialize Chroma client for related-email lookup
	var chromaClient *chroma.Client
	if cfg.ChromaAPIKey != "" {
		chromaClient, err = chroma.NewClient(cfg)
		if err != nil {
			log.Printf("[WARN] Failed to initialize Chroma client, related-email lookup disabled: %v", err)
			chromaClient = nil
		} else {
			log.Println("Chroma client initialized")
		}
	} else {
		log.Println("[WARN] CHROMA_API_KEY not set, related-email lookup disabled")
	}
	if chromaClient != nil {
		store.SetIndexer(chromaClient)
	}

	// Initialize FCM client (optional, reminders and urgent pushes need it)
	var fcmClient *fcm.Client
	if cfg.FirebaseCredentials != "" {
		fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client, push notifications disabled: %v", err)
			fcmClient = nil
		}
	} else {
		log.Println("[WARN] No Firebase credentials configured, FCM disabled")
	}

	// Notification service: SSE/FCM fan-out plus Gmail push when a project
	// is configured. Extract the short topic name from a full resource name
	// if necessary.
	topicName := cfg.GooglePubSubTopic
	if parts := strings.Split(topicName, "/"); len(parts) > 1 {
		topicName = parts[len(parts)-1]
	}
	if topicName == "" {
		topicName = "gmail-updates"
	}

	notifService, err := notification.NewService(
		cfg.GoogleProjectID, topicName, cfg.GoogleCredentials,
		sseManager, accountRepo, fcmTokenRepo, fcmClient, syncer, gmailService,
	)
	if err != nil {
		log.Printf("[WARN] Failed to initialize notification service: %v", err)
	} else {
		store.SetNotifier(notifService)
		go notifService.Start(context.Background())
		go notifService.RegisterWatches(context.Background())
	}

	// Task reminder scheduler
	reminderScheduler := scheduler.NewReminderScheduler(taskBackend, fcmTokenRepo, fcmClient)
	reminderScheduler.Start()

	// Initial sync of all connected accounts
	go syncer.SyncAll(context.Background())

	// Initialize use cases and handlers
	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, cfg)
	board := kanbanUsecase.NewBoard(store, taskBackend, columnRepo)

	authHandler := authDelivery.NewAuthHandler(authUsecaseInstance, fcmTokenRepo)
	emailHandler := emailDelivery.NewEmailHandler(store, syncer, accountRepo, userActionRepo, cipher, chromaClient)
	ruleHandler := assignmentDelivery.NewRuleHandler(engine, ruleRepo)
	boardHandler := kanbanDelivery.NewBoardHandler(board)
	streamHandler := notifDelivery.NewStreamHandler(sseManager)

	handler := api.NewHandler(authUsecaseInstance, authHandler, emailHandler, ruleHandler, boardHandler, streamHandler)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
