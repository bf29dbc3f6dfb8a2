package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	authrepo "triagedesk-backend/internal/auth/repository"
	kanbanrepo "triagedesk-backend/internal/kanban/repository"
	"triagedesk-backend/pkg/fcm"
)

// ReminderScheduler pushes FCM reminders for tasks approaching their due
// date.
type ReminderScheduler struct {
	tasks     kanbanrepo.TaskBackend
	fcmRepo   authrepo.FCMTokenRepository
	fcmClient *fcm.Client
	interval  time.Duration
	stopChan  chan struct{}
}

func NewReminderScheduler(
	tasks kanbanrepo.TaskBackend,
	fcmRepo authrepo.FCMTokenRepository,
	fcmClient *fcm.Client,
) *ReminderScheduler {
	return &ReminderScheduler{
		tasks:     tasks,
		fcmRepo:   fcmRepo,
		fcmClient: fcmClient,
		interval:  1 * time.Minute,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the scheduler loop.
func (s *ReminderScheduler) Start() {
	if s.fcmClient == nil {
		log.Println("[Reminders] FCM client not available, scheduler disabled")
		return
	}

	log.Println("[Reminders] Starting task reminder scheduler (interval: 1 minute)")

	go func() {
		s.checkAndSendReminders()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkAndSendReminders()
			case <-s.stopChan:
				log.Println("[Reminders] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *ReminderScheduler) Stop() {
	close(s.stopChan)
}

func (s *ReminderScheduler) checkAndSendReminders() {
	tasks, err := s.tasks.FindPendingReminders(time.Now())
	if err != nil {
		log.Printf("[Reminders] Error finding pending reminders: %v", err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	log.Printf("[Reminders] Found %d tasks with pending reminders", len(tasks))

	for _, task := range tasks {
		userID := task.AssigneeID
		if userID == "" {
			userID = task.UserID
		}

		tokens, err := s.fcmRepo.GetTokensByUserID(userID)
		if err != nil {
			log.Printf("[Reminders] Error getting FCM tokens for user %s: %v", userID, err)
			continue
		}
		if len(tokens) == 0 {
			// No devices to notify; don't retry next tick.
			s.tasks.MarkReminderSent(task.ID)
			continue
		}

		body := task.Description
		if body == "" {
			body = "A triaged email is waiting on a response"
		}
		if task.DueDate != nil {
			body = fmt.Sprintf("%s\nDue: %s", body, task.DueDate.Format("Jan 2, 2006 15:04"))
		}

		title := "Reminder: " + task.Title
		switch task.Priority {
		case "urgent", "high":
			title = "[!] " + title
		}

		tokenStrings := make([]string, 0, len(tokens))
		for _, t := range tokens {
			tokenStrings = append(tokenStrings, t.Token)
		}

		notification := fcm.NotificationData{
			Title: title,
			Body:  body,
			Data: map[string]string{
				"type":         "task_reminder",
				"task_id":      task.ID,
				"email_id":     task.EmailID,
				"priority":     task.Priority,
				"click_action": "/board",
			},
		}

		failedTokens, err := s.fcmClient.SendToDevices(context.Background(), tokenStrings, notification)
		if err != nil {
			log.Printf("[Reminders] Error sending reminder for task %s: %v", task.ID, err)
		} else {
			log.Printf("[Reminders] Sent reminder for '%s' to %d devices", task.Title, len(tokenStrings)-len(failedTokens))
		}

		for _, token := range failedTokens {
			s.fcmRepo.DeleteToken(token)
		}

		// Sent once, success or not, so users are never spammed.
		if err := s.tasks.MarkReminderSent(task.ID); err != nil {
			log.Printf("[Reminders] Error marking reminder sent for task %s: %v", task.ID, err)
		}
	}
}
