package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	emaildomain "triagedesk-backend/internal/email/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Service implements emaildomain.MailProvider over the Gmail REST API. One
// instance is shared across accounts; per-account credentials travel with the
// account record.
type Service struct {
	clientID     string
	clientSecret string
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// notifyTokenSource wraps the oauth2 source so silently refreshed tokens get
// persisted back onto the account row.
type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback emaildomain.TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func (s *Service) gmailService(ctx context.Context, account *emaildomain.EmailAccount, onTokenRefresh emaildomain.TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		TokenType:    "Bearer",
	}
	// Force an early refresh when we hold a refresh token.
	if account.RefreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrapped := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: onTokenRefresh,
	}

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, wrapped)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}
	return srv, nil
}

// GetEmails retrieves messages from a label. Gmail paginates with page
// tokens, so an offset is honored by walking id-only pages first.
func (s *Service) GetEmails(ctx context.Context, account *emaildomain.EmailAccount, folder string, limit, offset int, onTokenRefresh emaildomain.TokenUpdateFunc) ([]*emaildomain.EmailMessage, int, error) {
	srv, err := s.gmailService(ctx, account, onTokenRefresh)
	if err != nil {
		return nil, 0, err
	}

	q := ""
	if folder != "" && folder != "ALL" {
		q = "label:" + folder
	}

	pageToken := ""
	if offset > 0 {
		skipped := 0
		for skipped < offset {
			toFetch := int64(offset - skipped)
			if toFetch > 500 {
				toFetch = 500
			}
			listQuery := srv.Users.Messages.List("me").MaxResults(toFetch)
			if q != "" {
				listQuery = listQuery.Q(q)
			}
			if pageToken != "" {
				listQuery = listQuery.PageToken(pageToken)
			}
			resp, err := listQuery.Do()
			if err != nil {
				return nil, 0, fmt.Errorf("unable to skip messages: %v", err)
			}
			skipped += len(resp.Messages)
			pageToken = resp.NextPageToken
			if pageToken == "" {
				break
			}
		}
	}

	requestLimit := int64(limit)
	if requestLimit <= 0 {
		requestLimit = 20
	}
	if requestLimit > 500 {
		requestLimit = 500
	}

	listQuery := srv.Users.Messages.List("me").MaxResults(requestLimit)
	if q != "" {
		listQuery = listQuery.Q(q)
	}
	if pageToken != "" {
		listQuery = listQuery.PageToken(pageToken)
	}

	messagesResp, err := listQuery.Do()
	if err != nil {
		return nil, 0, fmt.Errorf("unable to retrieve messages: %v", err)
	}

	type fetchResult struct {
		email *emaildomain.EmailMessage
		err   error
	}

	results := make(chan fetchResult, len(messagesResp.Messages))
	semaphore := make(chan struct{}, 10)

	for _, msg := range messagesResp.Messages {
		go func(msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			fullMsg, err := srv.Users.Messages.Get("me", msgID).Format("full").Do()
			if err != nil {
				results <- fetchResult{nil, err}
				return
			}
			results <- fetchResult{convertMessage(fullMsg), nil}
		}(msg.Id)
	}

	emails := make([]*emaildomain.EmailMessage, 0, len(messagesResp.Messages))
	for range messagesResp.Messages {
		result := <-results
		if result.err != nil {
			log.Printf("[Gmail] Failed to fetch message: %v", result.err)
			continue
		}
		emails = append(emails, result.email)
	}

	// Parallel fetching returns messages in arbitrary order.
	sort.Slice(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})

	total := int(messagesResp.ResultSizeEstimate)
	if total == 0 {
		total = len(emails)
	}
	return emails, total, nil
}

// MarkAsRead removes the UNREAD label.
func (s *Service) MarkAsRead(ctx context.Context, account *emaildomain.EmailAccount, id string, onTokenRefresh emaildomain.TokenUpdateFunc) error {
	srv, err := s.gmailService(ctx, account, onTokenRefresh)
	if err != nil {
		return err
	}

	_, err = srv.Users.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Do()
	if err != nil {
		return fmt.Errorf("unable to mark message as read: %v", err)
	}
	return nil
}

// Watch registers Pub/Sub push notifications for the inbox. Any existing
// watch is stopped first, Gmail allows only one per user.
func (s *Service) Watch(ctx context.Context, account *emaildomain.EmailAccount, topicName string, onTokenRefresh emaildomain.TokenUpdateFunc) error {
	srv, err := s.gmailService(ctx, account, onTokenRefresh)
	if err != nil {
		return err
	}

	_ = srv.Users.Stop("me").Do()

	resp, err := srv.Users.Watch("me", &gmail.WatchRequest{
		TopicName: topicName,
		LabelIds:  []string{"INBOX"},
	}).Do()
	if err != nil {
		return fmt.Errorf("unable to watch mailbox: %v", err)
	}
	log.Printf("[Gmail] Watch for %s started, expires %d", account.Email, resp.Expiration)
	return nil
}

func convertMessage(msg *gmail.Message) *emaildomain.EmailMessage {
	from := getHeader(msg.Payload.Headers, "From")
	fromName := from
	fromAddr := from
	if idx := strings.Index(from, "<"); idx >= 0 {
		fromName = strings.TrimSpace(from[:idx])
		fromAddr = strings.Trim(from[idx:], "<> ")
	}

	var to []string
	if h := getHeader(msg.Payload.Headers, "To"); h != "" {
		to = splitAddressList(h)
	}
	var cc []string
	if h := getHeader(msg.Payload.Headers, "Cc"); h != "" {
		cc = splitAddressList(h)
	}

	body, isHTML := extractBody(msg.Payload)
	bodyType := "text"
	if isHTML {
		bodyType = "html"
	}

	return &emaildomain.EmailMessage{
		ID:             msg.Id,
		From:           fromAddr,
		FromName:       fromName,
		To:             to,
		CC:             cc,
		Subject:        getHeader(msg.Payload.Headers, "Subject"),
		Body:           body,
		BodyType:       bodyType,
		Preview:        makePreview(body, isHTML),
		ReceivedAt:     time.Unix(msg.InternalDate/1000, 0),
		IsRead:         !hasLabel(msg.LabelIds, "UNREAD"),
		HasAttachments: hasAttachments(msg.Payload),
		Folder:         primaryLabel(msg.LabelIds),
	}
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

func splitAddressList(header string) []string {
	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if idx := strings.Index(p, "<"); idx >= 0 {
			p = strings.Trim(p[idx:], "<> ")
		}
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func extractBody(payload *gmail.MessagePart) (string, bool) {
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody, plainBody string
	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.Body != nil && part.Body.Data != "" {
				data, err := base64.URLEncoding.DecodeString(part.Body.Data)
				if err == nil {
					switch part.MimeType {
					case "text/html":
						htmlBody = string(data)
					case "text/plain":
						plainBody = string(data)
					}
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	if plainBody != "" {
		return plainBody, false
	}
	return htmlBody, htmlBody != ""
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

func makePreview(body string, isHTML bool) string {
	preview := body
	if isHTML {
		preview = htmlTagPattern.ReplaceAllString(preview, " ")
		preview = strings.NewReplacer(
			"&nbsp;", " ",
			"&lt;", "<",
			"&gt;", ">",
			"&amp;", "&",
			"&quot;", "\"",
		).Replace(preview)
	}
	preview = strings.Join(strings.Fields(preview), " ")
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return preview
}

func hasAttachments(payload *gmail.MessagePart) bool {
	for _, part := range payload.Parts {
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			return true
		}
		if len(part.Parts) > 0 && hasAttachments(part) {
			return true
		}
	}
	return false
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}

func primaryLabel(labels []string) string {
	priority := []string{"INBOX", "SENT", "DRAFT", "SPAM", "TRASH"}
	for _, p := range priority {
		if hasLabel(labels, p) {
			return p
		}
	}
	if len(labels) > 0 {
		return labels[0]
	}
	return "INBOX"
}
