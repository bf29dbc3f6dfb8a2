package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"
	"time"

	emaildomain "triagedesk-backend/internal/email/domain"
	"triagedesk-backend/pkg/crypto"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
)

var ErrConnectionFailed = errors.New("IMAP connection failed")

// Service implements emaildomain.MailProvider over IMAP for non-Gmail
// accounts. Passwords are stored encrypted on the account row.
type Service struct {
	cipher *crypto.Cipher
}

func NewService(cipher *crypto.Cipher) *Service {
	return &Service{cipher: cipher}
}

func (s *Service) connect(account *emaildomain.EmailAccount) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", account.ImapServer, account.ImapPort)
	dialer := &net.Dialer{Timeout: 10 * time.Second}

	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{ServerName: account.ImapServer})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	c.Timeout = 2 * time.Minute

	password, err := s.cipher.Decrypt(account.ImapPassword)
	if err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	if err := c.Login(account.Email, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: login failed: %v", ErrConnectionFailed, err)
	}
	return c, nil
}

// GetEmails fetches the newest messages from a mailbox. IMAP sequence numbers
// are ascending by arrival, so the window is taken from the top.
func (s *Service) GetEmails(ctx context.Context, account *emaildomain.EmailAccount, folder string, limit, offset int, _ emaildomain.TokenUpdateFunc) ([]*emaildomain.EmailMessage, int, error) {
	c, err := s.connect(account)
	if err != nil {
		return nil, 0, err
	}
	defer c.Logout()

	if folder == "" || folder == "ALL" {
		folder = "INBOX"
	}
	mbox, err := c.Select(folder, true)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to select %s: %v", folder, err)
	}
	total := int(mbox.Messages)
	if total == 0 {
		return nil, 0, nil
	}

	if limit <= 0 {
		limit = 20
	}
	to := total - offset
	if to < 1 {
		return nil, total, nil
	}
	from := to - limit + 1
	if from < 1 {
		from = 1
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(uint32(from), uint32(to))

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, imap.FetchBodyStructure, section.FetchItem()}

	messages := make(chan *imap.Message, limit)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var emails []*emaildomain.EmailMessage
	for msg := range messages {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}
		emails = append(emails, parseMessage(msg, folder))
	}
	if err := <-done; err != nil {
		return nil, 0, fmt.Errorf("fetch failed: %v", err)
	}

	sort.Slice(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})
	return emails, total, nil
}

// MarkAsRead sets the \Seen flag by UID.
func (s *Service) MarkAsRead(ctx context.Context, account *emaildomain.EmailAccount, id string, _ emaildomain.TokenUpdateFunc) error {
	c, err := s.connect(account)
	if err != nil {
		return err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", false); err != nil {
		return fmt.Errorf("failed to select INBOX: %v", err)
	}

	seqSet := new(imap.SeqSet)
	var uid uint32
	if _, err := fmt.Sscanf(id, "%d", &uid); err != nil {
		return fmt.Errorf("invalid message id %q", id)
	}
	seqSet.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return c.UidStore(seqSet, item, []interface{}{imap.SeenFlag}, nil)
}

// Watch is not supported for plain IMAP accounts; they rely on polling.
func (s *Service) Watch(ctx context.Context, account *emaildomain.EmailAccount, topicName string, _ emaildomain.TokenUpdateFunc) error {
	return errors.New("push notifications not supported for IMAP accounts")
}

func parseMessage(msg *imap.Message, folder string) *emaildomain.EmailMessage {
	email := &emaildomain.EmailMessage{
		ID:     fmt.Sprintf("%d", msg.Uid),
		Folder: folder,
		IsRead: hasFlag(msg.Flags, imap.SeenFlag),
	}

	if msg.Envelope != nil {
		email.Subject = msg.Envelope.Subject
		email.ReceivedAt = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			email.From = addressOf(msg.Envelope.From[0])
			email.FromName = msg.Envelope.From[0].PersonalName
		}
		for _, addr := range msg.Envelope.To {
			email.To = append(email.To, addressOf(addr))
		}
		for _, addr := range msg.Envelope.Cc {
			email.CC = append(email.CC, addressOf(addr))
		}
	}

	for _, literal := range msg.Body {
		content, err := io.ReadAll(literal)
		if err != nil {
			continue
		}
		entity, err := message.Read(bytes.NewReader(content))
		if err != nil {
			continue
		}
		parseEntity(entity, email)
	}

	if msg.BodyStructure != nil && structureHasAttachments(msg.BodyStructure) {
		email.HasAttachments = true
	}

	email.Preview = makePreview(email.Body)
	return email
}

// parseEntity walks the MIME tree, preferring text/plain over text/html.
func parseEntity(entity *message.Entity, email *emaildomain.EmailMessage) {
	mediaType, _, _ := entity.Header.ContentType()

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		mr := entity.MultipartReader()
		for {
			part, err := mr.NextPart()
			if err != nil {
				return
			}
			parseEntity(part, email)
		}
	case mediaType == "text/plain" && (email.Body == "" || email.BodyType == "html"):
		body, _ := io.ReadAll(entity.Body)
		email.Body = string(body)
		email.BodyType = "text"
	case mediaType == "text/html" && email.Body == "":
		body, _ := io.ReadAll(entity.Body)
		email.Body = string(body)
		email.BodyType = "html"
	default:
		if entity.Header.Get("Content-Disposition") != "" {
			email.HasAttachments = true
		}
	}
}

func addressOf(addr *imap.Address) string {
	return fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName)
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

func structureHasAttachments(bs *imap.BodyStructure) bool {
	if strings.EqualFold(bs.Disposition, "attachment") {
		return true
	}
	for _, part := range bs.Parts {
		if structureHasAttachments(part) {
			return true
		}
	}
	return false
}

func makePreview(body string) string {
	preview := strings.Join(strings.Fields(body), " ")
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return preview
}
