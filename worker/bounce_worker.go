package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"gorm.io/gorm"

	"github.com/hannahgrace-creator/mail-guard-pilot/config"
	"github.com/hannahgrace-creator/mail-guard-pilot/utils"
)

var (
	bounceSubjects = []string{
		"undeliverable", "undelivered", "delivery status notification",
		"mail delivery failed", "failure notice", "returned mail",
	}
	messageIDPattern = regexp.MustCompile(`(?i)message-id:\s*<([^>]+)>`)
	recipientPattern = regexp.MustCompile(`(?i)(?:final-recipient|x-failed-recipients):\s*(?:rfc822;\s*)?([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
)

// BounceWorker polls the probe sender's mailbox for delivery status
// notifications and feeds them through the same idempotent ingestion path as
// provider webhooks. It only ever produces bounce events; positive delivery
// confirmation comes from the webhook.
type BounceWorker struct {
	DB     *gorm.DB
	IMAP   config.IMAPConfig
	Logger *log.Logger
}

func NewBounceWorker(db *gorm.DB, cfg config.IMAPConfig, logger *log.Logger) *BounceWorker {
	return &BounceWorker{
		DB:     db,
		IMAP:   cfg,
		Logger: logger,
	}
}

func (bw *BounceWorker) Start(ctx context.Context) {
	bw.Logger.Println("Bounce worker started")

	ticker := time.NewTicker(bw.IMAP.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			bw.Logger.Println("Bounce worker shutting down...")
			return
		case <-ticker.C:
			if err := bw.pollMailbox(); err != nil {
				bw.Logger.Printf("Bounce poll failed: %v", err)
			}
		}
	}
}

func (bw *BounceWorker) pollMailbox() error {
	host := bw.IMAP.Address
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}

	imapClient, err := client.DialTLS(bw.IMAP.Address, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(bw.IMAP.Username, bw.IMAP.Password); err != nil {
		return fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	if _, err := imapClient.Select(bw.IMAP.Mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{"\\Seen"}
	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("failed to search messages: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}, messages)
	}()

	for msg := range messages {
		if err := bw.processMessage(msg, section); err != nil {
			bw.Logger.Printf("Failed to process message %d: %v", msg.SeqNum, err)
		}
	}

	if err := <-done; err != nil {
		return fmt.Errorf("error during fetch: %w", err)
	}
	return nil
}

func (bw *BounceWorker) processMessage(msg *imap.Message, section *imap.BodySectionName) error {
	if msg.Envelope == nil || !isBounceNotification(msg.Envelope) {
		return nil
	}

	body, err := readTextBody(msg, section)
	if err != nil {
		return err
	}

	event := utils.DeliveryEvent{
		Type:         "email.bounced",
		BounceType:   "hard",
		BounceReason: msg.Envelope.Subject,
	}
	if m := messageIDPattern.FindStringSubmatch(body); m != nil {
		event.MessageID = m[1]
	}
	if m := recipientPattern.FindStringSubmatch(body); m != nil {
		event.Email = m[1]
	}
	if event.MessageID == "" && event.Email == "" {
		// Not correlatable to any probe we sent
		return nil
	}

	return utils.ApplyDeliveryEvent(bw.DB, bw.Logger, event)
}

func isBounceNotification(envelope *imap.Envelope) bool {
	for _, from := range envelope.From {
		mailbox := strings.ToLower(from.MailboxName)
		if mailbox == "mailer-daemon" || mailbox == "postmaster" {
			return true
		}
	}
	subject := strings.ToLower(envelope.Subject)
	for _, keyword := range bounceSubjects {
		if strings.Contains(subject, keyword) {
			return true
		}
	}
	return false
}

func readTextBody(msg *imap.Message, section *imap.BodySectionName) (string, error) {
	literal := msg.GetBody(section)
	if literal == nil {
		return "", fmt.Errorf("message body not found")
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return "", fmt.Errorf("failed to create message reader: %w", err)
	}

	var builder strings.Builder
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			return "", fmt.Errorf("failed to read next part: %w", err)
		}

		if _, ok := p.Header.(*mail.InlineHeader); ok {
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return "", fmt.Errorf("failed to read body: %w", err)
			}
			builder.Write(b)
			builder.WriteByte('\n')
		}
	}
	return builder.String(), nil
}
