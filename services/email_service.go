package services

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EmailSender delivers a single plain-text email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMTPEmailService implements EmailSender using SMTP
type SMTPEmailService struct {
	host     string
	port     string
	username string
	password string
	from     string
	fromName string
}

func NewSMTPEmailService(host, port, username, password, from, fromName string) *SMTPEmailService {
	return &SMTPEmailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		fromName: fromName,
	}
}

// SendEmail runs smtp.SendMail in a goroutine so the caller's deadline is
// honoured; net/smtp has no context support.
func (es *SMTPEmailService) SendEmail(ctx context.Context, to, subject, body string) error {
	message := es.buildMessage(to, subject, body)
	auth := smtp.PlainAuth("", es.username, es.password, es.host)
	addr := fmt.Sprintf("%s:%s", es.host, es.port)

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, es.from, []string{to}, message)
	}()

	select {
	case err := <-done:
		if err != nil {
			logrus.Errorf("Failed to send email to %s: %v", to, err)
			return err
		}
		logrus.Debugf("Email sent successfully to %s", to)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email to %s: %w", to, ctx.Err())
	}
}

func (es *SMTPEmailService) buildMessage(to, subject, body string) []byte {
	var msg bytes.Buffer

	from := es.from
	if es.fromName != "" {
		from = fmt.Sprintf("%s <%s>", es.fromName, es.from)
	}

	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	msg.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.NewString(), es.host))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return msg.Bytes()
}

// MockEmailService logs emails instead of sending them. Used when SMTP is
// not configured.
type MockEmailService struct{}

func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

func (m *MockEmailService) SendEmail(_ context.Context, to, subject, _ string) error {
	logrus.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Mock email sent")
	return nil
}
