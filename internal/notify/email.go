// Package notify отправляет письма кассовым и отчётным получателям по SMTP.
package notify

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

// Config содержит настройки SMTP-отправителя.
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
}

type emailNotifier struct {
	config Config
	logger *log.Entry
	// send подменяется в тестах, в бою — smtp.SendMail.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier создаёт SMTP-реализацию Notifier.
func NewEmailNotifier(config Config, logger *log.Entry) domain.Notifier {
	if logger == nil {
		logger = log.New().WithField("component", "notify")
	}
	return &emailNotifier{
		config: config,
		logger: logger,
		send:   smtp.SendMail,
	}
}

func (n *emailNotifier) Send(to, subject, body string) error {
	message := n.buildTextEmail(to, subject, body)
	return n.deliver(to, message)
}

func (n *emailNotifier) SendAttachment(to, subject, body, filename string, attachment []byte) error {
	message, err := n.buildEmailWithAttachment(to, subject, body, filename, attachment)
	if err != nil {
		return err
	}
	return n.deliver(to, message)
}

func (n *emailNotifier) deliver(to string, message []byte) error {
	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)

	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	if err := n.send(addr, auth, n.config.FromEmail, []string{to}, message); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.WithField("to", to).Debug("email sent")
	return nil
}

func (n *emailNotifier) buildTextEmail(to, subject, body string) []byte {
	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/plain; charset=\"UTF-8\"\r\n"+
			"\r\n",
		n.config.FromName,
		n.config.FromEmail,
		to,
		subject,
	)
	return []byte(headers + body)
}

// buildEmailWithAttachment собирает multipart/mixed письмо: текстовая часть
// плюс base64-вложение.
func (n *emailNotifier) buildEmailWithAttachment(to, subject, body, filename string, attachment []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: multipart/mixed; boundary=%q\r\n"+
			"\r\n",
		n.config.FromName,
		n.config.FromEmail,
		to,
		subject,
		writer.Boundary(),
	)

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=\"UTF-8\"")
	textPart, err := writer.CreatePart(textHeader)
	if err != nil {
		return nil, fmt.Errorf("create text part: %w", err)
	}
	if _, err := textPart.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("write text part: %w", err)
	}

	attachmentHeader := textproto.MIMEHeader{}
	attachmentHeader.Set("Content-Type", "application/octet-stream")
	attachmentHeader.Set("Content-Transfer-Encoding", "base64")
	attachmentHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	attachmentPart, err := writer.CreatePart(attachmentHeader)
	if err != nil {
		return nil, fmt.Errorf("create attachment part: %w", err)
	}

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(attachment)))
	base64.StdEncoding.Encode(encoded, attachment)
	if _, err := attachmentPart.Write(encoded); err != nil {
		return nil, fmt.Errorf("write attachment part: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	return append([]byte(headers), buf.Bytes()...), nil
}

var _ domain.Notifier = (*emailNotifier)(nil)
