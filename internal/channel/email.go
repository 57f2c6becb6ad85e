package channel

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
)

// EmailConfig holds email sender configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// EmailSender sends notifications over SMTP
type EmailSender struct {
	config EmailConfig
	log    *logger.Logger
}

// NewEmailSender creates a new SMTP email sender
func NewEmailSender(config EmailConfig, log *logger.Logger) *EmailSender {
	return &EmailSender{config: config, log: log}
}

// Channel implements Sender
func (s *EmailSender) Channel() domain.Channel { return domain.ChannelEmail }

// Send renders the message and delivers it to the user's address
func (s *EmailSender) Send(ctx context.Context, to *domain.User, msg *Message) error {
	subject, body, err := renderEmail(msg)
	if err != nil {
		return err
	}

	var opts domain.EmailOptions
	if msg.Email != nil {
		opts = *msg.Email
	}
	raw := s.buildMessage(to.Email, subject, body, opts)
	recipients := append([]string{to.Email}, opts.CC...)

	if err := s.sendSMTP(ctx, recipients, raw); err != nil {
		return err
	}
	s.log.Debug("Email sent", "notification_id", msg.NotificationID.Hex(), "type", msg.Type)
	return nil
}

func (s *EmailSender) buildMessage(to, subject, body string, opts domain.EmailOptions) []byte {
	from := s.config.FromEmail
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	if len(opts.CC) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(opts.CC, ", "))
	}
	if opts.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", opts.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// sendSMTP dials with implicit TLS on port 465 and upgrades with STARTTLS
// elsewhere when the server offers it
func (s *EmailSender) sendSMTP(ctx context.Context, recipients []string, message []byte) error {
	addr := net.JoinHostPort(s.config.SMTPHost, fmt.Sprint(s.config.SMTPPort))
	tlsConfig := &tls.Config{ServerName: s.config.SMTPHost, MinVersion: tls.VersionTLS12}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if s.config.SMTPPort == 465 {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if s.config.SMTPPort != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err = client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	if s.config.SMTPUsername != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range recipients {
		if err = client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to set recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	return client.Quit()
}
