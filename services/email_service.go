package services

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	appConfig "github.com/onestep-solution/field-service-api/config"
)

// Attachment is a file attached to an outgoing email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
	Inline      bool
	ContentID   string // referenced as cid: in HTML bodies when inline
}

// EmailSender defines the interface for outbound email
type EmailSender interface {
	Send(to, subject, htmlBody string, attachments []Attachment) error
}

// SMTPEmailService sends email over SMTP with STARTTLS-capable servers.
type SMTPEmailService struct {
	server   string
	port     int
	username string
	password string
	from     string
	fromName string
}

var emailServiceInstance EmailSender

// InitEmailService initializes the SMTP email sender from configuration
func InitEmailService() EmailSender {
	cfg := appConfig.GetConfig()
	emailServiceInstance = &SMTPEmailService{
		server:   cfg.SMTPServer,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.EmailFrom,
		fromName: cfg.EmailFromName,
	}
	return emailServiceInstance
}

// GetEmailService returns the email sender instance
func GetEmailService() EmailSender {
	return emailServiceInstance
}

// SetEmailService sets the email sender instance (primarily for testing)
func SetEmailService(s EmailSender) {
	emailServiceInstance = s
}

// Send builds a MIME message and delivers it over a TLS SMTP connection.
func (s *SMTPEmailService) Send(to, subject, htmlBody string, attachments []Attachment) error {
	boundary := "field-service-mixed-boundary"

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary))

	// HTML body part
	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n")

	for _, att := range attachments {
		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString(fmt.Sprintf("Content-Type: %s\r\n", att.ContentType))
		msg.WriteString("Content-Transfer-Encoding: base64\r\n")
		if att.Inline {
			msg.WriteString(fmt.Sprintf("Content-Disposition: inline; filename=%q\r\n", att.Filename))
			if att.ContentID != "" {
				msg.WriteString(fmt.Sprintf("Content-ID: <%s>\r\n", att.ContentID))
			}
		} else {
			msg.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n", att.Filename))
		}
		msg.WriteString("\r\n")
		msg.WriteString(base64.StdEncoding.EncodeToString(att.Content))
		msg.WriteString("\r\n")
	}
	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	serverAddr := fmt.Sprintf("%s:%d", s.server, s.port)
	auth := smtp.PlainAuth("", s.username, s.password, s.server)

	tlsConfig := &tls.Config{ServerName: s.server}
	conn, err := tls.Dial("tcp", serverAddr, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.server)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err = client.Mail(s.from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to add recipient %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data connection: %w", err)
	}
	if _, err = w.Write([]byte(msg.String())); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %w", err)
	}

	return client.Quit()
}
