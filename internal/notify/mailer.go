package notify

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/printflow/internal/common"
)

// Mailer sends HTML email over SMTP. Configuration is injected at
// construction; there is no module-level transport state.
type Mailer struct {
	config common.NotificationConfig
	logger arbor.ILogger
}

// NewMailer creates a new SMTP mailer
func NewMailer(config common.NotificationConfig, logger arbor.ILogger) *Mailer {
	return &Mailer{
		config: config,
		logger: logger,
	}
}

// IsConfigured checks if SMTP is configured with minimum required settings
func (m *Mailer) IsConfigured() bool {
	return m.config.SMTPHost != "" && m.config.SMTPUsername != "" &&
		m.config.SMTPPassword != "" && m.config.SMTPFrom != ""
}

// Send delivers an HTML email to a single recipient
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.config.SMTPHost == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	if m.config.SMTPUsername == "" || m.config.SMTPPassword == "" {
		return fmt.Errorf("SMTP credentials not configured")
	}
	if m.config.SMTPFrom == "" {
		return fmt.Errorf("from email not configured")
	}

	// Build MIME message; base64 body per RFC 2045 keeps long HTML lines
	// within RFC 5322 limits.
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", m.config.SMTPFromName, m.config.SMTPFrom))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(encodeBase64WithLineBreaks(htmlBody))
	msg.WriteString("\r\n")

	addr := fmt.Sprintf("%s:%d", m.config.SMTPHost, m.config.SMTPPort)
	auth := smtp.PlainAuth("", m.config.SMTPUsername, m.config.SMTPPassword, m.config.SMTPHost)

	if m.config.SMTPUseTLS {
		return m.sendWithTLS(addr, auth, m.config.SMTPFrom, to, msg.String())
	}

	return smtp.SendMail(addr, auth, m.config.SMTPFrom, []string{to}, []byte(msg.String()))
}

// sendWithTLS sends email using a direct TLS connection (required for Gmail)
func (m *Mailer) sendWithTLS(addr string, auth smtp.Auth, from, to, msg string) error {
	host := strings.Split(addr, ":")[0]

	conn, err := tls.Dial("tcp", addr, &tls.Config{
		ServerName: host,
	})
	if err != nil {
		// Fallback to STARTTLS if direct TLS fails
		return m.sendWithSTARTTLS(addr, auth, from, to, msg)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return m.transmit(client, auth, from, to, msg)
}

// sendWithSTARTTLS sends email using STARTTLS upgrade
func (m *Mailer) sendWithSTARTTLS(addr string, auth smtp.Auth, from, to, msg string) error {
	host := strings.Split(addr, ":")[0]

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	return m.transmit(client, auth, from, to, msg)
}

func (m *Mailer) transmit(client *smtp.Client, auth smtp.Auth, from, to, msg string) error {
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

// encodeBase64WithLineBreaks encodes content as base64 with 76-char line
// breaks per RFC 2045 for MIME content.
func encodeBase64WithLineBreaks(content string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	var result strings.Builder
	const lineLen = 76

	for i := 0; i < len(encoded); i += lineLen {
		end := i + lineLen
		if end > len(encoded) {
			end = len(encoded)
		}
		result.WriteString(encoded[i:end])
		if end < len(encoded) {
			result.WriteString("\r\n")
		}
	}

	return result.String()
}
