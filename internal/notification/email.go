// File: internal/notification/email.go
package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/smartdevs17/notify-service/internal/models"
	"github.com/smartdevs17/notify-service/pkg/utils"
)

// emailDialTimeout bounds the SMTP connection attempt
const emailDialTimeout = 30 * time.Second

// EmailSender delivers alerts over SMTP
type EmailSender struct {
	logger *NotificationLogger
}

// NewEmailSender creates a new email sender
func NewEmailSender(logger *NotificationLogger) *EmailSender {
	return &EmailSender{logger: logger}
}

// Name returns the channel type
func (es *EmailSender) Name() models.ChannelType {
	return models.ChannelTypeEmail
}

// Send delivers the alert to every configured recipient in a single message
func (es *EmailSender) Send(ctx context.Context, config *models.NotificationConfig, alert *models.AlertMessage) error {
	settings := &config.Email
	if err := es.validateSettings(settings); err != nil {
		return err
	}

	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Level)), alert.Title)
	es.logger.LogEmailAttempt(settings.Recipients, subject)
	start := time.Now()

	message := es.buildMessage(settings, alert, subject)

	var err error
	if settings.UseTLS {
		err = es.sendTLS(settings, message)
	} else {
		err = es.sendStartTLS(settings, message)
	}

	es.logger.LogEmailResult(settings.Recipients, subject, err == nil, time.Since(start), err)

	if err != nil {
		return utils.NewAppError(utils.ErrCodeExternal, "Email delivery failed", err.Error())
	}
	return nil
}

// validateSettings validates the SMTP configuration
func (es *EmailSender) validateSettings(settings *models.EmailSettings) error {
	if strings.TrimSpace(settings.SMTPHost) == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "SMTP host is not configured", "")
	}

	if settings.SMTPPort < 1 || settings.SMTPPort > 65535 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "SMTP port is invalid", fmt.Sprintf("port: %d", settings.SMTPPort))
	}

	if settings.Username == "" || settings.Password == "" {
		return utils.NewAppError(utils.ErrCodeConfiguration, "SMTP credentials are not configured", "")
	}

	if len(settings.Recipients) == 0 {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Email recipients are not configured", "")
	}

	for _, recipient := range settings.Recipients {
		if !isValidEmail(recipient) {
			return utils.NewAppError(utils.ErrCodeValidation, "Invalid email recipient", recipient)
		}
	}

	return nil
}

// fromAddress returns the envelope sender, falling back to the SMTP username
func (es *EmailSender) fromAddress(settings *models.EmailSettings) string {
	if settings.FromAddress != "" {
		return settings.FromAddress
	}
	return settings.Username
}

// buildMessage builds a multipart/alternative message with plain-text and HTML parts
func (es *EmailSender) buildMessage(settings *models.EmailSettings, alert *models.AlertMessage, subject string) string {
	boundary := "notify-" + alert.ID
	from := es.fromAddress(settings)

	var msg strings.Builder

	if settings.FromName != "" {
		msg.WriteString(fmt.Sprintf("From: %s <%s>\r\n", settings.FromName, from))
	} else {
		msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	}
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(settings.Recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", alert.Timestamp.Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", boundary))

	if alert.Level == models.AlertLevelCritical {
		msg.WriteString("X-Priority: 1\r\n")
		msg.WriteString("Importance: high\r\n")
	}

	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(es.buildTextBody(alert))
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	msg.WriteString(es.buildHTMLBody(alert))
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return msg.String()
}

// buildTextBody renders the plain-text part
func (es *EmailSender) buildTextBody(alert *models.AlertMessage) string {
	var body strings.Builder

	body.WriteString(alert.Message)
	body.WriteString("\r\n\r\n")
	body.WriteString(fmt.Sprintf("Level: %s\r\n", alert.Level))
	if alert.ServiceName != nil {
		body.WriteString(fmt.Sprintf("Service: %s\r\n", *alert.ServiceName))
	}
	if alert.ResourceType != nil {
		body.WriteString(fmt.Sprintf("Resource: %s\r\n", *alert.ResourceType))
	}
	if alert.CurrentValue != nil && alert.ThresholdValue != nil {
		body.WriteString(fmt.Sprintf("Current: %.1f (threshold %.1f)\r\n", *alert.CurrentValue, *alert.ThresholdValue))
	}
	body.WriteString(fmt.Sprintf("Time: %s\r\n", alert.Timestamp.Format(time.RFC3339)))

	return body.String()
}

// buildHTMLBody renders the HTML part
func (es *EmailSender) buildHTMLBody(alert *models.AlertMessage) string {
	var body strings.Builder

	body.WriteString("<html><body>")
	body.WriteString(fmt.Sprintf("<h2>%s</h2>", html.EscapeString(alert.Title)))
	body.WriteString(fmt.Sprintf("<p>%s</p>", html.EscapeString(alert.Message)))
	body.WriteString("<table border='1' cellpadding='5' cellspacing='0'>")
	body.WriteString(fmt.Sprintf("<tr><td><strong>Level</strong></td><td>%s</td></tr>", html.EscapeString(string(alert.Level))))
	if alert.ServiceName != nil {
		body.WriteString(fmt.Sprintf("<tr><td><strong>Service</strong></td><td>%s</td></tr>", html.EscapeString(*alert.ServiceName)))
	}
	if alert.ResourceType != nil {
		body.WriteString(fmt.Sprintf("<tr><td><strong>Resource</strong></td><td>%s</td></tr>", html.EscapeString(*alert.ResourceType)))
	}
	if alert.CurrentValue != nil {
		body.WriteString(fmt.Sprintf("<tr><td><strong>Current Value</strong></td><td>%.1f</td></tr>", *alert.CurrentValue))
	}
	if alert.ThresholdValue != nil {
		body.WriteString(fmt.Sprintf("<tr><td><strong>Threshold</strong></td><td>%.1f</td></tr>", *alert.ThresholdValue))
	}
	body.WriteString("</table>")
	body.WriteString(fmt.Sprintf("<p><small>Sent at: %s</small></p>", alert.Timestamp.Format(time.RFC3339)))
	body.WriteString("</body></html>")

	return body.String()
}

// sendTLS connects over implicit TLS
func (es *EmailSender) sendTLS(settings *models.EmailSettings, message string) error {
	addr := fmt.Sprintf("%s:%d", settings.SMTPHost, settings.SMTPPort)

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: settings.SMTPHost})
	if err != nil {
		return fmt.Errorf("failed to connect with TLS: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, settings.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return es.transmit(client, settings, message)
}

// sendStartTLS connects in the clear and upgrades when the server offers STARTTLS
func (es *EmailSender) sendStartTLS(settings *models.EmailSettings, message string) error {
	addr := fmt.Sprintf("%s:%d", settings.SMTPHost, settings.SMTPPort)

	conn, err := net.DialTimeout("tcp", addr, emailDialTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	client, err := smtp.NewClient(conn, settings.SMTPHost)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: settings.SMTPHost}); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	return es.transmit(client, settings, message)
}

// transmit authenticates and pushes the message through an established client
func (es *EmailSender) transmit(client *smtp.Client, settings *models.EmailSettings, message string) error {
	auth := smtp.PlainAuth("", settings.Username, settings.Password, settings.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if err := client.Mail(es.fromAddress(settings)); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	for _, recipient := range settings.Recipients {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", recipient, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}

	if _, err := writer.Write([]byte(message)); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize message: %w", err)
	}

	return client.Quit()
}

// isValidEmail performs basic address validation
func isValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}

	local, domain := parts[0], parts[1]
	if len(local) == 0 || len(local) > 64 {
		return false
	}
	if len(domain) == 0 || len(domain) > 253 || !strings.Contains(domain, ".") {
		return false
	}

	return true
}
