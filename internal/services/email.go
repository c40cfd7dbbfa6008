package services

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/ecostage/backend/internal/models"
	"github.com/ecostage/backend/pkg/logger"
	"gorm.io/gorm"
)

type EmailService struct {
	db *gorm.DB
}

type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

func NewEmailService(db *gorm.DB) *EmailService {
	return &EmailService{db: db}
}

// GetConfig loads SMTP settings from system_configs so admins can change
// them without a restart.
func (s *EmailService) GetConfig() *EmailConfig {
	config := &EmailConfig{}

	var configs []models.SystemConfig
	s.db.Where("`group` = ?", "email").Find(&configs)

	for _, c := range configs {
		switch c.Key {
		case "email_enabled":
			config.Enabled = c.Value == "true"
		case "email_host":
			config.Host = c.Value
		case "email_port":
			if port, err := strconv.Atoi(c.Value); err == nil {
				config.Port = port
			}
		case "email_username":
			config.Username = c.Value
		case "email_password":
			config.Password = c.Value
		case "email_from":
			config.From = c.Value
		case "email_use_tls":
			config.UseTLS = c.Value == "true"
		}
	}

	if config.Port == 0 {
		config.Port = 587
	}

	return config
}

// Send delivers a plain notification mail. Disabled or unconfigured SMTP is
// a silent no-op; in-app notifications remain the source of truth.
func (s *EmailService) Send(to []string, subject, body string) error {
	config := s.GetConfig()
	if !config.Enabled || config.Host == "" {
		return nil
	}
	if len(to) == 0 {
		return nil
	}
	return s.sendEmail(config, to, subject, s.wrapBody(subject, body))
}

func (s *EmailService) wrapBody(subject, body string) string {
	var sb strings.Builder
	sb.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	sb.WriteString(fmt.Sprintf("<h2>%s</h2>", subject))
	sb.WriteString(fmt.Sprintf("<div style=\"background: #f9f9f9; padding: 16px; border-radius: 4px; white-space: pre-wrap;\">%s</div>", body))
	sb.WriteString("<hr><p style=\"color: #888; font-size: 12px;\">Powered by EcoStage</p>")
	sb.WriteString("</body></html>")
	return sb.String()
}

func (s *EmailService) sendEmail(config *EmailConfig, to []string, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)

	headers := make(map[string]string)
	headers["From"] = config.From
	headers["To"] = strings.Join(to, ", ")
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var msg strings.Builder
	for k, v := range headers {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}

	if config.UseTLS {
		return s.sendWithTLS(addr, config, auth, to, msg.String())
	}
	return smtp.SendMail(addr, auth, config.From, to, []byte(msg.String()))
}

func (s *EmailService) sendWithTLS(addr string, config *EmailConfig, auth smtp.Auth, to []string, msg string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: config.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, config.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(config.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// Mailer queues mail for asynchronous delivery. Delivery never blocks a
// request transaction; a failed enqueue only logs.
type Mailer struct {
	queue TaskQueue
	email *EmailService
}

func NewMailer(queue TaskQueue, email *EmailService) *Mailer {
	return &Mailer{queue: queue, email: email}
}

// QueueMail enqueues a message for the worker. With the sync queue the send
// happens inline on a best-effort basis.
func (m *Mailer) QueueMail(to, subject, body string) {
	if m == nil || m.queue == nil {
		return
	}
	task := &EmailTask{To: to, Subject: subject, Body: body}
	if err := m.queue.Enqueue(task); err != nil {
		logger.Warn().Err(err).Str("to", to).Msg("failed to enqueue mail")
	}
}
