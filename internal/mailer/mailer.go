package mailer

import (
	"crypto/tls"
	"fmt"
	"net/smtp"

	"github.com/credixa-git/crypto-app-be/internal/config"
)

// Mailer sends transactional mail over implicit-TLS SMTP. All sends are
// fire-and-forget from the caller's perspective; failures are logged,
// never surfaced to the user flow.
type Mailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func New(cfg config.SMTPConfig) *Mailer {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Mailer{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := []byte(
		fmt.Sprintf("From: %s\r\n", m.from) +
			fmt.Sprintf("To: %s\r\n", to) +
			fmt.Sprintf("Subject: %s\r\n", subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body,
	)

	addr := m.host + ":" + m.port

	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.host})
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Quit()

	auth := smtp.PlainAuth("", m.username, m.password, m.host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}

	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}

	return nil
}

func (m *Mailer) SendOTP(to, code string) error {
	body := fmt.Sprintf(
		"<p>Your verification code is <b>%s</b>.</p><p>It expires in 10 minutes.</p>",
		code,
	)
	return m.Send(to, "Your verification code", body)
}

func (m *Mailer) SendWelcome(to, name string) error {
	body := fmt.Sprintf("<p>Hi %s,</p><p>Welcome aboard! Your account is ready.</p>", name)
	return m.Send(to, "Welcome", body)
}
