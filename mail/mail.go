package mail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// ErrInvalidMessage is returned for messages missing a recipient or subject.
var ErrInvalidMessage = errors.New("mail: invalid message")

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string

	// Secret is the part of Body that grants access, such as a recovery link.
	// Mailers that do not deliver to the recipient must not print it.
	Secret string
}

const redacted = "[redacted]"

// Redacted returns Body with every occurrence of Secret masked.
func (m Message) Redacted() string {
	if m.Secret == "" {
		return m.Body
	}
	return strings.ReplaceAll(m.Body, m.Secret, redacted)
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" || strings.TrimSpace(m.Subject) == "" {
		return ErrInvalidMessage
	}
	if strings.ContainsAny(m.To, "\r\n") || strings.ContainsAny(m.Subject, "\r\n") {
		return ErrInvalidMessage
	}
	return nil
}

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// RecoveryMessage builds the email that carries a recovery link.
func RecoveryMessage(to, name, link string, ttl time.Duration) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	b.WriteString("Someone asked to recover the password for this account. ")
	b.WriteString("If that was you, open the link below to get a new temporary password:\n\n")
	fmt.Fprintf(&b, "    %s\n\n", link)
	fmt.Fprintf(&b, "The link works once and expires in %s. ", ttl.Round(time.Minute))
	b.WriteString("If you did not ask for this, you can ignore this email.\n")

	return Message{
		To:      to,
		Subject: "Password recovery for " + name,
		Body:    b.String(),
		Secret:  link,
	}
}

// LogMailer writes messages to a logger instead of sending them. The
// message Secret is masked unless RevealSecrets is set, which only makes
// sense on a development machine.
type LogMailer struct {
	Logger        *log.Logger
	RevealSecrets bool
}

func (m LogMailer) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	logger := m.Logger
	if logger == nil {
		logger = log.Default()
	}
	body := msg.Redacted()
	if m.RevealSecrets {
		body = msg.Body
	}
	logger.Printf("goRecover: mail to=%s subject=%q\n%s", msg.To, msg.Subject, body)
	return nil
}

// SMTPConfig addresses an SMTP relay. Username empty disables AUTH.
type SMTPConfig struct {
	Addr     string
	From     string
	Username string
	Password string
}

// SMTPMailer sends through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Addr == "" || cfg.From == "" {
		return nil, errors.New("mail: smtp addr and from are required")
	}
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return nil, fmt.Errorf("mail: invalid smtp addr: %w", err)
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		host, _, _ := net.SplitHostPort(m.cfg.Addr)
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, host)
	}

	return m.send(m.cfg.Addr, auth, m.cfg.From, []string{msg.To}, m.render(msg))
}

func (m *SMTPMailer) render(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + m.cfg.From + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
