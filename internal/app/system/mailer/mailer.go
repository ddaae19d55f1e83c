// internal/app/system/mailer/mailer.go
package mailer

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Email is one outgoing message with text and HTML alternatives.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Config holds SMTP settings. With an empty Host, messages are logged
// instead of sent (development).
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// Mailer sends Email over SMTP.
type Mailer struct {
	cfg    Config
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New returns a Mailer for cfg.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Mailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool { return m.cfg.Host != "" }

// Send delivers e. In log-only mode it records the recipient and subject.
func (m *Mailer) Send(e Email) error {
	if _, err := mail.ParseAddress(e.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", e.To, err)
	}
	if !m.Enabled() {
		m.logger.Info("mail not configured; email logged only",
			zap.String("to", e.To),
			zap.String("subject", e.Subject))
		return nil
	}

	msg, err := m.build(e)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{e.To}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *Mailer) build(e Email) ([]byte, error) {
	from := (&mail.Address{Name: m.cfg.FromName, Address: m.cfg.From}).String()
	boundary := randomBoundary()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", e.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	parts := []struct{ ctype, body string }{
		{"text/plain", e.TextBody},
		{"text/html", e.HTMLBody},
	}
	for _, p := range parts {
		if p.body == "" {
			continue
		}
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s; charset=utf-8\r\n", p.ctype)
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		qp := quotedprintable.NewWriter(&buf)
		if _, err := qp.Write([]byte(p.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}

func randomBoundary() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return "clanhub-" + hex.EncodeToString(b[:])
}
