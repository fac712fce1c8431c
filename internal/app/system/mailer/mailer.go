// internal/app/system/mailer/mailer.go
package mailer

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	SiteName string
	BaseURL  string
}

// Email is one outgoing message with text and HTML alternatives.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

var ErrNotConfigured = errors.New("mailer: smtp host not configured")

// sendFunc matches smtp.SendMail so tests can capture the wire message.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers Email over SMTP.
type Mailer struct {
	cfg  Config
	log  *zap.Logger
	send sendFunc
}

func New(cfg Config, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: logger, send: smtp.SendMail}
}

// Site returns the site name and base URL used when rendering templates.
func (m *Mailer) Site() (name, baseURL string) {
	return m.cfg.SiteName, m.cfg.BaseURL
}

// Send delivers e. smtp.SendMail does not accept a context, so ctx is only
// checked before the dial.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if m.cfg.Host == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	to, err := mail.ParseAddress(e.To)
	if err != nil {
		return fmt.Errorf("mailer: bad recipient: %w", err)
	}

	msg, err := m.build(e, to.Address)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	start := time.Now()
	if err := m.send(addr, auth, m.cfg.From, []string{to.Address}, msg); err != nil {
		return fmt.Errorf("mailer: send: %w", err)
	}
	m.log.Debug("email sent",
		zap.String("to", to.Address),
		zap.String("subject", e.Subject),
		zap.Duration("took", time.Since(start)))
	return nil
}

// build renders a multipart/alternative MIME message.
func (m *Mailer) build(e Email, to string) ([]byte, error) {
	boundary, err := newBoundary()
	if err != nil {
		return nil, err
	}
	from := (&mail.Address{Name: m.cfg.FromName, Address: m.cfg.From}).String()

	var buf bytes.Buffer
	writeHeader := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	writeHeader("From", from)
	writeHeader("To", to)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", e.Subject))
	writeHeader("Date", time.Now().Format(time.RFC1123Z))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", `multipart/alternative; boundary="`+boundary+`"`)
	buf.WriteString("\r\n")

	part := func(ctype, body string) {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s; charset=UTF-8\r\n", ctype)
		buf.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
		buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
		buf.WriteString("\r\n")
	}
	part("text/plain", e.TextBody)
	if e.HTMLBody != "" {
		part("text/html", e.HTMLBody)
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}

func newBoundary() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "jobhub-" + hex.EncodeToString(b), nil
}
