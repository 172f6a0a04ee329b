// Package notify sends account status emails to collaborators and the director.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"eventflow/internal/config"

	"go.uber.org/zap"
)

type Message struct {
	To      string
	Subject string
	Text    string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Recipient is the person an account notification is about.
type Recipient struct {
	UserID string
	Email  string
	Nom    string
	Prenom string
}

func (r Recipient) fullName() string {
	name := strings.TrimSpace(r.Prenom + " " + r.Nom)
	if name == "" {
		return r.Email
	}
	return name
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func Approved(r Recipient, baseURL string) Message {
	return Message{
		To:      r.Email,
		Subject: "Your EventFlow account has been approved",
		Text: fmt.Sprintf("Hello %s,\n\nYour EventFlow account has been approved by an administrator.\n"+
			"You can now sign in and start logging your work sessions.\n\nSign in: %s/login\n\nThe EventFlow team\n",
			r.fullName(), baseURL),
	}
}

func Rejected(r Recipient) Message {
	return Message{
		To:      r.Email,
		Subject: "About your EventFlow account",
		Text: fmt.Sprintf("Hello %s,\n\nYour EventFlow registration could not be approved at this time.\n"+
			"If you think this is a mistake, please contact the administration.\n\nThe EventFlow team\n",
			r.fullName()),
	}
}

func NewRegistration(r Recipient, directorEmail, baseURL string) Message {
	return Message{
		To:      directorEmail,
		Subject: "New registration awaiting approval: " + r.fullName(),
		Text: fmt.Sprintf("A new collaborator registered and is waiting for approval:\n\n"+
			"Last name: %s\nFirst name: %s\nEmail: %s\nUser ID: %s\n\nReview it here: %s/admin-user-validation\n",
			orNA(r.Nom), orNA(r.Prenom), r.Email, r.UserID, baseURL),
	}
}

// Send delivers msg and logs the failure instead of returning it.
func Send(ctx context.Context, n Notifier, lg *zap.SugaredLogger, msg Message) {
	if msg.To == "" {
		lg.Warnw("notification skipped, no recipient", "subject", msg.Subject)
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		lg.Errorw("notification failed", "to", msg.To, "subject", msg.Subject, "err", err)
	}
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTP struct {
	addr     string
	host     string
	from     string
	auth     smtp.Auth
	sendMail sendMailFunc
	now      func() time.Time
}

func NewSMTP(cfg config.SMTPConfig) (*SMTP, error) {
	if !cfg.Enabled() {
		return nil, errors.New("smtp: host not configured")
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTP{
		addr:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
		host:     cfg.Host,
		from:     cfg.From,
		auth:     auth,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}, nil
}

func (s *SMTP) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.ContainsAny(msg.To, "\r\n") || strings.ContainsAny(msg.Subject, "\r\n") {
		return errors.New("smtp: header contains a line break")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Text, "\n", "\r\n"))
	if err := s.sendMail(s.addr, s.auth, s.from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

// Log only records messages; used when no SMTP host is configured.
type Log struct {
	lg *zap.SugaredLogger
}

func NewLog(lg *zap.SugaredLogger) *Log { return &Log{lg: lg} }

func (l *Log) Notify(_ context.Context, msg Message) error {
	l.lg.Infow("notification", "to", msg.To, "subject", msg.Subject)
	return nil
}
