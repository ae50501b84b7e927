// Package mail emails the operators when a lead comes in.
package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	tekio "github.com/tekio-be/leads"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const DefaultRecipient = "info@tekio.be"

// ErrNotConfigured is returned when no SMTP host or sender address is set.
var ErrNotConfigured = errors.New("SMTP is not configured")

//go:embed templates/*.html
var templateFS embed.FS

var notificationTmpl = template.Must(template.ParseFS(templateFS, "templates/lead_notification.html"))

// LeadNotification is the request body of the notification function.
type LeadNotification struct {
	ContactName     *string `json:"contact_name"`
	Email           string  `json:"email" validate:"required,email"`
	CompanyName     *string `json:"company_name"`
	Phone           *string `json:"phone"`
	Message         *string `json:"message"`
	Source          string  `json:"source"`
	Language        string  `json:"language"`
	NbUsersEstimate *string `json:"nb_users_estimate"`
}

// Subject builds the operator mail subject.
func (n LeadNotification) Subject() string {
	who := value(n.ContactName)
	if who == "" {
		who = n.Email
	}
	company := value(n.CompanyName)
	if company == "" {
		company = "Particulier"
	}
	return fmt.Sprintf("🎯 Nouveau lead: %s - %s", who, company)
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Website  string
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

type Notifier struct {
	cfg     Config
	log     *zap.SugaredLogger
	newConn func(Config) (sender, error)
}

func NewNotifier(cfg Config, log *zap.SugaredLogger) *Notifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.To == "" {
		cfg.To = DefaultRecipient
	}
	if cfg.Website == "" {
		cfg.Website = "tekio.be"
	}

	return &Notifier{
		cfg:     cfg,
		log:     log,
		newConn: dial,
	}
}

func dial(cfg Config) (sender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}

// Send renders and mails the notification to the operator inbox.
func (n *Notifier) Send(ctx context.Context, lead LeadNotification) error {
	if n.cfg.Host == "" || n.cfg.From == "" {
		n.log.Errorw("Send", "error", ErrNotConfigured.Error())
		return ErrNotConfigured
	}
	if err := tekio.Validate(lead); err != nil {
		return err
	}

	n.log.Infow("Send", "status", "new lead received", "email", lead.Email, "source", lead.Source)

	body, err := n.render(lead)
	if err != nil {
		return err
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat("Tekio Leads", n.cfg.From); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(n.cfg.To); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(lead.Subject())
	msg.SetBodyString(gomail.TypeTextHTML, body)

	conn, err := n.newConn(n.cfg)
	if err != nil {
		return err
	}
	if err := conn.DialAndSendWithContext(ctx, msg); err != nil {
		n.log.Errorw("Send", "status", "smtp send failed", "error", err.Error())
		return fmt.Errorf("smtp send: %w", err)
	}

	n.log.Infow("Send", "status", "notification sent", "email", lead.Email)
	return nil
}

type notificationView struct {
	Website         string
	ContactName     string
	Email           string
	CompanyName     string
	Phone           string
	NbUsersEstimate string
	Source          string
	Language        string
	Message         string
}

func (n *Notifier) render(lead LeadNotification) (string, error) {
	view := notificationView{
		Website:         n.cfg.Website,
		ContactName:     value(lead.ContactName),
		Email:           lead.Email,
		CompanyName:     value(lead.CompanyName),
		Phone:           value(lead.Phone),
		NbUsersEstimate: value(lead.NbUsersEstimate),
		Source:          lead.Source,
		Language:        lead.Language,
		Message:         value(lead.Message),
	}

	var buf bytes.Buffer
	if err := notificationTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render notification: %w", err)
	}
	return buf.String(), nil
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
