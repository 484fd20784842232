package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mail "github.com/wneessen/go-mail"

	"github.com/detrin/sentinel/pkg/config"
)

// emailTimeout bounds one send, dial included.
const emailTimeout = 30 * time.Second

// EmailDriver sends plain-text mail through an authenticated SMTP relay.
type EmailDriver struct {
	cfg config.SMTPConfig
}

// NewEmailDriver creates an email driver for the given relay.
func NewEmailDriver(cfg config.SMTPConfig) *EmailDriver {
	return &EmailDriver{cfg: cfg}
}

type emailConfig struct {
	To      string   `json:"to"`
	BCC     []string `json:"bcc"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Execute sends one message. Every recipient rides BCC and the visible To
// header is the sender address, so recipients never learn who else was
// notified.
func (d *EmailDriver) Execute(ctx context.Context, configJSON string) (Result, error) {
	var cfg emailConfig
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return Result{}, fmt.Errorf("Failed to parse email config: %v", err)
	}

	recipients := cfg.BCC
	if len(recipients) == 0 && cfg.To != "" {
		recipients = []string{cfg.To}
	}
	if len(recipients) == 0 {
		return Result{}, errors.New("No recipients specified")
	}

	msg := mail.NewMsg()
	if err := msg.From(d.cfg.From); err != nil {
		return Result{}, fmt.Errorf("Invalid 'from' address: %v", err)
	}
	if err := msg.To(d.cfg.From); err != nil {
		return Result{}, fmt.Errorf("Invalid 'from' address: %v", err)
	}
	for _, rcpt := range recipients {
		if err := msg.AddBcc(rcpt); err != nil {
			return Result{}, fmt.Errorf("Invalid BCC address '%s': %v", rcpt, err)
		}
	}
	msg.Subject(cfg.Subject)
	msg.SetBodyString(mail.TypeTextPlain, cfg.Body)

	client, err := d.newClient()
	if err != nil {
		return Result{}, fmt.Errorf("Failed to create SMTP transport: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, emailTimeout)
	defer cancel()

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, errors.New("Email send timeout (30s)")
		}
		return Result{}, fmt.Errorf("Failed to send email: %v", err)
	}

	return Result{Stdout: fmt.Sprintf("Email sent to %d BCC recipients", len(recipients))}, nil
}

func (d *EmailDriver) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(d.cfg.Username),
		mail.WithPassword(d.cfg.Password),
		mail.WithTimeout(emailTimeout),
	}
	if d.cfg.Port == 465 {
		// Port 465 speaks TLS from the first byte; everything else gets
		// mandatory STARTTLS.
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithPort(d.cfg.Port), mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return mail.NewClient(d.cfg.Host, opts...)
}
