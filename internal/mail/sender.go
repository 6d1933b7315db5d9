// Package mail delivers receipt emails through either a transactional-email
// provider (Resend) or an SMTP relay. Which backend is used is decided once,
// from config.MailConfig, when the sender is built.
package mail

import (
	"context"
	"errors"

	"github.com/tbourn/go-receipt-service/internal/config"
)

// Attachment is a single file attached to a Message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outgoing email. Text and HTML are alternative bodies.
type Message struct {
	To         string
	From       string
	Subject    string
	Text       string
	HTML       string
	Attachment *Attachment
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Backend names used in logs and metrics.
const (
	BackendResend = "resend"
	BackendSMTP   = "smtp"
	BackendNone   = "none"
)

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("mail: message has no recipient")

// Backend reports which backend New would select for cfg.
func Backend(cfg config.MailConfig) string {
	switch {
	case cfg.ProviderConfigured():
		return BackendResend
	case cfg.SMTPConfigured():
		return BackendSMTP
	default:
		return BackendNone
	}
}

// New returns the Sender for cfg: the provider when an API key is set, else
// SMTP when a host is set, else nil (delivery disabled).
func New(cfg config.MailConfig) Sender {
	switch Backend(cfg) {
	case BackendResend:
		return NewResendSender(cfg.ResendAPIKey)
	case BackendSMTP:
		return &SMTPSender{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			SSL:      cfg.SMTPSecure,
		}
	default:
		return nil
	}
}
