package notify

import (
	"fmt"
	"log/slog"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// Credential keys looked up for transports that need secrets.
const (
	WebhookTokenKey = "push.webhook_token"
	imapKeyPrefix   = "push.imap:"
)

// IMAPPasswordKey is the credential key holding the IMAP password of user.
func IMAPPasswordKey(user string) string {
	return imapKeyPrefix + user
}

// SecretFunc resolves a credential by key.
type SecretFunc func(key string) (string, error)

// NewTransport builds the transport selected by cfg.Transport.
func NewTransport(
	cfg model.PushConfig,
	store NotificationWriter,
	secret SecretFunc,
	logger *slog.Logger,
) (Transport, error) {
	switch cfg.Transport {
	case "log":
		return NewLogTransport(logger), nil

	case "inapp", "":
		if store == nil {
			return nil, fmt.Errorf("inapp transport needs a notification store")
		}
		return NewInAppTransport(store), nil

	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("webhook transport needs push.webhook_url")
		}
		// The token is optional; receivers may authenticate by network.
		token, _ := lookup(secret, WebhookTokenKey)
		return NewWebhookTransport(cfg.WebhookURL, token), nil

	case "imap":
		if cfg.IMAP.Host == "" || cfg.IMAP.Username == "" {
			return nil, fmt.Errorf("imap transport needs push.imap.host and push.imap.username")
		}
		password, err := lookup(secret, IMAPPasswordKey(cfg.IMAP.Username))
		if err != nil {
			return nil, fmt.Errorf("imap password for %s: %w", cfg.IMAP.Username, err)
		}
		from := cfg.IMAP.From
		if from == "" {
			from = cfg.IMAP.Username
		}
		return NewMailboxTransport(MailboxConfig{
			Host:     cfg.IMAP.Host,
			Port:     cfg.IMAP.Port,
			Username: cfg.IMAP.Username,
			Password: password,
			TLS:      cfg.IMAP.TLS,
			Prefix:   cfg.IMAP.MailboxPrefix,
			From:     from,
		}), nil
	}
	return nil, fmt.Errorf("unknown push transport %q", cfg.Transport)
}

func lookup(secret SecretFunc, key string) (string, error) {
	if secret == nil {
		return "", fmt.Errorf("no credential store configured")
	}
	return secret(key)
}
