package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
)

// MailboxConfig addresses the IMAP server that hosts recipient mailboxes.
type MailboxConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool

	// Prefix is prepended to the recipient id to form the mailbox name.
	Prefix string
	From   string
}

// MailboxTransport appends each push as a message to a per-recipient IMAP
// mailbox.
type MailboxTransport struct {
	cfg MailboxConfig
}

// NewMailboxTransport creates a transport for cfg.
func NewMailboxTransport(cfg MailboxConfig) *MailboxTransport {
	return &MailboxTransport{cfg: cfg}
}

func (t *MailboxTransport) Name() string { return "imap" }

// connect dials and authenticates. The connection is closed as soon as ctx
// is done, which unblocks the greeting, login and every later command.
// The caller must Logout the client and then call stop.
func (t *MailboxTransport) connect(ctx context.Context) (_ *imapclient.Client, stop func() bool, err error) {
	addr := net.JoinHostPort(t.cfg.Host, t.cfg.Port)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}
	unwatch := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		if err != nil {
			unwatch()
			_ = conn.Close()
			if ctx.Err() != nil {
				err = fmt.Errorf("%w: %w", err, ctx.Err())
			}
		}
	}()

	tlsConfig := &tls.Config{ServerName: t.cfg.Host}
	var client *imapclient.Client
	if t.cfg.TLS {
		tlsConfig.NextProtos = []string{"imap"}
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, nil, fmt.Errorf("TLS handshake with %s: %w", addr, err)
		}
		client = imapclient.New(tlsConn, nil)
	} else {
		client, err = imapclient.NewStartTLS(conn, &imapclient.Options{TLSConfig: tlsConfig})
		if err != nil {
			return nil, nil, fmt.Errorf("starting TLS with %s: %w", addr, err)
		}
	}

	if err := client.Login(t.cfg.Username, t.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("authentication failed for %s: %w", t.cfg.Username, err)
	}
	return client, unwatch, nil
}

// Mailbox returns the mailbox name for a recipient.
func (t *MailboxTransport) Mailbox(recipientID string) string {
	return t.cfg.Prefix + recipientID
}

func (t *MailboxTransport) Send(ctx context.Context, recipientID string, msg Message) error {
	raw, err := composeMessage(t.cfg.From, recipientID, msg)
	if err != nil {
		return err
	}

	client, stop, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer stop()
	defer func() { _ = client.Logout().Wait() }()

	mbox := t.Mailbox(recipientID)
	// Fails when the mailbox already exists; Append reports real errors.
	_ = client.Create(mbox, nil).Wait()

	cmd := client.Append(mbox, int64(len(raw)), &imap.AppendOptions{Time: msg.CreatedAt})
	if _, err := cmd.Write(raw); err != nil {
		_ = cmd.Close()
		return fmt.Errorf("writing message to %s: %w", mbox, err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", mbox, err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("appending to %s: %w", mbox, err)
	}
	return nil
}

// composeMessage renders msg as an RFC 5322 plain-text message.
func composeMessage(from, recipientID string, msg Message) ([]byte, error) {
	var h mail.Header
	h.SetDate(msg.CreatedAt)
	h.SetSubject(msg.Subject())
	h.SetAddressList("From", []*mail.Address{{Name: msg.SenderName, Address: from}})
	h.Set("X-Taskcast-Task-Id", msg.TaskID)
	h.Set("X-Taskcast-Recipient-Id", recipientID)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}
	if _, err := io.WriteString(w, msg.Text()); err != nil {
		return nil, fmt.Errorf("writing message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing message writer: %w", err)
	}
	return buf.Bytes(), nil
}
