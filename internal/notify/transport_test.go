package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

func TestWebhookTransport(t *testing.T) {
	var got webhookPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.RecipientID == "bad" {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	tr := NewWebhookTransport(srv.URL, "s3cret")
	require.NoError(t, tr.Send(context.Background(), "r1", testMessage()))
	assert.Equal(t, "Bearer s3cret", auth)
	assert.Equal(t, "task_created", got.Event)
	assert.Equal(t, "r1", got.RecipientID)
	assert.Equal(t, "t1", got.Task.TaskID)

	err := tr.Send(context.Background(), "bad", testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestComposeMessage(t *testing.T) {
	raw, err := composeMessage("tasks@example.org", "r1", testMessage())
	require.NoError(t, err)

	mr, err := mail.CreateReader(strings.NewReader(string(raw)))
	require.NoError(t, err)

	subject, err := mr.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "New field task from Noa North", subject)
	assert.Equal(t, "t1", mr.Header.Get("X-Taskcast-Task-Id"))

	from, err := mr.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "tasks@example.org", from[0].Address)

	part, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Please check the west gate today")
	assert.Contains(t, string(body), "Due: 2026-03-05")
}

func TestMailboxName(t *testing.T) {
	tr := NewMailboxTransport(MailboxConfig{Prefix: "Tasks/"})
	assert.Equal(t, "Tasks/u-42", tr.Mailbox("u-42"))
}

func TestNewTransport(t *testing.T) {
	secrets := map[string]string{
		WebhookTokenKey:                  "tok",
		IMAPPasswordKey("bot@example.org"): "pw",
	}
	secret := func(key string) (string, error) {
		if v, ok := secrets[key]; ok {
			return v, nil
		}
		return "", errors.New("not found")
	}
	w := &fakeNotificationWriter{}

	tests := []struct {
		name    string
		cfg     model.PushConfig
		want    string
		wantErr bool
	}{
		{"default is inapp", model.PushConfig{}, "inapp", false},
		{"log", model.PushConfig{Transport: "log"}, "log", false},
		{"webhook", model.PushConfig{Transport: "webhook", WebhookURL: "http://x"}, "webhook", false},
		{"webhook without url", model.PushConfig{Transport: "webhook"}, "", true},
		{"imap", model.PushConfig{Transport: "imap", IMAP: model.IMAPConfig{
			Host: "mail", Port: "993", Username: "bot@example.org",
		}}, "imap", false},
		{"imap without password", model.PushConfig{Transport: "imap", IMAP: model.IMAPConfig{
			Host: "mail", Username: "other@example.org",
		}}, "", true},
		{"unknown", model.PushConfig{Transport: "pigeon"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewTransport(tt.cfg, w, secret, nil)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.Name())
		})
	}
}

// silentServer accepts connections and never sends an IMAP greeting.
func silentServer(t *testing.T) (host, port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	conns := make(chan net.Conn, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- conn
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		for {
			select {
			case c := <-conns:
				_ = c.Close()
			default:
				return
			}
		}
	})

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

func TestMailboxSendGivesUpOnSilentServer(t *testing.T) {
	host, port := silentServer(t)

	for _, useTLS := range []bool{false, true} {
		tr := NewMailboxTransport(MailboxConfig{
			Host: host, Port: port, Username: "bot", Password: "pw", TLS: useTLS,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		start := time.Now()
		err := tr.Send(ctx, "r1", testMessage())
		cancel()

		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	}
}

func TestDispatchBoundsSilentMailbox(t *testing.T) {
	host, port := silentServer(t)
	tr := NewMailboxTransport(MailboxConfig{Host: host, Port: port, Username: "bot", Password: "pw"})
	d := NewDispatcher(tr, WithTimeout(200*time.Millisecond))

	start := time.Now()
	assert.Zero(t, d.Dispatch(context.Background(), []string{"r1", "r2"}, testMessage()))
	assert.Less(t, time.Since(start), 2*time.Second)
}
