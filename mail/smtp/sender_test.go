package smtp

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/mailer/mail"
)

func newTestMessage() *mail.Message {
	return mail.NewMessage().
		WithFrom(mail.Address{Address: "sender@example.com", Name: "Sender"}).
		WithTo(mail.Addresses("to@example.com")...).
		WithCc(mail.Addresses("cc@example.com")...).
		WithBcc(mail.Addresses("bcc@example.com")...).
		WithSubject("Hello").
		WithTextBody("plain body")
}

func TestTransport_SendMessage(t *testing.T) {
	server := startFakeServer(t)
	transport := NewTransport(server.config(), nil)

	err := transport.SendMessage(context.Background(), newTestMessage())
	require.NoError(t, err)

	got := server.received()
	require.Len(t, got, 1)
	assert.Equal(t, "sender@example.com", got[0].From)
	assert.Equal(t, []string{"to@example.com", "cc@example.com", "bcc@example.com"}, got[0].To)
	assert.Contains(t, got[0].Data, "Subject: Hello\r\n")
	assert.Contains(t, got[0].Data, "To: <to@example.com>\r\n")
	assert.Contains(t, got[0].Data, "plain body")
	assert.NotContains(t, got[0].Data, "bcc@example.com")
}

func TestTransport_SendMessage_WithoutTLS(t *testing.T) {
	server := startFakeServer(t)
	cfg := server.config()
	cfg.TLS = false

	err := NewTransport(cfg, nil).SendMessage(context.Background(), newTestMessage())
	require.NoError(t, err)
	assert.Len(t, server.received(), 1)
}

func TestTransport_EnvelopeFrom(t *testing.T) {
	tests := []struct {
		name    string
		message *mail.Message
		cfgFrom string
		want    string
	}{
		{
			name:    "return path wins",
			message: newTestMessage().WithReturnPath("bounce@example.com"),
			cfgFrom: "default@example.com",
			want:    "bounce@example.com",
		},
		{
			name:    "first from address",
			message: newTestMessage(),
			cfgFrom: "default@example.com",
			want:    "sender@example.com",
		},
		{
			name:    "configured default",
			message: newTestMessage().WithFrom(),
			cfgFrom: "default@example.com",
			want:    "default@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startFakeServer(t)
			cfg := server.config()
			cfg.From = tt.cfgFrom

			err := NewTransport(cfg, nil).SendMessage(context.Background(), tt.message)
			require.NoError(t, err)

			got := server.received()
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].From)
		})
	}
}

func TestTransport_NoSender(t *testing.T) {
	transport := NewTransport(Config{Host: "127.0.0.1", Port: 1}, nil)

	err := transport.SendMessage(context.Background(), newTestMessage().WithFrom())
	require.Error(t, err)
	assert.True(t, errors.Is(err, mail.ErrNoSender))
}

func TestTransport_NoRecipients(t *testing.T) {
	transport := NewTransport(Config{Host: "127.0.0.1", Port: 1}, nil)
	message := newTestMessage().WithTo().WithCc().WithBcc()

	err := transport.SendMessage(context.Background(), message)
	require.Error(t, err)
	assert.True(t, errors.Is(err, mail.ErrNoRecipients))
}

func TestTransport_BccOnly(t *testing.T) {
	server := startFakeServer(t)
	message := newTestMessage().WithTo().WithCc()

	err := NewTransport(server.config(), nil).SendMessage(context.Background(), message)
	require.NoError(t, err)

	got := server.received()
	require.Len(t, got, 1)
	assert.Equal(t, []string{"bcc@example.com"}, got[0].To)
}

func TestTransport_Closed(t *testing.T) {
	server := startFakeServer(t)
	transport := NewTransport(server.config(), nil)
	require.NoError(t, transport.Close())

	err := transport.SendMessage(context.Background(), newTestMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
	assert.Empty(t, server.received())
}

func TestTransport_AuthNotSupported(t *testing.T) {
	server := startFakeServer(t)
	cfg := server.config()
	cfg.Username = "user"
	cfg.Password = "secret"

	err := NewTransport(cfg, nil).SendMessage(context.Background(), newTestMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to authenticate")
	assert.Empty(t, server.received())
}

func TestTransport_ConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	transport := NewTransport(Config{Host: "127.0.0.1", Port: port, TLS: true}, nil)

	err = transport.SendMessage(context.Background(), newTestMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestTransport_CanceledContext(t *testing.T) {
	for _, useTLS := range []bool{true, false} {
		t.Run(fmt.Sprintf("tls=%v", useTLS), func(t *testing.T) {
			server := startFakeServer(t)
			cfg := server.config()
			cfg.TLS = useTLS

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := NewTransport(cfg, nil).SendMessage(ctx, newTestMessage())
			require.Error(t, err)
			assert.True(t, errors.Is(err, context.Canceled))
			assert.Empty(t, server.received())
		})
	}
}

func TestTransport_CanceledDuringSession(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	// accept and stay silent so the client waits for the greeting
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-accepted:
			_ = conn.Close()
		default:
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	cfg := Config{Host: "127.0.0.1", Port: listener.Addr().(*net.TCPAddr).Port}
	done := make(chan error, 1)
	go func() {
		done <- NewTransport(cfg, nil).SendMessage(ctx, newTestMessage())
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("SendMessage did not return after cancellation")
	}
}

func TestNewMailer(t *testing.T) {
	server := startFakeServer(t)
	fixed := time.Date(2024, 1, 31, 15, 45, 1, 0, time.UTC)

	mailer := NewMailer(server.config(), &TransportOptions{Now: func() time.Time { return fixed }}, &mail.PipelineOptions{
		Settings: &mail.MessageSettings{
			Subject: mail.String("Default subject"),
			From:    mail.Addresses("noreply@example.com"),
		},
	})
	defer func() { require.NoError(t, mailer.Close()) }()

	message := mail.NewMessage().WithTo(mail.Addresses("to@example.com")...).WithTextBody("hi")
	require.NoError(t, mailer.Send(context.Background(), message))

	got := server.received()
	require.Len(t, got, 1)
	assert.Equal(t, "noreply@example.com", got[0].From)
	assert.Contains(t, got[0].Data, "Subject: Default subject\r\n")
	assert.Contains(t, got[0].Data, "Date: Wed, 31 Jan 2024 15:45:01 +0000\r\n")
}
