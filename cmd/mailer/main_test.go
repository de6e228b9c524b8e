package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pure-golang/mailer/mail"
)

func run(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func setFileProvider(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LOG_PROVIDER", "noop")
	t.Setenv("MAIL_PROVIDER", "file")
	t.Setenv("MAIL_FILE_PATH", dir)
	t.Setenv("MAIL_COLLECTOR", "")
	t.Setenv("TRACING_ENDPOINT", "")
	return dir
}

func readSingleFile(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	return string(data)
}

func TestSend(t *testing.T) {
	dir := setFileProvider(t)
	attachment := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(attachment, []byte("numbers"), 0o600))

	out, err := run(t, context.Background(), "send",
		"--from", "App <app@example.com>",
		"--to", "ops@example.com,dev@example.com",
		"--bcc", "audit@example.com",
		"--subject", "Disk full",
		"--text", "/var is at 98%",
		"--priority", "1",
		"--header", "X-Job: cleanup",
		"--attach", attachment,
	)
	require.NoError(t, err)
	assert.Equal(t, "sent to 3 recipient(s)\n", out)

	assert.Equal(t, "X-Job: cleanup\n/var is at 98%", readSingleFile(t, dir))
}

func TestSend_View(t *testing.T) {
	dir := setFileProvider(t)
	views := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(views, "welcome.tmpl"), []byte("<p>Hello {{.name}}</p>"), 0o600))

	_, err := run(t, context.Background(), "send",
		"--to", "ann@example.com",
		"--view-path", views,
		"--html-view", "welcome",
		"--param", "name=Ann",
	)
	require.NoError(t, err)
	assert.Contains(t, readSingleFile(t, dir), "Hello Ann")
}

func TestSend_InvalidInput(t *testing.T) {
	setFileProvider(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad priority", []string{"--to", "a@example.com", "--priority", "7"}, "invalid priority 7"},
		{"bad header", []string{"--to", "a@example.com", "--header", "no colon"}, `invalid header "no colon"`},
		{"missing attachment", []string{"--to", "a@example.com", "--attach", "/does/not/exist"}, "failed to attach"},
		{"bad address", []string{"--to", "not an address"}, "--to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, context.Background(), append([]string{"send"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSendOptions_Message(t *testing.T) {
	attachment := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(attachment, []byte("numbers"), 0o600))

	o := &sendOptions{
		to:          []string{"Ann <ann@example.com>"},
		replyTo:     []string{"help@example.com"},
		subject:     "Report",
		html:        "<p>see attached</p>",
		priority:    2,
		attachments: []string{attachment},
	}
	message, err := o.message(nil)
	require.NoError(t, err)

	assert.Equal(t, []mail.Address{{Address: "ann@example.com", Name: "Ann"}}, message.To())
	assert.Equal(t, []mail.Address{{Address: "help@example.com"}}, message.ReplyTo())
	subject, _ := message.Subject()
	assert.Equal(t, "Report", subject)
	priority, ok := message.Priority()
	require.True(t, ok)
	assert.Equal(t, mail.PriorityHigh, priority)
	require.Len(t, message.Attachments(), 1)
	name, _ := message.Attachments()[0].Name()
	assert.Equal(t, "report.txt", name)
}

func TestServe(t *testing.T) {
	t.Setenv("LOG_PROVIDER", "noop")
	t.Setenv("MAIL_COLLECTOR", "memory")
	t.Setenv("MAIL_PANEL_HOST", "127.0.0.1")
	t.Setenv("MAIL_PANEL_PORT", "0")
	t.Setenv("METRICS_PORT", "")
	t.Setenv("TRACING_ENDPOINT", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out safeBuffer
	done := make(chan error, 1)
	go func() {
		root := newRootCmd()
		root.SetOut(&out)
		root.SetArgs([]string{"serve"})
		done <- root.ExecuteContext(ctx)
	}()

	var addr string
	require.Eventually(t, func() bool {
		line := out.String()
		if i := strings.Index(line, "http://"); i >= 0 {
			addr = strings.TrimSpace(line[i:])
			return true
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(addr + "/summary")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("serve did not stop")
	}
}
