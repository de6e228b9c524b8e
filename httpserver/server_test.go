package httpserver

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
}

func TestNew(t *testing.T) {
	config := Config{Host: "127.0.0.1", Port: 8080}
	server := New(config, okHandler())

	require.NotNil(t, server.server)
	assert.Equal(t, "127.0.0.1:8080", server.server.Addr)
	assert.Equal(t, "127.0.0.1:8080", server.Addr())
	assert.Equal(t, 10*time.Second, server.server.ReadHeaderTimeout)
	assert.NotNil(t, server.server.ErrorLog)
	assert.Equal(t, config, server.config)
}

func TestServer_RunAndClose(t *testing.T) {
	server := New(Config{Host: "127.0.0.1", Port: 0}, okHandler())
	require.NoError(t, server.Run())

	resp, err := http.Get("http://" + server.Addr() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, "ok", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))

	require.NoError(t, server.Close())

	_, err = http.Get("http://" + server.Addr() + "/")
	assert.Error(t, err)
}

func TestServer_StartReturnsNilAfterClose(t *testing.T) {
	server := New(Config{Host: "127.0.0.1", Port: 0}, okHandler())
	require.NoError(t, server.Listen())

	done := make(chan error, 1)
	go func() { done <- server.Start() }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + server.Addr() + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, server.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Close")
	}
}

func TestServer_ListenError(t *testing.T) {
	server := New(Config{Host: "256.0.0.1", Port: 1}, okHandler())
	err := server.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestServer_CloseWithoutStart(t *testing.T) {
	server := New(Config{Host: "127.0.0.1", Port: 0}, okHandler())
	assert.NoError(t, server.Close())
}
