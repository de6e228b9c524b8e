package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listFailingStore struct{ MemoryStore }

func (*listFailingStore) List(context.Context) ([]Entry, error) {
	return nil, errors.New("store unavailable")
}

func newTestServer(t *testing.T, c *Collector, options *HandlerOptions) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewHandler(c, options))
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHandler_ListAndSummary(t *testing.T) {
	c := New(nil, nil)
	require.NoError(t, c.Collect(context.Background(), newTestMessage(), newTestMessage().WithSubject("Second")))
	ts := newTestServer(t, c, nil)

	resp := do(t, http.MethodGet, ts.URL+"/messages")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var entries []Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Second", entries[1].Subject)

	resp = do(t, http.MethodGet, ts.URL+"/summary")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, Summary{Total: 2, Recipients: 2}, summary)
}

func TestHandler_Entry(t *testing.T) {
	c := New(nil, nil)
	require.NoError(t, c.Collect(context.Background(), newTestMessage()))
	ts := newTestServer(t, c, nil)

	resp := do(t, http.MethodGet, ts.URL+"/messages/0")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entry Entry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entry))
	assert.Equal(t, "Test subject", entry.Subject)

	resp = do(t, http.MethodGet, ts.URL+"/messages/0/raw")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/messages/1").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/messages/first").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/messages/-1").StatusCode)
}

func TestHandler_Reset(t *testing.T) {
	c := New(nil, nil)
	require.NoError(t, c.Collect(context.Background(), newTestMessage()))
	ts := newTestServer(t, c, nil)

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, ts.URL+"/messages").StatusCode)

	entries, err := c.Collected(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandler_Routing(t *testing.T) {
	ts := newTestServer(t, New(nil, nil), nil)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, ts.URL+"/unknown").StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, http.MethodPost, ts.URL+"/messages").StatusCode)
}

func TestHandler_StoreError(t *testing.T) {
	ts := newTestServer(t, New(&listFailingStore{}, nil), nil)

	resp := do(t, http.MethodGet, ts.URL+"/messages")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "internal server error", body.Message)

	assert.Equal(t, http.StatusInternalServerError, do(t, http.MethodGet, ts.URL+"/summary").StatusCode)
	assert.Equal(t, http.StatusInternalServerError, do(t, http.MethodGet, ts.URL+"/messages/0").StatusCode)
}

func TestHandler_CORS(t *testing.T) {
	ts := newTestServer(t, New(nil, nil), &HandlerOptions{AllowedOrigins: []string{"http://panel.local"}})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/summary", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://panel.local")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://panel.local", resp.Header.Get("Access-Control-Allow-Origin"))
}
