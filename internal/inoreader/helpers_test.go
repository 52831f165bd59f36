package inoreader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

const apiPrefix = "/reader/api/0"

// recordedRequest is what the fake API saw for one request.
type recordedRequest struct {
	Method      string
	Path        string // relative to apiPrefix, escaped
	Query       url.Values
	RawBody     string
	Form        url.Values
	Auth        string
	ContentType string
}

// fakeAPI is an httptest upstream that records every request.
type fakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request, n int)
}

func newFakeAPI(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, n int)) *fakeAPI {
	t.Helper()

	api := &fakeAPI{handler: handler}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))

		api.mu.Lock()
		api.requests = append(api.requests, recordedRequest{
			Method:      r.Method,
			Path:        strings.TrimPrefix(r.URL.EscapedPath(), apiPrefix),
			Query:       r.URL.Query(),
			RawBody:     string(body),
			Form:        form,
			Auth:        r.Header.Get("Authorization"),
			ContentType: r.Header.Get("Content-Type"),
		})
		n := len(api.requests)
		api.mu.Unlock()

		api.handler(w, r, n)
	}))
	t.Cleanup(api.Close)
	return api
}

func (a *fakeAPI) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func (a *fakeAPI) request(i int) recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[i]
}

func (a *fakeAPI) last() recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests[len(a.requests)-1]
}

func (a *fakeAPI) client(token string, opts ...Option) *Client {
	return NewClient(a.URL+apiPrefix, a.URL+"/oauth2", token, opts...)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// okHandler answers JSON endpoints with body and everything else with "OK".
func okHandler(body string) func(http.ResponseWriter, *http.Request, int) {
	return func(w http.ResponseWriter, r *http.Request, _ int) {
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, body)
			return
		}
		writeText(w, http.StatusOK, "OK")
	}
}

// fakeRefresher hands out a fixed token or error and counts calls.
type fakeRefresher struct {
	token string
	err   error
	calls atomic.Int32
}

func (f *fakeRefresher) Refresh(context.Context) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}
