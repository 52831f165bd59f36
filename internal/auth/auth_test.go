package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/inoreader-mcp/internal/config"
	"github.com/teemow/inoreader-mcp/internal/instrumentation"
	"github.com/teemow/inoreader-mcp/internal/secrets"
)

// tokenServer fakes the OAuth token endpoint.
type tokenServer struct {
	*httptest.Server
	calls atomic.Int32

	mu       sync.Mutex
	lastForm url.Values
	respond  func(w http.ResponseWriter, form url.Values)
}

func newTokenServer(t *testing.T, respond func(w http.ResponseWriter, form url.Values)) *tokenServer {
	t.Helper()

	ts := &tokenServer{respond: respond}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" {
			http.NotFound(w, r)
			return
		}
		assert.NoError(t, r.ParseForm())
		ts.calls.Add(1)
		ts.mu.Lock()
		ts.lastForm = r.PostForm
		ts.mu.Unlock()
		ts.respond(w, r.PostForm)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) form() url.Values {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.lastForm
}

func jsonToken(body map[string]any) func(http.ResponseWriter, url.Values) {
	return func(w http.ResponseWriter, _ url.Values) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}
}

func testConfig(oauthBase string) *config.Config {
	cfg := config.Default()
	cfg.OAuthBaseURL = oauthBase + "/oauth2"
	cfg.ClientID = "client-id"
	cfg.ClientSecret = "client-secret"
	cfg.RedirectPort = 0
	return cfg
}

func TestOAuthConfig(t *testing.T) {
	cfg := config.Default()
	cfg.OAuthBaseURL = "https://auth.example.com/oauth2/"
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	cfg.RedirectPort = 9000

	conf := OAuthConfig(cfg)
	assert.Equal(t, "https://auth.example.com/oauth2/auth", conf.Endpoint.AuthURL)
	assert.Equal(t, "https://auth.example.com/oauth2/token", conf.Endpoint.TokenURL)
	assert.Equal(t, "http://localhost:9000/oauth/callback", conf.RedirectURL)
	assert.Equal(t, []string{"read", "write"}, conf.Scopes)

	authURL, err := url.Parse(conf.AuthCodeURL("xyz"))
	require.NoError(t, err)
	assert.Equal(t, "read write", authURL.Query().Get("scope"))
	assert.Equal(t, "xyz", authURL.Query().Get("state"))
}

func TestRefresher_CarriesRefreshTokenForward(t *testing.T) {
	server := newTokenServer(t, jsonToken(map[string]any{
		"access_token": "A2",
		"token_type":   "Bearer",
		"expires_in":   3600,
	}))

	store := secrets.NewMemoryStore()
	oldExpiry := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	require.NoError(t, store.Save(&secrets.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresAt: oldExpiry}))

	refresher := NewRefresher(OAuthConfig(testConfig(server.URL)), store)
	token, err := refresher.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A2", token)

	form := server.form()
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "R", form.Get("refresh_token"))
	assert.Equal(t, "client-id", form.Get("client_id"))
	assert.Equal(t, "client-secret", form.Get("client_secret"))

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "A2", stored.AccessToken)
	assert.Equal(t, "R", stored.RefreshToken, "refresh token must be carried forward")
	assert.WithinDuration(t, time.Now().Add(time.Hour), stored.ExpiresAt, time.Minute)
}

func TestRefresher_ReplacesRefreshToken(t *testing.T) {
	server := newTokenServer(t, jsonToken(map[string]any{
		"access_token":  "A2",
		"refresh_token": "R2",
		"token_type":    "Bearer",
	}))

	store := secrets.NewMemoryStore()
	require.NoError(t, store.Save(&secrets.TokenPair{AccessToken: "A", RefreshToken: "R"}))

	_, err := NewRefresher(OAuthConfig(testConfig(server.URL)), store).Refresh(context.Background())
	require.NoError(t, err)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "R2", stored.RefreshToken)
	assert.True(t, stored.ExpiresAt.IsZero(), "no expires_in means unknown expiry")
}

func TestRefresher_Failures(t *testing.T) {
	tests := []struct {
		name        string
		stored      *secrets.TokenPair
		respond     func(http.ResponseWriter, url.Values)
		noClientID  bool
		expectCalls int32
	}{
		{
			name:    "no stored token",
			respond: jsonToken(map[string]any{"access_token": "x"}),
		},
		{
			name:    "no refresh token",
			stored:  &secrets.TokenPair{AccessToken: "A"},
			respond: jsonToken(map[string]any{"access_token": "x"}),
		},
		{
			name:       "no client credentials",
			stored:     &secrets.TokenPair{AccessToken: "A", RefreshToken: "R"},
			respond:    jsonToken(map[string]any{"access_token": "x"}),
			noClientID: true,
		},
		{
			name:   "upstream rejects grant",
			stored: &secrets.TokenPair{AccessToken: "A", RefreshToken: "R"},
			respond: func(w http.ResponseWriter, _ url.Values) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
			},
			expectCalls: 1,
		},
		{
			name:        "response without access token",
			stored:      &secrets.TokenPair{AccessToken: "A", RefreshToken: "R"},
			respond:     jsonToken(map[string]any{"token_type": "Bearer"}),
			expectCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTokenServer(t, tt.respond)
			store := secrets.NewMemoryStore()
			if tt.stored != nil {
				require.NoError(t, store.Save(tt.stored))
			}

			cfg := testConfig(server.URL)
			if tt.noClientID {
				cfg.ClientID = ""
			}

			_, err := NewRefresher(OAuthConfig(cfg), store).Refresh(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRefreshFailed)
			assert.Equal(t, tt.expectCalls, server.calls.Load())

			if tt.stored != nil {
				stored, loadErr := store.Load()
				require.NoError(t, loadErr)
				assert.Equal(t, tt.stored.AccessToken, stored.AccessToken, "failed refresh must not touch the store")
			}
		})
	}
}

func TestRefresher_CoalescesConcurrentCalls(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	server := newTokenServer(t, func(w http.ResponseWriter, _ url.Values) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"A2","token_type":"Bearer","expires_in":3600}`)
	})

	store := secrets.NewMemoryStore()
	require.NoError(t, store.Save(&secrets.TokenPair{AccessToken: "A", RefreshToken: "R"}))
	refresher := NewRefresher(OAuthConfig(testConfig(server.URL)), store)

	const callers = 5
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		tokens[0], errs[0] = refresher.Refresh(context.Background())
	}()
	<-entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = refresher.Refresh(context.Background())
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), server.calls.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "A2", tokens[i])
	}
}

func TestRefresher_CancelledCallerDoesNotFailSharedRefresh(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	server := newTokenServer(t, func(w http.ResponseWriter, _ url.Values) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"A2","token_type":"Bearer","expires_in":3600}`)
	})

	store := secrets.NewMemoryStore()
	require.NoError(t, store.Save(&secrets.TokenPair{AccessToken: "A", RefreshToken: "R"}))
	refresher := NewRefresher(OAuthConfig(testConfig(server.URL)), store)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()
	errA := make(chan error, 1)
	go func() {
		_, err := refresher.Refresh(ctxA)
		errA <- err
	}()
	<-entered

	type outcome struct {
		token string
		err   error
	}
	resultB := make(chan outcome, 1)
	go func() {
		token, err := refresher.Refresh(context.Background())
		resultB <- outcome{token, err}
	}()
	time.Sleep(100 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, ErrRefreshFailed)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting on the shared refresh")
	}

	close(release)
	b := <-resultB
	require.NoError(t, b.err)
	assert.Equal(t, "A2", b.token)
	assert.Equal(t, int32(1), server.calls.Load())

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "A2", stored.AccessToken)
}

func TestTokenProvider_AccessToken(t *testing.T) {
	t.Run("environment override", func(t *testing.T) {
		t.Setenv(EnvAccessToken, "env-token")
		provider := NewTokenProvider(testConfig("http://unused"), secrets.NewMemoryStore())

		token, err := provider.AccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "env-token", token)
	})

	t.Run("not authenticated", func(t *testing.T) {
		t.Setenv(EnvAccessToken, "")
		provider := NewTokenProvider(testConfig("http://unused"), secrets.NewMemoryStore())

		_, err := provider.AccessToken(context.Background())
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("stored token far from expiry", func(t *testing.T) {
		t.Setenv(EnvAccessToken, "")
		server := newTokenServer(t, jsonToken(map[string]any{"access_token": "unexpected"}))
		store := secrets.NewMemoryStore()
		require.NoError(t, store.Save(&secrets.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresAt: time.Now().Add(time.Hour)}))

		token, err := NewTokenProvider(testConfig(server.URL), store).AccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "A", token)
		assert.Zero(t, server.calls.Load())
	})

	t.Run("stored token inside refresh buffer", func(t *testing.T) {
		t.Setenv(EnvAccessToken, "")
		server := newTokenServer(t, jsonToken(map[string]any{"access_token": "A2", "token_type": "Bearer", "expires_in": 3600}))
		store := secrets.NewMemoryStore()
		require.NoError(t, store.Save(&secrets.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresAt: time.Now().Add(2 * time.Minute)}))

		token, err := NewTokenProvider(testConfig(server.URL), store).AccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "A2", token)
		assert.Equal(t, int32(1), server.calls.Load())
	})

	t.Run("refresh failure is reported", func(t *testing.T) {
		t.Setenv(EnvAccessToken, "")
		store := secrets.NewMemoryStore()
		require.NoError(t, store.Save(&secrets.TokenPair{AccessToken: "A", ExpiresAt: time.Now().Add(-time.Minute)}))

		_, err := NewTokenProvider(testConfig("http://unused"), store).AccessToken(context.Background())
		assert.ErrorIs(t, err, ErrRefreshFailed)
	})
}

func TestTokenProvider_StatusAndLogout(t *testing.T) {
	t.Setenv(EnvAccessToken, "")
	store := secrets.NewMemoryStore()
	provider := NewTokenProvider(testConfig("http://unused"), store)

	st, err := provider.Status()
	require.NoError(t, err)
	assert.False(t, st.Authenticated())
	assert.Equal(t, "memory", st.Backend)

	expiry := time.Now().Add(-time.Minute)
	require.NoError(t, store.Save(&secrets.TokenPair{AccessToken: "A", RefreshToken: "R", ExpiresAt: expiry}))

	st, err = provider.Status()
	require.NoError(t, err)
	assert.True(t, st.Authenticated())
	assert.Equal(t, SourceStore, st.Source)
	assert.True(t, st.HasRefreshToken)
	assert.True(t, st.Expired())

	require.NoError(t, provider.Logout())
	require.NoError(t, provider.Logout(), "logout without a stored token succeeds")

	st, err = provider.Status()
	require.NoError(t, err)
	assert.False(t, st.Authenticated())

	t.Setenv(EnvAccessToken, "env-token")
	st, err = provider.Status()
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, st.Source)
}

// fakeBrowser follows the authorization URL the way a user would, landing on
// the local callback with the given code.
func fakeBrowser(t *testing.T, code string, tamperState bool) func(string) error {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		require.NoError(t, err)

		redirect, err := url.Parse(u.Query().Get("redirect_uri"))
		require.NoError(t, err)
		redirect.Host = strings.Replace(redirect.Host, "localhost", "127.0.0.1", 1)

		state := u.Query().Get("state")
		if tamperState {
			state = "forged"
		}
		q := url.Values{"code": {code}, "state": {state}}
		redirect.RawQuery = q.Encode()

		resp, err := http.Get(redirect.String())
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		return nil
	}
}

func TestLogin_Success(t *testing.T) {
	server := newTokenServer(t, jsonToken(map[string]any{
		"access_token":  "A",
		"refresh_token": "R",
		"token_type":    "Bearer",
		"expires_in":    3600,
	}))
	store := secrets.NewMemoryStore()
	provider := NewTokenProvider(testConfig(server.URL), store)

	err := provider.Login(context.Background(), LoginOptions{
		Output:      io.Discard,
		OpenBrowser: fakeBrowser(t, "the-code", false),
	})
	require.NoError(t, err)

	form := server.form()
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "the-code", form.Get("code"))
	assert.Contains(t, form.Get("redirect_uri"), CallbackPath)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "A", stored.AccessToken)
	assert.Equal(t, "R", stored.RefreshToken)
}

func TestLogin_StateMismatch(t *testing.T) {
	server := newTokenServer(t, jsonToken(map[string]any{"access_token": "A"}))
	store := secrets.NewMemoryStore()

	err := NewTokenProvider(testConfig(server.URL), store).Login(context.Background(), LoginOptions{
		Output:      io.Discard,
		OpenBrowser: fakeBrowser(t, "the-code", true),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state mismatch")
	assert.Zero(t, server.calls.Load())

	_, err = store.Load()
	assert.ErrorIs(t, err, secrets.ErrNotFound)
}

func TestLogin_Timeout(t *testing.T) {
	var printed strings.Builder
	err := NewTokenProvider(testConfig("http://unused"), secrets.NewMemoryStore()).Login(context.Background(), LoginOptions{
		NoBrowser: true,
		Timeout:   50 * time.Millisecond,
		Output:    &printed,
		OpenBrowser: func(string) error {
			return errors.New("must not be called")
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Contains(t, printed.String(), "/oauth2/auth?")
}

// loginResults collects oauth_login_total by result label.
func loginResults(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	results := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "oauth_login_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, p := range sum.DataPoints {
				v, _ := p.Attributes.Value("result")
				results[v.AsString()] += p.Value
			}
		}
	}
	return results
}

func TestLogin_RecordsOutcome(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)

	server := newTokenServer(t, jsonToken(map[string]any{"access_token": "A", "refresh_token": "R"}))
	provider := NewTokenProvider(testConfig(server.URL), secrets.NewMemoryStore(), WithMetrics(metrics))

	require.NoError(t, provider.Login(context.Background(), LoginOptions{
		Output:      io.Discard,
		OpenBrowser: fakeBrowser(t, "the-code", false),
	}))

	err = provider.Login(context.Background(), LoginOptions{
		NoBrowser: true,
		Timeout:   50 * time.Millisecond,
		Output:    io.Discard,
	})
	require.Error(t, err)

	assert.Equal(t, map[string]int64{
		instrumentation.LoginResultSuccess: 1,
		instrumentation.LoginResultFailure: 1,
	}, loginResults(t, reader))
}

func TestLogin_MissingClientCredentials(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.ClientSecret = ""

	err := NewTokenProvider(cfg, secrets.NewMemoryStore()).Login(context.Background(), LoginOptions{Output: io.Discard})
	assert.ErrorIs(t, err, ErrMissingClientCredentials)
}
