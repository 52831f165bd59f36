package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teemow/inoreader-mcp/internal/instrumentation"
	"github.com/teemow/inoreader-mcp/internal/logging"
)

// DefaultLoginTimeout bounds the interactive authorization flow.
const DefaultLoginTimeout = 5 * time.Minute

// LoginOptions configures the login flow.
type LoginOptions struct {
	// NoBrowser prints the authorization URL instead of opening it.
	NoBrowser bool

	// Timeout overrides DefaultLoginTimeout.
	Timeout time.Duration

	// Output receives user-facing instructions. Defaults to stderr.
	Output io.Writer

	// OpenBrowser overrides the platform browser launcher.
	OpenBrowser func(url string) error
}

type callbackResult struct {
	code string
	err  error
}

// Login runs the authorization code flow and stores the resulting pair.
//
// A listener on 127.0.0.1 receives the redirect. It is closed before Login
// returns, whether the flow succeeded, failed or timed out.
func (p *TokenProvider) Login(ctx context.Context, opts LoginOptions) (err error) {
	logger := logging.WithOperation(p.opts.logger, "login")
	metricsCtx := ctx
	defer func() {
		result := instrumentation.LoginResultSuccess
		if err != nil {
			result = instrumentation.LoginResultFailure
		}
		p.opts.metrics.RecordOAuthLogin(metricsCtx, result)
	}()

	if p.conf.ClientID == "" || p.conf.ClientSecret == "" {
		return ErrMissingClientCredentials
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLoginTimeout
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = openBrowser
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("127.0.0.1:%d", p.redirectPort))
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	defer func() { _ = listener.Close() }()

	conf := *p.conf
	conf.RedirectURL = RedirectURL(listener.Addr().(*net.TCPAddr).Port)

	state := uuid.NewString()
	authURL := conf.AuthCodeURL(state)

	code, err := waitForCallback(ctx, listener, state, authURL, opts)
	if err != nil {
		return err
	}

	tok, err := conf.Exchange(withHTTPClient(ctx, p.opts.httpClient), code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	pair, err := pairFromToken(tok, "")
	if err != nil {
		return err
	}
	if err := p.store.Save(pair); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	logger.Info("login complete", logging.Backend(p.store.Name()))
	return nil
}

func waitForCallback(ctx context.Context, listener net.Listener, expectedState, authURL string, opts LoginOptions) (string, error) {
	results := make(chan callbackResult, 1)
	deliver := func(res callbackResult) {
		select {
		case results <- res:
		default:
		}
	}

	router := chi.NewRouter()
	router.Get(CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		if errParam := query.Get("error"); errParam != "" {
			deliver(callbackResult{err: fmt.Errorf("authorization denied: %s", errParam)})
			fmt.Fprint(w, "<html><body><h1>Authentication failed</h1><p>You can close this window.</p></body></html>")
			return
		}
		if query.Get("state") != expectedState {
			deliver(callbackResult{err: errors.New("state mismatch: CSRF protection failed")})
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "<html><body><h1>Authentication failed</h1><p>State mismatch.</p></body></html>")
			return
		}
		code := query.Get("code")
		if code == "" {
			deliver(callbackResult{err: errors.New("callback did not include an authorization code")})
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "<html><body><h1>Authentication failed</h1><p>Missing code.</p></body></html>")
			return
		}

		deliver(callbackResult{code: code})
		fmt.Fprint(w, "<html><body><h1>Authentication successful!</h1><p>You can close this window.</p></body></html>")
	})

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = server.Serve(listener) }()
	defer func() { _ = server.Close() }()

	if opts.NoBrowser {
		fmt.Fprintf(opts.Output, "\nOpen this URL in your browser:\n%s\n\nWaiting for authentication...\n", authURL)
	} else if err := opts.OpenBrowser(authURL); err != nil {
		fmt.Fprintf(opts.Output, "\nCouldn't open browser automatically.\nOpen this URL in your browser:\n%s\n\nWaiting for authentication...\n", authURL)
	} else {
		fmt.Fprintf(opts.Output, "\nOpening browser for authentication...\nIf the browser doesn't open, visit: %s\n\nWaiting for authentication...\n", authURL)
	}

	select {
	case res := <-results:
		return res.code, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", errors.New("authentication timed out")
		}
		return "", ctx.Err()
	}
}

// openBrowser opens url in the default browser.
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return exec.Command(cmd, args...).Start() //nolint:gosec,noctx // G204: command is fixed per platform
}
