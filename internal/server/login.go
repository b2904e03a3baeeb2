package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/shared"
	"golang.org/x/oauth2"
)

const DefaultLoginTimeout = 2 * time.Minute

// Authorizer builds the consent URL and exchanges the returned code.
type Authorizer interface {
	Exchanger
	GetAuthURL(state string) string
}

// LoginFlowOpts configures a [LoginFlow]. Auth and Addr are required.
type LoginFlowOpts struct {
	Auth        Authorizer
	Addr        string
	Timeout     time.Duration
	OpenBrowser func(url string) error
	Out         io.Writer
	Logger      *log.Logger
}

// LoginFlow runs the browser side of the authorization code flow: it serves the redirect URI on
// a temporary listener, opens the consent page and waits for the callback.
type LoginFlow struct {
	auth        Authorizer
	addr        string
	timeout     time.Duration
	openBrowser func(string) error
	out         io.Writer
	logger      *log.Logger

	listener net.Listener
}

func NewLoginFlow(opts LoginFlowOpts) *LoginFlow {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLoginTimeout
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &LoginFlow{
		auth:        opts.Auth,
		addr:        opts.Addr,
		timeout:     opts.Timeout,
		openBrowser: opts.OpenBrowser,
		out:         opts.Out,
		logger:      opts.Logger,
	}
}

// CallbackURL is the redirect URI served while [LoginFlow.Run] is waiting.
func (f *LoginFlow) CallbackURL() string {
	addr := f.addr
	if f.listener != nil {
		addr = f.listener.Addr().String()
	}
	return "http://" + addr + "/callback"
}

// Run performs one login and returns the exchanged token. The listener is closed before Run returns.
func (f *LoginFlow) Run(ctx context.Context) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := NewOAuthHandler(f.auth, state, f.logger)
	router := NewBasicRouter()
	router.Use(Recoverer(f.logger), RequestLogger(f.logger))
	router.Handler(handler)

	listener, err := net.Listen("tcp", f.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot listen on %s: %v", shared.ErrAuthFailed, f.addr, err)
	}
	f.listener = listener

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		f.logger.Info("oauth callback server listening", "addr", listener.Addr().String())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer f.shutdown(httpServer)

	authURL := f.auth.GetAuthURL(state)
	fmt.Fprintln(f.out, "→ Opening browser for Spotify authorization...")
	if err := f.openBrowser(authURL); err != nil {
		f.logger.Warn("failed to open browser", "error", err)
		fmt.Fprintf(f.out, "⚠ Could not open browser automatically.\nOpen this URL to continue:\n%s\n\n", authURL)
	}
	fmt.Fprintf(f.out, "→ Waiting for authorization (%s timeout)...\n", f.timeout)

	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	var result OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("%w: callback server: %v", shared.ErrAuthFailed, err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, f.timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := result.Error(); err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

func (f *LoginFlow) shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		f.logger.Warn("error shutting down callback server", "error", err)
	}
}
