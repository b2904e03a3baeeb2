package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lyricsify/internal/shared"
	"golang.org/x/oauth2"
)

type stubAuthorizer struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (s *stubAuthorizer) GetAuthURL(state string) string {
	return "https://accounts.example/authorize?state=" + url.QueryEscape(state)
}

func (s *stubAuthorizer) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	s.codes = append(s.codes, code)
	return s.token, s.err
}

func TestOAuthHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		auth := &stubAuthorizer{token: &oauth2.Token{AccessToken: "access"}}
		h := NewOAuthHandler(auth, "state-1", nil)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=state-1&code=abc", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Spotify connected") {
			t.Error("expected success page")
		}

		result := <-h.Result()
		if result.Error() != nil || result.Token.AccessToken != "access" {
			t.Errorf("unexpected result %+v", result)
		}
		if len(auth.codes) != 1 || auth.codes[0] != "abc" {
			t.Errorf("expected code abc to be exchanged, got %v", auth.codes)
		}
	})

	t.Run("Replay Rejected", func(t *testing.T) {
		auth := &stubAuthorizer{token: &oauth2.Token{AccessToken: "access"}}
		h := NewOAuthHandler(auth, "s", nil)

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on replay, got %d", rec.Code)
		}
		if len(auth.codes) != 1 {
			t.Errorf("code should be exchanged once, got %d", len(auth.codes))
		}
	})

	tc := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{"Invalid State", "state=wrong&code=abc", nil, http.StatusBadRequest},
		{"Denied", "state=s&error=access_denied&error_description=nope", nil, http.StatusBadRequest},
		{"Exchange Failure", "state=s&code=abc", errors.New("invalid_grant"), http.StatusInternalServerError},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOAuthHandler(&stubAuthorizer{err: tt.err}, "s", nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil))

			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
			if result := <-h.Result(); result.Error() == nil {
				t.Error("expected an error result")
			}
		})
	}
}

func TestBasicRouter(t *testing.T) {
	t.Run("Method Filtering", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("ok"))
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Body.String() != "ok" {
			t.Errorf("expected ok, got %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("outer"), mark("inner"))
		r.Handle(http.MethodGet, "/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "outer,inner,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("RequestLogger Omits Query", func(t *testing.T) {
		var buf bytes.Buffer
		logger := shared.NewLogger(&buf)
		shared.SetLogLevel(logger, shared.ParseLogLevel("debug"))

		r := NewBasicRouter()
		r.Use(RequestLogger(logger))
		r.Handle(http.MethodGet, "/callback", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=secret", nil))

		out := buf.String()
		if !strings.Contains(out, "/callback") || !strings.Contains(out, "418") {
			t.Errorf("expected path and status in log, got %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Error("authorization code leaked into log")
		}
	})

	t.Run("Recoverer", func(t *testing.T) {
		r := NewBasicRouter()
		r.Use(Recoverer(shared.NewLogger(&bytes.Buffer{})))
		r.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestLoginFlow(t *testing.T) {
	newFlow := func(auth Authorizer, timeout time.Duration, browse func(*LoginFlow, string) error) *LoginFlow {
		var flow *LoginFlow
		flow = NewLoginFlow(LoginFlowOpts{
			Auth:        auth,
			Addr:        "127.0.0.1:0",
			Timeout:     timeout,
			OpenBrowser: func(u string) error { return browse(flow, u) },
			Logger:      shared.NewLogger(&bytes.Buffer{}),
		})
		return flow
	}

	// visit plays the user's browser: it follows the consent URL straight back to the callback.
	visit := func(code string) func(*LoginFlow, string) error {
		return func(flow *LoginFlow, authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			callback := flow.CallbackURL() + "?state=" + url.QueryEscape(u.Query().Get("state")) + "&code=" + code
			go func() {
				resp, err := http.Get(callback)
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		}
	}

	t.Run("Success", func(t *testing.T) {
		auth := &stubAuthorizer{token: &oauth2.Token{AccessToken: "access", RefreshToken: "refresh"}}
		token, err := newFlow(auth, 5*time.Second, visit("abc")).Run(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", token)
		}
	})

	t.Run("Browser Failure Prints URL", func(t *testing.T) {
		var out bytes.Buffer
		flow := NewLoginFlow(LoginFlowOpts{
			Auth:        &stubAuthorizer{},
			Addr:        "127.0.0.1:0",
			Timeout:     20 * time.Millisecond,
			OpenBrowser: func(string) error { return errors.New("no display") },
			Out:         &out,
			Logger:      shared.NewLogger(&bytes.Buffer{}),
		})

		_, err := flow.Run(context.Background())
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(out.String(), "https://accounts.example/authorize") {
			t.Errorf("expected the consent URL to be printed, got %q", out.String())
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		auth := &stubAuthorizer{err: errors.New("invalid_grant")}
		_, err := newFlow(auth, 5*time.Second, visit("abc")).Run(context.Background())
		if err == nil || !strings.Contains(err.Error(), "invalid_grant") {
			t.Errorf("expected exchange error, got %v", err)
		}
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		flow := newFlow(&stubAuthorizer{}, 5*time.Second, func(*LoginFlow, string) error {
			cancel()
			return nil
		})
		if _, err := flow.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Listen Failure", func(t *testing.T) {
		flow := NewLoginFlow(LoginFlowOpts{Auth: &stubAuthorizer{}, Addr: "256.0.0.1:99999"})
		if _, err := flow.Run(context.Background()); !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}
