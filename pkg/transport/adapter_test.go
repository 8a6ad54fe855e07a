package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bmertz/webgrant/pkg/dispatch"
	"github.com/bmertz/webgrant/pkg/endpoint"
	"github.com/bmertz/webgrant/pkg/engine"
	"github.com/bmertz/webgrant/pkg/operation"
	"github.com/bmertz/webgrant/pkg/weberr"
)

// stallOp occupies a mailbox slot without doing anything.
type stallOp struct{}

func (stallOp) Run(ctx context.Context, eng endpoint.Endpoint) (*operation.Result, error) {
	return nil, nil
}

func (stallOp) Name() string { return "stall" }

var testClient = engine.Client{
	ID:          "app",
	Secret:      "hunter2",
	RedirectURI: "https://client.example/cb",
	Scopes:      []string{"read"},
}

// testPolicy is the production error mapping: client-side problems are
// 400, canceled waits 408, and an overloaded worker 503.
func testPolicy() weberr.StatusPolicy {
	policy := weberr.DefaultPolicy()
	for _, kind := range []weberr.Kind{
		weberr.KindAuthorization, weberr.KindQuery, weberr.KindBody,
		weberr.KindForm, weberr.KindEncoding, weberr.KindEndpoint,
	} {
		policy[kind] = http.StatusBadRequest
	}
	policy[weberr.KindCanceled] = http.StatusRequestTimeout
	policy[weberr.KindMailbox] = http.StatusServiceUnavailable
	return policy
}

// newTestHandler assembles a real engine, a running worker, and the
// full server handler.
func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	eng, err := engine.New(engine.Options{
		Issuer:     "https://auth.example",
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
		Clients:    []engine.Client{testClient},
		Solicitor:  engine.AllowAll("alice"),
	})
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	worker := dispatch.NewWorker(eng, 16, nil)
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	t.Cleanup(func() {
		cancel()
		worker.Close()
	})

	srv := NewServer(worker, WithPolicy(testPolicy()))
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestAuthorizeRedirects(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, httptest.NewRequest("GET", "/authorize?response_type=code&client_id=app&state=xyz", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302; body %q", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parsing Location: %v", err)
	}
	if loc.Host != "client.example" {
		t.Errorf("redirect host = %q, want client.example", loc.Host)
	}
	if loc.Query().Get("code") == "" {
		t.Error("no code in redirect")
	}
	if got := loc.Query().Get("state"); got != "xyz" {
		t.Errorf("state = %q, want xyz", got)
	}
}

func TestFullFlow(t *testing.T) {
	h := newTestHandler(t)

	// Authorize.
	rec := do(t, h, httptest.NewRequest("GET", "/authorize?response_type=code&client_id=app&state=s", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("authorize status = %d, want 302", rec.Code)
	}
	loc, _ := url.Parse(rec.Header().Get("Location"))
	code := loc.Query().Get("code")

	// Exchange the code.
	form := "grant_type=authorization_code&code=" + code
	r := httptest.NewRequest("POST", "/token", strings.NewReader(form))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.SetBasicAuth(testClient.ID, testClient.Secret)
	rec = do(t, h, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("token status = %d, want 200; body %q", rec.Code, rec.Body.String())
	}
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decoding token response: %v", err)
	}

	// Access the protected resource.
	r = httptest.NewRequest("GET", "/userinfo", nil)
	r.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	rec = do(t, h, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("userinfo status = %d, want 200; body %q", rec.Code, rec.Body.String())
	}
	var info struct {
		Subject  string `json:"sub"`
		ClientID string `json:"client_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decoding userinfo: %v", err)
	}
	if info.Subject != "alice" || info.ClientID != "app" {
		t.Errorf("userinfo = %+v, want alice/app", info)
	}

	// Rotate the refresh token.
	form = "grant_type=refresh_token&refresh_token=" + tokens.RefreshToken
	r = httptest.NewRequest("POST", "/refresh", strings.NewReader(form))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.SetBasicAuth(testClient.ID, testClient.Secret)
	rec = do(t, h, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200; body %q", rec.Code, rec.Body.String())
	}
}

func TestDuplicateAuthorizationHeader(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name   string
		method string
		target string
	}{
		{"token endpoint", "POST", "/token"},
		{"userinfo endpoint", "GET", "/userinfo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Add("Authorization", "Bearer one")
			r.Header.Add("Authorization", "Bearer two")

			rec := do(t, h, r)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), string(weberr.KindAuthorization)) {
				t.Errorf("body = %q, want authorization kind", rec.Body.String())
			}
		})
	}
}

func TestUserinfoWithoutToken(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, httptest.NewRequest("GET", "/userinfo", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want Bearer", got)
	}
}

func TestTokenWithoutForm(t *testing.T) {
	h := newTestHandler(t)

	// No form body: client auth comes from the header, but the grant
	// parameters are missing, so the body failure surfaces.
	r := httptest.NewRequest("POST", "/token", nil)
	r.SetBasicAuth(testClient.ID, testClient.Secret)
	rec := do(t, h, r)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body %q", rec.Code, rec.Body.String())
	}
}

func TestMailboxFull(t *testing.T) {
	eng, err := engine.New(engine.Options{
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
		Clients:    []engine.Client{testClient},
	})
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	// Never started: queued submissions stay in the mailbox.
	worker := dispatch.NewWorker(eng, 1, nil)
	t.Cleanup(worker.Close)

	if _, err := worker.SubmitAsync(context.Background(), stallOp{}); err != nil {
		t.Fatalf("seeding mailbox: %v", err)
	}

	srv := NewServer(worker, WithPolicy(testPolicy()))
	rec := do(t, srv.Handler(), httptest.NewRequest("GET", "/authorize?client_id=app", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503; body %q", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "ok\n" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	h := newTestHandler(t)

	r := httptest.NewRequest("GET", "/healthz", nil)
	r.Header.Set("X-Request-ID", "req-42")
	rec := do(t, h, r)

	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t)

	// Generate at least one request worth of metrics first.
	do(t, h, httptest.NewRequest("GET", "/healthz", nil))

	rec := do(t, h, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "webgrant_requests_total") {
		t.Error("metrics output missing webgrant_requests_total")
	}
}
