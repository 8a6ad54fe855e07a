package operation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/bmertz/webgrant/pkg/endpoint"
	"github.com/bmertz/webgrant/pkg/web"
	"github.com/bmertz/webgrant/pkg/weberr"
)

// stubEndpoint routes each flow to an optional func field; unset flows
// respond 200 OK.
type stubEndpoint struct {
	authorize func(ctx context.Context, req endpoint.Request, resp endpoint.Response) error
	token     func(ctx context.Context, req endpoint.Request, resp endpoint.Response) error
	refresh   func(ctx context.Context, req endpoint.Request, resp endpoint.Response) error
	resource  func(ctx context.Context, req endpoint.Request, resp endpoint.Response) (*endpoint.Grant, error)
}

func (s *stubEndpoint) Authorize(ctx context.Context, req endpoint.Request, resp endpoint.Response) error {
	if s.authorize != nil {
		return s.authorize(ctx, req, resp)
	}
	return resp.Ok()
}

func (s *stubEndpoint) Token(ctx context.Context, req endpoint.Request, resp endpoint.Response) error {
	if s.token != nil {
		return s.token(ctx, req, resp)
	}
	return resp.Ok()
}

func (s *stubEndpoint) Refresh(ctx context.Context, req endpoint.Request, resp endpoint.Response) error {
	if s.refresh != nil {
		return s.refresh(ctx, req, resp)
	}
	return resp.Ok()
}

func (s *stubEndpoint) Resource(ctx context.Context, req endpoint.Request, resp endpoint.Response) (*endpoint.Grant, error) {
	if s.resource != nil {
		return s.resource(ctx, req, resp)
	}
	return &endpoint.Grant{Subject: "stub"}, nil
}

func newWebRequest(t *testing.T, target string) *web.Request {
	t.Helper()
	req, err := web.NewRequest(httptest.NewRequest("GET", target, nil))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	return req
}

func TestAuthorizeRunRedirects(t *testing.T) {
	eng := &stubEndpoint{
		authorize: func(ctx context.Context, req endpoint.Request, resp endpoint.Response) error {
			q, err := req.Query()
			if err != nil {
				return err
			}
			u, _ := url.Parse("https://client.example/cb?code=" + q.Get("code"))
			return resp.Redirect(u)
		},
	}

	op := NewAuthorize(newWebRequest(t, "/authorize?code=abc&state=xyz"))
	result, err := op.Run(context.Background(), eng)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Response.Status() != http.StatusFound {
		t.Errorf("status = %d, want 302", result.Response.Status())
	}
	if got := result.Response.Header().Get("Location"); got != "https://client.example/cb?code=abc" {
		t.Errorf("Location = %q", got)
	}
}

func TestRunConvertsEngineErrors(t *testing.T) {
	eng := &stubEndpoint{
		token: func(ctx context.Context, req endpoint.Request, resp endpoint.Response) error {
			return endpoint.NewInvalidRequest("unsupported grant_type")
		},
	}

	op := NewToken(newWebRequest(t, "/token"))
	_, err := op.Run(context.Background(), eng)
	if err == nil {
		t.Fatal("Run succeeded, want protocol error")
	}
	if got := weberr.KindOf(err); got != weberr.KindEndpoint {
		t.Errorf("error kind = %q, want %q", got, weberr.KindEndpoint)
	}
}

func TestRunConsumesOperation(t *testing.T) {
	ops := []Operation{
		NewAuthorize(newWebRequest(t, "/authorize")),
		NewToken(newWebRequest(t, "/token")),
		NewRefresh(newWebRequest(t, "/refresh")),
		NewResource(newWebRequest(t, "/protected")),
	}

	for _, op := range ops {
		t.Run(op.Name(), func(t *testing.T) {
			eng := &stubEndpoint{}
			if _, err := op.Run(context.Background(), eng); err != nil {
				t.Fatalf("first Run failed: %v", err)
			}

			defer func() {
				if recover() == nil {
					t.Error("second Run did not panic")
				}
			}()
			op.Run(context.Background(), eng)
		})
	}
}

func TestResourceDenialCarriesChallenge(t *testing.T) {
	eng := &stubEndpoint{
		resource: func(ctx context.Context, req endpoint.Request, resp endpoint.Response) (*endpoint.Grant, error) {
			if err := resp.Unauthorized("Bearer"); err != nil {
				return nil, err
			}
			return nil, endpoint.NewDenySilently()
		},
	}

	op := NewResource(newWebRequest(t, "/protected"))
	result, err := op.Run(context.Background(), eng)
	if err == nil {
		t.Fatal("Run succeeded, want denial")
	}
	if result == nil || result.Response == nil {
		t.Fatal("denial result carries no challenge response")
	}
	if result.Response.Status() != http.StatusUnauthorized {
		t.Errorf("challenge status = %d, want 401", result.Response.Status())
	}
	if got := result.Response.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want Bearer", got)
	}
}

func TestResourceGrant(t *testing.T) {
	eng := &stubEndpoint{
		resource: func(ctx context.Context, req endpoint.Request, resp endpoint.Response) (*endpoint.Grant, error) {
			return &endpoint.Grant{Subject: "alice", ClientID: "app"}, nil
		},
	}

	op := NewResource(newWebRequest(t, "/protected"))
	result, err := op.Run(context.Background(), eng)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Grant == nil || result.Grant.Subject != "alice" {
		t.Errorf("grant = %+v, want subject alice", result.Grant)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	eng := &stubEndpoint{
		authorize: func(ctx context.Context, req endpoint.Request, resp endpoint.Response) error {
			u, _ := url.Parse("https://a/cb")
			return resp.Redirect(u)
		},
	}

	op := NewAuthorize(newWebRequest(t, "/authorize"))
	unwrapped := Wrap(op).Unwrap()

	if unwrapped != Operation(op) {
		t.Fatal("Unwrap returned a different operation value")
	}

	result, err := unwrapped.Run(context.Background(), eng)
	if err != nil {
		t.Fatalf("Run after unwrap failed: %v", err)
	}
	if result.Response.Status() != http.StatusFound {
		t.Errorf("status = %d, want 302", result.Response.Status())
	}
}
