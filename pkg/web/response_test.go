package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/bmertz/webgrant/pkg/weberr"
)

func TestResponseStartsAtOK(t *testing.T) {
	resp := NewResponse()
	if resp.Status() != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.Status())
	}
	if len(resp.Header()) != 0 {
		t.Errorf("headers = %v, want empty", resp.Header())
	}
	if _, ok := resp.Body(); ok {
		t.Error("body set on fresh response")
	}
}

func TestResponseRedirect(t *testing.T) {
	resp := NewResponse()
	u, _ := url.Parse("https://a/cb")

	if err := resp.Redirect(u); err != nil {
		t.Fatalf("Redirect failed: %v", err)
	}
	if resp.Status() != http.StatusFound {
		t.Errorf("status = %d, want 302", resp.Status())
	}
	if got := resp.Header().Get("Location"); got != "https://a/cb" {
		t.Errorf("Location = %q, want %q", got, "https://a/cb")
	}
}

func TestResponseRedirectInvalidValue(t *testing.T) {
	resp := NewResponse()
	u := &url.URL{Scheme: "https", Host: "a", Path: "/cb", Fragment: "x\x00y"}

	err := resp.Redirect(u)
	if err == nil {
		t.Fatal("Redirect succeeded with control character, want error")
	}
	if got := weberr.KindOf(err); got != weberr.KindHeader {
		t.Errorf("error kind = %q, want %q", got, weberr.KindHeader)
	}
	// Failed action leaves the response unchanged.
	if resp.Status() != http.StatusOK {
		t.Errorf("status = %d after failed redirect, want 200", resp.Status())
	}
	if got := resp.Header().Get("Location"); got != "" {
		t.Errorf("Location = %q after failed redirect, want unset", got)
	}
}

func TestResponseUnauthorized(t *testing.T) {
	resp := NewResponse()
	if err := resp.Unauthorized("Bearer"); err != nil {
		t.Fatalf("Unauthorized failed: %v", err)
	}
	if resp.Status() != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.Status())
	}
	if got := resp.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want %q", got, "Bearer")
	}
}

func TestResponseUnauthorizedInvalidKind(t *testing.T) {
	resp := NewResponse()
	if err := resp.Unauthorized("Bea\x01rer"); weberr.KindOf(err) != weberr.KindHeader {
		t.Errorf("error kind = %q, want %q", weberr.KindOf(err), weberr.KindHeader)
	}
	if resp.Status() != http.StatusOK {
		t.Errorf("status = %d after failed action, want 200", resp.Status())
	}
}

func TestResponseClientErrorAndOk(t *testing.T) {
	resp := NewResponse()
	if err := resp.ClientError(); err != nil {
		t.Fatalf("ClientError failed: %v", err)
	}
	if resp.Status() != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.Status())
	}
	if err := resp.Ok(); err != nil {
		t.Fatalf("Ok failed: %v", err)
	}
	if resp.Status() != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.Status())
	}
}

func TestResponseBodyOverwrite(t *testing.T) {
	resp := NewResponse()

	if err := resp.BodyJSON("{}"); err != nil {
		t.Fatalf("BodyJSON failed: %v", err)
	}
	if got := resp.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if body, _ := resp.Body(); body != "{}" {
		t.Errorf("body = %q, want {}", body)
	}

	// A later body action overwrites both body and Content-Type.
	if err := resp.BodyText("x"); err != nil {
		t.Fatalf("BodyText failed: %v", err)
	}
	if got := resp.Header().Get("Content-Type"); got != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", got)
	}
	if body, _ := resp.Body(); body != "x" {
		t.Errorf("body = %q, want x", body)
	}
}

func TestResponseRetainsOtherHeaders(t *testing.T) {
	resp := NewResponse()
	if err := resp.Unauthorized("Bearer"); err != nil {
		t.Fatalf("Unauthorized failed: %v", err)
	}
	if err := resp.BodyText("denied"); err != nil {
		t.Fatalf("BodyText failed: %v", err)
	}

	if got := resp.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q after body action, want retained", got)
	}
	if resp.Status() != http.StatusUnauthorized {
		t.Errorf("status = %d after body action, want 401", resp.Status())
	}
}

func TestResponseWriteTo(t *testing.T) {
	resp := NewResponse()
	u, _ := url.Parse("https://client.example/cb?code=abc")
	if err := resp.Redirect(u); err != nil {
		t.Fatalf("Redirect failed: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := resp.WriteTo(rec); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	if rec.Code != http.StatusFound {
		t.Errorf("written status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://client.example/cb?code=abc" {
		t.Errorf("written Location = %q", got)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("written body = %q, want empty", rec.Body.String())
	}
}

func TestResponseWriteToWithBody(t *testing.T) {
	resp := NewResponse()
	if err := resp.BodyJSON(`{"access_token":"tok"}`); err != nil {
		t.Fatalf("BodyJSON failed: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := resp.WriteTo(rec); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("written status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != `{"access_token":"tok"}` {
		t.Errorf("written body = %q", got)
	}
}
