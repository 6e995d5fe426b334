package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// fakeGoogle serves the token and userinfo endpoints. The token endpoint
// accepts only code "ok"; userinfo requires the bearer token it issued.
func fakeGoogle(t *testing.T, profile map[string]any) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "ok" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(profile)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *GoogleProvider {
	return NewGoogleProvider("client-id", "client-secret", "http://localhost:8080/auth/callback").
		WithEndpoints(srv.URL+"/auth", srv.URL+"/token", srv.URL+"/userinfo")
}

func TestAuthURL(t *testing.T) {
	p := NewGoogleProvider("client-id", "client-secret", "http://localhost:8080/auth/callback")

	raw := p.AuthURL("state-xyz")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthURL() is not a URL: %v", err)
	}
	if !strings.HasPrefix(raw, "https://accounts.google.com/") {
		t.Errorf("AuthURL() = %q, want Google's consent page", raw)
	}

	q := u.Query()
	checks := map[string]string{
		"state":         "state-xyz",
		"client_id":     "client-id",
		"redirect_uri":  "http://localhost:8080/auth/callback",
		"response_type": "code",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("AuthURL() %s = %q, want %q", k, got, want)
		}
	}
	if scope := q.Get("scope"); !strings.Contains(scope, "email") || !strings.Contains(scope, "openid") {
		t.Errorf("AuthURL() scope = %q", scope)
	}
}

func TestExchange(t *testing.T) {
	srv := fakeGoogle(t, map[string]any{
		"sub":            "1098",
		"email":          "ada@example.com",
		"email_verified": true,
		"name":           "Ada Lovelace",
		"picture":        "https://example.com/ada.png",
	})

	user, err := newTestProvider(srv).Exchange(context.Background(), "ok")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}

	id := user.Identity()
	if id.SubjectID != "1098" || id.Email != "ada@example.com" || id.DisplayName != "Ada Lovelace" || id.AvatarURL != "https://example.com/ada.png" {
		t.Errorf("Identity() = %+v", id)
	}
}

func TestExchange_Errors(t *testing.T) {
	t.Run("bad code", func(t *testing.T) {
		srv := fakeGoogle(t, map[string]any{"sub": "1"})
		if _, err := newTestProvider(srv).Exchange(context.Background(), "nope"); err == nil {
			t.Error("Exchange() with a rejected code should fail")
		}
	})

	t.Run("no subject", func(t *testing.T) {
		srv := fakeGoogle(t, map[string]any{"email": "x@example.com"})
		if _, err := newTestProvider(srv).Exchange(context.Background(), "ok"); err == nil {
			t.Error("Exchange() without a subject should fail")
		}
	})
}
