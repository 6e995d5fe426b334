package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/tailor/internal/auth"
	"github.com/sakif/tailor/internal/service"
)

const (
	stateCookie = "oauth_state"
	nextCookie  = "post_login_next"
)

// IdentityProvider is the part of auth.GoogleProvider the login flow uses.
// Tests substitute a fake.
type IdentityProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GoogleUser, error)
}

// AuthHandler manages the Google login flow and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin    → redirect the browser to Google's consent page
//   - HandleCallback → verify state, exchange the code, issue the session
//   - HandleLogout   → clear the session cookie
//
// Every outcome is a redirect back to the frontend, because these routes
// are reached by top-level browser navigation, not by fetch().
type AuthHandler struct {
	provider      IdentityProvider
	auth          *service.AuthService
	frontendURL   string
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. frontendURL is where the browser
// lands after login and logout, e.g. "http://127.0.0.1:5173".
func NewAuthHandler(provider IdentityProvider, authService *service.AuthService, frontendURL string, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provider:      provider,
		auth:          authService,
		frontendURL:   strings.TrimRight(frontendURL, "/"),
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleLogin redirects the user to Google.
//
// HTTP: GET /auth/login?next=/builds
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived HttpOnly cookie and into the
// authorization URL. The callback only proceeds when both match, which
// proves the flow was started from this browser.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	h.setShortCookie(w, stateCookie, state)

	if next := safeNext(r.URL.Query().Get("next")); next != "/" {
		h.setShortCookie(w, nextCookie, url.QueryEscape(next))
	}

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the login.
//
// HTTP: GET /auth/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for the Google profile
//  3. Upsert the directory row and sign a session token
//  4. Set the session cookie and redirect to FRONTEND_URL + next
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// --- Step 1: Validate CSRF state ---
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || q.Get("state") != c.Value {
		h.logger.Warn("auth callback: state mismatch")
		h.fail(w, r)
		return
	}
	h.clearCookie(w, stateCookie)

	next := "/"
	if c, err := r.Cookie(nextCookie); err == nil {
		if v, err := url.QueryUnescape(c.Value); err == nil {
			next = safeNext(v)
		}
		h.clearCookie(w, nextCookie)
	}

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: provider returned error", slog.String("error", errParam))
		h.fail(w, r)
		return
	}
	code := q.Get("code")
	if code == "" {
		h.fail(w, r)
		return
	}

	// --- Step 2: Exchange code for the profile ---
	profile, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed", slog.String("error", err.Error()))
		h.fail(w, r)
		return
	}

	// --- Step 3: Upsert user and issue the session ---
	result, err := h.auth.Login(r.Context(), profile.Identity())
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.String("subject_id", profile.Sub),
			slog.String("error", err.Error()),
		)
		h.fail(w, r)
		return
	}

	// --- Step 4: Set cookie and go back to the app ---
	auth.SetSessionCookie(w, result.Token, h.auth.SessionTTL(), h.secureCookies)
	http.Redirect(w, r, h.frontendURL+next, http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// HTTP: GET /auth/logout
//
// Sessions are stateless JWTs, so logging out only drops the cookie. The
// token itself stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	http.Redirect(w, r, h.frontendURL+"/", http.StatusSeeOther)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.frontendURL+"/login?error=oauth", http.StatusSeeOther)
}

func (h *AuthHandler) setShortCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// safeNext accepts only same-site relative paths. "//evil.example" and
// absolute URLs fall back to "/".
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
