package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/tailor/internal/model"
)

// SessionCookie is the name of the HttpOnly cookie carrying the session JWT.
const SessionCookie = "session"

// contextKey is an unexported type so no other package can read or shadow
// the values this package stores in a request context.
type contextKey string

const userKey contextKey = "user"

// Provisioner resolves the directory row for a session, creating it when
// the session outlived the row. service.UserService implements it.
type Provisioner interface {
	EnsureFromSession(ctx context.Context, identity model.Identity) (*model.User, error)
}

// RequireUser is the gate in front of every route that needs a caller.
//
// It reads the session cookie, validates the JWT and resolves the caller's
// directory row through the Provisioner. No cookie or a bad token is 401;
// a failing store is 500. On success the row is available to handlers via
// UserFromContext.
func RequireUser(tokens *TokenService, users Provisioner, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := identityFromRequest(r, tokens)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			user, err := users.EnsureFromSession(r.Context(), *identity)
			if err != nil {
				logger.Error("auth: resolving session user",
					slog.String("subject_id", identity.SubjectID),
					slog.String("error", err.Error()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal_error","message":"An internal error occurred"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalUser attaches the caller when a valid session is present but never
// rejects the request. Anonymous callers read (nil, false) from
// UserFromContext.
func OptionalUser(tokens *TokenService, users Provisioner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity, err := identityFromRequest(r, tokens); err == nil {
				if user, err := users.EnsureFromSession(r.Context(), *identity); err == nil {
					r = r.WithContext(WithUser(r.Context(), user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserFromContext returns the caller's directory row.
// Returns (nil, false) if the request is anonymous.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// WithUser returns a context carrying the caller. Handler tests use it to
// call handlers directly without the middleware.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// SetSessionCookie stores the session token in an HttpOnly cookie.
// HttpOnly keeps it away from JavaScript; SameSite=Lax keeps it off
// cross-site POSTs. secure should be true whenever the site is served
// over HTTPS.
func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// identityFromRequest reads the session cookie and validates it.
func identityFromRequest(r *http.Request, tokens *TokenService) (*model.Identity, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, err
	}
	return tokens.Validate(cookie.Value)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthenticated","message":"valid authentication required"}` + "\n"))
}
