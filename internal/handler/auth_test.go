package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/tailor/internal/auth"
	"github.com/sakif/tailor/internal/repository/sqldb"
	"github.com/sakif/tailor/internal/service"
)

const testFrontend = "http://app.example"

// fakeProvider stands in for Google. Exchange succeeds only for goodCode.
type fakeProvider struct {
	user     *auth.GoogleUser
	goodCode string
}

func (p *fakeProvider) AuthURL(state string) string {
	return "https://accounts.example/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*auth.GoogleUser, error) {
	if code != p.goodCode {
		return nil, errors.New("bad code")
	}
	return p.user, nil
}

type authEnv struct {
	handler *AuthHandler
	tokens  *auth.TokenService
	db      *sqldb.DB
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	db, err := sqldb.New(sqldb.SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	logger := discardLogger()
	users := service.NewUserService(db.Users(), logger)
	provider := &fakeProvider{
		goodCode: "good",
		user:     &auth.GoogleUser{Sub: "g-42", Email: "ada@example.com", Name: "Ada"},
	}

	return &authEnv{
		handler: NewAuthHandler(provider, service.NewAuthService(users, tokens, logger), testFrontend+"/", false, logger),
		tokens:  tokens,
		db:      db,
	}
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// login runs HandleLogin and returns the state it issued plus the cookies
// a browser would send back to the callback.
func (e *authEnv) login(t *testing.T, target string) (string, []*http.Cookie) {
	t.Helper()

	rec := httptest.NewRecorder()
	e.handler.HandleLogin(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	c := cookieNamed(rec, stateCookie)
	require.NotNil(t, c)
	assert.Equal(t, state, c.Value)
	assert.True(t, c.HttpOnly)

	return state, rec.Result().Cookies()
}

func (e *authEnv) callback(query string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+query, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.HandleCallback(rec, req)
	return rec
}

func TestCallback_Success(t *testing.T) {
	env := newAuthEnv(t)
	state, cookies := env.login(t, "/auth/login?next=/builds?tab=mine")

	rec := env.callback("code=good&state="+url.QueryEscape(state), cookies)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, testFrontend+"/builds?tab=mine", rec.Header().Get("Location"))

	session := cookieNamed(rec, auth.SessionCookie)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, int(time.Hour.Seconds()), session.MaxAge)

	identity, err := env.tokens.Validate(session.Value)
	require.NoError(t, err)
	assert.Equal(t, "g-42", identity.SubjectID)
	assert.Equal(t, "Ada", identity.DisplayName)

	// The directory row exists after the first login.
	u, err := env.db.Users().GetBySubject(context.Background(), "g-42")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)

	if c := cookieNamed(rec, stateCookie); assert.NotNil(t, c) {
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestCallback_DefaultsNextToRoot(t *testing.T) {
	env := newAuthEnv(t)
	state, cookies := env.login(t, "/auth/login")
	for _, c := range cookies {
		assert.NotEqual(t, nextCookie, c.Name)
	}

	rec := env.callback("code=good&state="+url.QueryEscape(state), cookies)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, testFrontend+"/", rec.Header().Get("Location"))
}

func TestCallback_Failures(t *testing.T) {
	env := newAuthEnv(t)
	state, cookies := env.login(t, "/auth/login")

	tests := []struct {
		name    string
		query   string
		cookies []*http.Cookie
	}{
		{"state mismatch", "code=good&state=forged", cookies},
		{"no state cookie", "code=good&state=" + url.QueryEscape(state), nil},
		{"provider error", "error=access_denied&state=" + url.QueryEscape(state), cookies},
		{"missing code", "state=" + url.QueryEscape(state), cookies},
		{"exchange fails", "code=bad&state=" + url.QueryEscape(state), cookies},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.callback(tt.query, tt.cookies)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, testFrontend+"/login?error=oauth", rec.Header().Get("Location"))
			assert.Nil(t, cookieNamed(rec, auth.SessionCookie))
		})
	}
}

func TestLogout(t *testing.T) {
	env := newAuthEnv(t)

	rec := httptest.NewRecorder()
	env.handler.HandleLogout(rec, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, testFrontend+"/", rec.Header().Get("Location"))
	c := cookieNamed(rec, auth.SessionCookie)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
	assert.Empty(t, c.Value)
}

func TestSafeNext(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "/"},
		{"/builds", "/builds"},
		{"/parts/dials?sort=price", "/parts/dials?sort=price"},
		{"//evil.example", "/"},
		{"https://evil.example/x", "/"},
		{`/\evil.example`, "/"},
		{"builds", "/"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.in), tt.in)
	}
}
