package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/car-rental/internal/apperror"
	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/utils"
)

// MockAuthenticator is a mock implementation of Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, raw string) (*model.User, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, raw string) (*model.User, utils.AccessToken, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, utils.AccessToken{}, args.Error(2)
	}
	return args.Get(0).(*model.User), args.Get(1).(utils.AccessToken), args.Error(2)
}

var errBadToken = apperror.Unauthenticated("invalid or expired token")

// run passes one request through SessionResolver and returns the session
// the downstream handler observed.
func run(t *testing.T, auth Authenticator, req *http.Request) (*Session, *httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *Session
	h := SessionResolver(auth, Cookies{Secure: true})(func(c echo.Context) error {
		seen = GetSession(c)
		return c.NoContent(http.StatusOK)
	})
	err := h(c)
	return seen, rec, err
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestSessionFromAccessCookie(t *testing.T) {
	auth := &MockAuthenticator{}
	auth.On("Authenticate", mock.Anything, "good").Return(&model.User{ID: "u-1", Role: model.RoleEditor}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "good"})

	s, rec, err := run(t, auth, req)
	require.NoError(t, err)
	assert.Equal(t, "u-1", s.UserID())
	assert.True(t, s.Permissions.CanManageBookings)
	assert.False(t, s.Permissions.CanManageUsers)
	assert.Empty(t, rec.Result().Cookies())
}

func TestSessionFromBearerHeader(t *testing.T) {
	auth := &MockAuthenticator{}
	auth.On("Authenticate", mock.Anything, "good").Return(&model.User{ID: "u-1", Role: model.RoleUser}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")

	s, _, err := run(t, auth, req)
	require.NoError(t, err)
	assert.True(t, s.Authenticated())
}

func TestExpiredAccessWithLiveRefreshIsRenewed(t *testing.T) {
	auth := &MockAuthenticator{}
	exp := time.Now().Add(24 * time.Hour)
	auth.On("Authenticate", mock.Anything, "expired").Return(nil, errBadToken)
	auth.On("Refresh", mock.Anything, "live-refresh").
		Return(&model.User{ID: "u-1", Role: model.RoleUser}, utils.AccessToken{Token: "fresh", Exp: exp}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "expired"})
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "live-refresh"})

	s, rec, err := run(t, auth, req)
	require.NoError(t, err)
	assert.Equal(t, "u-1", s.UserID())

	ck := cookieNamed(rec, AccessCookie)
	require.NotNil(t, ck)
	assert.Equal(t, "fresh", ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.Nil(t, cookieNamed(rec, RefreshCookie), "refresh token is not rotated by the resolver")
}

func TestRevokedRefreshClearsCookies(t *testing.T) {
	auth := &MockAuthenticator{}
	auth.On("Authenticate", mock.Anything, "expired").Return(nil, errBadToken)
	auth.On("Refresh", mock.Anything, "logged-out").Return(nil, nil, apperror.Unauthenticated("session expired, please log in again"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "expired"})
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "logged-out"})

	s, rec, err := run(t, auth, req)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	for _, name := range []string{AccessCookie, RefreshCookie} {
		ck := cookieNamed(rec, name)
		require.NotNil(t, ck, name)
		assert.Empty(t, ck.Value)
		assert.Less(t, ck.MaxAge, 0)
	}
}

func TestAnonymousRequest(t *testing.T) {
	auth := &MockAuthenticator{}
	s, rec, err := run(t, auth, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	assert.Empty(t, rec.Result().Cookies())
	auth.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestStoreFailureIsNotALogout(t *testing.T) {
	auth := &MockAuthenticator{}
	auth.On("Authenticate", mock.Anything, "good").Return(nil, apperror.Internal(errors.New("db down")))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "good"})
	req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "r"})

	_, rec, err := run(t, auth, req)
	assert.True(t, apperror.IsKind(err, apperror.KindInternal))
	assert.Empty(t, rec.Result().Cookies())
}

func guarded(t *testing.T, mw echo.MiddlewareFunc, u *model.User) error {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if u != nil {
		setSession(c, u)
	}
	return mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
}

func TestRouteGuards(t *testing.T) {
	user := &model.User{ID: "u", Role: model.RoleUser}
	editor := &model.User{ID: "e", Role: model.RoleEditor}
	admin := &model.User{ID: "a", Role: model.RoleAdmin}

	assert.Equal(t, http.StatusUnauthorized, apperror.From(guarded(t, RequireAuth(), nil)).Status)
	assert.NoError(t, guarded(t, RequireAuth(), user))

	catalog := RequirePermission(CanEditCatalog)
	assert.Equal(t, http.StatusUnauthorized, apperror.From(guarded(t, catalog, nil)).Status)
	assert.Equal(t, http.StatusForbidden, apperror.From(guarded(t, catalog, user)).Status)
	assert.NoError(t, guarded(t, catalog, editor))

	users := RequirePermission(CanManageUsers)
	assert.Equal(t, http.StatusForbidden, apperror.From(guarded(t, users, editor)).Status)
	assert.NoError(t, guarded(t, users, admin))
}
