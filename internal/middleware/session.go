package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental/internal/apperror"
	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/utils"
)

const (
	sessionKey  = "session"
	authTimeout = 5 * time.Second
)

// Session is the per-request view of who is calling and what they may do.
// It lives on the echo.Context of a single request and nowhere else.
type Session struct {
	User        *model.User
	Permissions model.Permissions
}

// Authenticated reports whether a user was resolved for the request.
func (s *Session) Authenticated() bool { return s != nil && s.User != nil }

// UserID returns the caller's id or "" for anonymous requests.
func (s *Session) UserID() string {
	if !s.Authenticated() {
		return ""
	}
	return s.User.ID
}

// GetSession returns the session stored by SessionResolver.  Requests that
// did not pass through it get an anonymous session, never nil.
func GetSession(c echo.Context) *Session {
	if s, ok := c.Get(sessionKey).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}

func setSession(c echo.Context, u *model.User) {
	c.Set(sessionKey, &Session{User: u, Permissions: model.ResolvePermissions(u)})
}

// Authenticator resolves credentials to users.  *service.AuthService
// implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, rawAccess string) (*model.User, error)
	Refresh(ctx context.Context, rawRefresh string) (*model.User, utils.AccessToken, error)
}

// SessionResolver runs on every request.  It never rejects a request for
// lack of credentials; route guards decide that.  Resolution order:
//
//  1. a valid access token (auth-token cookie or Bearer header) whose
//     user still exists;
//  2. otherwise a refresh-token cookie with a live server row, which
//     mints a new access cookie;
//  3. otherwise anonymous, and a failed refresh clears both cookies.
//
// Store failures surface as errors rather than silently logging out.
func SessionResolver(auth Authenticator, cookies Cookies) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), authTimeout)
			defer cancel()

			if raw := accessToken(c); raw != "" {
				u, err := auth.Authenticate(ctx, raw)
				if err == nil {
					setSession(c, u)
					return next(c)
				}
				if !apperror.IsKind(err, apperror.KindAuthentication) {
					return err
				}
			}

			ck, err := c.Cookie(RefreshCookie)
			if err != nil || ck.Value == "" {
				return next(c)
			}
			u, access, err := auth.Refresh(ctx, ck.Value)
			if err != nil {
				if !apperror.IsKind(err, apperror.KindAuthentication) {
					return err
				}
				cookies.Clear(c)
				return next(c)
			}
			cookies.SetAccess(c, access)
			setSession(c, u)
			return next(c)
		}
	}
}

// accessToken prefers the auth-token cookie and falls back to an
// Authorization: Bearer header for non-browser clients.
func accessToken(c echo.Context) string {
	if ck, err := c.Cookie(AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
