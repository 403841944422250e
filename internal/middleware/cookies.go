package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental/internal/utils"
)

// Cookie names shared with the browser client.
const (
	AccessCookie  = "auth-token"
	RefreshCookie = "refresh-token"
)

// Cookies writes the session cookies.  Both are HttpOnly and SameSite=Lax;
// Secure is set in production.
type Cookies struct {
	Secure bool
}

// SetAccess stores the access token until it expires.
func (k Cookies) SetAccess(c echo.Context, t utils.AccessToken) {
	c.SetCookie(k.cookie(AccessCookie, t.Token, t.Exp))
}

// SetRefresh stores the refresh token until it expires.
func (k Cookies) SetRefresh(c echo.Context, t utils.RefreshToken) {
	c.SetCookie(k.cookie(RefreshCookie, t.Raw, t.Exp))
}

// Clear expires both session cookies.
func (k Cookies) Clear(c echo.Context) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		ck := k.cookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}

func (k Cookies) cookie(name, value string, exp time.Time) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   k.Secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp.UTC(),
	}
	if secs := int(time.Until(exp).Seconds()); secs > 0 {
		ck.MaxAge = secs
	}
	return ck
}
