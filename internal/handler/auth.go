package handler

import (
	"context"  // provides context with cancellation for store calls
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/car-rental/internal/apperror"
	"github.com/iliyamo/car-rental/internal/middleware" // session lookup and cookie writer
	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/service" // session issuance and rotation
)

// AuthService is the subset of *service.AuthService the auth endpoints use.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, service.Tokens, error)
	Rotate(ctx context.Context, rawRefresh string) (*model.User, service.Tokens, error)
	Logout(ctx context.Context, rawRefresh string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth    AuthService
	Cookies middleware.Cookies
}

func NewAuthHandler(auth AuthService, cookies middleware.Cookies) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookies: cookies}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a USER account.  It does not open a session; the
// client logs in afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"user": u.Public()})
}

// Login verifies credentials and sets both session cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return apperror.Validation("email and password are required")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, tokens, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	h.Cookies.SetAccess(c, tokens.Access)
	h.Cookies.SetRefresh(c, tokens.Refresh)
	return c.JSON(http.StatusOK, echo.Map{"user": u.Public()})
}

// Refresh rotates the refresh token: the presented one is revoked and a
// new pair is issued.  A dead refresh token clears the cookies.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ck, err := c.Cookie(middleware.RefreshCookie)
	if err != nil || ck.Value == "" {
		return service.ErrSessionExpired
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, tokens, err := h.Auth.Rotate(ctx, ck.Value)
	if err != nil {
		if apperror.IsKind(err, apperror.KindAuthentication) {
			h.Cookies.Clear(c)
		}
		return err
	}
	h.Cookies.SetAccess(c, tokens.Access)
	h.Cookies.SetRefresh(c, tokens.Refresh)
	return c.JSON(http.StatusOK, echo.Map{"user": u.Public()})
}

// Logout always succeeds from the client's point of view.  The server row
// is deleted when possible and both cookies are cleared regardless.
func (h *AuthHandler) Logout(c echo.Context) error {
	if ck, err := c.Cookie(middleware.RefreshCookie); err == nil && ck.Value != "" {
		ctx, cancel := withTimeout(c)
		defer cancel()
		if err := h.Auth.Logout(ctx, ck.Value); err != nil {
			c.Logger().Warnf("logout: refresh token not revoked: %v", err)
		}
	}
	h.Cookies.Clear(c)
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Me returns the resolved caller and their permissions.
func (h *AuthHandler) Me(c echo.Context) error {
	s := middleware.GetSession(c)
	if !s.Authenticated() {
		return apperror.Unauthenticated("not authenticated")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":        s.User.Public(),
		"permissions": s.Permissions,
	})
}
