package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental/internal/middleware"
	"github.com/iliyamo/car-rental/internal/model"
)

// UserService is the subset of *service.UserService the admin endpoints use.
type UserService interface {
	ChangeRole(ctx context.Context, actorID, targetID, role string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

// AdminHandler serves user administration.
type AdminHandler struct {
	Users UserService
}

func NewAdminHandler(users UserService) *AdminHandler {
	return &AdminHandler{Users: users}
}

type roleReq struct {
	Role string `json:"role"`
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return err
	}
	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// ChangeRole handles PUT /admin/users/:id/role.
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Users.ChangeRole(ctx, middleware.GetSession(c).UserID(), c.Param("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u.Public()})
}
