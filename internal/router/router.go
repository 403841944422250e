package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/car-rental/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/car-rental/internal/middleware" // import route guards
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers all authentication-related routes.  limit is the
// stricter per-IP limiter applied to credential submission.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	// Rotation reads the refresh cookie; no access token is needed.
	g.POST("/refresh", a.Refresh)
	// Logout works for anonymous callers too so a stale browser can always
	// clear its cookies.
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me)
}

// RegisterCatalog registers the public car catalog and the editor routes
// that maintain it.  Public reads go through cache; editor writes go
// through invalidate so the next read sees the change.
func RegisterCatalog(e *echo.Echo, c *handler.CarHandler, b *handler.BookingHandler, cache, invalidate echo.MiddlewareFunc) {
	e.GET("/cars", c.List, cache)
	e.GET("/cars/:id", c.Get, cache)
	// Availability changes with every booking and is never cached.
	e.GET("/cars/:id/booked-dates", b.BookedDates)

	g := e.Group("/editor/cars",
		middleware.RequirePermission(middleware.CanEditCatalog),
		invalidate,
	)
	g.POST("", c.Create)
	g.PUT("/:id", c.Update)
	g.DELETE("/:id", c.Delete)
}

// RegisterBookings registers the customer booking routes and the editor
// booking desk.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler) {
	g := e.Group("/bookings", middleware.RequireAuth())
	g.POST("/create", b.Create)
	g.POST("/:id/cancel", b.Cancel)
	g.GET("/user", b.ListMine)

	desk := e.Group("/editor/bookings", middleware.RequirePermission(middleware.CanManageBookings))
	desk.GET("", b.ListAll)
	desk.PUT("/:id/status", b.UpdateStatus)
}

// RegisterAdmin registers user administration.  ADMIN only.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler) {
	g := e.Group("/admin", middleware.RequirePermission(middleware.CanManageUsers))
	g.GET("/users", a.ListUsers)
	g.PUT("/users/:id/role", a.ChangeRole)
}
