package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental/internal/apperror"
	"github.com/iliyamo/car-rental/internal/middleware"
	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/service"
)

// CarService is the subset of *service.CarService the catalog endpoints use.
type CarService interface {
	List(ctx context.Context, page, limit int) ([]model.Car, model.Pagination, error)
	Get(ctx context.Context, id string) (*model.Car, error)
	Create(ctx context.Context, actorID string, in service.CarInput) (*model.Car, error)
	Update(ctx context.Context, actorID, id string, in service.CarInput) (*model.Car, error)
	Delete(ctx context.Context, id string) error
}

// CarHandler serves the public catalog and its editor maintenance.
type CarHandler struct {
	Cars CarService
}

func NewCarHandler(cars CarService) *CarHandler {
	return &CarHandler{Cars: cars}
}

type carReq struct {
	ID             string                   `json:"id"`
	Make           string                   `json:"make"`
	Model          string                   `json:"model"`
	Year           int                      `json:"year"`
	Type           string                   `json:"type"`
	PricePerDay    int64                    `json:"pricePerDay"`
	Description    *string                  `json:"description"`
	Features       []string                 `json:"features"`
	Availability   *bool                    `json:"availability"`
	Specifications *model.CarSpecifications `json:"specifications"`
}

func (r carReq) input() service.CarInput {
	return service.CarInput{
		ID:             r.ID,
		Make:           r.Make,
		Model:          r.Model,
		Year:           r.Year,
		Type:           r.Type,
		PricePerDay:    r.PricePerDay,
		Description:    r.Description,
		Features:       r.Features,
		Availability:   r.Availability,
		Specifications: r.Specifications,
	}
}

// List handles GET /cars?page=1&limit=10.
func (h *CarHandler) List(c echo.Context) error {
	page, err := intQuery(c, "page")
	if err != nil {
		return err
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	cars, pg, err := h.Cars.List(ctx, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"cars": nonNil(cars), "pagination": pg})
}

// Get handles GET /cars/:id.
func (h *CarHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	car, err := h.Cars.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"car": car})
}

// Create handles POST /editor/cars.
func (h *CarHandler) Create(c echo.Context) error {
	var req carReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	car, err := h.Cars.Create(ctx, middleware.GetSession(c).UserID(), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"car": car})
}

// Update handles PUT /editor/cars/:id.
func (h *CarHandler) Update(c echo.Context) error {
	var req carReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	car, err := h.Cars.Update(ctx, middleware.GetSession(c).UserID(), c.Param("id"), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"car": car})
}

// Delete handles DELETE /editor/cars/:id.
func (h *CarHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Cars.Delete(ctx, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// intQuery reads an optional integer query parameter; absent means 0.
func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation(name + " must be an integer")
	}
	return n, nil
}
