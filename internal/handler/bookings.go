package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental/internal/apperror"
	"github.com/iliyamo/car-rental/internal/middleware"
	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/service"
)

// BookingService is the subset of *service.BookingService the booking
// endpoints use.
type BookingService interface {
	BookedRanges(ctx context.Context, carID string, from, to *time.Time) ([]model.DateRange, error)
	Create(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error)
	Cancel(ctx context.Context, bookingID, callerID string) (*model.Booking, error)
	UpdateStatus(ctx context.Context, bookingID, status string) (*model.Booking, error)
	ListForUser(ctx context.Context, userID string) ([]model.Booking, error)
	ListAll(ctx context.Context) ([]model.Booking, error)
}

// BookingHandler serves availability lookups and the booking lifecycle.
type BookingHandler struct {
	Bookings BookingService
}

func NewBookingHandler(b BookingService) *BookingHandler {
	return &BookingHandler{Bookings: b}
}

type createBookingReq struct {
	CarID      string       `json:"carId"`
	StartDate  string       `json:"startDate"`
	EndDate    string       `json:"endDate"`
	Extras     model.Extras `json:"extras"`
	TotalPrice int64        `json:"totalPrice"`
}

type statusReq struct {
	Status string `json:"status"`
}

// BookedDates handles GET /cars/:id/booked-dates?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Both bounds are optional.
func (h *BookingHandler) BookedDates(c echo.Context) error {
	from, err := optionalDate(c.QueryParam("from"), "from")
	if err != nil {
		return err
	}
	to, err := optionalDate(c.QueryParam("to"), "to")
	if err != nil {
		return err
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	ranges, err := h.Bookings.BookedRanges(ctx, c.Param("id"), from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"bookedDates": ranges})
}

// Create handles POST /bookings/create for the signed-in user.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	req.CarID = strings.TrimSpace(req.CarID)
	if req.CarID == "" || req.StartDate == "" || req.EndDate == "" {
		return apperror.Validation("carId, startDate and endDate are required")
	}
	start, err := model.ParseDate(req.StartDate)
	if err != nil {
		return apperror.Validation("startDate must be YYYY-MM-DD")
	}
	end, err := model.ParseDate(req.EndDate)
	if err != nil {
		return apperror.Validation("endDate must be YYYY-MM-DD")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Bookings.Create(ctx, service.CreateBookingInput{
		CarID:      req.CarID,
		UserID:     middleware.GetSession(c).UserID(),
		Range:      model.DateRange{Start: start, End: end},
		Extras:     req.Extras,
		TotalPrice: req.TotalPrice,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking": b})
}

// Cancel handles POST /bookings/:id/cancel.  Only the owner may cancel,
// and only while the booking is PENDING.
func (h *BookingHandler) Cancel(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Bookings.Cancel(ctx, c.Param("id"), middleware.GetSession(c).UserID())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

// ListMine handles GET /bookings/user.
func (h *BookingHandler) ListMine(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Bookings.ListForUser(ctx, middleware.GetSession(c).UserID())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": nonNil(list)})
}

// ListAll handles GET /editor/bookings.
func (h *BookingHandler) ListAll(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	list, err := h.Bookings.ListAll(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": nonNil(list)})
}

// UpdateStatus handles PUT /editor/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Bookings.UpdateStatus(ctx, c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": b})
}

func optionalDate(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := model.ParseDate(raw)
	if err != nil {
		return nil, apperror.Validation(name + " must be YYYY-MM-DD")
	}
	return &t, nil
}

// nonNil keeps empty lists rendering as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
