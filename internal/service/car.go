package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/iliyamo/car-rental/internal/apperror"
	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/repository"
)

// CarStore is the catalog persistence.
type CarStore interface {
	List(ctx context.Context, limit, offset int) ([]model.Car, int64, error)
	GetByID(ctx context.Context, id string) (*model.Car, error)
	Create(ctx context.Context, c *model.Car) error
	Update(ctx context.Context, c *model.Car) error
	Delete(ctx context.Context, id string) error
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

var (
	ErrCarExists = apperror.Conflict("a car with this id already exists")
	ErrCarInUse  = apperror.Conflict("car has bookings and cannot be deleted")
)

// CarInput is the editable part of a car.  A nil Availability keeps the
// current value on update and defaults to true on create.  Likewise nil
// Specifications keep the stored row on update.
type CarInput struct {
	ID             string
	Make           string
	Model          string
	Year           int
	Type           string
	PricePerDay    int64
	Description    *string
	Features       []string
	Availability   *bool
	Specifications *model.CarSpecifications
}

// CarService manages the vehicle catalog.
type CarService struct {
	cars CarStore
}

func NewCarService(cars CarStore) *CarService { return &CarService{cars: cars} }

// List returns one page of the catalog.  Out-of-range page and limit
// values are clamped rather than rejected.
func (s *CarService) List(ctx context.Context, page, limit int) ([]model.Car, model.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	cars, total, err := s.cars.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, model.Pagination{}, apperror.Internal(err)
	}
	pages := (total + int64(limit) - 1) / int64(limit)
	return cars, model.Pagination{Total: total, Pages: pages, CurrentPage: page, Limit: limit}, nil
}

// Get returns a single car.
func (s *CarService) Get(ctx context.Context, id string) (*model.Car, error) {
	c, err := s.cars.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCarNotFound
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return c, nil
}

// Create adds a car.  When no id is given one is derived from make, model
// and year, e.g. "camry-2023".
func (s *CarService) Create(ctx context.Context, actorID string, in CarInput) (*model.Car, error) {
	if err := validateCar(in); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = Slug(fmt.Sprintf("%s %d", in.Model, in.Year))
	}
	if !slugPattern.MatchString(id) {
		return nil, apperror.Validation("id must contain only lowercase letters, digits and dashes")
	}
	c := &model.Car{
		ID:             id,
		Make:           strings.TrimSpace(in.Make),
		Model:          strings.TrimSpace(in.Model),
		Year:           in.Year,
		Type:           strings.TrimSpace(in.Type),
		PricePerDay:    in.PricePerDay,
		Description:    in.Description,
		Features:       in.Features,
		Availability:   in.Availability == nil || *in.Availability,
		Specifications: in.Specifications,
		CreatedBy:      actorID,
		LastModifiedBy: actorID,
	}
	if err := s.cars.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrCarExists
		}
		return nil, apperror.Internal(err)
	}
	return s.Get(ctx, c.ID)
}

// Update replaces the editable fields of an existing car.
func (s *CarService) Update(ctx context.Context, actorID, id string, in CarInput) (*model.Car, error) {
	if err := validateCar(in); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Make = strings.TrimSpace(in.Make)
	c.Model = strings.TrimSpace(in.Model)
	c.Year = in.Year
	c.Type = strings.TrimSpace(in.Type)
	c.PricePerDay = in.PricePerDay
	c.Description = in.Description
	if in.Features != nil {
		c.Features = in.Features
	}
	if in.Availability != nil {
		c.Availability = *in.Availability
	}
	if in.Specifications != nil {
		c.Specifications = in.Specifications
	}
	c.LastModifiedBy = actorID
	if err := s.cars.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCarNotFound
		}
		return nil, apperror.Internal(err)
	}
	return s.Get(ctx, id)
}

// Delete removes a car that has never been booked.
func (s *CarService) Delete(ctx context.Context, id string) error {
	switch err := s.cars.Delete(ctx, id); {
	case errors.Is(err, repository.ErrNotFound):
		return ErrCarNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrCarInUse
	case err != nil:
		return apperror.Internal(err)
	}
	return nil
}

func validateCar(in CarInput) error {
	switch {
	case strings.TrimSpace(in.Make) == "":
		return apperror.Validation("make is required")
	case strings.TrimSpace(in.Model) == "":
		return apperror.Validation("model is required")
	case strings.TrimSpace(in.Type) == "":
		return apperror.Validation("type is required")
	case in.Year < 1900 || in.Year > 2100:
		return apperror.Validation("year is out of range")
	case in.PricePerDay <= 0:
		return apperror.Validation("pricePerDay must be positive")
	}
	if sp := in.Specifications; sp != nil {
		if sp.Seats != nil && *sp.Seats < 0 {
			return apperror.Validation("seats must not be negative")
		}
		if sp.Luggage != nil && *sp.Luggage < 0 {
			return apperror.Validation("luggage must not be negative")
		}
	}
	return nil
}

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	nonSlug     = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slug lower-cases s and joins its alphanumeric runs with dashes.
func Slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
