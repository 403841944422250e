// Package service holds the business rules of the rental API.  Services
// depend on small store interfaces, return *apperror.Error for anything a
// client should see, and know nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental/internal/apperror"
	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/queue"
	"github.com/iliyamo/car-rental/internal/repository"
)

// BookingStore is the persistence the booking engine needs.
type BookingStore interface {
	BookedRanges(ctx context.Context, carID string, today time.Time, window *model.DateRange) ([]model.DateRange, error)
	CreateWithExtras(ctx context.Context, b *model.Booking, today time.Time) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
	ListAll(ctx context.Context) ([]model.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, at time.Time) error
}

// EventPublisher receives booking events after a write commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

var (
	ErrDatesTaken      = apperror.ConflictBadRequest("car is already booked for the selected dates")
	ErrCarNotFound     = apperror.NotFound("car not found")
	ErrBookingNotFound = apperror.NotFound("booking not found")
	ErrNotOwner        = apperror.Forbidden("you can only cancel your own bookings")
	ErrNotCancellable  = apperror.Conflict("only pending bookings can be cancelled")
	ErrInvalidStatus   = apperror.Validation("invalid status")
	ErrStatusRace      = apperror.Conflict("booking status changed, reload and retry")
)

// CreateBookingInput is what a user submits to book a car.
type CreateBookingInput struct {
	CarID      string
	UserID     string
	Range      model.DateRange
	Extras     model.Extras
	TotalPrice int64
}

// BookingService implements availability lookups, booking creation and
// the booking lifecycle.
type BookingService struct {
	store  BookingStore
	events EventPublisher
	logger echo.Logger

	now     func() time.Time
	pending sync.WaitGroup
}

// NewBookingService wires the store and an optional publisher.  events may
// be nil, in which case nothing is published.
func NewBookingService(store BookingStore, events EventPublisher, logger echo.Logger) *BookingService {
	return &BookingService{store: store, events: events, logger: logger, now: time.Now}
}

func (s *BookingService) today() time.Time { return model.Day(s.now()) }

// BookedRanges lists the blocked ranges for a car.  from and to are
// optional bounds; an unknown car simply has no bookings.  A missing from
// defaults to today, or to the to date when that is earlier.
func (s *BookingService) BookedRanges(ctx context.Context, carID string, from, to *time.Time) ([]model.DateRange, error) {
	var window *model.DateRange
	if from != nil || to != nil {
		w := model.DateRange{Start: s.today(), End: time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)}
		if to != nil {
			w.End = model.Day(*to)
		}
		if from != nil {
			w.Start = model.Day(*from)
		} else if w.End.Before(w.Start) {
			w.Start = w.End
		}
		if !w.Valid() {
			return nil, apperror.Validation("from must not be after to")
		}
		window = &w
	}
	ranges, err := s.store.BookedRanges(ctx, carID, s.today(), window)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return ranges, nil
}

// Create validates the request and persists a PENDING booking with its
// extras.  The overlap check runs again inside the store transaction, so
// whatever the caller saw in BookedRanges is not trusted.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	if in.CarID == "" {
		return nil, apperror.Validation("carId is required")
	}
	r := model.DateRange{Start: model.Day(in.Range.Start), End: model.Day(in.Range.End)}
	if !r.Valid() {
		return nil, apperror.Validation("startDate must not be after endDate")
	}
	today := s.today()
	if r.Start.Before(today) {
		return nil, apperror.Validation("startDate must not be in the past")
	}
	if in.TotalPrice < 0 {
		return nil, apperror.Validation("totalPrice must not be negative")
	}

	now := s.now().UTC()
	extras := in.Extras
	b := &model.Booking{
		ID:         uuid.NewString(),
		CarID:      in.CarID,
		UserID:     in.UserID,
		StartDate:  r.Start,
		EndDate:    r.End,
		Status:     model.StatusPending,
		TotalPrice: in.TotalPrice,
		CreatedAt:  now,
		UpdatedAt:  now,
		Extras:     &extras,
	}
	switch err := s.store.CreateWithExtras(ctx, b, today); {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrCarNotFound.Wrap(err)
	case errors.Is(err, repository.ErrConflict):
		return nil, ErrDatesTaken.Wrap(err)
	case err != nil:
		return nil, apperror.Internal(err)
	}
	s.publish(queue.EventBookingCreated, b, "")
	return b, nil
}

// Cancel lets the owner withdraw a booking that is still PENDING.  The
// row is kept with status CANCELLED.
func (s *BookingService) Cancel(ctx context.Context, bookingID, callerID string) (*model.Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != callerID {
		return nil, ErrNotOwner
	}
	if b.Status != model.StatusPending {
		return nil, ErrNotCancellable
	}
	if err := s.transition(ctx, b, model.StatusCancelled); err != nil {
		if errors.Is(err, ErrStatusRace) {
			return nil, ErrNotCancellable
		}
		return nil, err
	}
	s.publish(queue.EventBookingCancelled, b, model.StatusPending)
	return b, nil
}

// UpdateStatus applies an editor transition.  Unknown values are a
// validation error; edges outside the state machine are a conflict.
func (s *BookingService) UpdateStatus(ctx context.Context, bookingID, status string) (*model.Booking, error) {
	to, ok := model.ParseBookingStatus(status)
	if !ok {
		return nil, ErrInvalidStatus
	}
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	from := b.Status
	if from.IsTerminal() {
		return nil, apperror.Conflict(fmt.Sprintf("booking is already %s", from))
	}
	if !model.CanTransition(from, to) {
		return nil, apperror.Conflict(fmt.Sprintf("cannot change status from %s to %s", from, to))
	}
	if err := s.transition(ctx, b, to); err != nil {
		return nil, err
	}
	s.publish(queue.EventBookingStatusChanged, b, from)
	return b, nil
}

// ListForUser returns the caller's bookings.
func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]model.Booking, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return list, nil
}

// ListAll returns every booking for the operations view.
func (s *BookingService) ListAll(ctx context.Context) ([]model.Booking, error) {
	list, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return list, nil
}

// Wait blocks until in-flight event publishes finish.
func (s *BookingService) Wait() { s.pending.Wait() }

func (s *BookingService) load(ctx context.Context, id string) (*model.Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return b, nil
}

func (s *BookingService) transition(ctx context.Context, b *model.Booking, to model.BookingStatus) error {
	at := s.now().UTC()
	err := s.store.UpdateStatus(ctx, b.ID, b.Status, to, at)
	if errors.Is(err, repository.ErrStaleStatus) {
		return ErrStatusRace.Wrap(err)
	}
	if err != nil {
		return apperror.Internal(err)
	}
	b.Status = to
	b.UpdatedAt = at
	return nil
}

// publish sends the event in the background so a slow or absent broker
// never delays the response.  Failures are logged only.
func (s *BookingService) publish(typ queue.EventType, b *model.Booking, prev model.BookingStatus) {
	if s.events == nil {
		return
	}
	ev := queue.NewBookingEvent(typ, b, prev, s.now())
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Warnf("booking event %s for %s not published: %v", ev.Type, ev.BookingID, err)
		}
	}()
}
