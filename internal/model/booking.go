package model

import (
	"errors"
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusInProgress BookingStatus = "IN_PROGRESS"
	StatusCompleted  BookingStatus = "COMPLETED"
	StatusCancelled  BookingStatus = "CANCELLED"
)

// ActiveStatuses are the statuses that block a car's dates.
var ActiveStatuses = []BookingStatus{StatusPending, StatusConfirmed, StatusInProgress}

// transitions is the editor-side state machine.  Terminal states have
// no entry.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress},
	StatusInProgress: {StatusCompleted},
}

// ParseBookingStatus validates a status string from a request body.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	st := BookingStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no further transition is possible.
func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DateLayout is the calendar-day format accepted in request bodies.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// ParseDate accepts either a calendar day ("2024-06-01") or an RFC3339
// timestamp and truncates it to a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), nil
	}
	return time.Time{}, ErrInvalidDate
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is a closed interval of calendar days: both Start and End
// are booked.
type DateRange struct {
	Start time.Time `json:"startDate"`
	End   time.Time `json:"endDate"`
}

// Valid reports whether Start is not after End.
func (r DateRange) Valid() bool { return !r.Start.After(r.End) }

// Days is the number of calendar days covered by the range.
func (r DateRange) Days() int {
	if !r.Valid() {
		return 0
	}
	return int(Day(r.End).Sub(Day(r.Start)).Hours()/24) + 1
}

// Extras are the add-ons attached to a booking.
type Extras struct {
	Insurance        bool `json:"insurance"`
	GPS              bool `json:"gps"`
	ChildSeat        bool `json:"childSeat"`
	AdditionalDriver bool `json:"additionalDriver"`
}

// Booking records a user's rental of a car for a closed range of days.
//
// Fields:
//
//	ID         – UUID primary key.
//	CarID      – rented car.
//	UserID     – owner of the booking.
//	StartDate  – first rented day (inclusive).
//	EndDate    – last rented day (inclusive).
//	Status     – lifecycle state.
//	TotalPrice – caller-supplied total in whole currency units.
//	Extras     – add-ons; always present on bookings returned by the API.
//	Car, User  – optional projections attached by list queries.
type Booking struct {
	ID         string        `json:"id"`
	CarID      string        `json:"carId"`
	UserID     string        `json:"userId"`
	StartDate  time.Time     `json:"startDate"`
	EndDate    time.Time     `json:"endDate"`
	Status     BookingStatus `json:"status"`
	TotalPrice int64         `json:"totalPrice"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	Extras     *Extras       `json:"extras,omitempty"`
	Car        *CarSummary   `json:"car,omitempty"`
	User       *BookingUser  `json:"user,omitempty"`
}

// Range returns the booked interval.
func (b Booking) Range() DateRange { return DateRange{Start: b.StartDate, End: b.EndDate} }

// BookingUser is the customer projection shown in the operations view.
type BookingUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
