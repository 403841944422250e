// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer.
package queue

import (
	"time"

	"github.com/iliyamo/car-rental/internal/model"
)

// BookingQueueName is the durable queue booking events are routed to.
const BookingQueueName = "booking.events"

// EventType distinguishes the booking lifecycle changes that are published.
type EventType string

const (
	EventBookingCreated       EventType = "booking.created"
	EventBookingCancelled     EventType = "booking.cancelled"
	EventBookingStatusChanged EventType = "booking.status_changed"
)

// BookingEvent is published after a booking write commits.  It contains
// enough information for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type BookingEvent struct {
	Type           EventType `json:"type"`
	BookingID      string    `json:"bookingId"`
	CarID          string    `json:"carId"`
	UserID         string    `json:"userId"`
	StartDate      string    `json:"startDate"`
	EndDate        string    `json:"endDate"`
	Days           int       `json:"days"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	TotalPrice     int64     `json:"totalPrice"`
	OccurredAt     string    `json:"occurredAt"`
}

// NewBookingEvent snapshots b.  prev is empty for creations.
func NewBookingEvent(typ EventType, b *model.Booking, prev model.BookingStatus, at time.Time) BookingEvent {
	return BookingEvent{
		Type:           typ,
		BookingID:      b.ID,
		CarID:          b.CarID,
		UserID:         b.UserID,
		StartDate:      b.StartDate.Format(model.DateLayout),
		EndDate:        b.EndDate.Format(model.DateLayout),
		Days:           b.Range().Days(),
		Status:         string(b.Status),
		PreviousStatus: string(prev),
		TotalPrice:     b.TotalPrice,
		OccurredAt:     at.UTC().Format(time.RFC3339),
	}
}
