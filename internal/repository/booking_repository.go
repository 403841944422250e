package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/car-rental/internal/model"
)

// BookingRepo stores bookings and their extras.  Booking dates are DATE
// columns holding closed intervals; both the first and the last day are
// rented.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// activeStatusFilter renders "status IN (?,?,?)" for the statuses that
// block dates, together with its arguments.
func activeStatusFilter(col string) (string, []any) {
	marks := make([]string, len(model.ActiveStatuses))
	args := make([]any, len(model.ActiveStatuses))
	for i, s := range model.ActiveStatuses {
		marks[i] = "?"
		args[i] = string(s)
	}
	return col + " IN (" + strings.Join(marks, ",") + ")", args
}

func dateArg(t time.Time) string { return model.Day(t).Format(model.DateLayout) }

// BookedRanges returns the ranges blocked on a car, ordered by start
// date.  Elapsed bookings (ending before today) are omitted.  When window
// is non-nil only ranges intersecting it are returned.
func (r *BookingRepo) BookedRanges(ctx context.Context, carID string, today time.Time, window *model.DateRange) ([]model.DateRange, error) {
	statusSQL, statusArgs := activeStatusFilter("status")
	q := "SELECT start_date, end_date FROM bookings WHERE car_id = ? AND " + statusSQL + " AND end_date >= ?"
	args := append([]any{carID}, statusArgs...)
	args = append(args, dateArg(today))
	if window != nil {
		q += " AND start_date <= ? AND end_date >= ?"
		args = append(args, dateArg(window.End), dateArg(window.Start))
	}
	q += " ORDER BY start_date"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ranges := []model.DateRange{}
	for rows.Next() {
		var dr model.DateRange
		if err := rows.Scan(&dr.Start, &dr.End); err != nil {
			return nil, err
		}
		dr.Start, dr.End = model.Day(dr.Start), model.Day(dr.End)
		ranges = append(ranges, dr)
	}
	return ranges, rows.Err()
}

// CreateWithExtras persists b and its extras atomically.  Inside one
// transaction it locks the car row, re-checks for an active, non-elapsed
// booking intersecting [b.StartDate, b.EndDate] and inserts both rows.
// The car lock serializes concurrent creates for the same car, so of two
// overlapping requests the second observes the first one's row.
//
// Returns ErrNotFound when the car does not exist and ErrConflict when
// the dates are taken.  On success b.Car is populated.
func (r *BookingRepo) CreateWithExtras(ctx context.Context, b *model.Booking, today time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var car model.CarSummary
	err = tx.QueryRowContext(ctx,
		"SELECT id, make, model, year FROM cars WHERE id = ? FOR UPDATE", b.CarID,
	).Scan(&car.ID, &car.Make, &car.Model, &car.Year)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	statusSQL, statusArgs := activeStatusFilter("status")
	overlapQ := "SELECT COUNT(*) FROM bookings WHERE car_id = ? AND " + statusSQL +
		" AND start_date <= ? AND end_date >= ? AND end_date >= ?"
	args := append([]any{b.CarID}, statusArgs...)
	args = append(args, dateArg(b.EndDate), dateArg(b.StartDate), dateArg(today))
	var clashes int
	if err := tx.QueryRowContext(ctx, overlapQ, args...).Scan(&clashes); err != nil {
		return err
	}
	if clashes > 0 {
		return ErrConflict
	}

	const insBooking = `INSERT INTO bookings (id, car_id, user_id, start_date, end_date, status, total_price, created_at, updated_at)
	                    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insBooking, b.ID, b.CarID, b.UserID,
		dateArg(b.StartDate), dateArg(b.EndDate), string(b.Status), b.TotalPrice,
		b.CreatedAt.UTC(), b.UpdatedAt.UTC()); err != nil {
		return err
	}

	extras := model.Extras{}
	if b.Extras != nil {
		extras = *b.Extras
	}
	const insExtras = `INSERT INTO booking_extras (booking_id, insurance, gps, child_seat, additional_driver)
	                   VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insExtras, b.ID,
		extras.Insurance, extras.GPS, extras.ChildSeat, extras.AdditionalDriver); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	b.Extras = &extras
	b.Car = &car
	return nil
}

const bookingSelect = `SELECT b.id, b.car_id, b.user_id, b.start_date, b.end_date, b.status, b.total_price,
       b.created_at, b.updated_at,
       c.make, c.model, c.year,
       u.email, u.first_name, u.last_name,
       COALESCE(x.insurance, FALSE), COALESCE(x.gps, FALSE),
       COALESCE(x.child_seat, FALSE), COALESCE(x.additional_driver, FALSE)
FROM bookings b
JOIN cars c ON c.id = b.car_id
JOIN users u ON u.id = b.user_id
LEFT JOIN booking_extras x ON x.booking_id = b.id`

// GetByID returns a booking with car, user and extras attached.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, bookingSelect+" WHERE b.id = ?", id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListByUser returns the caller's bookings, newest first.  The user
// projection is omitted since it is always the caller.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	list, err := r.list(ctx, bookingSelect+" WHERE b.user_id = ? ORDER BY b.created_at DESC", userID)
	for i := range list {
		list[i].User = nil
	}
	return list, err
}

// ListAll returns every booking for the operations view, newest first.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
	return r.list(ctx, bookingSelect+" ORDER BY b.created_at DESC")
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpdateStatus moves a booking from one status to another.  The update
// only applies while the row still holds from; otherwise ErrStaleStatus
// is returned and nothing changes.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(to), at.UTC(), id, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleStatus
	}
	return nil
}

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b      model.Booking
		status string
		car    model.CarSummary
		user   model.BookingUser
		extras model.Extras
	)
	err := s.Scan(&b.ID, &b.CarID, &b.UserID, &b.StartDate, &b.EndDate, &status, &b.TotalPrice,
		&b.CreatedAt, &b.UpdatedAt,
		&car.Make, &car.Model, &car.Year,
		&user.Email, &user.FirstName, &user.LastName,
		&extras.Insurance, &extras.GPS, &extras.ChildSeat, &extras.AdditionalDriver)
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.StartDate, b.EndDate = model.Day(b.StartDate), model.Day(b.EndDate)
	car.ID = b.CarID
	user.ID = b.UserID
	b.Car = &car
	b.User = &user
	b.Extras = &extras
	return &b, nil
}
