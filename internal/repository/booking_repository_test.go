package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/car-rental/internal/model"
)

func newMock(t *testing.T) (*BookingRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBookingRepo(db), mock
}

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func pendingBooking() *model.Booking {
	now := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	return &model.Booking{
		ID:         "b-1",
		CarID:      "camry-2023",
		UserID:     "user-1",
		StartDate:  day("2024-06-01"),
		EndDate:    day("2024-06-05"),
		Status:     model.StatusPending,
		TotalPrice: 500,
		CreatedAt:  now,
		UpdatedAt:  now,
		Extras:     &model.Extras{Insurance: true, AdditionalDriver: true},
	}
}

const (
	lockCarSQL  = `SELECT id, make, model, year FROM cars WHERE id = \? FOR UPDATE`
	overlapSQL  = `SELECT COUNT\(\*\) FROM bookings WHERE car_id = \? AND status IN \(\?,\?,\?\) AND start_date <= \? AND end_date >= \? AND end_date >= \?`
	insBookSQL  = `INSERT INTO bookings`
	insExtraSQL = `INSERT INTO booking_extras`
)

func expectCarLock(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(lockCarSQL).WithArgs("camry-2023").
		WillReturnRows(sqlmock.NewRows([]string{"id", "make", "model", "year"}).AddRow("camry-2023", "Toyota", "Camry", 2023))
}

func expectOverlap(mock sqlmock.Sqlmock, n int) {
	mock.ExpectQuery(overlapSQL).
		WithArgs("camry-2023", "PENDING", "CONFIRMED", "IN_PROGRESS", "2024-06-05", "2024-06-01", "2024-05-20").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(n))
}

// The car row lock must come before the overlap count so that two
// creates for the same car serialize on it.
func TestCreateWithExtrasCommits(t *testing.T) {
	repo, mock := newMock(t)
	mock.MatchExpectationsInOrder(true)
	b := pendingBooking()

	mock.ExpectBegin()
	expectCarLock(mock)
	expectOverlap(mock, 0)
	mock.ExpectExec(insBookSQL).
		WithArgs("b-1", "camry-2023", "user-1", "2024-06-01", "2024-06-05", "PENDING", int64(500), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insExtraSQL).WithArgs("b-1", true, false, false, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateWithExtras(context.Background(), b, day("2024-05-20"))
	require.NoError(t, err)
	require.NotNil(t, b.Car)
	assert.Equal(t, "Camry", b.Car.Model)
	assert.True(t, b.Extras.Insurance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithExtrasConflictRollsBack(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	expectCarLock(mock)
	expectOverlap(mock, 1)
	mock.ExpectRollback()

	err := repo.CreateWithExtras(context.Background(), pendingBooking(), day("2024-05-20"))
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithExtrasUnknownCar(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockCarSQL).WithArgs("camry-2023").
		WillReturnRows(sqlmock.NewRows([]string{"id", "make", "model", "year"}))
	mock.ExpectRollback()

	err := repo.CreateWithExtras(context.Background(), pendingBooking(), day("2024-05-20"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithExtrasFailureLeavesNoOrphan(t *testing.T) {
	repo, mock := newMock(t)
	b := pendingBooking()

	mock.ExpectBegin()
	expectCarLock(mock)
	expectOverlap(mock, 0)
	mock.ExpectExec(insBookSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insExtraSQL).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.CreateWithExtras(context.Background(), b, day("2024-05-20"))
	require.Error(t, err)
	assert.Nil(t, b.Car)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithoutExtrasStoresFalseFlags(t *testing.T) {
	repo, mock := newMock(t)
	b := pendingBooking()
	b.Extras = nil

	mock.ExpectBegin()
	expectCarLock(mock)
	expectOverlap(mock, 0)
	mock.ExpectExec(insBookSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insExtraSQL).WithArgs("b-1", false, false, false, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateWithExtras(context.Background(), b, day("2024-05-20")))
	require.NotNil(t, b.Extras)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookedRangesWithWindow(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT start_date, end_date FROM bookings WHERE car_id = \?`).
		WithArgs("camry-2023", "PENDING", "CONFIRMED", "IN_PROGRESS", "2024-05-20", "2024-06-30", "2024-06-01").
		WillReturnRows(sqlmock.NewRows([]string{"start_date", "end_date"}).
			AddRow(day("2024-06-01"), day("2024-06-05")).
			AddRow(day("2024-06-10"), day("2024-06-12")))

	window := &model.DateRange{Start: day("2024-06-01"), End: day("2024-06-30")}
	got, err := repo.BookedRanges(context.Background(), "camry-2023", day("2024-05-20"), window)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day("2024-06-10"), got[1].Start)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookedRangesEmpty(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(`SELECT start_date, end_date FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"start_date", "end_date"}))

	got, err := repo.BookedRanges(context.Background(), "nope", day("2024-05-20"), nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func bookingRows() *sqlmock.Rows {
	ts := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "car_id", "user_id", "start_date", "end_date", "status", "total_price",
		"created_at", "updated_at", "make", "model", "year", "email", "first_name", "last_name",
		"insurance", "gps", "child_seat", "additional_driver",
	}).AddRow("b-1", "camry-2023", "user-1", day("2024-06-01"), day("2024-06-05"), "CONFIRMED", int64(500),
		ts, ts, "Toyota", "Camry", 2023, "jane@example.com", "Jane", "Doe",
		true, false, true, false)
}

func TestGetByIDAttachesProjections(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`FROM bookings b`).WithArgs("b-1").WillReturnRows(bookingRows())

	b, err := repo.GetByID(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.Equal(t, "camry-2023", b.Car.ID)
	assert.Equal(t, "jane@example.com", b.User.Email)
	assert.True(t, b.Extras.ChildSeat)
}

func TestGetByIDMissing(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`FROM bookings b`).WithArgs("zzz").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListByUserDropsUserProjection(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`WHERE b.user_id = \?`).WithArgs("user-1").WillReturnRows(bookingRows())

	list, err := repo.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].User)
	assert.NotNil(t, list[0].Car)
}

func TestUpdateStatusCompareAndSet(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Now()

	mock.ExpectExec(`UPDATE bookings SET status = \?, updated_at = \? WHERE id = \? AND status = \?`).
		WithArgs("CANCELLED", sqlmock.AnyArg(), "b-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), "b-1", model.StatusPending, model.StatusCancelled, at))

	mock.ExpectExec(`UPDATE bookings SET status`).
		WithArgs("CANCELLED", sqlmock.AnyArg(), "b-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateStatus(context.Background(), "b-1", model.StatusPending, model.StatusCancelled, at)
	assert.ErrorIs(t, err, ErrStaleStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
