package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/queue"
	"github.com/iliyamo/car-rental/internal/repository"
)

var fixedNow = time.Date(2024, 5, 20, 10, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func quietLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

// MockBookingStore is a mock implementation of BookingStore
type MockBookingStore struct {
	mock.Mock
}

func (m *MockBookingStore) BookedRanges(ctx context.Context, carID string, today time.Time, window *model.DateRange) ([]model.DateRange, error) {
	args := m.Called(ctx, carID, today, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DateRange), args.Error(1)
}

func (m *MockBookingStore) CreateWithExtras(ctx context.Context, b *model.Booking, today time.Time) error {
	args := m.Called(ctx, b, today)
	return args.Error(0)
}

func (m *MockBookingStore) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingStore) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookingStore) ListAll(ctx context.Context) ([]model.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookingStore) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus, at time.Time) error {
	args := m.Called(ctx, id, from, to, at)
	return args.Error(0)
}

// MockPublisher is a mock implementation of EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// MockUserStore is a mock implementation of UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserStore) UpdateRole(ctx context.Context, id string, role model.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *MockUserStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockTokenStore is a mock implementation of TokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	args := m.Called(ctx, userID, tokenHash, exp)
	return args.Error(0)
}

func (m *MockTokenStore) FindValid(ctx context.Context, tokenHash, userID string, now time.Time) error {
	args := m.Called(ctx, tokenHash, userID, now)
	return args.Error(0)
}

func (m *MockTokenStore) DeleteByHash(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockTokenStore) Rotate(ctx context.Context, userID, oldHash, newHash string, exp time.Time) error {
	args := m.Called(ctx, userID, oldHash, newHash, exp)
	return args.Error(0)
}

func (m *MockTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockCarStore is a mock implementation of CarStore
type MockCarStore struct {
	mock.Mock
}

func (m *MockCarStore) List(ctx context.Context, limit, offset int) ([]model.Car, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.Car), args.Get(1).(int64), args.Error(2)
}

func (m *MockCarStore) GetByID(ctx context.Context, id string) (*model.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Car), args.Error(1)
}

func (m *MockCarStore) Create(ctx context.Context, c *model.Car) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCarStore) Update(ctx context.Context, c *model.Car) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCarStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func active(s model.BookingStatus) bool {
	for _, a := range model.ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// overlaps mirrors the closed-interval test the repository runs in SQL:
// ranges sharing a single boundary day overlap.
func overlaps(a, b model.DateRange) bool {
	return !a.Start.After(b.End) && !a.End.Before(b.Start)
}

// memBookingStore keeps bookings in memory and serializes creates with a
// mutex, the way the car row lock does in MySQL.
type memBookingStore struct {
	mu       sync.Mutex
	cars     map[string]bool
	bookings []model.Booking
}

func newMemBookingStore(cars ...string) *memBookingStore {
	s := &memBookingStore{cars: map[string]bool{}}
	for _, c := range cars {
		s.cars[c] = true
	}
	return s
}

func (s *memBookingStore) BookedRanges(_ context.Context, carID string, today time.Time, window *model.DateRange) ([]model.DateRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.DateRange{}
	for _, b := range s.bookings {
		if b.CarID != carID || !active(b.Status) || b.EndDate.Before(today) {
			continue
		}
		if window != nil && !overlaps(b.Range(), *window) {
			continue
		}
		out = append(out, b.Range())
	}
	return out, nil
}

func (s *memBookingStore) CreateWithExtras(_ context.Context, b *model.Booking, today time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cars[b.CarID] {
		return repository.ErrNotFound
	}
	for _, existing := range s.bookings {
		if existing.CarID == b.CarID && active(existing.Status) &&
			!existing.EndDate.Before(today) && overlaps(existing.Range(), b.Range()) {
			return repository.ErrConflict
		}
	}
	b.Car = &model.CarSummary{ID: b.CarID}
	s.bookings = append(s.bookings, *b)
	return nil
}

func (s *memBookingStore) GetByID(_ context.Context, id string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == id {
			cp := b
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memBookingStore) ListByUser(_ context.Context, userID string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Booking{}
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memBookingStore) ListAll(_ context.Context) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Booking{}, s.bookings...), nil
}

func (s *memBookingStore) UpdateStatus(_ context.Context, id string, from, to model.BookingStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			if s.bookings[i].Status != from {
				return repository.ErrStaleStatus
			}
			s.bookings[i].Status = to
			s.bookings[i].UpdatedAt = at
			return nil
		}
	}
	return repository.ErrStaleStatus
}
