package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/car-rental/internal/apperror"
	"github.com/iliyamo/car-rental/internal/middleware"
	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/service"
	"github.com/iliyamo/car-rental/internal/utils"
)

// stubAuth resolves fixed bearer tokens to users so tests can call
// handlers as a given caller.
type stubAuth map[string]*model.User

func (s stubAuth) Authenticate(_ context.Context, raw string) (*model.User, error) {
	if u, ok := s[raw]; ok {
		return u, nil
	}
	return nil, apperror.Unauthenticated("invalid or expired token")
}

func (s stubAuth) Refresh(context.Context, string) (*model.User, utils.AccessToken, error) {
	return nil, utils.AccessToken{}, service.ErrSessionExpired
}

var (
	alice  = &model.User{ID: "u-1", Email: "alice@example.com", PasswordHash: "secret-hash", Role: model.RoleUser}
	editor = &model.User{ID: "e-1", Email: "ed@example.com", Role: model.RoleEditor}
	admin  = &model.User{ID: "a-1", Email: "admin@example.com", Role: model.RoleAdmin}
)

// newServer returns an echo instance wired the way the router wires it:
// the shared error handler and the session resolver.
func newServer() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Use(middleware.SessionResolver(stubAuth{
		"alice": alice, "editor": editor, "admin": admin,
	}, middleware.Cookies{}))
	return e
}

// do sends one request.  as names the bearer token to present, "" for
// anonymous.
func do(t *testing.T, e *echo.Echo, method, path, as string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if as != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+as)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput) (*model.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*model.User, service.Tokens, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, service.Tokens{}, args.Error(2)
	}
	return args.Get(0).(*model.User), args.Get(1).(service.Tokens), args.Error(2)
}

func (m *MockAuthService) Rotate(ctx context.Context, raw string) (*model.User, service.Tokens, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, service.Tokens{}, args.Error(2)
	}
	return args.Get(0).(*model.User), args.Get(1).(service.Tokens), args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, raw string) error {
	return m.Called(ctx, raw).Error(0)
}

// MockBookingService is a mock implementation of BookingService
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) BookedRanges(ctx context.Context, carID string, from, to *time.Time) ([]model.DateRange, error) {
	args := m.Called(ctx, carID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DateRange), args.Error(1)
}

func (m *MockBookingService) Create(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, id, callerID string) (*model.Booking, error) {
	args := m.Called(ctx, id, callerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) UpdateStatus(ctx context.Context, id, status string) (*model.Booking, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) ListForUser(ctx context.Context, userID string) ([]model.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

func (m *MockBookingService) ListAll(ctx context.Context) ([]model.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Booking), args.Error(1)
}

// MockCarService is a mock implementation of CarService
type MockCarService struct {
	mock.Mock
}

func (m *MockCarService) List(ctx context.Context, page, limit int) ([]model.Car, model.Pagination, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, model.Pagination{}, args.Error(2)
	}
	return args.Get(0).([]model.Car), args.Get(1).(model.Pagination), args.Error(2)
}

func (m *MockCarService) Get(ctx context.Context, id string) (*model.Car, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Car), args.Error(1)
}

func (m *MockCarService) Create(ctx context.Context, actorID string, in service.CarInput) (*model.Car, error) {
	args := m.Called(ctx, actorID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Car), args.Error(1)
}

func (m *MockCarService) Update(ctx context.Context, actorID, id string, in service.CarInput) (*model.Car, error) {
	args := m.Called(ctx, actorID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Car), args.Error(1)
}

func (m *MockCarService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockUserService is a mock implementation of UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) ChangeRole(ctx context.Context, actorID, targetID, role string) (*model.User, error) {
	args := m.Called(ctx, actorID, targetID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}
