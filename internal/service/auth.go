package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/car-rental/internal/apperror"
	"github.com/iliyamo/car-rental/internal/model"
	"github.com/iliyamo/car-rental/internal/repository"
	"github.com/iliyamo/car-rental/internal/utils"
)

// UserStore is the user persistence used by auth and administration.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateRole(ctx context.Context, id string, role model.Role) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// TokenStore records refresh tokens by hash.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	FindValid(ctx context.Context, tokenHash, userID string, now time.Time) error
	DeleteByHash(ctx context.Context, tokenHash string) error
	Rotate(ctx context.Context, userID, oldHash, newHash string, exp time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuthConfig holds signing secrets and lifetimes.
type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	BcryptCost    int
}

// Tokens is the credential pair handed to a client at login or rotation.
type Tokens struct {
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

var (
	ErrInvalidCredentials = apperror.Unauthenticated("invalid credentials")
	ErrSessionExpired     = apperror.Unauthenticated("session expired, please log in again")
	ErrEmailTaken         = apperror.Conflict("email already registered")
)

// RegisterInput is the payload of a self-service sign-up.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService issues, resolves and revokes sessions.
type AuthService struct {
	users  UserStore
	tokens TokenStore
	cfg    AuthConfig
	logger echo.Logger
	now    func() time.Time
}

func NewAuthService(users UserStore, tokens TokenStore, cfg AuthConfig, logger echo.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, cfg: cfg, logger: logger, now: time.Now}
}

// Register creates a USER account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := repository.NormalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, apperror.Validation("a valid email is required")
	}
	if len(in.Password) < 6 {
		return nil, apperror.Validation("password must be at least 6 characters")
	}
	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	now := s.now().UTC()
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, apperror.Internal(err)
	}
	return u, nil
}

// Login verifies credentials and opens a session.  Unknown email and
// wrong password produce the same error after the same bcrypt work.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, Tokens, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPassword(password)
		return nil, Tokens{}, ErrInvalidCredentials
	}
	if err != nil {
		return nil, Tokens{}, apperror.Internal(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, Tokens{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	access, err := s.mintAccess(u, now)
	if err != nil {
		return nil, Tokens{}, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshSecret, u.ID, s.cfg.RefreshTTL, now)
	if err != nil {
		return nil, Tokens{}, apperror.Internal(err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashToken(refresh.Raw), refresh.Exp); err != nil {
		return nil, Tokens{}, apperror.Internal(err)
	}
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warnf("last login for %s not recorded: %v", u.ID, err)
	} else {
		u.LastLogin = &now
	}
	return u, Tokens{Access: access, Refresh: refresh}, nil
}

// Authenticate resolves an access token to the current user row.  The
// role in the token is ignored; the stored role wins.
func (s *AuthService) Authenticate(ctx context.Context, rawAccess string) (*model.User, error) {
	claims, err := utils.ParseAccessToken(s.cfg.AccessSecret, rawAccess)
	if err != nil {
		return nil, apperror.Unauthenticated("invalid or expired token")
	}
	return s.loadUser(ctx, claims.UserID)
}

// Refresh mints a new access token from a refresh token that verifies and
// still has a live, unexpired server row for the same user.  The refresh
// token itself is left unchanged.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*model.User, utils.AccessToken, error) {
	now := s.now().UTC()
	claims, err := s.checkRefresh(ctx, rawRefresh, now)
	if err != nil {
		return nil, utils.AccessToken{}, err
	}
	u, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, utils.AccessToken{}, err
	}
	access, err := s.mintAccess(u, now)
	if err != nil {
		return nil, utils.AccessToken{}, err
	}
	return u, access, nil
}

// Rotate exchanges a live refresh token for a fresh pair.  The old row is
// deleted and the new one inserted atomically; a token that was already
// rotated or revoked cannot be rotated again.
func (s *AuthService) Rotate(ctx context.Context, rawRefresh string) (*model.User, Tokens, error) {
	now := s.now().UTC()
	claims, err := s.checkRefresh(ctx, rawRefresh, now)
	if err != nil {
		return nil, Tokens{}, err
	}
	u, err := s.loadUser(ctx, claims.UserID)
	if err != nil {
		return nil, Tokens{}, err
	}
	next, err := utils.NewRefreshToken(s.cfg.RefreshSecret, u.ID, s.cfg.RefreshTTL, now)
	if err != nil {
		return nil, Tokens{}, apperror.Internal(err)
	}
	switch err := s.tokens.Rotate(ctx, u.ID, utils.HashToken(rawRefresh), utils.HashToken(next.Raw), next.Exp); {
	case errors.Is(err, repository.ErrNotFound):
		return nil, Tokens{}, ErrSessionExpired
	case err != nil:
		return nil, Tokens{}, apperror.Internal(err)
	}
	access, err := s.mintAccess(u, now)
	if err != nil {
		return nil, Tokens{}, err
	}
	return u, Tokens{Access: access, Refresh: next}, nil
}

// Logout deletes the server row of the refresh token, if any.  The raw
// value is hashed without verifying it; an unknown hash deletes nothing.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	return s.tokens.DeleteByHash(ctx, utils.HashToken(rawRefresh))
}

// PurgeExpiredTokens removes refresh rows past their expiry.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.now().UTC())
}

func (s *AuthService) checkRefresh(ctx context.Context, raw string, now time.Time) (utils.RefreshClaims, error) {
	claims, err := utils.ParseRefreshToken(s.cfg.RefreshSecret, raw)
	if err != nil {
		return utils.RefreshClaims{}, ErrSessionExpired
	}
	switch err := s.tokens.FindValid(ctx, utils.HashToken(raw), claims.UserID, now); {
	case errors.Is(err, repository.ErrNotFound):
		return utils.RefreshClaims{}, ErrSessionExpired
	case err != nil:
		return utils.RefreshClaims{}, apperror.Internal(err)
	}
	return claims, nil
}

func (s *AuthService) loadUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Unauthenticated("user no longer exists")
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return u, nil
}

func (s *AuthService) mintAccess(u *model.User, now time.Time) (utils.AccessToken, error) {
	tok, err := utils.NewAccessToken(s.cfg.AccessSecret, u.ID, string(u.Role), s.cfg.AccessTTL, now)
	if err != nil {
		return utils.AccessToken{}, apperror.Internal(err)
	}
	return tok, nil
}
