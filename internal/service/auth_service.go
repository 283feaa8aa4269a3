package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"auth-template/internal/domain"
	"auth-template/internal/mailer"
	"auth-template/internal/ratelimit"
	"auth-template/internal/repository"
	"auth-template/internal/token"
)

// AuthConfig holds the knobs of the login flows.
type AuthConfig struct {
	OTPTTL      time.Duration
	DebugMode   bool
	ProjectName string
	// HashCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	HashCost int
}

// OTPResult is returned after an OTP has been issued. OTP is only set in debug mode.
type OTPResult struct {
	OTP string
}

// LoginResult carries the tokens handed out after a successful OTP login.
type LoginResult struct {
	Username     string
	AccessToken  string
	RefreshToken string
	IsNewUser    bool
}

// Caller is the authenticated user behind a request.
type Caller struct {
	ID       string
	Username string
	Email    string
	RoleID   *int64
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool {
	return c.RoleID != nil && *c.RoleID == domain.RoleAdmin
}

// AuthService describes the email OTP login flow and the password based alternative.
type AuthService interface {
	RequestOTP(ctx context.Context, email string) (*OTPResult, error)
	IssueTokens(ctx context.Context, email, otp string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Authorize(ctx context.Context, accessToken string) (*Caller, error)
	Logout(ctx context.Context, userID string) error

	SignUp(ctx context.Context, name, email, password string) (*domain.User, error)
	PasswordLogin(ctx context.Context, email, password string) (*domain.User, string, error)
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
}

type authService struct {
	users   repository.UserRepository
	tokens  *token.Manager
	limiter ratelimit.AttemptLimiter
	mail    mailer.Dispatcher
	cfg     AuthConfig
	logger  logrus.FieldLogger
	now     func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	tokens *token.Manager,
	limiter ratelimit.AttemptLimiter,
	mail mailer.Dispatcher,
	cfg AuthConfig,
	logger logrus.FieldLogger,
) AuthService {
	return &authService{
		users:   users,
		tokens:  tokens,
		limiter: limiter,
		mail:    mail,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) clock() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func (s *authService) RequestOTP(ctx context.Context, email string) (*OTPResult, error) {
	email = normalizeEmail(email)
	user, err := s.findOrCreate(ctx, email, nil, nil)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	now := s.clock()
	if user.LoggedIn(now, s.tokens.AccessTTL()) {
		return nil, ErrAlreadyLoggedIn
	}
	if user.OTPCreatedAt != nil {
		if expires := user.OTPCreatedAt.Add(s.cfg.OTPTTL); now.Before(expires) {
			return nil, &CooldownError{Remaining: expires.Sub(now)}
		}
	}

	otp, err := generateOTP()
	if err != nil {
		return nil, err
	}
	hash, err := hashSecret(otp, s.cfg.HashCost)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateTokenState(ctx, user.ID, repository.TokenState{
		HashedOTP:    &hash,
		OTPCreatedAt: &now,
	}); err != nil {
		return nil, &WriteError{Err: err}
	}

	if s.cfg.DebugMode {
		return &OTPResult{OTP: otp}, nil
	}

	err = s.mail.Dispatch(ctx, mailer.OTPMessage{
		To:          user.Email,
		Name:        user.Email,
		OTP:         otp,
		ProjectName: s.cfg.ProjectName,
	})
	if err != nil {
		s.logger.WithField("user_id", user.ID).Errorf("dispatch otp email: %v", err)
		// Without the email the stored OTP only blocks the user behind the cooldown.
		if clearErr := s.users.UpdateTokenState(ctx, user.ID, repository.TokenState{}); clearErr != nil {
			s.logger.WithField("user_id", user.ID).Warnf("clear undelivered otp: %v", clearErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrMailUnavailable, err)
	}
	return &OTPResult{}, nil
}

// findOrCreate loads the user with email, registering it first when unknown.
func (s *authService) findOrCreate(ctx context.Context, email string, fullName, passwordHash *string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, unavailable("load user", err)
	}

	username, err := s.uniqueUsername(ctx, email)
	if err != nil {
		return nil, err
	}
	role := domain.RoleUser
	user = &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		UserType:     domain.UserTypeUser,
		RoleID:       &role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race against a concurrent registration of the same email.
			if existing, getErr := s.users.GetByEmail(ctx, email); getErr == nil {
				return existing, nil
			}
		}
		return nil, &WriteError{Err: err}
	}
	s.logger.WithField("user_id", user.ID).Infof("registered user %s", user.Username)
	return user, nil
}

func (s *authService) uniqueUsername(ctx context.Context, email string) (string, error) {
	base, _, _ := strings.Cut(email, "@")
	if base == "" {
		base = "user"
	}
	candidate := base
	for i := 0; i < 10; i++ {
		exists, err := s.users.UsernameExists(ctx, candidate)
		if err != nil {
			return "", unavailable("check username", err)
		}
		if !exists {
			return candidate, nil
		}
		suffix, err := randomSuffix()
		if err != nil {
			return "", err
		}
		candidate = base + suffix
	}
	return base + strings.ReplaceAll(uuid.NewString(), "-", "")[:8], nil
}

// verifyOTP checks otp against the one stored for user, counting failures.
func (s *authService) verifyOTP(ctx context.Context, user *domain.User, otp string) error {
	if user.HashedOTP == nil || user.OTPCreatedAt == nil {
		return ErrOTPNotRequested
	}
	allowed, err := s.limiter.Allow(ctx, user.Email)
	if err != nil {
		return unavailable("check attempts", err)
	}
	if !allowed {
		return ErrTooManyAttempts
	}
	if user.OTPCreatedAt.Add(s.cfg.OTPTTL).Before(s.clock()) {
		return ErrOTPExpired
	}
	if !matchesHash(user.HashedOTP, strings.TrimSpace(otp)) {
		if err := s.limiter.Fail(ctx, user.Email); err != nil {
			s.logger.WithField("user_id", user.ID).Warnf("record failed attempt: %v", err)
		}
		return ErrIncorrectOTP
	}
	if err := s.limiter.Reset(ctx, user.Email); err != nil {
		s.logger.WithField("user_id", user.ID).Warnf("reset attempts: %v", err)
	}
	return nil
}

func (s *authService) loadByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable("load user", err)
	}
	return user, nil
}

func (s *authService) IssueTokens(ctx context.Context, email, otp string) (*LoginResult, error) {
	user, err := s.loadByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.LoggedIn(s.clock(), s.tokens.AccessTTL()) {
		return nil, ErrAlreadyLoggedIn
	}
	if err := s.verifyOTP(ctx, user, otp); err != nil {
		return nil, err
	}

	now := s.clock()
	if err := s.users.UpdateTokenState(ctx, user.ID, repository.TokenState{LastLoginAt: &now}); err != nil {
		return nil, &WriteError{Err: err}
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("user_id", user.ID).Info("user logged in")
	return &LoginResult{
		Username:     user.Username,
		AccessToken:  access,
		RefreshToken: refresh,
		IsNewUser:    user.Profile.Age == nil,
	}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", unavailable("load user", err)
	}
	if !user.IsActive {
		return "", ErrUserNotFound
	}
	return s.tokens.IssueAccess(user.ID)
}

func (s *authService) Authorize(ctx context.Context, accessToken string) (*Caller, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable("load user", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if user.LastLoginAt == nil {
		return nil, ErrNotLoggedIn
	}
	// Tokens minted before the current login were revoked by logout.
	if claims.IssuedAt == nil || claims.IssuedAt.Time.Before(*user.LastLoginAt) {
		return nil, ErrNotLoggedIn
	}
	return &Caller{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		RoleID:   user.RoleID,
	}, nil
}

func (s *authService) Logout(ctx context.Context, userID string) error {
	if err := s.users.UpdateTokenState(ctx, userID, repository.TokenState{}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return &WriteError{Err: err}
	}
	s.logger.WithField("user_id", userID).Info("user logged out")
	return nil
}

func (s *authService) SignUp(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, unavailable("load user", err)
	}

	hash, err := hashSecret(password, s.cfg.HashCost)
	if err != nil {
		return nil, err
	}
	var fullName *string
	if name = strings.TrimSpace(name); name != "" {
		fullName = &name
	}
	user, err := s.findOrCreate(ctx, email, fullName, &hash)
	if err != nil {
		return nil, err
	}
	if !matchesHash(user.PasswordHash, password) {
		return nil, ErrEmailTaken
	}
	return sanitizeUser(user), nil
}

func (s *authService) PasswordLogin(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.loadByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !user.IsActive || !matchesHash(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	now := s.clock()
	if err := s.users.UpdateTokenState(ctx, user.ID, repository.TokenState{LastLoginAt: &now}); err != nil {
		return nil, "", &WriteError{Err: err}
	}
	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, "", err
	}
	return sanitizeUser(user), access, nil
}

func (s *authService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	user, err := s.loadByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return ErrUserInactive
	}
	if err := s.verifyOTP(ctx, user, otp); err != nil {
		return err
	}

	hash, err := hashSecret(newPassword, s.cfg.HashCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return &WriteError{Err: err}
	}
	// The OTP is single use; an existing login survives the reset.
	if err := s.users.UpdateTokenState(ctx, user.ID, repository.TokenState{LastLoginAt: user.LastLoginAt}); err != nil {
		return &WriteError{Err: err}
	}
	s.logger.WithField("user_id", user.ID).Info("password reset")
	return nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.HashedOTP = nil
	clean.PasswordHash = nil
	return &clean
}
