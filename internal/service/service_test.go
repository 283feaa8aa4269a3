package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"auth-template/internal/mailer"
	"auth-template/internal/ratelimit"
	"auth-template/internal/repository"
	"auth-template/internal/repository/sqlite"
	"auth-template/internal/token"
)

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []mailer.OTPMessage
	err  error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, msg mailer.OTPMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, msg)
	return nil
}

func (d *fakeDispatcher) last() mailer.OTPMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sent[len(d.sent)-1]
}

type fixture struct {
	db     *sql.DB
	users  repository.UserRepository
	roles  repository.RoleRepository
	tokens *token.Manager
	mail   *fakeDispatcher
	auth   *authService
}

func newFixture(t *testing.T, debug bool) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	roles := sqlite.NewRoleRepository(db)
	require.NoError(t, roles.Init(ctx))
	require.NoError(t, users.Init(ctx))

	tokens, err := token.NewManager("secret", "HS256", 30*time.Minute, time.Hour)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	mail := &fakeDispatcher{}
	auth := NewAuthService(users, tokens, ratelimit.NewMemoryLimiter(3, time.Minute), mail, AuthConfig{
		OTPTTL:      2 * time.Minute,
		DebugMode:   debug,
		ProjectName: "Auth Template",
		HashCost:    bcrypt.MinCost,
	}, logger).(*authService)

	return &fixture{db: db, users: users, roles: roles, tokens: tokens, mail: mail, auth: auth}
}

// login runs the OTP flow for email and returns the issued tokens.
func (f *fixture) login(t *testing.T, email string) *LoginResult {
	t.Helper()
	ctx := context.Background()
	res, err := f.auth.RequestOTP(ctx, email)
	require.NoError(t, err)
	otp := res.OTP
	if otp == "" {
		otp = f.mail.last().OTP
	}
	login, err := f.auth.IssueTokens(ctx, email, otp)
	require.NoError(t, err)
	return login
}

// deactivate marks the account with email as inactive.
func (f *fixture) deactivate(t *testing.T, email string) {
	t.Helper()
	_, err := f.db.ExecContext(context.Background(), `UPDATE base_users SET is_active = ? WHERE email = ?`, false, email)
	require.NoError(t, err)
}

var errBoom = errors.New("boom")
