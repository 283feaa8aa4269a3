package token

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("secret", "HS256", time.Minute, time.Hour)
	require.NoError(t, err)
	return m
}

func TestNewManagerRejectsNonHMAC(t *testing.T) {
	_, err := NewManager("secret", "RS256", time.Minute, time.Hour)
	assert.Error(t, err)

	_, err = NewManager("", "HS256", time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestIssueAndParse(t *testing.T) {
	m := newTestManager(t)

	access, err := m.IssueAccess("user-1")
	require.NoError(t, err)
	refresh, err := m.IssueRefresh("user-1")
	require.NoError(t, err)

	claims, err := m.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, TypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)

	claims, err = m.ParseRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, claims.Type)

	_, err = m.ParseAccess(refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
	_, err = m.ParseRefresh(access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestParseExpired(t *testing.T) {
	m := newTestManager(t)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	access, err := m.IssueAccess("user-1")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ParseAccess(access)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseInvalid(t *testing.T) {
	m := newTestManager(t)

	_, err := m.ParseAccess("not-a-jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = m.ParseAccess("")
	assert.ErrorIs(t, err, ErrTokenMissing)

	other, err := NewManager("other-secret", "HS256", time.Minute, time.Hour)
	require.NoError(t, err)
	forged, err := other.IssueAccess("user-1")
	require.NoError(t, err)
	_, err = m.ParseAccess(forged)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Type: TypeAccess}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ParseAccess(none)
	assert.True(t, errors.Is(err, ErrTokenInvalid))
}

func TestExtract(t *testing.T) {
	tests := map[string]struct {
		header string
		cookie string
		want   string
		err    error
	}{
		"bearer header":   {header: "Bearer abc", want: "abc"},
		"lowercase":       {header: "bearer abc", want: "abc"},
		"missing scheme":  {header: "abc", err: ErrBadHeader},
		"wrong scheme":    {header: "Basic abc", err: ErrBadHeader},
		"cookie fallback": {cookie: "xyz", want: "xyz"},
		"nothing":         {err: ErrTokenMissing},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tc.cookie})
			}
			got, err := Extract(req, AccessCookie)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
