package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labpulse/labpulse/internal/auth/jwt"
	"github.com/labpulse/labpulse/internal/common/config"
	"github.com/labpulse/labpulse/internal/common/errorx"
	"github.com/labpulse/labpulse/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAuthenticator(t *testing.T) (*Authenticator, *jwt.Service, *platform.Fake) {
	t.Helper()
	jwtService, err := jwt.NewService(config.JWTConfig{SecretKey: testSecret, Duration: time.Hour})
	require.NoError(t, err)

	fake := platform.NewFake()
	cfg := config.AuthConfig{QueryParam: "token", CookieName: "labpulse_token"}
	return NewAuthenticator(zap.NewNop(), cfg, jwtService, fake), jwtService, fake
}

func assertAuthRejected(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	ce, ok := errorx.AsClientError(err)
	require.True(t, ok)
	// All auth failures look identical on the wire
	assert.Equal(t, errorx.CategoryAuth, ce.Category)
	assert.Equal(t, "authentication required", ce.Message)
}

func TestAuthenticateConnectionSuccess(t *testing.T) {
	a, jwtService, fake := newTestAuthenticator(t)
	fake.AddIdentity(&platform.Identity{ID: "u1", OrgID: "org1", Active: true})

	token, err := jwtService.GenerateToken("u1", "org1", "operator")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/ws/devices?token="+token, nil)
	identity, err := a.AuthenticateConnection(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "u1", identity.ID)
}

func TestAuthenticateConnectionNoCredential(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)

	r := httptest.NewRequest(http.MethodGet, "/ws/devices", nil)
	_, err := a.AuthenticateConnection(context.Background(), r)
	assertAuthRejected(t, err)
}

func TestAuthenticateConnectionBadToken(t *testing.T) {
	a, _, _ := newTestAuthenticator(t)

	r := httptest.NewRequest(http.MethodGet, "/ws/devices?token=garbage", nil)
	_, err := a.AuthenticateConnection(context.Background(), r)
	assertAuthRejected(t, err)
}

func TestAuthenticateConnectionUnknownIdentity(t *testing.T) {
	a, jwtService, _ := newTestAuthenticator(t)

	token, err := jwtService.GenerateToken("ghost", "org1", "operator")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/ws/devices?token="+token, nil)
	_, err = a.AuthenticateConnection(context.Background(), r)
	// Indistinguishable from any other auth failure
	assertAuthRejected(t, err)
}

func TestAuthenticateConnectionInactiveAccount(t *testing.T) {
	a, jwtService, fake := newTestAuthenticator(t)
	fake.AddIdentity(&platform.Identity{ID: "u1", OrgID: "org1", Active: false})

	token, err := jwtService.GenerateToken("u1", "org1", "operator")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/ws/devices?token="+token, nil)
	_, err = a.AuthenticateConnection(context.Background(), r)
	assertAuthRejected(t, err)
}

func TestAuthenticateConnectionDeletedAccount(t *testing.T) {
	a, jwtService, fake := newTestAuthenticator(t)
	fake.AddIdentity(&platform.Identity{ID: "u1", OrgID: "org1", Active: true, Deleted: true})

	token, err := jwtService.GenerateToken("u1", "org1", "operator")
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/ws/devices?token="+token, nil)
	_, err = a.AuthenticateConnection(context.Background(), r)
	assertAuthRejected(t, err)
}
