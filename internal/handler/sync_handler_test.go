package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"assessment-sync-be/internal/config"
	internalWS "assessment-sync-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	hub := internalWS.NewHub(config.SyncConfig{
		MaxConnections: 10,
		MaxMessageSize: 64 * 1024,
		PresenceTTL:    time.Minute,
		PresenceSweep:  time.Minute,
	}, nopLogger{})

	app := fiber.New()
	h := NewSyncHandler(hub, nil, nopLogger{})
	h.RegisterRoutes(app.Group("/api"))
	return app
}

func mintToken(t *testing.T, secret, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   userID,
		"full_name": "Test Assessor",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestServeWsRejectsMissingToken(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/sync/ws", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestServeWsRejectsInvalidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "right-secret")
	app := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/sync/ws?token="+mintToken(t, "wrong-secret", "u-1"), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "auth failure is an HTTP 401, not a close code")
}

func TestServeWsRequiresUpgrade(t *testing.T) {
	t.Setenv("JWT_SECRET", "right-secret")
	app := newTestApp(t)

	// Valid credentials but a plain GET: the handler demands an upgrade.
	req := httptest.NewRequest("GET", "/api/sync/ws?token="+mintToken(t, "right-secret", "u-1"), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestServeWsAcceptsHeaderToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "right-secret")
	app := newTestApp(t)

	req := httptest.NewRequest("GET", "/api/sync/ws", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "right-secret", "u-1"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode, "header credential verifies, only the upgrade is missing")
}
