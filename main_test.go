package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"cardanocart/internal/config"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:         "cardanocart-test",
			Env:          "test",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			BodyLimit:    4 * 1024 * 1024,
		},
		Database: config.DatabaseConfig{
			Driver:       "sqlite",
			DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
			MaxOpenConns: 1,
			LogLevel:     "silent",
		},
		JWT: config.JWTConfig{
			Secret:     "test_jwt_secret",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		Storage: config.StorageConfig{
			Driver:   "local",
			BaseURL:  "/media",
			LocalDir: t.TempDir(),
		},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 60, Burst: 10},
	}
}

func TestNewAppServesHealthAndAuth(t *testing.T) {
	app, err := newApp(testConfig(t))
	require.NoError(t, err)
	defer app.close()

	resp, err := app.server.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "connected", health["database"])

	body, _ := json.Marshal(map[string]string{
		"username": "boot",
		"email":    "boot@example.com",
		"password": "password123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.server.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Google login is disabled without a client id
	body, _ = json.Marshal(map[string]string{"credential": "anything"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/google", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.server.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The consumer is a no-op without RabbitMQ
	app.startConsumer(t.Context())
}

func TestNewBlobStoreRejectsUnknownDriver(t *testing.T) {
	_, err := newBlobStore(config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)

	store, err := newBlobStore(config.StorageConfig{Driver: "local", LocalDir: t.TempDir(), BaseURL: "/media"})
	require.NoError(t, err)
	assert.NotNil(t, store)
}
