package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stackhaven/marketscan/internal/config"
	"github.com/stackhaven/marketscan/internal/scanner"
)

type fakeDatabase struct {
	pingErr    error
	closeCalls int
}

func (f *fakeDatabase) DB() *gorm.DB   { return &gorm.DB{} }
func (f *fakeDatabase) Connect() error { return nil }
func (f *fakeDatabase) Close() error {
	f.closeCalls++
	return nil
}
func (f *fakeDatabase) Migrate(models ...interface{}) error        { return nil }
func (f *fakeDatabase) Ping() error                                { return f.pingErr }
func (f *fakeDatabase) Transaction(fn func(tx *gorm.DB) error) error { return fn(&gorm.DB{}) }

func serverConfig(t *testing.T) *ServerConfig {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Mode = "test"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Auth.Secret = "test-secret-test-secret-test-1234"
	cfg.Scanner.WorkDir = t.TempDir()
	cfg.Scanner.MaxArchiveFiles = 100
	cfg.Scanner.Workers = 2

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := &stubRegistry{}
	return &ServerConfig{
		Config:   cfg,
		Logger:   logger,
		DB:       &fakeDatabase{},
		Registry: store,
		Scanner:  scanner.NewService(cfg, store, scanner.WithServiceLogger(logger)),
	}
}

func TestNewServerValidation(t *testing.T) {
	base := serverConfig(t)

	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"missing config", func(c *ServerConfig) { c.Config = nil }},
		{"missing logger", func(c *ServerConfig) { c.Logger = nil }},
		{"missing database", func(c *ServerConfig) { c.DB = nil }},
		{"missing registry", func(c *ServerConfig) { c.Registry = nil }},
		{"missing scanner", func(c *ServerConfig) { c.Scanner = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			_, err := NewServer(&cfg)
			assert.Error(t, err)
		})
	}
}

func TestNewServerReleaseMode(t *testing.T) {
	defer gin.SetMode(gin.TestMode)

	cfg := serverConfig(t)
	cfg.Config.Server.Mode = "release"

	_, err := NewServer(cfg)
	require.NoError(t, err)
	assert.Equal(t, gin.ReleaseMode, gin.Mode())
}

func TestHealthCheck(t *testing.T) {
	server, err := NewServer(serverConfig(t))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	cfg := serverConfig(t)
	cfg.DB = &fakeDatabase{pingErr: assert.AnError}

	server, err := NewServer(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	server, err := NewServer(serverConfig(t))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/packages/pkg-1/scan", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestShutdownClosesDatabaseOnce(t *testing.T) {
	cfg := serverConfig(t)
	db := &fakeDatabase{}
	cfg.DB = db

	server, err := NewServer(cfg)
	require.NoError(t, err)

	require.NoError(t, server.Start())
	server.Shutdown()

	assert.Equal(t, 1, db.closeCalls)
}

func TestMetricsEndpoint(t *testing.T) {
	server, err := NewServer(serverConfig(t))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
