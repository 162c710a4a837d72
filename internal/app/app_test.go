package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartbin-api-server/config"
	"smartbin-api-server/internal/services"
)

func testConfig() config.Config {
	return config.Config{
		Server:  config.ServerConfig{Port: "0", GinMode: "test", ShutdownTimeout: time.Second},
		Storage: config.StorageConfig{Driver: DriverMemory},
		JWT:     config.JWTConfig{Secret: "app-test", Issuer: "smartbin", Audience: "smartbin-clients"},
		Rules: config.RulesConfig{
			FullnessWarningLevel:  90,
			FullnessCriticalLevel: 100,
			ConnectionLostAfter:   time.Hour,
			WatchdogInterval:      time.Hour,
		},
	}
}

func TestNewWithMemoryStorage(t *testing.T) {
	a, err := New(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, a.subscriber)
	assert.NotNil(t, a.watchdog)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Driver = "sqlite"
	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.JWT.Secret = ""
	_, err = New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestSeedBins(t *testing.T) {
	a, err := New(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)

	n, err := a.SeedBins(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	bins, err := a.Bins.List(context.Background(), services.BinFilter{})
	require.NoError(t, err)
	assert.Len(t, bins, 4)

	_, err = a.SeedBins(context.Background(), 0)
	assert.Error(t, err)
}

func TestSeedAdminRequiresPassword(t *testing.T) {
	a, err := New(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)
	a.cfg.Seed = config.SeedConfig{AdminNickname: "admin"}
	assert.Error(t, a.SeedAdmin(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), testConfig(), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
