package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartbin-api-server/internal/models"
)

func TestWatchdogRaisesOncePerSilentBin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	silent := f.newBin(t)
	_, err := f.bins.RecordTelemetry(ctx, silent.ID, models.Telemetry{FillLevel: 10, Timestamp: time.Now().Add(-2 * time.Hour)})
	require.NoError(t, err)

	fresh := f.newBin(t)
	_, err = f.bins.RecordTelemetry(ctx, fresh.ID, models.Telemetry{FillLevel: 10})
	require.NoError(t, err)

	f.newBin(t) // never reported

	parked := f.newBin(t)
	_, err = f.bins.RecordTelemetry(ctx, parked.ID, models.Telemetry{Timestamp: time.Now().Add(-3 * time.Hour)})
	require.NoError(t, err)
	_, err = f.bins.UpdateStatus(ctx, parked.ID, models.BinStatusMaintenance)
	require.NoError(t, err)

	w := NewWatchdog(f.bins, f.alerts, f.notifier, f.recorder, time.Hour, time.Minute, zerolog.Nop())

	raised, err := w.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, raised)

	alerts, err := f.alerts.ListByBin(ctx, silent.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeConnectionLost, alerts[0].Type)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)
	assert.Len(t, f.notifier.alerts, 1)

	raised, err = w.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, raised)

	_, err = f.alerts.Resolve(ctx, alerts[0].ID)
	require.NoError(t, err)
	raised, err = w.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, raised)
}

func TestWatchdogRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	w := NewWatchdog(f.bins, f.alerts, nil, nil, time.Hour, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop")
	}
}
