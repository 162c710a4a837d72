package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/database"
	"smartbin-api-server/internal/models"
	"smartbin-api-server/internal/services"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []models.Alert
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, alert models.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	alerts   map[models.AlertType]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{outcomes: map[string]int{}, alerts: map[models.AlertType]int{}}
}

func (r *countingRecorder) SampleIngested(source, outcome string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[source+"/"+outcome]++
}

func (r *countingRecorder) AlertRaised(typ models.AlertType, severity models.AlertSeverity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[typ]++
}

type fixture struct {
	bins     *services.BinService
	alerts   *services.AlertService
	binRepo  *database.MemoryRepository[models.Bin]
	notifier *recordingNotifier
	recorder *countingRecorder
	pipeline *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	binRepo := database.NewMemoryRepository[models.Bin](database.BinsCollection)
	f := &fixture{
		bins:     services.NewBinService(binRepo),
		alerts:   services.NewAlertService(database.NewMemoryRepository[models.Alert](database.AlertsCollection)),
		binRepo:  binRepo,
		notifier: &recordingNotifier{},
		recorder: newCountingRecorder(),
	}
	f.pipeline = NewPipeline(f.bins, f.alerts, NewRuleEngine(DefaultRuleConfig()), f.notifier, f.recorder, zerolog.Nop())
	return f
}

func (f *fixture) newBin(t *testing.T) *models.Bin {
	t.Helper()
	b, err := f.bins.Create(context.Background(), services.BinInput{
		Type:     models.BinTypeCityBin,
		Location: models.NewGeoPoint(76.92, 43.26),
	})
	require.NoError(t, err)
	return b
}

func TestIngestEndToEndFullnessWarning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1 := f.newBin(t)

	res, err := f.pipeline.Ingest(ctx, SourceHTTP, c1.ID, models.Telemetry{FillLevel: 92})
	require.NoError(t, err)

	stored, err := f.bins.Get(ctx, c1.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Telemetry)
	assert.Equal(t, 92, stored.Telemetry.FillLevel)
	assert.False(t, stored.Telemetry.Timestamp.IsZero())
	assert.Len(t, stored.TelemetryHistory, 1)

	alerts, err := f.alerts.ListByBin(ctx, c1.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeFullness, alerts[0].Type)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)
	assert.False(t, alerts[0].IsResolved)

	require.Len(t, res.Alerts, 1)
	assert.Equal(t, alerts[0].ID, res.Alerts[0].ID)
	assert.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, 1, f.recorder.outcomes["http/ok"])
	assert.Equal(t, 1, f.recorder.alerts[models.AlertTypeFullness])
}

func TestIngestSmokeAndFullProducesTwoAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.newBin(t)

	res, err := f.pipeline.Ingest(ctx, SourceMQTT, b.ID, models.Telemetry{FillLevel: 100, IsSmokeDetected: true})
	require.NoError(t, err)
	require.Len(t, res.Alerts, 2)

	types := map[models.AlertType]models.AlertSeverity{}
	for _, a := range res.Alerts {
		types[a.Type] = a.Severity
	}
	assert.Equal(t, models.SeverityCritical, types[models.AlertTypeSmoke])
	assert.Equal(t, models.SeverityCritical, types[models.AlertTypeFullness])
}

func TestIngestQuietSampleRaisesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.newBin(t)

	res, err := f.pipeline.Ingest(ctx, SourceHTTP, b.ID, models.Telemetry{FillLevel: 50})
	require.NoError(t, err)
	assert.Empty(t, res.Alerts)
	assert.NotNil(t, res.Alerts)

	all, err := f.alerts.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIngestReAlertsOnEverySample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.newBin(t)

	for i := 0; i < 3; i++ {
		_, err := f.pipeline.Ingest(ctx, SourceHTTP, b.ID, models.Telemetry{FillLevel: 95})
		require.NoError(t, err)
	}
	active, err := f.alerts.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestIngestUnknownBinLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pipeline.Ingest(ctx, SourceMQTT, "ghost", models.Telemetry{FillLevel: 100, IsSmokeDetected: true})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	assert.Equal(t, 0, f.binRepo.Len())
	all, err := f.alerts.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, f.notifier.alerts)
	assert.Equal(t, 1, f.recorder.outcomes["mqtt/not_found"])

	_, err = f.pipeline.Ingest(ctx, SourceMQTT, "", models.Telemetry{})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestIngestNotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("socket closed")
	b := f.newBin(t)

	res, err := f.pipeline.Ingest(context.Background(), SourceHTTP, b.ID, models.Telemetry{IsSmokeDetected: true})
	require.NoError(t, err)
	assert.Len(t, res.Alerts, 1)
}

type failingAlerts struct {
	inner  AlertCreator
	failOn models.AlertType
}

func (f failingAlerts) Create(ctx context.Context, alert models.Alert) (*models.Alert, error) {
	if alert.Type == f.failOn {
		return nil, apperror.Storage("insert into alerts", errors.New("disk full"))
	}
	return f.inner.Create(ctx, alert)
}

func TestIngestAlertFailureKeepsEarlierAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.newBin(t)

	p := NewPipeline(f.bins, failingAlerts{inner: f.alerts, failOn: models.AlertTypeFullness}, NewRuleEngine(DefaultRuleConfig()), f.notifier, f.recorder, zerolog.Nop())
	res, err := p.Ingest(ctx, SourceHTTP, b.ID, models.Telemetry{FillLevel: 100, IsSmokeDetected: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrStorage)

	require.NotNil(t, res)
	require.Len(t, res.Alerts, 1)
	assert.Equal(t, models.AlertTypeSmoke, res.Alerts[0].Type)

	stored, err := f.alerts.ListByBin(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	// The sample itself was recorded before the alert stage.
	got, err := f.bins.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, got.TelemetryHistory, 1)
	assert.Empty(t, f.notifier.alerts)
	assert.Equal(t, 1, f.recorder.outcomes["http/alert_error"])
}

func TestIngestConcurrentSamplesForOneBin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.newBin(t)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(level int) {
			defer wg.Done()
			source := SourceHTTP
			if level%2 == 0 {
				source = SourceMQTT
			}
			_, err := f.pipeline.Ingest(ctx, source, b.ID, models.Telemetry{FillLevel: level})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.bins.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, got.TelemetryHistory, n)
	assert.Equal(t, got.TelemetryHistory[n-1].FillLevel, got.Telemetry.FillLevel)
	assert.Equal(t, 0, f.pipeline.locks.size())
}

type overlapDetector struct {
	inflight atomic.Int32
	overlaps atomic.Int32
}

func (d *overlapDetector) RecordTelemetry(ctx context.Context, binID string, sample models.Telemetry) (*models.Bin, error) {
	if d.inflight.Add(1) > 1 {
		d.overlaps.Add(1)
	}
	time.Sleep(2 * time.Millisecond)
	d.inflight.Add(-1)
	return &models.Bin{ID: binID, Telemetry: &sample}, nil
}

func TestIngestSerializesPerBin(t *testing.T) {
	det := &overlapDetector{}
	p := NewPipeline(det, nil, NewRuleEngine(DefaultRuleConfig()), nil, nil, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Ingest(context.Background(), SourceHTTP, "bin-1", models.Telemetry{FillLevel: 10})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(0), det.overlaps.Load())
}
