package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"smartbin-api-server/internal/models"
	"smartbin-api-server/internal/services"
)

type BinLister interface {
	List(ctx context.Context, f services.BinFilter) ([]models.Bin, error)
}

type ActiveAlertStore interface {
	AlertCreator
	HasActive(ctx context.Context, binID string, typ models.AlertType) (bool, error)
}

// Watchdog raises a ConnectionLost alert for Active bins whose last sample is
// older than the threshold. A bin gets at most one unresolved ConnectionLost
// alert at a time.
type Watchdog struct {
	bins      BinLister
	alerts    ActiveAlertStore
	notifier  Notifier
	recorder  Recorder
	threshold time.Duration
	interval  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewWatchdog(bins BinLister, alerts ActiveAlertStore, notifier Notifier, recorder Recorder, threshold, interval time.Duration, log zerolog.Logger) *Watchdog {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watchdog{
		bins:      bins,
		alerts:    alerts,
		notifier:  notifier,
		recorder:  recorder,
		threshold: threshold,
		interval:  interval,
		log:       log.With().Str("component", "watchdog").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run scans on every tick until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("threshold", w.threshold).Dur("interval", w.interval).Msg("connection watchdog started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("connection watchdog stopped")
			return nil
		case <-ticker.C:
			raised, err := w.Scan(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("watchdog scan failed")
				continue
			}
			if raised > 0 {
				w.log.Info().Int("raised", raised).Msg("connection lost alerts raised")
			}
		}
	}
}

// Scan runs one pass and returns the number of alerts raised.
func (w *Watchdog) Scan(ctx context.Context) (int, error) {
	bins, err := w.bins.List(ctx, services.BinFilter{Status: models.BinStatusActive})
	if err != nil {
		return 0, err
	}

	now := w.now()
	raised := 0
	for _, b := range bins {
		lastSeen, ok := b.LastSeen()
		if !ok || now.Sub(lastSeen) < w.threshold {
			continue
		}
		open, err := w.alerts.HasActive(ctx, b.ID, models.AlertTypeConnectionLost)
		if err != nil {
			return raised, err
		}
		if open {
			continue
		}

		stored, err := w.alerts.Create(ctx, models.Alert{
			BinID:       b.ID,
			Type:        models.AlertTypeConnectionLost,
			Severity:    models.SeverityWarning,
			Message:     fmt.Sprintf("no telemetry for %s", now.Sub(lastSeen).Round(time.Minute)),
			ValueAtTime: lastSeen.Format(time.RFC3339),
		})
		if err != nil {
			return raised, err
		}
		raised++

		if w.recorder != nil {
			w.recorder.AlertRaised(stored.Type, stored.Severity)
		}
		if w.notifier != nil {
			if err := w.notifier.Notify(ctx, *stored); err != nil {
				w.log.Warn().Err(err).Str("alert_id", stored.ID).Msg("alert notification failed")
			}
		}
	}
	return raised, nil
}
