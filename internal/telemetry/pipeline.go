package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/models"
)

// Sources a sample can arrive from.
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

// Ingest outcomes reported to the Recorder.
const (
	OutcomeOK         = "ok"
	OutcomeNotFound   = "not_found"
	OutcomeInvalid    = "invalid"
	OutcomeError      = "error"
	OutcomeAlertError = "alert_error"
)

// BinRecorder applies a sample and appends it to history in one atomic step.
type BinRecorder interface {
	RecordTelemetry(ctx context.Context, binID string, sample models.Telemetry) (*models.Bin, error)
}

type AlertCreator interface {
	Create(ctx context.Context, alert models.Alert) (*models.Alert, error)
}

// Notifier pushes a stored alert to live consumers. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Recorder receives pipeline measurements.
type Recorder interface {
	SampleIngested(source, outcome string, elapsed time.Duration)
	AlertRaised(typ models.AlertType, severity models.AlertSeverity)
}

// Result is what one successful ingestion produced.
type Result struct {
	Bin    *models.Bin    `json:"bin"`
	Alerts []models.Alert `json:"alerts"`
}

// Pipeline runs a sample through record, evaluate, persist and notify.
// Samples for the same bin are processed one at a time.
type Pipeline struct {
	bins     BinRecorder
	alerts   AlertCreator
	rules    *RuleEngine
	notifier Notifier
	recorder Recorder
	log      zerolog.Logger
	locks    *keyedMutex
	now      func() time.Time
}

// NewPipeline wires the stages. notifier and recorder may be nil.
func NewPipeline(bins BinRecorder, alerts AlertCreator, rules *RuleEngine, notifier Notifier, recorder Recorder, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		bins:     bins,
		alerts:   alerts,
		rules:    rules,
		notifier: notifier,
		recorder: recorder,
		log:      log.With().Str("component", "pipeline").Logger(),
		locks:    newKeyedMutex(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ingest processes one sample for binID. On an alert persistence failure the
// returned Result still carries the bin and the alerts stored before it.
func (p *Pipeline) Ingest(ctx context.Context, source, binID string, sample models.Telemetry) (*Result, error) {
	start := time.Now()
	res, outcome, err := p.ingest(ctx, binID, sample)
	if p.recorder != nil {
		p.recorder.SampleIngested(source, outcome, time.Since(start))
	}
	if err != nil {
		return res, err
	}

	for _, a := range res.Alerts {
		if p.recorder != nil {
			p.recorder.AlertRaised(a.Type, a.Severity)
		}
		if p.notifier == nil {
			continue
		}
		if nerr := p.notifier.Notify(ctx, a); nerr != nil {
			p.log.Warn().Err(nerr).Str("alert_id", a.ID).Str("bin_id", binID).Msg("alert notification failed")
		}
	}

	p.log.Debug().
		Str("source", source).
		Str("bin_id", binID).
		Int("fill_level", sample.FillLevel).
		Int("alerts", len(res.Alerts)).
		Msg("sample ingested")
	return res, nil
}

func (p *Pipeline) ingest(ctx context.Context, binID string, sample models.Telemetry) (*Result, string, error) {
	if binID == "" {
		return nil, OutcomeInvalid, apperror.Validation("bin id is required")
	}
	sample = sample.Stamped(p.now())

	unlock := p.locks.Lock(binID)
	defer unlock()

	bin, err := p.bins.RecordTelemetry(ctx, binID, sample)
	if err != nil {
		return nil, outcomeFor(err), err
	}

	res := &Result{Bin: bin, Alerts: []models.Alert{}}
	for _, intent := range p.rules.Evaluate(sample) {
		stored, err := p.alerts.Create(ctx, models.Alert{
			BinID:       binID,
			Type:        intent.Type,
			Severity:    intent.Severity,
			Message:     intent.Message,
			ValueAtTime: intent.ValueAtTime,
		})
		if err != nil {
			return res, OutcomeAlertError, fmt.Errorf("persist %s alert for bin %s: %w", intent.Type, binID, err)
		}
		res.Alerts = append(res.Alerts, *stored)
	}
	return res, OutcomeOK, nil
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, apperror.ErrValidation):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
