// internal/services/alert_service.go
package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/database"
	"smartbin-api-server/internal/models"
)

// AlertService manages the alert lifecycle: created unresolved, resolved,
// optionally deleted.
type AlertService struct {
	repo database.Repository[models.Alert]
	now  func() time.Time
}

func NewAlertService(repo database.Repository[models.Alert]) *AlertService {
	return &AlertService{repo: repo, now: utcNow}
}

// Create stores a new unresolved alert. CreatedAt is kept when the caller set it.
func (s *AlertService) Create(ctx context.Context, alert models.Alert) (*models.Alert, error) {
	if strings.TrimSpace(alert.BinID) == "" {
		return nil, apperror.Validation("alert binId is required")
	}
	if !alert.Type.Valid() {
		return nil, apperror.Validation("unknown alert type %q", alert.Type)
	}
	if !alert.Severity.Valid() {
		return nil, apperror.Validation("unknown alert severity %q", alert.Severity)
	}

	now := s.now()
	alert.ID = database.NewID()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now
	if alert.UpdatedAt.Before(alert.CreatedAt) {
		alert.UpdatedAt = alert.CreatedAt
	}
	alert.IsResolved = false
	alert.ResolvedAt = nil

	if err := s.repo.Insert(ctx, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (s *AlertService) ListAll(ctx context.Context) ([]models.Alert, error) {
	return s.repo.FindWhere(ctx, nil)
}

// ListActive returns unresolved alerts in insertion order.
func (s *AlertService) ListActive(ctx context.Context) ([]models.Alert, error) {
	return s.repo.FindWhere(ctx, bson.M{"isResolved": false})
}

func (s *AlertService) ListByBin(ctx context.Context, binID string) ([]models.Alert, error) {
	return s.repo.FindWhere(ctx, bson.M{"binId": binID})
}

// HasActive reports whether the bin has an unresolved alert of the given type.
func (s *AlertService) HasActive(ctx context.Context, binID string, typ models.AlertType) (bool, error) {
	found, err := s.repo.FindWhere(ctx, bson.M{"binId": binID, "type": typ, "isResolved": false})
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

func (s *AlertService) Get(ctx context.Context, id string) (*models.Alert, error) {
	return s.repo.FindByID(ctx, id)
}

// Resolve marks the alert resolved. Resolving twice stamps ResolvedAt again.
func (s *AlertService) Resolve(ctx context.Context, id string) (*models.Alert, error) {
	now := s.now()
	return s.repo.UpdateByID(ctx, id, database.Update{Set: bson.M{
		"isResolved": true,
		"resolvedAt": now,
		"updatedAt":  now,
	}})
}

func (s *AlertService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteByID(ctx, id)
}
