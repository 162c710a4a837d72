// internal/services/cleaning_log_service.go
package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/database"
	"smartbin-api-server/internal/models"
)

// PhotoUploader stores a proof photo and returns its public URL.
type PhotoUploader interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
}

type CleaningLogInput struct {
	BinID           string    `json:"binId" binding:"required"`
	UserID          string    `json:"userId"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
	RemovedWeightKg int       `json:"removedWeightKg"`
	Notes           string    `json:"notes"`
}

type CleaningLogService struct {
	logs     database.Repository[models.CleaningLog]
	bins     database.Repository[models.Bin]
	uploader PhotoUploader
	log      zerolog.Logger
	now      func() time.Time
}

// NewCleaningLogService builds the service. uploader may be nil, in which
// case photo uploads are rejected.
func NewCleaningLogService(logs database.Repository[models.CleaningLog], bins database.Repository[models.Bin], uploader PhotoUploader, log zerolog.Logger) *CleaningLogService {
	return &CleaningLogService{
		logs:     logs,
		bins:     bins,
		uploader: uploader,
		log:      log.With().Str("component", "cleaning_logs").Logger(),
		now:      utcNow,
	}
}

func (s *CleaningLogService) List(ctx context.Context) ([]models.CleaningLog, error) {
	return s.logs.FindWhere(ctx, nil)
}

func (s *CleaningLogService) ListByBin(ctx context.Context, binID string) ([]models.CleaningLog, error) {
	return s.logs.FindWhere(ctx, bson.M{"binId": binID})
}

func (s *CleaningLogService) Get(ctx context.Context, id string) (*models.CleaningLog, error) {
	return s.logs.FindByID(ctx, id)
}

// Create stores a manual entry as given, without touching the bin.
func (s *CleaningLogService) Create(ctx context.Context, in CleaningLogInput) (*models.CleaningLog, error) {
	entry, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		return nil, err
	}
	s.log.Info().Str("cleaning_log_id", entry.ID).Str("bin_id", entry.BinID).Msg("cleaning log created")
	return entry, nil
}

// LogCleaning records that a crew emptied the bin and sets the bin back to
// Active. The bin must exist.
func (s *CleaningLogService) LogCleaning(ctx context.Context, in CleaningLogInput) (*models.CleaningLog, error) {
	if _, err := s.bins.FindByID(ctx, in.BinID); err != nil {
		s.log.Warn().Err(err).Str("bin_id", in.BinID).Msg("cleaning rejected")
		return nil, err
	}

	entry, err := s.build(in)
	if err != nil {
		return nil, err
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		return nil, err
	}

	if _, err := s.bins.UpdateByID(ctx, in.BinID, database.Update{Set: bson.M{
		"status":    models.BinStatusActive,
		"updatedAt": s.now(),
	}}); err != nil {
		return nil, fmt.Errorf("cleaning logged but bin status not updated: %w", err)
	}

	s.log.Info().
		Str("bin_id", entry.BinID).
		Str("user_id", entry.UserID).
		Int("removed_kg", entry.RemovedWeightKg).
		Msg("cleaning recorded")
	return entry, nil
}

func (s *CleaningLogService) build(in CleaningLogInput) (*models.CleaningLog, error) {
	if in.BinID == "" {
		return nil, apperror.Validation("binId is required")
	}
	if in.RemovedWeightKg < 0 {
		return nil, apperror.Validation("removedWeightKg must not be negative")
	}

	now := s.now()
	finished := in.FinishedAt
	if finished.IsZero() {
		finished = now
	}
	started := in.StartedAt
	if started.IsZero() {
		started = finished
	}
	if finished.Before(started) {
		return nil, apperror.Validation("finishedAt is before startedAt")
	}

	return &models.CleaningLog{
		ID:              database.NewID(),
		BinID:           in.BinID,
		UserID:          in.UserID,
		StartedAt:       started,
		FinishedAt:      finished,
		RemovedWeightKg: in.RemovedWeightKg,
		Notes:           in.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// AttachPhoto uploads a proof photo and stores its URL on the log.
func (s *CleaningLogService) AttachPhoto(ctx context.Context, id string, file io.Reader, contentType string) (*models.CleaningLog, error) {
	if s.uploader == nil {
		return nil, apperror.Validation("photo storage is not configured")
	}
	if _, err := s.logs.FindByID(ctx, id); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("cleaning-logs/%s/%s%s", id, uuid.NewString(), extensionFor(contentType))
	url, err := s.uploader.UploadFile(ctx, file, key, contentType)
	if err != nil {
		return nil, err
	}

	updated, err := s.logs.UpdateByID(ctx, id, database.Update{Set: bson.M{
		"photoURL":  url,
		"updatedAt": s.now(),
	}})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("cleaning_log_id", id).Str("url", url).Msg("photo attached")
	return updated, nil
}

func (s *CleaningLogService) Delete(ctx context.Context, id string) error {
	if err := s.logs.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("cleaning_log_id", id).Msg("cleaning log deleted")
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
