// internal/services/shift_log_service.go
package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/database"
	"smartbin-api-server/internal/models"
)

type EndShiftInput struct {
	EndedAt             time.Time `json:"endedAt"`
	CleanedBins         []string  `json:"cleanedBins"`
	DistanceTravelledKm float64   `json:"distanceTravelledKm"`
	Route               *string   `json:"route"`
}

type ShiftLogService struct {
	shifts database.Repository[models.ShiftLog]
	users  database.Repository[models.User]
	bins   database.Repository[models.Bin]
	now    func() time.Time
}

func NewShiftLogService(shifts database.Repository[models.ShiftLog], users database.Repository[models.User], bins database.Repository[models.Bin]) *ShiftLogService {
	return &ShiftLogService{shifts: shifts, users: users, bins: bins, now: utcNow}
}

func (s *ShiftLogService) List(ctx context.Context) ([]models.ShiftLog, error) {
	return s.shifts.FindWhere(ctx, nil)
}

func (s *ShiftLogService) Get(ctx context.Context, id string) (*models.ShiftLog, error) {
	return s.shifts.FindByID(ctx, id)
}

// Start opens a shift for an existing user.
func (s *ShiftLogService) Start(ctx context.Context, userID string) (*models.ShiftLog, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now()
	shift := &models.ShiftLog{
		ID:          database.NewID(),
		UserID:      userID,
		StartedAt:   now,
		CleanedBins: []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.shifts.Insert(ctx, shift); err != nil {
		return nil, err
	}
	return shift, nil
}

// End closes a shift. Cleaned bin ids that do not exist are dropped; a nil
// route keeps the stored one.
func (s *ShiftLogService) End(ctx context.Context, id string, in EndShiftInput) (*models.ShiftLog, error) {
	shift, err := s.shifts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.DistanceTravelledKm < 0 {
		return nil, apperror.Validation("distanceTravelledKm must not be negative")
	}

	cleaned := make([]string, 0, len(in.CleanedBins))
	for _, binID := range in.CleanedBins {
		_, err := s.bins.FindByID(ctx, binID)
		if err == nil {
			cleaned = append(cleaned, binID)
			continue
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
	}

	now := s.now()
	ended := in.EndedAt
	if ended.IsZero() {
		ended = now
	}
	if ended.Before(shift.StartedAt) {
		return nil, apperror.Validation("endedAt is before the shift start")
	}

	set := bson.M{
		"endedAt":             ended,
		"cleanedBins":         cleaned,
		"distanceTravelledKm": in.DistanceTravelledKm,
		"updatedAt":           now,
	}
	if in.Route != nil {
		set["route"] = *in.Route
	}
	return s.shifts.UpdateByID(ctx, id, database.Update{Set: set})
}

func (s *ShiftLogService) Delete(ctx context.Context, id string) error {
	return s.shifts.DeleteByID(ctx, id)
}
