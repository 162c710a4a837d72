// internal/services/bin_service.go
package services

import (
	"context"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/database"
	"smartbin-api-server/internal/models"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

// BinInput carries the client-settable fields of a bin.
type BinInput struct {
	Type     models.BinType   `json:"type" binding:"required"`
	Location models.GeoPoint  `json:"location"`
	Status   models.BinStatus `json:"status"`
}

// BinFilter narrows List. A nil MinFillLevel disables the fill filter; bins
// without telemetry never match a fill filter.
type BinFilter struct {
	Status       models.BinStatus
	MinFillLevel *int
}

// BinService owns container state. All telemetry mutations go through
// single-document update expressions.
type BinService struct {
	repo database.Repository[models.Bin]
	now  func() time.Time
}

func NewBinService(repo database.Repository[models.Bin]) *BinService {
	return &BinService{repo: repo, now: utcNow}
}

func (s *BinService) List(ctx context.Context, f BinFilter) ([]models.Bin, error) {
	filter := bson.M{}
	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, apperror.Validation("unknown bin status %q", f.Status)
		}
		filter["status"] = f.Status
	}

	bins, err := s.repo.FindWhere(ctx, filter)
	if err != nil {
		return nil, err
	}
	if f.MinFillLevel == nil {
		return bins, nil
	}

	out := bins[:0]
	for _, b := range bins {
		if b.Telemetry != nil && b.Telemetry.FillLevel >= *f.MinFillLevel {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *BinService) Get(ctx context.Context, id string) (*models.Bin, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *BinService) Create(ctx context.Context, in BinInput) (*models.Bin, error) {
	now := s.now()
	bin := &models.Bin{
		ID:        database.NewID(),
		Type:      in.Type,
		Location:  in.Location,
		Status:    in.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if bin.Status == "" {
		bin.Status = models.BinStatusActive
	}
	if bin.Location.Type == "" {
		bin.Location.Type = "Point"
	}
	if err := bin.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, bin); err != nil {
		return nil, err
	}
	return bin, nil
}

// Update replaces type, location and status. Telemetry, history and
// CreatedAt are kept. An empty status keeps the current one.
func (s *BinService) Update(ctx context.Context, id string, in BinInput) (*models.Bin, error) {
	if in.Location.Type == "" {
		in.Location.Type = "Point"
	}
	if !in.Type.Valid() {
		return nil, apperror.Validation("unknown bin type %q", in.Type)
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, apperror.Validation("unknown bin status %q", in.Status)
	}
	if err := in.Location.Validate(); err != nil {
		return nil, err
	}

	set := bson.M{
		"type":      in.Type,
		"location":  in.Location,
		"updatedAt": s.now(),
	}
	if in.Status != "" {
		set["status"] = in.Status
	}
	return s.repo.UpdateByID(ctx, id, database.Update{Set: set})
}

func (s *BinService) UpdateStatus(ctx context.Context, id string, status models.BinStatus) (*models.Bin, error) {
	if !status.Valid() {
		return nil, apperror.Validation("unknown bin status %q", status)
	}
	return s.repo.UpdateByID(ctx, id, database.Update{Set: bson.M{
		"status":    status,
		"updatedAt": s.now(),
	}})
}

func (s *BinService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteByID(ctx, id)
}

// ApplyTelemetry replaces the current telemetry wholesale.
func (s *BinService) ApplyTelemetry(ctx context.Context, id string, sample models.Telemetry) (*models.Bin, error) {
	now := s.now()
	sample = sample.Stamped(now)
	return s.repo.UpdateByID(ctx, id, database.Update{Set: bson.M{
		"telemetry": sample,
		"updatedAt": now,
	}})
}

// AppendTelemetryHistory appends the sample to the end of the history.
func (s *BinService) AppendTelemetryHistory(ctx context.Context, id string, sample models.Telemetry) (*models.Bin, error) {
	now := s.now()
	sample = sample.Stamped(now)
	return s.repo.UpdateByID(ctx, id, database.Update{
		Set:  bson.M{"updatedAt": now},
		Push: bson.M{"telemetryHistory": sample},
	})
}

// RecordTelemetry applies the sample and appends it to history in one
// storage update, so the two can never diverge.
func (s *BinService) RecordTelemetry(ctx context.Context, id string, sample models.Telemetry) (*models.Bin, error) {
	now := s.now()
	sample = sample.Stamped(now)
	return s.repo.UpdateByID(ctx, id, database.Update{
		Set:  bson.M{"telemetry": sample, "updatedAt": now},
		Push: bson.M{"telemetryHistory": sample},
	})
}

// History returns the newest limit entries, oldest first. limit <= 0 returns
// the whole history.
func (s *BinService) History(ctx context.Context, id string, limit int) ([]models.Telemetry, error) {
	bin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	history := bin.TelemetryHistory
	if history == nil {
		history = []models.Telemetry{}
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

// Seed inserts count random bins around Almaty.
func (s *BinService) Seed(ctx context.Context, count int) ([]models.Bin, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return database.SeedBins(ctx, s.repo, count, rng, s.now())
}
