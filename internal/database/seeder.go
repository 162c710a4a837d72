// server/internal/database/seeder.go
package database

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"smartbin-api-server/config"
	"smartbin-api-server/internal/apperror"
	"smartbin-api-server/internal/auth"
	"smartbin-api-server/internal/models"
)

// MaxSeedBins caps a single seeding request.
const MaxSeedBins = 1000

// Seeded bins are scattered over Almaty.
const (
	seedMinLongitude = 76.80
	seedMaxLongitude = 77.00
	seedMinLatitude  = 43.20
	seedMaxLatitude  = 43.30
	seedHistoryLen   = 5
)

// SeedAdmin creates the administrator account unless a user with the
// configured nickname already exists.
func SeedAdmin(ctx context.Context, users Repository[models.User], hasher auth.PasswordHasher, cfg config.SeedConfig, log zerolog.Logger) error {
	if cfg.AdminNickname == "" {
		return apperror.Validation("seed admin nickname is empty")
	}

	_, err := users.FindOne(ctx, bson.M{"nickname": cfg.AdminNickname})
	if err == nil {
		log.Info().Str("nickname", cfg.AdminNickname).Msg("admin already exists, seeding skipped")
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	if cfg.AdminPassword == "" {
		return apperror.Validation("seed admin password is not configured")
	}
	hashed, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now().UTC()
	admin := models.User{
		ID:                    NewID(),
		Nickname:              cfg.AdminNickname,
		FullName:              cfg.AdminFullName,
		PasswordHash:          hashed,
		Role:                  models.RoleAdmin,
		PasswordLastChangedAt: now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := users.Insert(ctx, &admin); err != nil {
		return err
	}

	log.Info().Str("nickname", admin.Nickname).Msg("admin seeded")
	return nil
}

// SeedBins inserts count random bins with a short synthetic history.
func SeedBins(ctx context.Context, bins Repository[models.Bin], count int, rng *rand.Rand, now time.Time) ([]models.Bin, error) {
	if count < 1 || count > MaxSeedBins {
		return nil, apperror.Validation("seed count must be between 1 and %d, got %d", MaxSeedBins, count)
	}

	types := []models.BinType{models.BinTypeDumpster, models.BinTypeCityBin}
	statuses := []models.BinStatus{models.BinStatusActive, models.BinStatusInactive, models.BinStatusMaintenance}

	out := make([]models.Bin, 0, count)
	for i := 0; i < count; i++ {
		history := make([]models.Telemetry, seedHistoryLen)
		for j := range history {
			history[j] = randomTelemetry(rng, now)
		}
		sort.Slice(history, func(a, b int) bool { return history[a].Timestamp.Before(history[b].Timestamp) })
		current := history[len(history)-1]

		bin := models.Bin{
			ID:   NewID(),
			Type: types[rng.Intn(len(types))],
			Location: models.NewGeoPoint(
				seedMinLongitude+rng.Float64()*(seedMaxLongitude-seedMinLongitude),
				seedMinLatitude+rng.Float64()*(seedMaxLatitude-seedMinLatitude),
			),
			Status:           statuses[rng.Intn(len(statuses))],
			Telemetry:        &current,
			TelemetryHistory: history,
			CreatedAt:        now.Add(-time.Duration(rng.Int63n(int64(365 * 24 * time.Hour)))),
			UpdatedAt:        now,
		}
		if err := bins.Insert(ctx, &bin); err != nil {
			return out, err
		}
		out = append(out, bin)
	}
	return out, nil
}

func randomTelemetry(rng *rand.Rand, now time.Time) models.Telemetry {
	return models.Telemetry{
		FillLevel:       rng.Intn(101),
		IsSmokeDetected: rng.Float64() < 0.05,
		IsOverloaded:    rng.Float64() < 0.10,
		Timestamp:       now.Add(-time.Duration(rng.Int63n(int64(24 * time.Hour)))).Truncate(time.Millisecond),
	}
}
