// internal/models/bin.go
package models

import (
	"time"

	"smartbin-api-server/internal/apperror"
)

type BinType string

const (
	BinTypeDumpster BinType = "Dumpster" // fixed container
	BinTypeCityBin  BinType = "CityBin"  // mobile street bin
)

func (t BinType) Valid() bool {
	return t == BinTypeDumpster || t == BinTypeCityBin
}

type BinStatus string

const (
	BinStatusActive      BinStatus = "Active"
	BinStatusInactive    BinStatus = "Inactive"
	BinStatusMaintenance BinStatus = "Maintenance"
)

func (s BinStatus) Valid() bool {
	switch s {
	case BinStatusActive, BinStatusInactive, BinStatusMaintenance:
		return true
	}
	return false
}

func ParseBinStatus(s string) (BinStatus, error) {
	status := BinStatus(s)
	if !status.Valid() {
		return "", apperror.Validation("unknown bin status %q", s)
	}
	return status, nil
}

// Telemetry is one sensor reading. FillLevel is a raw percentage and is not
// range-checked. A zero Timestamp is replaced with the ingestion time.
type Telemetry struct {
	FillLevel       int       `bson:"fillLevel" json:"fillLevel"`
	IsSmokeDetected bool      `bson:"isSmokeDetected" json:"isSmokeDetected"`
	IsOverloaded    bool      `bson:"isOverloaded" json:"isOverloaded"`
	Timestamp       time.Time `bson:"timestamp" json:"timestamp"`
}

// Stamped returns the sample with a zero timestamp replaced by now.
func (t Telemetry) Stamped(now time.Time) Telemetry {
	if t.Timestamp.IsZero() {
		t.Timestamp = now
	}
	return t
}

// Bin is a tracked waste container with its current and historical telemetry.
type Bin struct {
	ID               string      `bson:"_id" json:"id"`
	Type             BinType     `bson:"type" json:"type"`
	Location         GeoPoint    `bson:"location" json:"location"`
	Status           BinStatus   `bson:"status" json:"status"`
	Telemetry        *Telemetry  `bson:"telemetry,omitempty" json:"telemetry,omitempty"`
	TelemetryHistory []Telemetry `bson:"telemetryHistory,omitempty" json:"telemetryHistory"`
	CreatedAt        time.Time   `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// Validate checks the fields a client is allowed to set.
func (b *Bin) Validate() error {
	if !b.Type.Valid() {
		return apperror.Validation("unknown bin type %q", b.Type)
	}
	if !b.Status.Valid() {
		return apperror.Validation("unknown bin status %q", b.Status)
	}
	return b.Location.Validate()
}

// LastSeen returns the timestamp of the current telemetry, if any.
func (b *Bin) LastSeen() (time.Time, bool) {
	if b.Telemetry == nil {
		return time.Time{}, false
	}
	return b.Telemetry.Timestamp, true
}
