// internal/models/alert.go
package models

import "time"

type AlertType string

const (
	AlertTypeSmoke          AlertType = "Smoke"
	AlertTypeOverload       AlertType = "Overload"
	AlertTypeFullness       AlertType = "Fullness"
	AlertTypeConnectionLost AlertType = "ConnectionLost"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertTypeSmoke, AlertTypeOverload, AlertTypeFullness, AlertTypeConnectionLost:
		return true
	}
	return false
}

// AlertSeverity is ordered Info < Warning < Critical.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "Info"
	SeverityWarning  AlertSeverity = "Warning"
	SeverityCritical AlertSeverity = "Critical"
)

var severityRank = map[AlertSeverity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityCritical: 2,
}

func (s AlertSeverity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

func (s AlertSeverity) Rank() int {
	rank, ok := severityRank[s]
	if !ok {
		return -1
	}
	return rank
}

// Alert is a recorded anomaly on a bin. Type and severity never change after
// creation; the only transition is unresolved -> resolved.
type Alert struct {
	ID          string        `bson:"_id" json:"id"`
	BinID       string        `bson:"binId" json:"binId"`
	Type        AlertType     `bson:"type" json:"type"`
	Severity    AlertSeverity `bson:"severity" json:"severity"`
	Message     string        `bson:"message" json:"message"`
	ValueAtTime string        `bson:"valueAtTime,omitempty" json:"valueAtTime,omitempty"`
	IsResolved  bool          `bson:"isResolved" json:"isResolved"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
	ResolvedAt  *time.Time    `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}
