package models

import "time"

type ShiftLog struct {
	ID                  string     `bson:"_id" json:"id"`
	UserID              string     `bson:"userId" json:"userId"`
	StartedAt           time.Time  `bson:"startedAt" json:"startedAt"`
	EndedAt             *time.Time `bson:"endedAt,omitempty" json:"endedAt,omitempty"` // nil while the shift is open
	CleanedBins         []string   `bson:"cleanedBins" json:"cleanedBins"`
	DistanceTravelledKm float64    `bson:"distanceTravelledKm" json:"distanceTravelledKm"`
	Route               string     `bson:"route" json:"route"`
	CreatedAt           time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time  `bson:"updatedAt" json:"updatedAt"`
}
