package models

import "time"

// CleaningLog records one emptying of a bin by a crew member.
type CleaningLog struct {
	ID              string    `bson:"_id" json:"id"`
	BinID           string    `bson:"binId" json:"binId"`
	UserID          string    `bson:"userId" json:"userId"`
	StartedAt       time.Time `bson:"startedAt" json:"startedAt"`
	FinishedAt      time.Time `bson:"finishedAt" json:"finishedAt"`
	RemovedWeightKg int       `bson:"removedWeightKg" json:"removedWeightKg"`
	Notes           string    `bson:"notes" json:"notes"`
	PhotoURL        string    `bson:"photoURL,omitempty" json:"photoURL,omitempty"` // proof photo in S3
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}
