// internal/models/common.go
package models

import (
	"math"

	"github.com/go-playground/validator/v10"

	"smartbin-api-server/internal/apperror"
)

var validate = validator.New()

const geoPointType = "Point"

// GeoPoint is a GeoJSON point. Coordinates are longitude first, then latitude,
// so the document can back a 2dsphere index in MongoDB.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" validate:"len=2"`
}

func NewGeoPoint(longitude, latitude float64) GeoPoint {
	return GeoPoint{Type: geoPointType, Coordinates: []float64{longitude, latitude}}
}

func (p GeoPoint) Longitude() float64 {
	if len(p.Coordinates) < 1 {
		return 0
	}
	return p.Coordinates[0]
}

func (p GeoPoint) Latitude() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Validate checks that the point has exactly two finite components inside
// the longitude and latitude ranges.
func (p GeoPoint) Validate() error {
	if p.Type != "" && p.Type != geoPointType {
		return apperror.Validation("location type must be %q, got %q", geoPointType, p.Type)
	}
	if err := validate.Struct(p); err != nil {
		return apperror.Validation("location must have exactly two coordinates, got %d", len(p.Coordinates))
	}
	for _, c := range p.Coordinates {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return apperror.Validation("location coordinates must be finite")
		}
	}
	if err := validate.Var(p.Coordinates[0], "longitude"); err != nil {
		return apperror.Validation("longitude %v out of range", p.Coordinates[0])
	}
	if err := validate.Var(p.Coordinates[1], "latitude"); err != nil {
		return apperror.Validation("latitude %v out of range", p.Coordinates[1])
	}
	return nil
}
