package models

import "time"

// User struct matches the document in MongoDB
type User struct {
	ID                         string    `bson:"_id" json:"id"`
	Nickname                   string    `bson:"nickname" json:"nickname"`
	FullName                   string    `bson:"fullName" json:"fullName"`
	PasswordHash               string    `bson:"passwordHash" json:"-"`
	Role                       Role      `bson:"role" json:"role"`
	PasswordRecreationRequired bool      `bson:"passwordRecreationRequired" json:"passwordRecreationRequired"`
	PasswordLastChangedAt      time.Time `bson:"passwordLastChangedAt" json:"passwordLastChangedAt"`
	CreatedAt                  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt                  time.Time `bson:"updatedAt" json:"updatedAt"`
}
