// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a credential record. Each role keeps its users in its own collection,
// so Role is filled in by the repository and never persisted.
type User struct {
	ID                primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email             string             `json:"email" bson:"email"`
	Password          string             `json:"-" bson:"password"`
	FullName          string             `json:"fullName,omitempty" bson:"fullName,omitempty"`
	Phone             string             `json:"phone,omitempty" bson:"phone,omitempty"`
	ProfilePic        string             `json:"profilePic,omitempty" bson:"profilePic,omitempty"`
	Role              Role               `json:"role" bson:"-"`
	IsEmailVerified   bool               `json:"isEmailVerified" bson:"isEmailVerified"`
	IsBlocked         bool               `json:"isBlocked" bson:"isBlocked"`
	LastLoginAt       *time.Time         `json:"lastLoginAt,omitempty" bson:"lastLoginAt,omitempty"`
	PasswordChangedAt *time.Time         `json:"-" bson:"passwordChangedAt,omitempty"`
	CreatedAt         time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Sanitized returns a copy safe to hand to clients
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clean := *u
	clean.Password = ""
	return &clean
}

// ProfileUpdate holds the editable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName *string `json:"fullName" validate:"omitempty,min=1,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
}

// Empty reports whether the update changes nothing
func (p ProfileUpdate) Empty() bool {
	return p.FullName == nil && p.Phone == nil
}

// Response is the envelope used for every JSON reply
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
