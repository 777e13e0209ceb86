package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OTPPurpose tells signup codes apart from password reset codes
type OTPPurpose string

const (
	OTPPurposeSignup        OTPPurpose = "signup"
	OTPPurposePasswordReset OTPPurpose = "password_reset"
)

// OTP is a one-time code sent by email. Only one OTP exists per
// (email, role, purpose); issuing a new one replaces the old one.
type OTP struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Email     string             `bson:"email" json:"email"`
	Role      string             `bson:"role" json:"role"`
	Purpose   OTPPurpose         `bson:"purpose" json:"purpose"`
	OTP       string             `bson:"otp" json:"-"`
	ExpiresAt time.Time          `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// IsExpired is true once now reaches ExpiresAt. The TTL sweep can lag behind,
// so callers must check this even when the document is still present.
func (o *OTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}
