// models/auth.go

package models

import "time"

type SignupInitiateRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type SignupCompleteRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	OTP             string `json:"otp" validate:"required,numeric,min=4,max=8"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
	FullName        string `json:"fullName,omitempty" validate:"omitempty,max=120"`
	Phone           string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type ForgotPasswordInitiateRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type ForgotPasswordCompleteRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	OTP             string `json:"otp" validate:"required,numeric,min=4,max=8"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required,max=72"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResult is returned by every call that opens a session
type AuthResult struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	User         *User     `json:"user"`
}

// OTPDispatch describes an OTP that was just sent
type OTPDispatch struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}
