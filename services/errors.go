package services

// ErrorKind is the closed set of failures the auth flow reports to callers
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindDuplicateEmail
	KindInvalidCredentials
	KindAccountBlocked
	KindOtpExpiredOrInvalid
	KindPasswordMismatch
	KindUnauthorized
	KindTooManyAttempts
	KindForbidden
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindDuplicateEmail:
		return "DuplicateEmail"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindAccountBlocked:
		return "AccountBlocked"
	case KindOtpExpiredOrInvalid:
		return "OtpExpiredOrInvalid"
	case KindPasswordMismatch:
		return "PasswordMismatch"
	case KindUnauthorized:
		return "Unauthorized"
	case KindTooManyAttempts:
		return "TooManyAttempts"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// AuthError is a user-facing failure. Message is safe to return to clients.
type AuthError struct {
	Kind    ErrorKind
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// Is matches any *AuthError of the same kind, so errors.Is(err, ErrUnauthorized)
// holds regardless of the message.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

func newAuthError(kind ErrorKind, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

// ValidationError reports bad input with a specific message
func ValidationError(message string) *AuthError {
	return newAuthError(KindValidation, message)
}

var (
	ErrValidation          = newAuthError(KindValidation, "Invalid request")
	ErrDuplicateEmail      = newAuthError(KindDuplicateEmail, "An account with this email already exists")
	ErrInvalidCredentials  = newAuthError(KindInvalidCredentials, "Invalid email or password")
	ErrAccountBlocked      = newAuthError(KindAccountBlocked, "Your account has been blocked. Please contact support")
	ErrOtpExpiredOrInvalid = newAuthError(KindOtpExpiredOrInvalid, "Invalid or expired OTP")
	ErrPasswordMismatch    = newAuthError(KindPasswordMismatch, "Passwords do not match")
	ErrUnauthorized        = newAuthError(KindUnauthorized, "Unauthorized")
	ErrTooManyOTPAttempts  = newAuthError(KindTooManyAttempts, "Too many OTP attempts. Please request a new OTP")
	ErrTooManyLogins       = newAuthError(KindTooManyAttempts, "Too many failed login attempts. Please try again later")
	ErrForbidden           = newAuthError(KindForbidden, "Forbidden")
	ErrUserNotFound        = newAuthError(KindNotFound, "User not found")
)
