package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/HSouheill/gym_backend/models"
	"github.com/HSouheill/gym_backend/repositories"
	"github.com/HSouheill/gym_backend/utils"
)

// UserStore is the part of the user repository the auth flow needs
type UserStore interface {
	FindByEmail(ctx context.Context, role models.Role, email string) (*models.User, error)
	FindByID(ctx context.Context, role models.Role, id primitive.ObjectID) (*models.User, error)
	EmailExists(ctx context.Context, role models.Role, email string) (bool, error)
	Create(ctx context.Context, role models.Role, user *models.User) error
	UpdatePassword(ctx context.Context, role models.Role, id primitive.ObjectID, hash string, changedAt time.Time) error
	TouchLogin(ctx context.Context, role models.Role, id primitive.ObjectID, at time.Time) error
}

type OTPStore interface {
	Save(ctx context.Context, otp *models.OTP) error
	FindLatest(ctx context.Context, email, role string, purpose models.OTPPurpose) (*models.OTP, error)
	Consume(ctx context.Context, id primitive.ObjectID, code string) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Notifier pushes auth changes to the live connections of a user
type Notifier interface {
	NotifyAuthChange(userID, reason string)
}

type noopNotifier struct{}

func (noopNotifier) NotifyAuthChange(string, string) {}

const (
	ReasonLogout          = "logout"
	ReasonPasswordReset   = "password_reset"
	ReasonPasswordChanged = "password_changed"
	ReasonBlocked         = "blocked"
	ReasonUnblocked       = "unblocked"
)

const minPasswordLength = 6

type AuthConfig struct {
	OTPTTL           time.Duration
	OTPLength        int
	SuperAdminEmails []string
}

type AuthDeps struct {
	Users         UserStore
	OTPs          OTPStore
	Tokens        *TokenService
	Revocations   RevocationStore
	OTPAttempts   *AttemptLimiter
	LoginAttempts *AttemptLimiter
	Mailer        Mailer
	Notifier      Notifier
}

// AuthService implements signup, login, session verification, logout and
// password reset for every role.
type AuthService struct {
	users         UserStore
	otps          OTPStore
	tokens        *TokenService
	revocations   RevocationStore
	otpAttempts   *AttemptLimiter
	loginAttempts *AttemptLimiter
	mailer        Mailer
	notifier      Notifier
	cfg           AuthConfig
	logger        *logrus.Entry

	now         func() time.Time
	generateOTP func(length int) (string, error)
}

func NewAuthService(deps AuthDeps, cfg AuthConfig, logger *logrus.Logger) *AuthService {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	revocations := deps.Revocations
	if revocations == nil {
		revocations = NewMemoryRevocationStore()
	}
	if cfg.OTPLength == 0 {
		cfg.OTPLength = 6
	}
	if cfg.OTPTTL == 0 {
		cfg.OTPTTL = 10 * time.Minute
	}

	return &AuthService{
		users:         deps.Users,
		otps:          deps.OTPs,
		tokens:        deps.Tokens,
		revocations:   revocations,
		otpAttempts:   deps.OTPAttempts,
		loginAttempts: deps.LoginAttempts,
		mailer:        deps.Mailer,
		notifier:      notifier,
		cfg:           cfg,
		logger:        logger.WithField("component", "auth"),
		now:           time.Now,
		generateOTP:   utils.GenerateNumericOTP,
	}
}

func (s *AuthService) superAdminAllowed(email string) bool {
	for _, allowed := range s.cfg.SuperAdminEmails {
		if strings.EqualFold(strings.TrimSpace(allowed), email) {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) (string, error) {
	clean, err := utils.SanitizeEmail(email)
	if err != nil {
		return "", ValidationError("Invalid email format")
	}
	return clean, nil
}

func checkNewPassword(password, confirm string) error {
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < minPasswordLength {
		return ValidationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	return nil
}

func otpAttemptKey(role models.Role, purpose models.OTPPurpose, email string) string {
	return fmt.Sprintf("%s:%s:%s", role, purpose, email)
}

func loginAttemptKey(role models.Role, email string) string {
	return fmt.Sprintf("%s:%s", role, email)
}

// issueOTP stores a fresh code for (email, role, purpose), replacing any
// earlier one, and emails it.
func (s *AuthService) issueOTP(ctx context.Context, role models.Role, email string, purpose models.OTPPurpose) (*models.OTPDispatch, error) {
	code, err := s.generateOTP(s.cfg.OTPLength)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	now := s.now().UTC()
	otp := &models.OTP{
		Email:     email,
		Role:      role.String(),
		Purpose:   purpose,
		OTP:       code,
		ExpiresAt: now.Add(s.cfg.OTPTTL),
		CreatedAt: now,
	}
	if err := s.otps.Save(ctx, otp); err != nil {
		return nil, err
	}

	if err := s.otpAttempts.Reset(ctx, otpAttemptKey(role, purpose, email)); err != nil {
		s.logger.WithError(err).Warn("Failed to reset OTP attempts")
	}

	if err := s.mailer.Send(ctx, otpEmail(email, purpose, code, s.cfg.OTPTTL)); err != nil {
		return nil, fmt.Errorf("send otp email: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"role":    role.String(),
		"purpose": purpose,
		"email":   utils.MaskEmail(email),
	}).Info("OTP issued")

	return &models.OTPDispatch{Email: utils.MaskEmail(email), ExpiresAt: otp.ExpiresAt}, nil
}

// verifyOTP checks the latest code for (email, role, purpose) and consumes it.
// Missing, expired and mismatched codes are indistinguishable to the caller.
func (s *AuthService) verifyOTP(ctx context.Context, role models.Role, email string, purpose models.OTPPurpose, code string) error {
	key := otpAttemptKey(role, purpose, email)

	exceeded, err := s.otpAttempts.Exceeded(ctx, key)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read OTP attempts")
	}
	if exceeded {
		return ErrTooManyOTPAttempts
	}

	otp, err := s.otps.FindLatest(ctx, email, role.String(), purpose)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrOtpExpiredOrInvalid
	}
	if err != nil {
		return err
	}

	// the TTL monitor runs about once a minute, so expired codes can still be present
	if otp.IsExpired(s.now()) {
		return ErrOtpExpiredOrInvalid
	}

	if !utils.OTPEqual(otp.OTP, strings.TrimSpace(code)) {
		failures, err := s.otpAttempts.Fail(ctx, key)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to record OTP attempt")
		}
		if limit := s.otpAttempts.Max(); limit > 0 && failures >= limit {
			if err := s.otps.Delete(ctx, otp.ID); err != nil {
				s.logger.WithError(err).Warn("Failed to delete exhausted OTP")
			}
			return ErrTooManyOTPAttempts
		}
		return ErrOtpExpiredOrInvalid
	}

	consumed, err := s.otps.Consume(ctx, otp.ID, otp.OTP)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrOtpExpiredOrInvalid
	}

	if err := s.otpAttempts.Reset(ctx, key); err != nil {
		s.logger.WithError(err).Warn("Failed to reset OTP attempts")
	}
	return nil
}

func (s *AuthService) session(user *models.User) (*models.AuthResult, error) {
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessClaims.ExpiresAtTime(),
		User:         user.Sanitized(),
	}, nil
}

// InitiateSignup sends a signup OTP to an email not yet registered for role
func (s *AuthService) InitiateSignup(ctx context.Context, role models.Role, req models.SignupInitiateRequest) (*models.OTPDispatch, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if role == models.RoleSuperAdmin && !s.superAdminAllowed(email) {
		return nil, ErrForbidden
	}

	exists, err := s.users.EmailExists(ctx, role, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	return s.issueOTP(ctx, role, email, models.OTPPurposeSignup)
}

// CompleteSignup verifies the OTP, creates the account and opens a session
func (s *AuthService) CompleteSignup(ctx context.Context, role models.Role, req models.SignupCompleteRequest) (*models.AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := checkNewPassword(req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}
	if role == models.RoleSuperAdmin && !s.superAdminAllowed(email) {
		return nil, ErrForbidden
	}

	phone, err := utils.SanitizePhone(req.Phone)
	if err != nil {
		return nil, ValidationError("Invalid phone number format")
	}

	if err := s.verifyOTP(ctx, role, email, models.OTPPurposeSignup, req.OTP); err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, role, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		Email:           email,
		Password:        hash,
		FullName:        utils.SanitizeInput(req.FullName),
		Phone:           phone,
		IsEmailVerified: true,
		LastLoginAt:     &now,
		CreatedAt:       now,
	}
	if err := s.users.Create(ctx, role, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	result, err := s.session(user)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"role":   role.String(),
		"userId": user.ID.Hex(),
	}).Info("Account created")

	welcome := welcomeEmail(user)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.mailer.Send(ctx, welcome); err != nil {
			s.logger.WithError(err).WithField("email", utils.MaskEmail(welcome.To)).Warn("Failed to send welcome email")
		}
	}()

	return result, nil
}

// Login checks credentials against the role's collection. Unknown emails and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, role models.Role, req models.LoginRequest) (*models.AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	key := loginAttemptKey(role, email)

	locked, err := s.loginAttempts.Exceeded(ctx, key)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read login attempts")
	}
	if locked {
		return nil, ErrTooManyLogins
	}

	user, err := s.users.FindByEmail(ctx, role, email)
	if errors.Is(err, repositories.ErrNotFound) {
		utils.BurnPasswordCheck(req.Password)
		s.recordLoginFailure(ctx, key)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if user.IsBlocked {
		return nil, ErrAccountBlocked
	}

	if err := utils.CheckPassword(req.Password, user.Password); err != nil {
		s.recordLoginFailure(ctx, key)
		return nil, ErrInvalidCredentials
	}

	if err := s.loginAttempts.Reset(ctx, key); err != nil {
		s.logger.WithError(err).Warn("Failed to reset login attempts")
	}

	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, role, user.ID, now); err != nil {
		s.logger.WithError(err).Warn("Failed to update last login")
	}
	user.LastLoginAt = &now

	return s.session(user)
}

func (s *AuthService) recordLoginFailure(ctx context.Context, key string) {
	if _, err := s.loginAttempts.Fail(ctx, key); err != nil {
		s.logger.WithError(err).Warn("Failed to record login attempt")
	}
}

// Authenticate verifies an access token and rejects revoked ones
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.tokens.Parse(raw, TokenAccess)
	if err != nil {
		return nil, ErrUnauthorized
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.Id)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// loadSessionUser re-reads the user a token was issued for and applies the
// checks every authenticated request shares.
func (s *AuthService) loadSessionUser(ctx context.Context, claims *Claims) (*models.User, error) {
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.users.FindByID(ctx, claims.Role, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if user.PasswordChangedAt != nil && claims.IssuedAt < user.PasswordChangedAt.Unix() {
		return nil, ErrUnauthorized
	}
	if user.IsBlocked {
		return nil, ErrAccountBlocked
	}
	return user, nil
}

// CurrentUser returns the user behind claims, provided the token was issued
// for role.
func (s *AuthService) CurrentUser(ctx context.Context, role models.Role, claims *Claims) (*models.User, error) {
	if claims == nil || claims.Role != role {
		return nil, ErrUnauthorized
	}
	user, err := s.loadSessionUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// UnifiedCurrentUser resolves the user from whichever role the token names
func (s *AuthService) UnifiedCurrentUser(ctx context.Context, claims *Claims) (*models.User, error) {
	if claims == nil {
		return nil, ErrUnauthorized
	}
	return s.CurrentUser(ctx, claims.Role, claims)
}

// Logout revokes the access token until it expires, plus the refresh token
// when one is given. Calling it twice is harmless.
func (s *AuthService) Logout(ctx context.Context, claims *Claims, refreshToken string) error {
	if claims == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.Id, claims.ExpiresAtTime()); err != nil {
		return err
	}

	if refreshToken != "" {
		if rc, err := s.tokens.Parse(refreshToken, TokenRefresh); err == nil && rc.UserID == claims.UserID {
			if err := s.revocations.Revoke(ctx, rc.Id, rc.ExpiresAtTime()); err != nil {
				s.logger.WithError(err).Warn("Failed to revoke refresh token")
			}
		}
	}

	s.notifier.NotifyAuthChange(claims.UserID, ReasonLogout)
	return nil
}

// InitiatePasswordReset sends a reset OTP. Unknown emails get the same
// response without any email being sent.
func (s *AuthService) InitiatePasswordReset(ctx context.Context, role models.Role, req models.ForgotPasswordInitiateRequest) (*models.OTPDispatch, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, role, email)
	if err != nil {
		return nil, err
	}
	if !exists {
		s.logger.WithFields(logrus.Fields{
			"role":  role.String(),
			"email": utils.MaskEmail(email),
		}).Info("Password reset requested for unknown email")
		return &models.OTPDispatch{
			Email:     utils.MaskEmail(email),
			ExpiresAt: s.now().UTC().Add(s.cfg.OTPTTL),
		}, nil
	}

	return s.issueOTP(ctx, role, email, models.OTPPurposePasswordReset)
}

// CompletePasswordReset verifies the OTP and replaces the password. Tokens
// issued before the reset stop working.
func (s *AuthService) CompletePasswordReset(ctx context.Context, role models.Role, req models.ForgotPasswordCompleteRequest) error {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}
	if err := checkNewPassword(req.Password, req.ConfirmPassword); err != nil {
		return err
	}

	if err := s.verifyOTP(ctx, role, email, models.OTPPurposePasswordReset, req.OTP); err != nil {
		return err
	}

	user, err := s.users.FindByEmail(ctx, role, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrOtpExpiredOrInvalid
	}
	if err != nil {
		return err
	}

	if err := s.setPassword(ctx, user, req.Password); err != nil {
		return err
	}
	if err := s.loginAttempts.Reset(ctx, loginAttemptKey(role, email)); err != nil {
		s.logger.WithError(err).Warn("Failed to reset login attempts")
	}

	s.notifier.NotifyAuthChange(user.ID.Hex(), ReasonPasswordReset)
	s.logger.WithFields(logrus.Fields{
		"role":   role.String(),
		"userId": user.ID.Hex(),
	}).Info("Password reset")
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	changedAt := s.now().UTC().Truncate(time.Second)
	if err := s.users.UpdatePassword(ctx, user.Role, user.ID, hash, changedAt); err != nil {
		return err
	}
	user.Password = hash
	user.PasswordChangedAt = &changedAt
	return nil
}

// Refresh trades a refresh token for a new token pair. The used refresh
// token is revoked.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*models.AuthResult, error) {
	claims, err := s.tokens.Parse(raw, TokenRefresh)
	if err != nil {
		return nil, ErrUnauthorized
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.Id)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrUnauthorized
	}

	user, err := s.loadSessionUser(ctx, claims)
	if err != nil {
		return nil, err
	}

	if err := s.revocations.Revoke(ctx, claims.Id, claims.ExpiresAtTime()); err != nil {
		return nil, err
	}
	return s.session(user)
}

// ChangePassword replaces the password of a logged-in user and returns a new
// session, since every earlier token is invalidated.
func (s *AuthService) ChangePassword(ctx context.Context, claims *Claims, req models.ChangePasswordRequest) (*models.AuthResult, error) {
	if err := checkNewPassword(req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}

	user, err := s.loadSessionUser(ctx, claims)
	if err != nil {
		return nil, err
	}
	if err := utils.CheckPassword(req.CurrentPassword, user.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.setPassword(ctx, user, req.Password); err != nil {
		return nil, err
	}
	if err := s.revocations.Revoke(ctx, claims.Id, claims.ExpiresAtTime()); err != nil {
		s.logger.WithError(err).Warn("Failed to revoke old access token")
	}

	s.notifier.NotifyAuthChange(user.ID.Hex(), ReasonPasswordChanged)
	return s.session(user)
}
