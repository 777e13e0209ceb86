package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"

	"github.com/HSouheill/gym_backend/models"
)

// TokenType separates access tokens from refresh tokens so one can never be
// used in place of the other.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the payload of every token this server signs
type Claims struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	Type   TokenType   `json:"typ"`
	jwt.StandardClaims
}

// ExpiresAtTime returns exp as a time.Time
func (c *Claims) ExpiresAtTime() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// IssuedAtTime returns iat as a time.Time
func (c *Claims) IssuedAtTime() time.Time {
	return time.Unix(c.IssuedAt, 0)
}

// TokenPair is an access token together with its refresh token
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessClaims *Claims
}

type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret, issuer string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *TokenService) sign(user *models.User, typ TokenType, ttl time.Duration) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		Type:   typ,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   user.ID.Hex(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, claims, nil
}

// Issue creates a fresh access and refresh token for the user
func (s *TokenService) Issue(user *models.User) (*TokenPair, error) {
	access, claims, err := s.sign(user, TokenAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.sign(user, TokenRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, AccessClaims: claims}, nil
}

// Parse verifies the signature, expiry, issuer and type of a raw token
func (s *TokenService) Parse(raw string, want TokenType) (*Claims, error) {
	if raw == "" {
		return nil, errors.New("empty token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}

	if claims.ExpiresAt == 0 {
		return nil, errors.New("token has no expiry")
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return nil, errors.New("unexpected issuer")
	}
	if claims.Type != want {
		return nil, fmt.Errorf("expected %s token, got %q", want, claims.Type)
	}
	if !claims.Role.Valid() {
		return nil, errors.New("unknown role claim")
	}
	if claims.Id == "" || claims.UserID == "" {
		return nil, errors.New("incomplete claims")
	}
	return claims, nil
}
