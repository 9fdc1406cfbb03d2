package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prudhvinik1/parlourpunch/internal/models"
)

var (
	ErrMissingToken  = errors.New("missing token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrForbiddenRole = errors.New("admin or super admin role required")
)

// AuthService verifies the identity tokens issued by the login service.
// Issuing is kept for the kiosk provisioning path and tests.
type AuthService struct {
	jwtSecret string
	jwtExpiry time.Duration
	now       func() time.Time
}

func NewAuthService(jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		now:       time.Now,
	}
}

func (s *AuthService) IssueToken(identity models.Identity) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.jwtExpiry)

	claims := jwt.MapClaims{
		"sub":    identity.UserID,
		"userId": identity.UserID,
		"email":  identity.Email,
		"role":   string(identity.Role),
		"exp":    expiresAt.Unix(),
		"iat":    issuedAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *AuthService) VerifyToken(tokenString string) (*models.Identity, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithTimeFunc(s.now))

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, _ := claims["userId"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if userID == "" || role == "" {
		return nil, ErrInvalidToken
	}

	return &models.Identity{
		UserID: userID,
		Email:  email,
		Role:   models.Role(role),
	}, nil
}

// Authorize verifies the token and requires a role allowed to manage attendance.
func (s *AuthService) Authorize(tokenString string) (*models.Identity, error) {
	identity, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	if !identity.CanManageAttendance() {
		return identity, ErrForbiddenRole
	}
	return identity, nil
}
