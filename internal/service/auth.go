package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yengrand82/Loan-Manager/internal/domain"
	"github.com/yengrand82/Loan-Manager/internal/port"
)

// Session roles.
const (
	RoleAdmin    = "admin"
	RoleBorrower = "borrower"
)

// Session is a verified login.
type Session struct {
	Subject string // "admin" or a borrower id
	Role    string
}

// AuthService issues and verifies session tokens. The admin signs in with
// the shared password; a borrower signs in with their borrower id, which
// doubles as their access code.
type AuthService struct {
	snap              port.SnapshotSource
	adminPasswordHash string
	jwtSecret         []byte
	sessionTTL        time.Duration
	logger            *zap.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(snap port.SnapshotSource, adminPasswordHash, jwtSecret string, sessionTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		snap:              snap,
		adminPasswordHash: adminPasswordHash,
		jwtSecret:         []byte(jwtSecret),
		sessionTTL:        sessionTTL,
		logger:            logger,
	}
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// LoginAdmin checks the shared admin password and issues an admin token.
// With no hash configured, admin login is disabled outright.
func (s *AuthService) LoginAdmin(ctx context.Context, password string) (string, error) {
	if s.adminPasswordHash == "" {
		s.logger.Warn("admin login attempted but no password hash configured")
		return "", &domain.ErrUnauthorized{Message: "admin login disabled"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminPasswordHash), []byte(password)); err != nil {
		return "", &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	return s.issue("admin", RoleAdmin)
}

// LoginBorrower resolves a borrower id as an access code and issues a
// borrower token. Unknown ids get the same error as bad admin credentials,
// so the response does not leak which ids exist.
func (s *AuthService) LoginBorrower(ctx context.Context, borrowerID string) (string, error) {
	if _, ok := s.snap.Snapshot().FindBorrower(borrowerID); !ok {
		return "", &domain.ErrUnauthorized{Message: "invalid credentials"}
	}
	return s.issue(borrowerID, RoleBorrower)
}

func (s *AuthService) issue(subject, role string) (string, error) {
	now := time.Now().UTC()
	claims := sessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", err
	}
	s.logger.Info("session issued", zap.String("role", role))
	return token, nil
}

// Verify parses and validates a session token.
func (s *AuthService) Verify(tokenString string) (Session, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &domain.ErrUnauthorized{Message: "unexpected signing method"}
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Session{}, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	if claims.Role != RoleAdmin && claims.Role != RoleBorrower {
		return Session{}, &domain.ErrUnauthorized{Message: "unknown role"}
	}
	return Session{Subject: claims.Subject, Role: claims.Role}, nil
}
