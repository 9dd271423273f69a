// Package service contains the service layer for the Marketplace API
package service

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/internal/models"
	"github.com/tigerpop/marketplaceapi/pkg/utils/zaplogger"
)

// Authentication failures
var (
	ErrInvalidNetID       = errors.New("invalid netid format")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDuplicateUser      = errors.New("username or email already taken")
)

// UserStore is the part of the user repository the auth service needs
type UserStore interface {
	GetByID(id uint) (*models.User, error)
	GetByNetID(netid string) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Create(user *models.User) error
}

// Claims is the JWT payload: subject is the user id, netid is the identity
// string asserted by the SSO server.
type Claims struct {
	jwt.RegisteredClaims
	NetID string `json:"netid"`
}

// AuthService resolves identities and issues/verifies bearer tokens
type AuthService struct {
	users       UserStore
	cfg         *config.Config
	netidFormat *regexp.Regexp
}

// NewAuthService creates a new service for authentication
func NewAuthService(users UserStore, cfg *config.Config) *AuthService {
	netidFormat := regexp.MustCompile(fmt.Sprintf("^[a-zA-Z0-9]{%d,%d}$", cfg.NetIDMin, cfg.NetIDMax))
	return &AuthService{
		users:       users,
		cfg:         cfg,
		netidFormat: netidFormat,
	}
}

// ResolveOrCreateUser looks up the user for a validated netid, creating the
// row on first login. Concurrent first logins race on the insert; the unique
// index on netid rejects the loser, which is resolved by re-fetching the row
// the winner created.
func (s *AuthService) ResolveOrCreateUser(netid string) (*models.User, error) {
	if !s.netidFormat.MatchString(netid) {
		zaplogger.Error("Invalid netid format", zaplogger.Fields{"netid": netid})
		return nil, ErrInvalidNetID
	}

	user, err := s.users.GetByNetID(netid)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	newUser := &models.User{NetID: &netid}
	err = s.users.Create(newUser)
	if err == nil {
		zaplogger.Info("Created user for netid", zaplogger.Fields{"netid": netid, "user_id": newUser.ID})
		return newUser, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent login won the insert; the desired outcome holds.
		return s.users.GetByNetID(netid)
	}
	return nil, fmt.Errorf("failed to create user: %w", err)
}

// IssueToken mints a signed bearer token for the user. Every issuance path
// shares the single configured expiry.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		NetID: user.NetIDString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// VerifyToken checks a bearer token and re-fetches the user it refers to.
// Every failure collapses to ErrUnauthenticated so callers cannot probe the
// cause.
func (s *AuthService) VerifyToken(tokenString string) (*models.User, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, "", ErrUnauthenticated
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, "", ErrUnauthenticated
	}

	user, err := s.users.GetByID(uint(userID))
	if err != nil {
		// Token refers to a deleted identity.
		return nil, "", ErrUnauthenticated
	}

	netid := claims.NetID
	if netid == "" {
		netid = user.NetIDString()
	}
	return user, netid, nil
}

// Signup registers a password user
func (s *AuthService) Signup(username, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	hashStr := string(hash)
	user := &models.User{
		Username:     &username,
		Email:        &email,
		PasswordHash: &hashStr,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login checks password credentials and issues a token
func (s *AuthService) Login(username, password string) (*models.User, string, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user.PasswordHash == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
