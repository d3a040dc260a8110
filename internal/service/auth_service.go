package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/dom/league-customs/internal/config"
	"github.com/dom/league-customs/internal/domain"
)

// AuthService issues and validates the optional bearer tokens, and checks
// the admin key. With no AUTH_SECRET configured every token check is a
// no-op; with no ADMIN_KEY_HASH the admin surface stays closed.
type AuthService struct {
	secret       []byte
	expiration   time.Duration
	adminKeyHash string
}

type Claims struct {
	SummonerName string `json:"summonerName"`
	jwt.RegisteredClaims
}

func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		secret:       []byte(cfg.AuthSecret),
		expiration:   time.Duration(cfg.AuthExpirationHours) * time.Hour,
		adminKeyHash: cfg.AdminKeyHash,
	}
}

func (s *AuthService) Enabled() bool {
	return len(s.secret) > 0
}

// IssueToken mints a token bound to one summoner name.
func (s *AuthService) IssueToken(summonerName string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, fmt.Errorf("token auth is not configured")
	}
	name := domain.NormalizeSummonerName(summonerName)
	if name == "" {
		return "", time.Time{}, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.expiration)
	claims := &Claims{
		SummonerName: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken returns the summoner name a token is bound to.
func (s *AuthService) ValidateToken(tokenString string) (string, error) {
	if !s.Enabled() {
		return "", domain.ErrUnauthorized
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", domain.ErrUnauthorized
	}
	name := claims.SummonerName
	if name == "" {
		name = claims.Subject
	}
	if name == "" {
		return "", domain.ErrUnauthorized
	}
	return name, nil
}

// VerifyIdentity checks a token against a claimed summoner name. When
// auth is disabled the claim is taken at face value.
func (s *AuthService) VerifyIdentity(tokenString, claimedName string) error {
	if !s.Enabled() {
		return nil
	}
	subject, err := s.ValidateToken(tokenString)
	if err != nil {
		return err
	}
	if domain.NormalizeSummonerName(subject) != domain.NormalizeSummonerName(claimedName) {
		return domain.ErrForbidden
	}
	return nil
}

// CheckAdminKey compares a presented key against the configured bcrypt
// hash.
func (s *AuthService) CheckAdminKey(key string) error {
	if s.adminKeyHash == "" {
		return domain.ErrForbidden
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminKeyHash), []byte(key)); err != nil {
		return domain.ErrUnauthorized
	}
	return nil
}
