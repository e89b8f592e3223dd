package server

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CapManageOptions is the capability required by every admin action.
const CapManageOptions = "manage_options"

// Nonce actions.
const (
	ActionImport  = "pm-import"
	ActionBulk    = "pm-bulk-process"
	ActionCleanup = "pm-cleanup-orphaned"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrInvalidNonce = errors.New("invalid or expired nonce")
	ErrBadPassword  = errors.New("invalid password")
)

// Claims is the bearer token payload.
type Claims struct {
	Caps []string `json:"caps"`
	jwt.RegisteredClaims
}

// Can reports whether the token grants a capability.
func (c *Claims) Can(capability string) bool {
	return slices.Contains(c.Caps, capability)
}

// NonceClaims is a short-lived request-forgery token bound to one action
// and one subject.
type NonceClaims struct {
	Action string `json:"action"`
	jwt.RegisteredClaims
}

// Signer issues and verifies bearer tokens and nonces with one HMAC secret.
type Signer struct {
	secret   []byte
	tokenTTL time.Duration
	nonceTTL time.Duration
	now      func() time.Time
}

// NewSigner creates a signer. Zero TTLs default to 24h for tokens and 12h
// for nonces.
func NewSigner(secret string, tokenTTL, nonceTTL time.Duration) *Signer {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if nonceTTL <= 0 {
		nonceTTL = 12 * time.Hour
	}
	return &Signer{secret: []byte(secret), tokenTTL: tokenTTL, nonceTTL: nonceTTL, now: time.Now}
}

// IssueToken signs a bearer token for subject with the given capabilities.
func (s *Signer) IssueToken(subject string, caps ...string) (string, error) {
	now := s.now()
	claims := Claims{
		Caps: caps,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken verifies a bearer token.
func (s *Signer) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(raw, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueNonce signs a nonce for action on behalf of subject.
func (s *Signer) IssueNonce(subject, action string) (string, error) {
	now := s.now()
	claims := NonceClaims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.nonceTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyNonce checks that raw is a live nonce for action and subject.
func (s *Signer) VerifyNonce(raw, subject, action string) error {
	claims := &NonceClaims{}
	if err := s.parse(raw, claims); err != nil {
		return ErrInvalidNonce
	}
	if claims.Action != action || claims.Subject != subject {
		return ErrInvalidNonce
	}
	return nil
}

func (s *Signer) parse(raw string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return err
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// HashPassword returns the bcrypt hash stored as admin_password_hash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPassword compares a password against a bcrypt hash.
func CheckPassword(password, hash string) error {
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return ErrBadPassword
	}
	return nil
}

const claimsKey = "claims"

// authMiddleware parses the bearer token when present. Requests without a
// valid token continue without claims; requireCapability rejects them.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if header != "" && raw != header {
			if claims, err := s.signer.ParseToken(raw); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

// requireCapability rejects requests whose token lacks capability.
func requireCapability(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil || !claims.Can(capability) {
			fail(c, http.StatusForbidden, "Permission denied")
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireNonce checks the nonce form field against action.
func (s *Server) requireNonce(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil || s.signer.VerifyNonce(c.PostForm("nonce"), claims.Subject, action) != nil {
			fail(c, http.StatusForbidden, "Security check failed")
			c.Abort()
			return
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
