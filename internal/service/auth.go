package service

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "keydesk"

// AuthOptions configures the single admin identity and its sessions.
type AuthOptions struct {
	AdminUser string
	// AdminPass is plain text or a bcrypt hash. Empty disables login.
	AdminPass string
	// SessionSecret signs session tokens. Empty means a random secret per
	// process, so sessions do not survive a restart.
	SessionSecret string
	SessionTTL    time.Duration
}

// Session is a freshly issued admin session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Principal identifies the admin behind a valid session token.
type Principal struct {
	User      string
	TokenID   string
	ExpiresAt time.Time
}

// AuthService checks admin credentials and issues and validates signed
// session tokens. Logged out tokens are remembered until they expire.
type AuthService struct {
	user   string
	pass   string
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
}

// NewAuthService creates an AuthService from opts.
func NewAuthService(opts AuthOptions) (*AuthService, error) {
	secret := []byte(opts.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{
		user:    opts.AdminUser,
		pass:    opts.AdminPass,
		secret:  secret,
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

// TTL returns the lifetime of issued session tokens.
func (s *AuthService) TTL() time.Duration { return s.ttl }

// WithClock replaces the clock used to issue and check tokens.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login checks user and pass against the configured admin identity and
// issues a session token on success.
func (s *AuthService) Login(user, pass string) (*Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.user)) == 1
	passOK := s.passwordMatches(pass)
	if !userOK || !passOK {
		return nil, ErrInvalidCredentials
	}
	return s.IssueToken(user)
}

// IssueToken creates a signed session token for user.
func (s *AuthService) IssueToken(user string) (*Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   user,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	return &Session{Token: signed, ExpiresAt: exp}, nil
}

// ValidateToken verifies a session token and returns its principal.
func (s *AuthService) ValidateToken(tokenStr string) (*Principal, error) {
	p, err := s.parse(tokenStr)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	_, revoked := s.revoked[p.TokenID]
	s.mu.Unlock()
	if revoked {
		return nil, ErrInvalidCredentials
	}
	return p, nil
}

// Logout revokes a session token. Logging out an invalid or already
// revoked token is a no-op.
func (s *AuthService) Logout(tokenStr string) {
	p, err := s.parse(tokenStr)
	if err != nil {
		return
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, exp := range s.revoked {
		if exp.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[p.TokenID] = p.ExpiresAt
}

func (s *AuthService) parse(tokenStr string) (*Principal, error) {
	if tokenStr == "" {
		return nil, ErrInvalidCredentials
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidCredentials
	}

	return &Principal{
		User:      claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *AuthService) passwordMatches(pass string) bool {
	if s.pass == "" {
		return false
	}
	if IsBcryptHash(s.pass) {
		return bcrypt.CompareHashAndPassword([]byte(s.pass), []byte(pass)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(pass), []byte(s.pass)) == 1
}

// IsBcryptHash reports whether s looks like a bcrypt hash.
func IsBcryptHash(s string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// HashPassword returns a bcrypt hash suitable for auth.admin_pass.
func HashPassword(pass string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
