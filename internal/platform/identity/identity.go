// Package identity is the seam to the external identity provider. The
// Provider interface covers credential sign-up/sign-in plus the phone OTP
// flow; Standalone is an in-memory implementation used for development,
// testing, and single-node deployments. Hosted providers plug in behind the
// same interface.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gramacare/gramacare/internal/platform/apperr"
	"github.com/gramacare/gramacare/internal/platform/auth"
)

// Identity is a provider-side user record.
type Identity struct {
	ID    uuid.UUID
	Email string
	Phone string
}

// Provider is the external identity provider contract.
type Provider interface {
	SignUp(ctx context.Context, email, password, phone string) (*Identity, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*Identity, error)
	// Delete removes an identity. Used as the compensating write when the
	// profile/role transaction fails after sign-up succeeded.
	Delete(ctx context.Context, id uuid.UUID) error
}

const otpTTL = 5 * time.Minute

type storedIdentity struct {
	identity     Identity
	passwordHash string
}

type pendingOTP struct {
	code      string
	expiresAt time.Time
}

// Standalone is a thread-safe in-memory Provider.
type Standalone struct {
	mu      sync.RWMutex
	byEmail map[string]*storedIdentity
	byPhone map[string]*storedIdentity
	byID    map[uuid.UUID]*storedIdentity
	otps    map[string]pendingOTP

	// SendSMS delivers OTP codes. Defaults to a no-op; deployments wire an
	// SMS gateway, tests capture the code.
	SendSMS func(phone, code string)
}

func NewStandalone() *Standalone {
	return &Standalone{
		byEmail: make(map[string]*storedIdentity),
		byPhone: make(map[string]*storedIdentity),
		byID:    make(map[uuid.UUID]*storedIdentity),
		otps:    make(map[string]pendingOTP),
		SendSMS: func(phone, code string) {},
	}
}

func hashPassword(password string) string {
	h := sha256.Sum256([]byte(password))
	return hex.EncodeToString(h[:])
}

func (s *Standalone) SignUp(_ context.Context, email, password, phone string) (*Identity, error) {
	if email == "" {
		return nil, apperr.New(apperr.Validation, "email is required")
	}
	if password == "" {
		return nil, apperr.New(apperr.Validation, "password is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return nil, apperr.New(apperr.InvalidState, "account already exists for %s", email)
	}

	rec := &storedIdentity{
		identity:     Identity{ID: uuid.New(), Email: email, Phone: phone},
		passwordHash: hashPassword(password),
	}
	s.byEmail[email] = rec
	s.byID[rec.identity.ID] = rec
	if phone != "" {
		s.byPhone[phone] = rec
	}

	out := rec.identity
	return &out, nil
}

func (s *Standalone) SignIn(_ context.Context, email, password string) (*Identity, error) {
	s.mu.RLock()
	rec, ok := s.byEmail[email]
	s.mu.RUnlock()

	if !ok || subtle.ConstantTimeCompare([]byte(rec.passwordHash), []byte(hashPassword(password))) != 1 {
		return nil, apperr.New(apperr.Authorization, "invalid email or password")
	}

	out := rec.identity
	return &out, nil
}

func (s *Standalone) SendOTP(_ context.Context, phone string) error {
	if phone == "" {
		return apperr.New(apperr.Validation, "phone is required")
	}

	s.mu.Lock()
	if _, ok := s.byPhone[phone]; !ok {
		s.mu.Unlock()
		return apperr.New(apperr.NotFound, "no account for phone %s", phone)
	}
	code, err := generateOTP()
	if err != nil {
		s.mu.Unlock()
		return apperr.Wrap(apperr.Transient, err, "generate otp")
	}
	s.otps[phone] = pendingOTP{code: code, expiresAt: time.Now().Add(otpTTL)}
	s.mu.Unlock()

	s.SendSMS(phone, code)
	return nil
}

func (s *Standalone) VerifyOTP(_ context.Context, phone, code string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.otps[phone]
	if !ok || time.Now().After(pending.expiresAt) {
		return nil, apperr.New(apperr.InvalidState, "no pending code for phone %s", phone)
	}
	if subtle.ConstantTimeCompare([]byte(pending.code), []byte(code)) != 1 {
		return nil, apperr.New(apperr.Authorization, "incorrect code")
	}
	delete(s.otps, phone)

	rec, ok := s.byPhone[phone]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no account for phone %s", phone)
	}
	out := rec.identity
	return &out, nil
}

func (s *Standalone) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return apperr.New(apperr.NotFound, "identity %s not found", id)
	}
	delete(s.byID, id)
	delete(s.byEmail, rec.identity.Email)
	if rec.identity.Phone != "" {
		delete(s.byPhone, rec.identity.Phone)
	}
	return nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// TokenIssuer mints HMAC-signed session tokens carrying the user's role
// claim. Used in standalone mode; external mode validates issuer tokens via
// JWKS instead.
type TokenIssuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

func NewTokenIssuer(key []byte, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{key: key, issuer: issuer, ttl: ttl}
}

// Issue returns a signed session token for the user and its expiry time.
func (i *TokenIssuer) Issue(userID uuid.UUID, role string) (string, time.Time, error) {
	expiresAt := time.Now().Add(i.ttl)
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expiresAt, nil
}
