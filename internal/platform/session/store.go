// Package session keeps each visitor's registration funnel in an
// HMAC-signed cookie, one cookie per event.
package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Genoux/website/internal/registration"
)

const minKeyLength = 16

// Config controls cookie naming and lifetime.
type Config struct {
	SigningKey    string
	CookieName    string
	SecureCookies bool
	TTL           time.Duration
	Clock         func() time.Time
}

// Store reads and writes signed registration cookies.
type Store struct {
	key    []byte
	name   string
	secure bool
	ttl    time.Duration
	now    func() time.Time
}

// State is what one event's cookie carries.
type State struct {
	ID           string                `json:"id"`
	CSRFToken    string                `json:"csrf"`
	ExpiresAt    time.Time             `json:"exp"`
	Registration *registration.Session `json:"reg"`

	fresh bool
}

// Fresh reports whether the state was created for this request rather than
// read from a valid cookie.
func (s *State) Fresh() bool { return s.fresh }

// VerifyCSRF compares token against the state's token in constant time.
func (s *State) VerifyCSRF(token string) bool {
	if s.CSRFToken == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.CSRFToken), []byte(token)) == 1
}

// NewStore validates cfg and builds a Store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.SigningKey) < minKeyLength {
		return nil, errors.New("session: signing key must be at least 16 bytes")
	}
	name := strings.TrimSpace(cfg.CookieName)
	if name == "" {
		name = "lowping_session"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		key:    []byte(cfg.SigningKey),
		name:   name,
		secure: cfg.SecureCookies,
		ttl:    ttl,
		now:    clock,
	}, nil
}

// CookieName returns the cookie used for eventID. Event ids are hashed so
// any id yields a valid cookie name.
func (s *Store) CookieName(eventID string) string {
	sum := sha256.Sum256([]byte(eventID))
	return s.name + "_" + hex.EncodeToString(sum[:6])
}

// Load returns the state for eventID. A missing, tampered, expired or
// foreign cookie yields a fresh state at data entry.
func (s *Store) Load(r *http.Request, eventID string) *State {
	if st, ok := s.read(r, eventID); ok {
		st.Registration.Normalize(eventID)
		return st
	}
	return &State{
		ID:           uuid.NewString(),
		CSRFToken:    newToken(),
		Registration: registration.NewSession(eventID),
		fresh:        true,
	}
}

func (s *Store) read(r *http.Request, eventID string) (*State, bool) {
	c, err := r.Cookie(s.CookieName(eventID))
	if err != nil || c.Value == "" {
		return nil, false
	}
	payloadPart, sigPart, ok := strings.Cut(c.Value, ".")
	if !ok {
		return nil, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil || !hmac.Equal(sig, s.sign(payload)) {
		return nil, false
	}
	var st State
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, false
	}
	if st.ID == "" || st.Registration == nil || !s.now().Before(st.ExpiresAt) {
		return nil, false
	}
	if st.Registration.EventID != eventID {
		return nil, false
	}
	return &st, true
}

// Save writes the state back, sliding its expiry.
func (s *Store) Save(w http.ResponseWriter, st *State) error {
	if st == nil || st.Registration == nil {
		return errors.New("session: nothing to save")
	}
	st.ExpiresAt = s.now().Add(s.ttl).UTC()
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	value := base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(s.sign(payload))
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName(st.Registration.EventID),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  st.ExpiresAt,
	})
	st.fresh = false
	return nil
}

// Clear expires the cookie for eventID.
func (s *Store) Clear(w http.ResponseWriter, eventID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName(eventID),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

func (s *Store) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

func newToken() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
