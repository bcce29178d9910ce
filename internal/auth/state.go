package auth

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// StateCookieName holds the pending OIDC state and nonce.
	StateCookieName = "dandi_oidc_state"
	// StateCookieMaxAge is how long a login attempt may take, in seconds.
	StateCookieMaxAge = 5 * 60
)

// StateData holds the state and nonce for an OIDC request.
type StateData struct {
	State     string    `json:"state"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StateStore manages state and nonce for OIDC CSRF protection.
type StateStore struct {
	sealer *Sealer
	secure bool
	now    func() time.Time
}

func NewStateStore(sealer *Sealer, secure bool) *StateStore {
	return &StateStore{sealer: sealer, secure: secure, now: time.Now}
}

// Generate creates a new state/nonce pair and stores it in a sealed cookie.
func (ss *StateStore) Generate(w http.ResponseWriter) (*StateData, error) {
	state, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := GenerateSecureString(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	data := &StateData{
		State:     state,
		Nonce:     nonce,
		ExpiresAt: ss.now().Add(StateCookieMaxAge * time.Second),
	}

	sealed, err := ss.sealer.Seal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to seal state: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    sealed,
		Path:     "/",
		MaxAge:   StateCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   ss.secure,
	})
	return data, nil
}

// Validate checks state against the cookie and returns the stored pair.
func (ss *StateStore) Validate(r *http.Request, state string) (*StateData, error) {
	cookie, err := r.Cookie(StateCookieName)
	if err != nil {
		return nil, fmt.Errorf("state cookie not found: %w", err)
	}

	var data StateData
	if err := ss.sealer.Open(cookie.Value, &data); err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	if ss.now().After(data.ExpiresAt) {
		return nil, fmt.Errorf("state expired")
	}
	if !ConstantTimeCompare(data.State, state) {
		return nil, fmt.Errorf("state mismatch")
	}
	return &data, nil
}

// Clear clears the state cookie.
func (ss *StateStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   ss.secure,
	})
}
