package auth

import (
	"fmt"
	"net/http"
	"time"
)

// OperatorCookieName is the cookie carrying the signed-in operator.
const OperatorCookieName = "dandi_operator"

// Operator is the dashboard user recorded after an OIDC login.
type Operator struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the name to show in the nav bar.
func (o *Operator) DisplayName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.Email
}

// SessionManager keeps the operator in a sealed cookie.
type SessionManager struct {
	sealer   *Sealer
	duration time.Duration
	secure   bool
	now      func() time.Time
}

func NewSessionManager(sealer *Sealer, duration time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		sealer:   sealer,
		duration: duration,
		secure:   secure,
		now:      time.Now,
	}
}

// Create stamps op with its lifetime and writes the cookie.
func (sm *SessionManager) Create(w http.ResponseWriter, op *Operator) error {
	op.CreatedAt = sm.now()
	op.ExpiresAt = op.CreatedAt.Add(sm.duration)

	sealed, err := sm.sealer.Seal(op)
	if err != nil {
		return fmt.Errorf("failed to seal session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     OperatorCookieName,
		Value:    sealed,
		Path:     "/",
		MaxAge:   int(sm.duration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   sm.secure,
	})
	return nil
}

// Get reads the operator from the request.
func (sm *SessionManager) Get(r *http.Request) (*Operator, error) {
	cookie, err := r.Cookie(OperatorCookieName)
	if err != nil {
		return nil, fmt.Errorf("session cookie not found: %w", err)
	}

	var op Operator
	if err := sm.sealer.Open(cookie.Value, &op); err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	if sm.now().After(op.ExpiresAt) {
		return nil, fmt.Errorf("session expired")
	}
	return &op, nil
}

// Clear removes the operator cookie.
func (sm *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     OperatorCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   sm.secure,
	})
}
