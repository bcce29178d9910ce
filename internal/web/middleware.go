package web

import (
	"context"
	"net/http"

	"github.com/balajivenky06/dandi/internal/auth"
)

// gateCookieName carries the playground session id. The key itself stays
// server-side.
const gateCookieName = "dandi_gate"

type contextKey string

const operatorContextKey contextKey = "operator"

// operatorAuth requires a signed-in operator when OIDC is enabled.
func (s *Server) operatorAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.oidcEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		op, err := s.sessions.Get(r)
		if err != nil {
			s.sessions.Clear(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), operatorContextKey, op)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getOperator retrieves the operator from context, or nil.
func getOperator(ctx context.Context) *auth.Operator {
	op, _ := ctx.Value(operatorContextKey).(*auth.Operator)
	return op
}

func (s *Server) setGateCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     gateCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.gateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.secureCookies,
	})
}

func (s *Server) clearGateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     gateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   s.secureCookies,
	})
}
