package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/yengrand82/Loan-Manager/internal/service"
)

type contextKey string

const sessionKey contextKey = "session"

// sessionFrom extracts the verified session placed by requireAuth.
func sessionFrom(ctx context.Context) (service.Session, bool) {
	s, ok := ctx.Value(sessionKey).(service.Session)
	return s, ok
}

// requireAuth verifies the bearer token and restricts the route to the
// given roles.
func (h *Handler) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			sess, err := h.auth.Verify(token)
			if err != nil {
				h.handleServiceError(w, err)
				return
			}

			allowed := false
			for _, role := range roles {
				if sess.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
		})
	}
}

// canActFor reports whether the session may act on behalf of a borrower.
// Admins may act for anyone; borrowers only for themselves.
func canActFor(sess service.Session, borrowerID string) bool {
	if sess.Role == service.RoleAdmin {
		return true
	}
	return sess.Subject == borrowerID
}
