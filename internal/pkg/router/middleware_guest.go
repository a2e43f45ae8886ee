package router

import (
	"log/slog"
	"net/http"

	"github.com/shandysiswandi/credbite/internal/pkg/jwt"
)

// DenyGuestAccess rejects tokens minted from delegated codes with 403. Routes
// without claims, such as public ones, pass through.
func DenyGuestAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if clm := jwt.GetAuth(r.Context()); clm != nil && clm.IsGuest() {
			slog.WarnContext(r.Context(), "guest token denied", "subject", clm.Subject, "path", matchedRoutePath(r))
			WriteJSON(w, errorResponse{Message: "Guest access denied"}, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
