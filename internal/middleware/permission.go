package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sumo/backend/internal/models"
)

const MsgPermissionDenied = "You do not have permission to perform this action."

type PermissionChecker interface {
	HasPermission(ctx context.Context, userID, codename string) (bool, error)
}

// RequirePermission lets the request through only when the authenticated
// caller holds codename. It must run after Authenticate.
func RequirePermission(checker PermissionChecker, codename string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
				return
			}

			ok, err := checker.HasPermission(r.Context(), userID, codename)
			if err != nil {
				slog.Error("permission lookup failed", "user_id", userID, "permission", codename, "err", err)
				writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to check permissions"))
				return
			}
			if !ok {
				writeJSON(w, http.StatusForbidden, models.NewErrorResponse(MsgPermissionDenied))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireMethod answers 405 with message for any method other than method.
func RequireMethod(method, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				w.Header().Set("Allow", method)
				writeJSON(w, http.StatusMethodNotAllowed, models.NewErrorResponse(message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
