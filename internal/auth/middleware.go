package auth

import (
	"errors"
	"net/http"
	"strings"

	"eventflow/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JWTAuth verifies the bearer token and loads the caller's role and
// validation status from the users table.
func JWTAuth(db *gorm.DB, signer *Signer, lg *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			sub, err := signer.Verify(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "could not validate credentials", http.StatusUnauthorized)
				return
			}
			var u models.User
			if err := db.WithContext(r.Context()).Select("id", "role", "statut_validation").First(&u, "id = ?", sub).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					http.Error(w, "user not found", http.StatusForbidden)
					return
				}
				lg.Errorw("user lookup failed", "user_id", sub, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if u.Role == "" {
				http.Error(w, "user role missing", http.StatusForbidden)
				return
			}
			claims := Claims{Subject: u.ID, Role: u.Role, Status: u.Status}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin admits validated administrators only.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).IsAdmin() {
			http.Error(w, "restricted to validated administrators", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
