package middleware

import (
	"context"
	"net/http"
	"time"

	"dbclone/common"
)

// User represents an authenticated user
type User struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type ctxKey string

const UserKey ctxKey = "dbclone.user"

// RequireAuth checks the session for a valid, unexpired user. When no
// session manager is configured (no OIDC issuer set) the API runs open;
// main.go logs the warning once at startup.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if common.SessionManager == nil {
			next.ServeHTTP(w, r)
			return
		}

		u, ok := common.SessionManager.Get(r.Context(), "user").(User)
		exp := common.SessionManager.GetInt64(r.Context(), "exp")
		if !ok || time.Now().Unix() > exp {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), UserKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CurrentUser extracts the current user from the request context
func CurrentUser(ctx context.Context) User {
	if v := ctx.Value(UserKey); v != nil {
		if u, ok := v.(User); ok {
			return u
		}
	}
	return User{}
}

// GetUserEmail extracts the user's email from context (for audit logs)
func GetUserEmail(ctx context.Context) string {
	u := CurrentUser(ctx)
	if u.Email != "" {
		return u.Email
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Sub != "" {
		return u.Sub
	}
	return "anonymous"
}
