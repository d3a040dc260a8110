package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/service"
)

type contextKey string

const SummonerNameKey contextKey = "summonerName"

// RequireName demands the X-Summoner-Name header and stashes the
// canonical name in the request context. No token involved; this is the
// floor every request-bearing route stands on.
func RequireName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := domain.NormalizeSummonerName(r.Header.Get("X-Summoner-Name"))
		if name == "" {
			http.Error(w, "X-Summoner-Name header required", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), SummonerNameKey, name)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Identity is RequireName plus bearer verification when auth is enabled:
// the token's subject must match the header identity.
func Identity(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireName(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authService != nil && authService.Enabled() {
				token := bearerToken(r)
				if token == "" {
					log.Printf("ERROR [middleware.Identity] missing bearer token")
					http.Error(w, "Authorization header required", http.StatusUnauthorized)
					return
				}
				name, _ := GetSummonerName(r.Context())
				if err := authService.VerifyIdentity(token, name); err != nil {
					log.Printf("ERROR [middleware.Identity] token rejected for %s: %v", name, err)
					status := http.StatusUnauthorized
					if err == domain.ErrForbidden {
						status = http.StatusForbidden
					}
					http.Error(w, "Invalid token", status)
					return
				}
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// AdminKey guards the admin surface with the bcrypt-hashed key from the
// environment.
func AdminKey(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := authService.CheckAdminKey(r.Header.Get("X-Admin-Key")); err != nil {
				log.Printf("ERROR [middleware.AdminKey] admin key rejected: %v", err)
				status := http.StatusUnauthorized
				if err == domain.ErrForbidden {
					status = http.StatusForbidden
				}
				http.Error(w, "Admin key required", status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Summoner-Name, X-Admin-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetSummonerName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(SummonerNameKey).(string)
	return name, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
