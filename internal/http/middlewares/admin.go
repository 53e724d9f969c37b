package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/dropDatabas3/authgate/internal/http/errors"
)

// RequireAPIKey protege las rutas admin con una clave estática en el
// header X-Admin-API-Key. Clave vacía ⇒ sin protección (solo dev).
func RequireAPIKey(key string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get("X-Admin-API-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("invalid admin api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
