package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/opsdesk/pkg/composables"
)

// ProvidePool binds pool to the request context so repositories can reach it
// through composables.UseTx. Transactions are opened per write by the repositories.
func ProvidePool(pool composables.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pool == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}
