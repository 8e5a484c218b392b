// Package auth consumes the external session provider. The service never
// manages sessions itself; it only needs "who is the current user" and
// "is this the administrator".
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/indiesaasdeals/deals-api/internal/domain"
)

type User struct {
	ID string
}

// Provider resolves the authenticated user for a request.
type Provider interface {
	UserFromRequest(r *http.Request) (*User, error)
}

// HeaderProvider trusts the identity header populated by the upstream
// session gateway, which terminates authentication before requests reach
// this service.
type HeaderProvider struct{}

func (HeaderProvider) UserFromRequest(r *http.Request) (*User, error) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		return nil, domain.ErrUnauthorized
	}
	return &User{ID: id}, nil
}

type ctxKey struct{}

// RequireUser rejects unauthenticated requests and stores the user in the
// request context.
func RequireUser(p Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := p.UserFromRequest(r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
		})
	}
}

// UserFrom returns the authenticated user stored by RequireUser.
func UserFrom(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(ctxKey{}).(*User)
	return user, ok
}

// RequireAdmin gates administrative routes on a shared key header.
func RequireAdmin(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-Admin-Key")
			if key == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
