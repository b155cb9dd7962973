// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services and encode; business rules stay out of this package.
package httptransport

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/da-werdecker/proyecto-apt-dana-sub002/internal/domain"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/domainerrors"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/httputil"
	"github.com/da-werdecker/proyecto-apt-dana-sub002/pkg/requestcontext"
)

// RequestMetadata stamps each request with an ID and a request-scoped "now"
// so every operation in the request shares one timestamp.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithRequestID(r.Context(), uuid.NewString())
		ctx = requestcontext.WithTime(ctx, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Claims are the bearer-token claims for approver routes.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens and stores the actor and role
// in the request context.
type Authenticator struct {
	key []byte
}

func NewAuthenticator(key []byte) *Authenticator {
	return &Authenticator{key: key}
}

// IssueToken mints a token for the given login and role. Used at credential
// verification time and by tests.
func (a *Authenticator) IssueToken(login string, role domain.Role, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   login,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
}

// RequireRole authenticates the bearer token and checks the role claim
// against the allowed set.
func (a *Authenticator) RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				httputil.WriteError(w, domainerrors.New(domainerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return a.key, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				httputil.WriteError(w, domainerrors.New(domainerrors.CodeUnauthorized, "invalid token"))
				return
			}

			if !slices.Contains(roles, domain.Role(claims.Role)) {
				httputil.WriteError(w, domainerrors.New(domainerrors.CodeForbidden, "insufficient role"))
				return
			}

			ctx := requestcontext.WithActor(r.Context(), claims.Subject)
			ctx = requestcontext.WithActorRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
