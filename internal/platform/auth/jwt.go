package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Actor is the authenticated identity attached to a request.
type Actor struct {
	ID        string
	Moderator bool
}

type ctxKeyActor struct{}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	v, ok := ctx.Value(ctxKeyActor{}).(Actor)
	return v, ok
}

// WithActor injects an actor into context. Useful for testing.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor{}, a)
}

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type JWTVerifier struct {
	Secret []byte
}

func (v JWTVerifier) Parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// actorFromRequest resolves the Bearer token on a request, if any. A
// missing, malformed or invalid token yields no actor.
func actorFromRequest(verifier JWTVerifier, r *http.Request) (Actor, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return Actor{}, false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Actor{}, false
	}
	claims, err := verifier.Parse(strings.TrimSpace(parts[1]))
	if err != nil || strings.TrimSpace(claims.Subject) == "" {
		return Actor{}, false
	}
	return Actor{
		ID:        claims.Subject,
		Moderator: strings.EqualFold(strings.TrimSpace(claims.Role), "moderator"),
	}, true
}

// RequireUser middleware validates the Bearer token and injects the actor
// into context. The "moderator" role grants moderation capability.
func RequireUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := actorFromRequest(verifier, r)
			if !ok {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// OptionalUser injects the actor when a valid Bearer token is present and
// lets the request through anonymously otherwise. Read paths use it so
// authors see their own pending comments without the route requiring auth.
func OptionalUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor, ok := actorFromRequest(verifier, r); ok {
				r = r.WithContext(WithActor(r.Context(), actor))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireModerator allows the request only if RequireUser already injected an
// actor with moderator capability.
func RequireModerator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok || !actor.Moderator {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
