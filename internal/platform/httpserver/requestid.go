package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// DefaultRequestIDHeader is the correlation header used unless RouterConfig
// overrides it.
const DefaultRequestIDHeader = "X-Request-Id"

type ctxKeyRequestID struct{}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return v
}

// RequestIDMiddleware echoes an inbound correlation id or mints one, exposes
// it on the response, and stores it in the request context.
func RequestIDMiddleware(headerName string) func(next http.Handler) http.Handler {
	headerName = requestIDHeader(headerName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get(headerName))
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set(headerName, rid)
			ctx := context.WithValue(r.Context(), ctxKeyRequestID{}, rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestIDHeader(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultRequestIDHeader
	}
	return name
}
