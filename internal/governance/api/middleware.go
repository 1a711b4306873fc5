package api

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quorumsec/aegis/internal/governance/auth"
)

// roleHandler is a handler that requires a verified signer role.
type roleHandler func(w http.ResponseWriter, r *http.Request, claims auth.RoleClaims)

// requireRole verifies the bearer role token before invoking the handler.
func (h *Handlers) requireRole(next roleHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := auth.VerifyRoleToken(bearerToken(r), h.tokens)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, claims)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Traced wraps a handler with a server span per request.
func Traced(next http.Handler) http.Handler {
	tracer := otel.Tracer("github.com/quorumsec/aegis/internal/governance/api")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
