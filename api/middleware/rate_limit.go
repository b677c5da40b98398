package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dishpatch/dishpatch-backend/api/responses"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
	"github.com/dishpatch/dishpatch-backend/pkg/logger"
	"github.com/google/uuid"
)

type rateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// WriteRatePolicy defines the throttle for mutating console traffic.
// A zero window or limit disables the middleware entirely.
type WriteRatePolicy struct {
	Window time.Duration
	Limit  int
}

func (p WriteRatePolicy) enabled() bool {
	return p.Window > 0 && p.Limit > 0
}

// WriteRateLimit caps mutating requests per actor over a fixed window.
// Requests without an actor header are counted against the client IP so
// unattributed traffic cannot bypass the limit. Reads pass through.
func WriteRateLimit(policy WriteRatePolicy, store rateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			scope := limitScope(ctx, r)

			allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(policy.Limit), policy.Window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"scope":          scope,
						"attempts":       count,
						"limit":          policy.Limit,
						"window_seconds": int(policy.Window.Seconds()),
					})
					logg.Warn(logCtx, "rate_limit.blocked")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many write requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// limitScope prefers the acting user so a busy dispatcher does not starve
// colleagues behind the same NAT.
func limitScope(ctx context.Context, r *http.Request) string {
	if actor := ActorIDFromContext(ctx); actor != uuid.Nil {
		return "writes:actor:" + actor.String()
	}
	return "writes:ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
