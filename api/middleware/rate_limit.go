package middleware

import (
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/vantagepos/licensing-backend/api/responses"
	"github.com/vantagepos/licensing-backend/internal/ratelimit"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/logger"
)

// RateLimit enforces a tier's fixed-window budget per client IP, skipping
// the listed paths.
func RateLimit(limiter *ratelimit.Limiter, tier ratelimit.Tier, logg *logger.Logger, skipPaths ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range skipPaths {
				if r.URL.Path == path || (strings.HasSuffix(path, "/*") && strings.HasPrefix(r.URL.Path, strings.TrimSuffix(path, "*"))) {
					next.ServeHTTP(w, r)
					return
				}
			}

			identity := ClientIP(r)
			decision, err := limiter.Allow(r.Context(), tier, identity)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !decision.Allowed {
				writeRateLimited(r, w, logg, tier, identity, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminRateLimit keys the tier on the authenticated admin when one is
// present and falls back to the client IP for unauthenticated traffic.
func AdminRateLimit(limiter *ratelimit.Limiter, tier ratelimit.Tier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := AdminIDFromContext(r.Context())
			if identity == "" {
				identity = ClientIP(r)
			}

			decision, err := limiter.Allow(r.Context(), tier, identity)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !decision.Allowed {
				writeRateLimited(r, w, logg, tier, identity, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginRateLimit rejects login attempts from an IP that has already burned
// its failure budget. It never consumes budget itself; the login controller
// records failures after the credential check.
func LoginRateLimit(limiter *ratelimit.Limiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := ClientIP(r)
			decision, err := limiter.Peek(r.Context(), ratelimit.TierAdminLogin, identity)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !decision.Allowed {
				writeRateLimited(r, w, logg, ratelimit.TierAdminLogin, identity, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(r *http.Request, w http.ResponseWriter, logg *logger.Logger, tier ratelimit.Tier, identity string, d ratelimit.Decision) {
	retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

	ctx := logg.WithFields(r.Context(), map[string]any{
		"path":        r.URL.Path,
		"tier":        string(tier),
		"identity":    identity,
		"retry_after": retryAfter,
	})
	logg.Warn(ctx, "request rejected by rate limit")

	responses.WriteError(r.Context(), logg, w,
		pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests").
			WithDetails(map[string]any{"retryAfterSeconds": retryAfter}))
}

// ClientIP resolves the caller's address, preferring proxy headers. IPv6
// addresses are collapsed to their /64 prefix so one host cannot rotate
// through its interface identifiers to dodge the counter.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}

	candidate := ""
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				candidate = ip
				break
			}
		}
	}
	if candidate == "" {
		candidate = strings.TrimSpace(r.Header.Get("X-Real-IP"))
	}
	if candidate == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil && host != "" {
			candidate = host
		} else {
			candidate = r.RemoteAddr
		}
	}

	return normalizeIP(candidate)
}

func normalizeIP(raw string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	addr = addr.Unmap()
	if addr.Is6() {
		prefix, err := addr.Prefix(64)
		if err == nil {
			return prefix.String()
		}
	}
	return addr.String()
}
