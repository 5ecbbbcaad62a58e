package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/vantagepos/licensing-backend/pkg/config"
	"github.com/vantagepos/licensing-backend/pkg/logger"
	"github.com/vantagepos/licensing-backend/pkg/metrics"
	pkgredis "github.com/vantagepos/licensing-backend/pkg/redis"
)

// Tier names an admission-control bucket. Each tier has its own window,
// limit, and identity scheme.
type Tier string

const (
	TierGeneral    Tier = "general"
	TierActivation Tier = "activation"
	TierValidation Tier = "validation"
	TierAdmin      Tier = "admin"
	TierAdminLogin Tier = "admin_login"
	TierGeneration Tier = "license_generation"
)

// Policy is a tier's fixed window and request budget.
type Policy struct {
	Window time.Duration
	Limit  int
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int
	RetryAfter time.Duration
}

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (string, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	RateLimitKey(scope string) string
}

// Limiter enforces fixed-window counters in Redis, so limits hold across
// API replicas. When Redis is unreachable the limiter fails open: admission
// control protects capacity, it must not become the outage.
type Limiter struct {
	store    counterStore
	policies map[Tier]Policy
	metrics  *metrics.AdmissionMetrics
	logg     *logger.Logger
}

// NewLimiter builds a limiter with per-tier policies from configuration.
func NewLimiter(store counterStore, cfg config.RateLimitConfig, m *metrics.AdmissionMetrics, logg *logger.Logger) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("counter store required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Limiter{
		store: store,
		logg:  logg,
		policies: map[Tier]Policy{
			TierGeneral:    {Window: cfg.GeneralWindow, Limit: cfg.GeneralLimit},
			TierActivation: {Window: cfg.ActivationWindow, Limit: cfg.ActivationLimit},
			TierValidation: {Window: cfg.ValidationWindow, Limit: cfg.ValidationLimit},
			TierAdmin:      {Window: cfg.AdminWindow, Limit: cfg.AdminLimit},
			TierAdminLogin: {Window: cfg.AdminLoginWindow, Limit: cfg.AdminLoginLimit},
			TierGeneration: {Window: cfg.GenerationWindow, Limit: cfg.GenerationLimit},
		},
		metrics: m,
	}, nil
}

// PolicyFor returns the tier's policy, zero-valued if the tier is unknown.
func (l *Limiter) PolicyFor(tier Tier) Policy {
	return l.policies[tier]
}

// Allow counts this request against the tier's window for the given
// identity and reports whether it fits under the limit.
func (l *Limiter) Allow(ctx context.Context, tier Tier, identity string) (Decision, error) {
	policy, ok := l.policies[tier]
	if !ok || policy.Limit <= 0 || policy.Window <= 0 {
		return Decision{Allowed: true}, nil
	}

	key := l.key(tier, identity)
	count, err := l.store.IncrWithTTL(ctx, key, policy.Window)
	if err != nil {
		l.failOpen(ctx, tier, err)
		return Decision{Allowed: true, Limit: policy.Limit}, nil
	}

	decision := Decision{
		Allowed: count <= int64(policy.Limit),
		Count:   count,
		Limit:   policy.Limit,
	}
	if !decision.Allowed {
		decision.RetryAfter = l.retryAfter(ctx, key, policy)
		l.audit(ctx, tier, identity, decision)
		if l.metrics != nil {
			l.metrics.IncRejected(string(tier))
		}
		return decision, nil
	}
	if l.metrics != nil {
		l.metrics.IncAllowed(string(tier))
	}
	return decision, nil
}

// Peek reports whether the identity is already over the tier's limit
// without consuming budget. The login tier uses this so successful logins
// cost nothing.
func (l *Limiter) Peek(ctx context.Context, tier Tier, identity string) (Decision, error) {
	policy, ok := l.policies[tier]
	if !ok || policy.Limit <= 0 || policy.Window <= 0 {
		return Decision{Allowed: true}, nil
	}

	key := l.key(tier, identity)
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return Decision{Allowed: true, Limit: policy.Limit}, nil
		}
		l.failOpen(ctx, tier, err)
		return Decision{Allowed: true, Limit: policy.Limit}, nil
	}

	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Decision{Allowed: true, Limit: policy.Limit}, nil
	}

	decision := Decision{
		Allowed: count < int64(policy.Limit),
		Count:   count,
		Limit:   policy.Limit,
	}
	if !decision.Allowed {
		decision.RetryAfter = l.retryAfter(ctx, key, policy)
		l.audit(ctx, tier, identity, decision)
		if l.metrics != nil {
			l.metrics.IncRejected(string(tier))
		}
	}
	return decision, nil
}

// RecordFailure charges one unit of budget after the fact. Paired with Peek
// this implements failure-only counting for login attempts.
func (l *Limiter) RecordFailure(ctx context.Context, tier Tier, identity string) {
	policy, ok := l.policies[tier]
	if !ok || policy.Window <= 0 {
		return
	}
	if _, err := l.store.IncrWithTTL(ctx, l.key(tier, identity), policy.Window); err != nil {
		l.failOpen(ctx, tier, err)
	}
}

func (l *Limiter) key(tier Tier, identity string) string {
	return l.store.RateLimitKey(fmt.Sprintf("%s:%s", tier, identity))
}

func (l *Limiter) retryAfter(ctx context.Context, key string, policy Policy) time.Duration {
	ttl, err := l.store.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		return policy.Window
	}
	return ttl
}

// audit logs the rejection with the counter identity. The identity is the
// tier's key material (normalized IP prefix or admin id), never a credential
// or request payload.
func (l *Limiter) audit(ctx context.Context, tier Tier, identity string, d Decision) {
	ctx = l.logg.WithFields(ctx, map[string]any{
		"tier":        string(tier),
		"identity":    identity,
		"count":       d.Count,
		"limit":       d.Limit,
		"retry_after": d.RetryAfter.String(),
	})
	l.logg.Warn(ctx, "rate limit exceeded")
}

func (l *Limiter) failOpen(ctx context.Context, tier Tier, err error) {
	ctx = l.logg.WithField(ctx, "tier", string(tier))
	l.logg.Error(ctx, "rate limit store unavailable, failing open", err)
}
