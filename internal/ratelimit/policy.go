package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scope names an identifier space.
type Scope string

const (
	ScopeEmail Scope = "email"
	ScopeIP    Scope = "ip"
)

// unknownIP keys callers whose address could not be determined.
const unknownIP = "unknown"

// Default limits: a calendar-free 24 hour window per identifier.
var (
	DefaultEmailRule = Rule{Limit: 5, Window: 24 * time.Hour}
	DefaultIPRule    = Rule{Limit: 7, Window: 24 * time.Hour}
)

// PolicyConfig configures admission for the portrait endpoint.
type PolicyConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Email     Rule     `mapstructure:"email"`
	IP        Rule     `mapstructure:"ip"`
	Whitelist []string `mapstructure:"whitelist"`
}

// Validate checks both rules when the policy is enabled.
func (c PolicyConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.Email.Validate(); err != nil {
		return fmt.Errorf("email rule: %w", err)
	}
	if err := c.IP.Validate(); err != nil {
		return fmt.Errorf("ip rule: %w", err)
	}
	return nil
}

// Admission is the combined verdict for one request.
type Admission struct {
	Allowed bool
	// Scope is the identifier space that denied the request.
	Scope       Scope
	Whitelisted bool
	Disabled    bool
	Email       Decision
	IP          Decision
}

// Denial returns the decision that caused a rejection.
func (a Admission) Denial() Decision {
	if a.Scope == ScopeIP {
		return a.IP
	}
	return a.Email
}

// PolicyOption customizes a Policy.
type PolicyOption func(*Policy)

// WithClock sets the clock used by the policy's limiter.
func WithClock(clock clockwork.Clock) PolicyOption {
	return func(p *Policy) {
		p.limiter = NewLimiter(clock)
	}
}

// WithStats attaches a best-effort decision recorder.
func WithStats(recorder StatsRecorder) PolicyOption {
	return func(p *Policy) {
		if recorder != nil {
			p.stats = recorder
		}
	}
}

// Policy composes the email and IP checks. The email space is evaluated first
// and a denial there never consumes IP quota.
type Policy struct {
	enabled   bool
	emailRule Rule
	ipRule    Rule
	emails    *Store
	ips       *Store
	whitelist *Whitelist
	limiter   *Limiter
	stats     StatsRecorder
}

// NewPolicy builds a policy with fresh, empty stores.
func NewPolicy(cfg PolicyConfig, opts ...PolicyOption) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit policy: %w", err)
	}

	p := &Policy{
		enabled:   cfg.Enabled,
		emailRule: cfg.Email,
		ipRule:    cfg.IP,
		emails:    NewStore(string(ScopeEmail)),
		ips:       NewStore(string(ScopeIP)),
		whitelist: NewWhitelist(cfg.Whitelist...),
		limiter:   NewLimiter(nil),
		stats:     nopStats{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Enabled reports whether checks are applied at all.
func (p *Policy) Enabled() bool {
	return p != nil && p.enabled
}

// Rules returns the configured email and IP rules.
func (p *Policy) Rules() (email Rule, ip Rule) {
	if p == nil {
		return Rule{}, Rule{}
	}
	return p.emailRule, p.ipRule
}

// Stores exposes the backing stores, mainly for inspection in tests.
func (p *Policy) Stores() (emails *Store, ips *Store) {
	if p == nil {
		return nil, nil
	}
	return p.emails, p.ips
}

// Admit decides whether a request from email at ip may proceed.
func (p *Policy) Admit(ctx context.Context, email, ip string) Admission {
	if !p.Enabled() {
		return Admission{Allowed: true, Disabled: true}
	}

	email = NormalizeEmail(email)
	if p.whitelist.Contains(email) {
		return Admission{Allowed: true, Whitelisted: true}
	}

	emailDecision := p.check(ctx, ScopeEmail, p.emails, email, p.emailRule)
	if !emailDecision.Allowed {
		return Admission{Allowed: false, Scope: ScopeEmail, Email: emailDecision}
	}

	ip = strings.TrimSpace(ip)
	if ip == "" {
		ip = unknownIP
	}
	ipDecision := p.check(ctx, ScopeIP, p.ips, ip, p.ipRule)
	if !ipDecision.Allowed {
		return Admission{Allowed: false, Scope: ScopeIP, Email: emailDecision, IP: ipDecision}
	}

	return Admission{Allowed: true, Email: emailDecision, IP: ipDecision}
}

// check runs one limiter check and records the outcome. A store error
// denies the request for a full window.
func (p *Policy) check(ctx context.Context, scope Scope, store *Store, identifier string, rule Rule) Decision {
	d, err := p.limiter.Check(store, identifier, rule)
	if err != nil {
		now := p.limiter.now()
		d = Decision{ResetIn: minutesUntil(now, now.Add(rule.Window)), ResetAt: now.Add(rule.Window)}
	}
	p.record(ctx, scope, d)
	return d
}

func (p *Policy) record(ctx context.Context, scope Scope, d Decision) {
	p.stats.Record(ctx, StatsEvent{Scope: scope, Allowed: d.Allowed, At: p.limiter.now()})
}
