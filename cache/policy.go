package cache

import "time"

// Policy bounds how long loaded values stay cached.
type Policy struct {
	// TTL is the lifetime of a stored value. Zero disables caching.
	TTL time.Duration

	// MaxTTL caps TTL and per-value overrides. Zero leaves them uncapped.
	MaxTTL time.Duration
}

// DefaultPolicy keeps values for an hour and never longer than a day.
func DefaultPolicy() Policy {
	return Policy{TTL: time.Hour, MaxTTL: 24 * time.Hour}
}

// Disabled returns the policy under which nothing is stored.
func Disabled() Policy {
	return Policy{}
}

// Enabled reports whether the policy stores anything.
func (p Policy) Enabled() bool {
	return p.TTL > 0
}

// TTLFor returns the lifetime of one value: override when positive, TTL
// otherwise, capped by MaxTTL.
func (p Policy) TTLFor(override time.Duration) time.Duration {
	ttl := p.TTL
	if override > 0 {
		ttl = override
	}
	if p.MaxTTL > 0 {
		ttl = min(ttl, p.MaxTTL)
	}
	return ttl
}
