package cache

import (
	"testing"
	"time"
)

func TestPolicy_TTLFor(t *testing.T) {
	p := Policy{TTL: 5 * time.Minute, MaxTTL: 10 * time.Minute}

	tests := []struct {
		name     string
		policy   Policy
		override time.Duration
		want     time.Duration
	}{
		{"policy ttl", p, 0, 5 * time.Minute},
		{"negative override ignored", p, -time.Second, 5 * time.Minute},
		{"override", p, 3 * time.Minute, 3 * time.Minute},
		{"override capped", p, 15 * time.Minute, 10 * time.Minute},
		{"ttl capped", Policy{TTL: 2 * time.Hour, MaxTTL: time.Hour}, 0, time.Hour},
		{"uncapped", Policy{TTL: time.Minute}, 48 * time.Hour, 48 * time.Hour},
		{"disabled", Disabled(), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.TTLFor(tt.override); got != tt.want {
				t.Errorf("TTLFor(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}

func TestPolicy_Enabled(t *testing.T) {
	if d := DefaultPolicy(); !d.Enabled() || d.TTL != time.Hour || d.MaxTTL != 24*time.Hour {
		t.Errorf("DefaultPolicy() = %+v", d)
	}
	if Disabled().Enabled() {
		t.Error("Disabled().Enabled() = true")
	}
}
