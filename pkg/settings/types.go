package settings

import (
	"encoding/json"
	"strings"
)

// PlanTier is a subscription plan
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
	PlanCustom     PlanTier = "custom"
)

// Unlimited marks a limit with no cap
const Unlimited = -1

// ParsePlan maps a plan name to a tier. Unknown names fall back to free.
func ParsePlan(name string) PlanTier {
	switch p := PlanTier(strings.ToLower(strings.TrimSpace(name))); p {
	case PlanFree, PlanPro, PlanEnterprise, PlanCustom:
		return p
	}
	return PlanFree
}

// Limits are the per-plan resource caps
type Limits struct {
	MaxCustomRoles int `json:"maxCustomRoles"`
	MaxStaff       int `json:"maxStaff"`
}

// DefaultLimits returns the limits that come with plan
func DefaultLimits(plan PlanTier) Limits {
	switch plan {
	case PlanPro:
		return Limits{MaxCustomRoles: 10, MaxStaff: 50}
	case PlanEnterprise, PlanCustom:
		return Limits{MaxCustomRoles: Unlimited, MaxStaff: Unlimited}
	default:
		return Limits{MaxCustomRoles: 2, MaxStaff: 5}
	}
}

// Within reports whether one more item fits under limit given current usage
func Within(limit, current int) bool {
	return limit < 0 || current < limit
}

// Settings is the tenant configuration returned by the venue API
type Settings struct {
	TenantID  string   `json:"tenantId"`
	VenueName string   `json:"venueName"`
	Plan      PlanTier `json:"plan"`
	Currency  string   `json:"currency,omitempty"`
	Timezone  string   `json:"timezone,omitempty"`
	// Limits overrides the plan defaults; only honoured on the custom plan
	Limits *Limits `json:"limits,omitempty"`
}

// UnmarshalJSON accepts the settings object bare or wrapped in
// {"settings": {...}}, and normalizes the plan name.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type plain Settings
	var wrapped struct {
		Settings *json.RawMessage `json:"settings"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Settings != nil {
		data = *wrapped.Settings
	}

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	p.Plan = ParsePlan(string(p.Plan))
	*s = Settings(p)
	return nil
}

// EffectiveLimits returns the limits that apply to the tenant
func (s Settings) EffectiveLimits() Limits {
	if s.Plan == PlanCustom && s.Limits != nil {
		return *s.Limits
	}
	return DefaultLimits(s.Plan)
}
