package auth

import "slices"

// Scope is the inclusion filter derived from a caller. All means no tenant
// restriction applies; otherwise Services is the exact allow-list, which may
// be empty.
type Scope struct {
	All      bool
	Services []string
}

// Empty reports whether the scope admits no tenant.
func (s Scope) Empty() bool {
	return !s.All && len(s.Services) == 0
}

// Allows reports whether the scope admits serviceID.
func (s Scope) Allows(serviceID string) bool {
	return s.All || slices.Contains(s.Services, serviceID)
}

// IsAuthorizedFor reports whether c may see resources owned by serviceID.
func IsAuthorizedFor(c CallerContext, serviceID string) bool {
	if slices.Contains(c.AuthorizedServices, AllServices) {
		return true
	}
	return serviceID != "" && slices.Contains(c.AuthorizedServices, serviceID)
}

// FilterClause returns the tenant filter every query built for c must apply.
func FilterClause(c CallerContext) Scope {
	if slices.Contains(c.AuthorizedServices, AllServices) {
		return Scope{All: true}
	}
	services := make([]string, 0, len(c.AuthorizedServices))
	for _, s := range c.AuthorizedServices {
		if s != "" && !slices.Contains(services, s) {
			services = append(services, s)
		}
	}
	return Scope{Services: services}
}
