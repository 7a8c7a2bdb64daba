package auth

// Sentinel caller ids for unauthenticated calls.
const (
	CallerAnonymous = "anonymous"
	CallerInvalid   = "invalid"
)

// AllServices is the entitlement member granting universal access.
const AllServices = "*"

// CallerType classifies a caller. It is carried for future use and does not
// affect enforcement.
type CallerType string

const (
	CallerTypeToken CallerType = "token"
	CallerTypeUser  CallerType = "user"
)

// CallerContext is the resolved identity and entitlement set for one call.
// It is built once per call and never persisted.
type CallerContext struct {
	CallerID           string
	CallerName         string
	AuthorizedServices []string
	CallerType         CallerType
}

// Anonymous returns the context for a call without a credential.
func Anonymous() CallerContext {
	return CallerContext{CallerID: CallerAnonymous, CallerType: CallerTypeToken}
}

// Invalid returns the context for an unrecognized credential.
func Invalid() CallerContext {
	return CallerContext{CallerID: CallerInvalid, CallerType: CallerTypeToken}
}

// HasEntitlements reports whether the caller may see anything at all.
func (c CallerContext) HasEntitlements() bool {
	return len(c.AuthorizedServices) > 0
}
