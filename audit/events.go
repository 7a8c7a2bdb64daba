package audit

// AuthenticationFailure builds the entry for a rejected or absent credential.
// reason is one of ReasonMissingToken, ReasonInvalidToken, ReasonExpiredToken.
func AuthenticationFailure(callerID, reason string, metadata map[string]any) Entry {
	md := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		md[k] = v
	}
	md["reason"] = reason
	return Entry{
		Level:    LevelWarning,
		Action:   ActionAuthenticationFailure,
		CallerID: callerID,
		Success:  false,
		Message:  "authentication failed: " + reason,
		Metadata: md,
	}
}

// AuthenticationSuccess builds the entry for a resolved credential, including
// the entitlement set that was granted.
func AuthenticationSuccess(callerID, callerName string, services []string) Entry {
	granted := make([]string, len(services))
	copy(granted, services)
	return Entry{
		Level:      LevelInfo,
		Action:     ActionAuthenticationSuccess,
		CallerID:   callerID,
		CallerName: callerName,
		Success:    true,
		Metadata:   map[string]any{"authorizedServices": granted},
	}
}

// AuthorizationDenied builds the entry for a valid caller reaching for a
// resource outside its entitlement set.
func AuthorizationDenied(callerID, callerName, resourceType, resourceID, serviceID, message string) Entry {
	return Entry{
		Level:        LevelWarning,
		Action:       ActionAuthorizationDenied,
		CallerID:     callerID,
		CallerName:   callerName,
		Success:      false,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ServiceID:    serviceID,
		Message:      message,
	}
}

// Access builds the entry for a completed read. Success reflects whether any
// record was returned.
func Access(action Action, callerID, callerName string, count int) Entry {
	return Entry{
		Level:      LevelInfo,
		Action:     action,
		CallerID:   callerID,
		CallerName: callerName,
		Success:    count > 0,
		Metadata:   map[string]any{"resultCount": count},
	}
}

// Failure builds the entry for a read aborted by a collaborator error.
func Failure(action Action, callerID, callerName string, err error) Entry {
	return Entry{
		Level:      LevelError,
		Action:     action,
		CallerID:   callerID,
		CallerName: callerName,
		Success:    false,
		Message:    err.Error(),
		Metadata:   map[string]any{"resultCount": 0},
	}
}
