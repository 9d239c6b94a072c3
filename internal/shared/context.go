package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

type capabilityContextKey struct{}

// ContextWithCapability stores the resolved capability in context.
func ContextWithCapability(ctx context.Context, cap Capability) context.Context {
	return context.WithValue(ctx, capabilityContextKey{}, cap)
}

// CapabilityFromContext extracts the capability from context. The zero value
// denies every check, so a missing capability fails closed.
func CapabilityFromContext(ctx context.Context) Capability {
	cap, _ := ctx.Value(capabilityContextKey{}).(Capability)
	return cap
}
