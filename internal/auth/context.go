package auth

import "context"

type capabilityKey struct{}

// WithCapability stores the resolved capability on the context.
func WithCapability(ctx context.Context, c Capability) context.Context {
	return context.WithValue(ctx, capabilityKey{}, c)
}

// CapabilityFrom returns the capability resolved at the boundary, or the
// zero Capability when the request carried no credential.
func CapabilityFrom(ctx context.Context) Capability {
	if c, ok := ctx.Value(capabilityKey{}).(Capability); ok {
		return c
	}
	return Capability{}
}
