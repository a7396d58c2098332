// Package auth carries the caller's capability set and the JWT plumbing that
// produces it.
package auth

import (
	"context"
)

// CapEditUsers gates every user endpoint; there is no separate read-only
// capability.
const CapEditUsers = "edit_users"

// Capabilities is the set of named permissions granted to the current caller.
// The zero value grants nothing.
type Capabilities map[string]struct{}

func NewCapabilities(names ...string) Capabilities {
	caps := make(Capabilities, len(names))
	for _, n := range names {
		caps[n] = struct{}{}
	}
	return caps
}

// Can reports whether the capability was granted.
func (c Capabilities) Can(name string) bool {
	_, ok := c[name]
	return ok
}

// Names returns the granted capability names.
func (c Capabilities) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	return names
}

// ForRoles derives capabilities from WordPress role names, as decoded from a
// user's wp_capabilities metadata. Only administrators may manage users.
func ForRoles(roles []string) Capabilities {
	caps := NewCapabilities()
	for _, role := range roles {
		if role == "administrator" {
			caps[CapEditUsers] = struct{}{}
		}
	}
	return caps
}

type contextKey struct{}

// WithCapabilities returns a context carrying the caller's capability set.
func WithCapabilities(ctx context.Context, caps Capabilities) context.Context {
	return context.WithValue(ctx, contextKey{}, caps)
}

// FromContext extracts the capability set placed by the auth middleware. An
// unauthenticated request yields an empty set, not an error, so denial happens
// in the service layer with the documented messages.
func FromContext(ctx context.Context) Capabilities {
	caps, _ := ctx.Value(contextKey{}).(Capabilities)
	if caps == nil {
		caps = NewCapabilities()
	}
	return caps
}
