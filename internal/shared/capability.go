package shared

import "strings"

// Capability is the effective authorization of a user, computed once per
// request. It is either full access (administrative roles) or a scoped
// permission set. The zero value grants nothing.
type Capability struct {
	full  bool
	names map[string]struct{}
}

// FullAccess returns a capability that satisfies every permission check.
func FullAccess() Capability {
	return Capability{full: true}
}

// ScopedAccess returns a capability limited to the given permission names.
func ScopedAccess(names []string) Capability {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(strings.ToLower(n))
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return Capability{names: set}
}

// IsFull reports whether the capability bypasses permission checks entirely.
func (c Capability) IsFull() bool {
	return c.full
}

// Has reports whether the capability grants the named permission.
func (c Capability) Has(name string) bool {
	if c.full {
		return true
	}
	if c.names == nil {
		return false
	}
	_, ok := c.names[strings.TrimSpace(strings.ToLower(name))]
	return ok
}

// HasAny reports whether any of the named permissions is granted.
func (c Capability) HasAny(names ...string) bool {
	if c.full {
		return true
	}
	for _, n := range names {
		if c.Has(n) {
			return true
		}
	}
	return false
}

// HasAll reports whether every named permission is granted.
func (c Capability) HasAll(names ...string) bool {
	if c.full {
		return true
	}
	for _, n := range names {
		if !c.Has(n) {
			return false
		}
	}
	return true
}
