// Package tenant derives the current organization scope and filters
// tenant-owned records against it. Every tenant-scoped list must pass
// through FilterByOrganization or an equivalent repository predicate
// before leaving the service layer.
package tenant

import "context"

// Scope identifies the organization the current request operates in.
type Scope struct {
	OrganizationID   int64
	OrganizationCode string
	OrganizationName string
}

// Valid reports whether the scope points at an organization.
func (s *Scope) Valid() bool {
	return s != nil && (s.OrganizationID != 0 || s.OrganizationCode != "")
}

// Scoped is implemented by records owned by an organization.
type Scoped interface {
	TenantOrganization() (id int64, code string)
}

// FilterByOrganization keeps only the records belonging to the scope's
// organization. A nil or empty scope yields an empty result rather than
// leaking foreign records. The operation is idempotent.
func FilterByOrganization[T Scoped](scope *Scope, items []T) []T {
	out := make([]T, 0, len(items))
	if !scope.Valid() {
		return out
	}
	for _, item := range items {
		id, code := item.TenantOrganization()
		if scope.OrganizationID != 0 && id == scope.OrganizationID {
			out = append(out, item)
			continue
		}
		if scope.OrganizationCode != "" && code != "" && code == scope.OrganizationCode {
			out = append(out, item)
		}
	}
	return out
}

type scopeContextKey struct{}

// ContextWithScope stores the tenant scope in context.
func ContextWithScope(ctx context.Context, scope *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the tenant scope from context. Returns nil when
// the request has no organization affiliation.
func ScopeFromContext(ctx context.Context) *Scope {
	scope, _ := ctx.Value(scopeContextKey{}).(*Scope)
	return scope
}
