package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrDuplicateRole indicates a role name collision.
	ErrDuplicateRole = errors.New("rbac: role already exists")
)

// Service orchestrates RBAC operations and capability resolution.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// ResolveCapability computes the effective authorization for a user. An
// unauthenticated user (id 0) gets the zero capability, which denies every
// check. A user holding any administrative role gets full access regardless
// of the permission catalog; everyone else gets the deduplicated permission
// set assigned through their roles.
func (s *Service) ResolveCapability(ctx context.Context, userID int64) (shared.Capability, error) {
	if userID == 0 {
		return shared.Capability{}, nil
	}
	roles, err := s.repo.UserRoleNames(ctx, userID)
	if err != nil {
		return shared.Capability{}, err
	}
	if HasAdminRole(roles) {
		return shared.FullAccess(), nil
	}
	perms, err := s.repo.UserEffectivePermissions(ctx, userID)
	if err != nil {
		return shared.Capability{}, err
	}
	return shared.ScopedAccess(perms), nil
}

// UserRoleNames returns the names of every role assigned to the user.
func (s *Service) UserRoleNames(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserRoleNames(ctx, userID)
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// GetRoleByName fetches a role by its unique name.
func (s *Service) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return s.repo.GetRoleByName(ctx, name)
}

// CreateRole inserts a new role and attaches the given permissions under a
// unit of work: if attaching fails the role itself is removed again, so a
// half-configured role never survives.
func (s *Service) CreateRole(ctx context.Context, name, description string, organizationID *int64, permissionIDs []int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	var created Role
	uow := shared.NewUnitOfWork(s.logger)
	err := uow.Run(ctx, "create role",
		func(ctx context.Context) error {
			role, err := s.repo.CreateRole(ctx, Role{Name: name, Description: strings.TrimSpace(description), OrganizationID: organizationID})
			if err != nil {
				return err
			}
			created = role
			return nil
		},
		func(ctx context.Context) error {
			return s.repo.DeleteRole(ctx, created.ID)
		},
	)
	if err != nil {
		return Role{}, err
	}
	err = uow.Run(ctx, "attach permissions",
		func(ctx context.Context) error {
			for _, permID := range permissionIDs {
				if err := s.repo.AttachPermission(ctx, created.ID, permID); err != nil {
					return fmt.Errorf("permission %d: %w", permID, err)
				}
			}
			return nil
		},
		nil,
	)
	if err != nil {
		return Role{}, err
	}
	return created, nil
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	return s.repo.UpdateRole(ctx, Role{ID: id, Name: name, Description: strings.TrimSpace(description)})
}

// DeleteRole removes a role by ID.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

// ListPermissions returns the read-only permission catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// ListRolePermissions returns the permissions attached to a role.
func (s *Service) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return s.repo.ListRolePermissions(ctx, roleID)
}

// SetRolePermissions replaces the permissions attached to a role.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	current, err := s.repo.ListRolePermissions(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[int64]struct{}, len(current))
	for _, p := range current {
		existing[p.ID] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.repo.AttachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.repo.DetachPermission(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// SeedCatalog upserts the built-in permission catalog.
func (s *Service) SeedCatalog(ctx context.Context) ([]Permission, error) {
	catalog := shared.PermissionCatalog()
	perms := make([]Permission, 0, len(catalog))
	for _, entry := range catalog {
		perm, err := s.repo.EnsurePermission(ctx, Permission{
			Module:      entry.Module,
			Component:   entry.Component,
			Name:        entry.Name,
			Description: entry.Description,
		})
		if err != nil {
			return nil, fmt.Errorf("rbac: seed %s: %w", entry.Name, err)
		}
		perms = append(perms, perm)
	}
	return perms, nil
}

// AssignRole assigns a role to the given user.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.AssignRole(ctx, userID, roleID)
}

// RemoveRole removes a role from a user.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.RemoveRole(ctx, userID, roleID)
}

// EffectivePermissions returns deduplicated permission names for a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserEffectivePermissions(ctx, userID)
}
