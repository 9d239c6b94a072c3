package orgs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RoleProvisioner is the slice of the role service the bootstrap needs.
type RoleProvisioner interface {
	SeedCatalog(ctx context.Context) ([]rbac.Permission, error)
	GetRoleByName(ctx context.Context, name string) (rbac.Role, error)
	CreateRole(ctx context.Context, name, description string, organizationID *int64, permissionIDs []int64) (rbac.Role, error)
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	AssignRole(ctx context.Context, userID, roleID int64) error
}

// Bootstrapper provisions the administrative organization, role and user on
// startup. Every step is idempotent so repeated runs converge on the same
// state.
type Bootstrapper struct {
	repo   RepositoryPort
	roles  RoleProvisioner
	logger *slog.Logger
}

func NewBootstrapper(repo RepositoryPort, roles RoleProvisioner, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{repo: repo, roles: roles, logger: logger}
}

// Run ensures the ADMN organization exists, the administrative role holds the
// complete permission catalog, and the administrator account exists with the
// role assigned. Newly created records are compensated in reverse order if a
// later step fails.
func (b *Bootstrapper) Run(ctx context.Context, adminPassword string) error {
	if adminPassword == "" {
		return errors.New("orgs: bootstrap requires an admin password")
	}

	permissions, err := b.roles.SeedCatalog(ctx)
	if err != nil {
		return fmt.Errorf("orgs: seed permission catalog: %w", err)
	}
	permissionIDs := make([]int64, 0, len(permissions))
	for _, p := range permissions {
		permissionIDs = append(permissionIDs, p.ID)
	}

	uow := shared.NewUnitOfWork(b.logger)

	org, err := b.repo.GetOrganizationByCode(ctx, AdminOrganizationCode)
	switch {
	case errors.Is(err, ErrNotFound):
		err = uow.Run(ctx, "admin organization", func(ctx context.Context) error {
			org, err = b.repo.CreateOrganization(ctx, Organization{
				Code:   AdminOrganizationCode,
				Name:   "Administration",
				Alias:  "Admin",
				Type:   OrgTypeAdmin,
				Status: OrgStatusActive,
			})
			return err
		}, func(ctx context.Context) error {
			return b.repo.DeleteOrganization(ctx, org.ID)
		})
		if err != nil {
			return fmt.Errorf("orgs: bootstrap organization: %w", err)
		}
	case err != nil:
		return fmt.Errorf("orgs: bootstrap organization lookup: %w", err)
	}

	role, err := b.roles.GetRoleByName(ctx, rbac.AdminRoleName)
	switch {
	case errors.Is(err, rbac.ErrNotFound):
		err = uow.Run(ctx, "admin role", func(ctx context.Context) error {
			role, err = b.roles.CreateRole(ctx, rbac.AdminRoleName, "Full administrative access", &org.ID, permissionIDs)
			return err
		}, nil)
		if err != nil {
			return uow.Rollback(ctx, fmt.Errorf("orgs: bootstrap role: %w", err))
		}
	case err != nil:
		return uow.Rollback(ctx, fmt.Errorf("orgs: bootstrap role lookup: %w", err))
	default:
		// Converge the existing role onto the full catalog.
		if err := b.roles.SetRolePermissions(ctx, role.ID, permissionIDs); err != nil {
			return uow.Rollback(ctx, fmt.Errorf("orgs: bootstrap role permissions: %w", err))
		}
	}

	userID, err := b.repo.FindUserIDByEmail(ctx, AdminUserEmail)
	switch {
	case errors.Is(err, ErrNotFound):
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if hashErr != nil {
			return uow.Rollback(ctx, fmt.Errorf("orgs: hash admin password: %w", hashErr))
		}
		err = uow.Run(ctx, "admin user", func(ctx context.Context) error {
			userID, err = b.repo.CreateUser(ctx, AdminUserEmail, "Administrator", string(hash), org.ID)
			return err
		}, func(ctx context.Context) error {
			return b.repo.DeleteUser(ctx, userID)
		})
		if err != nil {
			return uow.Rollback(ctx, fmt.Errorf("orgs: bootstrap user: %w", err))
		}
	case err != nil:
		return uow.Rollback(ctx, fmt.Errorf("orgs: bootstrap user lookup: %w", err))
	}

	if err := b.roles.AssignRole(ctx, userID, role.ID); err != nil {
		return uow.Rollback(ctx, fmt.Errorf("orgs: assign admin role: %w", err))
	}

	b.logger.Info("admin bootstrap complete",
		"organization", org.Code, "role", role.Name, "user", AdminUserEmail)
	return nil
}
