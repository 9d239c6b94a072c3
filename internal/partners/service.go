package partners

import (
	"context"
	"log/slog"

	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

// Service carries partnership business rules.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns the partnerships owned by the caller's organization.
func (s *Service) List(ctx context.Context) ([]Partnership, error) {
	scope := tenant.ScopeFromContext(ctx)
	if scope == nil || !scope.Valid() {
		return nil, nil
	}
	all, err := s.repo.ListByOwner(ctx, scope.OrganizationID)
	if err != nil {
		return nil, err
	}
	return tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), all), nil
}

// Get returns a single partnership if the caller's organization owns it.
func (s *Service) Get(ctx context.Context, id int64) (Partnership, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Partnership{}, err
	}
	if visible := tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), []Partnership{p}); len(visible) == 0 {
		return Partnership{}, ErrNotFound
	}
	return p, nil
}

// Link creates a directed relationship from the caller's organization to the
// named partner. The reverse direction is a separate record owned by the
// other side.
func (s *Service) Link(ctx context.Context, partnerOrgID int64) (Partnership, error) {
	scope := tenant.ScopeFromContext(ctx)
	if scope == nil || !scope.Valid() {
		return Partnership{}, ErrNotFound
	}
	if scope.OrganizationID == partnerOrgID {
		return Partnership{}, ErrSelfLink
	}
	p, err := s.repo.Create(ctx, scope.OrganizationID, partnerOrgID)
	if err != nil {
		return Partnership{}, err
	}
	s.logger.Info("partnership created", "owner", p.OwnerOrgCode, "partner", p.PartnerOrgCode)
	return p, nil
}

// Activate marks the relationship usable for transactions again.
func (s *Service) Activate(ctx context.Context, id int64) (Partnership, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Partnership{}, err
	}
	return s.repo.SetStatus(ctx, id, StatusActive)
}

// Deactivate suspends the relationship without deleting its history.
func (s *Service) Deactivate(ctx context.Context, id int64) (Partnership, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Partnership{}, err
	}
	return s.repo.SetStatus(ctx, id, StatusInactive)
}
