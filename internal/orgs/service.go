package orgs

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

// Service carries organization and division business rules.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateOrganizationInput is the validated payload for CreateOrganization.
type CreateOrganizationInput struct {
	Code       string           `json:"code" validate:"required"`
	Name       string           `json:"name" validate:"required,min=2,max=120"`
	Alias      string           `json:"alias" validate:"max=60"`
	Type       OrganizationType `json:"type" validate:"required,oneof=Supplier Retailer 'Wholesale Customer' 'Retail Customer' Admin"`
	Contacts   []Contact        `json:"contacts"`
	References []Reference      `json:"references"`
}

func (s *Service) ListOrganizations(ctx context.Context) ([]Organization, error) {
	all, err := s.repo.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	if shared.CapabilityFromContext(ctx).IsFull() {
		return all, nil
	}
	return tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), all), nil
}

func (s *Service) GetOrganization(ctx context.Context, id int64) (Organization, error) {
	org, err := s.repo.GetOrganization(ctx, id)
	if err != nil {
		return Organization{}, err
	}
	if shared.CapabilityFromContext(ctx).IsFull() {
		return org, nil
	}
	if visible := tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), []Organization{org}); len(visible) == 0 {
		return Organization{}, ErrNotFound
	}
	return org, nil
}

func (s *Service) CreateOrganization(ctx context.Context, in CreateOrganizationInput) (Organization, error) {
	code, err := NormalizeOrgCode(in.Code)
	if err != nil {
		return Organization{}, err
	}
	org, err := s.repo.CreateOrganization(ctx, Organization{
		Code:   code,
		Name:   strings.TrimSpace(in.Name),
		Alias:  strings.TrimSpace(in.Alias),
		Type:   in.Type,
		Status: OrgStatusActive,
	})
	if err != nil {
		return Organization{}, err
	}
	if len(in.Contacts) > 0 {
		if err := s.repo.ReplaceContacts(ctx, org.ID, in.Contacts); err != nil {
			return Organization{}, err
		}
		org.Contacts = in.Contacts
	}
	if len(in.References) > 0 {
		if err := s.repo.ReplaceReferences(ctx, org.ID, in.References); err != nil {
			return Organization{}, err
		}
		org.References = in.References
	}
	s.logger.Info("organization created", "code", org.Code, "id", org.ID)
	return org, nil
}

// UpdateOrganizationInput carries mutable organization fields. The code is
// immutable after creation.
type UpdateOrganizationInput struct {
	Name       string             `json:"name" validate:"required,min=2,max=120"`
	Alias      string             `json:"alias" validate:"max=60"`
	Type       OrganizationType   `json:"type" validate:"required,oneof=Supplier Retailer 'Wholesale Customer' 'Retail Customer' Admin"`
	Status     OrganizationStatus `json:"status" validate:"required,oneof=Active Inactive"`
	Contacts   []Contact          `json:"contacts"`
	References []Reference        `json:"references"`
}

func (s *Service) UpdateOrganization(ctx context.Context, id int64, in UpdateOrganizationInput) (Organization, error) {
	if _, err := s.GetOrganization(ctx, id); err != nil {
		return Organization{}, err
	}
	org, err := s.repo.UpdateOrganization(ctx, Organization{
		ID:     id,
		Name:   strings.TrimSpace(in.Name),
		Alias:  strings.TrimSpace(in.Alias),
		Type:   in.Type,
		Status: in.Status,
	})
	if err != nil {
		return Organization{}, err
	}
	if in.Contacts != nil {
		if err := s.repo.ReplaceContacts(ctx, org.ID, in.Contacts); err != nil {
			return Organization{}, err
		}
		org.Contacts = in.Contacts
	}
	if in.References != nil {
		if err := s.repo.ReplaceReferences(ctx, org.ID, in.References); err != nil {
			return Organization{}, err
		}
		org.References = in.References
	}
	return org, nil
}

func (s *Service) DeleteOrganization(ctx context.Context, id int64) error {
	if _, err := s.GetOrganization(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteOrganization(ctx, id)
}

// CreateDivisionInput is the validated payload for CreateDivision. The suffix
// is combined with the owning organization's code to form the division code.
type CreateDivisionInput struct {
	OrganizationID int64     `json:"organization_id" validate:"required,gt=0"`
	CodeSuffix     string    `json:"code_suffix" validate:"required"`
	Name           string    `json:"name" validate:"required,min=2,max=120"`
	Contacts       []Contact `json:"contacts"`
}

func (s *Service) ListDivisions(ctx context.Context, organizationID int64) ([]Division, error) {
	if _, err := s.GetOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	return s.repo.ListDivisions(ctx, organizationID)
}

func (s *Service) GetDivision(ctx context.Context, id int64) (Division, error) {
	div, err := s.repo.GetDivision(ctx, id)
	if err != nil {
		return Division{}, err
	}
	if shared.CapabilityFromContext(ctx).IsFull() {
		return div, nil
	}
	if visible := tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), []Division{div}); len(visible) == 0 {
		return Division{}, ErrNotFound
	}
	return div, nil
}

func (s *Service) CreateDivision(ctx context.Context, in CreateDivisionInput) (Division, error) {
	org, err := s.GetOrganization(ctx, in.OrganizationID)
	if err != nil {
		return Division{}, err
	}
	code, err := DivisionCode(org.Code, in.CodeSuffix)
	if err != nil {
		return Division{}, err
	}
	div, err := s.repo.CreateDivision(ctx, Division{
		OrganizationID: org.ID,
		Code:           code,
		Name:           strings.TrimSpace(in.Name),
		Status:         OrgStatusActive,
	})
	if err != nil {
		return Division{}, err
	}
	s.logger.Info("division created", "code", div.Code, "organization", org.Code)
	return div, nil
}

// UpdateDivisionInput carries mutable division fields. Division codes are
// immutable after creation.
type UpdateDivisionInput struct {
	Name   string             `json:"name" validate:"required,min=2,max=120"`
	Status OrganizationStatus `json:"status" validate:"required,oneof=Active Inactive"`
}

func (s *Service) UpdateDivision(ctx context.Context, id int64, in UpdateDivisionInput) (Division, error) {
	div, err := s.GetDivision(ctx, id)
	if err != nil {
		return Division{}, err
	}
	div.Name = strings.TrimSpace(in.Name)
	div.Status = in.Status
	return s.repo.UpdateDivision(ctx, div)
}

// IsDuplicate reports whether err is a code collision.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateCode)
}
