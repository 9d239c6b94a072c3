package users

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

const minPasswordLength = 8

// SessionPurger drops every live session of a user.
type SessionPurger interface {
	PurgeUserSessions(ctx context.Context, userID string) error
}

// Service carries account management rules.
type Service struct {
	repo     RepositoryPort
	sessions SessionPurger
	logger   *slog.Logger
}

func NewService(repo RepositoryPort, sessions SessionPurger, logger *slog.Logger) *Service {
	return &Service{repo: repo, sessions: sessions, logger: logger}
}

func orgID(ctx context.Context) (int64, bool) {
	scope := tenant.ScopeFromContext(ctx)
	if scope == nil || !scope.Valid() {
		return 0, false
	}
	return scope.OrganizationID, true
}

// List returns accounts visible to the caller. Administrators see every
// organization's users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	if shared.CapabilityFromContext(ctx).IsFull() {
		return s.repo.ListAll(ctx)
	}
	id, ok := orgID(ctx)
	if !ok {
		return nil, nil
	}
	return s.repo.List(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if shared.CapabilityFromContext(ctx).IsFull() {
		return u, nil
	}
	if visible := tenant.FilterByOrganization(tenant.ScopeFromContext(ctx), []User{u}); len(visible) == 0 {
		return User{}, ErrNotFound
	}
	return u, nil
}

// CreateInput is the validated payload for Create.
type CreateInput struct {
	OrganizationID int64  `json:"organization_id" validate:"required,gt=0"`
	Email          string `json:"email" validate:"required,email"`
	Name           string `json:"name" validate:"required,min=2,max=120"`
	Password       string `json:"password" validate:"required"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	if len(in.Password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	u, err := s.repo.Create(ctx, User{
		OrganizationID: in.OrganizationID,
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		Name:           strings.TrimSpace(in.Name),
	}, string(hash))
	if err != nil {
		return User{}, err
	}
	s.logger.Info("user created", "email", u.Email, "organization", u.OrganizationID)
	return u, nil
}

func (s *Service) Rename(ctx context.Context, id int64, name string) (User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return User{}, err
	}
	return s.repo.Update(ctx, id, strings.TrimSpace(name))
}

// Deactivate disables the account and kills its sessions so access ends
// immediately, not at next login.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	if err := s.sessions.PurgeUserSessions(ctx, strconv.FormatInt(id, 10)); err != nil {
		s.logger.Error("purge sessions", slog.Int64("user", id), slog.Any("error", err))
	}
	s.logger.Info("user deactivated", "user", id)
	return nil
}

func (s *Service) Activate(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, true)
}

// ChangePassword rehashes and stores a new password, then purges sessions so
// stolen cookies stop working.
func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, id, string(hash)); err != nil {
		return err
	}
	if err := s.sessions.PurgeUserSessions(ctx, strconv.FormatInt(id, 10)); err != nil {
		s.logger.Error("purge sessions", slog.Int64("user", id), slog.Any("error", err))
	}
	return nil
}
