// Package partners manages directed trading relationships between
// organizations. A relationship is owned by one organization and points at
// another; the reverse direction is a separate record.
package partners

import (
	"errors"
	"time"
)

// Status enumerates relationship lifecycle values.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Partnership links an owner organization to a partner organization.
type Partnership struct {
	ID             int64     `json:"id"`
	OwnerOrgID     int64     `json:"owner_org_id"`
	OwnerOrgCode   string    `json:"owner_org_code"`
	PartnerOrgID   int64     `json:"partner_org_id"`
	PartnerOrgCode string    `json:"partner_org_code"`
	PartnerName    string    `json:"partner_name"`
	PartnerType    string    `json:"partner_type"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TenantOrganization implements tenant.Scoped. A partnership belongs to the
// organization that owns it, not the one it points at.
func (p Partnership) TenantOrganization() (int64, string) {
	return p.OwnerOrgID, p.OwnerOrgCode
}

var (
	// ErrNotFound indicates a missing partnership.
	ErrNotFound = errors.New("partners: not found")
	// ErrDuplicate indicates the owner already links to this partner.
	ErrDuplicate = errors.New("partners: relationship already exists")
	// ErrSelfLink indicates an organization partnering with itself.
	ErrSelfLink = errors.New("partners: organization cannot partner with itself")
)
