package orgs

import (
	"errors"
	"time"
)

// OrganizationType classifies a tenant.
type OrganizationType string

const (
	OrgTypeSupplier          OrganizationType = "Supplier"
	OrgTypeRetailer          OrganizationType = "Retailer"
	OrgTypeWholesaleCustomer OrganizationType = "Wholesale Customer"
	OrgTypeRetailCustomer    OrganizationType = "Retail Customer"
	OrgTypeAdmin             OrganizationType = "Admin"
)

// OrganizationStatus enumerates lifecycle values.
type OrganizationStatus string

const (
	OrgStatusActive   OrganizationStatus = "Active"
	OrgStatusInactive OrganizationStatus = "Inactive"
)

// ReferenceType enumerates statutory reference kinds.
type ReferenceType string

const (
	ReferenceGST ReferenceType = "GST"
	ReferenceCIN ReferenceType = "CIN"
	ReferencePAN ReferenceType = "PAN"
	ReferenceGS1 ReferenceType = "GS1Code"
)

// AdminOrganizationCode is the conventional code of the organization hosting
// the administrative role. Exactly one organization carries it.
const AdminOrganizationCode = "ADMN"

// AdminUserEmail is the bootstrap administrator account.
const AdminUserEmail = "adminuser@admn.com"

// Contact is an address/phone sub-record of an organization or division.
type Contact struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	StateCode string `json:"state_code"`
	Postal    string `json:"postal"`
	Country   string `json:"country"`
}

// Reference is a statutory identifier attached to an organization.
type Reference struct {
	ID    int64         `json:"id"`
	Type  ReferenceType `json:"type"`
	Value string        `json:"value"`
}

// Organization is the tenant entity.
type Organization struct {
	ID         int64              `json:"id"`
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	Alias      string             `json:"alias"`
	Type       OrganizationType   `json:"type"`
	Status     OrganizationStatus `json:"status"`
	Contacts   []Contact          `json:"contacts,omitempty"`
	References []Reference        `json:"references,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// TenantOrganization implements tenant.Scoped; an organization is its own
// tenant boundary.
func (o Organization) TenantOrganization() (int64, string) {
	return o.ID, o.Code
}

// Division is an operating sub-unit of an organization. Its code is the
// organization code followed by a 3-character suffix.
type Division struct {
	ID             int64              `json:"id"`
	OrganizationID int64              `json:"organization_id"`
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	Status         OrganizationStatus `json:"status"`
	Contacts       []Contact          `json:"contacts,omitempty"`
	References     []Reference        `json:"references,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// TenantOrganization implements tenant.Scoped.
func (d Division) TenantOrganization() (int64, string) {
	return d.OrganizationID, ""
}

var (
	// ErrNotFound indicates a missing record.
	ErrNotFound = errors.New("orgs: not found")
	// ErrDuplicateCode indicates an organization code collision.
	ErrDuplicateCode = errors.New("orgs: code already exists")
	// ErrInvalidCode indicates a malformed organization or division code.
	ErrInvalidCode = errors.New("orgs: invalid code")
)
