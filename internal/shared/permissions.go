package shared

// Permission names follow module.component.action. The catalog is read-only
// at runtime; the bootstrap seeds it into the permissions table.
const (
	PermUsersView = "core.users.view"
	PermUsersEdit = "core.users.edit"

	PermRolesView = "core.roles.view"
	PermRolesEdit = "core.roles.edit"

	PermPermissionsView = "core.permissions.view"

	PermOrganizationsView = "masterdata.organizations.view"
	PermOrganizationsEdit = "masterdata.organizations.edit"

	PermDivisionsView = "masterdata.divisions.view"
	PermDivisionsEdit = "masterdata.divisions.edit"

	PermPartnersView = "masterdata.partners.view"
	PermPartnersEdit = "masterdata.partners.edit"

	PermItemsView = "masterdata.items.view"
	PermItemsEdit = "masterdata.items.edit"

	PermInventoryView     = "inventory.stock.view"
	PermInventoryTransfer = "inventory.transfers.edit"

	PermPurchaseOrdersView    = "procurement.purchase_orders.view"
	PermPurchaseOrdersEdit    = "procurement.purchase_orders.edit"
	PermPurchaseOrdersApprove = "procurement.purchase_orders.approve"

	PermInvoicesView    = "finance.invoices.view"
	PermInvoicesEdit    = "finance.invoices.edit"
	PermInvoicesApprove = "finance.invoices.approve"

	PermJournalsView = "finance.journals.view"
	PermJournalsPost = "finance.journals.post"

	PermAccountingRulesView = "finance.accounting_rules.view"
	PermAccountingRulesEdit = "finance.accounting_rules.edit"

	PermSubledgerView     = "finance.subledger.view"
	PermGeneralLedgerView = "finance.general_ledger.view"

	PermAuditView = "core.audit.view"
)

// CatalogEntry describes a seeded permission record.
type CatalogEntry struct {
	Module      string
	Component   string
	Name        string
	Description string
}

// PermissionCatalog enumerates every permission the application checks.
func PermissionCatalog() []CatalogEntry {
	return []CatalogEntry{
		{"core", "users", PermUsersView, "View users"},
		{"core", "users", PermUsersEdit, "Create and edit users"},
		{"core", "roles", PermRolesView, "View roles"},
		{"core", "roles", PermRolesEdit, "Create and edit roles"},
		{"core", "permissions", PermPermissionsView, "View the permission catalog"},
		{"core", "audit", PermAuditView, "View audit logs"},
		{"masterdata", "organizations", PermOrganizationsView, "View organizations"},
		{"masterdata", "organizations", PermOrganizationsEdit, "Create and edit organizations"},
		{"masterdata", "divisions", PermDivisionsView, "View divisions"},
		{"masterdata", "divisions", PermDivisionsEdit, "Create and edit divisions"},
		{"masterdata", "partners", PermPartnersView, "View partners"},
		{"masterdata", "partners", PermPartnersEdit, "Manage partner relationships"},
		{"masterdata", "items", PermItemsView, "View items and item masters"},
		{"masterdata", "items", PermItemsEdit, "Create and edit items"},
		{"inventory", "stock", PermInventoryView, "View stock and transfers"},
		{"inventory", "transfers", PermInventoryTransfer, "Initiate and confirm transfers"},
		{"procurement", "purchase_orders", PermPurchaseOrdersView, "View purchase orders"},
		{"procurement", "purchase_orders", PermPurchaseOrdersEdit, "Create and edit purchase orders"},
		{"procurement", "purchase_orders", PermPurchaseOrdersApprove, "Approve purchase orders"},
		{"finance", "invoices", PermInvoicesView, "View invoices"},
		{"finance", "invoices", PermInvoicesEdit, "Create and edit invoices"},
		{"finance", "invoices", PermInvoicesApprove, "Approve invoices"},
		{"finance", "journals", PermJournalsView, "View journals"},
		{"finance", "journals", PermJournalsPost, "Post and reverse journals"},
		{"finance", "accounting_rules", PermAccountingRulesView, "View accounting rules"},
		{"finance", "accounting_rules", PermAccountingRulesEdit, "Configure accounting rules"},
		{"finance", "subledger", PermSubledgerView, "View subledger entries"},
		{"finance", "general_ledger", PermGeneralLedgerView, "View general ledger"},
	}
}

// AllScopes lists every permission name in the catalog.
func AllScopes() []string {
	catalog := PermissionCatalog()
	names := make([]string, 0, len(catalog))
	for _, entry := range catalog {
		names = append(names, entry.Name)
	}
	return names
}
