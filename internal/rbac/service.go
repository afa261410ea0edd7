// Package rbac maps user roles onto permission sets and enforces them
// per-route. Roles are a fixed capability table rather than database rows:
// every authorization decision is a single lookup keyed by (role, action).
package rbac

import (
	"errors"
	"strings"

	"github.com/lumbung-wms/lumbung-wms/internal/shared"
)

// Known role names.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
	RoleViewer  = "viewer"
)

// ErrUnknownRole indicates the role has no entry in the capability table.
var ErrUnknownRole = errors.New("rbac: unknown role")

// Service resolves role names to granted permissions.
type Service struct {
	table map[string][]string
}

// NewService builds the capability table.
func NewService() *Service {
	all := allScopes()

	managerScopes := make([]string, 0, len(all))
	for _, p := range all {
		if p == shared.PermUsersEdit {
			continue
		}
		managerScopes = append(managerScopes, p)
	}

	staffScopes := []string{
		shared.PermItemView, shared.PermWarehouseView, shared.PermSupplierView,
		shared.PermCustomerView, shared.PermCategoryView,
		shared.PermReceiptView, shared.PermReceiptCreate, shared.PermReceiptEdit,
		shared.PermDeliveryNoteView, shared.PermDeliveryNoteCreate, shared.PermDeliveryNoteEdit,
		shared.PermDeliveryNoteDispatch, shared.PermDeliveryNoteDeliver,
		shared.PermTransferView, shared.PermTransferCreate, shared.PermTransferEdit,
		shared.PermTransferDispatch, shared.PermTransferDeliver,
		shared.PermReturnView, shared.PermReturnCreate, shared.PermReturnEdit,
		shared.PermReportStock,
	}

	viewerScopes := make([]string, 0, len(all))
	for _, p := range all {
		if strings.HasSuffix(p, ".view") || strings.HasPrefix(p, "report.") {
			viewerScopes = append(viewerScopes, p)
		}
	}

	return &Service{table: map[string][]string{
		RoleAdmin:   all,
		RoleManager: managerScopes,
		RoleStaff:   staffScopes,
		RoleViewer:  viewerScopes,
	}}
}

// EffectivePermissions returns the permissions granted to a role.
func (s *Service) EffectivePermissions(role string) ([]string, error) {
	perms, ok := s.table[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		return nil, ErrUnknownRole
	}
	return perms, nil
}

// Allowed reports whether the role grants the permission.
func (s *Service) Allowed(role, permission string) bool {
	perms, err := s.EffectivePermissions(role)
	if err != nil {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// Roles lists the known role names.
func (s *Service) Roles() []string {
	return []string{RoleAdmin, RoleManager, RoleStaff, RoleViewer}
}

func allScopes() []string {
	var all []string
	all = append(all, shared.CoreScopes()...)
	all = append(all, shared.MasterScopes()...)
	all = append(all, shared.TransactionScopes()...)
	return all
}
