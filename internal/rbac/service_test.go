package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lumbung-wms/lumbung-wms/internal/shared"
)

func TestAdminHasEverything(t *testing.T) {
	svc := NewService()
	for _, perm := range allScopes() {
		require.True(t, svc.Allowed(RoleAdmin, perm), "admin missing %s", perm)
	}
}

func TestManagerCannotEditUsers(t *testing.T) {
	svc := NewService()
	require.False(t, svc.Allowed(RoleManager, shared.PermUsersEdit))
	require.True(t, svc.Allowed(RoleManager, shared.PermReceiptPost))
	require.True(t, svc.Allowed(RoleManager, shared.PermReturnApprove))
}

func TestStaffCannotPostOrApprove(t *testing.T) {
	svc := NewService()
	require.True(t, svc.Allowed(RoleStaff, shared.PermReceiptCreate))
	require.False(t, svc.Allowed(RoleStaff, shared.PermReceiptPost))
	require.False(t, svc.Allowed(RoleStaff, shared.PermReturnApprove))
}

func TestViewerIsReadOnly(t *testing.T) {
	svc := NewService()
	require.True(t, svc.Allowed(RoleViewer, shared.PermItemView))
	require.True(t, svc.Allowed(RoleViewer, shared.PermReportMutation))
	require.False(t, svc.Allowed(RoleViewer, shared.PermItemCreate))
	require.False(t, svc.Allowed(RoleViewer, shared.PermDeliveryNoteDeliver))
}

func TestUnknownRole(t *testing.T) {
	svc := NewService()
	_, err := svc.EffectivePermissions("superuser")
	require.ErrorIs(t, err, ErrUnknownRole)
	require.False(t, svc.Allowed("", shared.PermItemView))
}
