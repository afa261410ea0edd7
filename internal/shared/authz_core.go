package shared

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermReportStock    = "report.stock.view"
	PermReportMutation = "report.mutation.view"
	PermReportPurchase = "report.purchase.view"
	PermReportSales    = "report.sales.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermReportStock,
		PermReportMutation,
		PermReportPurchase,
		PermReportSales,
	}
}
