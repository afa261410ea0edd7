package shared

// Master data permissions declared for RBAC.
const (
	PermItemView   = "master.item.view"
	PermItemCreate = "master.item.create"
	PermItemEdit   = "master.item.edit"
	PermItemDelete = "master.item.delete"

	PermWarehouseView   = "master.warehouse.view"
	PermWarehouseCreate = "master.warehouse.create"
	PermWarehouseEdit   = "master.warehouse.edit"
	PermWarehouseDelete = "master.warehouse.delete"

	PermSupplierView   = "master.supplier.view"
	PermSupplierCreate = "master.supplier.create"
	PermSupplierEdit   = "master.supplier.edit"
	PermSupplierDelete = "master.supplier.delete"

	PermCustomerView   = "master.customer.view"
	PermCustomerCreate = "master.customer.create"
	PermCustomerEdit   = "master.customer.edit"
	PermCustomerDelete = "master.customer.delete"

	PermCategoryView   = "master.category.view"
	PermCategoryCreate = "master.category.create"
	PermCategoryEdit   = "master.category.edit"
	PermCategoryDelete = "master.category.delete"
)

// MasterScopes lists all permissions related to master data.
func MasterScopes() []string {
	return []string{
		PermItemView, PermItemCreate, PermItemEdit, PermItemDelete,
		PermWarehouseView, PermWarehouseCreate, PermWarehouseEdit, PermWarehouseDelete,
		PermSupplierView, PermSupplierCreate, PermSupplierEdit, PermSupplierDelete,
		PermCustomerView, PermCustomerCreate, PermCustomerEdit, PermCustomerDelete,
		PermCategoryView, PermCategoryCreate, PermCategoryEdit, PermCategoryDelete,
	}
}
