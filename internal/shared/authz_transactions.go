package shared

// Transaction permissions declared for RBAC.
const (
	// Goods receipt (barang masuk) permissions
	PermReceiptView   = "trx.receipt.view"
	PermReceiptCreate = "trx.receipt.create"
	PermReceiptEdit   = "trx.receipt.edit"
	PermReceiptPost   = "trx.receipt.post"
	PermReceiptCancel = "trx.receipt.cancel"

	// Delivery note (surat jalan) permissions
	PermDeliveryNoteView     = "trx.deliverynote.view"
	PermDeliveryNoteCreate   = "trx.deliverynote.create"
	PermDeliveryNoteEdit     = "trx.deliverynote.edit"
	PermDeliveryNoteDispatch = "trx.deliverynote.dispatch"
	PermDeliveryNoteDeliver  = "trx.deliverynote.deliver"
	PermDeliveryNoteCancel   = "trx.deliverynote.cancel"

	// Internal delivery order permissions
	PermTransferView     = "trx.transfer.view"
	PermTransferCreate   = "trx.transfer.create"
	PermTransferEdit     = "trx.transfer.edit"
	PermTransferDispatch = "trx.transfer.dispatch"
	PermTransferDeliver  = "trx.transfer.deliver"
	PermTransferCancel   = "trx.transfer.cancel"
	PermTransferReopen   = "trx.transfer.reopen"

	// Purchase / sales return permissions
	PermReturnView     = "trx.return.view"
	PermReturnCreate   = "trx.return.create"
	PermReturnEdit     = "trx.return.edit"
	PermReturnApprove  = "trx.return.approve"
	PermReturnComplete = "trx.return.complete"
)

// TransactionScopes lists all permissions related to stock transactions.
func TransactionScopes() []string {
	return []string{
		PermReceiptView, PermReceiptCreate, PermReceiptEdit, PermReceiptPost, PermReceiptCancel,
		PermDeliveryNoteView, PermDeliveryNoteCreate, PermDeliveryNoteEdit,
		PermDeliveryNoteDispatch, PermDeliveryNoteDeliver, PermDeliveryNoteCancel,
		PermTransferView, PermTransferCreate, PermTransferEdit,
		PermTransferDispatch, PermTransferDeliver, PermTransferCancel, PermTransferReopen,
		PermReturnView, PermReturnCreate, PermReturnEdit, PermReturnApprove, PermReturnComplete,
	}
}
