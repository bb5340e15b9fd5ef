package policy

import "github.com/diewo77/go-offers/gate"

// Resource types that carry capabilities.
const (
	ResourceOffer   = "offer"
	ResourceProduct = "product"
)

// Capabilities checked by the offer workflow and the collaborator handlers.
const (
	CapOfferCreate         = gate.Permission(ResourceOffer + ":" + gate.ActionCreate)
	CapOfferSend           = gate.Permission(ResourceOffer + ":" + gate.ActionSend)
	CapOfferSendHighValue  gate.Permission = "offer:send_high_value"
	CapOfferManagerApprove gate.Permission = "offer:manager_approve"
	CapOfferApprove        = gate.Permission(ResourceOffer + ":" + gate.ActionApprove)
	CapOfferApproveHigh    gate.Permission = "offer:approve_high_value"
	CapOfferReject         = gate.Permission(ResourceOffer + ":" + gate.ActionReject)
	CapOfferRevise         = gate.Permission(ResourceOffer + ":" + gate.ActionRevise)
	CapOfferEditAll        gate.Permission = "offer:edit_all"
	CapOfferViewAll        gate.Permission = "offer:view_all"
	CapOfferDelete         = gate.Permission(ResourceOffer + ":" + gate.ActionDelete)
	CapOfferDeleteAll      gate.Permission = "offer:delete_all"

	CapDiscountApply     = gate.Permission("discount:" + gate.ActionApply)
	CapDiscountApplyHigh gate.Permission = "discount:apply_high"

	CapInvoiceEnter           gate.Permission = "invoice:enter"
	CapInvoiceApproveRevision gate.Permission = "invoice:approve_revision"

	CapProductCreate      = gate.Permission(ResourceProduct + ":" + gate.ActionCreate)
	CapProductUpdate      = gate.Permission(ResourceProduct + ":" + gate.ActionUpdate)
	CapProductUpdatePrice gate.Permission = "product:update_price"
	CapProductDelete      = gate.Permission(ResourceProduct + ":" + gate.ActionDelete)
	CapProductImport      = gate.Permission(ResourceProduct + ":" + gate.ActionImport)

	CapAddressManage gate.Permission = "address:*"

	CapReportExport = gate.Permission("report:" + gate.ActionExport)
	CapStaffUpdate  gate.Permission = "staff:update"
	CapUserApprove  gate.Permission = "user:approve"
	CapProfileAdmin gate.Permission = "profile:update"
)

// Capability describes one seeded permission.
type Capability struct {
	Perm        gate.Permission
	Description string
}

// Catalogue lists every capability the application knows about, in display order.
var Catalogue = []Capability{
	{CapOfferCreate, "Build offers in the cart"},
	{CapOfferSend, "Send offers to the pharmacy"},
	{CapOfferSendHighValue, "Send high-value offers without manager approval"},
	{CapOfferManagerApprove, "Approve high-value offers of staff without a manager"},
	{CapOfferApprove, "Approve sent offers"},
	{CapOfferApproveHigh, "Approve high-value offers"},
	{CapOfferReject, "Reject sent offers"},
	{CapOfferRevise, "Revise own rejected offers"},
	{CapOfferEditAll, "Revise and edit every offer"},
	{CapOfferViewAll, "View every offer"},
	{CapOfferDelete, "Delete own draft offers"},
	{CapOfferDeleteAll, "Delete any draft offer"},
	{CapDiscountApply, "Apply discounts to sent offers"},
	{CapDiscountApplyHigh, "Apply discounts of 20% and above"},
	{CapInvoiceEnter, "Enter invoice details and request corrections"},
	{CapInvoiceApproveRevision, "Approve or reject invoice corrections"},
	{CapProductCreate, "Add products"},
	{CapProductUpdate, "Edit products"},
	{CapProductUpdatePrice, "Update product prices"},
	{CapProductDelete, "Delete products"},
	{CapProductImport, "Import products from a spreadsheet"},
	{CapAddressManage, "Manage own delivery addresses"},
	{CapReportExport, "Export offers and products"},
	{CapStaffUpdate, "Change team member permissions"},
	{CapUserApprove, "Approve new accounts"},
	{CapProfileAdmin, "Manage profiles and assignments"},
}

// System profile names.
const (
	ProfileAdmin        = "admin"
	ProfileFirmaStaff   = "firma_staff"
	ProfileFirmaManager = "firma_manager"
	ProfileEczaneStaff  = "eczane_staff"
	ProfileEczaci       = "eczaci"
)

// SystemProfiles maps each seeded profile to its capabilities.
var SystemProfiles = map[string][]gate.Permission{
	ProfileAdmin: {gate.PermissionSuperAdmin},
	ProfileFirmaStaff: {
		CapOfferCreate, CapOfferSend, CapOfferRevise, CapOfferDelete,
		CapAddressManage, CapReportExport,
	},
	ProfileFirmaManager: {
		CapOfferCreate, CapOfferSend, CapOfferSendHighValue, CapOfferManagerApprove,
		CapOfferRevise, CapOfferEditAll, CapOfferDelete, CapOfferDeleteAll,
		CapAddressManage, CapReportExport, CapStaffUpdate,
	},
	ProfileEczaneStaff: {
		CapOfferReject, CapDiscountApply, CapInvoiceEnter,
		CapAddressManage, CapReportExport,
	},
	ProfileEczaci: {
		CapOfferApprove, CapOfferApproveHigh, CapOfferReject,
		CapDiscountApply, CapDiscountApplyHigh,
		CapInvoiceEnter, CapInvoiceApproveRevision,
		CapProductCreate, CapProductUpdate, CapProductUpdatePrice, CapProductDelete, CapProductImport,
		CapAddressManage, CapReportExport, CapStaffUpdate,
	},
}

// DefaultProfile picks the profile assigned on account approval.
func DefaultProfile(firma, manager bool) string {
	switch {
	case firma && manager:
		return ProfileFirmaManager
	case firma:
		return ProfileFirmaStaff
	case manager:
		return ProfileEczaci
	default:
		return ProfileEczaneStaff
	}
}
